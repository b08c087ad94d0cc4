package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WSVariant selects how the chat WebSocket URL is built. The hosted
// deployment embeds the session token in the path; the self-hosted one
// identifies the user by id/name query parameters instead.
const (
	WSVariantToken = "token"
	WSVariantUser  = "user"
)

type Config struct {
	APIBaseURL    string `yaml:"api_base_url"`   // e.g. https://api.carl.com
	WSBaseURL     string `yaml:"ws_base_url"`    // e.g. wss://api.carl.com
	WSVariant     string `yaml:"ws_variant"`     // "token" or "user"
	EncryptionKey string `yaml:"encryption_key"` // base64 32-byte key for the keystore; derived from passphrase when empty
	Passphrase    string `yaml:"passphrase"`     // keystore passphrase fallback when no key is set
	KeystorePath  string `yaml:"keystore_path"`  // where the encrypted credential file lives
	DownloadsDir  string `yaml:"downloads_dir"`  // where PDF downloads are saved
	Environment   string `yaml:"environment"`    // production, development, etc.
	LogLevel      string `yaml:"log_level"`      // debug, info, warn, error
}

// Load builds the configuration from the environment, overlaid on top
// of the optional YAML config file (CARL_CONFIG or
// ~/.config/carl/config.yaml). Environment variables win.
func Load() *Config {
	cfg := &Config{
		APIBaseURL:   "https://api.carl.com",
		WSBaseURL:    "wss://api.carl.com",
		WSVariant:    WSVariantToken,
		KeystorePath: defaultPath("credentials.enc"),
		DownloadsDir: defaultDownloadsDir(),
		Environment:  "development",
		LogLevel:     "info",
	}

	if path := configFilePath(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			// A broken config file falls back to defaults + env.
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	cfg.APIBaseURL = getEnv("CARL_API_URL", cfg.APIBaseURL)
	cfg.WSBaseURL = getEnv("CARL_WS_URL", cfg.WSBaseURL)
	cfg.WSVariant = strings.ToLower(getEnv("CARL_WS_VARIANT", cfg.WSVariant))
	cfg.EncryptionKey = getEnv("CARL_ENCRYPTION_KEY", cfg.EncryptionKey)
	cfg.Passphrase = getEnv("CARL_PASSPHRASE", cfg.Passphrase)
	cfg.KeystorePath = getEnv("CARL_KEYSTORE_PATH", cfg.KeystorePath)
	cfg.DownloadsDir = getEnv("CARL_DOWNLOADS_DIR", cfg.DownloadsDir)
	cfg.Environment = strings.ToLower(strings.TrimSpace(getEnv("ENV", cfg.Environment)))
	cfg.LogLevel = strings.ToLower(getEnv("CARL_LOG_LEVEL", cfg.LogLevel))

	if cfg.WSVariant != WSVariantUser {
		cfg.WSVariant = WSVariantToken
	}

	return cfg
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func configFilePath() string {
	if p := os.Getenv("CARL_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "carl", "config.yaml")
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", "carl", name)
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
