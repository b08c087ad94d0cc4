package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/api"
	"github.com/carl-assist/carl-client/internal/config"
	"github.com/carl-assist/carl-client/internal/keystore"
	"github.com/carl-assist/carl-client/internal/logging"
	"github.com/carl-assist/carl-client/internal/models"
	"github.com/carl-assist/carl-client/internal/session"
	"github.com/carl-assist/carl-client/internal/tui"
)

// developmentPassphrase protects the keystore when no key or passphrase
// is configured. Fine for local use, not for real credentials.
const developmentPassphrase = "carl-development-only"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	if err := newRootCmd(cfg, log).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildSession wires keystore, API client and session manager. The
// client reads its bearer token from the manager, which in turn uses
// the client for the auth endpoints.
func buildSession(cfg *config.Config, log *zap.Logger) (*session.Manager, *api.Client, error) {
	key, passphrase := cfg.EncryptionKey, cfg.Passphrase
	if key == "" && passphrase == "" {
		log.Warn("no CARL_ENCRYPTION_KEY or CARL_PASSPHRASE set, using the development passphrase",
			zap.String("hint", "generate a key with: openssl rand -base64 32"))
		passphrase = developmentPassphrase
	}

	store, err := keystore.NewFileStore(cfg.KeystorePath, key, passphrase)
	if err != nil {
		return nil, nil, err
	}

	var manager *session.Manager
	client := api.NewClient(cfg.APIBaseURL, tokenSourceFunc(func() string {
		return manager.CurrentToken()
	}), log)
	manager = session.NewManager(store, client, log)
	return manager, client, nil
}

type tokenSourceFunc func() string

func (f tokenSourceFunc) CurrentToken() string { return f() }

func newRootCmd(cfg *config.Config, log *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          "carl",
		Short:        "Terminal client for the Carl support service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, client, err := buildSession(cfg, log)
			if err != nil {
				return err
			}
			return tui.NewApp(cfg, manager, client, log).Run()
		},
	}

	root.AddCommand(
		newLoginCmd(cfg, log),
		newLogoutCmd(cfg, log),
		newFAQCmd(cfg, log),
		newDownloadCmd(cfg, log),
	)
	return root
}

func newLoginCmd(cfg *config.Config, log *zap.Logger) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a session token and persist it",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, _, err := buildSession(cfg, log)
			if err != nil {
				return err
			}
			if !manager.Login(cmd.Context(), email, password) {
				return fmt.Errorf("login failed")
			}
			snap := manager.Snapshot()
			fmt.Printf("Logged in as %s\n", snap.User.DisplayIdentifier())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email or fiscal code")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(cfg *config.Config, log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the persisted session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, _, err := buildSession(cfg, log)
			if err != nil {
				return err
			}
			manager.Logout(cmd.Context())
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newFAQCmd(cfg *config.Config, log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "faq",
		Short: "Print the FAQ entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := buildSession(cfg, log)
			if err != nil {
				return err
			}
			faqs, err := client.FAQs(cmd.Context())
			if err != nil {
				return err
			}
			for _, faq := range faqs {
				fmt.Printf("Q: %s\nA: %s\n\n", faq.Question, faq.Answer)
			}
			return nil
		},
	}
}

func newDownloadCmd(cfg *config.Config, log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "download <documento_1|documento_2|documento_3>",
		Short: "Download one of the profile documents as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, client, err := buildSession(cfg, log)
			if err != nil {
				return err
			}
			// Validate the stored session so the download carries a
			// live token.
			manager.Initialize(cmd.Context())
			if manager.CurrentToken() == "" {
				return fmt.Errorf("authentication required, run: carl login")
			}

			path, err := client.DownloadPDF(cmd.Context(), models.DocumentType(args[0]), cfg.DownloadsDir)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", path)
			return nil
		},
	}
}
