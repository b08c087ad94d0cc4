package keystore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength  = 16
	keyLength   = 32
	timeCost    = 3
	memoryCost  = 64 * 1024
	parallelism = 2
)

// FileStore keeps the credentials in a single AES-256-GCM encrypted
// file. The whole map is rewritten on every mutation; with exactly two
// possible keys that is cheap. Not safe for concurrent use from more
// than one process, which is fine: the session manager is the only
// writer.
type FileStore struct {
	path string
	key  []byte

	mu sync.Mutex
}

// NewFileStore opens (or prepares) the encrypted credential file at
// path. The encryption key is the base64-encoded 32-byte key when set,
// otherwise it is derived from the passphrase with Argon2id and a salt
// persisted next to the credential file.
func NewFileStore(path, base64Key, passphrase string) (*FileStore, error) {
	key, err := resolveKey(path, base64Key, passphrase)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, key: key}, nil
}

func resolveKey(path, base64Key, passphrase string) ([]byte, error) {
	if base64Key != "" {
		key, err := base64.StdEncoding.DecodeString(base64Key)
		if err != nil {
			return nil, errors.New("encryption key must be base64-encoded")
		}
		if len(key) != keyLength {
			return nil, errors.New("encryption key must decode to exactly 32 bytes")
		}
		return key, nil
	}
	if passphrase == "" {
		return nil, errors.New("either an encryption key or a passphrase is required")
	}
	salt, err := loadOrCreateSalt(path + ".salt")
	if err != nil {
		return nil, err
	}
	return argon2.IDKey([]byte(passphrase), salt, timeCost, memoryCost, parallelism, keyLength), nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	if salt, err := os.ReadFile(path); err == nil && len(salt) == saltLength {
		return salt, nil
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, err
	}
	return salt, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load()
	values[key] = value
	if err := s.save(values); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.load()[key]
	return value, ok, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.load()
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	if err := s.save(values); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// load reads and decrypts the credential file. Any failure (missing
// file, corrupt ciphertext, wrong key) yields an empty map: reads fail
// open to unauthenticated.
func (s *FileStore) load() map[string]string {
	values := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		return values
	}
	plaintext, err := s.decrypt(data)
	if err != nil {
		return values
	}
	_ = json.Unmarshal(plaintext, &values)
	return values
}

func (s *FileStore) save(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return err
	}
	ciphertext, err := s.encrypt(plaintext)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, ciphertext, 0o600)
}

// encrypt seals plaintext with AES-256-GCM, nonce prefixed.
func (s *FileStore) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *FileStore) decrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
