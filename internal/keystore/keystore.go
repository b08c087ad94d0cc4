// Package keystore persists the client's two session secrets in an
// encrypted file, the CLI equivalent of the platform secure store.
package keystore

import (
	"context"
	"fmt"
)

// The only two keys ever persisted. Acquiring one token evicts the
// other, so at most one of them exists at any time.
const (
	AuthTokenKey     = "auth_token"
	AnonAuthTokenKey = "anon_auth_token"
)

// Store is the secure credential store contract. Read failures are
// reported so callers can decide to fail open; the session layer treats
// them as "absent".
type Store interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Delete(ctx context.Context, key string) error
}

// StorageError wraps a persistence I/O failure. It is never fatal: the
// in-memory session state stays authoritative for the process lifetime.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("keystore %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
