// Package session owns the client's authentication state: token
// acquisition, persistence and the anonymous fallback. Every other
// component reads session state from here.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/keystore"
	"github.com/carl-assist/carl-client/internal/models"
)

// Backend is the slice of the API client the session manager needs.
type Backend interface {
	Login(ctx context.Context, identifier, secret string) (string, error)
	LoginAnonymous(ctx context.Context) (string, error)
	Me(ctx context.Context) (*models.UserProfile, error)
}

// Snapshot is an immutable copy of the session state handed to
// subscribers. User is non-nil only when Kind is TokenFull.
type Snapshot struct {
	Token         string
	Kind          models.TokenKind
	User          *models.UserProfile
	IsFirstLaunch bool
	IsLoading     bool
}

// Authenticated reports whether a full-identity session is active.
func (s Snapshot) Authenticated() bool { return s.Kind == models.TokenFull }

// Manager is the single source of truth for session state. It is
// constructed once at application root and passed to consumers; state
// changes are pushed to subscribers rather than polled.
type Manager struct {
	store   keystore.Store
	backend Backend
	log     *zap.Logger

	mu          sync.Mutex
	snap        Snapshot
	subscribers map[int]func(Snapshot)
	nextSub     int
}

func NewManager(store keystore.Store, backend Backend, log *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		backend: backend,
		log:     log,
		// Loading until Initialize completes, so the guard holds its
		// first redirect decision.
		snap:        Snapshot{Kind: models.TokenNone, IsLoading: true},
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Subscribe registers a listener for session state changes. The
// listener is invoked immediately with the current snapshot, then after
// every transition. The returned function cancels the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	current := m.snap
	m.mu.Unlock()

	fn(current)
	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// CurrentToken implements the precedence rule: full token when present,
// anonymous token otherwise, empty when neither exists. Persisted state
// is consulted first; if the store cannot be read the in-memory token
// stands in, since persistence failures are non-fatal.
func (m *Manager) CurrentToken() string {
	ctx := context.Background()
	if token, ok, err := m.store.Get(ctx, keystore.AuthTokenKey); err == nil && ok {
		return token
	}
	if token, ok, err := m.store.Get(ctx, keystore.AnonAuthTokenKey); err == nil && ok {
		return token
	}
	// Store empty or unreadable: the in-memory token stands.
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Token
}

// Initialize loads the persisted session on process start. A full token
// is validated by fetching the profile; any failure there means the
// session is invalid, the store is cleared and the state resets to
// unauthenticated. With neither token persisted this is a first launch.
// IsLoading is cleared on every path.
func (m *Manager) Initialize(ctx context.Context) {
	m.update(func(s *Snapshot) { s.IsLoading = true })

	if token, ok, err := m.store.Get(ctx, keystore.AuthTokenKey); err == nil && ok {
		// Expose the token so the profile fetch carries it.
		m.update(func(s *Snapshot) {
			s.Token = token
			s.Kind = models.TokenFull
		})
		profile, err := m.backend.Me(ctx)
		if err != nil {
			m.log.Info("stored session rejected, resetting", zap.Error(err))
			m.clearStore(ctx)
			m.update(func(s *Snapshot) {
				*s = Snapshot{Kind: models.TokenNone}
			})
			return
		}
		m.update(func(s *Snapshot) {
			s.User = profile
			s.IsLoading = false
		})
		return
	}

	if token, ok, err := m.store.Get(ctx, keystore.AnonAuthTokenKey); err == nil && ok {
		m.update(func(s *Snapshot) {
			*s = Snapshot{Token: token, Kind: models.TokenAnonymous}
		})
		return
	}

	m.update(func(s *Snapshot) {
		*s = Snapshot{Kind: models.TokenNone, IsFirstLaunch: true}
	})
}

// Login exchanges credentials for a full token, persists it (evicting
// any anonymous token) and fetches the user profile. It returns true
// only when the whole chain succeeds; on any failure the prior session
// state is restored, including the persisted tokens.
func (m *Manager) Login(ctx context.Context, identifier, secret string) bool {
	prev := m.Snapshot()
	m.update(func(s *Snapshot) { s.IsLoading = true })

	token, err := m.backend.Login(ctx, identifier, secret)
	if err != nil {
		m.log.Warn("login failed", zap.Error(err))
		m.restore(prev)
		return false
	}

	// Remember the anonymous token so a failed chain can put it back.
	anonToken, hadAnon, _ := m.store.Get(ctx, keystore.AnonAuthTokenKey)

	m.persist(ctx, keystore.AuthTokenKey, token)
	m.discard(ctx, keystore.AnonAuthTokenKey)
	m.update(func(s *Snapshot) {
		s.Token = token
		s.Kind = models.TokenFull
		s.User = nil
	})

	profile, err := m.backend.Me(ctx)
	if err != nil {
		// The token was exchanged but never confirmed; roll it back so
		// the next launch does not pick it up.
		m.log.Warn("profile fetch failed after login, rolling back", zap.Error(err))
		m.discard(ctx, keystore.AuthTokenKey)
		if hadAnon {
			m.persist(ctx, keystore.AnonAuthTokenKey, anonToken)
		}
		m.restore(prev)
		return false
	}

	m.update(func(s *Snapshot) {
		*s = Snapshot{Token: token, Kind: models.TokenFull, User: profile}
	})
	return true
}

// LoginAnonymous obtains an anonymous token, persists it and evicts any
// full token. The profile is discarded: anonymous sessions carry no
// identity.
func (m *Manager) LoginAnonymous(ctx context.Context) bool {
	prev := m.Snapshot()
	m.update(func(s *Snapshot) { s.IsLoading = true })

	token, err := m.backend.LoginAnonymous(ctx)
	if err != nil {
		m.log.Warn("anonymous login failed", zap.Error(err))
		m.restore(prev)
		return false
	}

	m.persist(ctx, keystore.AnonAuthTokenKey, token)
	m.discard(ctx, keystore.AuthTokenKey)
	m.update(func(s *Snapshot) {
		*s = Snapshot{Token: token, Kind: models.TokenAnonymous}
	})
	return true
}

// Logout deletes both persisted tokens and resets the in-memory state.
// The navigation guard reacts to the resulting TokenNone snapshot by
// redirecting back to the auth area.
func (m *Manager) Logout(ctx context.Context) {
	m.clearStore(ctx)
	m.update(func(s *Snapshot) {
		*s = Snapshot{Kind: models.TokenNone}
	})
}

func (m *Manager) clearStore(ctx context.Context) {
	m.discard(ctx, keystore.AuthTokenKey)
	m.discard(ctx, keystore.AnonAuthTokenKey)
}

// persist writes best-effort: a failing store degrades to in-memory
// session state for this process, it never fails the operation.
func (m *Manager) persist(ctx context.Context, key, value string) {
	if err := m.store.Set(ctx, key, value); err != nil {
		m.log.Warn("credential persist failed", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) discard(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil {
		m.log.Warn("credential delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) restore(prev Snapshot) {
	prev.IsLoading = false
	m.update(func(s *Snapshot) { *s = prev })
}

// update applies fn to the state under the lock and notifies
// subscribers outside of it.
func (m *Manager) update(fn func(*Snapshot)) {
	m.mu.Lock()
	fn(&m.snap)
	snap := m.snap
	fns := make([]func(Snapshot), 0, len(m.subscribers))
	for _, sub := range m.subscribers {
		fns = append(fns, sub)
	}
	m.mu.Unlock()

	for _, sub := range fns {
		sub(snap)
	}
}
