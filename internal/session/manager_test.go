package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/keystore"
	"github.com/carl-assist/carl-client/internal/models"
)

type fakeBackend struct {
	loginToken string
	loginErr   error
	anonToken  string
	anonErr    error
	profile    *models.UserProfile
	meErr      error
	meCalls    int
}

func (f *fakeBackend) Login(ctx context.Context, identifier, secret string) (string, error) {
	return f.loginToken, f.loginErr
}

func (f *fakeBackend) LoginAnonymous(ctx context.Context) (string, error) {
	return f.anonToken, f.anonErr
}

func (f *fakeBackend) Me(ctx context.Context) (*models.UserProfile, error) {
	f.meCalls++
	return f.profile, f.meErr
}

func newTestManager(store keystore.Store, backend Backend) *Manager {
	return NewManager(store, backend, zap.NewNop())
}

func TestCurrentTokenPrecedence(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		full string
		anon string
		want string
	}{
		{"both present", "full-1", "anon-1", "full-1"},
		{"full only", "full-1", "", "full-1"},
		{"anon only", "", "anon-1", "anon-1"},
		{"neither", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := keystore.NewMemory()
			if tc.full != "" {
				require.NoError(t, store.Set(ctx, keystore.AuthTokenKey, tc.full))
			}
			if tc.anon != "" {
				require.NoError(t, store.Set(ctx, keystore.AnonAuthTokenKey, tc.anon))
			}
			m := newTestManager(store, &fakeBackend{})
			assert.Equal(t, tc.want, m.CurrentToken())
		})
	}
}

func TestInitializeFirstLaunch(t *testing.T) {
	m := newTestManager(keystore.NewMemory(), &fakeBackend{})
	m.Initialize(context.Background())

	snap := m.Snapshot()
	assert.True(t, snap.IsFirstLaunch)
	assert.Equal(t, models.TokenNone, snap.Kind)
	assert.False(t, snap.IsLoading)
	assert.Nil(t, snap.User)
}

func TestInitializeWithFullToken(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	require.NoError(t, store.Set(ctx, keystore.AuthTokenKey, "full-1"))

	backend := &fakeBackend{profile: &models.UserProfile{ID: "u1", FiscalCode: "ABC"}}
	m := newTestManager(store, backend)
	m.Initialize(ctx)

	snap := m.Snapshot()
	assert.Equal(t, models.TokenFull, snap.Kind)
	assert.Equal(t, "full-1", snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, "ABC", snap.User.FiscalCode)
	assert.False(t, snap.IsFirstLaunch)
	assert.False(t, snap.IsLoading)
}

func TestInitializeInvalidStoredTokenClearsStore(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	require.NoError(t, store.Set(ctx, keystore.AuthTokenKey, "stale"))

	backend := &fakeBackend{meErr: errors.New("401")}
	m := newTestManager(store, backend)
	m.Initialize(ctx)

	snap := m.Snapshot()
	assert.Equal(t, models.TokenNone, snap.Kind)
	assert.Nil(t, snap.User)
	assert.False(t, snap.IsFirstLaunch)
	assert.False(t, snap.IsLoading)
	assert.Zero(t, store.Len())
	assert.Empty(t, m.CurrentToken())
}

func TestInitializeWithAnonymousToken(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	require.NoError(t, store.Set(ctx, keystore.AnonAuthTokenKey, "anon-1"))

	backend := &fakeBackend{}
	m := newTestManager(store, backend)
	m.Initialize(ctx)

	snap := m.Snapshot()
	assert.Equal(t, models.TokenAnonymous, snap.Kind)
	assert.Nil(t, snap.User)
	assert.False(t, snap.IsFirstLaunch)
	assert.Zero(t, backend.meCalls)
}

func TestLoginEvictsAnonymousToken(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	require.NoError(t, store.Set(ctx, keystore.AnonAuthTokenKey, "anon-1"))

	backend := &fakeBackend{
		loginToken: "full-1",
		profile:    &models.UserProfile{ID: "u1", FiscalCode: "ABC"},
	}
	m := newTestManager(store, backend)
	ok := m.Login(ctx, "user@example.com", "secret")
	require.True(t, ok)

	_, present, err := store.Get(ctx, keystore.AnonAuthTokenKey)
	require.NoError(t, err)
	assert.False(t, present, "anonymous token must be evicted by a full login")

	full, present, err := store.Get(ctx, keystore.AuthTokenKey)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "full-1", full)

	snap := m.Snapshot()
	assert.Equal(t, models.TokenFull, snap.Kind)
	require.NotNil(t, snap.User)
	assert.False(t, snap.IsLoading)
}

func TestLoginAnonymousEvictsFullToken(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	require.NoError(t, store.Set(ctx, keystore.AuthTokenKey, "full-1"))

	backend := &fakeBackend{anonToken: "anon-1"}
	m := newTestManager(store, backend)
	ok := m.LoginAnonymous(ctx)
	require.True(t, ok)

	_, present, err := store.Get(ctx, keystore.AuthTokenKey)
	require.NoError(t, err)
	assert.False(t, present, "full token must be evicted by an anonymous login")

	snap := m.Snapshot()
	assert.Equal(t, models.TokenAnonymous, snap.Kind)
	assert.Nil(t, snap.User)
	assert.Equal(t, "anon-1", m.CurrentToken())
}

func TestLoginRejectedLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	require.NoError(t, store.Set(ctx, keystore.AnonAuthTokenKey, "anon-1"))

	backend := &fakeBackend{loginErr: errors.New("bad credentials")}
	m := newTestManager(store, backend)
	m.Initialize(ctx)

	ok := m.Login(ctx, "user@example.com", "wrong")
	assert.False(t, ok)

	snap := m.Snapshot()
	assert.Equal(t, models.TokenAnonymous, snap.Kind)
	assert.Equal(t, "anon-1", m.CurrentToken())
	assert.False(t, snap.IsLoading)
}

func TestLoginProfileFetchFailureRollsBackToken(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	require.NoError(t, store.Set(ctx, keystore.AnonAuthTokenKey, "anon-1"))

	backend := &fakeBackend{loginToken: "full-1", meErr: errors.New("boom")}
	m := newTestManager(store, backend)
	m.Initialize(ctx)

	ok := m.Login(ctx, "user@example.com", "secret")
	assert.False(t, ok)

	// The exchanged-but-unconfirmed token must not survive, and the
	// prior anonymous session is restored.
	_, present, err := store.Get(ctx, keystore.AuthTokenKey)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Equal(t, "anon-1", m.CurrentToken())
	assert.Equal(t, models.TokenAnonymous, m.Snapshot().Kind)
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	backend := &fakeBackend{
		loginToken: "full-1",
		profile:    &models.UserProfile{ID: "u1"},
	}
	m := newTestManager(store, backend)
	require.True(t, m.Login(ctx, "user@example.com", "secret"))

	m.Logout(ctx)

	assert.Zero(t, store.Len())
	snap := m.Snapshot()
	assert.Equal(t, models.TokenNone, snap.Kind)
	assert.Nil(t, snap.User)
	assert.Empty(t, m.CurrentToken())
}

func TestLoginSurvivesStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	store.SetErr = errors.New("disk full")

	backend := &fakeBackend{
		loginToken: "full-1",
		profile:    &models.UserProfile{ID: "u1"},
	}
	m := newTestManager(store, backend)
	ok := m.Login(ctx, "user@example.com", "secret")
	require.True(t, ok, "persistence failure must not fail the login")

	// Nothing persisted, but the in-memory session is authoritative.
	assert.Zero(t, store.Len())
	assert.Equal(t, "full-1", m.CurrentToken())
	assert.Equal(t, models.TokenFull, m.Snapshot().Kind)
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	ctx := context.Background()
	store := keystore.NewMemory()
	backend := &fakeBackend{anonToken: "anon-1"}
	m := newTestManager(store, backend)

	var kinds []models.TokenKind
	cancel := m.Subscribe(func(s Snapshot) {
		kinds = append(kinds, s.Kind)
	})

	m.Initialize(ctx)
	require.True(t, m.LoginAnonymous(ctx))

	assert.Equal(t, models.TokenAnonymous, kinds[len(kinds)-1])

	cancel()
	seen := len(kinds)
	m.Logout(ctx)
	assert.Len(t, kinds, seen, "cancelled subscriber must not be notified")
}
