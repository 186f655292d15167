package token

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/session"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
)

// ── fakes ──

type fakeStore struct {
	mu      sync.Mutex
	tokens  map[parent.TelegramID]*session.Token
	loadErr error
	saveErr error
	loads   int64
	saves   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{tokens: make(map[parent.TelegramID]*session.Token)}
}

func (s *fakeStore) Load(ctx context.Context, id parent.TelegramID) (*session.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	atomic.AddInt64(&s.loads, 1)
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.tokens[id], nil
}

func (s *fakeStore) Save(ctx context.Context, token *session.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	atomic.AddInt64(&s.saves, 1)
	if s.saveErr != nil {
		return s.saveErr
	}
	s.tokens[token.TelegramID] = token
	return nil
}

type fakeCreds struct {
	creds map[parent.TelegramID]*parent.Credentials
}

func (c *fakeCreds) GetCredentials(ctx context.Context, id parent.TelegramID) (*parent.Credentials, error) {
	if creds, ok := c.creds[id]; ok {
		return creds, nil
	}
	return nil, shared.NewDomainError("parent", "get_credentials", shared.ErrNotFound, "not registered")
}

type fakeAuth struct {
	calls int64
	delay time.Duration
	err   error
}

func (a *fakeAuth) Authenticate(ctx context.Context, creds parent.Credentials) (string, time.Time, error) {
	atomic.AddInt64(&a.calls, 1)
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	if a.err != nil {
		return "", time.Time{}, a.err
	}
	return "fresh-token", time.Now().Add(24 * time.Hour), nil
}

func newTestManager(store *fakeStore, auth *fakeAuth, buffer time.Duration) *Manager {
	creds := &fakeCreds{creds: map[parent.TelegramID]*parent.Credentials{
		1: {Login: "a@mos.ru", Password: "pw"},
		2: {Login: "b@mos.ru", Password: "pw"},
	}}
	return NewManager(store, creds, auth, ManagerConfig{SafetyBuffer: buffer})
}

// ── tests ──

func TestEnsureToken_FreshTokenSkipsPortal(t *testing.T) {
	store := newFakeStore()
	store.tokens[1] = &session.Token{
		TelegramID: 1,
		Value:      "cached",
		ExpiresAt:  time.Now().Add(2 * time.Hour),
	}
	auth := &fakeAuth{}
	mgr := newTestManager(store, auth, 5*time.Minute)

	got, err := mgr.EnsureToken(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
	assert.Zero(t, atomic.LoadInt64(&auth.calls))
}

func TestEnsureToken_MissingTokenRefreshes(t *testing.T) {
	store := newFakeStore()
	auth := &fakeAuth{}
	mgr := newTestManager(store, auth, 5*time.Minute)

	got, err := mgr.EnsureToken(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", got)
	assert.EqualValues(t, 1, atomic.LoadInt64(&auth.calls))
	assert.NotNil(t, store.tokens[1])
}

func TestEnsureToken_ExpiringWithinBufferRefreshes(t *testing.T) {
	store := newFakeStore()
	store.tokens[1] = &session.Token{
		TelegramID: 1,
		Value:      "almost-dead",
		ExpiresAt:  time.Now().Add(2 * time.Minute),
	}
	auth := &fakeAuth{}
	mgr := newTestManager(store, auth, 5*time.Minute)

	got, err := mgr.EnsureToken(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", got)
	assert.EqualValues(t, 1, atomic.LoadInt64(&auth.calls))
}

func TestEnsureToken_UnknownExpiryTreatedAsExpired(t *testing.T) {
	store := newFakeStore()
	store.tokens[1] = &session.Token{
		TelegramID: 1,
		Value:      "no-expiry",
		// ExpiresAt left zero
	}
	auth := &fakeAuth{}
	mgr := newTestManager(store, auth, 5*time.Minute)

	got, err := mgr.EnsureToken(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", got)
	assert.EqualValues(t, 1, atomic.LoadInt64(&auth.calls))
}

func TestEnsureToken_ConcurrentCallersRefreshOnce(t *testing.T) {
	store := newFakeStore()
	auth := &fakeAuth{delay: 50 * time.Millisecond}
	mgr := newTestManager(store, auth, 5*time.Minute)

	const callers = 20
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = mgr.EnsureToken(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "fresh-token", results[i])
	}
	assert.EqualValues(t, 1, atomic.LoadInt64(&auth.calls))
}

func TestEnsureToken_DifferentParentsDoNotSerialize(t *testing.T) {
	store := newFakeStore()
	auth := &fakeAuth{delay: 100 * time.Millisecond}
	mgr := newTestManager(store, auth, 5*time.Minute)

	start := time.Now()
	var wg sync.WaitGroup
	for _, id := range []parent.TelegramID{1, 2} {
		wg.Add(1)
		go func(id parent.TelegramID) {
			defer wg.Done()
			_, err := mgr.EnsureToken(context.Background(), id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	elapsed := time.Since(start)
	assert.EqualValues(t, 2, atomic.LoadInt64(&auth.calls))
	// Serialized refreshes would take at least 200ms.
	assert.Less(t, elapsed, 180*time.Millisecond)
}

func TestEnsureToken_RejectedCredentials(t *testing.T) {
	store := newFakeStore()
	auth := &fakeAuth{err: shared.NewDomainError("mesh", "authenticate", shared.ErrAuthenticationFailed, "rejected")}
	mgr := newTestManager(store, auth, 5*time.Minute)

	_, err := mgr.EnsureToken(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrAuthenticationFailed)
}

func TestEnsureToken_PortalDown(t *testing.T) {
	store := newFakeStore()
	auth := &fakeAuth{err: shared.NewDomainError("mesh", "authenticate", shared.ErrUnavailable, "down")}
	mgr := newTestManager(store, auth, 5*time.Minute)

	_, err := mgr.EnsureToken(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrUnavailable)
	assert.NotErrorIs(t, err, shared.ErrAuthenticationFailed)
}

func TestEnsureToken_NoCredentialsIsAuthFailure(t *testing.T) {
	store := newFakeStore()
	auth := &fakeAuth{}
	mgr := newTestManager(store, auth, 5*time.Minute)

	_, err := mgr.EnsureToken(context.Background(), 99)
	assert.ErrorIs(t, err, shared.ErrAuthenticationFailed)
	assert.Zero(t, atomic.LoadInt64(&auth.calls))
}

func TestEnsureToken_StoreLoadFailureIsUnavailable(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("db down")
	auth := &fakeAuth{}
	mgr := newTestManager(store, auth, 5*time.Minute)

	_, err := mgr.EnsureToken(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrUnavailable)
	assert.NotErrorIs(t, err, shared.ErrAuthenticationFailed)
	assert.Zero(t, atomic.LoadInt64(&auth.calls))
}

func TestEnsureToken_SaveFailureStillReturnsToken(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("disk full")
	auth := &fakeAuth{}
	mgr := newTestManager(store, auth, 5*time.Minute)

	got, err := mgr.EnsureToken(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", got)
}
