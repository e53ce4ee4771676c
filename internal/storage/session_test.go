package storage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache is an in-memory Cache with injectable failures.
type fakeCache struct {
	values   map[string]string
	getErr   error
	setErr   error
	getCalls atomic.Int32
	setCalls atomic.Int32
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, bool, error) {
	f.getCalls.Add(1)

	if f.getErr != nil {
		return "", false, f.getErr
	}

	v, ok := f.values[key]

	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key, value string) error {
	f.setCalls.Add(1)

	if f.setErr != nil {
		return f.setErr
	}

	f.values[key] = value

	return nil
}

// newAuthServer returns an httptest server that answers the handshake with
// the given headers (empty values are omitted) and counts calls.
func newAuthServer(t *testing.T, token, storageURL string, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}

		assert.Equal(t, http.MethodGet, r.Method)

		if r.Header.Get("X-Auth-User") == "" || r.Header.Get("X-Auth-Key") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		if token != "" {
			w.Header().Set("X-Auth-Token", token)
		}

		if storageURL != "" {
			w.Header().Set("X-Storage-Url", storageURL)
		}

		w.Header().Set("X-Trans-Id", "tx-test")
		w.WriteHeader(http.StatusNoContent)
	}))
}

func newTestSession(srv *httptest.Server, cache Cache) *Session {
	creds := Credentials{User: "user1", Key: "pass1"}

	return NewSession(creds, http.DefaultClient, cache, slog.Default(), WithAuthURL(srv.URL))
}

func TestSession_FreshNotAuthenticated(t *testing.T) {
	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", nil)
	defer srv.Close()

	s := newTestSession(srv, nil)

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	assert.Zero(t, s.Version())
}

func TestSession_AuthenticateSuccess(t *testing.T) {
	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", nil)
	defer srv.Close()

	s := newTestSession(srv, nil)

	require.NoError(t, s.Authenticate(context.Background()))

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "tok123", s.Token())

	url, err := s.StorageURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://store.example/v1/acct", url)
}

func TestSession_AuthenticateSendsCredentialHeaders(t *testing.T) {
	var gotUser, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-Auth-User")
		gotKey = r.Header.Get("X-Auth-Key")
		w.Header().Set("X-Auth-Token", "tok")
		w.Header().Set("X-Storage-Url", "https://store.example/v1/acct")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := newTestSession(srv, nil)
	require.NoError(t, s.Authenticate(context.Background()))

	assert.Equal(t, "user1", gotUser)
	assert.Equal(t, "pass1", gotKey)
}

func TestSession_AuthenticateIdempotent(t *testing.T) {
	var calls atomic.Int32

	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", &calls)
	defer srv.Close()

	s := newTestSession(srv, nil)

	require.NoError(t, s.Authenticate(context.Background()))

	tokenBefore := s.Token()
	s.mu.Lock()
	issuedBefore := s.authenticatedAt
	s.mu.Unlock()

	// Second call within TTL must not touch the network or the state.
	require.NoError(t, s.Authenticate(context.Background()))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, tokenBefore, s.Token())

	s.mu.Lock()
	assert.Equal(t, issuedBefore, s.authenticatedAt)
	s.mu.Unlock()
}

func TestSession_TTLExpiry(t *testing.T) {
	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", nil)
	defer srv.Close()

	s := newTestSession(srv, nil)

	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Authenticate(context.Background()))
	assert.True(t, s.IsAuthenticated())

	// Just inside the TTL window.
	now = now.Add(TokenTTL - time.Second)
	assert.True(t, s.IsAuthenticated())

	// At the TTL boundary the token is logically expired but still set.
	now = now.Add(time.Second)
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, "tok123", s.Token())
}

func TestSession_ReauthenticateAfterExpiry(t *testing.T) {
	var calls atomic.Int32

	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", &calls)
	defer srv.Close()

	s := newTestSession(srv, nil)

	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Authenticate(context.Background()))
	v1 := s.Version()

	now = now.Add(TokenTTL + time.Minute)
	require.False(t, s.IsAuthenticated())

	require.NoError(t, s.Authenticate(context.Background()))

	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, s.IsAuthenticated())
	assert.Greater(t, s.Version(), v1)
}

func TestSession_MissingTokenHeader(t *testing.T) {
	srv := newAuthServer(t, "", "https://store.example/v1/acct", nil)
	defer srv.Close()

	s := newTestSession(srv, nil)

	err := s.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	// State must be unchanged.
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
}

func TestSession_MissingStorageURLHeader(t *testing.T) {
	srv := newAuthServer(t, "tok123", "", nil)
	defer srv.Close()

	s := newTestSession(srv, nil)

	err := s.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadAuthResponse)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
}

func TestSession_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := newTestSession(srv, nil)

	err := s.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestSession_NetworkFailureIsAuthFailure(t *testing.T) {
	creds := Credentials{User: "user1", Key: "pass1"}
	s := NewSession(creds, http.DefaultClient, nil, slog.Default(),
		WithAuthURL("http://127.0.0.1:1/"))

	err := s.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.False(t, s.IsAuthenticated())
}

func TestSession_StorageURLFromCache(t *testing.T) {
	var calls atomic.Int32

	srv := newAuthServer(t, "tok123", "https://fresh.example/v1/acct", &calls)
	defer srv.Close()

	cache := newFakeCache()
	cache.values[CacheKeyStorageURL] = "https://cached.example/v1/acct"

	s := newTestSession(srv, cache)

	url, err := s.StorageURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://cached.example/v1/acct", url)

	// No network authentication happened, and no token is held yet.
	assert.Equal(t, int32(0), calls.Load())
	assert.Empty(t, s.Token())
	assert.False(t, s.IsAuthenticated())
}

func TestSession_StorageURLAuthenticatesOnCacheMiss(t *testing.T) {
	var calls atomic.Int32

	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", &calls)
	defer srv.Close()

	s := newTestSession(srv, newFakeCache())

	url, err := s.StorageURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://store.example/v1/acct", url)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, s.IsAuthenticated())
}

func TestSession_StorageURLMemoized(t *testing.T) {
	var calls atomic.Int32

	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", &calls)
	defer srv.Close()

	cache := newFakeCache()
	s := newTestSession(srv, cache)

	_, err := s.StorageURL(context.Background())
	require.NoError(t, err)

	_, err = s.StorageURL(context.Background())
	require.NoError(t, err)

	// One handshake, one cache read — the second resolution is in-memory.
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), cache.getCalls.Load())
}

func TestSession_AuthenticateWritesCache(t *testing.T) {
	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", nil)
	defer srv.Close()

	cache := newFakeCache()
	s := newTestSession(srv, cache)

	require.NoError(t, s.Authenticate(context.Background()))
	assert.Equal(t, "https://store.example/v1/acct", cache.values[CacheKeyStorageURL])
}

func TestSession_CacheWriteFailureSwallowed(t *testing.T) {
	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", nil)
	defer srv.Close()

	cache := newFakeCache()
	cache.setErr = errors.New("disk full")

	s := newTestSession(srv, cache)

	// The handshake itself succeeded, so Authenticate must too.
	require.NoError(t, s.Authenticate(context.Background()))
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, int32(1), cache.setCalls.Load())
}

func TestSession_CacheReadFailureSwallowed(t *testing.T) {
	var calls atomic.Int32

	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", &calls)
	defer srv.Close()

	cache := newFakeCache()
	cache.getErr = errors.New("corrupt database")

	s := newTestSession(srv, cache)

	url, err := s.StorageURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://store.example/v1/acct", url)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSession_VersionMovesOnStateChange(t *testing.T) {
	srv := newAuthServer(t, "tok123", "https://store.example/v1/acct", nil)
	defer srv.Close()

	t.Run("fresh handshake", func(t *testing.T) {
		s := newTestSession(srv, nil)
		require.Zero(t, s.Version())

		require.NoError(t, s.Authenticate(context.Background()))
		assert.Equal(t, uint64(1), s.Version())
	})

	t.Run("cache hit", func(t *testing.T) {
		cache := newFakeCache()
		cache.values[CacheKeyStorageURL] = "https://cached.example/v1/acct"

		s := newTestSession(srv, cache)

		_, err := s.StorageURL(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), s.Version())
	})
}

func TestNewSession_NilTransportPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewSession(Credentials{}, nil, nil, nil)
	})
}
