package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultAuthURL is the fixed Selectel authentication endpoint.
const DefaultAuthURL = "https://auth.selcdn.ru/"

// TokenTTL is how long an issued token is treated as valid. The service does
// not report an expiry, so the session expires tokens locally after this
// window and re-authenticates lazily on the next request.
const TokenTTL = 86400 * time.Second

// CacheKeyStorageURL is the single fixed key under which the resolved
// storage endpoint is persisted. The token itself is never cached.
const CacheKeyStorageURL = "storage-url"

// Credentials holds the account username and key. Immutable after
// construction.
type Credentials struct {
	User string
	Key  string
}

// Cache persists the last known storage URL across process restarts.
// Implementations may be backed by anything from a map to a database;
// urlcache.Store is the default. All Session access to the cache is
// best-effort — failures are logged and swallowed on both read and write.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Doer executes a single HTTP request. Satisfied by *http.Client.
// Defined at the consumer per Go convention "accept interfaces,
// return structs".
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Session tracks the authentication state for one storage account: the
// current token, when it was issued, and the resolved storage endpoint.
// Token validity is decided lazily by TTL check — there is no explicit
// invalidation event, and an expired session re-authenticates on demand.
//
// All methods are safe for concurrent use; the internal mutex serializes
// state transitions so concurrent callers observe exactly one handshake.
type Session struct {
	creds     Credentials
	transport Doer
	cache     Cache // optional, may be nil
	logger    *slog.Logger
	authURL   string

	// now is the clock used for TTL checks. Tests override it.
	now func() time.Time

	mu              sync.Mutex
	token           string
	authenticatedAt time.Time
	storageURL      string
	version         uint64
}

// SessionOption customizes a Session at construction.
type SessionOption func(*Session)

// WithAuthURL overrides the authentication endpoint. Used by tests and
// non-default deployments.
func WithAuthURL(url string) SessionOption {
	return func(s *Session) { s.authURL = url }
}

// NewSession creates an unauthenticated session for the given credentials.
// transport must not be nil. cache may be nil, in which case the storage
// URL is only ever resolved through a fresh handshake.
func NewSession(creds Credentials, transport Doer, cache Cache, logger *slog.Logger, opts ...SessionOption) *Session {
	if transport == nil {
		panic("storage: NewSession requires a transport")
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		creds:     creds,
		transport: transport,
		cache:     cache,
		logger:    logger,
		authURL:   DefaultAuthURL,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// IsAuthenticated reports whether the session holds a token issued less
// than TokenTTL ago. Pure function of current state and wall-clock time;
// performs no I/O. Expiry does not clear the token, it only invalidates
// it logically.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.isAuthenticatedLocked()
}

func (s *Session) isAuthenticatedLocked() bool {
	return s.token != "" && s.now().Sub(s.authenticatedAt) < TokenTTL
}

// Token returns the current auth token, or "" before the first successful
// handshake. The token may be logically expired — check IsAuthenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// Version returns a counter that increments on every state change that
// invalidates request bindings (fresh token or new storage URL). Consumers
// holding a client bound to the token and endpoint rebuild it when the
// version moves.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.version
}

// StorageURL resolves the storage endpoint. Resolution order: in-memory
// value, then the external cache (best-effort), then a fresh handshake.
// A cache hit avoids the network entirely until an operation needs a token.
func (s *Session) StorageURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storageURL != "" {
		return s.storageURL, nil
	}

	if s.cache != nil {
		url, ok, err := s.cache.Get(ctx, CacheKeyStorageURL)
		if err != nil {
			s.logger.Warn("endpoint cache read failed", "key", CacheKeyStorageURL, "error", err.Error())
		} else if ok && url != "" {
			s.logger.Debug("storage URL resolved from cache", "url", url)
			s.storageURL = url
			s.version++

			return s.storageURL, nil
		}
	}

	if err := s.authenticateLocked(ctx); err != nil {
		return "", err
	}

	return s.storageURL, nil
}

// Authenticate performs the handshake against the auth endpoint. It is
// idempotent: a no-op while the current token is unexpired. On success the
// token, issue timestamp, and storage URL are updated atomically and the
// storage URL is written to the cache (best-effort).
//
// Failure modes:
//   - transport rejection or non-2xx status: ErrAuthFailed (logical 403)
//   - response missing X-Auth-Token: ErrAuthFailed (logical 403)
//   - response missing X-Storage-Url: ErrBadAuthResponse (logical 500)
//
// On any failure the session state is left unchanged.
func (s *Session) Authenticate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authenticateLocked(ctx)
}

func (s *Session) authenticateLocked(ctx context.Context) error {
	if s.isAuthenticatedLocked() {
		s.logger.Debug("session still valid, skipping handshake",
			slog.Time("authenticated_at", s.authenticatedAt),
		)

		return nil
	}

	s.logger.Info("authenticating", "url", s.authURL, "user", s.creds.User)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.authURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("storage: building auth request: %w", err)
	}

	req.Header.Set("X-Auth-User", s.creds.User)
	req.Header.Set("X-Auth-Key", s.creds.Key)

	resp, err := s.transport.Do(req)
	if err != nil {
		// Network failure during the handshake is indistinguishable from a
		// credential failure at this layer — both surface as ErrAuthFailed.
		return &APIError{
			StatusCode: http.StatusForbidden,
			Message:    fmt.Sprintf("auth handshake: %v", err),
			Err:        ErrAuthFailed,
		}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	transID := resp.Header.Get("X-Trans-Id")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: http.StatusForbidden,
			TransID:    transID,
			Message:    fmt.Sprintf("auth handshake rejected with HTTP %d", resp.StatusCode),
			Err:        ErrAuthFailed,
		}
	}

	token := resp.Header.Get("X-Auth-Token")
	if token == "" {
		return &APIError{
			StatusCode: http.StatusForbidden,
			TransID:    transID,
			Message:    "auth response missing X-Auth-Token header",
			Err:        ErrAuthFailed,
		}
	}

	storageURL := resp.Header.Get("X-Storage-Url")
	if storageURL == "" {
		return &APIError{
			StatusCode: http.StatusInternalServerError,
			TransID:    transID,
			Message:    "auth response missing X-Storage-Url header",
			Err:        ErrBadAuthResponse,
		}
	}

	s.token = token
	s.authenticatedAt = s.now()
	s.storageURL = storageURL
	s.version++

	s.logger.Info("authenticated",
		slog.String("storage_url", storageURL),
		slog.Time("authenticated_at", s.authenticatedAt),
	)

	// Caching the endpoint is an optimization, not a correctness requirement.
	// Write failures are logged and swallowed, symmetric with reads.
	if s.cache != nil {
		if err := s.cache.Set(ctx, CacheKeyStorageURL, storageURL); err != nil {
			s.logger.Warn("endpoint cache write failed", "key", CacheKeyStorageURL, "error", err.Error())
		}
	}

	return nil
}
