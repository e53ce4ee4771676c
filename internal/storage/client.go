package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const userAgent = "selectel-cloud-storage/0.1"

// binding is the snapshot of session state a request is dispatched against.
// It is memoized at first use and rebuilt whenever the session version
// changes, so a re-authentication never leaves requests on a stale token.
type binding struct {
	baseURL string
	token   string
	version uint64
}

// Client dispatches arbitrary HTTP requests against the storage endpoint.
// It guarantees a fresh session before every dispatch, injects the
// X-Auth-Token header, and forces the format=json query parameter.
//
// Responses are returned for any HTTP status — callers interpret failures
// via the status code. Only transport failures that produced no response
// at all are returned as errors.
type Client struct {
	session   *Session
	transport Doer
	logger    *slog.Logger

	mu    sync.Mutex
	bound *binding
}

// NewClient creates a dispatcher over the given session. transport is used
// for storage requests and may differ from the session's handshake
// transport; nil defaults to http.DefaultClient.
func NewClient(session *Session, transport Doer, logger *slog.Logger) *Client {
	if session == nil {
		panic("storage: NewClient requires a session")
	}

	if transport == nil {
		transport = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		session:   session,
		transport: transport,
		logger:    logger,
	}
}

// Session exposes the underlying session for state inspection (token,
// storage URL, authentication freshness).
func (c *Client) Session() *Session {
	return c.session
}

// Do executes method against path on the storage endpoint. path is joined
// to the resolved storage URL; query may be nil. The format query parameter
// is always set to "json", overriding any caller-supplied value.
//
// The returned response is the caller's to close. Non-2xx responses are
// returned, not converted to errors — use Error to classify them.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	return c.DoWithHeaders(ctx, method, path, query, body, nil)
}

// DoWithHeaders is Do with extra request headers, used by operations that
// need Swift metadata headers (X-Copy-From, X-Object-Manifest, ...).
func (c *Client) DoWithHeaders(ctx context.Context, method, path string, query url.Values, body io.Reader, headers http.Header) (*http.Response, error) {
	if !c.session.IsAuthenticated() {
		if err := c.session.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	b, err := c.binding(ctx)
	if err != nil {
		return nil, err
	}

	target := b.baseURL + "/" + strings.TrimPrefix(path, "/")

	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}

	q.Set("format", "json")

	target += "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("storage: building request: %w", err)
	}

	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	req.Header.Set("X-Auth-Token", b.token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.transport.Do(req)
	if err != nil {
		// No response to hand back — a pure network failure is fatal here.
		return nil, fmt.Errorf("storage: %s %s: %w", method, path, err)
	}

	c.logger.Debug("request dispatched",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return resp, nil
}

// binding returns the memoized request binding, rebuilding it if the
// session version has moved since it was captured.
func (c *Client) binding(ctx context.Context) (*binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.session.Version()
	if c.bound != nil && c.bound.version == v {
		return c.bound, nil
	}

	baseURL, err := c.session.StorageURL(ctx)
	if err != nil {
		return nil, err
	}

	// Resolving the URL may itself have authenticated and moved the version.
	c.bound = &binding{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   c.session.Token(),
		version: c.session.Version(),
	}

	c.logger.Debug("request binding rebuilt",
		slog.String("base_url", c.bound.baseURL),
		slog.Uint64("version", c.bound.version),
	)

	return c.bound, nil
}

// Error drains and closes resp.Body and converts a non-2xx response into
// an *APIError. Returns nil for 2xx responses (body left open).
func Error(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	const bodyExcerptLimit = 512

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, bodyExcerptLimit))
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return &APIError{
		StatusCode: resp.StatusCode,
		TransID:    resp.Header.Get("X-Trans-Id"),
		Message:    strings.TrimSpace(string(excerpt)),
		Err:        classifyStatus(resp.StatusCode),
	}
}
