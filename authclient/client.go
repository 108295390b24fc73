// Package authclient is the client-side token coordinator for the
// resolve API. It holds the current access/refresh pair, silently
// renews it on a timer before the access token expires, and retries a
// request exactly once after a reactive refresh. Concurrent refresh
// triggers collapse into a single in-flight attempt whose outcome all
// waiters share — two racing refreshes would otherwise fight over the
// single server-side refresh slot and strand the loser.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Error codes returned by the server that the coordinator acts on.
const (
	codeTokenExpired   = "token_expired"
	codeTokenRevoked   = "token_revoked"
	codeRefreshRevoked = "refresh_revoked"
	codeUnauthorized   = "unauthorized"
)

// ErrNotAuthenticated is returned by Do when no session is held.
var ErrNotAuthenticated = errors.New("authclient: not logged in")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsAuthError reports whether err is a rejection that means the
// session is gone and the user must re-authenticate.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithStorage(s Storage) Option {
	return func(c *Client) { c.storage = s }
}

// WithAccessTTL tells the coordinator the server's access-token
// lifetime so the renewal timer can fire before expiry.
func WithAccessTTL(ttl time.Duration) Option {
	return func(c *Client) { c.accessTTL = ttl }
}

const defaultAccessTTL = 5 * time.Minute

// Client is one coordinator instance. Each instance acts alone: two
// clients sharing a user race on the server's single refresh slot and
// the loser is simply logged out locally, which is expected.
type Client struct {
	baseURL   string
	http      *http.Client
	storage   Storage
	accessTTL time.Duration

	mu         sync.Mutex
	session    *Session
	renewTimer *time.Timer
	// sessionGen advances on every logout so a refresh that was in
	// flight when the session was torn down cannot re-install it.
	sessionGen uint64

	refreshGroup singleflight.Group
}

// New builds a coordinator, restoring any session the storage holds
// and arming the renewal timer if one was restored.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
		storage:   NewMemoryStorage(),
		accessTTL: defaultAccessTTL,
	}
	for _, opt := range opts {
		opt(c)
	}

	restored, err := c.storage.Load()
	if err != nil {
		return nil, err
	}
	if restored != nil {
		c.mu.Lock()
		c.session = restored
		c.scheduleRenewalLocked()
		c.mu.Unlock()
	}

	return c, nil
}

// Session returns a copy of the current session, or nil when logged out.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) Register(ctx context.Context, name, email, password, role string) (*Session, error) {
	return c.authenticate(ctx, "/api/v1/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
		"role":     role,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, payload map[string]string) (*Session, error) {
	var sess Session
	if err := c.roundTrip(ctx, http.MethodPost, path, payload, "", &sess); err != nil {
		return nil, err
	}
	c.setSession(&sess)
	copied := sess
	return &copied, nil
}

// Logout revokes the session server-side (best effort) and always
// clears local state. A refresh in flight is left to finish; its late
// result is discarded because the session it would update is gone.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	var accessToken string
	if c.session != nil {
		accessToken = c.session.AccessToken
	}
	c.mu.Unlock()

	if accessToken != "" {
		_ = c.roundTrip(ctx, http.MethodPost, "/api/v1/auth/logout", nil, accessToken, nil)
	}

	c.forceLogout()
	return nil
}

// Close stops the renewal timer without touching the stored session.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopRenewalLocked()
}

// Do performs an authenticated request. On a token_expired rejection
// it joins the shared refresh and retries the original request exactly
// once; a second rejection is returned as-is. When the refresh itself
// fails, local state is cleared and the original rejection is returned
// so callers see a consistent "logged out" signal.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	accessToken := c.accessToken()
	if accessToken == "" {
		return ErrNotAuthenticated
	}

	err := c.roundTrip(ctx, method, path, body, accessToken, out)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return err
	}

	if apiErr.Code != codeTokenExpired {
		// Revoked or otherwise dead token: no refresh will fix it.
		c.forceLogout()
		return err
	}

	if refreshErr := c.refreshShared(ctx); refreshErr != nil {
		// refreshShared has already cleared local state.
		return err
	}

	accessToken = c.accessToken()
	if accessToken == "" {
		return err
	}
	return c.roundTrip(ctx, method, path, body, accessToken, out)
}

// Refresh forces an immediate renewal, joining one already in flight.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshShared(ctx)
}

// refreshShared collapses concurrent refresh triggers (renewal timer,
// simultaneous failing requests) into one network call; every waiter
// observes the single shared outcome, and the in-flight slot clears
// when the attempt finishes, success or not.
func (c *Client) refreshShared(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return nil, c.doRefresh(ctx)
	})
	return err
}

func (c *Client) doRefresh(ctx context.Context) error {
	c.mu.Lock()
	var refreshToken string
	gen := c.sessionGen
	if c.session != nil {
		refreshToken = c.session.RefreshToken
	}
	c.mu.Unlock()

	if refreshToken == "" {
		return ErrNotAuthenticated
	}

	var sess Session
	err := c.roundTrip(ctx, http.MethodPost, "/api/v1/auth/refresh",
		map[string]string{"refreshToken": refreshToken}, "", &sess)
	if err != nil {
		// Whether the slot was rotated away by another client or the
		// server said no for any other reason, this session is over.
		c.forceLogout()
		return err
	}

	if !c.installSession(&sess, gen) {
		// Logout won the race while the refresh was in flight; the
		// late pair is dropped on the floor.
		return ErrNotAuthenticated
	}
	return nil
}

// setSession installs a new token pair and re-arms the renewal timer.
func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.installSessionLocked(s)
	c.mu.Unlock()

	// Persistence is a convenience; the in-memory session stays valid
	// even when the storage write fails.
	_ = c.storage.Save(s)
}

// installSession is setSession guarded by the logout generation: the
// pair is installed only if no logout happened since gen was read.
func (c *Client) installSession(s *Session, gen uint64) bool {
	c.mu.Lock()
	if c.sessionGen != gen {
		c.mu.Unlock()
		return false
	}
	c.installSessionLocked(s)
	c.mu.Unlock()

	_ = c.storage.Save(s)
	return true
}

func (c *Client) installSessionLocked(s *Session) {
	copied := *s
	c.session = &copied
	c.scheduleRenewalLocked()
}

// forceLogout discards all local session state and stops the timer.
func (c *Client) forceLogout() {
	c.mu.Lock()
	c.session = nil
	c.sessionGen++
	c.stopRenewalLocked()
	c.mu.Unlock()

	_ = c.storage.Clear()
}

// scheduleRenewalLocked arms the background renewal at 80% of the
// access-token lifetime. Callers must hold c.mu.
func (c *Client) scheduleRenewalLocked() {
	c.stopRenewalLocked()
	c.renewTimer = time.AfterFunc(c.accessTTL*4/5, func() {
		// On failure doRefresh has already torn the session down.
		_ = c.refreshShared(context.Background())
	})
}

func (c *Client) stopRenewalLocked() {
	if c.renewTimer != nil {
		c.renewTimer.Stop()
		c.renewTimer = nil
	}
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// roundTrip is the bare HTTP call: JSON in, JSON out, *APIError for
// any non-2xx status.
func (c *Client) roundTrip(ctx context.Context, method, path string, body any, bearer string, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(apiErr); decodeErr != nil {
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
