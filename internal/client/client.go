// Package client is a Go client for the streambox JSON API.
//
// A Client owns one *session.Session for its whole lifetime: SignIn fills it,
// SignOut empties it. The watchlist and progress methods satisfy
// watch.WatchlistRemote and watch.ProgressRemote, so a watch.Watchlist or
// watch.Checkpointer can run against a remote server exactly as it runs
// against the services in-process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sakif/streambox/internal/apperror"
	"github.com/sakif/streambox/internal/model"
	"github.com/sakif/streambox/internal/session"
	"github.com/sakif/streambox/internal/watch"
)

var (
	_ watch.WatchlistRemote = (*Client)(nil)
	_ watch.ProgressRemote  = (*Client)(nil)
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	sess    *session.Session

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client with an existing bearer token. The session
// stays empty until Refresh is called.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a signed-out client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		sess:    session.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the client's session. It is shared, not copied.
func (c *Client) Session() *session.Session {
	return c.sess
}

// Token returns the current bearer token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(t string) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

// --- auth ---

type signInResponse struct {
	Principal *model.Principal `json:"principal"`
	Profile   *model.Profile   `json:"profile"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

type meResponse struct {
	Principal *model.Principal `json:"principal"`
	Profile   *model.Profile   `json:"profile"`
	IsAdmin   bool             `json:"isAdmin"`
}

// SignUp registers an account. It does not sign in.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*model.Principal, error) {
	var out struct {
		Principal *model.Principal `json:"principal"`
	}
	body := map[string]string{"email": email, "password": password, "displayName": displayName}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", body, &out); err != nil {
		return nil, err
	}
	return out.Principal, nil
}

// SignIn exchanges credentials for a token and fills the session: the
// principal first, then the profile, which decides IsAdmin.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	var out signInResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", body, &out); err != nil {
		return err
	}

	c.setToken(out.Token)
	c.sess.SetPrincipal(out.Principal)
	c.sess.SetProfile(out.Profile)
	return nil
}

// Refresh reloads the session from GET /api/me, e.g. after WithToken or
// after an admin changed this profile's role.
func (c *Client) Refresh(ctx context.Context) error {
	var out meResponse
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &out); err != nil {
		return err
	}
	c.sess.SetPrincipal(out.Principal)
	c.sess.SetProfile(out.Profile)
	return nil
}

// SignOut asks the server to revoke the token, then forgets the token and
// clears the session whatever the server said. The server's error, if any,
// is returned for the caller to log.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.sess.SignOut(ctx, session.SignOutFunc(func(ctx context.Context) error {
		if c.Token() == "" {
			return nil
		}
		return c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
	}))
	c.setToken("")
	return err
}

// --- catalog ---

func (c *Client) ListMovies(ctx context.Context, limit, offset int) ([]model.Movie, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/movies"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var movies []model.Movie
	if err := c.do(ctx, http.MethodGet, path, nil, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

func (c *Client) GetMovie(ctx context.Context, id string) (*model.Movie, error) {
	var m model.Movie
	if err := c.do(ctx, http.MethodGet, "/api/movies/"+url.PathEscape(id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// --- watchlist / progress ---
//
// profileID is accepted to satisfy the watch interfaces; the server always
// uses the profile behind the token.

func (c *Client) ListWatchlist(ctx context.Context, _ string) ([]string, error) {
	var out struct {
		MovieIDs []string `json:"movieIds"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/watchlist", nil, &out); err != nil {
		return nil, err
	}
	return out.MovieIDs, nil
}

func (c *Client) AddToWatchlist(ctx context.Context, _, movieID string) error {
	return c.do(ctx, http.MethodPut, "/api/watchlist/"+url.PathEscape(movieID), nil, nil)
}

func (c *Client) RemoveFromWatchlist(ctx context.Context, _, movieID string) error {
	return c.do(ctx, http.MethodDelete, "/api/watchlist/"+url.PathEscape(movieID), nil, nil)
}

// GetProgress returns an error wrapping apperror.ErrNotFound when the movie
// was never checkpointed.
func (c *Client) GetProgress(ctx context.Context, profileID, movieID string) (*model.WatchProgress, error) {
	var out struct {
		MovieID   string    `json:"movieId"`
		Progress  int       `json:"progress"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/progress/"+url.PathEscape(movieID), nil, &out); err != nil {
		return nil, err
	}
	return &model.WatchProgress{
		UserID:    profileID,
		MovieID:   out.MovieID,
		Progress:  out.Progress,
		UpdatedAt: out.UpdatedAt,
	}, nil
}

func (c *Client) SaveProgress(ctx context.Context, _, movieID string, progress int) error {
	body := map[string]int{"progress": progress}
	return c.do(ctx, http.MethodPut, "/api/progress/"+url.PathEscape(movieID), body, nil)
}

// --- transport ---

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding %s %s: %w", method, path, err)
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var sentinelByCode = map[string]error{
	"validation_error": apperror.ErrValidation,
	"not_found":        apperror.ErrNotFound,
	"forbidden":        apperror.ErrForbidden,
	"unauthorized":     apperror.ErrUnauthorized,
	"conflict":         apperror.ErrConflict,
}

var sentinelByStatus = map[int]error{
	http.StatusBadRequest:   apperror.ErrValidation,
	http.StatusUnauthorized: apperror.ErrUnauthorized,
	http.StatusForbidden:    apperror.ErrForbidden,
	http.StatusNotFound:     apperror.ErrNotFound,
	http.StatusConflict:     apperror.ErrConflict,
}

// ErrRateLimited is returned for 429 responses.
var ErrRateLimited = errors.New("client: rate limited")

// decodeError rebuilds an apperror from the JSON error body so callers can
// use errors.Is across the wire.
func decodeError(resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &eb)

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: retry after %ss", ErrRateLimited, resp.Header.Get("Retry-After"))
	}

	sentinel, ok := sentinelByCode[eb.Error]
	if !ok {
		sentinel, ok = sentinelByStatus[resp.StatusCode]
	}
	msg := eb.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if !ok {
		return fmt.Errorf("client: server returned %d: %s", resp.StatusCode, msg)
	}
	return apperror.Wrap(sentinel, msg)
}
