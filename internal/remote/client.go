package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/existflow/tasko/internal/logger"
)

// Session is the authenticated identity held by the client
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Client talks to the remote persistence service
type Client struct {
	baseURL     string
	sessionPath string
	httpClient  *http.Client
	log         *logger.Logger

	mu      sync.RWMutex
	session *Session
}

// NewClient creates a client for baseURL and loads any session saved at
// sessionPath. An empty sessionPath keeps the session in memory only.
func NewClient(baseURL, sessionPath string) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		sessionPath: sessionPath,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		log:         logger.WithFields(logger.F("component", "remote")),
	}
	c.loadSession()
	return c
}

// BaseURL returns the service address
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) loadSession() {
	if c.sessionPath == "" {
		return
	}
	data, err := os.ReadFile(c.sessionPath)
	if err != nil {
		return
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		c.log.Warn("Ignoring unreadable session file", logger.F("path", c.sessionPath), logger.Err(err))
		return
	}
	if s.AccessToken != "" {
		c.session = &s
	}
}

func (c *Client) saveSession() error {
	if c.sessionPath == "" {
		return nil
	}
	if c.session == nil {
		err := os.Remove(c.sessionPath)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionPath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.sessionPath, data, 0600)
}

// CurrentSession returns a copy of the held session, or nil when signed
// out or expired
func (c *Client) CurrentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil || c.session.Expired(time.Now()) {
		return nil
	}
	s := *c.session
	return &s
}

type authResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        ProfileRow `json:"user"`
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (ProfileRow, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp, false); err != nil {
		return ProfileRow{}, err
	}

	c.mu.Lock()
	c.session = &Session{
		AccessToken: resp.AccessToken,
		UserID:      resp.User.ID,
		Email:       resp.User.Email,
		ExpiresAt:   resp.ExpiresAt,
	}
	err := c.saveSession()
	c.mu.Unlock()
	if err != nil {
		return ProfileRow{}, fmt.Errorf("save session: %w", err)
	}
	return resp.User, nil
}

// Register creates an account and signs in
func (c *Client) Register(ctx context.Context, name, email, password string) (ProfileRow, error) {
	return c.authenticate(ctx, "/auth/v1/signup", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
}

// SignIn exchanges email and password for a session
func (c *Client) SignIn(ctx context.Context, email, password string) (ProfileRow, error) {
	return c.authenticate(ctx, "/auth/v1/token", map[string]string{
		"email":    email,
		"password": password,
	})
}

// SignOut revokes the session remotely when possible and always forgets it locally
func (c *Client) SignOut(ctx context.Context) error {
	if c.CurrentSession() != nil {
		if err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, true); err != nil {
			c.log.Warn("Remote logout failed", logger.Err(err))
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	return c.saveSession()
}

// User returns the profile of the signed-in user
func (c *Client) User(ctx context.Context) (ProfileRow, error) {
	var row ProfileRow
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, &row, true)
	return row, err
}

// Insert creates row in table
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/"+table, row, nil, true)
}

// Update sets the given columns of the row with id
func (c *Client) Update(ctx context.Context, table, id string, row any) error {
	return c.do(ctx, http.MethodPatch, "/rest/v1/"+table+"/"+url.PathEscape(id), row, nil, true)
}

// Delete removes the row with id
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.do(ctx, http.MethodDelete, "/rest/v1/"+table+"/"+url.PathEscape(id), nil, nil, true)
}

// Select decodes the rows of table visible to the session into out.
// Filters are column=value equality matches.
func (c *Client) Select(ctx context.Context, table string, filters map[string]string, out any) error {
	path := "/rest/v1/" + table
	if len(filters) > 0 {
		q := url.Values{}
		for k, v := range filters {
			q.Set(k, v)
		}
		path += "?" + q.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, out, true)
}

// InvitationByToken resolves an invitation link token
func (c *Client) InvitationByToken(ctx context.Context, token string) (InvitationRow, error) {
	var row InvitationRow
	err := c.do(ctx, http.MethodGet, "/rest/v1/invitations/by-token/"+url.PathEscape(token), nil, &row, false)
	return row, err
}

// Health pings the service
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, false)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, auth bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		sess := c.CurrentSession()
		if sess == nil {
			return ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return parseError(resp.StatusCode, respBody)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
