package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// Client talks to the ai-lotto API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	calls   *CallLog
	log     *zap.Logger
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, store Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		calls:   NewCallLog(store),
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("client")
	c.session = newSession(store, c.baseURL, c.http, c.log)
	return c
}

func (c *Client) Session() *Session { return c.session }

func (c *Client) CallLog() *CallLog { return c.calls }

// Do sends a JSON request and decodes a 2xx body into out. An
// authenticated request that gets 401 triggers one refresh and one retry.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	token := c.session.AccessToken()
	status, raw, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && token != "" {
		// another request may have rotated the pair while this one was in flight
		if current := c.session.AccessToken(); current == token || current == "" {
			first := &APIError{Status: status, Method: method, Path: path, Message: errorMessage(status, raw)}
			if refreshErr := c.session.Refresh(ctx); refreshErr != nil {
				c.log.Debug("refresh after 401 failed", zap.String("path", path), zap.Error(refreshErr))
				if errors.Is(refreshErr, ErrSessionExpired) || errors.Is(refreshErr, ErrNoRefreshToken) {
					return fmt.Errorf("%w (refresh: %w)", first, refreshErr)
				}
				// the session may still be valid, keep the 401 out of the chain
				return fmt.Errorf("%s %s: refresh: %w", method, path, refreshErr)
			}
		}
		status, raw, err = c.send(ctx, method, path, payload, c.session.AccessToken())
		if err != nil {
			return err
		}
	}

	if status < 200 || status > 299 {
		return &APIError{Status: status, Method: method, Path: path, Message: errorMessage(status, raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	entry := CallEntry{Time: start, Method: method, Path: path}
	defer func() {
		entry.DurationMS = c.now().Sub(start).Milliseconds()
		c.calls.Record(entry)
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		entry.Error = err.Error()
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	entry.Status = resp.StatusCode
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		entry.Error = err.Error()
		return 0, nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode > 299 {
		entry.Error = errorMessage(resp.StatusCode, raw)
	}
	return resp.StatusCode, raw, nil
}

// Signup creates an account and stores the session.
func (c *Client) Signup(ctx context.Context, identifier, password string, name, phone *string) (*Profile, error) {
	var resp authResponse
	err := c.Do(ctx, http.MethodPost, "/api/auth/signup", map[string]any{
		"identifier":   identifier,
		"password":     password,
		"name":         name,
		"phone_number": phone,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.session.save(resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Login stores the session returned by the server.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Profile, error) {
	var resp authResponse
	err := c.Do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": identifier,
		"password":   password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.session.save(resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout revokes the refresh token on the server and always clears local
// state. The refresh token goes out as the bearer credential in a single
// attempt; a 401 here must not rotate the pair it is revoking.
func (c *Client) Logout(ctx context.Context) error {
	if refresh := c.session.RefreshToken(); refresh != "" {
		status, raw, err := c.send(ctx, http.MethodPost, "/api/auth/logout", nil, refresh)
		switch {
		case err != nil:
			c.log.Debug("server logout failed", zap.Error(err))
		case status < 200 || status > 299:
			c.log.Debug("server logout rejected", zap.Int("status", status), zap.String("detail", errorMessage(status, raw)))
		}
	}
	return c.session.Clear()
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.Do(ctx, http.MethodGet, "/api/auth/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Bootstrap verifies a stored session. It returns nil with no error when
// the visitor is anonymous. A rejected session is cleared; a network
// failure keeps the tokens and returns the error.
func (c *Client) Bootstrap(ctx context.Context) (*Profile, error) {
	if c.session.AccessToken() == "" {
		if c.session.RefreshToken() == "" {
			return nil, nil
		}
		if err := c.session.Refresh(ctx); err != nil {
			return c.bootstrapFailed(err)
		}
	}
	p, err := c.Me(ctx)
	if err == nil {
		if err := c.session.SaveProfile(p); err != nil {
			c.log.Warn("cache profile", zap.Error(err))
		}
		return p, nil
	}
	return c.bootstrapFailed(err)
}

func (c *Client) bootstrapFailed(err error) (*Profile, error) {
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNoRefreshToken) ||
		IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden) {
		if clearErr := c.session.Clear(); clearErr != nil {
			c.log.Warn("clear session", zap.Error(clearErr))
		}
		return nil, nil
	}
	return nil, err
}
