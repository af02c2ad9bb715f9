package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const refreshTimeout = 15 * time.Second

// Session holds the token pair and cached profile in a Store.
type Session struct {
	mu      sync.Mutex
	store   Store
	baseURL string
	http    *http.Client
	log     *zap.Logger
	flight  singleflight.Group
}

func newSession(store Store, baseURL string, httpClient *http.Client, log *zap.Logger) *Session {
	return &Session{store: store, baseURL: baseURL, http: httpClient, log: log}
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.store.Get(KeyAccessToken)
	return v
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.store.Get(KeyRefreshToken)
	return v
}

// SaveTokens persists t. A nil t clears both tokens.
func (s *Session) SaveTokens(t *Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == nil {
		return s.store.Delete(KeyAccessToken, KeyRefreshToken)
	}
	if err := s.store.Set(KeyAccessToken, t.AccessToken); err != nil {
		return err
	}
	if t.RefreshToken == "" {
		return s.store.Delete(KeyRefreshToken)
	}
	return s.store.Set(KeyRefreshToken, t.RefreshToken)
}

// Profile returns the cached user, if any.
func (s *Session) Profile() (*Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.store.Get(KeyUser)
	if !ok {
		return nil, false
	}
	var p Profile
	if json.Unmarshal([]byte(raw), &p) != nil {
		return nil, false
	}
	return &p, true
}

func (s *Session) SaveProfile(p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		return s.store.Delete(KeyUser)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.store.Set(KeyUser, string(raw))
}

// Clear drops tokens and the cached profile.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(KeyAccessToken, KeyRefreshToken, KeyUser)
}

func (s *Session) save(resp authResponse) error {
	if err := s.SaveTokens(&resp.Tokens); err != nil {
		return err
	}
	if resp.User.UserID == "" {
		return nil
	}
	return s.SaveProfile(&resp.User)
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers
// share one request so a rotated token is never presented twice. The shared
// request outlives any single caller; each caller stops waiting when its
// own ctx is done.
func (s *Session) Refresh(ctx context.Context) error {
	ch := s.flight.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return nil, s.refresh(rctx)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Session) refresh(ctx context.Context) error {
	token := s.RefreshToken()
	if token == "" {
		return ErrNoRefreshToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/auth/refresh", http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		// tokens stay, the server may just be unreachable
		return fmt.Errorf("refresh: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if err := s.Clear(); err != nil {
			s.log.Warn("clear session", zap.Error(err))
		}
		s.log.Info("refresh rejected, session cleared", zap.Int("status", resp.StatusCode))
		return ErrSessionExpired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{Status: resp.StatusCode, Method: http.MethodPost, Path: "/api/auth/refresh", Message: errorMessage(resp.StatusCode, body)}
	}

	var out authResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&out); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return fmt.Errorf("refresh response without access token")
	}
	if out.RefreshToken == "" {
		out.RefreshToken = token
	}
	return s.save(out)
}
