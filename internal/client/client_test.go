package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI accepts one access token at a time and rotates the pair on refresh.
type fakeAPI struct {
	mu       sync.Mutex
	access   string
	refresh  string
	gen      int
	refreshN atomic.Int32
	// refreshStatus overrides the refresh response when non-zero.
	refreshStatus int
	// refreshGate, when set, holds refresh requests until closed.
	refreshGate    chan struct{}
	refreshEntered chan struct{}
	logoutAuth     []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshN.Add(1)
		if f.refreshGate != nil {
			f.refreshEntered <- struct{}{}
			<-f.refreshGate
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.refreshStatus != 0 {
			writeJSON(w, f.refreshStatus, map[string]string{"detail": "nope"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+f.refresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid refresh token"})
			return
		}
		f.gen++
		f.access = fmt.Sprintf("access-%d", f.gen)
		f.refresh = fmt.Sprintf("refresh-%d", f.gen)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  f.access,
			"refresh_token": f.refresh,
			"token_type":    "bearer",
			"user":          map[string]any{"user_id": "u1", "identifier": "player1", "tier": "FREE"},
		})
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.logoutAuth = append(f.logoutAuth, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid refresh token"})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user_id": "u1", "identifier": "player1", "tier": "BASIC"})
	})
	mux.HandleFunc("/api/lotto/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"draw_no": 1102, "numbers": []int{7, 11, 12, 30, 38, 44}, "bonus": 9})
	})
	mux.HandleFunc("/api/lotto/recommend/pool-status", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"pool_exists": true, "pool_total": 5, "revealed_count": 2})
	})
	mux.HandleFunc("/api/lotto/mypage/lines", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal server error"})
	})
	mux.HandleFunc("/api/lotto/recommend/free/status", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"weekly_used": 0, "weekly_limit": 2, "remaining": 2})
	})
	mux.HandleFunc("/api/lotto/plans", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "public but unhappy"})
	})
	return mux
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access != "" && r.Header.Get("Authorization") == "Bearer "+f.access
}

func (f *fakeAPI) rejectRefresh(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshStatus = status
}

// expire invalidates the current access token without touching the refresh token.
func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "expired-on-server"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFake(t *testing.T) (*fakeAPI, *httptest.Server, *Client) {
	t.Helper()
	f := &fakeAPI{access: "access-0", refresh: "refresh-0"}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := New(srv.URL, NewMemoryStore())
	require.NoError(t, c.Session().SaveTokens(&Tokens{AccessToken: "access-0", RefreshToken: "refresh-0"}))
	return f, srv, c
}

func TestDo_RefreshesOnceOn401(t *testing.T) {
	f, _, c := newFake(t)
	f.expire()

	p, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "player1", p.Identifier)
	assert.EqualValues(t, 1, f.refreshN.Load())
	assert.Equal(t, "access-1", c.Session().AccessToken())
	assert.Equal(t, "refresh-1", c.Session().RefreshToken())

	cached, ok := c.Session().Profile()
	require.True(t, ok)
	assert.Equal(t, "u1", cached.UserID)
}

func TestDo_ConcurrentRefreshSharesOneRequest(t *testing.T) {
	f, _, c := newFake(t)
	f.expire()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.PoolStatus(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	// a second refresh presenting refresh-0 would have been rejected
	assert.NotEqual(t, "refresh-0", c.Session().RefreshToken())
	assert.NotEmpty(t, c.Session().AccessToken())
}

func TestSession_RefreshSurvivesCancelledCaller(t *testing.T) {
	f, _, c := newFake(t)
	f.refreshGate = make(chan struct{})
	f.refreshEntered = make(chan struct{}, 1)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- c.Session().Refresh(first) }()
	<-f.refreshEntered

	secondErr := make(chan error, 1)
	go func() { secondErr <- c.Session().Refresh(context.Background()) }()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	// let the second caller join the flight still held by the gate
	time.Sleep(50 * time.Millisecond)
	close(f.refreshGate)
	require.NoError(t, <-secondErr, "a waiting caller must not inherit another caller's cancellation")
	assert.NotEqual(t, "refresh-0", c.Session().RefreshToken())
}

func TestLogout_SendsRefreshTokenOnce(t *testing.T) {
	f, _, c := newFake(t)
	f.expire()

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, []string{"Bearer refresh-0"}, f.logoutAuth)
	assert.Zero(t, f.refreshN.Load(), "a rejected logout must not rotate the pair")
	assert.Empty(t, c.Session().AccessToken())
	assert.Empty(t, c.Session().RefreshToken())
}

func TestDo_NoRefreshWithoutToken(t *testing.T) {
	f, _, c := newFake(t)
	require.NoError(t, c.Session().Clear())

	_, err := c.Plans(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.EqualValues(t, 0, f.refreshN.Load())
}

func TestDo_RefreshRejectedClearsSession(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f, _, c := newFake(t)
			f.expire()
			f.rejectRefresh(status)

			_, err := c.Me(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSessionExpired)
			assert.True(t, IsStatus(err, http.StatusUnauthorized))
			assert.Empty(t, c.Session().AccessToken())
			assert.Empty(t, c.Session().RefreshToken())
		})
	}
}

func TestDo_RefreshServerErrorKeepsTokens(t *testing.T) {
	f, _, c := newFake(t)
	f.expire()
	f.rejectRefresh(http.StatusBadGateway)

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.False(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "refresh-0", c.Session().RefreshToken())
}

func TestSession_RefreshNetworkErrorKeepsTokens(t *testing.T) {
	_, srv, c := newFake(t)
	srv.Close()

	err := c.Session().Refresh(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, "access-0", c.Session().AccessToken())
	assert.Equal(t, "refresh-0", c.Session().RefreshToken())
}

func TestSession_RefreshWithoutToken(t *testing.T) {
	c := New("http://127.0.0.1:1", NewMemoryStore())
	assert.ErrorIs(t, c.Session().Refresh(context.Background()), ErrNoRefreshToken)
}

func TestBootstrap(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		c := New("http://127.0.0.1:1", NewMemoryStore())
		p, err := c.Bootstrap(context.Background())
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("valid session caches profile", func(t *testing.T) {
		_, _, c := newFake(t)
		p, err := c.Bootstrap(context.Background())
		require.NoError(t, err)
		require.NotNil(t, p)
		cached, ok := c.Session().Profile()
		require.True(t, ok)
		assert.Equal(t, p.Identifier, cached.Identifier)
	})

	t.Run("refresh only", func(t *testing.T) {
		f, _, c := newFake(t)
		require.NoError(t, c.Session().SaveTokens(&Tokens{RefreshToken: "refresh-0"}))

		p, err := c.Bootstrap(context.Background())
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.EqualValues(t, 1, f.refreshN.Load())
	})

	t.Run("rejected session is cleared", func(t *testing.T) {
		f, _, c := newFake(t)
		f.expire()
		f.rejectRefresh(http.StatusUnauthorized)

		p, err := c.Bootstrap(context.Background())
		require.NoError(t, err)
		assert.Nil(t, p)
		assert.Empty(t, c.Session().RefreshToken())
	})

	t.Run("network failure keeps tokens", func(t *testing.T) {
		_, srv, c := newFake(t)
		srv.Close()

		_, err := c.Bootstrap(context.Background())
		require.Error(t, err)
		assert.Equal(t, "refresh-0", c.Session().RefreshToken())
	})
}

func TestDashboard(t *testing.T) {
	t.Run("signed in loads every part", func(t *testing.T) {
		_, _, c := newFake(t)
		d := c.Dashboard(context.Background())

		require.NoError(t, d.LatestErr)
		require.NotNil(t, d.Latest.DrawNo)
		assert.Equal(t, 1102, *d.Latest.DrawNo)
		require.NoError(t, d.PoolErr)
		assert.Equal(t, 2, d.Pool.RevealedCount)
		require.NoError(t, d.FreeErr)
		assert.Equal(t, 2, d.Free.Remaining)

		// the failing part does not hide the others
		assert.Nil(t, d.MyLines)
		assert.True(t, IsStatus(d.MyLinesErr, http.StatusInternalServerError))
		assert.Equal(t, d.MyLinesErr, d.Err())
	})

	t.Run("anonymous only loads the latest draw", func(t *testing.T) {
		_, _, c := newFake(t)
		require.NoError(t, c.Session().Clear())
		d := c.Dashboard(context.Background())
		require.NoError(t, d.Err())
		assert.NotNil(t, d.Latest)
		assert.Nil(t, d.Pool)
		assert.Nil(t, d.Free)
	})
}

func TestCallLog(t *testing.T) {
	_, _, c := newFake(t)
	for i := 0; i < maxCallLogEntries+7; i++ {
		_, err := c.Latest(context.Background())
		require.NoError(t, err)
	}
	_, _ = c.MyLines(context.Background())

	entries := c.CallLog().Entries()
	require.Len(t, entries, maxCallLogEntries)
	last := entries[len(entries)-1]
	assert.Equal(t, "/api/lotto/mypage/lines", last.Path)
	assert.Equal(t, http.StatusInternalServerError, last.Status)
	assert.Equal(t, "internal server error", last.Error)
	assert.Equal(t, http.MethodGet, entries[0].Method)

	c.CallLog().Clear()
	assert.Empty(t, c.CallLog().Entries())
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail", 400, `{"detail":"bad line"}`, "bad line"},
		{"message", 400, `{"message":"from message"}`, "from message"},
		{"error", 400, `{"error":"from error"}`, "from error"},
		{"detail wins", 400, `{"error":"e","detail":"d"}`, "d"},
		{"empty detail falls through", 400, `{"detail":"","message":"m"}`, "m"},
		{"non-string detail", 422, `{"detail":[{"loc":"body"}]}`, `[{"loc":"body"}]`},
		{"not json", 502, `<html>bad gateway</html>`, "Bad Gateway"},
		{"unknown status", 599, ``, "HTTP 599"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errorMessage(tc.status, []byte(tc.body)))
		})
	}
}

func TestAPIError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &APIError{Status: 409, Method: "POST", Path: "/x", Message: "busy"})
	assert.True(t, IsStatus(err, http.StatusConflict))
	assert.False(t, IsStatus(err, http.StatusNotFound))
	assert.False(t, IsStatus(errors.New("plain"), http.StatusConflict))
	assert.Contains(t, err.Error(), "409 busy")
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	_, ok := s.Get(KeyAccessToken)
	assert.False(t, ok)

	require.NoError(t, s.Set(KeyAccessToken, "a"))
	require.NoError(t, s.Set(KeyRefreshToken, "r"))
	require.NoError(t, s.Delete(KeyAccessToken))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	v, ok := reopened.Get(KeyRefreshToken)
	assert.True(t, ok)
	assert.Equal(t, "r", v)
	_, ok = reopened.Get(KeyAccessToken)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = OpenFileStore(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "decode session file"))
}
