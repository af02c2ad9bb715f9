package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authResponse matches the signup, login and refresh responses
type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		UserID     string `json:"user_id"`
		Identifier string `json:"identifier"`
		Tier       string `json:"tier"`
		IsAdmin    bool   `json:"is_admin"`
	} `json:"user"`
}

// errorResponse matches error JSON body
type errorResponse struct {
	Detail string `json:"detail"`
}

func post(t *testing.T, client *http.Client, url, bearer string, body any) (*http.Response, string) {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(http.MethodPost, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, readBody(resp)
}

func signup(t *testing.T, client *http.Client, baseURL, identifier string) authResponse {
	t.Helper()
	resp, body := post(t, client, baseURL+"/api/auth/signup", "", map[string]string{
		"identifier": identifier,
		"password":   "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "signup must return 201; body: %s", body)
	var res authResponse
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	return res
}

func TestAuthIntegration(t *testing.T) {
	ts := newTestServer(t)
	baseURL := ts.BaseURL()
	client := ts.Server.Client()

	t.Run("A_HealthCheck", func(t *testing.T) {
		resp, err := client.Get(baseURL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "GET /health must return 200")
		var body map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body["ok"], "response must contain {\"ok\":true}")
	})

	t.Run("B_Signup", func(t *testing.T) {
		ts.Truncate(t)
		res := signup(t, client, baseURL, "  Player1 ")
		assert.NotEmpty(t, res.AccessToken, "access_token must be present")
		assert.NotEmpty(t, res.RefreshToken, "refresh_token must be present")
		assert.Equal(t, "bearer", res.TokenType)
		assert.Equal(t, "player1", res.User.Identifier, "identifier is stored normalized")
		assert.Equal(t, "FREE", res.User.Tier)
		assert.False(t, res.User.IsAdmin)

		resp, body := post(t, client, baseURL+"/api/auth/signup", "", map[string]string{
			"identifier": "PLAYER1",
			"password":   "another password",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode, "duplicate identifier must return 409; body: %s", body)
	})

	t.Run("B2_AdminIdentifierPromoted", func(t *testing.T) {
		ts.Truncate(t)
		res := signup(t, client, baseURL, AdminIdentifier)
		assert.True(t, res.User.IsAdmin)
	})

	t.Run("C_Login", func(t *testing.T) {
		ts.Truncate(t)
		signup(t, client, baseURL, "player1")

		resp, body := post(t, client, baseURL+"/api/auth/login", "", map[string]string{
			"identifier": "Player1",
			"password":   "correct horse battery",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode, "login must return 200; body: %s", body)

		resp, body = post(t, client, baseURL+"/api/auth/login", "", map[string]string{
			"identifier": "player1",
			"password":   "wrong password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "wrong password must return 401; body: %s", body)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &errRes))
		assert.NotEmpty(t, errRes.Detail)

		resp, _ = post(t, client, baseURL+"/api/auth/login", "", map[string]string{
			"identifier": "nobody",
			"password":   "correct horse battery",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "unknown user must look like a wrong password")
	})

	t.Run("C2_RefreshToken_HappyPath", func(t *testing.T) {
		ts.Truncate(t)
		first := signup(t, client, baseURL, "player1")

		resp, body := post(t, client, baseURL+"/api/auth/refresh", first.RefreshToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "POST /api/auth/refresh must return 200; body: %s", body)
		var refreshed authResponse
		require.NoError(t, json.Unmarshal([]byte(body), &refreshed))
		assert.NotEmpty(t, refreshed.AccessToken)
		assert.NotEqual(t, first.RefreshToken, refreshed.RefreshToken, "refresh token must rotate")

		req, _ := http.NewRequest(http.MethodGet, baseURL+"/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+refreshed.AccessToken)
		respMe, err := client.Do(req)
		require.NoError(t, err)
		defer respMe.Body.Close()
		assert.Equal(t, http.StatusOK, respMe.StatusCode, "GET /api/auth/me with new access_token must return 200")
	})

	t.Run("C3_RefreshToken_BodyFallback", func(t *testing.T) {
		ts.Truncate(t)
		first := signup(t, client, baseURL, "player1")
		resp, body := post(t, client, baseURL+"/api/auth/refresh", "", map[string]string{"refresh_token": first.RefreshToken})
		assert.Equal(t, http.StatusOK, resp.StatusCode, "refresh token in the body must work; body: %s", body)
	})

	t.Run("C4_RefreshToken_ReuseDetected_RevokesAllSessions", func(t *testing.T) {
		ts.Truncate(t)
		token1 := signup(t, client, baseURL, "player1").RefreshToken

		resp, body := post(t, client, baseURL+"/api/auth/refresh", token1, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		var rotated authResponse
		require.NoError(t, json.Unmarshal([]byte(body), &rotated))
		token2 := rotated.RefreshToken

		resp, body = post(t, client, baseURL+"/api/auth/refresh", token1, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "reused token must return 401; body: %s", body)
		var reuseErr errorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &reuseErr))
		assert.Equal(t, "refresh_token_reuse_detected", reuseErr.Detail)

		resp, body = post(t, client, baseURL+"/api/auth/refresh", token2, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "globally revoked token must return 401; body: %s", body)
	})

	t.Run("D_Logout", func(t *testing.T) {
		ts.Truncate(t)
		res := signup(t, client, baseURL, "player1")

		resp, body := post(t, client, baseURL+"/api/auth/logout", res.RefreshToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, body)
		resp, _ = post(t, client, baseURL+"/api/auth/logout", res.RefreshToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "logout is idempotent")

		resp, _ = post(t, client, baseURL+"/api/auth/refresh", res.RefreshToken, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "logged out token must not refresh")
	})

	t.Run("E_ProtectedRouteWithoutToken", func(t *testing.T) {
		resp, err := client.Get(baseURL + "/api/lotto/recommend/pool-status")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("F_RateLimit", func(t *testing.T) {
		ts.Truncate(t)
		var last int
		for i := 0; i < 25; i++ {
			resp, _ := post(t, client, baseURL+"/api/auth/login", "", map[string]string{
				"identifier": "nobody",
				"password":   "whatever-password",
			})
			last = resp.StatusCode
			if last == http.StatusTooManyRequests {
				break
			}
		}
		assert.Equal(t, http.StatusTooManyRequests, last, "repeated logins from one IP must hit the limit")
	})
}

// readBody reads and returns the response body (consumes it). Use for error messages only.
func readBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}
