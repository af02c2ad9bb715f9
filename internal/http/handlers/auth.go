package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/auth"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/middleware"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.AuthService
	accessTTL   time.Duration
	ipLimiter   *middleware.RateLimiter
	log         *zap.Logger
}

// NewAuthHandler creates a new auth handler. Signup and login share one
// IP limiter: 20 attempts per 10 minutes.
func NewAuthHandler(authService *auth.AuthService, accessTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		accessTTL:   accessTTL,
		ipLimiter:   middleware.NewRateLimiter(10*time.Minute, 20),
		log:         log.Named("auth_handler"),
	}
}

// Limiter exposes the login limiter so the server can sweep it.
func (h *AuthHandler) Limiter() *middleware.RateLimiter { return h.ipLimiter }

type signupRequest struct {
	Identifier  string  `json:"identifier"`
	Password    string  `json:"password"`
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// tokenRequest carries a refresh token when it is not sent as bearer.
type tokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         userResponse `json:"user"`
}

// userResponse is the user object in API responses
type userResponse struct {
	UserID      string     `json:"user_id"`
	Identifier  string     `json:"identifier"`
	Name        *string    `json:"name"`
	PhoneNumber *string    `json:"phone_number"`
	Tier        lotto.Tier `json:"tier"`
	IsAdmin     bool       `json:"is_admin"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		UserID:      u.ID.String(),
		Identifier:  u.Identifier,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
		Tier:        u.Tier,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
	}
}

func (h *AuthHandler) toAuthResponse(t *auth.Tokens) authResponse {
	return authResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(h.accessTTL.Seconds()),
		User:         toUserResponse(t.User),
	}
}

// HandleSignup handles POST /api/auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.log, err)
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}
	if !h.ipLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	tokens, err := h.authService.Signup(r.Context(), auth.SignupInput{
		Identifier:  req.Identifier,
		Password:    req.Password,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.toAuthResponse(tokens))
}

// HandleLogin handles POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.log, err)
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}
	if !h.ipLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	tokens, err := h.authService.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toAuthResponse(tokens))
}

// refreshTokenFrom prefers the bearer header and falls back to the body.
// An access token in the header is skipped so a body token still counts.
func refreshTokenFrom(r *http.Request) (string, error) {
	if token, ok := middleware.BearerToken(r); ok && auth.IsRefreshTokenShape(token) {
		return token, nil
	}
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", err
	}
	return strings.TrimSpace(req.RefreshToken), nil
}

// HandleRefresh handles POST /api/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := refreshTokenFrom(r)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "refresh_token is required")
		return
	}
	tokens, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toAuthResponse(tokens))
}

// HandleLogout handles POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := refreshTokenFrom(r)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	if token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			respondErr(w, h.log, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe handles GET /api/auth/me (protected). Returns the authenticated user.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(*user))
}
