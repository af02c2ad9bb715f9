package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/qwmll19-cmd/ai-lotto/internal/model"
)

const tokenTypeAccess = "access"

var ErrWrongTokenType = errors.New("not an access token")

// JWTClaims represents the access token claims
type JWTClaims struct {
	UserID     uuid.UUID `json:"sub"`
	Type       string    `json:"typ"`
	Identifier string    `json:"identifier,omitempty"`
	IsAdmin    bool      `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token operations
type JWTService struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secret string, accessTTL time.Duration) *JWTService {
	return &JWTService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

// AccessTTL is the lifetime of tokens issued by SignAccessToken.
func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

// SignAccessToken creates a JWT access token for the user
func (s *JWTService) SignAccessToken(u model.User) (string, error) {
	now := s.now()
	claims := &JWTClaims{
		UserID:     u.ID,
		Type:       tokenTypeAccess,
		Identifier: u.Identifier,
		IsAdmin:    u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// VerifyAccessToken verifies and parses an access token
func (s *JWTService) VerifyAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Type != tokenTypeAccess {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
