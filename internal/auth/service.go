package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
)

var (
	ErrInvalidCredentials        = errors.New("invalid identifier or password")
	ErrIdentifierTaken           = errors.New("identifier already registered")
	ErrInvalidIdentifier         = errors.New("identifier must be 3 to 64 characters")
	ErrInvalidRefreshToken       = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuseDetected = errors.New("refresh_token_reuse_detected")
)

// Tokens is what signup, login and refresh hand back to the client.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	User         model.User
}

type SignupInput struct {
	Identifier  string
	Password    string
	Name        *string
	PhoneNumber *string
}

// AuthService orchestrates authentication operations
type AuthService struct {
	jwtService  *JWTService
	passwords   *PasswordHasher
	userRepo    repo.UserRepo
	refreshRepo repo.RefreshRepo
	refreshTTL  time.Duration
	admins      map[string]bool
	log         *zap.Logger
}

// NewAuthService creates a new auth service. Identifiers listed in admins
// are promoted on signup and login.
func NewAuthService(
	jwtService *JWTService,
	passwords *PasswordHasher,
	userRepo repo.UserRepo,
	refreshRepo repo.RefreshRepo,
	refreshTTL time.Duration,
	admins []string,
	log *zap.Logger,
) *AuthService {
	set := make(map[string]bool, len(admins))
	for _, a := range admins {
		if a = NormalizeIdentifier(a); a != "" {
			set[a] = true
		}
	}
	return &AuthService{
		jwtService:  jwtService,
		passwords:   passwords,
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		refreshTTL:  refreshTTL,
		admins:      set,
		log:         log.Named("auth"),
	}
}

func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Tokens, error) {
	identifier := NormalizeIdentifier(in.Identifier)
	if n := len(identifier); n < 3 || n > 64 {
		return nil, ErrInvalidIdentifier
	}
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.Create(ctx, model.User{
		Identifier:   identifier,
		PasswordHash: hash,
		Name:         trimmed(in.Name),
		PhoneNumber:  trimmed(in.PhoneNumber),
		Tier:         lotto.TierFree,
		IsAdmin:      s.admins[identifier],
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrIdentifierTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.log.Info("user signed up", zap.String("user_id", user.ID.String()), zap.String("identifier", MaskIdentifier(identifier)))

	return s.issue(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Tokens, error) {
	identifier = NormalizeIdentifier(identifier)
	user, err := s.userRepo.GetByIdentifier(ctx, identifier)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !s.passwords.Verify(user.PasswordHash, password) {
		s.log.Info("login rejected", zap.String("identifier", MaskIdentifier(identifier)))
		return nil, ErrInvalidCredentials
	}

	if s.admins[identifier] && !user.IsAdmin {
		if err := s.userRepo.SetAdmin(ctx, user.ID, true); err != nil {
			return nil, fmt.Errorf("failed to promote admin: %w", err)
		}
		user.IsAdmin = true
	}

	return s.issue(ctx, user)
}

// Refresh rotates a refresh token. Presenting an already rotated token
// revokes every session of its user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	hash := RefreshDigest(refreshToken)
	session, err := s.refreshRepo.FindActive(ctx, hash)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("failed to find session: %w", err)
		}
		return nil, s.rejectRefresh(ctx, hash)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	newToken, newHash, err := NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	newID, err := s.refreshRepo.Create(ctx, user.ID, newHash, time.Now().Add(s.refreshTTL))
	if err != nil {
		return nil, err
	}
	if err := s.refreshRepo.RevokeAndSetReplacedBy(ctx, session.ID, newID); err != nil {
		// lost a race with a concurrent refresh of the same token
		_ = s.refreshRepo.Revoke(ctx, newID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	access, err := s.jwtService.SignAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Tokens{AccessToken: access, RefreshToken: newToken, User: user}, nil
}

func (s *AuthService) rejectRefresh(ctx context.Context, hash string) error {
	old, err := s.refreshRepo.FindAny(ctx, hash)
	if err != nil || old.RevokedAt == nil || old.ReplacedBy == nil {
		return ErrInvalidRefreshToken
	}
	if err := s.refreshRepo.RevokeAllForUser(ctx, old.UserID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	s.log.Warn("refresh token reuse detected, all sessions revoked", zap.String("user_id", old.UserID.String()))
	return ErrRefreshTokenReuseDetected
}

// Logout revokes the session behind refreshToken. Unknown or already
// revoked tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.refreshRepo.FindActive(ctx, RefreshDigest(refreshToken))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.refreshRepo.Revoke(ctx, session.ID)
}

func (s *AuthService) issue(ctx context.Context, user model.User) (*Tokens, error) {
	access, err := s.jwtService.SignAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	refresh, hash, err := NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if _, err := s.refreshRepo.Create(ctx, user.ID, hash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// MaskIdentifier masks an identifier for logging (e.g. us****me)
func MaskIdentifier(id string) string {
	if len(id) <= 4 {
		return "****"
	}
	return id[:2] + strings.Repeat("*", len(id)-4) + id[len(id)-2:]
}
