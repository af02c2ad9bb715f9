package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (model.User, error)
	UpdateTier(ctx context.Context, id uuid.UUID, tier lotto.Tier) (model.User, error)
	SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, identifier, password_hash, name, phone_number, tier, is_admin, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var name, phone sql.NullString
	var tier string
	err := row.Scan(&u.ID, &u.Identifier, &u.PasswordHash, &name, &phone, &tier, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if name.Valid {
		u.Name = &name.String
	}
	if phone.Valid {
		u.PhoneNumber = &phone.String
	}
	u.Tier, err = lotto.ParseTier(tier)
	if err != nil {
		return model.User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return u, nil
}

// Create inserts a user. A taken identifier yields ErrDuplicate.
func (r *userRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Tier == "" {
		u.Tier = lotto.TierFree
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, identifier, password_hash, name, phone_number, tier, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.ID, u.Identifier, u.PasswordHash, u.Name, u.PhoneNumber, string(u.Tier), u.IsAdmin,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("identifier %w", ErrDuplicate)
		}
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return created, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// GetByIdentifier retrieves a user by login identifier
func (r *userRepo) GetByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE identifier = $1`, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (r *userRepo) UpdateTier(ctx context.Context, id uuid.UUID, tier lotto.Tier) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET tier = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, string(tier)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to update tier: %w", err)
	}
	return u, nil
}

func (r *userRepo) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_admin = $2, updated_at = now() WHERE id = $1`, id, isAdmin)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}
