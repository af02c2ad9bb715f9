package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
)

// FreePickRepo records weekly free lines
type FreePickRepo interface {
	Create(ctx context.Context, p model.FreePick) (model.FreePick, error)
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.FreePick, error)
}

type freePickRepo struct {
	db *sql.DB
}

func NewFreePickRepo(db *sql.DB) FreePickRepo {
	return &freePickRepo{db: db}
}

func (r *freePickRepo) Create(ctx context.Context, p model.FreePick) (model.FreePick, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO free_picks (id, user_id, target_draw_no, numbers)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, p.ID, p.UserID, p.TargetDrawNo, toInt64s(p.Numbers)).Scan(&p.CreatedAt)
	if err != nil {
		return model.FreePick{}, fmt.Errorf("insert free pick: %w", err)
	}
	return p, nil
}

// ListSince returns picks created at or after since, newest first.
func (r *freePickRepo) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.FreePick, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, target_draw_no, numbers, created_at
		FROM free_picks
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query free picks: %w", err)
	}
	defer rows.Close()

	var picks []model.FreePick
	for rows.Next() {
		var p model.FreePick
		var nums pq.Int64Array
		if err := rows.Scan(&p.ID, &p.UserID, &p.TargetDrawNo, &nums, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan free pick: %w", err)
		}
		p.Numbers = toInts(nums)
		picks = append(picks, p)
	}
	return picks, rows.Err()
}
