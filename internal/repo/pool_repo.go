package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
)

// PoolRepo stores line pools, one per (user, target draw, plan)
type PoolRepo interface {
	Get(ctx context.Context, userID uuid.UUID, targetDrawNo int, planType string) (model.Pool, error)
	Save(ctx context.Context, p model.Pool) (model.Pool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Pool, error)
	ListByUserAndDraw(ctx context.Context, userID uuid.UUID, targetDrawNo int) ([]model.Pool, error)
}

type poolRepo struct {
	db *sql.DB
}

func NewPoolRepo(db *sql.DB) PoolRepo {
	return &poolRepo{db: db}
}

const poolColumns = `id, user_id, target_draw_no, plan_type, lines, revealed_indices, exclude_numbers, fixed_numbers, created_at, updated_at`

func scanPool(row interface{ Scan(...any) error }) (model.Pool, error) {
	var p model.Pool
	var lines []byte
	var revealed, exclude, fixed pq.Int64Array
	err := row.Scan(&p.ID, &p.UserID, &p.TargetDrawNo, &p.PlanType, &lines, &revealed, &exclude, &fixed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Pool{}, err
	}
	if err := json.Unmarshal(lines, &p.Lines); err != nil {
		return model.Pool{}, fmt.Errorf("decode pool lines: %w", err)
	}
	p.Revealed = toInts(revealed)
	p.Settings = lotto.Settings{Exclude: toInts(exclude), Fixed: toInts(fixed)}
	return p, nil
}

func (r *poolRepo) Get(ctx context.Context, userID uuid.UUID, targetDrawNo int, planType string) (model.Pool, error) {
	p, err := scanPool(r.db.QueryRowContext(ctx, `
		SELECT `+poolColumns+` FROM line_pools
		WHERE user_id = $1 AND target_draw_no = $2 AND plan_type = $3
	`, userID, targetDrawNo, planType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Pool{}, fmt.Errorf("pool: %w", ErrNotFound)
		}
		return model.Pool{}, fmt.Errorf("query pool: %w", err)
	}
	return p, nil
}

// Save inserts or replaces the pool for its (user, target draw, plan) key.
func (r *poolRepo) Save(ctx context.Context, p model.Pool) (model.Pool, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	lines, err := json.Marshal(p.Lines)
	if err != nil {
		return model.Pool{}, fmt.Errorf("encode pool lines: %w", err)
	}
	s := p.Settings.Normalize()
	saved, err := scanPool(r.db.QueryRowContext(ctx, `
		INSERT INTO line_pools (id, user_id, target_draw_no, plan_type, lines, revealed_indices, exclude_numbers, fixed_numbers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, target_draw_no, plan_type) DO UPDATE
		SET lines = EXCLUDED.lines,
		    revealed_indices = EXCLUDED.revealed_indices,
		    exclude_numbers = EXCLUDED.exclude_numbers,
		    fixed_numbers = EXCLUDED.fixed_numbers,
		    updated_at = now()
		RETURNING `+poolColumns,
		p.ID, p.UserID, p.TargetDrawNo, p.PlanType, lines, toInt64s(p.Revealed), toInt64s(s.Exclude), toInt64s(s.Fixed),
	))
	if err != nil {
		return model.Pool{}, fmt.Errorf("save pool: %w", err)
	}
	return saved, nil
}

// ListByUser returns the user's pools, newest target draw first.
func (r *poolRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Pool, error) {
	return r.list(ctx, `
		SELECT `+poolColumns+` FROM line_pools
		WHERE user_id = $1
		ORDER BY target_draw_no DESC, created_at DESC
		LIMIT $2
	`, userID, limit)
}

func (r *poolRepo) ListByUserAndDraw(ctx context.Context, userID uuid.UUID, targetDrawNo int) ([]model.Pool, error) {
	return r.list(ctx, `
		SELECT `+poolColumns+` FROM line_pools
		WHERE user_id = $1 AND target_draw_no = $2
		ORDER BY created_at
	`, userID, targetDrawNo)
}

func (r *poolRepo) list(ctx context.Context, query string, args ...any) ([]model.Pool, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}
