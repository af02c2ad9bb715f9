package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
)

// DrawRepo stores official draw results
type DrawRepo interface {
	Upsert(ctx context.Context, d model.Draw) error
	Get(ctx context.Context, drawNo int) (model.Draw, error)
	Latest(ctx context.Context) (model.Draw, error)
	Recent(ctx context.Context, limit int) ([]model.Draw, error)
}

type drawRepo struct {
	db *sql.DB
}

func NewDrawRepo(db *sql.DB) DrawRepo {
	return &drawRepo{db: db}
}

const drawColumns = `draw_no, numbers, bonus, draw_date, created_at`

func scanDraw(row interface{ Scan(...any) error }) (model.Draw, error) {
	var d model.Draw
	var nums pq.Int64Array
	if err := row.Scan(&d.DrawNo, &nums, &d.Bonus, &d.DrawDate, &d.CreatedAt); err != nil {
		return model.Draw{}, err
	}
	d.Numbers = toInts(nums)
	return d, nil
}

func (r *drawRepo) Upsert(ctx context.Context, d model.Draw) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO draws (draw_no, numbers, bonus, draw_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (draw_no) DO UPDATE
		SET numbers = EXCLUDED.numbers, bonus = EXCLUDED.bonus, draw_date = EXCLUDED.draw_date
	`, d.DrawNo, toInt64s(d.Numbers), d.Bonus, d.DrawDate)
	if err != nil {
		return fmt.Errorf("upsert draw %d: %w", d.DrawNo, err)
	}
	return nil
}

func (r *drawRepo) Get(ctx context.Context, drawNo int) (model.Draw, error) {
	d, err := scanDraw(r.db.QueryRowContext(ctx, `SELECT `+drawColumns+` FROM draws WHERE draw_no = $1`, drawNo))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Draw{}, fmt.Errorf("draw %d: %w", drawNo, ErrNotFound)
		}
		return model.Draw{}, fmt.Errorf("query draw: %w", err)
	}
	return d, nil
}

// Latest returns ErrNotFound when no draw has been recorded yet.
func (r *drawRepo) Latest(ctx context.Context) (model.Draw, error) {
	d, err := scanDraw(r.db.QueryRowContext(ctx, `SELECT `+drawColumns+` FROM draws ORDER BY draw_no DESC LIMIT 1`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Draw{}, fmt.Errorf("latest draw: %w", ErrNotFound)
		}
		return model.Draw{}, fmt.Errorf("query latest draw: %w", err)
	}
	return d, nil
}

// Recent returns up to limit draws, newest first.
func (r *drawRepo) Recent(ctx context.Context, limit int) ([]model.Draw, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+drawColumns+` FROM draws ORDER BY draw_no DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent draws: %w", err)
	}
	defer rows.Close()

	var draws []model.Draw
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draw: %w", err)
		}
		draws = append(draws, d)
	}
	return draws, rows.Err()
}
