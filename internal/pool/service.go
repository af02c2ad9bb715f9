package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/lock"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
)

var (
	ErrSettingsLocked = errors.New("all lines are revealed; settings can no longer change")
	ErrBusy           = errors.New("pool is being updated, try again")
	ErrPlanNotAllowed = errors.New("plan does not allow exclude or fixed numbers")
)

// MsgAllRevealed is returned with success=false when nothing is left to reveal.
const MsgAllRevealed = "all lines already revealed"

// statsWindow is how many recent draws feed line generation.
const statsWindow = 200

// Status is the server view of a user's pool for the current target draw.
type Status struct {
	PoolExists    bool           `json:"pool_exists"`
	PoolTotal     int            `json:"pool_total"`
	RevealedCount int            `json:"revealed_count"`
	RevealedLines [][]int        `json:"revealed_lines"`
	AllRevealed   bool           `json:"all_revealed"`
	Settings      lotto.Settings `json:"settings"`
	TargetDrawNo  int            `json:"target_draw_no"`
	PlanType      lotto.Tier     `json:"plan_type"`
}

func (s Status) State() lotto.PoolState {
	return lotto.StateOf(s.PoolExists, s.RevealedCount, s.PoolTotal)
}

type RevealOneResult struct {
	Status
	Success bool   `json:"success"`
	Line    []int  `json:"line"`
	Message string `json:"message,omitempty"`
}

type RevealAllResult struct {
	Status
	Success         bool    `json:"success"`
	Lines           [][]int `json:"lines"`
	AlreadyRevealed bool    `json:"already_revealed"`
}

// Service owns pool generation and the reveal state machine.
type Service struct {
	pools  repo.PoolRepo
	draws  repo.DrawRepo
	locker lock.Locker
	gen    *lotto.Generator
	log    *zap.Logger
}

func NewService(pools repo.PoolRepo, draws repo.DrawRepo, locker lock.Locker, gen *lotto.Generator, log *zap.Logger) *Service {
	return &Service{
		pools:  pools,
		draws:  draws,
		locker: locker,
		gen:    gen,
		log:    log.Named("pool"),
	}
}

// TargetDrawNo is the draw after the latest recorded one, or 1.
func (s *Service) TargetDrawNo(ctx context.Context) (int, error) {
	latest, err := s.draws.Latest(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("target draw: %w", err)
	}
	return latest.DrawNo + 1, nil
}

// Stats builds generation statistics from recent draws. Nil means no history.
func (s *Service) Stats(ctx context.Context) (*lotto.Stats, error) {
	draws, err := s.draws.Recent(ctx, statsWindow)
	if err != nil {
		return nil, fmt.Errorf("load draw history: %w", err)
	}
	history := make([]lotto.Draw, 0, len(draws))
	for _, d := range draws {
		history = append(history, d.Lotto())
	}
	return lotto.BuildStats(history), nil
}

func (s *Service) Status(ctx context.Context, userID uuid.UUID, tier lotto.Tier) (Status, error) {
	target, err := s.TargetDrawNo(ctx)
	if err != nil {
		return Status{}, err
	}
	p, err := s.pools.Get(ctx, userID, target, tier.PlanKey())
	if errors.Is(err, repo.ErrNotFound) {
		return Status{
			PoolTotal:     tier.MaxLines(),
			RevealedLines: [][]int{},
			Settings:      lotto.Settings{}.Normalize(),
			TargetDrawNo:  target,
			PlanType:      tier,
		}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("load pool: %w", err)
	}
	return statusOf(p, tier), nil
}

// RevealOne reveals one random unrevealed line. A complete pool is
// returned unchanged with Success=false.
func (s *Service) RevealOne(ctx context.Context, userID uuid.UUID, tier lotto.Tier, settings lotto.Settings) (*RevealOneResult, error) {
	if err := settings.Validate(tier); err != nil {
		return nil, err
	}
	target, err := s.TargetDrawNo(ctx)
	if err != nil {
		return nil, err
	}

	var res *RevealOneResult
	err = s.withLock(ctx, userID, target, func() error {
		p, err := s.getOrCreate(ctx, userID, tier, target, settings)
		if err != nil {
			return err
		}
		if p.Complete() {
			res = &RevealOneResult{Status: statusOf(p, tier), Message: MsgAllRevealed}
			return nil
		}

		unrevealed := make([]int, 0, len(p.Lines))
		for i := range p.Lines {
			if !p.IsRevealed(i) {
				unrevealed = append(unrevealed, i)
			}
		}
		idx := unrevealed[s.gen.Intn(len(unrevealed))]
		line := p.Lines[idx]
		p.Revealed = append(p.Revealed, idx)

		saved, err := s.pools.Save(ctx, p)
		if err != nil {
			return fmt.Errorf("save pool: %w", err)
		}
		s.log.Info("line revealed",
			zap.String("user_id", userID.String()),
			zap.Int("target_draw_no", target),
			zap.Int("revealed", len(saved.Revealed)),
			zap.Int("total", len(saved.Lines)),
		)
		res = &RevealOneResult{Status: statusOf(saved, tier), Success: true, Line: line}
		return nil
	})
	return res, err
}

// RevealAll reveals every line. Calling it again returns the same lines
// with AlreadyRevealed set.
func (s *Service) RevealAll(ctx context.Context, userID uuid.UUID, tier lotto.Tier, settings lotto.Settings) (*RevealAllResult, error) {
	if err := settings.Validate(tier); err != nil {
		return nil, err
	}
	target, err := s.TargetDrawNo(ctx)
	if err != nil {
		return nil, err
	}

	var res *RevealAllResult
	err = s.withLock(ctx, userID, target, func() error {
		p, err := s.getOrCreate(ctx, userID, tier, target, settings)
		if err != nil {
			return err
		}
		already := p.Complete()
		if !already {
			for i := range p.Lines {
				if !p.IsRevealed(i) {
					p.Revealed = append(p.Revealed, i)
				}
			}
			if p, err = s.pools.Save(ctx, p); err != nil {
				return fmt.Errorf("save pool: %w", err)
			}
			s.log.Info("all lines revealed",
				zap.String("user_id", userID.String()),
				zap.Int("target_draw_no", target),
				zap.Int("total", len(p.Lines)),
			)
		}
		res = &RevealAllResult{Status: statusOf(p, tier), Success: true, Lines: p.Lines, AlreadyRevealed: already}
		return nil
	})
	return res, err
}

// getOrCreate reuses the pool when settings match and regenerates it
// otherwise. A complete pool cannot be regenerated.
func (s *Service) getOrCreate(ctx context.Context, userID uuid.UUID, tier lotto.Tier, target int, settings lotto.Settings) (model.Pool, error) {
	settings = settings.Normalize()
	p, err := s.pools.Get(ctx, userID, target, tier.PlanKey())
	switch {
	case errors.Is(err, repo.ErrNotFound):
		p = model.Pool{UserID: userID, TargetDrawNo: target, PlanType: tier.PlanKey()}
	case err != nil:
		return model.Pool{}, fmt.Errorf("load pool: %w", err)
	case len(p.Lines) > 0 && p.Settings.Equal(settings):
		return p, nil
	case p.Complete():
		return model.Pool{}, ErrSettingsLocked
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return model.Pool{}, err
	}
	p.Lines = s.gen.Generate(tier, stats, settings)
	p.Revealed = []int{}
	p.Settings = settings

	saved, err := s.pools.Save(ctx, p)
	if err != nil {
		return model.Pool{}, fmt.Errorf("save pool: %w", err)
	}
	s.log.Info("pool generated",
		zap.String("user_id", userID.String()),
		zap.String("plan", tier.PlanKey()),
		zap.Int("target_draw_no", target),
		zap.Ints("exclude", settings.Exclude),
		zap.Ints("fixed", settings.Fixed),
	)
	return saved, nil
}

// GuestDraw picks one number for anonymous visitors.
func (s *Service) GuestDraw(ctx context.Context) (int, []int, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return 0, nil, err
	}
	n, top := s.gen.GuestPick(stats)
	return n, top, nil
}

func (s *Service) withLock(ctx context.Context, userID uuid.UUID, target int, fn func() error) error {
	key := fmt.Sprintf("lotto:pool:%s:%d", userID, target)
	token, ok, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire pool lock: %w", err)
	}
	if !ok {
		return ErrBusy
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("release pool lock", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}

func statusOf(p model.Pool, tier lotto.Tier) Status {
	return Status{
		PoolExists:    len(p.Lines) > 0,
		PoolTotal:     len(p.Lines),
		RevealedCount: len(p.Revealed),
		RevealedLines: p.RevealedLines(),
		AllRevealed:   p.Complete(),
		Settings:      p.Settings.Normalize(),
		TargetDrawNo:  p.TargetDrawNo,
		PlanType:      tier,
	}
}
