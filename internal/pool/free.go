package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/lock"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
)

var ErrWeeklyLimit = errors.New("weekly free pick limit reached")

const firstWeekDays = 7

type FreeStatus struct {
	WeeklyUsed  int     `json:"weekly_used"`
	WeeklyLimit int     `json:"weekly_limit"`
	Remaining   int     `json:"remaining"`
	IsFirstWeek bool    `json:"is_first_week"`
	Lines       [][]int `json:"lines"`
}

type FreePickResult struct {
	Success      bool  `json:"success"`
	Line         []int `json:"line"`
	TargetDrawNo int   `json:"target_draw_no"`
	WeeklyUsed   int   `json:"weekly_used"`
	WeeklyLimit  int   `json:"weekly_limit"`
	IsFirstWeek  bool  `json:"is_first_week"`
}

// FreeService issues the weekly free line every tier gets.
type FreeService struct {
	picks  repo.FreePickRepo
	pools  *Service
	locker lock.Locker
	gen    *lotto.Generator
	log    *zap.Logger
	now    func() time.Time
}

func NewFreeService(picks repo.FreePickRepo, pools *Service, locker lock.Locker, gen *lotto.Generator, log *zap.Logger) *FreeService {
	return &FreeService{
		picks:  picks,
		pools:  pools,
		locker: locker,
		gen:    gen,
		log:    log.Named("free"),
		now:    time.Now,
	}
}

// WeekStart returns Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// weeklyLimit adds one extra pick during the first week after signup.
func weeklyLimit(u model.User, now time.Time) (int, bool) {
	limit := u.Tier.WeeklyFreeLimit()
	firstWeek := !u.CreatedAt.IsZero() && int(now.Sub(u.CreatedAt).Hours()/24) <= firstWeekDays
	if firstWeek {
		limit++
	}
	return limit, firstWeek
}

func (s *FreeService) Status(ctx context.Context, u model.User) (FreeStatus, error) {
	now := s.now()
	limit, firstWeek := weeklyLimit(u, now)
	picks, err := s.picks.ListSince(ctx, u.ID, WeekStart(now))
	if err != nil {
		return FreeStatus{}, err
	}
	lines := make([][]int, 0, len(picks))
	for _, p := range picks {
		lines = append(lines, p.Numbers)
	}
	remaining := limit - len(picks)
	if remaining < 0 {
		remaining = 0
	}
	return FreeStatus{
		WeeklyUsed:  len(picks),
		WeeklyLimit: limit,
		Remaining:   remaining,
		IsFirstWeek: firstWeek,
		Lines:       lines,
	}, nil
}

// Draw issues one free line if the weekly limit allows it.
func (s *FreeService) Draw(ctx context.Context, u model.User) (*FreePickResult, error) {
	key := "lotto:free:" + u.ID.String()
	token, ok, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("acquire free pick lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("release free pick lock", zap.Error(err))
		}
	}()

	st, err := s.Status(ctx, u)
	if err != nil {
		return nil, err
	}
	if st.WeeklyUsed >= st.WeeklyLimit {
		return nil, fmt.Errorf("%w (%d per week)", ErrWeeklyLimit, st.WeeklyLimit)
	}

	target, err := s.pools.TargetDrawNo(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.pools.Stats(ctx)
	if err != nil {
		return nil, err
	}
	line := s.gen.Generate(lotto.TierFree, stats, lotto.Settings{})[0]

	if _, err := s.picks.Create(ctx, model.FreePick{UserID: u.ID, TargetDrawNo: target, Numbers: line}); err != nil {
		return nil, err
	}
	s.log.Info("free pick issued", zap.String("user_id", u.ID.String()), zap.Int("target_draw_no", target))

	return &FreePickResult{
		Success:      true,
		Line:         line,
		TargetDrawNo: target,
		WeeklyUsed:   st.WeeklyUsed + 1,
		WeeklyLimit:  st.WeeklyLimit,
		IsFirstWeek:  st.IsFirstWeek,
	}, nil
}
