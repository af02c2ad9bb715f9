package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
)

const performancePools = 100

// PreviousDraw pairs the last official draw with the user's lines for it.
type PreviousDraw struct {
	DrawNo         int                `json:"draw_no"`
	DrawDate       time.Time          `json:"draw_date"`
	WinningNumbers []int              `json:"winning_numbers"`
	Bonus          int                `json:"bonus"`
	MyLines        [][]int            `json:"my_lines"`
	MatchResults   []lotto.LineResult `json:"match_results"`
	Summary        lotto.Summary      `json:"summary"`
	HasData        bool               `json:"has_data"`
}

// MyLines is the my-page view: revealed lines for the upcoming draw and
// results for the previous one.
type MyLines struct {
	Items        [][]int       `json:"items"`
	TargetDrawNo int           `json:"target_draw_no"`
	PreviousDraw *PreviousDraw `json:"previous_draw"`
}

type Service struct {
	draws repo.DrawRepo
	pools repo.PoolRepo
	log   *zap.Logger
	now   func() time.Time
}

func NewService(draws repo.DrawRepo, pools repo.PoolRepo, log *zap.Logger) *Service {
	return &Service{draws: draws, pools: pools, log: log.Named("results"), now: time.Now}
}

func (s *Service) MyLines(ctx context.Context, userID uuid.UUID) (MyLines, error) {
	out := MyLines{Items: [][]int{}, TargetDrawNo: 1}

	latest, err := s.draws.Latest(ctx)
	switch {
	case errors.Is(err, repo.ErrNotFound):
	case err != nil:
		return MyLines{}, err
	default:
		out.TargetDrawNo = latest.DrawNo + 1
	}

	current, err := s.pools.ListByUserAndDraw(ctx, userID, out.TargetDrawNo)
	if err != nil {
		return MyLines{}, err
	}
	for _, p := range current {
		out.Items = append(out.Items, p.RevealedLines()...)
	}

	if out.TargetDrawNo == 1 {
		return out, nil
	}

	prev, err := s.pools.ListByUserAndDraw(ctx, userID, latest.DrawNo)
	if err != nil {
		return MyLines{}, err
	}
	if best := largestPool(prev); best != nil {
		summary := lotto.Summarize(best.Lines, latest.Numbers, latest.Bonus)
		out.PreviousDraw = &PreviousDraw{
			DrawNo:         latest.DrawNo,
			DrawDate:       latest.DrawDate,
			WinningNumbers: latest.Numbers,
			Bonus:          latest.Bonus,
			MyLines:        best.Lines,
			MatchResults:   summary.Lines,
			Summary:        summary,
			HasData:        len(best.Lines) > 0,
		}
	}
	return out, nil
}

// largestPool picks the pool with the most lines when several plans
// were used for the same draw.
func largestPool(pools []model.Pool) *model.Pool {
	var best *model.Pool
	for i := range pools {
		if best == nil || len(pools[i].Lines) > len(best.Lines) {
			best = &pools[i]
		}
	}
	return best
}

// Performance aggregates revealed lines per plan across drawn rounds.
func (s *Service) Performance(ctx context.Context, userID uuid.UUID) ([]lotto.Performance, error) {
	pools, err := s.pools.ListByUser(ctx, userID, performancePools)
	if err != nil {
		return nil, err
	}

	draws := make(map[int]*model.Draw)
	byPlan := make(map[string]*lotto.Performance)
	for _, p := range pools {
		d, ok := draws[p.TargetDrawNo]
		if !ok {
			got, err := s.draws.Get(ctx, p.TargetDrawNo)
			switch {
			case errors.Is(err, repo.ErrNotFound):
			case err != nil:
				return nil, err
			default:
				d = &got
			}
			draws[p.TargetDrawNo] = d
		}
		if d == nil {
			continue
		}
		perf, ok := byPlan[p.PlanType]
		if !ok {
			perf = &lotto.Performance{PlanType: p.PlanType}
			byPlan[p.PlanType] = perf
		}
		perf.Add(lotto.Summarize(p.RevealedLines(), d.Numbers, d.Bonus))
	}

	out := make([]lotto.Performance, 0, len(byPlan))
	for _, perf := range byPlan {
		out = append(out, *perf)
	}
	sort.Slice(out, func(i, j int) bool { return planOrder(out[i].PlanType) < planOrder(out[j].PlanType) })
	return out, nil
}

func planOrder(plan string) int {
	for i, t := range []lotto.Tier{lotto.TierFree, lotto.TierBasic, lotto.TierPremium, lotto.TierVIP} {
		if t.PlanKey() == plan {
			return i
		}
	}
	return len(plan) + 100
}

// Check evaluates arbitrary lines against a recorded draw.
func (s *Service) Check(ctx context.Context, drawNo int, lines [][]int) (model.Draw, lotto.Summary, error) {
	for i, l := range lines {
		if err := lotto.ValidateLine(l); err != nil {
			return model.Draw{}, lotto.Summary{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	d, err := s.draws.Get(ctx, drawNo)
	if err != nil {
		return model.Draw{}, lotto.Summary{}, err
	}
	return d, lotto.Summarize(lines, d.Numbers, d.Bonus), nil
}
