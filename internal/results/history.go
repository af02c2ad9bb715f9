package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
)

const (
	defaultHistoryLimit    = 100
	maxHistoryLimit        = 500
	defaultHistoryPageSize = 10
	maxHistoryPageSize     = 100
	historyPools           = 1000
)

var ErrInvalidQuery = errors.New("invalid history query")

// HistoryQuery filters the history list. Zero values take the defaults.
type HistoryQuery struct {
	// Search matches against the draw number or its winning numbers.
	Search string
	// Lines is "all", "yes" (only draws the user had lines for) or "no".
	Lines    string
	Asc      bool
	Limit    int
	Page     int
	PageSize int
}

func (q *HistoryQuery) normalize() error {
	q.Search = strings.TrimSpace(q.Search)
	switch q.Lines = strings.ToLower(strings.TrimSpace(q.Lines)); q.Lines {
	case "":
		q.Lines = "all"
	case "all", "yes", "no":
	default:
		return fmt.Errorf("%w: lines must be all, yes or no", ErrInvalidQuery)
	}
	if q.Limit == 0 {
		q.Limit = defaultHistoryLimit
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = defaultHistoryPageSize
	}
	switch {
	case q.Limit < 1 || q.Limit > maxHistoryLimit:
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, maxHistoryLimit)
	case q.Page < 1:
		return fmt.Errorf("%w: page must be positive", ErrInvalidQuery)
	case q.PageSize < 1 || q.PageSize > maxHistoryPageSize:
		return fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidQuery, maxHistoryPageSize)
	}
	return nil
}

// HistoryItem is one past draw with the user's lines for it, if any.
type HistoryItem struct {
	DrawNo         int                `json:"draw_no"`
	WinningNumbers []int              `json:"winning_numbers"`
	Bonus          int                `json:"bonus"`
	DrawDate       string             `json:"draw_date"`
	HasLines       bool               `json:"has_lines"`
	MyLines        [][]int            `json:"my_lines"`
	MatchResults   []lotto.LineResult `json:"match_results"`
	BestRank       *int               `json:"best_rank"`
}

type HistoryMeta struct {
	Total         int        `json:"total"`
	Page          int        `json:"page"`
	PageSize      int        `json:"page_size"`
	RetentionDays int        `json:"retention_days"`
	Plan          lotto.Tier `json:"plan"`
}

type History struct {
	Items []HistoryItem `json:"items"`
	Meta  HistoryMeta   `json:"meta"`
}

// History lists past draws inside the tier's retention window with the
// user's revealed lines and how they scored.
func (s *Service) History(ctx context.Context, user model.User, q HistoryQuery) (History, error) {
	if err := q.normalize(); err != nil {
		return History{}, err
	}
	out := History{
		Items: []HistoryItem{},
		Meta: HistoryMeta{
			Page:          q.Page,
			PageSize:      q.PageSize,
			RetentionDays: user.Tier.HistoryDays(),
			Plan:          user.Tier,
		},
	}

	recent, err := s.draws.Recent(ctx, q.Limit)
	if err != nil {
		return History{}, err
	}
	cutoff := user.Tier.HistoryCutoff(s.now())
	draws := recent[:0:0]
	for _, d := range recent {
		if !d.DrawDate.Before(cutoff) {
			draws = append(draws, d)
		}
	}
	if len(draws) == 0 {
		return out, nil
	}

	pools, err := s.pools.ListByUser(ctx, user.ID, historyPools)
	if err != nil {
		return History{}, err
	}
	byDraw := make(map[int][]model.Pool)
	for _, p := range pools {
		byDraw[p.TargetDrawNo] = append(byDraw[p.TargetDrawNo], p)
	}

	for _, d := range draws {
		item := HistoryItem{
			DrawNo:         d.DrawNo,
			WinningNumbers: d.Numbers,
			Bonus:          d.Bonus,
			DrawDate:       d.DrawDate.Format("2006-01-02"),
		}
		if best := largestPool(byDraw[d.DrawNo]); best != nil {
			if lines := best.RevealedLines(); len(lines) > 0 {
				sum := lotto.Summarize(lines, d.Numbers, d.Bonus)
				item.HasLines = true
				item.MyLines = lines
				item.MatchResults = sum.Lines
				item.BestRank = sum.BestRank
			}
		}
		if !q.keep(item) {
			continue
		}
		out.Items = append(out.Items, item)
	}

	sort.Slice(out.Items, func(i, j int) bool {
		if q.Asc {
			return out.Items[i].DrawNo < out.Items[j].DrawNo
		}
		return out.Items[i].DrawNo > out.Items[j].DrawNo
	})

	out.Meta.Total = len(out.Items)
	start := (q.Page - 1) * q.PageSize
	if start > len(out.Items) {
		start = len(out.Items)
	}
	end := start + q.PageSize
	if end > len(out.Items) {
		end = len(out.Items)
	}
	out.Items = out.Items[start:end]

	s.log.Debug("history",
		zap.String("user_id", user.ID.String()),
		zap.Int("total", out.Meta.Total),
		zap.Int("retention_days", out.Meta.RetentionDays),
	)
	return out, nil
}

func (q HistoryQuery) keep(item HistoryItem) bool {
	switch {
	case q.Lines == "yes" && !item.HasLines:
		return false
	case q.Lines == "no" && item.HasLines:
		return false
	}
	if q.Search == "" {
		return true
	}
	if strings.Contains(strconv.Itoa(item.DrawNo), q.Search) {
		return true
	}
	return strings.Contains(lotto.FormatLine(item.WinningNumbers), q.Search)
}
