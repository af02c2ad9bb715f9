package results

import (
	"context"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
)

const (
	statsDraws   = 5000
	patternDraws = 50
)

// Overview summarizes the draw history for the stats screen.
type Overview struct {
	TotalDraws int   `json:"total_draws"`
	MostCommon []int `json:"most_common"`
	BonusTop   []int `json:"bonus_top"`
	// OddRatio and EvenRatio describe an average line out of six over the
	// last 50 draws.
	OddRatio  int `json:"odd_ratio"`
	EvenRatio int `json:"even_ratio"`
	AvgSum    int `json:"avg_sum"`
}

type NumberCount struct {
	Number int `json:"number"`
	Count  int `json:"count"`
}

func (s *Service) stats(ctx context.Context) (*lotto.Stats, []lotto.Draw, error) {
	recent, err := s.draws.Recent(ctx, statsDraws)
	if err != nil {
		return nil, nil, err
	}
	draws := make([]lotto.Draw, 0, len(recent))
	for _, d := range recent {
		draws = append(draws, lotto.Draw{No: d.DrawNo, Numbers: d.Numbers, Bonus: d.Bonus})
	}
	return lotto.BuildStats(draws), draws, nil
}

// Overview returns a zero Overview when no draw is recorded.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	st, draws, err := s.stats(ctx)
	if err != nil || st == nil {
		return Overview{MostCommon: []int{}, BonusTop: []int{}, OddRatio: 3, EvenRatio: 3}, err
	}
	out := Overview{
		TotalDraws: st.Draws,
		MostCommon: st.MostCommon[:3],
		BonusTop:   st.BonusTop[:3],
	}

	// draws come back newest first
	if len(draws) > patternDraws {
		draws = draws[:patternDraws]
	}
	odd, total, sum := 0, 0, 0
	for _, d := range draws {
		for _, n := range d.Numbers {
			total++
			sum += n
			if n%2 == 1 {
				odd++
			}
		}
	}
	out.OddRatio = (odd*lotto.LineSize*2 + total) / (total * 2)
	out.EvenRatio = lotto.LineSize - out.OddRatio
	out.AvgSum = sum / len(draws)
	return out, nil
}

// NumberCounts returns the n most drawn numbers with their counts.
func (s *Service) NumberCounts(ctx context.Context, n int) ([]NumberCount, error) {
	st, _, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}
	out := []NumberCount{}
	if st == nil {
		return out, nil
	}
	for _, num := range st.MostCommon {
		if len(out) == n || st.Counts[num] == 0 {
			break
		}
		out = append(out, NumberCount{Number: num, Count: st.Counts[num]})
	}
	return out, nil
}
