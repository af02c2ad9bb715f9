package lotto

// LineResult pairs a line with its match outcome.
type LineResult struct {
	Numbers []int `json:"numbers"`
	MatchResult
}

// Summary aggregates the results of several lines against one draw.
type Summary struct {
	Lines           []LineResult `json:"lines"`
	TotalMatchCount int          `json:"total_match_count"`
	AvgMatchCount   float64      `json:"avg_match_count"`
	BestRank        *int         `json:"best_rank"`
}

// Summarize evaluates every line against winning/bonus.
func Summarize(lines [][]int, winning []int, bonus int) Summary {
	s := Summary{Lines: make([]LineResult, 0, len(lines))}
	for _, line := range lines {
		res := Evaluate(line, winning, bonus)
		s.Lines = append(s.Lines, LineResult{Numbers: Normalize(line), MatchResult: res})
		s.TotalMatchCount += res.MatchCount
		if res.Rank != nil && (s.BestRank == nil || *res.Rank < *s.BestRank) {
			r := *res.Rank
			s.BestRank = &r
		}
	}
	if len(lines) > 0 {
		s.AvgMatchCount = float64(s.TotalMatchCount) / float64(len(lines))
	}
	return s
}

// Performance accumulates match buckets across summaries for one plan.
// A five-match line with the bonus is counted in Match5Bonus only.
type Performance struct {
	PlanType    string `json:"plan_type"`
	TotalLines  int    `json:"total_lines"`
	TotalMatch  int    `json:"total_match"`
	Match0      int    `json:"match_0"`
	Match1      int    `json:"match_1"`
	Match2      int    `json:"match_2"`
	Match3      int    `json:"match_3"`
	Match4      int    `json:"match_4"`
	Match5      int    `json:"match_5"`
	Match5Bonus int    `json:"match_5_bonus"`
	Match6      int    `json:"match_6"`
	BestRank    *int   `json:"best_rank"`
}

func (p *Performance) Add(s Summary) {
	for _, l := range s.Lines {
		p.TotalLines++
		p.TotalMatch += l.MatchCount
		switch l.MatchCount {
		case 0:
			p.Match0++
		case 1:
			p.Match1++
		case 2:
			p.Match2++
		case 3:
			p.Match3++
		case 4:
			p.Match4++
		case 5:
			if l.BonusMatch {
				p.Match5Bonus++
			} else {
				p.Match5++
			}
		default:
			p.Match6++
		}
	}
	if s.BestRank != nil && (p.BestRank == nil || *s.BestRank < *p.BestRank) {
		r := *s.BestRank
		p.BestRank = &r
	}
}

// AvgMatchCount is the mean match count per line, 0 when empty.
func (p Performance) AvgMatchCount() float64 {
	if p.TotalLines == 0 {
		return 0
	}
	return float64(p.TotalMatch) / float64(p.TotalLines)
}
