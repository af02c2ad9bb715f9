package lotto

// Band groups a match count for result feedback.
type Band int

const (
	BandMuted Band = iota // no numbers matched
	BandSmall             // 1-2 matched
	BandBig               // 3 or more matched
)

// MatchResult is the outcome of checking one line against a draw.
type MatchResult struct {
	MatchedNumbers []int `json:"matched_numbers"`
	MatchCount     int   `json:"match_count"`
	BonusMatch     bool  `json:"bonus_match"`
	Rank           *int  `json:"rank"`
}

// Evaluate compares pick against the winning numbers and bonus.
// Picks are treated as sets, so a repeated number is only counted once.
func Evaluate(pick, winning []int, bonus int) MatchResult {
	win := toSet(winning)
	matched := make([]int, 0, LineSize)
	bonusMatch := false
	for _, n := range Normalize(pick) {
		if _, ok := win[n]; ok {
			matched = append(matched, n)
		}
		if n == bonus {
			bonusMatch = true
		}
	}

	res := MatchResult{
		MatchedNumbers: matched,
		MatchCount:     len(matched),
		BonusMatch:     bonusMatch,
	}
	if rank, ok := RankFor(res.MatchCount, bonusMatch); ok {
		res.Rank = &rank
	}
	return res
}

// RankFor maps a match count and bonus flag to a prize rank.
// The bonus only matters for five matches.
func RankFor(matchCount int, bonusMatch bool) (int, bool) {
	switch {
	case matchCount >= 6:
		return 1, true
	case matchCount == 5 && bonusMatch:
		return 2, true
	case matchCount == 5:
		return 3, true
	case matchCount == 4:
		return 4, true
	case matchCount == 3:
		return 5, true
	}
	return 0, false
}

// HasPrize reports whether the line won any rank.
func (r MatchResult) HasPrize() bool {
	return r.Rank != nil
}

func (r MatchResult) Band() Band {
	switch {
	case r.MatchCount >= 3:
		return BandBig
	case r.MatchCount > 0:
		return BandSmall
	}
	return BandMuted
}
