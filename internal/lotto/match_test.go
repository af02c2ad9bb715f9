package lotto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestEvaluate_scenarios(t *testing.T) {
	winning := []int{1, 3, 17, 26, 27, 42}

	tests := []struct {
		name       string
		pick       []int
		bonus      int
		wantCount  int
		wantBonus  bool
		wantRank   *int
		wantNumber []int
	}{
		{"jackpot", []int{1, 3, 17, 26, 27, 42}, 23, 6, false, intPtr(1), []int{1, 3, 17, 26, 27, 42}},
		{"five_plus_bonus", []int{1, 3, 17, 26, 27, 44}, 44, 5, true, intPtr(2), []int{1, 3, 17, 26, 27}},
		{"five_no_bonus", []int{1, 3, 17, 26, 27, 44}, 9, 5, false, intPtr(3), []int{1, 3, 17, 26, 27}},
		{"four", []int{1, 3, 17, 26, 30, 44}, 9, 4, false, intPtr(4), []int{1, 3, 17, 26}},
		{"three", []int{1, 3, 17, 20, 30, 44}, 9, 3, false, intPtr(5), []int{1, 3, 17}},
		{"two", []int{1, 3, 16, 20, 30, 44}, 9, 2, false, nil, []int{1, 3}},
		{"none", []int{2, 9, 16, 20, 30, 40}, 23, 0, false, nil, []int{}},
		{"bonus_alone_never_promotes", []int{2, 9, 16, 20, 30, 23}, 23, 0, true, nil, []int{}},
		{"unsorted_pick", []int{42, 27, 26, 17, 3, 1}, 23, 6, false, intPtr(1), []int{1, 3, 17, 26, 27, 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.pick, winning, tt.bonus)
			assert.Equal(t, tt.wantCount, got.MatchCount)
			assert.Equal(t, tt.wantBonus, got.BonusMatch)
			assert.Equal(t, tt.wantNumber, got.MatchedNumbers)
			if tt.wantRank == nil {
				assert.Nil(t, got.Rank)
				assert.False(t, got.HasPrize())
			} else {
				require.NotNil(t, got.Rank)
				assert.Equal(t, *tt.wantRank, *got.Rank)
			}
		})
	}
}

func TestEvaluate_duplicatePickCountsOnce(t *testing.T) {
	got := Evaluate([]int{1, 1, 1, 3, 3, 3}, []int{1, 3, 17, 26, 27, 42}, 23)
	assert.Equal(t, 2, got.MatchCount)
	assert.Equal(t, []int{1, 3}, got.MatchedNumbers)
	assert.Nil(t, got.Rank)
}

func TestEvaluate_isPure(t *testing.T) {
	pick := []int{5, 1, 27, 26, 3, 44}
	winning := []int{1, 3, 17, 26, 27, 42}
	a := Evaluate(pick, winning, 44)
	b := Evaluate(pick, winning, 44)
	assert.Equal(t, a, b)
	assert.Equal(t, []int{5, 1, 27, 26, 3, 44}, pick, "input must not be reordered")
}

func TestEvaluate_matchCountIsIntersectionSize(t *testing.T) {
	g := NewGenerator(7)
	for i := 0; i < 200; i++ {
		pick := g.sample(allNumbers(), LineSize)
		winning := g.sample(allNumbers(), LineSize)
		want := 0
		ws := toSet(winning)
		for _, n := range pick {
			if _, ok := ws[n]; ok {
				want++
			}
		}
		assert.Equal(t, want, Evaluate(pick, winning, 45).MatchCount)
	}
}

func TestRankFor(t *testing.T) {
	tests := []struct {
		count int
		bonus bool
		rank  int
		ok    bool
	}{
		{6, false, 1, true},
		{6, true, 1, true},
		{5, true, 2, true},
		{5, false, 3, true},
		{4, true, 4, true},
		{3, false, 5, true},
		{2, true, 0, false},
		{0, true, 0, false},
	}
	for _, tt := range tests {
		rank, ok := RankFor(tt.count, tt.bonus)
		assert.Equal(t, tt.ok, ok, "count=%d bonus=%v", tt.count, tt.bonus)
		assert.Equal(t, tt.rank, rank, "count=%d bonus=%v", tt.count, tt.bonus)
	}
}

func TestMatchResult_Band(t *testing.T) {
	assert.Equal(t, BandMuted, MatchResult{MatchCount: 0}.Band())
	assert.Equal(t, BandSmall, MatchResult{MatchCount: 1}.Band())
	assert.Equal(t, BandSmall, MatchResult{MatchCount: 2}.Band())
	assert.Equal(t, BandBig, MatchResult{MatchCount: 3}.Band())
	assert.Equal(t, BandBig, MatchResult{MatchCount: 6}.Band())
}

func TestSummarize(t *testing.T) {
	winning := []int{1, 3, 17, 26, 27, 42}
	lines := [][]int{
		{1, 3, 17, 26, 27, 44},
		{2, 9, 16, 20, 30, 40},
		{1, 3, 17, 20, 30, 40},
	}
	s := Summarize(lines, winning, 44)
	require.Len(t, s.Lines, 3)
	assert.Equal(t, 8, s.TotalMatchCount)
	assert.InDelta(t, 8.0/3.0, s.AvgMatchCount, 1e-9)
	require.NotNil(t, s.BestRank)
	assert.Equal(t, 2, *s.BestRank)

	empty := Summarize(nil, winning, 44)
	assert.Nil(t, empty.BestRank)
	assert.Zero(t, empty.AvgMatchCount)
}

func TestPerformance_Add(t *testing.T) {
	winning := []int{1, 3, 17, 26, 27, 42}
	var p Performance
	p.Add(Summarize([][]int{
		{1, 3, 17, 26, 27, 44}, // 5 + bonus
		{1, 3, 17, 26, 27, 45}, // 5
		{2, 9, 16, 20, 30, 40}, // 0
	}, winning, 44))
	p.Add(Summarize([][]int{{1, 3, 17, 26, 27, 42}}, winning, 44))

	assert.Equal(t, 4, p.TotalLines)
	assert.Equal(t, 1, p.Match5Bonus)
	assert.Equal(t, 1, p.Match5)
	assert.Equal(t, 1, p.Match0)
	assert.Equal(t, 1, p.Match6)
	require.NotNil(t, p.BestRank)
	assert.Equal(t, 1, *p.BestRank)
	assert.InDelta(t, 16.0/4.0, p.AvgMatchCount(), 1e-9)
}
