package lotto

import "sort"

const recentWindow = 20

// Draw is the part of an official draw the statistics need.
type Draw struct {
	No      int
	Numbers []int
	Bonus   int
}

// Stats holds per-number scores derived from draw history.
type Stats struct {
	// Scores blends long-run frequency, recent frequency and the gap since
	// a number was last drawn, each scaled to [0,1].
	Scores      map[int]float64
	MostCommon  []int
	LeastCommon []int
	BonusTop    []int
	// Counts is how often each number was drawn, bonus excluded.
	Counts map[int]int
	Draws  int
}

// BuildStats returns nil when there is no history.
func BuildStats(draws []Draw) *Stats {
	if len(draws) == 0 {
		return nil
	}
	ordered := append([]Draw(nil), draws...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].No > ordered[j].No })

	freq := make(map[int]float64, MaxNumber)
	recent := make(map[int]float64, MaxNumber)
	gap := make(map[int]float64, MaxNumber)
	bonus := make(map[int]float64, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		gap[n] = float64(len(ordered))
	}

	for i, d := range ordered {
		for _, n := range Normalize(d.Numbers) {
			if !InRange(n) {
				continue
			}
			freq[n]++
			if i < recentWindow {
				recent[n]++
			}
			if float64(i) < gap[n] {
				gap[n] = float64(i)
			}
		}
		if InRange(d.Bonus) {
			bonus[d.Bonus]++
		}
	}

	f, r, g := scale(freq), scale(recent), scale(gap)
	scores := make(map[int]float64, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		scores[n] = f[n]*0.33 + r[n]*0.33 + g[n]*0.34
	}

	st := &Stats{
		Scores:      scores,
		MostCommon:  rankBy(freq, true),
		LeastCommon: rankBy(freq, false),
		BonusTop:    rankBy(bonus, true),
		Counts:      make(map[int]int, MaxNumber),
		Draws:       len(ordered),
	}
	for n, c := range freq {
		st.Counts[n] = int(c)
	}
	return st
}

// Top returns the n highest scoring numbers, ties broken by the lower number.
func (s *Stats) Top(n int) []int {
	out := rankBy(s.Scores, true)
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Least returns the n least frequently drawn numbers.
func (s *Stats) Least(n int) []int {
	out := append([]int(nil), s.LeastCommon...)
	if n < len(out) {
		out = out[:n]
	}
	return out
}

func scale(m map[int]float64) map[int]float64 {
	max := 0.0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	out := make(map[int]float64, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		if max > 0 {
			out[n] = m[n] / max
		}
	}
	return out
}

func rankBy(m map[int]float64, desc bool) []int {
	nums := make([]int, 0, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		nums = append(nums, n)
	}
	sort.SliceStable(nums, func(i, j int) bool {
		a, b := m[nums[i]], m[nums[j]]
		if a == b {
			return nums[i] < nums[j]
		}
		if desc {
			return a > b
		}
		return a < b
	})
	return nums
}
