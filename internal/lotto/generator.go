package lotto

import (
	"math/rand"
	"sort"
	"sync"
)

const maxLineAttempts = 10

// band draws a number of lines from the top-N scored candidates.
type band struct {
	top   int
	lines int
}

var bandsByTier = map[Tier][]band{
	TierFree:    {{top: 15, lines: 1}},
	TierBasic:   {{top: 20, lines: 5}},
	TierPremium: {{top: 15, lines: 5}, {top: 10, lines: 4}},
	TierVIP:     {{top: 20, lines: 8}, {top: 15, lines: 6}, {top: 10, lines: 5}},
}

// Tiers that end their pool with a core line mixing top and cold numbers.
var coreLineTiers = map[Tier]bool{
	TierPremium: true,
	TierVIP:     true,
}

// Generator produces recommendation lines. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Intn returns a random int in [0,n).
func (g *Generator) Intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Intn(n)
}

func (g *Generator) sample(pool []int, k int) []int {
	cp := append([]int(nil), pool...)
	g.mu.Lock()
	for i := 0; i < k && i < len(cp); i++ {
		j := i + g.rnd.Intn(len(cp)-i)
		cp[i], cp[j] = cp[j], cp[i]
	}
	g.mu.Unlock()
	if k > len(cp) {
		k = len(cp)
	}
	return cp[:k]
}

// Generate builds the full pool for a tier. Settings are assumed validated.
// Fixed numbers appear on every line, excluded numbers on none.
// With nil stats the lines are uniformly random.
func (g *Generator) Generate(t Tier, st *Stats, s Settings) [][]int {
	s = s.Normalize()
	excluded := toSet(s.Exclude)
	fixed := make([]int, 0, len(s.Fixed))
	for _, n := range s.Fixed {
		if _, ex := excluded[n]; !ex && len(fixed) < LineSize-1 {
			fixed = append(fixed, n)
		}
	}
	blocked := toSet(append(append([]int(nil), s.Exclude...), fixed...))
	remaining := filter(allNumbers(), blocked)

	count := t.MaxLines()
	lines := make([][]int, 0, count)
	seen := make(map[string]struct{}, count)

	if st == nil {
		for len(lines) < count {
			lines = append(lines, g.line(fixed, remaining, remaining, seen))
		}
		return lines
	}

	bands, ok := bandsByTier[t]
	if !ok {
		bands = bandsByTier[TierFree]
	}
	for _, b := range bands {
		cands := filter(st.Top(b.top), blocked)
		for i := 0; i < b.lines && len(lines) < count; i++ {
			lines = append(lines, g.line(fixed, cands, remaining, seen))
		}
	}
	if coreLineTiers[t] && len(lines) < count {
		lines = append(lines, g.coreLine(st, fixed, blocked, remaining, seen))
	}
	for len(lines) < count {
		lines = append(lines, g.line(fixed, remaining, remaining, seen))
	}
	return lines
}

// line fills fixed up to six numbers from cands, falling back to the whole
// remaining range when cands is too small. Duplicates are retried.
func (g *Generator) line(fixed, cands, fallback []int, seen map[string]struct{}) []int {
	need := LineSize - len(fixed)
	var out []int
	for attempt := 0; attempt < maxLineAttempts; attempt++ {
		src := cands
		if len(src) < need {
			src = fallback
		}
		out = join(fixed, g.sample(src, need))
		key := FormatLine(out)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			return out
		}
	}
	return out
}

// coreLine takes up to four numbers from the top ten and fills the rest
// from the twenty least common.
func (g *Generator) coreLine(st *Stats, fixed []int, blocked map[int]struct{}, fallback []int, seen map[string]struct{}) []int {
	need := LineSize - len(fixed)
	hot := filter(st.Top(10), blocked)
	cold := filter(st.Least(20), blocked)

	var out []int
	for attempt := 0; attempt < maxLineAttempts; attempt++ {
		hotCount := 4
		if hotCount > need {
			hotCount = need
		}
		picks := g.sample(hot, hotCount)
		taken := toSet(append(append([]int(nil), picks...), fixed...))
		picks = append(picks, g.sample(filter(cold, taken), need-len(picks))...)
		if len(picks) < need {
			taken = toSet(append(append([]int(nil), picks...), fixed...))
			picks = append(picks, g.sample(filter(fallback, taken), need-len(picks))...)
		}
		out = join(fixed, picks)
		key := FormatLine(out)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			return out
		}
	}
	return out
}

// GuestPick returns one of the five best scored numbers along with those
// five. Without history any number may be drawn.
func (g *Generator) GuestPick(st *Stats) (int, []int) {
	if st == nil {
		all := allNumbers()
		return all[g.Intn(len(all))], all
	}
	top := st.Top(5)
	return top[g.Intn(len(top))], top
}

func allNumbers() []int {
	out := make([]int, 0, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		out = append(out, n)
	}
	return out
}

func filter(nums []int, drop map[int]struct{}) []int {
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		if _, ok := drop[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

func join(fixed, picks []int) []int {
	out := make([]int, 0, LineSize)
	out = append(out, fixed...)
	out = append(out, picks...)
	sort.Ints(out)
	return out
}
