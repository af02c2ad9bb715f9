package lotto

import (
	"errors"
	"fmt"
)

var (
	ErrExcludeLimit    = errors.New("too many excluded numbers")
	ErrFixedLimit      = errors.New("too many fixed numbers")
	ErrSettingsOverlap = errors.New("a number cannot be both excluded and fixed")
)

// Settings are the user's exclude/fixed choices for a pool.
type Settings struct {
	Exclude []int `json:"exclude"`
	Fixed   []int `json:"fixed"`
}

// Normalize dedups and sorts both lists. The lists are never nil afterwards.
func (s Settings) Normalize() Settings {
	return Settings{Exclude: Normalize(s.Exclude), Fixed: Normalize(s.Fixed)}
}

func (s Settings) IsEmpty() bool {
	return len(s.Exclude) == 0 && len(s.Fixed) == 0
}

// Equal compares normalized settings.
func (s Settings) Equal(o Settings) bool {
	a, b := s.Normalize(), o.Normalize()
	return intsEqual(a.Exclude, b.Exclude) && intsEqual(a.Fixed, b.Fixed)
}

// Validate enforces range, tier limits and disjointness.
func (s Settings) Validate(t Tier) error {
	n := s.Normalize()
	for _, v := range append(append([]int(nil), n.Exclude...), n.Fixed...) {
		if !InRange(v) {
			return fmt.Errorf("%w: %d", ErrNumberRange, v)
		}
	}
	if len(n.Exclude) > t.MaxExclude() {
		return fmt.Errorf("%w: %s allows at most %d", ErrExcludeLimit, t, t.MaxExclude())
	}
	if len(n.Fixed) > t.MaxFixed() {
		return fmt.Errorf("%w: %s allows at most %d", ErrFixedLimit, t, t.MaxFixed())
	}
	ex := toSet(n.Exclude)
	for _, v := range n.Fixed {
		if _, ok := ex[v]; ok {
			return fmt.Errorf("%w: %d", ErrSettingsOverlap, v)
		}
	}
	return nil
}

// ToggleExclude adds or removes v from the exclude list.
// Adding evicts v from the fixed list.
func (s Settings) ToggleExclude(v int, t Tier) (Settings, error) {
	n := s.Normalize()
	if !InRange(v) {
		return n, fmt.Errorf("%w: %d", ErrNumberRange, v)
	}
	if contains(n.Exclude, v) {
		n.Exclude = without(n.Exclude, v)
		return n, nil
	}
	if len(n.Exclude) >= t.MaxExclude() {
		return n, fmt.Errorf("%w: %s allows at most %d", ErrExcludeLimit, t, t.MaxExclude())
	}
	n.Exclude = Normalize(append(n.Exclude, v))
	n.Fixed = without(n.Fixed, v)
	return n, nil
}

// ToggleFixed adds or removes v from the fixed list.
// Adding evicts v from the exclude list.
func (s Settings) ToggleFixed(v int, t Tier) (Settings, error) {
	n := s.Normalize()
	if !InRange(v) {
		return n, fmt.Errorf("%w: %d", ErrNumberRange, v)
	}
	if contains(n.Fixed, v) {
		n.Fixed = without(n.Fixed, v)
		return n, nil
	}
	if len(n.Fixed) >= t.MaxFixed() {
		return n, fmt.Errorf("%w: %s allows at most %d", ErrFixedLimit, t, t.MaxFixed())
	}
	n.Fixed = Normalize(append(n.Fixed, v))
	n.Exclude = without(n.Exclude, v)
	return n, nil
}

// SettingsDiff lists what changed between two settings.
type SettingsDiff struct {
	ExcludeAdded   []int `json:"exclude_added"`
	ExcludeRemoved []int `json:"exclude_removed"`
	FixedAdded     []int `json:"fixed_added"`
	FixedRemoved   []int `json:"fixed_removed"`
}

func (d SettingsDiff) Empty() bool {
	return len(d.ExcludeAdded)+len(d.ExcludeRemoved)+len(d.FixedAdded)+len(d.FixedRemoved) == 0
}

// DiffSettings reports the changes needed to go from base to next.
func DiffSettings(base, next Settings) SettingsDiff {
	b, n := base.Normalize(), next.Normalize()
	return SettingsDiff{
		ExcludeAdded:   minus(n.Exclude, b.Exclude),
		ExcludeRemoved: minus(b.Exclude, n.Exclude),
		FixedAdded:     minus(n.Fixed, b.Fixed),
		FixedRemoved:   minus(b.Fixed, n.Fixed),
	}
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(nums []int, v int) bool {
	for _, n := range nums {
		if n == v {
			return true
		}
	}
	return false
}

func without(nums []int, v int) []int {
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		if n != v {
			out = append(out, n)
		}
	}
	return out
}

func minus(a, b []int) []int {
	drop := toSet(b)
	out := []int{}
	for _, n := range a {
		if _, ok := drop[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
