package lotto

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	MinNumber = 1
	MaxNumber = 45
	LineSize  = 6
)

var (
	ErrInvalidLine = errors.New("line must contain 6 distinct numbers between 1 and 45")
	ErrNumberRange = errors.New("number out of range 1-45")
)

// InRange reports whether n is a valid ball number.
func InRange(n int) bool {
	return n >= MinNumber && n <= MaxNumber
}

// ValidateLine checks that nums is exactly six distinct numbers in range.
func ValidateLine(nums []int) error {
	if len(nums) != LineSize {
		return ErrInvalidLine
	}
	seen := make(map[int]struct{}, LineSize)
	for _, n := range nums {
		if !InRange(n) {
			return ErrInvalidLine
		}
		if _, dup := seen[n]; dup {
			return ErrInvalidLine
		}
		seen[n] = struct{}{}
	}
	return nil
}

// Normalize returns the distinct values of nums in ascending order.
// The result is never nil.
func Normalize(nums []int) []int {
	out := make([]int, 0, len(nums))
	seen := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// ParseNumbers parses a stored line such as "1, 3, 17, 26, 27, 42".
func ParseNumbers(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	nums := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("parse number %q: %w", f, err)
		}
		if !InRange(n) {
			return nil, fmt.Errorf("%w: %d", ErrNumberRange, n)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

// FormatLine renders a line in ascending order, comma separated.
func FormatLine(nums []int) string {
	sorted := append([]int(nil), nums...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func toSet(nums []int) map[int]struct{} {
	set := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		set[n] = struct{}{}
	}
	return set
}
