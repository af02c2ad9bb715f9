package repo

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func toInt64s(nums []int) pq.Int64Array {
	out := make(pq.Int64Array, len(nums))
	for i, n := range nums {
		out[i] = int64(n)
	}
	return out
}

func toInts(nums pq.Int64Array) []int {
	out := make([]int, len(nums))
	for i, n := range nums {
		out[i] = int(n)
	}
	return out
}
