package lotto

// PoolState is where a pool is in its reveal lifecycle.
type PoolState int

const (
	StateNoPool PoolState = iota
	StatePartial
	StateComplete
)

func (s PoolState) String() string {
	switch s {
	case StatePartial:
		return "PARTIAL"
	case StateComplete:
		return "COMPLETE"
	}
	return "NO_POOL"
}

// StateOf derives the state from pool counters.
// A regenerated pool with nothing revealed yet is PARTIAL(0).
func StateOf(exists bool, revealed, total int) PoolState {
	switch {
	case !exists:
		return StateNoPool
	case total > 0 && revealed >= total:
		return StateComplete
	}
	return StatePartial
}
