package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
)

// User represents an account
type User struct {
	ID           uuid.UUID
	Identifier   string
	PasswordHash string
	Name         *string
	PhoneNumber  *string
	Tier         lotto.Tier
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshSession represents a refresh token session
type RefreshSession struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *uuid.UUID
}

// Draw is one official draw result
type Draw struct {
	DrawNo    int
	Numbers   []int
	Bonus     int
	DrawDate  time.Time
	CreatedAt time.Time
}

// Lotto converts the draw for statistics and matching.
func (d Draw) Lotto() lotto.Draw {
	return lotto.Draw{No: d.DrawNo, Numbers: d.Numbers, Bonus: d.Bonus}
}

// Pool is the set of lines a user is entitled to for one target draw and plan.
// Revealed holds indices into Lines in reveal order.
type Pool struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	TargetDrawNo int
	PlanType     string
	Lines        [][]int
	Revealed     []int
	Settings     lotto.Settings
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RevealedLines returns the revealed lines ordered by pool index.
func (p *Pool) RevealedLines() [][]int {
	idx := append([]int(nil), p.Revealed...)
	sort.Ints(idx)
	out := make([][]int, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(p.Lines) {
			out = append(out, p.Lines[i])
		}
	}
	return out
}

// IsRevealed reports whether index i has been revealed.
func (p *Pool) IsRevealed(i int) bool {
	for _, r := range p.Revealed {
		if r == i {
			return true
		}
	}
	return false
}

func (p *Pool) Complete() bool {
	return len(p.Lines) > 0 && len(p.Revealed) >= len(p.Lines)
}

// FreePick is one weekly free line issued to a user
type FreePick struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	TargetDrawNo int
	Numbers      []int
	CreatedAt    time.Time
}
