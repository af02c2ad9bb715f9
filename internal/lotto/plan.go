package lotto

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tier is a subscription level. Values are uppercase on the wire.
type Tier string

const (
	TierFree    Tier = "FREE"
	TierBasic   Tier = "BASIC"
	TierPremium Tier = "PREMIUM"
	TierVIP     Tier = "VIP"
)

var ErrUnknownTier = errors.New("unknown tier")

type tierLimits struct {
	lines      int
	exclude    int
	fixed      int
	weeklyFree int
	// historyDays is how far back the history screen reaches.
	historyDays int
}

var limitsByTier = map[Tier]tierLimits{
	TierFree:    {lines: 1, exclude: 0, fixed: 0, weeklyFree: 1, historyDays: 14},
	TierBasic:   {lines: 5, exclude: 0, fixed: 0, weeklyFree: 2, historyDays: 30},
	TierPremium: {lines: 10, exclude: 2, fixed: 2, weeklyFree: 5, historyDays: 60},
	TierVIP:     {lines: 20, exclude: 3, fixed: 3, weeklyFree: 10, historyDays: 90},
}

// ParseTier accepts any case. An empty string is FREE.
func ParseTier(s string) (Tier, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return TierFree, nil
	}
	t := Tier(s)
	if _, ok := limitsByTier[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

func (t Tier) limits() tierLimits {
	if l, ok := limitsByTier[t]; ok {
		return l
	}
	return limitsByTier[TierFree]
}

// MaxLines is the number of lines in a pool for this tier.
func (t Tier) MaxLines() int { return t.limits().lines }

func (t Tier) MaxExclude() int { return t.limits().exclude }

func (t Tier) MaxFixed() int { return t.limits().fixed }

// WeeklyFreeLimit is the number of free picks per week, before any first-week bonus.
func (t Tier) WeeklyFreeLimit() int { return t.limits().weeklyFree }

func (t Tier) HistoryDays() int { return t.limits().historyDays }

// HistoryCutoff is the earliest draw date the tier may browse as of now.
func (t Tier) HistoryCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -t.HistoryDays())
}

// AllowsAdvanced reports whether the tier may set exclude or fixed numbers.
func (t Tier) AllowsAdvanced() bool {
	l := t.limits()
	return l.exclude > 0 || l.fixed > 0
}

// PlanKey is the lowercase key pools are stored under.
func (t Tier) PlanKey() string { return strings.ToLower(string(t)) }

func (t Tier) String() string { return string(t) }

// Plan is a purchasable subscription.
type Plan struct {
	Tier  Tier `json:"tier"`
	Lines int  `json:"lines"`
	Price int  `json:"price"`
}

// Plans returns the paid plan catalogue. Prices are in KRW.
func Plans() []Plan {
	return []Plan{
		{Tier: TierBasic, Lines: TierBasic.MaxLines(), Price: 4900},
		{Tier: TierPremium, Lines: TierPremium.MaxLines(), Price: 9900},
		{Tier: TierVIP, Lines: TierVIP.MaxLines(), Price: 13900},
	}
}
