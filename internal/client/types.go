package client

import (
	"time"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
)

// Tokens is an access/refresh pair.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Profile is the cached signed-in user.
type Profile struct {
	UserID      string     `json:"user_id"`
	Identifier  string     `json:"identifier"`
	Name        *string    `json:"name"`
	PhoneNumber *string    `json:"phone_number"`
	Tier        lotto.Tier `json:"tier"`
	IsAdmin     bool       `json:"is_admin"`
	CreatedAt   time.Time  `json:"created_at"`
}

type authResponse struct {
	Tokens
	TokenType string  `json:"token_type"`
	ExpiresIn int     `json:"expires_in"`
	User      Profile `json:"user"`
}

// Draw fields are nil when the server has no draws yet.
type Draw struct {
	DrawNo   *int       `json:"draw_no"`
	Numbers  []int      `json:"numbers"`
	Bonus    *int       `json:"bonus"`
	DrawDate *time.Time `json:"draw_date"`
}

type MatchResponse struct {
	DrawNo         int           `json:"draw_no"`
	DrawDate       time.Time     `json:"draw_date"`
	WinningNumbers []int         `json:"winning_numbers"`
	Bonus          int           `json:"bonus"`
	Summary        lotto.Summary `json:"summary"`
}

// PoolStatus mirrors the server's pool view.
type PoolStatus struct {
	PoolExists    bool           `json:"pool_exists"`
	PoolTotal     int            `json:"pool_total"`
	RevealedCount int            `json:"revealed_count"`
	RevealedLines [][]int        `json:"revealed_lines"`
	AllRevealed   bool           `json:"all_revealed"`
	Settings      lotto.Settings `json:"settings"`
	TargetDrawNo  int            `json:"target_draw_no"`
	PlanType      lotto.Tier     `json:"plan_type"`
}

func (s PoolStatus) State() lotto.PoolState {
	return lotto.StateOf(s.PoolExists, s.RevealedCount, s.PoolTotal)
}

type RevealOneResult struct {
	PoolStatus
	Success bool   `json:"success"`
	Line    []int  `json:"line"`
	Message string `json:"message"`
}

type RevealAllResult struct {
	PoolStatus
	Success         bool    `json:"success"`
	Lines           [][]int `json:"lines"`
	AlreadyRevealed bool    `json:"already_revealed"`
}

type PreviousDraw struct {
	DrawNo         int                `json:"draw_no"`
	DrawDate       time.Time          `json:"draw_date"`
	WinningNumbers []int              `json:"winning_numbers"`
	Bonus          int                `json:"bonus"`
	MyLines        [][]int            `json:"my_lines"`
	MatchResults   []lotto.LineResult `json:"match_results"`
	Summary        lotto.Summary      `json:"summary"`
	HasData        bool               `json:"has_data"`
}

type MyLines struct {
	Items        [][]int       `json:"items"`
	TargetDrawNo int           `json:"target_draw_no"`
	PreviousDraw *PreviousDraw `json:"previous_draw"`
}

type PlanPerformance struct {
	lotto.Performance
	AvgMatchCount float64 `json:"avg_match_count"`
}

type FreeStatus struct {
	WeeklyUsed  int     `json:"weekly_used"`
	WeeklyLimit int     `json:"weekly_limit"`
	Remaining   int     `json:"remaining"`
	IsFirstWeek bool    `json:"is_first_week"`
	Lines       [][]int `json:"lines"`
}

type FreePick struct {
	Success      bool  `json:"success"`
	Line         []int `json:"line"`
	TargetDrawNo int   `json:"target_draw_no"`
	WeeklyUsed   int   `json:"weekly_used"`
	WeeklyLimit  int   `json:"weekly_limit"`
	IsFirstWeek  bool  `json:"is_first_week"`
}

type GuestDraw struct {
	Number       int   `json:"number"`
	AlreadyDrawn bool  `json:"alreadyDrawn"`
	TopNumbers   []int `json:"topNumbers"`
}

type HistoryItem struct {
	DrawNo         int                `json:"draw_no"`
	WinningNumbers []int              `json:"winning_numbers"`
	Bonus          int                `json:"bonus"`
	DrawDate       string             `json:"draw_date"`
	HasLines       bool               `json:"has_lines"`
	MyLines        [][]int            `json:"my_lines"`
	MatchResults   []lotto.LineResult `json:"match_results"`
	BestRank       *int               `json:"best_rank"`
}

type History struct {
	Items []HistoryItem `json:"items"`
	Meta  struct {
		Total         int        `json:"total"`
		Page          int        `json:"page"`
		PageSize      int        `json:"page_size"`
		RetentionDays int        `json:"retention_days"`
		Plan          lotto.Tier `json:"plan"`
	} `json:"meta"`
}

// HistoryOptions are sent as query parameters; zero values are omitted.
type HistoryOptions struct {
	Search   string
	Lines    string // all, yes or no
	Asc      bool
	Limit    int
	Page     int
	PageSize int
}

type StatsOverview struct {
	TotalDraws int   `json:"total_draws"`
	MostCommon []int `json:"most_common"`
	BonusTop   []int `json:"bonus_top"`
	OddRatio   int   `json:"odd_ratio"`
	EvenRatio  int   `json:"even_ratio"`
	AvgSum     int   `json:"avg_sum"`
}

type NumberCount struct {
	Number int `json:"number"`
	Count  int `json:"count"`
}
