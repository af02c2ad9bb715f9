package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
)

func (c *Client) Latest(ctx context.Context) (*Draw, error) {
	var d Draw
	if err := c.Do(ctx, http.MethodGet, "/api/lotto/latest", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Draw(ctx context.Context, drawNo int) (*Draw, error) {
	var d Draw
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/lotto/draws/%d", drawNo), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Match checks lines against a draw. drawNo 0 means the latest draw.
func (c *Client) Match(ctx context.Context, drawNo int, lines [][]int) (*MatchResponse, error) {
	var out MatchResponse
	err := c.Do(ctx, http.MethodPost, "/api/lotto/match", map[string]any{
		"draw_no": drawNo,
		"lines":   lines,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Plans(ctx context.Context) ([]lotto.Plan, error) {
	var out struct {
		Plans []lotto.Plan `json:"plans"`
	}
	if err := c.Do(ctx, http.MethodGet, "/api/lotto/plans", nil, &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

func (c *Client) PoolStatus(ctx context.Context) (*PoolStatus, error) {
	var st PoolStatus
	if err := c.Do(ctx, http.MethodGet, "/api/lotto/recommend/pool-status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func revealPath(advanced bool, which string) string {
	if advanced {
		return "/api/lotto/recommend/advanced/" + which
	}
	return "/api/lotto/recommend/" + which
}

func settingsBody(s lotto.Settings) map[string][]int {
	n := s.Normalize()
	return map[string][]int{"exclude": n.Exclude, "fixed": n.Fixed}
}

// RevealOne reveals the next line of the pool. Advanced routes require a
// paid tier that allows exclude/fixed settings.
func (c *Client) RevealOne(ctx context.Context, settings lotto.Settings, advanced bool) (*RevealOneResult, error) {
	var out RevealOneResult
	if err := c.Do(ctx, http.MethodPost, revealPath(advanced, "one"), settingsBody(settings), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RevealAll(ctx context.Context, settings lotto.Settings, advanced bool) (*RevealAllResult, error) {
	var out RevealAllResult
	if err := c.Do(ctx, http.MethodPost, revealPath(advanced, "all"), settingsBody(settings), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyLines(ctx context.Context) (*MyLines, error) {
	var out MyLines
	if err := c.Do(ctx, http.MethodGet, "/api/lotto/mypage/lines", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Performance(ctx context.Context) ([]PlanPerformance, error) {
	var out struct {
		Items []PlanPerformance `json:"items"`
	}
	if err := c.Do(ctx, http.MethodGet, "/api/lotto/mypage/performance", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) History(ctx context.Context, opts HistoryOptions) (*History, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("q", opts.Search)
	}
	if opts.Lines != "" {
		q.Set("lines", opts.Lines)
	}
	if opts.Asc {
		q.Set("sort", "asc")
	}
	for name, v := range map[string]int{"limit": opts.Limit, "page": opts.Page, "page_size": opts.PageSize} {
		if v != 0 {
			q.Set(name, strconv.Itoa(v))
		}
	}
	path := "/api/lotto/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out History
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StatsOverview(ctx context.Context) (*StatsOverview, error) {
	var out StatsOverview
	if err := c.Do(ctx, http.MethodGet, "/api/lotto/stats/overview", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) NumberStats(ctx context.Context) ([]NumberCount, error) {
	var out struct {
		Items []NumberCount `json:"items"`
	}
	if err := c.Do(ctx, http.MethodGet, "/api/lotto/stats/number", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) FreeStatus(ctx context.Context) (*FreeStatus, error) {
	var out FreeStatus
	if err := c.Do(ctx, http.MethodGet, "/api/lotto/recommend/free/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FreeDraw takes this week's free line. A used-up quota comes back as 429.
func (c *Client) FreeDraw(ctx context.Context) (*FreePick, error) {
	var out FreePick
	if err := c.Do(ctx, http.MethodPost, "/api/lotto/recommend/free", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GuestDraw(ctx context.Context) (*GuestDraw, error) {
	var out GuestDraw
	if err := c.Do(ctx, http.MethodPost, "/api/guest/draw", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminPutDraw records a draw result. drawDate is YYYY-MM-DD or empty for today.
func (c *Client) AdminPutDraw(ctx context.Context, drawNo int, numbers []int, bonus int, drawDate string) (*Draw, error) {
	var out Draw
	err := c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/admin/draws/%d", drawNo), map[string]any{
		"numbers":   numbers,
		"bonus":     bonus,
		"draw_date": drawDate,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminSetTier(ctx context.Context, userID string, tier lotto.Tier) (*Profile, error) {
	var out Profile
	err := c.Do(ctx, http.MethodPatch, "/api/admin/users/"+userID+"/tier", map[string]string{"tier": string(tier)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
