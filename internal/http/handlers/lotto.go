package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
	"github.com/qwmll19-cmd/ai-lotto/internal/pool"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
	"github.com/qwmll19-cmd/ai-lotto/internal/results"
)

// LottoHandler serves draw data, line checks, plans, my-page and the guest draw.
type LottoHandler struct {
	draws   repo.DrawRepo
	results *results.Service
	pools   *pool.Service
	log     *zap.Logger
}

func NewLottoHandler(draws repo.DrawRepo, res *results.Service, pools *pool.Service, log *zap.Logger) *LottoHandler {
	return &LottoHandler{draws: draws, results: res, pools: pools, log: log.Named("lotto_handler")}
}

// drawResponse fields are null when no draw is recorded.
type drawResponse struct {
	DrawNo   *int       `json:"draw_no"`
	Numbers  []int      `json:"numbers"`
	Bonus    *int       `json:"bonus"`
	DrawDate *time.Time `json:"draw_date"`
}

func toDrawResponse(d model.Draw) drawResponse {
	return drawResponse{DrawNo: &d.DrawNo, Numbers: d.Numbers, Bonus: &d.Bonus, DrawDate: &d.DrawDate}
}

// HandleLatest handles GET /api/lotto/latest
func (h *LottoHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	d, err := h.draws.Latest(r.Context())
	if errors.Is(err, repo.ErrNotFound) {
		respondJSON(w, http.StatusOK, drawResponse{})
		return
	}
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toDrawResponse(d))
}

func drawNoParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	no, err := strconv.Atoi(chi.URLParam(r, "drawNo"))
	if err != nil || no < 1 {
		respondWithError(w, http.StatusBadRequest, "drawNo must be a positive integer")
		return 0, false
	}
	return no, true
}

// HandleDraw handles GET /api/lotto/draws/{drawNo}
func (h *LottoHandler) HandleDraw(w http.ResponseWriter, r *http.Request) {
	no, ok := drawNoParam(w, r)
	if !ok {
		return
	}
	d, err := h.draws.Get(r.Context(), no)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toDrawResponse(d))
}

type matchRequest struct {
	DrawNo int     `json:"draw_no"`
	Lines  [][]int `json:"lines"`
}

type matchResponse struct {
	DrawNo         int           `json:"draw_no"`
	DrawDate       time.Time     `json:"draw_date"`
	WinningNumbers []int         `json:"winning_numbers"`
	Bonus          int           `json:"bonus"`
	Summary        lotto.Summary `json:"summary"`
}

// HandleMatch handles POST /api/lotto/match. draw_no 0 means the latest draw.
func (h *LottoHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.log, err)
		return
	}
	if len(req.Lines) == 0 {
		respondWithError(w, http.StatusBadRequest, "lines are required")
		return
	}
	if req.DrawNo == 0 {
		latest, err := h.draws.Latest(r.Context())
		if err != nil {
			respondErr(w, h.log, err)
			return
		}
		req.DrawNo = latest.DrawNo
	}

	d, sum, err := h.results.Check(r.Context(), req.DrawNo, req.Lines)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, matchResponse{
		DrawNo:         d.DrawNo,
		DrawDate:       d.DrawDate,
		WinningNumbers: d.Numbers,
		Bonus:          d.Bonus,
		Summary:        sum,
	})
}

// HandlePlans handles GET /api/lotto/plans
func (h *LottoHandler) HandlePlans(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"plans": lotto.Plans()})
}

// HandleMyLines handles GET /api/lotto/mypage/lines
func (h *LottoHandler) HandleMyLines(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	out, err := h.results.MyLines(r.Context(), user.ID)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

type performanceItem struct {
	lotto.Performance
	AvgMatchCount float64 `json:"avg_match_count"`
}

// HandlePerformance handles GET /api/lotto/mypage/performance
func (h *LottoHandler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	perf, err := h.results.Performance(r.Context(), user.ID)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	items := make([]performanceItem, 0, len(perf))
	for _, p := range perf {
		items = append(items, performanceItem{Performance: p, AvgMatchCount: p.AvgMatchCount()})
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// HandleHistory handles GET /api/lotto/history
func (h *LottoHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	v := r.URL.Query()
	q := results.HistoryQuery{
		Search: v.Get("q"),
		Lines:  v.Get("lines"),
		Asc:    v.Get("sort") == "asc",
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &q.Limit},
		{"page", &q.Page},
		{"page_size", &q.PageSize},
	} {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, p.name+" must be an integer")
			return
		}
		*p.dst = n
	}

	out, err := h.results.History(r.Context(), *user, q)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// HandleStatsOverview handles GET /api/lotto/stats/overview
func (h *LottoHandler) HandleStatsOverview(w http.ResponseWriter, r *http.Request) {
	out, err := h.results.Overview(r.Context())
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// HandleStatsNumbers handles GET /api/lotto/stats/number
func (h *LottoHandler) HandleStatsNumbers(w http.ResponseWriter, r *http.Request) {
	items, err := h.results.NumberCounts(r.Context(), lotto.LineSize)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

type guestDrawResponse struct {
	Number       int   `json:"number"`
	AlreadyDrawn bool  `json:"alreadyDrawn"`
	TopNumbers   []int `json:"topNumbers"`
}

// HandleGuestDraw handles POST /api/guest/draw
func (h *LottoHandler) HandleGuestDraw(w http.ResponseWriter, r *http.Request) {
	n, top, err := h.pools.GuestDraw(r.Context())
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	if top == nil {
		top = []int{}
	}
	respondJSON(w, http.StatusOK, guestDrawResponse{Number: n, TopNumbers: top})
}
