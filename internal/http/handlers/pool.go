package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/pool"
)

// PoolHandler serves the reveal endpoints and the weekly free pick.
type PoolHandler struct {
	pools *pool.Service
	free  *pool.FreeService
	log   *zap.Logger
}

func NewPoolHandler(pools *pool.Service, free *pool.FreeService, log *zap.Logger) *PoolHandler {
	return &PoolHandler{pools: pools, free: free, log: log.Named("pool_handler")}
}

type settingsRequest struct {
	Exclude []int `json:"exclude"`
	Fixed   []int `json:"fixed"`
}

func (h *PoolHandler) settings(w http.ResponseWriter, r *http.Request, advanced bool, tier lotto.Tier) (lotto.Settings, bool) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.log, err)
		return lotto.Settings{}, false
	}
	if advanced && !tier.AllowsAdvanced() {
		respondErr(w, h.log, pool.ErrPlanNotAllowed)
		return lotto.Settings{}, false
	}
	return lotto.Settings{Exclude: req.Exclude, Fixed: req.Fixed}, true
}

// HandleStatus handles GET /api/lotto/recommend/pool-status
func (h *PoolHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	st, err := h.pools.Status(r.Context(), user.ID, user.Tier)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (h *PoolHandler) revealOne(advanced bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		settings, ok := h.settings(w, r, advanced, user.Tier)
		if !ok {
			return
		}
		res, err := h.pools.RevealOne(r.Context(), user.ID, user.Tier, settings)
		if err != nil {
			respondErr(w, h.log, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

func (h *PoolHandler) revealAll(advanced bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(w, r)
		if !ok {
			return
		}
		settings, ok := h.settings(w, r, advanced, user.Tier)
		if !ok {
			return
		}
		res, err := h.pools.RevealAll(r.Context(), user.ID, user.Tier, settings)
		if err != nil {
			respondErr(w, h.log, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

// HandleRevealOne handles POST /api/lotto/recommend/one
func (h *PoolHandler) HandleRevealOne(w http.ResponseWriter, r *http.Request) {
	h.revealOne(false)(w, r)
}

// HandleRevealAll handles POST /api/lotto/recommend/all
func (h *PoolHandler) HandleRevealAll(w http.ResponseWriter, r *http.Request) {
	h.revealAll(false)(w, r)
}

// HandleAdvancedOne handles POST /api/lotto/recommend/advanced/one
func (h *PoolHandler) HandleAdvancedOne(w http.ResponseWriter, r *http.Request) {
	h.revealOne(true)(w, r)
}

// HandleAdvancedAll handles POST /api/lotto/recommend/advanced/all
func (h *PoolHandler) HandleAdvancedAll(w http.ResponseWriter, r *http.Request) {
	h.revealAll(true)(w, r)
}

// HandleFreeStatus handles GET /api/lotto/recommend/free/status
func (h *PoolHandler) HandleFreeStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	st, err := h.free.Status(r.Context(), *user)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// HandleFreeDraw handles POST /api/lotto/recommend/free
func (h *PoolHandler) HandleFreeDraw(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.free.Draw(r.Context(), *user)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
