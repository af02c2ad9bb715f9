package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
)

// AdminHandler records official draws and changes user tiers.
type AdminHandler struct {
	draws repo.DrawRepo
	users repo.UserRepo
	log   *zap.Logger
}

func NewAdminHandler(draws repo.DrawRepo, users repo.UserRepo, log *zap.Logger) *AdminHandler {
	return &AdminHandler{draws: draws, users: users, log: log.Named("admin_handler")}
}

type putDrawRequest struct {
	Numbers  []int  `json:"numbers"`
	Bonus    int    `json:"bonus"`
	DrawDate string `json:"draw_date"`
}

// HandlePutDraw handles PUT /api/admin/draws/{drawNo}
func (h *AdminHandler) HandlePutDraw(w http.ResponseWriter, r *http.Request) {
	no, ok := drawNoParam(w, r)
	if !ok {
		return
	}
	var req putDrawRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.log, err)
		return
	}

	d, err := buildDraw(no, req)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	if err := h.draws.Upsert(r.Context(), d); err != nil {
		respondErr(w, h.log, err)
		return
	}
	h.log.Info("draw recorded", zap.Int("draw_no", no), zap.Ints("numbers", d.Numbers), zap.Int("bonus", d.Bonus))
	respondJSON(w, http.StatusOK, toDrawResponse(d))
}

func buildDraw(no int, req putDrawRequest) (model.Draw, error) {
	if err := lotto.ValidateLine(req.Numbers); err != nil {
		return model.Draw{}, err
	}
	if !lotto.InRange(req.Bonus) {
		return model.Draw{}, fmt.Errorf("bonus %d: %w", req.Bonus, lotto.ErrNumberRange)
	}
	for _, n := range req.Numbers {
		if n == req.Bonus {
			return model.Draw{}, fmt.Errorf("bonus %d repeats a winning number: %w", req.Bonus, lotto.ErrInvalidLine)
		}
	}
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.DrawDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DrawDate)
		if err != nil {
			return model.Draw{}, fmt.Errorf("draw_date must be YYYY-MM-DD: %w", errBadBody)
		}
		date = parsed
	}
	return model.Draw{DrawNo: no, Numbers: lotto.Normalize(req.Numbers), Bonus: req.Bonus, DrawDate: date}, nil
}

type tierRequest struct {
	Tier string `json:"tier"`
}

// HandleSetTier handles PATCH /api/admin/users/{id}/tier
func (h *AdminHandler) HandleSetTier(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req tierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, h.log, err)
		return
	}
	if req.Tier == "" {
		respondWithError(w, http.StatusBadRequest, "tier is required")
		return
	}
	tier, err := lotto.ParseTier(req.Tier)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}

	u, err := h.users.UpdateTier(r.Context(), id, tier)
	if err != nil {
		respondErr(w, h.log, err)
		return
	}
	h.log.Info("tier changed", zap.String("user_id", id.String()), zap.String("tier", tier.String()))
	respondJSON(w, http.StatusOK, toUserResponse(u))
}
