package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/auth"
	"github.com/qwmll19-cmd/ai-lotto/internal/http/handlers"
	"github.com/qwmll19-cmd/ai-lotto/internal/logging"
	"github.com/qwmll19-cmd/ai-lotto/internal/middleware"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
)

// Handlers groups every endpoint handler the router mounts.
type Handlers struct {
	Auth   *handlers.AuthHandler
	Lotto  *handlers.LottoHandler
	Pool   *handlers.PoolHandler
	Admin  *handlers.AdminHandler
	Health *handlers.HealthHandler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(h Handlers, jwtService *auth.JWTService, userRepo repo.UserRepo, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger(log))
	r.Use(chimw.Recoverer)

	requireAuth := middleware.AuthMiddleware(jwtService, userRepo)

	r.Get("/health", h.Health.ServeHTTP)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.Auth.HandleSignup)
		r.Post("/login", h.Auth.HandleLogin)
		r.Post("/refresh", h.Auth.HandleRefresh)
		r.Post("/logout", h.Auth.HandleLogout)
		r.With(requireAuth).Get("/me", h.Auth.HandleMe)
	})

	r.Route("/api/lotto", func(r chi.Router) {
		r.Get("/latest", h.Lotto.HandleLatest)
		r.Get("/draws/{drawNo}", h.Lotto.HandleDraw)
		r.Post("/match", h.Lotto.HandleMatch)
		r.Get("/plans", h.Lotto.HandlePlans)
		r.Get("/stats/overview", h.Lotto.HandleStatsOverview)
		r.Get("/stats/number", h.Lotto.HandleStatsNumbers)

		// Protected routes (require valid JWT)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/recommend/pool-status", h.Pool.HandleStatus)
			r.Post("/recommend/one", h.Pool.HandleRevealOne)
			r.Post("/recommend/all", h.Pool.HandleRevealAll)
			r.Post("/recommend/advanced/one", h.Pool.HandleAdvancedOne)
			r.Post("/recommend/advanced/all", h.Pool.HandleAdvancedAll)
			r.Post("/recommend/free", h.Pool.HandleFreeDraw)
			r.Get("/recommend/free/status", h.Pool.HandleFreeStatus)
			r.Get("/mypage/lines", h.Lotto.HandleMyLines)
			r.Get("/mypage/performance", h.Lotto.HandlePerformance)
			r.Get("/history", h.Lotto.HandleHistory)
		})
	})

	r.Post("/api/guest/draw", h.Lotto.HandleGuestDraw)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireAuth, middleware.RequireAdmin)
		r.Put("/draws/{drawNo}", h.Admin.HandlePutDraw)
		r.Patch("/users/{id}/tier", h.Admin.HandleSetTier)
	})

	return r
}
