package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/auth"
	"github.com/qwmll19-cmd/ai-lotto/internal/config"
	"github.com/qwmll19-cmd/ai-lotto/internal/db"
	httphandler "github.com/qwmll19-cmd/ai-lotto/internal/http"
	"github.com/qwmll19-cmd/ai-lotto/internal/http/handlers"
	"github.com/qwmll19-cmd/ai-lotto/internal/lock"
	"github.com/qwmll19-cmd/ai-lotto/internal/logging"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/pool"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
	"github.com/qwmll19-cmd/ai-lotto/internal/results"
)

const (
	lockRetries = 3
	lockBackoff = 100 * time.Millisecond
	sweepEvery  = time.Minute
)

func main() {
	// .env is optional; real env vars override it
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		// no logger yet, the level comes from config
		bootLog, _ := zap.NewProduction()
		bootLog.Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logging.New(cfg.LogLevel, cfg.DevMode)
	if err != nil {
		bootLog, _ := zap.NewProduction()
		bootLog.Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPool, log)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Repositories
	userRepo := repo.NewUserRepo(database)
	refreshRepo := repo.NewRefreshRepo(database)
	drawRepo := repo.NewDrawRepo(database)
	poolRepo := repo.NewPoolRepo(database)
	freePickRepo := repo.NewFreePickRepo(database)

	locker, closeLock, err := newLocker(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to set up pool lock", zap.Error(err))
	}
	defer closeLock()

	// Services
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := auth.NewAuthService(
		jwtService,
		auth.NewPasswordHasher(cfg.BcryptCost),
		userRepo,
		refreshRepo,
		cfg.RefreshTokenTTL,
		cfg.AdminIdentifiers,
		log,
	)
	gen := lotto.NewGenerator(time.Now().UnixNano())
	poolService := pool.NewService(poolRepo, drawRepo, locker, gen, log)
	freeService := pool.NewFreeService(freePickRepo, poolService, locker, gen, log)
	resultService := results.NewService(drawRepo, poolRepo, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, jwtService.AccessTTL(), log)
	router := httphandler.NewRouter(httphandler.Handlers{
		Auth:   authHandler,
		Lotto:  handlers.NewLottoHandler(drawRepo, resultService, poolService, log),
		Pool:   handlers.NewPoolHandler(poolService, freeService, log),
		Admin:  handlers.NewAdminHandler(drawRepo, userRepo, log),
		Health: handlers.NewHealthHandler(database),
	}, jwtService, userRepo, log)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepLimiter(sweepCtx, authHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.Bool("dev_mode", cfg.DevMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("server exited")
}

// newLocker uses Redis when REDIS_URL is set so several API instances share
// pool locks; otherwise locks are process-local.
func newLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, using in-process pool locks")
		return lock.NewLocalLock(cfg.LockTTL, lockRetries, lockBackoff), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("using redis pool locks", zap.String("addr", opts.Addr))
	return lock.NewRedisLock(client, cfg.LockTTL, lockRetries, lockBackoff), func() { _ = client.Close() }, nil
}

func sweepLimiter(ctx context.Context, h *handlers.AuthHandler) {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Limiter().Sweep()
		}
	}
}
