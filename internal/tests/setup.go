// Package tests holds integration tests that need a real PostgreSQL.
// They skip when DATABASE_URL is not set.
package tests

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/qwmll19-cmd/ai-lotto/internal/auth"
	"github.com/qwmll19-cmd/ai-lotto/internal/db"
	httphandler "github.com/qwmll19-cmd/ai-lotto/internal/http"
	"github.com/qwmll19-cmd/ai-lotto/internal/http/handlers"
	"github.com/qwmll19-cmd/ai-lotto/internal/lock"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/pool"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
	"github.com/qwmll19-cmd/ai-lotto/internal/results"
)

const (
	testJWTSecret = "integration-test-secret-0123456789"
	// AdminIdentifier is promoted to admin on signup.
	AdminIdentifier = "admin"
)

// TruncateTables empties every application table for a clean test state.
func TruncateTables(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx,
		"TRUNCATE TABLE free_picks, line_pools, draws, refresh_sessions, users RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// OpenTestDB connects to DATABASE_URL and migrates it, or skips the test.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	database, err := db.Open(context.Background(), url, db.DefaultPool, zap.NewNop())
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that the test DB exists")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.Migrate(database), "migrations must run successfully")
	return database
}

// testServer is the full API over PostgreSQL.
type testServer struct {
	Server *httptest.Server
	DB     *sql.DB
	Draws  repo.DrawRepo
	Users  repo.UserRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := OpenTestDB(t)
	log := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))

	userRepo := repo.NewUserRepo(database)
	refreshRepo := repo.NewRefreshRepo(database)
	drawRepo := repo.NewDrawRepo(database)
	poolRepo := repo.NewPoolRepo(database)
	freeRepo := repo.NewFreePickRepo(database)

	jwtService := auth.NewJWTService(testJWTSecret, time.Hour)
	authService := auth.NewAuthService(jwtService, auth.NewPasswordHasher(bcrypt.MinCost),
		userRepo, refreshRepo, 24*time.Hour, []string{AdminIdentifier}, log)
	locker := lock.NewLocalLock(10*time.Second, 3, 20*time.Millisecond)
	gen := lotto.NewGenerator(time.Now().UnixNano())
	poolService := pool.NewService(poolRepo, drawRepo, locker, gen, log)
	freeService := pool.NewFreeService(freeRepo, poolService, locker, gen, log)
	resultService := results.NewService(drawRepo, poolRepo, log)

	router := httphandler.NewRouter(httphandler.Handlers{
		Auth:   handlers.NewAuthHandler(authService, jwtService.AccessTTL(), log),
		Lotto:  handlers.NewLottoHandler(drawRepo, resultService, poolService, log),
		Pool:   handlers.NewPoolHandler(poolService, freeService, log),
		Admin:  handlers.NewAdminHandler(drawRepo, userRepo, log),
		Health: handlers.NewHealthHandler(database),
	}, jwtService, userRepo, log)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{Server: server, DB: database, Draws: drawRepo, Users: userRepo}
}

func (s *testServer) BaseURL() string { return s.Server.URL }

func (s *testServer) Truncate(t *testing.T) {
	t.Helper()
	require.NoError(t, TruncateTables(context.Background(), s.DB), "truncate tables")
}
