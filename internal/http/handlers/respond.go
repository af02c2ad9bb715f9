package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/qwmll19-cmd/ai-lotto/internal/auth"
	"github.com/qwmll19-cmd/ai-lotto/internal/lotto"
	"github.com/qwmll19-cmd/ai-lotto/internal/middleware"
	"github.com/qwmll19-cmd/ai-lotto/internal/model"
	"github.com/qwmll19-cmd/ai-lotto/internal/pool"
	"github.com/qwmll19-cmd/ai-lotto/internal/repo"
	"github.com/qwmll19-cmd/ai-lotto/internal/results"
)

const maxBodyBytes = 1 << 16

var errBadBody = errors.New("invalid request body")

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	middleware.RespondWithError(w, statusCode, message)
}

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

var statusByErr = []struct {
	err    error
	status int
}{
	{repo.ErrNotFound, http.StatusNotFound},
	{errBadBody, http.StatusBadRequest},
	{lotto.ErrExcludeLimit, http.StatusBadRequest},
	{lotto.ErrFixedLimit, http.StatusBadRequest},
	{lotto.ErrSettingsOverlap, http.StatusBadRequest},
	{lotto.ErrNumberRange, http.StatusBadRequest},
	{lotto.ErrInvalidLine, http.StatusBadRequest},
	{lotto.ErrUnknownTier, http.StatusBadRequest},
	{pool.ErrPlanNotAllowed, http.StatusBadRequest},
	{pool.ErrSettingsLocked, http.StatusConflict},
	{pool.ErrBusy, http.StatusConflict},
	{pool.ErrWeeklyLimit, http.StatusTooManyRequests},
	{results.ErrInvalidQuery, http.StatusBadRequest},
	{auth.ErrInvalidIdentifier, http.StatusBadRequest},
	{auth.ErrWeakPassword, http.StatusBadRequest},
	{auth.ErrIdentifierTaken, http.StatusConflict},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidRefreshToken, http.StatusUnauthorized},
	{auth.ErrRefreshTokenReuseDetected, http.StatusUnauthorized},
}

// respondErr maps domain errors to status codes. Anything unknown is a 500
// and is logged; its message never reaches the client.
func respondErr(w http.ResponseWriter, log *zap.Logger, err error) {
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			respondWithError(w, m.status, err.Error())
			return
		}
	}
	log.Error("request failed", zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	u, ok := middleware.GetUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return u, true
}
