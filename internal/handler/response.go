// Package handler provides the HTTP handlers. Handlers decode requests,
// call one service operation and write the JSON envelope; every error is
// mapped to a status and machine-readable kind in writeError.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/auth"
	"virtual-casino/internal/game"
	"virtual-casino/internal/game/engine"
	"virtual-casino/internal/middleware"
	"virtual-casino/internal/service"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// errBadRequest marks malformed requests caught by the handler itself.
var errBadRequest = errors.New("bad request")

// Envelope is the shape of every response body.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// errorMapping binds a sentinel to its HTTP status and kind.
type errorMapping struct {
	err    error
	status int
	kind   string
}

// errorTable is checked in order with errors.Is.
var errorTable = []errorMapping{
	// authorization
	{auth.ErrMissingCredential, http.StatusUnauthorized, "missing_credential"},
	{auth.ErrMalformedCredential, http.StatusUnauthorized, "malformed_credential"},
	{auth.ErrInvalidCredential, http.StatusUnauthorized, "invalid_credential"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrAccountBanned, http.StatusForbidden, "account_banned"},

	// lookups
	{service.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{service.ErrChallengeNotFound, http.StatusNotFound, "challenge_not_found"},
	{service.ErrTournamentNotFound, http.StatusNotFound, "tournament_not_found"},
	{service.ErrClanNotFound, http.StatusNotFound, "clan_not_found"},
	{service.ErrStockNotFound, http.StatusNotFound, "stock_not_found"},
	{service.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{service.ErrLeaderboardNotFound, http.StatusNotFound, "leaderboard_not_found"},

	// validation
	{errBadRequest, http.StatusBadRequest, "invalid_request"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_request"},
	{service.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{service.ErrNotInstantGame, http.StatusBadRequest, "not_instant_game"},
	{service.ErrNotSessionGame, http.StatusBadRequest, "not_session_game"},
	{service.ErrUnknownCrate, http.StatusBadRequest, "unknown_crate"},
	{service.ErrUnknownMetric, http.StatusBadRequest, "unknown_metric"},
	{service.ErrUnknownBoard, http.StatusBadRequest, "unknown_leaderboard_type"},
	{service.ErrInvalidTrade, http.StatusBadRequest, "invalid_trade"},
	{service.ErrInvalidClanName, http.StatusBadRequest, "invalid_clan_name"},
	{engine.ErrUnknownWager, http.StatusBadRequest, "unknown_game"},
	{game.ErrUnknownGame, http.StatusBadRequest, "unknown_game"},
	{game.ErrInvalidBet, http.StatusBadRequest, "invalid_bet"},
	{game.ErrBetTooLow, http.StatusBadRequest, "bet_too_low"},
	{game.ErrBetTooHigh, http.StatusBadRequest, "bet_too_high"},
	{game.ErrInvalidParams, http.StatusBadRequest, "invalid_params"},

	// preconditions
	{service.ErrInsufficientBalance, http.StatusBadRequest, "insufficient_balance"},
	{service.ErrDailyAlreadyClaimed, http.StatusBadRequest, "daily_already_claimed"},
	{service.ErrChallengeNotCompleted, http.StatusBadRequest, "challenge_not_completed"},
	{service.ErrAlreadyClaimed, http.StatusBadRequest, "already_claimed"},
	{service.ErrTournamentStarted, http.StatusBadRequest, "tournament_started"},
	{service.ErrTournamentFull, http.StatusBadRequest, "tournament_full"},
	{service.ErrAlreadyJoined, http.StatusBadRequest, "already_joined"},
	{service.ErrTournamentNotEnded, http.StatusBadRequest, "tournament_not_ended"},
	{service.ErrAlreadyFinalized, http.StatusConflict, "already_finalized"},
	{service.ErrAlreadyInClan, http.StatusBadRequest, "already_in_clan"},
	{service.ErrClanTaken, http.StatusBadRequest, "clan_taken"},
	{service.ErrClanFull, http.StatusBadRequest, "clan_full"},
	{service.ErrClanPrivate, http.StatusForbidden, "clan_private"},
	{service.ErrNotInClan, http.StatusBadRequest, "not_in_clan"},
	{service.ErrOwnerCannotLeave, http.StatusBadRequest, "owner_cannot_leave"},
	{service.ErrInsufficientShares, http.StatusBadRequest, "insufficient_shares"},
	{service.ErrSessionActive, http.StatusConflict, "session_active"},
	{service.ErrSessionOver, http.StatusConflict, "session_over"},
	{service.ErrAlreadyExists, http.StatusConflict, "already_exists"},
	{game.ErrWrongPhase, http.StatusConflict, "wrong_phase"},

	{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
}

// classify returns the status and kind for err.
func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.kind
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		msg = "internal server error"
		if status == http.StatusServiceUnavailable {
			msg = "request timed out"
		}
	}
	writeJSON(w, status, Envelope{Error: msg, Kind: kind})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// readBody returns the raw body for decoders that need it.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(body) > maxBody {
		return nil, fmt.Errorf("%w: body too large", errBadRequest)
	}
	return body, nil
}

// pathID parses a UUID path variable.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// caller returns the authenticated account id. Routes using it sit
// behind middleware.Auth.
func caller(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return uuid.Nil, auth.ErrMissingCredential
	}
	return id.AccountID, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return n, nil
}
