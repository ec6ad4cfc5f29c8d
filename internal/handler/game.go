package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"virtual-casino/internal/game"
	"virtual-casino/internal/game/engine"
	"virtual-casino/internal/service"
)

// WagerService is the wagering surface used by GameHandler.
type WagerService interface {
	Catalog() []game.Info
	Play(ctx context.Context, accountID uuid.UUID, w engine.Wager) (*service.WagerResult, error)
	Open(ctx context.Context, accountID uuid.UUID, w engine.Wager) (*service.SessionState, error)
	Act(ctx context.Context, accountID, sessionID uuid.UUID, action engine.Action) (*service.SessionState, error)
	Status(ctx context.Context, accountID, sessionID uuid.UUID) (*service.SessionState, error)
	ActiveSessions(ctx context.Context, accountID uuid.UUID) ([]*service.SessionState, error)
}

// GameHandler serves the game catalog, instant wagers and game sessions.
type GameHandler struct {
	wagers WagerService
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(wagers WagerService) *GameHandler {
	return &GameHandler{wagers: wagers}
}

// Catalog handles GET /api/games.
func (h *GameHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	ok(w, h.wagers.Catalog())
}

// Wager handles POST /api/games/{game}. Instant games settle in the
// response; crash, mines and blackjack open a session.
func (h *GameHandler) Wager(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind, known := game.ParseKind(mux.Vars(r)["game"])
	if !known {
		writeError(w, r, game.ErrUnknownGame)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	wager, err := engine.DecodeWager(kind, body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if kind.IsSession() {
		state, err := h.wagers.Open(r.Context(), id, wager)
		if err != nil {
			writeError(w, r, err)
			return
		}
		created(w, state)
		return
	}

	res, err := h.wagers.Play(r.Context(), id, wager)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

// Sessions handles GET /api/games/sessions.
func (h *GameHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	states, err := h.wagers.ActiveSessions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, states)
}

// Status handles GET /api/games/sessions/{id}.
func (h *GameHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sessionID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	state, err := h.wagers.Status(r.Context(), id, sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, state)
}

// Act handles POST /api/games/sessions/{id}/{action}.
func (h *GameHandler) Act(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sessionID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	action, err := engine.ParseAction(mux.Vars(r)["action"], body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	state, err := h.wagers.Act(r.Context(), id, sessionID, action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, state)
}
