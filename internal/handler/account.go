package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"virtual-casino/internal/model"
	"virtual-casino/internal/service"
)

// AccountService is the account surface used by AccountHandler.
type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*service.Session, error)
	Login(ctx context.Context, identifier, password string) (*service.Session, error)
	Get(ctx context.Context, accountID uuid.UUID) (*model.Account, error)
	ClaimDaily(ctx context.Context, accountID uuid.UUID) (*service.DailyClaim, error)
	DailyStatus(ctx context.Context, accountID uuid.UUID) (*service.DailyStatus, error)
	Stats(ctx context.Context, accountID uuid.UUID) (*service.AccountStats, error)
	History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.GameHistory, error)
	Transactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transaction, error)
	Achievements(ctx context.Context, accountID uuid.UUID) (*service.Achievements, error)
	SetAvatar(ctx context.Context, accountID uuid.UUID, url string) (*model.Account, error)
}

// AccountHandler serves registration, login and the caller's own records.
type AccountHandler struct {
	accounts AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, sess)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// Login handles POST /api/auth/login. The identifier may be a username
// or an email.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Username
	}
	if identifier == "" {
		identifier = req.Email
	}
	sess, err := h.accounts.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, sess)
}

// Me handles GET /api/auth/me and GET /api/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, acct)
}

// Stats handles GET /api/me/stats.
func (h *AccountHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.accounts.Stats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, stats)
}

// History handles GET /api/me/history?limit=&offset=.
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	id, limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	games, err := h.accounts.History(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, games)
}

// Transactions handles GET /api/me/transactions?limit=&offset=.
func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := h.accounts.Transactions(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, txs)
}

// Achievements handles GET /api/me/achievements.
func (h *AccountHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.accounts.Achievements(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, a)
}

// SetAvatar handles PUT /api/me/avatar.
func (h *AccountHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := h.accounts.SetAvatar(r.Context(), id, req.AvatarURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, acct)
}

// ClaimDaily handles POST /api/rewards/daily.
func (h *AccountHandler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	claim, err := h.accounts.ClaimDaily(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, claim)
}

// DailyStatus handles GET /api/rewards/daily.
func (h *AccountHandler) DailyStatus(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := h.accounts.DailyStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, status)
}

func pageParams(r *http.Request) (uuid.UUID, int, int, error) {
	id, err := caller(r)
	if err != nil {
		return uuid.Nil, 0, 0, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return uuid.Nil, 0, 0, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return uuid.Nil, 0, 0, err
	}
	return id, limit, offset, nil
}
