package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"virtual-casino/internal/model"
	"virtual-casino/internal/service"
)

// AdminService is the moderation surface used by AdminHandler.
type AdminService interface {
	ListAccounts(ctx context.Context) ([]*model.Account, error)
	SetTester(ctx context.Context, accountID uuid.UUID, tester bool) error
	SetInfiniteFunds(ctx context.Context, accountID uuid.UUID, infinite bool) error
	Ban(ctx context.Context, accountID uuid.UUID, until time.Time) error
	Unban(ctx context.Context, accountID uuid.UUID) error
	Reconcile(ctx context.Context, accountID uuid.UUID) (*service.Reconciliation, error)
}

// ChallengeAuthor defines challenges.
type ChallengeAuthor interface {
	Create(ctx context.Context, c *model.Challenge) (*model.Challenge, error)
}

// TournamentOrganizer defines and settles tournaments.
type TournamentOrganizer interface {
	Create(ctx context.Context, t *model.Tournament) (*model.Tournament, error)
	Finalize(ctx context.Context, tournamentID uuid.UUID) ([]service.Payout, error)
}

// LeaderboardAdmin defines and rebuilds leaderboards.
type LeaderboardAdmin interface {
	Create(ctx context.Context, lb *model.Leaderboard) (*model.Leaderboard, error)
	Recompute(ctx context.Context) error
}

// AdminHandler serves the admin-only routes. Every route sits behind
// middleware.RequireAdmin.
type AdminHandler struct {
	admin        AdminService
	challenges   ChallengeAuthor
	tournaments  TournamentOrganizer
	leaderboards LeaderboardAdmin
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	admin AdminService,
	challenges ChallengeAuthor,
	tournaments TournamentOrganizer,
	leaderboards LeaderboardAdmin,
) *AdminHandler {
	return &AdminHandler{
		admin:        admin,
		challenges:   challenges,
		tournaments:  tournaments,
		leaderboards: leaderboards,
	}
}

// Accounts handles GET /api/admin/accounts.
func (h *AdminHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, list)
}

type flagRequest struct {
	Enabled *bool `json:"enabled"`
}

func (req flagRequest) value() (bool, error) {
	if req.Enabled == nil {
		return false, fmt.Errorf("%w: enabled is required", errBadRequest)
	}
	return *req.Enabled, nil
}

// SetTester handles PUT /api/admin/accounts/{id}/tester.
func (h *AdminHandler) SetTester(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.admin.SetTester)
}

// SetInfiniteFunds handles PUT /api/admin/accounts/{id}/infinite-funds.
func (h *AdminHandler) SetInfiniteFunds(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.admin.SetInfiniteFunds)
}

func (h *AdminHandler) setFlag(w http.ResponseWriter, r *http.Request, set func(context.Context, uuid.UUID, bool) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req flagRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	enabled, err := req.value()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := set(r.Context(), id, enabled); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, map[string]bool{"enabled": enabled})
}

type banRequest struct {
	Until time.Time `json:"until"`
}

// Ban handles POST /api/admin/accounts/{id}/ban.
func (h *AdminHandler) Ban(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req banRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.admin.Ban(r.Context(), id, req.Until); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, map[string]time.Time{"banned_until": req.Until})
}

// Unban handles DELETE /api/admin/accounts/{id}/ban.
func (h *AdminHandler) Unban(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.admin.Unban(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

// Reconcile handles GET /api/admin/accounts/{id}/reconcile.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.admin.Reconcile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, rec)
}

// CreateChallenge handles POST /api/admin/challenges.
func (h *AdminHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var c model.Challenge
	if err := decode(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.challenges.Create(r.Context(), &c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, out)
}

// CreateTournament handles POST /api/tournaments.
func (h *AdminHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var t model.Tournament
	if err := decode(r, &t); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.tournaments.Create(r.Context(), &t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, out)
}

// FinalizeTournament handles POST /api/tournaments/{id}/finalize.
func (h *AdminHandler) FinalizeTournament(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payouts, err := h.tournaments.Finalize(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, payouts)
}

// CreateLeaderboard handles POST /api/admin/leaderboards.
func (h *AdminHandler) CreateLeaderboard(w http.ResponseWriter, r *http.Request) {
	var lb model.Leaderboard
	if err := decode(r, &lb); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.leaderboards.Create(r.Context(), &lb)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, out)
}

// RecomputeLeaderboards handles POST /api/admin/leaderboards/recompute.
func (h *AdminHandler) RecomputeLeaderboards(w http.ResponseWriter, r *http.Request) {
	if err := h.leaderboards.Recompute(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}
