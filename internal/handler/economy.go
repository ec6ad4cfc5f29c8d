package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"virtual-casino/internal/model"
	"virtual-casino/internal/service"
	"virtual-casino/internal/shop"
)

// ChallengeService is the challenge surface used by EconomyHandler.
type ChallengeService interface {
	List(ctx context.Context, accountID uuid.UUID, challengeType string) ([]*model.ChallengeView, error)
	Claim(ctx context.Context, accountID, challengeID uuid.UUID) (*service.ChallengeReward, error)
}

// TournamentService is the tournament surface used by EconomyHandler.
type TournamentService interface {
	List(ctx context.Context, status, gameType string) ([]*model.Tournament, error)
	Join(ctx context.Context, accountID, tournamentID uuid.UUID) (*model.Tournament, error)
	Standings(ctx context.Context, tournamentID uuid.UUID) ([]model.TournamentStanding, error)
}

// ClanService is the clan surface used by EconomyHandler.
type ClanService interface {
	Create(ctx context.Context, accountID uuid.UUID, in service.ClanInput) (*model.Clan, error)
	Join(ctx context.Context, accountID, clanID uuid.UUID) (*model.Clan, error)
	Leave(ctx context.Context, accountID uuid.UUID) error
	Mine(ctx context.Context, accountID uuid.UUID) (*service.Membership, error)
	List(ctx context.Context) ([]*model.Clan, error)
}

// ShopService is the crate surface used by EconomyHandler.
type ShopService interface {
	Crates() []shop.Crate
	OpenCrate(ctx context.Context, accountID uuid.UUID, tier shop.CrateTier) (*service.CrateOpening, error)
}

// StockService is the market surface used by EconomyHandler.
type StockService interface {
	List(ctx context.Context) ([]*model.Stock, error)
	Portfolio(ctx context.Context, accountID uuid.UUID) ([]*model.Holding, error)
	Trade(ctx context.Context, accountID, stockID uuid.UUID, side string, qty int64) (*service.TradeResult, error)
}

// LeaderboardService is the ranking surface used by EconomyHandler.
type LeaderboardService interface {
	Fetch(ctx context.Context, lbType, gameType string) ([]model.LeaderboardView, error)
}

// EconomyHandler serves challenges, tournaments, clans, the crate shop,
// the stock market and leaderboards.
type EconomyHandler struct {
	challenges   ChallengeService
	tournaments  TournamentService
	clans        ClanService
	shop         ShopService
	stocks       StockService
	leaderboards LeaderboardService
}

// NewEconomyHandler creates a new EconomyHandler.
func NewEconomyHandler(
	challenges ChallengeService,
	tournaments TournamentService,
	clans ClanService,
	shop ShopService,
	stocks StockService,
	leaderboards LeaderboardService,
) *EconomyHandler {
	return &EconomyHandler{
		challenges:   challenges,
		tournaments:  tournaments,
		clans:        clans,
		shop:         shop,
		stocks:       stocks,
		leaderboards: leaderboards,
	}
}

// Challenges handles GET /api/challenges?type=.
func (h *EconomyHandler) Challenges(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.challenges.List(r.Context(), id, r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, list)
}

// ClaimChallenge handles POST /api/challenges/{id}/claim.
func (h *EconomyHandler) ClaimChallenge(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	challengeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	reward, err := h.challenges.Claim(r.Context(), id, challengeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, reward)
}

// Tournaments handles GET /api/tournaments?status=&game_type=.
func (h *EconomyHandler) Tournaments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.tournaments.List(r.Context(), q.Get("status"), q.Get("game_type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, list)
}

// JoinTournament handles POST /api/tournaments/{id}/join.
func (h *EconomyHandler) JoinTournament(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tournamentID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.tournaments.Join(r.Context(), id, tournamentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, t)
}

// Standings handles GET /api/tournaments/{id}/standings.
func (h *EconomyHandler) Standings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	standings, err := h.tournaments.Standings(r.Context(), tournamentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, standings)
}

// Clans handles GET /api/clans.
func (h *EconomyHandler) Clans(w http.ResponseWriter, r *http.Request) {
	list, err := h.clans.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, list)
}

// CreateClan handles POST /api/clans.
func (h *EconomyHandler) CreateClan(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.ClanInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	clan, err := h.clans.Create(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, clan)
}

// MyClan handles GET /api/clans/mine.
func (h *EconomyHandler) MyClan(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.clans.Mine(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, m)
}

// JoinClan handles POST /api/clans/{id}/join.
func (h *EconomyHandler) JoinClan(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	clanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	clan, err := h.clans.Join(r.Context(), id, clanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, clan)
}

// LeaveClan handles POST /api/clans/leave.
func (h *EconomyHandler) LeaveClan(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.clans.Leave(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

// Crates handles GET /api/shop/crates.
func (h *EconomyHandler) Crates(w http.ResponseWriter, r *http.Request) {
	ok(w, h.shop.Crates())
}

// OpenCrate handles POST /api/shop/crates/{tier}/open.
func (h *EconomyHandler) OpenCrate(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opening, err := h.shop.OpenCrate(r.Context(), id, shop.CrateTier(mux.Vars(r)["tier"]))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, opening)
}

// Stocks handles GET /api/stocks.
func (h *EconomyHandler) Stocks(w http.ResponseWriter, r *http.Request) {
	list, err := h.stocks.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, list)
}

// Portfolio handles GET /api/stocks/portfolio.
func (h *EconomyHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	holdings, err := h.stocks.Portfolio(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, holdings)
}

type tradeRequest struct {
	StockID  uuid.UUID `json:"stock_id"`
	Type     string    `json:"type"`
	Quantity int64     `json:"quantity"`
}

// Trade handles POST /api/stocks/trade.
func (h *EconomyHandler) Trade(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req tradeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.stocks.Trade(r.Context(), id, req.StockID, req.Type, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

// Leaderboards handles GET /api/leaderboards?type=&game_type=.
func (h *EconomyHandler) Leaderboards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := h.leaderboards.Fetch(r.Context(), q.Get("type"), q.Get("game_type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, views)
}
