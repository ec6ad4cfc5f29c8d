// Package api assembles the HTTP router: the middleware chain, the
// authentication scopes and every route.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"virtual-casino/internal/handler"
	"virtual-casino/internal/middleware"
	pgdb "virtual-casino/internal/pkg/db"
)

// Pinger reports storage health. A Pinger that also exposes pool
// statistics has them included in /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds everything the router needs.
type Dependencies struct {
	Gate           middleware.Resolver
	DB             Pinger
	RequestTimeout time.Duration

	Accounts *handler.AccountHandler
	Games    *handler.GameHandler
	Economy  *handler.EconomyHandler
	Admin    *handler.AdminHandler
}

// NewRouter builds the application router.
func NewRouter(deps *Dependencies) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logging, middleware.Recovery)
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/healthz", health(deps.DB)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// public
	api.HandleFunc("/auth/register", deps.Accounts.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", deps.Accounts.Login).Methods(http.MethodPost)
	api.HandleFunc("/games", deps.Games.Catalog).Methods(http.MethodGet)
	api.HandleFunc("/tournaments", deps.Economy.Tournaments).Methods(http.MethodGet)
	api.HandleFunc("/tournaments/{id}/standings", deps.Economy.Standings).Methods(http.MethodGet)
	api.HandleFunc("/clans", deps.Economy.Clans).Methods(http.MethodGet)
	api.HandleFunc("/shop/crates", deps.Economy.Crates).Methods(http.MethodGet)
	api.HandleFunc("/stocks", deps.Economy.Stocks).Methods(http.MethodGet)

	optional := api.PathPrefix("/leaderboards").Subrouter()
	optional.Use(middleware.OptionalAuth(deps.Gate))
	optional.HandleFunc("", deps.Economy.Leaderboards).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.Auth(deps.Gate), middleware.RequireAdmin)
	admin.HandleFunc("/accounts", deps.Admin.Accounts).Methods(http.MethodGet)
	admin.HandleFunc("/accounts/{id}/tester", deps.Admin.SetTester).Methods(http.MethodPut)
	admin.HandleFunc("/accounts/{id}/infinite-funds", deps.Admin.SetInfiniteFunds).Methods(http.MethodPut)
	admin.HandleFunc("/accounts/{id}/ban", deps.Admin.Ban).Methods(http.MethodPost)
	admin.HandleFunc("/accounts/{id}/ban", deps.Admin.Unban).Methods(http.MethodDelete)
	admin.HandleFunc("/accounts/{id}/reconcile", deps.Admin.Reconcile).Methods(http.MethodGet)
	admin.HandleFunc("/challenges", deps.Admin.CreateChallenge).Methods(http.MethodPost)
	admin.HandleFunc("/leaderboards", deps.Admin.CreateLeaderboard).Methods(http.MethodPost)
	admin.HandleFunc("/leaderboards/recompute", deps.Admin.RecomputeLeaderboards).Methods(http.MethodPost)

	// Admin tournament routes share the public /tournaments prefix.
	tournaments := api.PathPrefix("/tournaments").Subrouter()
	tournaments.Use(middleware.Auth(deps.Gate), middleware.RequireAdmin)
	tournaments.HandleFunc("", deps.Admin.CreateTournament).Methods(http.MethodPost)
	tournaments.HandleFunc("/{id}/finalize", deps.Admin.FinalizeTournament).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.Auth(deps.Gate))

	authed.HandleFunc("/auth/me", deps.Accounts.Me).Methods(http.MethodGet)
	authed.HandleFunc("/me", deps.Accounts.Me).Methods(http.MethodGet)
	authed.HandleFunc("/me/stats", deps.Accounts.Stats).Methods(http.MethodGet)
	authed.HandleFunc("/me/history", deps.Accounts.History).Methods(http.MethodGet)
	authed.HandleFunc("/me/transactions", deps.Accounts.Transactions).Methods(http.MethodGet)
	authed.HandleFunc("/me/achievements", deps.Accounts.Achievements).Methods(http.MethodGet)
	authed.HandleFunc("/me/avatar", deps.Accounts.SetAvatar).Methods(http.MethodPut)
	authed.HandleFunc("/rewards/daily", deps.Accounts.ClaimDaily).Methods(http.MethodPost)
	authed.HandleFunc("/rewards/daily", deps.Accounts.DailyStatus).Methods(http.MethodGet)

	// sessions before {game} so the literal path wins
	authed.HandleFunc("/games/sessions", deps.Games.Sessions).Methods(http.MethodGet)
	authed.HandleFunc("/games/sessions/{id}", deps.Games.Status).Methods(http.MethodGet)
	authed.HandleFunc("/games/sessions/{id}/{action}", deps.Games.Act).Methods(http.MethodPost)
	authed.HandleFunc("/games/{game}", deps.Games.Wager).Methods(http.MethodPost)

	authed.HandleFunc("/challenges", deps.Economy.Challenges).Methods(http.MethodGet)
	authed.HandleFunc("/challenges/{id}/claim", deps.Economy.ClaimChallenge).Methods(http.MethodPost)
	authed.HandleFunc("/tournaments/{id}/join", deps.Economy.JoinTournament).Methods(http.MethodPost)
	authed.HandleFunc("/clans", deps.Economy.CreateClan).Methods(http.MethodPost)
	authed.HandleFunc("/clans/mine", deps.Economy.MyClan).Methods(http.MethodGet)
	authed.HandleFunc("/clans/leave", deps.Economy.LeaveClan).Methods(http.MethodPost)
	authed.HandleFunc("/clans/{id}/join", deps.Economy.JoinClan).Methods(http.MethodPost)
	authed.HandleFunc("/shop/crates/{tier}/open", deps.Economy.OpenCrate).Methods(http.MethodPost)
	authed.HandleFunc("/stocks/portfolio", deps.Economy.Portfolio).Methods(http.MethodGet)
	authed.HandleFunc("/stocks/trade", deps.Economy.Trade).Methods(http.MethodPost)

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			respond(w, http.StatusServiceUnavailable, handler.Envelope{Error: "database unavailable", Kind: "unavailable"})
			return
		}
		body := map[string]any{"status": "ok"}
		if s, ok := db.(interface{ Snapshot() pgdb.Stat }); ok {
			body["pool"] = s.Snapshot()
		}
		respond(w, http.StatusOK, handler.Envelope{Success: true, Data: body})
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusNotFound, handler.Envelope{Error: "route not found", Kind: "not_found"})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusMethodNotAllowed, handler.Envelope{Error: "method not allowed", Kind: "method_not_allowed"})
}

func respond(w http.ResponseWriter, status int, body handler.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
