// Package main is the entry point for the virtual casino API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/api"
	"virtual-casino/internal/auth"
	"virtual-casino/internal/cache"
	"virtual-casino/internal/config"
	"virtual-casino/internal/game/engine"
	"virtual-casino/internal/handler"
	"virtual-casino/internal/pkg/db"
	"virtual-casino/internal/repository"
	"virtual-casino/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	store := repository.NewStore(dbPool.Pool)

	// Leaderboard cache
	var boardCache service.LeaderboardCache = cache.Noop{}
	if cfg.Redis.Enabled {
		rdb, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		boardCache = cache.NewLeaderboards(rdb, cfg.Redis.TTL)
	}

	// Outcome engine
	eng, err := engine.New(cfg.Games)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build game engine")
	}

	// Initialize services
	gate := auth.NewGate(cfg.Auth)
	progression := service.NewProgression(cfg.Economy)
	accountService := service.NewAccountService(store, gate, auth.NewHasher(cfg.Auth.BcryptCost), progression, cfg.Economy)
	wagerService := service.NewWagerService(store, eng, progression)
	challengeService := service.NewChallengeService(store, progression)
	tournamentService := service.NewTournamentService(store)
	clanService := service.NewClanService(store, cfg.Economy.ClanCreationFee, cfg.Economy.ClanMaxMembers)
	shopService := service.NewShopService(store, progression)
	stockService := service.NewStockService(store, cfg.Stocks.Volatility)
	leaderboardService := service.NewLeaderboardService(store, boardCache, cfg.Leaderboards.EntryLimit)
	adminService := service.NewAdminService(store)

	if len(cfg.Admin.Usernames) > 0 {
		n, err := adminService.PromoteAdmins(ctx, cfg.Admin.Usernames)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to apply admin accounts")
		}
		log.Info().Int("promoted", n).Msg("Admin accounts applied")
	}

	log.Info().
		Int("game_count", len(eng.Catalog())).
		Msg("Games registered")

	router := api.NewRouter(&api.Dependencies{
		Gate:           gate,
		DB:             dbPool,
		RequestTimeout: cfg.Server.RequestTimeout,
		Accounts:       handler.NewAccountHandler(accountService),
		Games:          handler.NewGameHandler(wagerService),
		Economy: handler.NewEconomyHandler(
			challengeService, tournamentService, clanService,
			shopService, stockService, leaderboardService,
		),
		Admin: handler.NewAdminHandler(adminService, challengeService, tournamentService, leaderboardService),
	})

	// Background jobs
	workers := service.NewWorkers(
		service.Job{Name: "stock_tick", Interval: cfg.Stocks.TickInterval, Run: stockService.Tick},
		service.Job{Name: "leaderboard_recompute", Interval: cfg.Leaderboards.RecomputeInterval, Run: leaderboardService.Recompute},
	)
	workers.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server is starting...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serveErr:
		log.Error().Err(err).Msg("Server failed")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown did not complete")
	}
	cancel()
	workers.Wait()
	log.Info().Msg("Server stopped gracefully")
}

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
