// Package main seeds the reference catalog: stocks, titles, challenges,
// leaderboards and tournaments.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"virtual-casino/internal/cache"
	"virtual-casino/internal/config"
	"virtual-casino/internal/model"
	"virtual-casino/internal/pkg/db"
	"virtual-casino/internal/repository"
	"virtual-casino/internal/service"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	catalogPath := flag.String("catalog", "config/seed.yaml", "path to the seed catalog")
	flag.Parse()

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	catalog, err := LoadCatalog(*catalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load catalog")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	store := repository.NewStore(dbPool.Pool)
	progression := service.NewProgression(cfg.Economy)
	dst := &storeSeeder{
		store:        store,
		challenges:   service.NewChallengeService(store, progression),
		tournaments:  service.NewTournamentService(store),
		leaderboards: service.NewLeaderboardService(store, cache.Noop{}, cfg.Leaderboards.EntryLimit),
	}

	if err := Apply(ctx, catalog, dst, time.Now().UTC()); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}

	log.Info().
		Int("stocks", len(catalog.Stocks)).
		Int("titles", len(catalog.Titles)).
		Int("challenges", len(catalog.Challenges)).
		Int("leaderboards", len(catalog.Leaderboards)).
		Int("tournaments", len(catalog.Tournaments)).
		Msg("Catalog seeded")
}

// storeSeeder writes through the services so seeded rows pass the same
// validation as admin-created ones.
type storeSeeder struct {
	store        *repository.Store
	challenges   *service.ChallengeService
	tournaments  *service.TournamentService
	leaderboards *service.LeaderboardService
}

func (s *storeSeeder) UpsertStock(ctx context.Context, symbol, name string, price decimal.Decimal) error {
	_, err := s.store.Stocks.Upsert(ctx, symbol, name, price)
	return err
}

func (s *storeSeeder) UpsertTitle(ctx context.Context, t *model.Title) error {
	_, err := s.store.Titles.Upsert(ctx, t)
	return err
}

func (s *storeSeeder) CreateChallenge(ctx context.Context, c *model.Challenge) error {
	_, err := s.challenges.Create(ctx, c)
	return err
}

func (s *storeSeeder) LeaderboardExists(ctx context.Context, name string) (bool, error) {
	boards, err := s.store.Leaderboards.ListActive(ctx, "", "")
	if err != nil {
		return false, err
	}
	for _, lb := range boards {
		if lb.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *storeSeeder) CreateLeaderboard(ctx context.Context, lb *model.Leaderboard) error {
	_, err := s.leaderboards.Create(ctx, lb)
	return err
}

func (s *storeSeeder) CreateTournament(ctx context.Context, t *model.Tournament) error {
	_, err := s.tournaments.Create(ctx, t)
	return err
}
