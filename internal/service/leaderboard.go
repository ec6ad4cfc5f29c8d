package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/game"
	"virtual-casino/internal/model"
	"virtual-casino/internal/pkg/lock"
	"virtual-casino/internal/repository"
)

// LeaderboardCache stores materialized entries outside PostgreSQL.
type LeaderboardCache interface {
	Get(ctx context.Context, id uuid.UUID, limit int) ([]model.LeaderboardEntry, bool, error)
	Set(ctx context.Context, id uuid.UUID, entries []model.LeaderboardEntry) error
}

// LeaderboardService materializes and serves rankings.
type LeaderboardService struct {
	store   *repository.Store
	cache   LeaderboardCache
	limit   int
	running *lock.Keyed[uuid.UUID]
	now     func() time.Time
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(store *repository.Store, cache LeaderboardCache, limit int) *LeaderboardService {
	if limit <= 0 {
		limit = 100
	}
	return &LeaderboardService{
		store:   store,
		cache:   cache,
		limit:   limit,
		running: lock.NewKeyed[uuid.UUID](),
		now:     time.Now,
	}
}

// WindowStart returns the UTC start of the window containing now, or nil
// for all-time boards. Weeks start on Monday.
func WindowStart(lbType string, now time.Time) (*time.Time, error) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var start time.Time
	switch lbType {
	case model.LeaderboardDaily:
		start = day
	case model.LeaderboardWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
	case model.LeaderboardMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case model.LeaderboardAllTime:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, lbType)
	}
	return &start, nil
}

// Create defines a leaderboard.
func (s *LeaderboardService) Create(ctx context.Context, lb *model.Leaderboard) (*model.Leaderboard, error) {
	lb.Name = strings.TrimSpace(lb.Name)
	if lb.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := WindowStart(lb.LeaderboardType, s.now()); err != nil {
		return nil, err
	}
	if lb.GameType != nil {
		if _, ok := game.ParseKind(*lb.GameType); !ok {
			return nil, fmt.Errorf("%w: %q", game.ErrUnknownGame, *lb.GameType)
		}
	}
	lb.IsActive = true

	created, err := s.store.Leaderboards.Create(ctx, lb)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownMetric) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, lb.Metric)
		}
		return nil, err
	}
	return created, nil
}

// Recompute rebuilds the entries of every active leaderboard. A board
// already being rebuilt by another caller is skipped. A failing board is
// logged and skipped; the first error is returned.
func (s *LeaderboardService) Recompute(ctx context.Context) error {
	boards, err := s.store.Leaderboards.ListActive(ctx, "", "")
	if err != nil {
		return err
	}

	now := s.now()
	var first error
	for _, lb := range boards {
		err := s.running.Do(lb.ID, func() error { return s.recompute(ctx, lb, now) })
		if errors.Is(err, lock.ErrBusy) {
			log.Debug().Str("leaderboard_id", lb.ID.String()).Msg("Leaderboard rebuild already running")
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("leaderboard_id", lb.ID.String()).Msg("Failed to recompute leaderboard")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (s *LeaderboardService) recompute(ctx context.Context, lb *model.Leaderboard, now time.Time) error {
	since, err := WindowStart(lb.LeaderboardType, now)
	if err != nil {
		return err
	}

	var entries []model.LeaderboardEntry
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		entries, err = tx.Leaderboards.Aggregate(ctx, lb.Metric, lb.GameType, since, s.limit)
		if err != nil {
			return err
		}
		return tx.Leaderboards.ReplaceEntries(ctx, lb.ID, entries)
	})
	if err != nil {
		return err
	}

	if err := s.cache.Set(ctx, lb.ID, entries); err != nil {
		log.Warn().Err(err).Str("leaderboard_id", lb.ID.String()).Msg("Failed to cache leaderboard")
	}
	return nil
}

// Fetch returns active leaderboards matching the filters with their
// entries, served from the cache when present.
func (s *LeaderboardService) Fetch(ctx context.Context, lbType, gameType string) ([]model.LeaderboardView, error) {
	if lbType != "" {
		if _, err := WindowStart(lbType, s.now()); err != nil {
			return nil, err
		}
	}
	boards, err := s.store.Leaderboards.ListActive(ctx, lbType, gameType)
	if err != nil {
		return nil, err
	}

	views := make([]model.LeaderboardView, 0, len(boards))
	for _, lb := range boards {
		entries, err := s.entries(ctx, lb.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, model.LeaderboardView{Leaderboard: *lb, Entries: entries})
	}
	return views, nil
}

func (s *LeaderboardService) entries(ctx context.Context, id uuid.UUID) ([]model.LeaderboardEntry, error) {
	entries, ok, err := s.cache.Get(ctx, id, s.limit)
	if err != nil {
		log.Warn().Err(err).Str("leaderboard_id", id.String()).Msg("Leaderboard cache read failed")
	}
	if ok {
		return entries, nil
	}

	entries, err = s.store.Leaderboards.Entries(ctx, id, s.limit)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, id, entries); err != nil {
		log.Warn().Err(err).Str("leaderboard_id", id.String()).Msg("Failed to cache leaderboard")
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return entries, nil
}
