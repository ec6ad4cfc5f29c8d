package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"virtual-casino/internal/model"
)

// ErrUnknownMetric is returned for a metric with no aggregate.
var ErrUnknownMetric = errors.New("unknown leaderboard metric")

// metricExpr maps a scoring metric to its aggregate over game_history.
var metricExpr = map[string]string{
	model.ScoreTotalWon:     "SUM(g.win_amount)",
	model.ScoreNetProfit:    "SUM(g.win_amount - g.bet_amount)",
	model.ScoreBiggestWin:   "MAX(g.win_amount)",
	model.ScoreGamesPlayed:  "COUNT(*)",
	model.ScoreTotalWagered: "SUM(g.bet_amount)",
}

const leaderboardColumns = `id, name, leaderboard_type, game_type, metric, prize_pool, is_active`

// LeaderboardRepository handles leaderboard definitions and their
// materialized entries.
type LeaderboardRepository struct {
	db DBTX
}

// NewLeaderboardRepository creates a new LeaderboardRepository instance.
func NewLeaderboardRepository(db DBTX) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

func scanLeaderboard(row pgx.Row) (*model.Leaderboard, error) {
	var lb model.Leaderboard
	err := row.Scan(
		&lb.ID,
		&lb.Name,
		&lb.LeaderboardType,
		&lb.GameType,
		&lb.Metric,
		&lb.PrizePool,
		&lb.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &lb, nil
}

// Create inserts a leaderboard definition.
func (r *LeaderboardRepository) Create(ctx context.Context, lb *model.Leaderboard) (*model.Leaderboard, error) {
	if _, ok := metricExpr[lb.Metric]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, lb.Metric)
	}
	query := `
		INSERT INTO leaderboards (id, name, leaderboard_type, game_type, metric, prize_pool, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + leaderboardColumns

	if lb.ID == uuid.Nil {
		lb.ID = uuid.New()
	}
	out, err := scanLeaderboard(r.db.QueryRow(ctx, query,
		lb.ID, lb.Name, lb.LeaderboardType, lb.GameType, lb.Metric, lb.PrizePool, lb.IsActive,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create leaderboard: %w", err)
	}
	return out, nil
}

// Get retrieves a leaderboard by id.
func (r *LeaderboardRepository) Get(ctx context.Context, id uuid.UUID) (*model.Leaderboard, error) {
	lb, err := scanLeaderboard(r.db.QueryRow(ctx, `SELECT `+leaderboardColumns+` FROM leaderboards WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return lb, nil
}

// ListActive returns active leaderboards. Empty filters match everything.
func (r *LeaderboardRepository) ListActive(ctx context.Context, lbType, gameType string) ([]*model.Leaderboard, error) {
	query := `SELECT ` + leaderboardColumns + `
		FROM leaderboards
		WHERE is_active
		  AND ($1 = '' OR leaderboard_type = $1)
		  AND ($2 = '' OR game_type = $2)
		ORDER BY leaderboard_type, name`

	rows, err := r.db.Query(ctx, query, lbType, gameType)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboards: %w", err)
	}
	defer rows.Close()

	var boards []*model.Leaderboard
	for rows.Next() {
		lb, err := scanLeaderboard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard: %w", err)
		}
		boards = append(boards, lb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboards: %w", err)
	}

	return boards, nil
}

// Aggregate ranks accounts by a metric over game history since the given
// instant (nil for all time), optionally restricted to one game type.
// Ranks are 1-based in descending score order.
func (r *LeaderboardRepository) Aggregate(ctx context.Context, metric string, gameType *string, since *time.Time, limit int) ([]model.LeaderboardEntry, error) {
	expr, ok := metricExpr[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	query := `
		SELECT a.id, a.username, a.avatar_url, a.level, COALESCE(` + expr + `, 0)::BIGINT AS score
		FROM game_history g
		JOIN accounts a ON a.id = g.account_id
		WHERE ($1::timestamptz IS NULL OR g.created_at >= $1)
		  AND ($2::text IS NULL OR g.game_type = $2)
		GROUP BY a.id
		ORDER BY score DESC, a.username
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, since, gameType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.AccountID, &e.Username, &e.AvatarURL, &e.Level, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard entries: %w", err)
	}

	return entries, nil
}

// ReplaceEntries swaps the materialized entries of a leaderboard.
func (r *LeaderboardRepository) ReplaceEntries(ctx context.Context, id uuid.UUID, entries []model.LeaderboardEntry) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM leaderboard_entries WHERE leaderboard_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear leaderboard entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	scores := make([]int64, len(entries))
	ranks := make([]int32, len(entries))
	for i, e := range entries {
		ids[i] = e.AccountID.String()
		scores[i] = e.Score
		ranks[i] = int32(e.Rank)
	}

	const insert = `
		INSERT INTO leaderboard_entries (leaderboard_id, account_id, score, rank, computed_at)
		SELECT $1, u.account_id, u.score, u.rank, NOW()
		FROM UNNEST($2::uuid[], $3::bigint[], $4::int[]) AS u(account_id, score, rank)
	`
	if _, err := r.db.Exec(ctx, insert, id, ids, scores, ranks); err != nil {
		return fmt.Errorf("failed to insert leaderboard entries: %w", err)
	}
	return nil
}

// Entries returns the materialized entries of a leaderboard by rank.
func (r *LeaderboardRepository) Entries(ctx context.Context, id uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	const query = `
		SELECT a.id, a.username, a.avatar_url, a.level, e.score, e.rank
		FROM leaderboard_entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE e.leaderboard_id = $1
		ORDER BY e.rank
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard entries: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.AccountID, &e.Username, &e.AvatarURL, &e.Level, &e.Score, &e.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard entries: %w", err)
	}

	return entries, nil
}
