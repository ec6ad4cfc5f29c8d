package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"virtual-casino/internal/model"
)

// HistoryRepository handles resolved wager records.
type HistoryRepository struct {
	db DBTX
}

// NewHistoryRepository creates a new HistoryRepository instance.
func NewHistoryRepository(db DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record appends one game history row.
func (r *HistoryRepository) Record(ctx context.Context, h *model.GameHistory) (*model.GameHistory, error) {
	const query = `
		INSERT INTO game_history (id, account_id, game_type, bet_amount, win_amount, multiplier, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	result := h.Result
	if len(result) == 0 {
		result = json.RawMessage(`{}`)
	}

	out := *h
	err := r.db.QueryRow(ctx, query,
		h.ID, h.AccountID, h.GameType, h.BetAmount, h.WinAmount, h.Multiplier, result,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record game: %w", err)
	}
	out.Result = result
	return &out, nil
}

// ListByAccount returns recent games, newest first.
func (r *HistoryRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.GameHistory, error) {
	const query = `
		SELECT id, account_id, game_type, bet_amount, win_amount, multiplier, result, created_at
		FROM game_history
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get game history: %w", err)
	}
	defer rows.Close()

	var games []*model.GameHistory
	for rows.Next() {
		var g model.GameHistory
		err := rows.Scan(
			&g.ID,
			&g.AccountID,
			&g.GameType,
			&g.BetAmount,
			&g.WinAmount,
			&g.Multiplier,
			&g.Result,
			&g.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game history: %w", err)
		}
		games = append(games, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game history: %w", err)
	}

	return games, nil
}

// StatsByGame aggregates an account's history per game type.
func (r *HistoryRepository) StatsByGame(ctx context.Context, accountID uuid.UUID) ([]model.GameStats, error) {
	const query = `
		SELECT game_type,
		       COUNT(*),
		       COALESCE(SUM(bet_amount), 0)::BIGINT,
		       COALESCE(SUM(win_amount), 0)::BIGINT,
		       COALESCE(MAX(win_amount), 0)::BIGINT
		FROM game_history
		WHERE account_id = $1
		GROUP BY game_type
		ORDER BY COUNT(*) DESC, game_type
	`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game stats: %w", err)
	}
	defer rows.Close()

	var stats []model.GameStats
	for rows.Next() {
		var s model.GameStats
		if err := rows.Scan(&s.GameType, &s.GamesPlayed, &s.TotalWagered, &s.TotalWon, &s.BiggestWin); err != nil {
			return nil, fmt.Errorf("failed to scan game stats: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game stats: %w", err)
	}

	return stats, nil
}
