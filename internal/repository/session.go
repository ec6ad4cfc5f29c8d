package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"virtual-casino/internal/model"
)

// ErrSessionActive is returned when the account already has an active
// session of the same game type.
var ErrSessionActive = errors.New("a round of this game is already in progress")

const sessionColumns = `id, account_id, game_type, bet_amount, state, status, created_at, updated_at`

// SessionRepository persists multi-step game state.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row) (*model.GameSession, error) {
	var s model.GameSession
	err := row.Scan(
		&s.ID,
		&s.AccountID,
		&s.GameType,
		&s.BetAmount,
		&s.State,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create opens an active session. A second active session of the same
// game type for the account returns ErrSessionActive.
func (r *SessionRepository) Create(ctx context.Context, accountID uuid.UUID, gameType string, bet int64, state json.RawMessage) (*model.GameSession, error) {
	query := `
		INSERT INTO game_sessions (id, account_id, game_type, bet_amount, state, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'active', NOW(), NOW())
		RETURNING ` + sessionColumns

	s, err := scanSession(r.db.QueryRow(ctx, query, uuid.New(), accountID, gameType, bet, state))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSessionActive
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// Lock reads an account's session and holds its row lock.
func (r *SessionRepository) Lock(ctx context.Context, id, accountID uuid.UUID) (*model.GameSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM game_sessions
		WHERE id = $1 AND account_id = $2
		FOR UPDATE`
	return r.one(ctx, query, id, accountID)
}

// LockActive locks the active session of a game type, if any.
func (r *SessionRepository) LockActive(ctx context.Context, accountID uuid.UUID, gameType string) (*model.GameSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM game_sessions
		WHERE account_id = $1 AND game_type = $2 AND status = 'active'
		FOR UPDATE`
	return r.one(ctx, query, accountID, gameType)
}

// Save stores new state and status for a session.
func (r *SessionRepository) Save(ctx context.Context, id uuid.UUID, state json.RawMessage, status string) error {
	const query = `
		UPDATE game_sessions SET state = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, state, status)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns the account's running sessions.
func (r *SessionRepository) ListActive(ctx context.Context, accountID uuid.UUID) ([]*model.GameSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM game_sessions
		WHERE account_id = $1 AND status = 'active'
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.GameSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) one(ctx context.Context, query string, args ...any) (*model.GameSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}
