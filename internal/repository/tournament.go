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

const tournamentColumns = `
	id, name, description, game_type, entry_fee, prize_pool, max_participants,
	participant_count, start_time, end_time, finalized, created_at`

// TournamentRepository handles tournaments and their participants.
type TournamentRepository struct {
	db DBTX
}

// NewTournamentRepository creates a new TournamentRepository instance.
func NewTournamentRepository(db DBTX) *TournamentRepository {
	return &TournamentRepository{db: db}
}

func scanTournament(row pgx.Row) (*model.Tournament, error) {
	var t model.Tournament
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.GameType,
		&t.EntryFee,
		&t.PrizePool,
		&t.MaxParticipants,
		&t.ParticipantCount,
		&t.StartTime,
		&t.EndTime,
		&t.Finalized,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a tournament.
func (r *TournamentRepository) Create(ctx context.Context, t *model.Tournament) (*model.Tournament, error) {
	query := `
		INSERT INTO tournaments (id, name, description, game_type, entry_fee, prize_pool,
			max_participants, participant_count, start_time, end_time, finalized, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, FALSE, NOW())
		RETURNING ` + tournamentColumns

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	out, err := scanTournament(r.db.QueryRow(ctx, query,
		t.ID, t.Name, t.Description, t.GameType, t.EntryFee, t.PrizePool,
		t.MaxParticipants, t.StartTime, t.EndTime,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return out, nil
}

// Get retrieves a tournament by id.
func (r *TournamentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Tournament, error) {
	return r.one(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
}

// Lock reads a tournament and holds its row lock, serializing joins.
func (r *TournamentRepository) Lock(ctx context.Context, id uuid.UUID) (*model.Tournament, error) {
	return r.one(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
}

// List returns tournaments in a status window. Status is one of
// upcoming, active, completed, or empty for all; an empty gameType
// matches every game.
func (r *TournamentRepository) List(ctx context.Context, status, gameType string, now time.Time) ([]*model.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE ($2 = '' OR game_type = $2)
		  AND CASE $3::text
		        WHEN 'upcoming' THEN start_time > $1
		        WHEN 'active' THEN start_time <= $1 AND end_time > $1
		        WHEN 'completed' THEN end_time <= $1
		        ELSE TRUE
		      END
		ORDER BY start_time DESC
		LIMIT 100`

	rows, err := r.db.Query(ctx, query, now, gameType, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*model.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournaments: %w", err)
	}

	return tournaments, nil
}

// AddParticipant inserts the participant row and bumps the counter in the
// same statement batch. A duplicate returns ErrAlreadyExists.
func (r *TournamentRepository) AddParticipant(ctx context.Context, tournamentID, accountID uuid.UUID) error {
	const insert = `
		INSERT INTO tournament_participants (tournament_id, account_id, score, joined_at)
		VALUES ($1, $2, 0, NOW())
	`
	if _, err := r.db.Exec(ctx, insert, tournamentID, accountID); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to add participant: %w", err)
	}

	const bump = `
		UPDATE tournaments SET participant_count = participant_count + 1
		WHERE id = $1 AND participant_count < max_participants
	`
	tag, err := r.db.Exec(ctx, bump, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update participant count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// IsParticipant reports whether the account joined the tournament.
func (r *TournamentRepository) IsParticipant(ctx context.Context, tournamentID, accountID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS(SELECT 1 FROM tournament_participants WHERE tournament_id = $1 AND account_id = $2)
	`
	var ok bool
	if err := r.db.QueryRow(ctx, query, tournamentID, accountID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return ok, nil
}

// AddScore adds delta to the account's score in every unfinalized
// tournament for gameType whose window contains at.
func (r *TournamentRepository) AddScore(ctx context.Context, accountID uuid.UUID, gameType string, delta int64, at time.Time) (int64, error) {
	const query = `
		UPDATE tournament_participants tp
		SET score = tp.score + $3
		FROM tournaments t
		WHERE tp.tournament_id = t.id
		  AND tp.account_id = $1
		  AND t.game_type = $2
		  AND NOT t.finalized
		  AND t.start_time <= $4 AND t.end_time > $4
	`
	tag, err := r.db.Exec(ctx, query, accountID, gameType, delta, at)
	if err != nil {
		return 0, fmt.Errorf("failed to add tournament score: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Standings returns participants ordered by score, best first.
func (r *TournamentRepository) Standings(ctx context.Context, tournamentID uuid.UUID, limit int) ([]model.TournamentStanding, error) {
	const query = `
		SELECT tp.account_id, a.username, tp.score, tp.joined_at,
		       RANK() OVER (ORDER BY tp.score DESC)
		FROM tournament_participants tp
		JOIN accounts a ON a.id = tp.account_id
		WHERE tp.tournament_id = $1
		ORDER BY tp.score DESC, tp.joined_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, tournamentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get standings: %w", err)
	}
	defer rows.Close()

	var standings []model.TournamentStanding
	for rows.Next() {
		var s model.TournamentStanding
		var rank int64
		if err := rows.Scan(&s.AccountID, &s.Username, &s.Score, &s.JoinedAt, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		s.Rank = int(rank)
		standings = append(standings, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standings: %w", err)
	}

	return standings, nil
}

// MarkFinalized flips the finalized flag once and reports whether it did.
func (r *TournamentRepository) MarkFinalized(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `UPDATE tournaments SET finalized = TRUE WHERE id = $1 AND NOT finalized`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to finalize tournament: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TournamentRepository) one(ctx context.Context, query string, args ...any) (*model.Tournament, error) {
	t, err := scanTournament(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return t, nil
}
