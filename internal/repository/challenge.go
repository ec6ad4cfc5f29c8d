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

const challengeColumns = `
	c.id, c.name, c.description, c.challenge_type, c.metric, c.target_value,
	c.game_type, c.reward_type, c.reward_amount, c.start_time, c.end_time, c.is_active`

// ChallengeRepository handles challenges and per-account progress.
type ChallengeRepository struct {
	db DBTX
}

// NewChallengeRepository creates a new ChallengeRepository instance.
func NewChallengeRepository(db DBTX) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

func challengeDest(c *model.Challenge) []any {
	return []any{
		&c.ID, &c.Name, &c.Description, &c.ChallengeType, &c.Metric, &c.TargetValue,
		&c.GameType, &c.RewardType, &c.RewardAmount, &c.StartTime, &c.EndTime, &c.IsActive,
	}
}

// Create inserts a challenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *model.Challenge) (*model.Challenge, error) {
	query := `
		INSERT INTO challenges AS c (id, name, description, challenge_type, metric, target_value,
			game_type, reward_type, reward_amount, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + challengeColumns

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	var out model.Challenge
	err := r.db.QueryRow(ctx, query,
		c.ID, c.Name, c.Description, c.ChallengeType, c.Metric, c.TargetValue,
		c.GameType, c.RewardType, c.RewardAmount, c.StartTime, c.EndTime, c.IsActive,
	).Scan(challengeDest(&out)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return &out, nil
}

// Get retrieves a challenge by id.
func (r *ChallengeRepository) Get(ctx context.Context, id uuid.UUID) (*model.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges c WHERE c.id = $1`

	var c model.Challenge
	if err := r.db.QueryRow(ctx, query, id).Scan(challengeDest(&c)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &c, nil
}

// ListWithProgress returns active, unexpired challenges joined with the
// account's progress. An empty challengeType matches every type.
func (r *ChallengeRepository) ListWithProgress(ctx context.Context, accountID uuid.UUID, challengeType string, now time.Time) ([]*model.ChallengeView, error) {
	query := `
		SELECT ` + challengeColumns + `,
		       COALESCE(p.progress, 0), p.completed_at, COALESCE(p.reward_claimed, FALSE)
		FROM challenges c
		LEFT JOIN challenge_progress p ON p.challenge_id = c.id AND p.account_id = $1
		WHERE c.is_active AND c.end_time > $2
		  AND ($3 = '' OR c.challenge_type = $3)
		ORDER BY c.end_time, c.name`

	rows, err := r.db.Query(ctx, query, accountID, now, challengeType)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var views []*model.ChallengeView
	for rows.Next() {
		var v model.ChallengeView
		dest := append(challengeDest(&v.Challenge), &v.Progress, &v.CompletedAt, &v.RewardClaimed)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		views = append(views, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}

	return views, nil
}

// ActiveForGame returns challenges running at now whose game filter is
// empty or equals gameType.
func (r *ChallengeRepository) ActiveForGame(ctx context.Context, gameType string, now time.Time) ([]*model.Challenge, error) {
	query := `SELECT ` + challengeColumns + `
		FROM challenges c
		WHERE c.is_active AND c.start_time <= $1 AND c.end_time > $1
		  AND (c.game_type IS NULL OR c.game_type = $2)`

	rows, err := r.db.Query(ctx, query, now, gameType)
	if err != nil {
		return nil, fmt.Errorf("failed to list active challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*model.Challenge
	for rows.Next() {
		var c model.Challenge
		if err := rows.Scan(challengeDest(&c)...); err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}

	return challenges, nil
}

// LockProgress reads the account's progress row with a row lock. A missing
// row yields zero progress and no error.
func (r *ChallengeRepository) LockProgress(ctx context.Context, challengeID, accountID uuid.UUID) (*model.ChallengeProgress, error) {
	const query = `
		SELECT challenge_id, account_id, progress, completed_at, reward_claimed
		FROM challenge_progress
		WHERE challenge_id = $1 AND account_id = $2
		FOR UPDATE
	`

	var p model.ChallengeProgress
	err := r.db.QueryRow(ctx, query, challengeID, accountID).Scan(
		&p.ChallengeID,
		&p.AccountID,
		&p.Progress,
		&p.CompletedAt,
		&p.RewardClaimed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.ChallengeProgress{ChallengeID: challengeID, AccountID: accountID}, nil
		}
		return nil, fmt.Errorf("failed to get challenge progress: %w", err)
	}
	return &p, nil
}

// SaveProgress upserts a progress counter. completed_at is written only
// once: an existing completion time is never replaced.
func (r *ChallengeRepository) SaveProgress(ctx context.Context, p *model.ChallengeProgress) error {
	const query = `
		INSERT INTO challenge_progress (challenge_id, account_id, progress, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (challenge_id, account_id) DO UPDATE
		SET progress = EXCLUDED.progress,
		    completed_at = COALESCE(challenge_progress.completed_at, EXCLUDED.completed_at),
		    updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, p.ChallengeID, p.AccountID, p.Progress, p.CompletedAt); err != nil {
		return fmt.Errorf("failed to save challenge progress: %w", err)
	}
	return nil
}

// MarkClaimed flips reward_claimed on a completed, unclaimed row and
// reports whether it did.
func (r *ChallengeRepository) MarkClaimed(ctx context.Context, challengeID, accountID uuid.UUID) (bool, error) {
	const query = `
		UPDATE challenge_progress SET reward_claimed = TRUE, updated_at = NOW()
		WHERE challenge_id = $1 AND account_id = $2
		  AND completed_at IS NOT NULL AND NOT reward_claimed
	`
	tag, err := r.db.Exec(ctx, query, challengeID, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to claim challenge: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
