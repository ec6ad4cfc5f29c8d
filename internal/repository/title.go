package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"virtual-casino/internal/model"
)

// TitleRepository handles level-gated titles.
type TitleRepository struct {
	db DBTX
}

// NewTitleRepository creates a new TitleRepository instance.
func NewTitleRepository(db DBTX) *TitleRepository {
	return &TitleRepository{db: db}
}

// Upsert inserts a title keyed by name, updating its description and
// required level when it exists.
func (r *TitleRepository) Upsert(ctx context.Context, t *model.Title) (*model.Title, error) {
	const query = `
		INSERT INTO titles (id, name, description, required_level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, required_level = EXCLUDED.required_level
		RETURNING id, name, description, required_level
	`

	var out model.Title
	err := r.db.QueryRow(ctx, query, uuid.New(), t.Name, t.Description, t.RequiredLevel).
		Scan(&out.ID, &out.Name, &out.Description, &out.RequiredLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert title: %w", err)
	}
	return &out, nil
}

// GrantUpTo grants every title with required_level <= level that the
// account does not hold yet, returning how many were new.
func (r *TitleRepository) GrantUpTo(ctx context.Context, accountID uuid.UUID, level int) (int64, error) {
	const query = `
		INSERT INTO account_titles (account_id, title_id, acquired_at)
		SELECT $1, t.id, NOW()
		FROM titles t
		WHERE t.required_level <= $2
		ON CONFLICT (account_id, title_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, accountID, level)
	if err != nil {
		return 0, fmt.Errorf("failed to grant titles: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListForAccount returns every title, marking the ones the account holds.
func (r *TitleRepository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]model.Title, error) {
	const query = `
		SELECT t.id, t.name, t.description, t.required_level, owned.acquired_at
		FROM titles t
		LEFT JOIN account_titles owned ON owned.title_id = t.id AND owned.account_id = $1
		ORDER BY t.required_level, t.name
	`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()

	titles := []model.Title{}
	for rows.Next() {
		var t model.Title
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.RequiredLevel, &t.AcquiredAt); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating titles: %w", err)
	}

	return titles, nil
}
