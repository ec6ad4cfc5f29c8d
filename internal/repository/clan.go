package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"virtual-casino/internal/model"
)

const clanColumns = `
	c.id, c.name, c.tag, c.description, c.owner_id, c.member_count, c.max_members,
	c.is_public, c.total_winnings, c.created_at`

// ClanRepository handles clans and memberships.
type ClanRepository struct {
	db DBTX
}

// NewClanRepository creates a new ClanRepository instance.
func NewClanRepository(db DBTX) *ClanRepository {
	return &ClanRepository{db: db}
}

func clanDest(c *model.Clan) []any {
	return []any{
		&c.ID, &c.Name, &c.Tag, &c.Description, &c.OwnerID, &c.MemberCount, &c.MaxMembers,
		&c.IsPublic, &c.TotalWinnings, &c.CreatedAt,
	}
}

// Create inserts a clan with its owner as the first member. A name or
// tag clash (case-insensitive) returns ErrAlreadyExists; an owner who is
// already in a clan returns ErrConflict.
func (r *ClanRepository) Create(ctx context.Context, c *model.Clan) (*model.Clan, error) {
	query := `
		INSERT INTO clans AS c (id, name, tag, description, owner_id, member_count, max_members,
			is_public, total_winnings, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, 0, NOW())
		RETURNING ` + clanColumns

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	var out model.Clan
	err := r.db.QueryRow(ctx, query,
		c.ID, c.Name, c.Tag, c.Description, c.OwnerID, c.MaxMembers, c.IsPublic,
	).Scan(clanDest(&out)...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, uniqueConstraint(err))
		}
		return nil, fmt.Errorf("failed to create clan: %w", err)
	}

	if err := r.AddMember(ctx, out.ID, c.OwnerID, model.ClanRoleOwner); err != nil {
		return nil, err
	}
	out.MemberCount = 1
	return &out, nil
}

// Get retrieves a clan by id.
func (r *ClanRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clan, error) {
	return r.one(ctx, `SELECT `+clanColumns+` FROM clans c WHERE c.id = $1`, id)
}

// Lock reads a clan and holds its row lock.
func (r *ClanRepository) Lock(ctx context.Context, id uuid.UUID) (*model.Clan, error) {
	return r.one(ctx, `SELECT `+clanColumns+` FROM clans c WHERE c.id = $1 FOR UPDATE`, id)
}

// Membership returns the account's clan and role, or ErrNotFound.
func (r *ClanRepository) Membership(ctx context.Context, accountID uuid.UUID) (*model.Clan, *model.ClanMember, error) {
	query := `
		SELECT ` + clanColumns + `, m.role, m.joined_at
		FROM clan_members m
		JOIN clans c ON c.id = m.clan_id
		WHERE m.account_id = $1`

	var c model.Clan
	m := model.ClanMember{AccountID: accountID}
	dest := append(clanDest(&c), &m.Role, &m.JoinedAt)
	if err := r.db.QueryRow(ctx, query, accountID).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get membership: %w", err)
	}
	m.ClanID = c.ID
	return &c, &m, nil
}

// List returns public clans ordered by winnings, then size.
func (r *ClanRepository) List(ctx context.Context, limit int) ([]*model.Clan, error) {
	query := `SELECT ` + clanColumns + `
		FROM clans c
		WHERE c.is_public
		ORDER BY c.total_winnings DESC, c.member_count DESC, c.created_at
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list clans: %w", err)
	}
	defer rows.Close()

	var clans []*model.Clan
	for rows.Next() {
		var c model.Clan
		if err := rows.Scan(clanDest(&c)...); err != nil {
			return nil, fmt.Errorf("failed to scan clan: %w", err)
		}
		clans = append(clans, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clans: %w", err)
	}

	return clans, nil
}

// AddMember inserts a membership and bumps the member counter. An account
// already in any clan returns ErrConflict; a full clan returns ErrConflict
// too, so callers check capacity on the locked row first.
func (r *ClanRepository) AddMember(ctx context.Context, clanID, accountID uuid.UUID, role string) error {
	const insert = `
		INSERT INTO clan_members (clan_id, account_id, role, joined_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := r.db.Exec(ctx, insert, clanID, accountID, role); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account already in a clan", ErrConflict)
		}
		return fmt.Errorf("failed to add clan member: %w", err)
	}

	const bump = `
		UPDATE clans SET member_count = member_count + 1
		WHERE id = $1 AND member_count < max_members
	`
	tag, err := r.db.Exec(ctx, bump, clanID)
	if err != nil {
		return fmt.Errorf("failed to update member count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: clan is full", ErrConflict)
	}
	return nil
}

// RemoveMember deletes a membership and decrements the counter.
func (r *ClanRepository) RemoveMember(ctx context.Context, clanID, accountID uuid.UUID) error {
	const remove = `DELETE FROM clan_members WHERE clan_id = $1 AND account_id = $2`
	tag, err := r.db.Exec(ctx, remove, clanID, accountID)
	if err != nil {
		return fmt.Errorf("failed to remove clan member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	const drop = `UPDATE clans SET member_count = member_count - 1 WHERE id = $1`
	if _, err := r.db.Exec(ctx, drop, clanID); err != nil {
		return fmt.Errorf("failed to update member count: %w", err)
	}
	return nil
}

// Delete removes a clan; memberships cascade.
func (r *ClanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddWinnings credits a member's payout to their clan's aggregate.
func (r *ClanRepository) AddWinnings(ctx context.Context, accountID uuid.UUID, amount int64) error {
	const query = `
		UPDATE clans SET total_winnings = total_winnings + $2
		WHERE id = (SELECT clan_id FROM clan_members WHERE account_id = $1)
	`
	if _, err := r.db.Exec(ctx, query, accountID, amount); err != nil {
		return fmt.Errorf("failed to add clan winnings: %w", err)
	}
	return nil
}

func (r *ClanRepository) one(ctx context.Context, query string, args ...any) (*model.Clan, error) {
	var c model.Clan
	if err := r.db.QueryRow(ctx, query, args...).Scan(clanDest(&c)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clan: %w", err)
	}
	return &c, nil
}
