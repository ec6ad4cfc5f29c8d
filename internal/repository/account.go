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

const accountColumns = `
	id, username, email, password_hash, balance, level, xp,
	total_wagered, total_won, games_played, role, is_tester, infinite_funds,
	avatar_url, last_daily_bonus, banned_until, created_at, updated_at`

// AccountRepository handles account persistence.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.Balance,
		&a.Level,
		&a.XP,
		&a.TotalWagered,
		&a.TotalWon,
		&a.GamesPlayed,
		&a.Role,
		&a.IsTester,
		&a.InfiniteFunds,
		&a.AvatarURL,
		&a.LastDailyBonus,
		&a.BannedUntil,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new account. Username and email are unique
// case-insensitively; a clash returns ErrAlreadyExists.
func (r *AccountRepository) Create(ctx context.Context, a *model.Account) (*model.Account, error) {
	query := `
		INSERT INTO accounts (id, username, email, password_hash, balance, level, xp, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, 0, $6, NOW(), NOW())
		RETURNING ` + accountColumns

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Role == "" {
		a.Role = model.RoleUser
	}

	created, err := scanAccount(r.db.QueryRow(ctx, query, a.ID, a.Username, a.Email, a.PasswordHash, a.Balance, a.Role))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, uniqueConstraint(err))
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return created, nil
}

// GetByID retrieves an account by id.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.one(ctx, "get account", query, id)
}

// GetByLogin retrieves an account by username or email, case-insensitively.
func (r *AccountRepository) GetByLogin(ctx context.Context, identifier string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
		LIMIT 1`
	return r.one(ctx, "get account by login", query, identifier)
}

// GetByUsername retrieves an account by exact username, case-insensitively.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(username) = LOWER($1)`
	return r.one(ctx, "get account by username", query, username)
}

// Lock reads an account and holds its row lock until the transaction
// ends. Every balance mutation goes through a locked row.
func (r *AccountRepository) Lock(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.one(ctx, "lock account", query, id)
}

// Debit subtracts amount from the balance. The update is conditional on
// the balance covering the amount, so it cannot overdraw even without a
// prior Lock. Infinite-funds accounts keep their balance.
func (r *AccountRepository) Debit(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("debit amount must be non-negative, got %d", amount)
	}
	return r.adjust(ctx, id, -amount)
}

// Credit adds amount to the balance. Infinite-funds accounts keep their
// balance.
func (r *AccountRepository) Credit(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("credit amount must be non-negative, got %d", amount)
	}
	return r.adjust(ctx, id, amount)
}

func (r *AccountRepository) adjust(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	const query = `
		UPDATE accounts
		SET balance = CASE WHEN infinite_funds THEN balance ELSE balance + $2 END,
		    updated_at = NOW()
		WHERE id = $1 AND (infinite_funds OR balance + $2 >= 0)
		RETURNING balance
	`

	var balance int64
	err := r.db.QueryRow(ctx, query, id, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrInsufficientFunds
}

// AddStats increments the wager counters.
func (r *AccountRepository) AddStats(ctx context.Context, id uuid.UUID, wagered, won, games int64) error {
	const query = `
		UPDATE accounts
		SET total_wagered = total_wagered + $2,
		    total_won = total_won + $3,
		    games_played = games_played + $4,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "add stats", query, id, wagered, won, games)
}

// AddXP increments experience and returns the new total.
func (r *AccountRepository) AddXP(ctx context.Context, id uuid.UUID, xp int64) (int64, error) {
	const query = `
		UPDATE accounts SET xp = xp + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING xp
	`
	var total int64
	if err := r.db.QueryRow(ctx, query, id, xp).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to add xp: %w", err)
	}
	return total, nil
}

// RaiseLevel sets the level when it is higher than the stored one and
// reports whether it changed. The condition makes a repeated call with the
// same level a no-op.
func (r *AccountRepository) RaiseLevel(ctx context.Context, id uuid.UUID, level int) (bool, error) {
	const query = `
		UPDATE accounts SET level = $2, updated_at = NOW()
		WHERE id = $1 AND level < $2
	`
	tag, err := r.db.Exec(ctx, query, id, level)
	if err != nil {
		return false, fmt.Errorf("failed to raise level: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimDaily stamps the daily bonus date when it has not been claimed on
// that UTC date yet. It returns false when already claimed.
func (r *AccountRepository) ClaimDaily(ctx context.Context, id uuid.UUID, day time.Time) (bool, error) {
	const query = `
		UPDATE accounts SET last_daily_bonus = $2::date, updated_at = NOW()
		WHERE id = $1 AND (last_daily_bonus IS NULL OR last_daily_bonus < $2::date)
	`
	y, m, d := day.UTC().Date()
	tag, err := r.db.Exec(ctx, query, id, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return false, fmt.Errorf("failed to claim daily bonus: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetAvatar updates the avatar URL; nil clears it.
func (r *AccountRepository) SetAvatar(ctx context.Context, id uuid.UUID, url *string) error {
	const query = `UPDATE accounts SET avatar_url = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set avatar", query, id, url)
}

// SetTester toggles the tester flag.
func (r *AccountRepository) SetTester(ctx context.Context, id uuid.UUID, tester bool) error {
	const query = `UPDATE accounts SET is_tester = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set tester", query, id, tester)
}

// SetInfiniteFunds toggles the infinite-funds flag.
func (r *AccountRepository) SetInfiniteFunds(ctx context.Context, id uuid.UUID, infinite bool) error {
	const query = `
		UPDATE accounts
		SET infinite_funds = $2,
		    balance = GREATEST(balance, 0),
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "set infinite funds", query, id, infinite)
}

// SetRole changes the account role.
func (r *AccountRepository) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	const query = `UPDATE accounts SET role = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set role", query, id, role)
}

// SetBan bans the account until the given time; nil lifts the ban.
func (r *AccountRepository) SetBan(ctx context.Context, id uuid.UUID, until *time.Time) error {
	const query = `UPDATE accounts SET banned_until = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set ban", query, id, until)
}

// List returns accounts, newest first.
func (r *AccountRepository) List(ctx context.Context, limit int) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// Exists checks if an account with the given id exists.
func (r *AccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`

	var exists bool
	err := r.db.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}

	return exists, nil
}

func (r *AccountRepository) one(ctx context.Context, op, query string, args ...any) (*model.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return a, nil
}

func (r *AccountRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
