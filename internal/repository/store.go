// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors for repository operations.
var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyExists     = errors.New("record already exists")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrConflict          = errors.New("conditional update matched no rows")
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// runs unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories over one connection handle.
type Store struct {
	db beginner

	Accounts     *AccountRepository
	Transactions *TransactionRepository
	History      *HistoryRepository
	Sessions     *SessionRepository
	Challenges   *ChallengeRepository
	Tournaments  *TournamentRepository
	Clans        *ClanRepository
	Stocks       *StockRepository
	Leaderboards *LeaderboardRepository
	Titles       *TitleRepository
}

// NewStore creates a Store backed by the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return newStore(pool, pool)
}

func newStore(b beginner, db DBTX) *Store {
	return &Store{
		db:           b,
		Accounts:     NewAccountRepository(db),
		Transactions: NewTransactionRepository(db),
		History:      NewHistoryRepository(db),
		Sessions:     NewSessionRepository(db),
		Challenges:   NewChallengeRepository(db),
		Tournaments:  NewTournamentRepository(db),
		Clans:        NewClanRepository(db),
		Stocks:       NewStockRepository(db),
		Leaderboards: NewLeaderboardRepository(db),
		Titles:       NewTitleRepository(db),
	}
}

// InTx runs fn with a Store bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise. Calling InTx on a
// transactional Store opens a savepoint.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(newStore(tx, tx))
	})
}

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// uniqueConstraint returns the violated constraint name, if any.
func uniqueConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}
