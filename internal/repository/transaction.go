package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"virtual-casino/internal/model"
)

// TransactionRepository handles the append-only transaction log.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// NewTx is the input of Append.
type NewTx struct {
	AccountID   uuid.UUID
	Type        string
	Amount      int64
	GameType    *string
	Description *string
}

// Append records one balance change.
func (r *TransactionRepository) Append(ctx context.Context, in NewTx) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (id, account_id, type, amount, game_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, account_id, type, amount, game_type, description, created_at
	`

	tx, err := scanTransaction(r.db.QueryRow(ctx, query,
		uuid.New(), in.AccountID, in.Type, in.Amount, in.GameType, in.Description,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// ListByAccount returns an account's transactions, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, account_id, type, amount, game_type, description, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// Sum returns the net of all transactions of an account.
func (r *TransactionRepository) Sum(ctx context.Context, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM transactions WHERE account_id = $1`

	var sum int64
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// CountByType returns how many transactions of a type an account has.
func (r *TransactionRepository) CountByType(ctx context.Context, accountID uuid.UUID, txType string) (int64, error) {
	const query = `SELECT COUNT(*) FROM transactions WHERE account_id = $1 AND type = $2`

	var n int64
	if err := r.db.QueryRow(ctx, query, accountID, txType).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Type,
		&tx.Amount,
		&tx.GameType,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
