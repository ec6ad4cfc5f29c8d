package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"virtual-casino/internal/model"
	"virtual-casino/internal/repository"
)

// entry describes one balance change and its transaction record.
type entry struct {
	Type        string
	Amount      int64 // always positive; the sign comes from debit/credit
	GameType    string
	Description string
}

// lockPlayer locks the account row for the rest of the transaction and
// rejects banned accounts.
func lockPlayer(ctx context.Context, tx *repository.Store, accountID uuid.UUID, now time.Time) (*model.Account, error) {
	acct, err := tx.Accounts.Lock(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if acct.IsBanned(now) {
		return nil, ErrAccountBanned
	}
	return acct, nil
}

// debit subtracts e.Amount and appends the negative transaction record.
// It returns the balance after the change.
func debit(ctx context.Context, tx *repository.Store, accountID uuid.UUID, e entry) (int64, error) {
	if e.Amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := tx.Accounts.Debit(ctx, accountID, e.Amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientFunds):
			return 0, ErrInsufficientBalance
		case errors.Is(err, repository.ErrNotFound):
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	if err := appendTx(ctx, tx, accountID, -e.Amount, e); err != nil {
		return 0, err
	}
	return balance, nil
}

// credit adds e.Amount and appends the positive transaction record.
func credit(ctx context.Context, tx *repository.Store, accountID uuid.UUID, e entry) (int64, error) {
	if e.Amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := tx.Accounts.Credit(ctx, accountID, e.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	if err := appendTx(ctx, tx, accountID, e.Amount, e); err != nil {
		return 0, err
	}
	return balance, nil
}

func appendTx(ctx context.Context, tx *repository.Store, accountID uuid.UUID, amount int64, e entry) error {
	in := repository.NewTx{
		AccountID: accountID,
		Type:      e.Type,
		Amount:    amount,
	}
	if e.GameType != "" {
		in.GameType = &e.GameType
	}
	if e.Description != "" {
		in.Description = &e.Description
	}
	if _, err := tx.Transactions.Append(ctx, in); err != nil {
		return fmt.Errorf("failed to append %s transaction: %w", e.Type, err)
	}
	return nil
}
