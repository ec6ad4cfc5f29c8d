package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/model"
	"virtual-casino/internal/repository"
)

// Reconciliation compares a balance with the sum of its ledger.
type Reconciliation struct {
	AccountID     uuid.UUID `json:"account_id"`
	Balance       int64     `json:"balance"`
	LedgerSum     int64     `json:"ledger_sum"`
	Drift         int64     `json:"drift"`
	InfiniteFunds bool      `json:"infinite_funds"`
}

// AdminService holds account moderation operations. Role checks happen
// before it is called.
type AdminService struct {
	store *repository.Store
	now   func() time.Time
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(store *repository.Store) *AdminService {
	return &AdminService{store: store, now: time.Now}
}

// ListAccounts returns the newest accounts.
func (s *AdminService) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	return s.store.Accounts.List(ctx, 100)
}

// SetTester flips the tester flag.
func (s *AdminService) SetTester(ctx context.Context, accountID uuid.UUID, tester bool) error {
	return notFound(s.store.Accounts.SetTester(ctx, accountID, tester), ErrAccountNotFound)
}

// SetInfiniteFunds flips the infinite-funds flag.
func (s *AdminService) SetInfiniteFunds(ctx context.Context, accountID uuid.UUID, infinite bool) error {
	err := notFound(s.store.Accounts.SetInfiniteFunds(ctx, accountID, infinite), ErrAccountNotFound)
	if err == nil {
		log.Info().Str("account_id", accountID.String()).Bool("infinite_funds", infinite).Msg("Infinite funds changed")
	}
	return err
}

// Ban blocks the account from wagering until the given instant.
func (s *AdminService) Ban(ctx context.Context, accountID uuid.UUID, until time.Time) error {
	if !until.After(s.now()) {
		return ErrInvalidInput
	}
	err := notFound(s.store.Accounts.SetBan(ctx, accountID, &until), ErrAccountNotFound)
	if err == nil {
		log.Info().Str("account_id", accountID.String()).Time("until", until).Msg("Account banned")
	}
	return err
}

// Unban lifts a ban.
func (s *AdminService) Unban(ctx context.Context, accountID uuid.UUID) error {
	return notFound(s.store.Accounts.SetBan(ctx, accountID, nil), ErrAccountNotFound)
}

// PromoteAdmins grants the admin role to the listed usernames. Names that
// are not registered yet are skipped; it returns how many accounts changed.
func (s *AdminService) PromoteAdmins(ctx context.Context, usernames []string) (int, error) {
	promoted := 0
	for _, name := range usernames {
		acct, err := s.store.Accounts.GetByUsername(ctx, name)
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn().Str("username", name).Msg("Admin account not registered, skipping")
			continue
		}
		if err != nil {
			return promoted, err
		}
		if acct.Role == model.RoleAdmin {
			continue
		}
		if err := s.store.Accounts.SetRole(ctx, acct.ID, model.RoleAdmin); err != nil {
			return promoted, err
		}
		log.Info().Str("account_id", acct.ID.String()).Str("username", acct.Username).Msg("Account promoted to admin")
		promoted++
	}
	return promoted, nil
}

// Reconcile reports the drift between balance and ledger sum. Accounts
// with infinite funds are expected to drift.
func (s *AdminService) Reconcile(ctx context.Context, accountID uuid.UUID) (*Reconciliation, error) {
	var rec *Reconciliation
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		acct, err := tx.Accounts.Lock(ctx, accountID)
		if err != nil {
			return notFound(err, ErrAccountNotFound)
		}
		sum, err := tx.Transactions.Sum(ctx, accountID)
		if err != nil {
			return err
		}
		rec = &Reconciliation{
			AccountID:     accountID,
			Balance:       acct.Balance,
			LedgerSum:     sum,
			Drift:         acct.Balance - sum,
			InfiniteFunds: acct.InfiniteFunds,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rec.Drift != 0 && !rec.InfiniteFunds {
		log.Warn().Str("account_id", accountID.String()).Int64("drift", rec.Drift).Msg("Ledger drift detected")
	}
	return rec, nil
}

// notFound maps repository.ErrNotFound to a service sentinel.
func notFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}
