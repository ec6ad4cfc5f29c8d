package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/auth"
	"virtual-casino/internal/config"
	"virtual-casino/internal/model"
	"virtual-casino/internal/repository"
)

// Session is the result of a successful register or login.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Account   *model.Account `json:"account"`
}

// DailyStatus reports whether today's bonus is taken.
type DailyStatus struct {
	Claimed bool  `json:"claimed"`
	Amount  int64 `json:"amount"`
}

// DailyClaim is the result of claiming the daily bonus.
type DailyClaim struct {
	Amount  int64 `json:"amount"`
	Balance int64 `json:"balance"`
}

// AccountStats aggregates an account's play history.
type AccountStats struct {
	Account *model.Account       `json:"account"`
	Games   []model.GameStats    `json:"games"`
	Recent  []*model.GameHistory `json:"recent"`
}

// Achievements lists the account's titles and level state.
type Achievements struct {
	Level       int           `json:"level"`
	XP          int64         `json:"xp"`
	NextLevelXP int64         `json:"next_level_xp"`
	Titles      []model.Title `json:"titles"`
}

// AccountService handles registration, login and per-account reads.
type AccountService struct {
	store       *repository.Store
	gate        *auth.Gate
	hasher      *auth.Hasher
	progression *Progression
	economy     config.EconomyConfig
	now         func() time.Time
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	store *repository.Store,
	gate *auth.Gate,
	hasher *auth.Hasher,
	progression *Progression,
	economy config.EconomyConfig,
) *AccountService {
	return &AccountService{
		store:       store,
		gate:        gate,
		hasher:      hasher,
		progression: progression,
		economy:     economy,
		now:         time.Now,
	}
}

// Register creates an account funded with the starting balance.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	var acct *model.Account
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		acct, err = tx.Accounts.Create(ctx, &model.Account{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Balance:      s.economy.StartingBalance,
		})
		if err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return ErrAlreadyExists
			}
			return err
		}
		if s.economy.StartingBalance > 0 {
			return appendTx(ctx, tx, acct.ID, s.economy.StartingBalance, entry{
				Type:        model.TxTypeInitial,
				Description: "Starting balance",
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("account_id", acct.ID.String()).Str("username", acct.Username).Msg("Account registered")
	return s.issue(acct)
}

// Login verifies credentials by username or email.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: identifier and password are required", ErrInvalidInput)
	}

	acct, err := s.store.Accounts.GetByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(acct.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if acct.IsBanned(s.now()) {
		return nil, ErrAccountBanned
	}
	return s.issue(acct)
}

func (s *AccountService) issue(acct *model.Account) (*Session, error) {
	token, expires, err := s.gate.Issue(acct.ID, acct.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, Account: acct}, nil
}

// Get returns an account.
func (s *AccountService) Get(ctx context.Context, accountID uuid.UUID) (*model.Account, error) {
	acct, err := s.store.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

// ClaimDaily credits the daily bonus once per UTC calendar date.
func (s *AccountService) ClaimDaily(ctx context.Context, accountID uuid.UUID) (*DailyClaim, error) {
	now := s.now()
	claim := &DailyClaim{Amount: s.economy.DailyBonus}
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := lockPlayer(ctx, tx, accountID, now); err != nil {
			return err
		}
		ok, err := tx.Accounts.ClaimDaily(ctx, accountID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDailyAlreadyClaimed
		}
		claim.Balance, err = credit(ctx, tx, accountID, entry{
			Type:        model.TxTypeDailyBonus,
			Amount:      s.economy.DailyBonus,
			Description: "Daily bonus",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// DailyStatus reports whether the bonus was already claimed today (UTC).
func (s *AccountService) DailyStatus(ctx context.Context, accountID uuid.UUID) (*DailyStatus, error) {
	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &DailyStatus{
		Claimed: claimedOn(acct.LastDailyBonus, s.now()),
		Amount:  s.economy.DailyBonus,
	}, nil
}

// claimedOn compares UTC calendar dates.
func claimedOn(last *time.Time, now time.Time) bool {
	if last == nil {
		return false
	}
	ly, lm, ld := last.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return ly == ny && lm == nm && ld == nd
}

// Stats returns per-game aggregates and the ten most recent games.
func (s *AccountService) Stats(ctx context.Context, accountID uuid.UUID) (*AccountStats, error) {
	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	games, err := s.store.History.StatsByGame(ctx, accountID)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.History.ListByAccount(ctx, accountID, 10, 0)
	if err != nil {
		return nil, err
	}
	return &AccountStats{Account: acct, Games: games, Recent: recent}, nil
}

// History pages through resolved wagers.
func (s *AccountService) History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.GameHistory, error) {
	limit, offset = page(limit, offset)
	return s.store.History.ListByAccount(ctx, accountID, limit, offset)
}

// Transactions pages through the ledger.
func (s *AccountService) Transactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*model.Transaction, error) {
	limit, offset = page(limit, offset)
	return s.store.Transactions.ListByAccount(ctx, accountID, limit, offset)
}

// Achievements returns level progress and every title with its unlock time.
func (s *AccountService) Achievements(ctx context.Context, accountID uuid.UUID) (*Achievements, error) {
	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	titles, err := s.store.Titles.ListForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Achievements{
		Level:       acct.Level,
		XP:          acct.XP,
		NextLevelXP: int64(s.progression.LevelForXP(acct.XP)) * s.progression.xpPerLevel,
		Titles:      titles,
	}, nil
}

// SetAvatar stores an avatar URL; an empty URL clears it.
func (s *AccountService) SetAvatar(ctx context.Context, accountID uuid.UUID, url string) (*model.Account, error) {
	url = strings.TrimSpace(url)
	var ref *string
	if url != "" {
		if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
			return nil, fmt.Errorf("%w: avatar must be an http(s) URL", ErrInvalidInput)
		}
		ref = &url
	}
	if err := s.store.Accounts.SetAvatar(ctx, accountID, ref); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return s.Get(ctx, accountID)
}

func validateRegistration(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return fmt.Errorf("%w: username, email and password are required", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(username); n < 3 || n > 32 {
		return fmt.Errorf("%w: username must be 3-32 characters", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}
	if len(password) > auth.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, auth.MaxPasswordBytes)
	}
	return nil
}

// page clamps list parameters.
func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
