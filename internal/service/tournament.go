package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/game"
	"virtual-casino/internal/model"
	"virtual-casino/internal/repository"
)

// Prize shares of the top three finishers, in percent.
var prizeShares = []int64{50, 30, 20}

// Payout is one prize paid by Finalize.
type Payout struct {
	AccountID uuid.UUID `json:"account_id"`
	Rank      int       `json:"rank"`
	Amount    int64     `json:"amount"`
}

// TournamentService manages timed competitions.
type TournamentService struct {
	store *repository.Store
	now   func() time.Time
}

// NewTournamentService creates a new TournamentService instance.
func NewTournamentService(store *repository.Store) *TournamentService {
	return &TournamentService{store: store, now: time.Now}
}

// List filters tournaments by derived status (upcoming, active, completed
// or all) and game type.
func (s *TournamentService) List(ctx context.Context, status, gameType string) ([]*model.Tournament, error) {
	switch status {
	case "", "all":
		status = ""
	case model.TournamentUpcoming, model.TournamentActive, model.TournamentCompleted:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.store.Tournaments.List(ctx, status, gameType, s.now())
}

// Create defines a tournament. Capacity defaults to 100.
func (s *TournamentService) Create(ctx context.Context, t *model.Tournament) (*model.Tournament, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, ok := game.ParseKind(t.GameType); !ok {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownGame, t.GameType)
	}
	if t.EntryFee < 0 || t.PrizePool < 0 {
		return nil, ErrInvalidAmount
	}
	if t.MaxParticipants == 0 {
		t.MaxParticipants = 100
	}
	if t.MaxParticipants < 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidInput)
	}
	if !t.EndTime.After(t.StartTime) {
		return nil, fmt.Errorf("%w: end time must follow start time", ErrInvalidInput)
	}
	return s.store.Tournaments.Create(ctx, t)
}

// Join debits the entry fee and registers the account. Joins close at
// the start time and at capacity.
func (s *TournamentService) Join(ctx context.Context, accountID, tournamentID uuid.UUID) (*model.Tournament, error) {
	now := s.now()
	var joined *model.Tournament
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		acct, err := lockPlayer(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		t, err := tx.Tournaments.Lock(ctx, tournamentID)
		if err != nil {
			return notFound(err, ErrTournamentNotFound)
		}
		if !now.Before(t.StartTime) {
			return ErrTournamentStarted
		}
		if t.ParticipantCount >= t.MaxParticipants {
			return ErrTournamentFull
		}
		in, err := tx.Tournaments.IsParticipant(ctx, tournamentID, accountID)
		if err != nil {
			return err
		}
		if in {
			return ErrAlreadyJoined
		}

		if t.EntryFee > 0 {
			if !acct.CanAfford(t.EntryFee) {
				return ErrInsufficientBalance
			}
			_, err := debit(ctx, tx, accountID, entry{
				Type:        model.TxTypeTournamentEntry,
				Amount:      t.EntryFee,
				GameType:    t.GameType,
				Description: "Tournament entry: " + t.Name,
			})
			if err != nil {
				return err
			}
		}

		if err := tx.Tournaments.AddParticipant(ctx, tournamentID, accountID); err != nil {
			switch {
			case errors.Is(err, repository.ErrAlreadyExists):
				return ErrAlreadyJoined
			case errors.Is(err, repository.ErrConflict):
				return ErrTournamentFull
			}
			return err
		}
		t.ParticipantCount++
		joined = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// Standings returns participants ordered by score.
func (s *TournamentService) Standings(ctx context.Context, tournamentID uuid.UUID) ([]model.TournamentStanding, error) {
	if _, err := s.store.Tournaments.Get(ctx, tournamentID); err != nil {
		return nil, notFound(err, ErrTournamentNotFound)
	}
	return s.store.Tournaments.Standings(ctx, tournamentID, 100)
}

// Finalize pays the prize pool to the top three once the tournament has
// ended. It succeeds at most once per tournament.
func (s *TournamentService) Finalize(ctx context.Context, tournamentID uuid.UUID) ([]Payout, error) {
	now := s.now()
	var payouts []Payout
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		t, err := tx.Tournaments.Lock(ctx, tournamentID)
		if err != nil {
			return notFound(err, ErrTournamentNotFound)
		}
		if t.Status(now) != model.TournamentCompleted {
			return ErrTournamentNotEnded
		}
		ok, err := tx.Tournaments.MarkFinalized(ctx, tournamentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyFinalized
		}

		standings, err := tx.Tournaments.Standings(ctx, tournamentID, len(prizeShares))
		if err != nil {
			return err
		}
		payouts = SplitPrizes(t.PrizePool, standings)
		for _, p := range payouts {
			if p.Amount == 0 {
				continue
			}
			_, err := credit(ctx, tx, p.AccountID, entry{
				Type:        model.TxTypeTournamentPrize,
				Amount:      p.Amount,
				GameType:    t.GameType,
				Description: fmt.Sprintf("Tournament %s: place %d", t.Name, p.Rank),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("tournament_id", tournamentID.String()).Int("winners", len(payouts)).Msg("Tournament finalized")
	return payouts, nil
}

// SplitPrizes assigns 50/30/20 percent of pool to the first three
// standings in order. Rounding leftovers go to first place.
func SplitPrizes(pool int64, standings []model.TournamentStanding) []Payout {
	n := min(len(standings), len(prizeShares))
	payouts := make([]Payout, 0, n)
	var paid int64
	for i := 0; i < n; i++ {
		amount := pool * prizeShares[i] / 100
		paid += amount
		payouts = append(payouts, Payout{AccountID: standings[i].AccountID, Rank: i + 1, Amount: amount})
	}
	if n > 0 && n == len(prizeShares) {
		payouts[0].Amount += pool - paid
	}
	return payouts
}
