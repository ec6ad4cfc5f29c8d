package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"virtual-casino/internal/game"
	"virtual-casino/internal/game/engine"
	"virtual-casino/internal/model"
	"virtual-casino/internal/pkg/rng"
	"virtual-casino/internal/repository"
)

// WagerResult is the settled outcome of one wager.
type WagerResult struct {
	Game       game.Kind `json:"game"`
	Bet        int64     `json:"bet"`
	Win        bool      `json:"win"`
	Payout     int64     `json:"payout"`
	Multiplier float64   `json:"multiplier"`
	Detail     any       `json:"result"`
	Balance    int64     `json:"balance"`
	Progress
}

// SessionState is the client view of a multi-step round.
type SessionState struct {
	ID      uuid.UUID    `json:"id"`
	Game    game.Kind    `json:"game"`
	Bet     int64        `json:"bet"`
	Status  string       `json:"status"`
	View    any          `json:"state,omitempty"`
	Result  *WagerResult `json:"result,omitempty"`
	Balance int64        `json:"balance"`
}

// WagerService runs the validate, debit, resolve, credit and log steps of
// every wager in one transaction.
type WagerService struct {
	store       *repository.Store
	engine      *engine.Engine
	progression *Progression

	rand func() game.Rand
	now  func() time.Time
}

// NewWagerService creates a new WagerService instance.
func NewWagerService(store *repository.Store, eng *engine.Engine, progression *Progression) *WagerService {
	return &WagerService{
		store:       store,
		engine:      eng,
		progression: progression,
		rand:        func() game.Rand { return rng.New() },
		now:         time.Now,
	}
}

// Catalog lists the playable games.
func (s *WagerService) Catalog() []game.Info {
	return s.engine.Catalog()
}

// Play resolves an instant wager.
func (s *WagerService) Play(ctx context.Context, accountID uuid.UUID, w engine.Wager) (*WagerResult, error) {
	if w == nil {
		return nil, engine.ErrUnknownWager
	}
	if w.Kind().IsSession() {
		return nil, ErrNotInstantGame
	}
	if err := s.engine.Validate(w); err != nil {
		return nil, err
	}

	now := s.now()
	var res *WagerResult
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := s.stake(ctx, tx, accountID, w, now); err != nil {
			return err
		}
		opened, err := s.engine.Open(w, s.rand(), now)
		if err != nil {
			return err
		}
		res, err = s.settle(ctx, tx, accountID, w.Kind(), w.Stake(), opened.Outcome, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("account_id", accountID.String()).
		Str("game", string(res.Game)).
		Int64("bet", res.Bet).
		Int64("payout", res.Payout).
		Msg("Wager settled")
	return res, nil
}

// Open starts a crash, mines or blackjack round. A blackjack natural is
// settled immediately and comes back finished.
func (s *WagerService) Open(ctx context.Context, accountID uuid.UUID, w engine.Wager) (*SessionState, error) {
	if w == nil {
		return nil, engine.ErrUnknownWager
	}
	if !w.Kind().IsSession() {
		return nil, ErrNotSessionGame
	}
	if err := s.engine.Validate(w); err != nil {
		return nil, err
	}

	now := s.now()
	var state *SessionState
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := lockPlayer(ctx, tx, accountID, now); err != nil {
			return err
		}
		if err := s.settleStale(ctx, tx, accountID, w.Kind(), now); err != nil {
			return err
		}

		balance, err := s.stake(ctx, tx, accountID, w, now)
		if err != nil {
			return err
		}
		opened, err := s.engine.Open(w, s.rand(), now)
		if err != nil {
			return err
		}

		if opened.Outcome != nil {
			res, err := s.settle(ctx, tx, accountID, w.Kind(), w.Stake(), opened.Outcome, now)
			if err != nil {
				return err
			}
			state = &SessionState{Game: w.Kind(), Bet: w.Stake(), Status: model.SessionFinished, Result: res, Balance: res.Balance}
			return nil
		}

		raw, err := engine.EncodeSession(opened.Session)
		if err != nil {
			return err
		}
		sess, err := tx.Sessions.Create(ctx, accountID, string(w.Kind()), w.Stake(), raw)
		if err != nil {
			if errors.Is(err, repository.ErrSessionActive) {
				return ErrSessionActive
			}
			return err
		}
		state = &SessionState{
			ID:      sess.ID,
			Game:    w.Kind(),
			Bet:     w.Stake(),
			Status:  model.SessionActive,
			View:    s.engine.View(opened.Session, now),
			Balance: balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Act applies a player action to an active round.
func (s *WagerService) Act(ctx context.Context, accountID, sessionID uuid.UUID, action engine.Action) (*SessionState, error) {
	now := s.now()
	var state *SessionState
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		acct, err := lockPlayer(ctx, tx, accountID, now)
		if err != nil {
			return err
		}
		rec, sess, err := s.loadSession(ctx, tx, accountID, sessionID)
		if err != nil {
			return err
		}
		if rec.Status != model.SessionActive {
			return ErrSessionOver
		}

		out, err := s.engine.Advance(sess, rec.BetAmount, action, now)
		if err != nil {
			return err
		}
		state, err = s.persist(ctx, tx, rec, sess, out, acct.Balance, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Status returns a round's current view. A crash round already decided by
// server time is settled on the way.
func (s *WagerService) Status(ctx context.Context, accountID, sessionID uuid.UUID) (*SessionState, error) {
	now := s.now()
	var state *SessionState
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		acct, err := tx.Accounts.Lock(ctx, accountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		rec, sess, err := s.loadSession(ctx, tx, accountID, sessionID)
		if err != nil {
			return err
		}
		if rec.Status != model.SessionActive {
			state = &SessionState{
				ID:      rec.ID,
				Game:    game.Kind(rec.GameType),
				Bet:     rec.BetAmount,
				Status:  rec.Status,
				Balance: acct.Balance,
			}
			return nil
		}

		state, err = s.persist(ctx, tx, rec, sess, s.engine.Decided(sess, rec.BetAmount, now), acct.Balance, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ActiveSessions lists the account's running rounds without settling them.
func (s *WagerService) ActiveSessions(ctx context.Context, accountID uuid.UUID) ([]*SessionState, error) {
	recs, err := s.store.Sessions.ListActive(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	states := make([]*SessionState, 0, len(recs))
	for _, rec := range recs {
		sess, err := engine.DecodeSession(game.Kind(rec.GameType), rec.State)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", rec.ID, err)
		}
		states = append(states, &SessionState{
			ID:     rec.ID,
			Game:   sess.Kind(),
			Bet:    rec.BetAmount,
			Status: rec.Status,
			View:   s.engine.View(sess, now),
		})
	}
	return states, nil
}

// stake locks the account, checks funds and debits the stake with its
// bet record. It returns the balance after the debit.
func (s *WagerService) stake(ctx context.Context, tx *repository.Store, accountID uuid.UUID, w engine.Wager, now time.Time) (int64, error) {
	acct, err := lockPlayer(ctx, tx, accountID, now)
	if err != nil {
		return 0, err
	}
	if !acct.CanAfford(w.Stake()) {
		return 0, ErrInsufficientBalance
	}
	return debit(ctx, tx, accountID, entry{
		Type:        model.TxTypeBet,
		Amount:      w.Stake(),
		GameType:    string(w.Kind()),
		Description: fmt.Sprintf("%s bet", w.Kind()),
	})
}

// settle credits the payout, records history and stats, and runs
// progression. The stake must already be debited.
func (s *WagerService) settle(ctx context.Context, tx *repository.Store, accountID uuid.UUID, kind game.Kind, bet int64, out *game.Outcome, now time.Time) (*WagerResult, error) {
	if out.Payout > 0 {
		_, err := credit(ctx, tx, accountID, entry{
			Type:        model.TxTypeWin,
			Amount:      out.Payout,
			GameType:    string(kind),
			Description: fmt.Sprintf("%s payout x%.2f", kind, out.Multiplier),
		})
		if err != nil {
			return nil, err
		}
	}

	detail, err := json.Marshal(out.Detail)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", kind, err)
	}
	h := &model.GameHistory{
		AccountID: accountID,
		GameType:  string(kind),
		BetAmount: bet,
		WinAmount: out.Payout,
		Result:    detail,
	}
	if out.Multiplier > 0 {
		m := out.Multiplier
		h.Multiplier = &m
	}
	if _, err := tx.History.Record(ctx, h); err != nil {
		return nil, err
	}

	if err := tx.Accounts.AddStats(ctx, accountID, bet, out.Payout, 1); err != nil {
		return nil, err
	}

	prog, err := s.progression.ApplyWager(ctx, tx, WagerEvent{
		AccountID:  accountID,
		GameType:   string(kind),
		Bet:        bet,
		Payout:     out.Payout,
		Multiplier: out.Multiplier,
		Win:        out.Win,
		At:         now,
	})
	if err != nil {
		return nil, err
	}

	acct, err := tx.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &WagerResult{
		Game:       kind,
		Bet:        bet,
		Win:        out.Win,
		Payout:     out.Payout,
		Multiplier: out.Multiplier,
		Detail:     out.Detail,
		Balance:    acct.Balance,
		Progress:   *prog,
	}, nil
}

// persist saves a round after an action. A non-nil outcome settles it.
func (s *WagerService) persist(ctx context.Context, tx *repository.Store, rec *model.GameSession, sess engine.Session, out *game.Outcome, balance int64, now time.Time) (*SessionState, error) {
	raw, err := engine.EncodeSession(sess)
	if err != nil {
		return nil, err
	}

	state := &SessionState{
		ID:      rec.ID,
		Game:    sess.Kind(),
		Bet:     rec.BetAmount,
		Status:  model.SessionActive,
		Balance: balance,
	}
	if out == nil {
		if err := tx.Sessions.Save(ctx, rec.ID, raw, model.SessionActive); err != nil {
			return nil, err
		}
		state.View = s.engine.View(sess, now)
		return state, nil
	}

	if err := tx.Sessions.Save(ctx, rec.ID, raw, model.SessionFinished); err != nil {
		return nil, err
	}
	res, err := s.settle(ctx, tx, rec.AccountID, sess.Kind(), rec.BetAmount, out, now)
	if err != nil {
		return nil, err
	}
	state.Status = model.SessionFinished
	state.Result = res
	state.Balance = res.Balance
	return state, nil
}

// settleStale finishes an active round of kind whose result is already
// decided by server time; any other active round blocks a new one.
func (s *WagerService) settleStale(ctx context.Context, tx *repository.Store, accountID uuid.UUID, kind game.Kind, now time.Time) error {
	rec, err := tx.Sessions.LockActive(ctx, accountID, string(kind))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	sess, err := engine.DecodeSession(kind, rec.State)
	if err != nil {
		return err
	}
	out := s.engine.Decided(sess, rec.BetAmount, now)
	if out == nil {
		return ErrSessionActive
	}
	_, err = s.persist(ctx, tx, rec, sess, out, 0, now)
	return err
}

func (s *WagerService) loadSession(ctx context.Context, tx *repository.Store, accountID, sessionID uuid.UUID) (*model.GameSession, engine.Session, error) {
	rec, err := tx.Sessions.Lock(ctx, sessionID, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}
	sess, err := engine.DecodeSession(game.Kind(rec.GameType), rec.State)
	if err != nil {
		return nil, nil, err
	}
	return rec, sess, nil
}
