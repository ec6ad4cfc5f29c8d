// Package engine dispatches wagers to the game implementations. It is
// the single exhaustive match over the game variants; callers never
// branch on game kind themselves.
package engine

import (
	"errors"
	"fmt"
	"time"

	"virtual-casino/internal/config"
	"virtual-casino/internal/game"
	"virtual-casino/internal/game/blackjack"
	"virtual-casino/internal/game/crash"
	"virtual-casino/internal/game/dice"
	"virtual-casino/internal/game/mines"
	"virtual-casino/internal/game/plinko"
	"virtual-casino/internal/game/roulette"
	"virtual-casino/internal/game/slot"
	"virtual-casino/internal/game/wheel"
)

// ErrUnknownWager is returned for a nil or foreign wager.
var ErrUnknownWager = errors.New("unknown wager type")

// Engine resolves wagers. It holds no per-request state and is safe for
// concurrent use; randomness is supplied by the caller.
type Engine struct {
	dice      *dice.Game
	slots     *slot.Game
	roulette  *roulette.Game
	plinko    *plinko.Game
	wheel     *wheel.Game
	crash     *crash.Game
	mines     *mines.Game
	blackjack *blackjack.Game

	registry *game.Registry
}

// Opened is the result of opening a wager. Exactly one field is set:
// Outcome for a wager settled immediately, Session for a round that
// continues over later requests.
type Opened struct {
	Outcome *game.Outcome
	Session Session
}

// New builds every game from configuration.
func New(cfg config.GamesConfig) (*Engine, error) {
	slots, err := slot.New(&slot.Config{
		Limits:  limits(cfg.Slots.BetLimits),
		Symbols: slotSymbols(cfg.Slots.Symbols),
	})
	if err != nil {
		return nil, err
	}
	plk, err := plinko.New(&plinko.Config{
		Limits:      limits(cfg.Plinko.BetLimits),
		Rows:        cfg.Plinko.Rows,
		Multipliers: cfg.Plinko.Multipliers,
	})
	if err != nil {
		return nil, err
	}
	whl, err := wheel.New(&wheel.Config{
		Limits:   limits(cfg.Wheel.BetLimits),
		Segments: wheelSegments(cfg.Wheel.Segments),
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dice:     dice.New(&dice.Config{Limits: limits(cfg.Dice)}),
		slots:    slots,
		roulette: roulette.New(&roulette.Config{Limits: limits(cfg.Roulette)}),
		plinko:   plk,
		wheel:    whl,
		crash:    crash.New(&crash.Config{Limits: limits(cfg.Crash.BetLimits), Tick: cfg.Crash.Tick}),
		mines: mines.New(&mines.Config{
			Limits:   limits(cfg.Mines.BetLimits),
			MinMines: cfg.Mines.MinMines,
			MaxMines: cfg.Mines.MaxMines,
		}),
		blackjack: blackjack.New(&blackjack.Config{Limits: limits(cfg.Blackjack)}),
		registry:  game.NewRegistry(),
	}

	for _, g := range []game.Game{e.dice, e.slots, e.roulette, e.crash, e.plinko, e.mines, e.wheel, e.blackjack} {
		if err := e.registry.Register(g); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Catalog lists every game with its limits.
func (e *Engine) Catalog() []game.Info {
	return e.registry.Catalog()
}

// Open validates a wager and resolves it, or starts its session.
func (e *Engine) Open(w Wager, rng game.Rand, now time.Time) (*Opened, error) {
	switch w := w.(type) {
	case DiceWager:
		return instant(e.dice.Play(w.Bet, dice.Params{Target: w.Target}, rng))
	case SlotWager:
		return instant(e.slots.Play(w.Bet, rng))
	case RouletteWager:
		return instant(e.roulette.Play(w.Bets, rng))
	case PlinkoWager:
		return instant(e.plinko.Play(w.Bet, rng))
	case WheelWager:
		return instant(e.wheel.Play(w.Bet, rng))
	case CrashWager:
		r, err := e.crash.Start(w.Bet, w.AutoCashOut, now, rng)
		if err != nil {
			return nil, err
		}
		return &Opened{Session: &CrashSession{Round: *r}}, nil
	case MinesWager:
		b, err := e.mines.Start(w.Bet, w.Mines, rng)
		if err != nil {
			return nil, err
		}
		return &Opened{Session: &MinesSession{Board: *b}}, nil
	case BlackjackWager:
		r, out, err := e.blackjack.Deal(w.Bet, rng)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return &Opened{Outcome: out}, nil
		}
		return &Opened{Session: &BlackjackSession{Round: *r}}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownWager, w)
	}
}

// Validate checks a wager without drawing randomness.
func (e *Engine) Validate(w Wager) error {
	switch w := w.(type) {
	case DiceWager:
		return e.dice.Validate(w.Bet, dice.Params{Target: w.Target})
	case RouletteWager:
		return e.roulette.Validate(w.Bets)
	case nil:
		return ErrUnknownWager
	default:
		l, ok := e.Limits(w.Kind())
		if !ok {
			return fmt.Errorf("%w: %T", ErrUnknownWager, w)
		}
		return l.Validate(w.Stake())
	}
}

// Limits returns the bet bounds of a game.
func (e *Engine) Limits(kind game.Kind) (game.Limits, bool) {
	g, ok := e.registry.Get(kind)
	if !ok {
		return game.Limits{}, false
	}
	return g.Limits(), true
}

// Advance applies an action to a running session, mutating it in place.
// It returns the outcome when the action ends the round, nil otherwise.
func (e *Engine) Advance(s Session, bet int64, a Action, now time.Time) (*game.Outcome, error) {
	if a == nil {
		return nil, ErrUnknownAction
	}
	switch s := s.(type) {
	case *CrashSession:
		if _, ok := a.(CashOutAction); ok {
			return e.crash.CashOut(&s.Round, bet, now), nil
		}
	case *MinesSession:
		switch a := a.(type) {
		case RevealAction:
			return e.mines.Reveal(&s.Board, bet, a.Cell)
		case CashOutAction:
			return e.mines.CashOut(&s.Board, bet)
		}
	case *BlackjackSession:
		switch a.(type) {
		case HitAction:
			return e.blackjack.Hit(&s.Round, bet)
		case StandAction:
			return e.blackjack.Stand(&s.Round, bet)
		}
	default:
		return nil, fmt.Errorf("%w: session %T", ErrUnknownWager, s)
	}
	return nil, fmt.Errorf("%w: %s on %s", ErrActionNotAllowed, a.Name(), s.Kind())
}

// Decided returns the outcome of a session whose result is already fixed
// by server time (a crash round that crashed or hit its auto cash-out).
func (e *Engine) Decided(s Session, bet int64, now time.Time) *game.Outcome {
	if c, ok := s.(*CrashSession); ok {
		return e.crash.Decided(&c.Round, bet, now)
	}
	return nil
}

// View returns the client-visible state of a running session.
func (e *Engine) View(s Session, now time.Time) any {
	switch s := s.(type) {
	case *CrashSession:
		return e.crash.View(&s.Round, now)
	case *MinesSession:
		return e.mines.View(&s.Board)
	case *BlackjackSession:
		return e.blackjack.View(&s.Round)
	default:
		return nil
	}
}

func instant(out *game.Outcome, err error) (*Opened, error) {
	if err != nil {
		return nil, err
	}
	return &Opened{Outcome: out}, nil
}

func limits(l config.BetLimits) game.Limits {
	return game.Limits{MinBet: l.MinBet, MaxBet: l.MaxBet}
}

func slotSymbols(in []config.SlotSymbol) []slot.Symbol {
	out := make([]slot.Symbol, 0, len(in))
	for _, s := range in {
		out = append(out, slot.Symbol{Name: s.Name, Weight: s.Weight, Three: s.Three, Two: s.Two})
	}
	return out
}

func wheelSegments(in []config.WheelSegment) []wheel.Segment {
	out := make([]wheel.Segment, 0, len(in))
	for _, s := range in {
		out = append(out, wheel.Segment{Multiplier: s.Multiplier, Probability: s.Probability})
	}
	return out
}
