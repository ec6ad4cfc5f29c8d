package engine

import (
	"encoding/json"
	"fmt"

	"virtual-casino/internal/game"
	"virtual-casino/internal/game/blackjack"
	"virtual-casino/internal/game/crash"
	"virtual-casino/internal/game/mines"
)

// Session is the sealed union of multi-step game states persisted
// between requests.
type Session interface {
	Kind() game.Kind
	isSession()
}

// CrashSession holds a flying crash round.
type CrashSession struct{ crash.Round }

// MinesSession holds a mines board.
type MinesSession struct{ mines.Board }

// BlackjackSession holds a blackjack hand.
type BlackjackSession struct{ blackjack.Round }

func (*CrashSession) Kind() game.Kind     { return game.KindCrash }
func (*MinesSession) Kind() game.Kind     { return game.KindMines }
func (*BlackjackSession) Kind() game.Kind { return game.KindBlackjack }

func (*CrashSession) isSession()     {}
func (*MinesSession) isSession()     {}
func (*BlackjackSession) isSession() {}

// EncodeSession serializes session state for storage.
func EncodeSession(s Session) (json.RawMessage, error) {
	return json.Marshal(s)
}

// DecodeSession restores session state of the given kind.
func DecodeSession(kind game.Kind, raw []byte) (Session, error) {
	var s Session
	switch kind {
	case game.KindCrash:
		s = &CrashSession{}
	case game.KindMines:
		s = &MinesSession{}
	case game.KindBlackjack:
		s = &BlackjackSession{}
	default:
		return nil, fmt.Errorf("%w: %q has no session state", game.ErrUnknownGame, kind)
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode %s session: %w", kind, err)
	}
	return s, nil
}

// Action is the sealed union of moves on a running session.
type Action interface {
	Name() string
	isAction()
}

// RevealAction opens one mines cell.
type RevealAction struct {
	Cell int `json:"cell"`
}

// CashOutAction ends a crash or mines round at the current multiplier.
type CashOutAction struct{}

// HitAction draws a blackjack card.
type HitAction struct{}

// StandAction ends the player's blackjack turn.
type StandAction struct{}

// Action names as used in request paths.
const (
	ActionReveal  = "reveal"
	ActionCashOut = "cashout"
	ActionHit     = "hit"
	ActionStand   = "stand"
)

func (RevealAction) Name() string  { return ActionReveal }
func (CashOutAction) Name() string { return ActionCashOut }
func (HitAction) Name() string     { return ActionHit }
func (StandAction) Name() string   { return ActionStand }

func (RevealAction) isAction()  {}
func (CashOutAction) isAction() {}
func (HitAction) isAction()     {}
func (StandAction) isAction()   {}

// Action errors.
var (
	ErrUnknownAction    = fmt.Errorf("%w: unknown action", game.ErrInvalidParams)
	ErrActionNotAllowed = fmt.Errorf("%w: action not allowed for this game", game.ErrWrongPhase)
)

// ParseAction builds an action from its name and optional body.
func ParseAction(name string, raw []byte) (Action, error) {
	switch name {
	case ActionReveal:
		var a RevealAction
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: reveal needs a cell", game.ErrInvalidParams)
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", game.ErrInvalidParams, err)
		}
		return a, nil
	case ActionCashOut:
		return CashOutAction{}, nil
	case ActionHit:
		return HitAction{}, nil
	case ActionStand:
		return StandAction{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
}
