package engine

import (
	"encoding/json"
	"fmt"

	"virtual-casino/internal/game"
	"virtual-casino/internal/game/roulette"
)

// Wager is the sealed union of every playable wager. Each variant carries
// its own strongly-typed parameters.
type Wager interface {
	Kind() game.Kind
	// Stake is the total amount debited for the wager.
	Stake() int64
	isWager()
}

// DiceWager bets that a d6 roll reaches Target (2..6).
type DiceWager struct {
	Bet    int64 `json:"bet_amount"`
	Target int   `json:"target"`
}

// SlotWager spins the reels once.
type SlotWager struct {
	Bet int64 `json:"bet_amount"`
}

// RouletteWager places several bets on one spin.
type RouletteWager struct {
	Bets []roulette.Bet `json:"bets"`
}

// PlinkoWager drops one ball.
type PlinkoWager struct {
	Bet int64 `json:"bet_amount"`
}

// WheelWager spins the wheel once.
type WheelWager struct {
	Bet int64 `json:"bet_amount"`
}

// CrashWager opens a crash round; AutoCashOut of 0 disables it.
type CrashWager struct {
	Bet         int64   `json:"bet_amount"`
	AutoCashOut float64 `json:"auto_cash_out,omitempty"`
}

// MinesWager opens a mines board with Mines hidden mines.
type MinesWager struct {
	Bet   int64 `json:"bet_amount"`
	Mines int   `json:"mines"`
}

// BlackjackWager deals a blackjack hand.
type BlackjackWager struct {
	Bet int64 `json:"bet_amount"`
}

func (DiceWager) Kind() game.Kind      { return game.KindDice }
func (SlotWager) Kind() game.Kind      { return game.KindSlots }
func (RouletteWager) Kind() game.Kind  { return game.KindRoulette }
func (PlinkoWager) Kind() game.Kind    { return game.KindPlinko }
func (WheelWager) Kind() game.Kind     { return game.KindWheel }
func (CrashWager) Kind() game.Kind     { return game.KindCrash }
func (MinesWager) Kind() game.Kind     { return game.KindMines }
func (BlackjackWager) Kind() game.Kind { return game.KindBlackjack }

func (w DiceWager) Stake() int64      { return w.Bet }
func (w SlotWager) Stake() int64      { return w.Bet }
func (w RouletteWager) Stake() int64  { return roulette.Total(w.Bets) }
func (w PlinkoWager) Stake() int64    { return w.Bet }
func (w WheelWager) Stake() int64     { return w.Bet }
func (w CrashWager) Stake() int64     { return w.Bet }
func (w MinesWager) Stake() int64     { return w.Bet }
func (w BlackjackWager) Stake() int64 { return w.Bet }

func (DiceWager) isWager()      {}
func (SlotWager) isWager()      {}
func (RouletteWager) isWager()  {}
func (PlinkoWager) isWager()    {}
func (WheelWager) isWager()     {}
func (CrashWager) isWager()     {}
func (MinesWager) isWager()     {}
func (BlackjackWager) isWager() {}

// DecodeWager parses a request body into the variant for kind.
func DecodeWager(kind game.Kind, raw []byte) (Wager, error) {
	var w Wager
	switch kind {
	case game.KindDice:
		w = decode[DiceWager](raw)
	case game.KindSlots:
		w = decode[SlotWager](raw)
	case game.KindRoulette:
		w = decode[RouletteWager](raw)
	case game.KindPlinko:
		w = decode[PlinkoWager](raw)
	case game.KindWheel:
		w = decode[WheelWager](raw)
	case game.KindCrash:
		w = decode[CrashWager](raw)
	case game.KindMines:
		w = decode[MinesWager](raw)
	case game.KindBlackjack:
		w = decode[BlackjackWager](raw)
	default:
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownGame, kind)
	}
	if w == nil {
		return nil, fmt.Errorf("%w: malformed %s wager", game.ErrInvalidParams, kind)
	}
	return w, nil
}

func decode[T Wager](raw []byte) Wager {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
