// Package slot implements a three-reel slot machine with a weighted
// symbol alphabet. The payout table is data supplied through Config.
package slot

import (
	"errors"
	"fmt"

	"virtual-casino/internal/game"
)

// Reels is the number of independent draws per spin.
const Reels = 3

// ErrInvalidTable is returned by New for an unusable symbol table.
var ErrInvalidTable = errors.New("invalid slot symbol table")

// Symbol is one reel symbol with its draw weight and payout multipliers.
type Symbol struct {
	Name   string
	Weight int
	Three  float64 // multiplier for three of a kind
	Two    float64 // multiplier for a pair
}

// DefaultSymbols is the production alphabet; expected return is about 0.96.
var DefaultSymbols = []Symbol{
	{Name: "cherry", Weight: 35, Three: 5, Two: 0.5},
	{Name: "lemon", Weight: 25, Three: 10, Two: 1},
	{Name: "orange", Weight: 18, Three: 15, Two: 1},
	{Name: "grape", Weight: 12, Three: 20, Two: 2},
	{Name: "melon", Weight: 6, Three: 25, Two: 3},
	{Name: "seven", Weight: 3, Three: 50, Two: 5},
	{Name: "bag", Weight: 1, Three: 100, Two: 10},
}

// Result is the reveal data of one spin.
type Result struct {
	Reels []string `json:"reels"`
	Match int      `json:"match"` // 3, 2 or 0 matching symbols
}

// Game implements game.Game for slots.
type Game struct {
	limits  game.Limits
	symbols []Symbol
	total   int
}

// Config holds configuration for the slot game.
type Config struct {
	Limits  game.Limits
	Symbols []Symbol
}

// New creates a slot game. An empty symbol list uses DefaultSymbols.
func New(cfg *Config) (*Game, error) {
	limits := game.DefaultLimits()
	symbols := DefaultSymbols
	if cfg != nil {
		limits = cfg.Limits.OrDefault()
		if len(cfg.Symbols) > 0 {
			symbols = cfg.Symbols
		}
	}

	if len(symbols) < 2 {
		return nil, fmt.Errorf("%w: need at least two symbols", ErrInvalidTable)
	}
	total := 0
	for _, s := range symbols {
		if s.Weight <= 0 {
			return nil, fmt.Errorf("%w: symbol %q has weight %d", ErrInvalidTable, s.Name, s.Weight)
		}
		total += s.Weight
	}

	return &Game{limits: limits, symbols: symbols, total: total}, nil
}

// Kind returns the game type identifier.
func (s *Game) Kind() game.Kind { return game.KindSlots }

// Name returns the game's display name.
func (s *Game) Name() string { return "Slots" }

// Description returns a brief description of the game.
func (s *Game) Description() string {
	return "Spin three reels: three of a kind pays big, a pair pays small"
}

// Limits returns the accepted stake bounds.
func (s *Game) Limits() game.Limits { return s.limits }

// Symbols returns the configured alphabet.
func (s *Game) Symbols() []Symbol { return s.symbols }

// Play spins the reels and settles the wager.
func (s *Game) Play(bet int64, rng game.Rand) (*game.Outcome, error) {
	if err := s.limits.Validate(bet); err != nil {
		return nil, err
	}

	var reels [Reels]int
	for i := range reels {
		reels[i] = s.draw(rng)
	}
	return s.Settle(bet, reels), nil
}

// draw picks a symbol index proportionally to its weight.
func (s *Game) draw(rng game.Rand) int {
	n := rng.IntN(s.total)
	for i, sym := range s.symbols {
		if n < sym.Weight {
			return i
		}
		n -= sym.Weight
	}
	return len(s.symbols) - 1
}

// Settle computes the outcome for known reel indexes.
func (s *Game) Settle(bet int64, reels [Reels]int) *game.Outcome {
	names := make([]string, Reels)
	for i, idx := range reels {
		names[i] = s.symbols[idx].Name
	}

	a, b, c := reels[0], reels[1], reels[2]
	switch {
	case a == b && b == c:
		return game.Resolve(bet, s.symbols[a].Three, Result{Reels: names, Match: 3})
	case a == b || a == c:
		return game.Resolve(bet, s.symbols[a].Two, Result{Reels: names, Match: 2})
	case b == c:
		return game.Resolve(bet, s.symbols[b].Two, Result{Reels: names, Match: 2})
	default:
		return game.Lose(Result{Reels: names})
	}
}

// ExpectedReturn computes the exact expected payout per unit staked.
func (s *Game) ExpectedReturn() float64 {
	total := float64(s.total)
	var ev float64
	for i, x := range s.symbols {
		for j, y := range s.symbols {
			for k, z := range s.symbols {
				p := float64(x.Weight) / total * float64(y.Weight) / total * float64(z.Weight) / total
				var m float64
				switch {
				case i == j && j == k:
					m = x.Three
				case i == j || i == k:
					m = x.Two
				case j == k:
					m = y.Two
				}
				ev += p * m
			}
		}
	}
	return ev
}
