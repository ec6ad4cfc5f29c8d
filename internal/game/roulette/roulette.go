// Package roulette implements single-zero European roulette.
// Several bets may be placed on one spin; each is settled independently.
package roulette

import (
	"fmt"
	"math"

	"virtual-casino/internal/game"
)

// Pockets is the number of wheel pockets (0..36).
const Pockets = 37

// MaxBetsPerSpin caps the number of bets in one wager.
const MaxBetsPerSpin = 64

// BetType is the kind of a roulette bet.
type BetType string

// Bet types and their payout ratios (x:1).
const (
	BetStraight BetType = "straight" // 35:1
	BetRed      BetType = "red"      // 1:1
	BetBlack    BetType = "black"    // 1:1
	BetEven     BetType = "even"     // 1:1
	BetOdd      BetType = "odd"      // 1:1
	BetLow      BetType = "low"      // 1-18, 1:1
	BetHigh     BetType = "high"     // 19-36, 1:1
	BetDozen    BetType = "dozen"    // value 1..3, 2:1
	BetColumn   BetType = "column"   // value 1..3, 2:1
)

var ratios = map[BetType]int64{
	BetStraight: 35,
	BetRed:      1,
	BetBlack:    1,
	BetEven:     1,
	BetOdd:      1,
	BetLow:      1,
	BetHigh:     1,
	BetDozen:    2,
	BetColumn:   2,
}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// Errors for roulette.
var (
	ErrNoBets       = fmt.Errorf("%w: at least one bet is required", game.ErrInvalidParams)
	ErrTooManyBets  = fmt.Errorf("%w: too many bets on one spin", game.ErrInvalidParams)
	ErrInvalidBet   = fmt.Errorf("%w: invalid roulette bet", game.ErrInvalidParams)
	ErrInvalidValue = fmt.Errorf("%w: bet value out of range", game.ErrInvalidParams)
)

// Bet is one stake on one proposition.
type Bet struct {
	Type   BetType `json:"type"`
	Value  int     `json:"value,omitempty"` // number for straight, 1..3 for dozen/column
	Amount int64   `json:"amount"`
}

// BetResult reports how a single bet settled.
type BetResult struct {
	Bet
	Won    bool  `json:"won"`
	Payout int64 `json:"payout"`
}

// Result is the reveal data of one spin.
type Result struct {
	Number int         `json:"number"`
	Color  string      `json:"color"`
	Bets   []BetResult `json:"bets"`
}

// Game implements game.Game for roulette.
type Game struct {
	limits game.Limits
}

// Config holds configuration for roulette.
type Config struct {
	Limits game.Limits
}

// New creates a roulette game; a nil config uses the default limits.
func New(cfg *Config) *Game {
	limits := game.DefaultLimits()
	if cfg != nil {
		limits = cfg.Limits.OrDefault()
	}
	return &Game{limits: limits}
}

// Kind returns the game type identifier.
func (g *Game) Kind() game.Kind { return game.KindRoulette }

// Name returns the game's display name.
func (g *Game) Name() string { return "Roulette" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "European single-zero roulette with straight, color, parity, high/low, dozen and column bets"
}

// Limits returns the accepted bounds for the total stake of a spin.
func (g *Game) Limits() game.Limits { return g.limits }

// Total returns the summed stake of all bets, saturating at math.MaxInt64.
func Total(bets []Bet) int64 {
	var total int64
	for _, b := range bets {
		if b.Amount > 0 && total > math.MaxInt64-b.Amount {
			return math.MaxInt64
		}
		total += b.Amount
	}
	return total
}

// Validate checks every bet and the total stake.
func (g *Game) Validate(bets []Bet) error {
	if len(bets) == 0 {
		return ErrNoBets
	}
	if len(bets) > MaxBetsPerSpin {
		return fmt.Errorf("%w: max %d", ErrTooManyBets, MaxBetsPerSpin)
	}
	var total int64
	for i, b := range bets {
		if b.Amount <= 0 {
			return fmt.Errorf("bet %d: %w", i, game.ErrInvalidBet)
		}
		if err := validateBet(b); err != nil {
			return fmt.Errorf("bet %d: %w", i, err)
		}
		// each amount and the running sum stay within MaxBet, so the
		// total can never wrap
		if b.Amount > g.limits.MaxBet || total > g.limits.MaxBet-b.Amount {
			return fmt.Errorf("%w: max bet is %d", game.ErrBetTooHigh, g.limits.MaxBet)
		}
		total += b.Amount
	}
	return g.limits.Validate(total)
}

func validateBet(b Bet) error {
	if _, ok := ratios[b.Type]; !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidBet, b.Type)
	}
	switch b.Type {
	case BetStraight:
		if b.Value < 0 || b.Value >= Pockets {
			return fmt.Errorf("%w: number %d", ErrInvalidValue, b.Value)
		}
	case BetDozen, BetColumn:
		if b.Value < 1 || b.Value > 3 {
			return fmt.Errorf("%w: %s %d", ErrInvalidValue, b.Type, b.Value)
		}
	}
	return nil
}

// Play spins the wheel and settles every bet.
func (g *Game) Play(bets []Bet, rng game.Rand) (*game.Outcome, error) {
	if err := g.Validate(bets); err != nil {
		return nil, err
	}
	return Settle(bets, rng.IntN(Pockets)), nil
}

// Settle computes the outcome of bets against a known number.
func Settle(bets []Bet, number int) *game.Outcome {
	result := Result{Number: number, Color: Color(number), Bets: make([]BetResult, 0, len(bets))}

	var payout int64
	for _, b := range bets {
		br := BetResult{Bet: b}
		if Wins(b, number) {
			br.Won = true
			br.Payout = b.Amount*ratios[b.Type] + b.Amount
			payout += br.Payout
		}
		result.Bets = append(result.Bets, br)
	}

	total := Total(bets)
	out := &game.Outcome{
		Win:    payout > total,
		Payout: payout,
		Detail: result,
	}
	if total > 0 {
		out.Multiplier = game.Truncate2(float64(payout) / float64(total))
	}
	return out
}

// Wins reports whether a bet wins against the drawn number.
// Zero loses every bet except a straight bet on zero.
func Wins(b Bet, n int) bool {
	if b.Type == BetStraight {
		return b.Value == n
	}
	if n == 0 {
		return false
	}
	switch b.Type {
	case BetRed:
		return redNumbers[n]
	case BetBlack:
		return !redNumbers[n]
	case BetEven:
		return n%2 == 0
	case BetOdd:
		return n%2 == 1
	case BetLow:
		return n <= 18
	case BetHigh:
		return n >= 19
	case BetDozen:
		return (n-1)/12+1 == b.Value
	case BetColumn:
		return (n-1)%3+1 == b.Value
	default:
		return false
	}
}

// Color returns "green", "red" or "black" for a pocket.
func Color(n int) string {
	switch {
	case n == 0:
		return "green"
	case redNumbers[n]:
		return "red"
	default:
		return "black"
	}
}
