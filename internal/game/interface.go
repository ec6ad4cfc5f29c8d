// Package game defines the shared vocabulary of the outcome engine:
// game kinds, the randomness contract, bet limits and wager outcomes.
// Each game lives in its own subpackage and implements Game.
package game

import (
	"errors"
	"fmt"
	"math"
)

// Kind identifies a game type.
type Kind string

// Game kinds.
const (
	KindDice      Kind = "dice"
	KindSlots     Kind = "slots"
	KindRoulette  Kind = "roulette"
	KindCrash     Kind = "crash"
	KindPlinko    Kind = "plinko"
	KindMines     Kind = "mines"
	KindWheel     Kind = "wheel"
	KindBlackjack Kind = "blackjack"
)

// Kinds returns every game kind in display order.
func Kinds() []Kind {
	return []Kind{KindDice, KindSlots, KindRoulette, KindCrash, KindPlinko, KindMines, KindWheel, KindBlackjack}
}

// ParseKind converts a string to a known Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// IsSession reports whether the game spans several requests.
func (k Kind) IsSession() bool {
	return k == KindCrash || k == KindMines || k == KindBlackjack
}

// Rand is the uniform randomness source consumed by every game.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// Errors shared by all games.
var (
	ErrInvalidBet    = errors.New("bet amount must be positive")
	ErrBetTooLow     = errors.New("bet below minimum allowed")
	ErrBetTooHigh    = errors.New("bet exceeds maximum allowed")
	ErrInvalidParams = errors.New("invalid game parameters")
	ErrUnknownGame   = errors.New("unknown game")
	ErrWrongPhase    = errors.New("action not valid in the current game phase")
)

// Limits bounds the stake of one wager.
type Limits struct {
	MinBet int64 `json:"min_bet"`
	MaxBet int64 `json:"max_bet"`
}

// Default bet bounds when a game is built without configuration.
const (
	DefaultMinBet = 1
	DefaultMaxBet = 100000
)

// DefaultLimits returns the default bet bounds.
func DefaultLimits() Limits {
	return Limits{MinBet: DefaultMinBet, MaxBet: DefaultMaxBet}
}

// OrDefault fills unset bounds with the defaults.
func (l Limits) OrDefault() Limits {
	if l.MinBet <= 0 {
		l.MinBet = DefaultMinBet
	}
	if l.MaxBet <= 0 {
		l.MaxBet = DefaultMaxBet
	}
	return l
}

// Validate checks a bet against the bounds.
func (l Limits) Validate(bet int64) error {
	if bet <= 0 {
		return ErrInvalidBet
	}
	if bet < l.MinBet {
		return fmt.Errorf("%w: min bet is %d", ErrBetTooLow, l.MinBet)
	}
	if bet > l.MaxBet {
		return fmt.Errorf("%w: max bet is %d", ErrBetTooHigh, l.MaxBet)
	}
	return nil
}

// Outcome is the resolved result of one wager.
type Outcome struct {
	Win        bool    `json:"win"`        // payout exceeds the stake
	Payout     int64   `json:"payout"`     // gross amount credited back, 0 on loss
	Multiplier float64 `json:"multiplier"` // payout ratio applied to the stake
	Detail     any     `json:"detail"`     // game-specific reveal data
}

// Resolve builds an outcome for a stake paid at the given multiplier.
func Resolve(bet int64, multiplier float64, detail any) *Outcome {
	payout := Payout(bet, multiplier)
	return &Outcome{
		Win:        payout > bet,
		Payout:     payout,
		Multiplier: multiplier,
		Detail:     detail,
	}
}

// Lose builds a zero-payout outcome.
func Lose(detail any) *Outcome {
	return &Outcome{Detail: detail}
}

// Payout returns floor(bet * multiplier). A small epsilon absorbs binary
// rounding so 100 * 1.08 pays 108, not 107.
func Payout(bet int64, multiplier float64) int64 {
	if multiplier <= 0 || bet <= 0 {
		return 0
	}
	return int64(math.Floor(float64(bet)*multiplier + 1e-9))
}

// Truncate2 truncates a multiplier to two decimals.
func Truncate2(x float64) float64 {
	return math.Floor(x*100+1e-9) / 100
}

// Game describes a playable game for the catalog.
type Game interface {
	// Kind returns the game type identifier.
	Kind() Kind
	// Name returns the display name.
	Name() string
	// Description returns a one-line rules summary.
	Description() string
	// Limits returns the accepted stake bounds.
	Limits() Limits
}
