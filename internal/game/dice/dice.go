// Package dice implements the single-die threshold game.
// The player picks a target T in [2,6] and wins when a d6 roll is >= T.
package dice

import (
	"fmt"

	"virtual-casino/internal/game"
)

const (
	// MinTarget and MaxTarget bound the player's threshold.
	MinTarget = 2
	MaxTarget = 6

	// HouseFactor scales the fair multiplier down to leave a 10% edge.
	HouseFactor = 0.9
)

// ErrInvalidTarget is returned for a threshold outside [2,6].
var ErrInvalidTarget = fmt.Errorf("%w: target must be between 2 and 6", game.ErrInvalidParams)

// Params are the player's choices for one roll.
type Params struct {
	Target int `json:"target"`
}

// Result is the reveal data of one roll.
type Result struct {
	Roll   int `json:"roll"`
	Target int `json:"target"`
}

// Game implements game.Game for dice.
type Game struct {
	limits game.Limits
}

// Config holds configuration for the dice game.
type Config struct {
	Limits game.Limits
}

// New creates a dice game; a nil config uses the default limits.
func New(cfg *Config) *Game {
	limits := game.DefaultLimits()
	if cfg != nil {
		limits = cfg.Limits.OrDefault()
	}
	return &Game{limits: limits}
}

// Kind returns the game type identifier.
func (d *Game) Kind() game.Kind { return game.KindDice }

// Name returns the game's display name.
func (d *Game) Name() string { return "Dice" }

// Description returns a brief description of the game.
func (d *Game) Description() string {
	return "Pick a target from 2 to 6 and win if the die rolls at or above it"
}

// Limits returns the accepted stake bounds.
func (d *Game) Limits() game.Limits { return d.limits }

// Validate checks the stake and the target.
func (d *Game) Validate(bet int64, p Params) error {
	if err := d.limits.Validate(bet); err != nil {
		return err
	}
	if p.Target < MinTarget || p.Target > MaxTarget {
		return fmt.Errorf("%w: got %d", ErrInvalidTarget, p.Target)
	}
	return nil
}

// Play rolls the die and settles the wager.
func (d *Game) Play(bet int64, p Params, rng game.Rand) (*game.Outcome, error) {
	if err := d.Validate(bet, p); err != nil {
		return nil, err
	}

	roll := rng.IntN(6) + 1
	return Settle(bet, p.Target, roll), nil
}

// Settle computes the outcome for a known roll.
func Settle(bet int64, target, roll int) *game.Outcome {
	detail := Result{Roll: roll, Target: target}
	if roll < target {
		return game.Lose(detail)
	}
	return game.Resolve(bet, Multiplier(target), detail)
}

// Multiplier returns the payout ratio for a target: the inverse of the win
// probability (7-T)/6 scaled by the house factor, truncated to two decimals.
func Multiplier(target int) float64 {
	if target < MinTarget || target > MaxTarget {
		return 0
	}
	return game.Truncate2(6.0 / float64(7-target) * HouseFactor)
}

// WinProbability returns the chance that a roll meets the target.
func WinProbability(target int) float64 {
	return float64(7-target) / 6.0
}
