// Package plinko implements a plinko board: the ball takes one left or
// right step per row and lands in one of rows+1 slots.
package plinko

import (
	"errors"
	"fmt"

	"virtual-casino/internal/game"
)

// DefaultRows is the number of peg rows.
const DefaultRows = 16

// DefaultMultipliers is the 17-slot payout table, edges highest.
var DefaultMultipliers = []float64{1000, 130, 26, 9, 4, 2, 0.2, 0.2, 0.2, 0.2, 0.2, 2, 4, 9, 26, 130, 1000}

// ErrInvalidTable is returned by New for an unusable payout table.
var ErrInvalidTable = errors.New("invalid plinko table")

// Result is the reveal data of one drop.
type Result struct {
	Path []int `json:"path"` // 0 = left, 1 = right
	Slot int   `json:"slot"`
}

// Game implements game.Game for plinko.
type Game struct {
	limits      game.Limits
	rows        int
	multipliers []float64
}

// Config holds configuration for plinko.
type Config struct {
	Limits      game.Limits
	Rows        int
	Multipliers []float64
}

// New creates a plinko game. The table must have rows+1 non-negative,
// symmetric entries.
func New(cfg *Config) (*Game, error) {
	g := &Game{limits: game.DefaultLimits(), rows: DefaultRows, multipliers: DefaultMultipliers}
	if cfg != nil {
		g.limits = cfg.Limits.OrDefault()
		if cfg.Rows > 0 {
			g.rows = cfg.Rows
		}
		if len(cfg.Multipliers) > 0 {
			g.multipliers = cfg.Multipliers
		}
	}
	if err := ValidateTable(g.rows, g.multipliers); err != nil {
		return nil, err
	}
	return g, nil
}

// ValidateTable checks a payout table against a row count.
func ValidateTable(rows int, multipliers []float64) error {
	if rows < 1 {
		return fmt.Errorf("%w: rows must be positive", ErrInvalidTable)
	}
	if len(multipliers) != rows+1 {
		return fmt.Errorf("%w: %d rows need %d slots, got %d", ErrInvalidTable, rows, rows+1, len(multipliers))
	}
	for i, m := range multipliers {
		if m < 0 {
			return fmt.Errorf("%w: slot %d is negative", ErrInvalidTable, i)
		}
		if m != multipliers[len(multipliers)-1-i] {
			return fmt.Errorf("%w: slot %d breaks symmetry", ErrInvalidTable, i)
		}
	}
	return nil
}

// Kind returns the game type identifier.
func (g *Game) Kind() game.Kind { return game.KindPlinko }

// Name returns the game's display name.
func (g *Game) Name() string { return "Plinko" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Drop a ball through the pegs; the landing slot sets the multiplier"
}

// Limits returns the accepted bet bounds.
func (g *Game) Limits() game.Limits { return g.limits }

// Multipliers returns the payout table.
func (g *Game) Multipliers() []float64 { return g.multipliers }

// Play drops one ball.
func (g *Game) Play(bet int64, rng game.Rand) (*game.Outcome, error) {
	if err := g.limits.Validate(bet); err != nil {
		return nil, err
	}
	path := make([]int, g.rows)
	slot := 0
	for i := range path {
		path[i] = rng.IntN(2)
		slot += path[i]
	}
	return g.Settle(bet, path), nil
}

// Settle pays the slot reached by a path.
func (g *Game) Settle(bet int64, path []int) *game.Outcome {
	slot := 0
	for _, step := range path {
		slot += step
	}
	res := Result{Path: path, Slot: slot}
	m := g.multipliers[slot]
	if m == 0 {
		return game.Lose(res)
	}
	return game.Resolve(bet, m, res)
}

// ExpectedReturn is the payout per unit staked under a fair walk.
func (g *Game) ExpectedReturn() float64 {
	// binomial(rows, k) / 2^rows
	p := make([]float64, g.rows+1)
	p[0] = 1
	for r := 0; r < g.rows; r++ {
		for k := r + 1; k > 0; k-- {
			p[k] = (p[k] + p[k-1]) / 2
		}
		p[0] /= 2
	}
	var ev float64
	for k, m := range g.multipliers {
		ev += p[k] * m
	}
	return ev
}
