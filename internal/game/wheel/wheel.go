// Package wheel implements a weighted prize wheel.
package wheel

import (
	"errors"
	"fmt"
	"math"

	"virtual-casino/internal/game"
)

// Segment is one slice of the wheel.
type Segment struct {
	Multiplier  float64 `json:"multiplier"`
	Probability float64 `json:"probability"`
}

// DefaultSegments has an expected return of 0.916.
var DefaultSegments = []Segment{
	{Multiplier: 0, Probability: 0.55},
	{Multiplier: 1.2, Probability: 0.18},
	{Multiplier: 1.5, Probability: 0.12},
	{Multiplier: 2, Probability: 0.08},
	{Multiplier: 3, Probability: 0.04},
	{Multiplier: 5, Probability: 0.02},
	{Multiplier: 10, Probability: 0.009},
	{Multiplier: 50, Probability: 0.001},
}

// ErrInvalidSegments is returned by New for an unusable segment list.
var ErrInvalidSegments = errors.New("invalid wheel segments")

const probabilityTolerance = 1e-9

// Result is the reveal data of one spin.
type Result struct {
	Segment    int     `json:"segment"`
	Multiplier float64 `json:"multiplier"`
}

// Game implements game.Game for the wheel.
type Game struct {
	limits   game.Limits
	segments []Segment
}

// Config holds configuration for the wheel.
type Config struct {
	Limits   game.Limits
	Segments []Segment
}

// New creates a wheel game. Probabilities must be positive and sum to 1.
func New(cfg *Config) (*Game, error) {
	g := &Game{limits: game.DefaultLimits(), segments: DefaultSegments}
	if cfg != nil {
		g.limits = cfg.Limits.OrDefault()
		if len(cfg.Segments) > 0 {
			g.segments = cfg.Segments
		}
	}
	if err := ValidateSegments(g.segments); err != nil {
		return nil, err
	}
	return g, nil
}

// ValidateSegments checks a segment list.
func ValidateSegments(segments []Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidSegments)
	}
	var sum float64
	for i, s := range segments {
		if s.Probability <= 0 {
			return fmt.Errorf("%w: segment %d has probability %v", ErrInvalidSegments, i, s.Probability)
		}
		if s.Multiplier < 0 {
			return fmt.Errorf("%w: segment %d has negative multiplier", ErrInvalidSegments, i)
		}
		sum += s.Probability
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("%w: probabilities sum to %v", ErrInvalidSegments, sum)
	}
	return nil
}

// Kind returns the game type identifier.
func (g *Game) Kind() game.Kind { return game.KindWheel }

// Name returns the game's display name.
func (g *Game) Name() string { return "Wheel" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Spin the wheel for a multiplier up to 50x"
}

// Limits returns the accepted bet bounds.
func (g *Game) Limits() game.Limits { return g.limits }

// Segments returns the wheel layout.
func (g *Game) Segments() []Segment { return g.segments }

// Play spins the wheel once.
func (g *Game) Play(bet int64, rng game.Rand) (*game.Outcome, error) {
	if err := g.limits.Validate(bet); err != nil {
		return nil, err
	}
	return g.Settle(bet, g.Pick(rng.Float64())), nil
}

// Pick maps a uniform draw in [0,1) to a segment index. Float drift past
// the last cumulative bound lands on the last segment.
func (g *Game) Pick(u float64) int {
	var cum float64
	for i, s := range g.segments {
		cum += s.Probability
		if u < cum {
			return i
		}
	}
	return len(g.segments) - 1
}

// Settle pays the given segment.
func (g *Game) Settle(bet int64, segment int) *game.Outcome {
	m := g.segments[segment].Multiplier
	res := Result{Segment: segment, Multiplier: m}
	if m == 0 {
		return game.Lose(res)
	}
	return game.Resolve(bet, m, res)
}

// ExpectedReturn is the payout per unit staked.
func (g *Game) ExpectedReturn() float64 {
	var ev float64
	for _, s := range g.segments {
		ev += s.Multiplier * s.Probability
	}
	return ev
}
