// Package crash implements the crash game with server-side timing.
//
// The crash point is fixed when the round opens and never leaves the
// server while the round is flying. The displayed multiplier climbs by
// 0.01 every tick, measured from the server's own start timestamp, so a
// cash-out request is arbitrated against server time only.
package crash

import (
	"fmt"
	"math"
	"time"

	"virtual-casino/internal/game"
)

// Multipliers are carried in hundredths (101 = 1.01x).
const (
	StartMultiplier = 100
	MinCrashPoint   = 101
	MaxCrashPoint   = 5000
)

// DefaultTick is the interval of one 0.01 step.
const DefaultTick = 50 * time.Millisecond

// ErrInvalidAutoCashOut is returned for an auto cash-out below 1.01x.
var ErrInvalidAutoCashOut = fmt.Errorf("%w: auto cash-out must be at least 1.01", game.ErrInvalidParams)

// Round is the persisted state of one flying round.
type Round struct {
	CrashPoint  int64     `json:"crash_point"`
	AutoCashOut int64     `json:"auto_cash_out,omitempty"` // 0 means manual only
	StartedAt   time.Time `json:"started_at"`
}

// Result is the reveal data of a settled round.
type Result struct {
	CrashPoint  float64 `json:"crash_point"`
	CashedOutAt float64 `json:"cashed_out_at,omitempty"`
	Crashed     bool    `json:"crashed"`
	Auto        bool    `json:"auto,omitempty"`
}

// View is what a client may see of a flying round.
type View struct {
	Multiplier  float64   `json:"multiplier"`
	AutoCashOut float64   `json:"auto_cash_out,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// Game implements game.Game for crash.
type Game struct {
	limits game.Limits
	tick   time.Duration
}

// Config holds configuration for crash.
type Config struct {
	Limits game.Limits
	Tick   time.Duration
}

// New creates a crash game; zero values fall back to defaults.
func New(cfg *Config) *Game {
	g := &Game{limits: game.DefaultLimits(), tick: DefaultTick}
	if cfg != nil {
		g.limits = cfg.Limits.OrDefault()
		if cfg.Tick > 0 {
			g.tick = cfg.Tick
		}
	}
	return g
}

// Kind returns the game type identifier.
func (g *Game) Kind() game.Kind { return game.KindCrash }

// Name returns the game's display name.
func (g *Game) Name() string { return "Crash" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Cash out before the multiplier crashes"
}

// Limits returns the accepted bet bounds.
func (g *Game) Limits() game.Limits { return g.limits }

// Tick returns the duration of one 0.01 step.
func (g *Game) Tick() time.Duration { return g.tick }

// SampleCrashPoint draws a crash point in hundredths:
// max(1.01, U^0.3 * 50) for uniform U.
func SampleCrashPoint(rng game.Rand) int64 {
	p := int64(math.Floor(math.Pow(rng.Float64(), 0.3) * MaxCrashPoint))
	if p < MinCrashPoint {
		return MinCrashPoint
	}
	return p
}

// ToHundredths converts a decimal multiplier to hundredths, truncating.
func ToHundredths(m float64) int64 {
	return int64(math.Floor(m*100 + 1e-9))
}

// Start validates the wager and opens a round at now.
// autoCashOut of 0 disables automatic cash-out.
func (g *Game) Start(bet int64, autoCashOut float64, now time.Time, rng game.Rand) (*Round, error) {
	if err := g.limits.Validate(bet); err != nil {
		return nil, err
	}
	auto := int64(0)
	if autoCashOut != 0 {
		auto = ToHundredths(autoCashOut)
		if auto < MinCrashPoint {
			return nil, fmt.Errorf("%w: got %.2f", ErrInvalidAutoCashOut, autoCashOut)
		}
	}
	return &Round{
		CrashPoint:  SampleCrashPoint(rng),
		AutoCashOut: auto,
		StartedAt:   now,
	}, nil
}

// MultiplierAt returns the multiplier in hundredths at the given instant,
// capped at the crash point.
func (g *Game) MultiplierAt(r *Round, now time.Time) int64 {
	elapsed := now.Sub(r.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	m := StartMultiplier + int64(elapsed/g.tick)
	if m > r.CrashPoint {
		return r.CrashPoint
	}
	return m
}

// Decided returns the outcome of a round whose fate is already sealed at
// now: either the auto cash-out was reached or the crash point was. It
// returns nil while the player can still cash out.
func (g *Game) Decided(r *Round, bet int64, now time.Time) *game.Outcome {
	cur := g.MultiplierAt(r, now)
	if r.AutoCashOut > 0 && r.AutoCashOut < r.CrashPoint && cur >= r.AutoCashOut {
		return win(r, bet, r.AutoCashOut, true)
	}
	if cur >= r.CrashPoint {
		return game.Lose(Result{CrashPoint: float64(r.CrashPoint) / 100, Crashed: true})
	}
	return nil
}

// CashOut settles the round at now. A cash-out strictly before the crash
// point pays the current multiplier; otherwise the bet is lost.
func (g *Game) CashOut(r *Round, bet int64, now time.Time) *game.Outcome {
	if out := g.Decided(r, bet, now); out != nil {
		return out
	}
	return win(r, bet, g.MultiplierAt(r, now), false)
}

// View returns the client-visible state of a flying round.
func (g *Game) View(r *Round, now time.Time) View {
	return View{
		Multiplier:  float64(g.MultiplierAt(r, now)) / 100,
		AutoCashOut: float64(r.AutoCashOut) / 100,
		StartedAt:   r.StartedAt,
	}
}

func win(r *Round, bet, at int64, auto bool) *game.Outcome {
	m := float64(at) / 100
	return game.Resolve(bet, m, Result{
		CrashPoint:  float64(r.CrashPoint) / 100,
		CashedOutAt: m,
		Auto:        auto,
	})
}
