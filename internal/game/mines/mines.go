// Package mines implements a 5x5 minesweeper wager. The player commits
// to a mine count, reveals cells one at a time and may cash out after
// any safe reveal.
package mines

import (
	"fmt"
	"math"
	"slices"

	"virtual-casino/internal/game"
)

// Cells is the number of grid cells.
const Cells = 25

// MinMultiplier is the floor applied to every cash-out multiplier.
const MinMultiplier = 1.1

const houseEdge = 0.9

// Errors for mines.
var (
	ErrInvalidMineCount = fmt.Errorf("%w: invalid mine count", game.ErrInvalidParams)
	ErrInvalidCell      = fmt.Errorf("%w: cell out of range", game.ErrInvalidParams)
	ErrAlreadyRevealed  = fmt.Errorf("%w: cell already revealed", game.ErrInvalidParams)
	ErrNothingRevealed  = fmt.Errorf("%w: reveal at least one cell before cashing out", game.ErrWrongPhase)
	ErrRoundOver        = fmt.Errorf("%w: round is already over", game.ErrWrongPhase)
)

// Board is the persisted state of one round. Mine positions never leave
// the server until the round is over.
type Board struct {
	MineCount int   `json:"mine_count"`
	Mines     []int `json:"mines"`
	Revealed  []int `json:"revealed"`
	Over      bool  `json:"over"`
}

// IsMine reports whether a cell holds a mine.
func (b *Board) IsMine(cell int) bool {
	return slices.Contains(b.Mines, cell)
}

// SafeCells is the number of cells without a mine.
func (b *Board) SafeCells() int {
	return Cells - b.MineCount
}

// Result is the reveal data of a settled round.
type Result struct {
	MineCount  int   `json:"mine_count"`
	Mines      []int `json:"mines"`
	Revealed   []int `json:"revealed"`
	HitMine    bool  `json:"hit_mine"`
	HitCell    *int  `json:"hit_cell,omitempty"`
	CashedOut  bool  `json:"cashed_out"`
	SafeReveal int   `json:"safe_reveals"`
}

// View is what a client may see of a running round.
type View struct {
	MineCount      int     `json:"mine_count"`
	Revealed       []int   `json:"revealed"`
	Multiplier     float64 `json:"multiplier"`
	NextMultiplier float64 `json:"next_multiplier,omitempty"`
}

// Game implements game.Game for mines.
type Game struct {
	limits   game.Limits
	minMines int
	maxMines int
}

// Config holds configuration for mines.
type Config struct {
	Limits   game.Limits
	MinMines int
	MaxMines int
}

// New creates a mines game. Mine count bounds default to 1..24.
func New(cfg *Config) *Game {
	g := &Game{limits: game.DefaultLimits(), minMines: 1, maxMines: Cells - 1}
	if cfg != nil {
		g.limits = cfg.Limits.OrDefault()
		if cfg.MinMines > 0 {
			g.minMines = cfg.MinMines
		}
		if cfg.MaxMines > 0 && cfg.MaxMines < Cells {
			g.maxMines = cfg.MaxMines
		}
	}
	return g
}

// Kind returns the game type identifier.
func (g *Game) Kind() game.Kind { return game.KindMines }

// Name returns the game's display name.
func (g *Game) Name() string { return "Mines" }

// Description returns a brief description of the game.
func (g *Game) Description() string {
	return "Reveal safe cells on a 5x5 grid and cash out before hitting a mine"
}

// Limits returns the accepted bet bounds.
func (g *Game) Limits() game.Limits { return g.limits }

// Start validates the wager and places the mines.
func (g *Game) Start(bet int64, mineCount int, rng game.Rand) (*Board, error) {
	if err := g.limits.Validate(bet); err != nil {
		return nil, err
	}
	if mineCount < g.minMines || mineCount > g.maxMines {
		return nil, fmt.Errorf("%w: must be between %d and %d", ErrInvalidMineCount, g.minMines, g.maxMines)
	}
	return &Board{
		MineCount: mineCount,
		Mines:     placeMines(mineCount, rng),
		Revealed:  []int{},
	}, nil
}

// placeMines draws distinct cells with a partial Fisher-Yates shuffle.
func placeMines(n int, rng game.Rand) []int {
	cells := make([]int, Cells)
	for i := range cells {
		cells[i] = i
	}
	for i := 0; i < n; i++ {
		j := i + rng.IntN(Cells-i)
		cells[i], cells[j] = cells[j], cells[i]
	}
	mines := slices.Clone(cells[:n])
	slices.Sort(mines)
	return mines
}

// Reveal opens a cell. It returns a non-nil outcome when the round ends:
// on a mine, or when the last safe cell is revealed (automatic cash-out).
func (g *Game) Reveal(b *Board, bet int64, cell int) (*game.Outcome, error) {
	if b.Over {
		return nil, ErrRoundOver
	}
	if cell < 0 || cell >= Cells {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCell, cell)
	}
	if slices.Contains(b.Revealed, cell) {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyRevealed, cell)
	}

	b.Revealed = append(b.Revealed, cell)
	if b.IsMine(cell) {
		b.Over = true
		res := b.result()
		res.HitMine = true
		res.HitCell = &cell
		return game.Lose(res), nil
	}
	if len(b.Revealed) == b.SafeCells() {
		return g.CashOut(b, bet)
	}
	return nil, nil
}

// CashOut ends the round at the current multiplier.
func (g *Game) CashOut(b *Board, bet int64) (*game.Outcome, error) {
	if b.Over {
		return nil, ErrRoundOver
	}
	if len(b.Revealed) == 0 {
		return nil, ErrNothingRevealed
	}
	b.Over = true
	res := b.result()
	res.CashedOut = true
	return game.Resolve(bet, Multiplier(b.MineCount, len(b.Revealed)), res), nil
}

// View returns the client-visible state of a running round.
func (g *Game) View(b *Board) View {
	v := View{
		MineCount: b.MineCount,
		Revealed:  b.Revealed,
	}
	if k := len(b.Revealed); k > 0 {
		v.Multiplier = Multiplier(b.MineCount, k)
	}
	if k := len(b.Revealed); k < b.SafeCells() {
		v.NextMultiplier = Multiplier(b.MineCount, k+1)
	}
	return v
}

func (b *Board) result() Result {
	safe := 0
	for _, c := range b.Revealed {
		if !b.IsMine(c) {
			safe++
		}
	}
	return Result{
		MineCount:  b.MineCount,
		Mines:      b.Mines,
		Revealed:   b.Revealed,
		SafeReveal: safe,
	}
}

// RawMultiplier is the fair multiplier after k safe reveals with m mines,
// scaled by the house edge: 0.9 / prod_{i<k} (25-m-i)/(25-i).
func RawMultiplier(m, k int) float64 {
	survival := 1.0
	for i := 0; i < k; i++ {
		survival *= float64(Cells-m-i) / float64(Cells-i)
	}
	if survival <= 0 {
		return math.Inf(1)
	}
	return houseEdge / survival
}

// Multiplier is the paid multiplier: RawMultiplier floored at 1.1. It is
// not rounded; the payout floors bet × multiplier once.
func Multiplier(m, k int) float64 {
	return math.Max(MinMultiplier, RawMultiplier(m, k))
}
