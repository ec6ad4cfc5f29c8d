package mines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"virtual-casino/internal/game"
	"virtual-casino/internal/game/gametest"
)

func TestMultiplierValues(t *testing.T) {
	// one mine, one reveal: 0.9 / (24/25) = 0.9375, clamped
	assert.Equal(t, MinMultiplier, Multiplier(1, 1))
	// three mines, one reveal: 0.9 / (22/25) = 1.0227, clamped
	assert.Equal(t, MinMultiplier, Multiplier(3, 1))
	// five mines, two reveals: 0.9 / (20/25 * 19/24) = 1.42105...
	assert.InDelta(t, 1.4210526315, Multiplier(5, 2), 1e-9)
	// 24 mines, one reveal: 0.9 / (1/25) = 22.5
	assert.InDelta(t, 22.5, Multiplier(24, 1), 1e-9)
}

func TestPayoutUsesUnroundedMultiplier(t *testing.T) {
	assert.Equal(t, int64(142105), game.Payout(100000, Multiplier(5, 2)))
	assert.Equal(t, int64(110), game.Payout(100, Multiplier(1, 1)))
}

func TestRawMultiplierStrictlyIncreasingInRevealsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.IntRange(1, Cells-1).Draw(t, "mines")
		k := rapid.IntRange(0, Cells-m-1).Draw(t, "reveals")
		if RawMultiplier(m, k+1) <= RawMultiplier(m, k) {
			t.Fatalf("m=%d: raw(%d)=%v not below raw(%d)=%v", m, k, RawMultiplier(m, k), k+1, RawMultiplier(m, k+1))
		}
		if Multiplier(m, k+1) < Multiplier(m, k) {
			t.Fatalf("paid multiplier decreased at m=%d k=%d", m, k)
		}
	})
}

func TestRawMultiplierStrictlyIncreasingInMinesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.IntRange(1, Cells-2).Draw(t, "mines")
		k := rapid.IntRange(1, Cells-m-1).Draw(t, "reveals")
		if RawMultiplier(m+1, k) <= RawMultiplier(m, k) {
			t.Fatalf("k=%d: raw with %d mines not above %d mines", k, m+1, m)
		}
	})
}

func TestPlaceMinesDistinctProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, Cells-1).Draw(t, "mines")
		ints := rapid.SliceOfN(rapid.IntRange(0, 1000), n, n).Draw(t, "draws")
		mines := placeMines(n, &gametest.Rand{Ints: ints})

		seen := map[int]bool{}
		for _, c := range mines {
			if c < 0 || c >= Cells || seen[c] {
				t.Fatalf("bad placement %v", mines)
			}
			seen[c] = true
		}
		if len(mines) != n {
			t.Fatalf("placed %d mines, want %d", len(mines), n)
		}
	})
}

func TestStart(t *testing.T) {
	g := New(&Config{MinMines: 3, MaxMines: 10})

	_, err := g.Start(10, 2, &gametest.Rand{})
	assert.ErrorIs(t, err, ErrInvalidMineCount)
	_, err = g.Start(10, 11, &gametest.Rand{})
	assert.ErrorIs(t, err, ErrInvalidMineCount)
	_, err = g.Start(0, 5, &gametest.Rand{})
	assert.ErrorIs(t, err, game.ErrInvalidBet)

	b, err := g.Start(10, 3, &gametest.Rand{})
	require.NoError(t, err)
	// IntN always 0: the first three cells stay in place
	assert.Equal(t, []int{0, 1, 2}, b.Mines)
	assert.Empty(t, b.Revealed)
}

func TestRevealAndCashOut(t *testing.T) {
	g := New(nil)
	b := &Board{MineCount: 5, Mines: []int{0, 1, 2, 3, 4}, Revealed: []int{}}

	_, err := g.CashOut(b, 100)
	assert.ErrorIs(t, err, ErrNothingRevealed)

	out, err := g.Reveal(b, 100, 10)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = g.Reveal(b, 100, 10)
	assert.ErrorIs(t, err, ErrAlreadyRevealed)
	_, err = g.Reveal(b, 100, 25)
	assert.ErrorIs(t, err, ErrInvalidCell)

	out, err = g.Reveal(b, 100, 11)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = g.CashOut(b, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(142), out.Payout)
	assert.True(t, out.Win)
	assert.True(t, out.Detail.(Result).CashedOut)

	_, err = g.Reveal(b, 100, 12)
	assert.ErrorIs(t, err, ErrRoundOver)
}

func TestRevealMineLoses(t *testing.T) {
	g := New(nil)
	b := &Board{MineCount: 2, Mines: []int{7, 8}, Revealed: []int{}}

	out, err := g.Reveal(b, 50, 8)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Zero(t, out.Payout)
	res := out.Detail.(Result)
	assert.True(t, res.HitMine)
	assert.Equal(t, 8, *res.HitCell)
	assert.Equal(t, []int{7, 8}, res.Mines)
	assert.True(t, b.Over)
}

func TestRevealingAllSafeCellsCashesOut(t *testing.T) {
	g := New(nil)
	mines := make([]int, 0, 23)
	for c := 2; c < Cells; c++ {
		mines = append(mines, c)
	}
	b := &Board{MineCount: 23, Mines: mines, Revealed: []int{}}

	out, err := g.Reveal(b, 10, 0)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = g.Reveal(b, 10, 1)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.Detail.(Result).CashedOut)
	assert.Equal(t, game.Payout(10, Multiplier(23, 2)), out.Payout)
}

func TestViewHidesMines(t *testing.T) {
	g := New(nil)
	b := &Board{MineCount: 5, Mines: []int{0, 1, 2, 3, 4}, Revealed: []int{9}}
	v := g.View(b)
	assert.Equal(t, []int{9}, v.Revealed)
	assert.Equal(t, Multiplier(5, 1), v.Multiplier)
	assert.Equal(t, Multiplier(5, 2), v.NextMultiplier)
}
