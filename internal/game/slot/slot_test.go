package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"virtual-casino/internal/game"
	"virtual-casino/internal/game/gametest"
)

func TestNew_RejectsBadTables(t *testing.T) {
	_, err := New(&Config{Symbols: []Symbol{{Name: "a", Weight: 1}}})
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = New(&Config{Symbols: []Symbol{{Name: "a", Weight: 1}, {Name: "b", Weight: 0}}})
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestSettle(t *testing.T) {
	g, err := New(nil)
	require.NoError(t, err)

	tests := []struct {
		name       string
		reels      [Reels]int
		bet        int64
		wantPayout int64
		wantMatch  int
	}{
		{"three cherries", [Reels]int{0, 0, 0}, 100, 500, 3},
		{"three bags", [Reels]int{6, 6, 6}, 10, 1000, 3},
		{"pair first two", [Reels]int{3, 3, 1}, 100, 200, 2},
		{"pair outer", [Reels]int{5, 0, 5}, 100, 500, 2},
		{"pair last two", [Reels]int{0, 6, 6}, 100, 1000, 2},
		{"cherry pair pays half", [Reels]int{0, 0, 2}, 100, 50, 2},
		{"no match", [Reels]int{0, 1, 2}, 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := g.Settle(tt.bet, tt.reels)
			assert.Equal(t, tt.wantPayout, out.Payout)
			assert.Equal(t, tt.wantMatch, out.Detail.(Result).Match)
		})
	}
}

func TestPlay_WeightedDraw(t *testing.T) {
	g, err := New(nil)
	require.NoError(t, err)

	// 0..34 is cherry, 99 is the last unit of weight (bag)
	out, err := g.Play(10, &gametest.Rand{Ints: []int{0, 34, 99}})
	require.NoError(t, err)
	assert.Equal(t, []string{"cherry", "cherry", "bag"}, out.Detail.(Result).Reels)
	assert.Equal(t, int64(5), out.Payout)
}

func TestPlay_ValidatesBet(t *testing.T) {
	g, err := New(&Config{Limits: game.Limits{MinBet: 1, MaxBet: 50}})
	require.NoError(t, err)

	_, err = g.Play(51, &gametest.Rand{})
	assert.ErrorIs(t, err, game.ErrBetTooHigh)
}

func TestDefaultTableHasHouseEdge(t *testing.T) {
	g, err := New(nil)
	require.NoError(t, err)

	ev := g.ExpectedReturn()
	assert.Less(t, ev, 1.0)
	assert.Greater(t, ev, 0.9)
}

// A spin never pays more than the best three-of-a-kind.
func TestPayoutBoundedProperty(t *testing.T) {
	g, err := New(nil)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		bet := rapid.Int64Range(1, 100000).Draw(t, "bet")
		var reels [Reels]int
		for i := range reels {
			reels[i] = rapid.IntRange(0, len(DefaultSymbols)-1).Draw(t, "reel")
		}

		out := g.Settle(bet, reels)
		if out.Payout < 0 || out.Payout > bet*100 {
			t.Fatalf("payout %d out of range for bet %d", out.Payout, bet)
		}
	})
}
