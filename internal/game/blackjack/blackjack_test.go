package blackjack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"virtual-casino/internal/game"
	"virtual-casino/internal/game/gametest"
)

func cards(ranks ...int) []Card {
	out := make([]Card, len(ranks))
	for i, r := range ranks {
		out[i] = Card{Rank: r, Suit: "spades"}
	}
	return out
}

// stacked builds a round whose deck deals in the given order:
// player, dealer, player, dealer, then hits.
func stacked(ranks ...int) *Round {
	return &Round{Deck: cards(ranks...)}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		hand  []Card
		score int
	}{
		{"face cards", cards(13, 12), 20},
		{"natural", cards(1, 11), 21},
		{"soft 17", cards(1, 6), 17},
		{"ace collapses", cards(1, 9, 5), 15},
		{"two aces", cards(1, 1), 12},
		{"three aces and nine", cards(1, 1, 1, 9), 12},
		{"bust", cards(10, 9, 5), 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.score, Score(tt.hand))
		})
	}
	assert.True(t, IsNatural(cards(1, 13)))
	assert.False(t, IsNatural(cards(7, 7, 7)))
}

func TestNewDeckIsPermutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ints := rapid.SliceOfN(rapid.IntRange(0, 1000), 1, 60).Draw(t, "draws")
		deck := NewDeck(&gametest.Rand{Ints: ints})
		if len(deck) != deckSize {
			t.Fatalf("deck has %d cards", len(deck))
		}
		seen := map[Card]bool{}
		for _, c := range deck {
			if seen[c] {
				t.Fatalf("duplicate card %v", c)
			}
			seen[c] = true
		}
	})
}

func TestBegin_Naturals(t *testing.T) {
	g := New(nil)

	t.Run("player natural pays 2.5x", func(t *testing.T) {
		r := stacked(1, 9, 13, 8)
		out := g.Begin(r, 100)
		require.NotNil(t, out)
		assert.Equal(t, int64(250), out.Payout)
		assert.Equal(t, ResultBlackjack, r.Result)
	})

	t.Run("both naturals push", func(t *testing.T) {
		r := stacked(1, 1, 13, 12)
		out := g.Begin(r, 100)
		require.NotNil(t, out)
		assert.Equal(t, int64(100), out.Payout)
		assert.False(t, out.Win)
	})

	t.Run("dealer natural loses", func(t *testing.T) {
		r := stacked(9, 1, 9, 13)
		out := g.Begin(r, 100)
		require.NotNil(t, out)
		assert.Zero(t, out.Payout)
		assert.Equal(t, ResultDealerBlackjack, r.Result)
	})

	t.Run("no natural continues", func(t *testing.T) {
		r := stacked(9, 10, 7, 7)
		assert.Nil(t, g.Begin(r, 100))
		assert.False(t, r.Over())
	})
}

func TestHitAndStand(t *testing.T) {
	g := New(nil)

	t.Run("bust loses", func(t *testing.T) {
		r := stacked(10, 10, 6, 7, 9)
		require.Nil(t, g.Begin(r, 10))
		out, err := g.Hit(r, 10)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Zero(t, out.Payout)
		assert.Equal(t, ResultBust, r.Result)

		_, err = g.Hit(r, 10)
		assert.ErrorIs(t, err, ErrRoundOver)
	})

	t.Run("hit to 21 stands automatically", func(t *testing.T) {
		// player 10+6, dealer 10+7, player draws 5
		r := stacked(10, 10, 6, 7, 5)
		require.Nil(t, g.Begin(r, 10))
		out, err := g.Hit(r, 10)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, int64(20), out.Payout)
		assert.Equal(t, ResultWin, r.Result)
	})

	t.Run("dealer draws to 17 and busts", func(t *testing.T) {
		// player 10+8, dealer 10+6 draws 10
		r := stacked(10, 10, 8, 6, 10)
		require.Nil(t, g.Begin(r, 10))
		out, err := g.Stand(r, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(20), out.Payout)
		assert.Equal(t, ResultDealerBust, r.Result)
		assert.Len(t, r.Dealer, 3)
	})

	t.Run("dealer stands on soft 17", func(t *testing.T) {
		r := stacked(10, 1, 8, 6)
		require.Nil(t, g.Begin(r, 10))
		out, err := g.Stand(r, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(20), out.Payout)
		assert.Len(t, r.Dealer, 2)
	})

	t.Run("push returns stake", func(t *testing.T) {
		r := stacked(10, 10, 8, 8)
		require.Nil(t, g.Begin(r, 10))
		out, err := g.Stand(r, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(10), out.Payout)
		assert.Equal(t, ResultPush, r.Result)
	})

	t.Run("lower score loses", func(t *testing.T) {
		r := stacked(10, 10, 7, 9)
		require.Nil(t, g.Begin(r, 10))
		out, err := g.Stand(r, 10)
		require.NoError(t, err)
		assert.Zero(t, out.Payout)
		assert.Equal(t, ResultLose, r.Result)
	})
}

func TestDeal_ValidatesBet(t *testing.T) {
	g := New(&Config{Limits: game.Limits{MinBet: 5, MaxBet: 10}})
	_, _, err := g.Deal(4, &gametest.Rand{})
	assert.ErrorIs(t, err, game.ErrBetTooLow)

	r, _, err := g.Deal(5, &gametest.Rand{})
	require.NoError(t, err)
	assert.Len(t, r.Player, 2)
	assert.Len(t, r.Dealer, 2)
	assert.Len(t, r.Deck, deckSize-4)
}

func TestViewHidesHoleCard(t *testing.T) {
	g := New(nil)
	r := stacked(9, 10, 7, 7)
	require.Nil(t, g.Begin(r, 10))
	v := g.View(r)
	assert.Equal(t, Card{Rank: 10, Suit: "spades"}, v.DealerUp)
	assert.Equal(t, 16, v.PlayerScore)
}
