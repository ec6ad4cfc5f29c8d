package roulette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"virtual-casino/internal/game"
	"virtual-casino/internal/game/gametest"
)

func TestSettle_PayoutExactness(t *testing.T) {
	tests := []struct {
		name   string
		bet    Bet
		number int
		want   int64
	}{
		{"straight hit", Bet{Type: BetStraight, Value: 17, Amount: 10}, 17, 360},
		{"straight zero", Bet{Type: BetStraight, Value: 0, Amount: 10}, 0, 360},
		{"straight miss", Bet{Type: BetStraight, Value: 17, Amount: 10}, 18, 0},
		{"red hit", Bet{Type: BetRed, Amount: 10}, 1, 20},
		{"black hit", Bet{Type: BetBlack, Amount: 10}, 2, 20},
		{"red miss", Bet{Type: BetRed, Amount: 10}, 2, 0},
		{"even hit", Bet{Type: BetEven, Amount: 10}, 36, 20},
		{"odd hit", Bet{Type: BetOdd, Amount: 10}, 35, 20},
		{"low hit", Bet{Type: BetLow, Amount: 10}, 18, 20},
		{"high hit", Bet{Type: BetHigh, Amount: 10}, 19, 20},
		{"dozen hit", Bet{Type: BetDozen, Value: 2, Amount: 10}, 24, 30},
		{"column hit", Bet{Type: BetColumn, Value: 3, Amount: 10}, 36, 30},
		{"column miss", Bet{Type: BetColumn, Value: 1, Amount: 10}, 36, 0},
		{"zero loses even", Bet{Type: BetEven, Amount: 10}, 0, 0},
		{"zero loses low", Bet{Type: BetLow, Amount: 10}, 0, 0},
		{"zero loses black", Bet{Type: BetBlack, Amount: 10}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Settle([]Bet{tt.bet}, tt.number)
			assert.Equal(t, tt.want, out.Payout)
		})
	}
}

func TestSettle_MultipleBetsSum(t *testing.T) {
	bets := []Bet{
		{Type: BetStraight, Value: 7, Amount: 10},
		{Type: BetRed, Amount: 20},
		{Type: BetEven, Amount: 30},
	}

	out := Settle(bets, 7)
	assert.Equal(t, int64(360+40), out.Payout)
	assert.True(t, out.Win)

	res := out.Detail.(Result)
	assert.Equal(t, "red", res.Color)
	require.Len(t, res.Bets, 3)
	assert.True(t, res.Bets[0].Won)
	assert.True(t, res.Bets[1].Won)
	assert.False(t, res.Bets[2].Won)
}

func TestValidate(t *testing.T) {
	g := New(&Config{Limits: game.Limits{MinBet: 1, MaxBet: 100}})

	tests := []struct {
		name    string
		bets    []Bet
		wantErr error
	}{
		{"no bets", nil, ErrNoBets},
		{"unknown type", []Bet{{Type: "corner", Amount: 1}}, ErrInvalidBet},
		{"straight out of range", []Bet{{Type: BetStraight, Value: 37, Amount: 1}}, ErrInvalidValue},
		{"dozen zero", []Bet{{Type: BetDozen, Value: 0, Amount: 1}}, ErrInvalidValue},
		{"non-positive amount", []Bet{{Type: BetRed, Amount: 0}}, game.ErrInvalidBet},
		{"total above max", []Bet{{Type: BetRed, Amount: 60}, {Type: BetOdd, Amount: 60}}, game.ErrBetTooHigh},
		{"single amount above max", []Bet{{Type: BetRed, Amount: 1 << 62}}, game.ErrBetTooHigh},
		{"sum wraps int64", []Bet{
			{Type: BetRed, Amount: 1 << 62},
			{Type: BetBlack, Amount: 1 << 62},
			{Type: BetOdd, Amount: 1 << 62},
			{Type: BetEven, Amount: 1 << 62},
		}, game.ErrBetTooHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, g.Validate(tt.bets), tt.wantErr)
		})
	}

	assert.NoError(t, g.Validate([]Bet{{Type: BetColumn, Value: 2, Amount: 50}}))
}

func TestPlay_DrawsPocket(t *testing.T) {
	g := New(nil)
	out, err := g.Play([]Bet{{Type: BetStraight, Value: 5, Amount: 1}}, &gametest.Rand{Ints: []int{5}})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Detail.(Result).Number)
	assert.Equal(t, int64(36), out.Payout)
}

func TestColorPartition(t *testing.T) {
	red, black := 0, 0
	for n := 1; n < Pockets; n++ {
		switch Color(n) {
		case "red":
			red++
		case "black":
			black++
		}
	}
	assert.Equal(t, 18, red)
	assert.Equal(t, 18, black)
	assert.Equal(t, "green", Color(0))
}

// Every non-zero number belongs to exactly one dozen and one column.
func TestDozenColumnCoverageProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 36).Draw(t, "number")
		dozens, columns := 0, 0
		for v := 1; v <= 3; v++ {
			if Wins(Bet{Type: BetDozen, Value: v}, n) {
				dozens++
			}
			if Wins(Bet{Type: BetColumn, Value: v}, n) {
				columns++
			}
		}
		if dozens != 1 || columns != 1 {
			t.Fatalf("number %d: %d dozens, %d columns", n, dozens, columns)
		}
	})
}
