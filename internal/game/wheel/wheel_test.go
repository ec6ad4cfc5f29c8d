package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"virtual-casino/internal/game/gametest"
)

func TestValidateSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
	}{
		{"empty", []Segment{}},
		{"sum below one", []Segment{{Multiplier: 0, Probability: 0.5}, {Multiplier: 2, Probability: 0.4}}},
		{"sum above one", []Segment{{Multiplier: 0, Probability: 0.7}, {Multiplier: 2, Probability: 0.4}}},
		{"zero probability", []Segment{{Multiplier: 0, Probability: 1}, {Multiplier: 2, Probability: 0}}},
		{"negative multiplier", []Segment{{Multiplier: -1, Probability: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateSegments(tt.segments), ErrInvalidSegments)
		})
	}
	assert.NoError(t, ValidateSegments(DefaultSegments))
}

func TestPick(t *testing.T) {
	g, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, 0, g.Pick(0))
	assert.Equal(t, 0, g.Pick(0.5499))
	assert.Equal(t, 1, g.Pick(0.55))
	assert.Equal(t, 7, g.Pick(0.9995))
	assert.Equal(t, 7, g.Pick(1.0))
}

func TestPlay(t *testing.T) {
	g, err := New(nil)
	require.NoError(t, err)

	out, err := g.Play(100, &gametest.Rand{Floats: []float64{0.6}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Detail.(Result).Segment)
	assert.Equal(t, int64(120), out.Payout)
	assert.True(t, out.Win)

	out, err = g.Play(100, &gametest.Rand{Floats: []float64{0.1}})
	require.NoError(t, err)
	assert.Zero(t, out.Payout)
	assert.False(t, out.Win)
}

func TestExpectedReturn(t *testing.T) {
	g, err := New(nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.916, g.ExpectedReturn(), 1e-9)
}

func TestPickAlwaysInRangeProperty(t *testing.T) {
	g, err := New(nil)
	require.NoError(t, err)
	rapid.Check(t, func(t *rapid.T) {
		u := rapid.Float64Range(0, 1).Draw(t, "u")
		i := g.Pick(u)
		if i < 0 || i >= len(g.Segments()) {
			t.Fatalf("segment %d out of range", i)
		}
	})
}
