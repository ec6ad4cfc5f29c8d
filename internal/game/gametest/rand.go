// Package gametest provides scripted randomness for game tests.
package gametest

// Rand replays fixed values. Floats and Ints are consumed in order and
// wrap around when exhausted. Ints are reduced modulo n.
type Rand struct {
	Floats []float64
	Ints   []int

	fi, ii int
}

// Float64 returns the next scripted float, or 0 when none are scripted.
func (r *Rand) Float64() float64 {
	if len(r.Floats) == 0 {
		return 0
	}
	v := r.Floats[r.fi%len(r.Floats)]
	r.fi++
	return v
}

// IntN returns the next scripted int reduced into [0, n).
func (r *Rand) IntN(n int) int {
	if len(r.Ints) == 0 || n <= 0 {
		return 0
	}
	v := r.Ints[r.ii%len(r.Ints)]
	r.ii++
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
