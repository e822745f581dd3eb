package noise

import (
	"math"
	"math/rand"
)

// Seeded 2D gradient noise. The permutation table is a seeded shuffle of
// 0..255 so the same seed always yields the same field.

// 2D gradients; every entry has length 1 or sqrt(2) so samples stay in [-1, 1].
var (
	gradX = [8]float64{1, -1, 1, -1, 1, -1, 0, 0}
	gradY = [8]float64{1, 1, -1, -1, 0, 0, 1, -1}
)

// Generator produces Perlin-style gradient noise for a single seed.
type Generator struct {
	permutations [512]int
}

// New builds a generator whose permutation table is shuffled by seed.
func New(seed int64) *Generator {
	g := &Generator{}
	rnd := rand.New(rand.NewSource(seed))

	for i := 0; i < 256; i++ {
		g.permutations[i] = i
	}
	for i := 0; i < 256; i++ {
		j := rnd.Intn(256-i) + i
		g.permutations[i], g.permutations[j] = g.permutations[j], g.permutations[i]
		g.permutations[i+256] = g.permutations[i]
	}
	return g
}

// fade is the quintic ease curve 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func grad(hash int, x, y float64) float64 {
	i := hash & 7
	return gradX[i]*x + gradY[i]*y
}

// Sample returns gradient noise at (x, y) in [-1, 1]. The field is C1 across
// lattice lines.
func (g *Generator) Sample(x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	xi := int(x0) & 255
	yi := int(y0) & 255
	fx := x - x0
	fy := y - y0

	p := &g.permutations
	aa := p[p[xi]+yi]
	ab := p[p[xi]+yi+1]
	ba := p[p[xi+1]+yi]
	bb := p[p[xi+1]+yi+1]

	u := fade(fx)
	v := fade(fy)

	x1 := lerp(grad(aa, fx, fy), grad(ba, fx-1, fy), u)
	x2 := lerp(grad(ab, fx, fy-1), grad(bb, fx-1, fy-1), u)
	return lerp(x1, x2, v)
}

// FractalSample sums octaves of Sample with frequency multiplied by lacunarity
// and amplitude by persistence per octave, normalised by the total amplitude.
func (g *Generator) FractalSample(x, y float64, octaves int, persistence, lacunarity float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for range octaves {
		sum += g.Sample(x*frequency, y*frequency) * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
