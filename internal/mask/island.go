package mask

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// NewIsland generates a roughly circular playable area whose coastline is
// roughened with perlin noise. Values fall from 1 at the centre to 0 at the
// edge of the grid.
func NewIsland(seed int64, resolution int, worldWidth float64) *Mask {
	p := perlin.NewPerlin(2, 2, 3, seed)
	values := make([]float64, resolution*resolution)
	if resolution < 2 {
		return New(values, resolution, worldWidth, 1)
	}
	last := float64(resolution - 1)
	for z := 0; z < resolution; z++ {
		for x := 0; x < resolution; x++ {
			nx := float64(x)/last*2 - 1
			nz := float64(z)/last*2 - 1
			d := math.Sqrt(nx*nx + nz*nz)
			edge := 0.75 + 0.2*p.Noise2D(nx*2, nz*2)
			v := 1 - smooth(edge-0.15, edge+0.05, d)
			values[z*resolution+x] = v
		}
	}
	return New(values, resolution, worldWidth, 1)
}

func smooth(edge0, edge1, x float64) float64 {
	t := (x - edge0) / (edge1 - edge0)
	t = max(0, min(1, t))
	return t * t * (3 - 2*t)
}
