package erosion

import "math"

// brush stores, for every cell of a field, the cells within radius and their
// normalised linear-falloff weights. Entries of cell i live in
// cells[start[i]:start[i+1]].
type brush struct {
	radius, width, height int

	start   []int
	cells   []int
	weights []float64
}

func (b *brush) matches(radius, width, height int) bool {
	return b.start != nil && b.radius == radius && b.width == width && b.height == height
}

func (b *brush) build(radius, width, height int) {
	b.radius, b.width, b.height = radius, width, height
	b.start = make([]int, width*height+1)
	b.cells = b.cells[:0]
	b.weights = b.weights[:0]

	r := float64(radius)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			b.start[i] = len(b.cells)
			sum := 0.0
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= width || ny < 0 || ny >= height {
						continue
					}
					w := r - math.Sqrt(float64(dx*dx+dy*dy))
					if w <= 0 {
						continue
					}
					b.cells = append(b.cells, ny*width+nx)
					b.weights = append(b.weights, w)
					sum += w
				}
			}
			for k := b.start[i]; k < len(b.weights); k++ {
				b.weights[k] /= sum
			}
		}
	}
	b.start[width*height] = len(b.cells)
}

func (b *brush) at(i int) ([]int, []float64) {
	lo, hi := b.start[i], b.start[i+1]
	return b.cells[lo:hi], b.weights[lo:hi]
}
