package erosion

import (
	"math"
	"math/rand"
)

// Simulator runs particle-droplet hydraulic erosion over row-major heightfields.
// It is not safe for concurrent use; the brush table and RNG are reused
// between runs.
type Simulator struct {
	cfg   Config
	rng   *rand.Rand
	brush brush
	runs  int
}

// NewSimulator creates a simulator seeded with seed.
func NewSimulator(cfg Config, seed int64) *Simulator {
	return &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Config returns the active parameters.
func (s *Simulator) Config() Config {
	return s.cfg
}

// SetConfig replaces the parameters. The brush is rebuilt lazily when the
// radius changes.
func (s *Simulator) SetConfig(cfg Config) {
	s.cfg = cfg
}

// Reseed restarts the droplet RNG so the next run is reproducible.
func (s *Simulator) Reseed(seed int64) {
	s.rng.Seed(seed)
}

// Runs counts the calls to Erode that simulated at least one droplet.
func (s *Simulator) Runs() int {
	return s.runs
}

type droplet struct {
	x, y     float64
	dirX     float64
	dirY     float64
	speed    float64
	water    float64
	sediment float64
}

// Erode simulates iterations droplets over heights (width*height, row-major),
// mutating it in place. With iterations <= 0, or a field too small to hold an
// interior, it returns zeroed maps and leaves heights untouched.
func (s *Simulator) Erode(heights []float64, width, height, iterations int) *Result {
	res := NewResult(width, height)
	if iterations <= 0 || width < 4 || height < 4 || len(heights) < width*height {
		return res
	}
	s.runs++

	useBrush := s.cfg.UsesBrush()
	if useBrush && !s.brush.matches(s.cfg.Radius, width, height) {
		s.brush.build(s.cfg.Radius, width, height)
	}

	// No cell is carved below the lowest point of the incoming field.
	floor := heights[0]
	for _, h := range heights[:width*height] {
		floor = min(floor, h)
	}

	spanX := float64(width - 3)
	spanY := float64(height - 3)
	for range iterations {
		d := droplet{
			x:     1 + s.rng.Float64()*spanX,
			y:     1 + s.rng.Float64()*spanY,
			speed: initialSpeed,
			water: initialWater,
		}
		s.runDroplet(&d, heights, width, height, floor, useBrush, res)
	}
	return res
}

func (s *Simulator) runDroplet(d *droplet, heights []float64, width, height int, floor float64, useBrush bool, res *Result) {
	cfg := s.cfg
	for range MaxLifetime {
		nodeX := int(d.x)
		nodeY := int(d.y)
		u := d.x - float64(nodeX)
		v := d.y - float64(nodeY)
		node := nodeY*width + nodeX

		splat(res.Flow, node, width, u, v, d.water)

		h, gx, gy := heightAndGradient(heights, width, d.x, d.y)

		d.dirX = d.dirX*cfg.Inertia - gx*(1-cfg.Inertia)
		d.dirY = d.dirY*cfg.Inertia - gy*(1-cfg.Inertia)
		length := math.Sqrt(d.dirX*d.dirX + d.dirY*d.dirY)
		if length < 1e-12 {
			angle := s.rng.Float64() * 2 * math.Pi
			d.dirX, d.dirY = math.Cos(angle), math.Sin(angle)
		} else {
			d.dirX /= length
			d.dirY /= length
		}

		d.x += d.dirX
		d.y += d.dirY
		if d.x < 1 || d.y < 1 || d.x >= float64(width-2) || d.y >= float64(height-2) {
			return
		}

		newHeight, _, _ := heightAndGradient(heights, width, d.x, d.y)
		delta := newHeight - h

		capacity := max(-delta, cfg.MinSlope) * d.speed * d.water * cfg.Capacity

		if d.sediment > capacity || delta > 0 {
			var amount float64
			if delta > 0 {
				amount = min(delta, d.sediment)
			} else {
				amount = (d.sediment - capacity) * cfg.Deposition
			}
			d.sediment -= amount
			deposit(heights, res, node, width, u, v, amount)
		} else {
			amount := min((capacity-d.sediment)*cfg.Erosion, -delta)
			if useBrush {
				d.sediment += s.erodeBrush(heights, res, node, amount, floor)
			} else {
				d.sediment += erodeBilinear(heights, res, node, width, u, v, amount, floor)
			}
		}

		d.speed = math.Sqrt(max(0, d.speed*d.speed+delta*cfg.Gravity))
		d.water *= 1 - cfg.Evaporation
	}
}

// heightAndGradient bilinearly interpolates the height and gradient of the
// cell containing (x, y).
func heightAndGradient(heights []float64, width int, x, y float64) (h, gx, gy float64) {
	cx := int(x)
	cy := int(y)
	u := x - float64(cx)
	v := y - float64(cy)

	i := cy*width + cx
	nw := heights[i]
	ne := heights[i+1]
	sw := heights[i+width]
	se := heights[i+width+1]

	gx = (ne-nw)*(1-v) + (se-sw)*v
	gy = (sw-nw)*(1-u) + (se-ne)*u
	h = nw*(1-u)*(1-v) + ne*u*(1-v) + sw*(1-u)*v + se*u*v
	return h, gx, gy
}

// splat adds amount to the four corners of a cell with bilinear weights.
func splat(m []float64, node, width int, u, v, amount float64) {
	m[node] += amount * (1 - u) * (1 - v)
	m[node+1] += amount * u * (1 - v)
	m[node+width] += amount * (1 - u) * v
	m[node+width+1] += amount * u * v
}

func deposit(heights []float64, res *Result, node, width int, u, v, amount float64) {
	corners := [4]int{node, node + 1, node + width, node + width + 1}
	weights := [4]float64{(1 - u) * (1 - v), u * (1 - v), (1 - u) * v, u * v}
	for k, i := range corners {
		a := amount * weights[k]
		heights[i] += a
		res.Deposit[i] += a
	}
}

// take removes up to want from cell i without going below floor and returns
// what was removed.
func take(heights []float64, res *Result, i int, want, floor float64) float64 {
	got := min(want, max(0, heights[i]-floor))
	heights[i] -= got
	res.Erosion[i] += got
	return got
}

func erodeBilinear(heights []float64, res *Result, node, width int, u, v, amount, floor float64) float64 {
	corners := [4]int{node, node + 1, node + width, node + width + 1}
	weights := [4]float64{(1 - u) * (1 - v), u * (1 - v), (1 - u) * v, u * v}
	removed := 0.0
	for k, i := range corners {
		removed += take(heights, res, i, amount*weights[k], floor)
	}
	return removed
}

func (s *Simulator) erodeBrush(heights []float64, res *Result, node int, amount, floor float64) float64 {
	cells, weights := s.brush.at(node)
	removed := 0.0
	for k, i := range cells {
		removed += take(heights, res, i, amount*weights[k], floor)
	}
	return removed
}
