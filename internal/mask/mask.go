package mask

import "math"

// Defaults for masks built without explicit thresholds.
const (
	DefaultThreshold = 0.05
	DefaultSentinel  = -50.0
)

// Mask limits terrain to a bounded playable area. Values is a Resolution x
// Resolution grid (row-major, rows along Z) centred on the world origin and
// spanning WorldWidth*SizeScale world units.
type Mask struct {
	Values     []float64
	Resolution int
	WorldWidth float64
	SizeScale  float64

	Threshold float64 // cells below this are forced to Sentinel
	Sentinel  float64
}

// New wraps values with the default threshold and sentinel.
func New(values []float64, resolution int, worldWidth, sizeScale float64) *Mask {
	return &Mask{
		Values:     values,
		Resolution: resolution,
		WorldWidth: worldWidth,
		SizeScale:  sizeScale,
		Threshold:  DefaultThreshold,
		Sentinel:   DefaultSentinel,
	}
}

func (m *Mask) extent() float64 {
	scale := m.SizeScale
	if scale <= 0 {
		scale = 1
	}
	return m.WorldWidth * scale
}

// Sample bilinearly interpolates the mask at a world position. Positions
// outside the mask read as 0.
func (m *Mask) Sample(worldX, worldZ float64) float64 {
	if m == nil || m.Resolution < 2 || len(m.Values) < m.Resolution*m.Resolution {
		return 0
	}
	ext := m.extent()
	if ext <= 0 {
		return 0
	}
	last := float64(m.Resolution - 1)
	gx := (worldX/ext + 0.5) * last
	gz := (worldZ/ext + 0.5) * last
	if gx < 0 || gz < 0 || gx > last || gz > last {
		return 0
	}

	x0 := min(int(math.Floor(gx)), m.Resolution-2)
	z0 := min(int(math.Floor(gz)), m.Resolution-2)
	u := gx - float64(x0)
	v := gz - float64(z0)

	r := m.Resolution
	a := m.Values[z0*r+x0]
	b := m.Values[z0*r+x0+1]
	c := m.Values[(z0+1)*r+x0]
	d := m.Values[(z0+1)*r+x0+1]
	return a*(1-u)*(1-v) + b*u*(1-v) + c*(1-u)*v + d*u*v
}

// Masked reports whether a world position falls below the threshold.
func (m *Mask) Masked(worldX, worldZ float64) bool {
	return m.Sample(worldX, worldZ) < m.Threshold
}

// Average samples the rectangle [minX,maxX] x [minZ,maxZ] on an n x n grid and
// returns the mean mask value.
func (m *Mask) Average(minX, minZ, maxX, maxZ float64, n int) float64 {
	if n < 2 {
		return m.Sample((minX+maxX)/2, (minZ+maxZ)/2)
	}
	sum := 0.0
	for j := 0; j < n; j++ {
		z := minZ + (maxZ-minZ)*float64(j)/float64(n-1)
		for i := 0; i < n; i++ {
			x := minX + (maxX-minX)*float64(i)/float64(n-1)
			sum += m.Sample(x, z)
		}
	}
	return sum / float64(n*n)
}
