package erosion

// MaxLifetime is the number of steps a droplet lives before it evaporates.
const MaxLifetime = 30

const (
	initialSpeed = 1.0
	initialWater = 1.0
)

// Config holds hydraulic erosion parameters.
type Config struct {
	Enabled     bool    `json:"enabled"`
	Iterations  int     `json:"iterations"`  // droplets per field
	Inertia     float64 `json:"inertia"`     // 0 follows the gradient, 1 ignores terrain
	Capacity    float64 `json:"capacity"`    // sediment capacity factor
	Deposition  float64 `json:"deposition"`  // share of excess sediment dropped per step
	Erosion     float64 `json:"erosion"`     // share of free capacity taken per step
	Evaporation float64 `json:"evaporation"` // water lost per step
	Radius      int     `json:"radius"`      // brush radius in cells, < 1 selects bilinear erosion
	MinSlope    float64 `json:"minSlope"`
	Gravity     float64 `json:"gravity"`
}

// DefaultConfig returns settings tuned for tiles of roughly 64-128 cells a side.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Iterations:  6000,
		Inertia:     0.05,
		Capacity:    4.0,
		Deposition:  0.3,
		Erosion:     0.3,
		Evaporation: 0.01,
		Radius:      3,
		MinSlope:    0.01,
		Gravity:     4.0,
	}
}

// UsesBrush reports whether erosion is spread with the circular brush.
func (c Config) UsesBrush() bool {
	return c.Radius >= 1
}
