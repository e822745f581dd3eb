package painter

import (
	"math"

	"terrastream/internal/erosion"

	"github.com/go-gl/mathgl/mgl32"
)

// Influence scales rule strength per predicate category.
type Influence struct {
	Height  float64 `json:"height"`
	Slope   float64 `json:"slope"`
	Erosion float64 `json:"erosion"`
	Deposit float64 `json:"deposit"`
	Flow    float64 `json:"flow"`
}

// Config drives vertex coloring.
type Config struct {
	BaseColor mgl32.Vec3  `json:"baseColor"`
	Rules     []ColorRule `json:"rules"`
	Falloff   float64     `json:"falloff"` // smoothstep width outside rule bounds

	// Normalisation constants; the observed maximum wins when larger.
	ErosionScale float64 `json:"erosionScale"`
	DepositScale float64 `json:"depositScale"`
	FlowScale    float64 `json:"flowScale"`

	Influence Influence `json:"influence"`
}

// DefaultConfig paints sand shores, grass, rock on steep slopes, snow caps,
// dark river beds and pale sediment fans.
func DefaultConfig() Config {
	return Config{
		BaseColor:    mgl32.Vec3{0.36, 0.50, 0.24},
		Falloff:      0.08,
		ErosionScale: 0.02,
		DepositScale: 0.02,
		FlowScale:    20,
		Influence:    Influence{Height: 1, Slope: 1, Erosion: 0.8, Deposit: 0.8, Flow: 0.9},
		Rules: []ColorRule{
			{Name: "shore", Color: mgl32.Vec3{0.76, 0.70, 0.50}, Weight: 1, Blend: BlendMix, Height: Below(0.18)},
			{Name: "lowland", Color: mgl32.Vec3{0.30, 0.55, 0.22}, Weight: 0.6, Blend: BlendMix, Height: Between(0.18, 0.55), Slope: Below(0.3)},
			{Name: "rock", Color: mgl32.Vec3{0.45, 0.42, 0.40}, Weight: 1, Blend: BlendMix, Slope: Above(0.35)},
			{Name: "snow", Color: mgl32.Vec3{0.95, 0.95, 0.97}, Weight: 1, Blend: BlendMix, Height: Above(0.82), Slope: Below(0.5)},
			{Name: "river", Color: mgl32.Vec3{0.55, 0.60, 0.75}, Weight: 0.7, Blend: BlendMultiply, Flow: Above(0.35)},
			{Name: "gully", Color: mgl32.Vec3{0.05, 0.03, 0.02}, Weight: 0.4, Blend: BlendAdd, Erosion: Above(0.5)},
			{Name: "sediment", Color: mgl32.Vec3{0.70, 0.62, 0.45}, Weight: 0.6, Blend: BlendMix, Deposit: Above(0.4)},
		},
	}
}

// Painter evaluates color rules per vertex.
type Painter struct {
	cfg Config
}

// New creates a painter for cfg.
func New(cfg Config) *Painter {
	return &Painter{cfg: cfg}
}

// CalculateVertexColors returns an RGB buffer (3 floats per vertex) for a
// (segments+1)^2 grid. normals holds 3 floats per vertex; res may be nil.
// Erosion and deposit amounts are measured relative to heightScale.
func (p *Painter) CalculateVertexColors(heights []float64, normals []float32, res *erosion.Result, segments int, heightScale float64) []float32 {
	n := (segments + 1) * (segments + 1)
	n = min(n, len(heights))
	if n <= 0 {
		return nil
	}
	colors := make([]float32, n*3)

	minH, maxH := heights[0], heights[0]
	for _, h := range heights[:n] {
		minH = min(minH, h)
		maxH = max(maxH, h)
	}
	heightRange := maxH - minH
	if heightRange <= 0 {
		heightRange = 1
	}

	if heightScale <= 0 {
		heightScale = 1
	}
	var erosionNorm, depositNorm, flowNorm float64
	if res != nil {
		maxE, maxD, maxF := res.MaxValues()
		erosionNorm = max(p.cfg.ErosionScale, maxE/heightScale)
		depositNorm = max(p.cfg.DepositScale, maxD/heightScale)
		flowNorm = max(p.cfg.FlowScale, maxF)
	}

	for i := 0; i < n; i++ {
		s := sample{height: (heights[i] - minH) / heightRange}
		if 3*i+1 < len(normals) {
			s.slope = 1 - math.Abs(float64(normals[3*i+1]))
		}
		if res != nil && i < len(res.Erosion) {
			s.erosion = normalise(res.Erosion[i]/heightScale, erosionNorm)
			s.deposit = normalise(res.Deposit[i]/heightScale, depositNorm)
			s.flow = normalise(res.Flow[i], flowNorm)
		}

		c := p.colorFor(s)
		colors[3*i] = c[0]
		colors[3*i+1] = c[1]
		colors[3*i+2] = c[2]
	}
	return colors
}

func (p *Painter) colorFor(s sample) mgl32.Vec3 {
	c := p.cfg.BaseColor
	for k := range p.cfg.Rules {
		r := &p.cfg.Rules[k]
		t := r.Weight * r.strength(s, p.cfg.Falloff) * r.influence(p.cfg.Influence)
		if t <= 0 {
			continue
		}
		c = blend(c, r.Color, r.Blend, float32(min(t, 1)))
	}
	return mgl32.Vec3{
		mgl32.Clamp(c[0], 0, 1),
		mgl32.Clamp(c[1], 0, 1),
		mgl32.Clamp(c[2], 0, 1),
	}
}

func normalise(v, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return max(0, min(1, v/scale))
}
