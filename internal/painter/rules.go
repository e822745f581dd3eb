package painter

import (
	"encoding/json"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// BlendMode selects how a rule's color is folded into the running color.
type BlendMode string

const (
	BlendMix      BlendMode = "mix"
	BlendAdd      BlendMode = "add"
	BlendMultiply BlendMode = "multiply"
)

// Range bounds one predicate. Open ends are infinite.
type Range struct {
	Min float64
	Max float64
}

// Between bounds a predicate on both sides.
func Between(lo, hi float64) *Range {
	return &Range{Min: lo, Max: hi}
}

// Above bounds a predicate from below only.
func Above(lo float64) *Range {
	return &Range{Min: lo, Max: math.Inf(1)}
}

// Below bounds a predicate from above only.
func Below(hi float64) *Range {
	return &Range{Min: math.Inf(-1), Max: hi}
}

type rangeJSON struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// MarshalJSON omits infinite bounds.
func (r Range) MarshalJSON() ([]byte, error) {
	var out rangeJSON
	if !math.IsInf(r.Min, 0) {
		out.Min = &r.Min
	}
	if !math.IsInf(r.Max, 0) {
		out.Max = &r.Max
	}
	return json.Marshal(out)
}

// UnmarshalJSON treats a missing bound as open.
func (r *Range) UnmarshalJSON(data []byte) error {
	var in rangeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Min, r.Max = math.Inf(-1), math.Inf(1)
	if in.Min != nil {
		r.Min = *in.Min
	}
	if in.Max != nil {
		r.Max = *in.Max
	}
	return nil
}

// match returns 1 inside the range and fades to 0 over falloff outside it.
func (r *Range) match(v, falloff float64) float64 {
	if r == nil {
		return 1
	}
	if v < r.Min {
		if falloff <= 0 {
			return 0
		}
		return smoothstep(r.Min-falloff, r.Min, v)
	}
	if v > r.Max {
		if falloff <= 0 {
			return 0
		}
		return 1 - smoothstep(r.Max, r.Max+falloff, v)
	}
	return 1
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := (x - edge0) / (edge1 - edge0)
	t = max(0, min(1, t))
	return t * t * (3 - 2*t)
}

// ColorRule paints Color where every non-nil predicate matches. All
// predicate values are normalised to [0, 1].
type ColorRule struct {
	Name   string     `json:"name"`
	Color  mgl32.Vec3 `json:"color"`
	Weight float64    `json:"weight"`
	Blend  BlendMode  `json:"blend"`

	Height  *Range `json:"height,omitempty"`
	Slope   *Range `json:"slope,omitempty"`
	Erosion *Range `json:"erosion,omitempty"`
	Deposit *Range `json:"deposit,omitempty"`
	Flow    *Range `json:"flow,omitempty"`
}

// sample carries the normalised attributes of one vertex.
type sample struct {
	height, slope, erosion, deposit, flow float64
}

// strength is the product of the per-predicate match fractions.
func (r *ColorRule) strength(s sample, falloff float64) float64 {
	return r.Height.match(s.height, falloff) *
		r.Slope.match(s.slope, falloff) *
		r.Erosion.match(s.erosion, falloff) *
		r.Deposit.match(s.deposit, falloff) *
		r.Flow.match(s.flow, falloff)
}

// influence averages the global factors of the categories the rule constrains.
func (r *ColorRule) influence(f Influence) float64 {
	sum, n := 0.0, 0
	if r.Height != nil {
		sum += f.Height
		n++
	}
	if r.Slope != nil {
		sum += f.Slope
		n++
	}
	if r.Erosion != nil {
		sum += f.Erosion
		n++
	}
	if r.Deposit != nil {
		sum += f.Deposit
		n++
	}
	if r.Flow != nil {
		sum += f.Flow
		n++
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

func blend(c mgl32.Vec3, rule mgl32.Vec3, mode BlendMode, t float32) mgl32.Vec3 {
	switch mode {
	case BlendAdd:
		return c.Add(rule.Mul(t))
	case BlendMultiply:
		return mgl32.Vec3{
			c[0] * (1 - t + rule[0]*t),
			c[1] * (1 - t + rule[1]*t),
			c[2] * (1 - t + rule[2]*t),
		}
	default:
		return c.Mul(1 - t).Add(rule.Mul(t))
	}
}
