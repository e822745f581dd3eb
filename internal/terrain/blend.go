package terrain

import (
	"fmt"
	"math"
	"slices"

	"github.com/ojrac/opensimplex-go"

	"terrastream/internal/mesh"
)

const (
	// weightNoiseFreq is the opensimplex frequency per vertex used to break up
	// the straight falloff lines.
	weightNoiseFreq = 0.15
	// weightNoiseAmp scales the perturbation, which grows toward the boundary.
	weightNoiseAmp = 0.2
)

func smoothstep(edge0, edge1, x float64) float64 {
	t := math.Max(0, math.Min(1, (x-edge0)/(edge1-edge0)))
	return t * t * (3 - 2*t)
}

// blendWeights returns the per-vertex blend weight table of the virtual
// field. The weight is 1 at the centre, 0 on the virtual boundary, and only
// depends on the config, so every tile shares one table.
func (t *Tile) blendWeights() []float64 {
	cfg := t.cfg
	key := fmt.Sprintf("w_%d_%d_%d", cfg.Segments, cfg.OverlapSegments, cfg.Seed)
	return t.store.Weights(key, func() []float64 {
		return buildWeights(cfg.VirtualSide(), cfg.Seed)
	})
}

func buildWeights(side int, seed int64) []float64 {
	w := make([]float64, side*side)
	if side < 2 {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	sx := opensimplex.New(seed)
	half := float64(side-1) / 2
	for j := 0; j < side; j++ {
		v := math.Abs(float64(j)-half) / half
		for i := 0; i < side; i++ {
			u := math.Abs(float64(i)-half) / half
			d := math.Max(u, v)
			if d >= 1 {
				continue
			}
			n := math.Max(-1, math.Min(1, sx.Eval2(float64(i)*weightNoiseFreq, float64(j)*weightNoiseFreq)))
			w[j*side+i] = (1 - smoothstep(0, 1, d)) * (1 + weightNoiseAmp*n*d)
		}
	}
	return w
}

type blendSource struct {
	coord   Coord
	heights []float64
}

// BlendWithNeighbors recomputes the blended field as a weighted average of
// this tile's and every loaded neighbor's original heights over their shared
// cells. It always reads originals, so repeated blends give the same result.
// It returns false when there is nothing to blend with; the pending flag is
// cleared either way.
func (t *Tile) BlendWithNeighbors() bool {
	if t.state != Loaded || t.originalHeights == nil {
		return false
	}
	t.lastBlendVersion = t.blendVersion
	if t.cfg.OverlapSegments == 0 {
		return false
	}

	sources := []blendSource{{coord: t.Coord, heights: t.originalHeights}}
	for d := Direction(0); d < NumDirections; d++ {
		nb, ok := t.Neighbor(d)
		if !ok || !nb.IsLoaded() || !nb.HasHeights() {
			continue
		}
		sources = append(sources, blendSource{coord: nb.Coord, heights: nb.originalHeights})
	}
	if len(sources) == 1 {
		return false
	}
	// fixed order keeps shared cells bit-identical between the two tiles
	slices.SortFunc(sources, func(a, b blendSource) int {
		if a.coord.Z != b.coord.Z {
			return a.coord.Z - b.coord.Z
		}
		return a.coord.X - b.coord.X
	})

	weights := t.blendWeights()
	side := t.cfg.VirtualSide()
	segs := t.cfg.Segments
	over := t.cfg.OverlapSegments
	ox, oz := t.virtualOrigin()

	// cells every loaded source puts on its own boundary fall back to the
	// raw field, which is identical in every tile
	raw := t.ComputeVirtualHeights()
	out := make([]float64, side*side)
	for j := 0; j < side; j++ {
		gz := oz + j
		for i := 0; i < side; i++ {
			gx := ox + i
			sum, wsum := 0.0, 0.0
			for _, s := range sources {
				li := gx - (s.coord.X*segs - over)
				lj := gz - (s.coord.Z*segs - over)
				if li < 0 || lj < 0 || li >= side || lj >= side {
					continue
				}
				idx := lj*side + li
				w := weights[idx]
				sum += w * s.heights[idx]
				wsum += w
			}
			if wsum > 0 {
				out[j*side+i] = sum / wsum
			} else {
				out[j*side+i] = raw[j*side+i]
			}
		}
	}

	t.blendedHeights = out
	t.store.PutBlended(t.key, out)
	t.blends++
	return true
}

// meshField returns the part of the current heights that is meshed: the
// visible grid, or the whole virtual field when ShowOverlap is set.
func (t *Tile) meshField() (heights []float64, side, offset int) {
	h := t.Heights()
	vside := t.cfg.VirtualSide()
	if t.cfg.ShowOverlap || t.cfg.OverlapSegments == 0 {
		return h, vside, 0
	}
	side = t.cfg.VisibleSide()
	offset = t.cfg.OverlapSegments
	heights = make([]float64, side*side)
	for j := 0; j < side; j++ {
		copy(heights[j*side:(j+1)*side], h[(j+offset)*vside+offset:])
	}
	return heights, side, offset
}

func (t *Tile) buildGeometry() {
	heights, side, offset := t.meshField()
	seg := t.cfg.SegmentSize()
	ox, oz := t.virtualOrigin()
	g := mesh.NewGrid(heights, side, float64(ox+offset)*seg, float64(oz+offset)*seg, seg)
	t.paint(g, heights, offset)
	t.geometry = g
}

func (t *Tile) paint(g *mesh.Geometry, heights []float64, offset int) {
	res := t.result
	if res != nil && offset > 0 {
		res = res.Crop(offset, offset, g.Side, g.Side)
	}
	g.Colors = t.painter.CalculateVertexColors(heights, g.Normals, res, g.Side-1, t.cfg.HeightScale)
}

// UpdateGeometryAfterBlend rewrites the visible mesh from the blended heights,
// recomputes normals and colors, and invalidates the cached geometry.
func (t *Tile) UpdateGeometryAfterBlend() {
	if t.Heights() == nil {
		return
	}
	t.store.InvalidateGeometry(t.key)
	if t.geometry == nil {
		t.buildGeometry()
	} else {
		heights, _, offset := t.meshField()
		t.geometry.SetHeights(heights)
		t.paint(t.geometry, heights, offset)
	}
	if t.mesh != nil {
		t.mesh.Geometry = t.geometry
		if t.scene != nil {
			t.scene.Update(t.mesh)
		}
	}
}
