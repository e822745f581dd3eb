package mesh

import "github.com/go-gl/mathgl/mgl32"

// Geometry is an indexed triangle grid with flat float buffers ready for
// upload: 3 floats per vertex for positions, normals and colors.
type Geometry struct {
	Side int // vertices per side

	Positions []float32
	Normals   []float32
	Colors    []float32
	Indices   []uint32
}

// NewGrid lays out a side x side vertex grid starting at (originX, originZ)
// with the given spacing, taking Y from heights (row-major, rows along Z).
func NewGrid(heights []float64, side int, originX, originZ, spacing float64) *Geometry {
	if side < 2 || len(heights) < side*side {
		return &Geometry{Side: max(side, 0)}
	}
	n := side * side
	g := &Geometry{
		Side:      side,
		Positions: make([]float32, n*3),
		Normals:   make([]float32, n*3),
		Indices:   make([]uint32, 0, (side-1)*(side-1)*6),
	}
	for z := 0; z < side; z++ {
		for x := 0; x < side; x++ {
			i := z*side + x
			g.Positions[3*i] = float32(originX + float64(x)*spacing)
			g.Positions[3*i+1] = float32(heights[i])
			g.Positions[3*i+2] = float32(originZ + float64(z)*spacing)
		}
	}
	for z := 0; z < side-1; z++ {
		for x := 0; x < side-1; x++ {
			a := uint32(z*side + x)
			b := a + 1
			c := a + uint32(side)
			d := c + 1
			g.Indices = append(g.Indices, a, c, b, b, c, d)
		}
	}
	g.ComputeNormals()
	return g
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Positions) / 3
}

// SetHeights rewrites vertex Y values and recomputes normals.
func (g *Geometry) SetHeights(heights []float64) {
	n := min(g.VertexCount(), len(heights))
	for i := 0; i < n; i++ {
		g.Positions[3*i+1] = float32(heights[i])
	}
	g.ComputeNormals()
}

func (g *Geometry) vertex(i uint32) mgl32.Vec3 {
	return mgl32.Vec3{g.Positions[3*i], g.Positions[3*i+1], g.Positions[3*i+2]}
}

// ComputeNormals accumulates area-weighted face normals per vertex.
func (g *Geometry) ComputeNormals() {
	n := g.VertexCount()
	acc := make([]mgl32.Vec3, n)
	for t := 0; t+2 < len(g.Indices); t += 3 {
		a, b, c := g.Indices[t], g.Indices[t+1], g.Indices[t+2]
		pa := g.vertex(a)
		face := g.vertex(b).Sub(pa).Cross(g.vertex(c).Sub(pa))
		acc[a] = acc[a].Add(face)
		acc[b] = acc[b].Add(face)
		acc[c] = acc[c].Add(face)
	}
	if len(g.Normals) != n*3 {
		g.Normals = make([]float32, n*3)
	}
	for i, v := range acc {
		if v.Len() == 0 {
			v = mgl32.Vec3{0, 1, 0}
		} else {
			v = v.Normalize()
		}
		g.Normals[3*i] = v[0]
		g.Normals[3*i+1] = v[1]
		g.Normals[3*i+2] = v[2]
	}
}
