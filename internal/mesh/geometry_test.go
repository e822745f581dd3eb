package mesh

import (
	"math"
	"testing"
)

func TestFlatGridNormalsPointUp(t *testing.T) {
	heights := make([]float64, 16)
	g := NewGrid(heights, 4, 0, 0, 1)
	if g.VertexCount() != 16 {
		t.Fatalf("vertex count = %d, want 16", g.VertexCount())
	}
	if len(g.Indices) != 3*3*6 {
		t.Fatalf("index count = %d, want %d", len(g.Indices), 3*3*6)
	}
	for i := 0; i < 16; i++ {
		if g.Normals[3*i] != 0 || g.Normals[3*i+1] != 1 || g.Normals[3*i+2] != 0 {
			t.Fatalf("vertex %d normal = %v, want (0,1,0)", i, g.Normals[3*i:3*i+3])
		}
	}
}

func TestGridPositions(t *testing.T) {
	heights := []float64{1, 2, 3, 4}
	g := NewGrid(heights, 2, 10, 20, 5)
	want := []float32{10, 1, 20, 15, 2, 20, 10, 3, 25, 15, 4, 25}
	for i, v := range want {
		if g.Positions[i] != v {
			t.Fatalf("position[%d] = %f, want %f", i, g.Positions[i], v)
		}
	}
}

func TestSlopedNormals(t *testing.T) {
	// Height rises along +X with slope 1: normal leans toward -X.
	heights := []float64{0, 1, 2, 0, 1, 2, 0, 1, 2}
	g := NewGrid(heights, 3, 0, 0, 1)
	nx, ny := g.Normals[3*4], g.Normals[3*4+1]
	if math.Abs(float64(nx)+math.Sqrt2/2) > 1e-5 || math.Abs(float64(ny)-math.Sqrt2/2) > 1e-5 {
		t.Errorf("center normal = (%f, %f), want (-0.707, 0.707)", nx, ny)
	}
}

func TestSetHeightsRecomputesNormals(t *testing.T) {
	g := NewGrid(make([]float64, 9), 3, 0, 0, 1)
	g.SetHeights([]float64{0, 1, 2, 0, 1, 2, 0, 1, 2})
	if g.Positions[3*2+1] != 2 {
		t.Errorf("height not updated: %f", g.Positions[3*2+1])
	}
	if g.Normals[3*4+1] >= 1 {
		t.Error("normals not recomputed after SetHeights")
	}
}

func TestDegenerateGrid(t *testing.T) {
	g := NewGrid(nil, 1, 0, 0, 1)
	if g.VertexCount() != 0 || len(g.Indices) != 0 {
		t.Error("degenerate grid should be empty")
	}
}

func TestPoolReusesMeshes(t *testing.T) {
	p := NewPool()
	a := p.Acquire("a", &Geometry{})
	p.Release(a)
	b := p.Acquire("b", &Geometry{})
	if a != b {
		t.Error("released mesh should be reused")
	}
	if b.Name != "b" || b.Geometry == nil {
		t.Error("reused mesh not reinitialised")
	}
	if p.Created() != 1 || p.Reused() != 1 || p.Available() != 0 {
		t.Errorf("created=%d reused=%d available=%d", p.Created(), p.Reused(), p.Available())
	}
	c := p.Acquire("c", nil)
	if c.ID == b.ID {
		t.Error("new mesh should get a fresh id")
	}
}
