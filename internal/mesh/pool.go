package mesh

// Mesh is a renderable handle: geometry plus an identity the scene can key
// GPU resources on.
type Mesh struct {
	ID       int
	Name     string
	Geometry *Geometry
}

// Pool recycles Mesh handles between tile unloads and loads.
type Pool struct {
	free    []*Mesh
	nextID  int
	created int
	reused  int
}

// NewPool creates an empty mesh pool.
func NewPool() *Pool {
	return &Pool{}
}

// Acquire returns a pooled mesh if one is free, otherwise a new one.
func (p *Pool) Acquire(name string, g *Geometry) *Mesh {
	if n := len(p.free); n > 0 {
		m := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		m.Name = name
		m.Geometry = g
		p.reused++
		return m
	}
	p.nextID++
	p.created++
	return &Mesh{ID: p.nextID, Name: name, Geometry: g}
}

// Release returns m to the pool and drops its geometry reference.
func (p *Pool) Release(m *Mesh) {
	if m == nil {
		return
	}
	m.Geometry = nil
	m.Name = ""
	p.free = append(p.free, m)
}

// Available returns the number of idle meshes.
func (p *Pool) Available() int {
	return len(p.free)
}

// Created returns how many meshes were ever allocated.
func (p *Pool) Created() int {
	return p.created
}

// Reused returns how many acquisitions were served from the pool.
func (p *Pool) Reused() int {
	return p.reused
}
