package noise

import "sync"

// Pool shares one Generator per distinct seed.
type Pool struct {
	mu         sync.Mutex
	generators map[int64]*Generator
}

// NewPool creates an empty generator pool.
func NewPool() *Pool {
	return &Pool{generators: make(map[int64]*Generator)}
}

// Get returns the generator for seed, building it on first use.
func (p *Pool) Get(seed int64) *Generator {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.generators[seed]; ok {
		return g
	}
	g := New(seed)
	p.generators[seed] = g
	return g
}

// Len reports how many seeds have a generator.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.generators)
}
