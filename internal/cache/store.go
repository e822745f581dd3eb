package cache

import (
	"strconv"
	"sync"

	"terrastream/internal/erosion"
	"terrastream/internal/mesh"
	"terrastream/internal/noise"
)

// Key returns the cache key "x_z" of a tile.
func Key(tileX, tileZ int) string {
	return strconv.Itoa(tileX) + "_" + strconv.Itoa(tileZ)
}

// Store holds the per-session terrain caches shared by every tile, plus the
// shared noise generators, mesh pool and erosion simulator.
//
// Raw and eroded heights are write-once: the first Put for a key wins and
// later Puts are ignored, so they stay a stable baseline for blending.
// Callers must treat every slice they get back as read-only.
//
// Map access is guarded by a mutex; the simulator and mesh pool are meant to
// be used from the scheduling goroutine only.
type Store struct {
	mu       sync.RWMutex
	raw      map[string][]float64
	eroded   map[string][]float64
	blended  map[string][]float64
	results  map[string]*erosion.Result
	geometry map[string]*mesh.Geometry
	weights  map[string][]float64

	Noise  *noise.Pool
	Meshes *mesh.Pool

	sim *erosion.Simulator
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		raw:      make(map[string][]float64),
		eroded:   make(map[string][]float64),
		blended:  make(map[string][]float64),
		results:  make(map[string]*erosion.Result),
		geometry: make(map[string]*mesh.Geometry),
		weights:  make(map[string][]float64),
		Noise:    noise.NewPool(),
		Meshes:   mesh.NewPool(),
	}
}

func get[T any](s *Store, m map[string]T, key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := m[key]
	return v, ok
}

func putOnce[T any](s *Store, m map[string]T, key string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := m[key]; !ok {
		m[key] = v
	}
}

func put[T any](s *Store, m map[string]T, key string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m[key] = v
}

// Raw returns the un-eroded heights of a tile.
func (s *Store) Raw(key string) ([]float64, bool) { return get(s, s.raw, key) }

// PutRaw records raw heights unless the key already has some.
func (s *Store) PutRaw(key string, h []float64) { putOnce(s, s.raw, key, h) }

// Eroded returns the eroded (pre-blend) heights of a tile.
func (s *Store) Eroded(key string) ([]float64, bool) { return get(s, s.eroded, key) }

// PutEroded records eroded heights unless the key already has some.
func (s *Store) PutEroded(key string, h []float64) { putOnce(s, s.eroded, key, h) }

// Blended returns the last blended heights of a tile.
func (s *Store) Blended(key string) ([]float64, bool) { return get(s, s.blended, key) }

// PutBlended replaces the blended heights of a tile.
func (s *Store) PutBlended(key string, h []float64) { put(s, s.blended, key, h) }

// ErosionResult returns the accumulation maps of a tile.
func (s *Store) ErosionResult(key string) (*erosion.Result, bool) { return get(s, s.results, key) }

// PutErosionResult records accumulation maps unless the key already has some.
func (s *Store) PutErosionResult(key string, r *erosion.Result) { putOnce(s, s.results, key, r) }

// Geometry returns the cached visible geometry of a tile.
func (s *Store) Geometry(key string) (*mesh.Geometry, bool) { return get(s, s.geometry, key) }

// PutGeometry replaces the cached visible geometry of a tile.
func (s *Store) PutGeometry(key string, g *mesh.Geometry) { put(s, s.geometry, key, g) }

// InvalidateGeometry drops the cached geometry of a tile.
func (s *Store) InvalidateGeometry(key string) {
	s.mu.Lock()
	delete(s.geometry, key)
	s.mu.Unlock()
}

// Weights returns the weight table for key, building it on first use.
func (s *Store) Weights(key string, build func() []float64) []float64 {
	if w, ok := get(s, s.weights, key); ok {
		return w
	}
	w := build()
	putOnce(s, s.weights, key, w)
	v, _ := get(s, s.weights, key)
	return v
}

// Simulator returns the shared erosion simulator configured with cfg.
func (s *Store) Simulator(cfg erosion.Config) *erosion.Simulator {
	if s.sim == nil {
		s.sim = erosion.NewSimulator(cfg, 0)
	} else {
		s.sim.SetConfig(cfg)
	}
	return s.sim
}

// ErosionRuns reports how many erosion runs the shared simulator performed.
func (s *Store) ErosionRuns() int {
	if s.sim == nil {
		return 0
	}
	return s.sim.Runs()
}

// Purge removes every cached entry of a tile.
func (s *Store) Purge(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.raw, key)
	delete(s.eroded, key)
	delete(s.blended, key)
	delete(s.results, key)
	delete(s.geometry, key)
}

// Stats counts cached entries per cache.
type Stats struct {
	Raw, Eroded, Blended, Results, Geometry int
}

// Stats returns the current entry counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Raw:      len(s.raw),
		Eroded:   len(s.eroded),
		Blended:  len(s.blended),
		Results:  len(s.results),
		Geometry: len(s.geometry),
	}
}
