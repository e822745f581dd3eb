package terrain

import (
	"math"

	"terrastream/internal/cache"
	"terrastream/internal/erosion"
	"terrastream/internal/mask"
	"terrastream/internal/mesh"
	"terrastream/internal/painter"
)

// State is the lifecycle state of a tile.
type State int

const (
	Unloaded State = iota
	Generating
	Loaded
	Disposed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Generating:
		return "generating"
	case Loaded:
		return "loaded"
	case Disposed:
		return "disposed"
	}
	return "unknown"
}

// Scene receives the meshes of loaded tiles.
type Scene interface {
	Attach(m *mesh.Mesh)
	Update(m *mesh.Mesh)
	Detach(m *mesh.Mesh)
}

// Lookup resolves neighbor coordinates to live tiles. A missing entry is a
// normal outcome: the neighbor was never created or has been disposed.
type Lookup interface {
	Tile(c Coord) (*Tile, bool)
}

// Options carries the shared collaborators of a tile.
type Options struct {
	Painter *painter.Painter // shared colorer; built from the config when nil
	Mask    *mask.Mask       // optional land mask
	Lookup  Lookup           // neighbor resolution; no neighbors when nil
}

// Tile is one square of terrain. Heights live on a virtual field that extends
// OverlapSegments past the visible edge on every side so neighbors can be
// blended together.
type Tile struct {
	Coord Coord
	key   string

	cfg     TileConfig
	store   *cache.Store
	painter *painter.Painter
	mask    *mask.Mask
	lookup  Lookup

	neighbors [NumDirections]Coord
	linked    [NumDirections]bool

	state State

	originalHeights []float64 // post-erosion, never modified
	blendedHeights  []float64 // nil until the first blend
	result          *erosion.Result

	geometry *mesh.Geometry
	mesh     *mesh.Mesh
	scene    Scene

	blendVersion     uint64
	lastBlendVersion uint64
	blends           int
}

// NewTile creates an unloaded tile. No heights are generated until Load or
// ApplyErosion is called.
func NewTile(c Coord, cfg TileConfig, store *cache.Store, opts Options) *Tile {
	p := opts.Painter
	if p == nil {
		p = painter.New(cfg.Painter)
	}
	return &Tile{
		Coord:   c,
		key:     c.Key(),
		cfg:     cfg,
		store:   store,
		painter: p,
		mask:    opts.Mask,
		lookup:  opts.Lookup,
	}
}

func (t *Tile) Key() string { return t.key }
func (t *Tile) State() State { return t.state }
func (t *Tile) Config() TileConfig { return t.cfg }
func (t *Tile) Mesh() *mesh.Mesh { return t.mesh }
func (t *Tile) Blends() int { return t.blends }
func (t *Tile) IsLoaded() bool { return t.state == Loaded }
func (t *Tile) HasHeights() bool { return t.originalHeights != nil }
func (t *Tile) OriginalHeights() []float64 { return t.originalHeights }

// Heights returns the blended field if one exists, otherwise the originals.
func (t *Tile) Heights() []float64 {
	if t.blendedHeights != nil {
		return t.blendedHeights
	}
	return t.originalHeights
}

// Result returns the erosion maps of the virtual field, or nil.
func (t *Tile) Result() *erosion.Result { return t.result }

// Geometry returns the current visible geometry, or nil.
func (t *Tile) Geometry() *mesh.Geometry { return t.geometry }

// Bounds returns the visible world rectangle of the tile.
func (t *Tile) Bounds() (minX, minZ, maxX, maxZ float64) {
	minX = float64(t.Coord.X) * t.cfg.Size
	minZ = float64(t.Coord.Z) * t.cfg.Size
	return minX, minZ, minX + t.cfg.Size, minZ + t.cfg.Size
}

// virtualOrigin is the global vertex index of the virtual field's first
// column and row.
func (t *Tile) virtualOrigin() (int, int) {
	return t.Coord.X*t.cfg.Segments - t.cfg.OverlapSegments,
		t.Coord.Z*t.cfg.Segments - t.cfg.OverlapSegments
}

// SetNeighbor links the tile to the neighbor at c in direction d.
func (t *Tile) SetNeighbor(d Direction, c Coord) {
	t.neighbors[d] = c
	t.linked[d] = true
	t.blendVersion++
}

// ClearNeighbor removes the link in direction d.
func (t *Tile) ClearNeighbor(d Direction) {
	if !t.linked[d] {
		return
	}
	t.linked[d] = false
	t.blendVersion++
}

// Neighbor resolves the link in direction d through the lookup.
func (t *Tile) Neighbor(d Direction) (*Tile, bool) {
	if !t.linked[d] || t.lookup == nil {
		return nil, false
	}
	return t.lookup.Tile(t.neighbors[d])
}

// MarkBlendPending records that neighbor data changed.
func (t *Tile) MarkBlendPending() {
	t.blendVersion++
}

// RequiresBlending reports whether the tile is loaded and its neighborhood
// changed since the last blend.
func (t *Tile) RequiresBlending() bool {
	return t.state == Loaded && t.blendVersion != t.lastBlendVersion
}

// Load generates heights if needed, builds the visible mesh and attaches it
// to the scene. Loading a tile that is loaded or generating does nothing.
func (t *Tile) Load(scene Scene) {
	if t.state == Loaded || t.state == Generating {
		return
	}
	t.state = Generating
	t.ApplyErosion()
	if t.blendedHeights == nil {
		if b, ok := t.store.Blended(t.key); ok {
			t.blendedHeights = b
		}
	}
	if t.geometry == nil {
		if g, ok := t.store.Geometry(t.key); ok {
			t.geometry = g
		} else {
			t.buildGeometry()
		}
	}
	t.mesh = t.store.Meshes.Acquire(t.key, t.geometry)
	t.scene = scene
	if scene != nil {
		scene.Attach(t.mesh)
	}
	t.state = Loaded
	t.blendVersion++
}

// Unload detaches the mesh and keeps every cached field so a reload is cheap.
func (t *Tile) Unload() {
	if t.state != Loaded {
		return
	}
	if t.scene != nil {
		t.scene.Detach(t.mesh)
	}
	t.store.Meshes.Release(t.mesh)
	t.mesh = nil
	t.scene = nil
	if t.geometry != nil {
		t.store.PutGeometry(t.key, t.geometry)
	}
	t.state = Unloaded
}

// Dispose unloads the tile, drops its links and purges every cache entry
// for its key.
func (t *Tile) Dispose() {
	t.Unload()
	for d := range t.linked {
		t.linked[d] = false
	}
	t.store.Purge(t.key)
	t.originalHeights = nil
	t.blendedHeights = nil
	t.result = nil
	t.geometry = nil
	t.state = Disposed
}

// GetHeightAt bilinearly samples the current field at a world position.
// It reports false when the tile has no heights or the point lies outside
// the virtual field.
func (t *Tile) GetHeightAt(worldX, worldZ float64) (float64, bool) {
	h := t.Heights()
	side := t.cfg.VirtualSide()
	if h == nil || side < 2 {
		return 0, false
	}
	seg := t.cfg.SegmentSize()
	ox, oz := t.virtualOrigin()
	lx := (worldX - float64(ox)*seg) / seg
	lz := (worldZ - float64(oz)*seg) / seg
	limit := float64(side - 1)
	if math.IsNaN(lx) || math.IsNaN(lz) || lx < 0 || lz < 0 || lx > limit || lz > limit {
		return 0, false
	}
	x0 := min(int(lx), side-2)
	z0 := min(int(lz), side-2)
	u := lx - float64(x0)
	v := lz - float64(z0)
	a := h[z0*side+x0]
	b := h[z0*side+x0+1]
	c := h[(z0+1)*side+x0]
	d := h[(z0+1)*side+x0+1]
	return a*(1-u)*(1-v) + b*u*(1-v) + c*(1-u)*v + d*u*v, true
}
