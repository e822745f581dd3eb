package streaming

import (
	"io"
	"log"
	"slices"
	"time"

	"terrastream/internal/cache"
	"terrastream/internal/mask"
	"terrastream/internal/painter"
	"terrastream/internal/profiling"
	"terrastream/internal/terrain"
)

// Options carries the collaborators of a Manager. Store is created when nil;
// every other field is optional.
type Options struct {
	Store    *cache.Store
	Scene    terrain.Scene
	Mask     *mask.Mask
	Logger   *log.Logger
	Profiler *profiling.Profiler
}

// FrameStats summarises the work done by one Update.
type FrameStats struct {
	Frame    uint64        `json:"frame"`
	Viewer   terrain.Coord `json:"viewer"`
	Loaded   int           `json:"loaded"`
	Unloaded int           `json:"unloaded"`
	Blended  int           `json:"blended"`
	Disposed int           `json:"disposed"`
	Pending  Pending       `json:"pending"`
	Tiles    int           `json:"tiles"`
	Duration time.Duration `json:"duration"`
}

// Work is the number of tile operations performed.
func (s FrameStats) Work() int {
	return s.Loaded + s.Unloaded + s.Blended + s.Disposed
}

// Pending reports queued operations.
type Pending struct {
	Loads   int `json:"loads"`
	Unloads int `json:"unloads"`
	Blends  int `json:"blends"`
}

// Manager streams tiles around a moving viewer. It owns the tile table and
// every scene attachment. All methods must be called from one goroutine.
type Manager struct {
	cfg     Config
	store   *cache.Store
	scene   terrain.Scene
	mask    *mask.Mask
	painter *painter.Painter
	log     *log.Logger
	prof    *profiling.Profiler

	tiles   terrain.Table
	loads   *Queue
	unloads *Queue
	blends  *Queue

	viewer    terrain.Coord
	hasViewer bool
	frame     uint64
}

// New validates cfg and creates a manager with no tiles.
func New(cfg Config, opts Options) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store := opts.Store
	if store == nil {
		store = cache.NewStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Manager{
		cfg:     cfg,
		store:   store,
		scene:   opts.Scene,
		mask:    opts.Mask,
		painter: painter.New(cfg.Tile.Painter),
		log:     logger,
		prof:    opts.Profiler,
		tiles:   terrain.Table{},
		loads:   NewQueue(),
		unloads: NewQueue(),
		blends:  NewQueue(),
	}, nil
}

func (m *Manager) Config() Config { return m.cfg }
func (m *Manager) Store() *cache.Store { return m.store }

// Viewer returns the tile the viewer was last seen in.
func (m *Manager) Viewer() (terrain.Coord, bool) { return m.viewer, m.hasViewer }

// Update moves the viewer to (worldX, worldZ) and performs at most
// MaxTilesPerFrame loads/unloads and MaxBlendsPerFrame blends.
func (m *Manager) Update(worldX, worldZ float64) FrameStats {
	start := time.Now()
	m.prof.ResetFrame()
	stop := m.prof.Track("streaming.Update")
	m.frame++

	var st FrameStats
	c := terrain.CoordAt(worldX, worldZ, m.cfg.Tile.Size)
	if !m.hasViewer || c != m.viewer {
		m.viewer = c
		m.hasViewer = true
		m.rebuildQueues()
		st.Disposed = m.disposeFar()
	}

	budget := m.cfg.MaxTilesPerFrame
	for budget > 0 {
		coord, ok := m.unloads.Pop()
		if !ok {
			break
		}
		if m.unloadTile(coord) {
			st.Unloaded++
			budget--
		}
	}
	for budget > 0 {
		coord, ok := m.loads.Pop()
		if !ok {
			break
		}
		if m.loadTile(coord) {
			st.Loaded++
			budget--
		}
	}
	for st.Blended < m.cfg.MaxBlendsPerFrame {
		coord, ok := m.blends.Pop()
		if !ok {
			break
		}
		if m.blendTile(coord) {
			st.Blended++
		}
	}

	stop()
	st.Duration = time.Since(start)
	m.finishStats(&st)
	if m.cfg.SlowFrame > 0 && st.Duration > m.cfg.SlowFrame {
		m.log.Printf("Slow frame: %v. Top tasks: %s", st.Duration, m.prof.TopN(5))
	}
	return st
}

// ForceLoadAll synchronously brings the tiles around the viewer into their
// final state: every unload and load is done, then all loaded tiles are
// blended twice.
func (m *Manager) ForceLoadAll(worldX, worldZ float64) FrameStats {
	start := time.Now()
	defer m.prof.Track("streaming.ForceLoadAll")()
	m.frame++

	var st FrameStats
	m.viewer = terrain.CoordAt(worldX, worldZ, m.cfg.Tile.Size)
	m.hasViewer = true
	m.rebuildQueues()
	st.Disposed = m.disposeFar()

	for {
		coord, ok := m.unloads.Pop()
		if !ok {
			break
		}
		if m.unloadTile(coord) {
			st.Unloaded++
		}
	}
	for {
		coord, ok := m.loads.Pop()
		if !ok {
			break
		}
		if m.loadTile(coord) {
			st.Loaded++
		}
	}

	m.blends.Clear()
	loaded := m.LoadedTiles()
	for pass := 0; pass < 2; pass++ {
		for _, t := range loaded {
			if t.BlendWithNeighbors() {
				t.UpdateGeometryAfterBlend()
				m.prof.Count("tiles.blended", 1)
				st.Blended++
			}
		}
	}

	st.Duration = time.Since(start)
	m.finishStats(&st)
	return st
}

func (m *Manager) finishStats(st *FrameStats) {
	st.Frame = m.frame
	st.Viewer = m.viewer
	st.Pending = m.Pending()
	st.Tiles = len(m.tiles)
}

// rebuildQueues recomputes the load and unload sets for the current viewer
// tile. Loads that left range are dropped.
func (m *Manager) rebuildQueues() {
	defer m.prof.Track("streaming.rebuildQueues")()
	m.loads.Clear()
	m.unloads.Clear()

	ld := m.cfg.LoadDistance
	ld2 := ld * ld
	for dz := -ld; dz <= ld; dz++ {
		for dx := -ld; dx <= ld; dx++ {
			d2 := dx*dx + dz*dz
			if d2 > ld2 {
				continue
			}
			c := m.viewer.Add(dx, dz)
			if t, ok := m.tiles[c]; ok && t.IsLoaded() {
				continue
			}
			m.loads.Push(c, d2)
		}
	}

	ud2 := m.cfg.UnloadDistance * m.cfg.UnloadDistance
	for c, t := range m.tiles {
		if !t.IsLoaded() {
			continue
		}
		if d2 := c.DistSq(m.viewer); d2 > ud2 {
			m.unloads.Push(c, -d2)
		}
	}
}

// disposeFar removes tiles beyond DisposeDistance from the table and caches.
func (m *Manager) disposeFar() int {
	dd := m.cfg.DisposeDistance
	if dd <= 0 {
		return 0
	}
	var far []terrain.Coord
	for c := range m.tiles {
		if c.DistSq(m.viewer) > dd*dd {
			far = append(far, c)
		}
	}
	if len(far) == 0 {
		return 0
	}
	slices.SortFunc(far, compareCoords)
	for _, c := range far {
		m.disposeTile(c)
	}
	m.log.Printf("Disposed %d tiles beyond %d of %v", len(far), dd, m.viewer)
	return len(far)
}

func (m *Manager) disposeTile(c terrain.Coord) {
	t, ok := m.tiles.Remove(c)
	if !ok {
		return
	}
	t.Dispose()
	m.unloads.Remove(c)
	m.blends.Remove(c)
	m.queueLoadedNeighbors(c)
	m.prof.Count("tiles.disposed", 1)
}

func (m *Manager) loadTile(c terrain.Coord) bool {
	defer m.prof.Track("terrain.Load")()
	t, ok := m.tiles[c]
	if !ok {
		t = terrain.NewTile(c, m.cfg.Tile, m.store, terrain.Options{
			Painter: m.painter,
			Mask:    m.mask,
			Lookup:  m.tiles,
		})
		m.tiles.Insert(t)
	}
	if t.IsLoaded() {
		return false
	}
	t.Load(m.scene)
	m.blends.Push(c, c.DistSq(m.viewer))
	m.queueLoadedNeighbors(c)
	m.prof.Count("tiles.loaded", 1)
	return true
}

func (m *Manager) unloadTile(c terrain.Coord) bool {
	t, ok := m.tiles[c]
	if !ok || !t.IsLoaded() {
		return false
	}
	t.Unload()
	m.blends.Remove(c)
	m.queueLoadedNeighbors(c)
	m.prof.Count("tiles.unloaded", 1)
	return true
}

// queueLoadedNeighbors marks the loaded neighbors of c blend-pending, since
// their borders depend on whether c is loaded.
func (m *Manager) queueLoadedNeighbors(c terrain.Coord) {
	for _, nb := range m.tiles.MarkNeighborsPending(c) {
		m.blends.Push(nb.Coord, nb.Coord.DistSq(m.viewer))
	}
}

func (m *Manager) blendTile(c terrain.Coord) bool {
	t, ok := m.tiles[c]
	if !ok || !t.RequiresBlending() {
		return false
	}
	defer m.prof.Track("terrain.Blend")()
	if t.BlendWithNeighbors() {
		t.UpdateGeometryAfterBlend()
	}
	m.prof.Count("tiles.blended", 1)
	return true
}

// Tile returns the tile at c if the manager knows it.
func (m *Manager) Tile(c terrain.Coord) (*terrain.Tile, bool) {
	return m.tiles.Tile(c)
}

// LoadedTiles returns the loaded tiles ordered by row then column.
func (m *Manager) LoadedTiles() []*terrain.Tile {
	out := make([]*terrain.Tile, 0, len(m.tiles))
	for _, t := range m.tiles {
		if t.IsLoaded() {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b *terrain.Tile) int { return compareCoords(a.Coord, b.Coord) })
	return out
}

// HeightAt samples the tile containing the world position.
func (m *Manager) HeightAt(worldX, worldZ float64) (float64, bool) {
	t, ok := m.tiles[terrain.CoordAt(worldX, worldZ, m.cfg.Tile.Size)]
	if !ok {
		return 0, false
	}
	return t.GetHeightAt(worldX, worldZ)
}

// Pending returns the current queue sizes.
func (m *Manager) Pending() Pending {
	return Pending{Loads: m.loads.Len(), Unloads: m.unloads.Len(), Blends: m.blends.Len()}
}

// UnloadAll detaches every loaded tile and empties the queues. Cached data
// stays in the store, so another manager sharing it reloads cheaply.
func (m *Manager) UnloadAll() int {
	n := 0
	for _, t := range m.LoadedTiles() {
		if m.unloadTile(t.Coord) {
			n++
		}
	}
	m.loads.Clear()
	m.unloads.Clear()
	m.blends.Clear()
	m.hasViewer = false
	return n
}

// Dispose releases every tile and empties the queues.
func (m *Manager) Dispose() {
	coords := make([]terrain.Coord, 0, len(m.tiles))
	for c := range m.tiles {
		coords = append(coords, c)
	}
	for _, c := range coords {
		if t, ok := m.tiles.Remove(c); ok {
			t.Dispose()
		}
	}
	m.loads.Clear()
	m.unloads.Clear()
	m.blends.Clear()
	m.hasViewer = false
}

func compareCoords(a, b terrain.Coord) int {
	if a.Z != b.Z {
		return a.Z - b.Z
	}
	return a.X - b.X
}
