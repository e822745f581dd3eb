package terrain

import (
	"errors"
	"math"
	"slices"
	"testing"

	"terrastream/internal/cache"
	"terrastream/internal/mask"
	"terrastream/internal/mesh"
	"terrastream/internal/noise"
)

type recordingScene struct {
	attached map[int]*mesh.Mesh
	updates  int
}

func newRecordingScene() *recordingScene {
	return &recordingScene{attached: make(map[int]*mesh.Mesh)}
}

func (s *recordingScene) Attach(m *mesh.Mesh) { s.attached[m.ID] = m }
func (s *recordingScene) Update(m *mesh.Mesh) { s.updates++ }
func (s *recordingScene) Detach(m *mesh.Mesh) { delete(s.attached, m.ID) }

func testConfig() TileConfig {
	cfg := DefaultTileConfig()
	cfg.Size = 64
	cfg.Segments = 16
	cfg.OverlapSegments = 4
	cfg.Erosion.Iterations = 400
	return cfg
}

func TestValidate(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cases := []struct {
		mut  func(*TileConfig)
		want error
	}{
		{func(c *TileConfig) { c.Size = 0 }, ErrInvalidSize},
		{func(c *TileConfig) { c.Segments = 0 }, ErrInvalidSegments},
		{func(c *TileConfig) { c.OverlapSegments = -1 }, ErrInvalidOverlap},
		{func(c *TileConfig) { c.OverlapSegments = 9 }, ErrInvalidOverlap},
	}
	for i, tc := range cases {
		c := testConfig()
		tc.mut(&c)
		if err := c.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestDirections(t *testing.T) {
	c := Coord{X: 3, Z: -2}
	for d := Direction(0); d < NumDirections; d++ {
		back := c.NeighborCoords(d).NeighborCoords(d.Opposite())
		if back != c {
			t.Errorf("%v then %v: got %v", d, d.Opposite(), back)
		}
	}
	if got := c.NeighborCoords(North); got != (Coord{3, -3}) {
		t.Errorf("north of %v = %v", c, got)
	}
	if got := c.NeighborCoords(SouthEast); got != (Coord{4, -1}) {
		t.Errorf("south-east of %v = %v", c, got)
	}
	if c.Key() != "3_-2" {
		t.Errorf("key = %q", c.Key())
	}
	if got := CoordAt(-0.5, 64, 64); got != (Coord{-1, 1}) {
		t.Errorf("CoordAt = %v", got)
	}
}

func TestSingleTileHeightMatchesNoise(t *testing.T) {
	cfg := testConfig()
	cfg.Segments = 32
	cfg.Seed = 12345
	cfg.Octaves = 1
	cfg.Erosion.Enabled = false

	tile := NewTile(Coord{}, cfg, cache.NewStore(), Options{})
	tile.Load(nil)

	gen := noise.New(12345)
	x, z := cfg.Size/2, cfg.Size/2
	want := gen.Sample(x*cfg.NoiseScale, z*cfg.NoiseScale) * cfg.HeightScale
	got, ok := tile.GetHeightAt(x, z)
	if !ok {
		t.Fatal("height at tile centre not available")
	}
	if got != want {
		t.Fatalf("height at centre = %v, want %v", got, want)
	}
	if tile.BlendWithNeighbors() {
		t.Fatal("blend without neighbors reported success")
	}
}

func TestGetHeightAtOutside(t *testing.T) {
	cfg := testConfig()
	tile := NewTile(Coord{}, cfg, cache.NewStore(), Options{})
	if _, ok := tile.GetHeightAt(1, 1); ok {
		t.Fatal("height available before generation")
	}
	tile.Load(nil)
	if _, ok := tile.GetHeightAt(-cfg.OverlapWorldSize()-1, 1); ok {
		t.Fatal("height available outside the virtual field")
	}
	if _, ok := tile.GetHeightAt(cfg.Size+cfg.OverlapWorldSize(), cfg.Size); !ok {
		t.Fatal("height unavailable on the virtual boundary")
	}
}

func TestErosionCached(t *testing.T) {
	cfg := testConfig()
	store := cache.NewStore()

	a := NewTile(Coord{X: 2, Z: 1}, cfg, store, Options{})
	first := slices.Clone(a.ApplyErosion())
	a.ApplyErosion()
	if store.ErosionRuns() != 1 {
		t.Fatalf("erosion ran %d times, want 1", store.ErosionRuns())
	}

	b := NewTile(Coord{X: 2, Z: 1}, cfg, store, Options{})
	if !slices.Equal(first, b.ApplyErosion()) {
		t.Fatal("second tile with the same key got different heights")
	}
	if store.ErosionRuns() != 1 {
		t.Fatalf("erosion re-ran for a cached key: %d runs", store.ErosionRuns())
	}
	raw, _ := store.Raw(a.Key())
	if slices.Equal(raw, first) {
		t.Fatal("erosion left the raw field untouched")
	}
}

func TestErosionDeterministicAcrossStores(t *testing.T) {
	cfg := testConfig()
	a := NewTile(Coord{X: -1, Z: 3}, cfg, cache.NewStore(), Options{})
	b := NewTile(Coord{X: -1, Z: 3}, cfg, cache.NewStore(), Options{})
	if !slices.Equal(a.ApplyErosion(), b.ApplyErosion()) {
		t.Fatal("same seed and coordinate produced different terrain")
	}
	if tileSeed(cfg.Seed, Coord{0, 1}) == tileSeed(cfg.Seed, Coord{1, 0}) {
		t.Fatal("tile seeds collide for swapped coordinates")
	}
}

func loadPair(t *testing.T, cfg TileConfig) (Table, *Tile, *Tile) {
	t.Helper()
	store := cache.NewStore()
	tb := Table{}
	a := NewTile(Coord{0, 0}, cfg, store, Options{Lookup: tb})
	b := NewTile(Coord{1, 0}, cfg, store, Options{Lookup: tb})
	tb.Insert(a)
	tb.Insert(b)
	a.Load(nil)
	b.Load(nil)
	return tb, a, b
}

func TestBlendSharedEdgeIdentical(t *testing.T) {
	cfg := testConfig()
	_, a, b := loadPair(t, cfg)
	if !a.RequiresBlending() || !b.RequiresBlending() {
		t.Fatal("freshly loaded neighbors do not require blending")
	}
	if !a.BlendWithNeighbors() || !b.BlendWithNeighbors() {
		t.Fatal("blend with a loaded neighbor failed")
	}
	if a.RequiresBlending() || b.RequiresBlending() {
		t.Fatal("blend did not clear the pending flag")
	}

	side := cfg.VirtualSide()
	over := cfg.OverlapSegments
	ah, bh := a.Heights(), b.Heights()
	// every virtual column both tiles cover must agree exactly
	for j := 0; j < side; j++ {
		for k := 0; k <= 2*over; k++ {
			ai := cfg.Segments + k
			bi := k
			if ah[j*side+ai] != bh[j*side+bi] {
				t.Fatalf("row %d shared column %d: %v != %v", j, k, ah[j*side+ai], bh[j*side+bi])
			}
		}
	}

	// the outer rows carry zero weight in both tiles and take the raw field
	raw := a.ComputeVirtualHeights()
	for i := 0; i < side; i++ {
		if ah[i] != raw[i] {
			t.Fatalf("boundary vertex %d = %v, want raw %v", i, ah[i], raw[i])
		}
	}

	a.UpdateGeometryAfterBlend()
	b.UpdateGeometryAfterBlend()
	vs := cfg.VisibleSide()
	ag, bg := a.Geometry(), b.Geometry()
	for j := 0; j < vs; j++ {
		ai := j*vs + vs - 1
		bi := j * vs
		if ag.Positions[3*ai] != bg.Positions[3*bi] || ag.Positions[3*ai+1] != bg.Positions[3*bi+1] {
			t.Fatalf("edge vertex row %d differs: (%v,%v) vs (%v,%v)", j,
				ag.Positions[3*ai], ag.Positions[3*ai+1], bg.Positions[3*bi], bg.Positions[3*bi+1])
		}
	}

	ha, okA := a.GetHeightAt(cfg.Size, 20)
	hb, okB := b.GetHeightAt(cfg.Size, 20)
	if !okA || !okB || ha != hb {
		t.Fatalf("height on shared edge: %v/%v vs %v/%v", ha, okA, hb, okB)
	}
}

func TestBlendIdempotent(t *testing.T) {
	_, a, _ := loadPair(t, testConfig())
	a.BlendWithNeighbors()
	first := slices.Clone(a.Heights())
	a.MarkBlendPending()
	a.BlendWithNeighbors()
	if !slices.Equal(first, a.Heights()) {
		t.Fatal("second blend changed the heights")
	}
	if a.Blends() != 2 {
		t.Fatalf("blends = %d", a.Blends())
	}
	if &a.OriginalHeights()[0] == &a.Heights()[0] {
		t.Fatal("blend wrote into the original heights")
	}
}

func TestBlendSkipsUnloadedNeighbor(t *testing.T) {
	cfg := testConfig()
	store := cache.NewStore()
	tb := Table{}
	a := NewTile(Coord{0, 0}, cfg, store, Options{Lookup: tb})
	b := NewTile(Coord{0, 1}, cfg, store, Options{Lookup: tb})
	tb.Insert(a)
	tb.Insert(b)
	a.Load(nil)
	if a.BlendWithNeighbors() {
		t.Fatal("blended with an unloaded neighbor")
	}
	if _, ok := a.Neighbor(South); !ok {
		t.Fatal("south link missing")
	}
	if _, ok := b.Neighbor(North); !ok {
		t.Fatal("reverse north link missing")
	}
}

func TestBlendNoOverlap(t *testing.T) {
	cfg := testConfig()
	cfg.OverlapSegments = 0
	_, a, _ := loadPair(t, cfg)
	if a.BlendWithNeighbors() {
		t.Fatal("blend with zero overlap reported success")
	}
}

func TestRemoveClearsLinks(t *testing.T) {
	tb, a, b := loadPair(t, testConfig())
	a.BlendWithNeighbors()
	if _, ok := tb.Remove(b.Coord); !ok {
		t.Fatal("remove failed")
	}
	if _, ok := a.Neighbor(East); ok {
		t.Fatal("link to removed tile still resolves")
	}
	if !a.RequiresBlending() {
		t.Fatal("losing a neighbor did not schedule a re-blend")
	}
}

func TestBlendWeights(t *testing.T) {
	side := 25
	w := buildWeights(side, 7)
	centre := w[12*side+12]
	if math.Abs(centre-1) > 1e-12 {
		t.Fatalf("centre weight = %v", centre)
	}
	for i := 0; i < side; i++ {
		if w[i] != 0 || w[(side-1)*side+i] != 0 || w[i*side] != 0 || w[i*side+side-1] != 0 {
			t.Fatalf("boundary weight non-zero at %d", i)
		}
	}
	for i, v := range w {
		if v < 0 || math.IsNaN(v) {
			t.Fatalf("weight %d = %v", i, v)
		}
	}
}

func TestLoadUnloadDispose(t *testing.T) {
	cfg := testConfig()
	store := cache.NewStore()
	scene := newRecordingScene()
	tile := NewTile(Coord{1, 1}, cfg, store, Options{})

	tile.Load(scene)
	tile.Load(scene)
	if len(scene.attached) != 1 || store.Meshes.Created() != 1 {
		t.Fatalf("double load: %d attached, %d meshes", len(scene.attached), store.Meshes.Created())
	}
	g := tile.Geometry()
	if g.Side != cfg.VisibleSide() || len(g.Colors) != 3*g.VertexCount() {
		t.Fatalf("geometry side %d colors %d", g.Side, len(g.Colors))
	}
	if g.Positions[0] != float32(cfg.Size) || g.Positions[2] != float32(cfg.Size) {
		t.Fatalf("first vertex at (%v,%v)", g.Positions[0], g.Positions[2])
	}

	tile.Unload()
	if len(scene.attached) != 0 || tile.State() != Unloaded {
		t.Fatal("unload left the mesh attached")
	}
	if _, ok := store.Geometry(tile.Key()); !ok {
		t.Fatal("unload dropped cached geometry")
	}
	tile.Load(scene)
	if store.ErosionRuns() != 1 || store.Meshes.Reused() != 1 {
		t.Fatalf("reload: %d erosion runs, %d reused meshes", store.ErosionRuns(), store.Meshes.Reused())
	}

	tile.Dispose()
	if tile.State() != Disposed || tile.HasHeights() {
		t.Fatal("dispose kept state")
	}
	if st := store.Stats(); st.Raw+st.Eroded+st.Geometry+st.Results != 0 {
		t.Fatalf("dispose left cache entries: %+v", st)
	}
}

func TestShowOverlapMeshesVirtualField(t *testing.T) {
	cfg := testConfig()
	cfg.ShowOverlap = true
	tile := NewTile(Coord{}, cfg, cache.NewStore(), Options{})
	tile.Load(nil)
	if tile.Geometry().Side != cfg.VirtualSide() {
		t.Fatalf("side = %d, want %d", tile.Geometry().Side, cfg.VirtualSide())
	}
	if tile.Geometry().Positions[0] != float32(-cfg.OverlapWorldSize()) {
		t.Fatalf("first vertex x = %v", tile.Geometry().Positions[0])
	}
}

func TestMaskedTileUsesSentinel(t *testing.T) {
	cfg := testConfig()
	cfg.Erosion.Enabled = false
	m := mask.New(make([]float64, 4), 2, 1000, 1)
	tile := NewTile(Coord{}, cfg, cache.NewStore(), Options{Mask: m})
	for i, h := range tile.ApplyErosion() {
		if h != m.Sentinel {
			t.Fatalf("vertex %d = %v, want sentinel %v", i, h, m.Sentinel)
		}
	}
}

func uniformMask(v float64) *mask.Mask {
	return mask.New([]float64{v, v, v, v}, 2, 1000, 1)
}

func TestMaskScalesErosion(t *testing.T) {
	cfg := testConfig()

	erode := func(m *mask.Mask) (*cache.Store, *Tile) {
		store := cache.NewStore()
		tile := NewTile(Coord{}, cfg, store, Options{Mask: m})
		tile.ApplyErosion()
		return store, tile
	}
	rawOf := func(store *cache.Store, tile *Tile) []float64 {
		raw, ok := store.Raw(tile.Key())
		if !ok {
			t.Fatal("raw heights not cached")
		}
		return raw
	}

	store, empty := erode(uniformMask(0))
	if store.ErosionRuns() != 0 {
		t.Fatalf("empty mask: %d erosion runs, want 0", store.ErosionRuns())
	}
	if !slices.Equal(empty.OriginalHeights(), rawOf(store, empty)) {
		t.Fatal("empty mask changed the raw field")
	}

	store, full := erode(uniformMask(1))
	if store.ErosionRuns() != 1 {
		t.Fatalf("full mask: %d erosion runs, want 1", store.ErosionRuns())
	}
	if slices.Equal(full.OriginalHeights(), rawOf(store, full)) {
		t.Fatal("full mask left the field uneroded")
	}

	store, half := erode(uniformMask(0.5))
	if store.ErosionRuns() != 1 {
		t.Fatalf("half mask: %d erosion runs, want 1", store.ErosionRuns())
	}
	if slices.Equal(half.OriginalHeights(), rawOf(store, half)) {
		t.Fatal("half mask left the field uneroded")
	}
	if !slices.Equal(rawOf(store, half), full.ComputeVirtualHeights()) {
		t.Fatal("mask above threshold altered raw heights")
	}
	if slices.Equal(half.OriginalHeights(), full.OriginalHeights()) {
		t.Fatal("half mask ran as many droplets as a full one")
	}
}

func TestUpdateGeometryNotifiesScene(t *testing.T) {
	_, a, b := loadPair(t, testConfig())
	scene := newRecordingScene()
	a.Unload()
	a.Load(scene)
	b.BlendWithNeighbors()
	a.BlendWithNeighbors()
	a.UpdateGeometryAfterBlend()
	if scene.updates != 1 {
		t.Fatalf("scene updates = %d", scene.updates)
	}
	if _, ok := a.store.Geometry(a.Key()); ok {
		t.Fatal("blend did not invalidate cached geometry")
	}
}

func BenchmarkBlend(b *testing.B) {
	cfg := testConfig()
	cfg.Segments = 64
	cfg.OverlapSegments = 8
	cfg.Erosion.Enabled = false
	store := cache.NewStore()
	tb := Table{}
	var centre *Tile
	for z := -1; z <= 1; z++ {
		for x := -1; x <= 1; x++ {
			tile := NewTile(Coord{x, z}, cfg, store, Options{Lookup: tb})
			tb.Insert(tile)
			tile.Load(nil)
			if x == 0 && z == 0 {
				centre = tile
			}
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		centre.MarkBlendPending()
		centre.BlendWithNeighbors()
	}
}

func TestMarkNeighborsPendingSkipsUnloaded(t *testing.T) {
	tb, a, b := loadPair(t, testConfig())
	c := NewTile(Coord{0, 1}, testConfig(), a.store, Options{Lookup: tb})
	tb.Insert(c)
	b.BlendWithNeighbors()
	if b.RequiresBlending() {
		t.Fatal("blend left the neighbor pending")
	}
	marked := tb.MarkNeighborsPending(a.Coord)
	if len(marked) != 1 || marked[0] != b {
		t.Fatalf("marked %d tiles, want only the loaded east neighbor", len(marked))
	}
	if !b.RequiresBlending() {
		t.Fatal("loaded neighbor not marked pending")
	}
}
