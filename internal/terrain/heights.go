package terrain

import "slices"

// maskSamples is the grid resolution used when averaging the mask over a tile.
const maskSamples = 8

// ComputeVirtualHeights returns the raw noise field of the virtual area,
// generating and caching it on first use. Positions are derived from global
// vertex indices so overlapping tiles sample identical world coordinates.
func (t *Tile) ComputeVirtualHeights() []float64 {
	if h, ok := t.store.Raw(t.key); ok {
		return h
	}
	cfg := t.cfg
	side := cfg.VirtualSide()
	seg := cfg.SegmentSize()
	ox, oz := t.virtualOrigin()
	gen := t.store.Noise.Get(cfg.Seed)

	h := make([]float64, side*side)
	for j := 0; j < side; j++ {
		wz := float64(oz+j) * seg
		for i := 0; i < side; i++ {
			wx := float64(ox+i) * seg
			if t.mask != nil && t.mask.Masked(wx, wz) {
				h[j*side+i] = t.mask.Sentinel
				continue
			}
			var n float64
			if cfg.Octaves <= 1 {
				n = gen.Sample(wx*cfg.NoiseScale, wz*cfg.NoiseScale)
			} else {
				n = gen.FractalSample(wx*cfg.NoiseScale, wz*cfg.NoiseScale, cfg.Octaves, cfg.Persistence, cfg.Lacunarity)
			}
			h[j*side+i] = n * cfg.HeightScale
		}
	}
	t.store.PutRaw(t.key, h)
	// another tile may have raced us to the write-once slot
	if cached, ok := t.store.Raw(t.key); ok {
		return cached
	}
	return h
}

// ApplyErosion produces the tile's original heights: the raw field run
// through hydraulic erosion, or the raw field itself when erosion is off.
// Results are cached per key, so a second call never re-simulates.
func (t *Tile) ApplyErosion() []float64 {
	if t.originalHeights != nil {
		return t.originalHeights
	}
	if h, ok := t.store.Eroded(t.key); ok {
		t.originalHeights = h
		t.result, _ = t.store.ErosionResult(t.key)
		return h
	}
	raw := t.ComputeVirtualHeights()
	if !t.cfg.Erosion.Enabled {
		t.originalHeights = raw
		return raw
	}

	iterations := t.cfg.Erosion.Iterations
	if t.mask != nil {
		ox, oz := t.virtualOrigin()
		seg := t.cfg.SegmentSize()
		span := float64(t.cfg.VirtualSide()-1) * seg
		minX, minZ := float64(ox)*seg, float64(oz)*seg
		iterations = int(float64(iterations) * t.mask.Average(minX, minZ, minX+span, minZ+span, maskSamples))
	}

	h := slices.Clone(raw)
	side := t.cfg.VirtualSide()
	sim := t.store.Simulator(t.cfg.Erosion)
	sim.Reseed(tileSeed(t.cfg.Seed, t.Coord))
	res := sim.Erode(h, side, side, iterations)

	t.store.PutEroded(t.key, h)
	t.store.PutErosionResult(t.key, res)
	t.originalHeights, _ = t.store.Eroded(t.key)
	t.result, _ = t.store.ErosionResult(t.key)
	return t.originalHeights
}

// tileSeed mixes the world seed with the tile coordinate so each tile gets
// its own droplet sequence while staying reproducible.
func tileSeed(seed int64, c Coord) int64 {
	x := uint64(seed)
	x ^= uint64(int64(c.X)) * 0x9E3779B97F4A7C15
	x ^= uint64(int64(c.Z)) * 0xC2B2AE3D27D4EB4F
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return int64(x)
}
