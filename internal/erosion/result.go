package erosion

// Result holds the per-cell accumulation maps of one erosion run. The maps are
// co-indexed with the eroded heightfield (row-major, Width*Height).
type Result struct {
	Width, Height int

	Erosion []float64 // material removed
	Deposit []float64 // material added
	Flow    []float64 // cumulative water passage
}

// NewResult allocates zeroed maps for a width x height field.
func NewResult(width, height int) *Result {
	n := max(width*height, 0)
	return &Result{
		Width:   width,
		Height:  height,
		Erosion: make([]float64, n),
		Deposit: make([]float64, n),
		Flow:    make([]float64, n),
	}
}

// Crop copies the sub-rectangle starting at (x0, y0) of size w x h.
func (r *Result) Crop(x0, y0, w, h int) *Result {
	out := NewResult(w, h)
	for y := 0; y < h; y++ {
		src := (y0+y)*r.Width + x0
		dst := y * w
		copy(out.Erosion[dst:dst+w], r.Erosion[src:src+w])
		copy(out.Deposit[dst:dst+w], r.Deposit[src:src+w])
		copy(out.Flow[dst:dst+w], r.Flow[src:src+w])
	}
	return out
}

// MaxValues returns the largest erosion, deposit and flow values.
func (r *Result) MaxValues() (erosion, deposit, flow float64) {
	for i := range r.Erosion {
		erosion = max(erosion, r.Erosion[i])
		deposit = max(deposit, r.Deposit[i])
		flow = max(flow, r.Flow[i])
	}
	return erosion, deposit, flow
}
