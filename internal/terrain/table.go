package terrain

// Table is the authoritative coordinate to tile map. Tiles reference their
// neighbors by coordinate and resolve them here, so a removed tile simply
// stops resolving.
type Table map[Coord]*Tile

// Tile implements Lookup.
func (tb Table) Tile(c Coord) (*Tile, bool) {
	t, ok := tb[c]
	return t, ok
}

// Insert adds t and links it symmetrically with every existing tile among
// its 8 neighbors.
func (tb Table) Insert(t *Tile) {
	tb[t.Coord] = t
	for d := Direction(0); d < NumDirections; d++ {
		c := t.Coord.NeighborCoords(d)
		nb, ok := tb[c]
		if !ok {
			continue
		}
		t.SetNeighbor(d, c)
		nb.SetNeighbor(d.Opposite(), t.Coord)
	}
}

// Remove deletes the tile at c and clears the reverse links of its
// neighbors. It returns the removed tile, if any.
func (tb Table) Remove(c Coord) (*Tile, bool) {
	t, ok := tb[c]
	if !ok {
		return nil, false
	}
	delete(tb, c)
	for d := Direction(0); d < NumDirections; d++ {
		if nb, ok := tb[c.NeighborCoords(d)]; ok {
			nb.ClearNeighbor(d.Opposite())
		}
	}
	return t, true
}

// MarkNeighborsPending flags every loaded neighbor of c for re-blending and
// returns them.
func (tb Table) MarkNeighborsPending(c Coord) []*Tile {
	var marked []*Tile
	for d := Direction(0); d < NumDirections; d++ {
		nb, ok := tb[c.NeighborCoords(d)]
		if !ok || !nb.IsLoaded() {
			continue
		}
		nb.MarkBlendPending()
		marked = append(marked, nb)
	}
	return marked
}
