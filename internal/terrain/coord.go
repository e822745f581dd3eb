package terrain

import (
	"math"

	"terrastream/internal/cache"
)

// Coord identifies a tile on the infinite grid.
type Coord struct {
	X, Z int
}

// Key returns the cache key of the tile.
func (c Coord) Key() string {
	return cache.Key(c.X, c.Z)
}

// Add offsets a coordinate.
func (c Coord) Add(dx, dz int) Coord {
	return Coord{X: c.X + dx, Z: c.Z + dz}
}

// DistSq is the squared distance in tiles.
func (c Coord) DistSq(o Coord) int {
	dx := c.X - o.X
	dz := c.Z - o.Z
	return dx*dx + dz*dz
}

// CoordAt returns the tile containing a world position.
func CoordAt(worldX, worldZ, size float64) Coord {
	return Coord{
		X: int(math.Floor(worldX / size)),
		Z: int(math.Floor(worldZ / size)),
	}
}

// Direction is one of the 8 compass neighbors. Z grows southward.
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest

	NumDirections = 8
)

var directionOffsets = [NumDirections][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

var directionNames = [NumDirections]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Opposite returns the direction pointing back.
func (d Direction) Opposite() Direction {
	return (d + 4) % NumDirections
}

// Offset returns the tile offset of the direction.
func (d Direction) Offset() (dx, dz int) {
	o := directionOffsets[d]
	return o[0], o[1]
}

func (d Direction) String() string {
	if d < 0 || d >= NumDirections {
		return "?"
	}
	return directionNames[d]
}

// NeighborCoords returns the coordinate of the neighbor in direction d.
func (c Coord) NeighborCoords(d Direction) Coord {
	dx, dz := d.Offset()
	return c.Add(dx, dz)
}
