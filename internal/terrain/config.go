package terrain

import (
	"errors"
	"fmt"

	"terrastream/internal/erosion"
	"terrastream/internal/painter"
)

var (
	ErrInvalidSize     = errors.New("tile size must be positive")
	ErrInvalidSegments = errors.New("tile segments must be positive")
	ErrInvalidOverlap  = errors.New("overlap segments must be in [0, segments/2]")
)

// TileConfig describes how every tile of a grid is generated. All tiles that
// are blended together must share one config.
type TileConfig struct {
	Size        float64 `json:"size"`     // world units per tile side
	Segments    int     `json:"segments"` // visible quads per side
	NoiseScale  float64 `json:"noiseScale"`
	HeightScale float64 `json:"heightScale"`
	Seed        int64   `json:"seed"`

	Octaves     int     `json:"octaves"`
	Persistence float64 `json:"persistence"`
	Lacunarity  float64 `json:"lacunarity"`

	OverlapSegments int  `json:"overlapSegments"` // margin on each side of the visible grid
	ShowOverlap     bool `json:"showOverlap"`     // mesh the whole virtual field

	Erosion erosion.Config `json:"erosion"`
	Painter painter.Config `json:"painter"`
}

// DefaultTileConfig returns a 64-unit tile with 64 segments and an 8-segment margin.
func DefaultTileConfig() TileConfig {
	return TileConfig{
		Size:            64,
		Segments:        64,
		NoiseScale:      0.008,
		HeightScale:     40,
		Seed:            12345,
		Octaves:         5,
		Persistence:     0.5,
		Lacunarity:      2.0,
		OverlapSegments: 8,
		Erosion:         erosion.DefaultConfig(),
		Painter:         painter.DefaultConfig(),
	}
}

// Validate reports configuration errors that would otherwise surface as
// degenerate terrain.
func (c TileConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("size %v: %w", c.Size, ErrInvalidSize)
	}
	if c.Segments <= 0 {
		return fmt.Errorf("segments %d: %w", c.Segments, ErrInvalidSegments)
	}
	if c.OverlapSegments < 0 || 2*c.OverlapSegments > c.Segments {
		return fmt.Errorf("overlap %d with %d segments: %w", c.OverlapSegments, c.Segments, ErrInvalidOverlap)
	}
	return nil
}

// SegmentSize is the world distance between adjacent vertices.
func (c TileConfig) SegmentSize() float64 {
	if c.Segments <= 0 {
		return c.Size
	}
	return c.Size / float64(c.Segments)
}

// OverlapWorldSize is the width of the margin in world units.
func (c TileConfig) OverlapWorldSize() float64 {
	return float64(c.OverlapSegments) * c.SegmentSize()
}

// VirtualSide is the vertex count per side of the virtual field.
func (c TileConfig) VirtualSide() int {
	return c.Segments + 2*c.OverlapSegments + 1
}

// VisibleSide is the vertex count per side of the visible field.
func (c TileConfig) VisibleSide() int {
	return c.Segments + 1
}
