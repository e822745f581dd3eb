package streaming

import (
	"errors"
	"fmt"
	"time"

	"terrastream/internal/terrain"
)

var (
	ErrInvalidDistances = errors.New("unload distance must exceed load distance")
	ErrInvalidBudget    = errors.New("per-frame budgets must be positive")
)

// Config controls which tiles are kept around the viewer and how much work
// one Update may do. Distances are in tiles.
type Config struct {
	Tile terrain.TileConfig `json:"tile"`

	LoadDistance   int `json:"loadDistance"`
	UnloadDistance int `json:"unloadDistance"`
	// DisposeDistance purges tiles beyond it from every cache; 0 keeps them.
	DisposeDistance int `json:"disposeDistance"`

	MaxTilesPerFrame  int `json:"maxTilesPerFrame"`
	MaxBlendsPerFrame int `json:"maxBlendsPerFrame"`

	// SlowFrame enables slow-frame logging when positive.
	SlowFrame time.Duration `json:"slowFrame"`
}

// DefaultConfig returns the settings used by the commands.
func DefaultConfig() Config {
	return Config{
		Tile:              terrain.DefaultTileConfig(),
		LoadDistance:      3,
		UnloadDistance:    5,
		DisposeDistance:   10,
		MaxTilesPerFrame:  2,
		MaxBlendsPerFrame: 4,
		SlowFrame:         50 * time.Millisecond,
	}
}

// Validate checks the tile config and the distance and budget invariants.
func (c Config) Validate() error {
	if err := c.Tile.Validate(); err != nil {
		return fmt.Errorf("tile config: %w", err)
	}
	if c.LoadDistance < 0 || c.UnloadDistance <= c.LoadDistance {
		return fmt.Errorf("load %d, unload %d: %w", c.LoadDistance, c.UnloadDistance, ErrInvalidDistances)
	}
	if c.DisposeDistance != 0 && c.DisposeDistance < c.UnloadDistance {
		return fmt.Errorf("dispose %d below unload %d: %w", c.DisposeDistance, c.UnloadDistance, ErrInvalidDistances)
	}
	if c.MaxTilesPerFrame <= 0 || c.MaxBlendsPerFrame <= 0 {
		return fmt.Errorf("tiles %d, blends %d: %w", c.MaxTilesPerFrame, c.MaxBlendsPerFrame, ErrInvalidBudget)
	}
	return nil
}
