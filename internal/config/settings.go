package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"terrastream/internal/mask"
	"terrastream/internal/streaming"
)

// Settings is the full runtime configuration of the commands.
type Settings struct {
	Streaming streaming.Config `json:"streaming"`
	Mask      MaskSettings     `json:"mask"`
	Inspect   InspectSettings  `json:"inspect"`
	Flight    FlightSettings   `json:"flight"`
}

// MaskSettings selects an optional base mask. Path wins over Island.
type MaskSettings struct {
	Path       string  `json:"path"` // .mask, .png, .bmp or .tiff
	Island     bool    `json:"island"`
	Resolution int     `json:"resolution"`
	WorldWidth float64 `json:"worldWidth"`
	SizeScale  float64 `json:"sizeScale"`
	Threshold  float64 `json:"threshold"`
	Sentinel   float64 `json:"sentinel"`
}

// InspectSettings configures the debug feed. An empty Addr disables it.
type InspectSettings struct {
	Addr string `json:"addr"`
}

// FlightSettings drives the headless fly-through.
type FlightSettings struct {
	Frames  int     `json:"frames"`
	Speed   float64 `json:"speed"`   // world units per frame
	Heading float64 `json:"heading"` // degrees, 0 = +X
	Force   bool    `json:"force"`   // force-load around the start position
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Streaming: streaming.DefaultConfig(),
		Mask: MaskSettings{
			Resolution: 256,
			WorldWidth: 2048,
			SizeScale:  1,
			Threshold:  mask.DefaultThreshold,
			Sentinel:   mask.DefaultSentinel,
		},
		Flight: FlightSettings{
			Frames: 600,
			Speed:  2,
		},
	}
}

// Load reads settings from a JSON file on top of the defaults. A missing file
// is not an error.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()

	// decoding into the default rules would merge rule fields element-wise
	rules := s.Streaming.Tile.Painter.Rules
	s.Streaming.Tile.Painter.Rules = nil

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.Streaming.Tile.Painter.Rules == nil {
		s.Streaming.Tile.Painter.Rules = rules
	}
	return s, nil
}

// Save writes the settings as indented JSON.
func (s Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Bind attaches the most used settings to the provided FlagSet.
func (s *Settings) Bind(fs *flag.FlagSet) {
	t := &s.Streaming.Tile
	fs.Int64Var(&t.Seed, "seed", t.Seed, "terrain seed")
	fs.Float64Var(&t.Size, "tile-size", t.Size, "tile side in world units")
	fs.IntVar(&t.Segments, "segments", t.Segments, "quads per tile side")
	fs.IntVar(&t.OverlapSegments, "overlap", t.OverlapSegments, "blend margin in segments")
	fs.BoolVar(&t.ShowOverlap, "show-overlap", t.ShowOverlap, "mesh the blend margin too")
	fs.Float64Var(&t.HeightScale, "height-scale", t.HeightScale, "terrain height scale")
	fs.BoolVar(&t.Erosion.Enabled, "erosion", t.Erosion.Enabled, "run hydraulic erosion")
	fs.IntVar(&t.Erosion.Iterations, "iterations", t.Erosion.Iterations, "droplets per tile")
	fs.IntVar(&t.Erosion.Radius, "brush", t.Erosion.Radius, "erosion brush radius, 0 for bilinear")

	st := &s.Streaming
	fs.IntVar(&st.LoadDistance, "load", st.LoadDistance, "load distance in tiles")
	fs.IntVar(&st.UnloadDistance, "unload", st.UnloadDistance, "unload distance in tiles")
	fs.IntVar(&st.DisposeDistance, "dispose", st.DisposeDistance, "dispose distance in tiles, 0 to keep")
	fs.IntVar(&st.MaxTilesPerFrame, "tiles-per-frame", st.MaxTilesPerFrame, "load/unload budget per frame")
	fs.IntVar(&st.MaxBlendsPerFrame, "blends-per-frame", st.MaxBlendsPerFrame, "blend budget per frame")
	fs.DurationVar(&st.SlowFrame, "slow-frame", st.SlowFrame, "log frames slower than this")

	fs.StringVar(&s.Mask.Path, "mask", s.Mask.Path, "base mask file")
	fs.BoolVar(&s.Mask.Island, "island", s.Mask.Island, "generate an island mask")
	fs.StringVar(&s.Inspect.Addr, "inspect", s.Inspect.Addr, "debug feed listen address")

	fs.IntVar(&s.Flight.Frames, "frames", s.Flight.Frames, "frames to simulate")
	fs.Float64Var(&s.Flight.Speed, "speed", s.Flight.Speed, "viewer speed per frame")
	fs.Float64Var(&s.Flight.Heading, "heading", s.Flight.Heading, "viewer heading in degrees")
	fs.BoolVar(&s.Flight.Force, "force", s.Flight.Force, "force-load around the start")
}

// SetLoadDistance changes the load radius, clamped to [1, 32], and pushes
// the unload and dispose radii out to stay valid.
func (s *Settings) SetLoadDistance(d int) {
	d = max(1, min(d, 32))
	st := &s.Streaming
	st.LoadDistance = d
	if st.UnloadDistance <= d {
		st.UnloadDistance = d + 2
	}
	if st.DisposeDistance != 0 && st.DisposeDistance < st.UnloadDistance {
		st.DisposeDistance = st.UnloadDistance * 2
	}
}

// Validate checks every section.
func (s Settings) Validate() error {
	if err := s.Streaming.Validate(); err != nil {
		return err
	}
	m := s.Mask
	if (m.Path != "" || m.Island) && (m.Resolution < 2 || m.WorldWidth <= 0 || m.SizeScale <= 0) {
		return fmt.Errorf("mask: resolution %d, width %v, scale %v: %w", m.Resolution, m.WorldWidth, m.SizeScale, mask.ErrBadMask)
	}
	if s.Flight.Frames < 0 {
		return fmt.Errorf("flight: negative frame count %d", s.Flight.Frames)
	}
	return nil
}

// BuildMask loads or generates the configured mask, or returns nil when none
// is configured.
func (s Settings) BuildMask() (*mask.Mask, error) {
	ms := s.Mask
	var (
		m   *mask.Mask
		err error
	)
	switch {
	case isMaskFile(ms.Path):
		// encoded masks carry their own threshold and sentinel
		f, err := os.Open(ms.Path)
		if err != nil {
			return nil, fmt.Errorf("open mask: %w", err)
		}
		defer f.Close()
		return mask.Decode(f)
	case ms.Path != "":
		m, err = mask.LoadImage(ms.Path, ms.Resolution, ms.WorldWidth, ms.SizeScale)
	case ms.Island:
		m = mask.NewIsland(s.Streaming.Tile.Seed, ms.Resolution, ms.WorldWidth)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.SizeScale = ms.SizeScale
	m.Threshold = ms.Threshold
	m.Sentinel = ms.Sentinel
	return m, nil
}

func isMaskFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mask")
}
