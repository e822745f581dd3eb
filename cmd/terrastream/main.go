// Command terrastream flies a viewer across the terrain without a window and
// reports what the tile manager did.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/xlab/closer"

	"terrastream/internal/config"
	"terrastream/internal/inspect"
	"terrastream/internal/mask"
	"terrastream/internal/profiling"
	"terrastream/internal/streaming"
)

type options struct {
	configPath string
	savePath   string
	maskOut    string
	settings   config.Settings
}

func parseFlags(args []string) (*options, error) {
	// the settings file is applied first so flags override it
	path := configPath(args)
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	opts := &options{settings: settings}
	fs := flag.NewFlagSet("terrastream", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", path, "settings file")
	fs.StringVar(&opts.savePath, "save-config", "", "write the effective settings to this file and exit")
	fs.StringVar(&opts.maskOut, "export-mask", "", "write the configured mask to this file")
	opts.settings.Bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, opts.settings.Validate()
}

func configPath(args []string) string {
	for i, a := range args {
		a = strings.TrimPrefix(a, "-")
		a = strings.TrimPrefix(a, "-")
		if a == "config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "config="); ok {
			return v
		}
	}
	return "settings.json"
}

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Fatalf("settings: %v", err)
	}
	s := opts.settings
	if opts.savePath != "" {
		if err := s.Save(opts.savePath); err != nil {
			logger.Fatalf("save settings: %v", err)
		}
		return
	}

	msk, err := s.BuildMask()
	if err != nil {
		logger.Fatalf("mask: %v", err)
	}
	if opts.maskOut != "" {
		if err := exportMask(msk, opts.maskOut); err != nil {
			logger.Fatalf("export mask: %v", err)
		}
	}

	prof := profiling.New()
	m, err := streaming.New(s.Streaming, streaming.Options{
		Mask:     msk,
		Logger:   logger,
		Profiler: prof,
	})
	if err != nil {
		logger.Fatalf("tile manager: %v", err)
	}

	var hub *inspect.Hub
	var srv *http.Server
	if s.Inspect.Addr != "" {
		hub = inspect.NewHub(logger)
		srv = &http.Server{Addr: s.Inspect.Addr, Handler: hub.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("inspect server: %v", err)
			}
		}()
		logger.Printf("Inspect feed on http://%s/ws", s.Inspect.Addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	closer.Bind(func() {
		cancel()
		<-done
		if srv != nil {
			stopServer(logger, srv, time.Second)
		}
		report(logger, m, prof)
		m.Dispose()
	})

	go func() {
		fly(ctx, logger, m, hub, prof, s.Flight)
		close(done)
		closer.Close()
	}()
	closer.Hold()
}

// fly moves the viewer in a straight line, one Update per frame. With an
// inspect feed attached it paces itself to 60 frames per second.
// stopServer shuts srv down, giving open connections up to timeout.
func stopServer(logger *log.Logger, srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("inspect server shutdown: %v", err)
	}
}

func fly(ctx context.Context, logger *log.Logger, m *streaming.Manager, hub *inspect.Hub, prof *profiling.Profiler, f config.FlightSettings) {
	heading := f.Heading * math.Pi / 180
	dx, dz := math.Cos(heading)*f.Speed, math.Sin(heading)*f.Speed
	x, z := 0.0, 0.0

	if f.Force {
		st := m.ForceLoadAll(x, z)
		logger.Printf("Force loaded %d tiles, %d blends in %v", st.Loaded, st.Blended, st.Duration)
	}

	var tick <-chan time.Time
	if hub != nil {
		t := time.NewTicker(time.Second / 60)
		defer t.Stop()
		tick = t.C
	}

	for i := 0; i < f.Frames; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		}
		st := m.Update(x, z)
		if hub != nil {
			hub.Publish(st, m.LoadedTiles(), prof.Counters())
		}
		x += dx
		z += dz
	}
}

func report(logger *log.Logger, m *streaming.Manager, prof *profiling.Profiler) {
	stats := m.Store().Stats()
	pending := m.Pending()
	logger.Printf("Tiles loaded: %d, pending loads %d, unloads %d, blends %d",
		len(m.LoadedTiles()), pending.Loads, pending.Unloads, pending.Blends)
	logger.Printf("Counters: loaded=%d unloaded=%d blended=%d disposed=%d erosion runs=%d",
		prof.Counter("tiles.loaded"), prof.Counter("tiles.unloaded"),
		prof.Counter("tiles.blended"), prof.Counter("tiles.disposed"), m.Store().ErosionRuns())
	logger.Printf("Cache: raw=%d eroded=%d blended=%d results=%d geometry=%d",
		stats.Raw, stats.Eroded, stats.Blended, stats.Results, stats.Geometry)
	if c, ok := m.Viewer(); ok {
		size := m.Config().Tile.Size
		cx, cz := (float64(c.X)+0.5)*size, (float64(c.Z)+0.5)*size
		if h, ok := m.HeightAt(cx, cz); ok {
			logger.Printf("Height at viewer tile centre (%.1f, %.1f): %.3f", cx, cz, h)
		}
	}
}

func exportMask(m *mask.Mask, path string) error {
	if m == nil {
		return fmt.Errorf("no mask configured")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
