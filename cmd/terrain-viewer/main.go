// Command terrain-viewer renders the streamed terrain in an OpenGL window.
//
// WASD moves, mouse looks, Space/Shift rise and sink, F toggles wireframe,
// [ and ] change the load distance, Esc releases the cursor.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"

	"terrastream/internal/cache"
	"terrastream/internal/config"
	"terrastream/internal/graphics"
	"terrastream/internal/mask"
	"terrastream/internal/profiling"
	"terrastream/internal/streaming"
)

func init() { runtime.LockOSThread() }

const (
	winW = 1280
	winH = 720

	moveSpeed   = 60.0 // world units per second
	mouseFactor = 0.1  // degrees per pixel
	eyeHeight   = 3.0
)

type viewer struct {
	window   *glfw.Window
	scene    *graphics.Scene
	camera   *graphics.Camera
	settings config.Settings
	store    *cache.Store
	mask     *mask.Mask
	prof     *profiling.Profiler
	log      *log.Logger
	manager  *streaming.Manager

	captured   bool
	firstMouse bool
	lastX      float64
	lastY      float64
}

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	settings, err := config.Load("settings.json")
	if err != nil {
		logger.Fatalf("settings: %v", err)
	}
	fs := flag.NewFlagSet("terrain-viewer", flag.ExitOnError)
	settings.Bind(fs)
	fs.Parse(os.Args[1:])
	if err := settings.Validate(); err != nil {
		logger.Fatalf("settings: %v", err)
	}
	msk, err := settings.BuildMask()
	if err != nil {
		logger.Fatalf("mask: %v", err)
	}

	if err := glfw.Init(); err != nil {
		logger.Fatalf("glfw: %v", err)
	}
	window, err := setupWindow()
	if err != nil {
		glfw.Terminate()
		logger.Fatalf("window: %v", err)
	}
	scene, err := graphics.NewScene()
	if err != nil {
		glfw.Terminate()
		logger.Fatalf("scene: %v", err)
	}

	v := &viewer{
		window:     window,
		scene:      scene,
		camera:     graphics.NewCamera(winW, winH),
		settings:   settings,
		store:      cache.NewStore(),
		mask:       msk,
		prof:       profiling.New(),
		log:        logger,
		captured:   true,
		firstMouse: true,
	}
	if err := v.rebuildManager(); err != nil {
		logger.Fatalf("tile manager: %v", err)
	}
	st := v.manager.ForceLoadAll(0, 0)
	logger.Printf("Spawn area ready: %d tiles in %v", st.Loaded, st.Duration)
	if h, ok := v.manager.HeightAt(0, 0); ok {
		v.camera.Position[1] = float32(h) + 40
	}

	// GL resources are released on the main thread before closer runs
	closer.Bind(func() {
		logger.Printf("Erosion runs: %d", v.store.ErosionRuns())
	})
	v.setupInput()
	v.run()

	v.manager.Dispose()
	scene.Delete()
	glfw.Terminate()
	closer.Close()
}

func setupWindow() (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(winW, winH, "terrastream", nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, err
	}
	glfw.SwapInterval(1)
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)
	return window, nil
}

// rebuildManager swaps in a manager for the current settings. The cache
// store is kept, so tiles seen before reload without re-eroding.
func (v *viewer) rebuildManager() error {
	m, err := streaming.New(v.settings.Streaming, streaming.Options{
		Store:    v.store,
		Scene:    v.scene,
		Mask:     v.mask,
		Logger:   v.log,
		Profiler: v.prof,
	})
	if err != nil {
		return err
	}
	if v.manager != nil {
		v.manager.UnloadAll()
	}
	v.manager = m
	return nil
}

func (v *viewer) setupInput() {
	v.window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !v.captured {
			return
		}
		if v.firstMouse {
			v.lastX, v.lastY = xpos, ypos
			v.firstMouse = false
			return
		}
		dx, dy := xpos-v.lastX, v.lastY-ypos
		v.lastX, v.lastY = xpos, ypos
		v.camera.Turn(float32(dx*mouseFactor), float32(dy*mouseFactor))
	})

	v.window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		gl.Viewport(0, 0, int32(width), int32(height))
		v.camera.Resize(width, height)
	})

	v.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyF:
			v.scene.Wireframe = !v.scene.Wireframe
		case glfw.KeyLeftBracket, glfw.KeyRightBracket:
			d := v.settings.Streaming.LoadDistance - 1
			if key == glfw.KeyRightBracket {
				d += 2
			}
			v.settings.SetLoadDistance(d)
			if err := v.rebuildManager(); err != nil {
				v.log.Printf("Load distance %d rejected: %v", d, err)
				return
			}
			v.log.Printf("Load distance %d", v.settings.Streaming.LoadDistance)
		case glfw.KeyEscape:
			v.captured = !v.captured
			if v.captured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
				v.firstMouse = true
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
	})
}

func (v *viewer) move(dt float64) {
	step := float32(moveSpeed * dt)
	var forward, right, up float32
	if v.window.GetKey(glfw.KeyW) == glfw.Press {
		forward += step
	}
	if v.window.GetKey(glfw.KeyS) == glfw.Press {
		forward -= step
	}
	if v.window.GetKey(glfw.KeyD) == glfw.Press {
		right += step
	}
	if v.window.GetKey(glfw.KeyA) == glfw.Press {
		right -= step
	}
	if v.window.GetKey(glfw.KeySpace) == glfw.Press {
		up += step
	}
	if v.window.GetKey(glfw.KeyLeftShift) == glfw.Press {
		up -= step
	}
	v.camera.Move(forward, right, up)

	pos := v.camera.Position
	if h, ok := v.manager.HeightAt(float64(pos[0]), float64(pos[2])); ok && float64(pos[1]) < h+eyeHeight {
		v.camera.Position[1] = float32(h + eyeHeight)
	}
}

func (v *viewer) run() {
	sky := v.scene.FogColor
	gl.ClearColor(sky[0], sky[1], sky[2], 1)

	frames := 0
	lastTitle := time.Now()
	lastTime := time.Now()
	for !v.window.ShouldClose() {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		v.move(dt)
		pos := v.camera.Position
		st := v.manager.Update(float64(pos[0]), float64(pos[2]))

		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		func() {
			defer v.prof.Track("graphics.Draw")()
			v.scene.Draw(v.camera)
		}()
		v.window.SwapBuffers()
		glfw.PollEvents()
		frames++

		if time.Since(lastTitle) >= time.Second {
			v.window.SetTitle(fmt.Sprintf("terrastream | %d fps | tile %d,%d | %d meshes | queued %d/%d/%d",
				frames, st.Viewer.X, st.Viewer.Z, v.scene.Meshes(),
				st.Pending.Loads, st.Pending.Unloads, st.Pending.Blends))
			frames = 0
			lastTitle = time.Now()
		}
	}
}
