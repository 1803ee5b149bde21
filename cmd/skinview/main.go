// Command skinview opens a window and plays the animations of a skinned glTF model.
//
//	skinview -config skinview.toml [-model path.glb] [-fragment path.wgsl]
//
// Space blends to the next clip, Up/Down change playback speed, P pauses and R reloads the
// fragment shader from disk. Drag with the left button to orbit and scroll to zoom.
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/Carmen-Shannon/oxy-skin/engine/animation"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/Carmen-Shannon/oxy-skin/engine/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/core"
	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/profiler"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-skin/engine/watcher"
	"github.com/Carmen-Shannon/oxy-skin/engine/window"
	"github.com/urfave/cli"
)

const (
	blendSeconds = 0.3
	orbitSpeed   = 0.005
	speedStep    = 0.25
)

func main() {
	if err := newApp(run).Run(os.Args); err != nil {
		core.LogError("skinview exited: %v", err)
		os.Exit(1)
	}
}

// newApp builds the command line application. The action resolves the configuration from the
// flags and hands it to start.
func newApp(start func(config.Config) error) *cli.App {
	app := cli.NewApp()
	app.Name = "skinview"
	app.Usage = "play the animations of a skinned glTF model"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to a TOML config file",
		},
		cli.StringFlag{
			Name:  "model",
			Usage: "glTF/GLB model, overrides animation.model",
		},
		cli.StringFlag{
			Name:  "fragment",
			Usage: "WGSL fragment shader, overrides renderer.fragment_shader",
		},
	}
	app.Action = func(ctx *cli.Context) error {
		cfg, err := resolveConfig(ctx.String("config"), ctx.String("model"), ctx.String("fragment"))
		if err != nil {
			return err
		}
		return start(cfg)
	}
	return app
}

// resolveConfig loads the config file when one is given and applies the flag overrides.
func resolveConfig(configPath, modelPath, fragmentPath string) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
	}
	if modelPath != "" {
		cfg.Animation.Model = modelPath
	}
	if fragmentPath != "" {
		cfg.Renderer.FragmentShader = fragmentPath
	}
	return cfg, nil
}

func run(cfg config.Config) error {
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Animation.Model == "" {
		return errors.New("no model given: set animation.model or pass -model")
	}

	mesh, err := loader.LoadAnimatedMesh(cfg.Animation.Model)
	if err != nil {
		return err
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	presentMode := gpu.PresentModeUncapped
	if cfg.Window.VSync {
		presentMode = gpu.PresentModeVSync
	}
	backend, err := gpu.NewWGPUBackend(win.SurfaceDescriptor(),
		gpu.WithSampleCount(gpu.SampleCountFromInt(cfg.Renderer.MSAA)),
		gpu.WithPresentMode(presentMode),
		gpu.WithClearColor(0.08, 0.09, 0.11, 1),
	)
	if err != nil {
		return err
	}
	defer backend.Release()
	if err := backend.ConfigureSurface(win.Width(), win.Height()); err != nil {
		return err
	}

	cam := camera.NewCamera(
		camera.WithFov(float32(45*math.Pi/180)),
		camera.WithAspect(float32(win.Width())/float32(win.Height())),
	)
	cam.FrameRadius(mesh.BoundingRadius())

	ctrlOpts := []animation.ControllerBuilderOption{
		animation.WithCamera(cam),
		animation.WithSpeed(cfg.Animation.Speed),
	}
	switch {
	case cfg.Animation.Clip != "":
		ctrlOpts = append(ctrlOpts, animation.WithClipName(cfg.Animation.Clip, cfg.Animation.LoopEnabled()))
	case len(mesh.Animations()) > 0:
		ctrlOpts = append(ctrlOpts, animation.WithClip(0, cfg.Animation.LoopEnabled()))
	}
	ctrl, err := animation.NewController(mesh, ctrlOpts...)
	if err != nil {
		return err
	}
	pool := animation.NewControllerPool(cfg.Animation.Workers)

	rendererOpts := []renderer.AnimatedMeshRendererBuilderOption{
		renderer.WithMaxBones(cfg.Renderer.MaxBones),
	}
	if cfg.Renderer.FragmentShader != "" {
		src, err := os.ReadFile(cfg.Renderer.FragmentShader)
		if err != nil {
			return fmt.Errorf("read fragment shader: %w", err)
		}
		rendererOpts = append(rendererOpts, renderer.WithCustomFragment(string(src)))
	}
	meshRenderer, err := renderer.NewAnimatedMeshRenderer(backend, mesh, rendererOpts...)
	if err != nil {
		return err
	}
	defer meshRenderer.Release()

	// Shader edits arrive on the watcher goroutine and are applied on the render thread.
	reloads := make(chan string, 1)
	if cfg.Renderer.FragmentShader != "" && cfg.Renderer.WatchShader {
		w, err := watcher.NewShaderWatcher(cfg.Renderer.FragmentShader, func(src string) {
			select {
			case <-reloads:
			default:
			}
			reloads <- src
		})
		if err != nil {
			return err
		}
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Start(ctx)
	}

	win.SetResizeCallback(func(width, height int) {
		if width == 0 || height == 0 {
			return
		}
		if err := backend.ConfigureSurface(width, height); err != nil {
			core.LogError("failed to reconfigure surface: %v", err)
		}
		cam.SetAspect(float32(width) / float32(height))
	})
	win.SetScrollCallback(func(delta float32) {
		cam.Zoom(delta)
	})
	win.SetDragCallback(func(dx, dy float32) {
		cam.Orbit(-dx*orbitSpeed, dy*orbitSpeed)
	})

	pausedSpeed := float32(0)
	win.SetKeyCallback(func(key window.Key) {
		switch key {
		case window.KeySpace:
			if n := len(mesh.Animations()); n > 0 {
				next := (ctrl.Clip() + 1) % n
				if err := ctrl.BlendTo(next, blendSeconds); err != nil {
					core.LogWarn("blend to clip %d failed: %v", next, err)
					return
				}
				core.LogInfo("blending to %s", mesh.Animations()[next].Name)
			}
		case window.KeyUp:
			ctrl.SetSpeed(ctrl.Speed() + speedStep)
		case window.KeyDown:
			ctrl.SetSpeed(ctrl.Speed() - speedStep)
		case window.KeyP:
			speed := ctrl.Speed()
			ctrl.SetSpeed(pausedSpeed)
			pausedSpeed = speed
		case window.KeyR:
			if cfg.Renderer.FragmentShader == "" {
				return
			}
			src, err := os.ReadFile(cfg.Renderer.FragmentShader)
			if err != nil {
				core.LogWarn("failed to read fragment shader: %v", err)
				return
			}
			reloadFragment(meshRenderer, string(src))
		}
	})

	prof := profiler.NewProfiler(0)
	var frameErr error
	win.Run(func(dt float32) bool {
		select {
		case src := <-reloads:
			reloadFragment(meshRenderer, src)
		default:
		}

		pool.Update(dt, ctrl)

		if err := backend.BeginFrame(); err != nil {
			if errors.Is(err, core.ErrSurfaceLost) {
				core.LogWarn("surface lost, reconfiguring: %v", err)
				if err := backend.ConfigureSurface(win.Width(), win.Height()); err != nil {
					frameErr = err
					return false
				}
				return true
			}
			frameErr = err
			return false
		}
		if err := meshRenderer.Render(ctrl); err != nil {
			core.LogError("render failed: %v", err)
		}
		if err := backend.EndFrame(); err != nil {
			frameErr = err
			return false
		}
		backend.Present()
		prof.Tick()
		return true
	})
	return frameErr
}

func reloadFragment(r renderer.AnimatedMeshRenderer, src string) {
	if err := r.ReloadFragment(src); err != nil {
		core.LogWarn("fragment shader rejected, keeping the previous one: %v", err)
		return
	}
	core.LogInfo("fragment shader reloaded")
}
