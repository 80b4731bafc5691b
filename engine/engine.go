package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/null"
	"github.com/spaghettifunk/prism/engine/renderer/vulkan"
	"github.com/spaghettifunk/prism/engine/renderer/webgpu"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine shut down; Initialize may run again
	EngineStageShutDown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *ApplicationConfig
	isRunning     bool
	isSuspended   bool
	platform      *platform.Platform
	backend       renderer.RendererBackend
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	width         uint32
	height        uint32
	clock         *core.Clock
	metrics       *core.FrameMetrics
	lastTime      float64
}

/**
 * @brief Creates the engine for g. The backend is chosen by the config's
 * renderer name unless one is passed in.
 */
func New(g *Game, backend renderer.RendererBackend) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("func New - game is required")
	}
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	config := g.ApplicationConfig
	if backend == nil {
		switch renderer.ParseRendererType(config.Renderer) {
		case renderer.Null:
			backend = null.New()
		default:
			backend = webgpu.New()
		}
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		backend:      backend,
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		width:        config.StartWidth,
		height:       config.StartHeight,
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) SystemManager() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Metrics() *core.FrameMetrics {
	return e.metrics
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized && e.currentStage != EngineStageShutDown {
		return core.ErrAlreadyInitialized
	}
	e.currentStage = EngineStageInitializing
	config := e.config
	core.SetLogLevel(core.ParseLogLevel(config.LogLevel))

	if err := scene.Init(config.Options); err != nil {
		e.currentStage = EngineStageUninitialized
		return err
	}

	var window interface{}
	if !config.Headless {
		e.platform = platform.New()
		if err := e.platform.Startup(config.Name, config.StartPosX, config.StartPosY, config.StartWidth, config.StartHeight); err != nil {
			e.abortInitialize()
			return err
		}
		window = e.platform.Window
		if w, h := e.platform.FramebufferSize(); w > 0 && h > 0 {
			e.width, e.height = w, h
		}
	}

	power := config.powerPreference()
	if power == metadata.PowerPreferenceDefault && !config.Headless {
		power = e.probeAdapters()
	}

	sm, err := systems.NewSystemManager(&systems.SystemManagerConfig{
		Renderer: systems.RendererSystemConfig{
			ApplicationName: config.Name,
			Width:           e.width,
			Height:          e.height,
			Headless:        config.Headless,
			VSync:           config.VSync,
			Window:          window,
			PowerPreference: power,
		},
		Shaders:             systems.ShaderSystemConfig{SkipValidation: config.SkipShaderValidation},
		ScreenshotDirectory: config.ScreenshotDirectory,
	}, e.backend)
	if err != nil {
		e.abortInitialize()
		return err
	}
	if err := sm.Initialize(); err != nil {
		e.abortInitialize()
		return err
	}
	e.systemManager = sm
	e.gameInstance.SystemManager = sm

	am, err := assets.NewAssetManager(sm.MaterialSystem, sm.ColormapSystem)
	if err != nil {
		e.abortInitialize()
		return err
	}
	am.OnChange = func(assets.AssetInfo) {
		if e.platform != nil {
			e.platform.RequestRedraw()
		}
	}
	if err := am.Initialize(config.MaterialDirectory, config.ColormapDirectory); err != nil {
		core.LogWarn("asset watcher not started: %s", err)
	}
	e.assetManager = am

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			e.abortInitialize()
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			e.abortInitialize()
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("%s initialized (%s renderer, %dx%d)", config.Name, renderer.ParseRendererType(config.Renderer), e.width, e.height)
	return nil
}

// probeAdapters asks for the high performance adapter when a discrete GPU is present.
func (e *Engine) probeAdapters() metadata.PowerPreference {
	adapters, err := vulkan.ListAdapters(e.config.Name)
	if err != nil {
		core.LogDebug("adapter probe skipped: %s", err)
		return metadata.PowerPreferenceDefault
	}
	for _, a := range adapters {
		core.LogInfo("GPU: %s", a)
	}
	return choosePowerPreference(adapters)
}

func choosePowerPreference(adapters []vulkan.AdapterInfo) metadata.PowerPreference {
	for _, a := range adapters {
		if a.Type == "discrete" {
			return metadata.PowerPreferenceHighPerformance
		}
	}
	return metadata.PowerPreferenceDefault
}

func (e *Engine) abortInitialize() {
	e.release()
	e.currentStage = EngineStageUninitialized
}

/**
 * @brief Runs the loop until the window closes. A headless engine renders
 * the configured number of frames, writes the screenshot if one was asked
 * for and returns.
 */
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return core.ErrNotInitialized
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	if e.config.Headless {
		return e.runHeadless()
	}

	for e.isRunning {
		frameStart := time.Now()
		if err := e.Frame(e.platform.PumpMessages()); err != nil {
			core.LogError("frame failed, shutting down: %s", err)
			e.isRunning = false
			return err
		}
		e.limitFrameRate(frameStart)
	}
	return nil
}

func (e *Engine) runHeadless() error {
	for i := 0; i < e.config.HeadlessFrames && e.isRunning; i++ {
		if err := e.Frame(nil); err != nil {
			return err
		}
	}
	if e.config.ScreenshotPath == "" {
		return nil
	}
	done := make(chan error, 1)
	err := scene.With(func(ctx *scene.Context) error {
		return e.systemManager.ScreenshotSystem.Save(ctx, e.config.ScreenshotPath, false, func(_ string, err error) {
			done <- err
		})
	})
	if err != nil {
		return err
	}
	return <-done
}

/**
 * @brief Runs one iteration of the loop: handles the events, updates the
 * game and input, then draws if anything asked for a frame.
 */
func (e *Engine) Frame(events []core.EventContext) error {
	if e.systemManager == nil {
		return core.ErrNotInitialized
	}
	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime
	e.lastTime = currentTime
	frameStart := time.Now()

	input := e.systemManager.InputSystem
	err := scene.With(func(ctx *scene.Context) error {
		for _, event := range events {
			e.onEvent(event)
			input.OnEvent(ctx, event)
		}
		if input.CloseRequested() {
			e.isRunning = false
			return nil
		}
		if e.isSuspended {
			return nil
		}
		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(ctx, delta); err != nil {
				return fmt.Errorf("game update: %w", err)
			}
		}
		input.Update(delta)

		if _, err := e.systemManager.RendererSystem.DrawFrame(ctx); err != nil {
			return err
		}
		input.TakeRedraw()
		return nil
	})
	if err != nil {
		return err
	}
	e.metrics.Update(time.Since(frameStart).Seconds())
	return nil
}

func (e *Engine) limitFrameRate(frameStart time.Time) {
	var maxFPS int
	_ = scene.WithRead(func(ctx *scene.Context) error {
		maxFPS = ctx.Options.MaxFps
		return nil
	})
	target := core.TargetFrameSeconds(maxFPS)
	if target == 0 {
		return
	}
	remaining := time.Duration(target*float64(time.Second)) - time.Since(frameStart)
	if remaining > time.Millisecond {
		time.Sleep(remaining)
	}
}

func (e *Engine) onEvent(event core.EventContext) {
	switch event.Type {
	case core.EVENT_CODE_KEY_PRESSED:
		if ke, ok := event.Data.(*core.KeyEvent); ok && ke.KeyCode == core.KEY_ESCAPE {
			core.LogInfo("escape pressed, shutting down")
			e.isRunning = false
		}
	case core.EVENT_CODE_RESIZED:
		re, ok := event.Data.(*core.ResizeEvent)
		if !ok || (re.Width == e.width && re.Height == e.height) {
			return
		}
		e.width, e.height = re.Width, re.Height
		core.LogDebug("window resize: %d, %d", re.Width, re.Height)
		if re.Width == 0 || re.Height == 0 {
			core.LogInfo("window minimized, suspending application")
			e.isSuspended = true
			return
		}
		if e.isSuspended {
			core.LogInfo("window restored, resuming application")
			e.isSuspended = false
		}
		if e.gameInstance.FnOnResize != nil {
			if err := e.gameInstance.FnOnResize(re.Width, re.Height); err != nil {
				core.LogError("game resize: %s", err)
			}
		}
	}
}

func (e *Engine) IsRunning() bool {
	return e.isRunning
}

// Stop makes Run return after the current frame.
func (e *Engine) Stop() {
	e.isRunning = false
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

/**
 * @brief Stops the loop and releases everything. Safe to call more than
 * once; a later Initialize starts over with a fresh scene and device.
 */
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageUninitialized || e.currentStage == EngineStageShutDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false
	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	errs = append(errs, e.release())
	e.currentStage = EngineStageShutDown
	return errors.Join(errs...)
}

func (e *Engine) release() error {
	var errs []error
	if e.assetManager != nil {
		errs = append(errs, e.assetManager.Shutdown())
		e.assetManager = nil
	}
	if ctx := scene.Shutdown(); ctx != nil && e.systemManager != nil {
		e.systemManager.RendererSystem.ReleaseScene(ctx)
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
		e.systemManager = nil
		e.gameInstance.SystemManager = nil
	}
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
		e.platform = nil
	}
	return errors.Join(errs...)
}
