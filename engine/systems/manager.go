package systems

import (
	"runtime"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
)

type SystemManagerConfig struct {
	Renderer RendererSystemConfig
	Shaders  ShaderSystemConfig
	Input    *InputSystemConfig
	// Background workers for screenshot encoding; 0 picks one per two CPUs.
	Workers int
	// Directory screenshots land in when saved without a path.
	ScreenshotDirectory string
}

/**
 * @brief Owns every engine system and wires them to one backend.
 */
type SystemManager struct {
	JobSystem        *JobSystem
	CameraSystem     *CameraSystem
	ColormapSystem   *ColormapSystem
	ShaderSystem     *ShaderSystem
	TextureSystem    *TextureSystem
	MaterialSystem   *MaterialSystem
	RenderViewSystem *RenderViewSystem
	PickingSystem    *PickingSystem
	RendererSystem   *RendererSystem
	InputSystem      *InputSystem
	ScreenshotSystem *ScreenshotSystem
}

func NewSystemManager(config *SystemManagerConfig, backend renderer.RendererBackend) (*SystemManager, error) {
	workers := config.Workers
	if workers <= 0 {
		workers = max(1, runtime.NumCPU()/2)
	}
	js, err := NewJobSystem(workers, 16)
	if err != nil {
		return nil, err
	}
	cs, err := NewCameraSystem(&CameraSystemConfig{
		MaxCameraCount: 64,
	})
	if err != nil {
		return nil, err
	}
	cms, err := NewColormapSystem(&ColormapSystemConfig{})
	if err != nil {
		return nil, err
	}
	shaderConfig := config.Shaders
	ssys, err := NewShaderSystem(&shaderConfig, backend)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTargetCount: 64,
	}, backend)
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MatcapSize: DefaultMatcapSize,
	}, ssys, cms, backend)
	if err != nil {
		return nil, err
	}
	rvs, err := NewRenderViewSystem(&RenderViewSystemConfig{
		MaxViewCount: 32,
	}, backend)
	if err != nil {
		return nil, err
	}
	if err := rvs.RegisterBuiltins(); err != nil {
		return nil, err
	}
	ps := NewPickingSystem()

	rendererConfig := config.Renderer
	rs, err := NewRendererSystem(&rendererConfig, backend, RendererSystems{
		Shaders:     ssys,
		Materials:   ms,
		Colormaps:   cms,
		Targets:     ts,
		RenderViews: rvs,
		Cameras:     cs,
		Picking:     ps,
	})
	if err != nil {
		return nil, err
	}
	shots, err := NewScreenshotSystem(rs, js)
	if err != nil {
		return nil, err
	}
	if config.ScreenshotDirectory != "" {
		shots.Directory = config.ScreenshotDirectory
	}

	return &SystemManager{
		JobSystem:        js,
		CameraSystem:     cs,
		ColormapSystem:   cms,
		ShaderSystem:     ssys,
		TextureSystem:    ts,
		MaterialSystem:   ms,
		RenderViewSystem: rvs,
		PickingSystem:    ps,
		RendererSystem:   rs,
		InputSystem:      NewInputSystem(config.Input, rs, cs, ps),
		ScreenshotSystem: shots,
	}, nil
}

/** @brief Creates the device and compiles the shaders. */
func (sm *SystemManager) Initialize() error {
	return sm.RendererSystem.Initialize()
}

/**
 * @brief Shuts the systems down in reverse order of creation, the backend
 * last. Pending screenshots are written first.
 */
func (sm *SystemManager) Shutdown() error {
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.RenderViewSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.MaterialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.TextureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.ShaderSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.ColormapSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.CameraSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.RendererSystem.Shutdown(); err != nil {
		return err
	}
	core.LogDebug("systems shut down")
	return nil
}
