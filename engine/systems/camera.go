package systems

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
)

/** @brief Margin applied when the camera frames the scene. */
const CameraFitMargin float32 = 1.2

type CameraSystem struct {
	Config  *CameraSystemConfig
	Lookup  map[string]*components.CameraLookup
	nextID  uint16
	// A default, non-registered camera that always exists as a fallback.
	DefaultCamera *components.Camera
	// The camera frames are rendered with.
	active *components.Camera
}

/** @brief The camera system configuration. */
type CameraSystemConfig struct {
	/**
	 * @brief NOTE: The maximum number of cameras that can be managed by
	 * the system.
	 */
	MaxCameraCount uint16
}

/**
 * @brief Initializes the camera system with the default camera active.
 */
func NewCameraSystem(config *CameraSystemConfig) (*CameraSystem, error) {
	if config == nil || config.MaxCameraCount == 0 {
		err := fmt.Errorf("func NewCameraSystem - config.MaxCameraCount must be > 0")
		core.LogError("%s", err)
		return nil, err
	}
	cs := &CameraSystem{
		Config:        config,
		Lookup:        make(map[string]*components.CameraLookup, config.MaxCameraCount),
		DefaultCamera: components.NewCamera(),
	}
	cs.active = cs.DefaultCamera
	return cs, nil
}

func (cs *CameraSystem) Shutdown() error {
	cs.Lookup = make(map[string]*components.CameraLookup, cs.Config.MaxCameraCount)
	cs.active = cs.DefaultCamera
	return nil
}

/**
 * @brief Acquires a camera by name, creating it on first use. The internal
 * reference counter is incremented.
 */
func (cs *CameraSystem) Acquire(name string) (*components.Camera, error) {
	if name == components.DEFAULT_CAMERA_NAME {
		return cs.DefaultCamera, nil
	}
	entry, ok := cs.Lookup[name]
	if !ok {
		if len(cs.Lookup) >= int(cs.Config.MaxCameraCount) {
			err := fmt.Errorf("func CameraSystemAcquire failed to acquire new slot. Adjust camera system config to allow more")
			core.LogError("%s", err)
			return nil, err
		}
		core.LogDebug("Creating new camera named '%s'...", name)
		cs.nextID++
		entry = &components.CameraLookup{ID: cs.nextID, Camera: components.NewCamera()}
		cs.Lookup[name] = entry
	}
	entry.ReferenceCount++
	return entry.Camera, nil
}

/**
 * @brief Releases a camera with the given name. When the counter reaches 0
 * the camera is dropped; if it was active the default camera takes over.
 */
func (cs *CameraSystem) Release(name string) {
	if name == components.DEFAULT_CAMERA_NAME {
		core.LogDebug("Cannot release default camera. Nothing was done.")
		return
	}
	entry, ok := cs.Lookup[name]
	if !ok {
		core.LogWarn("CameraSystemRelease failed lookup for '%s'. Nothing was done.", name)
		return
	}
	if entry.ReferenceCount > 0 {
		entry.ReferenceCount--
	}
	if entry.ReferenceCount == 0 {
		if cs.active == entry.Camera {
			cs.active = cs.DefaultCamera
		}
		delete(cs.Lookup, name)
	}
}

func (cs *CameraSystem) GetDefault() *components.Camera {
	return cs.DefaultCamera
}

/** @brief The camera the next frame is rendered from. */
func (cs *CameraSystem) Active() *components.Camera {
	return cs.active
}

/** @brief Makes the named camera active. The default camera is always valid. */
func (cs *CameraSystem) SetActive(name string) error {
	if name == components.DEFAULT_CAMERA_NAME {
		cs.active = cs.DefaultCamera
		return nil
	}
	entry, ok := cs.Lookup[name]
	if !ok {
		return fmt.Errorf("camera %q is not acquired", name)
	}
	cs.active = entry.Camera
	return nil
}

/**
 * @brief Frames box with the active camera. An empty box frames the unit
 * sphere around the origin.
 */
func (cs *CameraSystem) Fit(box math.Extents3D) {
	if box.IsEmpty() {
		box = math.Extents3D{Min: math.NewVec3(-1, -1, -1), Max: math.NewVec3(1, 1, 1)}
	}
	cs.active.FitToBox(box.Min, box.Max, CameraFitMargin)
}
