package engine

import (
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/systems"
)

/**
 * @brief The application driving the viewer. Every callback is optional.
 */
type Game struct {
	ApplicationConfig *ApplicationConfig
	// Set by the engine before FnInitialize runs.
	SystemManager *systems.SystemManager
	State         interface{}
	FnInitialize  Initialize
	FnUpdate      Update
	FnOnResize    OnResize
	FnShutdown    Shutdown
}

// Initialize runs once the scene context and every system exist.
type Initialize func() error

// Update runs once per frame with exclusive access to the scene.
type Update func(ctx *scene.Context, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
