package systems

import (
	"sync"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/views"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Queues pick requests for the next frame and applies the result to
 * the scene selection once the frame is resolved. At most one pick is
 * pending; a newer click replaces an older one.
 */
type PickingSystem struct {
	mu      sync.Mutex
	pending *views.PickRequest

	last    views.PickResult
	hasLast bool
	// Called with every resolved pick, hit or miss.
	OnPick func(result views.PickResult)
	// When false a resolved pick leaves the selection alone.
	UpdateSelection bool
}

func NewPickingSystem() *PickingSystem {
	return &PickingSystem{UpdateSelection: true}
}

/** @brief Requests a pick at pixel (x, y) of the output, y growing downwards. */
func (ps *PickingSystem) Request(x, y uint32) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.pending = &views.PickRequest{X: x, Y: y}
}

func (ps *PickingSystem) Pending() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.pending != nil
}

// take hands the pending request to the frame being built.
func (ps *PickingSystem) take() *views.PickRequest {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	req := ps.pending
	ps.pending = nil
	return req
}

/**
 * @brief Stores a resolved pick and selects the hit structure, or clears the
 * selection when the click hit the background.
 */
func (ps *PickingSystem) complete(ctx *scene.Context, result views.PickResult) {
	ps.mu.Lock()
	ps.last, ps.hasLast = result, true
	update, cb := ps.UpdateSelection, ps.OnPick
	ps.mu.Unlock()

	if update && ctx != nil {
		if result.Hit {
			if !ctx.Select(result.Type, result.Name, int(result.Element)) {
				core.LogDebug("picked %s/%s is no longer registered", result.Type, result.Name)
			}
		} else {
			ctx.ClearSelection()
		}
	}
	if cb != nil {
		cb(result)
	}
}

/** @brief The most recent resolved pick. */
func (ps *PickingSystem) Last() (views.PickResult, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.last, ps.hasLast
}
