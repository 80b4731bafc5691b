package systems

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/views"
)

/** @brief The configuration for the render view system. */
type RenderViewSystemConfig struct {
	/** @brief The maximum number of views that can be registered with the system. */
	MaxViewCount uint16
}

/**
 * @brief Holds the passes of the frame and runs them in the order of their
 * known type. A failing view is logged and skipped; the rest of the frame
 * still renders.
 */
type RenderViewSystem struct {
	Config *RenderViewSystemConfig
	Lookup map[string]views.RenderView
	// Registered views sorted by type.
	ordered []views.RenderView
	// Views that ran in the last frame, in order.
	rendered []string
	failed   map[string]error

	backend renderer.RendererBackend
}

func NewRenderViewSystem(config *RenderViewSystemConfig, backend renderer.RendererBackend) (*RenderViewSystem, error) {
	if config == nil || config.MaxViewCount == 0 {
		err := fmt.Errorf("func NewRenderViewSystem - config.MaxViewCount must be > 0")
		core.LogError("%s", err)
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("func NewRenderViewSystem - backend is required")
	}
	return &RenderViewSystem{
		Config:  config,
		Lookup:  make(map[string]views.RenderView, config.MaxViewCount),
		failed:  make(map[string]error),
		backend: backend,
	}, nil
}

/**
 * @brief Registers the built-in passes of the frame.
 */
func (rvs *RenderViewSystem) RegisterBuiltins() error {
	ground := views.NewRenderViewGround()
	builtins := []views.RenderView{
		views.NewRenderViewShadow(),
		views.NewRenderViewPrepass(),
		views.NewRenderViewSsao(),
		views.NewRenderViewWorld(),
		views.NewRenderViewTransparency(),
		views.NewRenderViewReflection(ground),
		ground,
		views.NewRenderViewFloating(),
		views.NewRenderViewSsaa(),
		views.NewRenderViewToneMap(),
		views.NewRenderViewGizmo(),
		views.NewRenderViewPick(),
		views.NewRenderViewUI(),
	}
	for _, v := range builtins {
		if err := rvs.Register(v); err != nil {
			return err
		}
	}
	return nil
}

/**
 * @brief Adds a view. Names are unique.
 */
func (rvs *RenderViewSystem) Register(view views.RenderView) error {
	if view == nil {
		return fmt.Errorf("render view system: nil view")
	}
	name := view.Name()
	if name == "" {
		return fmt.Errorf("render view system: name is required")
	}
	if _, ok := rvs.Lookup[name]; ok {
		return fmt.Errorf("render view system: a view named %q already exists", name)
	}
	if len(rvs.ordered) >= int(rvs.Config.MaxViewCount) {
		return fmt.Errorf("render view system: at most %d views can be registered", rvs.Config.MaxViewCount)
	}
	rvs.Lookup[name] = view
	rvs.ordered = append(rvs.ordered, view)
	sort.SliceStable(rvs.ordered, func(i, j int) bool {
		return rvs.ordered[i].Type() < rvs.ordered[j].Type()
	})
	core.LogDebug("render view %s registered (%s)", name, view.Type())
	return nil
}

func (rvs *RenderViewSystem) Get(name string) (views.RenderView, bool) {
	v, ok := rvs.Lookup[name]
	return v, ok
}

/** @brief Returns the first registered view of a known type. */
func (rvs *RenderViewSystem) OfType(t metadata.RenderViewKnownType) (views.RenderView, bool) {
	for _, v := range rvs.ordered {
		if v.Type() == t {
			return v, true
		}
	}
	return nil, false
}

/** @brief Names of the registered views in execution order. */
func (rvs *RenderViewSystem) Names() []string {
	out := make([]string, len(rvs.ordered))
	for i, v := range rvs.ordered {
		out[i] = v.Name()
	}
	return out
}

/**
 * @brief Records every view with work this frame. Pass errors are logged
 * and skipped; they come back as a map keyed by view name.
 */
func (rvs *RenderViewSystem) OnRender(packet *views.Packet) map[string]error {
	rvs.rendered = rvs.rendered[:0]
	var errs map[string]error
	for _, v := range rvs.ordered {
		if !v.ShouldRender(packet) {
			continue
		}
		if err := v.OnRender(packet); err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[v.Name()] = err
			// Log once per failure streak.
			if prev, ok := rvs.failed[v.Name()]; !ok || prev.Error() != err.Error() {
				core.LogWarn("render view %s failed, skipping it: %s", v.Name(), err)
			}
			rvs.failed[v.Name()] = err
			continue
		}
		delete(rvs.failed, v.Name())
		rvs.rendered = append(rvs.rendered, v.Name())
	}
	return errs
}

/**
 * @brief Runs the readbacks of views that rendered this frame. Called after
 * the frame is submitted.
 */
func (rvs *RenderViewSystem) OnResolve(packet *views.Packet) error {
	for _, name := range rvs.rendered {
		r, ok := rvs.Lookup[name].(views.Resolver)
		if !ok {
			continue
		}
		if err := r.OnResolve(packet); err != nil {
			return fmt.Errorf("render view %s resolve: %w", name, err)
		}
	}
	return nil
}

/** @brief Names of the views that rendered in the last frame. */
func (rvs *RenderViewSystem) Rendered() []string {
	out := make([]string, len(rvs.rendered))
	copy(out, rvs.rendered)
	return out
}

func (rvs *RenderViewSystem) Shutdown() error {
	for _, v := range rvs.ordered {
		v.OnDestroy(rvs.backend)
	}
	rvs.ordered = nil
	rvs.rendered = nil
	rvs.Lookup = make(map[string]views.RenderView, rvs.Config.MaxViewCount)
	return nil
}
