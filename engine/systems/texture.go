package systems

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of render targets that can be alive at once. */
	MaxTargetCount uint32
}

/**
 * @brief An offscreen texture owned by the texture system and shared between
 * passes by name.
 */
type RenderTarget struct {
	Name string
	// Unique label handed to the backend, so GPU captures tell generations apart.
	Label  string
	Handle metadata.TextureHandle
	Desc   metadata.TextureDescriptor
}

/**
 * @brief Allocates the render targets of the frame. A target is recreated
 * whenever its size, format or usage changes, and after a device change.
 */
type TextureSystem struct {
	Config *TextureSystemConfig
	// Registered targets by name.
	targets    map[string]*RenderTarget
	generation uint64

	backend renderer.RendererBackend
}

func NewTextureSystem(config *TextureSystemConfig, backend renderer.RendererBackend) (*TextureSystem, error) {
	if config == nil || config.MaxTargetCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTargetCount must be > 0")
		core.LogError("%s", err)
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("func NewTextureSystem - backend is required")
	}
	return &TextureSystem{
		Config:  config,
		targets: make(map[string]*RenderTarget),
		backend: backend,
	}, nil
}

func (ts *TextureSystem) Shutdown() error {
	ts.ReleaseAll()
	return nil
}

func (ts *TextureSystem) checkGeneration() {
	if gen := ts.backend.Generation(); gen != ts.generation {
		// The old device took its textures with it.
		ts.targets = make(map[string]*RenderTarget)
		ts.generation = gen
	}
}

/**
 * @brief Returns the target called name with the requested shape, creating
 * or recreating it as needed.
 */
func (ts *TextureSystem) Target(name string, width, height uint32, format metadata.TextureFormat, usage metadata.TextureUsage) (metadata.TextureHandle, error) {
	ts.checkGeneration()
	if width == 0 || height == 0 {
		return metadata.InvalidHandle, core.NewRenderError("render target %s has zero size", name)
	}
	if t, ok := ts.targets[name]; ok {
		if t.Desc.Width == width && t.Desc.Height == height && t.Desc.Format == format && t.Desc.Usage == usage {
			return t.Handle, nil
		}
		ts.backend.TextureDestroy(t.Handle)
		delete(ts.targets, name)
	}
	if uint32(len(ts.targets)) >= ts.Config.MaxTargetCount {
		return metadata.InvalidHandle, core.NewRenderError("render target %s exceeds the limit of %d targets", name, ts.Config.MaxTargetCount)
	}

	t := &RenderTarget{
		Name:  name,
		Label: fmt.Sprintf("%s_%s", name, uuid.NewString()[:8]),
	}
	t.Desc = metadata.TextureDescriptor{
		Label:  t.Label,
		Width:  width,
		Height: height,
		Format: format,
		Usage:  usage,
	}
	h, err := ts.backend.TextureCreate(&t.Desc)
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("render target %s: %w", name, err)
	}
	t.Handle = h
	ts.targets[name] = t
	core.LogDebug("render target %s created (%dx%d %s)", t.Label, width, height, format)
	return h, nil
}

// Lookup returns an existing target without changing it.
func (ts *TextureSystem) Lookup(name string) (metadata.TextureHandle, bool) {
	ts.checkGeneration()
	t, ok := ts.targets[name]
	if !ok {
		return metadata.InvalidHandle, false
	}
	return t.Handle, true
}

func (ts *TextureSystem) Describe(name string) (RenderTarget, bool) {
	t, ok := ts.targets[name]
	if !ok {
		return RenderTarget{}, false
	}
	return *t, true
}

func (ts *TextureSystem) Release(name string) {
	ts.checkGeneration()
	if t, ok := ts.targets[name]; ok {
		ts.backend.TextureDestroy(t.Handle)
		delete(ts.targets, name)
	}
}

func (ts *TextureSystem) ReleaseAll() {
	if ts.generation == ts.backend.Generation() {
		for _, t := range ts.targets {
			ts.backend.TextureDestroy(t.Handle)
		}
	}
	ts.targets = make(map[string]*RenderTarget)
}

// Names lists the live targets alphabetically.
func (ts *TextureSystem) Names() []string {
	out := make([]string, 0, len(ts.targets))
	for name := range ts.targets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
