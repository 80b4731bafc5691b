package systems

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"sync"

	"github.com/anthonynsimon/bild/transform"
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/structures"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = structures.DefaultMaterial

/** @brief The side length matcaps are resampled to. */
const DefaultMatcapSize = 128

/** @brief Configuration for the material system. */
type MaterialSystemConfig struct {
	MatcapSize int
}

/**
 * @brief A matcap material: a lit sphere image looked up by view-space normal.
 */
type Material struct {
	Name    string
	Image   *image.RGBA
	Builtin bool

	revision uint64
}

type materialTexture struct {
	handle   metadata.TextureHandle
	revision uint64
}

type materialGroup struct {
	handle      metadata.BindGroupHandle
	matRevision uint64
	cmRevision  uint64
}

/**
 * @brief The matcap store and the owner of the group 2 bind groups pairing
 * a matcap with a colormap.
 */
type MaterialSystem struct {
	Config *MaterialSystemConfig

	mu        sync.RWMutex
	materials map[string]*Material
	warned    map[string]bool

	// GPU state, touched only from the render thread.
	generation  uint64
	sampler     metadata.SamplerHandle
	matcaps     map[string]materialTexture
	colormapTex map[string]materialTexture
	groups      map[[2]string]materialGroup

	shaderSystem   *ShaderSystem
	colormapSystem *ColormapSystem
	backend        renderer.RendererBackend
}

func NewMaterialSystem(config *MaterialSystemConfig, ss *ShaderSystem, cs *ColormapSystem, backend renderer.RendererBackend) (*MaterialSystem, error) {
	if ss == nil || cs == nil || backend == nil {
		err := fmt.Errorf("func NewMaterialSystem - shader system, colormap system and backend are required")
		core.LogError("%s", err)
		return nil, err
	}
	if config == nil {
		config = &MaterialSystemConfig{}
	}
	if config.MatcapSize <= 0 {
		config.MatcapSize = DefaultMatcapSize
	}
	ms := &MaterialSystem{
		Config:         config,
		materials:      make(map[string]*Material),
		warned:         make(map[string]bool),
		shaderSystem:   ss,
		colormapSystem: cs,
		backend:        backend,
	}
	ms.forgetGPU()
	for _, b := range builtinMatcaps {
		img := renderMatcap(b, config.MatcapSize)
		ms.materials[b.name] = &Material{Name: b.name, Image: img, Builtin: true, revision: 1}
	}
	return ms, nil
}

/**
 * @brief Destroys every texture and bind group the system created.
 */
func (ms *MaterialSystem) Shutdown() error {
	ms.releaseGPU()
	return nil
}

/**
 * @brief Registers a matcap image under name, resampled to the configured
 * size. Fails with ErrMaterialExists unless replace is set.
 */
func (ms *MaterialSystem) RegisterMatcap(name string, img image.Image, replace bool) error {
	if name == "" || img == nil {
		return fmt.Errorf("matcap %q: %w", name, core.ErrMaterialLoad)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("matcap %q is empty: %w", name, core.ErrMaterialLoad)
	}
	size := ms.Config.MatcapSize
	resized := transform.Resize(img, size, size, transform.Linear)

	ms.mu.Lock()
	defer ms.mu.Unlock()
	prev, exists := ms.materials[name]
	if exists && !replace {
		return fmt.Errorf("material %q: %w", name, core.ErrMaterialExists)
	}
	rev := uint64(1)
	if exists {
		rev = prev.revision + 1
	}
	ms.materials[name] = &Material{Name: name, Image: resized, revision: rev}
	delete(ms.warned, name)
	core.LogDebug("registered matcap %s (%dx%d)", name, b.Dx(), b.Dy())
	return nil
}

func (ms *MaterialSystem) Get(name string) (*Material, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	m, ok := ms.materials[name]
	return m, ok
}

func (ms *MaterialSystem) Has(name string) bool {
	_, ok := ms.Get(name)
	return ok
}

/**
 * @brief Returns the material, falling back to clay for unknown names.
 */
func (ms *MaterialSystem) Resolve(name string) *Material {
	if m, ok := ms.Get(name); ok {
		return m
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if !ms.warned[name] {
		ms.warned[name] = true
		core.LogWarn("unknown material %q, falling back to %s", name, DefaultMaterialName)
	}
	return ms.materials[DefaultMaterialName]
}

// Names lists the registered materials alphabetically.
func (ms *MaterialSystem) Names() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]string, 0, len(ms.materials))
	for name := range ms.materials {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (ms *MaterialSystem) forgetGPU() {
	ms.generation = 0
	ms.sampler = metadata.InvalidHandle
	ms.matcaps = make(map[string]materialTexture)
	ms.colormapTex = make(map[string]materialTexture)
	ms.groups = make(map[[2]string]materialGroup)
}

func (ms *MaterialSystem) releaseGPU() {
	if ms.generation != 0 && ms.generation == ms.backend.Generation() {
		for _, g := range ms.groups {
			ms.backend.BindGroupDestroy(g.handle)
		}
		for _, t := range ms.matcaps {
			ms.backend.TextureDestroy(t.handle)
		}
		for _, t := range ms.colormapTex {
			ms.backend.TextureDestroy(t.handle)
		}
		if ms.sampler != metadata.InvalidHandle {
			ms.backend.SamplerDestroy(ms.sampler)
		}
	}
	ms.forgetGPU()
}

func (ms *MaterialSystem) ensureGPU() error {
	gen := ms.backend.Generation()
	if gen == ms.generation && ms.sampler != metadata.InvalidHandle {
		return nil
	}
	ms.forgetGPU()
	s, err := ms.backend.SamplerCreate(&metadata.SamplerDescriptor{
		Label:     "material",
		MagFilter: metadata.FilterModeLinear,
		MinFilter: metadata.FilterModeLinear,
	})
	if err != nil {
		return err
	}
	ms.sampler = s
	ms.generation = gen
	return nil
}

func (ms *MaterialSystem) texture(cache map[string]materialTexture, label string, revision uint64, width, height uint32, pixels []byte) (metadata.TextureHandle, error) {
	if t, ok := cache[label]; ok {
		if t.revision == revision {
			return t.handle, nil
		}
		ms.backend.TextureDestroy(t.handle)
		delete(cache, label)
	}
	h, err := ms.backend.TextureCreate(&metadata.TextureDescriptor{
		Label:  label,
		Width:  width,
		Height: height,
		Format: metadata.TextureFormatRGBA8UnormSrgb,
		Usage:  metadata.TextureUsageTextureBinding | metadata.TextureUsageCopyDst,
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}
	if err := ms.backend.TextureWrite(h, pixels, width, height, width*4); err != nil {
		ms.backend.TextureDestroy(h)
		return metadata.InvalidHandle, err
	}
	cache[label] = materialTexture{handle: h, revision: revision}
	return h, nil
}

/**
 * @brief Returns the group 2 bind group for a matcap and colormap pair,
 * uploading textures on first use. Unknown names fall back to clay and the
 * default colormap; an empty colormap selects the default silently.
 */
func (ms *MaterialSystem) MaterialBindGroup(material, colormap string) (metadata.BindGroupHandle, error) {
	if err := ms.ensureGPU(); err != nil {
		return metadata.InvalidHandle, err
	}
	mat := ms.Resolve(material)
	cm, cmName := ms.colormapSystem.Resolve(colormap)
	cmRev := ms.colormapSystem.Revision(cmName)

	key := [2]string{mat.Name, cmName}
	if g, ok := ms.groups[key]; ok {
		if g.matRevision == mat.revision && g.cmRevision == cmRev {
			return g.handle, nil
		}
		ms.backend.BindGroupDestroy(g.handle)
		delete(ms.groups, key)
	}

	size := uint32(mat.Image.Bounds().Dx())
	matTex, err := ms.texture(ms.matcaps, "matcap_"+mat.Name, mat.revision, size, uint32(mat.Image.Bounds().Dy()), mat.Image.Pix)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	cmTex, err := ms.texture(ms.colormapTex, "colormap_"+cmName, cmRev, ColormapResolution, 1, cm.Pixels())
	if err != nil {
		return metadata.InvalidHandle, err
	}
	h, err := ms.backend.BindGroupCreate(&metadata.BindGroupDescriptor{
		Label:  fmt.Sprintf("material_%s_%s", mat.Name, cmName),
		Layout: ms.shaderSystem.Layout(metadata.LayoutKindMaterial),
		Entries: []metadata.BindGroupEntry{
			{Binding: 0, Texture: matTex},
			{Binding: 1, Texture: cmTex},
			{Binding: 2, Sampler: ms.sampler},
		},
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}
	ms.groups[key] = materialGroup{handle: h, matRevision: mat.revision, cmRevision: cmRev}
	return h, nil
}

type matcapRecipe struct {
	name      string
	base      math.Vec3
	ambient   float32
	specular  float32
	shininess float32
	normal    bool
}

// Built-in matcaps are lit spheres rendered at start-up.
var builtinMatcaps = []matcapRecipe{
	{name: "clay", base: math.NewVec3(0.86, 0.82, 0.78), ambient: 0.35, specular: 0.12, shininess: 8},
	{name: "wax", base: math.NewVec3(0.94, 0.88, 0.80), ambient: 0.45, specular: 0.45, shininess: 24},
	{name: "candy", base: math.NewVec3(0.96, 0.96, 0.96), ambient: 0.30, specular: 0.85, shininess: 64},
	{name: "flat", base: math.NewVec3(1, 1, 1), ambient: 1},
	{name: "mud", base: math.NewVec3(0.62, 0.55, 0.48), ambient: 0.30, specular: 0.05, shininess: 4},
	{name: "ceramic", base: math.NewVec3(0.95, 0.95, 0.97), ambient: 0.35, specular: 0.6, shininess: 48},
	{name: "jade", base: math.NewVec3(0.60, 0.85, 0.65), ambient: 0.40, specular: 0.5, shininess: 32},
	{name: "normal", normal: true},
}

func renderMatcap(r matcapRecipe, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	light := math.NewVec3(-0.4, 0.5, 0.77).Normalized()
	view := math.NewVec3(0, 0, 1)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			u := (float32(x)+0.5)/float32(size)*2 - 1
			v := 1 - (float32(y)+0.5)/float32(size)*2
			d := u*u + v*v
			if d > 1 {
				// Outside the sphere: reuse the rim so sampling never hits black.
				l := math32.Sqrt(d)
				u, v, d = u/l, v/l, 1
			}
			n := math.NewVec3(u, v, math32.Sqrt(math32.Max(0, 1-d)))
			var c math.Vec3
			if r.normal {
				c = n.MulScalar(0.5).Add(math.NewVec3(0.5, 0.5, 0.5))
			} else {
				diffuse := math32.Max(n.Dot(light), 0)
				refl := n.MulScalar(2 * n.Dot(light)).Sub(light)
				spec := float32(0)
				if r.specular > 0 {
					spec = r.specular * math32.Pow(math32.Max(refl.Dot(view), 0), r.shininess)
				}
				c = r.base.MulScalar(r.ambient + (1-r.ambient)*diffuse).Add(math.NewVec3(spec, spec, spec))
			}
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(math.Clamp(c.X, 0, 1)*255 + 0.5),
				G: uint8(math.Clamp(c.Y, 0, 1)*255 + 0.5),
				B: uint8(math.Clamp(c.Z, 0, 1)*255 + 0.5),
				A: 255,
			})
		}
	}
	return img
}
