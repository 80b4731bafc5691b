package null

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Command is one recorded backend call.
type Command struct {
	Op    string
	Label string
	// Handle of the object the command targets, when there is one.
	Handle uint32
	// Draw arguments or pass index, depending on Op.
	Args []uint32
}

type texture struct {
	desc   metadata.TextureDescriptor
	pixels []byte
}

/**
 * @brief A backend that performs no GPU work. Every call is recorded so tests
 * can assert on pass order, pipeline use and draw counts. Surface errors and
 * readback pixels can be injected.
 */
type Backend struct {
	mu sync.Mutex

	generation  uint64
	initialized bool
	width       uint32
	height      uint32
	headless    bool

	nextHandle uint32
	buffers    map[uint32]metadata.BufferDescriptor
	textures   map[uint32]*texture
	samplers   map[uint32]metadata.SamplerDescriptor
	layouts    map[uint32]metadata.BindGroupLayoutDescriptor
	groups     map[uint32]metadata.BindGroupDescriptor
	shaders    map[uint32]metadata.ShaderDescriptor
	pipelines  map[uint32]metadata.PipelineDescriptor

	surface     uint32
	frameOpen   bool
	openPass    *pass
	acquireErrs []error
	readback    func(tex metadata.TextureHandle, x, y, w, h uint32) []byte
	shaderErr   error

	commands []Command
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Initialize(config *metadata.RendererBackendConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.generation++
	b.initialized = true
	b.width = config.Width
	b.height = config.Height
	b.headless = config.Headless
	b.nextHandle = 0
	b.buffers = make(map[uint32]metadata.BufferDescriptor)
	b.textures = make(map[uint32]*texture)
	b.samplers = make(map[uint32]metadata.SamplerDescriptor)
	b.layouts = make(map[uint32]metadata.BindGroupLayoutDescriptor)
	b.groups = make(map[uint32]metadata.BindGroupDescriptor)
	b.shaders = make(map[uint32]metadata.ShaderDescriptor)
	b.pipelines = make(map[uint32]metadata.PipelineDescriptor)
	b.surface = 0
	b.frameOpen = false
	b.openPass = nil
	b.record("initialize", config.ApplicationName, 0)
	core.LogDebug("null renderer backend initialized (generation %d)", b.generation)
	return nil
}

func (b *Backend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = false
	b.record("shutdown", "", 0)
	return nil
}

func (b *Backend) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

func (b *Backend) Resized(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = width, height
	b.record("resized", "", 0, width, height)
	return nil
}

func (b *Backend) SurfaceFormat() metadata.TextureFormat {
	return metadata.TextureFormatBGRA8UnormSrgb
}

func (b *Backend) AcquireSurfaceTexture() (metadata.TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return metadata.InvalidHandle, core.ErrNotInitialized
	}
	if len(b.acquireErrs) > 0 {
		err := b.acquireErrs[0]
		b.acquireErrs = b.acquireErrs[1:]
		b.record("acquire_failed", err.Error(), 0)
		return metadata.InvalidHandle, err
	}
	if b.headless {
		return metadata.InvalidHandle, fmt.Errorf("headless backend has no surface: %w", core.ErrRender)
	}
	if b.surface == 0 {
		b.surface = b.newHandle()
	}
	b.textures[b.surface] = &texture{desc: metadata.TextureDescriptor{
		Label:  "surface",
		Width:  b.width,
		Height: b.height,
		Format: metadata.TextureFormatBGRA8UnormSrgb,
		Usage:  metadata.TextureUsageRenderAttachment | metadata.TextureUsageCopySrc,
	}}
	b.record("acquire", "surface", b.surface)
	return metadata.TextureHandle(b.surface), nil
}

func (b *Backend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("present", "", b.surface)
	return nil
}

func (b *Backend) BufferCreate(desc *metadata.BufferDescriptor) (metadata.BufferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.newHandle()
	b.buffers[h] = *desc
	b.record("buffer_create", desc.Label, h)
	return metadata.BufferHandle(h), nil
}

func (b *Backend) BufferWrite(buffer metadata.BufferHandle, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	desc, ok := b.buffers[uint32(buffer)]
	if !ok {
		return fmt.Errorf("write to unknown buffer %d: %w", buffer, core.ErrRender)
	}
	if offset+uint64(len(data)) > metadata.GetAligned(desc.Size, 16) {
		return core.NewRenderError("buffer %s overflow: %d bytes at %d into %d", desc.Label, len(data), offset, desc.Size)
	}
	b.record("buffer_write", desc.Label, uint32(buffer), uint32(len(data)))
	return nil
}

func (b *Backend) BufferDestroy(buffer metadata.BufferHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.buffers[uint32(buffer)]; ok {
		delete(b.buffers, uint32(buffer))
		b.record("buffer_destroy", "", uint32(buffer))
	}
}

func (b *Backend) TextureCreate(desc *metadata.TextureDescriptor) (metadata.TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if desc.Width == 0 || desc.Height == 0 {
		return metadata.InvalidHandle, core.NewRenderError("texture %s has zero size", desc.Label)
	}
	h := b.newHandle()
	b.textures[h] = &texture{desc: *desc}
	b.record("texture_create", desc.Label, h, desc.Width, desc.Height)
	return metadata.TextureHandle(h), nil
}

func (b *Backend) TextureWrite(tex metadata.TextureHandle, pixels []byte, width, height, bytesPerRow uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[uint32(tex)]
	if !ok {
		return fmt.Errorf("write to unknown texture %d: %w", tex, core.ErrRender)
	}
	t.pixels = append(t.pixels[:0], pixels...)
	b.record("texture_write", t.desc.Label, uint32(tex), width, height)
	return nil
}

func (b *Backend) TextureDestroy(tex metadata.TextureHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.textures[uint32(tex)]; ok {
		delete(b.textures, uint32(tex))
		b.record("texture_destroy", "", uint32(tex))
	}
}

func (b *Backend) SamplerCreate(desc *metadata.SamplerDescriptor) (metadata.SamplerHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.newHandle()
	b.samplers[h] = *desc
	b.record("sampler_create", desc.Label, h)
	return metadata.SamplerHandle(h), nil
}

func (b *Backend) SamplerDestroy(sampler metadata.SamplerHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.samplers, uint32(sampler))
}

func (b *Backend) BindGroupLayoutCreate(desc *metadata.BindGroupLayoutDescriptor) (metadata.BindGroupLayoutHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.newHandle()
	b.layouts[h] = *desc
	b.record("layout_create", desc.Label, h)
	return metadata.BindGroupLayoutHandle(h), nil
}

func (b *Backend) BindGroupCreate(desc *metadata.BindGroupDescriptor) (metadata.BindGroupHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	layout, ok := b.layouts[uint32(desc.Layout)]
	if !ok {
		return metadata.InvalidHandle, core.NewRenderError("bind group %s uses unknown layout %d", desc.Label, desc.Layout)
	}
	if len(layout.Entries) != len(desc.Entries) {
		return metadata.InvalidHandle, core.NewRenderError("bind group %s has %d entries, layout %s expects %d",
			desc.Label, len(desc.Entries), layout.Label, len(layout.Entries))
	}
	for _, e := range desc.Entries {
		if e.Buffer == 0 && e.Texture == 0 && e.Sampler == 0 {
			return metadata.InvalidHandle, core.NewRenderError("bind group %s binding %d is empty", desc.Label, e.Binding)
		}
	}
	h := b.newHandle()
	b.groups[h] = *desc
	b.record("bind_group_create", desc.Label, h)
	return metadata.BindGroupHandle(h), nil
}

func (b *Backend) BindGroupDestroy(group metadata.BindGroupHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.groups[uint32(group)]; ok {
		delete(b.groups, uint32(group))
		b.record("bind_group_destroy", "", uint32(group))
	}
}

func (b *Backend) ShaderCreate(desc *metadata.ShaderDescriptor) (metadata.ShaderHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shaderErr != nil {
		return metadata.InvalidHandle, fmt.Errorf("shader %s: %w", desc.Label, b.shaderErr)
	}
	h := b.newHandle()
	b.shaders[h] = *desc
	b.record("shader_create", desc.Label, h)
	return metadata.ShaderHandle(h), nil
}

func (b *Backend) PipelineCreate(desc *metadata.PipelineDescriptor) (metadata.PipelineHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.shaders[uint32(desc.Shader)]; !ok {
		return metadata.InvalidHandle, core.NewRenderError("pipeline %s uses unknown shader", desc.Label)
	}
	h := b.newHandle()
	b.pipelines[h] = *desc
	b.record("pipeline_create", desc.Label, h)
	return metadata.PipelineHandle(h), nil
}

func (b *Backend) PipelineDestroy(pipeline metadata.PipelineHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pipelines, uint32(pipeline))
}

func (b *Backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frameOpen {
		return core.NewRenderError("frame already open")
	}
	b.frameOpen = true
	b.record("begin_frame", "", 0)
	return nil
}

func (b *Backend) RenderPassBegin(desc *metadata.RenderPassDescriptor) (renderer.RenderPass, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.frameOpen {
		return nil, core.NewRenderError("render pass %s outside of a frame", desc.Label)
	}
	if b.openPass != nil {
		return nil, core.NewRenderError("render pass %s begun while %s is open", desc.Label, b.openPass.label)
	}
	for _, c := range desc.Colors {
		if _, ok := b.textures[uint32(c.Texture)]; !ok {
			return nil, core.NewRenderError("render pass %s targets unknown texture %d", desc.Label, c.Texture)
		}
	}
	if desc.DepthStencil != nil {
		if _, ok := b.textures[uint32(desc.DepthStencil.Texture)]; !ok {
			return nil, core.NewRenderError("render pass %s uses unknown depth texture", desc.Label)
		}
	}
	p := &pass{backend: b, label: desc.Label}
	b.openPass = p
	b.record("pass_begin", desc.Label, 0)
	return p, nil
}

func (b *Backend) CopyTexture(src, dst metadata.TextureHandle, width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.textures[uint32(src)]
	d, ok2 := b.textures[uint32(dst)]
	if !ok || !ok2 {
		return core.NewRenderError("copy between unknown textures %d -> %d", src, dst)
	}
	d.pixels = append(d.pixels[:0], s.pixels...)
	b.record("copy_texture", s.desc.Label, uint32(dst), width, height)
	return nil
}

func (b *Backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openPass != nil {
		return core.NewRenderError("frame ended with open pass %s", b.openPass.label)
	}
	b.frameOpen = false
	b.record("end_frame", "", 0)
	return nil
}

func (b *Backend) ReadTexture(tex metadata.TextureHandle, x, y, width, height uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[uint32(tex)]
	if !ok {
		return nil, core.NewRenderError("readback of unknown texture %d", tex)
	}
	b.record("read_texture", t.desc.Label, uint32(tex), x, y, width, height)

	bpp := t.desc.Format.BytesPerPixel()
	size := int(width * height * bpp)
	if b.readback != nil {
		if px := b.readback(tex, x, y, width, height); px != nil {
			out := make([]byte, size)
			copy(out, px)
			return out, nil
		}
	}
	out := make([]byte, size)
	if len(t.pixels) >= int(t.desc.Width*t.desc.Height*bpp) {
		row := width * bpp
		for r := uint32(0); r < height; r++ {
			src := ((y+r)*t.desc.Width + x) * bpp
			copy(out[r*row:(r+1)*row], t.pixels[src:src+row])
		}
	}
	return out, nil
}

func (b *Backend) newHandle() uint32 {
	b.nextHandle++
	return b.nextHandle
}

func (b *Backend) record(op, label string, handle uint32, args ...uint32) {
	b.commands = append(b.commands, Command{Op: op, Label: label, Handle: handle, Args: args})
}

// FailNextAcquire queues errors returned by the next AcquireSurfaceTexture calls.
func (b *Backend) FailNextAcquire(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acquireErrs = append(b.acquireErrs, errs...)
}

// FailShaders makes every ShaderCreate fail with err until cleared with nil.
func (b *Backend) FailShaders(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shaderErr = err
}

// SetReadback installs a pixel source for ReadTexture. Returning nil falls
// back to the texture's written contents.
func (b *Backend) SetReadback(fn func(tex metadata.TextureHandle, x, y, w, h uint32) []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readback = fn
}

// Commands returns a copy of the recorded calls.
func (b *Backend) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Command, len(b.commands))
	copy(out, b.commands)
	return out
}

func (b *Backend) ResetCommands() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = nil
}

// Passes returns the labels of the render passes begun since the last reset, in order.
func (b *Backend) Passes() []string {
	var out []string
	for _, c := range b.Commands() {
		if c.Op == "pass_begin" {
			out = append(out, c.Label)
		}
	}
	return out
}

// Count returns how many commands with op were recorded.
func (b *Backend) Count(op string) int {
	n := 0
	for _, c := range b.Commands() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// LiveObjects returns the number of buffers, textures and bind groups still alive.
func (b *Backend) LiveObjects() (buffers, textures, groups int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffers), len(b.textures), len(b.groups)
}

// TextureDescriptor returns the descriptor a handle was created with.
func (b *Backend) TextureDescriptor(tex metadata.TextureHandle) (metadata.TextureDescriptor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[uint32(tex)]
	if !ok {
		return metadata.TextureDescriptor{}, false
	}
	return t.desc, true
}

// Pipeline returns the descriptor a pipeline was created with.
func (b *Backend) Pipeline(p metadata.PipelineHandle) (metadata.PipelineDescriptor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.pipelines[uint32(p)]
	return d, ok
}

type pass struct {
	backend  *Backend
	label    string
	pipeline metadata.PipelineHandle
	ended    bool
}

func (p *pass) SetPipeline(pipeline metadata.PipelineHandle) {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	p.pipeline = pipeline
	p.backend.record("set_pipeline", p.label, uint32(pipeline))
}

func (p *pass) SetBindGroup(index uint32, group metadata.BindGroupHandle) {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	p.backend.record("set_bind_group", p.label, uint32(group), index)
}

func (p *pass) SetStencilReference(reference uint32) {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	p.backend.record("set_stencil_reference", p.label, 0, reference)
}

func (p *pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	p.backend.record("draw", p.label, uint32(p.pipeline), vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *pass) End() error {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	if p.ended {
		return nil
	}
	p.ended = true
	p.backend.openPass = nil
	p.backend.record("pass_end", p.label, 0)
	return nil
}
