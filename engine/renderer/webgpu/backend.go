package webgpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type texture struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
	desc metadata.TextureDescriptor
}

func (t *texture) release() {
	if t.view != nil {
		t.view.Release()
	}
	if t.tex != nil {
		t.tex.Release()
	}
}

type buffer struct {
	buf  *wgpu.Buffer
	size uint64
}

type pipeline struct {
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.PipelineLayout
}

/**
 * @brief The wgpu implementation of the renderer backend. Objects live in
 * handle tables owned by the backend; a new Initialize creates a new device
 * and bumps the generation so every holder rebuilds its objects.
 */
type Backend struct {
	mu sync.Mutex

	config     metadata.RendererBackendConfig
	generation uint64
	nextHandle uint32

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	alphaMode     wgpu.CompositeAlphaMode
	width, height uint32
	// Stable handle of the swapchain texture; its entry is replaced every acquire.
	surfaceHandle uint32

	buffers   map[uint32]*buffer
	textures  map[uint32]*texture
	samplers  map[uint32]*wgpu.Sampler
	layouts   map[uint32]*wgpu.BindGroupLayout
	groups    map[uint32]*wgpu.BindGroup
	shaders   map[uint32]*wgpu.ShaderModule
	pipelines map[uint32]*pipeline

	encoder *wgpu.CommandEncoder
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) resetTables() {
	b.buffers = make(map[uint32]*buffer)
	b.textures = make(map[uint32]*texture)
	b.samplers = make(map[uint32]*wgpu.Sampler)
	b.layouts = make(map[uint32]*wgpu.BindGroupLayout)
	b.groups = make(map[uint32]*wgpu.BindGroup)
	b.shaders = make(map[uint32]*wgpu.ShaderModule)
	b.pipelines = make(map[uint32]*pipeline)
	b.surfaceHandle = 0
}

func (b *Backend) Initialize(config *metadata.RendererBackendConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseDevice()
	b.config = *config
	b.width, b.height = config.Width, config.Height
	b.resetTables()

	if b.instance == nil {
		b.instance = wgpu.CreateInstance(nil)
	}
	if !config.Headless {
		window, ok := config.Window.(*glfw.Window)
		if !ok || window == nil {
			return core.NewRenderError("a glfw window is required unless running headless")
		}
		b.surface = b.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))
	}

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:   powerPreference(config.PowerPreference),
		CompatibleSurface: b.surface,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: config.ApplicationName + " device"})
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	if b.surface != nil {
		caps := b.surface.GetCapabilities(b.adapter)
		format, ok := chooseSurfaceFormat(caps.Formats)
		if !ok {
			return core.NewRenderError("the surface offers no usable format")
		}
		b.surfaceFormat = format
		b.presentMode = choosePresentMode(caps.PresentModes, config.VSync)
		b.alphaMode = wgpu.CompositeAlphaModeAuto
		if len(caps.AlphaModes) > 0 {
			b.alphaMode = caps.AlphaModes[0]
		}
		b.configureSurface()
	} else {
		b.surfaceFormat = wgpu.TextureFormatRGBA8UnormSrgb
	}

	b.generation++
	core.LogInfo("wgpu backend initialized (generation %d, %dx%d, headless=%t)", b.generation, b.width, b.height, config.Headless)
	return nil
}

func (b *Backend) configureSurface() {
	if b.surface == nil || b.width == 0 || b.height == 0 {
		return
	}
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       b.width,
		Height:      b.height,
		PresentMode: b.presentMode,
		AlphaMode:   b.alphaMode,
	})
}

// releaseDevice drops every object and the device itself. The instance survives.
func (b *Backend) releaseDevice() {
	if b.encoder != nil {
		b.encoder.Release()
		b.encoder = nil
	}
	for _, p := range b.pipelines {
		p.pipeline.Release()
		p.layout.Release()
	}
	for _, s := range b.shaders {
		s.Release()
	}
	for _, g := range b.groups {
		g.Release()
	}
	for _, l := range b.layouts {
		l.Release()
	}
	for _, s := range b.samplers {
		s.Release()
	}
	for _, t := range b.textures {
		t.release()
	}
	for _, buf := range b.buffers {
		buf.buf.Release()
	}
	b.resetTables()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
}

func (b *Backend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseDevice()
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	core.LogInfo("wgpu backend shut down")
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
	if b.device != nil {
		b.configureSurface()
	}
	return nil
}

func (b *Backend) SurfaceFormat() metadata.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f := fromTextureFormat(b.surfaceFormat); f != metadata.TextureFormatUndefined {
		return f
	}
	return metadata.TextureFormatRGBA8UnormSrgb
}

func (b *Backend) newHandle() uint32 {
	b.nextHandle++
	if b.nextHandle == metadata.InvalidHandle {
		b.nextHandle++
	}
	return b.nextHandle
}

func (b *Backend) dropSurfaceTexture() {
	if b.surfaceHandle == 0 {
		return
	}
	if t, ok := b.textures[b.surfaceHandle]; ok {
		t.release()
		delete(b.textures, b.surfaceHandle)
	}
}

func (b *Backend) AcquireSurfaceTexture() (metadata.TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return metadata.InvalidHandle, core.ErrNotInitialized
	}
	if b.surface == nil {
		return metadata.InvalidHandle, fmt.Errorf("headless backend has no surface: %w", core.ErrRender)
	}
	b.dropSurfaceTexture()
	tex, err := b.surface.GetCurrentTexture()
	if err != nil {
		return metadata.InvalidHandle, surfaceError(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return metadata.InvalidHandle, core.NewRenderError("surface view: %s", err)
	}
	if b.surfaceHandle == 0 {
		b.surfaceHandle = b.newHandle()
	}
	b.textures[b.surfaceHandle] = &texture{tex: tex, view: view, desc: metadata.TextureDescriptor{
		Label:  "surface",
		Width:  b.width,
		Height: b.height,
		Format: fromTextureFormat(b.surfaceFormat),
		Usage:  metadata.TextureUsageRenderAttachment,
	}}
	return metadata.TextureHandle(b.surfaceHandle), nil
}

func (b *Backend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil || b.surfaceHandle == 0 {
		return nil
	}
	if _, ok := b.textures[b.surfaceHandle]; !ok {
		return nil
	}
	b.surface.Present()
	b.dropSurfaceTexture()
	return nil
}

func (b *Backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return core.ErrNotInitialized
	}
	if b.encoder != nil {
		return core.NewRenderError("frame already open")
	}
	enc, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "frame"})
	if err != nil {
		return core.NewRenderError("command encoder: %s", err)
	}
	b.encoder = enc
	return nil
}

func (b *Backend) RenderPassBegin(desc *metadata.RenderPassDescriptor) (renderer.RenderPass, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.encoder == nil {
		return nil, core.NewRenderError("render pass %s outside a frame", desc.Label)
	}
	rp := &wgpu.RenderPassDescriptor{Label: desc.Label}
	for _, c := range desc.Colors {
		t, ok := b.textures[uint32(c.Texture)]
		if !ok {
			return nil, core.NewRenderError("render pass %s: unknown color target %d", desc.Label, c.Texture)
		}
		rp.ColorAttachments = append(rp.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:    t.view,
			LoadOp:  loadOp(c.LoadOp),
			StoreOp: storeOp(c.StoreOp),
			ClearValue: wgpu.Color{
				R: float64(c.ClearColor.X),
				G: float64(c.ClearColor.Y),
				B: float64(c.ClearColor.Z),
				A: float64(c.ClearColor.W),
			},
		})
	}
	if ds := desc.DepthStencil; ds != nil {
		t, ok := b.textures[uint32(ds.Texture)]
		if !ok {
			return nil, core.NewRenderError("render pass %s: unknown depth target %d", desc.Label, ds.Texture)
		}
		att := &wgpu.RenderPassDepthStencilAttachment{View: t.view}
		if ds.DepthReadOnly {
			att.DepthReadOnly = true
		} else {
			att.DepthLoadOp = loadOp(ds.DepthLoadOp)
			att.DepthStoreOp = wgpu.StoreOpStore
			att.DepthClearValue = ds.DepthClearValue
		}
		if t.desc.Format.HasStencil() {
			att.StencilLoadOp = loadOp(ds.StencilLoadOp)
			att.StencilStoreOp = wgpu.StoreOpStore
			att.StencilClearValue = ds.StencilClearValue
		}
		rp.DepthStencilAttachment = att
	}
	return &renderPass{backend: b, label: desc.Label, encoder: b.encoder.BeginRenderPass(rp)}, nil
}

func (b *Backend) CopyTexture(src, dst metadata.TextureHandle, width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.textures[uint32(src)]
	d, ok2 := b.textures[uint32(dst)]
	if !ok || !ok2 {
		return core.NewRenderError("copy between unknown textures %d -> %d", src, dst)
	}
	if b.encoder == nil {
		return core.NewRenderError("texture copy outside a frame")
	}
	b.encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: s.tex, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: d.tex, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	return nil
}

func (b *Backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.encoder == nil {
		return core.NewRenderError("no frame to end")
	}
	enc := b.encoder
	b.encoder = nil
	defer enc.Release()
	cmd, err := enc.Finish(nil)
	if err != nil {
		return core.NewRenderError("finish frame: %s", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()
	return nil
}

/** @brief Records draws into one wgpu render pass. */
type renderPass struct {
	backend *Backend
	label   string
	encoder *wgpu.RenderPassEncoder
	ended   bool
}

func (p *renderPass) SetPipeline(handle metadata.PipelineHandle) {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	if pl, ok := p.backend.pipelines[uint32(handle)]; ok {
		p.encoder.SetPipeline(pl.pipeline)
	}
}

func (p *renderPass) SetBindGroup(index uint32, handle metadata.BindGroupHandle) {
	p.backend.mu.Lock()
	defer p.backend.mu.Unlock()
	if g, ok := p.backend.groups[uint32(handle)]; ok {
		p.encoder.SetBindGroup(index, g, nil)
	}
}

func (p *renderPass) SetStencilReference(reference uint32) {
	p.encoder.SetStencilReference(reference)
}

func (p *renderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.encoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *renderPass) End() error {
	if p.ended {
		return core.NewRenderError("render pass %s ended twice", p.label)
	}
	p.ended = true
	p.encoder.End()
	p.encoder.Release()
	return nil
}
