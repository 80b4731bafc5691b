package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const bufferAlignment = 16

var _ renderer.RendererBackend = (*Backend)(nil)

func (b *Backend) BufferCreate(desc *metadata.BufferDescriptor) (metadata.BufferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return metadata.InvalidHandle, core.ErrNotInitialized
	}
	size := metadata.GetAligned(desc.Size, bufferAlignment)
	if size == 0 {
		size = bufferAlignment
	}
	usage := bufferUsage(desc.Usage)
	if desc.Usage&metadata.BufferUsageMapRead == 0 {
		usage |= wgpu.BufferUsageCopyDst
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{Label: desc.Label, Size: size, Usage: usage})
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("%w: buffer %s: %w", core.ErrOutOfMemory, desc.Label, err)
	}
	h := b.newHandle()
	b.buffers[h] = &buffer{buf: buf, size: size}
	return metadata.BufferHandle(h), nil
}

func (b *Backend) BufferWrite(handle metadata.BufferHandle, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[uint32(handle)]
	if !ok {
		return core.NewRenderError("write to unknown buffer %d", handle)
	}
	// Queue writes move whole words.
	if len(data)%4 != 0 {
		padded := make([]byte, metadata.GetAligned(uint64(len(data)), 4))
		copy(padded, data)
		data = padded
	}
	if offset%4 != 0 || offset+uint64(len(data)) > buf.size {
		return core.NewRenderError("buffer write of %d bytes at %d overflows %d", len(data), offset, buf.size)
	}
	if len(data) == 0 {
		return nil
	}
	b.queue.WriteBuffer(buf.buf, offset, data)
	return nil
}

func (b *Backend) BufferDestroy(handle metadata.BufferHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if buf, ok := b.buffers[uint32(handle)]; ok {
		buf.buf.Release()
		delete(b.buffers, uint32(handle))
	}
}

func (b *Backend) TextureCreate(desc *metadata.TextureDescriptor) (metadata.TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return metadata.InvalidHandle, core.ErrNotInitialized
	}
	if desc.Width == 0 || desc.Height == 0 {
		return metadata.InvalidHandle, core.NewRenderError("texture %s has zero size", desc.Label)
	}
	format := textureFormat(desc.Format)
	if format == wgpu.TextureFormatUndefined {
		return metadata.InvalidHandle, core.NewRenderError("texture %s has no format", desc.Label)
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Usage:         textureUsage(desc.Usage),
		Dimension:     wgpu.TextureDimension2D,
		Size:          wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("%w: texture %s: %w", core.ErrOutOfMemory, desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return metadata.InvalidHandle, core.NewRenderError("texture view %s: %s", desc.Label, err)
	}
	h := b.newHandle()
	b.textures[h] = &texture{tex: tex, view: view, desc: *desc}
	return metadata.TextureHandle(h), nil
}

func (b *Backend) TextureWrite(handle metadata.TextureHandle, pixels []byte, width, height, bytesPerRow uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[uint32(handle)]
	if !ok {
		return core.NewRenderError("write to unknown texture %d", handle)
	}
	if uint64(len(pixels)) < uint64(bytesPerRow)*uint64(height) {
		return core.NewSizeMismatch(int(bytesPerRow*height), len(pixels))
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: t.tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
		pixels,
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: bytesPerRow, RowsPerImage: height},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	return nil
}

func (b *Backend) TextureDestroy(handle metadata.TextureHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if uint32(handle) == b.surfaceHandle {
		return
	}
	if t, ok := b.textures[uint32(handle)]; ok {
		t.release()
		delete(b.textures, uint32(handle))
	}
}

func (b *Backend) SamplerCreate(desc *metadata.SamplerDescriptor) (metadata.SamplerHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return metadata.InvalidHandle, core.ErrNotInitialized
	}
	mode := addressMode(desc.AddressMode)
	s, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  mode,
		AddressModeV:  mode,
		AddressModeW:  mode,
		MagFilter:     filterMode(desc.MagFilter),
		MinFilter:     filterMode(desc.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
		Compare:       compareFunction(desc.Compare),
	})
	if err != nil {
		return metadata.InvalidHandle, core.NewRenderError("sampler %s: %s", desc.Label, err)
	}
	h := b.newHandle()
	b.samplers[h] = s
	return metadata.SamplerHandle(h), nil
}

func (b *Backend) SamplerDestroy(handle metadata.SamplerHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.samplers[uint32(handle)]; ok {
		s.Release()
		delete(b.samplers, uint32(handle))
	}
}

func (b *Backend) BindGroupLayoutCreate(desc *metadata.BindGroupLayoutDescriptor) (metadata.BindGroupLayoutHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return metadata.InvalidHandle, core.ErrNotInitialized
	}
	entries := make([]wgpu.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entries[i] = layoutEntry(e)
	}
	l, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: desc.Label, Entries: entries})
	if err != nil {
		return metadata.InvalidHandle, core.NewRenderError("bind group layout %s: %s", desc.Label, err)
	}
	h := b.newHandle()
	b.layouts[h] = l
	return metadata.BindGroupLayoutHandle(h), nil
}

func (b *Backend) BindGroupCreate(desc *metadata.BindGroupDescriptor) (metadata.BindGroupHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	layout, ok := b.layouts[uint32(desc.Layout)]
	if !ok {
		return metadata.InvalidHandle, core.NewRenderError("bind group %s: unknown layout %d", desc.Label, desc.Layout)
	}
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != metadata.InvalidHandle:
			buf, ok := b.buffers[uint32(e.Buffer)]
			if !ok {
				return metadata.InvalidHandle, core.NewRenderError("bind group %s: unknown buffer %d", desc.Label, e.Buffer)
			}
			entry.Buffer = buf.buf
			entry.Offset = e.Offset
			entry.Size = e.Size
			if entry.Size == 0 {
				entry.Size = wgpu.WholeSize
			}
		case e.Texture != metadata.InvalidHandle:
			t, ok := b.textures[uint32(e.Texture)]
			if !ok {
				return metadata.InvalidHandle, core.NewRenderError("bind group %s: unknown texture %d", desc.Label, e.Texture)
			}
			entry.TextureView = t.view
		case e.Sampler != metadata.InvalidHandle:
			s, ok := b.samplers[uint32(e.Sampler)]
			if !ok {
				return metadata.InvalidHandle, core.NewRenderError("bind group %s: unknown sampler %d", desc.Label, e.Sampler)
			}
			entry.Sampler = s
		default:
			return metadata.InvalidHandle, core.NewRenderError("bind group %s: binding %d is empty", desc.Label, e.Binding)
		}
		entries[i] = entry
	}
	g, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{Label: desc.Label, Layout: layout, Entries: entries})
	if err != nil {
		return metadata.InvalidHandle, core.NewRenderError("bind group %s: %s", desc.Label, err)
	}
	h := b.newHandle()
	b.groups[h] = g
	return metadata.BindGroupHandle(h), nil
}

func (b *Backend) BindGroupDestroy(handle metadata.BindGroupHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g, ok := b.groups[uint32(handle)]; ok {
		g.Release()
		delete(b.groups, uint32(handle))
	}
}

func (b *Backend) ShaderCreate(desc *metadata.ShaderDescriptor) (metadata.ShaderHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return metadata.InvalidHandle, core.ErrNotInitialized
	}
	m, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Source},
	})
	if err != nil {
		return metadata.InvalidHandle, core.NewRenderError("shader %s: %s", desc.Label, err)
	}
	h := b.newHandle()
	b.shaders[h] = m
	return metadata.ShaderHandle(h), nil
}

func (b *Backend) PipelineCreate(desc *metadata.PipelineDescriptor) (metadata.PipelineHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	module, ok := b.shaders[uint32(desc.Shader)]
	if !ok {
		return metadata.InvalidHandle, core.NewRenderError("pipeline %s: unknown shader %d", desc.Label, desc.Shader)
	}
	layouts := make([]*wgpu.BindGroupLayout, len(desc.Layouts))
	for i, h := range desc.Layouts {
		l, ok := b.layouts[uint32(h)]
		if !ok {
			return metadata.InvalidHandle, core.NewRenderError("pipeline %s: unknown layout %d at group %d", desc.Label, h, i)
		}
		layouts[i] = l
	}
	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{Label: desc.Label, BindGroupLayouts: layouts})
	if err != nil {
		return metadata.InvalidHandle, core.NewRenderError("pipeline layout %s: %s", desc.Label, err)
	}

	var fragment *wgpu.FragmentState
	if desc.FragmentEntry != "" {
		targets := make([]wgpu.ColorTargetState, len(desc.Targets))
		for i, t := range desc.Targets {
			targets[i] = colorTarget(t)
		}
		fragment = &wgpu.FragmentState{Module: module, EntryPoint: desc.FragmentEntry, Targets: targets}
	}
	p, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{Module: module, EntryPoint: desc.VertexEntry},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(desc.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(desc.CullMode),
		},
		DepthStencil: depthStencil(desc.DepthStencil),
		Multisample:  wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Fragment:     fragment,
	})
	if err != nil {
		layout.Release()
		return metadata.InvalidHandle, core.NewRenderError("pipeline %s: %s", desc.Label, err)
	}
	h := b.newHandle()
	b.pipelines[h] = &pipeline{pipeline: p, layout: layout}
	return metadata.PipelineHandle(h), nil
}

func (b *Backend) PipelineDestroy(handle metadata.PipelineHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pipelines[uint32(handle)]; ok {
		p.pipeline.Release()
		p.layout.Release()
		delete(b.pipelines, uint32(handle))
	}
}

/**
 * @brief Copies a texture region into a mappable buffer, waits for the
 * device and returns the rows without their copy padding.
 */
func (b *Backend) ReadTexture(handle metadata.TextureHandle, x, y, width, height uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.textures[uint32(handle)]
	if !ok {
		return nil, core.NewRenderError("readback of unknown texture %d", handle)
	}
	bpp := t.desc.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, core.NewRenderError("texture %s (%s) cannot be read back", t.desc.Label, t.desc.Format)
	}
	if x+width > t.desc.Width || y+height > t.desc.Height || width == 0 || height == 0 {
		return nil, core.NewRenderError("readback region %dx%d at %d,%d is outside %s", width, height, x, y, t.desc.Label)
	}
	pitch := metadata.PaddedBytesPerRow(width, bpp)
	size := uint64(pitch) * uint64(height)

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: readback buffer: %w", core.ErrOutOfMemory, err)
	}
	defer staging.Release()

	aspect := wgpu.TextureAspectAll
	if t.desc.Format.IsDepth() {
		aspect = wgpu.TextureAspectDepthOnly
	}
	enc, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "readback"})
	if err != nil {
		return nil, core.NewRenderError("readback encoder: %s", err)
	}
	enc.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: t.tex, Origin: wgpu.Origin3D{X: x, Y: y}, Aspect: aspect},
		&wgpu.ImageCopyBuffer{Buffer: staging, Layout: wgpu.TextureDataLayout{BytesPerRow: pitch, RowsPerImage: height}},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	cmd, err := enc.Finish(nil)
	enc.Release()
	if err != nil {
		return nil, core.NewRenderError("readback: %s", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()

	mapped := false
	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		mapped = true
	}); err != nil {
		return nil, core.NewRenderError("readback map: %s", err)
	}
	b.device.Poll(true, nil)
	if !mapped || status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, core.NewRenderError("readback map failed with status %d", status)
	}
	view := staging.GetMappedRange(0, uint(size))
	padded := make([]byte, len(view))
	copy(padded, view)
	staging.Unmap()
	return metadata.UnpadRows(padded, width, height, bpp), nil
}
