package views

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/shaders"
)

/**
 * @brief Host mirror of FrameUniforms (group 0 of every geometry module).
 */
type FrameUniforms struct {
	View                math.Mat4
	Projection          math.Mat4
	InvViewProjection   math.Mat4
	LightViewProjection math.Mat4
	Reflection          math.Mat4
	CameraPosition      math.Vec3
	LengthScale         float32
	LightDirection      math.Vec3
	ViewportWidth       float32
	ViewportHeight      float32
	Orthographic        bool
	ReflectionPass      bool
	SliceOrigins        []math.Vec3
	SliceNormals        []math.Vec3
}

/**
 * @brief Builds the frame uniforms of the camera in p for a viewport of the
 * given size.
 */
func NewFrameUniforms(p *Packet, width, height uint32) FrameUniforms {
	u := FrameUniforms{
		View:                p.View,
		Projection:          p.Projection,
		InvViewProjection:   p.View.Mul(p.Projection).Inverse(),
		LightViewProjection: p.LightViewProjection,
		Reflection:          math.NewMat4Identity(),
		LengthScale:         p.LengthScale,
		LightDirection:      p.LightDirection.Negate().Normalized(),
		ViewportWidth:       float32(width),
		ViewportHeight:      float32(height),
	}
	if p.Camera != nil {
		u.CameraPosition = p.Camera.GetPosition()
		u.Orthographic = p.Camera.Projection == components.ProjectionOrthographic
	}
	for i, plane := range p.SlicePlanes {
		if i >= shaders.MaxSlicePlanes {
			break
		}
		u.SliceOrigins = append(u.SliceOrigins, plane.Origin)
		u.SliceNormals = append(u.SliceNormals, plane.Normal)
	}
	return u
}

func (u *FrameUniforms) Bytes() []byte {
	w := metadata.NewUniformWriter(shaders.FrameUniformSize).
		Mat4(u.View).
		Mat4(u.Projection).
		Mat4(u.InvViewProjection).
		Mat4(u.LightViewProjection).
		Mat4(u.Reflection).
		Vec4(u.CameraPosition.ToVec4(u.LengthScale)).
		Vec4(u.LightDirection.ToVec4(0))

	var invW, invH float32
	if u.ViewportWidth > 0 {
		invW = 1 / u.ViewportWidth
	}
	if u.ViewportHeight > 0 {
		invH = 1 / u.ViewportHeight
	}
	w.Vec4(math.NewVec4(u.ViewportWidth, u.ViewportHeight, invW, invH))
	w.Vec4(math.NewVec4(float32(len(u.SliceOrigins)), flag(u.Orthographic), flag(u.ReflectionPass), 0))
	for i := 0; i < shaders.MaxSlicePlanes; i++ {
		var o math.Vec3
		if i < len(u.SliceOrigins) {
			o = u.SliceOrigins[i]
		}
		w.Vec4(o.ToVec4(1))
	}
	for i := 0; i < shaders.MaxSlicePlanes; i++ {
		var n math.Vec3
		if i < len(u.SliceNormals) {
			n = u.SliceNormals[i]
		}
		w.Vec4(n.ToVec4(0))
	}
	return w.Bytes()
}

func flag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

/**
 * @brief A pass-owned uniform buffer, an optional sampler and the bind
 * group over them. The group is rebuilt when the device or any of its
 * entries changes.
 */
type uniformGroup struct {
	label   string
	size    uint64
	sampler *metadata.SamplerDescriptor

	res           renderer.GPUResources
	buffer        metadata.BufferHandle
	samplerHandle metadata.SamplerHandle
	group         metadata.BindGroupHandle
	entries       []metadata.BindGroupEntry
}

func newUniformGroup(label string, size uint64, sampler *metadata.SamplerDescriptor) *uniformGroup {
	return &uniformGroup{label: label, size: size, sampler: sampler}
}

// prepare creates the buffer and sampler on the current device.
func (g *uniformGroup) prepare(backend renderer.RendererBackend) error {
	if !g.res.Stale(backend) {
		return nil
	}
	g.destroy(backend)

	b, err := backend.BufferCreate(&metadata.BufferDescriptor{
		Label: g.label + "_uniforms",
		Size:  g.size,
		Usage: metadata.BufferUsageUniform | metadata.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	g.buffer = g.res.AddBuffer(b)
	if g.sampler != nil {
		s, err := backend.SamplerCreate(g.sampler)
		if err != nil {
			backend.BufferDestroy(b)
			g.res.Forget()
			return err
		}
		g.samplerHandle = s
	}
	g.res.Generation = backend.Generation()
	return nil
}

/**
 * @brief Writes data into the uniform buffer and returns the group with the
 * buffer at binding 0 followed by extra.
 */
func (g *uniformGroup) bind(backend renderer.RendererBackend, layout metadata.BindGroupLayoutHandle, data []byte, extra ...metadata.BindGroupEntry) (metadata.BindGroupHandle, error) {
	if err := g.prepare(backend); err != nil {
		return metadata.InvalidHandle, err
	}
	entries := append([]metadata.BindGroupEntry{{Binding: 0, Buffer: g.buffer}}, extra...)
	if g.group == metadata.InvalidHandle || !sameEntries(g.entries, entries) {
		if g.group != metadata.InvalidHandle {
			backend.BindGroupDestroy(g.group)
			g.group = metadata.InvalidHandle
		}
		group, err := backend.BindGroupCreate(&metadata.BindGroupDescriptor{
			Label:   g.label,
			Layout:  layout,
			Entries: entries,
		})
		if err != nil {
			return metadata.InvalidHandle, fmt.Errorf("%s bind group: %w", g.label, err)
		}
		g.group = group
		g.entries = entries
	}
	if err := backend.BufferWrite(g.buffer, 0, data); err != nil {
		return metadata.InvalidHandle, err
	}
	return g.group, nil
}

func (g *uniformGroup) destroy(backend renderer.RendererBackend) {
	if backend != nil && !g.res.Stale(backend) {
		if g.group != metadata.InvalidHandle {
			backend.BindGroupDestroy(g.group)
		}
		if g.samplerHandle != metadata.InvalidHandle {
			backend.SamplerDestroy(g.samplerHandle)
		}
	}
	g.group = metadata.InvalidHandle
	g.samplerHandle = metadata.InvalidHandle
	g.entries = nil
	g.res.Release(backend)
}

func sameEntries(a, b []metadata.BindGroupEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var linearClamp = &metadata.SamplerDescriptor{
	AddressMode: metadata.AddressModeClampToEdge,
	MagFilter:   metadata.FilterModeLinear,
	MinFilter:   metadata.FilterModeLinear,
}

/**
 * @brief The frame uniform group of one pass. Every pass that records
 * geometry owns one, so passes of the same frame never share a buffer.
 */
type frameGroup struct {
	*uniformGroup
}

func newFrameGroup(label string) frameGroup {
	return frameGroup{newUniformGroup(label, shaders.FrameUniformSize, nil)}
}

func (f frameGroup) bindFrame(p *Packet, u *FrameUniforms) (metadata.BindGroupHandle, error) {
	return f.bind(p.Backend, p.Resources.Layout(metadata.LayoutKindFrame), u.Bytes())
}

// structureUniformBytes packs the group 1 uniform block for pass-drawn geometry.
func structureUniformBytes(model math.Mat4, color math.Vec4) []byte {
	return metadata.NewUniformWriter(shaders.StructureUniformSize).
		Mat4(model).
		Mat4(model.Inverse().Transposed()).
		Vec4(color).
		Vec4(math.Vec4{}).
		Vec4(math.Vec4{}).
		Vec4(math.Vec4{}).
		Vec4(math.Vec4{}).
		Vec4(math.Vec4{}).
		Vec4(math.Vec4{}).
		Bytes()
}

/**
 * @brief Geometry a pass draws itself (slice plane squares, gizmo handles)
 * through the structure layout: a uniform block plus the five vertex streams.
 */
type geometryGroup struct {
	label string

	res      renderer.GPUResources
	uniform  metadata.BufferHandle
	streams  [5]metadata.BufferHandle
	capacity int
	group    metadata.BindGroupHandle
	count    uint32
}

/**
 * @brief Uploads uniforms and the position and color streams. The other
 * streams stay zero.
 */
func (g *geometryGroup) upload(p *Packet, uniforms []byte, positions, colors []math.Vec4) error {
	backend := p.Backend
	n := len(positions)
	if n == 0 {
		n = 1
	}
	if g.res.Stale(backend) || n > g.capacity {
		g.destroy(backend)
		if err := g.create(p, n); err != nil {
			g.destroy(backend)
			return err
		}
	}
	if err := backend.BufferWrite(g.uniform, 0, uniforms); err != nil {
		return err
	}
	if len(positions) > 0 {
		if err := backend.BufferWrite(g.streams[0], 0, metadata.Vec4Bytes(positions)); err != nil {
			return err
		}
	}
	if len(colors) > 0 {
		if err := backend.BufferWrite(g.streams[3], 0, metadata.Vec4Bytes(colors)); err != nil {
			return err
		}
	}
	g.count = uint32(len(positions))
	return nil
}

func (g *geometryGroup) create(p *Packet, capacity int) error {
	backend := p.Backend
	u, err := backend.BufferCreate(&metadata.BufferDescriptor{
		Label: g.label + "_uniforms",
		Size:  shaders.StructureUniformSize,
		Usage: metadata.BufferUsageUniform | metadata.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	g.uniform = g.res.AddBuffer(u)
	g.res.Generation = backend.Generation()

	entries := []metadata.BindGroupEntry{{Binding: 0, Buffer: u}}
	for i := range g.streams {
		b, err := backend.BufferCreate(&metadata.BufferDescriptor{
			Label: fmt.Sprintf("%s_stream_%d", g.label, i),
			Size:  uint64(capacity) * 16,
			Usage: metadata.BufferUsageStorage | metadata.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		g.streams[i] = g.res.AddBuffer(b)
		entries = append(entries, metadata.BindGroupEntry{Binding: uint32(i + 1), Buffer: b})
	}
	group, err := backend.BindGroupCreate(&metadata.BindGroupDescriptor{
		Label:   g.label,
		Layout:  p.Resources.StructureLayout(),
		Entries: entries,
	})
	if err != nil {
		return err
	}
	g.group = g.res.AddBindGroup(group)
	g.capacity = capacity
	return nil
}

func (g *geometryGroup) destroy(backend renderer.RendererBackend) {
	g.res.Release(backend)
	g.group = metadata.InvalidHandle
	g.capacity = 0
	g.count = 0
}
