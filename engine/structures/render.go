package structures

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/** @brief A world-space cutting plane; fragments on the positive side are discarded. */
type SlicePlane struct {
	Origin math.Vec3
	Normal math.Vec3
}

/**
 * @brief Pipelines and shared bind groups a structure needs to draw itself.
 * Implemented by the renderer systems.
 */
type FrameResources interface {
	Pipeline(kind metadata.ShaderKind, variant metadata.PassVariant) (metadata.PipelineHandle, error)
	StructureLayout() metadata.BindGroupLayoutHandle
	MaterialBindGroup(material, colormap string) (metadata.BindGroupHandle, error)
}

/**
 * @brief Everything a structure needs to record one pass. Group 0 (frame) and
 * group 3 (pass inputs) are bound by the view before structures draw.
 */
type Frame struct {
	Backend   renderer.RendererBackend
	Pass      renderer.RenderPass
	Variant   metadata.PassVariant
	Resources FrameResources

	View        math.Mat4
	Projection  math.Mat4
	LengthScale float32
	SlicePlanes []SlicePlane
	// Alpha value written by the pick pass for this structure, in [1, 255].
	PickDiscriminator uint32
}

const (
	colorModeBase float32 = iota
	colorModeColor
	colorModeScalar
	colorModeParam
)

/** @brief Per-structure uniform block, mirrored by StructureUniforms in the prelude. */
type structureUniforms struct {
	Model         math.Mat4
	NormalMatrix  math.Mat4
	BaseColor     math.Vec4 // w: opacity
	EdgeColor     math.Vec4 // w: edge width, 0 hides edges
	BackfaceColor math.Vec4 // w: backface policy
	// x: color mode, y: radius, z: pick discriminator, w: style flags
	Params math.Vec4
	ParamA math.Vec4 // xyz: first pattern color, w: period
	ParamB math.Vec4 // xyz: second pattern color, w: pattern style
	ParamC math.Vec4 // xyz: grid line color
}

const structureUniformSize = 2*64 + 7*16

func newStructureUniforms(model math.Mat4, frame *Frame) *structureUniforms {
	return &structureUniforms{
		Model:        model,
		NormalMatrix: model.Inverse().Transposed(),
		Params:       math.NewVec4(colorModeBase, 0, float32(frame.PickDiscriminator), 0),
	}
}

// applyColoring fills the pattern uniforms for a parameterization quantity
// and the color mode for the active coloring quantity.
func (u *structureUniforms) applyColoring(q quantities.Quantity, lengthScale float32) {
	switch c := q.(type) {
	case *quantities.ColorQuantity:
		u.Params.X = colorModeColor
	case *quantities.ScalarQuantity:
		u.Params.X = colorModeScalar
	case *quantities.ParameterizationQuantity:
		u.Params.X = colorModeParam
		u.ParamA = c.ColorA.ToVec4(c.Period(lengthScale))
		u.ParamB = c.ColorB.ToVec4(float32(c.Style))
		u.ParamC = c.GridColor.ToVec4(0)
	default:
		u.Params.X = colorModeBase
	}
}

func (u *structureUniforms) bytes() []byte {
	return metadata.NewUniformWriter(structureUniformSize).
		Mat4(u.Model).
		Mat4(u.NormalMatrix).
		Vec4(u.BaseColor).
		Vec4(u.EdgeColor).
		Vec4(u.BackfaceColor).
		Vec4(u.Params).
		Vec4(u.ParamA).
		Vec4(u.ParamB).
		Vec4(u.ParamC).
		Bytes()
}

// coloringColormap returns the colormap the material bind group should carry.
func coloringColormap(q quantities.Quantity) string {
	switch c := q.(type) {
	case *quantities.ScalarQuantity:
		return c.Colormap
	case *quantities.ParameterizationQuantity:
		return c.Colormap
	}
	return quantities.DefaultColormap
}

/**
 * @brief CPU geometry streamed through storage buffers. Every attribute holds
 * one vec4 per emitted vertex.
 */
type soup struct {
	positions []math.Vec4
	normals   []math.Vec4
	// xyz: edge_is_real of the owning triangle, w: element id
	extra  []math.Vec4
	colors []math.Vec4
	// x: normalized scalar or u, y: v
	data []math.Vec4
	// Entries in every stream.
	count uint32
	// Vertices drawn per entry; 0 means 1. Point impostors and line quads
	// expand each entry in the vertex stage.
	stride uint32
}

func (s *soup) addVertex(p, n math.Vec3, extra, color, data math.Vec4) {
	s.positions = append(s.positions, p.ToVec4(1))
	s.normals = append(s.normals, n.ToVec4(0))
	s.extra = append(s.extra, extra)
	s.colors = append(s.colors, color)
	s.data = append(s.data, data)
	s.count++
}

/**
 * @brief Appends a triangle whose three corners share a normal and element id.
 * edgeReal[i] flags the edge from corner i to corner i+1.
 */
func (s *soup) addTriangle(p [3]math.Vec3, n [3]math.Vec3, edgeReal [3]float32, id uint32, color [3]math.Vec4, data [3]math.Vec4) {
	extra := math.NewVec4(edgeReal[0], edgeReal[1], edgeReal[2], float32(id))
	for i := 0; i < 3; i++ {
		s.addVertex(p[i], n[i], extra, color[i], data[i])
	}
}

/** @brief Appends one point or line endpoint entry. */
func (s *soup) addEntry(p math.Vec3, id uint32, color, data math.Vec4) {
	s.addVertex(p, math.Vec3{}, math.NewVec4(0, 0, 0, float32(id)), color, data)
}

func (s *soup) empty() bool {
	return s.count == 0
}

/**
 * @brief A soup uploaded to the device: one uniform buffer, five storage
 * buffers and the structure bind group over them.
 */
type gpuSoup struct {
	res     renderer.GPUResources
	uniform metadata.BufferHandle
	group   metadata.BindGroupHandle
	count   uint32
}

func uploadSoup(frame *Frame, label string, s *soup) (*gpuSoup, error) {
	backend := frame.Backend
	g := &gpuSoup{count: s.count}
	if s.stride > 1 {
		g.count *= s.stride
	}

	u, err := backend.BufferCreate(&metadata.BufferDescriptor{
		Label: label + "_uniforms",
		Size:  structureUniformSize,
		Usage: metadata.BufferUsageUniform | metadata.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	g.uniform = g.res.AddBuffer(u)

	streams := [][]math.Vec4{s.positions, s.normals, s.extra, s.colors, s.data}
	names := []string{"positions", "normals", "extra", "colors", "data"}
	entries := []metadata.BindGroupEntry{{Binding: 0, Buffer: u}}
	for i, stream := range streams {
		if len(stream) == 0 {
			// Bindings must never be empty.
			stream = []math.Vec4{{}}
		}
		payload := metadata.Vec4Bytes(stream)
		b, err := backend.BufferCreate(&metadata.BufferDescriptor{
			Label: fmt.Sprintf("%s_%s", label, names[i]),
			Size:  uint64(len(payload)),
			Usage: metadata.BufferUsageStorage | metadata.BufferUsageCopyDst,
		})
		if err != nil {
			g.res.Generation = backend.Generation()
			g.res.Release(backend)
			return nil, err
		}
		g.res.AddBuffer(b)
		if err := backend.BufferWrite(b, 0, payload); err != nil {
			g.res.Generation = backend.Generation()
			g.res.Release(backend)
			return nil, err
		}
		entries = append(entries, metadata.BindGroupEntry{Binding: uint32(i + 1), Buffer: b})
	}

	group, err := backend.BindGroupCreate(&metadata.BindGroupDescriptor{
		Label:   label,
		Layout:  frame.Resources.StructureLayout(),
		Entries: entries,
	})
	g.res.Generation = backend.Generation()
	if err != nil {
		g.res.Release(backend)
		return nil, err
	}
	g.group = g.res.AddBindGroup(group)
	return g, nil
}

func (g *gpuSoup) writeUniforms(frame *Frame, u *structureUniforms) error {
	return frame.Backend.BufferWrite(g.uniform, 0, u.bytes())
}

func (g *gpuSoup) draw(frame *Frame, kind metadata.ShaderKind, material, colormap string) error {
	if g == nil || g.count == 0 {
		return nil
	}
	pipeline, err := frame.Resources.Pipeline(kind, frame.Variant)
	if err != nil {
		return err
	}
	frame.Pass.SetPipeline(pipeline)
	frame.Pass.SetBindGroup(1, g.group)
	if frame.Variant != metadata.PassVariantShadow && frame.Variant != metadata.PassVariantPick {
		mat, err := frame.Resources.MaterialBindGroup(material, colormap)
		if err != nil {
			return err
		}
		frame.Pass.SetBindGroup(2, mat)
	}
	frame.Pass.Draw(g.count, 1, 0, 0)
	return nil
}

/**
 * @brief The set of soups a structure owns, rebuilt together whenever the
 * structure changes or the device generation moves on.
 */
type soupSet struct {
	soups []*gpuSoup
	key   string
}

func (s *soupSet) stale(frame *Frame, key string, dirty bool) bool {
	if dirty || key != s.key || len(s.soups) == 0 {
		return true
	}
	for _, g := range s.soups {
		if g != nil && g.res.Stale(frame.Backend) {
			return true
		}
	}
	return false
}

func (s *soupSet) release(backend renderer.RendererBackend) {
	for _, g := range s.soups {
		if g != nil {
			g.res.Release(backend)
		}
	}
	s.soups = nil
	s.key = ""
}

func (s *soupSet) forget() {
	for _, g := range s.soups {
		if g != nil {
			g.res.Forget()
		}
	}
	s.soups = nil
	s.key = ""
}

// upload replaces the set with freshly uploaded soups. Nil or empty soups keep a nil slot.
func (s *soupSet) upload(frame *Frame, label string, key string, cpu ...*soup) error {
	s.release(frame.Backend)
	for i, c := range cpu {
		if c == nil || c.empty() {
			s.soups = append(s.soups, nil)
			continue
		}
		g, err := uploadSoup(frame, fmt.Sprintf("%s_%d", label, i), c)
		if err != nil {
			s.release(frame.Backend)
			return err
		}
		s.soups = append(s.soups, g)
	}
	s.key = key
	return nil
}

func (s *soupSet) at(i int) *gpuSoup {
	if i < len(s.soups) {
		return s.soups[i]
	}
	return nil
}

/**
 * @brief A key describing everything that changes the CPU soups besides
 * geometry: active quantities, their ranges and the scene length scale.
 */
func quantityKey(qs []quantities.Quantity, lengthScale float32) string {
	key := fmt.Sprintf("ls=%g", lengthScale)
	for _, q := range qs {
		if !q.IsEnabled() {
			continue
		}
		key += fmt.Sprintf("|%p", q)
		switch c := q.(type) {
		case *quantities.ScalarQuantity:
			lo, hi := c.MapRange()
			key += fmt.Sprintf(":%g:%g:%d:%g", lo, hi, c.VizMode, c.IsoValue)
		case *quantities.VectorQuantity:
			key += fmt.Sprintf(":%g:%g", c.LengthFactor, c.AbsoluteLength)
		case *quantities.IntrinsicVectorQuantity:
			key += fmt.Sprintf(":%g:%g", c.LengthFactor, c.AbsoluteLength)
		}
	}
	return key
}

// sliceKey folds the active slice planes into a rebuild key.
func sliceKey(planes []SlicePlane) string {
	key := ""
	for _, p := range planes {
		key += fmt.Sprintf("|%v%v", p.Origin, p.Normal)
	}
	return key
}
