package views

import (
	"encoding/binary"
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/structures"
)

const (
	// Largest element index the RGB channels can carry.
	MaxPickIndex = 1<<24 - 1
	// Largest structure discriminator; 0 is the no-hit sentinel.
	MaxPickDiscriminator = 255
)

/** @brief Packs an element index and a discriminator into an RGBA8 pixel. */
func EncodePickID(index, discriminator uint32) [4]byte {
	return [4]byte{
		byte(index >> 16),
		byte(index >> 8),
		byte(index),
		byte(discriminator),
	}
}

/**
 * @brief Unpacks a pick pixel. ok is false when alpha holds the no-hit
 * sentinel.
 */
func DecodePickID(pixel [4]byte) (index, discriminator uint32, ok bool) {
	if pixel[3] == 0 {
		return 0, 0, false
	}
	index = uint32(pixel[0])<<16 | uint32(pixel[1])<<8 | uint32(pixel[2])
	return index, uint32(pixel[3]), true
}

/** @brief A pixel to pick this frame, y growing downwards. */
type PickRequest struct {
	X, Y uint32
}

type PickEntry struct {
	Type   structures.TypeTag
	Name   string
	Domain quantities.ElementDomain
}

/**
 * @brief Maps the discriminators of one frame to the structures that wrote
 * them. Discriminator d names entry d-1.
 */
type PickTable struct {
	entries []PickEntry
}

/**
 * @brief Registers a structure and returns its discriminator, or 0 once the
 * table is full.
 */
func (t *PickTable) Add(s structures.Structure) uint32 {
	if len(t.entries) >= MaxPickDiscriminator {
		return 0
	}
	t.entries = append(t.entries, PickEntry{Type: s.Type(), Name: s.Name(), Domain: s.PickDomain()})
	return uint32(len(t.entries))
}

func (t *PickTable) Lookup(discriminator uint32) (PickEntry, bool) {
	if t == nil || discriminator == 0 || int(discriminator) > len(t.entries) {
		return PickEntry{}, false
	}
	return t.entries[discriminator-1], true
}

func (t *PickTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

/** @brief What lies under a picked pixel. */
type PickResult struct {
	Hit     bool
	Type    structures.TypeTag
	Name    string
	Domain  quantities.ElementDomain
	Element uint32
	// Depth buffer value in [0, 1].
	Depth         float32
	WorldPosition math.Vec3
}

/**
 * @brief Reconstructs the world position of pixel (x, y) with depth buffer
 * value depth.
 */
func UnprojectPixel(x, y uint32, depth float32, view, projection math.Mat4, width, height uint32) (math.Vec3, error) {
	win := mgl32.Vec3{float32(x) + 0.5, float32(height) - float32(y) - 0.5, (depth + 1) * 0.5}
	p, err := mgl32.UnProject(win, mgl32.Mat4(view.Data), mgl32.Mat4(projection.Data), 0, 0, int(width), int(height))
	if err != nil {
		return math.Vec3{}, err
	}
	return math.NewVec3(p[0], p[1], p[2]), nil
}

/**
 * @brief Renders pick ids of the requested frame into an offscreen target
 * and reads back the clicked pixel once the frame is submitted.
 */
type RenderViewPick struct {
	frame frameGroup

	// Last resolved pick, consumed by the picking system.
	Result    PickResult
	HasResult bool
}

func NewRenderViewPick() *RenderViewPick {
	return &RenderViewPick{frame: newFrameGroup("pick_frame")}
}

func (v *RenderViewPick) Name() string { return "pick" }

func (v *RenderViewPick) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_PICK }

func (v *RenderViewPick) ShouldRender(p *Packet) bool {
	return p.Pick != nil && p.Width > 0 && p.Height > 0
}

func (v *RenderViewPick) targets(p *Packet) (metadata.TextureHandle, metadata.TextureHandle, error) {
	color, err := p.Targets.Target(TargetPick, p.Width, p.Height, metadata.PickFormat,
		metadata.TextureUsageRenderAttachment|metadata.TextureUsageCopySrc)
	if err != nil {
		return metadata.InvalidHandle, metadata.InvalidHandle, err
	}
	depth, err := p.Targets.Target(TargetPickDepth, p.Width, p.Height, metadata.DepthFormat,
		metadata.TextureUsageRenderAttachment|metadata.TextureUsageCopySrc)
	if err != nil {
		return metadata.InvalidHandle, metadata.InvalidHandle, err
	}
	return color, depth, nil
}

func (v *RenderViewPick) OnRender(p *Packet) error {
	color, depth, err := v.targets(p)
	if err != nil {
		return err
	}
	u := NewFrameUniforms(p, p.Width, p.Height)
	group, err := v.frame.bindFrame(p, &u)
	if err != nil {
		return err
	}
	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label:  "pick",
		Colors: []metadata.ColorAttachment{{Texture: color, LoadOp: metadata.LoadOpClear}},
		DepthStencil: &metadata.DepthStencilAttachment{
			Texture:         depth,
			DepthLoadOp:     metadata.LoadOpClear,
			DepthClearValue: 1,
		},
	})
	if err != nil {
		return err
	}
	pass.SetBindGroup(0, group)
	err = drawAll(p, pass, metadata.PassVariantPick, p.Opaque)
	if err == nil {
		err = drawAll(p, pass, metadata.PassVariantPick, p.Transparent)
	}
	return endPass(pass, err)
}

/**
 * @brief Reads the requested pixel back and decodes it against the frame's
 * pick table.
 */
func (v *RenderViewPick) OnResolve(p *Packet) error {
	v.HasResult = false
	if p.Pick == nil {
		return nil
	}
	x, y := p.Pick.X, p.Pick.Y
	if x >= p.Width || y >= p.Height {
		v.Result, v.HasResult = PickResult{}, true
		return nil
	}
	color, ok := p.Targets.Lookup(TargetPick)
	if !ok {
		return core.NewRenderError("pick target missing")
	}
	depthTex, ok := p.Targets.Lookup(TargetPickDepth)
	if !ok {
		return core.NewRenderError("pick depth target missing")
	}

	pixel, err := p.Backend.ReadTexture(color, x, y, 1, 1)
	if err != nil {
		return err
	}
	if len(pixel) < 4 {
		return core.NewRenderError("pick readback returned %d bytes", len(pixel))
	}
	index, disc, hit := DecodePickID([4]byte{pixel[0], pixel[1], pixel[2], pixel[3]})
	entry, known := p.PickTable.Lookup(disc)
	if !hit || !known {
		v.Result, v.HasResult = PickResult{}, true
		return nil
	}

	raw, err := p.Backend.ReadTexture(depthTex, x, y, 1, 1)
	if err != nil {
		return err
	}
	if len(raw) < 4 {
		return core.NewRenderError("pick depth readback returned %d bytes", len(raw))
	}
	depth := stdmath.Float32frombits(binary.LittleEndian.Uint32(raw))
	world, err := UnprojectPixel(x, y, depth, p.View, p.Projection, p.Width, p.Height)
	if err != nil {
		return err
	}
	v.Result = PickResult{
		Hit:           true,
		Type:          entry.Type,
		Name:          entry.Name,
		Domain:        entry.Domain,
		Element:       index,
		Depth:         depth,
		WorldPosition: world,
	}
	v.HasResult = true
	return nil
}

func (v *RenderViewPick) OnDestroy(backend renderer.RendererBackend) {
	v.frame.destroy(backend)
}
