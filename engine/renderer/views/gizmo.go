package views

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

const (
	// Gizmo size as a fraction of the visible height at its distance.
	gizmoScreenFraction = 0.2
	gizmoShaftRadius    = 0.02
	gizmoHeadLength     = 0.2
	gizmoHeadRadius     = 0.07
	gizmoRingWidth      = 0.03
	gizmoSegments       = 24
	// Hit tolerance in gizmo units.
	gizmoPickTolerance = 0.08
)

var gizmoAxisColors = [3]math.Vec4{
	{X: 0.9, Y: 0.2, Z: 0.2, W: 1},
	{X: 0.2, Y: 0.8, Z: 0.2, W: 1},
	{X: 0.2, Y: 0.4, Z: 0.95, W: 1},
}

var gizmoActiveColor = math.Vec4{X: 1, Y: 0.85, Z: 0.1, W: 1}

/** @brief A world-space ray. Direction is unit length. */
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

/**
 * @brief Returns the ray through the center of pixel (x, y), with y growing
 * downwards, for the given view and projection.
 */
func ScreenRay(view, projection math.Mat4, x, y float32, width, height uint32) Ray {
	inv := view.Mul(projection).Inverse()
	nx := 2*(x+0.5)/float32(width) - 1
	ny := 1 - 2*(y+0.5)/float32(height)
	near := math.ProjectPoint(math.NewVec3(nx, ny, 0), inv)
	far := math.ProjectPoint(math.NewVec3(nx, ny, 1), inv)
	return Ray{Origin: near, Direction: far.Sub(near).Normalized()}
}

// At is the point t units along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.MulScalar(t))
}

/**
 * @brief Parameters of the closest points between the ray and the line
 * through origin along axis. ok is false for parallel lines.
 */
func closestOnAxis(r Ray, origin, axis math.Vec3) (rayT, axisT float32, ok bool) {
	w := r.Origin.Sub(origin)
	a := r.Direction.Dot(r.Direction)
	b := r.Direction.Dot(axis)
	c := axis.Dot(axis)
	d := r.Direction.Dot(w)
	e := axis.Dot(w)
	denom := a*c - b*b
	if math32.Abs(denom) < 1e-8 {
		return 0, 0, false
	}
	return (b*e - c*d) / denom, (a*e - b*d) / denom, true
}

// intersectPlane returns where the ray meets the plane through origin with normal n.
func intersectPlane(r Ray, origin, n math.Vec3) (math.Vec3, bool) {
	denom := r.Direction.Dot(n)
	if math32.Abs(denom) < 1e-8 {
		return math.Vec3{}, false
	}
	t := origin.Sub(r.Origin).Dot(n) / denom
	if t < 0 {
		return math.Vec3{}, false
	}
	return r.At(t), true
}

/**
 * @brief Rounds v to the nearest multiple of step. A step of 0 or less
 * disables snapping.
 */
func Snap(v, step float32) float32 {
	if step <= 0 {
		return v
	}
	return math32.Round(v/step) * step
}

/**
 * @brief Where and how big the gizmo is drawn: its world origin, its three
 * unit axes and its world size.
 */
type GizmoFrame struct {
	Origin math.Vec3
	Axes   [3]math.Vec3
	Size   float32
}

/**
 * @brief Places the gizmo at the center of the structure bounds, sized to a
 * constant fraction of the screen. Local space follows the structure's
 * rotation.
 */
func NewGizmoFrame(s structures.Structure, space scene.GizmoSpace, camera *components.Camera) GizmoFrame {
	m := s.Transform()
	f := GizmoFrame{
		Origin: m.Translation(),
		Axes:   [3]math.Vec3{{X: 1}, {Y: 1}, {Z: 1}},
		Size:   1,
	}
	if box, ok := s.BoundingBox(); ok {
		f.Origin = box.Center()
	}
	if space == scene.GizmoSpaceLocal {
		for i := 0; i < 3; i++ {
			axis := math.NewVec3(m.Data[i*4], m.Data[i*4+1], m.Data[i*4+2])
			if axis.LengthSquared() > 1e-12 {
				f.Axes[i] = axis.Normalized()
			}
		}
	}
	if camera != nil {
		if camera.Projection == components.ProjectionOrthographic {
			f.Size = camera.OrthoScale * 2 * gizmoScreenFraction
		} else {
			dist := camera.GetPosition().Distance(f.Origin)
			f.Size = 2 * dist * math32.Tan(math.DegToRad(camera.FovYDegrees)*0.5) * gizmoScreenFraction
		}
	}
	if f.Size <= 0 {
		f.Size = 1
	}
	return f
}

/** @brief Maps gizmo units (axes scaled to 1) to world space. */
func (f GizmoFrame) Model() math.Mat4 {
	m := math.NewMat4Identity()
	for i, a := range f.Axes {
		a = a.MulScalar(f.Size)
		m.Data[i*4], m.Data[i*4+1], m.Data[i*4+2] = a.X, a.Y, a.Z
	}
	m.Data[12], m.Data[13], m.Data[14] = f.Origin.X, f.Origin.Y, f.Origin.Z
	return m
}

/**
 * @brief Returns the axis under the ray, or -1. Translate and scale handles
 * are hit along their shafts, rotate handles on their rings.
 */
func (f GizmoFrame) Pick(r Ray, mode scene.GizmoMode) int {
	best, bestDist := -1, float32(gizmoPickTolerance*f.Size)
	for i, axis := range f.Axes {
		var dist float32
		if mode == scene.GizmoRotate {
			hit, ok := intersectPlane(r, f.Origin, axis)
			if !ok {
				continue
			}
			dist = math32.Abs(hit.Distance(f.Origin) - f.Size)
		} else {
			rayT, axisT, ok := closestOnAxis(r, f.Origin, axis)
			if !ok || rayT < 0 || axisT < 0 || axisT > f.Size*(1+gizmoHeadLength) {
				continue
			}
			dist = r.At(rayT).Distance(f.Origin.Add(axis.MulScalar(axisT)))
		}
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

/**
 * @brief An in-progress gizmo drag. Update returns the structure transform
 * for the current ray; the structure's local geometry is never touched.
 */
type GizmoDrag struct {
	Mode   scene.GizmoMode
	Config scene.GizmoConfig
	Axis   int
	Frame  GizmoFrame
	Start  math.Mat4

	startT   float32
	startVec math.Vec3
}

/**
 * @brief Starts a drag when the ray hits a handle.
 */
func BeginGizmoDrag(s structures.Structure, config scene.GizmoConfig, camera *components.Camera, r Ray) (*GizmoDrag, bool) {
	frame := NewGizmoFrame(s, config.Space, camera)
	axis := frame.Pick(r, config.Mode)
	if axis < 0 {
		return nil, false
	}
	d := &GizmoDrag{Mode: config.Mode, Config: config, Axis: axis, Frame: frame, Start: s.Transform()}
	if !d.measure(r, &d.startT, &d.startVec) {
		return nil, false
	}
	return d, true
}

func (d *GizmoDrag) measure(r Ray, t *float32, vec *math.Vec3) bool {
	axis := d.Frame.Axes[d.Axis]
	if d.Mode == scene.GizmoRotate {
		hit, ok := intersectPlane(r, d.Frame.Origin, axis)
		if !ok {
			return false
		}
		v := hit.Sub(d.Frame.Origin)
		if v.LengthSquared() < 1e-12 {
			return false
		}
		*vec = v.Normalized()
		return true
	}
	_, axisT, ok := closestOnAxis(r, d.Frame.Origin, axis)
	if !ok {
		return false
	}
	*t = axisT
	return true
}

/** @brief Returns the transform for ray; false when the ray gives no reading. */
func (d *GizmoDrag) Update(r Ray) (math.Mat4, bool) {
	var t float32
	var vec math.Vec3
	if !d.measure(r, &t, &vec) {
		return d.Start, false
	}
	axis := d.Frame.Axes[d.Axis]
	switch d.Mode {
	case scene.GizmoRotate:
		angle := math32.Atan2(d.startVec.Cross(vec).Dot(axis), d.startVec.Dot(vec))
		degrees := Snap(math.RadToDeg(angle), d.Config.RotateSnap)
		rot := math.NewQuatFromAxisAngle(axis, math.DegToRad(degrees), true).ToMat4()
		toOrigin := math.NewMat4Translation(d.Frame.Origin.Negate())
		back := math.NewMat4Translation(d.Frame.Origin)
		return d.Start.Mul(toOrigin).Mul(rot).Mul(back), true
	case scene.GizmoScale:
		if math32.Abs(d.startT) < 1e-6 {
			return d.Start, false
		}
		factor := Snap(t/d.startT, d.Config.ScaleSnap)
		if factor <= 1e-4 {
			factor = 1e-4
		}
		scale := math.NewVec3One()
		switch d.Axis {
		case 0:
			scale.X = factor
		case 1:
			scale.Y = factor
		case 2:
			scale.Z = factor
		}
		return math.NewMat4Scale(scale).Mul(d.Start), true
	}
	delta := Snap(t-d.startT, d.Config.TranslateSnap)
	return d.Start.Mul(math.NewMat4Translation(axis.MulScalar(delta))), true
}

/**
 * @brief Builds the handle triangles in gizmo units. The active axis is
 * highlighted.
 */
func GizmoGeometry(mode scene.GizmoMode, active int) (positions, colors []math.Vec4) {
	add := func(color math.Vec4, pts ...math.Vec3) {
		for _, p := range pts {
			positions = append(positions, p.ToVec4(1))
			colors = append(colors, color)
		}
	}
	for i := 0; i < 3; i++ {
		color := gizmoAxisColors[i]
		if i == active {
			color = gizmoActiveColor
		}
		axis := math.Vec3{}
		switch i {
		case 0:
			axis.X = 1
		case 1:
			axis.Y = 1
		case 2:
			axis.Z = 1
		}
		u := axis.AnyPerpendicular().Normalized()
		v := axis.Cross(u)
		ring := func(center math.Vec3, radius float32, k int) math.Vec3 {
			a := float32(k) / gizmoSegments * 2 * math32.Pi
			return center.Add(u.MulScalar(math32.Cos(a) * radius)).Add(v.MulScalar(math32.Sin(a) * radius))
		}

		if mode == scene.GizmoRotate {
			inner, outer := float32(1-gizmoRingWidth), float32(1+gizmoRingWidth)
			for k := 0; k < gizmoSegments; k++ {
				a0, a1 := ring(math.Vec3{}, inner, k), ring(math.Vec3{}, inner, k+1)
				b0, b1 := ring(math.Vec3{}, outer, k), ring(math.Vec3{}, outer, k+1)
				add(color, a0, b0, b1, a0, b1, a1)
			}
			continue
		}

		// Shaft as a thin prism.
		tip := axis.MulScalar(1)
		for k := 0; k < gizmoSegments; k++ {
			a0, a1 := ring(math.Vec3{}, gizmoShaftRadius, k), ring(math.Vec3{}, gizmoShaftRadius, k+1)
			b0, b1 := ring(tip, gizmoShaftRadius, k), ring(tip, gizmoShaftRadius, k+1)
			add(color, a0, b0, b1, a0, b1, a1)
		}
		if mode == scene.GizmoScale {
			addCube(add, color, tip, gizmoHeadRadius)
			continue
		}
		apex := axis.MulScalar(1 + gizmoHeadLength)
		for k := 0; k < gizmoSegments; k++ {
			c0, c1 := ring(tip, gizmoHeadRadius, k), ring(tip, gizmoHeadRadius, k+1)
			add(color, c0, c1, apex, tip, c1, c0)
		}
	}
	return positions, colors
}

func addCube(add func(math.Vec4, ...math.Vec3), color math.Vec4, center math.Vec3, half float32) {
	corner := func(x, y, z float32) math.Vec3 {
		return center.Add(math.NewVec3(x*half, y*half, z*half))
	}
	faces := [6][4]math.Vec3{
		{corner(-1, -1, 1), corner(1, -1, 1), corner(1, 1, 1), corner(-1, 1, 1)},
		{corner(1, -1, -1), corner(-1, -1, -1), corner(-1, 1, -1), corner(1, 1, -1)},
		{corner(1, -1, 1), corner(1, -1, -1), corner(1, 1, -1), corner(1, 1, 1)},
		{corner(-1, -1, -1), corner(-1, -1, 1), corner(-1, 1, 1), corner(-1, 1, -1)},
		{corner(-1, 1, 1), corner(1, 1, 1), corner(1, 1, -1), corner(-1, 1, -1)},
		{corner(-1, -1, -1), corner(1, -1, -1), corner(1, -1, 1), corner(-1, -1, 1)},
	}
	for _, f := range faces {
		add(color, f[0], f[1], f[2], f[0], f[2], f[3])
	}
}

/**
 * @brief Draws the transform gizmo of the selected structure over the
 * tone-mapped output.
 */
type RenderViewGizmo struct {
	frame    frameGroup
	geometry geometryGroup
}

func NewRenderViewGizmo() *RenderViewGizmo {
	return &RenderViewGizmo{
		frame:    newFrameGroup("gizmo_frame"),
		geometry: geometryGroup{label: "gizmo"},
	}
}

func (v *RenderViewGizmo) Name() string { return "gizmo" }

func (v *RenderViewGizmo) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_GIZMO }

func (v *RenderViewGizmo) ShouldRender(p *Packet) bool {
	return p.Gizmo != nil && p.Gizmo.Structure != nil && p.Gizmo.Config.Visible && p.Output != metadata.InvalidHandle
}

func (v *RenderViewGizmo) OnRender(p *Packet) error {
	g := p.Gizmo
	frame := NewGizmoFrame(g.Structure, g.Config.Space, p.Camera)
	positions, colors := GizmoGeometry(g.Config.Mode, g.Active)
	if err := v.geometry.upload(p, structureUniformBytes(frame.Model(), math.NewVec4(1, 1, 1, 1)), positions, colors); err != nil {
		return err
	}
	u := NewFrameUniforms(p, p.Width, p.Height)
	group, err := v.frame.bindFrame(p, &u)
	if err != nil {
		return err
	}
	pipeline, err := p.Resources.Pipeline(metadata.ShaderKindGizmo, metadata.PassVariantScene)
	if err != nil {
		return err
	}
	pass, err := p.Backend.RenderPassBegin(&metadata.RenderPassDescriptor{
		Label:  "gizmo",
		Colors: []metadata.ColorAttachment{{Texture: p.Output, LoadOp: metadata.LoadOpLoad}},
	})
	if err != nil {
		return err
	}
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group)
	pass.SetBindGroup(1, v.geometry.group)
	pass.Draw(v.geometry.count, 1, 0, 0)
	return pass.End()
}

func (v *RenderViewGizmo) OnDestroy(backend renderer.RendererBackend) {
	v.frame.destroy(backend)
	v.geometry.destroy(backend)
}
