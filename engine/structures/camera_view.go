package structures

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Intrinsics and extrinsics of a pinhole camera.
 */
type CameraParameters struct {
	/** @brief Vertical field of view in degrees. */
	FovYDegrees float32
	/** @brief Width over height. */
	Aspect   float32
	Position math.Vec3
	LookDir  math.Vec3
	UpDir    math.Vec3
}

func NewCameraParameters(position, look, up math.Vec3, fovYDegrees, aspect float32) CameraParameters {
	return CameraParameters{
		FovYDegrees: fovYDegrees,
		Aspect:      aspect,
		Position:    position,
		LookDir:     look.Normalized(),
		UpDir:       up.Normalized(),
	}
}

// Basis returns the orthonormal look, up and right directions.
func (p CameraParameters) Basis() (math.Vec3, math.Vec3, math.Vec3) {
	look := p.LookDir.Normalized()
	right := look.Cross(p.UpDir).Normalized()
	if right.LengthSquared() == 0 {
		right = look.AnyPerpendicular()
	}
	up := right.Cross(look)
	return look, up, right
}

func (p CameraParameters) ViewMatrix() math.Mat4 {
	look, up, _ := p.Basis()
	return math.NewMat4LookAt(p.Position, p.Position.Add(look), up)
}

/**
 * @brief Draws camera parameters as a frustum wireframe with an up marker.
 */
type CameraView struct {
	structureBase

	params CameraParameters

	WidgetColor math.Vec3
	// Distance from apex to image plane, relative to the length scale.
	WidgetFocalLength float32
	// Line radius, relative to the length scale.
	WidgetThickness float32

	render soupSet
}

func NewCameraView(name string, params CameraParameters) *CameraView {
	cv := &CameraView{
		structureBase:     newStructureBase(name, TypeCameraView),
		params:            params,
		WidgetColor:       math.NewVec3(0.1, 0.1, 0.1),
		WidgetFocalLength: 0.05,
		WidgetThickness:   0.002,
	}
	cv.counter = func(quantities.ElementDomain) (int, bool) { return 0, false }
	cv.local = cv.localBounds
	return cv
}

func (cv *CameraView) Parameters() CameraParameters {
	return cv.params
}

func (cv *CameraView) SetParameters(params CameraParameters) {
	cv.params = params
	cv.dirty = true
}

// The widget has no size of its own; only the camera position counts.
func (cv *CameraView) localBounds() (math.Extents3D, bool) {
	return math.NewExtentsFromPoints([]math.Vec3{cv.params.Position}), true
}

func (cv *CameraView) PickDomain() quantities.ElementDomain {
	return quantities.DomainVertex
}

/**
 * @brief The widget's line segments for a focal length: four edges from the
 * apex, the image rectangle, and a triangle marking up.
 */
func (cv *CameraView) FrustumSegments(focal float32) [][2]math.Vec3 {
	look, up, right := cv.params.Basis()
	halfH := focal * math32.Tan(math.DegToRad(cv.params.FovYDegrees)/2)
	halfW := halfH * cv.params.Aspect

	apex := cv.params.Position
	center := apex.Add(look.MulScalar(focal))
	corner := func(sx, sy float32) math.Vec3 {
		return center.Add(right.MulScalar(sx * halfW)).Add(up.MulScalar(sy * halfH))
	}
	c := [4]math.Vec3{corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)}

	var segs [][2]math.Vec3
	for i := 0; i < 4; i++ {
		segs = append(segs, [2]math.Vec3{apex, c[i]})
		segs = append(segs, [2]math.Vec3{c[i], c[(i+1)%4]})
	}
	tip := center.Add(up.MulScalar(halfH * 1.5))
	segs = append(segs,
		[2]math.Vec3{c[3].Lerp(c[2], 0.25), tip},
		[2]math.Vec3{tip, c[3].Lerp(c[2], 0.75)},
	)
	return segs
}

func (cv *CameraView) Prepare(frame *Frame) error {
	key := quantityKey(nil, frame.LengthScale)
	if cv.render.stale(frame, key, cv.dirty) {
		s := &soup{stride: lineVerticesPerEntry}
		color := cv.WidgetColor.ToVec4(1)
		for _, seg := range cv.FrustumSegments(cv.WidgetFocalLength * frame.LengthScale) {
			s.addEntry(seg[0], 0, color, math.Vec4{})
			s.addEntry(seg[1], 0, color, math.Vec4{})
		}
		if err := cv.render.upload(frame, "camera_view_"+cv.name, key, s); err != nil {
			return err
		}
		cv.dirty = false
	}
	if g := cv.render.at(0); g != nil {
		u := newStructureUniforms(cv.transform, frame)
		u.BaseColor = cv.WidgetColor.ToVec4(cv.transparency)
		u.Params.Y = cv.WidgetThickness * frame.LengthScale
		u.Params.W = float32(CurveModeTubes)
		return g.writeUniforms(frame, u)
	}
	return nil
}

func (cv *CameraView) Draw(frame *Frame) error {
	return cv.render.at(0).draw(frame, metadata.ShaderKindLines, cv.material, quantities.DefaultColormap)
}

func (cv *CameraView) DrawPick(frame *Frame) error {
	return cv.render.at(0).draw(frame, metadata.ShaderKindLines, cv.material, "")
}

func (cv *CameraView) ClearGPUResources() {
	cv.render.forget()
}

func (cv *CameraView) ReleaseGPUResources(backend renderer.RendererBackend) {
	cv.render.release(backend)
}
