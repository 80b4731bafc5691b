package components

import (
	"encoding/json"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

type NavigationStyle int

const (
	/** @brief Orbit around the target with the world up axis fixed. */
	NavigationTurntable NavigationStyle = iota
	/** @brief Unconstrained orbit; the camera up vector rolls with the motion. */
	NavigationFree
	/** @brief Rotation follows the pointer on a virtual trackball. */
	NavigationArcball
	/** @brief Pan and zoom only. */
	NavigationPlanar
	/** @brief Mouselook around the camera position, WASD movement. */
	NavigationFirstPerson
	NavigationNone
)

var navigationStyleNames = map[NavigationStyle]string{
	NavigationTurntable:   "turntable",
	NavigationFree:        "free",
	NavigationArcball:     "arcball",
	NavigationPlanar:      "planar",
	NavigationFirstPerson: "first_person",
	NavigationNone:        "none",
}

func (s NavigationStyle) String() string {
	return navigationStyleNames[s]
}

func (s NavigationStyle) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *NavigationStyle) UnmarshalText(text []byte) error {
	for style, name := range navigationStyleNames {
		if name == string(text) {
			*s = style
			return nil
		}
	}
	return fmt.Errorf("unknown navigation style %q", text)
}

type ProjectionMode int

const (
	ProjectionPerspective ProjectionMode = iota
	ProjectionOrthographic
)

func (m ProjectionMode) MarshalText() ([]byte, error) {
	if m == ProjectionOrthographic {
		return []byte("orthographic"), nil
	}
	return []byte("perspective"), nil
}

func (m *ProjectionMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "perspective":
		*m = ProjectionPerspective
	case "orthographic":
		*m = ProjectionOrthographic
	default:
		return fmt.Errorf("unknown projection mode %q", text)
	}
	return nil
}

/** @brief The world axis treated as up. The front direction follows from it. */
type UpDir int

const (
	UpDirY UpDir = iota
	UpDirNegY
	UpDirZ
	UpDirNegZ
	UpDirX
	UpDirNegX
)

func (u UpDir) Vector() math.Vec3 {
	switch u {
	case UpDirNegY:
		return math.NewVec3(0, -1, 0)
	case UpDirZ:
		return math.NewVec3(0, 0, 1)
	case UpDirNegZ:
		return math.NewVec3(0, 0, -1)
	case UpDirX:
		return math.NewVec3(1, 0, 0)
	case UpDirNegX:
		return math.NewVec3(-1, 0, 0)
	}
	return math.NewVec3(0, 1, 0)
}

// Front is the default look direction for this up axis.
func (u UpDir) Front() math.Vec3 {
	switch u {
	case UpDirZ:
		return math.NewVec3(0, 1, 0)
	case UpDirNegZ:
		return math.NewVec3(0, -1, 0)
	}
	return math.NewVec3(0, 0, -1)
}

const (
	DefaultFovYDegrees = 45
	DefaultFitMargin   = 1.2
	minZoomDistance    = 1e-4
	// Keeps turntable pitch away from the poles.
	pitchEpsilon = 1e-3
)

/**
 * @brief A look-at camera with orbit, pan and zoom navigation. The view
 * matrix is cached and rebuilt when IsDirty is set.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position math.Vec3
	/** @brief The point the camera orbits around. */
	Target math.Vec3
	/** @brief The camera's own up vector; equals the world up under Turntable. */
	CameraUp math.Vec3

	Up         UpDir
	Projection ProjectionMode
	Navigation NavigationStyle

	FovYDegrees float32
	Near        float32
	Far         float32
	/** @brief Half height of the orthographic view volume. */
	OrthoScale float32
	MoveSpeed  float32

	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/**
	 * @brief The view matrix of this camera.
	 * NOTE: IMPORTANT: Do not get this directly, use GetView() instead
	 * so the view matrix is recalculated when needed.
	 */
	ViewMatrix math.Mat4
}

type CameraLookup struct {
	ID             uint16
	ReferenceCount uint16
	Camera         *Camera
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.Up = UpDirY
	c.Projection = ProjectionPerspective
	c.Navigation = NavigationTurntable
	c.FovYDegrees = DefaultFovYDegrees
	c.Near = 0.01
	c.Far = 100
	c.OrthoScale = 1
	c.MoveSpeed = 1
	c.Target = math.NewVec3Zero()
	c.Position = c.Up.Front().MulScalar(-3)
	c.CameraUp = c.Up.Vector()
	c.IsDirty = true
	c.ViewMatrix = math.NewMat4Identity()
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) SetTarget(target math.Vec3) {
	c.Target = target
	c.IsDirty = true
}

/** @brief Changes the world up axis and realigns the camera up vector. */
func (c *Camera) SetUpDir(up UpDir) {
	c.Up = up
	c.CameraUp = up.Vector()
	c.IsDirty = true
}

func (c *Camera) SetNavigation(style NavigationStyle) {
	c.Navigation = style
	if style == NavigationTurntable {
		c.CameraUp = c.Up.Vector()
		c.IsDirty = true
	}
}

func (c *Camera) GetView() math.Mat4 {
	if c.IsDirty {
		c.ViewMatrix = math.NewMat4LookAt(c.Position, c.Target, c.CameraUp)
		c.IsDirty = false
	}
	return c.ViewMatrix
}

/**
 * @brief Adopts a view matrix. The target stays at the current orbit
 * distance in front of the new position.
 */
func (c *Camera) SetView(view math.Mat4) {
	dist := c.Distance()
	c.Position = view.Inverse().Translation()
	c.CameraUp = view.Up()
	c.Target = c.Position.Add(view.Forward().MulScalar(dist))
	c.ViewMatrix = view
	c.IsDirty = false
}

func (c *Camera) GetProjection(aspect float32) math.Mat4 {
	if c.Projection == ProjectionOrthographic {
		h := c.OrthoScale
		return math.NewMat4Orthographic(-h*aspect, h*aspect, -h, h, c.Near, c.Far)
	}
	return math.NewMat4Perspective(math.DegToRad(c.FovYDegrees), aspect, c.Near, c.Far)
}

/**
 * @brief Recovers the projection mode, field of view (or ortho scale) and
 * clip planes from a matrix built by GetProjection. Returns the aspect ratio.
 */
func (c *Camera) SetProjection(proj math.Mat4) float32 {
	aspect := proj.Data[5] / proj.Data[0]
	a, b := proj.Data[10], proj.Data[14]
	if proj.Data[11] == 0 {
		c.Projection = ProjectionOrthographic
		c.OrthoScale = 1 / proj.Data[5]
		c.Near = b / a
		c.Far = c.Near - 1/a
		return aspect
	}
	c.Projection = ProjectionPerspective
	c.FovYDegrees = math.RadToDeg(2 * math32.Atan(1/proj.Data[5]))
	c.Near = b / a
	c.Far = a * c.Near / (1 + a)
	return aspect
}

/**
 * @brief Converts a [0, 1] depth buffer value back to the distance along
 * the view axis.
 */
func (c *Camera) LinearDepth(depth float32) float32 {
	if c.Projection == ProjectionOrthographic {
		return c.Near + depth*(c.Far-c.Near)
	}
	a := c.Far / (c.Near - c.Far)
	b := c.Near * c.Far / (c.Near - c.Far)
	return b / (depth + a)
}

func (c *Camera) LookDir() math.Vec3 {
	return c.Target.Sub(c.Position).Normalized()
}

func (c *Camera) Right() math.Vec3 {
	return c.LookDir().Cross(c.CameraUp).Normalized()
}

func (c *Camera) Distance() float32 {
	return c.Target.Sub(c.Position).Length()
}

/**
 * @brief Rotates the camera by yaw and pitch radians according to the
 * navigation style.
 */
func (c *Camera) Orbit(deltaYaw, deltaPitch float32) {
	switch c.Navigation {
	case NavigationTurntable:
		c.orbitTurntable(deltaYaw, deltaPitch)
	case NavigationFree, NavigationArcball:
		c.orbitFree(deltaYaw, deltaPitch)
	case NavigationFirstPerson:
		c.Yaw(deltaYaw)
		c.Pitch(deltaPitch)
	}
}

func (c *Camera) orbitTurntable(deltaYaw, deltaPitch float32) {
	up := c.Up.Vector()
	a := c.Up.Front().Negate()
	b := up.Cross(a)
	offset := c.Position.Sub(c.Target)
	r := offset.Length()
	if r == 0 {
		return
	}
	dir := offset.MulScalar(1 / r)
	phi := math32.Acos(math.Clamp(dir.Dot(up), -1, 1))
	theta := math32.Atan2(dir.Dot(b), dir.Dot(a))

	theta -= deltaYaw
	phi = math.Clamp(phi-deltaPitch, pitchEpsilon, math.K_PI-pitchEpsilon)

	sinPhi := math32.Sin(phi)
	dir = a.MulScalar(sinPhi * math32.Cos(theta)).
		Add(b.MulScalar(sinPhi * math32.Sin(theta))).
		Add(up.MulScalar(math32.Cos(phi)))
	c.Position = c.Target.Add(dir.MulScalar(r))
	c.CameraUp = up
	c.IsDirty = true
}

func (c *Camera) orbitFree(deltaYaw, deltaPitch float32) {
	yaw := math.NewQuatFromAxisAngle(c.CameraUp, -deltaYaw, true)
	pitch := math.NewQuatFromAxisAngle(c.Right(), -deltaPitch, true)
	rot := pitch.Mul(yaw)
	offset := c.Position.Sub(c.Target)
	c.Position = c.Target.Add(rot.Rotate(offset))
	c.CameraUp = rot.Rotate(c.CameraUp).Normalized()
	c.IsDirty = true
}

/**
 * @brief Trackball rotation between two pointer positions in normalized
 * device coordinates.
 */
func (c *Camera) ArcballDrag(from, to math.Vec2) {
	if c.Navigation == NavigationNone || c.Navigation == NavigationPlanar {
		return
	}
	p0, p1 := arcballPoint(from), arcballPoint(to)
	axis := p0.Cross(p1)
	if axis.LengthSquared() < 1e-12 {
		return
	}
	angle := math32.Acos(math.Clamp(p0.Dot(p1), -1, 1))
	right, up, back := c.Right(), c.CameraUp, c.LookDir().Negate()
	world := right.MulScalar(axis.X).Add(up.MulScalar(axis.Y)).Add(back.MulScalar(axis.Z))
	rot := math.NewQuatFromAxisAngle(world, -angle, true)
	c.Position = c.Target.Add(rot.Rotate(c.Position.Sub(c.Target)))
	c.CameraUp = rot.Rotate(c.CameraUp).Normalized()
	c.IsDirty = true
}

func arcballPoint(p math.Vec2) math.Vec3 {
	d := p.X*p.X + p.Y*p.Y
	if d > 1 {
		return math.NewVec3(p.X, p.Y, 0).Normalized()
	}
	return math.NewVec3(p.X, p.Y, math32.Sqrt(1-d))
}

/** @brief Moves the camera and its target along the camera right and up axes. */
func (c *Camera) Pan(dx, dy float32) {
	if c.Navigation == NavigationNone {
		return
	}
	up := c.Right().Cross(c.LookDir())
	delta := c.Right().MulScalar(dx).Add(up.MulScalar(dy))
	c.Position = c.Position.Add(delta)
	c.Target = c.Target.Add(delta)
	c.IsDirty = true
}

/**
 * @brief Moves toward the target by delta world units without passing it.
 * Orthographic cameras shrink their view volume instead.
 */
func (c *Camera) Zoom(delta float32) {
	switch {
	case c.Navigation == NavigationNone:
		return
	case c.Navigation == NavigationFirstPerson:
		c.MoveForward(delta)
		return
	case c.Projection == ProjectionOrthographic:
		c.OrthoScale = math32.Max(c.OrthoScale-delta, minZoomDistance)
		c.IsDirty = true
		return
	}
	look := c.LookDir()
	dist := math32.Max(c.Distance()-delta, minZoomDistance)
	c.Position = c.Target.Sub(look.MulScalar(dist))
	c.IsDirty = true
}

/**
 * @brief Frames the box: the camera looks along the front direction of the
 * up axis from far enough that the bounding sphere fills the vertical field
 * of view with the given margin. An empty box is framed as the unit sphere.
 */
func (c *Camera) FitToBox(min, max math.Vec3, margin float32) {
	center := min.Add(max).MulScalar(0.5)
	radius := max.Sub(min).Length() * 0.5
	if radius <= 0 {
		radius = 1
	}
	halfFov := math.DegToRad(c.FovYDegrees) * 0.5
	dist := radius * margin / math32.Sin(halfFov)

	look := c.Up.Front()
	c.Target = center
	c.Position = center.Sub(look.MulScalar(dist))
	c.CameraUp = c.Up.Vector()
	c.Near = dist * 0.01
	c.Far = (dist + radius) * 10
	c.OrthoScale = radius * margin
	c.MoveSpeed = radius
	c.IsDirty = true
}

func (c *Camera) MoveForward(amount float32) {
	c.translate(c.LookDir().MulScalar(amount * c.MoveSpeed))
}

func (c *Camera) MoveBackward(amount float32) {
	c.translate(c.LookDir().MulScalar(-amount * c.MoveSpeed))
}

func (c *Camera) MoveLeft(amount float32) {
	c.translate(c.Right().MulScalar(-amount * c.MoveSpeed))
}

func (c *Camera) MoveRight(amount float32) {
	c.translate(c.Right().MulScalar(amount * c.MoveSpeed))
}

func (c *Camera) MoveUp(amount float32) {
	c.translate(c.Up.Vector().MulScalar(amount * c.MoveSpeed))
}

func (c *Camera) MoveDown(amount float32) {
	c.translate(c.Up.Vector().MulScalar(-amount * c.MoveSpeed))
}

func (c *Camera) translate(delta math.Vec3) {
	c.Position = c.Position.Add(delta)
	c.Target = c.Target.Add(delta)
	c.IsDirty = true
}

/** @brief Turns the look direction around the world up axis. */
func (c *Camera) Yaw(amount float32) {
	rot := math.NewQuatFromAxisAngle(c.Up.Vector(), -amount, true)
	c.Target = c.Position.Add(rot.Rotate(c.Target.Sub(c.Position)))
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	up := c.Up.Vector()
	look := c.LookDir()
	// Clamp to avoid Gimbal lock.
	limit := float32(1.55334306) // 89 degrees, or equivalent to deg_to_rad(89.0f);
	current := math.K_HALF_PI - math32.Acos(math.Clamp(look.Dot(up), -1, 1))
	amount = math.Clamp(current+amount, -limit, limit) - current

	rot := math.NewQuatFromAxisAngle(c.Right(), amount, true)
	c.Target = c.Position.Add(rot.Rotate(c.Target.Sub(c.Position)))
	c.CameraUp = up
	c.IsDirty = true
}

type cameraJSON struct {
	Position    [3]float32      `json:"position"`
	Target      [3]float32      `json:"target"`
	CameraUp    [3]float32      `json:"camera_up"`
	Up          UpDir           `json:"up_dir"`
	Projection  ProjectionMode  `json:"projection"`
	Navigation  NavigationStyle `json:"navigation"`
	FovYDegrees float32         `json:"fov_y_degrees"`
	Near        float32         `json:"near"`
	Far         float32         `json:"far"`
	OrthoScale  float32         `json:"ortho_scale"`
	MoveSpeed   float32         `json:"move_speed"`
}

func vecArray(v math.Vec3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func arrayVec(a [3]float32) math.Vec3 {
	return math.NewVec3(a[0], a[1], a[2])
}

/** @brief Serializes the camera state. */
func (c *Camera) ToJSON() ([]byte, error) {
	data, err := json.Marshal(cameraJSON{
		Position:    vecArray(c.Position),
		Target:      vecArray(c.Target),
		CameraUp:    vecArray(c.CameraUp),
		Up:          c.Up,
		Projection:  c.Projection,
		Navigation:  c.Navigation,
		FovYDegrees: c.FovYDegrees,
		Near:        c.Near,
		Far:         c.Far,
		OrthoScale:  c.OrthoScale,
		MoveSpeed:   c.MoveSpeed,
	})
	if err != nil {
		return nil, core.NewJSONError(err)
	}
	return data, nil
}

/** @brief Restores state written by ToJSON. The camera is untouched on error. */
func (c *Camera) FromJSON(data []byte) error {
	var s cameraJSON
	if err := json.Unmarshal(data, &s); err != nil {
		return core.NewJSONError(err)
	}
	c.Position = arrayVec(s.Position)
	c.Target = arrayVec(s.Target)
	c.CameraUp = arrayVec(s.CameraUp)
	c.Up = s.Up
	c.Projection = s.Projection
	c.Navigation = s.Navigation
	c.FovYDegrees = s.FovYDegrees
	c.Near = s.Near
	c.Far = s.Far
	c.OrthoScale = s.OrthoScale
	c.MoveSpeed = s.MoveSpeed
	c.IsDirty = true
	return nil
}
