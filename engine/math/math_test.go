package math

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = float32(1e-4)

func assertMat4Near(t *testing.T, want, got Mat4, tolerance float32) {
	t.Helper()
	assert.LessOrEqual(t, want.FrobeniusDistance(got), tolerance, "want %v got %v", want.Data, got.Data)
}

func TestMat4Inverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
	}{
		{"identity", NewMat4Identity()},
		{"translation", NewMat4Translation(NewVec3(1, -2, 3))},
		{"scale rotate translate", NewMat4Scale(NewVec3(2, 3, 0.5)).
			Mul(NewQuatFromAxisAngle(NewVec3(1, 1, 0), 0.7, true).ToMat4()).
			Mul(NewMat4Translation(NewVec3(4, 5, 6)))},
		{"perspective", NewMat4Perspective(DegToRad(45), 1.5, 0.1, 100)},
		{"look at", NewMat4LookAt(NewVec3(3, 4, 5), NewVec3Zero(), NewVec3Up())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertMat4Near(t, NewMat4Identity(), tt.m.Mul(tt.m.Inverse()), 1e-3)
		})
	}
}

func TestMat4InverseSingularFallsBackToIdentity(t *testing.T) {
	assert.Equal(t, NewMat4Identity(), Mat4{}.Inverse())
}

func TestLookAtMapsTargetOntoNegativeZ(t *testing.T) {
	eye := NewVec3(0, 0, 5)
	view := NewMat4LookAt(eye, NewVec3Zero(), NewVec3Up())

	p := NewVec3Zero().Transform(view)
	assert.True(t, p.Compare(NewVec3(0, 0, -5), tol), "got %v", p)
	assert.True(t, eye.Transform(view).Compare(NewVec3Zero(), tol))
	assert.True(t, view.Forward().Compare(NewVec3(0, 0, -1), tol))
	assert.True(t, view.Right().Compare(NewVec3(1, 0, 0), tol))
	assert.True(t, view.Up().Compare(NewVec3(0, 1, 0), tol))
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := NewMat4Perspective(DegToRad(60), 1, 0.5, 50)

	near := ProjectPoint(NewVec3(0, 0, -0.5), proj)
	far := ProjectPoint(NewVec3(0, 0, -50), proj)
	assert.InDelta(t, 0, near.Z, 1e-4)
	assert.InDelta(t, 1, far.Z, 1e-4)
}

func TestOrthographicDepthRange(t *testing.T) {
	proj := NewMat4Orthographic(-2, 2, -1, 1, 1, 11)

	assert.InDelta(t, 0, ProjectPoint(NewVec3(0, 0, -1), proj).Z, 1e-5)
	assert.InDelta(t, 1, ProjectPoint(NewVec3(0, 0, -11), proj).Z, 1e-5)
	assert.InDelta(t, 1, ProjectPoint(NewVec3(2, 1, -5), proj).X, 1e-5)
	assert.InDelta(t, 1, ProjectPoint(NewVec3(2, 1, -5), proj).Y, 1e-5)
}

func TestQuaternionMatrixAgreesWithRotate(t *testing.T) {
	q := NewQuatFromAxisAngle(NewVec3(0, 0, 1), K_HALF_PI, true)
	v := NewVec3(1, 0, 0)

	assert.True(t, q.Rotate(v).Compare(NewVec3(0, 1, 0), tol))
	assert.True(t, v.Transform(q.ToMat4()).Compare(NewVec3(0, 1, 0), tol))

	back := NewQuatFromMat4(q.ToMat4())
	assert.InDelta(t, 1, math32.Abs(back.Dot(q)), 1e-4)
}

func TestTransformMatrixRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		position Vec3
		rotation Quaternion
		scale    Vec3
	}{
		{"identity", NewVec3Zero(), NewQuatIdentity(), NewVec3One()},
		{"translated", NewVec3(1, 2, 3), NewQuatIdentity(), NewVec3One()},
		{"rotated", NewVec3(-4, 0, 2), NewQuatFromAxisAngle(NewVec3(1, 2, 3), 1.1, true), NewVec3One()},
		{"scaled", NewVec3(0, 1, 0), NewQuatFromAxisAngle(NewVec3(0, 1, 0), 2.5, true), NewVec3(2, 0.5, 3)},
		{"near half turn", NewVec3(5, 5, 5), NewQuatFromAxisAngle(NewVec3(1, 0, 0), 3.1, true), NewVec3(1, 1, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewTransformFromPRS(tt.position, tt.rotation, tt.scale)
			got := NewTransformFromMatrix(src.GetLocal())

			assert.True(t, got.Position.Compare(tt.position, 1e-5))
			assert.True(t, got.Scale.Compare(tt.scale, 1e-4))
			assert.InDelta(t, 1, math32.Abs(got.Rotation.Dot(tt.rotation.Normalize())), 1e-5)
			assertMat4Near(t, src.GetLocal(), got.GetLocal(), 1e-4)
		})
	}
}

func TestTransformFromMirroredMatrix(t *testing.T) {
	rotation := NewQuatFromAxisAngle(NewVec3(0, 1, 0), 0.7, true)
	m := NewMat4Scale(NewVec3(-1, 2, 1)).Mul(rotation.ToMat4()).Mul(NewMat4Translation(NewVec3(3, 0, -1)))

	got := NewTransformFromMatrix(m)
	assert.True(t, got.Scale.Compare(NewVec3(-1, 2, 1), 1e-4))
	assert.True(t, got.Position.Compare(NewVec3(3, 0, -1), 1e-5))
	assertMat4Near(t, m, got.GetLocal(), 1e-4)
}

func TestTransformParentChain(t *testing.T) {
	parent := NewTransformFromPosition(NewVec3(10, 0, 0))
	child := NewTransformFromPosition(NewVec3(0, 1, 0))
	child.Parent = parent

	p := NewVec3Zero().Transform(child.GetWorld())
	assert.True(t, p.Compare(NewVec3(10, 1, 0), tol))

	parent.SetScale(NewVec3(2, 2, 2))
	p = NewVec3Zero().Transform(child.GetWorld())
	assert.True(t, p.Compare(NewVec3(10, 2, 0), tol))
}

func TestEulerRoundTrip(t *testing.T) {
	angles := []Vec3{
		{0, 0, 0},
		{0.3, 0.2, 0.1},
		{-1.2, 0.7, 2.9},
		{3.0, -1.4, -3.0},
	}
	for _, a := range angles {
		q := NewQuatFromEuler(a)
		got := NewQuatFromEuler(q.Euler())
		assert.InDelta(t, 1, math32.Abs(got.Dot(q)), 1e-5, "angles %v", a)
		assert.True(t, q.Euler().Compare(a, 1e-3), "angles %v got %v", a, q.Euler())
	}
}

func TestReflectionIsInvolution(t *testing.T) {
	planes := []struct{ point, normal Vec3 }{
		{NewVec3Zero(), NewVec3(0, 1, 0)},
		{NewVec3(0, -2, 0), NewVec3(0, 1, 0)},
		{NewVec3(1, 2, 3), NewVec3(1, 1, 1)},
		{NewVec3(-5, 0.5, 7), NewVec3(0.2, -0.9, 0.3)},
	}
	for _, p := range planes {
		r := NewMat4Reflection(p.point, p.normal)
		assert.Less(t, r.Mul(r).FrobeniusDistance(NewMat4Identity()), float32(1e-5))
		assert.True(t, p.point.Transform(r).Compare(p.point, tol))
	}

	r := NewMat4Reflection(NewVec3(0, -1, 0), NewVec3(0, 1, 0))
	assert.True(t, NewVec3(3, 2, 1).Transform(r).Compare(NewVec3(3, -4, 1), tol))
}

func TestDualQuatLerpEndpoints(t *testing.T) {
	ra := NewQuatFromAxisAngle(NewVec3(0, 0, 1), 0.4, true)
	ta := NewVec3(1, 2, 3)
	rb := NewQuatFromAxisAngle(NewVec3(1, 0, 0), -2.0, true)
	tb := NewVec3(-3, 0.5, 8)
	a := NewDualQuat(ra, ta)
	b := NewDualQuat(rb, tb)

	start := a.Lerp(b, 0)
	end := a.Lerp(b, 1)

	assert.InDelta(t, 1, math32.Abs(start.Rotation().Dot(ra)), 1e-4)
	assert.True(t, start.Translation().Compare(ta, 1e-4))
	assert.InDelta(t, 1, math32.Abs(end.Rotation().Dot(rb)), 1e-4)
	assert.True(t, end.Translation().Compare(tb, 1e-4))
}

func TestDualQuatMatchesMatrix(t *testing.T) {
	r := NewQuatFromAxisAngle(NewVec3(1, 1, 0), 0.9, true)
	tr := NewVec3(2, -1, 4)
	d := NewDualQuat(r, tr)
	p := NewVec3(0.5, 1.5, -2)

	want := p.Transform(r.ToMat4().Mul(NewMat4Translation(tr)))
	assert.True(t, d.TransformPoint(p).Compare(want, 1e-4))
	assert.True(t, p.Transform(d.ToMat4()).Compare(want, 1e-4))
}

func TestExtentsTransform(t *testing.T) {
	e := Extents3D{Min: NewVec3Zero(), Max: NewVec3One()}
	m := NewQuatFromAxisAngle(NewVec3(0, 0, 1), K_HALF_PI, true).ToMat4().Mul(NewMat4Translation(NewVec3(5, 0, 0)))

	got := e.Transform(m)
	assert.True(t, got.Min.Compare(NewVec3(4, 0, 0), tol), "%v", got)
	assert.True(t, got.Max.Compare(NewVec3(5, 1, 1), tol), "%v", got)
	assert.InDelta(t, math32.Sqrt(3), got.Diagonal(), 1e-4)
}

func TestExtentsEmpty(t *testing.T) {
	e := NewExtentsEmpty()
	require.True(t, e.IsEmpty())
	assert.Equal(t, float32(0), e.Diagonal())

	e = e.Expand(NewVec3(1, 1, 1)).Expand(NewVec3(math32.NaN(), 0, 0))
	assert.False(t, e.IsEmpty())
	assert.Equal(t, float32(0), e.Diagonal())
}

func TestPolygonNormal(t *testing.T) {
	quad := []Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	assert.True(t, PolygonNormal(quad).Compare(NewVec3(0, 0, 1), tol))
	assert.True(t, TriangleNormal(quad[0], quad[1], quad[2]).Compare(NewVec3(0, 0, 1), tol))
	assert.InDelta(t, 0.5, TriangleArea(quad[0], quad[1], quad[2]), 1e-6)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 4, Clamp(7, 1, 4))
	assert.Equal(t, 1, Clamp(-3, 1, 4))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}
