package components

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

const tol = 1e-3

func assertVec3(t *testing.T, want, got math.Vec3) {
	t.Helper()
	assert.Truef(t, want.Compare(got, tol), "want %v, got %v", want, got)
}

func TestFitToBox(t *testing.T) {
	tests := []struct {
		name   string
		min    math.Vec3
		max    math.Vec3
		radius float32
	}{
		{"cube", math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1), math32.Sqrt(3)},
		{"offset box", math.NewVec3(2, 0, 0), math.NewVec3(4, 0, 0), 1},
		{"empty box", math.NewVec3(5, 5, 5), math.NewVec3(5, 5, 5), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera()
			c.FitToBox(tt.min, tt.max, DefaultFitMargin)

			center := tt.min.Add(tt.max).MulScalar(0.5)
			dist := tt.radius * DefaultFitMargin / math32.Sin(math.DegToRad(DefaultFovYDegrees)*0.5)
			assertVec3(t, center, c.Target)
			assertVec3(t, center.Add(math.NewVec3(0, 0, dist)), c.Position)
			assert.InDelta(t, dist*0.01, c.Near, tol)
			assert.InDelta(t, (dist+tt.radius)*10, c.Far, tol)
		})
	}
}

func TestFitToBoxFollowsUpDir(t *testing.T) {
	c := NewCamera()
	c.SetUpDir(UpDirZ)
	c.FitToBox(math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1), DefaultFitMargin)
	assertVec3(t, math.NewVec3(0, 1, 0), c.LookDir())
	assertVec3(t, math.NewVec3(0, 0, 1), c.GetView().Up())
}

func TestViewMatrixRoundTrip(t *testing.T) {
	c := NewCamera()
	c.FitToBox(math.NewVec3(-1, 0, -2), math.NewVec3(3, 1, 2), DefaultFitMargin)
	c.Orbit(0.7, 0.3)
	c.Pan(0.2, -0.1)
	view := c.GetView()

	other := NewCamera()
	other.SetView(view)
	assertVec3(t, c.Position, other.Position)
	other.IsDirty = true
	assert.Less(t, view.FrobeniusDistance(other.GetView()), float32(tol))
}

func TestProjectionRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mode ProjectionMode
	}{
		{"perspective", ProjectionPerspective},
		{"orthographic", ProjectionOrthographic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera()
			c.Projection = tt.mode
			c.FovYDegrees = 60
			c.Near = 0.1
			c.Far = 50
			c.OrthoScale = 2.5

			other := NewCamera()
			aspect := other.SetProjection(c.GetProjection(1.5))
			assert.InDelta(t, 1.5, aspect, tol)
			assert.Equal(t, tt.mode, other.Projection)
			assert.InDelta(t, 0.1, other.Near, tol)
			assert.InDelta(t, 50, other.Far, 0.05)
			if tt.mode == ProjectionPerspective {
				assert.InDelta(t, 60, other.FovYDegrees, tol)
			} else {
				assert.InDelta(t, 2.5, other.OrthoScale, tol)
			}
		})
	}
}

func TestLinearDepth(t *testing.T) {
	for _, mode := range []ProjectionMode{ProjectionPerspective, ProjectionOrthographic} {
		c := NewCamera()
		c.Projection = mode
		c.Near = 0.5
		c.Far = 20
		proj := c.GetProjection(1)
		for _, d := range []float32{0.5, 1, 7, 20} {
			clip := math.NewVec4(0, 0, -d, 1).Transform(proj)
			assert.InDelta(t, d, c.LinearDepth(clip.Z/clip.W), 1e-2)
		}
	}
}

func TestTurntableOrbit(t *testing.T) {
	c := NewCamera()
	start := c.Position

	c.Orbit(0.5, 0.2)
	assert.InDelta(t, 3, c.Distance(), tol)
	assertVec3(t, math.NewVec3Zero(), c.Target)
	assertVec3(t, math.NewVec3(0, 1, 0), c.CameraUp)

	t.Run("full yaw returns to start", func(t *testing.T) {
		c := NewCamera()
		c.Orbit(math.K_PI_2, 0)
		assertVec3(t, start, c.Position)
	})

	t.Run("pitch stops short of the pole", func(t *testing.T) {
		c := NewCamera()
		c.Orbit(0, 10)
		offset := c.Position.Sub(c.Target)
		assert.Greater(t, offset.Y, float32(2.99))
		assert.Greater(t, math32.Hypot(offset.X, offset.Z), float32(0))
		assert.False(t, math32.IsNaN(c.GetView().Data[0]))
	})
}

func TestFreeAndArcballKeepDistance(t *testing.T) {
	for _, style := range []NavigationStyle{NavigationFree, NavigationArcball} {
		t.Run(style.String(), func(t *testing.T) {
			c := NewCamera()
			c.SetNavigation(style)
			c.Orbit(0.4, 1.2)
			c.ArcballDrag(math.NewVec2(0, 0), math.NewVec2(0.3, 0.2))
			assert.InDelta(t, 3, c.Distance(), tol)
			assert.InDelta(t, 0, c.CameraUp.Dot(c.LookDir()), tol)
		})
	}
}

func TestPanAndZoom(t *testing.T) {
	c := NewCamera()
	right := c.Right()
	c.Pan(2, 0)
	assertVec3(t, right.MulScalar(2), c.Target)
	assert.InDelta(t, 3, c.Distance(), tol)

	c.Zoom(1)
	assert.InDelta(t, 2, c.Distance(), tol)
	c.Zoom(100)
	assert.InDelta(t, minZoomDistance, c.Distance(), 1e-5)

	c.Projection = ProjectionOrthographic
	c.Zoom(0.5)
	assert.InDelta(t, 0.5, c.OrthoScale, tol)
}

func TestNavigationStyles(t *testing.T) {
	t.Run("none ignores input", func(t *testing.T) {
		c := NewCamera()
		c.SetNavigation(NavigationNone)
		before := *c
		c.Orbit(1, 1)
		c.Pan(1, 1)
		c.Zoom(1)
		assert.Equal(t, before.Position, c.Position)
		assert.Equal(t, before.Target, c.Target)
	})

	t.Run("planar does not rotate", func(t *testing.T) {
		c := NewCamera()
		c.SetNavigation(NavigationPlanar)
		c.Orbit(1, 1)
		assertVec3(t, math.NewVec3(0, 0, -1), c.LookDir())
	})

	t.Run("first person turns in place", func(t *testing.T) {
		c := NewCamera()
		c.SetNavigation(NavigationFirstPerson)
		pos := c.Position
		c.Orbit(math.K_HALF_PI, 0)
		assertVec3(t, pos, c.Position)
		assert.InDelta(t, 0, c.LookDir().Z, tol)

		c.Pitch(10)
		assert.Less(t, c.LookDir().Y, float32(1))
		c.MoveForward(1)
		assert.InDelta(t, 3, c.Distance(), tol)
	})
}

func TestCameraJSON(t *testing.T) {
	c := NewCamera()
	c.SetNavigation(NavigationArcball)
	c.Projection = ProjectionOrthographic
	c.FitToBox(math.NewVec3(0, 0, 0), math.NewVec3(2, 2, 2), DefaultFitMargin)
	c.Orbit(0.3, 0.1)

	data, err := c.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"navigation":"arcball"`)

	other := NewCamera()
	require.NoError(t, other.FromJSON(data))
	assertVec3(t, c.Position, other.Position)
	assertVec3(t, c.Target, other.Target)
	assert.Equal(t, c.Navigation, other.Navigation)
	assert.Equal(t, c.Projection, other.Projection)
	assert.Equal(t, c.Far, other.Far)
	assert.Less(t, c.GetView().FrobeniusDistance(other.GetView()), float32(tol))

	err = other.FromJSON([]byte(`{"navigation":"spin"}`))
	assert.ErrorIs(t, err, core.ErrJSON)
	assertVec3(t, c.Position, other.Position)
}
