package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

func initScene(t *testing.T) {
	t.Helper()
	require.NoError(t, scene.Init(scene.DefaultOptions()))
	t.Cleanup(func() { scene.Shutdown() })
}

func quad() ([]math.Vec3, [][]uint32) {
	return []math.Vec3{
		math.NewVec3(0, 0, 0),
		math.NewVec3(1, 0, 0),
		math.NewVec3(1, 1, 0),
		math.NewVec3(0, 1, 0),
	}, [][]uint32{{0, 1, 2, 3}}
}

func TestRequiresInitializedScene(t *testing.T) {
	_, err := RegisterPointCloud("points", []math.Vec3{math.NewVec3Zero()})
	assert.ErrorIs(t, err, core.ErrNotInitialized)
	assert.False(t, StructureExists(structures.TypePointCloud, "points"))
	_, ok := GetPointCloud("points")
	assert.False(t, ok)
}

func TestRegisterGetRemove(t *testing.T) {
	initScene(t)

	pc, err := RegisterPointCloud("points", []math.Vec3{math.NewVec3Zero(), math.NewVec3One()})
	require.NoError(t, err)
	assert.Equal(t, "points", pc.Name())
	assert.True(t, pc.Exists())

	_, err = RegisterPointCloud("points", nil)
	assert.ErrorIs(t, err, core.ErrStructureExists)

	// Names are unique per type only.
	verts, faces := quad()
	_, err = RegisterSurfaceMesh("points", verts, faces)
	require.NoError(t, err)

	got, ok := GetPointCloud("points")
	require.True(t, ok)
	assert.Equal(t, pc.Ref(), got.Ref())

	require.NoError(t, pc.SetPointRadius(0.5, false))
	require.NoError(t, WithPointCloudRef("points", func(p *structures.PointCloud) error {
		assert.True(t, p.RadiusAbsolute)
		assert.Equal(t, float32(0.5), p.PointRadius)
		return nil
	}))

	require.NoError(t, RemovePointCloud("points"))
	assert.False(t, pc.Exists())
	assert.ErrorIs(t, pc.SetEnabled(false), core.ErrStructureNotFound)
	assert.ErrorIs(t, RemovePointCloud("points"), core.ErrStructureNotFound)
	assert.True(t, StructureExists(structures.TypeSurfaceMesh, "points"))

	require.NoError(t, scene.WithRead(func(ctx *scene.Context) error {
		assert.Len(t, ctx.Structures(), 1)
		return nil
	}))
}

func TestHandleCommonSetters(t *testing.T) {
	initScene(t)
	cn, err := RegisterCurveNetworkLine("line", []math.Vec3{
		math.NewVec3(0, 0, 0), math.NewVec3(1, 0, 0), math.NewVec3(1, 1, 0),
	}, true)
	require.NoError(t, err)

	require.NoError(t, scene.With(func(ctx *scene.Context) error {
		ctx.UpdateExtents()
		assert.False(t, ctx.ExtentsDirty())
		return nil
	}))

	require.NoError(t, cn.SetTransform(math.NewMat4Identity()))
	require.NoError(t, cn.SetMaterial("wax"))
	require.NoError(t, cn.SetTransparency(0.5))
	require.NoError(t, cn.SetEnabled(false))
	require.NoError(t, cn.SetMode(structures.CurveModeLines))
	require.NoError(t, cn.Select())

	enabled, err := cn.IsEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, scene.WithRead(func(ctx *scene.Context) error {
		assert.True(t, ctx.ExtentsDirty())
		assert.Equal(t, cn.Ref(), ctx.Selection().Ref)
		return nil
	}))
	require.NoError(t, WithCurveNetworkRef("line", func(c *structures.CurveNetwork) error {
		assert.Equal(t, "wax", c.Material())
		assert.True(t, c.IsTransparent())
		assert.Equal(t, structures.CurveModeLines, c.Mode)
		assert.Len(t, c.Edges(), 3)
		return nil
	}))
}

func TestQuantityAttachers(t *testing.T) {
	initScene(t)
	verts, faces := quad()
	mesh, err := RegisterSurfaceMesh("quad", verts, faces)
	require.NoError(t, err)

	tests := []struct {
		name string
		add  func() error
		want error
	}{
		{"vertex scalar", func() error {
			_, err := mesh.AddVertexScalarQuantity("height", []float32{0, 1, 2, 3})
			return err
		}, nil},
		{"duplicate name", func() error {
			_, err := mesh.AddFaceScalarQuantity("height", []float32{1})
			return err
		}, core.ErrQuantityExists},
		{"face color", func() error {
			_, err := mesh.AddFaceColorQuantity("tint", []math.Vec3{math.NewVec3One()})
			return err
		}, nil},
		{"wrong count", func() error {
			_, err := mesh.AddVertexVectorQuantity("flow", []math.Vec3{math.NewVec3Up()})
			return err
		}, core.ErrSizeMismatch},
		{"one form on edges", func() error {
			_, err := mesh.AddOneFormQuantity("form", []float32{1, 0, -1, 0}, []bool{true, true, true, true})
			return err
		}, nil},
		{"corner uv", func() error {
			_, err := mesh.AddCornerParameterizationQuantity("uv", []math.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
			return err
		}, nil},
		{"intrinsic vectors", func() error {
			_, err := mesh.AddVertexIntrinsicVectorQuantity("tangent", []math.Vec2{{1, 0}, {1, 0}, {1, 0}, {1, 0}})
			return err
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.add()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	require.NoError(t, WithSurfaceMeshRef("quad", func(m *structures.SurfaceMesh) error {
		assert.Len(t, m.Quantities(), 5)
		return nil
	}))
}

func TestQuantityHandle(t *testing.T) {
	initScene(t)
	pc, err := RegisterPointCloud("points", []math.Vec3{math.NewVec3Zero(), math.NewVec3One()})
	require.NoError(t, err)

	q, err := pc.AddScalarQuantity("value", []float32{2, 4})
	require.NoError(t, err)
	assert.Equal(t, pc.Ref(), q.Owner())

	require.NoError(t, SetMapRange(q, 0, 10))
	require.NoError(t, SetColormap(q, "coolwarm"))
	require.NoError(t, q.With(func(s *quantities.ScalarQuantity) error {
		lo, hi := s.MapRange()
		assert.Equal(t, float32(0), lo)
		assert.Equal(t, float32(10), hi)
		assert.Equal(t, "coolwarm", s.Colormap)
		return nil
	}))
	require.NoError(t, SetMapRange(q, 1, 1))
	require.NoError(t, q.With(func(s *quantities.ScalarQuantity) error {
		lo, hi := s.MapRange()
		assert.Equal(t, float32(2), lo)
		assert.Equal(t, float32(4), hi)
		return nil
	}))

	// A handle typed for another kind does not resolve.
	wrong := QuantityHandle[*quantities.ColorQuantity]{owner: q.Owner(), name: q.Name()}
	assert.ErrorIs(t, wrong.SetEnabled(false), core.ErrQuantityNotFound)

	require.NoError(t, q.SetEnabled(false))
	require.NoError(t, pc.EnableQuantityExclusive("value"))
	require.NoError(t, q.Remove())
	assert.ErrorIs(t, q.SetEnabled(true), core.ErrQuantityNotFound)
	assert.ErrorIs(t, pc.RemoveQuantity("value"), core.ErrQuantityNotFound)
}

func TestVolumeStructures(t *testing.T) {
	initScene(t)

	grid, err := RegisterVolumeGrid("grid", [3]int{2, 2, 2}, math.NewVec3Zero(), math.NewVec3One())
	require.NoError(t, err)
	iso, err := grid.AddNodeScalarQuantity("sdf", []float32{-1, -1, -1, -1, 1, 1, 1, 1}, quantities.GridVizIsosurface)
	require.NoError(t, err)
	require.NoError(t, SetIsoValue(iso, 0.25))
	_, err = grid.AddCellScalarQuantity("density", []float32{3})
	require.NoError(t, err)
	require.NoError(t, iso.With(func(s *quantities.ScalarQuantity) error {
		assert.Equal(t, quantities.GridVizIsosurface, s.VizMode)
		assert.Equal(t, float32(0.25), s.IsoValue)
		return nil
	}))

	_, err = RegisterVolumeGrid("flat", [3]int{1, 2, 2}, math.NewVec3Zero(), math.NewVec3One())
	assert.Error(t, err)

	tet, err := RegisterTetMesh("tet", []math.Vec3{
		math.NewVec3(0, 0, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 1, 0), math.NewVec3(0, 0, 1),
	}, [][4]uint32{{0, 1, 2, 3}})
	require.NoError(t, err)
	_, err = tet.AddCellScalarQuantity("quality", []float32{1})
	require.NoError(t, err)
	_, err = tet.AddVertexColorQuantity("rgb", []math.Vec3{{1, 0, 0}})
	assert.ErrorIs(t, err, core.ErrSizeMismatch)

	cam, err := RegisterCameraView("cam", structures.NewCameraParameters(
		math.NewVec3(0, 0, 3), math.NewVec3(0, 0, -1), math.NewVec3Up(), 60, 1.5))
	require.NoError(t, err)
	require.NoError(t, cam.SetWidget(0.1, 0.01, math.NewVec3One()))
	require.NoError(t, WithCameraViewRef("cam", func(cv *structures.CameraView) error {
		assert.Equal(t, float32(0.1), cv.WidgetFocalLength)
		return nil
	}))

	_, ok := GetVolumeMesh("tet")
	assert.True(t, ok)
	_, ok = GetCameraView("missing")
	assert.False(t, ok)
	require.NoError(t, RemoveAllStructures())
	assert.False(t, grid.Exists())
}

func TestGroups(t *testing.T) {
	initScene(t)
	pc, err := RegisterPointCloud("points", []math.Vec3{math.NewVec3Zero()})
	require.NoError(t, err)

	parent, err := CreateGroup("parent")
	require.NoError(t, err)
	child, err := CreateGroup("child")
	require.NoError(t, err)
	_, err = CreateGroup("child")
	assert.ErrorIs(t, err, core.ErrGroupExists)

	require.NoError(t, parent.AddChildGroup(child))
	assert.ErrorIs(t, child.AddChildGroup(parent), core.ErrGroupCycle)
	require.NoError(t, child.AddStructure(pc))

	require.NoError(t, parent.SetEnabled(false))
	assert.False(t, child.IsEnabled())
	require.NoError(t, scene.WithRead(func(ctx *scene.Context) error {
		s, _ := ctx.Get(structures.TypePointCloud, "points")
		assert.False(t, ctx.IsVisible(s))
		return nil
	}))

	require.NoError(t, parent.SetEnabled(true))
	assert.True(t, child.IsEnabled())
	require.NoError(t, child.SetShowChildDetails(false))
	require.NoError(t, child.RemoveStructure(pc))
	require.NoError(t, parent.Remove())
	_, ok := GetGroup("parent")
	assert.False(t, ok)
	assert.ErrorIs(t, GroupHandle{name: "parent"}.SetEnabled(true), core.ErrGroupNotFound)
}

func TestSlicePlanes(t *testing.T) {
	initScene(t)
	plane, err := AddSlicePlane("cut")
	require.NoError(t, err)
	_, err = AddSlicePlane("cut")
	assert.ErrorIs(t, err, core.ErrStructureExists)

	require.NoError(t, plane.SetPose(math.NewVec3(1, 0, 0), math.NewVec3(0, 0, 4)))
	require.NoError(t, plane.SetColor(math.NewVec3One(), 2))
	require.NoError(t, plane.SetDrawing(false, true))
	require.NoError(t, plane.With(func(p *scene.SlicePlane) error {
		assert.InDelta(t, 1, p.Normal.Z, 1e-6)
		assert.Equal(t, float32(1), p.Transparency)
		assert.False(t, p.DrawPlane)
		assert.True(t, p.Discards(math.NewVec3(0, 0, 1)))
		return nil
	}))

	require.NoError(t, plane.SetEnabled(false))
	require.NoError(t, scene.WithRead(func(ctx *scene.Context) error {
		assert.Empty(t, ctx.EnabledSlicePlanes())
		return nil
	}))
	require.NoError(t, plane.Remove())
	assert.ErrorIs(t, plane.SetEnabled(true), core.ErrStructureNotFound)
}

func TestFloatingQuantities(t *testing.T) {
	initScene(t)
	_, err := AddScalarImage("depth", 2, 2, []float32{0, 1, 2}, "viridis")
	assert.ErrorIs(t, err, core.ErrSizeMismatch)

	img, err := AddScalarImage("depth", 2, 1, []float32{0, 1}, "viridis")
	require.NoError(t, err)
	require.NoError(t, img.ShowFullscreen(true))
	require.NoError(t, img.SetMapRange(-1, 1))

	_, err = AddColorImage("albedo", 1, 1, []math.Vec4{{1, 0, 0, 1}})
	require.NoError(t, err)

	require.NoError(t, scene.WithRead(func(ctx *scene.Context) error {
		f, ok := ctx.FullscreenQuantity()
		require.True(t, ok)
		assert.Equal(t, "depth", f.Name)
		lo, hi := f.MapRange()
		assert.Equal(t, float32(-1), lo)
		assert.Equal(t, float32(1), hi)
		return nil
	}))

	require.NoError(t, img.Remove())
	assert.ErrorIs(t, img.SetEnabled(true), core.ErrQuantityNotFound)
}

func TestOptionsAndSelection(t *testing.T) {
	initScene(t)
	require.NoError(t, SetOptions(func(o *scene.Options) {
		o.SsaaFactor = 10
		o.GroundPlaneMode = scene.GroundPlaneNone
	}))
	options, err := GetOptions()
	require.NoError(t, err)
	assert.Equal(t, scene.MaxSsaaFactor, options.SsaaFactor)
	assert.False(t, options.GroundPlaneEnabled)

	require.NoError(t, SetGizmo(func(g *scene.GizmoConfig) { g.Visible = false }))
	require.NoError(t, RequestCameraFit())

	pc, err := RegisterPointCloud("points", []math.Vec3{math.NewVec3Zero()})
	require.NoError(t, err)
	require.NoError(t, pc.Select())
	sel, err := GetSelection()
	require.NoError(t, err)
	assert.True(t, sel.Valid)
	require.NoError(t, ClearSelection())
	sel, err = GetSelection()
	require.NoError(t, err)
	assert.False(t, sel.Valid)
}
