package scene

import (
	"path/filepath"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/structures"
)

func newCloud(t *testing.T, name string, pts ...math.Vec3) *structures.PointCloud {
	t.Helper()
	return structures.NewPointCloud(name, pts)
}

func TestRegisterAndRemove(t *testing.T) {
	c := NewContext()
	pts := newCloud(t, "pts", math.NewVec3(0, 0, 0))
	require.NoError(t, c.Register(pts))
	assert.ErrorIs(t, c.Register(newCloud(t, "pts", math.NewVec3(1, 1, 1))), core.ErrStructureExists)

	got, ok := c.Get(structures.TypePointCloud, "pts")
	require.True(t, ok)
	assert.Same(t, pts, got)
	assert.False(t, c.Has(structures.TypeSurfaceMesh, "pts"))

	require.NoError(t, c.Remove(structures.TypePointCloud, "pts"))
	assert.ErrorIs(t, c.Remove(structures.TypePointCloud, "pts"), core.ErrStructureNotFound)
	assert.Empty(t, c.Structures())

	removed := c.TakeRemoved()
	require.Len(t, removed, 1)
	assert.Same(t, pts, removed[0])
	assert.Empty(t, c.TakeRemoved())
}

func TestStructuresKeepRegistrationOrder(t *testing.T) {
	c := NewContext()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, c.Register(newCloud(t, name, math.NewVec3(0, 0, 0))))
	}
	var names []string
	for _, s := range c.Structures() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
	assert.Len(t, c.StructuresOfType(structures.TypePointCloud), 3)
	assert.Empty(t, c.StructuresOfType(structures.TypeVolumeGrid))
}

func TestGroupPropagation(t *testing.T) {
	c := NewContext()
	pts := newCloud(t, "pts", math.NewVec3(0, 0, 0))
	require.NoError(t, c.Register(pts))
	ref := StructureRef{Type: structures.TypePointCloud, Name: "pts"}

	_, err := c.CreateGroup("G")
	require.NoError(t, err)
	require.NoError(t, c.AddToGroup("G", ref))
	require.NoError(t, c.SetGroupEnabled("G", false))

	assert.True(t, pts.IsEnabled())
	assert.False(t, c.IsVisible(pts))
	assert.Empty(t, c.VisibleStructures())

	require.NoError(t, c.SetGroupEnabled("G", true))
	assert.Len(t, c.VisibleStructures(), 1)
}

func TestNestedGroups(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.Register(newCloud(t, "pts", math.NewVec3(0, 0, 0))))
	ref := StructureRef{Type: structures.TypePointCloud, Name: "pts"}
	for _, name := range []string{"root", "mid", "leaf"} {
		_, err := c.CreateGroup(name)
		require.NoError(t, err)
	}
	_, err := c.CreateGroup("root")
	assert.ErrorIs(t, err, core.ErrGroupExists)

	require.NoError(t, c.AddChildGroup("root", "mid"))
	require.NoError(t, c.AddChildGroup("mid", "leaf"))
	require.NoError(t, c.AddToGroup("leaf", ref))

	assert.ErrorIs(t, c.AddChildGroup("leaf", "root"), core.ErrGroupCycle)
	assert.ErrorIs(t, c.AddChildGroup("leaf", "leaf"), core.ErrGroupCycle)
	assert.ErrorIs(t, c.AddToGroup("missing", ref), core.ErrGroupNotFound)
	assert.ErrorIs(t, c.AddToGroup("leaf", StructureRef{Type: structures.TypeSurfaceMesh, Name: "nope"}), core.ErrStructureNotFound)

	require.NoError(t, c.SetGroupEnabled("root", false))
	assert.False(t, c.IsGroupEnabled("leaf"))
	assert.Empty(t, c.VisibleStructures())

	require.NoError(t, c.RemoveGroup("root"))
	mid, ok := c.Group("mid")
	require.True(t, ok)
	assert.Empty(t, mid.Parent)
	assert.True(t, c.IsGroupEnabled("leaf"))
	assert.Len(t, c.VisibleStructures(), 1)
}

func TestRemoveDropsGroupMembershipAndSelection(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.Register(newCloud(t, "pts", math.NewVec3(0, 0, 0))))
	_, err := c.CreateGroup("G")
	require.NoError(t, err)
	ref := StructureRef{Type: structures.TypePointCloud, Name: "pts"}
	require.NoError(t, c.AddToGroup("G", ref))
	require.True(t, c.Select(ref.Type, ref.Name, 0))

	require.NoError(t, c.Remove(ref.Type, ref.Name))
	g, _ := c.Group("G")
	assert.Empty(t, g.Children)
	assert.False(t, c.Selection().Valid)
	assert.False(t, c.Select(ref.Type, ref.Name, 0))
}

func TestExtents(t *testing.T) {
	c := NewContext()
	c.UpdateExtents()
	assert.Equal(t, math.NewVec3(0, 0, 0), c.BoundingBox().Min)
	assert.Equal(t, math.NewVec3(1, 1, 1), c.BoundingBox().Max)
	assert.Equal(t, float32(1), c.LengthScale())

	require.NoError(t, c.Register(newCloud(t, "pts", math.NewVec3(0, 0, 0), math.NewVec3(3, 4, 0))))
	assert.True(t, c.ExtentsDirty())
	assert.True(t, c.UpdateExtentsIfDirty())
	assert.False(t, c.UpdateExtentsIfDirty())
	assert.InDelta(t, 5, c.LengthScale(), 1e-5)

	t.Run("manual extents survive until auto-compute is re-enabled", func(t *testing.T) {
		c.SetAutoComputeExtents(false)
		c.SetLengthScale(42)
		require.NoError(t, c.Register(newCloud(t, "far", math.NewVec3(0, 0, 12))))
		c.UpdateExtents()
		assert.Equal(t, float32(42), c.LengthScale())

		c.SetAutoComputeExtents(true)
		assert.InDelta(t, 13, c.LengthScale(), 1e-4)
	})

	t.Run("single point falls back to unit length scale", func(t *testing.T) {
		c := NewContext()
		one := newCloud(t, "one", math.NewVec3(2, 2, 2))
		require.NoError(t, c.Register(one))
		c.UpdateExtents()
		assert.Equal(t, float32(0), one.LengthScale())
		assert.Equal(t, math.NewVec3(2, 2, 2), c.BoundingBox().Min)
		assert.Equal(t, math.NewVec3(2, 2, 2), c.BoundingBox().Max)
		assert.Equal(t, float32(1), c.LengthScale())
	})
}

func TestCameraFitFlag(t *testing.T) {
	c := NewContext()
	assert.False(t, c.NeedsCameraFit())
	require.NoError(t, c.Register(newCloud(t, "pts", math.NewVec3(0, 0, 0))))
	assert.True(t, c.NeedsCameraFit())
	c.MarkCameraFitted()
	assert.False(t, c.NeedsCameraFit())
	c.RequestCameraFit()
	assert.True(t, c.NeedsCameraFit())
}

func TestSlicePlanes(t *testing.T) {
	c := NewContext()
	p, err := c.AddSlicePlane("cut")
	require.NoError(t, err)
	_, err = c.AddSlicePlane("cut")
	assert.ErrorIs(t, err, core.ErrStructureExists)

	p.SetPose(math.NewVec3(0, 1, 0), math.NewVec3(0, 2, 0))
	assert.InDelta(t, 1, p.Normal.Length(), 1e-6)
	assert.True(t, p.Discards(math.NewVec3(0, 1.5, 0)))
	assert.False(t, p.Discards(math.NewVec3(5, 0.5, 0)))

	planes := c.EnabledSlicePlanes()
	require.Len(t, planes, 1)
	assert.Equal(t, math.NewVec3(0, 1, 0), planes[0].Normal)

	p.Enabled = false
	assert.Empty(t, c.EnabledSlicePlanes())
	require.NoError(t, c.RemoveSlicePlane("cut"))
	assert.ErrorIs(t, c.RemoveSlicePlane("cut"), core.ErrStructureNotFound)
}

func TestFloatingQuantities(t *testing.T) {
	c := NewContext()
	_, err := c.AddScalarImage("bad", 2, 2, []float32{1, 2, 3}, "viridis")
	var sizeErr *core.SizeMismatchError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 4, sizeErr.Expected)

	img, err := c.AddScalarImage("depth", 2, 1, []float32{0, 10}, "viridis")
	require.NoError(t, err)
	assert.NotEqual(t, img.ID.String(), "00000000-0000-0000-0000-000000000000")
	_, err = c.AddScalarImage("depth", 2, 1, []float32{0, 10}, "viridis")
	assert.ErrorIs(t, err, core.ErrQuantityExists)

	gray := func(t float32) math.Vec3 { return math.NewVec3(t, t, t) }
	rgba := img.RGBA(gray)
	assert.Equal(t, math.NewVec4(0, 0, 0, 1), rgba[0])
	assert.Equal(t, math.NewVec4(1, 1, 1, 1), rgba[1])

	img.SetMapRange(0, 20)
	assert.InDelta(t, 0.5, img.RGBA(gray)[1].X, 1e-6)

	col, err := c.AddColorImage("albedo", 1, 1, []math.Vec4{math.NewVec4(1, 0, 0, 1)})
	require.NoError(t, err)
	_, ok := c.FullscreenQuantity()
	assert.False(t, ok)
	col.ShowFullscreen = true
	got, ok := c.FullscreenQuantity()
	require.True(t, ok)
	assert.Same(t, col, got)

	require.NoError(t, c.RemoveFloatingQuantity("albedo"))
	assert.ErrorIs(t, c.RemoveFloatingQuantity("albedo"), core.ErrQuantityNotFound)
}

func TestOptionsDefaultsAndNormalize(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, GroundPlaneTile, o.GroundPlaneMode)
	assert.Equal(t, TransparencySimple, o.EffectiveTransparency())
	assert.Equal(t, 8, o.TransparencyRenderPasses)

	tests := []struct {
		name   string
		factor int
		want   int
	}{
		{"below range", 0, 1},
		{"in range", 3, 3},
		{"above range", 9, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			o.SetSsaaFactor(tt.factor)
			assert.Equal(t, tt.want, o.SsaaFactor)
		})
	}

	o.MaxFps = 0
	o.GroundPlaneMode = GroundPlaneNone
	o.Normalize()
	assert.Equal(t, -1, o.MaxFps)
	assert.False(t, o.GroundPlaneEnabled)

	o.TransparencyEnabled = false
	assert.Equal(t, TransparencyNone, o.EffectiveTransparency())
}

func TestOptionsJSON(t *testing.T) {
	o := DefaultOptions()
	o.SetGroundPlaneMode(GroundPlaneTileReflection)
	o.TransparencyMode = TransparencyPretty
	o.SsaaFactor = 2
	o.BackgroundColor = [4]float32{0.1, 0.2, 0.3, 1}

	data, err := MarshalOptions(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ground_plane_mode": "tile_reflection"`)
	assert.Contains(t, string(data), `"transparency_mode": "pretty"`)

	back, err := UnmarshalOptions(data)
	require.NoError(t, err)
	assert.Equal(t, o, back)

	partial, err := UnmarshalOptions([]byte(`{"ssaa_factor": 16}`))
	require.NoError(t, err)
	assert.Equal(t, 4, partial.SsaaFactor)
	assert.Equal(t, GroundPlaneTile, partial.GroundPlaneMode)

	_, err = UnmarshalOptions([]byte(`{"ground_plane_mode": "lava"}`))
	assert.ErrorIs(t, err, core.ErrJSON)

	path := filepath.Join(t.TempDir(), "options.json")
	require.NoError(t, SaveOptions(path, o))
	loaded, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, o, loaded)

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, core.ErrIO)
}

func TestSnapshotIsDetached(t *testing.T) {
	c := NewContext()
	require.NoError(t, c.Register(newCloud(t, "pts", math.NewVec3(0, 0, 0), math.NewVec3(1, 0, 0))))
	_, err := c.CreateGroup("G")
	require.NoError(t, err)
	require.NoError(t, c.AddToGroup("G", StructureRef{Type: structures.TypePointCloud, Name: "pts"}))
	_, err = c.AddSlicePlane("cut")
	require.NoError(t, err)
	_, err = c.AddScalarImage("img", 1, 1, []float32{3}, "viridis")
	require.NoError(t, err)

	snap, err := c.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Structures, 1)
	assert.True(t, snap.Structures[0].Visible)
	require.Len(t, snap.Groups, 1)
	require.Len(t, snap.Floating, 1)
	assert.Equal(t, "img", snap.Floating[0].Name)
	assert.Equal(t, FloatingScalarImage, snap.Floating[0].Kind)

	snap.Groups[0].Children[0].Name = "changed"
	snap.SlicePlanes[0].Enabled = false
	snap.Options.BackgroundColor[0] = 0

	g, _ := c.Group("G")
	assert.Equal(t, "pts", g.Children[0].Name)
	assert.True(t, c.SlicePlanes()[0].Enabled)
	assert.Equal(t, float32(1), c.Options.BackgroundColor[0])
}

func TestGlobalLifecycle(t *testing.T) {
	t.Cleanup(func() { Shutdown() })

	assert.ErrorIs(t, With(func(*Context) error { return nil }), core.ErrNotInitialized)
	assert.Nil(t, Shutdown())

	opts := DefaultOptions()
	opts.SsaaFactor = 7
	require.NoError(t, Init(opts))
	assert.ErrorIs(t, Init(DefaultOptions()), core.ErrAlreadyInitialized)
	assert.True(t, IsInitialized())

	require.NoError(t, With(func(ctx *Context) error {
		assert.Equal(t, 4, ctx.Options.SsaaFactor)
		return ctx.Register(structures.NewPointCloud("pts", []math.Vec3{math.NewVec3(0, 0, 0)}))
	}))
	require.NoError(t, WithRead(func(ctx *Context) error {
		assert.Len(t, ctx.Structures(), 1)
		return nil
	}))

	ctx := Shutdown()
	require.NotNil(t, ctx)
	assert.Len(t, ctx.TakeRemoved(), 1)
	assert.Nil(t, Shutdown())
	assert.False(t, IsInitialized())

	require.NoError(t, Init(DefaultOptions()))
	require.NoError(t, WithRead(func(ctx *Context) error {
		assert.Empty(t, ctx.Structures())
		assert.False(t, math32.IsNaN(ctx.LengthScale()))
		return nil
	}))
}
