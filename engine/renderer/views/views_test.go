package views

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/null"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

func assertVec3(t *testing.T, expected, actual math.Vec3) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, 1e-4)
	assert.InDelta(t, expected.Y, actual.Y, 1e-4)
	assert.InDelta(t, expected.Z, actual.Z, 1e-4)
}

func TestShadowCameraNearVerticalLight(t *testing.T) {
	c := NewShadowCamera(math.NewVec3(0, -1, 0.01), math.Vec3{}, 10)

	dir := math.NewVec3(0, -1, 0.01).Normalized()
	assertVec3(t, dir.MulScalar(-20), c.Eye)
	assertVec3(t, math.NewVec3(0, 0, 1), c.Up)
	assert.Equal(t, float32(10), c.Extent)
	assert.Equal(t, float32(0.1), c.Near)
	assert.Equal(t, float32(40), c.Far)

	center := math.ProjectPoint(math.Vec3{}, c.ViewProjection())
	assert.InDelta(t, 0, center.X, 1e-4)
	assert.InDelta(t, 0, center.Y, 1e-4)
	assert.Greater(t, center.Z, float32(0))
	assert.Less(t, center.Z, float32(1))
}

func TestShadowCameraObliqueLightKeepsYUp(t *testing.T) {
	c := NewShadowCamera(DefaultLightDirection, math.NewVec3(1, 2, 3), 4)
	assertVec3(t, math.NewVec3(0, 1, 0), c.Up)
	assert.InDelta(t, 8, c.Eye.Distance(c.Center), 1e-4)
}

func TestPickEncodeRoundTrip(t *testing.T) {
	for _, index := range []uint32{0, 1, 255, 256, 0xFF0000, 12345678 & 0xFFFFFF, MaxPickIndex} {
		pixel := EncodePickID(index, 7)
		got, disc, ok := DecodePickID(pixel)
		require.True(t, ok)
		assert.Equal(t, index, got)
		assert.Equal(t, uint32(7), disc)
	}
}

func TestPickDecodeSentinel(t *testing.T) {
	_, _, ok := DecodePickID(EncodePickID(42, 0))
	assert.False(t, ok)
}

func TestPickTable(t *testing.T) {
	var table PickTable
	pc := structures.NewPointCloud("pts", []math.Vec3{{}})
	assert.Equal(t, uint32(1), table.Add(pc))

	entry, ok := table.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "pts", entry.Name)
	assert.Equal(t, pc.Type(), entry.Type)
	assert.Equal(t, quantities.DomainVertex, entry.Domain)

	_, ok = table.Lookup(0)
	assert.False(t, ok)
	_, ok = table.Lookup(2)
	assert.False(t, ok)

	for i := 1; i < MaxPickDiscriminator; i++ {
		table.Add(pc)
	}
	assert.Equal(t, MaxPickDiscriminator, table.Len())
	assert.Equal(t, uint32(0), table.Add(pc))

	var missing *PickTable
	_, ok = missing.Lookup(1)
	assert.False(t, ok)
}

func TestUnprojectPixelIdentity(t *testing.T) {
	id := math.NewMat4Identity()
	p, err := UnprojectPixel(1, 0, 0.25, id, id, 2, 2)
	require.NoError(t, err)
	assertVec3(t, math.NewVec3(0.5, 0.5, 0.25), p)
}

func TestUnprojectPixelThroughCamera(t *testing.T) {
	view := math.NewMat4LookAt(math.NewVec3(0, 0, 5), math.Vec3{}, math.NewVec3(0, 1, 0))
	proj := math.NewMat4Perspective(math.DegToRad(45), 1, 0.1, 100)
	ndc := math.ProjectPoint(math.Vec3{}, view.Mul(proj))

	// The origin projects to the middle of an even-sized viewport.
	p, err := UnprojectPixel(49, 49, ndc.Z, view, proj, 100, 100)
	require.NoError(t, err)
	assert.InDelta(t, 0, p.Z, 0.05)
	assert.InDelta(t, 0, p.X, 0.05)
	assert.InDelta(t, 0, p.Y, 0.05)
}

type fakeTargets struct {
	backend *null.Backend
	handles map[string]metadata.TextureHandle
}

func (f *fakeTargets) Target(name string, w, h uint32, format metadata.TextureFormat, usage metadata.TextureUsage) (metadata.TextureHandle, error) {
	if h, ok := f.handles[name]; ok {
		return h, nil
	}
	tex, err := f.backend.TextureCreate(&metadata.TextureDescriptor{Label: name, Width: w, Height: h, Format: format, Usage: usage})
	if err != nil {
		return metadata.InvalidHandle, err
	}
	f.handles[name] = tex
	return tex, nil
}

func (f *fakeTargets) Lookup(name string) (metadata.TextureHandle, bool) {
	h, ok := f.handles[name]
	return h, ok
}

func newPickPacket(t *testing.T) (*Packet, *null.Backend, *fakeTargets) {
	t.Helper()
	b := null.New()
	require.NoError(t, b.Initialize(&metadata.RendererBackendConfig{ApplicationName: "views", Width: 4, Height: 4, Headless: true}))
	targets := &fakeTargets{backend: b, handles: map[string]metadata.TextureHandle{}}
	_, err := targets.Target(TargetPick, 4, 4, metadata.PickFormat, metadata.TextureUsageCopySrc)
	require.NoError(t, err)
	_, err = targets.Target(TargetPickDepth, 4, 4, metadata.DepthFormat, metadata.TextureUsageCopySrc)
	require.NoError(t, err)

	table := &PickTable{}
	table.Add(structures.NewPointCloud("pts", []math.Vec3{{}}))
	return &Packet{
		Backend:    b,
		Targets:    targets,
		Width:      4,
		Height:     4,
		View:       math.NewMat4Identity(),
		Projection: math.NewMat4Identity(),
		Pick:       &PickRequest{X: 2, Y: 1},
		PickTable:  table,
	}, b, targets
}

func TestPickResolveHit(t *testing.T) {
	p, b, targets := newPickPacket(t)
	color, _ := targets.Lookup(TargetPick)
	b.SetReadback(func(tex metadata.TextureHandle, x, y, w, h uint32) []byte {
		if tex == color {
			px := EncodePickID(1234, 1)
			return px[:]
		}
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, stdmath.Float32bits(0.5))
		return out
	})

	v := NewRenderViewPick()
	require.NoError(t, v.OnResolve(p))
	require.True(t, v.HasResult)
	assert.True(t, v.Result.Hit)
	assert.Equal(t, "pts", v.Result.Name)
	assert.Equal(t, uint32(1234), v.Result.Element)
	assert.Equal(t, float32(0.5), v.Result.Depth)
	// Pixel (2, 1) of a 4x4 viewport sits at NDC (0.25, 0.25).
	assertVec3(t, math.NewVec3(0.25, 0.25, 0.5), v.Result.WorldPosition)
}

func TestPickResolveMiss(t *testing.T) {
	tests := []struct {
		name  string
		pixel [4]byte
		req   PickRequest
	}{
		{name: "background", pixel: [4]byte{}, req: PickRequest{X: 1, Y: 1}},
		{name: "unknown discriminator", pixel: EncodePickID(3, 9), req: PickRequest{X: 1, Y: 1}},
		{name: "outside viewport", pixel: EncodePickID(3, 1), req: PickRequest{X: 10, Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, b, _ := newPickPacket(t)
			p.Pick = &tt.req
			b.SetReadback(func(tex metadata.TextureHandle, x, y, w, h uint32) []byte {
				return tt.pixel[:]
			})
			v := NewRenderViewPick()
			require.NoError(t, v.OnResolve(p))
			assert.True(t, v.HasResult)
			assert.False(t, v.Result.Hit)
		})
	}
}

func TestSortBackToFront(t *testing.T) {
	near := structures.NewPointCloud("near", []math.Vec3{{Z: -1}})
	far := structures.NewPointCloud("far", []math.Vec3{{Z: -10}})
	mid := structures.NewPointCloud("mid", []math.Vec3{{Z: -5}})
	tie := structures.NewPointCloud("tie", []math.Vec3{{Z: -5}})

	sorted := SortBackToFront([]structures.Structure{near, mid, far, tie}, math.NewMat4Identity())
	names := make([]string, len(sorted))
	for i, s := range sorted {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"far", "mid", "tie", "near"}, names)
}

func TestGroundHeight(t *testing.T) {
	box := math.Extents3D{Min: math.NewVec3(-1, -2, -3), Max: math.NewVec3(1, 2, 3)}
	tests := []struct {
		name     string
		opts     scene.Options
		up       math.Vec3
		expected float32
	}{
		{name: "below the scene along y", up: math.NewVec3(0, 1, 0), expected: -2 - groundOffset*2},
		{name: "below the scene along z", up: math.NewVec3(0, 0, 1), expected: -3 - groundOffset*2},
		{name: "negative up", up: math.NewVec3(0, -1, 0), expected: -2 - groundOffset*2},
		{
			name:     "absolute",
			opts:     scene.Options{GroundPlaneHeight: 4, GroundPlane: scene.GroundPlaneConfig{HeightIsAbsolute: true}},
			up:       math.NewVec3(0, 1, 0),
			expected: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, GroundHeight(&tt.opts, box, 2, tt.up), 1e-5)
		})
	}
	assert.Equal(t, float32(0), GroundHeight(&scene.Options{}, math.NewExtentsEmpty(), 1, math.NewVec3(0, 1, 0)))
}

func TestGroundBasisIsOrthonormal(t *testing.T) {
	for _, up := range []components.UpDir{components.UpDirX, components.UpDirY, components.UpDirZ, components.UpDirNegY} {
		b := NewGroundBasis(up)
		assert.InDelta(t, 1, b.Right.Length(), 1e-5)
		assert.InDelta(t, 0, b.Right.Dot(b.Up), 1e-5)
		assert.InDelta(t, 0, b.Forward.Dot(b.Up), 1e-5)
	}
	assert.Equal(t, float32(-1), NewGroundBasis(components.UpDirNegY).UpSign)
}

func TestReflectionMatrixMirrorsAcrossGround(t *testing.T) {
	m := ReflectionMatrix(NewGroundBasis(components.UpDirY), -1)
	assertVec3(t, math.NewVec3(2, -5, 3), math.NewVec3(2, 3, 3).Transform(m))
}

func TestSsaoKernel(t *testing.T) {
	k := SsaoKernel(32)
	require.Len(t, k, 32)
	for _, v := range k {
		assert.GreaterOrEqual(t, v.Z, float32(0))
		assert.LessOrEqual(t, v.Length(), float32(1)+1e-5)
	}
	assert.Equal(t, k, SsaoKernel(32))
	assert.Len(t, SsaoKernel(1000), 64)
	assert.Len(t, SsaoNoise(), 4*4*4)
}

func TestToneMapGamma(t *testing.T) {
	cfg := scene.ToneMappingConfig{Exposure: 1, WhiteLevel: 0.75, Gamma: 2.2}
	gamma := func(b []byte) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))
	}
	assert.Equal(t, float32(1), gamma(ToneMapUniformBytes(cfg, metadata.TextureFormatBGRA8UnormSrgb, false)))
	assert.Equal(t, float32(2.2), gamma(ToneMapUniformBytes(cfg, metadata.TextureFormatBGRA8Unorm, false)))
	cfg.Gamma = 0
	assert.Equal(t, float32(1), gamma(ToneMapUniformBytes(cfg, metadata.TextureFormatRGBA8Unorm, true)))
}

func TestLinearBackground(t *testing.T) {
	c := LinearBackground(math.NewVec4(1, 0.5, 0, 0.8), false)
	assert.InDelta(t, 1, c.X, 1e-5)
	assert.InDelta(t, 0.214, c.Y, 1e-3)
	assert.InDelta(t, 0, c.Z, 1e-5)
	assert.InDelta(t, 0.8, c.W, 1e-5)
	assert.Equal(t, float32(0), LinearBackground(math.NewVec4(1, 1, 1, 1), true).W)
}

func TestSlicePlaneModelSpansPlane(t *testing.T) {
	plane := &scene.SlicePlane{Origin: math.NewVec3(0, 2, 0), Normal: math.NewVec3(0, 1, 0), PlaneSize: 0.05}
	m := SlicePlaneModel(plane, 2)
	for _, corner := range []math.Vec3{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}} {
		p := corner.Transform(m)
		assert.InDelta(t, 2, p.Y, 1e-5)
		assert.InDelta(t, 1, p.Sub(plane.Origin).Length()/math32.Sqrt2, 1e-4)
	}
}

func TestSnap(t *testing.T) {
	assert.Equal(t, float32(0.37), Snap(0.37, 0))
	assert.InDelta(t, 0.25, Snap(0.37, 0.25), 1e-6)
	assert.InDelta(t, 0.5, Snap(0.4, 0.25), 1e-6)
	assert.InDelta(t, -15, Snap(-13, 15), 1e-6)
}

func TestScreenRayIdentity(t *testing.T) {
	id := math.NewMat4Identity()
	r := ScreenRay(id, id, 1.5, 1.5, 4, 4)
	assertVec3(t, math.NewVec3(0, 0, 0), r.Origin)
	assertVec3(t, math.NewVec3(0, 0, 1), r.Direction)
}

func gizmoSubject() structures.Structure {
	return structures.NewPointCloud("subject", []math.Vec3{{X: -1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: 1}})
}

func TestGizmoPick(t *testing.T) {
	frame := NewGizmoFrame(gizmoSubject(), scene.GizmoSpaceWorld, nil)
	down := math.NewVec3(0, 0, -1)

	assert.Equal(t, 0, frame.Pick(Ray{Origin: math.NewVec3(0.5, 0, 5), Direction: down}, scene.GizmoTranslate))
	assert.Equal(t, 1, frame.Pick(Ray{Origin: math.NewVec3(0, 0.7, 5), Direction: down}, scene.GizmoScale))
	assert.Equal(t, -1, frame.Pick(Ray{Origin: math.NewVec3(3, 3, 5), Direction: down}, scene.GizmoTranslate))
	assert.Equal(t, 2, frame.Pick(Ray{Origin: math.NewVec3(0, 1, 5), Direction: down}, scene.GizmoRotate))
}

func TestGizmoFrameScalesWithDistance(t *testing.T) {
	cam := components.NewCamera()
	cam.SetPosition(math.NewVec3(0, 0, 10))
	near := NewGizmoFrame(gizmoSubject(), scene.GizmoSpaceWorld, cam)
	cam.SetPosition(math.NewVec3(0, 0, 20))
	far := NewGizmoFrame(gizmoSubject(), scene.GizmoSpaceWorld, cam)
	assert.InDelta(t, 2*near.Size, far.Size, 1e-3)
}

func TestGizmoTranslateDragSnaps(t *testing.T) {
	s := gizmoSubject()
	cfg := scene.GizmoConfig{Mode: scene.GizmoTranslate, TranslateSnap: 0.5, Visible: true}
	down := math.NewVec3(0, 0, -1)

	drag, ok := BeginGizmoDrag(s, cfg, nil, Ray{Origin: math.NewVec3(0.5, 0, 5), Direction: down})
	require.True(t, ok)
	m, ok := drag.Update(Ray{Origin: math.NewVec3(1.3, 0, 5), Direction: down})
	require.True(t, ok)
	assertVec3(t, math.NewVec3(1, 0, 0), m.Translation())
}

func TestGizmoRotateDrag(t *testing.T) {
	s := gizmoSubject()
	cfg := scene.GizmoConfig{Mode: scene.GizmoRotate, RotateSnap: 15, Visible: true}
	down := math.NewVec3(0, 0, -1)

	drag, ok := BeginGizmoDrag(s, cfg, nil, Ray{Origin: math.NewVec3(1, 0, 5), Direction: down})
	require.True(t, ok)
	m, ok := drag.Update(Ray{Origin: math.NewVec3(0.7, 0.72, 5), Direction: down})
	require.True(t, ok)
	// About 46 degrees snaps to 45.
	p := math.NewVec3(1, 0, 0).Transform(m)
	assertVec3(t, math.NewVec3(math32.Sqrt2/2, math32.Sqrt2/2, 0), p)
}

func TestGizmoScaleDrag(t *testing.T) {
	s := gizmoSubject()
	cfg := scene.GizmoConfig{Mode: scene.GizmoScale, Visible: true}
	down := math.NewVec3(0, 0, -1)

	drag, ok := BeginGizmoDrag(s, cfg, nil, Ray{Origin: math.NewVec3(0, 0.5, 5), Direction: down})
	require.True(t, ok)
	m, ok := drag.Update(Ray{Origin: math.NewVec3(0, 1, 5), Direction: down})
	require.True(t, ok)
	assertVec3(t, math.NewVec3(1, 2, 1), math.NewVec3(1, 1, 1).Transform(m))
}

func TestGizmoGeometryHighlightsActiveAxis(t *testing.T) {
	for _, mode := range []scene.GizmoMode{scene.GizmoTranslate, scene.GizmoRotate, scene.GizmoScale} {
		positions, colors := GizmoGeometry(mode, 1)
		require.Len(t, colors, len(positions))
		require.NotEmpty(t, positions)
		assert.Zero(t, len(positions)%3)
		third := len(positions) / 3
		assert.Equal(t, gizmoAxisColors[0], colors[0])
		assert.Equal(t, gizmoActiveColor, colors[third])
		assert.Equal(t, gizmoAxisColors[2], colors[len(colors)-1])
	}
}
