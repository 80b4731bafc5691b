package systems

import (
	"encoding/binary"
	"errors"
	"image"
	_ "image/png"
	stdmath "math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/null"
	"github.com/spaghettifunk/prism/engine/renderer/views"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/structures"
)

func newTestManager(t *testing.T, headless bool) (*SystemManager, *null.Backend) {
	t.Helper()
	b := null.New()
	sm, err := NewSystemManager(&SystemManagerConfig{
		Renderer: RendererSystemConfig{ApplicationName: "systems", Width: 8, Height: 8, Headless: headless},
		Shaders:  ShaderSystemConfig{SkipValidation: true},
		Workers:  1,
	}, b)
	require.NoError(t, err)
	require.NoError(t, sm.Initialize())
	t.Cleanup(func() { _ = sm.Shutdown() })
	b.ResetCommands()
	return sm, b
}

func newTestScene() *scene.Context {
	ctx := scene.NewContext()
	ctx.Options.GroundPlaneMode = scene.GroundPlaneNone
	ctx.Options.Ssao.Enabled = false
	return ctx
}

func testCloud() *structures.PointCloud {
	return structures.NewPointCloud("cloud", []math.Vec3{
		math.NewVec3(0, 0, 0),
		math.NewVec3(1, 0, 0),
		math.NewVec3(0, 1, 0),
		math.NewVec3(0, 0, 1),
		math.NewVec3(1, 1, 1),
	})
}

func TestCameraSystem(t *testing.T) {
	_, err := NewCameraSystem(&CameraSystemConfig{})
	assert.Error(t, err)

	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 1})
	require.NoError(t, err)

	def, err := cs.Acquire(components.DEFAULT_CAMERA_NAME)
	require.NoError(t, err)
	assert.Same(t, cs.GetDefault(), def)
	assert.Same(t, def, cs.Active())

	a, err := cs.Acquire("a")
	require.NoError(t, err)
	again, err := cs.Acquire("a")
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Equal(t, uint16(2), cs.Lookup["a"].ReferenceCount)

	_, err = cs.Acquire("b")
	assert.Error(t, err, "over the camera limit")

	require.NoError(t, cs.SetActive("a"))
	assert.Same(t, a, cs.Active())
	assert.Error(t, cs.SetActive("missing"))

	cs.Release("a")
	assert.Same(t, a, cs.Active())
	cs.Release("a")
	_, ok := cs.Lookup["a"]
	assert.False(t, ok)
	assert.Same(t, def, cs.Active(), "released active camera falls back to the default")

	cs.Release(components.DEFAULT_CAMERA_NAME)
	assert.Same(t, def, cs.GetDefault())
}

func TestCameraFitFramesBox(t *testing.T) {
	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 4})
	require.NoError(t, err)
	box := math.Extents3D{Min: math.NewVec3(-2, -2, -2), Max: math.NewVec3(2, 2, 2)}
	cs.Fit(box)
	cam := cs.Active()
	assert.InDelta(t, 0, cam.Target.Length(), 1e-5)
	assert.Greater(t, cam.Distance(), box.Diagonal()*0.5)

	cs.Fit(math.NewExtentsEmpty())
	assert.InDelta(t, 0, cam.Target.Length(), 1e-5)
}

func TestJobSystem(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)

	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)

	var completed, failed, callbacks atomic.Int32
	for i := 0; i < 8; i++ {
		fail := i%2 == 0
		require.NoError(t, js.Submit(JobTask{
			Name: "job",
			OnStart: func() error {
				if fail {
					return errors.New("boom")
				}
				return nil
			},
			OnComplete:           func() { completed.Add(1) },
			OnFailure:            func(error) { failed.Add(1) },
			OnCompletionCallback: func() { callbacks.Add(1) },
		}))
	}
	js.Wait()
	assert.Equal(t, int32(4), completed.Load())
	assert.Equal(t, int32(4), failed.Load())
	assert.Equal(t, int32(8), callbacks.Load())

	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())
	assert.ErrorIs(t, js.Submit(JobTask{}), ErrJobSystemClosed)
}

func TestImageFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want ImageFormat
	}{
		{"shot.png", ImageFormatPNG},
		{"shot.JPG", ImageFormatJPEG},
		{"dir/shot.jpeg", ImageFormatJPEG},
		{"shot.bmp", ImageFormatBMP},
		{"shot.tif", ImageFormatTIFF},
		{"shot.tiff", ImageFormatTIFF},
		{"shot", ImageFormatPNG},
		{"shot.webp", ImageFormatPNG},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageFormatFromPath(tt.path))
		})
	}
}

func TestPixelsToRGBA(t *testing.T) {
	t.Run("bgra swaps red and blue", func(t *testing.T) {
		px := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		img, err := PixelsToRGBA(px, 2, 1, metadata.TextureFormatBGRA8UnormSrgb)
		require.NoError(t, err)
		assert.Equal(t, []byte{3, 2, 1, 4, 7, 6, 5, 8}, img.Pix)
		assert.Equal(t, image.Rect(0, 0, 2, 1), img.Rect)
	})
	t.Run("rgba is untouched", func(t *testing.T) {
		px := []byte{1, 2, 3, 4}
		img, err := PixelsToRGBA(px, 1, 1, metadata.TextureFormatRGBA8Unorm)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3, 4}, img.Pix)
	})
	t.Run("short readback", func(t *testing.T) {
		_, err := PixelsToRGBA(make([]byte, 4), 2, 2, metadata.TextureFormatRGBA8Unorm)
		assert.ErrorIs(t, err, core.ErrSizeMismatch)
	})
	t.Run("wide formats are rejected", func(t *testing.T) {
		_, err := PixelsToRGBA(make([]byte, 8), 1, 1, metadata.TextureFormatRGBA16Float)
		assert.Error(t, err)
	})
}

func TestRenderViewSystemRegistration(t *testing.T) {
	b := null.New()
	rvs, err := NewRenderViewSystem(&RenderViewSystemConfig{MaxViewCount: 2}, b)
	require.NoError(t, err)

	require.NoError(t, rvs.Register(views.NewRenderViewToneMap()))
	require.NoError(t, rvs.Register(views.NewRenderViewWorld()))
	assert.Equal(t, []string{"scene", "tonemap"}, rvs.Names(), "ordered by view type")

	assert.Error(t, rvs.Register(views.NewRenderViewWorld()), "duplicate name")
	assert.Error(t, rvs.Register(views.NewRenderViewUI()), "over the limit")
	assert.Error(t, rvs.Register(nil))

	v, ok := rvs.OfType(metadata.RENDER_VIEW_TONEMAP)
	require.True(t, ok)
	assert.Equal(t, "tonemap", v.Name())
}

// failingView always errors once it is asked to render.
type failingView struct {
	name  string
	calls int
}

func (v *failingView) Name() string                       { return v.name }
func (v *failingView) Type() metadata.RenderViewKnownType { return metadata.RENDER_VIEW_SCENE }
func (v *failingView) ShouldRender(p *views.Packet) bool  { return true }
func (v *failingView) OnRender(p *views.Packet) error {
	v.calls++
	return core.NewRenderError("broken pass")
}
func (v *failingView) OnDestroy(backend renderer.RendererBackend) {}

func TestRenderViewSystemSkipsFailingViews(t *testing.T) {
	b := null.New()
	rvs, err := NewRenderViewSystem(&RenderViewSystemConfig{MaxViewCount: 4}, b)
	require.NoError(t, err)
	bad := &failingView{name: "broken"}
	require.NoError(t, rvs.Register(bad))

	errs := rvs.OnRender(&views.Packet{})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs["broken"], core.ErrRender)
	assert.Empty(t, rvs.Rendered())

	rvs.OnRender(&views.Packet{})
	assert.Equal(t, 2, bad.calls, "a failing view is retried every frame")
}

func TestDrawFrameEmptyScene(t *testing.T) {
	sm, b := newTestManager(t, true)
	ctx := newTestScene()

	ok, err := sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"scene", "tonemap"}, b.Passes())
	assert.Zero(t, b.Count("present"), "headless frames are not presented")
	assert.Empty(t, sm.RendererSystem.LastErrors)

	_, ok = sm.TextureSystem.Lookup(views.TargetOffscreen)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), sm.RendererSystem.FrameNumber)
}

func TestDrawFrameWithStructures(t *testing.T) {
	sm, b := newTestManager(t, false)
	ctx := newTestScene()
	require.NoError(t, ctx.Register(testCloud()))

	ok, err := sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"scene", "tonemap"}, b.Passes())
	assert.Equal(t, 1, b.Count("present"))
	assert.Greater(t, b.Count("draw"), 1)
	assert.False(t, ctx.NeedsCameraFit(), "the camera is fitted on the first frame")
}

func TestDrawFrameRunsConditionalPassesInOrder(t *testing.T) {
	sm, b := newTestManager(t, true)
	ctx := scene.NewContext()
	ctx.Options.SetGroundPlaneMode(scene.GroundPlaneTileReflection)
	ctx.Options.Ssao.Enabled = true
	ctx.Options.TransparencyEnabled = true
	ctx.Options.TransparencyMode = scene.TransparencyPretty
	ctx.Options.TransparencyRenderPasses = 3
	ctx.Options.SsaaFactor = 2

	require.NoError(t, ctx.Register(testCloud()))
	glass := structures.NewPointCloud("glass", []math.Vec3{math.NewVec3(0, 0, 0), math.NewVec3(1, 1, 1)})
	glass.SetTransparency(0.5)
	require.NoError(t, ctx.Register(glass))

	sm.PickingSystem.Request(4, 4)
	ok, err := sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, sm.RendererSystem.LastErrors)
	assert.Equal(t, []string{
		"shadow", "prepass", "ssao", "ssao_blur_h", "ssao_blur_v",
		"scene", "peel_init", "peel_0", "peel_1", "peel_2", "peel_composite",
		"reflection", "ground", "ssaa", "tonemap", "pick",
	}, b.Passes())
}

// drawsPerPass counts the draw calls recorded in each render pass.
func drawsPerPass(b *null.Backend) map[string]int {
	out := map[string]int{}
	for _, c := range b.Commands() {
		if c.Op == "draw" {
			out[c.Label]++
		}
	}
	return out
}

func TestDisabledGroupMembersAreNotDrawn(t *testing.T) {
	emptyManager, emptyBackend := newTestManager(t, true)
	_, err := emptyManager.RendererSystem.DrawFrame(newTestScene())
	require.NoError(t, err)
	baseline := drawsPerPass(emptyBackend)

	sm, b := newTestManager(t, true)
	ctx := newTestScene()
	require.NoError(t, ctx.Register(testCloud()))
	_, err = ctx.CreateGroup("hidden")
	require.NoError(t, err)
	require.NoError(t, ctx.AddToGroup("hidden", scene.StructureRef{Type: structures.TypePointCloud, Name: "cloud"}))
	require.NoError(t, ctx.SetGroupEnabled("hidden", false))

	_, err = sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, baseline, drawsPerPass(b))

	b.ResetCommands()
	require.NoError(t, ctx.SetGroupEnabled("hidden", true))
	_, err = sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	assert.Greater(t, drawsPerPass(b)["scene"], baseline["scene"])
}

func TestDrawFrameSurfaceErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		resized int
		fatal   bool
	}{
		{"lost reconfigures", core.ErrSurfaceLost, 1, false},
		{"outdated reconfigures", core.ErrSurfaceOutdated, 1, false},
		{"timeout drops the frame", core.ErrTimeout, 0, false},
		{"out of memory is fatal", core.ErrOutOfMemory, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, b := newTestManager(t, false)
			ctx := newTestScene()
			b.FailNextAcquire(tt.err)

			ok, err := sm.RendererSystem.DrawFrame(ctx)
			assert.False(t, ok)
			if tt.fatal {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.resized, b.Count("resized"))
			assert.Empty(t, b.Passes())

			ok, err = sm.RendererSystem.DrawFrame(ctx)
			require.NoError(t, err)
			assert.True(t, ok, "the next frame renders")
		})
	}
}

func TestDrawFrameSkipsZeroSize(t *testing.T) {
	sm, b := newTestManager(t, false)
	sm.RendererSystem.OnResize(0, 0)
	ok, err := sm.RendererSystem.DrawFrame(newTestScene())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, b.Count("resized"))
	assert.Zero(t, b.Count("acquire"))
}

func TestRemovedStructuresAreReleased(t *testing.T) {
	sm, b := newTestManager(t, true)
	ctx := newTestScene()

	_, err := sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	base, _, _ := b.LiveObjects()

	require.NoError(t, ctx.Register(testCloud()))
	_, err = sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	withCloud, _, _ := b.LiveObjects()
	assert.Greater(t, withCloud, base)

	require.NoError(t, ctx.Remove(structures.TypePointCloud, "cloud"))
	_, err = sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	after, _, _ := b.LiveObjects()
	assert.Equal(t, base, after)
}

func TestDrawFrameAfterDeviceReplaced(t *testing.T) {
	sm, b := newTestManager(t, true)
	ctx := newTestScene()
	require.NoError(t, ctx.Register(testCloud()))
	_, err := sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Initialize(&metadata.RendererBackendConfig{ApplicationName: "systems", Width: 8, Height: 8, Headless: true}))
	b.ResetCommands()

	ok, err := sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"scene", "tonemap"}, b.Passes())
	assert.Empty(t, sm.RendererSystem.LastErrors)
}

func depthBytes(d float32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, stdmath.Float32bits(d))
	return out
}

func TestPickingSelectsStructure(t *testing.T) {
	sm, b := newTestManager(t, true)
	ctx := newTestScene()
	require.NoError(t, ctx.Register(testCloud()))

	hit := true
	b.SetReadback(func(tex metadata.TextureHandle, x, y, w, h uint32) []byte {
		if target, ok := sm.TextureSystem.Describe(views.TargetPick); ok && target.Handle == tex {
			if !hit {
				return []byte{0, 0, 0, 0}
			}
			px := views.EncodePickID(3, 1)
			return px[:]
		}
		return depthBytes(0.5)
	})

	var got []views.PickResult
	sm.PickingSystem.OnPick = func(r views.PickResult) { got = append(got, r) }

	sm.PickingSystem.Request(4, 4)
	assert.True(t, sm.PickingSystem.Pending())
	_, err := sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	assert.False(t, sm.PickingSystem.Pending())
	assert.Contains(t, b.Passes(), "pick")

	require.Len(t, got, 1)
	assert.True(t, got[0].Hit)
	assert.Equal(t, structures.TypePointCloud, got[0].Type)
	assert.Equal(t, "cloud", got[0].Name)
	assert.Equal(t, uint32(3), got[0].Element)
	assert.InDelta(t, 0.5, got[0].Depth, 1e-6)

	sel := ctx.Selection()
	require.True(t, sel.Valid)
	assert.Equal(t, "cloud", sel.Ref.Name)
	assert.Equal(t, 3, sel.Element)

	b.ResetCommands()
	_, err = sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	assert.Contains(t, b.Passes(), "gizmo", "the selection shows the gizmo")
	assert.NotContains(t, b.Passes(), "pick", "no pick without a request")

	hit = false
	sm.PickingSystem.Request(1, 1)
	_, err = sm.RendererSystem.DrawFrame(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[1].Hit)
	assert.False(t, ctx.Selection().Valid, "a background click clears the selection")
}

func TestInputSystem(t *testing.T) {
	sm, _ := newTestManager(t, true)
	ctx := newTestScene()
	in := sm.InputSystem
	cam := sm.CameraSystem.Active()

	t.Run("click requests a pick", func(t *testing.T) {
		in.OnEvent(ctx, core.NewCursorMovedEvent(4, 4))
		in.OnEvent(ctx, core.NewMouseInputEvent(core.BUTTON_LEFT, true))
		in.OnEvent(ctx, core.NewMouseInputEvent(core.BUTTON_LEFT, false))
		assert.True(t, sm.PickingSystem.Pending())
		sm.PickingSystem.take()
	})

	t.Run("drag orbits without picking", func(t *testing.T) {
		before, dist := cam.GetPosition(), cam.Distance()
		in.OnEvent(ctx, core.NewMouseInputEvent(core.BUTTON_LEFT, true))
		in.OnEvent(ctx, core.NewCursorMovedEvent(12, 4))
		in.OnEvent(ctx, core.NewMouseInputEvent(core.BUTTON_LEFT, false))
		assert.False(t, sm.PickingSystem.Pending())
		assert.Greater(t, cam.GetPosition().Sub(before).Length(), float32(1e-4))
		assert.InDelta(t, dist, cam.Distance(), 1e-3, "orbit keeps the distance")
	})

	t.Run("wheel zooms in", func(t *testing.T) {
		before := cam.Distance()
		in.OnEvent(ctx, core.NewMouseWheelEvent(1))
		assert.Less(t, cam.Distance(), before)
	})

	t.Run("resize reaches the renderer", func(t *testing.T) {
		assert.True(t, in.OnEvent(ctx, core.NewResizedEvent(16, 10)))
		assert.True(t, sm.RendererSystem.Resizing)
		assert.Equal(t, uint32(16), sm.RendererSystem.FramebufferWidth)
		assert.True(t, in.TakeRedraw())
		assert.False(t, in.TakeRedraw())
	})

	t.Run("close", func(t *testing.T) {
		assert.False(t, in.CloseRequested())
		in.OnEvent(ctx, core.NewCloseRequestedEvent())
		assert.True(t, in.CloseRequested())
	})

	t.Run("first person keys move the camera", func(t *testing.T) {
		cam.SetNavigation(components.NavigationFirstPerson)
		before := cam.GetPosition()
		in.OnEvent(ctx, core.NewKeyboardEvent(core.KEY_W, true))
		in.Update(0.5)
		assert.Greater(t, cam.GetPosition().Sub(before).Length(), float32(1e-4))
		in.OnEvent(ctx, core.NewKeyboardEvent(core.KEY_W, false))
		in.Update(0.5)
		assert.False(t, in.State.WasKeyDown(core.KEY_W))
	})
}

func TestGizmoDragMovesSelection(t *testing.T) {
	sm, _ := newTestManager(t, true)
	ctx := newTestScene()
	cloud := testCloud()
	require.NoError(t, ctx.Register(cloud))
	require.True(t, ctx.Select(structures.TypePointCloud, "cloud", -1))
	sm.RendererSystem.OnResize(200, 200)

	cam := sm.CameraSystem.Active()
	cam.SetPosition(math.NewVec3(0.5, 0.5, 10))
	cam.SetTarget(math.NewVec3(0.5, 0.5, 0.5))

	// Find a pixel on the x handle by projecting a point along it.
	frame := views.NewGizmoFrame(cloud, ctx.Gizmo.Space, cam)
	p := frame.Origin.Add(frame.Axes[0].MulScalar(frame.Size * 0.6))
	view, proj := cam.GetView(), cam.GetProjection(1)
	clip := p.ToVec4(1).Transform(view.Mul(proj))
	px := float64((clip.X/clip.W*0.5 + 0.5) * 200)
	py := float64((0.5 - clip.Y/clip.W*0.5) * 200)

	in := sm.InputSystem
	in.OnEvent(ctx, core.NewCursorMovedEvent(px, py))
	in.OnEvent(ctx, core.NewMouseInputEvent(core.BUTTON_LEFT, true))
	require.NotNil(t, in.drag, "press on the handle starts a drag")
	in.OnEvent(ctx, core.NewCursorMovedEvent(px+40, py))
	in.OnEvent(ctx, core.NewMouseInputEvent(core.BUTTON_LEFT, false))

	moved := cloud.Transform().Translation()
	assert.Greater(t, moved.X, float32(0.01))
	assert.InDelta(t, 0, moved.Y, 1e-3)
	assert.InDelta(t, 0, moved.Z, 1e-3)
	assert.True(t, ctx.ExtentsDirty())
	assert.False(t, sm.PickingSystem.Pending(), "a gizmo drag never picks")
}

func TestScreenshotSave(t *testing.T) {
	sm, _ := newTestManager(t, true)
	ctx := newTestScene()
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")

	done := make(chan error, 1)
	require.NoError(t, sm.ScreenshotSystem.Save(ctx, path, true, func(p string, err error) {
		assert.Equal(t, path, p)
		done <- err
	}))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("screenshot was not written")
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, format, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds())

	sm.ScreenshotSystem.Directory = dir
	assert.Equal(t, dir, filepath.Dir(sm.ScreenshotSystem.DefaultPath()))
}

func TestWriteImageFormats(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	dir := t.TempDir()
	for _, name := range []string{"a.png", "a.jpg", "a.bmp", "a.tiff"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteImage(path, img))
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		})
	}
	err := WriteImage(filepath.Join(dir, "missing", "a.png"), img)
	assert.ErrorIs(t, err, core.ErrIO)
}
