package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/systems"
)

type matcapRecorder struct {
	mu    sync.Mutex
	names map[string]int
}

func (m *matcapRecorder) RegisterMatcap(name string, img image.Image, replace bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.names == nil {
		m.names = make(map[string]int)
	}
	m.names[name]++
	return nil
}

func (m *matcapRecorder) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.names[name]
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

const sunsetYAML = `
- name: sunset
  colors: ["#000000", "#ff8800", "#ffffff"]
`

func newManager(t *testing.T) (*AssetManager, *matcapRecorder, *systems.ColormapSystem) {
	t.Helper()
	matcaps := &matcapRecorder{}
	colormaps, err := systems.NewColormapSystem(nil)
	require.NoError(t, err)
	am, err := NewAssetManager(matcaps, colormaps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Shutdown() })
	return am, matcaps, colormaps
}

func TestInitializeLoadsExistingAssets(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "shiny.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maps.yaml"), []byte(sunsetYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	am, matcaps, colormaps := newManager(t)
	require.NoError(t, am.Initialize(dir, filepath.Join(dir, "missing")))

	assert.Equal(t, 1, matcaps.count("shiny"))
	_, ok := colormaps.Get("sunset")
	assert.True(t, ok)

	infos := am.Assets()
	require.Len(t, infos, 2)
	assert.Equal(t, loaders.ResourceTypeColormap, infos[0].Type)
	assert.Equal(t, "shiny", infos[1].Name)
	assert.NoError(t, infos[1].Err)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "fake.png")
	require.NoError(t, os.WriteFile(fake, []byte("definitely not a png"), 0o644))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("- name: x\n  colors: [\"#000000\"]\n"), 0o644))

	am, matcaps, _ := newManager(t)
	assert.ErrorIs(t, am.Load(fake), core.ErrMaterialLoad)
	assert.ErrorIs(t, am.Load(broken), core.ErrMaterialLoad)
	assert.ErrorIs(t, am.Load(filepath.Join(dir, "gone.png")), core.ErrIO)
	assert.Zero(t, matcaps.count("fake"))

	for _, info := range am.Assets() {
		assert.Error(t, info.Err, info.Path)
	}
}

func TestWatcherReloadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	am, matcaps, colormaps := newManager(t)

	changed := make(chan AssetInfo, 16)
	am.OnChange = func(info AssetInfo) {
		select {
		case changed <- info:
		default:
		}
	}
	require.NoError(t, am.Initialize(dir))

	writePNG(t, filepath.Join(dir, "fresh.png"))
	assert.Eventually(t, func() bool { return matcaps.count("fresh") > 0 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "live.yml"), []byte(sunsetYAML), 0o644))
	assert.Eventually(t, func() bool {
		_, ok := colormaps.Get("sunset")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case info := <-changed:
		assert.NotEmpty(t, info.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	am, _, _ := newManager(t)
	require.NoError(t, am.Initialize())
	assert.NoError(t, am.Shutdown())
	assert.NoError(t, am.Shutdown())
}

func TestResourceNaming(t *testing.T) {
	tests := []struct {
		path string
		name string
		kind loaders.ResourceType
	}{
		{"/a/b/clay.png", "clay", loaders.ResourceTypeMatcap},
		{"wax.JPEG", "wax", loaders.ResourceTypeMatcap},
		{"maps/extra.yml", "extra", loaders.ResourceTypeColormap},
		{"readme.md", "readme", loaders.ResourceTypeNone},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.name, loaders.ResourceName(tt.path))
			assert.Equal(t, tt.kind, loaders.TypeFromPath(tt.path))
		})
	}
}
