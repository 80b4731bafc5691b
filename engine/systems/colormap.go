package systems

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/chewxy/math32"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
)

//go:embed data/colormaps.yaml
var builtinColormaps []byte

/** @brief Number of entries in every colormap lookup table. */
const ColormapResolution = 256

/** @brief A colormap as written in a colormap asset file. */
type ColormapDefinition struct {
	Name   string   `yaml:"name"`
	Colors []string `yaml:"colors"`
}

/**
 * @brief A named colormap with its interpolated lookup table.
 */
type Colormap struct {
	Name     string
	Controls []colorful.Color
	// sRGB bytes, RGBA per entry.
	LUT [ColormapResolution][4]uint8
}

func newColormap(def ColormapDefinition) (*Colormap, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("colormap without a name: %w", core.ErrMaterialLoad)
	}
	if len(def.Colors) < 2 {
		return nil, fmt.Errorf("colormap %q needs at least two colors: %w", def.Name, core.ErrMaterialLoad)
	}
	cm := &Colormap{Name: def.Name}
	for _, hex := range def.Colors {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("colormap %q color %q: %w", def.Name, hex, core.ErrMaterialLoad)
		}
		cm.Controls = append(cm.Controls, c)
	}
	for i := 0; i < ColormapResolution; i++ {
		r, g, b := cm.at(float64(i) / float64(ColormapResolution-1)).Clamped().RGB255()
		cm.LUT[i] = [4]uint8{r, g, b, 255}
	}
	return cm, nil
}

func (cm *Colormap) at(t float64) colorful.Color {
	segments := len(cm.Controls) - 1
	t = math.Clamp(t, 0, 1) * float64(segments)
	i := int(t)
	if i >= segments {
		return cm.Controls[segments]
	}
	return cm.Controls[i].BlendRgb(cm.Controls[i+1], t-float64(i))
}

/** @brief Samples the colormap at t in [0, 1]; values outside are clamped. */
func (cm *Colormap) Sample(t float32) math.Vec3 {
	if math32.IsNaN(t) {
		t = 0
	}
	c := cm.at(float64(t))
	return math.NewVec3(float32(c.R), float32(c.G), float32(c.B))
}

// Pixels returns the lookup table as a ColormapResolution x 1 RGBA8 image.
func (cm *Colormap) Pixels() []byte {
	out := make([]byte, 0, ColormapResolution*4)
	for _, px := range cm.LUT {
		out = append(out, px[:]...)
	}
	return out
}

/**
 * @brief Parses a colormap asset file: a YAML list of name and colors pairs.
 */
func ParseColormaps(data []byte) ([]ColormapDefinition, error) {
	var defs []ColormapDefinition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMaterialLoad, err)
	}
	return defs, nil
}

type ColormapSystemConfig struct {
	/** @brief Colormap used for unknown names. Must be a built-in. */
	Fallback string
}

/**
 * @brief The colormap store. Built-ins are loaded at start-up; asset files
 * can add or replace entries at runtime.
 */
type ColormapSystem struct {
	Config *ColormapSystemConfig

	mu       sync.RWMutex
	maps     map[string]*Colormap
	revision map[string]uint64
	warned   map[string]bool
}

func NewColormapSystem(config *ColormapSystemConfig) (*ColormapSystem, error) {
	if config == nil {
		config = &ColormapSystemConfig{}
	}
	if config.Fallback == "" {
		config.Fallback = quantities.DefaultColormap
	}
	cs := &ColormapSystem{
		Config:   config,
		maps:     make(map[string]*Colormap),
		revision: make(map[string]uint64),
		warned:   make(map[string]bool),
	}
	defs, err := ParseColormaps(builtinColormaps)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := cs.Register(def, false); err != nil {
			return nil, err
		}
	}
	if _, ok := cs.maps[config.Fallback]; !ok {
		return nil, fmt.Errorf("fallback colormap %q is not built in: %w", config.Fallback, core.ErrMaterialLoad)
	}
	return cs, nil
}

func (cs *ColormapSystem) Shutdown() error {
	return nil
}

/**
 * @brief Adds a colormap. An existing name is an error unless replace is set.
 */
func (cs *ColormapSystem) Register(def ColormapDefinition, replace bool) error {
	cm, err := newColormap(def)
	if err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, exists := cs.maps[cm.Name]; exists && !replace {
		return fmt.Errorf("colormap %q: %w", cm.Name, core.ErrMaterialExists)
	}
	cs.maps[cm.Name] = cm
	cs.revision[cm.Name]++
	delete(cs.warned, cm.Name)
	return nil
}

/**
 * @brief Loads every colormap of a YAML asset file, replacing entries with
 * the same name.
 */
func (cs *ColormapSystem) LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewIOError(err)
	}
	defs, err := ParseColormaps(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var names []string
	for _, def := range defs {
		if err := cs.Register(def, true); err != nil {
			return names, fmt.Errorf("%s: %w", path, err)
		}
		names = append(names, def.Name)
	}
	return names, nil
}

func (cs *ColormapSystem) Get(name string) (*Colormap, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	cm, ok := cs.maps[name]
	return cm, ok
}

/**
 * @brief Returns the named colormap, or the fallback when the name is
 * unknown. The second result is the name actually used.
 */
func (cs *ColormapSystem) Resolve(name string) (*Colormap, string) {
	if cm, ok := cs.Get(name); ok {
		return cm, name
	}
	cs.mu.Lock()
	if name != "" && !cs.warned[name] {
		cs.warned[name] = true
		core.LogWarn("unknown colormap %q, falling back to %s", name, cs.Config.Fallback)
	}
	cm := cs.maps[cs.Config.Fallback]
	cs.mu.Unlock()
	return cm, cs.Config.Fallback
}

// Revision changes every time name is registered again.
func (cs *ColormapSystem) Revision(name string) uint64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.revision[name]
}

/** @brief Samples a colormap on the CPU, used for floating images. */
func (cs *ColormapSystem) Sample(name string, t float32) math.Vec3 {
	cm, _ := cs.Resolve(name)
	return cm.Sample(t)
}

// Names lists the registered colormaps alphabetically.
func (cs *ColormapSystem) Names() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make([]string, 0, len(cs.maps))
	for name := range cs.maps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
