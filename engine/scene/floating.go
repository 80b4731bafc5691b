package scene

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/quantities"
)

type FloatingKind int

const (
	FloatingScalarImage FloatingKind = iota
	FloatingColorImage
)

func (k FloatingKind) String() string {
	if k == FloatingColorImage {
		return "color_image"
	}
	return "scalar_image"
}

/**
 * @brief An image quantity not attached to any structure. Scalar images are
 * colour-mapped on the CPU; color images are used as is.
 */
type FloatingQuantity struct {
	ID     uuid.UUID
	Name   string
	Kind   FloatingKind
	Width  int
	Height int

	Values   []float32
	Colors   []math.Vec4
	Colormap string
	mapMin   float32
	mapMax   float32

	Enabled bool
	// Composited full screen into the HDR target.
	ShowFullscreen bool
	// Bumped on every data change; the floating pass re-uploads when it moves.
	Revision uint64
}

func (f *FloatingQuantity) MapRange() (float32, float32) {
	return f.mapMin, f.mapMax
}

func (f *FloatingQuantity) SetMapRange(lo, hi float32) {
	f.mapMin, f.mapMax = lo, hi
	f.Revision++
}

/**
 * @brief Returns the image as RGBA, row-major from the top-left. sample maps
 * a normalized scalar to a color and is ignored for color images.
 */
func (f *FloatingQuantity) RGBA(sample func(t float32) math.Vec3) []math.Vec4 {
	if f.Kind == FloatingColorImage {
		return f.Colors
	}
	out := make([]math.Vec4, len(f.Values))
	span := f.mapMax - f.mapMin
	for i, v := range f.Values {
		t := float32(0)
		if span > 0 {
			t = math.Clamp((v-f.mapMin)/span, 0, 1)
		}
		out[i] = sample(t).ToVec4(1)
	}
	return out
}

func (c *Context) addFloating(f *FloatingQuantity) error {
	if _, ok := c.FloatingQuantity(f.Name); ok {
		return fmt.Errorf("floating quantity %q: %w", f.Name, core.ErrQuantityExists)
	}
	f.ID = uuid.New()
	f.Enabled = true
	c.floating = append(c.floating, f)
	return nil
}

func (c *Context) AddScalarImage(name string, width, height int, values []float32, colormap string) (*FloatingQuantity, error) {
	if width*height != len(values) {
		return nil, core.NewSizeMismatch(width*height, len(values))
	}
	lo, hi := quantities.DataRange(values)
	f := &FloatingQuantity{
		Name:     name,
		Kind:     FloatingScalarImage,
		Width:    width,
		Height:   height,
		Values:   values,
		Colormap: colormap,
		mapMin:   lo,
		mapMax:   hi,
	}
	if err := c.addFloating(f); err != nil {
		return nil, err
	}
	return f, nil
}

func (c *Context) AddColorImage(name string, width, height int, colors []math.Vec4) (*FloatingQuantity, error) {
	if width*height != len(colors) {
		return nil, core.NewSizeMismatch(width*height, len(colors))
	}
	f := &FloatingQuantity{
		Name:   name,
		Kind:   FloatingColorImage,
		Width:  width,
		Height: height,
		Colors: colors,
	}
	if err := c.addFloating(f); err != nil {
		return nil, err
	}
	return f, nil
}

func (c *Context) FloatingQuantity(name string) (*FloatingQuantity, bool) {
	for _, f := range c.floating {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (c *Context) FloatingQuantities() []*FloatingQuantity {
	return c.floating
}

func (c *Context) RemoveFloatingQuantity(name string) error {
	for i, f := range c.floating {
		if f.Name == name {
			c.floating = append(c.floating[:i], c.floating[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("floating quantity %q: %w", name, core.ErrQuantityNotFound)
}

// FullscreenQuantity is the last enabled quantity marked for full-screen display.
func (c *Context) FullscreenQuantity() (*FloatingQuantity, bool) {
	for i := len(c.floating) - 1; i >= 0; i-- {
		if f := c.floating[i]; f.Enabled && f.ShowFullscreen {
			return f, true
		}
	}
	return nil, false
}
