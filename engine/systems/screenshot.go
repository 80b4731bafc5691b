package systems

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

type ImageFormat int

const (
	ImageFormatPNG ImageFormat = iota
	ImageFormatJPEG
	ImageFormatBMP
	ImageFormatTIFF
)

func (f ImageFormat) String() string {
	switch f {
	case ImageFormatJPEG:
		return "jpeg"
	case ImageFormatBMP:
		return "bmp"
	case ImageFormatTIFF:
		return "tiff"
	}
	return "png"
}

/** @brief Picks the encoder from the file extension. Unknown extensions encode PNG. */
func ImageFormatFromPath(path string) ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return ImageFormatJPEG
	case ".bmp":
		return ImageFormatBMP
	case ".tif", ".tiff":
		return ImageFormatTIFF
	}
	return ImageFormatPNG
}

const screenshotJPEGQuality = 95

func EncodeImage(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImageFormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: screenshotJPEGQuality})
	case ImageFormatBMP:
		return bmp.Encode(w, img)
	case ImageFormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return png.Encode(w, img)
}

/**
 * @brief Wraps tightly packed readback pixels in an RGBA image, top row
 * first. BGRA pixels have channels 0 and 2 swapped in place.
 */
func PixelsToRGBA(pixels []byte, width, height uint32, format metadata.TextureFormat) (*image.RGBA, error) {
	want := int(width * height * 4)
	if format.BytesPerPixel() != 4 {
		return nil, core.NewRenderError("cannot read back %s as RGBA", format)
	}
	if len(pixels) < want {
		return nil, core.NewSizeMismatch(want, len(pixels))
	}
	pixels = pixels[:want]
	if format.IsBGRA() {
		for i := 0; i < want; i += 4 {
			pixels[i], pixels[i+2] = pixels[i+2], pixels[i]
		}
	}
	return &image.RGBA{
		Pix:    pixels,
		Stride: int(width) * 4,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}, nil
}

/**
 * @brief Renders the scene offscreen and writes it to image files. Encoding
 * and file output run on the job system.
 */
type ScreenshotSystem struct {
	renderer *RendererSystem
	jobs     *JobSystem
	// Directory for screenshots saved without a path.
	Directory string
}

func NewScreenshotSystem(r *RendererSystem, jobs *JobSystem) (*ScreenshotSystem, error) {
	if r == nil || jobs == nil {
		return nil, fmt.Errorf("func NewScreenshotSystem - renderer and job system are required")
	}
	return &ScreenshotSystem{renderer: r, jobs: jobs, Directory: "."}, nil
}

/** @brief Renders one frame of ctx and reads it back. */
func (s *ScreenshotSystem) Capture(ctx *scene.Context, transparent bool) (*image.RGBA, error) {
	tex, w, h, err := s.renderer.RenderOffscreen(ctx, transparent)
	if err != nil {
		return nil, err
	}
	backend := s.renderer.Backend()
	pixels, err := backend.ReadTexture(tex, 0, 0, w, h)
	if err != nil {
		return nil, err
	}
	return PixelsToRGBA(pixels, w, h, backend.SurfaceFormat())
}

// DefaultPath names a fresh PNG file in Directory.
func (s *ScreenshotSystem) DefaultPath() string {
	return filepath.Join(s.Directory, fmt.Sprintf("screenshot_%s.png", uuid.NewString()))
}

/**
 * @brief Captures ctx now and queues the file write. An empty path uses
 * DefaultPath. done, when set, is called from a worker with the final path.
 */
func (s *ScreenshotSystem) Save(ctx *scene.Context, path string, transparent bool, done func(path string, err error)) error {
	img, err := s.Capture(ctx, transparent)
	if err != nil {
		return err
	}
	if path == "" {
		path = s.DefaultPath()
	}
	return s.jobs.Submit(JobTask{
		Name:    "screenshot " + path,
		OnStart: func() error { return WriteImage(path, img) },
		OnComplete: func() {
			core.LogInfo("screenshot saved to %s", path)
			if done != nil {
				done(path, nil)
			}
		},
		OnFailure: func(err error) {
			if done != nil {
				done(path, err)
			}
		},
	})
}

/** @brief Encodes img into path with the format its extension names. */
func WriteImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return core.NewIOError(err)
	}
	if err := EncodeImage(f, img, ImageFormatFromPath(path)); err != nil {
		f.Close()
		return core.NewIOError(err)
	}
	if err := f.Close(); err != nil {
		return core.NewIOError(err)
	}
	return nil
}
