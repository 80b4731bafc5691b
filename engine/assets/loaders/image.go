package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/prism/engine/core"
)

// Only the first bytes are needed to recognise a file.
const sniffLength = 262

var supportedImages = map[string]bool{
	"png":  true,
	"jpg":  true,
	"bmp":  true,
	"tif":  true,
	"webp": true,
}

/**
 * @brief Loads matcap images. The file type is sniffed from its content
 * before decoding so a misnamed or truncated file fails as a material
 * load error instead of a decoder panic deep in the renderer.
 */
type ImageLoader struct{}

func (il *ImageLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewIOError(err)
	}
	head := data[:min(len(data), sniffLength)]
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(head) {
		return nil, fmt.Errorf("%s is not an image: %w", path, core.ErrMaterialLoad)
	}
	if !supportedImages[kind.Extension] {
		return nil, fmt.Errorf("%s: unsupported image type %s: %w", path, kind.MIME.Value, core.ErrMaterialLoad)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, core.ErrMaterialLoad, err)
	}
	return &Resource{
		Type:     ResourceTypeMatcap,
		Name:     ResourceName(path),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     img,
	}, nil
}
