package loaders

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/systems"
)

/** @brief Loads YAML colormap files; one file may hold several colormaps. */
type ColormapLoader struct{}

func (cl *ColormapLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewIOError(err)
	}
	defs, err := systems.ParseColormaps(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%s holds no colormaps: %w", path, core.ErrMaterialLoad)
	}
	return &Resource{
		Type:     ResourceTypeColormap,
		Name:     ResourceName(path),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     defs,
	}, nil
}
