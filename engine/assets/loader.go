package assets

import (
	"image"

	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/systems"
)

type Loader interface {
	Load(path string) (*loaders.Resource, error)
}

/** @brief Receives matcaps loaded from disk. */
type MatcapRegistry interface {
	RegisterMatcap(name string, img image.Image, replace bool) error
}

/** @brief Receives colormaps loaded from disk. */
type ColormapRegistry interface {
	Register(def systems.ColormapDefinition, replace bool) error
}
