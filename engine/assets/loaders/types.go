package loaders

import (
	"path/filepath"
	"strings"
)

type ResourceType int

/** @brief Resource types the asset manager knows how to load. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief A matcap image. Data is an image.Image. */
	ResourceTypeMatcap
	/** @brief A colormap file. Data is a []systems.ColormapDefinition. */
	ResourceTypeColormap
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeMatcap:
		return "matcap"
	case ResourceTypeColormap:
		return "colormap"
	}
	return "none"
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	Type ResourceType
	/** @brief The name of the resource: the file name without extension. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the file in bytes. */
	DataSize uint64
	/** @brief The decoded resource data. */
	Data interface{}
}

// ResourceName is the file name without directory and extension.
func ResourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TypeFromPath picks the resource type by extension.
func TypeFromPath(path string) ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return ResourceTypeMatcap
	case ".yaml", ".yml":
		return ResourceTypeColormap
	}
	return ResourceTypeNone
}
