package shaders

import (
	"embed"
	"fmt"
	"strings"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

//go:embed *.wgsl
var files embed.FS

const (
	/** @brief Byte size of FrameUniforms (group 0). */
	FrameUniformSize = 5*64 + 4*16 + 8*16
	/** @brief Byte size of StructureUniforms (group 1, binding 0). */
	StructureUniformSize = 2*64 + 7*16
	MaxSlicePlanes       = 4
	MaxSsaoSamples       = 64
	/** @brief Byte size of SsaoUniforms. */
	SsaoUniformSize = 2*64 + 16 + MaxSsaoSamples*16
	/** @brief Byte size of GroundUniforms. */
	GroundUniformSize = 7 * 16
)

/**
 * @brief Which shared declarations a module is composed with. Geometry
 * modules read group 0 frame data and the group 1 structure streams.
 */
type preludeLevel int

const (
	preludeCommon preludeLevel = iota
	preludeFrame
	preludeGeometry
)

var modules = map[metadata.ShaderKind]struct {
	file    string
	prelude preludeLevel
}{
	metadata.ShaderKindMesh:       {"mesh.wgsl", preludeGeometry},
	metadata.ShaderKindPoints:     {"points.wgsl", preludeGeometry},
	metadata.ShaderKindLines:      {"lines.wgsl", preludeGeometry},
	metadata.ShaderKindSlicePlane: {"slice_plane.wgsl", preludeGeometry},
	metadata.ShaderKindGizmo:      {"gizmo.wgsl", preludeGeometry},
	metadata.ShaderKindGround:     {"ground.wgsl", preludeFrame},
	metadata.ShaderKindSsao:       {"ssao.wgsl", preludeCommon},
	metadata.ShaderKindSsaoBlur:   {"ssao_blur.wgsl", preludeCommon},
	metadata.ShaderKindFullscreen: {"fullscreen.wgsl", preludeCommon},
	metadata.ShaderKindToneMap:    {"tonemap.wgsl", preludeCommon},
}

/** @brief Reports whether the kind draws structure soups through group 1. */
func IsGeometry(kind metadata.ShaderKind) bool {
	m, ok := modules[kind]
	return ok && m.prelude == preludeGeometry
}

/**
 * @brief Reports whether the kind provides the fragment entry of variant.
 * Every geometry module has fs_scene; the structure-drawing modules also
 * have the prepass, peel and pick entries.
 */
func HasVariant(kind metadata.ShaderKind, variant metadata.PassVariant) bool {
	switch kind {
	case metadata.ShaderKindMesh, metadata.ShaderKindPoints, metadata.ShaderKindLines:
		return true
	case metadata.ShaderKindSlicePlane, metadata.ShaderKindGizmo:
		return variant == metadata.PassVariantScene || variant == metadata.PassVariantTransparent
	case metadata.ShaderKindGround:
		// The reflection variant only marks the stencil buffer.
		return variant == metadata.PassVariantScene || variant == metadata.PassVariantTransparent ||
			variant == metadata.PassVariantReflection
	}
	return false
}

// FragmentEntry is the fragment entry point of a non-geometry module.
const FragmentEntry = "fs_main"

// VertexEntry is shared by every module.
const VertexEntry = "vs_main"

/** @brief The WGSL file name a kind is built from. */
func FileName(kind metadata.ShaderKind) (string, error) {
	m, ok := modules[kind]
	if !ok {
		return "", fmt.Errorf("no shader module for kind %s", kind)
	}
	return m.file, nil
}

func read(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

/**
 * @brief Returns the complete WGSL source of a kind: the shared prelude
 * followed by the module itself.
 */
func Source(kind metadata.ShaderKind) (string, error) {
	m, ok := modules[kind]
	if !ok {
		return "", fmt.Errorf("no shader module for kind %s", kind)
	}
	parts := []string{"common.wgsl"}
	if m.prelude >= preludeFrame {
		parts = append(parts, "frame.wgsl")
	}
	if m.prelude >= preludeGeometry {
		parts = append(parts, "structure.wgsl")
	}
	parts = append(parts, m.file)

	var sb strings.Builder
	for _, p := range parts {
		src, err := read(p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "// ---- %s ----\n%s\n", p, src)
	}
	return sb.String(), nil
}

// Kinds lists every kind that has a module, in ShaderKind order.
func Kinds() []metadata.ShaderKind {
	var out []metadata.ShaderKind
	for k := metadata.ShaderKind(0); k < metadata.ShaderKindMax; k++ {
		if _, ok := modules[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
