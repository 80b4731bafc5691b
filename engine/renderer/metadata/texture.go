package metadata

type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb
	TextureFormatRGBA16Float
	TextureFormatR8Unorm
	TextureFormatR32Float
	TextureFormatDepth32Float
	TextureFormatDepth24PlusStencil8
)

/** @brief Formats of the offscreen targets the passes share. */
const (
	HDRFormat = TextureFormatRGBA16Float
	/** @brief Depth of the HDR scene; the stencil masks the ground reflection. */
	SceneDepthFormat = TextureFormatDepth24PlusStencil8
	/** @brief Sampleable depth used by the shadow map, prepass, peeling and picking. */
	DepthFormat  = TextureFormatDepth32Float
	NormalFormat = TextureFormatRGBA16Float
	SsaoFormat   = TextureFormatR8Unorm
	PickFormat   = TextureFormatRGBA8Unorm
)

func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDepth32Float || f == TextureFormatDepth24PlusStencil8
}

func (f TextureFormat) HasStencil() bool {
	return f == TextureFormatDepth24PlusStencil8
}

func (f TextureFormat) IsSrgb() bool {
	return f == TextureFormatRGBA8UnormSrgb || f == TextureFormatBGRA8UnormSrgb
}

// IsBGRA reports whether red and blue are swapped in memory.
func (f TextureFormat) IsBGRA() bool {
	return f == TextureFormatBGRA8Unorm || f == TextureFormatBGRA8UnormSrgb
}

/**
 * @brief Bytes per texel of a copyable format; 0 for formats that can't be read back.
 */
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case TextureFormatRGBA8Unorm, TextureFormatRGBA8UnormSrgb, TextureFormatBGRA8Unorm, TextureFormatBGRA8UnormSrgb:
		return 4
	case TextureFormatRGBA16Float:
		return 8
	case TextureFormatR8Unorm:
		return 1
	case TextureFormatR32Float, TextureFormatDepth32Float:
		return 4
	}
	return 0
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case TextureFormatBGRA8Unorm:
		return "bgra8unorm"
	case TextureFormatBGRA8UnormSrgb:
		return "bgra8unorm-srgb"
	case TextureFormatRGBA16Float:
		return "rgba16float"
	case TextureFormatR8Unorm:
		return "r8unorm"
	case TextureFormatR32Float:
		return "r32float"
	case TextureFormatDepth32Float:
		return "depth32float"
	case TextureFormatDepth24PlusStencil8:
		return "depth24plus-stencil8"
	}
	return "undefined"
}

/** @brief Holds bit flags for textures. */
type TextureUsage uint32

const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageTextureBinding
	TextureUsageRenderAttachment
)

/**
 * @brief Represents a texture to be created by the backend.
 */
type TextureDescriptor struct {
	/** @brief The texture label, shown by GPU debuggers. */
	Label string
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	Format TextureFormat
	Usage  TextureUsage
}

type FilterMode int

const (
	FilterModeNearest FilterMode = iota
	FilterModeLinear
)

type AddressMode int

const (
	AddressModeClampToEdge AddressMode = iota
	AddressModeRepeat
)

type CompareFunction int

const (
	CompareFunctionUndefined CompareFunction = iota
	CompareFunctionNever
	CompareFunctionLess
	CompareFunctionLessEqual
	CompareFunctionEqual
	CompareFunctionGreater
	CompareFunctionGreaterEqual
	CompareFunctionNotEqual
	CompareFunctionAlways
)

/**
 * @brief A sampler. Compare set to anything but Undefined makes it a
 * comparison sampler (shadow map PCF).
 */
type SamplerDescriptor struct {
	Label       string
	AddressMode AddressMode
	MagFilter   FilterMode
	MinFilter   FilterMode
	Compare     CompareFunction
}
