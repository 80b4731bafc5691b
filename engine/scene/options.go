package scene

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

type GroundPlaneMode int

const (
	GroundPlaneNone GroundPlaneMode = iota
	GroundPlaneTile
	GroundPlaneShadowOnly
	GroundPlaneTileReflection
)

var groundPlaneModeNames = map[GroundPlaneMode]string{
	GroundPlaneNone:           "none",
	GroundPlaneTile:           "tile",
	GroundPlaneShadowOnly:     "shadow_only",
	GroundPlaneTileReflection: "tile_reflection",
}

func (m GroundPlaneMode) String() string {
	if s, ok := groundPlaneModeNames[m]; ok {
		return s
	}
	return "none"
}

func (m GroundPlaneMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *GroundPlaneMode) UnmarshalText(text []byte) error {
	for mode, name := range groundPlaneModeNames {
		if name == string(text) {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("unknown ground plane mode %q", text)
}

type TransparencyMode int

const (
	TransparencyNone TransparencyMode = iota
	TransparencySimple
	TransparencyPretty
)

var transparencyModeNames = map[TransparencyMode]string{
	TransparencyNone:   "none",
	TransparencySimple: "simple",
	TransparencyPretty: "pretty",
}

func (m TransparencyMode) String() string {
	if s, ok := transparencyModeNames[m]; ok {
		return s
	}
	return "none"
}

func (m TransparencyMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TransparencyMode) UnmarshalText(text []byte) error {
	for mode, name := range transparencyModeNames {
		if name == string(text) {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("unknown transparency mode %q", text)
}

/**
 * @brief Screen-space ambient occlusion settings.
 */
type SsaoConfig struct {
	Enabled bool `json:"enabled" toml:"enabled"`
	/** @brief Sample hemisphere radius, relative to the length scale. */
	Radius      float32 `json:"radius" toml:"radius"`
	Intensity   float32 `json:"intensity" toml:"intensity"`
	Bias        float32 `json:"bias" toml:"bias"`
	SampleCount int     `json:"sample_count" toml:"sample_count"`
}

func DefaultSsaoConfig() SsaoConfig {
	return SsaoConfig{
		Enabled:     false,
		Radius:      0.02,
		Intensity:   1,
		Bias:        0.025,
		SampleCount: 16,
	}
}

type ToneMappingConfig struct {
	Exposure   float32 `json:"exposure" toml:"exposure"`
	WhiteLevel float32 `json:"white_level" toml:"white_level"`
	Gamma      float32 `json:"gamma" toml:"gamma"`
}

func DefaultToneMappingConfig() ToneMappingConfig {
	return ToneMappingConfig{Exposure: 1, WhiteLevel: 1, Gamma: 2.2}
}

/**
 * @brief Ground plane appearance. Mode and height live in Options.
 */
type GroundPlaneConfig struct {
	/** @brief Treat Options.GroundPlaneHeight as a world height instead of the automatic placement. */
	HeightIsAbsolute    bool       `json:"height_is_absolute" toml:"height_is_absolute"`
	ShadowDarkness      float32    `json:"shadow_darkness" toml:"shadow_darkness"`
	ReflectionIntensity float32    `json:"reflection_intensity" toml:"reflection_intensity"`
	TileColor           [3]float32 `json:"tile_color" toml:"tile_color"`
	TileScale           float32    `json:"tile_scale" toml:"tile_scale"`
}

func DefaultGroundPlaneConfig() GroundPlaneConfig {
	return GroundPlaneConfig{
		ShadowDarkness:      0.25,
		ReflectionIntensity: 0.25,
		TileColor:           [3]float32{0.8, 0.8, 0.8},
		TileScale:           1,
	}
}

/**
 * @brief Viewer-wide options. Field names are stable in JSON and TOML.
 */
type Options struct {
	AutoComputeSceneExtents         bool `json:"auto_compute_scene_extents" toml:"auto_compute_scene_extents"`
	InvokeUserCallbackForNestedShow bool `json:"invoke_user_callback_for_nested_show" toml:"invoke_user_callback_for_nested_show"`
	GiveFocusOnShow                 bool `json:"give_focus_on_show" toml:"give_focus_on_show"`

	GroundPlaneEnabled bool            `json:"ground_plane_enabled" toml:"ground_plane_enabled"`
	GroundPlaneMode    GroundPlaneMode `json:"ground_plane_mode" toml:"ground_plane_mode"`
	GroundPlaneHeight  float32         `json:"ground_plane_height" toml:"ground_plane_height"`

	BackgroundColor [4]float32 `json:"background_color" toml:"background_color"`

	TransparencyEnabled      bool             `json:"transparency_enabled" toml:"transparency_enabled"`
	TransparencyMode         TransparencyMode `json:"transparency_mode" toml:"transparency_mode"`
	TransparencyRenderPasses int              `json:"transparency_render_passes" toml:"transparency_render_passes"`

	SsaaFactor int `json:"ssaa_factor" toml:"ssaa_factor"`
	/** @brief Frame cap; -1 is uncapped. */
	MaxFps int `json:"max_fps" toml:"max_fps"`

	Ssao        SsaoConfig        `json:"ssao" toml:"ssao"`
	ToneMapping ToneMappingConfig `json:"tone_mapping" toml:"tone_mapping"`
	GroundPlane GroundPlaneConfig `json:"ground_plane" toml:"ground_plane"`
}

const (
	MinSsaaFactor = 1
	MaxSsaaFactor = 4

	DefaultTransparencyRenderPasses = 8
)

func DefaultOptions() Options {
	return Options{
		AutoComputeSceneExtents:  true,
		GiveFocusOnShow:          true,
		GroundPlaneEnabled:       true,
		GroundPlaneMode:          GroundPlaneTile,
		BackgroundColor:          [4]float32{1, 1, 1, 1},
		TransparencyEnabled:      true,
		TransparencyMode:         TransparencySimple,
		TransparencyRenderPasses: DefaultTransparencyRenderPasses,
		SsaaFactor:               1,
		MaxFps:                   60,
		Ssao:                     DefaultSsaoConfig(),
		ToneMapping:              DefaultToneMappingConfig(),
		GroundPlane:              DefaultGroundPlaneConfig(),
	}
}

/**
 * @brief Brings options back into their valid ranges. The ground plane mode
 * is authoritative: GroundPlaneEnabled is derived from it.
 */
func (o *Options) Normalize() {
	o.SsaaFactor = math.Clamp(o.SsaaFactor, MinSsaaFactor, MaxSsaaFactor)
	if o.TransparencyRenderPasses < 1 {
		o.TransparencyRenderPasses = 1
	}
	if o.MaxFps == 0 || o.MaxFps < -1 {
		o.MaxFps = -1
	}
	if o.Ssao.SampleCount < 1 {
		o.Ssao.SampleCount = 1
	}
	o.GroundPlaneEnabled = o.GroundPlaneMode != GroundPlaneNone
}

func (o *Options) SetSsaaFactor(factor int) {
	o.SsaaFactor = math.Clamp(factor, MinSsaaFactor, MaxSsaaFactor)
}

func (o *Options) SetGroundPlaneMode(mode GroundPlaneMode) {
	o.GroundPlaneMode = mode
	o.GroundPlaneEnabled = mode != GroundPlaneNone
}

// EffectiveTransparency is the transparency mode passes should use.
func (o *Options) EffectiveTransparency() TransparencyMode {
	if !o.TransparencyEnabled || o.TransparencyMode == TransparencyNone {
		return TransparencyNone
	}
	return o.TransparencyMode
}

func (o Options) Background() math.Vec4 {
	return math.NewVec4(o.BackgroundColor[0], o.BackgroundColor[1], o.BackgroundColor[2], o.BackgroundColor[3])
}

func MarshalOptions(o Options) ([]byte, error) {
	o.Normalize()
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return nil, core.NewJSONError(err)
	}
	return data, nil
}

/**
 * @brief Parses JSON over the defaults, so missing keys keep their default values.
 */
func UnmarshalOptions(data []byte) (Options, error) {
	o := DefaultOptions()
	if err := json.Unmarshal(data, &o); err != nil {
		return Options{}, core.NewJSONError(err)
	}
	o.Normalize()
	return o, nil
}

func SaveOptions(path string, o Options) error {
	data, err := MarshalOptions(o)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return core.NewIOError(err)
	}
	return nil
}

func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, core.NewIOError(err)
	}
	return UnmarshalOptions(data)
}
