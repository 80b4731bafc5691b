package engine

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, or the offscreen width when headless.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, or the offscreen height when headless.
	StartHeight uint32 `toml:"start_height"`
	LogLevel    string `toml:"log_level"`

	// "wgpu" or "null".
	Renderer string `toml:"renderer"`
	Headless bool   `toml:"headless"`
	// Frames rendered by a headless run before it returns.
	HeadlessFrames int  `toml:"headless_frames"`
	VSync          bool `toml:"vsync"`
	// "", "low_power" or "high_performance". Empty lets the adapter probe decide.
	PowerPreference string `toml:"power_preference"`

	// Compile embedded shaders without running the WGSL validator first.
	SkipShaderValidation bool `toml:"skip_shader_validation"`

	MaterialDirectory   string `toml:"material_directory"`
	ColormapDirectory   string `toml:"colormap_directory"`
	ScreenshotDirectory string `toml:"screenshot_directory"`
	// Written after a headless run when set.
	ScreenshotPath string `toml:"screenshot_path"`

	Options scene.Options `toml:"options"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:                "Prism",
		StartPosX:           100,
		StartPosY:           100,
		StartWidth:          1280,
		StartHeight:         720,
		LogLevel:            "info",
		Renderer:            "wgpu",
		HeadlessFrames:      1,
		VSync:               true,
		MaterialDirectory:   "assets/materials",
		ColormapDirectory:   "assets/colormaps",
		ScreenshotDirectory: ".",
		Options:             scene.DefaultOptions(),
	}
}

/**
 * @brief Parses a TOML application config over the defaults, so missing
 * keys keep their default values.
 */
func ParseApplicationConfig(data []byte) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("application config: %w", err)
	}
	config.Options.Normalize()
	if config.HeadlessFrames < 1 {
		config.HeadlessFrames = 1
	}
	return config, nil
}

func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewIOError(err)
	}
	config, err := ParseApplicationConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *ApplicationConfig) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("application config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return core.NewIOError(err)
	}
	return nil
}

func (c *ApplicationConfig) powerPreference() metadata.PowerPreference {
	switch strings.ToLower(c.PowerPreference) {
	case "low_power", "low":
		return metadata.PowerPreferenceLowPower
	case "high_performance", "high":
		return metadata.PowerPreferenceHighPerformance
	}
	return metadata.PowerPreferenceDefault
}
