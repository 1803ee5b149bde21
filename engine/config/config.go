package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultMaxBones is the number of bone matrix slots a renderer allocates when nothing else is configured.
	DefaultMaxBones = 64

	// MaxSupportedBones is the largest bone count whose matrices, together with the view-projection matrix,
	// fit in the 64 KiB minimum uniform buffer binding size guaranteed by WebGPU.
	MaxSupportedBones = 1023
)

var (
	ErrInvalidMaxBones   = errors.New("renderer.max_bones out of range")
	ErrInvalidWindowSize = errors.New("window dimensions must be positive")
	ErrInvalidMSAA       = errors.New("renderer.msaa must be 1 or 4")
	ErrInvalidWorkers    = errors.New("animation.workers must be positive")
)

// Config is the root of the TOML configuration consumed by the viewer and the renderer.
type Config struct {
	Window    WindowConfig    `toml:"window"`
	Renderer  RendererConfig  `toml:"renderer"`
	Animation AnimationConfig `toml:"animation"`
	Log       LogConfig       `toml:"log"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

type RendererConfig struct {
	// MaxBones is the number of bone parameter slots each renderer allocates.
	MaxBones int `toml:"max_bones"`

	// MSAA is the sample count of the main render pass (1 disables multisampling).
	MSAA int `toml:"msaa"`

	// FragmentShader is an optional path to a WGSL file whose fp_animatedmesh entry point replaces the default fragment stage.
	FragmentShader string `toml:"fragment_shader"`

	// WatchShader enables hot reload of FragmentShader.
	WatchShader bool `toml:"watch_shader"`
}

type AnimationConfig struct {
	Model   string  `toml:"model"`
	Clip    string  `toml:"clip"`
	Loop    *bool   `toml:"loop,omitempty"`
	Speed   float32 `toml:"speed"`
	Workers int     `toml:"workers"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns a Config populated with default values for every field.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

// Load reads and parses the TOML file at path.
//
// Parameters:
//   - path: filesystem path of the configuration file
//
// Returns:
//   - Config: the parsed configuration with defaults applied
//   - error: an error if the file cannot be read, parsed, or fails validation
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes TOML data into a Config. Unknown keys are rejected so typos surface early.
// Missing fields receive their defaults and the result is validated.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the parsed configuration
//   - error: a decode or validation error
func Parse(data []byte) (Config, error) {
	var c Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Encode serializes the Config back to TOML.
//
// Returns:
//   - []byte: the TOML document
//   - error: an error if marshaling fails
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks that every field is within its supported range.
//
// Returns:
//   - error: the first violated constraint, or nil
func (c Config) Validate() error {
	if c.Renderer.MaxBones < 1 || c.Renderer.MaxBones > MaxSupportedBones {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidMaxBones, c.Renderer.MaxBones, MaxSupportedBones)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidWindowSize, c.Window.Width, c.Window.Height)
	}
	if c.Renderer.MSAA != 1 && c.Renderer.MSAA != 4 {
		return fmt.Errorf("%w: %d", ErrInvalidMSAA, c.Renderer.MSAA)
	}
	if c.Animation.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Animation.Workers)
	}
	return nil
}

// LoopEnabled reports whether the configured clip should loop. Looping is on unless explicitly disabled.
func (a AnimationConfig) LoopEnabled() bool {
	return a.Loop == nil || *a.Loop
}

func (c *Config) applyDefaults() {
	c.Window.Title = common.Coalesce(c.Window.Title, "oxy-skin")
	c.Window.Width = common.Coalesce(c.Window.Width, 1280)
	c.Window.Height = common.Coalesce(c.Window.Height, 720)
	c.Renderer.MaxBones = common.Coalesce(c.Renderer.MaxBones, DefaultMaxBones)
	c.Renderer.MSAA = common.Coalesce(c.Renderer.MSAA, 4)
	c.Animation.Speed = common.Coalesce(c.Animation.Speed, 1)
	c.Animation.Workers = common.Coalesce(c.Animation.Workers, 4)
	c.Log.Level = common.Coalesce(c.Log.Level, "info")
}
