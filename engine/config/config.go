// Package config loads and validates pipeline settings from TOML files. The
// default render chain is assembled from these settings by engine/viewport.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// AAMode selects the anti-aliasing strategy of the temporal pipeline.
type AAMode string

const (
	// AAModeOff disables the TAA resolve; the temporal passes still run their
	// blit and bookkeeping phases.
	AAModeOff AAMode = "off"

	// AAModeTAA enables the temporal anti-aliasing resolve.
	AAModeTAA AAMode = "taa"
)

// UpscaleMode selects how the internal-resolution image reaches the output
// resolution.
type UpscaleMode string

const (
	// UpscaleModeAuto prefers the vendor upscaling path when the device
	// supports it, falling back to a blit.
	UpscaleModeAuto UpscaleMode = "auto"

	// UpscaleModeBlit always uses the standard blit.
	UpscaleModeBlit UpscaleMode = "blit"
)

// Settings is the pipeline configuration.
type Settings struct {
	// RenderScale scales the internal render resolution relative to the
	// output resolution. Valid range (0, 2].
	RenderScale float64 `toml:"render_scale"`

	// AntiAliasing selects the anti-aliasing mode.
	AntiAliasing AAMode `toml:"anti_aliasing"`

	// Stereo enables 2-layer array render targets.
	Stereo bool `toml:"stereo"`

	// Bloom holds the bloom pass settings.
	Bloom BloomSettings `toml:"bloom"`

	// SSAO holds the ambient occlusion settings.
	SSAO SSAOSettings `toml:"ssao"`

	// Upscale selects the output upscaling mode.
	Upscale UpscaleMode `toml:"upscale"`

	// DebugView names the pass whose internal texture is shown instead of the
	// final image. Empty shows the final image.
	DebugView string `toml:"debug_view"`
}

// BloomSettings configures the bloom pass.
type BloomSettings struct {
	// Enabled toggles the pass.
	Enabled bool `toml:"enabled"`

	// Mips is the bloom chain depth. 0 uses the pass default.
	Mips int `toml:"mips"`

	// Intensity is the composite strength. 0 uses the pass default.
	Intensity float64 `toml:"intensity"`
}

// SSAOSettings configures the ambient occlusion pass.
type SSAOSettings struct {
	// Enabled toggles the pass.
	Enabled bool `toml:"enabled"`

	// Radius is the view-space sampling radius. 0 uses the pass default.
	Radius float64 `toml:"radius"`
}

// Default returns the settings used when no configuration file is present.
//
// Returns:
//   - *Settings: full-resolution rendering with TAA, bloom, and SSAO enabled
func Default() *Settings {
	return &Settings{
		RenderScale:  1.0,
		AntiAliasing: AAModeTAA,
		Bloom:        BloomSettings{Enabled: true},
		SSAO:         SSAOSettings{Enabled: true},
		Upscale:      UpscaleModeAuto,
	}
}

// Load reads and validates settings from a TOML file. Fields absent from the
// file keep their defaults.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - *Settings: the loaded settings
//   - error: an error if the file cannot be read, parsed, or validated
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	settings := Default()
	if err = toml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err = settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return settings, nil
}

// Validate checks the settings for out-of-range values.
//
// Returns:
//   - error: the first violation found, or nil
func (s *Settings) Validate() error {
	if s.RenderScale <= 0 || s.RenderScale > 2 {
		return fmt.Errorf("render_scale %v out of range (0, 2]", s.RenderScale)
	}
	switch s.AntiAliasing {
	case AAModeOff, AAModeTAA:
	default:
		return fmt.Errorf("unknown anti_aliasing mode %q", s.AntiAliasing)
	}
	switch s.Upscale {
	case UpscaleModeAuto, UpscaleModeBlit:
	default:
		return fmt.Errorf("unknown upscale mode %q", s.Upscale)
	}
	if s.Bloom.Mips < 0 || s.Bloom.Mips > 12 {
		return fmt.Errorf("bloom mips %d out of range [0, 12]", s.Bloom.Mips)
	}
	if s.Bloom.Intensity < 0 {
		return fmt.Errorf("bloom intensity %v must not be negative", s.Bloom.Intensity)
	}
	if s.SSAO.Radius < 0 {
		return fmt.Errorf("ssao radius %v must not be negative", s.SSAO.Radius)
	}
	return nil
}
