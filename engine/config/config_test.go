package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultSettings(t *testing.T) {
	s := Default()
	assert.Equal(t, 1.0, s.RenderScale)
	assert.Equal(t, AAModeTAA, s.AntiAliasing)
	assert.False(t, s.Stereo)
	assert.True(t, s.Bloom.Enabled)
	assert.True(t, s.SSAO.Enabled)
	assert.Equal(t, UpscaleModeAuto, s.Upscale)
	assert.Empty(t, s.DebugView)
	assert.NoError(t, s.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeSettings(t, `
render_scale = 0.75
anti_aliasing = "off"
upscale = "blit"
debug_view = "Bloom"

[bloom]
enabled = false
mips = 4
intensity = 0.2

[ssao]
enabled = true
radius = 1.5
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.75, s.RenderScale)
	assert.Equal(t, AAModeOff, s.AntiAliasing)
	assert.Equal(t, UpscaleModeBlit, s.Upscale)
	assert.Equal(t, "Bloom", s.DebugView)
	assert.False(t, s.Bloom.Enabled)
	assert.Equal(t, 4, s.Bloom.Mips)
	assert.Equal(t, 0.2, s.Bloom.Intensity)
	assert.Equal(t, 1.5, s.SSAO.Radius)
}

func TestLoadKeepsDefaultsForAbsentFields(t *testing.T) {
	path := writeSettings(t, `render_scale = 0.5`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.RenderScale)
	assert.Equal(t, AAModeTAA, s.AntiAliasing)
	assert.True(t, s.Bloom.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadMalformedTOML(t *testing.T) {
	path := writeSettings(t, `render_scale = `)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(s *Settings)
	}{
		{"zero render scale", func(s *Settings) { s.RenderScale = 0 }},
		{"oversized render scale", func(s *Settings) { s.RenderScale = 2.5 }},
		{"unknown aa mode", func(s *Settings) { s.AntiAliasing = "fxaa" }},
		{"unknown upscale mode", func(s *Settings) { s.Upscale = "vendor" }},
		{"negative bloom mips", func(s *Settings) { s.Bloom.Mips = -1 }},
		{"excessive bloom mips", func(s *Settings) { s.Bloom.Mips = 13 }},
		{"negative bloom intensity", func(s *Settings) { s.Bloom.Intensity = -0.1 }},
		{"negative ssao radius", func(s *Settings) { s.SSAO.Radius = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Default()
			tc.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}
