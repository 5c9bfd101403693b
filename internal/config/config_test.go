package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8078, cfg.Server.Port)
	assert.Equal(t, 11, cfg.World.SeeDistance)
	assert.True(t, cfg.Server.EnforceSequence)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9999
  enforce_sequence: false
world:
  tick_rate: 100ms
combat:
  weapon_ranges:
    - weapon: 365
      range: 5
      arrows: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.False(t, cfg.Server.EnforceSequence)
	assert.Equal(t, 100*time.Millisecond, cfg.World.TickRate)
	assert.Equal(t, 200, cfg.Server.MaxPlayers, "untouched section keeps defaults")

	rng, arrows := cfg.WeaponRangeFor(365)
	assert.Equal(t, 5, rng)
	assert.True(t, arrows)

	rng, arrows = cfg.WeaponRangeFor(1)
	assert.Equal(t, 1, rng)
	assert.False(t, arrows)
}

func TestLoad_BadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
