package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/calltracker/config"
	"github.com/warp/calltracker/generic"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.StoreSQLite, cfg.Store)
	assert.Equal(t, config.StoreSQLite, cfg.SettingsStore)
	assert.Equal(t, time.Minute, cfg.RolloverInterval)
	assert.Equal(t, 3*time.Second, cfg.StatusWindow)

	anchor, err := cfg.AnchorDate()
	require.NoError(t, err)
	assert.Equal(t, generic.DefaultBiweeklyAnchor, anchor)

	rate, err := cfg.Rate()
	require.NoError(t, err)
	assert.Equal(t, "0.11", rate.String())
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("CALLTRACKER_PORT", "7000")
	t.Setenv("CALLTRACKER_TIMEZONE", "America/New_York")

	cfg, err := config.Load([]string{"--port=9090", "--store=memory"})

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, config.StoreMemory, cfg.Store)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoad_PostgresSettingsFromEnv(t *testing.T) {
	t.Setenv("CALLTRACKER_SETTINGS_STORE", "postgres")
	t.Setenv("CALLTRACKER_POSTGRES_DSN", "postgres://localhost/calltracker")

	cfg, err := config.Load(nil)

	require.NoError(t, err)
	assert.Equal(t, config.StorePostgres, cfg.SettingsStore)
	assert.Equal(t, config.StoreSQLite, cfg.Store)
}

func TestLoad_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calltracker.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 3000, "anchor": "2026-03-07", "debug": true}`), 0o600))

	cfg, err := config.Load([]string{"--config=" + path})

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "2026-03-07", cfg.Anchor)
	assert.True(t, cfg.Debug)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"postgres without dsn", []string{"--store=postgres"}},
		{"postgres settings without dsn", []string{"--settings-store=postgres"}},
		{"memory settings", []string{"--settings-store=memory"}},
		{"bad timezone", []string{"--timezone=Mars/Olympus"}},
		{"bad anchor", []string{"--anchor=2026-13-40"}},
		{"zero rate", []string{"--default-rate=0"}},
		{"unknown store", []string{"--store=redis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(tt.args)
			assert.Error(t, err)
		})
	}
}
