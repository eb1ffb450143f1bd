package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	SetDefaults()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Source)
	assert.Equal(t, "dist", cfg.Output)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.False(t, cfg.Server.LiveReload)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Assets.Dir)
	assert.Empty(t, cfg.Ignore)
}

func TestLoadOverrides(t *testing.T) {
	resetViper(t)
	SetDefaults()
	viper.Set("output", "public")
	viper.Set("server.port", 3000)
	viper.Set("server.live_reload", true)
	viper.Set("ignore", []string{"scratch", "wip"})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "public", cfg.Output)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Server.LiveReload)
	assert.Equal(t, []string{"scratch", "wip"}, cfg.Ignore)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Output: "dist", Server: ServerConfig{Port: 8000}}
	assert.NoError(t, cfg.Validate())

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 8000
	cfg.Output = ""
	assert.Error(t, cfg.Validate())
}
