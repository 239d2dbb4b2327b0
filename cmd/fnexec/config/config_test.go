package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ApiPort)
	assert.Equal(t, "python3", cfg.PythonBinary)
	assert.Equal(t, "file", cfg.StoreBackend)

	engine := cfg.EngineOptions()
	assert.Equal(t, 10*time.Second, engine.DefaultTimeout)
	assert.Equal(t, 100*time.Millisecond, engine.MinTimeout)
	assert.Equal(t, 5*time.Minute, engine.MaxTimeout)
	assert.Equal(t, []string{"PATH"}, engine.PassEnv)
	assert.Equal(t, time.Hour, engine.CacheExpiration)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FNEXEC_API_PORT", "9090")
	t.Setenv("FNEXEC_MAX_CONCURRENCY", "2")
	t.Setenv("FNEXEC_PASS_ENV", "PATH, GOPATH,,")
	t.Setenv("FNEXEC_STORE_BACKEND", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ApiPort)
	assert.Equal(t, 2, cfg.EngineOptions().MaxConcurrency)
	assert.Equal(t, []string{"PATH", "GOPATH"}, cfg.EngineOptions().PassEnv)
	assert.Equal(t, "postgres", cfg.ServerOptions().StoreBackend)
}
