package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KAUPPA_SERVICE", "carts")
	t.Setenv("PORT", "9090")
	t.Setenv("CLIENT_TIMEOUT", "250ms")
	t.Setenv("RATE_LIMIT", "12.5")
	t.Setenv("GATEWAY_BRIDGE", "true")
	t.Setenv("PRODUCTS_ENDPOINT", "http://products:8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "carts", cfg.Service)
	assert.False(t, cfg.RunsAll())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.ClientTimeout)
	assert.Equal(t, 12.5, cfg.RateLimit)
	assert.True(t, cfg.GatewayBridge)

	url, err := cfg.Endpoint("products")
	require.NoError(t, err)
	assert.Equal(t, "http://products:8080", url)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TAX_ENDPOINT=http://tax.internal\n"), 0o644))

	// godotenv keeps variables that are already set; t.Setenv restores the
	// original value afterwards.
	t.Setenv("TAX_ENDPOINT", "")
	require.NoError(t, os.Unsetenv("TAX_ENDPOINT"))

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	url, err := cfg.Endpoint("tax")
	require.NoError(t, err)
	assert.Equal(t, "http://tax.internal", url)
}

func TestEndpointErrors(t *testing.T) {
	cfg := Default()

	_, err := cfg.Endpoint("orders")
	assert.True(t, errors.Is(err, ErrNoEndpoint))

	_, err = cfg.Endpoint("warehouse")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoEndpoint))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown service", func(c *Config) { c.Service = "warehouse" }, false},
		{"port range", func(c *Config) { c.Port = 70000 }, false},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"transport", func(c *Config) { c.Transport = "fasthttp" }, false},
		{"sql without dsn", func(c *Config) { c.StoreDriver = "postgres" }, false},
		{"sql with dsn", func(c *Config) { c.StoreDriver = "sqlite"; c.StoreDSN = "file:kauppa.db" }, true},
		{"zero capacity", func(c *Config) { c.CacheCapacity = 0 }, false},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := Default()
	cfg.BindAddress = "127.0.0.1"
	cfg.Port = 8081
	assert.Equal(t, "127.0.0.1:8081", cfg.Address())
}
