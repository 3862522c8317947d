package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFernetKey is 32 zero bytes, base64-encoded. Only for tests.
const testFernetKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

// mockEnvProvider implements EnvProvider for testing
type mockEnvProvider struct {
	vars    map[string]string
	homeDir string
}

func (p *mockEnvProvider) Getenv(key string) string {
	return p.vars[key]
}

func (p *mockEnvProvider) UserHomeDir() (string, error) {
	return p.homeDir, nil
}

func TestNewConfigDefaults(t *testing.T) {
	env := &mockEnvProvider{
		vars: map[string]string{
			"SLIPWAY_AUTH_ENABLED": "false",
		},
		homeDir: "/home/tester",
	}

	cfg, err := NewConfigWithEnv(env, "", "")
	require.NoError(t, err)

	assert.Equal(t, "/home/tester/.local/share/slipway", cfg.DataDir)
	assert.Equal(t, "/home/tester/.local/share/slipway/repos", cfg.BaseDir)
	assert.Equal(t, "/home/tester/.local/share/slipway/slipway.db", cfg.DatabasePath)
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr)
	assert.Equal(t, int64(DefaultBodyLimitBytes), cfg.BodyLimitBytes)
	assert.Equal(t, "localhost:8080", cfg.BaseDomain)
	assert.False(t, cfg.Secure)
	assert.False(t, cfg.IPv6)
	assert.GreaterOrEqual(t, cfg.ConcurrentBuilds, 1)
	assert.Equal(t, "nixpacks", cfg.BuildpackCommand)
	assert.Equal(t, "git", cfg.GitBinary)
	assert.Equal(t, "postgres:16-alpine", cfg.DatabaseImage)
	assert.Equal(t, 30*time.Second, cfg.CreateTimeout)
	assert.Equal(t, 5*time.Second, cfg.InspectTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestNewConfigXDGDataHome(t *testing.T) {
	env := &mockEnvProvider{
		vars: map[string]string{
			"XDG_DATA_HOME":        "/xdg/data",
			"SLIPWAY_AUTH_ENABLED": "false",
		},
		homeDir: "/home/tester",
	}

	cfg, err := NewConfigWithEnv(env, "", "")
	require.NoError(t, err)

	assert.Equal(t, "/xdg/data/slipway", cfg.DataDir)
}

func TestNewConfigEnvOverrides(t *testing.T) {
	env := &mockEnvProvider{
		vars: map[string]string{
			"SLIPWAY_DATABASE_URL":      "/var/lib/slipway/db.sqlite",
			"SLIPWAY_BASE_DIR":          "/srv/repos",
			"SLIPWAY_LISTEN_ADDR":       "127.0.0.1:9000",
			"SLIPWAY_BODY_LIMIT_BYTES":  "1024",
			"SLIPWAY_BASE_DOMAIN":       "paas.example.com",
			"SLIPWAY_SECURE":            "true",
			"SLIPWAY_CONCURRENT_BUILDS": "3",
			"SLIPWAY_SESSION_SECRET":    testFernetKey,
			"SLIPWAY_LOG_LEVEL":         "debug",
			"SLIPWAY_LOG_FORMAT":        "json",
		},
		homeDir: "/home/tester",
	}

	cfg, err := NewConfigWithEnv(env, "", "")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/slipway/db.sqlite", cfg.DatabasePath)
	assert.Equal(t, "/srv/repos", cfg.BaseDir)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, int64(1024), cfg.BodyLimitBytes)
	assert.Equal(t, "paas.example.com", cfg.BaseDomain)
	assert.True(t, cfg.Secure)
	assert.Equal(t, 3, cfg.ConcurrentBuilds)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestNewConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slipway.yaml")
	content := `
listen_addr: "127.0.0.1:8888"
base_domain: file.example.com
concurrent_builds: 2
auth_enabled: false
buildpack_command: pack
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	env := &mockEnvProvider{
		vars: map[string]string{
			// Env still beats the file
			"SLIPWAY_BASE_DOMAIN": "env.example.com",
		},
		homeDir: "/home/tester",
	}

	cfg, err := NewConfigWithEnv(env, path, "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8888", cfg.ListenAddr)
	assert.Equal(t, "env.example.com", cfg.BaseDomain)
	assert.Equal(t, 2, cfg.ConcurrentBuilds)
	assert.False(t, cfg.AuthEnabled)
	assert.Equal(t, "pack", cfg.BuildpackCommand)
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{
			name: "missing session secret with auth enabled",
			vars: map[string]string{},
		},
		{
			name: "malformed session secret",
			vars: map[string]string{
				"SLIPWAY_SESSION_SECRET": "not-a-fernet-key",
			},
		},
		{
			name: "invalid log level",
			vars: map[string]string{
				"SLIPWAY_AUTH_ENABLED": "false",
				"SLIPWAY_LOG_LEVEL":    "loud",
			},
		},
		{
			name: "invalid log format",
			vars: map[string]string{
				"SLIPWAY_AUTH_ENABLED": "false",
				"SLIPWAY_LOG_FORMAT":   "xml",
			},
		},
		{
			name: "invalid listen address",
			vars: map[string]string{
				"SLIPWAY_AUTH_ENABLED": "false",
				"SLIPWAY_LISTEN_ADDR":  "no-port-here",
			},
		},
		{
			name: "zero concurrent builds",
			vars: map[string]string{
				"SLIPWAY_AUTH_ENABLED":      "false",
				"SLIPWAY_CONCURRENT_BUILDS": "0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &mockEnvProvider{vars: tt.vars, homeDir: "/home/tester"}
			_, err := NewConfigWithEnv(env, "", "")
			assert.Error(t, err)
		})
	}
}

func TestConfigListenNetwork(t *testing.T) {
	cfg := &Config{IPv6: false}
	assert.Equal(t, "tcp4", cfg.ListenNetwork())

	cfg.IPv6 = true
	assert.Equal(t, "tcp6", cfg.ListenNetwork())
}

func TestNewConfigCLIDataDirOverride(t *testing.T) {
	env := &mockEnvProvider{
		vars: map[string]string{
			"SLIPWAY_AUTH_ENABLED": "false",
		},
		homeDir: "/home/tester",
	}

	cfg, err := NewConfigWithEnv(env, "", "/opt/slipway")
	require.NoError(t, err)

	assert.Equal(t, "/opt/slipway", cfg.DataDir)
	assert.Equal(t, "/opt/slipway/repos", cfg.BaseDir)
	assert.Equal(t, "/opt/slipway/slipway.db", cfg.DatabasePath)
}
