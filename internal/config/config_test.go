package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, "data/license.db", cfg.DBPath)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 30, cfg.RateLimit.Max)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
port: 9100
db_path: /var/lib/license/license.db
rate_limit:
  max: 5
  window: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("LICENSE_PORT", "9200")
	t.Setenv("LICENSE_ALLOW_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Port)
	assert.Equal(t, "/var/lib/license/license.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad_port", mutate: func(c *Config) { c.Port = 0 }, wantErr: true},
		{name: "empty_db", mutate: func(c *Config) { c.DBPath = " " }, wantErr: true},
		{name: "default_secret_in_production", mutate: func(c *Config) { c.Env = "production" }, wantErr: true},
		{
			name: "production_with_secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.JWTSecret = "s3cr3t"
			},
		},
		{name: "sheet_sync_without_credentials", mutate: func(c *Config) { c.SheetSync.Enable = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
