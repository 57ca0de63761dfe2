package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, c *Config)
	}{
		{
			name:  "defaults",
			setup: func() { viper.Reset() },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "localhost:8080", c.Server.Addr())
				assert.Equal(t, "file", c.Storage.Driver)
				assert.Equal(t, ".mediakit/kits", c.Storage.Dir)
				assert.Equal(t, 20, c.Builder.MaxUndo)
				assert.Equal(t, 300*time.Millisecond, c.Templates.Debounce)
				assert.Equal(t, 10*time.Second, c.Server.ShutdownTimeout)
				assert.Equal(t, "free", c.Entitlement.Tier)
				assert.Empty(t, c.Builder.Autosave)
			},
		},
		{
			name: "overrides",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 3000)
				viper.Set("server.host", "0.0.0.0")
				viper.Set("server.allowed_origins", []string{"https://kits.example.com"})
				viper.Set("storage.driver", "SQLite")
				viper.Set("builder.max_undo", 5)
				viper.Set("builder.autosave", "@every 30s")
				viper.Set("templates.debounce", "1s")
				viper.Set("entitlement.tier", "Premium")
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "0.0.0.0:3000", c.Server.Addr())
				assert.Equal(t, []string{"https://kits.example.com"}, c.Server.AllowedOrigins)
				assert.Equal(t, "sqlite", c.Storage.Driver)
				assert.Equal(t, 5, c.Builder.MaxUndo)
				assert.Equal(t, "@every 30s", c.Builder.Autosave)
				assert.Equal(t, time.Second, c.Templates.Debounce)
				assert.Equal(t, "premium", c.Entitlement.Tier)
			},
		},
		{
			name: "invalid port type",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "port out of range",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 70000)
			},
			expectError: true,
		},
		{
			name: "unknown driver",
			setup: func() {
				viper.Reset()
				viper.Set("storage.driver", "redis")
			},
			expectError: true,
		},
		{
			name: "postgres without dsn",
			setup: func() {
				viper.Reset()
				viper.Set("storage.driver", "postgres")
			},
			expectError: true,
		},
		{
			name: "zero undo depth",
			setup: func() {
				viper.Reset()
				viper.Set("builder.max_undo", 0)
			},
			expectError: true,
		},
		{
			name: "unknown tier",
			setup: func() {
				viper.Reset()
				viper.Set("entitlement.tier", "gold")
			},
			expectError: true,
		},
		{
			name: "traversal in export dir",
			setup: func() {
				viper.Reset()
				viper.Set("export.dir", "../../etc")
			},
			expectError: true,
		},
		{
			name: "watch without dir",
			setup: func() {
				viper.Reset()
				viper.Set("templates.dir", "")
				viper.Set("templates.watch", true)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			t.Cleanup(viper.Reset)

			config, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, config)
			tt.check(t, config)
		})
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".mediakit.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9090
storage:
  driver: memory
builder:
  features:
    gallery: true
export:
  base_url: https://cdn.example.com/kits
`), 0o644))

	t.Setenv("MEDIAKIT_SERVER_HOST", "127.0.0.1")
	t.Setenv("MEDIAKIT_SERVER_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	v := viper.New()
	v.SetConfigFile(file)
	BindEnv(v)
	require.NoError(t, v.ReadInConfig())

	c, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", c.Server.Addr())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, c.Server.AllowedOrigins)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, map[string]bool{"gallery": true}, c.Builder.Features)
	assert.Equal(t, "https://cdn.example.com/kits", c.Export.BaseURL)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"templates", false},
		{".mediakit/kits", false},
		{"/var/lib/mediakit", false},
		{"a/../b", false},
		{"../outside", true},
		{"kits/../../etc", true},
		{"kits;rm -rf", true},
		{"$(whoami)", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateServerHost(t *testing.T) {
	for _, host := range []string{"localhost; rm", "host|cat", "`id`"} {
		assert.Error(t, validateServerConfig(&ServerConfig{Host: host, Port: 80}), host)
	}
	assert.NoError(t, validateServerConfig(&ServerConfig{Host: "kits.example.com", Port: 0}))
}

func TestValidateConfigWithDetails(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	base, err := Load()
	require.NoError(t, err)

	t.Run("defaults are valid", func(t *testing.T) {
		c := *base
		c.Templates.Dir = t.TempDir()
		res := ValidateConfigWithDetails(&c)
		assert.True(t, res.Valid, res.String())
	})

	t.Run("errors and warnings", func(t *testing.T) {
		c := *base
		c.Server.Port = 80
		c.Server.Environment = "production"
		c.Server.AllowedOrigins = []string{"not-an-origin"}
		c.Builder.Autosave = "every now and then"
		c.Storage.Driver = "memory"
		c.Export.BaseURL = "cdn/kits"

		res := ValidateConfigWithDetails(&c)
		assert.False(t, res.Valid)

		fields := func(list []ValidationError) []string {
			var out []string
			for _, e := range list {
				out = append(out, e.Field)
			}
			return out
		}
		assert.ElementsMatch(t, []string{"server.allowed_origins[0]", "builder.autosave", "export.base_url"}, fields(res.Errors))
		assert.Contains(t, fields(res.Warnings), "server.port")
		assert.Contains(t, fields(res.Warnings), "storage.driver")
		assert.Contains(t, res.String(), "Validation errors:")
		assert.Contains(t, res.String(), "Validation warnings:")
	})
}
