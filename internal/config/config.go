// Package config loads mediakit settings with Viper from a YAML file,
// MEDIAKIT_* environment variables and command-line flags.
//
// Defaults are registered on the Viper instance before unmarshalling, so
// every key can be overridden by environment alone, e.g.
// MEDIAKIT_SERVER_PORT=9000 or MEDIAKIT_STORAGE_DRIVER=sqlite.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "MEDIAKIT"

type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Builder     BuilderConfig     `mapstructure:"builder" yaml:"builder"`
	Templates   TemplatesConfig   `mapstructure:"templates" yaml:"templates"`
	Components  ComponentsConfig  `mapstructure:"components" yaml:"components"`
	Export      ExportConfig      `mapstructure:"export" yaml:"export"`
	Entitlement EntitlementConfig `mapstructure:"entitlement" yaml:"entitlement"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	Environment     string        `mapstructure:"environment" yaml:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	// Driver is one of memory, file, sqlite, postgres, mysql or mongo.
	Driver     string `mapstructure:"driver" yaml:"driver"`
	Dir        string `mapstructure:"dir" yaml:"dir"`
	DSN        string `mapstructure:"dsn" yaml:"dsn"`
	Database   string `mapstructure:"database" yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

type BuilderConfig struct {
	MaxUndo  int             `mapstructure:"max_undo" yaml:"max_undo"`
	Theme    string          `mapstructure:"theme" yaml:"theme"`
	KitID    string          `mapstructure:"kit_id" yaml:"kit_id"`
	Features map[string]bool `mapstructure:"features" yaml:"features"`
	// Autosave is a cron schedule such as "@every 30s". Empty disables it.
	Autosave string `mapstructure:"autosave" yaml:"autosave"`
}

type TemplatesConfig struct {
	Dir      string        `mapstructure:"dir" yaml:"dir"`
	Watch    bool          `mapstructure:"watch" yaml:"watch"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type ComponentsConfig struct {
	// ManifestDir holds extra component definitions (*.yaml).
	ManifestDir string `mapstructure:"manifest_dir" yaml:"manifest_dir"`
}

type ExportConfig struct {
	Dir     string `mapstructure:"dir" yaml:"dir"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Title   string `mapstructure:"title" yaml:"title"`
}

type EntitlementConfig struct {
	// Tier is free or premium.
	Tier string `mapstructure:"tier" yaml:"tier"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	// Dir, when set, also writes logs to a file there.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

var defaults = map[string]any{
	"server.host":             "localhost",
	"server.port":             8080,
	"server.allowed_origins":  []string{},
	"server.environment":      "development",
	"server.shutdown_timeout": 10 * time.Second,
	"storage.driver":          "file",
	"storage.dir":             ".mediakit/kits",
	"storage.dsn":             "",
	"storage.database":        "mediakit",
	"storage.collection":      "kits",
	"builder.max_undo":        20,
	"builder.theme":           "",
	"builder.kit_id":          "",
	"builder.autosave":        "",
	"templates.dir":           "templates",
	"templates.watch":         false,
	"templates.debounce":      300 * time.Millisecond,
	"components.manifest_dir": "",
	"export.dir":              ".mediakit/exports",
	"export.base_url":         "",
	"export.title":            "Media Kit",
	"entitlement.tier":        "free",
	"logging.level":           "info",
	"logging.format":          "text",
	"logging.dir":             "",
}

// SetDefaults registers every default on v. Registering them also makes the
// keys visible to AutomaticEnv during Unmarshal.
func SetDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// BindEnv enables MEDIAKIT_SECTION_KEY overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the global Viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom applies defaults to v, unmarshals and validates.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Origins from the environment arrive comma separated.
	config.Server.AllowedOrigins = splitList(strings.Join(config.Server.AllowedOrigins, ","))
	config.Storage.Driver = strings.ToLower(strings.TrimSpace(config.Storage.Driver))
	config.Entitlement.Tier = strings.ToLower(strings.TrimSpace(config.Entitlement.Tier))

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var (
	storageDrivers = []string{"memory", "file", "sqlite", "postgres", "mysql", "mongo"}
	tiers          = []string{"free", "premium"}
)

// validateConfig rejects settings that cannot work.
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateStorageConfig(&config.Storage); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	if config.Builder.MaxUndo < 1 {
		return fmt.Errorf("builder config: max_undo must be at least 1, got %d", config.Builder.MaxUndo)
	}
	for key, path := range map[string]string{
		"templates.dir":           config.Templates.Dir,
		"components.manifest_dir": config.Components.ManifestDir,
		"export.dir":              config.Export.Dir,
		"logging.dir":             config.Logging.Dir,
	} {
		if path == "" {
			continue
		}
		if err := validatePath(path); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if config.Templates.Watch && config.Templates.Dir == "" {
		return fmt.Errorf("templates config: watch needs a template dir")
	}
	if config.Templates.Debounce < 0 {
		return fmt.Errorf("templates config: negative debounce %s", config.Templates.Debounce)
	}
	if !contains(tiers, config.Entitlement.Tier) {
		return fmt.Errorf("entitlement config: unknown tier %q", config.Entitlement.Tier)
	}
	return nil
}

func validateServerConfig(config *ServerConfig) error {
	// Port 0 lets the system pick one, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}
	if config.Host != "" {
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}
	if config.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown_timeout %s", config.ShutdownTimeout)
	}
	return nil
}

func validateStorageConfig(config *StorageConfig) error {
	if !contains(storageDrivers, config.Driver) {
		return fmt.Errorf("unknown driver %q (want one of %s)", config.Driver, strings.Join(storageDrivers, ", "))
	}
	switch config.Driver {
	case "file":
		if config.Dir == "" {
			return fmt.Errorf("file driver needs storage.dir")
		}
		return validatePath(config.Dir)
	case "postgres", "mysql", "mongo":
		if config.DSN == "" {
			return fmt.Errorf("%s driver needs storage.dsn", config.Driver)
		}
	}
	return nil
}

var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	for _, char := range dangerousChars[:len(dangerousChars)-1] {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
