package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, list []ValidationError) {
		if len(list) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, err := range list {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}
	write("Validation errors", vr.Errors)
	write("Validation warnings", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) fail(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// ValidateConfigWithDetails reports every problem with config, including
// warnings Load lets through.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateServerConfigDetails(&config.Server, result)
	validateStorageConfigDetails(&config.Storage, result)
	validateBuilderConfigDetails(&config.Builder, result)
	validateTemplatesConfigDetails(&config.Templates, result)
	validateExportConfigDetails(&config.Export, result)

	if !contains(tiers, config.Entitlement.Tier) {
		result.fail("entitlement.tier", config.Entitlement.Tier, "unknown tier",
			"Use 'free' or 'premium'")
	}
	if config.Components.ManifestDir != "" && !pathExists(config.Components.ManifestDir) {
		result.warn("components.manifest_dir", config.Components.ManifestDir, "directory does not exist",
			"Create the directory: mkdir -p "+config.Components.ManifestDir,
			"Remove the setting to use built-in components only")
	}

	result.Valid = !result.HasErrors()
	return result
}

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.fail("server.port", config.Port, fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Port 0 allows system to assign an available port")
	} else if config.Port > 0 && config.Port < 1024 {
		result.warn("server.port", config.Port, "port below 1024 requires elevated privileges",
			"Consider using a port above 1024")
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.fail("server.host", config.Host, err.Error(),
				"Use 'localhost' for local editing",
				"Use '0.0.0.0' to bind to all interfaces")
		}
	}

	validEnvs := []string{"development", "production", "testing"}
	if config.Environment != "" && !contains(validEnvs, config.Environment) {
		result.warn("server.environment", config.Environment, "unknown environment type",
			"Use one of: "+strings.Join(validEnvs, ", "))
	}

	for i, origin := range config.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			result.fail(fmt.Sprintf("server.allowed_origins[%d]", i), origin, "origin must be scheme://host[:port]",
				"Example: https://kits.example.com")
		}
	}
	if config.Environment == "production" && len(config.AllowedOrigins) == 0 {
		result.warn("server.allowed_origins", config.AllowedOrigins, "no allowed origins in production; only same-host websocket clients can connect")
	}
}

func validateStorageConfigDetails(config *StorageConfig, result *ValidationResult) {
	if err := validateStorageConfig(config); err != nil {
		result.fail("storage", config.Driver, err.Error(),
			"Drivers: "+strings.Join(storageDrivers, ", "))
		return
	}
	if config.Driver == "memory" {
		result.warn("storage.driver", config.Driver, "kits are lost when the process exits",
			"Use 'file' or 'sqlite' to keep kits between runs")
	}
}

func validateBuilderConfigDetails(config *BuilderConfig, result *ValidationResult) {
	if config.MaxUndo < 1 {
		result.fail("builder.max_undo", config.MaxUndo, "must be at least 1")
	} else if config.MaxUndo > 200 {
		result.warn("builder.max_undo", config.MaxUndo, "every undo step keeps a full copy of the kit",
			"Values around 20 are usually enough")
	}
	if config.Autosave != "" {
		if _, err := cron.ParseStandard(config.Autosave); err != nil {
			result.fail("builder.autosave", config.Autosave, err.Error(),
				"Use a cron expression or a descriptor such as '@every 30s'")
		}
	}
}

func validateTemplatesConfigDetails(config *TemplatesConfig, result *ValidationResult) {
	if config.Dir != "" {
		if err := validatePath(config.Dir); err != nil {
			result.fail("templates.dir", config.Dir, err.Error(),
				"Use a relative path such as 'templates'")
		} else if !pathExists(config.Dir) {
			result.warn("templates.dir", config.Dir, "directory does not exist; only built-in templates are available")
		}
	}
	if config.Watch && config.Dir == "" {
		result.fail("templates.watch", config.Watch, "watching needs templates.dir")
	}
}

func validateExportConfigDetails(config *ExportConfig, result *ValidationResult) {
	if config.Dir == "" {
		result.fail("export.dir", config.Dir, "export directory cannot be empty")
	} else if err := validatePath(config.Dir); err != nil {
		result.fail("export.dir", config.Dir, err.Error())
	}
	if config.BaseURL != "" {
		if u, err := url.Parse(config.BaseURL); err != nil || u.Scheme == "" {
			result.fail("export.base_url", config.BaseURL, "must be an absolute URL",
				"Example: https://cdn.example.com/kits")
		}
	}
}

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}
	if net.ParseIP(host) != nil || host == "localhost" {
		return nil
	}
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}
	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
