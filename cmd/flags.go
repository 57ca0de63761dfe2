package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var outputFormats = []string{"table", "json", "yaml"}

// OutputFlags are the flags of commands that print listings.
type OutputFlags struct {
	Format string
}

// AddOutputFlags adds -o/--output with validation.
func AddOutputFlags(cmd *cobra.Command) *OutputFlags {
	flags := &OutputFlags{}
	cmd.Flags().StringVarP(&flags.Format, "output", "o", "table", "Output format (table|json|yaml)")
	AddFlagValidation(cmd, "output", func(format string) error {
		return ValidateFormatWithSuggestion(format, outputFormats)
	})
	return flags
}

// Write prints v as JSON or YAML, or calls table with a tabwriter.
func (f *OutputFlags) Write(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Through JSON so custom marshalers and json tags shape the output.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var tree any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return ValidateFormatWithSuggestion(f.Format, outputFormats)
	}
}

// ValidateFormatWithSuggestion rejects a format that is not in valid and
// suggests the closest one by prefix.
func ValidateFormatWithSuggestion(format string, valid []string) error {
	for _, v := range valid {
		if format == v {
			return nil
		}
	}
	for _, v := range valid {
		if format != "" && strings.HasPrefix(v, strings.ToLower(format)) {
			return fmt.Errorf("invalid format %q, did you mean %q?", format, v)
		}
	}
	return fmt.Errorf("invalid format %q, must be one of: %s", format, strings.Join(valid, ", "))
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort checks a port flag. Zero asks the system for a free port.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// ParseContent parses component content given inline as JSON or as
// @file.json / @file.yaml.
func ParseContent(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}

	var content map[string]any
	if filename, ok := strings.CutPrefix(raw, "@"); ok {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read content file %s: %w", filename, err)
		}
		if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
			if err := yaml.Unmarshal(data, &content); err != nil {
				return nil, fmt.Errorf("invalid YAML in content file %s: %w", filename, err)
			}
			return content, nil
		}
		if err := json.Unmarshal(data, &content); err != nil {
			return nil, fmt.Errorf("invalid JSON in content file %s: %w", filename, err)
		}
		return content, nil
	}

	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("invalid JSON in content: %w", err)
	}
	return content, nil
}
