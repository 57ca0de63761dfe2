package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/mediakit/internal/config"
	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/services"
	"github.com/conneroisu/mediakit/internal/types"
)

var validateCmd = &cobra.Command{
	Use:     "validate [kit files...]",
	Aliases: []string{"v"},
	Short:   "Validate the configuration or kit documents",
	Long: `Without arguments, check the configuration and print every error and
warning with a hint.

With arguments, check each kit document against the component registry. A
file may hold a document ({"sections": [...]}) or a stored kit record
({"id": ..., "state": {...}}), as JSON or YAML.

Examples:
  mediakit validate
  mediakit validate .mediakit/kits/kit_123.json exports/*.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := loadSession()
	if err != nil {
		return err
	}
	defer closeLog()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return reportConfig(out, cfg)
	}

	reg, err := services.NewRegistry(eventbus.New(logger), cfg.Components.ManifestDir, logger)
	if err != nil {
		return err
	}
	failed := 0
	for _, path := range args {
		problems, err := validateKitFile(reg, path)
		if err != nil {
			return err
		}
		if len(problems) == 0 {
			fmt.Fprintf(out, "✓ %s\n", path)
			continue
		}
		failed++
		fmt.Fprintf(out, "✗ %s\n", path)
		for _, p := range problems {
			fmt.Fprintf(out, "  • %s\n", p)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d kit files are invalid", failed, len(args))
	}
	return nil
}

func reportConfig(out io.Writer, cfg *config.Config) error {
	result := config.ValidateConfigWithDetails(cfg)
	if s := result.String(); s != "" {
		fmt.Fprint(out, s)
	}
	if result.HasErrors() {
		return fmt.Errorf("configuration has %d errors", len(result.Errors))
	}
	fmt.Fprintln(out, "Configuration is valid")
	return nil
}

// decodeKitFile reads a document or a stored record from JSON or YAML.
func decodeKitFile(path string) (types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Document{}, err
	}
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return types.Document{}, fmt.Errorf("%s: %w", path, err)
		}
		if data, err = json.Marshal(tree); err != nil {
			return types.Document{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	var envelope struct {
		State *types.Document `json:"state"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return types.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	if envelope.State != nil {
		return *envelope.State, nil
	}
	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return types.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// validateKitFile returns one line per problem in the document at path.
func validateKitFile(reg *registry.Registry, path string) ([]string, error) {
	doc, err := decodeKitFile(path)
	if err != nil {
		return nil, err
	}

	var problems []string
	for _, id := range doc.DuplicateIDs() {
		problems = append(problems, fmt.Sprintf("id %q is used more than once", id))
	}
	for _, s := range doc.Sections {
		if !s.Layout.Valid() {
			problems = append(problems, fmt.Sprintf("section %s: unknown layout %q", s.ID, s.Layout))
		}
	}
	for _, c := range doc.Components() {
		err := reg.ValidateComponent(c)
		if err == nil {
			continue
		}
		issues := errors.IssuesOf(err)
		if len(issues) == 0 {
			problems = append(problems, fmt.Sprintf("%s (%s): %v", c.ID, c.Type, err))
		}
		for _, issue := range issues {
			problems = append(problems, fmt.Sprintf("%s (%s): %s", c.ID, c.Type, issue))
		}
	}
	return problems, nil
}
