package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/mediakit/internal/config"
	"github.com/conneroisu/mediakit/internal/errors"
)

// ConfigFileName is the project configuration file written by init and
// searched for by the CLI.
const ConfigFileName = ".mediakit.yml"

// InitService creates a mediakit project directory.
type InitService struct{}

// NewInitService creates a new initialization service
func NewInitService() *InitService {
	return &InitService{}
}

// InitOptions contains options for project initialization
type InitOptions struct {
	ProjectDir string
	// Driver is the storage driver written to the config. Empty means file.
	Driver string
	// Example adds a sample template and component manifest.
	Example bool
	// Force overwrites an existing config file.
	Force bool
}

// InitProject writes the config file and creates the directories it names.
func (s *InitService) InitProject(opts InitOptions) (*config.Config, error) {
	if err := os.MkdirAll(opts.ProjectDir, 0o755); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}

	cfgPath := filepath.Join(opts.ProjectDir, ConfigFileName)
	if _, err := os.Stat(cfgPath); err == nil && !opts.Force {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			cfgPath+" already exists; use --force to overwrite").WithContext("path", cfgPath)
	}

	v := viper.New()
	if opts.Driver != "" {
		v.Set("storage.driver", opts.Driver)
	}
	if opts.Example {
		v.Set("components.manifest_dir", "components")
	}
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, err
	}

	if err := s.writeConfigToFile(cfg, cfgPath); err != nil {
		return nil, err
	}
	if err := s.createDirectoryStructure(opts.ProjectDir, cfg); err != nil {
		return nil, err
	}
	if opts.Example {
		if err := s.createExamples(opts.ProjectDir, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (s *InitService) writeConfigToFile(cfg *config.Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	header := []byte("# mediakit configuration. Every key can be overridden with MEDIAKIT_<SECTION>_<KEY>.\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (s *InitService) createDirectoryStructure(root string, cfg *config.Config) error {
	dirs := []string{cfg.Templates.Dir, cfg.Export.Dir}
	if cfg.Storage.Driver == "file" || cfg.Storage.Driver == "sqlite" {
		dirs = append(dirs, cfg.Storage.Dir)
	}
	if cfg.Components.ManifestDir != "" {
		dirs = append(dirs, cfg.Components.ManifestDir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

const exampleTemplate = `name: workshop-host
title: Workshop Host
description: A one-page kit for hands-on workshop facilitators.
category: speaking
sections:
  - id: header
    type: header
    layout: full-width
    components:
      - id: hero
        type: hero
        content:
          name: Your Name
          title: Workshop facilitator
  - id: offer
    type: content
    layout: two-column
    components:
      column_1:
        - id: bio
          type: biography
          content:
            text: What participants leave with, in two sentences.
      column_2:
        - id: quote
          type: press-quote
          content:
            quote: The most practical session of the conference.
            outlet: Conference Weekly
`

const exampleManifest = `components:
  - type: press-quote
    title: Press Quote
    description: A short quote from a publication.
    category: social-proof
    icon: quote
    contentSchema:
      fields:
        - name: quote
          type: text
          required: true
        - name: outlet
          type: string
          default: Daily News
    defaultContent:
      quote: A remarkable speaker.
`

func (s *InitService) createExamples(root string, cfg *config.Config) error {
	files := map[string]string{
		filepath.Join(cfg.Templates.Dir, "workshop-host.yaml"):     exampleTemplate,
		filepath.Join(cfg.Components.ManifestDir, "press.yaml"): exampleManifest,
	}
	for rel, content := range files {
		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, rel)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}
