package registry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest declares extra component types without Go code.
type Manifest struct {
	Components []Definition `yaml:"components"`
}

// LoadManifest registers every definition in a YAML manifest and returns the
// registered types.
func (r *Registry) LoadManifest(reader io.Reader) ([]string, error) {
	var m Manifest
	dec := yaml.NewDecoder(reader)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	var registered []string
	for _, def := range m.Components {
		if err := r.Register(def.Type, def); err != nil {
			return registered, err
		}
		registered = append(registered, def.Type)
	}
	return registered, nil
}

// LoadManifestDir loads every *.yaml / *.yml manifest in dir in name order.
// A missing directory is not an error.
func (r *Registry) LoadManifestDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var all []string
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return all, fmt.Errorf("open manifest %s: %w", path, err)
		}
		types, err := r.LoadManifest(f)
		f.Close()
		all = append(all, types...)
		if err != nil {
			return all, fmt.Errorf("manifest %s: %w", filepath.Base(path), err)
		}
	}
	return all, nil
}
