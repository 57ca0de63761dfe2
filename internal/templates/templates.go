// Package templates is the kit template library: built-in templates embedded
// in the binary plus any found in a directory, optionally hot reloaded.
package templates

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/types"
	"github.com/conneroisu/mediakit/internal/watcher"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Library holds the available templates. Directory templates replace
// built-in ones of the same name.
type Library struct {
	mu      sync.RWMutex
	builtin []types.Template
	loaded  []types.Template
	dir     string

	bus    *eventbus.Bus
	logger logging.Logger
}

// New loads the built-in templates and, when dir is not empty, every
// template file in dir and its subdirectories. Hidden directories are
// skipped. A missing dir is not an error.
func New(dir string, bus *eventbus.Bus, logger logging.Logger) (*Library, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	builtin, err := loadFS(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("built-in templates: %w", err)
	}
	l := &Library{builtin: builtin, dir: dir, bus: bus, logger: logger.WithComponent("templates")}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir returns the template directory, empty when only built-ins are used.
func (l *Library) Dir() string { return l.dir }

func (l *Library) load() error {
	if l.dir == "" {
		return nil
	}
	loaded, err := loadFS(os.DirFS(l.dir), ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			loaded = nil
		} else {
			return fmt.Errorf("templates in %s: %w", l.dir, err)
		}
	}
	l.mu.Lock()
	l.loaded = loaded
	l.mu.Unlock()
	return nil
}

// Reload re-reads the template directory and emits templates-reloaded. On
// error the previous templates stay in place.
func (l *Library) Reload(ctx context.Context) error {
	if err := l.load(); err != nil {
		l.logger.Error(ctx, err, "Template reload failed", "dir", l.dir)
		return err
	}
	n := len(l.all())
	l.logger.Info(ctx, "Templates reloaded", "dir", l.dir, "count", n)
	if l.bus != nil {
		l.bus.Emit(ctx, eventbus.TemplatesReloaded, eventbus.TemplatePayload{Count: n})
	}
	return nil
}

func (l *Library) all() []types.Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	byName := make(map[string]types.Template, len(l.builtin)+len(l.loaded))
	for _, t := range l.builtin {
		byName[t.Name] = t
	}
	for _, t := range l.loaded {
		byName[t.Name] = t
	}
	out := make([]types.Template, 0, len(byName))
	for _, t := range byName {
		out = append(out, cloneTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func cloneTemplate(t types.Template) types.Template {
	t.Sections = types.CloneSections(t.Sections)
	return t
}

// List returns every template sorted by name. It implements
// adapters.TemplateSource.
func (l *Library) List(context.Context) ([]types.Template, error) {
	return l.all(), nil
}

// Get returns the named template.
func (l *Library) Get(name string) (types.Template, error) {
	for _, t := range l.all() {
		if t.Name == name {
			return t, nil
		}
	}
	return types.Template{}, errors.NewNotFoundError(errors.ErrCodeTemplateNotFound, "template not found: "+name)
}

// Filter returns the templates in category (any when empty), leaving out
// premium templates unless allowPremium is set.
func (l *Library) Filter(category string, allowPremium bool) []types.Template {
	var out []types.Template
	for _, t := range l.all() {
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		if t.Premium && !allowPremium {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Watch reloads the library whenever a template file under the directory
// changes, until ctx is cancelled. Subdirectories created after Watch starts
// are not watched.
func (l *Library) Watch(ctx context.Context, debounce time.Duration) error {
	if l.dir == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "template watching needs a template directory")
	}
	w, err := watcher.NewFileWatcher(debounce, l.logger)
	if err != nil {
		return err
	}
	w.AddFilter(watcher.TemplateFilter)
	w.AddFilter(watcher.NoHiddenFilter)
	w.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		l.logger.Debug(ctx, "Template files changed", "files", len(events))
		return l.Reload(ctx)
	})
	if err := w.AddRecursive(l.dir); err != nil {
		_ = w.Stop()
		return err
	}
	l.logger.Info(ctx, "Watching templates", "dir", l.dir)
	return w.Run(ctx)
}

func loadFS(fsys fs.FS, dir string) ([]types.Template, error) {
	var out []types.Template
	seen := make(map[string]string)
	err := fs.WalkDir(fsys, dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if path != dir && strings.HasPrefix(e.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !watcher.TemplateFilter(e.Name()) || !watcher.NoHiddenFilter(e.Name()) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		t, err := Decode(data, strings.ToLower(filepath.Ext(e.Name())))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if prev, dup := seen[t.Name]; dup {
			return fmt.Errorf("%s: template %q already defined in %s", path, t.Name, prev)
		}
		seen[t.Name] = path
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decode parses one template. ext selects the syntax: ".json", or YAML for
// anything else. YAML templates use the same shape as the JSON wire format.
func Decode(data []byte, ext string) (types.Template, error) {
	raw := data
	if ext != ".json" {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return types.Template{}, fmt.Errorf("decode yaml: %w", err)
		}
		var err error
		if raw, err = json.Marshal(doc); err != nil {
			return types.Template{}, fmt.Errorf("convert yaml: %w", err)
		}
	}
	var t types.Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return types.Template{}, fmt.Errorf("decode template: %w", err)
	}
	if err := check(t); err != nil {
		return types.Template{}, err
	}
	return t, nil
}

func check(t types.Template) error {
	var issues []errors.Issue
	if t.Name == "" {
		issues = append(issues, errors.Issue{Path: "name", Message: "is required"})
	}
	if len(t.Sections) == 0 {
		issues = append(issues, errors.Issue{Path: "sections", Message: "must not be empty"})
	}
	for i, s := range t.Sections {
		if !s.Layout.Valid() {
			issues = append(issues, errors.Issue{Path: fmt.Sprintf("sections[%d].layout", i), Message: fmt.Sprintf("unknown layout %q", s.Layout)})
		}
		for _, col := range s.ColumnKeys() {
			items, _ := s.List(col)
			for j, c := range items {
				if c.Type == "" {
					issues = append(issues, errors.Issue{Path: fmt.Sprintf("sections[%d].components[%d].type", i, j), Message: "is required"})
				}
			}
		}
	}
	if len(issues) > 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidSchema, "invalid template "+t.Name, issues...)
	}
	return nil
}
