// Package export writes kits to files: a standalone HTML page, the JSON wire
// format or YAML.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/renderer"
	"github.com/conneroisu/mediakit/internal/types"
)

// Exporter implements adapters.Exporter by writing files under a directory.
type Exporter struct {
	dir      string
	baseURL  string
	title    string
	renderer *renderer.ComponentRenderer
	logger   logging.Logger
	now      func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithTitle sets the title of exported HTML pages.
func WithTitle(title string) Option {
	return func(e *Exporter) { e.title = title }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates dir if needed and returns an exporter writing there. Result
// URLs are baseURL joined with the file name, or the file path when baseURL
// is empty.
func New(dir, baseURL string, r *renderer.ComponentRenderer, opts ...Option) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	e := &Exporter{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		title:    "Media Kit",
		renderer: r,
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("export")
	return e, nil
}

// Formats lists the formats Export can write.
func Formats() []types.ExportFormat {
	return []types.ExportFormat{types.ExportHTML, types.ExportJSON, types.ExportYAML}
}

// Encode renders doc in format.
func (e *Exporter) Encode(ctx context.Context, doc types.Document, format types.ExportFormat) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case types.ExportHTML:
		if err := e.renderer.RenderPage(ctx, &buf, e.title, doc); err != nil {
			return nil, err
		}
	case types.ExportJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
	case types.ExportYAML:
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		var tree any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, err
		}
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, errors.NewAdapterError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("export format %q is not supported", format), nil)
	}
	return buf.Bytes(), nil
}

// Export writes doc to a new file and returns where it can be fetched.
func (e *Exporter) Export(ctx context.Context, doc types.Document, format types.ExportFormat) (types.ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return types.ExportResult{}, errors.NewAdapterError(errors.ErrCodeExportFailed, "export cancelled", err)
	}
	data, err := e.Encode(ctx, doc, format)
	if err != nil {
		if errors.IsAdapter(err) {
			return types.ExportResult{}, err
		}
		return types.ExportResult{}, errors.NewAdapterError(errors.ErrCodeExportFailed, "encode "+string(format), err)
	}

	name := fmt.Sprintf("mediakit-%s-%s.%s", e.now().UTC().Format("20060102-150405"), uuid.NewString()[:8], format)
	if err := writeFile(e.dir, name, data); err != nil {
		return types.ExportResult{}, errors.NewAdapterError(errors.ErrCodeExportFailed, "write "+name, err)
	}
	e.logger.Info(ctx, "Exported kit", "format", format, "file", name, "bytes", len(data))

	url := filepath.Join(e.dir, name)
	if e.baseURL != "" {
		url = e.baseURL + "/" + name
	}
	return types.ExportResult{URL: url, Filename: name}, nil
}

// writeFile writes through a temp file so readers never see a partial export.
func writeFile(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}
