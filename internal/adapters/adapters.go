// Package adapters implements the persistence and export collaborator the
// builder talks to. StoreAdapter satisfies Adapter on top of any Store
// backend: in memory, JSON files, SQL databases or MongoDB.
package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/types"
)

// Adapter is the builder's external collaborator. Every method may fail.
type Adapter interface {
	GetConfig(ctx context.Context) (types.Config, error)
	Save(ctx context.Context, payload types.SavePayload) (string, error)
	Load(ctx context.Context, id string) (types.LoadResult, error)
	ListTemplates(ctx context.Context) ([]types.Template, error)
	Export(ctx context.Context, doc types.Document, format types.ExportFormat) (types.ExportResult, error)
}

// HostHandler receives a host request such as save-requested.
type HostHandler func(ctx context.Context, kitID string)

// Notifier is implemented by adapters through which the host can ask the
// builder to save or load.
type Notifier interface {
	On(event string, handler HostHandler) (unsubscribe func())
}

// Record is one stored kit.
type Record struct {
	ID        string         `json:"id"`
	Document  types.Document `json:"state"`
	Version   string         `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Summary describes a stored kit without its document.
type Summary struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is a kit storage backend. Get returns a not-found BuilderError for
// unknown ids.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// TemplateSource lists kit templates.
type TemplateSource interface {
	List(ctx context.Context) ([]types.Template, error)
}

// Exporter renders a document to an export format.
type Exporter interface {
	Export(ctx context.Context, doc types.Document, format types.ExportFormat) (types.ExportResult, error)
}

func kitNotFound(id string) *errors.BuilderError {
	return errors.NewNotFoundError(errors.ErrCodeKitNotFound, "kit not found: "+id).WithContext("kit_id", id)
}

// StoreAdapter implements Adapter over a Store.
type StoreAdapter struct {
	*HostBridge

	store     Store
	config    types.Config
	templates TemplateSource
	exporter  Exporter
	logger    logging.Logger
	now       func() time.Time
}

// Option configures a StoreAdapter.
type Option func(*StoreAdapter)

// WithTemplates sets the template source.
func WithTemplates(src TemplateSource) Option {
	return func(a *StoreAdapter) { a.templates = src }
}

// WithExporter sets the exporter.
func WithExporter(e Exporter) Option {
	return func(a *StoreAdapter) { a.exporter = e }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(a *StoreAdapter) { a.logger = l.WithComponent("adapter") }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *StoreAdapter) { a.now = now }
}

// New creates an adapter over store returning cfg from GetConfig.
func New(store Store, cfg types.Config, opts ...Option) *StoreAdapter {
	a := &StoreAdapter{
		HostBridge: NewHostBridge(),
		store:      store,
		config:     cfg,
		logger:     logging.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the backend.
func (a *StoreAdapter) Store() Store { return a.store }

// GetConfig returns the host configuration.
func (a *StoreAdapter) GetConfig(ctx context.Context) (types.Config, error) {
	if err := ctx.Err(); err != nil {
		return types.Config{}, errors.NewAdapterError(errors.ErrCodeConfigInvalid, "config unavailable", err)
	}
	return a.config, nil
}

// Save stores payload under its id, assigning a new one when empty.
func (a *StoreAdapter) Save(ctx context.Context, payload types.SavePayload) (string, error) {
	id := payload.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := a.now()
	rec := Record{
		ID:        id,
		Document:  payload.State,
		Version:   payload.Version,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := a.store.Get(ctx, id); err == nil {
		rec.CreatedAt = existing.CreatedAt
	}
	if err := a.store.Put(ctx, rec); err != nil {
		return "", errors.NewAdapterError(errors.ErrCodeSaveFailed, "save kit "+id, err)
	}
	a.logger.Info(ctx, "Saved kit", "kit_id", id, "sections", len(payload.State.Sections))
	return id, nil
}

// Load fetches a stored kit.
func (a *StoreAdapter) Load(ctx context.Context, id string) (types.LoadResult, error) {
	rec, err := a.store.Get(ctx, id)
	if err != nil {
		return types.LoadResult{}, errors.NewAdapterError(errors.ErrCodeLoadFailed, "load kit "+id, err)
	}
	return types.LoadResult{ID: rec.ID, State: rec.Document, Version: rec.Version, Timestamp: rec.UpdatedAt}, nil
}

// ListTemplates lists the available templates.
func (a *StoreAdapter) ListTemplates(ctx context.Context) ([]types.Template, error) {
	if a.templates == nil {
		return []types.Template{}, nil
	}
	list, err := a.templates.List(ctx)
	if err != nil {
		return nil, errors.NewAdapterError(errors.ErrCodeInternalError, "list templates", err)
	}
	return list, nil
}

// Export renders doc to format.
func (a *StoreAdapter) Export(ctx context.Context, doc types.Document, format types.ExportFormat) (types.ExportResult, error) {
	if a.exporter == nil {
		return types.ExportResult{}, errors.NewAdapterError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("export to %s is not configured", format), nil)
	}
	res, err := a.exporter.Export(ctx, doc, format)
	if err != nil {
		if errors.IsAdapter(err) {
			return types.ExportResult{}, err
		}
		return types.ExportResult{}, errors.NewAdapterError(errors.ErrCodeExportFailed, "export "+string(format), err)
	}
	return res, nil
}

// Kits lists stored kits.
func (a *StoreAdapter) Kits(ctx context.Context) ([]Summary, error) {
	return a.store.List(ctx)
}

// Close releases the backend.
func (a *StoreAdapter) Close() error {
	return a.store.Close()
}
