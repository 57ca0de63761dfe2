// Package services assembles the editing session from configuration and
// implements the workflows the CLI runs on top of it.
package services

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/mediakit/internal/adapters"
	"github.com/conneroisu/mediakit/internal/autosave"
	"github.com/conneroisu/mediakit/internal/builder"
	"github.com/conneroisu/mediakit/internal/canvas"
	"github.com/conneroisu/mediakit/internal/components"
	"github.com/conneroisu/mediakit/internal/config"
	"github.com/conneroisu/mediakit/internal/controls"
	"github.com/conneroisu/mediakit/internal/designpanel"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/export"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/palette"
	"github.com/conneroisu/mediakit/internal/registry"
	"github.com/conneroisu/mediakit/internal/renderer"
	"github.com/conneroisu/mediakit/internal/state"
	"github.com/conneroisu/mediakit/internal/templates"
	"github.com/conneroisu/mediakit/internal/types"
	"github.com/conneroisu/mediakit/internal/version"
)

// Kit is one fully wired editing session.
type Kit struct {
	Config *config.Config
	Logger logging.Logger

	Bus       *eventbus.Bus
	Registry  *registry.Registry
	Renderer  *renderer.ComponentRenderer
	Templates *templates.Library
	Exporter  *export.Exporter
	Adapter   *adapters.StoreAdapter
	State     *state.Manager
	Builder   *builder.Builder
	Canvas    *canvas.Canvas
	Panel     *designpanel.Panel
	Palette   *palette.Palette
	Controls  *controls.Controls
	// Autosave is nil when builder.autosave is empty.
	Autosave *autosave.Scheduler
}

// NewRegistry registers the built-in component types plus any manifests in
// manifestDir and seals the registry.
func NewRegistry(bus *eventbus.Bus, manifestDir string, logger logging.Logger) (*registry.Registry, error) {
	reg := registry.New(bus, logger)
	if err := components.RegisterBuiltins(reg); err != nil {
		return nil, err
	}
	if manifestDir != "" {
		added, err := reg.LoadManifestDir(manifestDir)
		if err != nil {
			return nil, err
		}
		if len(added) > 0 {
			logger.Info(context.Background(), "Loaded component manifests", "dir", manifestDir, "types", added)
		}
	}
	reg.Seal()
	return reg, nil
}

// StorageOptions maps the storage section onto adapter options.
func StorageOptions(cfg config.StorageConfig) adapters.StorageOptions {
	return adapters.StorageOptions{
		Driver:     cfg.Driver,
		Dir:        cfg.Dir,
		DSN:        cfg.DSN,
		Database:   cfg.Database,
		Collection: cfg.Collection,
	}
}

// OpenKit builds every component from cfg and initializes the builder.
// When builder.kit_id is set that kit is loaded as part of the start-up.
func OpenKit(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Kit, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	k := &Kit{Config: cfg, Logger: logger}
	k.Bus = eventbus.New(logger)

	var err error
	if k.Registry, err = NewRegistry(k.Bus, cfg.Components.ManifestDir, logger); err != nil {
		return nil, fmt.Errorf("component registry: %w", err)
	}
	k.Renderer = renderer.NewComponentRenderer(k.Registry, logger)

	if k.Templates, err = templates.New(cfg.Templates.Dir, k.Bus, logger); err != nil {
		return nil, err
	}
	if k.Exporter, err = export.New(cfg.Export.Dir, cfg.Export.BaseURL, k.Renderer,
		export.WithTitle(cfg.Export.Title), export.WithLogger(logger)); err != nil {
		return nil, err
	}

	if cfg.Storage.Driver == adapters.DriverSQLite && cfg.Storage.DSN == "" {
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := adapters.Open(ctx, StorageOptions(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	k.Adapter = adapters.New(store, types.Config{
		Theme:    cfg.Builder.Theme,
		Features: cfg.Builder.Features,
		KitID:    cfg.Builder.KitID,
	}, adapters.WithTemplates(k.Templates), adapters.WithExporter(k.Exporter), adapters.WithLogger(logger))

	k.State = state.NewManager(nil, state.WithMaxUndo(cfg.Builder.MaxUndo), state.WithLogger(logger))
	k.Builder = builder.New(k.Registry, k.State, k.Bus, k.Adapter,
		builder.WithLogger(logger), builder.WithVersion(version.GetVersion()))
	if err := k.Builder.Init(ctx); err != nil {
		_ = k.Adapter.Close()
		return nil, err
	}
	if id := cfg.Builder.KitID; id != "" {
		if err := k.Builder.Load(ctx, id); err != nil {
			k.Builder.Close()
			_ = k.Adapter.Close()
			return nil, fmt.Errorf("load kit %s: %w", id, err)
		}
	}

	k.Palette = palette.New(k.Registry, k.Bus, palette.Tier(cfg.Entitlement.Tier))
	k.Canvas = canvas.New(k.Builder, k.Renderer, k.Bus, logger, canvas.WithGate(k.Palette))
	k.Panel = designpanel.New(k.Builder, k.Registry, k.Bus, logger)
	k.Controls = controls.New(k.Builder, k.Bus, controls.WithLogger(logger))

	if cfg.Builder.Autosave != "" {
		if k.Autosave, err = autosave.New(cfg.Builder.Autosave, k.Controls, logger); err != nil {
			k.Close()
			return nil, err
		}
	}
	return k, nil
}

// Run runs the background jobs of the session, autosave and template
// watching, until ctx is cancelled.
func (k *Kit) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if k.Autosave != nil {
		g.Go(func() error { return k.Autosave.Run(ctx) })
	}
	if k.Config.Templates.Watch {
		g.Go(func() error { return k.Templates.Watch(ctx, k.Config.Templates.Debounce) })
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

// Close releases the session in reverse start-up order.
func (k *Kit) Close() error {
	if k.Controls != nil {
		k.Controls.Close()
	}
	if k.Panel != nil {
		k.Panel.Close()
	}
	if k.Canvas != nil {
		k.Canvas.Close()
	}
	k.Builder.Close()
	return k.Adapter.Close()
}
