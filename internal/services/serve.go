package services

import (
	"context"

	"github.com/conneroisu/mediakit/internal/config"
	"github.com/conneroisu/mediakit/internal/logging"
	"github.com/conneroisu/mediakit/internal/server"
)

// ServeService runs the editing server for one kit.
type ServeService struct {
	config *config.Config
	logger logging.Logger
}

// NewServeService creates a new serve service
func NewServeService(cfg *config.Config, logger logging.Logger) *ServeService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ServeService{config: cfg, logger: logger}
}

// NewServer wires the HTTP server to an open kit. The kit's background jobs
// run alongside the server.
func NewServer(k *Kit) *server.Server {
	return server.New(k.Config.Server, server.Deps{
		Builder:   k.Builder,
		Canvas:    k.Canvas,
		Panel:     k.Panel,
		Palette:   k.Palette,
		Controls:  k.Controls,
		Templates: k.Templates,
		Adapter:   k.Adapter,
		Renderer:  k.Renderer,
		Bus:       k.Bus,
		Title:     k.Config.Export.Title,
	}, server.WithLogger(k.Logger), server.WithJob(k.Run))
}

// Serve opens the kit and serves it until ctx is cancelled. A dirty kit is
// saved once more on the way out.
func (s *ServeService) Serve(ctx context.Context) error {
	k, err := OpenKit(ctx, s.config, s.logger)
	if err != nil {
		return err
	}
	defer k.Close()

	srv := NewServer(k)
	runErr := srv.Run(ctx)

	if saved, err := k.Controls.SaveIfDirty(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error(ctx, err, "Final save failed", "kit", k.Builder.KitID())
	} else if saved {
		s.logger.Info(ctx, "Saved kit on shutdown", "kit", k.Builder.KitID())
	}
	return runErr
}
