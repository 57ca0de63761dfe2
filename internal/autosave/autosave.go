// Package autosave saves dirty kits on a cron schedule.
package autosave

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/logging"
)

// Saver is satisfied by controls.Controls.
type Saver interface {
	SaveIfDirty(ctx context.Context) (bool, error)
}

// Scheduler runs Saver.SaveIfDirty on a schedule such as "@every 30s" or a
// standard five-field cron expression.
type Scheduler struct {
	schedule string
	saver    Saver
	logger   logging.Logger

	mu    sync.Mutex
	saves int
}

// New validates schedule and returns a scheduler.
func New(schedule string, saver Saver, logger logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid autosave schedule %q: %v", schedule, err))
	}
	return &Scheduler{schedule: schedule, saver: saver, logger: logger.WithComponent("autosave")}, nil
}

// Saves returns how many autosaves have completed.
func (s *Scheduler) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Tick runs one autosave attempt.
func (s *Scheduler) Tick(ctx context.Context) {
	saved, err := s.saver.SaveIfDirty(ctx)
	switch {
	case err != nil:
		s.logger.Warn(ctx, err, "Autosave failed")
	case saved:
		s.mu.Lock()
		s.saves++
		s.mu.Unlock()
		s.logger.Debug(ctx, "Autosaved kit")
	}
}

// Run schedules ticks until ctx is cancelled, then waits for a running tick
// to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{ctx: ctx, l: s.logger})))
	if _, err := c.AddFunc(s.schedule, func() { s.Tick(ctx) }); err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, err.Error())
	}
	s.logger.Info(ctx, "Autosave scheduled", "schedule", s.schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	ctx context.Context
	l   logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(c.ctx, msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(c.ctx, err, msg, keysAndValues...)
}
