// Package schedule triggers periodic incremental pipeline runs from a cron
// expression. An empty expression disables scheduling entirely.
package schedule

import (
	"context"

	"github.com/robfig/cron/v3"

	"canvasetl/internal/etl"
	"canvasetl/internal/observability"
	"canvasetl/pkg/errors"
)

// Scheduler runs INCREMENTAL jobs on a cron cadence. Overlap protection is
// cron's SkipIfStillRunning wrapper: a tick that fires while the previous
// run is still going is dropped, not queued.
type Scheduler struct {
	cron *cron.Cron
	log  *observability.Logger
}

// New validates the expression and builds a scheduler, or returns
// (nil, nil) when expr is empty.
func New(expr string, dispatcher *etl.Dispatcher, log *observability.Logger) (*Scheduler, error) {
	if expr == "" {
		return nil, nil
	}
	if log == nil {
		log = observability.GetDefaultLogger()
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	_, err := c.AddFunc(expr, func() {
		if _, err := dispatcher.Run(context.Background(), etl.JobIncremental); err != nil {
			log.ErrorWithFields("scheduled run failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	})
	if err != nil {
		return nil, errors.ConfigError("invalid cron expression: "+err.Error(), "schedule")
	}

	return &Scheduler{cron: c, log: log}, nil
}

// Start begins scheduling. Safe to call on a nil scheduler.
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish. Safe to
// call on a nil scheduler.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}
