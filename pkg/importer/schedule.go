package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule re-runs an import on a cron expression. A run still in progress
// when the next tick fires makes that tick a no-op.
type Schedule struct {
	cron   *cron.Cron
	spec   string
	logger *slog.Logger
}

// NewSchedule validates spec (standard 5-field cron or @every/@daily forms)
// and registers job. Nothing runs before Start.
func NewSchedule(ctx context.Context, spec string, job func(context.Context) (Totals, error), logger *slog.Logger) (*Schedule, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		totals, err := job(ctx)
		if err != nil {
			logger.Error("scheduled import failed", "error", err, "forms", totals.Forms)
			return
		}
		logger.Info("scheduled import done",
			"forms", totals.Forms,
			"built", totals.Built,
			"created", totals.Stats.Created,
			"changed", totals.Stats.Changed,
			"duration", time.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return nil, fmt.Errorf("import schedule %q: %w", spec, err)
	}
	return &Schedule{cron: c, spec: spec, logger: logger}, nil
}

func (s *Schedule) Start() {
	s.cron.Start()
	s.logger.Info("import schedule started", "spec", s.spec)
}

// Stop prevents new runs and waits for a running one to return.
func (s *Schedule) Stop() {
	<-s.cron.Stop().Done()
}
