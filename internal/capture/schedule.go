package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "monthcal/internal/log"
)

// CaptureFunc performs one capture. It is CaptureCalendarPNG in production.
type CaptureFunc func(ctx context.Context, opts Options) error

// Scheduler runs captures on a cron schedule until its context ends.
type Scheduler struct {
	cron    *cron.Cron
	opts    Options
	capture CaptureFunc
}

// NewScheduler validates spec (standard 5-field cron syntax) and prepares
// a scheduler. Nothing runs before Start.
func NewScheduler(spec string, opts Options, fn CaptureFunc) (*Scheduler, error) {
	if fn == nil {
		fn = CaptureCalendarPNG
	}
	s := &Scheduler{
		cron:    cron.New(),
		opts:    opts,
		capture: fn,
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("capture: invalid cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule in the background and stops it when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	appLog.Info("capture schedule started", "entries", len(s.cron.Entries()))
	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		appLog.Info("capture schedule stopped")
	}()
}

// RunNow performs one capture outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	start := time.Now()
	err := s.capture(ctx, s.opts)
	if err != nil {
		appLog.Error("capture failed", err, "url", s.opts.URL)
		return err
	}
	appLog.Info("capture written", "output", s.opts.OutputPath, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Scheduler) runOnce() {
	_ = s.RunNow(context.Background())
}
