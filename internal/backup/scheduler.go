package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler fires a Job on a fixed interval. Overlapping runs are not coordinated.
type Scheduler struct {
	cron   *cron.Cron
	job    *Job
	logger *zap.Logger
}

func NewScheduler(job *Job, interval time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{cron: cron.New(), job: job, logger: logger}
	spec := "@every " + interval.String()
	if _, err := s.cron.AddFunc(spec, func() { s.job.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule backup %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("backup scheduler started", zap.Time("next_run", s.Next()))
}

// Stop halts scheduling and waits for a running backup to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("backup still running at shutdown")
	}
}

// Next is the time of the next scheduled run, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
