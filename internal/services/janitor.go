package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// AudioPruner removes audio files older than a cutoff.
type AudioPruner interface {
	PruneAudio(ctx context.Context, cutoff time.Time) (int, error)
}

// AudioJanitor periodically removes generated audio past its retention.
type AudioJanitor struct {
	pruner    AudioPruner
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

// parseCronExpr tries 6-field (with seconds) then 5-field (standard)
// parsing. Descriptors such as "@hourly" are accepted by both.
func parseCronExpr(expr string) (cron.Schedule, error) {
	parser6 := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser6.Parse(expr)
	if err == nil {
		return sched, nil
	}
	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser5.Parse(expr)
}

// NewAudioJanitor validates schedule and registers the sweep. Call Start
// to begin running it.
func NewAudioJanitor(pruner AudioPruner, retention time.Duration, schedule string) (*AudioJanitor, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("audio retention must be positive, got %s", retention)
	}
	sched, err := parseCronExpr(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse cleanup schedule %q: %w", schedule, err)
	}
	j := &AudioJanitor{
		pruner:    pruner,
		retention: retention,
		cron:      cron.New(),
		now:       time.Now,
	}
	j.cron.Schedule(sched, cron.FuncJob(func() {
		j.Sweep(context.Background())
	}))
	slog.Info("janitor: registered audio cleanup", "cron", schedule, "retention", retention)
	return j, nil
}

// Sweep removes audio older than the retention once.
func (j *AudioJanitor) Sweep(ctx context.Context) int {
	n, err := j.pruner.PruneAudio(ctx, j.now().Add(-j.retention))
	if err != nil {
		slog.Warn("janitor: audio cleanup failed", "removed", n, "err", err)
		return n
	}
	if n > 0 {
		slog.Info("janitor: removed expired audio", "count", n)
	}
	return n
}

// Start runs the schedule until ctx is done, then waits for a running
// sweep to finish.
func (j *AudioJanitor) Start(ctx context.Context) {
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
}
