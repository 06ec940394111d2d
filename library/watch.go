package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the overdue sweep every day at midnight.
const DefaultSweepSchedule = "@daily"

// OverdueWatcher runs SweepOverdue on a cron schedule.
type OverdueWatcher struct {
	cron   *cron.Cron
	mgr    *LibraryManager
	logger *slog.Logger
}

// NewOverdueWatcher schedules sweeps of mgr according to schedule, a standard
// five-field cron expression or a descriptor such as "@hourly".
func NewOverdueWatcher(mgr *LibraryManager, schedule string, logger *slog.Logger) (*OverdueWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &OverdueWatcher{cron: cron.New(), mgr: mgr, logger: logger}
	if _, err := w.cron.AddFunc(schedule, w.sweep); err != nil {
		return nil, fmt.Errorf("schedule overdue sweep %q: %w", schedule, err)
	}
	return w, nil
}

// sweep reloads first so loans made by other processes against the same
// database are seen.
func (w *OverdueWatcher) sweep() {
	if err := w.mgr.Reload(context.Background()); err != nil {
		w.logger.Error("overdue sweep reload failed", "error", err)
	}
	overdue := w.mgr.SweepOverdue()
	w.logger.Info("overdue sweep finished", "overdue", len(overdue))
}

// Start runs the scheduler in its own goroutine. The first sweep happens
// immediately.
func (w *OverdueWatcher) Start() {
	w.sweep()
	w.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (w *OverdueWatcher) Stop() {
	<-w.cron.Stop().Done()
}
