package tasks

import (
	"context"
	"time"

	"github.com/edgard/groupmate/internal/config"
	"github.com/edgard/groupmate/internal/dice"
	"github.com/edgard/groupmate/internal/store"
)

// ScheduledTaskFunc is the signature of every task. The context is
// cancelled on shutdown.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the available tasks keyed by their config name.
// Store maintenance is only registered when the store supports it.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Dice == nil {
		deps.Dice = dice.NewTimeSeeded()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}

	tasks := map[string]ScheduledTaskFunc{
		config.TaskActivityRotation: newActivityRotationTask(deps),
		config.TaskProactive:        newProactiveTask(deps),
		config.TaskMemoryFlush:      newMemoryFlushTask(deps),
	}
	if m, ok := deps.Store.(store.Maintainer); ok {
		tasks[config.TaskStoreMaintenance] = newStoreMaintenanceTask(deps, m)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
