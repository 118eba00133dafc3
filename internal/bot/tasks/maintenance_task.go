package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/groupmate/internal/store"
)

// newStoreMaintenanceTask compacts the store.
func newStoreMaintenanceTask(deps TaskDeps, m store.Maintainer) ScheduledTaskFunc {
	log := deps.Logger.With("task", "store_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting store maintenance")
		start := time.Now()

		if err := m.Maintain(ctx); err != nil {
			log.ErrorContext(ctx, "Store maintenance failed", "error", err, "duration", time.Since(start))
			return fmt.Errorf("store maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Store maintenance completed", "duration", time.Since(start))
		return nil
	}
}
