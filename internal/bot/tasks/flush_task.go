package tasks

import (
	"context"
	"fmt"
	"time"
)

func newMemoryFlushTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "memory_flush")

	return func(ctx context.Context) error {
		start := time.Now()
		if err := deps.Memory.Flush(ctx); err != nil {
			return fmt.Errorf("flush memory: %w", err)
		}
		log.DebugContext(ctx, "Memory flushed", "duration", time.Since(start))
		return nil
	}
}
