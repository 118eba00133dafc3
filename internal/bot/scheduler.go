package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/groupmate/internal/bot/tasks"
	"github.com/edgard/groupmate/internal/config"
)

// Scheduler runs the registered tasks on their configured schedules using
// gocron.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler for taskMap.
func NewScheduler(logger *slog.Logger, cfg config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// jobDefinition maps a task's config to a gocron schedule. A cron
// expression wins over an interval.
func jobDefinition(tc config.TaskConfig) (gocron.JobDefinition, string, bool) {
	switch {
	case tc.Schedule != "":
		return gocron.CronJob(tc.Schedule, true), tc.Schedule, true
	case tc.Interval > 0:
		return gocron.DurationJob(tc.Interval), "every " + tc.Interval.String(), true
	default:
		return nil, "", false
	}
}

// Start schedules every enabled task and starts ticking. Each run gets ctx,
// so tasks stop when it is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	names := make([]string, 0, len(s.cfg.Tasks))
	for name := range s.cfg.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	scheduled := 0
	for _, name := range names {
		tc := s.cfg.Tasks[name]
		if !tc.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", name)
			continue
		}
		taskFunc, ok := s.taskMap[name]
		if !ok {
			s.logger.Info("Scheduled task not available, skipping", "task_name", name)
			continue
		}
		def, desc, ok := jobDefinition(tc)
		if !ok {
			s.logger.Warn("Scheduled task enabled but has no schedule, skipping", "task_name", name)
			continue
		}

		opts := []gocron.JobOption{
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}
		if tc.RunOnStart {
			opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
		}

		_, err := s.scheduler.NewJob(
			def,
			gocron.NewTask(
				func(ctx context.Context, name string) {
					s.logger.DebugContext(ctx, "Running scheduled task", "task_name", name)
					start := time.Now()
					if err := taskFunc(ctx); err != nil {
						s.logger.ErrorContext(ctx, "Scheduled task failed", "task_name", name, "error", err)
					}
					s.logger.DebugContext(ctx, "Finished scheduled task", "task_name", name, "duration", time.Since(start))
				},
				ctx,
				name,
			),
			opts...,
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", name, "schedule", desc, "error", err)
			continue
		}
		s.logger.Info("Scheduled task", "task_name", name, "schedule", desc, "run_on_start", tc.RunOnStart)
		scheduled++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduled)
	return nil
}

// Jobs lists the names of the scheduled jobs.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.scheduler.Jobs() {
		names = append(names, j.Name())
	}
	sort.Strings(names)
	return names
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	err := s.scheduler.Shutdown()
	s.running = false
	if err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	s.logger.Info("Scheduler stopped")
	return nil
}
