package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduledAction identifies a type of scheduled maintenance action.
type ScheduledAction string

const (
	ActionSessionSweep   ScheduledAction = "session_sweep"
	ActionRateLimitSweep ScheduledAction = "rate_limit_sweep"
)

// ScheduledTask defines a recurring maintenance task.
type ScheduledTask struct {
	Name     string
	Schedule string // cron expression "*/5 * * * *" OR duration "30m"
	Action   ScheduledAction
}

// Scheduler runs maintenance tasks on a recurring schedule using cron
// expressions or durations.
type Scheduler struct {
	cron    *cron.Cron
	actions map[ScheduledAction]func(ctx context.Context) error
	logger  *slog.Logger
	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		actions: make(map[ScheduledAction]func(ctx context.Context) error),
		logger:  logger,
	}
}

// RegisterAction registers a handler for a scheduled action type.
func (s *Scheduler) RegisterAction(action ScheduledAction, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[action] = fn
}

// AddTask adds a scheduled task. The schedule can be a cron expression or a
// duration string.
func (s *Scheduler) AddTask(task ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn, ok := s.actions[task.Action]
	if !ok {
		return fmt.Errorf("scheduler: unknown action %q for task %q", task.Action, task.Name)
	}

	schedule, err := parseSchedule(task.Schedule)
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q for task %q: %w", task.Schedule, task.Name, err)
	}

	taskName := task.Name
	logger := s.logger

	s.cron.Schedule(schedule, cron.FuncJob(func() {
		// Read context under lock
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		if ctx == nil {
			logger.Debug("scheduler stopped, skipping task", "task", taskName)
			return
		}

		// Add timeout for individual task
		taskCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		start := time.Now()
		if err := fn(taskCtx); err != nil {
			logger.Warn("scheduled task failed",
				"task", taskName,
				"error", err,
				"duration", time.Since(start))
		} else {
			logger.Debug("scheduled task completed",
				"task", taskName,
				"duration", time.Since(start))
		}
	}))

	logger.Info("task added to scheduler", "name", task.Name, "schedule", task.Schedule, "action", string(task.Action))
	return nil
}

// Start begins running the scheduler. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true
	return nil
}

// Stop signals the scheduler to stop and waits for running jobs to finish.
// Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.started = false
	s.ctx = nil
	return nil
}

// parseSchedule tries to parse a schedule string as a cron expression first,
// then falls back to time.ParseDuration.
func parseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	// Try cron expression first.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}

	// Fall back to duration.
	dur, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("not a valid cron expression or duration: %q", schedule)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration must be positive: %q", schedule)
	}
	return &constantDelay{delay: dur}, nil
}

// constantDelay implements cron.Schedule for a fixed interval.
// Unlike cron.Every(), it supports sub-second durations.
type constantDelay struct {
	delay time.Duration
}

func (d *constantDelay) Next(t time.Time) time.Time {
	return t.Add(d.delay)
}
