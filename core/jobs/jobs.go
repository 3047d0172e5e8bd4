package jobs

import (
	"context"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs registered maintenance jobs on cron schedules. Every job
// runs behind panic recovery and start/finish logging; an overrunning job
// delays its next firing instead of running twice.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	cfg    Config
}

// NewScheduler creates a scheduler from the given configuration.
func NewScheduler(logger *zap.Logger, cfg Config) *Scheduler {
	// Wrappers apply inside out: logging sits closest to the job so it
	// still sees the job's name.
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			cron.DelayIfStillRunning(cron.DiscardLogger),
			panicRecoveryWrapper(logger),
			loggingWrapper(logger),
		),
	)
	return &Scheduler{cron: c, logger: logger, cfg: cfg}
}

// namedJob carries a human-readable name through the wrapper chain.
type namedJob struct {
	name string
	run  func(ctx context.Context) error

	logger *zap.Logger
}

func (j *namedJob) Name() string { return j.name }

func (j *namedJob) Run() {
	if err := j.run(context.Background()); err != nil {
		j.logger.Error("job failed", zap.String("job", j.name), zap.Error(err))
	}
}

// Register schedules a job. With the scheduler disabled this is a no-op.
func (s *Scheduler) Register(name, schedule string, run func(ctx context.Context) error) error {
	if !s.cfg.Enabled {
		return nil
	}
	_, err := s.cron.AddJob(schedule, &namedJob{name: name, run: run, logger: s.logger})
	if err != nil {
		return err
	}
	s.logger.Info("job registered", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

// Start begins firing schedules in a background goroutine.
func (s *Scheduler) Start() {
	if !s.cfg.Enabled {
		s.logger.Info("job scheduler disabled")
		return
	}
	s.cron.Start()
	s.logger.Info("job scheduler started")
}

// Stop waits for running jobs to finish, bounded by the context.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("job scheduler stopped with jobs still running")
	}
}

// loggingWrapper logs each execution's start and duration.
func loggingWrapper(logger *zap.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			name := jobName(j)
			start := time.Now()
			logger.Info("job started", zap.String("job", name))
			j.Run()
			logger.Info("job finished", zap.String("job", name),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// panicRecoveryWrapper keeps a panicking job from taking the process down.
func panicRecoveryWrapper(logger *zap.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("job panicked",
						zap.String("job", jobName(j)),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())))
				}
			}()
			j.Run()
		})
	}
}

func jobName(j cron.Job) string {
	if named, ok := j.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(j)
	if t.Kind() == reflect.Ptr {
		return t.Elem().String()
	}
	return t.String()
}
