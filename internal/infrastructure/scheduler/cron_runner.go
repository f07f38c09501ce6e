package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultJobTimeout bounds a single job run when none is configured.
const DefaultJobTimeout = 5 * time.Minute

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// JobStats summarises the runs of one registered job.
type JobStats struct {
	Name      string
	Schedule  string
	Runs      int64
	Failures  int64
	LastRun   time.Time
	LastError string
	Next      time.Time
}

type registeredJob struct {
	name     string
	spec     string
	entryID  cron.EntryID
	wrapped  cron.Job
	runs     int64
	failures int64
	lastRun  time.Time
	lastErr  string
}

// CronRunner runs named jobs on cron schedules. A run that is still in
// progress when its next tick fires is skipped, and panics are recovered
// and logged.
type CronRunner struct {
	cron       *cron.Cron
	chain      cron.Chain
	logger     *zap.Logger
	jobTimeout time.Duration
	now        func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*registeredJob
	running bool
}

type CronOption func(*CronRunner)

// WithJobTimeout bounds each run. Zero or negative keeps DefaultJobTimeout.
func WithJobTimeout(d time.Duration) CronOption {
	return func(r *CronRunner) {
		if d > 0 {
			r.jobTimeout = d
		}
	}
}

// WithLocation evaluates schedules in loc instead of the local zone.
func WithLocation(loc *time.Location) CronOption {
	return func(r *CronRunner) {
		r.cron = cron.New(cron.WithLocation(loc))
	}
}

func NewCronRunner(logger *zap.Logger, opts ...CronOption) *CronRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scheduler")

	r := &CronRunner{
		cron:       cron.New(),
		logger:     logger,
		jobTimeout: DefaultJobTimeout,
		now:        time.Now,
		jobs:       make(map[string]*registeredJob),
	}
	for _, opt := range opts {
		opt(r)
	}

	cl := cronLogger{logger: logger}
	r.chain = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))
	r.baseCtx, r.cancel = context.WithCancel(context.Background())
	return r
}

// AddJob registers job under name on a standard five-field spec or a
// descriptor such as "@hourly" or "@every 15m".
func (r *CronRunner) AddJob(name, spec string, job Job) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	rj := &registeredJob{name: name, spec: spec}
	rj.wrapped = r.chain.Then(cron.FuncJob(func() { r.execute(rj, job) }))
	rj.entryID = r.cron.Schedule(schedule, rj.wrapped)
	r.jobs[name] = rj

	r.logger.Info("Job scheduled", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Trigger runs the named job once on the caller's goroutine, through the
// same recover and skip-if-running chain as scheduled runs.
func (r *CronRunner) Trigger(name string) error {
	r.mu.Lock()
	rj, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	rj.wrapped.Run()
	return nil
}

func (r *CronRunner) execute(rj *registeredJob, job Job) {
	ctx, cancel := context.WithTimeout(r.baseCtx, r.jobTimeout)
	defer cancel()

	start := r.now()
	err := job.Run(ctx)
	elapsed := time.Since(start)

	r.mu.Lock()
	rj.runs++
	rj.lastRun = start
	rj.lastErr = ""
	if err != nil {
		rj.failures++
		rj.lastErr = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("Job failed",
			zap.String("job", rj.name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("Job completed", zap.String("job", rj.name), zap.Duration("elapsed", elapsed))
}

// Start begins firing schedules. Calling it twice is a no-op.
func (r *CronRunner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.cron.Start()
	r.logger.Info("Scheduler started", zap.Int("jobs", len(r.jobs)))
}

// Stop halts scheduling and waits for in-flight runs. If ctx ends first,
// in-flight runs are cancelled and ctx's error is returned.
func (r *CronRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	wasRunning := r.running
	r.running = false
	r.mu.Unlock()
	if !wasRunning {
		r.cancel()
		return nil
	}

	done := r.cron.Stop()
	defer r.cancel()

	select {
	case <-done.Done():
		r.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Stats returns per-job run counters ordered by name.
func (r *CronRunner) Stats() []JobStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]JobStats, 0, len(r.jobs))
	for _, rj := range r.jobs {
		stats = append(stats, JobStats{
			Name:      rj.name,
			Schedule:  rj.spec,
			Runs:      rj.runs,
			Failures:  rj.failures,
			LastRun:   rj.lastRun,
			LastError: rj.lastErr,
			Next:      r.cron.Entry(rj.entryID).Next,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
