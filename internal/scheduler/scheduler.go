package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"fintrack/internal/log"
)

// JobState is IDLE between firings and RUNNING while a firing executes.
type JobState int32

const (
	StateIdle JobState = iota
	StateRunning
)

func (s JobState) String() string {
	if s == StateRunning {
		return "RUNNING"
	}
	return "IDLE"
}

// RunFunc executes one firing of a job. now is the scheduled fire time.
type RunFunc func(ctx context.Context, now time.Time) error

type Job struct {
	Name    string
	Trigger Trigger
	Run     RunFunc
}

type job struct {
	Job
	sem   *semaphore.Weighted
	state atomic.Int32
}

var (
	ErrUnknownJob   = errors.New("unknown job")
	ErrDuplicateJob = errors.New("duplicate job")
	ErrInvalidJob   = errors.New("job needs a name and a run function")
)

type Scheduler struct {
	clock      Clock
	logger     *log.Logger
	runOnStart bool

	mu   sync.Mutex
	jobs map[string]*job
	// inflight tracks firings so Start can wait for them on shutdown.
	inflight sync.WaitGroup
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithRunOnStart fires every job once as soon as Start is called.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) { s.runOnStart = enabled }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:  realClock{},
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentScheduler),
		jobs:   map[string]*job{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Add(j Job) error {
	if j.Name == "" || j.Run == nil {
		return ErrInvalidJob
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, j.Name)
	}
	s.jobs[j.Name] = &job{Job: j, sem: semaphore.NewWeighted(1)}
	return nil
}

// State reports whether a job is currently running.
func (s *Scheduler) State(name string) (JobState, error) {
	j, err := s.lookup(name)
	if err != nil {
		return StateIdle, err
	}
	return JobState(j.state.Load()), nil
}

// Start drives every job until ctx is done, then waits for in-flight firings
// to return.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		s.logger.InfoContext(ctx, "Job scheduled",
			log.FieldJob, j.Name,
			"trigger", j.Trigger.String(),
			log.FieldFireTime, j.Trigger.NextFireTime(s.clock.Now()).Format(time.RFC3339))
		if s.runOnStart {
			s.dispatch(ctx, j, s.clock.Now())
		}
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}

	err := g.Wait()
	s.inflight.Wait()
	s.logger.InfoContext(context.WithoutCancel(ctx), "Scheduler stopped")
	return err
}

// RunNow fires a job immediately and waits for it. It returns false without
// running when the job is already RUNNING.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	j, err := s.lookup(name)
	if err != nil {
		return false, err
	}
	return s.fire(ctx, j, s.clock.Now()), nil
}

func (s *Scheduler) lookup(name string) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return j, nil
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	for {
		now := s.clock.Now()
		next := j.Trigger.NextFireTime(now)
		if next.IsZero() {
			s.logger.ErrorContext(ctx, "Trigger never fires, job disabled", log.FieldJob, j.Name)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(next.Sub(now)):
			s.dispatch(ctx, j, next)
		}
	}
}

// dispatch runs a firing in the background so the trigger loop keeps time.
func (s *Scheduler) dispatch(ctx context.Context, j *job, at time.Time) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.fire(ctx, j, at)
	}()
}

// fire runs one firing unless the job is already RUNNING. Errors and panics
// are logged and contained.
func (s *Scheduler) fire(ctx context.Context, j *job, at time.Time) bool {
	if !j.sem.TryAcquire(1) {
		s.logger.WarnContext(ctx, "Job still running, skipping firing",
			log.FieldJob, j.Name,
			log.FieldFireTime, at.Format(time.RFC3339))
		return false
	}
	defer j.sem.Release(1)

	j.state.Store(int32(StateRunning))
	defer j.state.Store(int32(StateIdle))

	runLogger := s.logger.WithFields(log.NewFields().WithJob(j.Name, uuid.NewString()))
	runCtx := log.IntoContext(ctx, runLogger)
	start := time.Now()

	err := s.run(runCtx, j, at)
	fields := log.NewFields().WithDuration(time.Since(start))
	if err != nil {
		runLogger.ErrorContext(runCtx, "Job run failed",
			fields.WithError(err, log.ErrorTypeInternal).ToSlice()...)
		return true
	}
	runLogger.InfoContext(runCtx, "Job run finished", fields.ToSlice()...)
	return true
}

func (s *Scheduler) run(ctx context.Context, j *job, at time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return j.Run(ctx, at)
}
