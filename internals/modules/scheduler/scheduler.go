package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"project-pulse/pkg/metrics"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Kind string

const (
	KindHealth      Kind = "health"
	KindPerformance Kind = "performance"
	KindDashboard   Kind = "dashboard"
	KindResilience  Kind = "resilience"
	KindLoad        Kind = "load"
	KindDigest      Kind = "digest"
	KindPrune       Kind = "prune"
)

var (
	ErrAlreadyRunning = errors.New("job is already running")
	ErrUnknownKind    = errors.New("unknown job kind")
)

type Job func(ctx context.Context) error

type job struct {
	spec    string
	fn      Job
	running atomic.Bool
}

// Scheduler drives every job on its own cron schedule. A job never overlaps
// with itself, whether triggered by a tick or by RunOnce.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[Kind]*job
	inRun   sync.WaitGroup
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

func NewScheduler(logger *zerolog.Logger, m *metrics.Metrics) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		jobs:    make(map[Kind]*job),
		metrics: m,
		logger:  logger,
	}
}

// Register adds a job. spec is a standard 5-field cron expression or a
// descriptor such as "@every 5m". It must be called before Start.
func (s *Scheduler) Register(kind Kind, spec string, fn Job) error {
	if _, dup := s.jobs[kind]; dup {
		return fmt.Errorf("job %s registered twice", kind)
	}
	j := &job{spec: spec, fn: fn}

	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.run(context.Background(), kind, j); errors.Is(err, ErrAlreadyRunning) {
			s.logger.Warn().Str("job", string(kind)).Msg("previous run still in progress, skipping tick")
		}
	}); err != nil {
		return fmt.Errorf("schedule %s %q: %w", kind, spec, err)
	}

	s.jobs[kind] = j
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()

	for _, k := range s.Kinds() {
		s.logger.Info().Str("job", string(k)).Str("schedule", s.jobs[k].spec).Msg("job scheduled")
	}
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop stops scheduling new runs and waits for in-flight ones, including
// manual triggers, to finish. In-flight runs are not cancelled.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.inRun.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

// RunOnce runs a job immediately, outside its schedule.
func (s *Scheduler) RunOnce(ctx context.Context, kind Kind) error {
	j, ok := s.jobs[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return s.run(ctx, kind, j)
}

// Trigger starts a job in the background and returns as soon as the run
// has claimed its slot. The run outlives ctx cancellation but keeps its values.
func (s *Scheduler) Trigger(ctx context.Context, kind Kind) error {
	j, ok := s.jobs[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if !s.acquire(j) {
		return ErrAlreadyRunning
	}
	go s.exec(context.WithoutCancel(ctx), kind, j)
	return nil
}

func (s *Scheduler) Running(kind Kind) bool {
	j, ok := s.jobs[kind]
	return ok && j.running.Load()
}

func (s *Scheduler) Kinds() []Kind {
	out := make([]Kind, 0, len(s.jobs))
	for k := range s.jobs {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Scheduler) run(ctx context.Context, kind Kind, j *job) error {
	if !s.acquire(j) {
		return ErrAlreadyRunning
	}
	return s.exec(ctx, kind, j)
}

func (s *Scheduler) acquire(j *job) bool {
	if !j.running.CompareAndSwap(false, true) {
		return false
	}
	s.inRun.Add(1)
	return true
}

// exec runs a job whose slot was claimed by acquire.
func (s *Scheduler) exec(ctx context.Context, kind Kind, j *job) (err error) {
	defer s.inRun.Done()
	defer j.running.Store(false)

	runID := uuid.NewString()
	log := s.logger.With().Str("job", string(kind)).Str("run_id", runID).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", kind, r)
		}
		d := time.Since(start)
		s.metrics.ObserveRun(string(kind), d, err)
		if err != nil {
			log.Error().Err(err).Dur("took", d).Msg("job failed")
			return
		}
		log.Info().Dur("took", d).Msg("job completed")
	}()

	log.Debug().Msg("job started")
	return j.fn(log.WithContext(ctx))
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger *zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
