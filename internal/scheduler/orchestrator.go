package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hydranet/hydrabill/internal/clock"
	appconfig "github.com/hydranet/hydrabill/internal/config"
	"github.com/hydranet/hydrabill/internal/jobrun"
	"github.com/hydranet/hydrabill/internal/observability/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrUnknownJob     = errors.New("unknown_job")
	ErrAlreadyRunning = errors.New("job_already_running")
	ErrInvalidConfig  = errors.New("invalid_scheduler_config")
)

// Job is one named unit of scheduled work. Run returns bounded counters for
// the audit trail.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (map[string]any, error)
}

type jobState struct {
	job       Job
	running   atomic.Bool
	scheduled atomic.Bool
}

// JobStatus is the externally visible state of one registered job.
type JobStatus struct {
	Running   bool   `json:"running"`
	Scheduled bool   `json:"scheduled"`
	Schedule  string `json:"schedule"`
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Recorder *jobrun.Recorder
	AppCfg   appconfig.Config
	Config   Config `optional:"true"`
}

// Orchestrator owns the job registry and the cron runner. It is constructed
// once at process start; anything that needs to trigger a job holds a
// reference rather than reaching into shared state.
type Orchestrator struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	recorder *jobrun.Recorder
	cron     *cron.Cron

	mu   sync.Mutex
	jobs map[string]*jobState
}

func New(p Params) (*Orchestrator, error) {
	if p.Log == nil || p.Clock == nil || p.Recorder == nil {
		return nil, ErrInvalidConfig
	}
	loc, err := time.LoadLocation(p.AppCfg.SchedulerTimezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}
	return &Orchestrator{
		log:      p.Log.Named("scheduler"),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		recorder: p.Recorder,
		cron:     cron.New(cron.WithLocation(loc)),
		jobs:     make(map[string]*jobState),
	}, nil
}

// Register adds a job to the registry and schedules it. Safe to call only
// before Start.
func (o *Orchestrator) Register(job Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.jobs[job.Name]; exists {
		return fmt.Errorf("job already registered: %s", job.Name)
	}
	state := &jobState{job: job}
	state.scheduled.Store(true)

	name := job.Name
	if _, err := o.cron.AddFunc(job.Spec, func() {
		if _, err := o.execute(context.Background(), name, false); err != nil &&
			!errors.Is(err, ErrAlreadyRunning) {
			o.log.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	o.jobs[name] = state
	return nil
}

func (o *Orchestrator) Start() {
	o.cron.Start()
	o.log.Info("scheduler started", zap.Int("jobs", len(o.jobs)))
}

// Stop halts future scheduled invocations and waits for in-flight jobs.
func (o *Orchestrator) Stop() {
	<-o.cron.Stop().Done()
	o.log.Info("scheduler stopped")
}

// RunNow triggers a job manually through the same execution path as the
// scheduled run.
func (o *Orchestrator) RunNow(ctx context.Context, name string) (map[string]any, error) {
	return o.execute(ctx, name, true)
}

// StartJob re-enables scheduled invocations of a stopped job.
func (o *Orchestrator) StartJob(name string) error {
	state, ok := o.lookup(name)
	if !ok {
		return ErrUnknownJob
	}
	state.scheduled.Store(true)
	return nil
}

// StopJob suspends future scheduled invocations. An execution already in
// flight runs to completion.
func (o *Orchestrator) StopJob(name string) error {
	state, ok := o.lookup(name)
	if !ok {
		return ErrUnknownJob
	}
	state.scheduled.Store(false)
	return nil
}

func (o *Orchestrator) Status() map[string]JobStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]JobStatus, len(o.jobs))
	for name, state := range o.jobs {
		out[name] = JobStatus{
			Running:   state.running.Load(),
			Scheduled: state.scheduled.Load(),
			Schedule:  state.job.Spec,
		}
	}
	return out
}

func (o *Orchestrator) lookup(name string) (*jobState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.jobs[name]
	return state, ok
}

// execute is the single path for scheduled and manual runs: it holds the
// per-job running guard, catches panics at the job boundary, and writes
// exactly one audit row per invocation that actually ran.
func (o *Orchestrator) execute(parent context.Context, name string, manual bool) (details map[string]any, err error) {
	state, ok := o.lookup(name)
	if !ok {
		return nil, ErrUnknownJob
	}
	if !manual && !state.scheduled.Load() {
		return nil, nil
	}
	if !state.running.CompareAndSwap(false, true) {
		o.log.Warn("job already running, skipping", zap.String("job", name))
		return nil, ErrAlreadyRunning
	}
	defer state.running.Store(false)

	ctx, cancel := context.WithTimeout(parent, o.cfg.JobTimeout)
	defer cancel()

	start := o.clock.Now()
	log := o.log.With(zap.String("job", name), zap.Bool("manual", manual))
	log.Info("job started")

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		details, err = state.job.Run(ctx)
	}()

	elapsed := o.clock.Now().Sub(start)
	status := jobrun.StatusSuccess
	result := "success"
	if err != nil {
		status = jobrun.StatusFailed
		result = "failed"
		if details == nil {
			details = map[string]any{}
		}
		details["error"] = err.Error()
		log.Error("job failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		log.Info("job complete", zap.Duration("elapsed", elapsed))
	}

	metrics.Default().ObserveJobRun(name, result, elapsed)
	o.recorder.Record(context.WithoutCancel(ctx), name, status, details, elapsed, start)
	return details, err
}
