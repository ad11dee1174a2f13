package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"ms-csevents/internal/csevents/service"
	"ms-csevents/internal/logger"
	"ms-csevents/internal/models"
)

const DefaultSpec = "0 2 * * *"

var ErrAlreadyStarted = errors.New("scheduler already started")

type Runner interface {
	Run(ctx context.Context, trigger string) (*service.RunReport, error)
}

type Options struct {
	Spec     string
	Location *time.Location
}

// Scheduler fires the scrape pipeline on a cron spec. A firing that comes
// due while the previous one is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *logger.Logger
	spec    string
	entryID cron.EntryID

	started atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	stopMu  sync.Mutex
}

func New(runner Runner, opts Options, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	cronLog := logger.CronLogger{Logger: log}
	c := cron.New(
		cron.WithLocation(opts.Location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   c,
		runner: runner,
		logger: log,
		spec:   opts.Spec,
		ctx:    ctx,
		cancel: cancel,
	}

	id, err := c.AddFunc(opts.Spec, s.runOnce)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", opts.Spec, err)
	}
	s.entryID = id
	return s, nil
}

// Start begins scheduling. Calling it twice returns ErrAlreadyStarted.
func (s *Scheduler) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.cron.Start()
	s.logger.Info("SCHEDULER", fmt.Sprintf("Scheduled scrape with %q, next run at %s", s.spec, s.NextRun().Format(time.RFC3339)))
	return nil
}

// NextRun is the time of the next firing, zero before Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// Stop cancels the run context and waits for an in-flight run to return or
// for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if !s.started.Load() {
		s.cancel()
		return nil
	}
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		s.logger.Info("SCHEDULER", "Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled run: %w", ctx.Err())
	}
}

func (s *Scheduler) runOnce() {
	report, err := s.runner.Run(s.ctx, models.TriggerScheduled)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		s.logger.Info("SCHEDULER", "Scheduled scrape skipped, another run is in progress")
	case err != nil:
		s.logger.Error("SCHEDULER", fmt.Sprintf("Scheduled scrape failed: %v", err))
	default:
		s.logger.Info("SCHEDULER", fmt.Sprintf("Scheduled scrape completed: %d added, %d updated, %d total, %d errors",
			report.Added, report.Updated, report.Total, len(report.Errors)))
	}
}
