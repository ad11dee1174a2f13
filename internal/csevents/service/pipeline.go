package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ms-csevents/internal/lock"
	"ms-csevents/internal/logger"
	"ms-csevents/internal/metrics"
	"ms-csevents/internal/models"
	"ms-csevents/internal/scraper"
)

// ErrRunInProgress means another process holds the run lock.
var ErrRunInProgress = errors.New("scraping already in progress")

type EventSource interface {
	Scrape(ctx context.Context) (*scraper.Batch, error)
}

type RunLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type RunPublisher interface {
	PublishRunCompleted(ctx context.Context, run models.ScrapeRunEvent) error
}

// RunReport summarises one completed run.
type RunReport struct {
	RunID   string
	Trigger string
	ReconcileResult
	Degraded   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Pipeline is the single entry point for scheduled, HTTP and CLI runs. At
// most one run is in flight per process, and per deployment when Lock is set.
type Pipeline struct {
	Source     EventSource
	Reconciler *Reconciler
	Lock       RunLock
	Publisher  RunPublisher
	Logger     *logger.Logger

	mu  sync.Mutex
	now func() time.Time
}

func NewPipeline(source EventSource, reconciler *Reconciler, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		Source:     source,
		Reconciler: reconciler,
		Logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run fetches, enriches and reconciles once. Errors are ErrRunInProgress, a
// wrapped *scraper.FetchError (or context error) from the scrape stage, or a
// *CommitError.
func (p *Pipeline) Run(ctx context.Context, trigger string) (*RunReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runID := uuid.NewString()
	started := p.now()

	if p.Lock != nil {
		release, err := p.Lock.Acquire(ctx)
		switch {
		case errors.Is(err, lock.ErrLockHeld):
			p.Logger.LogScrape(runID, "LOCK", fmt.Sprintf("%s run skipped, another run holds the lock", trigger))
			metrics.ScrapeRuns.WithLabelValues(trigger, models.RunStatusSkipped).Inc()
			return nil, ErrRunInProgress
		case err != nil:
			p.Logger.Warn("SCRAPER", fmt.Sprintf("Run lock unavailable, continuing with the local lock only: %v", err))
		default:
			defer release()
		}
	}

	p.Logger.LogScrape(runID, "START", fmt.Sprintf("%s run started", trigger))

	batch, err := p.Source.Scrape(ctx)
	if err != nil {
		p.Logger.Error("SCRAPER", fmt.Sprintf("[%s] Scrape failed: %v", runID, err))
		p.finish(runID, trigger, models.RunStatusFetchError, started, nil, 0, err)
		return nil, fmt.Errorf("scrape: %w", err)
	}
	p.Logger.LogScrape(runID, "FETCH", fmt.Sprintf("%d events, %d degraded", len(batch.Events), batch.Degraded))

	result, err := p.Reconciler.Reconcile(ctx, batch.Events)
	if err != nil {
		p.finish(runID, trigger, models.RunStatusCommitError, started, nil, batch.Degraded, err)
		return nil, err
	}

	report := p.finish(runID, trigger, models.RunStatusSuccess, started, result, batch.Degraded, nil)
	p.Logger.LogScrape(runID, "DONE", fmt.Sprintf("Scraping completed: %d added, %d updated, %d total, %d errors",
		result.Added, result.Updated, result.Total, len(result.Errors)))
	return report, nil
}

// finish records metrics and publishes the run event for every outcome.
func (p *Pipeline) finish(runID, trigger, status string, started time.Time, result *ReconcileResult, degraded int, runErr error) *RunReport {
	finished := p.now()
	if result == nil {
		result = &ReconcileResult{Errors: []string{}}
	}

	metrics.RecordRun(trigger, status, result.Added, result.Updated, len(result.Errors), degraded, finished.Sub(started), finished)

	report := &RunReport{
		RunID:           runID,
		Trigger:         trigger,
		ReconcileResult: *result,
		Degraded:        degraded,
		StartedAt:       started,
		FinishedAt:      finished,
	}

	if p.Publisher != nil {
		event := models.ScrapeRunEvent{
			RunID:      runID,
			Trigger:    trigger,
			Status:     status,
			Added:      result.Added,
			Updated:    result.Updated,
			Total:      result.Total,
			Degraded:   degraded,
			Errors:     result.Errors,
			StartedAt:  started,
			FinishedAt: finished,
		}
		if runErr != nil {
			event.Message = runErr.Error()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.Publisher.PublishRunCompleted(ctx, event); err != nil {
			p.Logger.Warn("KAFKA", fmt.Sprintf("[%s] Run notification not sent: %v", runID, err))
		}
	}
	return report
}
