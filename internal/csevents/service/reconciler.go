package service

import (
	"context"
	"fmt"
	"time"

	"ms-csevents/internal/csevents/db"
	"ms-csevents/internal/logger"
	"ms-csevents/internal/models"
)

// SessionStarter opens the unit of work a reconciliation batch runs in.
type SessionStarter interface {
	BeginSession(ctx context.Context) (db.UnitOfWork, error)
}

type ReconcileResult struct {
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Total   int      `json:"total"`
	Errors  []string `json:"errors"`
}

// CommitError means the batch could not be persisted and nothing from it was
// applied.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed: %v", e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Reconciler upserts scraped events by natural identity.
type Reconciler struct {
	store  SessionStarter
	logger *logger.Logger
	now    func() time.Time
}

func NewReconciler(store SessionStarter, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reconciler{
		store:  store,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile applies one run's events in a single unit of work. Item failures
// are collected in the result; a begin or commit failure is returned as
// *CommitError with the store left as it was.
func (r *Reconciler) Reconcile(ctx context.Context, events []models.ScrapedEvent) (*ReconcileResult, error) {
	uow, err := r.store.BeginSession(ctx)
	if err != nil {
		return nil, &CommitError{Err: err}
	}
	defer uow.Rollback()

	result := &ReconcileResult{Errors: []string{}}
	for _, event := range events {
		var added bool
		err := uow.Isolate(ctx, func(ctx context.Context) error {
			var err error
			added, err = r.upsert(ctx, uow, event)
			return err
		})
		if err != nil {
			msg := fmt.Sprintf("Error processing event '%s': %v", event.Title, err)
			r.logger.Warn("DATABASE", msg)
			result.Errors = append(result.Errors, msg)
			continue
		}
		if added {
			result.Added++
		} else {
			result.Updated++
		}
	}
	result.Total = len(events)

	if err := uow.Commit(); err != nil {
		r.logger.Error("DATABASE", fmt.Sprintf("Commit of %d events failed: %v", len(events), err))
		return nil, &CommitError{Err: err}
	}
	r.logger.LogDatabase("COMMIT", "cs_events", fmt.Sprintf("%d added, %d updated, %d errors", result.Added, result.Updated, len(result.Errors)))
	return result, nil
}

func (r *Reconciler) upsert(ctx context.Context, uow db.UnitOfWork, event models.ScrapedEvent) (added bool, err error) {
	now := r.now()

	existing, err := uow.FindByKey(ctx, event.Key())
	if err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}

	if existing != nil {
		applyMutable(existing, event)
		existing.LastUpdated = now
		if err := uow.Update(ctx, existing); err != nil {
			return false, fmt.Errorf("update: %w", err)
		}
		return false, nil
	}

	record := &models.CSEvent{
		Title:       event.Title,
		EventDate:   event.EventDate,
		ScrapedAt:   now,
		LastUpdated: now,
	}
	applyMutable(record, event)
	if err := uow.Insert(ctx, record); err != nil {
		return false, fmt.Errorf("insert: %w", err)
	}
	return true, nil
}

// applyMutable overwrites every field a re-scrape may change. Absent values
// clear the stored ones.
func applyMutable(dst *models.CSEvent, src models.ScrapedEvent) {
	dst.Description = src.Description
	dst.Abstract = src.Abstract
	dst.EventTime = src.EventTime
	dst.Location = src.Location
	dst.EventURL = src.EventURL
	dst.Presenter = src.Presenter
	dst.WorkshopOutline = src.WorkshopOutline
	dst.Prerequisites = src.Prerequisites
	dst.Biography = src.Biography
	dst.RegistrationLink = src.RegistrationLink
	dst.RawData = src.RawData()
}
