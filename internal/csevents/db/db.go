package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-csevents/internal/models"
)

var ErrNotFound = errors.New("event not found")

type DB struct {
	Bun *bun.DB
}

// ListEvents returns every stored event, dated events first by day, then
// undated ones, newest scrape first within a day.
func (d *DB) ListEvents(ctx context.Context) ([]models.CSEvent, error) {
	events := make([]models.CSEvent, 0)
	err := d.Bun.NewSelect().
		Model(&events).
		OrderExpr("CASE WHEN event_date IS NULL THEN 1 ELSE 0 END ASC").
		OrderExpr("event_date ASC").
		OrderExpr("scraped_at DESC").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.CSEvent, error) {
	var event models.CSEvent
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CountEvents returns how many events are stored. The CLI prints it after a run.
func (d *DB) CountEvents(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().Model((*models.CSEvent)(nil)).Count(ctx)
}

// UnitOfWork is one reconciliation batch: every write goes through a single
// transaction that is committed or rolled back as a whole.
type UnitOfWork interface {
	FindByKey(ctx context.Context, key models.MatchKey) (*models.CSEvent, error)
	Insert(ctx context.Context, event *models.CSEvent) error
	Update(ctx context.Context, event *models.CSEvent) error
	// Isolate runs fn inside a savepoint. When fn fails only its own writes
	// are undone and the transaction stays usable.
	Isolate(ctx context.Context, fn func(ctx context.Context) error) error
	Commit() error
	Rollback() error
}

func (d *DB) BeginSession(ctx context.Context) (UnitOfWork, error) {
	tx, err := d.Bun.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &session{tx: tx}, nil
}

type session struct {
	tx         bun.Tx
	savepoints int
}

// FindByKey returns the oldest event with the same natural identity, or nil
// when there is none.
func (s *session) FindByKey(ctx context.Context, key models.MatchKey) (*models.CSEvent, error) {
	var event models.CSEvent
	q := s.tx.NewSelect().
		Model(&event).
		Where("title = ?", key.Title)

	switch {
	case key.ByDate():
		q = q.Where("event_date = ?", key.Date)
	case key.URL != "":
		q = q.Where("event_url = ?", key.URL)
	default:
		q = q.Where("event_url IS NULL")
	}

	err := q.OrderExpr("id ASC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *session) Insert(ctx context.Context, event *models.CSEvent) error {
	_, err := s.tx.NewInsert().Model(event).Returning("id").Exec(ctx)
	return err
}

// Update writes the mutable columns. id, title, event_date and scraped_at are
// never touched.
func (s *session) Update(ctx context.Context, event *models.CSEvent) error {
	_, err := s.tx.NewUpdate().
		Model(event).
		Column("description", "abstract", "event_time", "location", "event_url",
			"presenter", "workshop_outline", "prerequisites", "biography",
			"registration_link", "raw_data", "last_updated").
		WherePK().
		Exec(ctx)
	return err
}

func (s *session) Isolate(ctx context.Context, fn func(ctx context.Context) error) error {
	s.savepoints++
	name := fmt.Sprintf("cs_event_%d", s.savepoints)

	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (s *session) Commit() error {
	return s.tx.Commit()
}

func (s *session) Rollback() error {
	err := s.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
