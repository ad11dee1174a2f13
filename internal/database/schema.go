package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-csevents/internal/database/migrations"
	"ms-csevents/internal/logger"
	"ms-csevents/internal/models"
)

// Migrate brings the cs_events schema up to date. Postgres runs the embedded
// versioned migrations; SQLite creates the table and indexes from the model.
func Migrate(ctx context.Context, bunDB *bun.DB, url string, log *logger.Logger) error {
	if log == nil {
		log = logger.NewNop()
	}

	if IsPostgres(url) {
		runner := migrations.NewRunner(url, log)
		defer func() {
			if err := runner.Close(); err != nil {
				log.Warn("DATABASE", fmt.Sprintf("Failed to close migrator: %v", err))
			}
		}()
		return runner.MigrateUp()
	}

	return createSQLiteSchema(ctx, bunDB, log)
}

func createSQLiteSchema(ctx context.Context, bunDB *bun.DB, log *logger.Logger) error {
	if _, err := bunDB.NewCreateTable().
		Model((*models.CSEvent)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create cs_events table: %w", err)
	}

	indexes := []struct {
		name    string
		columns []string
	}{
		{"idx_cs_events_title_date", []string{"title", "event_date"}},
		{"idx_cs_events_title_url", []string{"title", "event_url"}},
	}
	for _, idx := range indexes {
		if _, err := bunDB.NewCreateIndex().
			Model((*models.CSEvent)(nil)).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}

	log.LogDatabase("MIGRATE", "cs_events", "sqlite schema ready")
	return nil
}
