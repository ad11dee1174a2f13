package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-csevents/internal/config"
	"ms-csevents/internal/logger"
)

// IsPostgres reports whether url selects the Postgres dialect. Anything else
// is treated as a SQLite path or DSN.
func IsPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Connect opens the configured database and pings it, retrying a few times
// while the server comes up.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	if log == nil {
		log = logger.NewNop()
	}
	retries := cfg.ConnRetries
	if retries < 1 {
		retries = 1
	}

	var (
		sqldb *sql.DB
		err   error
	)
	for i := 0; i < retries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to %s (attempt %d/%d)", describe(cfg.URL), i+1, retries))
		sqldb, err = open(cfg)
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
			sqldb.Close()
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect: %v", err))
		if i < retries-1 {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", retries, err)
	}

	if IsPostgres(cfg.URL) {
		log.Info("DATABASE", "PostgreSQL connection successful")
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
	log.Info("DATABASE", "SQLite connection successful")
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func open(cfg config.DatabaseConfig) (*sql.DB, error) {
	if IsPostgres(cfg.URL) {
		sqldb, err := sql.Open("postgres", cfg.URL)
		if err != nil {
			return nil, err
		}
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
		return sqldb, nil
	}

	path := strings.TrimPrefix(cfg.URL, "sqlite://")
	if file := strings.TrimPrefix(strings.SplitN(path, "?", 2)[0], "file:"); file != "" && !strings.Contains(path, "mode=memory") && file != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, err
	}
	// one connection: the run transaction and API reads are serialized
	sqldb.SetMaxOpenConns(1)
	return sqldb, nil
}

// describe hides credentials from connection logs.
func describe(url string) string {
	if !IsPostgres(url) {
		return "sqlite " + url
	}
	if at := strings.LastIndex(url, "@"); at >= 0 {
		return "postgres " + url[at+1:]
	}
	return "postgres"
}
