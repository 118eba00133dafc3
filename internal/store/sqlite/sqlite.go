// Package sqlite stores memory snapshots in a SQLite database. Each store
// is one row holding its JSON document, so the on-disk shape matches the
// file backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/groupmate/internal/errors"
	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/store/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

const (
	profilesKey = "profiles"
	historyKey  = "history"
)

// Store is the SQLite backend.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to the database at path and applies pending migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "store", "backend", "sqlite")

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, errors.NewStoreError("failed to connect to database", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := applyMigrations(db.DB, log); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, errors.NewStoreError("failed to apply migrations", err)
	}

	log.Info("Database connected and migrations applied", "path", path)
	return &Store{db: db, logger: log}, nil
}

func applyMigrations(db *sql.DB, log *slog.Logger) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("create embed source driver: %w", err)
	}
	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite3 migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			log.Debug("No database migrations to apply")
			return nil
		}
		return err
	}
	log.Info("Database migrations applied")
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.NewStoreError("failed to close database", err)
	}
	return nil
}

// LoadProfiles returns the saved profile store, or an empty one if none
// has been saved yet.
func (s *Store) LoadProfiles(ctx context.Context) (memory.ProfileState, error) {
	var st memory.ProfileState
	if err := s.load(ctx, profilesKey, &st); err != nil {
		return memory.ProfileState{}, err
	}
	return st, nil
}

// LoadHistory returns the saved history store, or an empty one.
func (s *Store) LoadHistory(ctx context.Context) (memory.HistoryState, error) {
	st := memory.HistoryState{}
	if err := s.load(ctx, historyKey, &st); err != nil {
		return memory.HistoryState{}, err
	}
	return st, nil
}

func (s *Store) load(ctx context.Context, name string, dst any) error {
	var body string
	err := s.db.GetContext(ctx, &body, `SELECT body FROM snapshots WHERE name = ?`, name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return errors.NewStoreError("failed to read "+name, err)
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return errors.NewStoreError("failed to decode "+name, err)
	}
	return nil
}

// SaveProfiles replaces the saved profile store.
func (s *Store) SaveProfiles(ctx context.Context, st memory.ProfileState) error {
	return s.save(ctx, profilesKey, st)
}

// SaveHistory replaces the saved history store.
func (s *Store) SaveHistory(ctx context.Context, st memory.HistoryState) error {
	return s.save(ctx, historyKey, st)
}

func (s *Store) save(ctx context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.NewStoreError("failed to encode "+name, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("failed to begin transaction", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, string(body), time.Now().UTC())
	if err != nil {
		_ = tx.Rollback()
		return errors.NewStoreError("failed to write "+name, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("failed to commit "+name, err)
	}
	return nil
}

// Maintain runs VACUUM and ANALYZE.
func (s *Store) Maintain(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logger.InfoContext(ctx, "Starting database maintenance")
	start := time.Now()

	// VACUUM can't run inside a transaction.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return errors.NewStoreError("vacuum failed", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE;"); err != nil {
		s.logger.WarnContext(ctx, "ANALYZE failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(start))
	return nil
}
