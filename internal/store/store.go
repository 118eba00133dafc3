// Package store persists bot memory. Two backends are available: a pair of
// JSON files compatible with older deployments, and a single SQLite database.
package store

import (
	"context"
	"io"
	"log/slog"

	"github.com/edgard/groupmate/internal/config"
	"github.com/edgard/groupmate/internal/errors"
	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/store/jsonstore"
	"github.com/edgard/groupmate/internal/store/sqlite"
)

// Store loads and saves both memory stores.
type Store interface {
	memory.Loader
	memory.Persister
	Close() error
}

// Maintainer is implemented by backends with periodic housekeeping.
type Maintainer interface {
	Maintain(ctx context.Context) error
}

// Open returns the backend selected by cfg.Backend.
func Open(cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch cfg.Backend {
	case "json", "":
		s, err := jsonstore.Open(jsonstore.Options{
			ProfilePath:      cfg.ProfilePath,
			HistoryPath:      cfg.HistoryPath,
			AutoSaveInterval: cfg.AutoSaveInterval,
			SyncWrites:       cfg.FlushOnWrite,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.NewConfigError("unknown store backend "+cfg.Backend, nil)
	}
}
