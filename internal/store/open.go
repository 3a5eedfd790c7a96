package store

import (
	"context"
	"fmt"
	"time"

	"kairo/internal/config"
	"kairo/internal/logging"
	"kairo/internal/types"
)

// Backend is what the rest of kairo needs from a store.
type Backend interface {
	types.FeedbackLog
	types.WeightPersister
	types.InteractionLog
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Open builds the backend selected by cfg.
func Open(cfg config.FeedbackConfig) (Backend, error) {
	switch cfg.Backend {
	case "memory":
		logging.Store("Using in-memory feedback store")
		return NewMemoryStore(), nil
	case "sqlite", "":
		path := cfg.DatabasePath
		if path == "" {
			path = config.DefaultConfig().Feedback.DatabasePath
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown feedback backend %q", cfg.Backend)
	}
}
