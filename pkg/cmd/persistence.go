package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pubflow/pubflow/pkg/persistence"
	"github.com/pubflow/pubflow/pkg/persistence/memory"
	"github.com/pubflow/pubflow/pkg/persistence/postgresql"
)

// NewPersistence picks the storage backend from the database URL scheme.
// PostgreSQL URLs get the real store; anything else gets the in-memory store,
// which is only suitable for development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		logger.WarnContext(ctx, "Using in-memory persistence, data will not survive restarts")

		return memory.NewPersistence()
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "memory"
	}

	return provider
}
