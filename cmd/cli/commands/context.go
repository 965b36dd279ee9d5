package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/internal/config"
	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/db"
	"github.com/jakechorley/boat-hire/pkg/postgres"
)

// SkipDatabase is a command annotation telling the root command not to open the store
const SkipDatabase = "skipDatabase"

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Env      string
	Database db.Database
	// Postgres is set when the postgres store is in use
	Postgres *postgres.DB
	Logger   *zap.Logger
	Ctx      context.Context
	Now      func() time.Time
}

// Today returns the current date in the configured timezone
func (a *AppContext) Today() (model.Date, error) {
	loc, err := a.Cfg.Location()
	if err != nil {
		return model.Date{}, err
	}
	return model.Today(a.Now(), loc), nil
}

// OpenDatabase connects to the configured store
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Database, *postgres.DB, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("Using in-memory store, data will not survive a restart")
		return db.NewMemoryDB(), nil, nil
	case config.StorePostgres:
		logger.Info("Connecting to database")
		pg, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
