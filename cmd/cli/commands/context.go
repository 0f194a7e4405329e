package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/internal/config"
	"github.com/shivamksharma/devdonations/pkg/core/services"
	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Database *db.DB
	// Postgres is nil when running on the in-memory backend
	Postgres *postgres.DB
	Stores   *store.Stores
	Services *services.Services
	Logger   *zap.Logger
	Ctx      context.Context
}
