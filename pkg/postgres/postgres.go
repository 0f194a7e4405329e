package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:generate mockgen -source ./postgres.go -destination=./mocks/querier.go -package=mocks

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Querier is the subset of pool operations used for document reads and writes
type Querier interface {
	Get(ctx context.Context, dest any, query string, args ...any) error
	Select(ctx context.Context, dest any, query string, args ...any) error
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

type poolQuerier struct {
	pool *pgxpool.Pool
}

func (p poolQuerier) Get(ctx context.Context, dest any, query string, args ...any) error {
	return pgxscan.Get(ctx, p.pool, dest, query, args...)
}

func (p poolQuerier) Select(ctx context.Context, dest any, query string, args ...any) error {
	return pgxscan.Select(ctx, p.pool, dest, query, args...)
}

func (p poolQuerier) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, query, args...)
}

// DB is a docstore.Backend on top of a single PostgreSQL documents table
type DB struct {
	pool   *pgxpool.Pool
	q      Querier
	logger *zap.Logger

	listenMu sync.Mutex
	listener *listener
}

// NewDB creates a new PostgreSQL database connection
func NewDB(ctx context.Context, connString string, logger *zap.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, q: poolQuerier{pool: pool}, logger: logger}, nil
}

// NewWithQuerier builds a DB without a pool. Watch and RunMigrations are
// unavailable on such a DB.
func NewWithQuerier(q Querier, logger *zap.Logger) *DB {
	return &DB{q: q, logger: logger}
}

// Close stops the change listener and closes the connection pool
func (db *DB) Close() {
	db.listenMu.Lock()
	if db.listener != nil {
		db.listener.stop()
		db.listener = nil
	}
	db.listenMu.Unlock()

	if db.pool != nil {
		db.pool.Close()
	}
}

// RunMigrations executes all pending SQL migration files in order.
// It tracks which migrations have been applied in a schema_migrations table.
func (db *DB) RunMigrations(ctx context.Context) error {
	if db.pool == nil {
		return fmt.Errorf("migrations require a connection pool")
	}

	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var appliedFiles []string
	if err := pgxscan.Select(ctx, db.pool, &appliedFiles, `SELECT filename FROM schema_migrations`); err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied := make(map[string]bool, len(appliedFiles))
	for _, f := range appliedFiles {
		applied[f] = true
	}

	sqlFiles, err := migrationFiles()
	if err != nil {
		return err
	}

	for _, filename := range sqlFiles {
		if applied[filename] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, "migrations/"+filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		tx, err := db.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", filename, err)
		}

		if _, err = tx.Exec(ctx, string(content)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		if _, err = tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", filename, err)
		}
		db.logger.Info("Applied migration", zap.String("filename", filename))
	}

	return nil
}

// migrationFiles lists embedded migrations in apply order
func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)
	return sqlFiles, nil
}
