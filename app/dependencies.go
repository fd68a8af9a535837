package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/gradebook/config"
	"github.com/campusops/gradebook/repositories"
	"github.com/campusops/gradebook/repositories/postgres"
	"github.com/campusops/gradebook/repositories/sqlite"
	"github.com/campusops/gradebook/services/audit"
	"github.com/campusops/gradebook/services/roster"
)

const (
	studentCacheSize     = 1024
	studentCacheTTL      = 5 * time.Minute
	cacheCleanupInterval = time.Minute
)

// repositoryFactory is the surface shared by the postgres and sqlite
// factories. Everything past initDatabase is backend-agnostic.
type repositoryFactory interface {
	NewRepositories() *repositories.Repositories
	NewTransactionManager() repositories.TransactionManager
	Close() error
}

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *sql.DB
	Logger *zap.Logger

	// Repositories
	Students  repositories.StudentRepository
	AuditLogs repositories.AuditLogRepository
	TxManager repositories.TransactionManager

	// Services
	Auditor *audit.Service
	Roster  *roster.Service
	Cache   *roster.StudentCache

	factory   repositoryFactory
	cacheStop chan struct{}
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the configured backend and keeps the bare *sql.DB
// around for health checks.
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		factory, err := sqlite.NewRepositoryFactory(cfg.Database, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.factory = factory
		d.DB = factory.GetDB().DB

	default:
		factory, err := postgres.NewRepositoryFactory(cfg.Database, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		// Local development creates the schema directly; deployments run
		// the same DDL through cmd/migrate.
		if cfg.IsDevelopment() {
			if err := factory.GetDB().InitSchema(ctx); err != nil {
				_ = factory.Close()
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
		}
		d.factory = factory
		d.DB = factory.GetDB().DB
	}

	// Test the connection
	if err := d.DB.PingContext(ctx); err != nil {
		_ = d.factory.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("driver", cfg.Database.Driver),
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.factory.NewRepositories()

	d.Students = repos.Students
	d.AuditLogs = repos.AuditLogs
	d.TxManager = d.factory.NewTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initServices wires the audit recorder into the roster service so every
// roster write and its log entry share one transaction.
func (d *Dependencies) initServices() {
	d.Auditor = audit.NewService(d.AuditLogs, d.Logger)
	d.Cache = roster.NewStudentCache(studentCacheSize, studentCacheTTL)
	d.Roster = roster.NewService(d.Students, d.Auditor, d.TxManager, d.Cache, d.Logger)

	d.cacheStop = make(chan struct{})
	go d.Cache.StartCleanupWorker(cacheCleanupInterval, d.cacheStop)

	d.Logger.Info("services initialized")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.cacheStop != nil {
		close(d.cacheStop)
		d.cacheStop = nil
	}

	// Close database connection
	if d.factory != nil {
		if err := d.factory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.factory = nil
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
