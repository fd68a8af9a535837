package sqlite

import (
	"go.uber.org/zap"

	"github.com/campusops/gradebook/config"
	"github.com/campusops/gradebook/repositories"
	"github.com/campusops/gradebook/repositories/dbtx"
)

// RepositoryFactory creates SQLite-backed repository instances that all
// share the single-connection pool
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg config.DatabaseConfig, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &RepositoryFactory{
		db:     db,
		logger: logger,
	}, nil
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Students:  NewStudentRepository(f.db, f.logger),
		AuditLogs: NewAuditLogRepository(f.db, f.logger),
	}
}

// NewTransactionManager creates a transaction manager bound to the pool
func (f *RepositoryFactory) NewTransactionManager() repositories.TransactionManager {
	return dbtx.NewManager(f.db.DB, f.logger)
}

// GetDB returns the underlying database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
