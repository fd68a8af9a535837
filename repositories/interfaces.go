package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/campusops/gradebook/models"
)

// ErrNotFound is the storage-level sentinel for missing rows.
// Driver implementations wrap it; the service layer converts it into the
// domain's not-found error.
var ErrNotFound = errors.New("not found")

// TransactionManager manages database transactions following the GrantPulse pattern
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// StudentRepository handles roster row operations.
// All methods are executor-aware: when the context carries an open
// transaction the statement runs inside it, otherwise on the pool.
type StudentRepository interface {
	// Create inserts a new student and fills in the storage-assigned ID
	Create(ctx context.Context, student *models.Student) error

	// GetByID retrieves a live (not soft-deleted) student by ID
	GetByID(ctx context.Context, id int64) (*models.Student, error)

	// GetByIDForUpdate retrieves a live student and takes the row lock that
	// serializes concurrent writers of the same row. Must run inside a
	// transaction; on sqlite the single-writer pool provides the serialization
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Student, error)

	// List retrieves live students ordered by ID with pagination
	List(ctx context.Context, limit, offset int) ([]*models.Student, error)

	// Update persists name/grade/updated_at for an existing student
	Update(ctx context.Context, student *models.Student) error

	// SoftDelete persists the deleted_at stamp; the row is retained so audit
	// entries always reference an existing identifier
	SoftDelete(ctx context.Context, student *models.Student) error
}

// AuditLogRepository handles the append-only change log.
// Append is the only write: entries are never updated or deleted.
type AuditLogRepository interface {
	// Append inserts a new change log entry
	Append(ctx context.Context, entry *models.AuditEntry) error

	// GetByID retrieves an entry by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error)

	// ListByStudent retrieves a student's entries oldest-first with pagination
	ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]*models.AuditEntry, error)

	// ListRecent retrieves entries newest-first with pagination
	ListRecent(ctx context.Context, limit, offset int) ([]*models.AuditEntry, error)

	// ListByAction retrieves entries with the given tag, newest-first
	ListByAction(ctx context.Context, action models.AuditAction, limit, offset int) ([]*models.AuditEntry, error)

	// Count returns the total number of entries in the log
	Count(ctx context.Context) (int64, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Students  StudentRepository
	AuditLogs AuditLogRepository
}
