package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusops/gradebook/models"
	"github.com/campusops/gradebook/repositories"
	"github.com/campusops/gradebook/repositories/dbtx"
)

// AuditLogRepository implements the repositories.AuditLogRepository interface
// over the students_log table
type AuditLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *DB, logger *zap.Logger) repositories.AuditLogRepository {
	return &AuditLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new change log entry
func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO students_log (id, student_id, action, old_data, new_data, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	executor := dbtx.GetExecutor(ctx, r.db.DB)
	_, err := executor.ExecContext(ctx, query,
		entry.ID,
		entry.StudentID,
		entry.Action,
		jsonArg(entry.OldData),
		jsonArg(entry.NewData),
		entry.RecordedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	r.logger.Debug("audit entry appended",
		zap.String("id", entry.ID.String()),
		zap.Int64("student_id", entry.StudentID),
		zap.String("action", string(entry.Action)))
	return nil
}

// GetByID retrieves an entry by its ID
func (r *AuditLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error) {
	query := `
		SELECT id, student_id, action, old_data, new_data, recorded_at
		FROM students_log
		WHERE id = ?
	`

	executor := dbtx.GetExecutor(ctx, r.db.DB)
	entry := &models.AuditEntry{}
	var oldData, newData sql.NullString

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.StudentID,
		&entry.Action,
		&oldData,
		&newData,
		&entry.RecordedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("audit entry %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}

	entry.OldData = snapshotValue(oldData)
	entry.NewData = snapshotValue(newData)
	return entry, nil
}

// ListByStudent retrieves a student's entries oldest-first with pagination
func (r *AuditLogRepository) ListByStudent(ctx context.Context, studentID int64, limit, offset int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, student_id, action, old_data, new_data, recorded_at
		FROM students_log
		WHERE student_id = ?
		ORDER BY recorded_at ASC
		LIMIT ? OFFSET ?
	`

	return r.queryEntries(ctx, query, studentID, limit, offset)
}

// ListRecent retrieves entries newest-first with pagination
func (r *AuditLogRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, student_id, action, old_data, new_data, recorded_at
		FROM students_log
		ORDER BY recorded_at DESC
		LIMIT ? OFFSET ?
	`

	return r.queryEntries(ctx, query, limit, offset)
}

// ListByAction retrieves entries with the given tag, newest-first
func (r *AuditLogRepository) ListByAction(ctx context.Context, action models.AuditAction, limit, offset int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, student_id, action, old_data, new_data, recorded_at
		FROM students_log
		WHERE action = ?
		ORDER BY recorded_at DESC
		LIMIT ? OFFSET ?
	`

	return r.queryEntries(ctx, query, action, limit, offset)
}

// Count returns the total number of entries in the log
func (r *AuditLogRepository) Count(ctx context.Context) (int64, error) {
	executor := dbtx.GetExecutor(ctx, r.db.DB)

	var count int64
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM students_log`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}

// queryEntries is a helper method to query multiple audit entries
func (r *AuditLogRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*models.AuditEntry, error) {
	executor := dbtx.GetExecutor(ctx, r.db.DB)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		var oldData, newData sql.NullString
		err := rows.Scan(
			&entry.ID,
			&entry.StudentID,
			&entry.Action,
			&oldData,
			&newData,
			&entry.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.OldData = snapshotValue(oldData)
		entry.NewData = snapshotValue(newData)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entry rows: %w", err)
	}

	return entries, nil
}

// jsonArg stores snapshots as TEXT rather than BLOB; an absent snapshot
// becomes SQL NULL
func jsonArg(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

// snapshotValue converts a scanned snapshot column back into a raw JSON
// payload. Snapshots come off the driver as TEXT or NULL, neither of which
// scans into json.RawMessage directly, so rows go through sql.NullString.
func snapshotValue(v sql.NullString) json.RawMessage {
	if !v.Valid {
		return nil
	}
	return json.RawMessage(v.String)
}
