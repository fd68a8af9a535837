package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusops/gradebook/models"
	"github.com/campusops/gradebook/repositories"
	"github.com/campusops/gradebook/repositories/dbtx"
)

// StudentRepository implements the repositories.StudentRepository interface
type StudentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *DB, logger *zap.Logger) repositories.StudentRepository {
	return &StudentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new student and fills in the storage-assigned ID
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (name, grade, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	executor := dbtx.GetExecutor(ctx, r.db.DB)
	err := executor.QueryRowContext(ctx, query,
		student.Name,
		student.Grade,
		student.CreatedAt,
		student.UpdatedAt,
	).Scan(&student.ID)

	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	r.logger.Debug("student created", zap.Int64("id", student.ID), zap.String("name", student.Name))
	return nil
}

// GetByID retrieves a live student by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	query := `
		SELECT id, name, grade, created_at, updated_at, deleted_at
		FROM students
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.getStudent(ctx, query, id)
}

// GetByIDForUpdate retrieves a live student and takes the row lock.
// Concurrent writers of the same student block here until the holder
// commits, which keeps per-student audit timestamps in commit order.
func (r *StudentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	query := `
		SELECT id, name, grade, created_at, updated_at, deleted_at
		FROM students
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`

	return r.getStudent(ctx, query, id)
}

func (r *StudentRepository) getStudent(ctx context.Context, query string, id int64) (*models.Student, error) {
	executor := dbtx.GetExecutor(ctx, r.db.DB)
	student := &models.Student{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&student.ID,
		&student.Name,
		&student.Grade,
		&student.CreatedAt,
		&student.UpdatedAt,
		&student.DeletedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("student %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return student, nil
}

// List retrieves live students ordered by ID with pagination
func (r *StudentRepository) List(ctx context.Context, limit, offset int) ([]*models.Student, error) {
	query := `
		SELECT id, name, grade, created_at, updated_at, deleted_at
		FROM students
		WHERE deleted_at IS NULL
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	executor := dbtx.GetExecutor(ctx, r.db.DB)
	rows, err := executor.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		student := &models.Student{}
		err := rows.Scan(
			&student.ID,
			&student.Name,
			&student.Grade,
			&student.CreatedAt,
			&student.UpdatedAt,
			&student.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}

	return students, nil
}

// Update persists name/grade/updated_at for an existing student
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	query := `
		UPDATE students
		SET name = $2,
		    grade = $3,
		    updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`

	executor := dbtx.GetExecutor(ctx, r.db.DB)
	result, err := executor.ExecContext(ctx, query,
		student.ID,
		student.Name,
		student.Grade,
		student.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("student %d: %w", student.ID, repositories.ErrNotFound)
	}

	r.logger.Debug("student updated", zap.Int64("id", student.ID))
	return nil
}

// SoftDelete persists the deleted_at stamp; the row is retained so the
// change log never references a missing identifier
func (r *StudentRepository) SoftDelete(ctx context.Context, student *models.Student) error {
	query := `
		UPDATE students
		SET deleted_at = $2,
		    updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`

	executor := dbtx.GetExecutor(ctx, r.db.DB)
	result, err := executor.ExecContext(ctx, query,
		student.ID,
		student.DeletedAt,
		student.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("student %d: %w", student.ID, repositories.ErrNotFound)
	}

	r.logger.Debug("student deleted", zap.Int64("id", student.ID))
	return nil
}
