package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/gradebook/models"
	"github.com/campusops/gradebook/repositories"
	"github.com/campusops/gradebook/services"
	"github.com/campusops/gradebook/services/audit"
)

const defaultListLimit = 50

// AddStudentInput carries the fields for creating a student
type AddStudentInput struct {
	Name  string
	Grade int
}

// UpdateStudentInput carries a partial update; nil fields are left unchanged
type UpdateStudentInput struct {
	Name  *string
	Grade *int
}

// Service owns the student roster and guarantees that every committed
// write is recorded in the change log within the same transaction.
// The audit service is called directly on the write path with the
// transaction-carrying context, so a failed append rolls the student
// change back and a failed student write never leaves an entry behind.
type Service struct {
	students  repositories.StudentRepository
	auditor   *audit.Service
	txManager repositories.TransactionManager
	cache     *StudentCache
	logger    *zap.Logger
}

// NewService creates a new roster Service instance
func NewService(
	students repositories.StudentRepository,
	auditor *audit.Service,
	txManager repositories.TransactionManager,
	cache *StudentCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		students:  students,
		auditor:   auditor,
		txManager: txManager,
		cache:     cache,
		logger:    logger,
	}
}

// AddStudent creates a student and appends the INSERT entry atomically.
// Returns the student with its storage-assigned ID.
func (s *Service) AddStudent(ctx context.Context, input AddStudentInput) (*models.Student, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "student name is required", services.ErrInvalidInput)
	}
	if input.Grade < 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "grade must not be negative", services.ErrInvalidInput).
			WithDetail("grade", input.Grade)
	}

	student := models.NewStudent(name, input.Grade)

	created, err := services.WithTransactionResult(ctx, s.txManager, func(txCtx context.Context, tx repositories.Transaction) (*models.Student, error) {
		if err := s.students.Create(txCtx, student); err != nil {
			return nil, services.WrapInternal("failed to create student", err)
		}
		// Timestamp taken after the insert executed, so per-student entry
		// timestamps follow commit order.
		if err := s.auditor.RecordInsert(txCtx, student, time.Now().UTC()); err != nil {
			return nil, err
		}
		return student, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("student added",
		zap.Int64("student_id", created.ID),
		zap.Int("grade", created.Grade))

	return created, nil
}

// UpdateStudent applies a partial update and appends the UPDATE entry
// atomically. An unknown or soft-deleted id leaves both the roster and the
// change log untouched.
func (s *Service) UpdateStudent(ctx context.Context, id int64, input UpdateStudentInput) (*models.Student, error) {
	if input.Name == nil && input.Grade == nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "update must change at least one field", services.ErrEmptyUpdate)
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "student name is required", services.ErrInvalidInput)
	}
	if input.Grade != nil && *input.Grade < 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "grade must not be negative", services.ErrInvalidInput).
			WithDetail("grade", *input.Grade)
	}

	updated, err := services.WithTransactionResult(ctx, s.txManager, func(txCtx context.Context, tx repositories.Transaction) (*models.Student, error) {
		// The locked read serializes concurrent writers of the same row
		student, err := s.students.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return nil, notFoundOrInternal(err, id, "failed to load student for update")
		}

		before := *student
		if input.Name != nil {
			student.Name = strings.TrimSpace(*input.Name)
		}
		if input.Grade != nil {
			student.Grade = *input.Grade
		}
		student.UpdatedAt = time.Now().UTC()

		if err := s.students.Update(txCtx, student); err != nil {
			return nil, notFoundOrInternal(err, id, "failed to update student")
		}
		if err := s.auditor.RecordUpdate(txCtx, &before, student, time.Now().UTC()); err != nil {
			return nil, err
		}
		return student, nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(id)
	s.logger.Info("student updated", zap.Int64("student_id", id))

	return updated, nil
}

// DeleteStudent soft-deletes a student and appends the DELETE entry
// atomically. The row is retained so the student's trail never references
// a missing id.
func (s *Service) DeleteStudent(ctx context.Context, id int64) error {
	err := services.WithTransaction(ctx, s.txManager, func(txCtx context.Context, tx repositories.Transaction) error {
		student, err := s.students.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return notFoundOrInternal(err, id, "failed to load student for delete")
		}

		student.MarkDeleted(time.Now().UTC())
		if err := s.students.SoftDelete(txCtx, student); err != nil {
			return notFoundOrInternal(err, id, "failed to delete student")
		}
		return s.auditor.RecordDelete(txCtx, student, time.Now().UTC())
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(id)
	s.logger.Info("student deleted", zap.Int64("student_id", id))

	return nil
}

// GetStudent returns a live student by id, serving repeat reads from cache
func (s *Service) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	if student := s.cache.Get(id); student != nil {
		return student, nil
	}

	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, id, "failed to get student")
	}

	s.cache.Set(student)
	return student, nil
}

// ListStudents returns live students ordered by id
func (s *Service) ListStudents(ctx context.Context, limit, offset int) ([]*models.Student, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	students, err := s.students.List(ctx, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list students", err)
	}
	return students, nil
}

func notFoundOrInternal(err error, id int64, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.NewDomainError(services.ErrorTypeNotFound,
			fmt.Sprintf("student %d not found", id), services.ErrStudentNotFound)
	}
	return services.WrapInternal(message, err)
}
