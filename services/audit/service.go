package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusops/gradebook/models"
	"github.com/campusops/gradebook/repositories"
	"github.com/campusops/gradebook/services"
)

const defaultListLimit = 50

// Service records student changes into the append-only change log and serves
// reads over it. It is a synchronous collaborator: the roster service calls
// Append with the transaction-carrying context, so the entry commits or rolls
// back together with the student change it describes. There is no queue and
// no background worker between a change and its log entry.
type Service struct {
	auditRepo repositories.AuditLogRepository
	logger    *zap.Logger
}

// NewService creates a new audit Service instance
func NewService(auditRepo repositories.AuditLogRepository, logger *zap.Logger) *Service {
	return &Service{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Append validates and writes one change log entry.
// The action tag is checked against the closed set before anything touches
// storage. A repository failure surfaces as an audit write error so the
// caller's transaction rolls back instead of committing an unaudited change.
func (s *Service) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry == nil {
		return services.NewDomainError(services.ErrorTypeValidation, "audit entry is required", services.ErrInvalidInput)
	}
	if !entry.Action.Valid() {
		return services.NewDomainError(services.ErrorTypeInvalidAction,
			fmt.Sprintf("unrecognized action tag: %q", entry.Action), services.ErrInvalidActionTag)
	}
	if entry.StudentID <= 0 {
		return services.NewDomainError(services.ErrorTypeValidation, "audit entry requires a student id", services.ErrInvalidInput).
			WithDetail("student_id", entry.StudentID)
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	if err := s.auditRepo.Append(ctx, entry); err != nil {
		return services.WrapAuditWrite("failed to append audit entry", err)
	}

	s.logger.Debug("audit entry appended",
		zap.String("entry_id", entry.ID.String()),
		zap.Int64("student_id", entry.StudentID),
		zap.String("action", string(entry.Action)))

	return nil
}

// RecordInsert appends an INSERT entry carrying the new image of the student
func (s *Service) RecordInsert(ctx context.Context, student *models.Student, at time.Time) error {
	entry := models.NewAuditEntry(student.ID, models.ActionInsert, at).WithNewData(student)
	return s.Append(ctx, entry)
}

// RecordUpdate appends an UPDATE entry carrying before and after images
func (s *Service) RecordUpdate(ctx context.Context, before, after *models.Student, at time.Time) error {
	entry := models.NewAuditEntry(after.ID, models.ActionUpdate, at).WithOldData(before).WithNewData(after)
	return s.Append(ctx, entry)
}

// RecordDelete appends a DELETE entry carrying the last image of the student
func (s *Service) RecordDelete(ctx context.Context, student *models.Student, at time.Time) error {
	entry := models.NewAuditEntry(student.ID, models.ActionDelete, at).WithOldData(student)
	return s.Append(ctx, entry)
}

// TrailForStudent returns a student's entries oldest first
func (s *Service) TrailForStudent(ctx context.Context, studentID int64, limit, offset int) ([]*models.AuditEntry, error) {
	limit, offset = normalizePage(limit, offset)

	entries, err := s.auditRepo.ListByStudent(ctx, studentID, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list audit trail", err)
	}
	return entries, nil
}

// Recent returns the latest entries across all students, newest first
func (s *Service) Recent(ctx context.Context, limit, offset int) ([]*models.AuditEntry, error) {
	limit, offset = normalizePage(limit, offset)

	entries, err := s.auditRepo.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list audit entries", err)
	}
	return entries, nil
}

// ByAction returns the latest entries with the given tag, newest first.
// The tag goes through the same closed-set check as Append.
func (s *Service) ByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditEntry, error) {
	tag, err := models.ParseAuditAction(action)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInvalidAction, err.Error(), services.ErrInvalidActionTag)
	}
	limit, offset = normalizePage(limit, offset)

	entries, err := s.auditRepo.ListByAction(ctx, tag, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list audit entries by action", err)
	}
	return entries, nil
}

// EntryByID returns a single entry by its identifier
func (s *Service) EntryByID(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error) {
	entry, err := s.auditRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.NewDomainError(services.ErrorTypeNotFound,
				fmt.Sprintf("audit entry %s not found", id), services.ErrAuditEntryNotFound)
		}
		return nil, services.WrapInternal("failed to get audit entry", err)
	}
	return entry, nil
}

// Count returns the total size of the change log
func (s *Service) Count(ctx context.Context) (int64, error) {
	count, err := s.auditRepo.Count(ctx)
	if err != nil {
		return 0, services.WrapInternal("failed to count audit entries", err)
	}
	return count, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
