package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusops/gradebook/middleware"
	"github.com/campusops/gradebook/models"
	"github.com/campusops/gradebook/services/audit"
	"github.com/campusops/gradebook/utils"
)

// AuditEntryResponse represents a change log entry in API responses
type AuditEntryResponse struct {
	ID         uuid.UUID       `json:"id"`
	StudentID  int64           `json:"student_id"`
	Action     string          `json:"action"`
	OldData    json.RawMessage `json:"old_data,omitempty"`
	NewData    json.RawMessage `json:"new_data,omitempty"`
	RecordedAt string          `json:"recorded_at"`
}

// AuditHandler serves reads over the append-only change log.
// There is no write endpoint: entries are only ever created by the roster
// write path, inside the same transaction as the student change.
type AuditHandler struct {
	auditor *audit.Service
	logger  *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditor *audit.Service, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditor: auditor,
		logger:  logger,
	}
}

// HandleStudentTrail handles GET /api/v1/students/{id}/log
// Returns the student's entries oldest first, soft-deleted students included.
func (h *AuditHandler) HandleStudentTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}

	limit, offset := parsePagination(r)

	entries, err := h.auditor.TrailForStudent(ctx, id, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("listed student trail",
		zap.String("request_id", requestID),
		zap.Int64("student_id", id),
		zap.Int("count", len(entries)))

	_ = utils.WriteOK(w, entriesToResponse(entries))
}

// HandleListEntries handles GET /api/v1/log
// Returns recent entries newest first; an action query parameter narrows
// the list to one tag.
func (h *AuditHandler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	limit, offset := parsePagination(r)

	var entries []*models.AuditEntry
	var err error

	if action := r.URL.Query().Get("action"); action != "" {
		entries, err = h.auditor.ByAction(ctx, action, limit, offset)
	} else {
		entries, err = h.auditor.Recent(ctx, limit, offset)
	}
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("listed audit entries",
		zap.String("request_id", requestID),
		zap.Int("count", len(entries)))

	_ = utils.WriteOK(w, entriesToResponse(entries))
}

// HandleGetEntry handles GET /api/v1/log/{id}
func (h *AuditHandler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid audit entry ID format", nil)
		return
	}

	entry, err := h.auditor.EntryByID(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, entryToResponse(entry))
}

// entryToResponse converts an AuditEntry model to an AuditEntryResponse
func entryToResponse(e *models.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         e.ID,
		StudentID:  e.StudentID,
		Action:     string(e.Action),
		OldData:    e.OldData,
		NewData:    e.NewData,
		RecordedAt: e.RecordedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func entriesToResponse(entries []*models.AuditEntry) []AuditEntryResponse {
	responses := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = entryToResponse(e)
	}
	return responses
}
