package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/campusops/gradebook/middleware"
	"github.com/campusops/gradebook/models"
	"github.com/campusops/gradebook/services/roster"
	"github.com/campusops/gradebook/utils"
)

// AddStudentRequest represents a request to add a student
type AddStudentRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Grade int    `json:"grade" validate:"gte=0,lte=100"`
}

// UpdateStudentRequest represents a partial update; omitted fields are unchanged
type UpdateStudentRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Grade *int    `json:"grade,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// StudentResponse represents a student in API responses
type StudentResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Grade     int    `json:"grade"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// StudentHandler handles student-related HTTP requests
type StudentHandler struct {
	roster *roster.Service
	logger *zap.Logger
}

// NewStudentHandler creates a new StudentHandler
func NewStudentHandler(rosterService *roster.Service, logger *zap.Logger) *StudentHandler {
	return &StudentHandler{
		roster: rosterService,
		logger: logger,
	}
}

// HandleAddStudent handles POST /api/v1/students
func (h *StudentHandler) HandleAddStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	// Parse request body
	var req AddStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	// Validate request
	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	student, err := h.roster.AddStudent(ctx, roster.AddStudentInput{
		Name:  req.Name,
		Grade: req.Grade,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("student created",
		zap.String("request_id", requestID),
		zap.Int64("student_id", student.ID))

	_ = utils.WriteCreated(w, studentToResponse(student))
}

// HandleGetStudent handles GET /api/v1/students/{id}
func (h *StudentHandler) HandleGetStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}

	student, err := h.roster.GetStudent(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, studentToResponse(student))
}

// HandleListStudents handles GET /api/v1/students
func (h *StudentHandler) HandleListStudents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	limit, offset := parsePagination(r)

	students, err := h.roster.ListStudents(ctx, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]StudentResponse, len(students))
	for i, s := range students {
		responses[i] = studentToResponse(s)
	}

	h.logger.Debug("listed students",
		zap.String("request_id", requestID),
		zap.Int("count", len(responses)))

	_ = utils.WriteOK(w, responses)
}

// HandleUpdateStudent handles PATCH /api/v1/students/{id}
func (h *StudentHandler) HandleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}

	// Parse request body
	var req UpdateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	// Validate request
	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	student, err := h.roster.UpdateStudent(ctx, id, roster.UpdateStudentInput{
		Name:  req.Name,
		Grade: req.Grade,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("student updated",
		zap.String("request_id", requestID),
		zap.Int64("student_id", student.ID))

	_ = utils.WriteOK(w, studentToResponse(student))
}

// HandleDeleteStudent handles DELETE /api/v1/students/{id}
func (h *StudentHandler) HandleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	id, ok := parseStudentID(w, r)
	if !ok {
		return
	}

	if err := h.roster.DeleteStudent(ctx, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("student deleted",
		zap.String("request_id", requestID),
		zap.Int64("student_id", id))

	utils.WriteNoContent(w)
}

// parseStudentID extracts the {id} route parameter. Writes a 400 and
// returns false when it is not a positive integer.
func parseStudentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		_ = utils.WriteBadRequest(w, "Invalid student ID format", nil)
		return 0, false
	}
	return id, true
}

// parsePagination reads limit/offset query parameters, leaving zero values
// for the service defaults when absent or malformed
func parsePagination(r *http.Request) (int, int) {
	var limit, offset int
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			offset = n
		}
	}
	return limit, offset
}

// studentToResponse converts a Student model to a StudentResponse
func studentToResponse(s *models.Student) StudentResponse {
	return StudentResponse{
		ID:        s.ID,
		Name:      s.Name,
		Grade:     s.Grade,
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
