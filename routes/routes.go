package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/campusops/gradebook/app"
	"github.com/campusops/gradebook/handlers"
	"github.com/campusops/gradebook/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	studentHandler := handlers.NewStudentHandler(deps.Roster, deps.Logger)
	auditHandler := handlers.NewAuditHandler(deps.Auditor, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Logger)

	// Health check endpoints
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Roster management; every write is recorded in the change log
		// within the same transaction
		r.Route("/students", func(r chi.Router) {
			r.Post("/", studentHandler.HandleAddStudent)
			r.Get("/", studentHandler.HandleListStudents)
			r.Get("/{id}", studentHandler.HandleGetStudent)
			r.Patch("/{id}", studentHandler.HandleUpdateStudent)
			r.Delete("/{id}", studentHandler.HandleDeleteStudent)
			r.Get("/{id}/log", auditHandler.HandleStudentTrail)
		})

		// Change log, read-only: entries are written exclusively by the
		// roster write path
		r.Route("/log", func(r chi.Router) {
			r.Get("/", auditHandler.HandleListEntries)
			r.Get("/{id}", auditHandler.HandleGetEntry)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
