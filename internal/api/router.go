package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/lectern/internal/api/middleware"
	"github.com/phrazzld/lectern/internal/api/shared"
)

// RouterDeps are the collaborators the router wires into handlers.
type RouterDeps struct {
	Tasks   *TaskHandler
	Lessons *LessonHandler
	// Auth guards every /api route.
	Auth *middleware.AuthMiddleware
	// DB is pinged by the health check when set.
	DB     *sql.DB
	Logger *slog.Logger
}

// NewRouter builds the ops HTTP router.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(deps.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Post("/tasks", deps.Tasks.CreateTask)
		r.Get("/tasks", deps.Tasks.ListTasks)
		r.Get("/tasks/{id}", deps.Tasks.GetTask)
		r.Get("/lessons/{id}/search", deps.Lessons.SearchLesson)
	})

	r.Get("/health", healthHandler(deps.DB))

	return r
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Database unavailable", err)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
