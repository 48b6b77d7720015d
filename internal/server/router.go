package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	tasksout "worktrack/internal/modules/tasks/port/out"
	timerout "worktrack/internal/modules/timer/port/out"
)

// Stores are the authoritative stores the API exposes.
type Stores struct {
	Sessions timerout.RemoteSessionStore
	Tasks    tasksout.TaskSource
	Users    tasksout.UserDirectory
	Writer   tasksout.TaskWriter
	Ping     func(context.Context) error
}

// NewRouter wires every route of the worktrack API.
func NewRouter(stores Stores, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	sessionH := &sessionHandler{store: stores.Sessions}
	taskH := &taskHandler{tasks: stores.Tasks, users: stores.Users, writer: stores.Writer}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if stores.Ping != nil {
			if err := stores.Ping(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", sessionH.List)
		r.Post("/", sessionH.Create)
		r.Get("/running", sessionH.Running)
		r.Post("/{id}/close", sessionH.Close)
	})

	r.Route("/projects/{project}", func(r chi.Router) {
		r.Get("/tasks", taskH.List)
		r.Get("/tasks/{id}", taskH.Get)
		r.Put("/tasks/{id}", taskH.Put)
		r.Get("/users", taskH.Users)
		r.Put("/users/{id}", taskH.PutUser)
	})
	return r
}
