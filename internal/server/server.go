// Package server is an in-memory todo collection speaking the /todos/ HTTP API.
// It backs `todo serve` and the fake service used in tests.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"todo/internal/service"
)

// Server stores todos in memory. IDs start at 1 and are never reused.
type Server struct {
	mu     sync.RWMutex
	tasks  []service.Task
	nextID int

	mux    *http.ServeMux
	logger *slog.Logger
}

// New creates an empty server. A nil logger discards request logs.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		nextID: 1,
		mux:    http.NewServeMux(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /todos/{$}", s.handleList)
	s.mux.HandleFunc("GET /todos", s.handleList)
	s.mux.HandleFunc("POST /todos/{$}", s.handleCreate)
	s.mux.HandleFunc("POST /todos", s.handleCreate)
	s.mux.HandleFunc("GET /todos/{id}", s.handleGet)
	s.mux.HandleFunc("PUT /todos/{id}", s.handleUpdate)
	s.mux.HandleFunc("PATCH /todos/{id}", s.handlePatch)
	// Both delete forms are in use by clients.
	s.mux.HandleFunc("DELETE /todos/{id}", s.handleDelete)
	s.mux.HandleFunc("DELETE /todos/{id}/{$}", s.handleDelete)
}

// ServeHTTP implements http.Handler with request logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	s.mux.ServeHTTP(rec, r)
	s.logger.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

// Seed stores drafts directly, as if created in order, and returns the stored records.
func (s *Server) Seed(drafts ...service.Draft) []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]service.Task, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, s.insertLocked(d))
	}
	return out
}

// Tasks returns a copy of the stored todos in order.
func (s *Server) Tasks() []service.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]service.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Server) insertLocked(d service.Draft) service.Task {
	t := service.Task{ID: s.nextID, Title: d.Title, Description: d.Description, Done: d.Done}
	s.nextID++
	s.tasks = append(s.tasks, t)
	return t
}

func (s *Server) indexLocked(id int) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Tasks())
}

// writeBody mirrors the collection's accepted body: title is required,
// description and done default to their zero values.
type writeBody struct {
	Title       *string `json:"title"`
	Description string  `json:"description"`
	Done        bool    `json:"done"`
}

func decodeWriteBody(r *http.Request) (service.Draft, bool) {
	var body writeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == nil {
		return service.Draft{}, false
	}
	return service.Draft{Title: *body.Title, Description: body.Description, Done: body.Done}, true
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	draft, ok := decodeWriteBody(r)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid todo body")
		return
	}
	s.mu.Lock()
	t := s.insertLocked(draft)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, s.tasks[i])
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	draft, ok := decodeWriteBody(r)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid todo body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}
	s.tasks[i] = service.Task{ID: id, Title: draft.Title, Description: draft.Description, Done: draft.Done}
	writeJSON(w, http.StatusOK, s.tasks[i])
}

// patchBody applies only the fields present.
type patchBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Done        *bool   `json:"done"`
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body patchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid todo body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}
	if body.Title != nil {
		s.tasks[i].Title = *body.Title
	}
	if body.Description != nil {
		s.tasks[i].Description = *body.Description
	}
	if body.Done != nil {
		s.tasks[i].Done = *body.Done
	}
	writeJSON(w, http.StatusOK, s.tasks[i])
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Todo not found")
		return
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "id must be an integer")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
