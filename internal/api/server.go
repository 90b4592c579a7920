package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"geocoin/internal/sensor"
	"geocoin/internal/store"
	"geocoin/internal/world"
)

// Server is the user input surface: each endpoint maps 1:1 to a session
// operation. The session is single-threaded by design, so the server
// serializes every mutation — HTTP handlers and sensor callbacks alike —
// behind one mutex.
type Server struct {
	mu        sync.Mutex
	sess      *world.Session
	saves     store.SaveStore
	source    sensor.Source
	watch     sensor.Handle
	logger    *log.Logger
	startTime time.Time
}

// NewServer creates the API server. source may be nil when no positioning
// device is available; the sensor toggle then reports unavailable.
func NewServer(sess *world.Session, saves store.SaveStore, source sensor.Source) *Server {
	return &Server{
		sess:      sess,
		saves:     saves,
		source:    source,
		logger:    log.New(os.Stdout, "[api] ", log.LstdFlags),
		startTime: time.Now(),
	}
}

// Routes sets up the HTTP routes with proper middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleHealth)
	r.Get("/health/ready", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/move/{dir}", s.handleMove)
		r.Post("/collect", s.handleCollect)
		r.Post("/deposit", s.handleDeposit)
		r.Post("/reset", s.handleReset)
		r.Post("/sensor", s.handleSensor)
	})

	return r
}

// writeJSON writes a JSON response with proper headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeError writes a structured error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, errType, message string, context map[string]any) {
	reqID := middleware.GetReqID(r.Context())
	s.logger.Printf("request_failed request_id=%s path=%s status=%d type=%s message=%q",
		reqID, r.URL.Path, status, errType, message)
	s.writeJSON(w, status, Error{
		Type:      errType,
		Message:   message,
		Context:   context,
		RequestID: reqID,
	})
}

// recoverer converts panics into structured 500 responses.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				reqID := middleware.GetReqID(r.Context())
				s.logger.Printf("panic_recovered request_id=%s path=%s panic=%v", reqID, r.URL.Path, rvr)
				s.writeError(w, r, http.StatusInternalServerError, ErrTypeInternal, "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// persist saves the current session snapshot. Persistence failures are
// recoverable: the session keeps its in-memory state and the next mutation
// tries again.
func (s *Server) persist(ctx context.Context) {
	snap, err := s.sess.Snapshot()
	if err != nil {
		s.logger.Printf("snapshot_failed error=%v", err)
		return
	}
	payload, err := world.EncodeSnapshot(snap)
	if err != nil {
		s.logger.Printf("snapshot_encode_failed error=%v", err)
		return
	}
	if err := s.saves.Save(ctx, payload); err != nil {
		s.logger.Printf("save_failed error=%v", err)
	}
}
