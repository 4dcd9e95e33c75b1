// Package server exposes ingestion, the article read API, feeds and chat over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kinderwise/internal/auth"
	"kinderwise/internal/chat"
	"kinderwise/internal/feed"
	"kinderwise/internal/ingest"
	"kinderwise/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Content      store.ContentStore
	Processor    *ingest.Processor
	Auth         *auth.Bearer
	Feeds        *feed.Builder
	Chat         *chat.Service
	MaxBatchSize int
	FeedLimit    int
}

type Server struct {
	deps   Deps
	logger *zap.Logger
	router *mux.Router
	server *http.Server
}

func NewServer(deps Deps, logger *zap.Logger) *Server {
	if deps.FeedLimit <= 0 {
		deps.FeedLimit = 500
	}
	s := &Server{
		deps:   deps,
		logger: logger,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.recoverer, s.logRequests)

	// Ingestion
	s.router.HandleFunc("/api/ingest", s.handleIngest).Methods(http.MethodPost)
	s.router.HandleFunc("/api/ingest", s.handleIngestDocs).Methods(http.MethodGet)

	// Read API
	s.router.HandleFunc("/api/articles", s.handleListArticles).Methods(http.MethodGet)
	s.router.HandleFunc("/api/articles/{slug}", s.handleGetArticle).Methods(http.MethodGet)
	s.router.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)

	// Feeds
	s.router.HandleFunc("/feed.ndjson", s.handleNDJSON).Methods(http.MethodGet)
	s.router.HandleFunc("/rss.xml", s.handleRSS).Methods(http.MethodGet)
	s.router.HandleFunc("/feed.json", s.handleJSONFeed).Methods(http.MethodGet)
	s.router.HandleFunc("/llms.txt", s.handleLLMsTxt).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start launches the HTTP server and blocks until it stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "Internal server error",
		Message: err.Error(),
	})
}

// recoverer turns a handler panic into a 500 JSON response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("%v", rec)
				s.logger.Error("Handler panic",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				s.internalError(w, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}
