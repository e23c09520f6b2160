package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Sayrikey1/Code-and-Clause/internal/auth"
	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/ingest"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
	"github.com/Sayrikey1/Code-and-Clause/internal/pipeline"
)

// Server exposes the query and ingestion interfaces over HTTP.
type Server struct {
	pipeline *pipeline.Pipeline
	ingestor *ingest.Ingestor
	store    core.VectorStore
	policy   *auth.Policy
	httpSrv  *http.Server
}

// NewServer wires the HTTP surface around the pipeline and the ingestor.
// The store is only consulted for health reporting.
func NewServer(addr string, p *pipeline.Pipeline, ing *ingest.Ingestor, store core.VectorStore, policy *auth.Policy) *Server {
	s := &Server{
		pipeline: p,
		ingestor: ing,
		store:    store,
		policy:   policy,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /chatbot", withCaller(policy, auth.OpQuery, s.handleChatbot))
	mux.Handle("POST /ingest", withCaller(policy, auth.OpIngest, s.handleIngest))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           withLogging(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Info("HTTP server listening on %s", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
