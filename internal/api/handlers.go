package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
)

// healthCheckTimeout bounds the index reachability probe in handleHealth.
const healthCheckTimeout = 2 * time.Second

// ChatbotRequest is the Query API request body. Text arrives already
// transcribed when it originated as voice. ContextDocuments carries
// already-extracted text uploaded with the question; it shapes this answer
// only and is never added to the index.
type ChatbotRequest struct {
	Query            string            `json:"query"`
	FromVoice        bool              `json:"from_voice,omitempty"`
	ContextDocuments []core.SourceText `json:"context_documents,omitempty"`
}

// ChatbotResponse mirrors the original service's response shape: the
// synthesized answer plus its supporting citations.
type ChatbotResponse struct {
	Response  string          `json:"response"`
	Sources   []core.Citation `json:"sources"`
	Timestamp time.Time       `json:"timestamp"`
}

// IngestRequest is a batch of extracted source documents.
type IngestRequest struct {
	Documents []core.SourceText `json:"documents"`
}

// IngestResponse reports how much the batch changed the index.
type IngestResponse struct {
	Sources int `json:"sources"`
	Chunks  int `json:"chunks"`
}

func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request) {
	var req ChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "provide a non-empty query")
		return
	}

	query := core.Query{
		Text:        req.Query,
		FromVoice:   req.FromVoice,
		ContextDocs: req.ContextDocuments,
	}
	answer, err := s.pipeline.Answer(r.Context(), query)
	if err != nil {
		logger.Error("Query from caller %s failed: %v", CallerID(r.Context()), err)
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatbotResponse{
		Response:  answer.Text,
		Sources:   answer.Sources,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "provide at least one document")
		return
	}

	chunks, err := s.ingestor.Ingest(r.Context(), req.Documents)
	if err != nil {
		logger.Error("Ingestion by caller %s failed: %v", CallerID(r.Context()), err)
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Sources: len(req.Documents),
		Chunks:  chunks,
	})
}

// handleHealth reports liveness plus index reachability, so a down Milvus
// shows up before queries start failing.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		logger.Warn("Health check: index unreachable: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"index":  "unreachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"index":  "ok",
	})
}
