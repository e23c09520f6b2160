package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
)

// errorBody is the JSON error envelope. Stage lets the front-end tell
// "no answer available" apart from "service unavailable".
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Kind    string `json:"kind,omitempty"`
		Stage   string `json:"stage,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	var body errorBody
	body.Error.Message = message
	writeJSON(w, status, body)
}

// writePipelineError maps the pipeline error taxonomy onto HTTP statuses.
func writePipelineError(w http.ResponseWriter, err error) {
	var pe *core.PipelineError
	if !errors.As(err, &pe) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch pe.Kind {
	case core.KindInvalidQuery:
		status = http.StatusBadRequest
	case core.KindBudgetExceeded:
		status = http.StatusUnprocessableEntity
	case core.KindEmbeddingUnavailable, core.KindIndexUnavailable, core.KindGenerationFailed:
		status = http.StatusServiceUnavailable
	}

	var body errorBody
	body.Error.Message = pe.Error()
	body.Error.Kind = string(pe.Kind)
	body.Error.Stage = string(pe.Stage)
	writeJSON(w, status, body)
}
