package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error     string         `json:"error"`
	Kind      string         `json:"kind"`
	RequestID string         `json:"request_id,omitempty"`
	Failures  []FailureEntry `json:"failures,omitempty"`
}

// FailureEntry is one extractor failure of an aggregate error
type FailureEntry struct {
	Extractor string `json:"extractor"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

// statusFor maps an error kind onto an HTTP status
func statusFor(err error) int {
	var agg *errors.AggregateError
	if stderrors.As(err, &agg) {
		return http.StatusUnprocessableEntity
	}
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case errors.KindParsing, errors.KindPlugin:
		return http.StatusUnprocessableEntity
	case errors.KindMissingDependency, errors.KindLockPoisoned:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		Kind:      errors.KindOf(err).String(),
		RequestID: middleware.GetReqID(r.Context()),
	}

	var agg *errors.AggregateError
	if stderrors.As(err, &agg) {
		for _, f := range agg.Failures {
			resp.Failures = append(resp.Failures, FailureEntry{
				Extractor: f.Extractor,
				Kind:      errors.KindOf(f.Err).String(),
				Error:     f.Message(),
			})
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", resp.RequestID, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "request_id", resp.RequestID, "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
