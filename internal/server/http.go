package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/alfredjeanlab/guardian/internal/events"
	"github.com/alfredjeanlab/guardian/internal/logstore"
	"github.com/alfredjeanlab/guardian/internal/model"
)

// maxEventBody bounds the size of a POST /v1/events body.
const maxEventBody = 64 << 10

// inputError indicates invalid client input. It maps to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/logs", s.handleListLogs)
	mux.HandleFunc("GET /v1/logs/stream", s.handleLogStream)
	mux.HandleFunc("POST /v1/events", s.handleIngestEvent)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return AuthMiddleware(authToken, mux)
}

type listLogsResponse struct {
	Entries []model.LogEntry `json:"entries"`
	Cap     int              `json:"cap"`
	Seq     uint64           `json:"seq"`
}

// handleListLogs handles GET /v1/logs.
func (s *Server) handleListLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, listLogsResponse{
		Entries: s.store.Entries(),
		Cap:     s.store.Cap(),
		Seq:     s.store.Seq(),
	})
}

// handleIngestEvent handles POST /v1/events. The body is decoded with the
// server's payload contract.
func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	ev, err := events.Decode(s.contract, raw)
	if err != nil {
		if s.metrics != nil {
			s.metrics.Rejected("decode")
		}
		s.logger.Warn("server: rejecting undecodable event", "contract", s.contract, "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	if err := s.store.Ingest(ev); err != nil {
		s.logger.Warn("server: rejecting event", "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.store.Closed() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "closed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "entries": s.store.Len()})
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var ie inputError
	switch {
	case errors.As(err, &ie), errors.Is(err, model.ErrMalformedEvent):
		return http.StatusBadRequest
	case errors.Is(err, logstore.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseTopics splits a comma-separated topics query value.
func parseTopics(q string) ([]string, error) {
	var topics []string
	for _, t := range splitComma(q) {
		if t == "" {
			continue
		}
		if len(t) > 128 {
			return nil, inputError(fmt.Sprintf("topic pattern too long: %.20s...", t))
		}
		topics = append(topics, t)
	}
	return topics, nil
}
