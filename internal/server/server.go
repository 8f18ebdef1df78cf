// Package server exposes the log store over HTTP (snapshot, SSE stream,
// event ingestion, health, metrics) and over gRPC (standard health service).
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/guardian/internal/events"
	"github.com/alfredjeanlab/guardian/internal/logstore"
	"github.com/alfredjeanlab/guardian/internal/metrics"
	"github.com/alfredjeanlab/guardian/internal/model"
)

// HealthService is the service name reported to gRPC health checks in
// addition to the overall ("") status.
const HealthService = "guardian.LogStore"

// Options configures a Server. Zero values select the defaults.
type Options struct {
	Contract events.Contract  // payload contract for POST /v1/events (default v1)
	Metrics  *metrics.Metrics // optional; enables GET /metrics
	Logger   *slog.Logger     // default slog.Default()
}

// Server serves one log store.
type Server struct {
	store    *logstore.Store
	contract events.Contract
	metrics  *metrics.Metrics
	logger   *slog.Logger
	sseHub   *sseHub
	health   *health.Server
}

// New returns a Server for store. Call Run to start streaming store changes
// to SSE clients.
func New(store *logstore.Store, opts Options) *Server {
	s := &Server{
		store:    store,
		contract: opts.Contract,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		sseHub:   newSSEHub(),
		health:   health.NewServer(),
	}
	if s.contract == "" {
		s.contract = events.DefaultContract
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.setServing(!store.Closed())
	return s
}

// entryEvent is the SSE payload for one ingestion.
type entryEvent struct {
	Entry   model.LogEntry `json:"entry"`
	Evicted []string       `json:"evicted,omitempty"` // IDs dropped from the tail
}

// Run forwards store changes to SSE clients until ctx is done or the store
// is closed. When the store closes, health checks start failing and open
// streams end.
func (s *Server) Run(ctx context.Context) {
	changes, cancel := s.store.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				s.logger.Info("server: log store closed")
				s.setServing(false)
				s.sseHub.close()
				return
			}
			s.broadcastChange(c)
		}
	}
}

func (s *Server) broadcastChange(c logstore.Change) {
	ev := entryEvent{Entry: c.Entry}
	for _, e := range c.Evicted {
		ev.Evicted = append(ev.Evicted, e.ID)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("failed to marshal entry for SSE broadcast", "id", c.Entry.ID, "error", err)
		return
	}
	s.sseHub.broadcast(c.Seq, entryTopic(c.Entry.Severity), payload)
}

// entryTopic is the SSE event name for an entry: "log.entry.info" or
// "log.entry.warning". Clients filter with patterns such as "log.entry.*".
func entryTopic(sev model.Severity) string {
	return "log.entry." + sev.String()
}

func (s *Server) setServing(ok bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(HealthService, st)
}

// Shutdown marks every service as not serving. Call it before stopping the
// gRPC server so probes observe the drain.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}
