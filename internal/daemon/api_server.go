package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"karaoke/internal/api"
	"karaoke/internal/config"
	"karaoke/internal/logging"
	"karaoke/internal/services"
	"karaoke/internal/workflow"
)

const (
	// longPollLimit bounds event and log waits below the server write timeout.
	longPollLimit  = 25 * time.Second
	maxRequestBody = 1 << 20
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/status", s.handleStatus)
	protected.HandleFunc("GET /api/jobs", s.handleListJobs)
	protected.HandleFunc("POST /api/jobs", s.handleSubmit)
	protected.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	protected.HandleFunc("DELETE /api/jobs/{id}", s.handleDeleteJob)
	protected.HandleFunc("POST /api/jobs/{id}/cancel", s.handleCancelJob)
	protected.HandleFunc("GET /api/jobs/{id}/outputs", s.handleOutputs)
	protected.HandleFunc("GET /api/events", s.handleEvents)
	protected.HandleFunc("GET /api/logs", s.handleLogs)
	protected.HandleFunc("POST /api/notifications/test", s.handleTestNotification)
	protected.HandleFunc("GET /api/styles", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, api.StylesResponse{Styles: api.Styles()})
	})
	protected.HandleFunc("GET /api/ratios", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, api.RatiosResponse{Ratios: api.Ratios()})
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
	})
	mux.Handle("/api/", authMiddleware(token, protected))
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	_ = s.listener.Close()
	s.listener = nil
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		LogPath:      status.LogPath,
		OutputDir:    s.daemon.cfg.Paths.OutputDir,
		Workflow:     api.FromStatusSummary(status.Workflow),
		StoredJobs:   status.StoredJobs,
		Dependencies: api.FromDependencies(status.Dependencies),
		Sinks:        api.FromCheckResults(status.Sinks),
	})
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	wanted := make(map[workflow.Status]bool)
	for _, value := range r.URL.Query()["status"] {
		if value = strings.TrimSpace(value); value == "" {
			continue
		}
		status, ok := workflow.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		wanted[status] = true
	}
	jobs := s.daemon.workflow.List()
	if len(wanted) > 0 {
		filtered := jobs[:0]
		for _, job := range jobs {
			if wanted[job.Status] {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(jobs)})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	job, err := s.daemon.workflow.Submit(r.Context(), workflow.Submission{Files: req.Files, Options: req.Options})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.daemon.workflow.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	removeOutputs := truthy(r.URL.Query().Get("outputs"))
	if err := s.daemon.workflow.Delete(r.PathValue("id"), removeOutputs); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.daemon.workflow.Cancel(r.PathValue("id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) handleOutputs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	outputs, err := s.daemon.workflow.Outputs(id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.OutputsResponse{JobID: id, Outputs: api.FromOutputFiles(outputs)})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	jobID := strings.TrimSpace(query.Get("job"))
	wait := truthy(query.Get("wait"))

	ctx, cancel := context.WithTimeout(r.Context(), longPollLimit)
	defer cancel()
	events, next, err := s.daemon.workflow.Events().Fetch(ctx, since, limit, jobID, wait)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		// The long poll expired with nothing new.
		events, next = nil, max(since, next)
	}
	s.writeJSON(w, http.StatusOK, api.EventsResponse{Events: api.FromEvents(events), Next: next})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: []api.LogEvent{}})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := truthy(query.Get("follow"))
	jobID := strings.TrimSpace(query.Get("job"))
	component := strings.TrimSpace(query.Get("component"))
	minLevel := levelRank(query.Get("level"))

	var (
		events []logging.LogEvent
		next   uint64
	)
	if truthy(query.Get("tail")) && since == 0 && !follow {
		events, next = hub.Tail(limit)
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), longPollLimit)
		defer cancel()
		var err error
		events, next, err = hub.Fetch(ctx, since, limit, jobID, follow)
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			events, next = nil, max(since, next)
		}
	}

	filtered := make([]logging.LogEvent, 0, len(events))
	for _, evt := range events {
		if jobID != "" && evt.JobID != jobID {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		if levelRank(evt.Level) < minLevel {
			continue
		}
		filtered = append(filtered, evt)
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: api.FromLogEvents(filtered), Next: next})
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, message+": "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sent": sent, "message": message})
}

func levelRank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return 0
	case "WARN", "WARNING":
		return 2
	case "ERROR":
		return 3
	case "INFO":
		return 1
	default:
		return 0
	}
}

func truthy(value string) bool {
	return value == "1" || strings.EqualFold(value, "true") || strings.EqualFold(value, "yes")
}

// statusFor maps workflow and service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrJobProcessing), errors.Is(err, workflow.ErrJobFinished):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrFatalJob):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("api request failed", logging.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
