package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"grant_assistant/document"
	"grant_assistant/generator"
	"grant_assistant/logger"
)

const defaultGenerateTimeout = 2 * time.Minute

// Options carries the optional parts of a Server.
type Options struct {
	// Relay, when set, is mounted at POST /api/llm.
	Relay http.Handler
	// GenerateTimeout bounds each generate request. Zero uses two minutes.
	GenerateTimeout time.Duration
	Logger          *logger.Logger
}

type Server struct {
	store   *document.Store
	orch    *generator.Orchestrator
	models  *generator.ModelRegistry
	relay   http.Handler
	timeout time.Duration
	log     *logger.Logger
}

func New(store *document.Store, orch *generator.Orchestrator, models *generator.ModelRegistry, opts Options) (*Server, error) {
	if store == nil {
		return nil, errors.New("document store required")
	}
	if orch == nil {
		return nil, errors.New("generation orchestrator required")
	}
	if models == nil {
		return nil, errors.New("model registry required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	timeout := opts.GenerateTimeout
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &Server{
		store:   store,
		orch:    orch,
		models:  models,
		relay:   opts.Relay,
		timeout: timeout,
		log:     log.With("component", "server"),
	}, nil
}

func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	router.Use(s.logMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/application", s.handleGetApplication).Methods(http.MethodGet)
	api.HandleFunc("/application", s.handlePutApplication).Methods(http.MethodPut)

	api.HandleFunc("/questions/{id}", s.handleGetQuestion).Methods(http.MethodGet)
	api.HandleFunc("/questions/{id}/content", s.handleUpdateContent).Methods(http.MethodPut)
	api.HandleFunc("/questions/{id}/versions", s.handleCreateVersion).Methods(http.MethodPost)
	api.HandleFunc("/questions/{id}/current-version", s.handleSetCurrentVersion).Methods(http.MethodPut)
	api.HandleFunc("/questions/{id}/generate", s.handleGenerateContent).Methods(http.MethodPost)

	api.HandleFunc("/logframe", s.handleGetLogframe).Methods(http.MethodGet)
	api.HandleFunc("/logframe/goal", s.handleUpdateGoal).Methods(http.MethodPut)
	api.HandleFunc("/logframe/goal/generate", s.handleGenerateGoal).Methods(http.MethodPost)
	elementRoutes(s, api, "/logframe/outcomes",
		s.store.AddOutcome, s.store.UpdateOutcome, s.store.RemoveOutcome, s.orch.GenerateOutcome)
	elementRoutes(s, api, "/logframe/outputs",
		s.store.AddOutput, s.store.UpdateOutput, s.store.RemoveOutput, s.orch.GenerateOutput)
	elementRoutes(s, api, "/logframe/activities",
		s.store.AddActivity, s.store.UpdateActivity, s.store.RemoveActivity, s.orch.GenerateActivity)

	api.HandleFunc("/evaluations", s.handleListEvaluations).Methods(http.MethodGet)
	api.HandleFunc("/evaluations", s.handleAddEvaluation).Methods(http.MethodPost)

	api.HandleFunc("/models", s.handleListModels).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.handleGetPreferences).Methods(http.MethodGet)
	api.HandleFunc("/preferences/{context}", s.handleSetPreference).Methods(http.MethodPut)
	api.HandleFunc("/generation", s.handleGenerationStatus).Methods(http.MethodGet)

	if s.relay != nil {
		api.Handle("/llm", s.relay).Methods(http.MethodPost)
	}
	return router
}

// --- Helpers ---

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps domain errors onto HTTP status codes.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var be *generator.BackendError
	switch {
	case document.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, document.ErrNoActiveDocument), errors.Is(err, generator.ErrGenerationInProgress):
		status = http.StatusConflict
	case errors.Is(err, document.ErrInvalidSource):
		status = http.StatusBadRequest
	case errors.As(err, &be):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	respondError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
