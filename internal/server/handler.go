package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/schalkdaniel/distributed-lm/internal/coordinator"
	"github.com/schalkdaniel/distributed-lm/internal/events"
)

// Handler maps run IDs to open coordinator handles and exposes the
// initialize/advance/status/close lifecycle over HTTP.
type Handler struct {
	logger   hclog.Logger
	eventBus *events.EventBus

	mu   sync.Mutex
	runs map[string]*coordinator.Run
}

func NewHandler(logger hclog.Logger, eventBus *events.EventBus) *Handler {
	return &Handler{
		logger:   logger,
		eventBus: eventBus,
		runs:     map[string]*coordinator.Run{},
	}
}

// Register attaches the handler's routes to a router.
func (handler *Handler) Register(router *mux.Router) {
	router.HandleFunc("/runs", handler.InitializeRun).Methods(http.MethodPost)
	router.HandleFunc("/runs/{runId}/advance", handler.AdvanceRun).Methods(http.MethodPost)
	router.HandleFunc("/runs/{runId}/status", handler.RunStatus).Methods(http.MethodGet)
	router.HandleFunc("/runs/{runId}", handler.CloseRun).Methods(http.MethodDelete)
}

func (handler *Handler) InitializeRun(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	request := &InitializeRunRequest{}
	if err := fromJSON(request, r.Body); err != nil {
		handler.logger.Error("error decoding initialize request", "error", err)
		rw.WriteHeader(http.StatusBadRequest)
		return
	}

	run, err := coordinator.Initialize(request.Dir, request.Config, request.Overwrite, handler.logger, handler.eventBus)
	if err != nil {
		handler.writeError(rw, "error initializing run", err)
		return
	}

	runId := uuid.New().String()
	handler.mu.Lock()
	handler.runs[runId] = run
	handler.mu.Unlock()

	handler.logger.Info(fmt.Sprintf("Initialized run %s in %s", runId, request.Dir))

	rw.WriteHeader(http.StatusOK)
	toJSON(runId, rw)
}

func (handler *Handler) AdvanceRun(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	run, ok := handler.run(r)
	if !ok {
		rw.WriteHeader(http.StatusBadRequest)
		toJSON("no run with the given ID", rw)
		return
	}

	request := &AdvanceRunRequest{Steps: 1}
	if err := fromJSON(request, r.Body); err != nil && !errors.Is(err, io.EOF) {
		handler.logger.Error("error decoding advance request", "error", err)
		rw.WriteHeader(http.StatusBadRequest)
		return
	}

	outcome, err := run.Advance(request.Steps, request.Verbose)
	if err != nil {
		handler.writeError(rw, "error advancing run", err)
		return
	}

	rw.WriteHeader(http.StatusOK)
	toJSON(outcome, rw)
}

func (handler *Handler) RunStatus(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	run, ok := handler.run(r)
	if !ok {
		rw.WriteHeader(http.StatusBadRequest)
		toJSON("no run with the given ID", rw)
		return
	}

	status, err := run.Status()
	if err != nil {
		handler.writeError(rw, "error reading run status", err)
		return
	}

	rw.WriteHeader(http.StatusOK)
	toJSON(status, rw)
}

func (handler *Handler) CloseRun(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	runId := getURLParameter(r, "runId")

	handler.mu.Lock()
	run := handler.runs[runId]
	delete(handler.runs, runId)
	handler.mu.Unlock()

	if run == nil {
		rw.WriteHeader(http.StatusBadRequest)
		toJSON("no run with the given ID", rw)
		return
	}

	if err := run.Close(); err != nil {
		handler.writeError(rw, "error closing run", err)
		return
	}

	handler.logger.Info(fmt.Sprintf("Closed run %s", runId))
	rw.WriteHeader(http.StatusOK)
}

func (handler *Handler) run(r *http.Request) (*coordinator.Run, bool) {
	runId := getURLParameter(r, "runId")

	handler.mu.Lock()
	run, ok := handler.runs[runId]
	handler.mu.Unlock()

	return run, ok
}

func (handler *Handler) writeError(rw http.ResponseWriter, message string, err error) {
	handler.logger.Error(message, "error", err)

	var configErr *coordinator.ConfigurationError
	if errors.As(err, &configErr) {
		rw.WriteHeader(http.StatusBadRequest)
	} else {
		rw.WriteHeader(http.StatusInternalServerError)
	}
	toJSON(err.Error(), rw)
}

func getURLParameter(r *http.Request, parameter string) string {
	vars := mux.Vars(r)
	id := vars[parameter]
	return id
}
