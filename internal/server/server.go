// Package server exposes the dashboard over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cybersentinel/internal/logger"
	"cybersentinel/internal/view"
	"cybersentinel/internal/workflow"
	"cybersentinel/pkg/models"
)

// Workflow is the orchestrator surface the server drives.
type Workflow interface {
	Trigger(ctx context.Context, action workflow.Action) (workflow.Result, error)
	Reset(ctx context.Context) (workflow.Result, error)
	Current() *models.Dataset
	Busy() bool
}

// Server routes dashboard requests.
type Server struct {
	r        *chi.Mux
	workflow Workflow
	hub      *Hub
	gatherer prometheus.Gatherer
}

// NewServer creates the router. hub and gatherer may be nil to leave /ws
// and /metrics unmounted.
func NewServer(wf Workflow, hub *Hub, gatherer prometheus.Gatherer) *Server {
	s := &Server{r: chi.NewRouter(), workflow: wf, hub: hub, gatherer: gatherer}

	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(middleware.Recoverer)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.r.Route("/api", func(r chi.Router) {
		r.Get("/dataset", s.getDataset)
		r.Get("/view", s.getView)
		r.Post("/actions/{action}", s.postAction)
		r.Post("/reset", s.postReset)
	})

	if s.gatherer != nil {
		s.r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.hub != nil {
		s.r.Get("/ws", s.serveWS)
		s.r.Get("/api/events", s.getEvents)
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.r }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	d := s.workflow.Current()
	if d == nil {
		writeError(w, http.StatusServiceUnavailable, workflow.ErrNoDataset)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	d := s.workflow.Current()
	if d == nil {
		writeError(w, http.StatusServiceUnavailable, workflow.ErrNoDataset)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"busy": s.workflow.Busy(),
		"view": view.Project(d),
	})
}

// getEvents returns the retained view events, the same batch a websocket
// client receives on connect.
func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Snapshot())
}

func (s *Server) postAction(w http.ResponseWriter, r *http.Request) {
	action, err := workflow.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.run(w, r, func(ctx context.Context) (workflow.Result, error) {
		return s.workflow.Trigger(ctx, action)
	})
}

func (s *Server) postReset(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, s.workflow.Reset)
}

// run executes a step detached from the request so a client hanging up
// does not abandon it.
func (s *Server) run(w http.ResponseWriter, r *http.Request, step func(context.Context) (workflow.Result, error)) {
	res, err := step(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, func(msg []byte) {
		var req struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			logger.Debugf("Ignoring websocket message: %v", err)
			return
		}
		action, err := workflow.ParseAction(req.Action)
		if err != nil {
			logger.Debugf("Ignoring websocket message: %v", err)
			return
		}
		go func() {
			if _, err := s.workflow.Trigger(context.Background(), action); err != nil {
				logger.Debugf("Websocket trigger %s: %v", action, err)
			}
		}()
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrNoDataset):
		return http.StatusServiceUnavailable
	case errors.Is(err, workflow.ErrUnknownAction):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Get().Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
