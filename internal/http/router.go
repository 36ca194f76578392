package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router standard library http.ServeMux; every handler dispatches on its own path prefix.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler (metrics etc.)
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(sw, req)
	r.logger.Debug("HTTP request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", sw.status),
		zap.Duration("elapsed", time.Since(start)))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (r *Router) RegisterImportRoutes(h *ImportHandler) {
	r.HandleHandler("/api/v1/imports/", h)
}

func (r *Router) RegisterAssignmentRoutes(h *AssignmentHandler) {
	r.HandleHandler("/api/v1/assignments", h)
	r.HandleHandler("/api/v1/assignments/", h)
	r.HandleHandler("/api/v1/volunteers", h)
}

func (r *Router) RegisterCallerRoutes(h *CallerHandler) {
	r.HandleHandler("/api/v1/me/", h)
}

func (r *Router) RegisterTerritoryRoutes(h *TerritoryHandler) {
	r.HandleHandler("/api/v1/territories", h)
	r.HandleHandler("/api/v1/territories/", h)
}

// RegisterOpsRoutes ping may be nil.
func (r *Router) RegisterOpsRoutes(metrics http.Handler, ping func(req *http.Request) error) {
	r.HandleHandler("/metrics", metrics)
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if ping != nil {
			if err := ping(req); err != nil {
				r.logger.Warn("Health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, Fail("unhealthy"))
				return
			}
		}
		writeJSON(w, http.StatusOK, Ok("healthy"))
	})
}
