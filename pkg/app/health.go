package app

import (
	"context"
	"net/http"
	"time"

	"concierge/pkg/contracts"
	httputil "concierge/pkg/http"
	"concierge/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const readinessTimeout = 2 * time.Second

type HealthHandler struct {
	deps []contracts.Dependency
	log  *logger.Logger
}

func NewHealthHandler(log *logger.Logger, deps ...contracts.Dependency) *HealthHandler {
	return &HealthHandler{deps: deps, log: log}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	h.write(w, "Health", http.StatusOK, httputil.StatusResponse{Status: "ok"})
}

// Ready pings every dependency and reports each result.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := httputil.StatusResponse{Status: "ready", Checks: map[string]string{}}
	status := http.StatusOK
	for _, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.log.Error("Dependency health check failed",
				"dependency", dep.Name(),
				"error", err,
				"path", r.URL.Path,
			)
			resp.Checks[dep.Name()] = "error"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[dep.Name()] = "ok"
	}

	h.write(w, "Ready", status, resp)
}

func (h *HealthHandler) write(w http.ResponseWriter, handler string, status int, resp httputil.StatusResponse) {
	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
