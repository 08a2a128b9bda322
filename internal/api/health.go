package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/storage"
)

// HealthHandler backs the ambient liveness/readiness surface (spec.md §4a).
type HealthHandler struct {
	store storage.Store
	bus   eventbus.Bus
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(store storage.Store, bus eventbus.Bus) *HealthHandler {
	return &HealthHandler{store: store, bus: bus}
}

// Live handles GET /healthz: the process is up, nothing more.
func (h *HealthHandler) Live(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Ready handles GET /readyz: the store and event bus are both reachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	ready := true

	if _, err := h.store.Projects().List(c.Request.Context()); err != nil {
		checks["storage"] = err.Error()
		ready = false
	} else {
		checks["storage"] = "ok"
	}

	if h.bus.IsConnected() {
		checks["eventBus"] = "ok"
	} else {
		checks["eventBus"] = "disconnected"
		ready = false
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}
