package controllers

import (
	"net/http"

	"github.com/rzbill/bee/internal/runtime"
)

// GeneralController serves health and the status snapshot.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/status", c.handleStatus)
}

// handleHealth returns 200 {"status":"ok"} when the store answers a ping,
// 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleStatus reports the current writer and both queue lengths.
func (c *GeneralController) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	st, err := c.rt.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to read status")
		return
	}
	cfg := c.rt.Config()
	writeJSON(w, statusResponse{
		Status:    st,
		LeaseMode: c.rt.LeaseMode().String(),
		Keys: keysResponse{
			Messages: cfg.MessagesKey(),
			Writer:   cfg.WriterKey(),
			Errors:   cfg.ErrorsKey(),
		},
	})
}
