package http

import (
	"net/http"

	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
)

// QueueMonitor exposes the state of the release run queue
type QueueMonitor interface {
	Status() model.QueueStatus
}

type healthHandler struct {
	queue QueueMonitor
}

// ServeHTTP reports the server as healthy while its queue accepts runs. A
// closed queue means the server is draining for shutdown and answers 503 so
// load balancers stop sending webhooks.
func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := &model.HealthStatus{
		Status:  "healthy",
		Service: "dockrel",
		Version: types.Version,
	}
	code := http.StatusOK

	if h.queue != nil {
		qs := h.queue.Status()
		status.Queue = &qs
		if qs.Closed {
			status.Status = "draining"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(r.Context(), w, code, status)
}
