package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
)

const (
	headerDelivery = "X-GitHub-Delivery"
	headerEvent    = "X-GitHub-Event"
)

type deliveryIDKey struct{}

// DeliveryID stores the GitHub delivery ID of the request in its context and
// echoes it in the response. Requests without one get a generated UUID, so a
// queued release run can always be traced back to the request that started it.
func DeliveryID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerDelivery)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerDelivery, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), deliveryIDKey{}, id)))
	})
}

// deliveryID returns the ID assigned by DeliveryID, falling back to the
// header or a fresh UUID when the middleware did not run
func deliveryID(r *http.Request) string {
	if id, ok := r.Context().Value(deliveryIDKey{}).(string); ok && id != "" {
		return id
	}
	if id := r.Header.Get(headerDelivery); id != "" {
		return id
	}
	return uuid.NewString()
}

// RequestLogger hands the server logger to handlers, tagged with the delivery
// ID and GitHub event of the request, and logs every request once it is served
func RequestLogger(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger := ctxlog.From(ctx).With("delivery_id", deliveryID(r))
			if event := r.Header.Get(headerEvent); event != "" {
				logger = logger.With("github_event", event)
			}
			r = r.WithContext(ctxlog.With(r.Context(), logger))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// writeJSON writes v as the response body with the given status
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(ctx).Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func writeError(ctx context.Context, w http.ResponseWriter, err error, status int) {
	writeJSON(ctx, w, status, map[string]string{"error": err.Error()})
}
