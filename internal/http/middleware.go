package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/whitewolf2000ani/hiperhealth/internal/telemetry"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records a counter and latency histogram per request,
// labeled by the mux route template rather than the raw path.
func metricsMiddleware(metrics *telemetry.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if template, err := current.GetPathTemplate(); err == nil {
					route = template
				}
			}
			metrics.RecordHTTPRequest(r.Context(), r.Method, route, recorder.status,
				float64(time.Since(start).Milliseconds()))
		})
	}
}
