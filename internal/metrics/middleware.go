package metrics

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// otherRoute labels requests that no mux route matched.
const otherRoute = "other"

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// routeOf returns the ServeMux pattern that served r. The mux fills in
// r.Pattern while dispatching, so this is only meaningful once next has
// returned, and only when no middleware between here and the mux copied
// the request.
func routeOf(r *http.Request) string {
	if r.Pattern == "" {
		return otherRoute
	}
	return r.Pattern
}

func methodOf(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return r.Method
	}
	return otherRoute
}

// HTTPMiddleware counts and times requests. It must wrap the ServeMux
// directly so the matched route is visible after dispatch.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.httpInFlight.Inc()
			defer reg.httpInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			reg.ObserveRequest(routeOf(r), methodOf(r), rec.status, time.Since(start))
		})
	}
}

// NewHandler serves /metrics and /healthz with request metrics and access
// logging applied.
func NewHandler(reg *Registry, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return LoggingMiddleware(logger)(HTTPMiddleware(reg)(mux))
}
