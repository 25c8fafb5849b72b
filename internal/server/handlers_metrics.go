package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsHandler serves the default Prometheus registry, which the
// internal/metrics package registers its collectors against, in the
// text exposition format a Prometheus server scrapes directly.
var metricsHandler = promhttp.Handler()

// getMetrics handles GET /metrics.
func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	metricsHandler.ServeHTTP(w, r)
}
