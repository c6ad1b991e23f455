// Package health exposes a /health endpoint aggregating the liveness of
// the storage and cache collaborators.
package health

import (
	"net/http"

	"github.com/formloom/formloom/pkg/logger"
	"go.uber.org/zap"
)

type (
	// Healther is implemented by components that can report liveness.
	// Implementations should answer quickly; the endpoint blocks on
	// every registered check.
	Healther interface {
		IsHealthy() bool
	}

	// HealthChecker aggregates multiple Healther implementations.
	HealthChecker struct {
		logger    *logger.Logger
		healthers []Healther
	}
)

func NewHealthChecker(logger *logger.Logger, healthers ...Healther) *HealthChecker {
	return &HealthChecker{
		healthers: healthers,
		logger:    logger,
	}
}

// HealthCheck reports 200 when every registered component is healthy,
// 500 otherwise.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ok := true

	for _, healther := range h.healthers {
		if !healther.IsHealthy() {
			ok = false
			h.logger.Error("health check failed")
		}
	}

	if ok {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	} else {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Not OK"))
	}
}

// StartHealthCheckServer serves the /health endpoint. Blocks; run it in
// its own goroutine.
func (h *HealthChecker) StartHealthCheckServer(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HealthCheck)

	h.logger.Info("Starting health check server", zap.String("port", port))

	return http.ListenAndServe(port, mux)
}
