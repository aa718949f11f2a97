package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/knowsyapp/knowsy-server/internal/services"
)

type MetricsHandler struct {
	metrics *services.Metrics
	token   string
}

// NewMetricsHandler guards the metrics endpoint with a bearer token when
// one is configured; an empty token leaves it open (development).
func NewMetricsHandler(metrics *services.Metrics, token string) *MetricsHandler {
	return &MetricsHandler{
		metrics: metrics,
		token:   token,
	}
}

func (h *MetricsHandler) GetMetrics(re *core.RequestEvent) error {
	if h.token != "" {
		auth := re.Request.Header.Get("Authorization")
		expected := "Bearer " + h.token
		if subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) != 1 {
			return re.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
	}

	return re.JSON(http.StatusOK, h.metrics.Snapshot())
}
