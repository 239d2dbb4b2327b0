package health

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dennishilgert/fnexec/pkg/logger"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// StatusResponse is the body of a health status request.
type StatusResponse struct {
	Status  string `json:"status"`
	Details any    `json:"details,omitempty"`
}

type Server interface {
	Register(e *echo.Echo)
}

type healthServer struct {
	healthStatusProvider Provider
	details              func() any
	log                  logger.Logger
}

// NewHealthServer creates a new Server. details may be nil.
func NewHealthServer(provider Provider, details func() any, logger logger.Logger) Server {
	return &healthServer{
		healthStatusProvider: provider,
		details:              details,
		log:                  logger,
	}
}

// Register registers the health endpoint on the echo instance.
func (h *healthServer) Register(e *echo.Echo) {
	e.GET("/healthz", h.Status)
}

// Status returns the health status of the instance.
func (h *healthServer) Status(c echo.Context) error {
	response := StatusResponse{Status: StatusHealthy}
	code := http.StatusOK
	if !h.healthStatusProvider.Healthy() {
		response.Status = StatusUnhealthy
		code = http.StatusServiceUnavailable
	}
	if h.details != nil {
		response.Details = h.details()
	}
	h.log.Debugf("responding to health status request with health status: %s", response.Status)
	return c.JSON(code, response)
}
