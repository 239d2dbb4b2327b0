package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennishilgert/fnexec/pkg/logger"
)

func TestProviderBecomesHealthyWhenAllTargetsAreReady(t *testing.T) {
	provider := NewHealthStatusProvider(ProviderOptions{Targets: []string{"api", "recorder"}})
	assert.False(t, provider.Healthy())
	provider.Ready("api")
	provider.Ready("unknown")
	assert.False(t, provider.Healthy())
	provider.Ready("recorder")
	assert.True(t, provider.Healthy())
	provider.NotReady("api")
	assert.False(t, provider.Healthy())
}

func TestHealthEndpoint(t *testing.T) {
	provider := NewHealthStatusProvider(ProviderOptions{Targets: []string{"api"}})
	e := echo.New()
	NewHealthServer(provider, func() any { return map[string]int{"running": 0} }, logger.NewLogger("fnexec.health.test")).Register(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	provider.Ready("api")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var response StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, map[string]any{"running": float64(0)}, response.Details)
}
