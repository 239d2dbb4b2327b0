// Package gateway exposes the function registry and the execution engine over HTTP.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/dennishilgert/fnexec/internal/app/executor"
	"github.com/dennishilgert/fnexec/internal/app/executor/controller"
	"github.com/dennishilgert/fnexec/internal/app/gateway/rest"
	"github.com/dennishilgert/fnexec/internal/app/recorder"
	"github.com/dennishilgert/fnexec/internal/app/registry"
	"github.com/dennishilgert/fnexec/pkg/concurrency/runner"
	"github.com/dennishilgert/fnexec/pkg/health"
	"github.com/dennishilgert/fnexec/pkg/logger"
	"github.com/dennishilgert/fnexec/pkg/metrics"
)

var log = logger.NewLogger("fnexec.gateway")

const healthTarget = "api"

type Options struct {
	ApiPort   int
	BodyLimit string
	// MetricsPath is the filesystem whose usage is reported by the health endpoint.
	MetricsPath string
}

type ApiGateway interface {
	Run(ctx context.Context) error
}

type apiGateway struct {
	restServer           rest.RestServer
	healthStatusProvider health.Provider
}

// HealthDetails is reported next to the health status.
type HealthDetails struct {
	Invocations controller.Stats     `json:"invocations"`
	Host        *metrics.HostMetrics `json:"host,omitempty"`
}

// NewApiGateway creates the HTTP gateway. history may be nil.
func NewApiGateway(functionRegistry registry.FunctionRegistry, exec executor.Executor, history recorder.History, opts Options) ApiGateway {
	healthStatusProvider := health.NewHealthStatusProvider(health.ProviderOptions{
		Targets: []string{healthTarget},
	})
	metricsService := metrics.NewMetricsService(opts.MetricsPath)
	healthServer := health.NewHealthServer(healthStatusProvider, func() any {
		return HealthDetails{
			Invocations: exec.Stats(),
			Host:        metricsService.HostMetrics(),
		}
	}, log)

	restServer := rest.NewRestServer(
		rest.NewRestHandler(functionRegistry, exec, history),
		healthServer,
		rest.Options{
			ApiPort:   opts.ApiPort,
			BodyLimit: opts.BodyLimit,
		},
	)

	return &apiGateway{
		restServer:           restServer,
		healthStatusProvider: healthStatusProvider,
	}
}

func (g *apiGateway) Run(ctx context.Context) error {
	manager := runner.NewRunnerManager()
	manager.Add("rest server", func(ctx context.Context) error {
		if err := g.restServer.Run(); err != nil {
			return fmt.Errorf("failed to start rest server: %w", err)
		}
		return nil
	})
	manager.Add("rest server readiness", func(ctx context.Context) error {
		readyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := g.restServer.Ready(readyCtx); err != nil {
			_ = g.restServer.Shutdown()
			return fmt.Errorf("rest server did not become ready in time: %w", err)
		}
		g.healthStatusProvider.Ready(healthTarget)
		log.Info("rest server started")

		// Wait for the main context to be done.
		<-ctx.Done()
		g.healthStatusProvider.NotReady(healthTarget)
		return g.restServer.Shutdown()
	})
	return manager.Run(ctx)
}
