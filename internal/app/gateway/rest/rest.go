package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dennishilgert/fnexec/pkg/health"
)

const DefaultBodyLimit = "4M"

type Options struct {
	ApiPort   int
	BodyLimit string
}

type RestServer interface {
	Run() error
	Ready(ctx context.Context) error
	Shutdown() error
	Handler() http.Handler
}

type restServer struct {
	apiPort int
	e       *echo.Echo
}

// NewRestServer creates the HTTP server with the API and health endpoints.
func NewRestServer(restHandler RestHandler, healthServer health.Server, opts Options) RestServer {
	bodyLimit := opts.BodyLimit
	if bodyLimit == "" {
		bodyLimit = DefaultBodyLimit
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))

	healthServer.Register(e)
	restHandler.RegisterHandlers(e)

	return &restServer{
		apiPort: opts.ApiPort,
		e:       e,
	}
}

func (s *restServer) Run() error {
	log.Infof("rest server listening on port %d", s.apiPort)
	if err := s.e.Start(fmt.Sprintf(":%d", s.apiPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error while starting rest server: %w", err)
	}
	return nil
}

// Ready waits until the server accepts connections.
func (s *restServer) Ready(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if addr := s.e.ListenerAddr(); addr != nil {
				conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
				if err == nil {
					conn.Close()
					return nil
				}
			}
		}
	}
}

func (s *restServer) Shutdown() error {
	ctx, ctxCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer ctxCancel()
	if err := s.e.Shutdown(ctx); err != nil {
		return fmt.Errorf("error while shutting down rest server: %w", err)
	}
	return nil
}

func (s *restServer) Handler() http.Handler {
	return s.e
}
