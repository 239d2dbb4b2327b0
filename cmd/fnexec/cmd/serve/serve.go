package serve

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dennishilgert/fnexec/cmd/fnexec/config"
	"github.com/dennishilgert/fnexec/internal/app/server"
	"github.com/dennishilgert/fnexec/pkg/logger"
	"github.com/dennishilgert/fnexec/pkg/signals"
)

var log = logger.NewLogger("fnexec.cli.serve")

var Command = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Start the HTTP API for registering and invoking functions. The server is configured through FNEXEC_* environment variables.",
	Run:   run,
}

func run(cobraCommand *cobra.Command, args []string) {
	logger.ReadAndApply(cobraCommand, log)
	os.Exit(processCommand())
}

func processCommand() int {
	cfg, err := config.Load()
	if err != nil {
		log.Errorf("failed to load configuration: %v", err)
		return 1
	}
	log.Infof("log level set to: %s", log.LogLevel())

	ctx := signals.Context()
	srv, err := server.NewServer(ctx, cfg.ServerOptions())
	if err != nil {
		log.Errorf("error while creating server: %v", err)
		return 1
	}
	if err := srv.Run(ctx); err != nil {
		log.Errorf("error while running server: %v", err)
		return 1
	}

	log.Info("server shut down gracefully")
	return 0
}
