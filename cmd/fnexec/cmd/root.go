package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dennishilgert/fnexec/cmd/fnexec/cmd/invoke"
	"github.com/dennishilgert/fnexec/cmd/fnexec/cmd/resolve"
	"github.com/dennishilgert/fnexec/cmd/fnexec/cmd/serve"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.cli")

var rootCommand = &cobra.Command{
	Use:   "fnexec",
	Short: "Run user functions in isolated processes",
	Long:  "fnexec registers small functions written in Python, JavaScript or Go and executes them in short-lived child processes",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

var logFlags = logger.ParseFlags()

func initFlags() {
	rootCommand.PersistentFlags().AddFlagSet(logFlags.FlagSet())
}

func init() {
	initFlags()

	rootCommand.AddCommand(serve.Command)
	rootCommand.AddCommand(invoke.Command)
	rootCommand.AddCommand(resolve.Command)
}

func Run() {
	// Load environment variables from .env file for local development.
	godotenv.Load()

	if err := rootCommand.Execute(); err != nil {
		log.Fatal(err)
	}
}
