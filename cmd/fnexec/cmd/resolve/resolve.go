package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dennishilgert/fnexec/internal/app/executor"
	"github.com/dennishilgert/fnexec/internal/app/executor/resolver"
	runtimeregistry "github.com/dennishilgert/fnexec/internal/app/executor/runtimes/registry"
	"github.com/dennishilgert/fnexec/pkg/flags"
	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.cli.resolve")

var Command = &cobra.Command{
	Use:   "resolve <source file>",
	Short: "List the entry points of a source file",
	Long:  "List the callable entry points a source file declares, optionally checking that a given one exists",
	Args:  cobra.ExactArgs(1),
	Run:   run,
}

var (
	language   string
	entryPoint string
)

func initFlags() {
	parser := flags.NewFlagParser("resolve")
	parser.FlagSet().StringVar(&language, "language", "", "Language of the source, detected from the file extension when empty")
	parser.FlagSet().StringVar(&entryPoint, "entry-point", "", "Entry point that must exist")
	Command.Flags().AddFlagSet(parser.FlagSet())
}

func init() {
	initFlags()
}

func run(cobraCommand *cobra.Command, args []string) {
	logger.ReadAndApply(cobraCommand, log)
	os.Exit(processCommand(args[0]))
}

type output struct {
	Language    function.Language    `json:"language"`
	EntryPoints []string             `json:"entryPoints"`
	Resolution  *resolver.Resolution `json:"resolution,omitempty"`
}

func processCommand(sourcePath string) int {
	lang, err := detectLanguage(language, sourcePath)
	if err != nil {
		log.Error(err)
		return 1
	}
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		log.Errorf("failed to read source: %v", err)
		return 1
	}

	runtimes := runtimeregistry.NewRegistry(runtimeregistry.Options{})
	r := resolver.NewResolver(resolver.Options{Runtimes: runtimes})
	ctx := context.Background()

	names, err := r.EntryPoints(ctx, "", lang, string(source))
	if err != nil {
		log.Errorf("failed to resolve entry points: %v", err)
		return 1
	}
	result := output{Language: lang, EntryPoints: names}

	exitCode := 0
	if entryPoint != "" {
		resolution, err := r.Resolve(ctx, "", lang, string(source), entryPoint)
		if err != nil {
			log.Errorf("failed to resolve entry point: %v", err)
			return 1
		}
		result.Resolution = &resolution
		if !resolution.Found {
			log.Error(executor.NotFoundDetail(entryPoint, resolution.Available))
			exitCode = 1
		}
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Errorf("failed to encode output: %v", err)
		return 1
	}
	fmt.Println(string(encoded))
	return exitCode
}

func detectLanguage(value string, sourcePath string) (function.Language, error) {
	if value != "" {
		return function.ParseLanguage(value)
	}
	language, err := function.LanguageFromPath(sourcePath)
	if err != nil {
		return "", fmt.Errorf("%w, set --language", err)
	}
	return language, nil
}
