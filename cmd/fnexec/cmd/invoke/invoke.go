package invoke

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dennishilgert/fnexec/cmd/fnexec/config"
	"github.com/dennishilgert/fnexec/internal/app/server"
	"github.com/dennishilgert/fnexec/pkg/defers"
	"github.com/dennishilgert/fnexec/pkg/flags"
	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/logger"
	"github.com/dennishilgert/fnexec/pkg/signals"
)

var log = logger.NewLogger("fnexec.cli.invoke")

var Command = &cobra.Command{
	Use:   "invoke",
	Short: "Invoke a function once",
	Long:  "Invoke a function from a spec file or a source file and print the invocation result as JSON",
	Run:   run,
}

var cmdFlags = ParseFlags()

func initFlags() {
	Command.Flags().AddFlagSet(cmdFlags.FlagSet().FlagSet())
	Command.MarkFlagsMutuallyExclusive("spec", "source")
	Command.MarkFlagsOneRequired("spec", "source")
}

func init() {
	initFlags()
}

func run(cobraCommand *cobra.Command, args []string) {
	logger.ReadAndApply(cobraCommand, log)
	os.Exit(processCommand())
}

func processCommand() int {
	f := cmdFlags.CommandFlags()

	spec, err := loadSpec(f)
	if err != nil {
		log.Error(err)
		return 1
	}
	arguments, err := flags.ReadValue(f.Arguments, os.Stdin)
	if err != nil {
		log.Errorf("failed to read --args: %v", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		log.Errorf("failed to load configuration: %v", err)
		return 1
	}

	ctx := signals.Context()
	cleanup := defers.NewDefers()
	defer func() {
		if err := cleanup.CallAll(); err != nil {
			log.Warnf("failed to release resources: %v", err)
		}
	}()

	engine, err := server.NewEngine(ctx, cfg.EngineOptions(), nil, cleanup)
	if err != nil {
		log.Errorf("failed to create execution engine: %v", err)
		return 1
	}

	result := engine.Executor.Execute(ctx, spec, json.RawMessage(arguments))
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Errorf("failed to encode result: %v", err)
		return 1
	}
	fmt.Println(string(output))

	if !result.Ok() {
		return 1
	}
	return 0
}

func loadSpec(f *commandFlags) (*function.Spec, error) {
	if f.SpecPath != "" {
		content, err := os.ReadFile(f.SpecPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read --spec: %w", err)
		}
		var spec function.Spec
		if err := json.Unmarshal(content, &spec); err != nil {
			return nil, fmt.Errorf("failed to decode --spec: %w", err)
		}
		if spec.SourcePath != "" && !filepath.IsAbs(spec.SourcePath) && !strings.Contains(spec.SourcePath, "://") {
			spec.SourcePath = filepath.Join(filepath.Dir(f.SpecPath), spec.SourcePath)
		}
		return function.New(spec)
	}

	sourcePath, err := filepath.Abs(f.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve --source: %w", err)
	}
	language, err := detectLanguage(f.Language, sourcePath)
	if err != nil {
		return nil, err
	}
	spec := function.Spec{
		Name:       functionName(sourcePath),
		Language:   language,
		SourcePath: sourcePath,
		EntryPoint: f.EntryPoint,
		TimeoutMs:  f.TimeoutMs,
	}
	if f.Schema != "" {
		schema, err := flags.ReadValue(f.Schema, os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read --schema: %w", err)
		}
		spec.ParameterSchema = json.RawMessage(schema)
	}
	return function.New(spec)
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

// functionName derives a valid function name from the source file name.
func functionName(sourcePath string) string {
	name := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if function.ValidName(name) {
		return name
	}
	return "function"
}
