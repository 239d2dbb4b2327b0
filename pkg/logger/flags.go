package logger

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type loggingFlags struct {
	Config Config
}

type parsedFlags struct {
	logFlags *loggingFlags
	flagSet  *pflag.FlagSet
}

func ParseFlags() *parsedFlags {
	var f loggingFlags

	fs := pflag.NewFlagSet("logging", pflag.ExitOnError)
	fs.SortFlags = true

	fs.StringVar(&f.Config.AppId, "log-app-id", config.AppId, "App id that should be displayed in the logs")
	fs.StringVar(&f.Config.LogLevel, "log-level", config.LogLevel, "Log level for which the logs should be displayed")
	fs.BoolVar(&f.Config.LogJsonOutput, "log-json-out", config.LogJsonOutput, "Wether the log output should be printed in json format or not")

	return &parsedFlags{
		logFlags: &f,
		flagSet:  fs,
	}
}

// ReadAndApply reads the logging flags of the command and applies them to all registered loggers.
func ReadAndApply(command *cobra.Command, logger Logger) {
	appId, err := command.Flags().GetString("log-app-id")
	if err != nil {
		logger.Fatalf("failed to apply logger configuration: %v", err)
	}
	logLevel, err := command.Flags().GetString("log-level")
	if err != nil {
		logger.Fatalf("failed to apply logger configuration: %v", err)
	}
	logJsonOut, err := command.Flags().GetBool("log-json-out")
	if err != nil {
		logger.Fatalf("failed to apply logger configuration: %v", err)
	}
	if err := ApplyConfigToLoggers(&Config{
		AppId:         appId,
		LogLevel:      logLevel,
		LogJsonOutput: logJsonOut,
	}); err != nil {
		logger.Fatalf("failed to apply logger configuration: %v", err)
	}
}

func (p *parsedFlags) LoggingFlags() *loggingFlags {
	return p.logFlags
}

func (p *parsedFlags) FlagSet() *pflag.FlagSet {
	return p.flagSet
}
