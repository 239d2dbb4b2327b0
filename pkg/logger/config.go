package logger

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

const (
	defaultJsonOutput = false
	defaultLogLevel   = "info"
	undefinedAppId    = ""
)

type Config struct {
	// AppId is the unique id of the fnexec application
	AppId string

	// LogJsonOutput defines the flag to enable JSON formatted log
	LogJsonOutput bool

	// LogLevel defines the level of logging
	LogLevel string
}

// DefaultConfig returns default configuration values.
func DefaultConfig() Config {
	return Config{
		LogJsonOutput: defaultJsonOutput,
		AppId:         undefinedAppId,
		LogLevel:      defaultLogLevel,
	}
}

// LoadConfig loads the logger configuration from the environment.
// A dedicated viper instance is used so the logger can be initialized before
// any application configuration is read.
func LoadConfig() Config {
	v := viper.New()
	defaults := DefaultConfig()

	v.SetDefault("AppId", defaults.AppId)
	v.SetDefault("LogJsonOutput", defaults.LogJsonOutput)
	v.SetDefault("LogLevel", defaults.LogLevel)
	_ = v.BindEnv("AppId", "FNEXEC_LOG_APP_ID")
	_ = v.BindEnv("LogJsonOutput", "FNEXEC_LOG_FORMAT_JSON")
	_ = v.BindEnv("LogLevel", "FNEXEC_LOG_LEVEL")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		fmt.Printf("unable to unmarshal logger config: %v\n", err)
		os.Exit(1)
	}

	return config
}

// ApplyConfigToLoggers applys options to all registered loggers.
func ApplyConfigToLoggers(config *Config) error {
	internalLoggers := getLoggers()

	// apply formatting options first
	for _, v := range internalLoggers {
		v.EnableJsonOutput(config.LogJsonOutput)

		if config.AppId != undefinedAppId {
			v.SetAppId(config.AppId)
		}
	}

	logLevel := toLogLevel(config.LogLevel)
	if logLevel == UndefinedLevel {
		return fmt.Errorf("invalid value for --log-level: %s", config.LogLevel)
	}

	for _, v := range internalLoggers {
		v.SetLogLevel(logLevel)
	}
	return nil
}
