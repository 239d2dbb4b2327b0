package configuration

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.config")

// LoadOrDefault binds the config variable to the environment variable and registers the default value.
// A nil default marks the variable as required.
func LoadOrDefault(configVar string, envVar string, defaultVal any) {
	if defaultVal != nil {
		viper.SetDefault(configVar, defaultVal)
	}
	if err := viper.BindEnv(configVar, envVar); err != nil {
		log.Fatalf("failed to bind environment variable %s: %v", envVar, err)
	}
	if defaultVal == nil && !viper.IsSet(configVar) {
		log.Fatalf("required environment variable %s is not set", envVar)
	}
}

// SplitList splits a comma separated value and drops empty entries.
func SplitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
