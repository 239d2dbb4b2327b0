package configuration

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadOrDefault(t *testing.T) {
	LoadOrDefault("TestDefaulted", "FNEXEC_TEST_DEFAULTED", 42)
	assert.Equal(t, 42, viper.GetInt("TestDefaulted"))

	t.Setenv("FNEXEC_TEST_OVERRIDDEN", "7")
	LoadOrDefault("TestOverridden", "FNEXEC_TEST_OVERRIDDEN", 42)
	assert.Equal(t, 7, viper.GetInt("TestOverridden"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"PATH", "GOPATH"}, SplitList("PATH, GOPATH,,"))
	assert.Empty(t, SplitList(""))
}
