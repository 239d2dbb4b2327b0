package flags

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "args.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"x": 1}`), 0o644))

	value, err := ReadValue(`{"x": 2}`, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"x": 2}`, value)

	value, err = ReadValue("@"+path, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"x": 1}`, value)

	value, err = ReadValue("-", strings.NewReader(`{"x": 3}`))
	require.NoError(t, err)
	assert.Equal(t, `{"x": 3}`, value)

	_, err = ReadValue("@"+filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestFlagParserSortsFlags(t *testing.T) {
	parser := NewFlagParser("test")
	assert.True(t, parser.FlagSet().SortFlags)
}
