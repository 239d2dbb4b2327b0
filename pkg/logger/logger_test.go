package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerIsShared(t *testing.T) {
	assert.Same(t, NewLogger("fnexec.test.shared"), NewLogger("fnexec.test.shared"))
}

func TestInvocationLogIsStructured(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("fnexec.test.json")
	l.SetOutput(&buf)
	l.EnableJsonOutput(true)

	ForInvocation(l, "inv-1", "math_utils").Info("invocation succeeded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fnexec.test.json", entry[logFieldScope])
	assert.Equal(t, LogTypeInvocation, entry[logFieldType])
	assert.Equal(t, "math_utils", entry[FieldFunction])
	assert.Equal(t, "inv-1", entry[FieldInvocation])
	assert.Equal(t, "invocation succeeded", entry[logFieldMessage])
}

func TestApplyConfigToLoggers(t *testing.T) {
	l := NewLogger("fnexec.test.level")

	require.NoError(t, ApplyConfigToLoggers(&Config{LogLevel: "debug"}))
	assert.True(t, l.IsLogLevelEnabled(DebugLevel))

	assert.Error(t, ApplyConfigToLoggers(&Config{LogLevel: "verbose"}))

	require.NoError(t, ApplyConfigToLoggers(&Config{LogLevel: "info"}))
	assert.False(t, l.IsLogLevelEnabled(DebugLevel))
}

func TestFromContextOr(t *testing.T) {
	fallback := NewLogger("fnexec.test.fallback")
	carried := NewLogger("fnexec.test.carried")

	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Same(t, carried, FromContextOr(NewContext(context.Background(), carried), fallback))
}
