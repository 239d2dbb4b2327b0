package executor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dennishilgert/fnexec/internal/app/executor/controller"
	"github.com/dennishilgert/fnexec/internal/app/executor/protocol"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		outcome controller.Outcome
		kind    FailureKind
		value   string
		detail  string
	}{
		{
			name:    "success",
			outcome: controller.Outcome{State: controller.StateCompleted, Result: []byte(`{"a": 1, "b": [1, 2]}`)},
			value:   `{"a":1,"b":[1,2]}`,
		},
		{
			name:    "null is a value",
			outcome: controller.Outcome{State: controller.StateCompleted, Result: []byte(`null`)},
			value:   `null`,
		},
		{
			name: "timeout wins over exit code",
			outcome: controller.Outcome{
				State:    controller.StateTimedOut,
				ExitCode: -1,
				Stderr:   []byte(`{"error": "killed"}`),
			},
			kind:   FailureTimeout,
			detail: "500ms",
		},
		{
			name:    "cancellation is a timeout",
			outcome: controller.Outcome{State: controller.StateCancelled, ExitCode: -1},
			kind:    FailureTimeout,
			detail:  "cancelled",
		},
		{
			name: "structured error",
			outcome: controller.Outcome{
				State:    controller.StateCompleted,
				ExitCode: 1,
				Stderr:   []byte("some warning\n{\"error\": \"bad input\"}\nexit status 1\n"),
			},
			kind:   FailureProcessNonZeroExit,
			detail: "bad input",
		},
		{
			name: "crash report wins over partial output",
			outcome: controller.Outcome{
				State:    controller.StateCompleted,
				ExitCode: 2,
				Result:   []byte(`1`),
				Stderr:   []byte("Segmentation fault"),
			},
			kind:   FailureProcessNonZeroExit,
			detail: "Segmentation fault",
		},
		{
			name:    "silent crash",
			outcome: controller.Outcome{State: controller.StateCompleted, ExitCode: 137},
			kind:    FailureProcessNonZeroExit,
			detail:  "status 137",
		},
		{
			name: "missing frame",
			outcome: controller.Outcome{
				State:     controller.StateCompleted,
				Stdout:    []byte(`{"looks": "like json"}`),
				ResultErr: protocol.ErrNoFrame,
			},
			kind:   FailureMalformedOutput,
			detail: "without producing a result",
		},
		{
			name:    "non finite number",
			outcome: controller.Outcome{State: controller.StateCompleted, Result: []byte(`{"v": NaN}`)},
			kind:    FailureMalformedOutput,
			detail:  "not valid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := tt.outcome
			result := Classify(&outcome, 500*time.Millisecond)
			if tt.kind == "" {
				assert.True(t, result.Ok())
				assert.Equal(t, tt.value, string(result.Value))
				return
			}
			if assert.NotNil(t, result.Failure) {
				assert.Equal(t, tt.kind, result.Failure.Kind)
				assert.Contains(t, result.Failure.Detail, tt.detail)
			}
			assert.Nil(t, result.Value)
		})
	}
}

func TestClassifyMalformedDoesNotLeakStdout(t *testing.T) {
	result := Classify(&controller.Outcome{
		State:     controller.StateCompleted,
		Stdout:    []byte("secret diagnostic output"),
		ResultErr: protocol.ErrIncompleteFrame,
	}, time.Second)

	assert.Equal(t, FailureMalformedOutput, result.Failure.Kind)
	assert.NotContains(t, result.Failure.Detail, "secret")
}

func TestClassifyBoundsRawStderr(t *testing.T) {
	stderr := strings.Repeat("é", maxDetailBytes)
	result := Classify(&controller.Outcome{State: controller.StateCompleted, ExitCode: 1, Stderr: []byte(stderr)}, time.Second)

	assert.LessOrEqual(t, len(result.Failure.Detail), maxDetailBytes)
	assert.True(t, strings.HasSuffix(result.Failure.Detail, truncatedSuffix))
	assert.True(t, strings.HasPrefix(result.Failure.Detail, "éé"))
}

func TestDecodeError(t *testing.T) {
	message, ok := decodeError([]byte("{\"error\": \"first\"}\n{\"error\": \"last\"}\n"))
	assert.True(t, ok)
	assert.Equal(t, "last", message)

	_, ok = decodeError([]byte("{\"message\": \"no error key\"}\n"))
	assert.False(t, ok)

	message, ok = decodeError([]byte(`{"error": ""}`))
	assert.True(t, ok)
	assert.Equal(t, "", message)
}
