package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dennishilgert/fnexec/internal/app/executor/controller"
)

const maxDetailBytes = 4 << 10

const (
	detailCancelled = "cancelled"
	detailNoResult  = "function exited without producing a result"
	detailBadResult = "function returned a value that is not valid JSON"
	detailNoStderr  = "function exited with status %d"
	detailTimeout   = "function did not finish within %s"
	truncatedSuffix = "... (truncated)"
)

// errorPayload is what harnesses write to stderr when user code fails.
type errorPayload struct {
	Error *string `json:"error"`
}

// Classify maps what the controller observed onto a result. A timeout takes
// precedence over the exit code, and a crash report over partial output.
func Classify(outcome *controller.Outcome, timeout time.Duration) *Result {
	switch outcome.State {
	case controller.StateTimedOut:
		return failed(FailureTimeout, fmt.Sprintf(detailTimeout, timeout))
	case controller.StateCancelled:
		return failed(FailureTimeout, detailCancelled)
	}

	if outcome.ExitCode != 0 {
		if message, ok := decodeError(outcome.Stderr); ok {
			return failed(FailureProcessNonZeroExit, bound(message))
		}
		raw := strings.TrimSpace(string(outcome.Stderr))
		if raw == "" {
			raw = fmt.Sprintf(detailNoStderr, outcome.ExitCode)
		}
		return failed(FailureProcessNonZeroExit, bound(raw))
	}

	if outcome.ResultErr != nil || len(outcome.Result) == 0 {
		return failed(FailureMalformedOutput, detailNoResult)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, outcome.Result); err != nil {
		return failed(FailureMalformedOutput, detailBadResult)
	}
	return succeeded(json.RawMessage(compact.Bytes()))
}

// decodeError finds the last structured error line on stderr. Toolchains may
// print more after it, e.g. "exit status 1" from go run.
func decodeError(stderr []byte) (string, bool) {
	lines := bytes.Split(stderr, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var payload errorPayload
		if err := json.Unmarshal(line, &payload); err != nil || payload.Error == nil {
			continue
		}
		return *payload.Error, true
	}
	return "", false
}

// bound limits a detail to maxDetailBytes without splitting a rune.
func bound(s string) string {
	if len(s) <= maxDetailBytes {
		return s
	}
	cut := maxDetailBytes - len(truncatedSuffix)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedSuffix
}
