package executor

import (
	"encoding/json"
	"time"

	"github.com/dennishilgert/fnexec/internal/app/executor/validation"
)

// FailureKind classifies why an invocation did not produce a value.
type FailureKind string

const (
	// FailureValidationFailed means the arguments do not match the parameter schema.
	FailureValidationFailed FailureKind = "ValidationFailed"
	// FailureEntryPointNotFound means the entry point is not declared in the source.
	FailureEntryPointNotFound FailureKind = "EntryPointNotFound"
	// FailureProcessNonZeroExit means the function raised an error or crashed.
	FailureProcessNonZeroExit FailureKind = "ProcessNonZeroExit"
	// FailureTimeout means the function ran out of time or the caller cancelled.
	FailureTimeout FailureKind = "Timeout"
	// FailureMalformedOutput means the function exited cleanly without a decodable result.
	FailureMalformedOutput FailureKind = "MalformedOutput"
	// FailureInternalError means the engine itself failed.
	FailureInternalError FailureKind = "InternalError"
)

// FailureKinds returns all failure kinds.
func FailureKinds() []FailureKind {
	return []FailureKind{
		FailureValidationFailed,
		FailureEntryPointNotFound,
		FailureProcessNonZeroExit,
		FailureTimeout,
		FailureMalformedOutput,
		FailureInternalError,
	}
}

type Failure struct {
	Kind       FailureKind            `json:"kind"`
	Detail     string                 `json:"detail,omitempty"`
	Violations []validation.Violation `json:"violations,omitempty"`
	Available  []string               `json:"available,omitempty"`
}

// Result is either a value or a failure, never both.
type Result struct {
	InvocationId string          `json:"invocationId"`
	Value        json.RawMessage `json:"ok,omitempty"`
	Failure      *Failure        `json:"failure,omitempty"`
	Duration     time.Duration   `json:"-"`
	DurationMs   int64           `json:"durationMs"`
}

// Ok reports whether the invocation produced a value.
func (r *Result) Ok() bool {
	return r.Failure == nil
}

// Kind returns the failure kind, or "Ok".
func (r *Result) Kind() string {
	if r.Failure == nil {
		return "Ok"
	}
	return string(r.Failure.Kind)
}

func succeeded(value json.RawMessage) *Result {
	return &Result{Value: value}
}

func failed(kind FailureKind, detail string) *Result {
	return &Result{Failure: &Failure{Kind: kind, Detail: detail}}
}
