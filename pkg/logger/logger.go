package logger

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Log types tag every entry so invocation and request logs can be filtered
// from the service log.
const (
	LogTypeLog        = "log"
	LogTypeRequest    = "request"
	LogTypeInvocation = "invocation"
)

// Invocation fields shared by the executor, the controller and the recorder.
const (
	FieldInvocation = "invocation"
	FieldFunction   = "function"
)

const (
	logFieldTimeStamp = "time"
	logFieldLevel     = "level"
	logFieldType      = "type"
	logFieldScope     = "scope"
	logFieldMessage   = "msg"
	logFieldInstance  = "instance"
	logFieldVersion   = "ver"
	logFieldAppId     = "app_id"
)

// LogLevel is one of the levels accepted by --log-level.
type LogLevel string

const (
	DebugLevel     LogLevel = "debug"
	InfoLevel      LogLevel = "info"
	WarnLevel      LogLevel = "warn"
	ErrorLevel     LogLevel = "error"
	FatalLevel     LogLevel = "fatal"
	UndefinedLevel LogLevel = "undefined"
)

type Logger interface {
	EnableJsonOutput(enabled bool)
	SetAppId(id string)
	SetLogLevel(logLevel LogLevel)
	LogLevel() string
	SetOutput(dst io.Writer)
	IsLogLevelEnabled(level LogLevel) bool

	// WithLogType returns a logger tagging its entries with logType.
	WithLogType(logType string) Logger

	// WithFields returns a logger with the added structured fields.
	WithFields(fields map[string]any) Logger

	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	// Fatal logs and exits the process with status 1.
	Fatal(args ...interface{})
	// Fatalf logs and exits the process with status 1.
	Fatalf(format string, args ...interface{})
}

var (
	config = LoadConfig()

	registry     = map[string]Logger{}
	registryLock sync.RWMutex
)

// NewLogger returns the logger registered under name, creating it with the
// environment configuration on first use.
func NewLogger(name string) Logger {
	registryLock.Lock()
	defer registryLock.Unlock()

	if l, ok := registry[name]; ok {
		return l
	}
	l := newFnexecLogger(name)
	l.SetAppId(config.AppId)
	l.SetLogLevel(toLogLevel(config.LogLevel))
	l.EnableJsonOutput(config.LogJsonOutput)
	registry[name] = l
	return l
}

// ForInvocation tags l with the invocation log type and its identifying fields.
func ForInvocation(l Logger, invocationId string, function string) Logger {
	return l.WithLogType(LogTypeInvocation).WithFields(map[string]any{
		FieldInvocation: invocationId,
		FieldFunction:   function,
	})
}

func getLoggers() []Logger {
	registryLock.RLock()
	defer registryLock.RUnlock()

	loggers := make([]Logger, 0, len(registry))
	for _, l := range registry {
		loggers = append(loggers, l)
	}
	return loggers
}

func toLogLevel(level string) LogLevel {
	switch l := LogLevel(strings.ToLower(level)); l {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel:
		return l
	}
	return UndefinedLevel
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContextOr returns the Logger carried by ctx or fallback if there is none.
func FromContextOr(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}
	return fallback
}
