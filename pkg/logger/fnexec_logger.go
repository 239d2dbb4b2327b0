package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type fnexecLogger struct {
	// name defines the name of the logger that is published to log as a scope
	name string

	// logger defines the instance of a logrus logger
	logger *logrus.Entry
}

var FnexecVersion = "unknown"

func newFnexecLogger(name string) *fnexecLogger {
	newLogger := logrus.New()
	newLogger.SetOutput(os.Stdout)

	fl := &fnexecLogger{
		name: name,
		logger: newLogger.WithFields(logrus.Fields{
			logFieldScope: name,
			logFieldType:  LogTypeLog,
		}),
	}

	fl.EnableJsonOutput(defaultJsonOutput)

	return fl
}

// EnableJsonOutput enables JSON formatted output logging.
func (l *fnexecLogger) EnableJsonOutput(enabled bool) {
	var formatter logrus.Formatter

	fieldMap := logrus.FieldMap{
		// If time field name is conflicted, logrus adds "fields." prefix.
		// So rename to unused field @time to avoid the confliction.
		logrus.FieldKeyTime:  logFieldTimeStamp,
		logrus.FieldKeyLevel: logFieldLevel,
		logrus.FieldKeyMsg:   logFieldMessage,
	}

	hostname, _ := os.Hostname()
	data := logrus.Fields{
		logFieldScope:    l.logger.Data[logFieldScope],
		logFieldType:     LogTypeLog,
		logFieldInstance: hostname,
		logFieldVersion:  FnexecVersion,
	}
	if appId, ok := l.logger.Data[logFieldAppId]; ok {
		data[logFieldAppId] = appId
	}
	l.logger.Data = data

	if enabled {
		formatter = &logrus.JSONFormatter{ //nolint: exhaustruct
			TimestampFormat: time.RFC3339Nano,
			FieldMap:        fieldMap,
		}
	} else {
		formatter = &logrus.TextFormatter{ //nolint: exhaustruct
			TimestampFormat: time.RFC3339Nano,
			FieldMap:        fieldMap,
		}
	}

	l.logger.Logger.SetFormatter(formatter)
}

// SetAppId sets app_id field in the log. Default value is an empty string.
func (l *fnexecLogger) SetAppId(id string) {
	if id == undefinedAppId {
		return
	}
	l.logger = l.logger.WithField(logFieldAppId, id)
}

func toLogrusLevel(lvl LogLevel) logrus.Level {
	// ignore error because it will never happen
	l, _ := logrus.ParseLevel(string(lvl))
	return l
}

// SetLogLevel sets the log output level.
func (l *fnexecLogger) SetLogLevel(logLevel LogLevel) {
	if logLevel == UndefinedLevel {
		return
	}
	l.logger.Logger.SetLevel(toLogrusLevel(logLevel))
}

// LogLevel returns the current log level.
func (l *fnexecLogger) LogLevel() string {
	return l.logger.Logger.GetLevel().String()
}

// IsLogLevelEnabled returns true if the logger will output this LogLevel.
func (l *fnexecLogger) IsLogLevelEnabled(level LogLevel) bool {
	return l.logger.Logger.IsLevelEnabled(toLogrusLevel(level))
}

// SetOutput sets the destination for the logs.
func (l *fnexecLogger) SetOutput(dst io.Writer) {
	l.logger.Logger.SetOutput(dst)
}

// WithLogType specify the log_type field in log. Default value is LogTypeLog.
func (l *fnexecLogger) WithLogType(logType string) Logger {
	return &fnexecLogger{
		name:   l.name,
		logger: l.logger.WithField(logFieldType, logType),
	}
}

// WithFields returns a logger with the added structured fields.
func (l *fnexecLogger) WithFields(fields map[string]any) Logger {
	return &fnexecLogger{
		name:   l.name,
		logger: l.logger.WithFields(fields),
	}
}

// Info logs a message at level Info.
func (l *fnexecLogger) Info(args ...interface{}) {
	l.logger.Log(logrus.InfoLevel, args...)
}

// Infof logs a formatted message at level Info.
func (l *fnexecLogger) Infof(format string, args ...interface{}) {
	l.logger.Logf(logrus.InfoLevel, format, args...)
}

// Debug logs a message at level Debug.
func (l *fnexecLogger) Debug(args ...interface{}) {
	l.logger.Log(logrus.DebugLevel, args...)
}

// Debugf logs a formatted message at level Debug.
func (l *fnexecLogger) Debugf(format string, args ...interface{}) {
	l.logger.Logf(logrus.DebugLevel, format, args...)
}

// Warn logs a message at level Warn.
func (l *fnexecLogger) Warn(args ...interface{}) {
	l.logger.Log(logrus.WarnLevel, args...)
}

// Warnf logs a formatted message at level Warn.
func (l *fnexecLogger) Warnf(format string, args ...interface{}) {
	l.logger.Logf(logrus.WarnLevel, format, args...)
}

// Error logs a message at level Error.
func (l *fnexecLogger) Error(args ...interface{}) {
	l.logger.Log(logrus.ErrorLevel, args...)
}

// Errorf logs a formatted message at level Error.
func (l *fnexecLogger) Errorf(format string, args ...interface{}) {
	l.logger.Logf(logrus.ErrorLevel, format, args...)
}

// Fatal logs a message at level Fatal then the process will exit with status set to 1.
func (l *fnexecLogger) Fatal(args ...interface{}) {
	l.logger.Fatal(args...)
}

// Fatalf logs a formatted message at level Fatal then the process will exit with status set to 1.
func (l *fnexecLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatalf(format, args...)
}
