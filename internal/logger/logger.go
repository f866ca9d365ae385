// Package logger provides structured logging for the pipeline. It wraps
// logrus with the project's own Field/Level facade so call sites look the
// same regardless of which logging backend is configured underneath.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents the severity level of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toLogrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger defines the logging interface the pipeline programs against.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	SetLevel(level Level)
	Close() error
}

// Config holds the configuration for the logger.
type Config struct {
	// LogFilePath is the path to the log file. Empty disables file output.
	LogFilePath string
	// MaxFileSizeMB is the maximum size of a log file in megabytes before
	// rotation (lumberjack's unit).
	MaxFileSizeMB int
	// MaxBackups is the maximum number of rotated log files to keep.
	MaxBackups int
	Level      Level
	// EnableConsole enables output to stderr in addition to the file.
	EnableConsole bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		LogFilePath:   "",
		MaxFileSizeMB: 10,
		MaxBackups:    5,
		Level:         LevelInfo,
		EnableConsole: true,
	}
}

// logrusLogger adapts logrus.Logger to the Logger interface, using
// lumberjack for size-based rotation in place of the hand-rolled rotation
// this package used before logrus was wired in.
type logrusLogger struct {
	entry  *logrus.Logger
	mu     sync.Mutex
	closer io.Closer
}

// NewDefaultLogger creates a new Logger backed by logrus.
func NewDefaultLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	l := logrus.New()
	l.SetLevel(config.Level.toLogrus())
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	var writers []io.Writer
	var lj *lumberjack.Logger
	if config.LogFilePath != "" {
		lj = &lumberjack.Logger{
			Filename:   config.LogFilePath,
			MaxSize:    config.MaxFileSizeMB,
			MaxBackups: config.MaxBackups,
			Compress:   false,
		}
		writers = append(writers, lj)
	}
	if config.EnableConsole || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}
	l.SetOutput(io.MultiWriter(writers...))

	logger := &logrusLogger{entry: l}
	if lj != nil {
		logger.closer = lj
	}
	return logger, nil
}

func fieldsToLogrus(fields []Field) logrus.Fields {
	if len(fields) == 0 {
		return nil
	}
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func (l *logrusLogger) Debug(msg string, fields ...Field) {
	l.entry.WithFields(fieldsToLogrus(fields)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields ...Field) {
	l.entry.WithFields(fieldsToLogrus(fields)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields ...Field) {
	l.entry.WithFields(fieldsToLogrus(fields)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, err error, fields ...Field) {
	entry := l.entry.WithFields(fieldsToLogrus(fields))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func (l *logrusLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry.SetLevel(level.toLogrus())
}

func (l *logrusLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Global logger instance.
var (
	globalLogger Logger
	globalMu     sync.RWMutex
)

// Init initializes the global logger with the given configuration.
func Init(config *Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	l, err := NewDefaultLogger(config)
	if err != nil {
		return err
	}
	if globalLogger != nil {
		globalLogger.Close()
	}
	globalLogger = l
	return nil
}

// GetLogger returns the global logger instance, defaulting to stderr-only
// output when Init has not been called.
func GetLogger() Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		l, _ := NewDefaultLogger(DefaultConfig())
		globalLogger = l
	}
	return globalLogger
}

// SetGlobalLogger sets the global logger instance (used by tests to inject
// a recording logger).
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Close closes the global logger.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger != nil {
		err := globalLogger.Close()
		globalLogger = nil
		return err
	}
	return nil
}

func Debug(msg string, fields ...Field)          { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)           { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)           { GetLogger().Warn(msg, fields...) }
func Error(msg string, err error, fields ...Field) { GetLogger().Error(msg, err, fields...) }
