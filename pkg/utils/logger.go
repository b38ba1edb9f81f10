package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) charm() log.Level {
	switch l {
	case LogLevelDebug:
		return log.DebugLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelError:
		return log.ErrorLevel
	case LogLevelFatal:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseLogLevel parses a level name such as "debug" or "warn".
func ParseLogLevel(s string) (LogLevel, error) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return LogLevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	switch lvl {
	case log.DebugLevel:
		return LogLevelDebug, nil
	case log.WarnLevel:
		return LogLevelWarn, nil
	case log.ErrorLevel:
		return LogLevelError, nil
	case log.FatalLevel:
		return LogLevelFatal, nil
	default:
		return LogLevelInfo, nil
	}
}

// Logger interface defines the logging contract. Messages are printf
// style format strings.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})

	SetLevel(level LogLevel)
	SetOutput(w io.Writer)
	SetFormat(format LogFormat)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogFormat represents the log output format
type LogFormat int

const (
	LogFormatText LogFormat = iota
	LogFormatJSON
	LogFormatLogfmt
)

// ParseLogFormat parses "text", "json" or "logfmt".
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return LogFormatText, nil
	case "json":
		return LogFormatJSON, nil
	case "logfmt":
		return LogFormatLogfmt, nil
	default:
		return LogFormatText, fmt.Errorf("invalid log format %q", s)
	}
}

func (f LogFormat) formatter() log.Formatter {
	switch f {
	case LogFormatJSON:
		return log.JSONFormatter
	case LogFormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level      LogLevel
	Format     LogFormat
	Output     io.Writer
	Prefix     string
	EnableFile bool
	FilePath   string
	Timestamps bool
}

// DefaultLoggerConfig returns a default logger configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  LogLevelInfo,
		Format: LogFormatText,
		Output: os.Stderr,
		Prefix: "apkparse",
	}
}

// CharmLogger implements Logger on top of charmbracelet/log.
type CharmLogger struct {
	config *LoggerConfig
	logger *log.Logger
	file   *os.File
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config *LoggerConfig) (*CharmLogger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	cfg := *config
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	l := &CharmLogger{config: &cfg}
	output := cfg.Output
	if cfg.EnableFile && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		output = io.MultiWriter(cfg.Output, file)
	}

	l.logger = log.NewWithOptions(output, log.Options{
		Prefix:          cfg.Prefix,
		Level:           cfg.Level.charm(),
		Formatter:       cfg.Format.formatter(),
		ReportTimestamp: cfg.Timestamps,
	})
	return l, nil
}

// Debug logs a debug message
func (l *CharmLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debugf(msg, args...)
}

// Info logs an info message
func (l *CharmLogger) Info(msg string, args ...interface{}) {
	l.logger.Infof(msg, args...)
}

// Warn logs a warning message
func (l *CharmLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warnf(msg, args...)
}

// Error logs an error message
func (l *CharmLogger) Error(msg string, args ...interface{}) {
	l.logger.Errorf(msg, args...)
}

// Fatal logs a fatal message and exits
func (l *CharmLogger) Fatal(msg string, args ...interface{}) {
	l.logger.Fatalf(msg, args...)
}

// SetLevel sets the logging level
func (l *CharmLogger) SetLevel(level LogLevel) {
	l.config.Level = level
	l.logger.SetLevel(level.charm())
}

// SetOutput sets the output writer
func (l *CharmLogger) SetOutput(w io.Writer) {
	l.config.Output = w
	l.logger.SetOutput(w)
}

// SetFormat sets the log format
func (l *CharmLogger) SetFormat(format LogFormat) {
	l.config.Format = format
	l.logger.SetFormatter(format.formatter())
}

// WithField returns a logger with an additional field
func (l *CharmLogger) WithField(key string, value interface{}) Logger {
	return &CharmLogger{config: l.config, logger: l.logger.With(key, value), file: l.file}
}

// WithFields returns a logger with additional fields
func (l *CharmLogger) WithFields(fields map[string]interface{}) Logger {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &CharmLogger{config: l.config, logger: l.logger.With(kv...), file: l.file}
}

// Close closes the logger and any open files
func (l *CharmLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	l, _ := NewLogger(&LoggerConfig{Level: LogLevelFatal, Output: io.Discard})
	return l
}

var (
	globalMu     sync.Mutex
	globalLogger Logger
)

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(config *LoggerConfig) error {
	logger, err := NewLogger(config)
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
	return nil
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		logger, _ := NewLogger(DefaultLoggerConfig())
		globalLogger = logger
	}
	return globalLogger
}

// Convenience functions for global logger
func Debug(msg string, args ...interface{}) {
	GetGlobalLogger().Debug(msg, args...)
}

func Info(msg string, args ...interface{}) {
	GetGlobalLogger().Info(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	GetGlobalLogger().Warn(msg, args...)
}

func Error(msg string, args ...interface{}) {
	GetGlobalLogger().Error(msg, args...)
}
