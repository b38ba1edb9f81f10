package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/huanfeng/apkparse/pkg/pm"
)

// ErrorType represents the type of error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeIdentity
	ErrorTypeStructural
	ErrorTypeCryptographic
	ErrorTypeCompatibility
	ErrorTypeIO
	ErrorTypeConfiguration
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeIdentity:
		return "IDENTITY"
	case ErrorTypeStructural:
		return "STRUCTURAL"
	case ErrorTypeCryptographic:
		return "CRYPTOGRAPHIC"
	case ErrorTypeCompatibility:
		return "COMPATIBILITY"
	case ErrorTypeIO:
		return "IO"
	case ErrorTypeConfiguration:
		return "CONFIGURATION"
	default:
		return "UNKNOWN"
	}
}

// TypeOf maps a status code to its error category.
func TypeOf(status pm.Status) ErrorType {
	switch status {
	case pm.StatusBadPackageName, pm.StatusBadSharedUserID:
		return ErrorTypeIdentity
	case pm.StatusBadManifest, pm.StatusManifestMalformed, pm.StatusManifestEmpty:
		return ErrorTypeStructural
	case pm.StatusNoCertificates, pm.StatusInconsistentCertificates, pm.StatusCertificateEncoding:
		return ErrorTypeCryptographic
	case pm.StatusOlderSDK:
		return ErrorTypeCompatibility
	case pm.StatusNotAPK, pm.StatusUnexpectedException:
		return ErrorTypeIO
	default:
		return ErrorTypeUnknown
	}
}

// PackageError is a parse or certificate failure carrying its status code.
type PackageError struct {
	Type        ErrorType         `json:"type"`
	Status      pm.Status         `json:"status"`
	Message     string            `json:"message"`
	Cause       error             `json:"-"`
	Context     map[string]string `json:"context,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Stack       []string          `json:"stack,omitempty"`
}

// Error implements the error interface
func (e *PackageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *PackageError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *PackageError) Is(target error) bool {
	if t, ok := target.(*PackageError); ok {
		return e.Type == t.Type && e.Status == t.Status
	}
	return false
}

// WithContext adds context to the error
func (e *PackageError) WithContext(key, value string) *PackageError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *PackageError) WithSuggestion(suggestion string) *PackageError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PackageError) WithSuggestions(suggestions []string) *PackageError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// FormatDetailed returns a detailed error message with context and suggestions
func (e *PackageError) FormatDetailed() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("%s error [%s]: %s\n", e.Type.String(), e.Status, e.Message))

	if len(e.Context) > 0 {
		builder.WriteString("\nContext:\n")
		keys := make([]string, 0, len(e.Context))
		for key := range e.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			builder.WriteString(fmt.Sprintf("   %s: %s\n", key, e.Context[key]))
		}
	}

	if e.Cause != nil {
		builder.WriteString(fmt.Sprintf("\nUnderlying cause: %v\n", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		builder.WriteString("\nSuggestions:\n")
		for _, suggestion := range e.Suggestions {
			builder.WriteString(fmt.Sprintf("   - %s\n", suggestion))
		}
	}

	return builder.String()
}

// NewParseError creates a PackageError for status with the default
// suggestions of its category.
func NewParseError(status pm.Status, message string) *PackageError {
	e := &PackageError{
		Type:      TypeOf(status),
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     captureStack(),
	}
	return e.WithSuggestions(defaultSuggestions(e.Type))
}

// NewParseErrorf is NewParseError with a format string.
func NewParseErrorf(status pm.Status, format string, args ...interface{}) *PackageError {
	return NewParseError(status, fmt.Sprintf(format, args...))
}

// WrapParseError wraps an existing error with a status.
func WrapParseError(err error, status pm.Status, message string) *PackageError {
	e := NewParseError(status, message)
	e.Cause = err
	return e
}

// StatusOf recovers the status code carried by err. A nil error is a
// success and any other error is an unexpected exception.
func StatusOf(err error) pm.Status {
	if err == nil {
		return pm.StatusSucceeded
	}
	var pe *PackageError
	if stderrors.As(err, &pe) {
		return pe.Status
	}
	return pm.StatusUnexpectedException
}

// MessageOf returns the diagnostic message of err without its cause chain.
func MessageOf(err error) string {
	var pe *PackageError
	if stderrors.As(err, &pe) {
		return pe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func defaultSuggestions(t ErrorType) []string {
	switch t {
	case ErrorTypeIdentity:
		return []string{"Check the package and sharedUserId attributes of the manifest"}
	case ErrorTypeStructural:
		return []string{
			"Verify the archive contains a well formed AndroidManifest.xml",
			"Re-run with --strict to surface every unknown element",
		}
	case ErrorTypeCryptographic:
		return []string{
			"Re-sign the archive with a single consistent signer",
			"Check that no entry was added after signing",
		}
	case ErrorTypeCompatibility:
		return []string{"Use --sdk and --codename to match the target platform"}
	case ErrorTypeIO:
		return []string{
			"Check that the file exists and is a readable zip archive",
			"Check if the file is corrupted",
		}
	default:
		return nil
	}
}

// captureStack captures the current stack trace
func captureStack() []string {
	var stack []string

	for i := 3; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		if strings.Contains(fn.Name(), "apkparse") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}

	return stack
}

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger Logger

	mu    sync.Mutex
	stats *ErrorStats
}

// Logger interface for error logging
type Logger interface {
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	TotalErrors    int               `json:"total_errors"`
	ErrorsByType   map[ErrorType]int `json:"errors_by_type"`
	ErrorsByStatus map[pm.Status]int `json:"errors_by_status"`
	LastError      *PackageError     `json:"last_error,omitempty"`
	LastErrorTime  time.Time         `json:"last_error_time"`
}

func newErrorStats() *ErrorStats {
	return &ErrorStats{
		ErrorsByType:   make(map[ErrorType]int),
		ErrorsByStatus: make(map[pm.Status]int),
	}
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
		stats:  newErrorStats(),
	}
}

// Handle records err and logs it. It is safe for concurrent use.
func (eh *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var pe *PackageError
	if !stderrors.As(err, &pe) {
		pe = WrapParseError(err, pm.StatusUnexpectedException, err.Error())
	}

	eh.mu.Lock()
	eh.stats.TotalErrors++
	eh.stats.ErrorsByType[pe.Type]++
	eh.stats.ErrorsByStatus[pe.Status]++
	eh.stats.LastError = pe
	eh.stats.LastErrorTime = time.Now()
	eh.mu.Unlock()

	if eh.logger != nil {
		eh.logger.Error("%s [%s] %s", pe.Type.String(), pe.Status, pe.Message)
		for key, value := range pe.Context {
			eh.logger.Debug("Error context: %s = %s", key, value)
		}
	}
}

// GetStats returns a snapshot of the error statistics
func (eh *ErrorHandler) GetStats() ErrorStats {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	snap := *eh.stats
	snap.ErrorsByType = make(map[ErrorType]int, len(eh.stats.ErrorsByType))
	for k, v := range eh.stats.ErrorsByType {
		snap.ErrorsByType[k] = v
	}
	snap.ErrorsByStatus = make(map[pm.Status]int, len(eh.stats.ErrorsByStatus))
	for k, v := range eh.stats.ErrorsByStatus {
		snap.ErrorsByStatus[k] = v
	}
	return snap
}

// Reset resets error statistics
func (eh *ErrorHandler) Reset() {
	eh.mu.Lock()
	eh.stats = newErrorStats()
	eh.mu.Unlock()
}

var (
	globalMu           sync.Mutex
	globalErrorHandler *ErrorHandler
)

// InitGlobalErrorHandler initializes the global error handler
func InitGlobalErrorHandler(logger Logger) {
	globalMu.Lock()
	globalErrorHandler = NewErrorHandler(logger)
	globalMu.Unlock()
}

// GetGlobalErrorHandler returns the global error handler
func GetGlobalErrorHandler() *ErrorHandler {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalErrorHandler == nil {
		globalErrorHandler = NewErrorHandler(nil)
	}
	return globalErrorHandler
}

// Handle handles an error using the global error handler
func Handle(err error) {
	GetGlobalErrorHandler().Handle(err)
}
