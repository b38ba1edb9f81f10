package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/huanfeng/apkparse/pkg/pm"
)

// ErrorReport represents a comprehensive error report
type ErrorReport struct {
	Timestamp   time.Time            `json:"timestamp"`
	Error       *PackageError        `json:"error"`
	Environment *EnvironmentInfo     `json:"environment"`
	Context     *OperationContext    `json:"context"`
	Suggestions []RecoverySuggestion `json:"suggestions"`
}

// EnvironmentInfo contains information about the runtime environment
type EnvironmentInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	GoVersion    string `json:"go_version"`
	Version      string `json:"version"`
	WorkingDir   string `json:"working_dir"`
	ConfigPath   string `json:"config_path,omitempty"`
}

// OperationContext contains information about the operation that failed
type OperationContext struct {
	Command   string            `json:"command"`
	Arguments []string          `json:"arguments"`
	Flags     map[string]string `json:"flags,omitempty"`
	Archive   string            `json:"archive,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// RecoverySuggestion represents a suggested recovery action
type RecoverySuggestion struct {
	Priority    int    `json:"priority"` // 1 = high, 2 = medium, 3 = low
	Category    string `json:"category"` // "immediate", "configuration", "archive"
	Action      string `json:"action"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description"`
}

// ErrorReporter writes failure reports for packages that could not be
// parsed or verified.
type ErrorReporter struct {
	reportDir  string
	version    string
	configPath string
	logger     Logger
}

// NewErrorReporter creates a new error reporter
func NewErrorReporter(reportDir, version, configPath string, logger Logger) *ErrorReporter {
	return &ErrorReporter{
		reportDir:  reportDir,
		version:    version,
		configPath: configPath,
		logger:     logger,
	}
}

// GenerateReport builds a report for err. Errors without a status are
// reported as unexpected exceptions.
func (er *ErrorReporter) GenerateReport(err error, context *OperationContext) *ErrorReport {
	var pe *PackageError
	if !stderrors.As(err, &pe) {
		pe = WrapParseError(err, StatusOf(err), MessageOf(err))
	}
	report := &ErrorReport{
		Timestamp:   time.Now(),
		Error:       pe,
		Context:     context,
		Environment: er.gatherEnvironmentInfo(),
	}
	report.Suggestions = er.generateRecoverySuggestions(pe, context)
	return report
}

// SaveReport saves an error report to disk
func (er *ErrorReporter) SaveReport(report *ErrorReport) (string, error) {
	if err := os.MkdirAll(er.reportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := report.Timestamp.Format("20060102_150405")
	filename := fmt.Sprintf("error_report_%s_%s.json", timestamp, report.Error.Status)
	path := filepath.Join(er.reportDir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	if er.logger != nil {
		er.logger.Debug("Error report written to %s", path)
	}
	return path, nil
}

// DisplayReport writes a human readable rendering of report to w.
func (er *ErrorReporter) DisplayReport(w io.Writer, report *ErrorReport) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "ERROR REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 72))

	fmt.Fprintf(w, "Time:    %s\n", report.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Type:    %s\n", report.Error.Type)
	fmt.Fprintf(w, "Status:  %s (%d)\n", report.Error.Status, int(report.Error.Status))
	fmt.Fprintf(w, "Message: %s\n", report.Error.Message)
	if report.Error.Cause != nil {
		fmt.Fprintf(w, "Cause:   %v\n", report.Error.Cause)
	}

	if ctx := report.Context; ctx != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Command: %s %s\n", ctx.Command, strings.Join(ctx.Arguments, " "))
		if ctx.Archive != "" {
			fmt.Fprintf(w, "Archive: %s\n", ctx.Archive)
		}
		if len(ctx.Flags) > 0 {
			keys := make([]string, 0, len(ctx.Flags))
			for k := range ctx.Flags {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "  --%s=%s\n", k, ctx.Flags[k])
			}
		}
	}

	if len(report.Error.Context) > 0 {
		fmt.Fprintln(w)
		keys := make([]string, 0, len(report.Error.Context))
		for k := range report.Error.Context {
			if k == "stack" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s\n", k, report.Error.Context[k])
		}
	}

	if len(report.Suggestions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Suggestions:")
		for i, s := range report.Suggestions {
			fmt.Fprintf(w, "%d. %s\n", i+1, s.Action)
			if s.Description != "" {
				fmt.Fprintf(w, "   %s\n", s.Description)
			}
			if s.Command != "" {
				fmt.Fprintf(w, "   $ %s\n", s.Command)
			}
		}
	}
	fmt.Fprintln(w)
}

func (er *ErrorReporter) gatherEnvironmentInfo() *EnvironmentInfo {
	info := &EnvironmentInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
		Version:      er.version,
		ConfigPath:   er.configPath,
	}
	if wd, err := os.Getwd(); err == nil {
		info.WorkingDir = wd
	}
	return info
}

func (er *ErrorReporter) generateRecoverySuggestions(err *PackageError, context *OperationContext) []RecoverySuggestion {
	var suggestions []RecoverySuggestion
	archive := ""
	if context != nil {
		archive = context.Archive
	}

	switch err.Status {
	case pm.StatusOlderSDK:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Category:    "configuration",
			Action:      "Parse against a newer platform",
			Command:     fmt.Sprintf("apkparse parse --sdk 10000 %s", archive),
			Description: "The package declares a minimum or target SDK the configured platform does not provide",
		})
	case pm.StatusManifestMalformed:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Category:    "archive",
			Action:      "Inspect the reported manifest position",
			Description: "The position context names the element that failed validation",
		})
		if strings.Contains(err.Message, "Bad element") {
			suggestions = append(suggestions, RecoverySuggestion{
				Priority:    2,
				Category:    "configuration",
				Action:      "Parse without --strict",
				Description: "Unknown elements are skipped with a warning in lenient mode",
			})
		}
	case pm.StatusNoCertificates, pm.StatusInconsistentCertificates:
		suggestions = append(suggestions, RecoverySuggestion{
			Priority:    1,
			Category:    "archive",
			Action:      "List the signers of the archive",
			Command:     fmt.Sprintf("apkparse certs %s", archive),
			Description: "Every entry outside META-INF/ must be covered by the same signers",
		})
	}

	for i, s := range err.Suggestions {
		suggestions = append(suggestions, RecoverySuggestion{
			Priority: 2 + i/2,
			Category: "immediate",
			Action:   s,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority < suggestions[j].Priority
	})
	return suggestions
}
