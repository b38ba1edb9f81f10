package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apkerrors "github.com/huanfeng/apkparse/internal/errors"
	"github.com/huanfeng/apkparse/internal/i18n"
	"github.com/huanfeng/apkparse/pkg/pm"
)

const (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6B7280")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(24)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// field renders one "label value" row of a summary.
func field(label string, value interface{}) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

// statusBadge renders a status name colored by outcome.
func statusBadge(status pm.Status) string {
	switch {
	case status == pm.StatusSucceeded:
		return successStyle.Render(status.String())
	case apkerrors.TypeOf(status) == apkerrors.ErrorTypeCryptographic:
		return warningStyle.Render(status.String())
	default:
		return errorStyle.Render(status.String())
	}
}

// renderError formats a command failure. Package failures show their
// status, the localized reason and the detailed diagnostics.
func renderError(err error) string {
	var pe *apkerrors.PackageError
	if !errors.As(err, &pe) {
		return errorStyle.Render("Error: ") + err.Error()
	}

	var b strings.Builder
	b.WriteString(statusBadge(pe.Status))
	b.WriteString(" ")
	b.WriteString(i18n.StatusMessage(pe.Status))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.TrimRight(pe.FormatDetailed(), "\n")))
	return b.String()
}
