package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/huanfeng/apkparse/internal/i18n"
	"github.com/huanfeng/apkparse/pkg/models"
	"github.com/huanfeng/apkparse/pkg/pm"
	"github.com/huanfeng/apkparse/pkg/repo"
)

var (
	scanJSON     bool
	showProgress bool
)

// newScanner builds a scanner from the configuration and the scan flags
// of cmd.
func newScanner(cmd *cobra.Command) (*repo.Scanner, models.ScanningConfig) {
	sc := cfg.Scanning
	fs := cmd.Flags()
	if fs.Changed("recursive") {
		sc.Recursive, _ = fs.GetBool("recursive")
	}
	if n, _ := fs.GetInt("workers"); n > 0 {
		sc.Workers = n
	}
	s := repo.NewScanner(sc, newParser(cmd), cfg.Parser.CollectCertificates, logger)
	if showProgress {
		s.SetProgressOutput(os.Stderr)
	}
	return s, sc
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("recursive", true, "scan subdirectories")
	cmd.Flags().Int("workers", 0, "parallel parses (default from configuration)")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress bar")
	addParserFlags(cmd.Flags())
}

type scanLine struct {
	Path    string `json:"path"`
	Package string `json:"package,omitempty"`
	Status  string `json:"status"`
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
}

var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Parse every package in a directory",
	Long:  `Parse every package found in a directory in parallel and report the status of each one.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		scanner, sc := newScanner(cmd)
		logger.Info("%s", i18n.T("scan.start", map[string]interface{}{"Dir": dir, "Workers": sc.Workers}))

		report, err := scanner.Scan(cmd.Context(), dir)
		if err != nil {
			return err
		}

		lines := make([]scanLine, 0, len(report.Results))
		for _, res := range report.Results {
			line := scanLine{Path: res.Path, Status: res.Status.String(), Skipped: res.Skipped}
			if res.Package != nil {
				line.Package = res.Package.PackageName
			}
			if res.Err != nil {
				line.Message = res.Err.Error()
			}
			lines = append(lines, line)
		}

		out := cmd.OutOrStdout()
		if scanJSON {
			return printJSON(out, struct {
				Results []scanLine     `json:"results"`
				Errors  map[string]int `json:"errorsByStatus,omitempty"`
			}{lines, statusCounts(report.Errors.ErrorsByStatus)})
		}

		for i, res := range report.Results {
			name := lines[i].Package
			if res.Skipped {
				name = mutedStyle.Render("skipped")
			} else if res.Err != nil {
				name = mutedStyle.Render(i18n.StatusMessage(res.Status))
			}
			fmt.Fprintf(out, "%s %s %s\n", statusBadge(res.Status), res.Path, name)
		}
		printScanSummary(out, report)
		return nil
	},
}

func statusCounts(byStatus map[pm.Status]int) map[string]int {
	if len(byStatus) == 0 {
		return nil
	}
	counts := make(map[string]int, len(byStatus))
	for status, n := range byStatus {
		counts[status.String()] = n
	}
	return counts
}

func printScanSummary(w io.Writer, report *repo.ScanReport) {
	c := report.Counts
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(i18n.T("scan.summary", map[string]interface{}{
		"Total":  c.ProcessedFiles + c.Skipped,
		"Ok":     c.Parsed,
		"Failed": c.Failed,
	})))

	statuses := make([]pm.Status, 0, len(report.Errors.ErrorsByStatus))
	for status := range report.Errors.ErrorsByStatus {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] > statuses[j] })
	for _, status := range statuses {
		fmt.Fprintln(w, field(status.String(), report.Errors.ErrorsByStatus[status]))
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the results as JSON")
	addScanFlags(scanCmd)
}
