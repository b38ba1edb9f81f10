package cmd

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	apkerrors "github.com/huanfeng/apkparse/internal/errors"
	"github.com/huanfeng/apkparse/internal/i18n"
	"github.com/huanfeng/apkparse/internal/version"
	"github.com/huanfeng/apkparse/pkg/apk"
	"github.com/huanfeng/apkparse/pkg/pm"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// signerLine describes one signing certificate.
func signerLine(sig pm.Signature) string {
	sum := sha256.Sum256(sig.Raw)
	fp := hex.EncodeToString(sum[:])
	cert, err := x509.ParseCertificate(sig.Raw)
	if err != nil {
		return fp
	}
	return fmt.Sprintf("%s %s", fp, cert.Subject.String())
}

func installLocationName(loc int) string {
	switch loc {
	case pm.InstallLocationAuto:
		return "auto"
	case pm.InstallLocationInternalOnly:
		return "internalOnly"
	case pm.InstallLocationPreferExternal:
		return "preferExternal"
	default:
		return "unspecified"
	}
}

func printPackageSummary(w io.Writer, pkg *pm.Package, summary *apk.ArchiveSummary) {
	fmt.Fprintln(w, titleStyle.Render(pkg.PackageName))
	if summary != nil && summary.Label != "" {
		fmt.Fprintln(w, mutedStyle.Render(summary.Label))
	}
	fmt.Fprintln(w, field(i18n.T("label.version"), fmt.Sprintf("%s (%d)", pkg.VersionName, pkg.VersionCode)))
	fmt.Fprintln(w, field(i18n.T("label.path"), pkg.Path))
	fmt.Fprintln(w, field(i18n.T("label.target"), pkg.ApplicationInfo.TargetSdkVersion))
	fmt.Fprintln(w, field(i18n.T("label.installLocation"), installLocationName(pkg.InstallLocation)))
	fmt.Fprintln(w, field(i18n.T("label.components"), fmt.Sprintf("%d activities, %d receivers, %d services, %d providers",
		len(pkg.Activities), len(pkg.Receivers), len(pkg.Services), len(pkg.Providers))))

	if len(pkg.RequestedPermissions) > 0 {
		fmt.Fprintln(w, field(i18n.T("label.permissions"), strings.Join(pkg.RequestedPermissions, "\n"+labelStyle.Render(""))))
	}
	if len(pkg.Signatures) > 0 {
		lines := make([]string, len(pkg.Signatures))
		for i, sig := range pkg.Signatures {
			lines[i] = signerLine(sig)
		}
		fmt.Fprintln(w, field(i18n.T("label.signers"), strings.Join(lines, "\n"+labelStyle.Render(""))))
	}
	if summary != nil {
		fmt.Fprintln(w, field("sha256", summary.Hashes["sha256"]))
		if len(summary.ABIs) > 0 {
			fmt.Fprintln(w, field("abis", strings.Join(summary.ABIs, ", ")))
		}
	}
}

// addReportFlag registers --report-dir on a parsing command.
func addReportFlag(fs *pflag.FlagSet) {
	fs.String("report-dir", "", "write a JSON failure report into this directory")
}

// reportFailure writes a failure report when --report-dir is set. It never
// replaces err; report problems are logged.
func reportFailure(cmd *cobra.Command, archive string, start time.Time, err error) {
	apkerrors.Handle(err)

	dir, _ := cmd.Flags().GetString("report-dir")
	if dir == "" {
		return
	}

	flags := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		flags[f.Name] = f.Value.String()
	})
	reporter := apkerrors.NewErrorReporter(dir, version.Short(), cfgFile, logger)
	report := reporter.GenerateReport(err, &apkerrors.OperationContext{
		Command:   cmd.Name(),
		Arguments: []string{archive},
		Flags:     flags,
		Archive:   archive,
		Duration:  time.Since(start),
	})
	path, saveErr := reporter.SaveReport(report)
	if saveErr != nil {
		logger.Warn("Failed to save error report: %v", saveErr)
		return
	}
	logger.Info("Error report written to %s", path)
}
