package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/huanfeng/apkparse/pkg/apk"
	"github.com/huanfeng/apkparse/pkg/pm"
)

var (
	parseJSON    bool
	parseNoCerts bool
)

// parseInfoFlags selects every part of the package for --json output.
const parseInfoFlags = pm.GetActivities | pm.GetReceivers | pm.GetServices | pm.GetProviders |
	pm.GetInstrumentation | pm.GetPermissions | pm.GetSignatures | pm.GetConfigurations |
	pm.GetMetaData | pm.GetURIPermissionPatterns

var parseCmd = &cobra.Command{
	Use:   "parse [archive]",
	Short: "Parse a package and print its summary",
	Long:  `Parse the manifest of a package, collect its certificates and print a summary or JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		start := time.Now()
		parser := newParser(cmd)

		pkg, err := parser.ParsePackage(path)
		if err == nil && pkg != nil && !parseNoCerts && cfg.Parser.CollectCertificates {
			err = parser.CollectCertificates(pkg)
		}
		if err != nil {
			reportFailure(cmd, path, start, err)
			return err
		}
		out := cmd.OutOrStdout()
		if pkg == nil {
			cmd.Println(mutedStyle.Render("skipped: not a core app"))
			return nil
		}

		summary, serr := apk.Summarize(path)
		if serr != nil {
			logger.Debug("No archive summary for %s: %v", path, serr)
		}
		logger.Debug("Parsed %s in %v", path, time.Since(start))

		if parseJSON {
			info := pm.GeneratePackageInfo(pkg, pm.ProjectionOptions{
				Flags: parseInfoFlags,
				State: pm.DefaultUserState(),
			})
			return printJSON(out, struct {
				Package *pm.PackageInfo     `json:"package"`
				Archive *apk.ArchiveSummary `json:"archive,omitempty"`
			}{info, summary})
		}

		printPackageSummary(out, pkg, summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print the projected package information as JSON")
	parseCmd.Flags().BoolVar(&parseNoCerts, "no-certs", false, "skip certificate collection")
	addParserFlags(parseCmd.Flags())
	addReportFlag(parseCmd.Flags())
}
