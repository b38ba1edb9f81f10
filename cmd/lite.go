package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/huanfeng/apkparse/internal/i18n"
)

var liteJSON bool

var liteCmd = &cobra.Command{
	Use:   "lite [archive]",
	Short: "Read only the identity of a package",
	Long:  `Read the package name, version code, install location and verifiers without building the component model.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		start := time.Now()

		lite, err := newParser(cmd).ParseLite(path)
		if err != nil {
			reportFailure(cmd, path, start, err)
			return err
		}

		out := cmd.OutOrStdout()
		if liteJSON {
			return printJSON(out, lite)
		}

		fmt.Fprintln(out, titleStyle.Render(lite.PackageName))
		fmt.Fprintln(out, field("versionCode", lite.VersionCode))
		fmt.Fprintln(out, field(i18n.T("label.installLocation"), installLocationName(lite.InstallLocation)))
		if len(lite.Verifiers) > 0 {
			names := make([]string, len(lite.Verifiers))
			for i, v := range lite.Verifiers {
				names[i] = v.PackageName
			}
			fmt.Fprintln(out, field(i18n.T("label.verifiers"), strings.Join(names, ", ")))
		}
		if lite.IsTheme {
			fmt.Fprintln(out, mutedStyle.Render("theme"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(liteCmd)

	liteCmd.Flags().BoolVar(&liteJSON, "json", false, "print the result as JSON")
	addParserFlags(liteCmd.Flags())
	addReportFlag(liteCmd.Flags())
}
