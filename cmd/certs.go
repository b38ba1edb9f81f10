package cmd

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/huanfeng/apkparse/internal/i18n"
	"github.com/huanfeng/apkparse/pkg/pm"
)

var certsJSON bool

type certsResult struct {
	Package        string   `json:"package"`
	Path           string   `json:"path"`
	Signers        []string `json:"signers"`
	ManifestDigest string   `json:"manifestDigest,omitempty"`
}

var certsCmd = &cobra.Command{
	Use:   "certs [archive]",
	Short: "Verify package signatures",
	Long:  `Verify the JAR signatures of a package and print the signer certificates.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		start := time.Now()
		parser := newParser(cmd)

		name := filepath.Base(path)
		if lite, err := parser.ParseLite(path); err == nil {
			name = lite.PackageName
		}
		pkg := pm.NewPackage(name)
		pkg.Path = path

		if err := parser.CollectCertificates(pkg); err != nil {
			reportFailure(cmd, path, start, err)
			return err
		}

		res := certsResult{
			Package:        pkg.PackageName,
			Path:           path,
			ManifestDigest: hex.EncodeToString(pkg.ManifestDigest),
		}
		for _, sig := range pkg.Signatures {
			res.Signers = append(res.Signers, signerLine(sig))
		}

		out := cmd.OutOrStdout()
		if certsJSON {
			return printJSON(out, res)
		}
		fmt.Fprintln(out, titleStyle.Render(res.Package)+" "+statusBadge(pm.StatusSucceeded))
		for _, s := range res.Signers {
			fmt.Fprintln(out, field(i18n.T("label.signers"), s))
		}
		if res.ManifestDigest != "" {
			fmt.Fprintln(out, field(pm.ManifestEntryName, res.ManifestDigest))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(certsCmd)

	certsCmd.Flags().BoolVar(&certsJSON, "json", false, "print the result as JSON")
	addParserFlags(certsCmd.Flags())
	addReportFlag(certsCmd.Flags())
}
