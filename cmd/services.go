package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huanfeng/apkparse/internal/i18n"
	"github.com/huanfeng/apkparse/pkg/servicecache"
)

var servicesTypes []string

var servicesCmd = &cobra.Command{
	Use:   "services [directory]",
	Short: "Update the service discovery cache",
	Long:  `Scan a directory and update the cache of services declaring the configured service types.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		types := cfg.Cache.ServiceTypes
		if cmd.Flags().Changed("type") {
			types = servicesTypes
		}
		if len(types) == 0 {
			return fmt.Errorf("no service types configured; set cache.service_types or pass --type")
		}

		cache := servicecache.New(cfg.Cache.Path, types, logger)
		if err := cache.Load(); err != nil {
			return err
		}

		scanner, _ := newScanner(cmd)
		report, err := scanner.Scan(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, res := range report.Results {
			if res.Err != nil {
				logger.Warn("%s: %s", res.Path, res.Status)
			}
		}

		changes := cache.Generate(report.Packages())
		if err := cache.Save(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(changes) == 0 {
			fmt.Fprintln(out, mutedStyle.Render(i18n.T("services.unchanged")))
			return nil
		}
		for _, ch := range changes {
			data := map[string]interface{}{"Type": ch.Type, "Owner": ch.Owner.String()}
			if ch.Kind == servicecache.Added {
				fmt.Fprintln(out, successStyle.Render(i18n.T("services.added", data)))
			} else {
				fmt.Fprintln(out, warningStyle.Render(i18n.T("services.removed", data)))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(servicesCmd)

	servicesCmd.Flags().StringSliceVar(&servicesTypes, "type", nil, "service meta-data keys to index (default from configuration)")
	addScanFlags(servicesCmd)
}
