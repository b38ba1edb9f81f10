package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/huanfeng/apkparse/internal/config"
	"github.com/huanfeng/apkparse/internal/i18n"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration template",
	Long:  `Write a commented apkparse.yaml configuration template.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "apkparse.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		data := map[string]interface{}{"Path": path}
		if _, err := os.Stat(path); err == nil && !initForce {
			return errors.New(i18n.T("init.exists", data))
		}
		if err := config.SaveTemplate(path); err != nil {
			return fmt.Errorf("failed to write configuration: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(i18n.T("init.written", data)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
}
