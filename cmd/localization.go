package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huanfeng/apkparse/internal/i18n"
)

// applyCommandLocalization updates command and flag descriptions after i18n is initialized.
func applyCommandLocalization() {
	rootCmd.Short = i18n.CommandShort("root")
	rootCmd.Long = i18n.CommandLong("root")

	rootFlags := map[string]string{
		"config":     "config",
		"log-level":  "logLevel",
		"log-format": "logFormat",
		"lang":       "lang",
	}
	for name, key := range rootFlags {
		if flag := rootCmd.PersistentFlags().Lookup(name); flag != nil {
			flag.Usage = i18n.FlagUsage(key)
		}
	}

	commands := map[*cobra.Command]string{
		parseCmd:    "parse",
		liteCmd:     "lite",
		certsCmd:    "certs",
		infoCmd:     "info",
		scanCmd:     "scan",
		servicesCmd: "services",
		initCmd:     "init",
		versionCmd:  "version",
	}
	for c, name := range commands {
		c.Short = i18n.CommandShort(name)
		c.Long = i18n.CommandLong(name)

		for flagName, key := range parserFlagNames {
			if flag := c.Flags().Lookup(flagName); flag != nil {
				flag.Usage = i18n.FlagUsage(key)
			}
		}
	}
}
