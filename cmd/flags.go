package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/huanfeng/apkparse/internal/config"
	"github.com/huanfeng/apkparse/pkg/apk"
	"github.com/huanfeng/apkparse/pkg/models"
)

// parserFlagNames lists the flags added by addParserFlags with their
// usage catalog keys.
var parserFlagNames = map[string]string{
	"strict":           "strict",
	"system":           "system",
	"ignore-processes": "ignoreProcesses",
	"core-only":        "coreOnly",
	"sdk":              "sdk",
	"codename":         "codename",
	"separate-process": "separateProcess",
}

// addParserFlags registers the flags shared by every parsing command. Their
// values override the configuration only when set.
func addParserFlags(fs *pflag.FlagSet) {
	fs.Bool("strict", false, "treat unknown elements as errors")
	fs.Bool("system", false, "parse as a trusted system package")
	fs.Bool("ignore-processes", false, "ignore android:process declarations")
	fs.Bool("core-only", false, "only accept packages declaring coreApp")
	fs.Int("sdk", 0, "platform API level (0 disables the check)")
	fs.String("codename", "", "platform development codename (REL for release)")
	fs.StringSlice("separate-process", nil, "process name forced into its package process (repeatable)")
}

// applyParserFlags copies the parser flags that were set on cmd into c.
func applyParserFlags(cmd *cobra.Command, c *models.Config) {
	fs := cmd.Flags()
	if fs.Changed("strict") {
		c.Parser.Strict, _ = fs.GetBool("strict")
	}
	if fs.Changed("system") {
		c.Parser.System, _ = fs.GetBool("system")
	}
	if fs.Changed("ignore-processes") {
		c.Parser.IgnoreProcesses, _ = fs.GetBool("ignore-processes")
	}
	if fs.Changed("core-only") {
		c.Platform.OnlyCoreApps, _ = fs.GetBool("core-only")
	}
	if fs.Changed("sdk") {
		c.Platform.SDKVersion, _ = fs.GetInt("sdk")
	}
	if fs.Changed("codename") {
		c.Platform.Codename, _ = fs.GetString("codename")
	}
	if fs.Changed("separate-process") {
		c.Platform.SeparateProcesses, _ = fs.GetStringSlice("separate-process")
	}
}

// newParser builds a parser from the loaded configuration and the flags of
// cmd.
func newParser(cmd *cobra.Command) *apk.Parser {
	c := *cfg
	applyParserFlags(cmd, &c)
	return apk.NewParser(config.ParserOptions(&c), logger)
}
