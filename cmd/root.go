package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/huanfeng/apkparse/internal/config"
	apkerrors "github.com/huanfeng/apkparse/internal/errors"
	"github.com/huanfeng/apkparse/internal/i18n"
	"github.com/huanfeng/apkparse/internal/version"
	"github.com/huanfeng/apkparse/pkg/models"
	"github.com/huanfeng/apkparse/pkg/utils"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	langFlag  string

	cfg    *models.Config
	logger utils.Logger
)

var rootCmd = &cobra.Command{
	Use:           "apkparse",
	Short:         "apkparse - inspect Android application packages",
	Long:          `apkparse reads Android application packages (APK, XAPK, APKM), validates their manifest, verifies their signatures and renders the package information a package manager would report.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			loaded.Logging.Format = logFormat
		}
		cfg = loaded
		return initLogging(cfg.Logging)
	},
}

// Execute runs the root command.
func Execute() {
	// The language has to be known before cobra renders help text.
	if err := i18n.Init(languageFromArgs(os.Args[1:])); err == nil {
		applyCommandLocalization()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./apkparse.yaml)")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json, logfmt)")
	pf.StringVar(&langFlag, "lang", "", "interface language (en, zh)")
}

func initLogging(lc models.LoggingConfig) error {
	level, err := utils.ParseLogLevel(lc.Level)
	if err != nil {
		return err
	}
	format, err := utils.ParseLogFormat(lc.Format)
	if err != nil {
		return err
	}

	lcfg := utils.DefaultLoggerConfig()
	lcfg.Level = level
	lcfg.Format = format
	if err := utils.InitGlobalLogger(lcfg); err != nil {
		return err
	}
	logger = utils.GetGlobalLogger()
	apkerrors.InitGlobalErrorHandler(logger)
	return nil
}

// languageFromArgs finds --lang before flag parsing.
func languageFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--lang" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(arg, "--lang="):
			return strings.TrimPrefix(arg, "--lang=")
		}
	}
	return ""
}

// exitCode maps a failure to a process exit status. Package failures exit
// with 2 so scripts can tell them from usage errors.
func exitCode(err error) int {
	var pe *apkerrors.PackageError
	if errors.As(err, &pe) {
		return 2
	}
	return 1
}
