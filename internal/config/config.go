package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/huanfeng/apkparse/pkg/apk"
	"github.com/huanfeng/apkparse/pkg/models"
	"github.com/huanfeng/apkparse/pkg/pm"
	"github.com/spf13/viper"
)

// Default returns the configuration used when no file or environment
// override is present.
func Default() models.Config {
	opts := apk.DefaultOptions()
	return models.Config{
		Platform: models.PlatformConfig{
			SDKVersion:        opts.SDKVersion,
			Codename:          opts.Codename,
			SeparateProcesses: []string{},
			CompatibilityMode: true,
		},
		Parser: models.ParserConfig{
			CollectCertificates: true,
		},
		Scanning: models.ScanningConfig{
			Recursive:      true,
			FollowSymlinks: false,
			IncludePattern: []string{"*.apk", "*.xapk", "*.apkm"},
			ExcludePattern: []string{},
			Workers:        runtime.NumCPU(),
		},
		Logging: models.LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: models.CacheConfig{
			Path:         "services.yaml",
			ServiceTypes: []string{},
		},
	}
}

// Load loads configuration from file and environment
func Load(configPath string) (*models.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	def := Default()
	v.SetDefault("platform.sdk_version", def.Platform.SDKVersion)
	v.SetDefault("platform.codename", def.Platform.Codename)
	v.SetDefault("platform.separate_processes", def.Platform.SeparateProcesses)
	v.SetDefault("platform.only_core_apps", def.Platform.OnlyCoreApps)
	v.SetDefault("platform.compatibility_mode", def.Platform.CompatibilityMode)
	v.SetDefault("parser.strict", def.Parser.Strict)
	v.SetDefault("parser.system", def.Parser.System)
	v.SetDefault("parser.ignore_processes", def.Parser.IgnoreProcesses)
	v.SetDefault("parser.collect_certificates", def.Parser.CollectCertificates)
	v.SetDefault("scanning.recursive", def.Scanning.Recursive)
	v.SetDefault("scanning.follow_symlinks", def.Scanning.FollowSymlinks)
	v.SetDefault("scanning.include_pattern", def.Scanning.IncludePattern)
	v.SetDefault("scanning.exclude_pattern", def.Scanning.ExcludePattern)
	v.SetDefault("scanning.workers", def.Scanning.Workers)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("cache.path", def.Cache.Path)
	v.SetDefault("cache.service_types", def.Cache.ServiceTypes)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("apkparse")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "apkparse"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Defaults apply when no file exists.
	}

	v.SetEnvPrefix("APKPARSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config models.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.Scanning.Workers <= 0 {
		config.Scanning.Workers = runtime.NumCPU()
	}

	return &config, nil
}

// ParserOptions converts the platform and parser sections into parser
// options.
func ParserOptions(cfg *models.Config) apk.Options {
	opts := apk.Options{
		SDKVersion:        cfg.Platform.SDKVersion,
		Codename:          cfg.Platform.Codename,
		SeparateProcesses: cfg.Platform.SeparateProcesses,
		OnlyCoreApps:      cfg.Platform.OnlyCoreApps,
		Strict:            cfg.Parser.Strict,

		DisableCompatibilityMode: !cfg.Platform.CompatibilityMode,
	}
	if cfg.Parser.System {
		opts.Flags |= pm.ParseIsSystem
	}
	if cfg.Parser.IgnoreProcesses {
		opts.Flags |= pm.ParseIgnoreProcesses
	}
	return opts
}

// SaveTemplate saves a configuration template
func SaveTemplate(path string) error {
	templateContent := `# apkparse configuration file

platform:
  # API level of the platform packages are checked against.
  # 0 disables the <uses-sdk> check.
  sdk_version: 19

  # Development codename, or "REL" on a release platform
  codename: "REL"

  # Processes that are forced into the package's own process
  separate_processes: []

  # Only parse packages declaring coreApp="true"
  only_core_apps: false

  # Render compatibility flags in projections
  compatibility_mode: true

parser:
  # Treat unknown elements as fatal instead of skipping them
  strict: false

  # Parse as a system image package (trusted certificates, system flags)
  system: false

  # Ignore android:process declarations
  ignore_processes: false

  # Verify signatures after parsing
  collect_certificates: true

scanning:
  # Scan directories recursively
  recursive: true

  # Follow symbolic links
  follow_symlinks: false

  # Include patterns (glob)
  include_pattern:
    - "*.apk"
    - "*.xapk"
    - "*.apkm"

  # Exclude patterns (glob)
  exclude_pattern: []

  # Parallel parse workers (0 = number of CPUs)
  workers: 0

logging:
  # debug, info, warn, error
  level: "info"

  # text, json or logfmt
  format: "text"

cache:
  # Service discovery cache file
  path: "services.yaml"

  # Service meta-data keys to index
  service_types: []
`

	return os.WriteFile(path, []byte(templateContent), 0644)
}
