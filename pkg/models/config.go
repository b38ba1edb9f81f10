package models

// Config represents the application configuration
type Config struct {
	Platform PlatformConfig `mapstructure:"platform" json:"platform" yaml:"platform"`
	Parser   ParserConfig   `mapstructure:"parser" json:"parser" yaml:"parser"`
	Scanning ScanningConfig `mapstructure:"scanning" json:"scanning" yaml:"scanning"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging" yaml:"logging"`
	Cache    CacheConfig    `mapstructure:"cache" json:"cache" yaml:"cache"`
}

// PlatformConfig describes the platform packages are checked against
type PlatformConfig struct {
	SDKVersion        int      `mapstructure:"sdk_version" json:"sdk_version" yaml:"sdk_version"`
	Codename          string   `mapstructure:"codename" json:"codename" yaml:"codename"` // "REL" on release builds
	SeparateProcesses []string `mapstructure:"separate_processes" json:"separate_processes" yaml:"separate_processes"`
	OnlyCoreApps      bool     `mapstructure:"only_core_apps" json:"only_core_apps" yaml:"only_core_apps"`
	CompatibilityMode bool     `mapstructure:"compatibility_mode" json:"compatibility_mode" yaml:"compatibility_mode"`
}

// ParserConfig contains manifest parser switches
type ParserConfig struct {
	Strict              bool `mapstructure:"strict" json:"strict" yaml:"strict"`
	System              bool `mapstructure:"system" json:"system" yaml:"system"`
	IgnoreProcesses     bool `mapstructure:"ignore_processes" json:"ignore_processes" yaml:"ignore_processes"`
	CollectCertificates bool `mapstructure:"collect_certificates" json:"collect_certificates" yaml:"collect_certificates"`
}

// ScanningConfig contains scanning-related configuration
type ScanningConfig struct {
	Recursive      bool     `mapstructure:"recursive" json:"recursive" yaml:"recursive"`
	FollowSymlinks bool     `mapstructure:"follow_symlinks" json:"follow_symlinks" yaml:"follow_symlinks"`
	IncludePattern []string `mapstructure:"include_pattern" json:"include_pattern" yaml:"include_pattern"`
	ExcludePattern []string `mapstructure:"exclude_pattern" json:"exclude_pattern" yaml:"exclude_pattern"`
	Workers        int      `mapstructure:"workers" json:"workers" yaml:"workers"`
}

// LoggingConfig selects the log level and output format
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"` // "text", "json" or "logfmt"
}

// CacheConfig locates the service discovery cache
type CacheConfig struct {
	Path         string   `mapstructure:"path" json:"path" yaml:"path"`
	ServiceTypes []string `mapstructure:"service_types" json:"service_types" yaml:"service_types"`
}
