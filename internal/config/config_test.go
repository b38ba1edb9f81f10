package config

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/huanfeng/apkparse/pkg/pm"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "apkparse.yaml")
	if err := os.WriteFile(empty, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(empty)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := Default()
	if cfg.Platform.SDKVersion != def.Platform.SDKVersion || cfg.Platform.Codename != "REL" {
		t.Errorf("platform = %+v", cfg.Platform)
	}
	if !cfg.Parser.CollectCertificates || cfg.Parser.Strict {
		t.Errorf("parser = %+v", cfg.Parser)
	}
	if cfg.Scanning.Workers != runtime.NumCPU() {
		t.Errorf("workers = %d", cfg.Scanning.Workers)
	}
	if !slices.Equal(cfg.Scanning.IncludePattern, def.Scanning.IncludePattern) {
		t.Errorf("include = %v", cfg.Scanning.IncludePattern)
	}
	if cfg.Cache.Path != "services.yaml" {
		t.Errorf("cache path = %q", cfg.Cache.Path)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apkparse.yaml")
	content := `platform:
  sdk_version: 21
  codename: "L"
  separate_processes: ["com.example.app"]
parser:
  strict: true
  system: true
  ignore_processes: true
scanning:
  workers: 3
cache:
  service_types: ["android.accounts.AccountAuthenticator"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Platform.SDKVersion != 21 || cfg.Platform.Codename != "L" {
		t.Errorf("platform = %+v", cfg.Platform)
	}
	if cfg.Scanning.Workers != 3 || !cfg.Scanning.Recursive {
		t.Errorf("scanning = %+v", cfg.Scanning)
	}
	if len(cfg.Cache.ServiceTypes) != 1 {
		t.Errorf("service types = %v", cfg.Cache.ServiceTypes)
	}

	opts := ParserOptions(cfg)
	if !opts.Strict || opts.SDKVersion != 21 || opts.Codename != "L" {
		t.Errorf("options = %+v", opts)
	}
	if opts.Flags&pm.ParseIsSystem == 0 || opts.Flags&pm.ParseIgnoreProcesses == 0 {
		t.Errorf("flags = %b", opts.Flags)
	}
	if !slices.Equal(opts.SeparateProcesses, []string{"com.example.app"}) {
		t.Errorf("separate processes = %v", opts.SeparateProcesses)
	}
}

func TestLoadEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkparse.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APKPARSE_LOGGING_LEVEL", "debug")
	t.Setenv("APKPARSE_PLATFORM_SDK_VERSION", "18")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want the environment value", cfg.Logging.Level)
	}
	if cfg.Platform.SDKVersion != 18 {
		t.Errorf("sdk = %d", cfg.Platform.SDKVersion)
	}
}

func TestSaveTemplateRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apkparse.yaml")
	if err := SaveTemplate(path); err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of the template error = %v", err)
	}
	if cfg.Platform.SDKVersion != 19 || cfg.Logging.Format != "text" {
		t.Errorf("template config = %+v", cfg)
	}
	if cfg.Scanning.Workers != runtime.NumCPU() {
		t.Errorf("workers = %d, want the CPU count for 0", cfg.Scanning.Workers)
	}
}
