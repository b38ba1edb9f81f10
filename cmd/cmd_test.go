package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	apkerrors "github.com/huanfeng/apkparse/internal/errors"
	"github.com/huanfeng/apkparse/pkg/pm"
)

func TestParseQueryFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		names   []string
		want    pm.QueryFlags
		wantErr bool
	}{
		{names: nil, want: 0},
		{names: []string{"activities", " permissions", ""}, want: pm.GetActivities | pm.GetPermissions},
		{names: []string{"signatures"}, want: pm.GetSignatures},
		{names: []string{"everything"}, wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseQueryFlags(tt.names)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseQueryFlags(%v) error = %v", tt.names, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseQueryFlags(%v) = %#x, want %#x", tt.names, got, tt.want)
		}
	}
}

func TestParseEnabledState(t *testing.T) {
	t.Parallel()

	if got, err := parseEnabledState("Disabled-Until-Used"); err != nil || got != pm.ComponentEnabledStateDisabledUntilUsed {
		t.Errorf("parseEnabledState() = %d, %v", got, err)
	}
	if _, err := parseEnabledState("sometimes"); err == nil {
		t.Error("parseEnabledState(sometimes) succeeded")
	}
}

func TestLanguageFromArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"parse", "--lang", "zh", "a.apk"}, "zh"},
		{[]string{"--lang=en", "scan", "."}, "en"},
		{[]string{"parse", "a.apk"}, ""},
		{[]string{"--lang"}, ""},
	}
	for _, tt := range tests {
		if got := languageFromArgs(tt.args); got != tt.want {
			t.Errorf("languageFromArgs(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	if got := exitCode(errors.New("usage")); got != 1 {
		t.Errorf("exitCode(plain) = %d", got)
	}
	if got := exitCode(apkerrors.NewParseError(pm.StatusNotAPK, "x")); got != 2 {
		t.Errorf("exitCode(package error) = %d", got)
	}
}

func writeTestArchive(t *testing.T, path string, manifest string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create(pm.ManifestEntryName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(manifest)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

// run executes the root command. Commands share package state, so the
// tests using it do not run in parallel.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "app.apk")
	writeTestArchive(t, archive, `<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="com.example.app" android:versionCode="5" android:versionName="1.5">
		<uses-permission android:name="android.permission.INTERNET"/>
		<application><activity android:name=".Main"/></application>
	</manifest>`)

	t.Run("parse json", func(t *testing.T) {
		out, err := run(t, "parse", "--json", "--no-certs", archive)
		if err != nil {
			t.Fatalf("parse error = %v", err)
		}
		var doc struct {
			Package struct {
				PackageName string `json:"packageName"`
				VersionCode int    `json:"versionCode"`
				Activities  []any  `json:"activities"`
			} `json:"package"`
		}
		if err := json.Unmarshal([]byte(out), &doc); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out)
		}
		if doc.Package.PackageName != "com.example.app" || doc.Package.VersionCode != 5 || len(doc.Package.Activities) != 1 {
			t.Errorf("package = %+v", doc.Package)
		}
	})

	t.Run("lite", func(t *testing.T) {
		out, err := run(t, "lite", "--json", archive)
		if err != nil {
			t.Fatalf("lite error = %v", err)
		}
		if !strings.Contains(out, `"packageName": "com.example.app"`) {
			t.Errorf("lite output = %s", out)
		}
	})

	t.Run("certs unsigned", func(t *testing.T) {
		_, err := run(t, "certs", archive)
		if got := apkerrors.StatusOf(err); got != pm.StatusNoCertificates {
			t.Errorf("certs status = %s (%v)", got, err)
		}
	})

	t.Run("info cbor", func(t *testing.T) {
		out := filepath.Join(dir, "info.cbor")
		if _, err := run(t, "info", "--flags", "activities", "--out", out, archive); err != nil {
			t.Fatalf("info error = %v", err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		info, err := pm.UnmarshalPackageInfo(data)
		if err != nil {
			t.Fatalf("UnmarshalPackageInfo() error = %v", err)
		}
		if info.PackageName != "com.example.app" || len(info.Activities) != 1 {
			t.Errorf("info = %+v", info)
		}
	})

	t.Run("info not installed", func(t *testing.T) {
		_, err := run(t, "info", "--not-installed", "--out", "", archive)
		if err == nil {
			t.Fatal("info for a user without the package succeeded")
		}
		infoNotInstalled = false
	})

	t.Run("init", func(t *testing.T) {
		path := filepath.Join(dir, "apkparse.yaml")
		if _, err := run(t, "init", path); err != nil {
			t.Fatalf("init error = %v", err)
		}
		if _, err := run(t, "init", path); err == nil {
			t.Error("init over an existing file succeeded without --force")
		}
	})
}
