package apk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// writeZip stores raw entries in a new zip at path.
func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestIsContainer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"app.apk", false},
		{"app.xapk", true},
		{"APP.XAPK", true},
		{"app.apkm", true},
		{"app.zip", false},
	}
	for _, tt := range tests {
		if got := IsContainer(tt.path); got != tt.want {
			t.Errorf("IsContainer(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestBaseEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries map[string][]byte
		want    string
		wantErr bool
	}{
		{
			name: "manifest marks base",
			entries: map[string][]byte{
				"manifest.json":        []byte(`{"package_name":"com.example.app","split_apks":[{"file":"main.apk","id":"base"},{"file":"config.arm64_v8a.apk","id":"config.arm64_v8a"}]}`),
				"main.apk":             []byte("base"),
				"config.arm64_v8a.apk": []byte("split"),
			},
			want: "main.apk",
		},
		{
			name: "base.apk by name",
			entries: map[string][]byte{
				"config.en.apk": []byte("split"),
				"base.apk":      []byte("base"),
			},
			want: "base.apk",
		},
		{
			name: "first non-config archive",
			entries: map[string][]byte{
				"config.xxhdpi.apk": []byte("split"),
				"com.example.apk":   []byte("base"),
			},
			want: "com.example.apk",
		},
		{
			name: "no archive",
			entries: map[string][]byte{
				"icon.png": []byte("png"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "bundle.xapk")
			writeZip(t, path, tt.entries)

			zr, err := zip.OpenReader(path)
			if err != nil {
				t.Fatal(err)
			}
			defer zr.Close()

			f, err := baseEntry(&zr.Reader)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("baseEntry() = %s, want error", f.Name)
				}
				return
			}
			if err != nil {
				t.Fatalf("baseEntry() error = %v", err)
			}
			if f.Name != tt.want {
				t.Errorf("baseEntry() = %s, want %s", f.Name, tt.want)
			}
		})
	}
}

func TestExtractBaseAPK(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bundle.apkm")
	writeZip(t, path, map[string][]byte{"base.apk": []byte("base contents")})

	extracted, cleanup, err := ExtractBaseAPK(path)
	if err != nil {
		t.Fatalf("ExtractBaseAPK() error = %v", err)
	}
	data, err := os.ReadFile(extracted)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "base contents" {
		t.Errorf("extracted = %q", data)
	}
	cleanup()
	if _, err := os.Stat(extracted); !os.IsNotExist(err) {
		t.Error("cleanup left the temporary file behind")
	}
}

func TestParsePackageFromContainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "base.apk")
	buildArchive(t, base, defaultFiles(), []testSigner{newTestSigner(t, "CERT")}, nil)
	baseData, err := os.ReadFile(base)
	if err != nil {
		t.Fatal(err)
	}

	bundle := filepath.Join(dir, "app.xapk")
	writeZip(t, bundle, map[string][]byte{
		"com.example.app.apk": baseData,
		"config.en.apk":       []byte("split"),
		"icon.png":            []byte("png"),
	})

	p := NewParser(DefaultOptions(), nil)
	pkg, err := p.ParsePackage(bundle)
	if err != nil {
		t.Fatalf("ParsePackage() error = %v", err)
	}
	if pkg.PackageName != "com.example.app" || pkg.Path != bundle {
		t.Errorf("package = %s at %s", pkg.PackageName, pkg.Path)
	}
	if err := p.CollectCertificates(pkg); err != nil {
		t.Fatalf("CollectCertificates() error = %v", err)
	}
	if len(pkg.Signatures) != 1 {
		t.Errorf("signatures = %d", len(pkg.Signatures))
	}

	lite, err := p.ParseLite(bundle)
	if err != nil {
		t.Fatalf("ParseLite() error = %v", err)
	}
	if lite.PackageName != "com.example.app" || lite.VersionCode != 7 {
		t.Errorf("lite = %+v", lite)
	}
}
