package apk

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// containerManifest is the manifest.json (or info.json) carried by split
// package bundles.
type containerManifest struct {
	PackageName string `json:"package_name"`
	VersionCode int64  `json:"version_code"`
	SplitAPKs   []struct {
		File string `json:"file"`
		ID   string `json:"id"`
	} `json:"split_apks"`
}

// IsContainer reports whether path names a split bundle (.xapk or .apkm)
// rather than a plain archive.
func IsContainer(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xapk", ".apkm":
		return true
	}
	return false
}

// baseEntry picks the base archive of a bundle: the entry the bundle
// manifest marks as "base", then any "base.apk", then the first archive
// that is not a configuration split.
func baseEntry(zr *zip.Reader) (*zip.File, error) {
	var bm *containerManifest
	for _, name := range []string{"manifest.json", "info.json"} {
		data, err := readEntry(zr, name)
		if err != nil {
			continue
		}
		m := &containerManifest{}
		if json.Unmarshal(data, m) == nil {
			bm = m
			break
		}
	}
	if bm != nil {
		for _, split := range bm.SplitAPKs {
			if split.ID == "base" {
				if f := findEntry(zr, split.File); f != nil {
					return f, nil
				}
			}
		}
	}

	var fallback *zip.File
	for _, f := range zr.File {
		lower := strings.ToLower(f.Name)
		if !strings.HasSuffix(lower, ".apk") {
			continue
		}
		if filepath.Base(lower) == "base.apk" {
			return f, nil
		}
		if fallback == nil && !strings.Contains(filepath.Base(lower), "config.") {
			fallback = f
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("no base package found in bundle")
	}
	return fallback, nil
}

// ExtractBaseAPK copies the base archive of the bundle at path into a
// temporary file. The returned cleanup removes it.
func ExtractBaseAPK(path string) (string, func(), error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open bundle (not a valid zip): %w", err)
	}
	defer zr.Close()

	entry, err := baseEntry(&zr.Reader)
	if err != nil {
		return "", nil, err
	}

	rc, err := entry.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open base package: %w", err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "apkparse_base_*.apk")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to extract base package: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}
