package apk

import (
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	overlayPath = "assets/overlays/"
	iconPath    = "assets/icons/"
)

// ScanThemeAssets lists the packages a theme archive overlays and reports
// whether it ships an icon pack. Targets are returned sorted.
func ScanThemeAssets(zr *zip.Reader) (targets []string, hasIconPack bool) {
	seen := map[string]struct{}{}
	for _, f := range zr.File {
		name := f.Name
		if strings.HasPrefix(name, overlayPath) && len(name) > len(overlayPath) {
			parts := strings.Split(name, "/")
			if len(parts) > 2 && parts[2] != "" {
				seen[parts[2]] = struct{}{}
			}
		}
		if strings.HasPrefix(name, iconPath) && len(name) > len(iconPath) {
			hasIconPack = true
		}
	}
	for t := range seen {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets, hasIconPack
}
