package apk

import (
	"github.com/klauspost/compress/zip"

	apkerrors "github.com/huanfeng/apkparse/internal/errors"
	"github.com/huanfeng/apkparse/pkg/manifest"
	"github.com/huanfeng/apkparse/pkg/pm"
)

// PackageLite is the identity of an archive read without building its
// component model.
type PackageLite struct {
	PackageName     string            `json:"packageName"`
	VersionCode     int               `json:"versionCode"`
	InstallLocation int               `json:"installLocation"`
	Verifiers       []pm.VerifierInfo `json:"verifiers,omitempty"`
	IsTheme         bool              `json:"isTheme,omitempty"`
}

// ParseLite reads the identity of the archive at path. Only the manifest
// entry is opened.
//
// Any failure yields a nil result; the error only describes the reason.
func (p *Parser) ParseLite(path string) (*PackageLite, error) {
	source := path
	if IsContainer(path) {
		base, cleanup, err := ExtractBaseAPK(path)
		if err != nil {
			return nil, apkerrors.WrapParseError(err, pm.StatusNotAPK, "no base package in container").
				WithContext("path", path)
		}
		defer cleanup()
		source = base
	}

	zr, err := zip.OpenReader(source)
	if err != nil {
		p.logger.Warn("Unable to read AndroidManifest.xml of %s: %v", path, err)
		return nil, apkerrors.WrapParseError(err, pm.StatusBadManifest, "Unable to read AndroidManifest.xml of "+path)
	}
	defer zr.Close()

	data, err := readEntry(&zr.Reader, pm.ManifestEntryName)
	if err != nil {
		p.logger.Warn("Unable to read AndroidManifest.xml of %s: %v", path, err)
		return nil, apkerrors.WrapParseError(err, pm.StatusBadManifest, "Unable to read AndroidManifest.xml of "+path)
	}
	dec, err := manifest.NewDecoderBytes(data)
	if err != nil {
		return nil, apkerrors.WrapParseError(err, pm.StatusBadManifest, "Unable to decode AndroidManifest.xml of "+path)
	}

	lite, err := p.ParseLiteManifest(dec)
	if err != nil {
		p.logger.Error("parsePackageLite error: %s (at %s)", apkerrors.MessageOf(err), path)
		return nil, err
	}
	return lite, nil
}

// ParseLiteManifest scans the root element and its direct children. Bad
// verifier entries are skipped; only a missing or invalid root fails.
func (p *Parser) ParseLiteManifest(dec *manifest.Decoder) (*PackageLite, error) {
	name, err := readRootTag(dec)
	if err != nil {
		return nil, err
	}

	lite := &PackageLite{
		PackageName:     name,
		InstallLocation: pm.InstallLocationUnspecified,
	}
	found := 0
	for _, a := range dec.Attrs() {
		switch a.Name {
		case "installLocation":
			lite.InstallLocation = dec.AttrEnum("installLocation", manifest.InstallLocation, pm.InstallLocationUnspecified)
			found++
		case "versionCode":
			lite.VersionCode = dec.AttrInt("versionCode", 0)
			found++
		}
		if found >= 2 {
			break
		}
	}

	// Only tags directly below <manifest> are considered.
	searchDepth := dec.Depth() + 1
	for {
		ev, err := dec.Next()
		if err != nil {
			return nil, apkerrors.WrapParseError(err, pm.StatusUnexpectedException, dec.PositionDescription())
		}
		if ev == manifest.EndDocument || (ev == manifest.EndTag && dec.Depth() < searchDepth) {
			break
		}
		if ev != manifest.StartTag || dec.Depth() != searchDepth {
			continue
		}

		switch dec.Name() {
		case "package-verifier":
			if v := parseVerifier(dec, p.logger); v != nil {
				lite.Verifiers = append(lite.Verifiers, *v)
			}
		case "meta-data":
			if dec.AttrString("name") == pm.ThemeMetaDataKey {
				lite.IsTheme = true
				lite.InstallLocation = pm.InstallLocationInternalOnly
			}
		case "theme":
			lite.IsTheme = true
			lite.InstallLocation = pm.InstallLocationInternalOnly
		}
	}
	return lite, nil
}
