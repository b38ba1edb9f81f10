package apk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/klauspost/compress/zip"

	apkerrors "github.com/huanfeng/apkparse/internal/errors"
	"github.com/huanfeng/apkparse/pkg/manifest"
	"github.com/huanfeng/apkparse/pkg/pm"
	"github.com/huanfeng/apkparse/pkg/utils"
)

// ReleaseCodename marks a release platform.
const ReleaseCodename = "REL"

// Options describe the platform a package is parsed for.
type Options struct {
	// SDKVersion is the running platform version. Zero disables the
	// <uses-sdk> compatibility check.
	SDKVersion int
	// Codename is the development codename, or "REL" (or empty) on a
	// release platform.
	Codename          string
	SeparateProcesses []string
	OnlyCoreApps      bool
	// DisableCompatibilityMode marks every package as supporting all
	// screen sizes and densities.
	DisableCompatibilityMode bool
	// Strict turns every tolerated unknown element into a fatal error.
	Strict bool
	Flags  pm.ParseFlags
}

// DefaultOptions returns options for a release platform at API level 19.
func DefaultOptions() Options {
	return Options{SDKVersion: 19, Codename: ReleaseCodename}
}

func (o Options) release() bool {
	return o.Codename == "" || o.Codename == ReleaseCodename
}

// Parser turns application archives into pm.Package models.
//
// A Parser holds no per-parse state and is safe for concurrent use.
type Parser struct {
	opts   Options
	logger utils.Logger
}

// NewParser creates a new archive parser
func NewParser(opts Options, logger utils.Logger) *Parser {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Parser{opts: opts, logger: logger}
}

// Options returns the parser options.
func (p *Parser) Options() Options {
	return p.opts
}

// ParsePackage parses the archive at path.
//
// A nil package with a nil error is the benign skip produced in core-apps
// mode for packages that are not core apps. Every failure is a
// *errors.PackageError carrying its status code.
func (p *Parser) ParsePackage(path string) (pkg *pm.Package, err error) {
	defer func() {
		if r := recover(); r != nil {
			pkg = nil
			err = apkerrors.NewParseErrorf(pm.StatusUnexpectedException, "%v", r).
				WithContext("path", path)
		}
	}()

	fi, statErr := os.Stat(path)
	if statErr != nil || !fi.Mode().IsRegular() {
		return nil, apkerrors.NewParseErrorf(pm.StatusNotAPK, "Skipping dir: %s", path).
			WithContext("path", path)
	}
	flags := p.opts.Flags
	if flags&pm.ParseMustBeAPK != 0 && !strings.EqualFold(filepath.Ext(path), ".apk") {
		return nil, apkerrors.NewParseErrorf(pm.StatusNotAPK, "Skipping non-package file: %s", path).
			WithContext("path", path)
	}

	source := path
	if flags&pm.ParseMustBeAPK == 0 && IsContainer(path) {
		base, cleanup, cerr := ExtractBaseAPK(path)
		if cerr != nil {
			return nil, apkerrors.WrapParseError(cerr, pm.StatusNotAPK, "no base package in container").
				WithContext("path", path)
		}
		defer cleanup()
		p.logger.Debug("Using base package %s from container %s", filepath.Base(base), path)
		source = base
	}

	zr, err := zip.OpenReader(source)
	if err != nil {
		return nil, apkerrors.WrapParseError(err, pm.StatusBadManifest, "Unable to read AndroidManifest.xml of "+path).
			WithContext("path", path)
	}
	defer zr.Close()

	data, err := readEntry(&zr.Reader, pm.ManifestEntryName)
	if err != nil {
		return nil, apkerrors.WrapParseError(err, pm.StatusBadManifest, "Unable to read AndroidManifest.xml of "+path).
			WithContext("path", path)
	}
	dec, err := manifest.NewDecoderBytes(data)
	if err != nil {
		return nil, apkerrors.WrapParseError(err, pm.StatusBadManifest, "Unable to decode AndroidManifest.xml of "+path).
			WithContext("path", path)
	}

	pkg, err = p.ParseManifest(dec, path)
	if err != nil {
		p.logger.Warn("%s (at %s)", apkerrors.MessageOf(err), path)
		return nil, err
	}
	if pkg == nil {
		return nil, nil
	}

	pkg.Path = path
	pkg.Signatures = nil

	if pkg.IsTheme {
		pkg.OverlayTargets, pkg.HasIconPack = ScanThemeAssets(&zr.Reader)
	}
	return pkg, nil
}

// ParseManifest builds a package from a decoded manifest. path is used for
// diagnostics only.
func (p *Parser) ParseManifest(dec *manifest.Decoder, path string) (pkg *pm.Package, err error) {
	defer func() {
		if r := recover(); r != nil {
			pkg = nil
			err = apkerrors.NewParseErrorf(pm.StatusUnexpectedException, "%v", r).
				WithContext("path", path).
				WithContext("stack", string(debug.Stack()))
		}
	}()

	s := &parseState{
		opts:   p.opts,
		logger: p.logger,
		path:   path,
		dec:    dec,
		flags:  p.opts.Flags,
	}
	pkg, err = s.parsePackage()
	if err != nil {
		var pe *apkerrors.PackageError
		if !errors.As(err, &pe) {
			err = apkerrors.WrapParseError(err, pm.StatusUnexpectedException, dec.PositionDescription())
		}
		return nil, err
	}
	return pkg, nil
}

// parseState is the mutable state of one parse call.
type parseState struct {
	opts   Options
	logger utils.Logger
	path   string
	dec    *manifest.Decoder
	flags  pm.ParseFlags
	pkg    *pm.Package
}

func (s *parseState) malformed(format string, args ...interface{}) error {
	return apkerrors.NewParseErrorf(pm.StatusManifestMalformed, format, args...).
		WithContext("path", s.path).
		WithContext("position", s.dec.PositionDescription())
}

func (s *parseState) warn(format string, args ...interface{}) {
	s.logger.Warn("%s at %s %s", fmt.Sprintf(format, args...), s.path, s.dec.PositionDescription())
}

// unknownElement handles a child tag that parent does not recognise. It
// skips the element, or fails in strict mode.
func (s *parseState) unknownElement(parent string) error {
	if s.opts.Strict {
		return s.malformed("Bad element under <%s>: %s", parent, s.dec.Name())
	}
	s.warn("Unknown element under <%s>: %s", parent, s.dec.Name())
	return s.dec.SkipCurrentTag()
}

// str returns a literal attribute value. Resource references do not count
// as literal values.
func (s *parseState) str(name string) (string, bool) {
	v, ok := s.dec.Attr(name)
	if !ok || v.IsReference() {
		return "", false
	}
	return v.Raw, true
}

// label reads a label attribute into info: a reference becomes LabelRes and
// anything else the non-localized label.
func (s *parseState) label(name string, info *pm.PackageItemInfo) {
	v, ok := s.dec.Attr(name)
	if !ok {
		return
	}
	if info.LabelRes = v.ResourceID(); info.LabelRes == 0 {
		info.NonLocalizedLabel = v.Raw
	}
}

type manifestElement int

const (
	elemUnknown manifestElement = iota
	elemApplication
	elemOverlay
	elemKeys
	elemPermissionGroup
	elemPermission
	elemPermissionTree
	elemUsesPermission
	elemUsesConfiguration
	elemUsesFeature
	elemUsesSDK
	elemSupportsScreens
	elemProtectedBroadcast
	elemInstrumentation
	elemOriginalPackage
	elemAdoptPermissions
	elemIgnored
	elemMetaData
	elemTheme
)

var manifestElements = map[string]manifestElement{
	"application":        elemApplication,
	"overlay":            elemOverlay,
	"keys":               elemKeys,
	"permission-group":   elemPermissionGroup,
	"permission":         elemPermission,
	"permission-tree":    elemPermissionTree,
	"uses-permission":    elemUsesPermission,
	"uses-configuration": elemUsesConfiguration,
	"uses-feature":       elemUsesFeature,
	"uses-sdk":           elemUsesSDK,
	"supports-screens":   elemSupportsScreens,
	"protected-broadcast": elemProtectedBroadcast,
	"instrumentation":    elemInstrumentation,
	"original-package":   elemOriginalPackage,
	"adopt-permissions":  elemAdoptPermissions,
	"uses-gl-texture":    elemIgnored,
	"compatible-screens": elemIgnored,
	"supports-input":     elemIgnored,
	"eat-comment":        elemIgnored,
	"meta-data":          elemMetaData,
	"theme":              elemTheme,
}

// screenSupport tracks a <supports-screens> attribute: 1 when unset, and
// otherwise -1 for true and 0 for false.
type screenSupport int

const screenUnset screenSupport = 1

func (s *parseState) screenAttr(name string, cur screenSupport) screenSupport {
	v, ok := s.dec.Attr(name)
	if !ok {
		return cur
	}
	if b, ok := v.Bool(); ok && v.Kind == manifest.KindBool {
		if b {
			return -1
		}
		return 0
	}
	if n, ok := v.Int(); ok {
		return screenSupport(n)
	}
	return cur
}

func (ss screenSupport) enabled(targetSdk, since int) bool {
	return ss < 0 || (ss > 0 && targetSdk >= since)
}

// readRootTag advances to the root element and validates the package name.
func readRootTag(dec *manifest.Decoder) (string, error) {
	for {
		ev, err := dec.Next()
		if err != nil {
			return "", err
		}
		if ev == manifest.StartTag {
			break
		}
		if ev == manifest.EndDocument {
			return "", apkerrors.NewParseError(pm.StatusBadPackageName, "No start tag found")
		}
	}
	if dec.Name() != "manifest" {
		return "", apkerrors.NewParseError(pm.StatusBadPackageName, "No <manifest> tag")
	}
	name := dec.AttrString("package")
	if name == "" {
		return "", apkerrors.NewParseError(pm.StatusBadPackageName, "<manifest> does not specify package")
	}
	if err := pm.ValidateName(name, true); err != nil && name != pm.PlatformPackageName {
		return "", apkerrors.NewParseErrorf(pm.StatusBadPackageName,
			"<manifest> specifies bad package name \"%s\": %s", name, err)
	}
	return name, nil
}

func (s *parseState) parsePackage() (*pm.Package, error) {
	dec := s.dec
	name, err := readRootTag(dec)
	if err != nil {
		return nil, err
	}

	coreApp := dec.AttrBool("coreApp", false)
	if s.opts.OnlyCoreApps && !coreApp {
		s.logger.Debug("Skipping non-core package %s", name)
		return nil, nil
	}

	pkg := pm.NewPackage(name)
	s.pkg = pkg
	ai := pkg.ApplicationInfo
	pkg.CoreApp = coreApp
	pkg.VersionCode = dec.AttrInt("versionCode", 0)
	pkg.VersionName, _ = s.str("versionName")
	if sharedUser, _ := s.str("sharedUserId"); sharedUser != "" {
		if err := pm.ValidateName(sharedUser, true); err != nil && name != pm.PlatformPackageName {
			return nil, apkerrors.NewParseErrorf(pm.StatusBadSharedUserID,
				"<manifest> specifies bad sharedUserId name \"%s\": %s", sharedUser, err)
		}
		pkg.SharedUserID = sharedUser
		pkg.SharedUserLabel = dec.AttrResource("sharedUserLabel")
	}
	pkg.InstallLocation = dec.AttrEnum("installLocation", manifest.InstallLocation, pm.InstallLocationUnspecified)
	ai.InstallLocation = pkg.InstallLocation

	if s.flags&pm.ParseIsSystem != 0 {
		ai.Flags |= pm.FlagSystem
		if s.flags&pm.ParseIsPrivileged != 0 {
			ai.Flags |= pm.FlagPrivileged
		}
	}
	if s.flags&pm.ParseForwardLock != 0 {
		ai.Flags |= pm.FlagForwardLock
	}
	if s.flags&pm.ParseOnSDCard != 0 {
		ai.Flags |= pm.FlagExternalStorage
	}

	small, normal, large, xlarge := screenUnset, screenUnset, screenUnset, screenUnset
	resizeable, anyDensity := screenUnset, screenUnset
	foundApp := false
	var rootMeta pm.Bundle

	outer := dec.Depth()
	for {
		ok, err := dec.NextChild(outer)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch manifestElements[dec.Name()] {
		case elemApplication:
			if foundApp {
				if s.opts.Strict {
					return nil, s.malformed("<manifest> has more than one <application>")
				}
				s.warn("<manifest> has more than one <application>")
				if err := dec.SkipCurrentTag(); err != nil {
					return nil, err
				}
				continue
			}
			foundApp = true
			if err := s.parseApplication(); err != nil {
				return nil, err
			}

		case elemOverlay:
			pkg.TrustedOverlay = s.flags&pm.ParseIsSystem != 0
			target, ok := dec.LookupString("targetPackage")
			if !ok {
				return nil, s.malformed("<overlay> does not specify a target package")
			}
			pkg.OverlayTarget = target
			pkg.OverlayPriority = dec.AttrInt("priority", -1)
			if pkg.OverlayPriority < 0 || pkg.OverlayPriority > 9999 {
				return nil, s.malformed("<overlay> priority must be between 0 and 9999")
			}
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		case elemKeys:
			if err := s.parseKeys(); err != nil {
				return nil, err
			}

		case elemPermissionGroup:
			if err := s.parsePermissionGroup(); err != nil {
				return nil, err
			}

		case elemPermission:
			if err := s.parsePermission(); err != nil {
				return nil, err
			}

		case elemPermissionTree:
			if err := s.parsePermissionTree(); err != nil {
				return nil, err
			}

		case elemUsesPermission:
			if err := s.parseUsesPermission(); err != nil {
				return nil, err
			}

		case elemUsesConfiguration:
			cfg := pm.ConfigurationInfo{
				ReqTouchScreen:  dec.AttrEnum("reqTouchScreen", manifest.ReqTouchScreen, 0),
				ReqKeyboardType: dec.AttrEnum("reqKeyboardType", manifest.ReqKeyboardType, 0),
				ReqNavigation:   dec.AttrEnum("reqNavigation", manifest.ReqNavigation, 0),
			}
			if dec.AttrBool("reqHardKeyboard", false) {
				cfg.ReqInputFeatures |= pm.InputFeatureHardKeyboard
			}
			if dec.AttrBool("reqFiveWayNav", false) {
				cfg.ReqInputFeatures |= pm.InputFeatureFiveWayNav
			}
			pkg.ConfigPreferences = append(pkg.ConfigPreferences, cfg)
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		case elemUsesFeature:
			fi := pm.FeatureInfo{}
			fi.Name, _ = s.str("name")
			if fi.Name == "" {
				fi.ReqGlEsVersion = dec.AttrInt("glEsVersion", pm.GLESVersionUndefined)
			}
			if dec.AttrBool("required", true) {
				fi.Flags |= pm.FeatureFlagRequired
			}
			pkg.ReqFeatures = append(pkg.ReqFeatures, fi)
			if fi.Name == "" {
				pkg.ConfigPreferences = append(pkg.ConfigPreferences, pm.ConfigurationInfo{ReqGlEsVersion: fi.ReqGlEsVersion})
			}
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		case elemUsesSDK:
			if err := s.parseUsesSDK(); err != nil {
				return nil, err
			}

		case elemSupportsScreens:
			ai.RequiresSmallestWidthDp = dec.AttrInt("requiresSmallestWidthDp", 0)
			ai.CompatibleWidthLimitDp = dec.AttrInt("compatibleWidthLimitDp", 0)
			ai.LargestWidthLimitDp = dec.AttrInt("largestWidthLimitDp", 0)
			small = s.screenAttr("smallScreens", small)
			normal = s.screenAttr("normalScreens", normal)
			large = s.screenAttr("largeScreens", large)
			xlarge = s.screenAttr("xlargeScreens", xlarge)
			resizeable = s.screenAttr("resizeable", resizeable)
			anyDensity = s.screenAttr("anyDensity", anyDensity)
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		case elemProtectedBroadcast:
			if b, ok := s.str("name"); ok && s.flags&pm.ParseIsSystem != 0 {
				pkg.ProtectedBroadcasts = appendUnique(pkg.ProtectedBroadcasts, b)
			}
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		case elemInstrumentation:
			if err := s.parseInstrumentation(); err != nil {
				return nil, err
			}

		case elemOriginalPackage:
			if orig, ok := s.str("name"); ok && orig != pkg.PackageName {
				if pkg.OriginalPackages == nil {
					pkg.RealPackage = pkg.PackageName
				}
				pkg.OriginalPackages = append(pkg.OriginalPackages, orig)
			}
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		case elemAdoptPermissions:
			if adopt, ok := s.str("name"); ok {
				pkg.AdoptPermissions = append(pkg.AdoptPermissions, adopt)
			}
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		case elemIgnored:
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		case elemMetaData:
			if rootMeta, err = s.parseMetaData(rootMeta); err != nil {
				return nil, err
			}

		case elemTheme:
			// Redirection tables carried by legacy themes are not modelled.
			pkg.IsLegacyTheme = true
			if err := dec.SkipCurrentTag(); err != nil {
				return nil, err
			}

		default:
			if err := s.unknownElement("manifest"); err != nil {
				return nil, err
			}
		}
	}

	if !foundApp && len(pkg.Instrumentation) == 0 {
		return nil, apkerrors.NewParseError(pm.StatusManifestEmpty,
			"<manifest> does not contain an <application> or <instrumentation>").
			WithContext("path", s.path)
	}

	if added := pm.ApplyCompatPermissions(pkg); len(added) > 0 {
		s.logger.Info("%s: compat added %s", pkg.PackageName, strings.Join(added, " "))
	}

	target := ai.TargetSdkVersion
	if small.enabled(target, pm.SDKDonut) {
		ai.Flags |= pm.FlagSupportsSmallScreens
	}
	if normal != 0 {
		ai.Flags |= pm.FlagSupportsNormalScreens
	}
	if large.enabled(target, pm.SDKDonut) {
		ai.Flags |= pm.FlagSupportsLargeScreens
	}
	if xlarge.enabled(target, pm.SDKGingerbread) {
		ai.Flags |= pm.FlagSupportsXLargeScreens
	}
	if resizeable.enabled(target, pm.SDKDonut) {
		ai.Flags |= pm.FlagResizeableForScreens
	}
	if anyDensity.enabled(target, pm.SDKDonut) {
		ai.Flags |= pm.FlagSupportsScreenDensities
	}
	if s.opts.DisableCompatibilityMode {
		ai.Flags |= pm.FlagSupportsSmallScreens | pm.FlagSupportsNormalScreens |
			pm.FlagSupportsLargeScreens | pm.FlagSupportsXLargeScreens |
			pm.FlagResizeableForScreens | pm.FlagSupportsScreenDensities
	}

	if _, ok := rootMeta[pm.ThemeMetaDataKey]; ok || pkg.IsLegacyTheme {
		pkg.IsTheme = true
		pkg.TrustedOverlay = true
		pkg.OverlayPriority = 1
	}
	if pkg.IsTheme {
		ai.IsThemeable = false
	}
	return pkg, nil
}

func (s *parseState) parseUsesSDK() error {
	dec := s.dec
	if s.opts.SDKVersion > 0 {
		var minVers, targetVers int
		var minCode, targetCode string

		if v, ok := dec.Attr("minSdkVersion"); ok {
			if n, isInt := v.Int(); isInt {
				minVers, targetVers = n, n
			} else {
				minCode, targetCode = v.Raw, v.Raw
			}
		}
		if v, ok := dec.Attr("targetSdkVersion"); ok {
			if n, isInt := v.Int(); isInt {
				targetVers = n
			} else {
				minCode, targetCode = v.Raw, v.Raw
			}
		}

		if minCode != "" {
			if err := s.checkCodename(minCode); err != nil {
				return err
			}
		} else if minVers > s.opts.SDKVersion {
			return apkerrors.NewParseErrorf(pm.StatusOlderSDK,
				"Requires newer sdk version #%d (current version is #%d)", minVers, s.opts.SDKVersion)
		}

		if targetCode != "" {
			if err := s.checkCodename(targetCode); err != nil {
				return err
			}
			s.pkg.ApplicationInfo.TargetSdkVersion = pm.SDKCurDevelopment
		} else {
			s.pkg.ApplicationInfo.TargetSdkVersion = targetVers
		}
	}
	return dec.SkipCurrentTag()
}

func (s *parseState) checkCodename(code string) error {
	if code == s.opts.Codename {
		return nil
	}
	if s.opts.release() {
		return apkerrors.NewParseErrorf(pm.StatusOlderSDK,
			"Requires development platform %s but this is a release platform.", code)
	}
	return apkerrors.NewParseErrorf(pm.StatusOlderSDK,
		"Requires development platform %s (current platform is %s)", code, s.opts.Codename)
}

func (s *parseState) parseUsesPermission() error {
	name, _ := s.str("name")
	maxSdk := 0
	if v, ok := s.dec.Attr("maxSdkVersion"); ok && v.Kind == manifest.KindInt {
		maxSdk, _ = v.Int()
	}
	if name != "" && (maxSdk == 0 || maxSdk >= s.opts.SDKVersion) {
		// Optional permissions are not supported; every entry is required.
		if !s.pkg.AddRequestedPermission(name, true) {
			return s.malformed("conflicting <uses-permission> entries")
		}
	}
	return s.dec.SkipCurrentTag()
}

// parseMetaData reads one <meta-data> element into data, allocating it when
// nil, and returns the bundle.
func (s *parseState) parseMetaData(data pm.Bundle) (pm.Bundle, error) {
	dec := s.dec
	if data == nil {
		data = pm.Bundle{}
	}
	name, ok := s.str("name")
	if !ok || name == "" {
		return nil, s.malformed("<meta-data> requires an android:name attribute")
	}

	if v, ok := dec.Attr("resource"); ok && v.ResourceID() != 0 {
		data[name] = int(v.ResourceID())
	} else if v, ok := dec.Attr("value"); ok {
		switch v.Kind {
		case manifest.KindString:
			data[name] = v.Raw
		case manifest.KindBool:
			data[name], _ = v.Bool()
		case manifest.KindInt:
			data[name], _ = v.Int()
		case manifest.KindFloat:
			f, _ := v.Float()
			data[name] = float32(f)
		case manifest.KindReference:
			if id := v.ResourceID(); id != 0 {
				data[name] = int(id)
			} else {
				data[name] = v.Raw
			}
		default:
			if s.opts.Strict {
				return nil, s.malformed("<meta-data> only supports string, integer, float, color, boolean, and resource reference types")
			}
			s.warn("<meta-data> only supports string, integer, float, color, boolean, and resource reference types: %s", name)
			data[name] = v.Raw
		}
	} else {
		return nil, s.malformed("<meta-data> requires an android:value or android:resource attribute")
	}
	return data, dec.SkipCurrentTag()
}

// parseAllMetaData reads the <meta-data> children of the current element.
func (s *parseState) parseAllMetaData(tag string, c *pm.Component) error {
	outer := s.dec.Depth()
	for {
		ok, err := s.dec.NextChild(outer)
		if err != nil || !ok {
			return err
		}
		if s.dec.Name() == "meta-data" {
			if c.MetaData, err = s.parseMetaData(c.MetaData); err != nil {
				return err
			}
			continue
		}
		if err := s.unknownElement(tag); err != nil {
			return err
		}
	}
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	f := findEntry(zr, name)
	if f == nil {
		return nil, fmt.Errorf("%s: entry not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
