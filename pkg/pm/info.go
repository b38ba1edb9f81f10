package pm

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"
)

// Bundle holds meta-data values keyed by name. Values are string, bool,
// int, float32 or a resource identifier stored as int.
type Bundle map[string]any

// Clone returns a shallow copy of the bundle.
func (b Bundle) Clone() Bundle {
	if b == nil {
		return nil
	}
	out := make(Bundle, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// String returns the string value stored under key.
func (b Bundle) String(key string) (string, bool) {
	s, ok := b[key].(string)
	return s, ok
}

// PackageItemInfo is the base of every info record.
type PackageItemInfo struct {
	Name              string `json:"name,omitempty"`
	PackageName       string `json:"packageName,omitempty"`
	LabelRes          uint32 `json:"labelRes,omitempty"`
	NonLocalizedLabel string `json:"nonLocalizedLabel,omitempty"`
	Icon              uint32 `json:"icon,omitempty"`
	Logo              uint32 `json:"logo,omitempty"`
	MetaData          Bundle `json:"metaData,omitempty"`
}

// ComponentInfo is the base of activity, service and provider records.
type ComponentInfo struct {
	PackageItemInfo

	// ApplicationInfo is shared with the owning package and is not encoded
	// per component; decoding relinks it.
	ApplicationInfo *ApplicationInfo `json:"-"`
	ProcessName     string           `json:"processName,omitempty"`
	DescriptionRes  uint32           `json:"descriptionRes,omitempty"`
	Enabled         bool             `json:"enabled"`
	Exported        bool             `json:"exported"`
}

// ApplicationInfo describes the <application> element.
type ApplicationInfo struct {
	PackageItemInfo

	TaskAffinity            string   `json:"taskAffinity,omitempty"`
	Permission              string   `json:"permission,omitempty"`
	ProcessName             string   `json:"processName,omitempty"`
	ClassName               string   `json:"className,omitempty"`
	DescriptionRes          uint32   `json:"descriptionRes,omitempty"`
	Theme                   uint32   `json:"theme,omitempty"`
	ManageSpaceActivityName string   `json:"manageSpaceActivityName,omitempty"`
	BackupAgentName         string   `json:"backupAgentName,omitempty"`
	UIOptions               int      `json:"uiOptions,omitempty"`
	Flags                   int      `json:"flags"`
	RequiresSmallestWidthDp int      `json:"requiresSmallestWidthDp,omitempty"`
	CompatibleWidthLimitDp  int      `json:"compatibleWidthLimitDp,omitempty"`
	LargestWidthLimitDp     int      `json:"largestWidthLimitDp,omitempty"`
	SourceDir               string   `json:"sourceDir,omitempty"`
	PublicSourceDir         string   `json:"publicSourceDir,omitempty"`
	SharedLibraryFiles      []string `json:"sharedLibraryFiles,omitempty"`
	DataDir                 string   `json:"dataDir,omitempty"`
	UID                     int      `json:"uid"`
	TargetSdkVersion        int      `json:"targetSdkVersion"`
	Enabled                 bool     `json:"enabled"`
	EnabledSetting          int      `json:"enabledSetting,omitempty"`
	InstallLocation         int      `json:"installLocation"`
	IsThemeable             bool     `json:"isThemeable"`
}

// HasFlag reports whether flag is set.
func (a *ApplicationInfo) HasFlag(flag int) bool {
	return a.Flags&flag != 0
}

func (a *ApplicationInfo) setFlag(flag int, on bool) {
	if on {
		a.Flags |= flag
	} else {
		a.Flags &^= flag
	}
}

// ActivityInfo describes an <activity>, <receiver> or <activity-alias>.
type ActivityInfo struct {
	ComponentInfo

	Theme              uint32 `json:"theme,omitempty"`
	LaunchMode         int    `json:"launchMode,omitempty"`
	Permission         string `json:"permission,omitempty"`
	TaskAffinity       string `json:"taskAffinity,omitempty"`
	TargetActivity     string `json:"targetActivity,omitempty"`
	Flags              int    `json:"flags,omitempty"`
	ScreenOrientation  int    `json:"screenOrientation"`
	ConfigChanges      int    `json:"configChanges,omitempty"`
	SoftInputMode      int    `json:"softInputMode,omitempty"`
	UIOptions          int    `json:"uiOptions,omitempty"`
	ParentActivityName string `json:"parentActivityName,omitempty"`
}

// ServiceInfo describes a <service>.
type ServiceInfo struct {
	ComponentInfo

	Permission string `json:"permission,omitempty"`
	Flags      int    `json:"flags,omitempty"`
}

// Pattern matching kinds used by path and scheme-specific-part matchers.
const (
	PatternLiteral    = 0
	PatternPrefix     = 1
	PatternSimpleGlob = 2
)

// PatternMatcher is a path pattern with its matching kind.
type PatternMatcher struct {
	Path string `json:"path"`
	Type int    `json:"type"`
}

// Match reports whether s matches the pattern.
func (p PatternMatcher) Match(s string) bool {
	switch p.Type {
	case PatternLiteral:
		return p.Path == s
	case PatternPrefix:
		return strings.HasPrefix(s, p.Path)
	case PatternSimpleGlob:
		return matchSimpleGlob(p.Path, s)
	}
	return false
}

// matchSimpleGlob implements the manifest glob syntax: '.' matches any
// character, "X*" matches zero or more X, ".*" matches anything, and '\'
// escapes the next character.
func matchSimpleGlob(pattern, s string) bool {
	np, nm := len(pattern), len(s)
	if np == 0 {
		return nm == 0
	}
	at := func(i int) byte {
		if i < np {
			return pattern[i]
		}
		return 0
	}

	ip, im := 0, 0
	next := pattern[0]
	for ip < np && im < nm {
		c := next
		ip++
		next = at(ip)
		escaped := c == '\\'
		if escaped {
			c = next
			ip++
			next = at(ip)
		}
		if next == '*' {
			if !escaped && c == '.' {
				if ip >= np-1 {
					return true
				}
				ip++
				next = pattern[ip]
				if next == '\\' {
					ip++
					next = at(ip)
				}
				for im < nm && s[im] != next {
					im++
				}
				if im == nm {
					return false
				}
				ip++
				next = at(ip)
				im++
			} else {
				for im < nm && s[im] == c {
					im++
				}
				ip++
				next = at(ip)
			}
			continue
		}
		if c != '.' && s[im] != c {
			return false
		}
		im++
	}
	if ip >= np && im >= nm {
		return true
	}
	return ip == np-2 && pattern[ip] == '.' && pattern[ip+1] == '*'
}

// PathPermission guards a provider path with read and write permissions.
type PathPermission struct {
	PatternMatcher

	ReadPermission  string `json:"readPermission,omitempty"`
	WritePermission string `json:"writePermission,omitempty"`
}

// ProviderInfo describes a <provider>.
type ProviderInfo struct {
	ComponentInfo

	Authority             string           `json:"authority"`
	ReadPermission        string           `json:"readPermission,omitempty"`
	WritePermission       string           `json:"writePermission,omitempty"`
	GrantURIPermissions   bool             `json:"grantUriPermissions,omitempty"`
	URIPermissionPatterns []PatternMatcher `json:"uriPermissionPatterns,omitempty"`
	PathPermissions       []PathPermission `json:"pathPermissions,omitempty"`
	Multiprocess          bool             `json:"multiprocess,omitempty"`
	InitOrder             int              `json:"initOrder,omitempty"`
	IsSyncable            bool             `json:"isSyncable,omitempty"`
	Flags                 int              `json:"flags,omitempty"`
}

// PermissionInfo describes a declared <permission> or <permission-tree>.
type PermissionInfo struct {
	PackageItemInfo

	ProtectionLevel         int    `json:"protectionLevel"`
	Group                   string `json:"group,omitempty"`
	Flags                   int    `json:"flags,omitempty"`
	DescriptionRes          uint32 `json:"descriptionRes,omitempty"`
	NonLocalizedDescription string `json:"nonLocalizedDescription,omitempty"`
}

// ProtectionBase returns the base protection type without flag bits.
func (p *PermissionInfo) ProtectionBase() int {
	return p.ProtectionLevel & ProtectionMaskBase
}

// PermissionGroupInfo describes a <permission-group>.
type PermissionGroupInfo struct {
	PackageItemInfo

	DescriptionRes          uint32 `json:"descriptionRes,omitempty"`
	NonLocalizedDescription string `json:"nonLocalizedDescription,omitempty"`
	Flags                   int    `json:"flags,omitempty"`
	Priority                int    `json:"priority,omitempty"`
}

// InstrumentationInfo describes an <instrumentation> test harness.
type InstrumentationInfo struct {
	PackageItemInfo

	TargetPackage   string `json:"targetPackage"`
	SourceDir       string `json:"sourceDir,omitempty"`
	PublicSourceDir string `json:"publicSourceDir,omitempty"`
	DataDir         string `json:"dataDir,omitempty"`
	HandleProfiling bool   `json:"handleProfiling,omitempty"`
	FunctionalTest  bool   `json:"functionalTest,omitempty"`
}

// FeatureInfo is a <uses-feature> requirement.
type FeatureInfo struct {
	Name           string `json:"name,omitempty"`
	ReqGlEsVersion int    `json:"reqGlEsVersion,omitempty"`
	Flags          int    `json:"flags,omitempty"`
}

// GlEsVersion formats the OpenGL ES requirement as "major.minor".
func (f FeatureInfo) GlEsVersion() string {
	return fmt.Sprintf("%d.%d", (f.ReqGlEsVersion>>16)&0xffff, f.ReqGlEsVersion&0xffff)
}

// ConfigurationInfo is a <uses-configuration> preference.
type ConfigurationInfo struct {
	ReqTouchScreen   int `json:"reqTouchScreen,omitempty"`
	ReqKeyboardType  int `json:"reqKeyboardType,omitempty"`
	ReqNavigation    int `json:"reqNavigation,omitempty"`
	ReqInputFeatures int `json:"reqInputFeatures,omitempty"`
	ReqGlEsVersion   int `json:"reqGlEsVersion,omitempty"`
}

// Signature is the encoded form of a signer certificate.
type Signature struct {
	Raw []byte `json:"raw"`
}

// Equal reports whether two signatures carry the same certificate bytes.
func (s Signature) Equal(o Signature) bool {
	return string(s.Raw) == string(o.Raw)
}

// String returns the lowercase hex encoding of the certificate.
func (s Signature) String() string {
	return hex.EncodeToString(s.Raw)
}

// SHA256 returns the hex SHA-256 fingerprint of the certificate.
func (s Signature) SHA256() string {
	sum := sha256.Sum256(s.Raw)
	return hex.EncodeToString(sum[:])
}

// SHA1 returns the hex SHA-1 fingerprint of the certificate.
func (s Signature) SHA1() string {
	sum := sha1.Sum(s.Raw)
	return hex.EncodeToString(sum[:])
}

// Certificate decodes the signature as an X.509 certificate.
func (s Signature) Certificate() (*x509.Certificate, error) {
	return x509.ParseCertificate(s.Raw)
}

// SignaturesEqual compares two signature sets ignoring order.
func SignaturesEqual(a, b []Signature) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		found := false
		for _, t := range b {
			if s.Equal(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, t := range b {
		found := false
		for _, s := range a {
			if s.Equal(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// VerifierInfo is a declared external package verifier.
type VerifierInfo struct {
	PackageName string `json:"packageName"`
	PublicKey   any    `json:"-"`
}

// PackageInfo is the caller-facing projection of a parsed package.
type PackageInfo struct {
	PackageName               string                 `json:"packageName"`
	VersionCode               int                    `json:"versionCode"`
	VersionName               string                 `json:"versionName,omitempty"`
	SharedUserID              string                 `json:"sharedUserId,omitempty"`
	SharedUserLabel           uint32                 `json:"sharedUserLabel,omitempty"`
	ApplicationInfo           *ApplicationInfo       `json:"applicationInfo,omitempty"`
	FirstInstallTime          int64                  `json:"firstInstallTime,omitempty"`
	LastUpdateTime            int64                  `json:"lastUpdateTime,omitempty"`
	GIDs                      []int                  `json:"gids,omitempty"`
	Activities                []*ActivityInfo        `json:"activities,omitempty"`
	Receivers                 []*ActivityInfo        `json:"receivers,omitempty"`
	Services                  []*ServiceInfo         `json:"services,omitempty"`
	Providers                 []*ProviderInfo        `json:"providers,omitempty"`
	Instrumentation           []*InstrumentationInfo `json:"instrumentation,omitempty"`
	Permissions               []*PermissionInfo      `json:"permissions,omitempty"`
	RequestedPermissions      []string               `json:"requestedPermissions,omitempty"`
	RequestedPermissionsFlags []int                  `json:"requestedPermissionsFlags,omitempty"`
	Signatures                []Signature            `json:"signatures,omitempty"`
	ConfigPreferences         []ConfigurationInfo    `json:"configPreferences,omitempty"`
	ReqFeatures               []FeatureInfo          `json:"reqFeatures,omitempty"`
	InstallLocation           int                    `json:"installLocation"`
	RequiredForAllUsers       bool                   `json:"requiredForAllUsers,omitempty"`
	RestrictedAccountType     string                 `json:"restrictedAccountType,omitempty"`
	RequiredAccountType       string                 `json:"requiredAccountType,omitempty"`
	OverlayTarget             string                 `json:"overlayTarget,omitempty"`
	IsThemeApk                bool                   `json:"isThemeApk,omitempty"`
	IsLegacyThemeApk          bool                   `json:"isLegacyThemeApk,omitempty"`
	HasIconPack               bool                   `json:"hasIconPack,omitempty"`
	OverlayTargets            []string               `json:"overlayTargets,omitempty"`
}
