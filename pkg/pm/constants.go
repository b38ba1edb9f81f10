package pm

// Status is the result code of a parse or certificate collection.
type Status int

const (
	StatusSucceeded                Status = 1
	StatusOlderSDK                 Status = -12
	StatusNotAPK                   Status = -100
	StatusBadManifest              Status = -101
	StatusUnexpectedException      Status = -102
	StatusNoCertificates           Status = -103
	StatusInconsistentCertificates Status = -104
	StatusCertificateEncoding      Status = -105
	StatusBadPackageName           Status = -106
	StatusBadSharedUserID          Status = -107
	StatusManifestMalformed        Status = -108
	StatusManifestEmpty            Status = -109
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusOlderSDK:
		return "INSTALL_FAILED_OLDER_SDK"
	case StatusNotAPK:
		return "INSTALL_PARSE_FAILED_NOT_APK"
	case StatusBadManifest:
		return "INSTALL_PARSE_FAILED_BAD_MANIFEST"
	case StatusUnexpectedException:
		return "INSTALL_PARSE_FAILED_UNEXPECTED_EXCEPTION"
	case StatusNoCertificates:
		return "INSTALL_PARSE_FAILED_NO_CERTIFICATES"
	case StatusInconsistentCertificates:
		return "INSTALL_PARSE_FAILED_INCONSISTENT_CERTIFICATES"
	case StatusCertificateEncoding:
		return "INSTALL_PARSE_FAILED_CERTIFICATE_ENCODING"
	case StatusBadPackageName:
		return "INSTALL_PARSE_FAILED_BAD_PACKAGE_NAME"
	case StatusBadSharedUserID:
		return "INSTALL_PARSE_FAILED_BAD_SHARED_USER_ID"
	case StatusManifestMalformed:
		return "INSTALL_PARSE_FAILED_MANIFEST_MALFORMED"
	case StatusManifestEmpty:
		return "INSTALL_PARSE_FAILED_MANIFEST_EMPTY"
	default:
		return "UNKNOWN"
	}
}

// AllStatuses lists every status code in declaration order.
var AllStatuses = []Status{
	StatusSucceeded,
	StatusOlderSDK,
	StatusNotAPK,
	StatusBadManifest,
	StatusUnexpectedException,
	StatusNoCertificates,
	StatusInconsistentCertificates,
	StatusCertificateEncoding,
	StatusBadPackageName,
	StatusBadSharedUserID,
	StatusManifestMalformed,
	StatusManifestEmpty,
}

// QueryFlags select the optional sections of a projection.
type QueryFlags int

const (
	GetActivities                   QueryFlags = 0x00000001
	GetReceivers                    QueryFlags = 0x00000002
	GetServices                     QueryFlags = 0x00000004
	GetProviders                    QueryFlags = 0x00000008
	GetInstrumentation              QueryFlags = 0x00000010
	GetIntentFilters                QueryFlags = 0x00000020
	GetSignatures                   QueryFlags = 0x00000040
	GetMetaData                     QueryFlags = 0x00000080
	GetGIDs                         QueryFlags = 0x00000100
	GetDisabledComponents           QueryFlags = 0x00000200
	GetSharedLibraryFiles           QueryFlags = 0x00000400
	GetURIPermissionPatterns        QueryFlags = 0x00000800
	GetPermissions                  QueryFlags = 0x00001000
	GetUninstalledPackages          QueryFlags = 0x00002000
	GetConfigurations               QueryFlags = 0x00004000
	GetDisabledUntilUsedComponents  QueryFlags = 0x00008000
	MatchDefaultOnly                QueryFlags = 0x00010000
	MatchAll                        QueryFlags = 0x00020000
	MatchDirectBootUnaware          QueryFlags = 0x00040000
	MatchDirectBootAware            QueryFlags = 0x00080000
	MatchSystemOnly                 QueryFlags = 0x00100000
	MatchFactoryOnly                QueryFlags = 0x00200000
)

// Has reports whether every bit of f is set.
func (q QueryFlags) Has(f QueryFlags) bool {
	return q&f == f
}

// QueryFlagNames maps the CLI spelling of each flag to its bit.
var QueryFlagNames = map[string]QueryFlags{
	"activities":                GetActivities,
	"receivers":                 GetReceivers,
	"services":                  GetServices,
	"providers":                 GetProviders,
	"instrumentation":           GetInstrumentation,
	"intent-filters":            GetIntentFilters,
	"signatures":                GetSignatures,
	"meta-data":                 GetMetaData,
	"gids":                      GetGIDs,
	"disabled-components":       GetDisabledComponents,
	"shared-library-files":      GetSharedLibraryFiles,
	"uri-permission-patterns":   GetURIPermissionPatterns,
	"permissions":               GetPermissions,
	"uninstalled-packages":      GetUninstalledPackages,
	"configurations":            GetConfigurations,
	"disabled-until-used":       GetDisabledUntilUsedComponents,
	"match-default-only":        MatchDefaultOnly,
	"match-all":                 MatchAll,
	"match-direct-boot-unaware": MatchDirectBootUnaware,
	"match-direct-boot-aware":   MatchDirectBootAware,
	"match-system-only":         MatchSystemOnly,
	"match-factory-only":        MatchFactoryOnly,
}

// Component enabled states.
const (
	ComponentEnabledStateDefault           = 0
	ComponentEnabledStateEnabled           = 1
	ComponentEnabledStateDisabled          = 2
	ComponentEnabledStateDisabledUser      = 3
	ComponentEnabledStateDisabledUntilUsed = 4
)

// ParseFlags control how a manifest is interpreted.
type ParseFlags int

const (
	ParseIsSystem ParseFlags = 1 << iota
	ParseChatty
	ParseMustBeAPK
	ParseIgnoreProcesses
	ParseForwardLock
	ParseOnSDCard
	ParseIsSystemDir
	ParseIsPrivileged
)

// ApplicationInfo flags.
const (
	FlagSystem                  = 1 << 0
	FlagDebuggable              = 1 << 1
	FlagHasCode                 = 1 << 2
	FlagPersistent              = 1 << 3
	FlagFactoryTest             = 1 << 4
	FlagAllowTaskReparenting    = 1 << 5
	FlagAllowClearUserData      = 1 << 6
	FlagUpdatedSystemApp        = 1 << 7
	FlagTestOnly                = 1 << 8
	FlagSupportsSmallScreens    = 1 << 9
	FlagSupportsNormalScreens   = 1 << 10
	FlagSupportsLargeScreens    = 1 << 11
	FlagResizeableForScreens    = 1 << 12
	FlagSupportsScreenDensities = 1 << 13
	FlagVMSafeMode              = 1 << 14
	FlagAllowBackup             = 1 << 15
	FlagKillAfterRestore        = 1 << 16
	FlagRestoreAnyVersion       = 1 << 17
	FlagExternalStorage         = 1 << 18
	FlagSupportsXLargeScreens   = 1 << 19
	FlagLargeHeap               = 1 << 20
	FlagStopped                 = 1 << 21
	FlagSupportsRTL             = 1 << 22
	FlagInstalled               = 1 << 23
	FlagIsDataOnly              = 1 << 24
	FlagBlocked                 = 1 << 27
	FlagCantSaveState           = 1 << 28
	FlagForwardLock             = 1 << 29
	FlagPrivileged              = 1 << 30
)

// ActivityInfo flags.
const (
	ActivityFlagMultiprocess               = 0x0001
	ActivityFlagFinishOnTaskLaunch         = 0x0002
	ActivityFlagClearTaskOnLaunch          = 0x0004
	ActivityFlagAlwaysRetainTaskState      = 0x0008
	ActivityFlagStateNotNeeded             = 0x0010
	ActivityFlagExcludeFromRecents         = 0x0020
	ActivityFlagAllowTaskReparenting       = 0x0040
	ActivityFlagNoHistory                  = 0x0080
	ActivityFlagFinishOnCloseSystemDialogs = 0x0100
	ActivityFlagHardwareAccelerated        = 0x0200
	ActivityFlagShowOnLockScreen           = 0x0400
	ActivityFlagImmersive                  = 0x0800
	ActivityFlagPrimaryUserOnly            = 0x20000000
	ActivityFlagSingleUser                 = 0x40000000
)

// ServiceInfo flags.
const (
	ServiceFlagStopWithTask    = 0x0001
	ServiceFlagIsolatedProcess = 0x0002
	ServiceFlagSingleUser      = 0x40000000
)

// ProviderInfo flags.
const (
	ProviderFlagSingleUser = 0x40000000
)

// Permission protection levels.
const (
	ProtectionNormal            = 0
	ProtectionDangerous         = 1
	ProtectionSignature         = 2
	ProtectionSignatureOrSystem = 3
	ProtectionFlagSystem        = 0x10
	ProtectionFlagDevelopment   = 0x20
	ProtectionMaskBase          = 0x0f
	ProtectionMaskFlags         = 0xf0
)

// FixProtectionLevel rewrites the legacy signatureOrSystem base level into
// its signature|system form.
func FixProtectionLevel(level int) int {
	if level == ProtectionSignatureOrSystem {
		level = ProtectionSignature | ProtectionFlagSystem
	}
	return level
}

// PermissionGroupInfo flags.
const (
	PermissionGroupFlagPersonalInfo = 1
)

// FeatureInfo constants.
const (
	FeatureFlagRequired  = 1
	GLESVersionUndefined = 0
)

// ConfigurationInfo input features.
const (
	InputFeatureHardKeyboard = 1
	InputFeatureFiveWayNav   = 2
)

// Requested permission flags.
const (
	RequestedPermissionRequired = 1
	RequestedPermissionGranted  = 2
)

// Install location preferences.
const (
	InstallLocationUnspecified    = -1
	InstallLocationAuto           = 0
	InstallLocationInternalOnly   = 1
	InstallLocationPreferExternal = 2
)

// Platform version codes referenced by compatibility rules.
const (
	SDKDonut            = 4
	SDKFroyo            = 8
	SDKGingerbread      = 9
	SDKIceCreamSandwich = 14
	SDKJellyBean        = 16
	SDKJellyBeanMR1     = 17
	SDKJellyBeanMR2     = 18
	SDKCurDevelopment   = 10000
)

// PerUserRange is the uid span reserved for each user.
const PerUserRange = 100000

// UID composes a per-user uid from a user id and an app id.
func UID(userID, appID int) int {
	return userID*PerUserRange + appID%PerUserRange
}

// Well-known names.
const (
	PlatformPackageName   = "android"
	CategoryDefault       = "android.intent.category.DEFAULT"
	ThemeMetaDataKey      = "org.cyanogenmod.theme.name"
	ManifestEntryName     = "AndroidManifest.xml"
	SigningMetadataPrefix = "META-INF/"
)
