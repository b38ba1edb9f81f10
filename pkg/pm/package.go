package pm

import "crypto"

// Package is the parsed model of one application archive. It owns every
// component, permission and intent filter declared by its manifest.
type Package struct {
	PackageName     string
	ApplicationInfo *ApplicationInfo

	Permissions      []*Permission
	PermissionGroups []*PermissionGroup
	Activities       []*Activity
	Receivers        []*Activity
	Providers        []*Provider
	Services         []*Service
	Instrumentation  []*Instrumentation

	// RequestedPermissions and RequestedPermissionsRequired are index aligned.
	RequestedPermissions         []string
	RequestedPermissionsRequired []bool

	ProtectedBroadcasts      []string
	LibraryNames             []string
	UsesLibraries            []string
	UsesOptionalLibraries    []string
	UsesLibraryFiles         []string
	PreferredActivityFilters []*IntentInfo

	OriginalPackages []string
	RealPackage      string
	AdoptPermissions []string
	AppMetaData      Bundle

	Path            string
	VersionCode     int
	VersionName     string
	SharedUserID    string
	SharedUserLabel uint32
	CoreApp         bool
	GIDs            []int

	Signatures     []Signature
	SigningKeys    []crypto.PublicKey
	KeySetMapping  map[string][]crypto.PublicKey
	ManifestDigest []byte

	ConfigPreferences []ConfigurationInfo
	ReqFeatures       []FeatureInfo
	InstallLocation   int

	RequiredForAllUsers   bool
	RestrictedAccountType string
	RequiredAccountType   string

	OverlayTarget   string
	OverlayPriority int
	TrustedOverlay  bool
	IsTheme         bool
	IsLegacyTheme   bool
	HasIconPack     bool
	OverlayTargets  []string

	FirstInstallTime int64
	LastUpdateTime   int64
}

// NewPackage returns an empty package carrying only its name.
func NewPackage(name string) *Package {
	return &Package{
		PackageName: name,
		ApplicationInfo: &ApplicationInfo{
			PackageItemInfo: PackageItemInfo{PackageName: name},
			Flags:           FlagInstalled,
			Enabled:         true,
			InstallLocation: InstallLocationUnspecified,
			IsThemeable:     true,
		},
		InstallLocation: InstallLocationUnspecified,
	}
}

// SetPackageName renames the package and every component it owns.
func (p *Package) SetPackageName(name string) {
	p.PackageName = name
	p.ApplicationInfo.PackageName = name
	for _, perm := range p.Permissions {
		perm.setPackageName(name)
	}
	for _, g := range p.PermissionGroups {
		g.setPackageName(name)
	}
	for _, a := range p.Activities {
		a.setPackageName(name)
	}
	for _, a := range p.Receivers {
		a.setPackageName(name)
	}
	for _, pr := range p.Providers {
		pr.setPackageName(name)
	}
	for _, s := range p.Services {
		s.setPackageName(name)
	}
	for _, in := range p.Instrumentation {
		in.setPackageName(name)
	}
}

// HasComponentClassName reports whether any component uses class name.
func (p *Package) HasComponentClassName(name string) bool {
	for _, a := range p.Activities {
		if a.ClassName == name {
			return true
		}
	}
	for _, a := range p.Receivers {
		if a.ClassName == name {
			return true
		}
	}
	for _, pr := range p.Providers {
		if pr.ClassName == name {
			return true
		}
	}
	for _, s := range p.Services {
		if s.ClassName == name {
			return true
		}
	}
	for _, in := range p.Instrumentation {
		if in.ClassName == name {
			return true
		}
	}
	return false
}

// HasRequestedPermission reports whether name was requested.
func (p *Package) HasRequestedPermission(name string) bool {
	return p.requestedIndex(name) >= 0
}

func (p *Package) requestedIndex(name string) int {
	for i, n := range p.RequestedPermissions {
		if n == name {
			return i
		}
	}
	return -1
}

// AddRequestedPermission appends name to the requested permissions. It
// returns false when name is already present with a different required
// flag, and true otherwise.
func (p *Package) AddRequestedPermission(name string, required bool) bool {
	if i := p.requestedIndex(name); i >= 0 {
		return p.RequestedPermissionsRequired[i] == required
	}
	p.RequestedPermissions = append(p.RequestedPermissions, name)
	p.RequestedPermissionsRequired = append(p.RequestedPermissionsRequired, required)
	return true
}

// String returns a short description of the package.
func (p *Package) String() string {
	return "Package{" + p.PackageName + "}"
}

// Component carries the parts shared by every manifest component.
// Owner is the owning package name; components never point back at their
// Package.
type Component struct {
	Owner     string
	ClassName string
	Intents   []*IntentInfo
	MetaData  Bundle
}

// ComponentName returns the owner and class name pair.
func (c *Component) ComponentName() ComponentName {
	return ComponentName{Package: c.Owner, Class: c.ClassName}
}

// ComponentName identifies a component across packages.
type ComponentName struct {
	Package string `json:"package" yaml:"package"`
	Class   string `json:"class" yaml:"class"`
}

// String returns the "package/class" form, shortening classes inside the
// package to ".Class".
func (c ComponentName) String() string {
	if len(c.Class) > len(c.Package) && c.Class[:len(c.Package)] == c.Package && c.Class[len(c.Package)] == '.' {
		return c.Package + "/" + c.Class[len(c.Package):]
	}
	return c.Package + "/" + c.Class
}

// Permission is a declared <permission> or <permission-tree>.
type Permission struct {
	Component
	Info *PermissionInfo
	Tree bool
}

func (p *Permission) setPackageName(name string) {
	p.Owner = name
	p.Info.PackageName = name
}

// PermissionGroup is a declared <permission-group>.
type PermissionGroup struct {
	Component
	Info *PermissionGroupInfo
}

func (g *PermissionGroup) setPackageName(name string) {
	g.Owner = name
	g.Info.PackageName = name
}

// Activity is an <activity>, <receiver> or <activity-alias>.
type Activity struct {
	Component
	Info *ActivityInfo
}

func (a *Activity) setPackageName(name string) {
	a.Owner = name
	a.Info.PackageName = name
}

// Service is a <service>.
type Service struct {
	Component
	Info *ServiceInfo
}

func (s *Service) setPackageName(name string) {
	s.Owner = name
	s.Info.PackageName = name
}

// Provider is a <provider>.
type Provider struct {
	Component
	Info     *ProviderInfo
	Syncable bool
}

func (pr *Provider) setPackageName(name string) {
	pr.Owner = name
	pr.Info.PackageName = name
}

// Instrumentation is an <instrumentation> declaration.
type Instrumentation struct {
	Component
	Info *InstrumentationInfo
}

func (in *Instrumentation) setPackageName(name string) {
	in.Owner = name
	in.Info.PackageName = name
}
