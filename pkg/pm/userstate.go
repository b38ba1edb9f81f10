package pm

// PackageUserState is the per-user install state of a package.
type PackageUserState struct {
	Installed   bool `json:"installed" yaml:"installed"`
	Blocked     bool `json:"blocked" yaml:"blocked"`
	Stopped     bool `json:"stopped" yaml:"stopped"`
	NotLaunched bool `json:"notLaunched" yaml:"not_launched"`
	Enabled     int  `json:"enabled" yaml:"enabled"`

	DisabledComponents map[string]struct{} `json:"-" yaml:"-"`
	EnabledComponents  map[string]struct{} `json:"-" yaml:"-"`
}

// DefaultUserState is the state of a freshly installed package.
func DefaultUserState() PackageUserState {
	return PackageUserState{
		Installed: true,
		Enabled:   ComponentEnabledStateDefault,
	}
}

// CheckUseInstalledOrBlocked reports whether a package in this state is
// visible for a query with flags.
func (s PackageUserState) CheckUseInstalledOrBlocked(flags QueryFlags) bool {
	return (s.Installed && !s.Blocked) || flags&GetUninstalledPackages != 0
}

// IsAvailable reports whether the package is visible without any
// uninstalled-inclusive query flag.
func (s PackageUserState) IsAvailable() bool {
	return s.CheckUseInstalledOrBlocked(0)
}
