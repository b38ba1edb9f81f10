package pm

import (
	"slices"
	"strconv"
)

// ProjectionOptions carries the caller supplied inputs of a projection.
type ProjectionOptions struct {
	Flags   QueryFlags
	State   PackageUserState
	UserID  int
	GIDs    []int
	Granted map[string]struct{}

	FirstInstallTime int64
	LastUpdateTime   int64
}

// copyNeeded reports whether a projection must be rendered on a copy
// rather than on the shared info object of the package.
func copyNeeded(flags QueryFlags, p *Package, state PackageUserState, metaData Bundle, userID int) bool {
	if userID != 0 {
		return true
	}
	if state.Enabled != ComponentEnabledStateDefault {
		enabled := state.Enabled == ComponentEnabledStateEnabled
		if p.ApplicationInfo.Enabled != enabled {
			return true
		}
	}
	if !state.Installed || state.Blocked {
		return true
	}
	if state.Stopped {
		return true
	}
	if flags&GetMetaData != 0 && (metaData != nil || p.AppMetaData != nil) {
		return true
	}
	if flags&GetSharedLibraryFiles != 0 && p.UsesLibraryFiles != nil {
		return true
	}
	return false
}

func updateApplicationInfo(ai *ApplicationInfo, flags QueryFlags, state PackageUserState) {
	ai.setFlag(FlagInstalled, state.Installed)
	ai.setFlag(FlagBlocked, state.Blocked)
	switch state.Enabled {
	case ComponentEnabledStateEnabled:
		ai.Enabled = true
	case ComponentEnabledStateDisabledUntilUsed:
		ai.Enabled = flags&GetDisabledUntilUsedComponents != 0
	case ComponentEnabledStateDisabled, ComponentEnabledStateDisabledUser:
		ai.Enabled = false
	}
	ai.EnabledSetting = state.Enabled
}

// sharedUpToDate reports whether applying state to the shared application
// info would leave it unchanged. The shared object is never written by a
// projection, so it is only handed out when it already reflects state.
func sharedUpToDate(ai *ApplicationInfo, flags QueryFlags, state PackageUserState) bool {
	updated := *ai
	updateApplicationInfo(&updated, flags, state)
	return updated.Flags == ai.Flags && updated.Enabled == ai.Enabled && updated.EnabledSetting == ai.EnabledSetting
}

// GenerateApplicationInfo projects the application info of p for a user.
// It returns nil when the package is not visible for flags and state. The
// result may be shared with p and must not be modified.
func GenerateApplicationInfo(p *Package, flags QueryFlags, state PackageUserState, userID int) *ApplicationInfo {
	if p == nil || !state.CheckUseInstalledOrBlocked(flags) {
		return nil
	}
	untilUsed := flags&GetDisabledUntilUsedComponents != 0 &&
		state.Enabled == ComponentEnabledStateDisabledUntilUsed
	if !copyNeeded(flags, p, state, nil, userID) && !untilUsed &&
		sharedUpToDate(p.ApplicationInfo, flags, state) {
		return p.ApplicationInfo
	}

	ai := *p.ApplicationInfo
	if userID != 0 {
		ai.UID = UID(userID, ai.UID)
		ai.DataDir = DataDirForUser(userID, ai.PackageName)
	}
	if flags&GetMetaData != 0 {
		ai.MetaData = p.AppMetaData
	}
	if flags&GetSharedLibraryFiles != 0 {
		ai.SharedLibraryFiles = p.UsesLibraryFiles
	}
	ai.setFlag(FlagStopped, state.Stopped)
	updateApplicationInfo(&ai, flags, state)
	return &ai
}

// DataDirForUser returns the data directory of a package for a user.
func DataDirForUser(userID int, packageName string) string {
	if userID == 0 {
		return "/data/data/" + packageName
	}
	return "/data/user/" + strconv.Itoa(userID) + "/" + packageName
}

// GenerateActivityInfo projects an activity or receiver of p.
func GenerateActivityInfo(p *Package, a *Activity, flags QueryFlags, state PackageUserState, userID int) *ActivityInfo {
	if a == nil || !state.CheckUseInstalledOrBlocked(flags) {
		return nil
	}
	if !copyNeeded(flags, p, state, a.MetaData, userID) {
		return a.Info
	}
	ai := *a.Info
	ai.MetaData = a.MetaData
	ai.ApplicationInfo = GenerateApplicationInfo(p, flags, state, userID)
	return &ai
}

// GenerateServiceInfo projects a service of p.
func GenerateServiceInfo(p *Package, s *Service, flags QueryFlags, state PackageUserState, userID int) *ServiceInfo {
	if s == nil || !state.CheckUseInstalledOrBlocked(flags) {
		return nil
	}
	if !copyNeeded(flags, p, state, s.MetaData, userID) {
		return s.Info
	}
	si := *s.Info
	si.MetaData = s.MetaData
	si.ApplicationInfo = GenerateApplicationInfo(p, flags, state, userID)
	return &si
}

// GenerateProviderInfo projects a provider of p. URI permission patterns
// are only reported when requested.
func GenerateProviderInfo(p *Package, pr *Provider, flags QueryFlags, state PackageUserState, userID int) *ProviderInfo {
	if pr == nil || !state.CheckUseInstalledOrBlocked(flags) {
		return nil
	}
	if !copyNeeded(flags, p, state, pr.MetaData, userID) &&
		(flags&GetURIPermissionPatterns != 0 || pr.Info.URIPermissionPatterns == nil) {
		return pr.Info
	}
	pi := *pr.Info
	pi.MetaData = pr.MetaData
	if flags&GetURIPermissionPatterns == 0 {
		pi.URIPermissionPatterns = nil
	}
	pi.ApplicationInfo = GenerateApplicationInfo(p, flags, state, userID)
	return &pi
}

// GenerateInstrumentationInfo projects an instrumentation entry.
func GenerateInstrumentationInfo(in *Instrumentation, flags QueryFlags) *InstrumentationInfo {
	if in == nil {
		return nil
	}
	if flags&GetMetaData == 0 {
		return in.Info
	}
	ii := *in.Info
	ii.MetaData = in.MetaData
	return &ii
}

// GeneratePermissionInfo projects a declared permission.
func GeneratePermissionInfo(perm *Permission, flags QueryFlags) *PermissionInfo {
	if perm == nil {
		return nil
	}
	if flags&GetMetaData == 0 {
		return perm.Info
	}
	pi := *perm.Info
	pi.MetaData = perm.MetaData
	return &pi
}

// GeneratePermissionGroupInfo projects a declared permission group.
func GeneratePermissionGroupInfo(pg *PermissionGroup, flags QueryFlags) *PermissionGroupInfo {
	if pg == nil {
		return nil
	}
	if flags&GetMetaData == 0 {
		return pg.Info
	}
	pgi := *pg.Info
	pgi.MetaData = pg.MetaData
	return &pgi
}

// GeneratePackageInfo renders the caller-facing view of p. It returns nil
// when the package is not installed for the user and the caller did not
// ask for uninstalled packages.
func GeneratePackageInfo(p *Package, opts ProjectionOptions) *PackageInfo {
	flags, state, userID := opts.Flags, opts.State, opts.UserID
	if p == nil || !state.CheckUseInstalledOrBlocked(flags) {
		return nil
	}

	pi := &PackageInfo{
		PackageName:      p.PackageName,
		VersionCode:      p.VersionCode,
		VersionName:      p.VersionName,
		SharedUserID:     p.SharedUserID,
		SharedUserLabel:  p.SharedUserLabel,
		IsThemeApk:       p.IsTheme,
		IsLegacyThemeApk: p.IsLegacyTheme,
		HasIconPack:      p.HasIconPack,
	}
	if pi.IsThemeApk || pi.IsLegacyThemeApk {
		pi.OverlayTargets = p.OverlayTargets
	}
	pi.ApplicationInfo = GenerateApplicationInfo(p, flags, state, userID)
	pi.InstallLocation = p.InstallLocation
	if pi.ApplicationInfo.HasFlag(FlagSystem) || pi.ApplicationInfo.HasFlag(FlagUpdatedSystemApp) {
		pi.RequiredForAllUsers = p.RequiredForAllUsers
	}
	pi.RestrictedAccountType = p.RestrictedAccountType
	pi.RequiredAccountType = p.RequiredAccountType
	pi.OverlayTarget = p.OverlayTarget
	pi.FirstInstallTime = opts.FirstInstallTime
	pi.LastUpdateTime = opts.LastUpdateTime

	if flags&GetGIDs != 0 {
		pi.GIDs = opts.GIDs
		if pi.GIDs == nil {
			pi.GIDs = p.GIDs
		}
	}
	if flags&GetConfigurations != 0 {
		if len(p.ConfigPreferences) > 0 {
			pi.ConfigPreferences = slices.Clone(p.ConfigPreferences)
		}
		if len(p.ReqFeatures) > 0 {
			pi.ReqFeatures = slices.Clone(p.ReqFeatures)
		}
	}

	withDisabled := flags&GetDisabledComponents != 0
	if flags&GetActivities != 0 {
		pi.Activities = projectActivities(p, p.Activities, flags, state, userID, withDisabled)
	}
	if flags&GetReceivers != 0 {
		pi.Receivers = projectActivities(p, p.Receivers, flags, state, userID, withDisabled)
	}
	if flags&GetServices != 0 && len(p.Services) > 0 {
		pi.Services = make([]*ServiceInfo, 0, countEnabled(p.Services, withDisabled, func(s *Service) bool { return s.Info.Enabled }))
		for _, s := range p.Services {
			if s.Info.Enabled || withDisabled {
				pi.Services = append(pi.Services, GenerateServiceInfo(p, s, flags, state, userID))
			}
		}
	}
	if flags&GetProviders != 0 && len(p.Providers) > 0 {
		pi.Providers = make([]*ProviderInfo, 0, countEnabled(p.Providers, withDisabled, func(pr *Provider) bool { return pr.Info.Enabled }))
		for _, pr := range p.Providers {
			if pr.Info.Enabled || withDisabled {
				pi.Providers = append(pi.Providers, GenerateProviderInfo(p, pr, flags, state, userID))
			}
		}
	}
	if flags&GetInstrumentation != 0 && len(p.Instrumentation) > 0 {
		pi.Instrumentation = make([]*InstrumentationInfo, len(p.Instrumentation))
		for i, in := range p.Instrumentation {
			pi.Instrumentation[i] = GenerateInstrumentationInfo(in, flags)
		}
	}
	if flags&GetPermissions != 0 {
		if len(p.Permissions) > 0 {
			pi.Permissions = make([]*PermissionInfo, len(p.Permissions))
			for i, perm := range p.Permissions {
				pi.Permissions[i] = GeneratePermissionInfo(perm, flags)
			}
		}
		if n := len(p.RequestedPermissions); n > 0 {
			pi.RequestedPermissions = make([]string, n)
			pi.RequestedPermissionsFlags = make([]int, n)
			for i, perm := range p.RequestedPermissions {
				pi.RequestedPermissions[i] = perm
				if p.RequestedPermissionsRequired[i] {
					pi.RequestedPermissionsFlags[i] |= RequestedPermissionRequired
				}
				if _, ok := opts.Granted[perm]; ok {
					pi.RequestedPermissionsFlags[i] |= RequestedPermissionGranted
				}
			}
		}
	}
	if flags&GetSignatures != 0 && len(p.Signatures) > 0 {
		pi.Signatures = slices.Clone(p.Signatures)
	}
	return pi
}

func projectActivities(p *Package, list []*Activity, flags QueryFlags, state PackageUserState, userID int, withDisabled bool) []*ActivityInfo {
	if len(list) == 0 {
		return nil
	}
	out := make([]*ActivityInfo, 0, countEnabled(list, withDisabled, func(a *Activity) bool { return a.Info.Enabled }))
	for _, a := range list {
		if a.Info.Enabled || withDisabled {
			out = append(out, GenerateActivityInfo(p, a, flags, state, userID))
		}
	}
	return out
}

func countEnabled[T any](list []T, withDisabled bool, enabled func(T) bool) int {
	if withDisabled {
		return len(list)
	}
	n := 0
	for _, c := range list {
		if enabled(c) {
			n++
		}
	}
	return n
}
