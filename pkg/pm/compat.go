package pm

// NewPermissionInfo is a permission that became explicit at SDKVersion.
// Packages targeting an earlier SDK are granted it implicitly.
type NewPermissionInfo struct {
	Name       string
	SDKVersion int
}

// SplitPermissionInfo lists permissions that were split out of RootPerm.
// Packages targeting an SDK below TargetSDK that request RootPerm also
// request NewPerms.
type SplitPermissionInfo struct {
	RootPerm  string
	NewPerms  []string
	TargetSDK int
}

// NewPermissions is ordered by ascending SDK version.
var NewPermissions = []NewPermissionInfo{
	{Name: "android.permission.WRITE_EXTERNAL_STORAGE", SDKVersion: SDKDonut},
	{Name: "android.permission.READ_PHONE_STATE", SDKVersion: SDKDonut},
}

// SplitPermissions is applied in declaration order.
var SplitPermissions = []SplitPermissionInfo{
	{
		RootPerm:  "android.permission.WRITE_EXTERNAL_STORAGE",
		NewPerms:  []string{"android.permission.READ_EXTERNAL_STORAGE"},
		TargetSDK: SDKCurDevelopment + 1,
	},
	{
		RootPerm:  "android.permission.READ_CONTACTS",
		NewPerms:  []string{"android.permission.READ_CALL_LOG"},
		TargetSDK: SDKJellyBean,
	},
	{
		RootPerm:  "android.permission.WRITE_CONTACTS",
		NewPerms:  []string{"android.permission.WRITE_CALL_LOG"},
		TargetSDK: SDKJellyBean,
	},
}

// ApplyCompatPermissions injects implicit and split permissions for a
// package targeting an older SDK. It returns the names that were added.
func ApplyCompatPermissions(p *Package) []string {
	var added []string
	target := p.ApplicationInfo.TargetSdkVersion

	for _, np := range NewPermissions {
		if target >= np.SDKVersion {
			break
		}
		if !p.HasRequestedPermission(np.Name) {
			p.AddRequestedPermission(np.Name, true)
			added = append(added, np.Name)
		}
	}

	for _, spi := range SplitPermissions {
		if target >= spi.TargetSDK || !p.HasRequestedPermission(spi.RootPerm) {
			continue
		}
		for _, perm := range spi.NewPerms {
			if !p.HasRequestedPermission(perm) {
				p.AddRequestedPermission(perm, true)
				added = append(added, perm)
			}
		}
	}

	if target < SDKJellyBeanMR2 {
		for i := range p.RequestedPermissionsRequired {
			p.RequestedPermissionsRequired[i] = true
		}
	}
	return added
}
