package pm

import (
	"testing"
)

func samplePackage() *Package {
	p := NewPackage("com.example.app")
	p.VersionCode = 3
	p.VersionName = "1.0"
	p.ApplicationInfo.TargetSdkVersion = 19
	p.ApplicationInfo.UID = 10042

	newActivity := func(cls string, enabled bool) *Activity {
		return &Activity{
			Component: Component{Owner: p.PackageName, ClassName: cls},
			Info: &ActivityInfo{ComponentInfo: ComponentInfo{
				PackageItemInfo: PackageItemInfo{Name: cls, PackageName: p.PackageName},
				ApplicationInfo: p.ApplicationInfo,
				Enabled:         enabled,
			}},
		}
	}
	p.Activities = []*Activity{
		newActivity("com.example.app.Main", true),
		newActivity("com.example.app.Hidden", false),
	}
	p.Receivers = []*Activity{newActivity("com.example.app.Boot", true)}
	p.Services = []*Service{{
		Component: Component{Owner: p.PackageName, ClassName: "com.example.app.Sync", MetaData: Bundle{"k": "v"}},
		Info: &ServiceInfo{ComponentInfo: ComponentInfo{
			PackageItemInfo: PackageItemInfo{Name: "com.example.app.Sync", PackageName: p.PackageName},
			ApplicationInfo: p.ApplicationInfo,
			Enabled:         true,
		}},
	}}
	p.Providers = []*Provider{{
		Component: Component{Owner: p.PackageName, ClassName: "com.example.app.Data"},
		Info: &ProviderInfo{
			ComponentInfo: ComponentInfo{
				PackageItemInfo: PackageItemInfo{Name: "com.example.app.Data", PackageName: p.PackageName},
				ApplicationInfo: p.ApplicationInfo,
				Enabled:         true,
			},
			Authority:             "com.example.app.data",
			URIPermissionPatterns: []PatternMatcher{{Path: "/files", Type: PatternPrefix}},
		},
	}}
	p.Permissions = []*Permission{{
		Component: Component{Owner: p.PackageName, ClassName: "com.example.app.PERM"},
		Info:      &PermissionInfo{PackageItemInfo: PackageItemInfo{Name: "com.example.app.PERM"}},
	}}
	p.AddRequestedPermission("android.permission.INTERNET", true)
	p.AddRequestedPermission("android.permission.CAMERA", true)
	p.AddRequestedPermission("android.permission.NFC", true)
	p.Signatures = []Signature{{Raw: []byte{1, 2, 3}}}
	return p
}

func TestGeneratePackageInfoPresenceGate(t *testing.T) {
	t.Parallel()

	p := samplePackage()
	tests := []struct {
		name    string
		state   PackageUserState
		flags   QueryFlags
		wantNil bool
	}{
		{name: "installed", state: DefaultUserState()},
		{name: "not installed", state: PackageUserState{}, wantNil: true},
		{name: "not installed with uninstalled flag", state: PackageUserState{}, flags: GetUninstalledPackages},
		{name: "blocked", state: PackageUserState{Installed: true, Blocked: true}, wantNil: true},
		{name: "blocked with uninstalled flag", state: PackageUserState{Installed: true, Blocked: true}, flags: GetUninstalledPackages},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pi := GeneratePackageInfo(p, ProjectionOptions{Flags: tt.flags, State: tt.state})
			if (pi == nil) != tt.wantNil {
				t.Fatalf("GeneratePackageInfo() nil = %v, want %v", pi == nil, tt.wantNil)
			}
			if pi != nil && pi.ApplicationInfo.HasFlag(FlagInstalled) != tt.state.Installed {
				t.Errorf("FLAG_INSTALLED = %v, want %v", pi.ApplicationInfo.HasFlag(FlagInstalled), tt.state.Installed)
			}
		})
	}

	if !DefaultUserState().IsAvailable() {
		t.Error("default state should be available")
	}
	if (PackageUserState{}).IsAvailable() {
		t.Error("uninstalled state should not be available")
	}
}

func TestGenerateApplicationInfoCopyAvoidance(t *testing.T) {
	t.Parallel()

	p := samplePackage()
	shared := p.ApplicationInfo

	if got := GenerateApplicationInfo(p, 0, DefaultUserState(), 0); got != shared {
		t.Error("default state should return the shared application info")
	}

	tests := []struct {
		name   string
		flags  QueryFlags
		state  PackageUserState
		userID int
		check  func(t *testing.T, ai *ApplicationInfo)
	}{
		{
			name:   "other user remaps uid",
			state:  DefaultUserState(),
			userID: 10,
			check: func(t *testing.T, ai *ApplicationInfo) {
				if ai.UID != 10*PerUserRange+10042 {
					t.Errorf("UID = %d", ai.UID)
				}
				if ai.DataDir != "/data/user/10/com.example.app" {
					t.Errorf("DataDir = %q", ai.DataDir)
				}
			},
		},
		{
			name:  "stopped",
			state: PackageUserState{Installed: true, Stopped: true},
			check: func(t *testing.T, ai *ApplicationInfo) {
				if !ai.HasFlag(FlagStopped) {
					t.Error("FLAG_STOPPED not set")
				}
			},
		},
		{
			name:  "disabled override",
			state: PackageUserState{Installed: true, Enabled: ComponentEnabledStateDisabled},
			check: func(t *testing.T, ai *ApplicationInfo) {
				if ai.Enabled {
					t.Error("Enabled should be false")
				}
				if ai.EnabledSetting != ComponentEnabledStateDisabled {
					t.Errorf("EnabledSetting = %d", ai.EnabledSetting)
				}
			},
		},
		{
			name:  "disabled until used visible",
			flags: GetDisabledUntilUsedComponents,
			state: PackageUserState{Installed: true, Enabled: ComponentEnabledStateDisabledUntilUsed},
			check: func(t *testing.T, ai *ApplicationInfo) {
				if !ai.Enabled {
					t.Error("Enabled should be true when disabled-until-used components are requested")
				}
			},
		},
		{
			name:  "disabled until used hidden",
			state: PackageUserState{Installed: true, Enabled: ComponentEnabledStateDisabledUntilUsed},
			check: func(t *testing.T, ai *ApplicationInfo) {
				if ai.Enabled {
					t.Error("Enabled should be false")
				}
			},
		},
		{
			name:  "blocked",
			flags: GetUninstalledPackages,
			state: PackageUserState{Installed: true, Blocked: true},
			check: func(t *testing.T, ai *ApplicationInfo) {
				if !ai.HasFlag(FlagBlocked) {
					t.Error("FLAG_BLOCKED not set")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ai := GenerateApplicationInfo(p, tt.flags, tt.state, tt.userID)
			if ai == nil {
				t.Fatal("GenerateApplicationInfo() = nil")
			}
			if ai == shared {
				t.Fatal("expected a copy")
			}
			tt.check(t, ai)
		})
	}

	if shared.Flags != FlagInstalled || !shared.Enabled || shared.UID != 10042 {
		t.Errorf("shared application info was modified: %+v", shared)
	}
}

func TestGeneratePackageInfoSections(t *testing.T) {
	t.Parallel()

	p := samplePackage()

	pi := GeneratePackageInfo(p, ProjectionOptions{State: DefaultUserState()})
	if pi.Activities != nil || pi.Receivers != nil || pi.Services != nil || pi.Providers != nil ||
		pi.Permissions != nil || pi.RequestedPermissions != nil || pi.Signatures != nil {
		t.Fatalf("sections populated without flags: %+v", pi)
	}

	all := GetActivities | GetReceivers | GetServices | GetProviders | GetPermissions | GetSignatures
	pi = GeneratePackageInfo(p, ProjectionOptions{Flags: all, State: DefaultUserState()})
	if len(pi.Activities) != 1 || pi.Activities[0].Name != "com.example.app.Main" {
		t.Errorf("Activities = %v, want only the enabled activity", pi.Activities)
	}
	if cap(pi.Activities) != 1 {
		t.Errorf("Activities capacity = %d, want exact size", cap(pi.Activities))
	}
	if len(pi.Receivers) != 1 || len(pi.Services) != 1 || len(pi.Providers) != 1 {
		t.Errorf("component counts = %d/%d/%d", len(pi.Receivers), len(pi.Services), len(pi.Providers))
	}
	if pi.Activities[0] != p.Activities[0].Info {
		t.Error("activity without meta-data should be shared")
	}
	if pi.Providers[0] == p.Providers[0].Info || pi.Providers[0].URIPermissionPatterns != nil {
		t.Error("provider patterns should be stripped on a copy when not requested")
	}
	if len(pi.Signatures) != 1 {
		t.Errorf("Signatures = %v", pi.Signatures)
	}

	pi = GeneratePackageInfo(p, ProjectionOptions{Flags: GetActivities | GetDisabledComponents, State: DefaultUserState()})
	if len(pi.Activities) != 2 {
		t.Errorf("with disabled components got %d activities, want 2", len(pi.Activities))
	}

	pi = GeneratePackageInfo(p, ProjectionOptions{Flags: GetServices | GetMetaData, State: DefaultUserState()})
	if pi.Services[0] == p.Services[0].Info {
		t.Error("service with meta-data should be copied")
	}
	if pi.Services[0].MetaData["k"] != "v" {
		t.Errorf("service meta-data = %v", pi.Services[0].MetaData)
	}
	if p.Services[0].Info.MetaData != nil {
		t.Error("shared service info gained meta-data")
	}
}

func TestRequestedPermissionFlags(t *testing.T) {
	t.Parallel()

	p := samplePackage()
	granted := map[string]struct{}{"android.permission.CAMERA": {}, "android.permission.UNRELATED": {}}

	tests := []struct {
		name    string
		granted map[string]struct{}
	}{
		{name: "no granted set", granted: nil},
		{name: "partial granted set", granted: granted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pi := GeneratePackageInfo(p, ProjectionOptions{Flags: GetPermissions, State: DefaultUserState(), Granted: tt.granted})
			if len(pi.RequestedPermissions) != len(pi.RequestedPermissionsFlags) {
				t.Fatalf("len mismatch: %d vs %d", len(pi.RequestedPermissions), len(pi.RequestedPermissionsFlags))
			}
			for i, perm := range pi.RequestedPermissions {
				_, want := tt.granted[perm]
				got := pi.RequestedPermissionsFlags[i]&RequestedPermissionGranted != 0
				if got != want {
					t.Errorf("%s granted = %v, want %v", perm, got, want)
				}
				if pi.RequestedPermissionsFlags[i]&RequestedPermissionRequired == 0 {
					t.Errorf("%s missing REQUIRED bit", perm)
				}
			}
		})
	}
}

func TestRequiredForAllUsersOnlyForSystemApps(t *testing.T) {
	t.Parallel()

	p := samplePackage()
	p.RequiredForAllUsers = true
	pi := GeneratePackageInfo(p, ProjectionOptions{State: DefaultUserState()})
	if pi.RequiredForAllUsers {
		t.Error("non-system package reported requiredForAllUsers")
	}

	sys := samplePackage()
	sys.RequiredForAllUsers = true
	sys.ApplicationInfo.Flags |= FlagSystem
	pi = GeneratePackageInfo(sys, ProjectionOptions{State: DefaultUserState()})
	if !pi.RequiredForAllUsers {
		t.Error("system package lost requiredForAllUsers")
	}
}

func TestGeneratePermissionInfo(t *testing.T) {
	t.Parallel()

	perm := &Permission{
		Component: Component{MetaData: Bundle{"a": 1}},
		Info:      &PermissionInfo{PackageItemInfo: PackageItemInfo{Name: "p"}},
	}
	if GeneratePermissionInfo(perm, 0) != perm.Info {
		t.Error("permission without meta-data flag should be shared")
	}
	got := GeneratePermissionInfo(perm, GetMetaData)
	if got == perm.Info || got.MetaData["a"] != 1 {
		t.Errorf("GeneratePermissionInfo(GetMetaData) = %+v", got)
	}
	if GeneratePermissionInfo(nil, 0) != nil {
		t.Error("nil permission should project to nil")
	}
}
