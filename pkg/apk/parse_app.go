package apk

import (
	"github.com/huanfeng/apkparse/pkg/manifest"
	"github.com/huanfeng/apkparse/pkg/pm"
)

// packageItem reads the name, label, icon and logo shared by every
// declared item. invalidName replaces the class-name diagnostic when set.
func (s *parseState) packageItem(tag string, info *pm.PackageItemInfo, invalidName string) error {
	name, ok := s.str("name")
	if !ok {
		return s.malformed("%s does not specify android:name", tag)
	}
	cls, err := pm.BuildClassName(s.pkg.PackageName, name)
	if err != nil {
		if invalidName != "" {
			return s.malformed("%s %s", tag, invalidName)
		}
		return s.malformed("%s", err)
	}
	info.Name = cls

	if icon := s.dec.AttrResource("icon"); icon != 0 {
		info.Icon = icon
		info.NonLocalizedLabel = ""
	}
	if logo := s.dec.AttrResource("logo"); logo != 0 {
		info.Logo = logo
	}
	s.label("label", info)
	info.PackageName = s.pkg.PackageName
	return nil
}

// component reads the attributes common to activities, services and
// providers. Aliases do not declare a process of their own.
func (s *parseState) component(tag string, info *pm.ComponentInfo, withProcess bool) error {
	if err := s.packageItem(tag, &info.PackageItemInfo, "does not have valid android:name"); err != nil {
		return err
	}
	ai := s.pkg.ApplicationInfo
	info.ApplicationInfo = ai

	if withProcess {
		proc, _ := s.str("process")
		name, err := pm.BuildProcessName(s.pkg.PackageName, ai.ProcessName, proc, s.flags, s.opts.SeparateProcesses)
		if err != nil {
			return s.malformed("%s", err)
		}
		info.ProcessName = name
	}
	if _, ok := s.dec.Attr("description"); ok {
		info.DescriptionRes = s.dec.AttrResource("description")
	}
	info.Enabled = s.dec.AttrBool("enabled", true)
	return nil
}

// permissionAttr resolves a permission attribute. An absent attribute
// inherits fallback and an empty one clears it.
func (s *parseState) permissionAttr(name, fallback string) string {
	if v, ok := s.str(name); ok {
		return v
	}
	return fallback
}

// taskAffinityAttr returns the declared task affinity, or nil when absent.
func (s *parseState) taskAffinityAttr() *string {
	if v, ok := s.str("taskAffinity"); ok {
		return &v
	}
	return nil
}

func (s *parseState) parseApplication() error {
	dec := s.dec
	pkg := s.pkg
	ai := pkg.ApplicationInfo
	pkgName := pkg.PackageName
	var err error

	ai.IsThemeable = true

	if name, ok := s.str("name"); ok {
		if ai.ClassName, err = pm.BuildClassName(pkgName, name); err != nil {
			return s.malformed("%s", err)
		}
	}
	if name, ok := s.str("manageSpaceActivity"); ok {
		if ai.ManageSpaceActivityName, err = pm.BuildClassName(pkgName, name); err != nil {
			return s.malformed("%s", err)
		}
	}

	if dec.AttrBool("allowBackup", true) {
		ai.Flags |= pm.FlagAllowBackup

		// The restore attributes only matter when a backup agent exists.
		if agent, ok := s.str("backupAgent"); ok {
			if ai.BackupAgentName, err = pm.BuildClassName(pkgName, agent); err != nil {
				return s.malformed("%s", err)
			}
			if dec.AttrBool("killAfterRestore", true) {
				ai.Flags |= pm.FlagKillAfterRestore
			}
			if dec.AttrBool("restoreAnyVersion", false) {
				ai.Flags |= pm.FlagRestoreAnyVersion
			}
		}
	}

	s.label("label", &ai.PackageItemInfo)
	ai.Icon = dec.AttrResource("icon")
	ai.Logo = dec.AttrResource("logo")
	ai.Theme = dec.AttrResource("theme")
	ai.DescriptionRes = dec.AttrResource("description")

	if s.flags&pm.ParseIsSystem != 0 && dec.AttrBool("persistent", false) {
		ai.Flags |= pm.FlagPersistent
	}
	if dec.AttrBool("requiredForAllUsers", false) {
		pkg.RequiredForAllUsers = true
	}
	if v := dec.AttrString("restrictedAccountType"); v != "" {
		pkg.RestrictedAccountType = v
	}
	if v := dec.AttrString("requiredAccountType"); v != "" {
		pkg.RequiredAccountType = v
	}

	boolFlags := []struct {
		attr string
		def  bool
		flag int
	}{
		{"debuggable", false, pm.FlagDebuggable},
		{"vmSafeMode", false, pm.FlagVMSafeMode},
		{"hasCode", true, pm.FlagHasCode},
		{"allowTaskReparenting", false, pm.FlagAllowTaskReparenting},
		{"allowClearUserData", true, pm.FlagAllowClearUserData},
		{"testOnly", false, pm.FlagTestOnly},
		{"largeHeap", false, pm.FlagLargeHeap},
		{"supportsRtl", false, pm.FlagSupportsRTL},
	}
	for _, bf := range boolFlags {
		if dec.AttrBool(bf.attr, bf.def) {
			ai.Flags |= bf.flag
		}
	}
	hardwareAccelerated := dec.AttrBool("hardwareAccelerated", ai.TargetSdkVersion >= pm.SDKIceCreamSandwich)

	ai.Permission, _ = s.str("permission")

	if ai.TaskAffinity, err = pm.BuildTaskAffinityName(pkgName, pkgName, s.taskAffinityAttr()); err != nil {
		return s.malformed("%s", err)
	}

	proc, _ := s.str("process")
	if ai.ProcessName, err = pm.BuildProcessName(pkgName, "", proc, s.flags, s.opts.SeparateProcesses); err != nil {
		return s.malformed("%s", err)
	}
	if ai.ProcessName == "" {
		ai.ProcessName = pkgName
	}
	ai.Enabled = dec.AttrBool("enabled", true)
	ai.UIOptions = dec.AttrEnum("uiOptions", manifest.UIOptions, 0)

	outer := dec.Depth()
	for {
		ok, err := dec.NextChild(outer)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		switch dec.Name() {
		case "activity":
			a, err := s.parseActivity(false, hardwareAccelerated)
			if err != nil {
				return err
			}
			pkg.Activities = append(pkg.Activities, a)

		case "receiver":
			a, err := s.parseActivity(true, false)
			if err != nil {
				return err
			}
			pkg.Receivers = append(pkg.Receivers, a)

		case "service":
			svc, err := s.parseService()
			if err != nil {
				return err
			}
			pkg.Services = append(pkg.Services, svc)

		case "provider":
			pr, err := s.parseProvider()
			if err != nil {
				return err
			}
			pkg.Providers = append(pkg.Providers, pr)

		case "activity-alias":
			a, err := s.parseActivityAlias()
			if err != nil {
				return err
			}
			pkg.Activities = append(pkg.Activities, a)

		case "meta-data":
			// Application meta-data stays on the package; projections copy
			// it only when asked to.
			if pkg.AppMetaData, err = s.parseMetaData(pkg.AppMetaData); err != nil {
				return err
			}

		case "library":
			if lib, ok := s.str("name"); ok {
				pkg.LibraryNames = appendUnique(pkg.LibraryNames, lib)
			}
			if err := dec.SkipCurrentTag(); err != nil {
				return err
			}

		case "uses-library":
			if lib, ok := s.str("name"); ok {
				if dec.AttrBool("required", true) {
					pkg.UsesLibraries = appendUnique(pkg.UsesLibraries, lib)
				} else {
					pkg.UsesOptionalLibraries = appendUnique(pkg.UsesOptionalLibraries, lib)
				}
			}
			if err := dec.SkipCurrentTag(); err != nil {
				return err
			}

		case "uses-package":
			if err := dec.SkipCurrentTag(); err != nil {
				return err
			}

		default:
			if err := s.unknownElement("application"); err != nil {
				return err
			}
		}
	}
}

// explicitExported reports the declared exported value and whether the
// attribute was present at all.
func (s *parseState) explicitExported() (bool, bool) {
	if _, ok := s.dec.Attr("exported"); !ok {
		return false, false
	}
	return s.dec.AttrBool("exported", false), true
}

func (s *parseState) parseActivity(receiver, hardwareAccelerated bool) (*pm.Activity, error) {
	dec := s.dec
	pkg := s.pkg
	ai := pkg.ApplicationInfo
	tag, parent := "<activity>", "activity"
	if receiver {
		tag, parent = "<receiver>", "receiver"
	}

	a := &pm.Activity{Info: &pm.ActivityInfo{}}
	info := a.Info
	if err := s.component(tag, &info.ComponentInfo, true); err != nil {
		return nil, err
	}
	a.Owner = pkg.PackageName
	a.ClassName = info.Name

	var setExported bool
	info.Exported, setExported = s.explicitExported()

	info.Theme = dec.AttrResource("theme")
	info.UIOptions = dec.AttrEnum("uiOptions", manifest.UIOptions, ai.UIOptions)

	if parentName, ok := s.str("parentActivityName"); ok {
		if cls, err := pm.BuildClassName(pkg.PackageName, parentName); err == nil {
			info.ParentActivityName = cls
		} else {
			s.logger.Error("Activity %s specified invalid parentActivityName %s", info.Name, parentName)
		}
	}

	info.Permission = s.permissionAttr("permission", ai.Permission)

	var err error
	if info.TaskAffinity, err = pm.BuildTaskAffinityName(pkg.PackageName, ai.TaskAffinity, s.taskAffinityAttr()); err != nil {
		return nil, s.malformed("%s", err)
	}

	activityFlags := []struct {
		attr string
		def  bool
		flag int
	}{
		{"multiprocess", false, pm.ActivityFlagMultiprocess},
		{"finishOnTaskLaunch", false, pm.ActivityFlagFinishOnTaskLaunch},
		{"clearTaskOnLaunch", false, pm.ActivityFlagClearTaskOnLaunch},
		{"noHistory", false, pm.ActivityFlagNoHistory},
		{"alwaysRetainTaskState", false, pm.ActivityFlagAlwaysRetainTaskState},
		{"stateNotNeeded", false, pm.ActivityFlagStateNotNeeded},
		{"excludeFromRecents", false, pm.ActivityFlagExcludeFromRecents},
		{"allowTaskReparenting", ai.HasFlag(pm.FlagAllowTaskReparenting), pm.ActivityFlagAllowTaskReparenting},
		{"finishOnCloseSystemDialogs", false, pm.ActivityFlagFinishOnCloseSystemDialogs},
		{"showOnLockScreen", false, pm.ActivityFlagShowOnLockScreen},
		{"immersive", false, pm.ActivityFlagImmersive},
	}
	for _, af := range activityFlags {
		if dec.AttrBool(af.attr, af.def) {
			info.Flags |= af.flag
		}
	}

	if !receiver {
		if dec.AttrBool("hardwareAccelerated", hardwareAccelerated) {
			info.Flags |= pm.ActivityFlagHardwareAccelerated
		}
		info.LaunchMode = dec.AttrEnum("launchMode", manifest.LaunchMode, 0)
		info.ScreenOrientation = dec.AttrEnum("screenOrientation", manifest.ScreenOrientation, -1)
		info.ConfigChanges = dec.AttrEnum("configChanges", manifest.ConfigChanges, 0)
		info.SoftInputMode = dec.AttrEnum("windowSoftInputMode", manifest.WindowSoftInputMode, 0)
	} else {
		info.ScreenOrientation = -1
		if dec.AttrBool("singleUser", false) {
			info.Flags |= pm.ActivityFlagSingleUser
			if info.Exported {
				s.warn("Activity exported request ignored due to singleUser: %s", a.ClassName)
				info.Exported = false
			}
			setExported = true
		}
		if dec.AttrBool("primaryUserOnly", false) {
			info.Flags |= pm.ActivityFlagPrimaryUserOnly
		}
	}

	outer := dec.Depth()
	for {
		ok, err := dec.NextChild(outer)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch {
		case dec.Name() == "intent-filter":
			intent, err := s.parseIntent(true)
			if err != nil {
				return nil, err
			}
			if len(intent.Actions) == 0 {
				s.warn("No actions in intent filter")
				continue
			}
			a.Intents = append(a.Intents, intent)

		case !receiver && dec.Name() == "preferred":
			intent, err := s.parseIntent(false)
			if err != nil {
				return nil, err
			}
			if len(intent.Actions) == 0 {
				s.warn("No actions in preferred")
				continue
			}
			pkg.PreferredActivityFilters = append(pkg.PreferredActivityFilters, intent)

		case dec.Name() == "meta-data":
			if a.MetaData, err = s.parseMetaData(a.MetaData); err != nil {
				return nil, err
			}

		default:
			if err := s.unknownElement(parent); err != nil {
				return nil, err
			}
		}
	}

	// The default is only known once every intent filter has been read.
	if !setExported {
		info.Exported = len(a.Intents) > 0
	}
	return a, nil
}

func (s *parseState) parseActivityAlias() (*pm.Activity, error) {
	dec := s.dec
	pkg := s.pkg

	targetName, ok := s.str("targetActivity")
	if !ok {
		return nil, s.malformed("<activity-alias> does not specify android:targetActivity")
	}
	targetName, err := pm.BuildClassName(pkg.PackageName, targetName)
	if err != nil {
		return nil, s.malformed("%s", err)
	}

	var target *pm.Activity
	for _, t := range pkg.Activities {
		if t.Info.Name == targetName {
			target = t
			break
		}
	}
	if target == nil {
		return nil, s.malformed("<activity-alias> target activity %s not found in manifest", targetName)
	}

	ti := target.Info
	info := &pm.ActivityInfo{
		TargetActivity:     targetName,
		ConfigChanges:      ti.ConfigChanges,
		Flags:              ti.Flags,
		LaunchMode:         ti.LaunchMode,
		ScreenOrientation:  ti.ScreenOrientation,
		TaskAffinity:       ti.TaskAffinity,
		Theme:              ti.Theme,
		SoftInputMode:      ti.SoftInputMode,
		UIOptions:          ti.UIOptions,
		ParentActivityName: ti.ParentActivityName,
	}
	info.Icon = ti.Icon
	info.Logo = ti.Logo
	info.LabelRes = ti.LabelRes
	info.NonLocalizedLabel = ti.NonLocalizedLabel
	info.ProcessName = ti.ProcessName
	info.DescriptionRes = ti.DescriptionRes

	a := &pm.Activity{Info: info}
	if err := s.component("<activity-alias>", &info.ComponentInfo, false); err != nil {
		return nil, err
	}
	a.Owner = pkg.PackageName
	a.ClassName = info.Name

	var setExported bool
	info.Exported, setExported = s.explicitExported()

	if perm, ok := s.str("permission"); ok {
		info.Permission = perm
	}
	if parentName, ok := s.str("parentActivityName"); ok {
		if cls, err := pm.BuildClassName(pkg.PackageName, parentName); err == nil {
			info.ParentActivityName = cls
		} else {
			s.logger.Error("Activity alias %s specified invalid parentActivityName %s", info.Name, parentName)
		}
	}

	outer := dec.Depth()
	for {
		ok, err := dec.NextChild(outer)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch dec.Name() {
		case "intent-filter":
			intent, err := s.parseIntent(true)
			if err != nil {
				return nil, err
			}
			if len(intent.Actions) == 0 {
				s.warn("No actions in intent filter")
				continue
			}
			a.Intents = append(a.Intents, intent)

		case "meta-data":
			if a.MetaData, err = s.parseMetaData(a.MetaData); err != nil {
				return nil, err
			}

		default:
			if err := s.unknownElement("activity-alias"); err != nil {
				return nil, err
			}
		}
	}

	if !setExported {
		info.Exported = len(a.Intents) > 0
	}
	return a, nil
}

func (s *parseState) parseService() (*pm.Service, error) {
	dec := s.dec
	pkg := s.pkg

	svc := &pm.Service{Info: &pm.ServiceInfo{}}
	info := svc.Info
	if err := s.component("<service>", &info.ComponentInfo, true); err != nil {
		return nil, err
	}
	svc.Owner = pkg.PackageName
	svc.ClassName = info.Name

	var setExported bool
	info.Exported, setExported = s.explicitExported()
	info.Permission = s.permissionAttr("permission", pkg.ApplicationInfo.Permission)

	if dec.AttrBool("stopWithTask", false) {
		info.Flags |= pm.ServiceFlagStopWithTask
	}
	if dec.AttrBool("isolatedProcess", false) {
		info.Flags |= pm.ServiceFlagIsolatedProcess
	}
	if dec.AttrBool("singleUser", false) {
		info.Flags |= pm.ServiceFlagSingleUser
		if info.Exported {
			s.warn("Service exported request ignored due to singleUser: %s", svc.ClassName)
			info.Exported = false
		}
		setExported = true
	}

	outer := dec.Depth()
	for {
		ok, err := dec.NextChild(outer)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch dec.Name() {
		case "intent-filter":
			intent, err := s.parseIntent(true)
			if err != nil {
				return nil, err
			}
			svc.Intents = append(svc.Intents, intent)

		case "meta-data":
			if svc.MetaData, err = s.parseMetaData(svc.MetaData); err != nil {
				return nil, err
			}

		default:
			if err := s.unknownElement("service"); err != nil {
				return nil, err
			}
		}
	}

	if !setExported {
		info.Exported = len(svc.Intents) > 0
	}
	return svc, nil
}

func (s *parseState) parseProvider() (*pm.Provider, error) {
	dec := s.dec
	pkg := s.pkg
	ai := pkg.ApplicationInfo

	pr := &pm.Provider{Info: &pm.ProviderInfo{}}
	info := pr.Info
	if err := s.component("<provider>", &info.ComponentInfo, true); err != nil {
		return nil, err
	}
	pr.Owner = pkg.PackageName
	pr.ClassName = info.Name

	var setExported bool
	info.Exported, setExported = s.explicitExported()

	authority, hasAuthority := s.str("authorities")
	info.IsSyncable = dec.AttrBool("syncable", false)
	pr.Syncable = info.IsSyncable

	permission, hasPermission := s.str("permission")
	fallback := ai.Permission
	if hasPermission {
		fallback = permission
	}
	info.ReadPermission = s.permissionAttr("readPermission", fallback)
	info.WritePermission = s.permissionAttr("writePermission", fallback)

	info.GrantURIPermissions = dec.AttrBool("grantUriPermissions", false)
	info.Multiprocess = dec.AttrBool("multiprocess", false)
	info.InitOrder = dec.AttrInt("initOrder", 0)

	if dec.AttrBool("singleUser", false) {
		info.Flags |= pm.ProviderFlagSingleUser
		if info.Exported {
			s.warn("Provider exported request ignored due to singleUser: %s", pr.ClassName)
			info.Exported = false
		}
		setExported = true
	}

	if !hasAuthority {
		return nil, s.malformed("<provider> does not include authorities attribute")
	}
	info.Authority = authority

	if err := s.parseProviderTags(pr); err != nil {
		return nil, err
	}

	if !setExported {
		info.Exported = len(pr.Intents) > 0
	}
	return pr, nil
}

// pathPattern returns the last of path, pathPrefix and pathPattern that is
// declared on the current element.
func (s *parseState) pathPattern() (pm.PatternMatcher, bool) {
	var pattern pm.PatternMatcher
	found := false
	for _, c := range []struct {
		attr string
		kind int
	}{
		{"path", pm.PatternLiteral},
		{"pathPrefix", pm.PatternPrefix},
		{"pathPattern", pm.PatternSimpleGlob},
	} {
		if v, ok := s.str(c.attr); ok {
			pattern = pm.PatternMatcher{Path: v, Type: c.kind}
			found = true
		}
	}
	return pattern, found
}

func (s *parseState) parseProviderTags(pr *pm.Provider) error {
	dec := s.dec
	info := pr.Info
	outer := dec.Depth()
	for {
		ok, err := dec.NextChild(outer)
		if err != nil || !ok {
			return err
		}

		switch dec.Name() {
		case "intent-filter":
			intent, err := s.parseIntent(true)
			if err != nil {
				return err
			}
			pr.Intents = append(pr.Intents, intent)

		case "meta-data":
			if pr.MetaData, err = s.parseMetaData(pr.MetaData); err != nil {
				return err
			}

		case "grant-uri-permission":
			pattern, ok := s.pathPattern()
			if !ok {
				if s.opts.Strict {
					return s.malformed("No path, pathPrefix, or pathPattern for <grant-uri-permission>")
				}
				s.warn("No path, pathPrefix, or pathPattern for <grant-uri-permission>")
				if err := dec.SkipCurrentTag(); err != nil {
					return err
				}
				continue
			}
			info.URIPermissionPatterns = append(info.URIPermissionPatterns, pattern)
			info.GrantURIPermissions = true
			if err := dec.SkipCurrentTag(); err != nil {
				return err
			}

		case "path-permission":
			permission, hasPermission := s.str("permission")
			read, hasRead := s.str("readPermission")
			if !hasRead {
				read, hasRead = permission, hasPermission
			}
			write, hasWrite := s.str("writePermission")
			if !hasWrite {
				write, hasWrite = permission, hasPermission
			}
			if !hasRead && !hasWrite {
				if s.opts.Strict {
					return s.malformed("No readPermission or writePermssion for <path-permission>")
				}
				s.warn("No readPermission or writePermssion for <path-permission>: %s", dec.Name())
				if err := dec.SkipCurrentTag(); err != nil {
					return err
				}
				continue
			}

			pattern, ok := s.pathPattern()
			if !ok {
				if s.opts.Strict {
					return s.malformed("No path, pathPrefix, or pathPattern for <path-permission>")
				}
				s.warn("No path, pathPrefix, or pathPattern for <path-permission>: %s", dec.Name())
				if err := dec.SkipCurrentTag(); err != nil {
					return err
				}
				continue
			}
			info.PathPermissions = append(info.PathPermissions, pm.PathPermission{
				PatternMatcher:  pattern,
				ReadPermission:  read,
				WritePermission: write,
			})
			if err := dec.SkipCurrentTag(); err != nil {
				return err
			}

		default:
			if err := s.unknownElement("provider"); err != nil {
				return err
			}
		}
	}
}
