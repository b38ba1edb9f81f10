package apk

import (
	"strings"

	"github.com/huanfeng/apkparse/pkg/manifest"
	"github.com/huanfeng/apkparse/pkg/pm"
)

func (s *parseState) parsePermissionGroup() error {
	dec := s.dec
	g := &pm.PermissionGroup{Info: &pm.PermissionGroupInfo{}}
	if err := s.packageItem("<permission-group>", &g.Info.PackageItemInfo, ""); err != nil {
		return err
	}
	g.Owner = s.pkg.PackageName
	g.ClassName = g.Info.Name

	g.Info.DescriptionRes = dec.AttrResource("description")
	g.Info.Flags = dec.AttrEnum("permissionGroupFlags", manifest.PermissionGroupFlags, 0)
	g.Info.Priority = dec.AttrInt("priority", 0)
	// Only system packages may order permission groups.
	if g.Info.Priority > 0 && s.flags&pm.ParseIsSystem == 0 {
		g.Info.Priority = 0
	}

	if err := s.parseAllMetaData("permission-group", &g.Component); err != nil {
		return err
	}
	s.pkg.PermissionGroups = append(s.pkg.PermissionGroups, g)
	return nil
}

func (s *parseState) parsePermission() error {
	dec := s.dec
	perm := &pm.Permission{Info: &pm.PermissionInfo{}}
	info := perm.Info
	if err := s.packageItem("<permission>", &info.PackageItemInfo, ""); err != nil {
		return err
	}
	perm.Owner = s.pkg.PackageName
	perm.ClassName = info.Name

	info.Group = dec.AttrNonResourceString("permissionGroup")
	info.DescriptionRes = dec.AttrResource("description")
	info.ProtectionLevel = dec.AttrEnum("protectionLevel", manifest.ProtectionLevel, pm.ProtectionNormal)
	info.Flags = dec.AttrInt("permissionFlags", 0)

	if info.ProtectionLevel < 0 {
		return s.malformed("<permission> does not specify protectionLevel")
	}
	info.ProtectionLevel = pm.FixProtectionLevel(info.ProtectionLevel)
	if info.ProtectionLevel&pm.ProtectionMaskFlags != 0 && info.ProtectionBase() != pm.ProtectionSignature {
		return s.malformed("<permission> protectionLevel specifies a flag but is not based on signature type")
	}

	if err := s.parseAllMetaData("permission", &perm.Component); err != nil {
		return err
	}
	s.pkg.Permissions = append(s.pkg.Permissions, perm)
	return nil
}

func (s *parseState) parsePermissionTree() error {
	perm := &pm.Permission{Info: &pm.PermissionInfo{}, Tree: true}
	info := perm.Info
	if err := s.packageItem("<permission-tree>", &info.PackageItemInfo, ""); err != nil {
		return err
	}
	perm.Owner = s.pkg.PackageName
	perm.ClassName = info.Name

	// The tree must sit below the owner's namespace: at least four
	// segments, such as com.example.root.perm.
	if strings.Count(info.Name, ".") < 3 {
		return s.malformed("<permission-tree> name is not deep enough: %s", info.Name)
	}
	info.ProtectionLevel = pm.ProtectionNormal

	if err := s.parseAllMetaData("permission-tree", &perm.Component); err != nil {
		return err
	}
	s.pkg.Permissions = append(s.pkg.Permissions, perm)
	return nil
}

func (s *parseState) parseInstrumentation() error {
	dec := s.dec
	in := &pm.Instrumentation{Info: &pm.InstrumentationInfo{}}
	info := in.Info
	if err := s.packageItem("<instrumentation>", &info.PackageItemInfo, ""); err != nil {
		return err
	}
	in.Owner = s.pkg.PackageName
	in.ClassName = info.Name

	target, ok := s.str("targetPackage")
	info.HandleProfiling = dec.AttrBool("handleProfiling", false)
	info.FunctionalTest = dec.AttrBool("functionalTest", false)
	if !ok {
		return s.malformed("<instrumentation> does not specify targetPackage")
	}
	info.TargetPackage = target

	if err := s.parseAllMetaData("instrumentation", &in.Component); err != nil {
		return err
	}
	s.pkg.Instrumentation = append(s.pkg.Instrumentation, in)
	return nil
}
