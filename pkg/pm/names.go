package pm

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ValidateName checks a dot-separated identifier such as a package name.
// Each segment must start with a letter and contain only letters, digits
// and underscores. When requireSeparator is set at least one '.' must be
// present.
func ValidateName(name string, requireSeparator bool) error {
	hasSep := false
	front := true
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			front = false
			continue
		}
		if !front && ((c >= '0' && c <= '9') || c == '_') {
			continue
		}
		if c == '.' {
			hasSep = true
			front = true
			continue
		}
		return fmt.Errorf("bad character '%c'", c)
	}
	if requireSeparator && !hasSep {
		return errors.New("must have at least one '.' separator")
	}
	return nil
}

// BuildClassName qualifies a component class name against its package.
// A leading '.' or a name without any '.' is resolved relative to pkg.
func BuildClassName(pkg, cls string) (string, error) {
	if cls == "" {
		return "", fmt.Errorf("Empty class name in package %s", pkg)
	}
	if cls[0] == '.' {
		return pkg + cls, nil
	}
	if !strings.Contains(cls, ".") {
		return pkg + "." + cls, nil
	}
	if c := cls[0]; c >= 'a' && c <= 'z' {
		return cls, nil
	}
	return "", fmt.Errorf("Bad class name %s in package %s", cls, pkg)
}

// BuildCompoundName resolves a process or task affinity name. A name
// starting with ':' is private to the package and appended to pkg.
func BuildCompoundName(pkg, name, kind string) (string, error) {
	if strings.HasPrefix(name, ":") {
		if len(name) < 2 {
			return "", fmt.Errorf("Bad %s name %s in package %s: must be at least two characters", kind, name, pkg)
		}
		if err := ValidateName(name[1:], false); err != nil {
			return "", fmt.Errorf("Invalid %s name %s in package %s: %s", kind, name, pkg, err)
		}
		return pkg + name, nil
	}
	if err := ValidateName(name, true); err != nil && name != "system" {
		return "", fmt.Errorf("Invalid %s name %s in package %s: %s", kind, name, pkg, err)
	}
	return name, nil
}

// BuildProcessName resolves the process a component runs in. defProc is
// the inherited process name, proc the declared one.
func BuildProcessName(pkg, defProc, proc string, flags ParseFlags, separateProcesses []string) (string, error) {
	if flags&ParseIgnoreProcesses != 0 && proc != "system" {
		if defProc != "" {
			return defProc, nil
		}
		return pkg, nil
	}
	for _, sp := range slices.Backward(separateProcesses) {
		if sp == pkg || sp == defProc || sp == proc {
			return pkg, nil
		}
	}
	if proc == "" {
		return defProc, nil
	}
	return BuildCompoundName(pkg, proc, "process")
}

// BuildTaskAffinityName resolves a task affinity. An absent affinity
// inherits defProc; an explicitly empty one stays empty.
func BuildTaskAffinityName(pkg, defProc string, procSeq *string) (string, error) {
	if procSeq == nil {
		return defProc, nil
	}
	if *procSeq == "" {
		return "", nil
	}
	return BuildCompoundName(pkg, *procSeq, "taskAffinity")
}
