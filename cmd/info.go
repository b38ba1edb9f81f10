package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/huanfeng/apkparse/pkg/pm"
)

var (
	infoFlags        []string
	infoUser         int
	infoNotInstalled bool
	infoBlocked      bool
	infoStopped      bool
	infoEnabledState string
	infoGranted      []string
	infoOut          string
)

var enabledStateNames = map[string]int{
	"default":             pm.ComponentEnabledStateDefault,
	"enabled":             pm.ComponentEnabledStateEnabled,
	"disabled":            pm.ComponentEnabledStateDisabled,
	"disabled-user":       pm.ComponentEnabledStateDisabledUser,
	"disabled-until-used": pm.ComponentEnabledStateDisabledUntilUsed,
}

// parseQueryFlags combines flag names such as "activities" into query flags.
func parseQueryFlags(names []string) (pm.QueryFlags, error) {
	var flags pm.QueryFlags
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		f, ok := pm.QueryFlagNames[name]
		if !ok {
			known := make([]string, 0, len(pm.QueryFlagNames))
			for k := range pm.QueryFlagNames {
				known = append(known, k)
			}
			sort.Strings(known)
			return 0, fmt.Errorf("unknown query flag %q (known: %s)", name, strings.Join(known, ", "))
		}
		flags |= f
	}
	return flags, nil
}

func parseEnabledState(name string) (int, error) {
	state, ok := enabledStateNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown enabled state %q", name)
	}
	return state, nil
}

var infoCmd = &cobra.Command{
	Use:   "info [archive]",
	Short: "Project package information for a user",
	Long:  `Parse a package and render the package information selected by query flags, for a given user state, as JSON or CBOR.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		start := time.Now()

		flags, err := parseQueryFlags(infoFlags)
		if err != nil {
			return err
		}
		enabled, err := parseEnabledState(infoEnabledState)
		if err != nil {
			return err
		}

		parser := newParser(cmd)
		pkg, err := parser.ParsePackage(path)
		if err == nil && pkg != nil && flags&pm.GetSignatures != 0 {
			err = parser.CollectCertificates(pkg)
		}
		if err != nil {
			reportFailure(cmd, path, start, err)
			return err
		}
		if pkg == nil {
			return fmt.Errorf("%s skipped: not a core app", path)
		}

		state := pm.DefaultUserState()
		state.Installed = !infoNotInstalled
		state.Blocked = infoBlocked
		state.Stopped = infoStopped
		state.Enabled = enabled

		var granted map[string]struct{}
		if len(infoGranted) > 0 {
			granted = make(map[string]struct{}, len(infoGranted))
			for _, perm := range infoGranted {
				granted[perm] = struct{}{}
			}
		}

		info := pm.GeneratePackageInfo(pkg, pm.ProjectionOptions{
			Flags:   flags,
			State:   state,
			UserID:  infoUser,
			Granted: granted,
		})
		if info == nil {
			return fmt.Errorf("%s is not visible for user %d with the given state", pkg.PackageName, infoUser)
		}

		if infoOut == "" || infoOut == "-" {
			return printJSON(cmd.OutOrStdout(), info)
		}
		return writeInfo(infoOut, info)
	},
}

// writeInfo saves info as CBOR when path ends in .cbor and as JSON
// otherwise.
func writeInfo(path string, info *pm.PackageInfo) error {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		data, err := pm.MarshalPackageInfo(info)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := printJSON(f, info); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	rootCmd.AddCommand(infoCmd)

	fs := infoCmd.Flags()
	fs.StringSliceVar(&infoFlags, "flags", nil, "query flags, e.g. activities,permissions,signatures")
	fs.IntVar(&infoUser, "user", 0, "user id to project for")
	fs.BoolVar(&infoNotInstalled, "not-installed", false, "project for a user the package is not installed for")
	fs.BoolVar(&infoBlocked, "blocked", false, "project for a user that blocked the package")
	fs.BoolVar(&infoStopped, "stopped", false, "project a stopped package")
	fs.StringVar(&infoEnabledState, "enabled-state", "default", "enabled setting (default, enabled, disabled, disabled-user, disabled-until-used)")
	fs.StringSliceVar(&infoGranted, "granted", nil, "requested permissions granted to the user")
	fs.StringVar(&infoOut, "out", "", "output file; .cbor writes CBOR, anything else JSON")
	addParserFlags(fs)
	addReportFlag(fs)
}
