package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	t.Parallel()

	info := Info()
	for _, want := range []string{"apkparse " + Version, "Commit: " + Commit, runtime.GOOS + "/" + runtime.GOARCH} {
		if !strings.Contains(info, want) {
			t.Errorf("Info() = %q, missing %q", info, want)
		}
	}
	if Short() != Version {
		t.Errorf("Short() = %q", Short())
	}
}
