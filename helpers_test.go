package spawn

import (
	"os/exec"
	"testing"
)

// needProg skips the test when a required external program is missing
// from PATH
func needProg(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not found in PATH", name)
		}
	}
}
