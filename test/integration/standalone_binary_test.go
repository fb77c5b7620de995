package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildBinary compiles cmd/chatrelay and copies it outside the repository so
// nothing can resolve files relative to the source tree.
func buildBinary(t *testing.T) string {
	t.Helper()

	gomod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err, "go env GOMOD")
	root := filepath.Dir(strings.TrimSpace(string(gomod)))
	require.NotEqual(t, ".", root, "go env GOMOD returned empty")

	built := filepath.Join(t.TempDir(), "chatrelay")
	build := exec.Command("go", "build", "-o", built, "./cmd/chatrelay")
	build.Dir = root
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build: %s", out)

	data, err := os.ReadFile(built)
	require.NoError(t, err)
	standalone := filepath.Join(t.TempDir(), "chatrelay")
	require.NoError(t, os.WriteFile(standalone, data, 0o755))
	return standalone
}

func runBinary(t *testing.T, bin string, args ...string) string {
	t.Helper()

	home := t.TempDir()
	cmd := exec.Command(bin, args...)
	cmd.Dir = home
	cmd.Env = append(os.Environ(), "HOME="+home, "XDG_CONFIG_HOME="+home, "XDG_DATA_HOME="+home)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s: %s", strings.Join(args, " "), out)
	return string(out)
}

func TestStandaloneBinaryWorksOutsideRepo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary copy/exec test is unix-focused")
	}
	if testing.Short() {
		t.Skip("builds the binary")
	}

	bin := buildBinary(t)

	require.True(t, strings.HasPrefix(runBinary(t, bin, "version"), "chatrelay "))
	require.Contains(t, runBinary(t, bin, "--help"), "rate-limit")
	require.Contains(t, runBinary(t, bin, "persona", "show", "--output-format", "json"), "julian-guggeis")
}
