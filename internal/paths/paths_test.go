package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigDir_UsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", filepath.FromSlash("/tmp/xdg-config"))
	require.Equal(t, filepath.FromSlash("/tmp/xdg-config/autoaccept"), ConfigDir())
	require.Equal(t, filepath.FromSlash("/tmp/xdg-config/autoaccept/config.yaml"), ConfigFile())
}

func TestConfigDir_FallsBackToHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", filepath.FromSlash("/home/tester"))
	t.Setenv("USERPROFILE", filepath.FromSlash("/home/tester"))
	require.Equal(t, filepath.FromSlash("/home/tester/.config/autoaccept"), ConfigDir())
}

func TestStateDB_UsesXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", filepath.FromSlash("/tmp/xdg-state"))
	require.Equal(t, filepath.FromSlash("/tmp/xdg-state/autoaccept/state.db"), StateDB())
}

func TestExpand_TableDriven(t *testing.T) {
	t.Setenv("HOME", filepath.FromSlash("/home/tester"))
	t.Setenv("USERPROFILE", filepath.FromSlash("/home/tester"))

	testCases := []struct {
		name     string
		input    string
		fallback string
		expected string
	}{
		{"empty uses fallback", "", "/fallback", "/fallback"},
		{"tilde alone", "~", "", "/home/tester"},
		{"tilde prefix", "~/state/db.sqlite", "", "/home/tester/state/db.sqlite"},
		{"absolute cleaned", "/var/lib/../lib/db", "", "/var/lib/db"},
		{"relative kept", "state.db", "", "state.db"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Expand(filepath.FromSlash(tc.input), filepath.FromSlash(tc.fallback))
			require.Equal(t, filepath.FromSlash(tc.expected), result)
		})
	}
}
