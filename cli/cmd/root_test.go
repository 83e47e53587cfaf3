// ABOUTME: Tests for root command wiring
// ABOUTME: Validates registered subcommands and global flags

package cmd

import "testing"

func TestRootCommand_HasSubcommands(t *testing.T) {
	want := map[string]bool{"sweep": false, "optimize": false, "design": false}
	for _, c := range rootCmd.Commands() {
		if _, tracked := want[c.Name()]; tracked {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Expected %q subcommand to be registered", name)
		}
	}
}

func TestRootCommand_JSONFlag(t *testing.T) {
	if rootCmd.PersistentFlags().Lookup("json") == nil {
		t.Error("Expected global --json flag")
	}
}
