package constants

import "testing"

func TestConstantValues(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"CLIName", CLIName, "lumenflow"},
		{"DefaultRemote", DefaultRemote, "origin"},
		{"CommitPrefix", CommitPrefix, "[lumenflow]"},
		{"MicroWorktreeBranchPrefix", MicroWorktreeBranchPrefix, "microwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.value, tt.expected)
			}
		})
	}
}
