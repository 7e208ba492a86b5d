package version

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		commit   string
		expected string
	}{
		{name: "release tag", version: "1.4.2", commit: "abc123", expected: "v1.4.2"},
		{name: "tag with v prefix", version: "v1.4.2", commit: "abc123", expected: "v1.4.2"},
		{name: "short tag", version: "2.1", commit: "abc123", expected: "v2.1.0"},
		{name: "prerelease", version: "1.0.0-rc.1", commit: "abc123", expected: "v1.0.0-rc.1"},
		{name: "dev build", version: "dev", commit: "abc123", expected: "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.version, tt.commit); got != tt.expected {
				t.Errorf("Format(%q, %q) = %q, want %q", tt.version, tt.commit, got, tt.expected)
			}
		})
	}
}
