package version

import (
	"regexp"
	"strings"
	"testing"
)

// semverRegex validates semantic versioning format
var semverRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func TestVersionConstants(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{"Platform", Platform},
		{"Evaluator", Evaluator},
		{"Server", Server},
		{"CLI", CLI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !semverRegex.MatchString(tt.version) {
				t.Errorf("%s version %q is not semver", tt.name, tt.version)
			}
		})
	}
}

func TestComponentVersion(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"evaluator", Evaluator},
		{"server", Server},
		{"cli", CLI},
		{"other", Platform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComponentVersion(tt.name); got != tt.want {
				t.Errorf("ComponentVersion(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Platform {
		t.Errorf("Version = %v, want %v", info.Version, Platform)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("GoVersion = %v", info.GoVersion)
	}
	if !strings.Contains(info.String(), Platform) {
		t.Errorf("String() = %v", info.String())
	}
}
