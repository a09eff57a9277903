// ============================================================================
// Pascal - Klammerausdruck-Evaluator
// ============================================================================
//
// Package:     version
// Description: Central version management for all components
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Version constants for the Pascal components
const (
	// Platform version
	Platform = "1.0.0"

	// Component versions
	Evaluator = "1.0.0"
	Server    = "1.0.0"
	CLI       = "1.0.0"

	// APIVersion is the gRPC package and HTTP path version
	APIVersion = "v1"
)

// Set at build time via -ldflags "-X github.com/msto63/pascal/pkg/core/version.Commit=..."
var (
	Commit    = "unknown"
	BuildDate = "unknown"
)

// ComponentVersion returns the version for a given component name
func ComponentVersion(name string) string {
	switch name {
	case "evaluator":
		return Evaluator
	case "server":
		return Server
	case "cli":
		return CLI
	default:
		return Platform
	}
}

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary
func Get() Info {
	return Info{
		Version:   Platform,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a single-line description
func (i Info) String() string {
	return fmt.Sprintf("pascal %s (commit %s, built %s, %s, %s)",
		i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}
