// Package version reports the WizardKit build version.
//
// The variables can be set at build time:
//
//	go build -ldflags "-X github.com/AltairaLabs/WizardKit/runtime/version.version=1.2.0"
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	devVersion     = "dev"
	shortCommitLen = 7
)

var (
	version   = devVersion
	gitCommit = ""
	buildDate = ""
)

// Get returns the version set by ldflags, then the module version from the
// build info, then "dev".
func Get() string {
	if version != devVersion {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return devVersion
}

// Commit returns the short VCS revision, if known.
func Commit() string {
	if gitCommit != "" {
		return gitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value[:min(shortCommitLen, len(s.Value))]
		}
	}
	return ""
}

// Info returns a human-readable multi-line version banner for program.
func Info(program string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s version %s", program, Get())
	if c := Commit(); c != "" {
		fmt.Fprintf(&b, "\ncommit: %s", c)
	}
	if buildDate != "" {
		fmt.Fprintf(&b, "\nbuilt: %s", buildDate)
	}
	return b.String()
}

// Attrs returns the version as slog key/value pairs.
func Attrs() []any {
	attrs := []any{"version", Get()}
	if c := Commit(); c != "" {
		attrs = append(attrs, "commit", c)
	}
	if buildDate != "" {
		attrs = append(attrs, "built", buildDate)
	}
	return attrs
}
