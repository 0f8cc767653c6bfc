package frappekit

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the module release. Release builds set it with
// -ldflags "-X github.com/ambiyansyah-risyal/frappekit.Version=v0.3.1".
var Version = "v0.3.0"

// Commit is the VCS revision. When -ldflags leaves it empty it is read from
// the build info the toolchain stamps into the binary.
var Commit = ""

// Build describes the running binary.
type Build struct {
	Version string
	Commit  string
	Dirty   bool
	Go      string
}

// BuildInfo reports Version together with the stamped VCS state.
func BuildInfo() Build {
	b := Build{Version: Version, Commit: Commit, Go: runtime.Version()}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	return b
}

// String renders b as "frappekit v0.3.0 (1a2b3c4d5e6f, go1.25.0)".
func (b Build) String() string {
	commit := b.Commit
	switch {
	case commit == "":
		commit = "devel"
	case len(commit) > 12:
		commit = commit[:12]
	}
	if b.Dirty {
		commit += "+dirty"
	}
	return fmt.Sprintf("frappekit %s (%s, %s)", b.Version, commit, b.Go)
}

// GetVersion is BuildInfo().String().
func GetVersion() string {
	return BuildInfo().String()
}
