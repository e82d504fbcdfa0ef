// Package version holds the build metadata of the relimport binary.
package version

import (
	"fmt"
	"runtime/debug"
)

const (
	develVersion = "(devel)"
	unknown      = "unknown"
)

// Set through -ldflags "-X" at release time.
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills values not set at link time from the module build
// info embedded by the Go toolchain.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != develVersion {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String renders the version line printed by the version command.
func String() string {
	return fmt.Sprintf("relimport %s (commit %s, built %s)", Version, Commit, Date)
}
