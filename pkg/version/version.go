// Package version holds build metadata, stamped with -ldflags -X or read from
// the module build info.
package version

import (
	"fmt"
	"runtime/debug"
)

const (
	develVersion = "(devel)"
	unknown      = "unknown"
)

// Build metadata. Overridden at link time, e.g.
// -X github.com/Sumatoshi-tech/smackdown/pkg/version.Version=v1.0.0.
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills metadata the linker left unset from the build info
// recorded by the Go toolchain.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
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

// String formats the metadata for `smackdown version`.
func String() string {
	return fmt.Sprintf("smackdown %s (commit: %s, built: %s)", Version, Commit, Date)
}
