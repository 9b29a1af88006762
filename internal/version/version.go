// Package version reports the build identity of the cephtool binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set through -ldflags "-X github.com/marmos91/cephtool/internal/version.Version=..."
var (
	Version   = ""
	Commit    = ""
	BuildDate = ""
)

// Info is the resolved build identity.
type Info struct {
	Version   string
	Commit    string
	BuildDate string
}

// Get returns the ldflags values, completed from the module build info for
// anything left unset.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildDate: BuildDate}

	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&info, bi)
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	return info
}

func fillFromBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		}
	}
}

// String formats the build identity for "cephtool version".
func String() string {
	info := Get()
	return fmt.Sprintf("cephtool %s (%s, built %s)", info.Version, info.Commit, info.BuildDate)
}
