// Package version reports what build of chirp is running.
package version

import (
	"runtime/debug"
	"sync"
)

// Header carries the client build on requests from notifyctl.
const Header = "X-Client-Version"

const versionDevel = "devel"

// version is set via -ldflags "-X github.com/garrettladley/chirp/internal/version.version=v1.2.0".
var version = versionDevel

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Dirty   bool   `json:"dirty,omitempty"`
}

var Build = sync.OnceValue(func() Info {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Version: version}
	}
	return fromBuildInfo(version, info)
})

func fromBuildInfo(linked string, info *debug.BuildInfo) Info {
	out := Info{Version: linked}
	if out.Version == versionDevel {
		if v := info.Main.Version; v != "" && v != "("+versionDevel+")" {
			out.Version = v
		}
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
			if len(out.Commit) > 12 {
				out.Commit = out.Commit[:12]
			}
		case "vcs.modified":
			out.Dirty = s.Value == "true"
		}
	}
	return out
}

func Get() string { return Build().Version }

// UserAgent returns the User-Agent value for a chirp component, e.g. "notifyctl/v1.2.0".
func UserAgent(component string) string {
	return component + "/" + Get()
}
