// Package version reports build metadata. Release builds set the variables
// with -ldflags; otherwise the module and VCS stamps embedded by the Go
// toolchain are used.
package version

import (
	"runtime/debug"
	"sync"
)

var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

var resolveOnce = sync.OnceValue(func() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(Info{Version: Version, Commit: Commit, BuildTime: BuildTime}, bi)
})

// Resolve returns the build info, computed once per process.
func Resolve() Info {
	return resolveOnce()
}

func resolve(info Info, bi *debug.BuildInfo) Info {
	if bi != nil {
		info.GoVersion = bi.GoVersion
		if info.Version == "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

// String renders "v1.2.3 (0123456789ab+dirty)".
func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	commit := shortCommit(i.Commit)
	if i.Modified {
		commit += "+dirty"
	}
	return i.Version + " (" + commit + ")"
}

func String() string {
	return Resolve().String()
}

// UserAgent identifies cascade in outgoing HTTP requests.
func UserAgent() string {
	return "cascade/" + Resolve().Version
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
