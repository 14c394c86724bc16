// Package version reports the build the server is running.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X loanpredictor/internal/version.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info is served by /api/version and printed by -version
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Commit    string `json:"commit,omitempty"`
	Committed string `json:"committed,omitempty"`
	Modified  bool   `json:"modified"`
}

// Get collects ldflags values and the VCS stamp embedded by the go tool
func Get() Info {
	info := Info{Version: Version, BuildTime: BuildTime}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			info.Committed = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// Short is the footer label, e.g. "v1.2.0 (3f2a9c1d)"
func (i Info) Short() string {
	if i.Commit == "" {
		return i.Version
	}
	rev := i.Commit
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if i.Modified {
		rev += "+"
	}
	return fmt.Sprintf("%s (%s)", i.Version, rev)
}

func (i Info) String() string {
	parts := []string{"loanpredictor " + i.Short()}
	if i.BuildTime != "unknown" {
		parts = append(parts, "built "+i.BuildTime)
	}
	if i.GoVersion != "" {
		parts = append(parts, i.GoVersion)
	}
	return strings.Join(parts, ", ")
}

// Check returns a startup warning for builds that cannot be traced to a commit
func (i Info) Check() string {
	switch {
	case i.Modified:
		return "binary built from a modified source tree"
	case i.Commit == "" && i.Version == "dev":
		return "development build without version control information"
	}
	return ""
}
