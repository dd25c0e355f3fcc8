package internal

import (
	"runtime/debug"
	"time"
)

// Build describes the running binary as reported by the Go build info.
// The fallback values remain when the binary was built outside version
// control.
var Build = BuildInfo{
	Revision: "unknown",
	Modified: "unknown",
}

type BuildInfo struct {
	Revision     string
	RevisionTime time.Time
	Modified     string
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Build.Revision = setting.Value
		case "vcs.time":
			t, err := time.Parse(time.RFC3339, setting.Value)
			if err == nil {
				Build.RevisionTime = t
			}
		case "vcs.modified":
			Build.Modified = setting.Value
		}
	}
}
