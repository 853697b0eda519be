// Package version reports the qrscan build.
package version

import "runtime/debug"

// Set with -ldflags "-X github.com/MeKo-Tech/qrscan/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns the version, commit and build date. Builds without ldflags
// fall back to the module version and VCS stamps recorded by the toolchain.
func Info() (version, commit, date string) {
	version, commit, date = Version, GitCommit, BuildDate
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit, date
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" {
				commit = s.Value
			}
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		}
	}
	return version, commit, date
}
