// Package version reports build information embedded in the binary.
package version

import (
	"runtime/debug"
)

// modulePath is the main module path the binary is built from.
const modulePath = "tasteos.dev"

// Info is the build identity reported by the version command and the
// health endpoint.
type Info struct {
	Module    string `json:"module"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get extracts the build info embedded by the Go toolchain. Binaries
// built outside a module context report "unknown".
func Get() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Module: modulePath, Version: "unknown", GoVersion: "unknown"}
	}

	info := Info{
		Module:    bi.Path,
		Version:   bi.Main.Version,
		GoVersion: bi.GoVersion,
	}
	if info.Version == "" || info.Version == "(devel)" {
		info.Version = "dev"
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Commit = setting.Value
		case "vcs.modified":
			info.Dirty = setting.Value == "true"
		}
	}
	return info
}

// Dependency returns the resolved version of one dependency, or empty
// when the module is not linked in.
func Dependency(path string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range bi.Deps {
		if dep.Path == path {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return ""
}
