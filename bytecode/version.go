package bytecode

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Version renders a container's header version as a semver string so it can
// be compared with golang.org/x/mod/semver. CompatibleVersion is also what
// stctl run uses to gate a bundle's min_runtime_version; package config
// only decodes that string.
func (h Header) Version() string {
	return fmt.Sprintf("v%d.%d.0", h.Major, h.Minor)
}

// CompatibleVersion reports whether a container's version satisfies a
// minimum required version string (e.g. "v1.2.0"), following semver's
// "same major, minor/patch at least as new" compatibility rule.
func CompatibleVersion(h Header, min string) bool {
	v := h.Version()
	if semver.Major(v) != semver.Major(min) {
		return false
	}
	return semver.Compare(v, min) >= 0
}
