package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the service current released version in semantic version format.
var Version = "0.2.0"

// DevVersion is the service current development version.
var DevVersion = "0.2.0"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// GetMinorVersion extracts the minor version (e.g., "0.2") from a full version string.
func GetMinorVersion(version string) string {
	versionList := strings.Split(version, ".")
	if len(versionList) < 2 {
		return ""
	}
	return versionList[0] + "." + versionList[1]
}

// IsValid reports whether version is a semantic version such as "0.2.1".
func IsValid(version string) bool {
	return semver.IsValid(fmt.Sprintf("v%s", version))
}

// Compare returns -1, 0 or +1 as version is less than, equal to or greater than target.
func Compare(version, target string) int {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target))
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > -1
}

// IsVersionGreaterThan returns true if version is greater than target.
func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > 0
}
