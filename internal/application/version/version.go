// Package version exposes the build version, set at link time via
// -ldflags "-X dcman/internal/application/version.version=1.2.3".
package version

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	version = "0.0.0"
	// Matches the numeric core in versions like "1.2.3-beta".
	versionRegex = regexp.MustCompile(`(\d+\.\d+\.\d+)`)
)

func GetVersion() string {
	return version
}

func GetNumericVersion() int {
	return ParseNumericVersion(version)
}

// ParseNumericVersion folds "1.2.3" into a single comparable integer.
func ParseNumericVersion(semVer string) int {
	matches := versionRegex.FindStringSubmatch(semVer)
	if len(matches) > 1 {
		semVer = matches[1]
	}

	parts := strings.Split(semVer, ".")
	result := 0
	for _, part := range parts {
		num, _ := strconv.Atoi(part)
		result = result*1000 + num
	}
	return result
}
