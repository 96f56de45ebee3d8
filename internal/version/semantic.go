package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	semverPrefixConstant           = "v"
	prereleaseSeparatorConstant    = "-"
	versionComponentSeparator      = "."
	invalidVersionTemplateConstant = "%q is not a semantic version"
)

// ErrInvalidSemanticVersion indicates a value could not be parsed as a semantic version.
var ErrInvalidSemanticVersion = errors.New("invalid semantic version")

// SemanticVersion is a resolved version of a repository ref.
type SemanticVersion struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Sha        string
}

// ParseSemanticVersion parses values such as "1.4.0", "v2.3.1" or "1.5.0-alpha".
// Build metadata is discarded and a missing patch component defaults to zero.
func ParseSemanticVersion(rawValue string) (SemanticVersion, error) {
	trimmedValue := strings.TrimSpace(rawValue)
	trimmedValue = strings.TrimPrefix(strings.TrimPrefix(trimmedValue, semverPrefixConstant), "V")
	candidate := semverPrefixConstant + trimmedValue
	if !semver.IsValid(candidate) {
		return SemanticVersion{}, fmt.Errorf("%w: "+invalidVersionTemplateConstant, ErrInvalidSemanticVersion, rawValue)
	}

	canonical := semver.Canonical(candidate)
	prerelease := semver.Prerelease(canonical)
	core := strings.TrimSuffix(strings.TrimPrefix(canonical, semverPrefixConstant), prerelease)

	components := strings.Split(core, versionComponentSeparator)
	if len(components) != 3 {
		return SemanticVersion{}, fmt.Errorf("%w: "+invalidVersionTemplateConstant, ErrInvalidSemanticVersion, rawValue)
	}

	numbers := make([]int, len(components))
	for componentIndex, component := range components {
		number, conversionError := strconv.Atoi(component)
		if conversionError != nil {
			return SemanticVersion{}, fmt.Errorf("%w: %w", ErrInvalidSemanticVersion, conversionError)
		}
		numbers[componentIndex] = number
	}

	return SemanticVersion{
		Major:      numbers[0],
		Minor:      numbers[1],
		Patch:      numbers[2],
		Prerelease: strings.TrimPrefix(prerelease, prereleaseSeparatorConstant),
	}, nil
}

// MajorMinorPatch renders the version core used for branch names and tags.
func (version SemanticVersion) MajorMinorPatch() string {
	return fmt.Sprintf("%d.%d.%d", version.Major, version.Minor, version.Patch)
}

// String renders the version core followed by the prerelease label when present.
func (version SemanticVersion) String() string {
	if len(version.Prerelease) == 0 {
		return version.MajorMinorPatch()
	}
	return version.MajorMinorPatch() + prereleaseSeparatorConstant + version.Prerelease
}

// NextPatch returns the version with the patch component incremented and no prerelease.
func (version SemanticVersion) NextPatch() SemanticVersion {
	return SemanticVersion{Major: version.Major, Minor: version.Minor, Patch: version.Patch + 1, Sha: version.Sha}
}

// NextMinor returns the version with the minor component incremented, patch reset and no prerelease.
func (version SemanticVersion) NextMinor() SemanticVersion {
	return SemanticVersion{Major: version.Major, Minor: version.Minor + 1, Sha: version.Sha}
}

// Compare orders two versions by semantic version precedence.
func Compare(left SemanticVersion, right SemanticVersion) int {
	return semver.Compare(semverPrefixConstant+left.String(), semverPrefixConstant+right.String())
}
