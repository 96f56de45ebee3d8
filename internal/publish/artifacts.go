package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const artifactPatternErrorTemplate = "invalid artifact pattern %q: %w"

// ResolveArtifacts expands the glob patterns relative to baseDirectory and returns the
// matching regular files, sorted and without duplicates.
func ResolveArtifacts(baseDirectory string, patterns []string) ([]string, error) {
	seen := map[string]struct{}{}
	resolved := make([]string, 0)
	for _, pattern := range patterns {
		if len(pattern) == 0 {
			continue
		}
		fullPattern := pattern
		if !filepath.IsAbs(pattern) {
			fullPattern = filepath.Join(baseDirectory, pattern)
		}
		matches, globError := filepath.Glob(fullPattern)
		if globError != nil {
			return nil, fmt.Errorf(artifactPatternErrorTemplate, pattern, globError)
		}
		for _, match := range matches {
			if _, duplicate := seen[match]; duplicate {
				continue
			}
			fileInfo, statError := os.Stat(match)
			if statError != nil || !fileInfo.Mode().IsRegular() {
				continue
			}
			seen[match] = struct{}{}
			resolved = append(resolved, match)
		}
	}
	sort.Strings(resolved)
	return resolved, nil
}
