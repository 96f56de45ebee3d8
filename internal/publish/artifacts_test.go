package publish_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/gitflow/internal/publish"
)

func TestResolveArtifacts(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	packagePath := writeArtifact(testInstance, repositoryPath, "artifacts/Widgets.1.4.0.nupkg", "package")
	archivePath := writeArtifact(testInstance, repositoryPath, "artifacts/widgets.zip", "archive")
	absolutePath := writeArtifact(testInstance, testInstance.TempDir(), "notes.txt", "notes")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, "artifacts", "nested.nupkg"), 0o755))

	resolved, resolveError := publish.ResolveArtifacts(repositoryPath, []string{
		"artifacts/*.nupkg",
		"artifacts/*",
		"",
		absolutePath,
		"artifacts/*.missing",
	})
	require.NoError(testInstance, resolveError)

	require.ElementsMatch(testInstance, []string{packagePath, archivePath, absolutePath}, resolved)
	require.IsIncreasing(testInstance, resolved)
}

func TestResolveArtifactsRejectsMalformedPattern(testInstance *testing.T) {
	_, resolveError := publish.ResolveArtifacts(testInstance.TempDir(), []string{"artifacts/[.nupkg"})
	require.Error(testInstance, resolveError)
}
