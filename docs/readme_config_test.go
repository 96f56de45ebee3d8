package docs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tyemirov/gitflow/cmd/cli"
)

const (
	documentationFileNameConstant    = "ARCHITECTURE.md"
	yamlFenceStartConstant           = "```yaml"
	yamlFenceEndConstant             = "```"
	configHeaderMarkerConstant       = "# config.yaml"
	parentDirectoryReferenceConstant = ".."
	missingHeaderMessageConstant     = "Architecture example missing config header marker"
	missingStartFenceMessageConstant = "Architecture example missing yaml fence start"
	missingEndFenceMessageConstant   = "Architecture example missing yaml fence end"
	unexpectedOperationTemplate      = "unexpected operation %s"
	duplicateOperationTemplate       = "duplicate operation %s"
)

var expectedOperations = map[string]struct{}{
	"flow":    {},
	"publish": {},
}

type documentedConfiguration struct {
	Common     map[string]any        `yaml:"common"`
	Operations []documentedOperation `yaml:"operations"`
}

type documentedOperation struct {
	Name    string         `yaml:"operation"`
	Options map[string]any `yaml:"with"`
}

func extractConfigurationSnippet(testInstance *testing.T) string {
	testInstance.Helper()
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	contentBytes, readError := os.ReadFile(filepath.Join(workingDirectory, parentDirectoryReferenceConstant, documentationFileNameConstant))
	require.NoError(testInstance, readError)

	contentText := string(contentBytes)
	headerIndex := strings.Index(contentText, configHeaderMarkerConstant)
	require.NotEqual(testInstance, -1, headerIndex, missingHeaderMessageConstant)

	fenceStartIndex := strings.LastIndex(contentText[:headerIndex], yamlFenceStartConstant)
	require.NotEqual(testInstance, -1, fenceStartIndex, missingStartFenceMessageConstant)

	fenceEndRelativeIndex := strings.Index(contentText[headerIndex:], yamlFenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndRelativeIndex, missingEndFenceMessageConstant)

	return strings.TrimSpace(contentText[fenceStartIndex+len(yamlFenceStartConstant) : headerIndex+fenceEndRelativeIndex])
}

func TestArchitectureConfigurationParses(testInstance *testing.T) {
	snippet := extractConfigurationSnippet(testInstance)

	var configuration documentedConfiguration
	require.NoError(testInstance, yaml.Unmarshal([]byte(snippet), &configuration))
	require.Len(testInstance, configuration.Operations, len(expectedOperations))

	seenOperations := make(map[string]struct{}, len(configuration.Operations))
	for _, operation := range configuration.Operations {
		_, expected := expectedOperations[operation.Name]
		require.Truef(testInstance, expected, unexpectedOperationTemplate, operation.Name)

		_, duplicate := seenOperations[operation.Name]
		require.Falsef(testInstance, duplicate, duplicateOperationTemplate, operation.Name)
		seenOperations[operation.Name] = struct{}{}
	}
}

func TestArchitectureConfigurationMatchesEmbeddedDefaults(testInstance *testing.T) {
	snippet := extractConfigurationSnippet(testInstance)
	embeddedContent, _ := cli.EmbeddedDefaultConfiguration()

	var documented documentedConfiguration
	require.NoError(testInstance, yaml.Unmarshal([]byte(snippet), &documented))

	var embedded documentedConfiguration
	require.NoError(testInstance, yaml.Unmarshal(embeddedContent, &embedded))

	require.Equal(testInstance, embedded, documented)
}
