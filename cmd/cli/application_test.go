package cli_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/gitflow/cmd/cli"
)

const (
	testConfigurationFileNameConstant             = "config.yaml"
	testConfigurationSearchPathEnvironmentName    = "GITFLOW_CONFIG_SEARCH_PATH"
	testUserConfigurationDirectoryNameConstant    = ".gitflow"
	testApplicationNameConstant                   = "gitflow"
	testExistingConfigurationContentConstant      = "common:\n  log_level: error\n"
	testExistingConfigurationErrorFragment        = "already exists"
	testSubtestNameTemplateConstant               = "%d_%s"
	testWorkingDirectoryConfigurationContent      = "common:\n  log_level: warn\n  environment: test\n"
	testSecondaryDirectoryConfigurationContent    = "common:\n  log_level: info\n"
	testDuplicateOperationConfigurationContent    = "operations:\n  - operation: flow\n  - operation: flow\n"
	testUnsupportedScopeConfigurationErrorMessage = "unsupported initialization scope"
)

func changeWorkingDirectory(t *testing.T, directory string) {
	t.Helper()
	originalWorkingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(t, workingDirectoryError)
	require.NoError(t, os.Chdir(directory))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(originalWorkingDirectory))
	})
}

func executeWithArguments(t *testing.T, arguments ...string) error {
	t.Helper()
	originalArguments := os.Args
	os.Args = append([]string{testApplicationNameConstant}, arguments...)
	t.Cleanup(func() {
		os.Args = originalArguments
	})
	return cli.NewApplication().Execute()
}

func TestApplicationInitializeConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name                string
		searchPaths         func(primary string, secondary string) string
		expectedDirectory   func(primary string, secondary string) string
		expectedEnvironment string
	}{
		{
			name: "FirstSearchPathWins",
			searchPaths: func(primary string, secondary string) string {
				return primary + string(os.PathListSeparator) + secondary
			},
			expectedDirectory: func(primary string, secondary string) string {
				return primary
			},
			expectedEnvironment: "test",
		},
		{
			name: "LaterSearchPathUsedWhenEarlierMissing",
			searchPaths: func(primary string, secondary string) string {
				return filepath.Join(primary, "missing") + string(os.PathListSeparator) + secondary
			},
			expectedDirectory: func(primary string, secondary string) string {
				return secondary
			},
			expectedEnvironment: "development",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(t *testing.T) {
			primaryDirectory := t.TempDir()
			secondaryDirectory := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(primaryDirectory, testConfigurationFileNameConstant), []byte(testWorkingDirectoryConfigurationContent), 0o600))
			require.NoError(t, os.WriteFile(filepath.Join(secondaryDirectory, testConfigurationFileNameConstant), []byte(testSecondaryDirectoryConfigurationContent), 0o600))
			t.Setenv(testConfigurationSearchPathEnvironmentName, testCase.searchPaths(primaryDirectory, secondaryDirectory))

			application := cli.NewApplication()
			require.NoError(t, application.InitializeForCommand("status"))
			require.Equal(t, filepath.Join(testCase.expectedDirectory(primaryDirectory, secondaryDirectory), testConfigurationFileNameConstant), application.ConfigFileUsed())
			require.Equal(t, testCase.expectedEnvironment, application.Environment())
		})
	}
}

func TestApplicationInitializeConfigurationRejectsDuplicateOperations(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(configurationDirectory, testConfigurationFileNameConstant), []byte(testDuplicateOperationConfigurationContent), 0o600))
	testInstance.Setenv(testConfigurationSearchPathEnvironmentName, configurationDirectory)

	application := cli.NewApplication()
	initializationError := application.InitializeForCommand("release")

	var duplicate cli.DuplicateOperationConfigurationError
	require.ErrorAs(testInstance, initializationError, &duplicate)
	require.Equal(testInstance, "flow", duplicate.OperationName)
}

func TestApplicationConfigurationInitializationCreatesConfiguration(testInstance *testing.T) {
	embeddedConfigurationContent, _ := cli.EmbeddedDefaultConfiguration()
	require.NotEmpty(testInstance, embeddedConfigurationContent)

	testCases := []struct {
		name      string
		arguments []string
		setup     func(*testing.T) string
	}{
		{
			name:      "Local",
			arguments: []string{"--init"},
			setup: func(t *testing.T) string {
				workingDirectory := t.TempDir()
				changeWorkingDirectory(t, workingDirectory)
				return filepath.Join(workingDirectory, testConfigurationFileNameConstant)
			},
		},
		{
			name:      "User",
			arguments: []string{"--init=user"},
			setup: func(t *testing.T) string {
				changeWorkingDirectory(t, t.TempDir())
				homeDirectory := t.TempDir()
				t.Setenv("HOME", homeDirectory)
				return filepath.Join(homeDirectory, testUserConfigurationDirectoryNameConstant, testConfigurationFileNameConstant)
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(t *testing.T) {
			expectedConfigurationPath := testCase.setup(t)
			t.Setenv(testConfigurationSearchPathEnvironmentName, t.TempDir())

			require.NoError(t, executeWithArguments(t, testCase.arguments...))

			fileContent, readError := os.ReadFile(expectedConfigurationPath)
			require.NoError(t, readError)
			require.Equal(t, embeddedConfigurationContent, fileContent)
		})
	}
}

func TestApplicationConfigurationInitializationForceHandling(testInstance *testing.T) {
	embeddedConfigurationContent, _ := cli.EmbeddedDefaultConfiguration()

	testCases := []struct {
		name        string
		arguments   []string
		expectError bool
	}{
		{
			name:        "ForceRequired",
			arguments:   []string{"--init", "local"},
			expectError: true,
		},
		{
			name:        "ForceEnabled",
			arguments:   []string{"--init", "local", "--force"},
			expectError: false,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(t *testing.T) {
			workingDirectory := t.TempDir()
			changeWorkingDirectory(t, workingDirectory)
			t.Setenv(testConfigurationSearchPathEnvironmentName, t.TempDir())

			configurationPath := filepath.Join(workingDirectory, testConfigurationFileNameConstant)
			require.NoError(t, os.WriteFile(configurationPath, []byte(testExistingConfigurationContentConstant), 0o600))

			executionError := executeWithArguments(t, testCase.arguments...)

			fileContent, readError := os.ReadFile(configurationPath)
			require.NoError(t, readError)
			if testCase.expectError {
				require.Error(t, executionError)
				require.Contains(t, executionError.Error(), testExistingConfigurationErrorFragment)
				require.Equal(t, testExistingConfigurationContentConstant, string(fileContent))
				return
			}
			require.NoError(t, executionError)
			require.Equal(t, embeddedConfigurationContent, fileContent)
		})
	}
}

func TestApplicationConfigurationInitializationRejectsUnknownScope(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	testInstance.Setenv(testConfigurationSearchPathEnvironmentName, testInstance.TempDir())

	executionError := executeWithArguments(testInstance, "--init=global")
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), testUnsupportedScopeConfigurationErrorMessage)
}
