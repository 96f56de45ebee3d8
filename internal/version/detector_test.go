package version_test

import (
	"context"
	"errors"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/gitflow/internal/execshell"
	"github.com/tyemirov/gitflow/internal/version"
)

type stubBuildInfoProvider struct {
	info      *debug.BuildInfo
	available bool
}

func (provider stubBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	if !provider.available {
		return nil, false
	}
	return provider.info, true
}

type sequencedGitCommand struct {
	expectedArguments []string
	output            string
	executionError    error
}

type sequencedGitExecutor struct {
	testInstance *testing.T
	commands     []sequencedGitCommand
}

func (executor *sequencedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.testInstance.Helper()
	require.NotEmpty(executor.testInstance, executor.commands)

	command := executor.commands[0]
	executor.commands = executor.commands[1:]

	require.Equal(executor.testInstance, command.expectedArguments, details.Arguments)
	require.Equal(executor.testInstance, "0", details.EnvironmentVariables["GIT_TERMINAL_PROMPT"])
	return execshell.ExecutionResult{StandardOutput: command.output}, command.executionError
}

var _ version.GitExecutor = (*sequencedGitExecutor)(nil)

func TestDetectorVersionSources(testInstance *testing.T) {
	develBuild := stubBuildInfoProvider{info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, available: true}

	testCases := []struct {
		name            string
		buildInfo       stubBuildInfoProvider
		commands        []sequencedGitCommand
		expectedVersion string
	}{
		{
			name:            "build_info",
			buildInfo:       stubBuildInfoProvider{info: &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}}, available: true},
			expectedVersion: "v1.2.3",
		},
		{
			name:      "exact_tag",
			buildInfo: develBuild,
			commands: []sequencedGitCommand{
				{expectedArguments: []string{"describe", "--tags", "--exact-match"}, output: "v0.9.0\n"},
			},
			expectedVersion: "v0.9.0",
		},
		{
			name:      "long_describe",
			buildInfo: stubBuildInfoProvider{available: false},
			commands: []sequencedGitCommand{
				{expectedArguments: []string{"describe", "--tags", "--exact-match"}, executionError: errors.New("no tag exactly matches")},
				{expectedArguments: []string{"describe", "--tags", "--long", "--dirty"}, output: "v0.9.0-1-gabcdef"},
			},
			expectedVersion: "v0.9.0-1-gabcdef",
		},
		{
			name:      "unknown",
			buildInfo: develBuild,
			commands: []sequencedGitCommand{
				{expectedArguments: []string{"describe", "--tags", "--exact-match"}, executionError: errors.New("failure")},
				{expectedArguments: []string{"describe", "--tags", "--long", "--dirty"}, executionError: errors.New("failure")},
			},
			expectedVersion: "unknown",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &sequencedGitExecutor{testInstance: testInstance, commands: testCase.commands}
			detector, creationError := version.NewDetector(version.Dependencies{
				BuildInfoProvider: testCase.buildInfo,
				GitExecutor:       executor,
				WorkingDirectory:  "/workspace",
			})
			require.NoError(testInstance, creationError)

			require.Equal(testInstance, testCase.expectedVersion, detector.Version(context.Background()))
			require.Empty(testInstance, executor.commands)
		})
	}
}

func TestNilDetectorReportsUnknown(testInstance *testing.T) {
	var detector *version.Detector
	require.Equal(testInstance, "unknown", detector.Version(context.Background()))
}
