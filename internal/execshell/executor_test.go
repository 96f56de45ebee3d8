package execshell_test

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tyemirov/gitflow/internal/execshell"
)

const (
	testExecutionSuccessCaseNameConstant         = "success"
	testExecutionFailureCaseNameConstant         = "failure_exit_code"
	testExecutionRunnerErrorCaseNameConstant     = "runner_error"
	testCommandArgumentConstant                  = "--version"
	testWorkingDirectoryConstant                 = "."
	testStandardErrorOutputConstant              = "failure"
	testRunnerFailureMessageConstant             = "runner failure"
	testLoggerInitializationCaseNameConstant     = "logger_validation"
	testRunnerInitializationCaseNameConstant     = "runner_validation"
	testSuccessfulInitializationCaseNameConstant = "successful_initialization"
	testGitRunnerErrorMessageConstant            = "git --version (in .) failed: runner failure"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		runner        execshell.CommandRunner
		expectError   error
		expectSuccess bool
	}{
		{
			name:        testLoggerInitializationCaseNameConstant,
			logger:      nil,
			runner:      &recordingCommandRunner{},
			expectError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:        testRunnerInitializationCaseNameConstant,
			logger:      zap.NewNop(),
			runner:      nil,
			expectError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          testSuccessfulInitializationCaseNameConstant,
			logger:        zap.NewNop(),
			runner:        &recordingCommandRunner{},
			expectSuccess: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner, false)
			if testCase.expectSuccess {
				require.NoError(testInstance, creationError)
				require.NotNil(testInstance, executor)
			} else {
				require.Error(testInstance, creationError)
				require.ErrorIs(testInstance, creationError, testCase.expectError)
			}
		})
	}
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name             string
		runnerResult     execshell.ExecutionResult
		runnerError      error
		expectErrorType  any
		expectedLogCount int
		expectedLevels   []zapcore.Level
	}{
		{
			name: testExecutionSuccessCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardOutput: "ok",
				ExitCode:       0,
			},
			expectedLogCount: 2,
			expectedLevels:   []zapcore.Level{zap.InfoLevel, zap.InfoLevel},
		},
		{
			name: testExecutionFailureCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardError: testStandardErrorOutputConstant,
				ExitCode:      1,
			},
			expectErrorType:  execshell.CommandFailedError{},
			expectedLogCount: 2,
			expectedLevels:   []zapcore.Level{zap.InfoLevel, zap.WarnLevel},
		},
		{
			name:             testExecutionRunnerErrorCaseNameConstant,
			runnerError:      errors.New(testRunnerFailureMessageConstant),
			expectErrorType:  execshell.CommandExecutionError{},
			expectedLogCount: 2,
			expectedLevels:   []zapcore.Level{zap.InfoLevel, zap.ErrorLevel},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			logger := zap.New(observerCore)

			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}

			shellExecutor, creationError := execshell.NewShellExecutor(logger, recordingRunner, false)
			require.NoError(testInstance, creationError)

			commandDetails := execshell.CommandDetails{Arguments: []string{testCommandArgumentConstant}, WorkingDirectory: testWorkingDirectoryConstant}
			executionResult, executionError := shellExecutor.ExecuteGit(context.Background(), commandDetails)

			if testCase.expectErrorType != nil {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.expectErrorType, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.runnerResult.StandardOutput, executionResult.StandardOutput)
			}

			require.Len(testInstance, recordingRunner.recordedCommands, 1)
			require.Equal(testInstance, execshell.CommandGit, recordingRunner.recordedCommands[0].Name)

			capturedLogs := observerLogs.All()
			require.Len(testInstance, capturedLogs, testCase.expectedLogCount)
			for logIndex := range capturedLogs {
				require.Equal(testInstance, testCase.expectedLevels[logIndex], capturedLogs[logIndex].Level)
			}
		})
	}
}

func TestShellExecutorHumanReadableLogging(testInstance *testing.T) {
	testCases := []struct {
		name             string
		runnerResult     execshell.ExecutionResult
		runnerError      error
		expectedMessages []string
		expectedLevels   []zapcore.Level
	}{
		{
			name:         testExecutionSuccessCaseNameConstant,
			runnerResult: execshell.ExecutionResult{StandardOutput: "ok", ExitCode: 0},
			expectedMessages: []string{
				"Running git --version (in .)",
				"Completed git --version (in .)",
			},
			expectedLevels: []zapcore.Level{zap.InfoLevel, zap.InfoLevel},
		},
		{
			name:         testExecutionFailureCaseNameConstant,
			runnerResult: execshell.ExecutionResult{StandardError: testStandardErrorOutputConstant, ExitCode: 1},
			expectedMessages: []string{
				"Running git --version (in .)",
				"git --version (in .) failed with exit code 1: failure",
			},
			expectedLevels: []zapcore.Level{zap.InfoLevel, zap.WarnLevel},
		},
		{
			name:        testExecutionRunnerErrorCaseNameConstant,
			runnerError: errors.New(testRunnerFailureMessageConstant),
			expectedMessages: []string{
				"Running git --version (in .)",
				testGitRunnerErrorMessageConstant,
			},
			expectedLevels: []zapcore.Level{zap.InfoLevel, zap.ErrorLevel},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observedLogs := observer.New(zap.InfoLevel)
			logger := zap.New(observerCore)

			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}

			shellExecutor, creationError := execshell.NewShellExecutor(logger, recordingRunner, true)
			require.NoError(testInstance, creationError)

			commandDetails := execshell.CommandDetails{Arguments: []string{testCommandArgumentConstant}, WorkingDirectory: testWorkingDirectoryConstant}
			_, _ = shellExecutor.ExecuteGit(context.Background(), commandDetails)

			capturedLogs := observedLogs.All()
			require.Len(testInstance, capturedLogs, len(testCase.expectedMessages))
			for logIndex := range capturedLogs {
				require.Equal(testInstance, testCase.expectedMessages[logIndex], capturedLogs[logIndex].Message)
				require.Equal(testInstance, testCase.expectedLevels[logIndex], capturedLogs[logIndex].Level)
			}
		})
	}
}

func TestCommandFailedErrorMessage(testInstance *testing.T) {
	testCases := []struct {
		name            string
		result          execshell.ExecutionResult
		expectedMessage string
	}{
		{
			name:            "stderr_detail",
			result:          execshell.ExecutionResult{ExitCode: 1, StandardError: "CONFLICT (content): Merge conflict in a.txt\nAutomatic merge failed\n"},
			expectedMessage: "git command exited with code 1 (merge --no-ff --no-edit release/1.4.0): CONFLICT (content): Merge conflict in a.txt | Automatic merge failed",
		},
		{
			name:            "stdout_fallback",
			result:          execshell.ExecutionResult{ExitCode: 1, StandardOutput: "nothing to commit"},
			expectedMessage: "git command exited with code 1 (merge --no-ff --no-edit release/1.4.0): nothing to commit",
		},
		{
			name:            "no_detail",
			result:          execshell.ExecutionResult{ExitCode: 128},
			expectedMessage: "git command exited with code 128 (merge --no-ff --no-edit release/1.4.0)",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			failure := execshell.CommandFailedError{
				Command: execshell.ShellCommand{
					Name:    execshell.CommandGit,
					Details: execshell.CommandDetails{Arguments: []string{"merge", "--no-ff", "--no-edit", "release/1.4.0"}},
				},
				Result: testCase.result,
			}
			require.Equal(testInstance, testCase.expectedMessage, failure.Error())
			require.Equal(testInstance, "git merge --no-ff --no-edit release/1.4.0", failure.CommandLine())
		})
	}
}

func TestOSCommandRunnerReportsExitStatus(testInstance *testing.T) {
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}

	runner := execshell.NewOSCommandRunner()

	successResult, successError := runner.Run(context.Background(), execshell.ShellCommand{
		Name:    execshell.CommandGit,
		Details: execshell.CommandDetails{Arguments: []string{"--version"}},
	})
	require.NoError(testInstance, successError)
	require.Equal(testInstance, 0, successResult.ExitCode)
	require.Contains(testInstance, successResult.StandardOutput, "git version")

	failureResult, failureError := runner.Run(context.Background(), execshell.ShellCommand{
		Name:    execshell.CommandGit,
		Details: execshell.CommandDetails{Arguments: []string{"definitely-not-a-subcommand"}, WorkingDirectory: testInstance.TempDir()},
	})
	require.NoError(testInstance, failureError)
	require.NotEqual(testInstance, 0, failureResult.ExitCode)
	require.NotEmpty(testInstance, failureResult.StandardError)
}
