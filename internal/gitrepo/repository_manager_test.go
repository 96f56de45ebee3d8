package gitrepo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/gitflow/internal/execshell"
	"github.com/tyemirov/gitflow/internal/gitrepo"
)

const (
	testRepositoryPathConstant        = "/tmp/repo"
	testReleaseBranchConstant         = "release/1.4.0"
	testDevelopBranchConstant         = "develop"
	testMasterBranchConstant          = "master"
	testVersionConstant               = "1.4.0"
	testRemoteNameConstant            = "origin"
	testRemoteURLConstant             = "git@github.com:owner/example.git"
	testCleanWorktreeCaseNameConstant = "clean"
	testDirtyWorktreeCaseNameConstant = "dirty"
	testWorktreeErrorCaseNameConstant = "error"
	testValidationCaseNameConstant    = "validation"
)

type stubGitExecutor struct {
	executeFunc     func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error)
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if executor.executeFunc != nil {
		return executor.executeFunc(executionContext, details)
	}
	return execshell.ExecutionResult{}, nil
}

func failingExecutor() *stubGitExecutor {
	return &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{}, execshell.CommandFailedError{
			Command: execshell.ShellCommand{Name: execshell.CommandGit},
			Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "fatal"},
		}
	}}
}

func TestNewRepositoryManagerValidation(testInstance *testing.T) {
	testInstance.Run(testValidationCaseNameConstant, func(testInstance *testing.T) {
		manager, creationError := gitrepo.NewRepositoryManager(nil)
		require.Error(testInstance, creationError)
		require.ErrorIs(testInstance, creationError, gitrepo.ErrGitExecutorNotConfigured)
		require.Nil(testInstance, manager)
	})
}

func TestCheckCleanWorktree(testInstance *testing.T) {
	testCases := []struct {
		name           string
		repositoryPath string
		executor       *stubGitExecutor
		expected       bool
		expectError    bool
		errorType      any
	}{
		{
			name:           testCleanWorktreeCaseNameConstant,
			repositoryPath: testRepositoryPathConstant,
			executor: &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: ""}, nil
			}},
			expected: true,
		},
		{
			name:           testDirtyWorktreeCaseNameConstant,
			repositoryPath: testRepositoryPathConstant,
			executor: &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: " M CHANGELOG.md\n?? notes.txt\n"}, nil
			}},
			expected: false,
		},
		{
			name:           testWorktreeErrorCaseNameConstant,
			repositoryPath: testRepositoryPathConstant,
			executor: &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{}, execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: execshell.CommandGit}, Cause: errors.New("failed")}
			}},
			expectError: true,
			errorType:   gitrepo.RepositoryOperationError{},
		},
		{
			name:        testValidationCaseNameConstant,
			executor:    &stubGitExecutor{},
			expectError: true,
			errorType:   gitrepo.InvalidRepositoryInputError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			clean, checkError := manager.CheckCleanWorktree(context.Background(), testCase.repositoryPath)
			if testCase.expectError {
				require.Error(testInstance, checkError)
				require.IsType(testInstance, testCase.errorType, checkError)
				return
			}

			require.NoError(testInstance, checkError)
			require.Equal(testInstance, testCase.expected, clean)
			require.Len(testInstance, testCase.executor.recordedDetails, 1)
			require.Equal(testInstance, []string{"status", "--porcelain"}, testCase.executor.recordedDetails[0].Arguments)
			require.Equal(testInstance, testRepositoryPathConstant, testCase.executor.recordedDetails[0].WorkingDirectory)
		})
	}
}

func TestMutatingOperationsIssueExactArguments(testInstance *testing.T) {
	testCases := []struct {
		name              string
		invoke            func(*gitrepo.RepositoryManager) error
		expectedArguments []string
	}{
		{
			name: "checkout_new_branch",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.CheckoutNewBranch(context.Background(), testRepositoryPathConstant, testReleaseBranchConstant, testDevelopBranchConstant)
			},
			expectedArguments: []string{"checkout", "-b", testReleaseBranchConstant, testDevelopBranchConstant},
		},
		{
			name: "checkout_branch",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.CheckoutBranch(context.Background(), testRepositoryPathConstant, testMasterBranchConstant)
			},
			expectedArguments: []string{"checkout", testMasterBranchConstant},
		},
		{
			name: "stash",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.Stash(context.Background(), testRepositoryPathConstant)
			},
			expectedArguments: []string{"stash"},
		},
		{
			name: "stash_apply",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.ApplyStash(context.Background(), testRepositoryPathConstant)
			},
			expectedArguments: []string{"stash", "apply"},
		},
		{
			name: "stage_file",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.StageFile(context.Background(), testRepositoryPathConstant, "CHANGELOG.md")
			},
			expectedArguments: []string{"add", "CHANGELOG.md"},
		},
		{
			name: "commit",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.Commit(context.Background(), testRepositoryPathConstant, "Finalize CHANGELOG.md for 1.4.0")
			},
			expectedArguments: []string{"commit", "-m", "Finalize CHANGELOG.md for 1.4.0"},
		},
		{
			name: "merge_no_fast_forward",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.MergeNoFastForward(context.Background(), testRepositoryPathConstant, testReleaseBranchConstant)
			},
			expectedArguments: []string{"merge", "--no-ff", "--no-edit", testReleaseBranchConstant},
		},
		{
			name: "tag",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.CreateTag(context.Background(), testRepositoryPathConstant, testVersionConstant)
			},
			expectedArguments: []string{"tag", testVersionConstant},
		},
		{
			name: "force_delete_branch",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.ForceDeleteBranch(context.Background(), testRepositoryPathConstant, testReleaseBranchConstant)
			},
			expectedArguments: []string{"branch", "-D", testReleaseBranchConstant},
		},
		{
			name: "push",
			invoke: func(manager *gitrepo.RepositoryManager) error {
				return manager.Push(context.Background(), testRepositoryPathConstant, testRemoteNameConstant, testMasterBranchConstant, testDevelopBranchConstant, testVersionConstant)
			},
			expectedArguments: []string{"push", testRemoteNameConstant, testMasterBranchConstant, testDevelopBranchConstant, testVersionConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{}
			manager, creationError := gitrepo.NewRepositoryManager(executor)
			require.NoError(testInstance, creationError)

			require.NoError(testInstance, testCase.invoke(manager))
			require.Len(testInstance, executor.recordedDetails, 1)
			require.Equal(testInstance, testCase.expectedArguments, executor.recordedDetails[0].Arguments)
			require.Equal(testInstance, testRepositoryPathConstant, executor.recordedDetails[0].WorkingDirectory)
		})
	}
}

func TestMutatingOperationsWrapFailures(testInstance *testing.T) {
	manager, creationError := gitrepo.NewRepositoryManager(failingExecutor())
	require.NoError(testInstance, creationError)

	mergeError := manager.MergeNoFastForward(context.Background(), testRepositoryPathConstant, testReleaseBranchConstant)
	require.Error(testInstance, mergeError)

	var operationError gitrepo.RepositoryOperationError
	require.ErrorAs(testInstance, mergeError, &operationError)
	require.Equal(testInstance, gitrepo.RepositoryOperationName("MergeNoFastForward"), operationError.Operation)

	var commandFailure execshell.CommandFailedError
	require.ErrorAs(testInstance, mergeError, &commandFailure)
	require.Equal(testInstance, 1, commandFailure.Result.ExitCode)
}

func TestMutatingOperationsValidateInputs(testInstance *testing.T) {
	executor := &stubGitExecutor{}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	validationErrors := []error{
		manager.CheckoutNewBranch(context.Background(), testRepositoryPathConstant, " ", testDevelopBranchConstant),
		manager.CheckoutNewBranch(context.Background(), testRepositoryPathConstant, testReleaseBranchConstant, ""),
		manager.StageFile(context.Background(), testRepositoryPathConstant, ""),
		manager.Commit(context.Background(), testRepositoryPathConstant, " "),
		manager.CreateTag(context.Background(), testRepositoryPathConstant, ""),
		manager.Push(context.Background(), testRepositoryPathConstant, testRemoteNameConstant),
		manager.Stash(context.Background(), ""),
	}
	for _, validationError := range validationErrors {
		require.IsType(testInstance, gitrepo.InvalidRepositoryInputError{}, validationError)
	}
	require.Empty(testInstance, executor.recordedDetails)
}

func TestPushDisablesTerminalPrompt(testInstance *testing.T) {
	executor := &stubGitExecutor{}
	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, manager.Push(context.Background(), testRepositoryPathConstant, testRemoteNameConstant, testVersionConstant))
	require.Equal(testInstance, "0", executor.recordedDetails[0].EnvironmentVariables["GIT_TERMINAL_PROMPT"])
}

func TestQueries(testInstance *testing.T) {
	testInstance.Run("current_branch", func(testInstance *testing.T) {
		executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
			return execshell.ExecutionResult{StandardOutput: testReleaseBranchConstant + "\n"}, nil
		}}
		manager, _ := gitrepo.NewRepositoryManager(executor)

		branchName, branchError := manager.GetCurrentBranch(context.Background(), testRepositoryPathConstant)
		require.NoError(testInstance, branchError)
		require.Equal(testInstance, testReleaseBranchConstant, branchName)
		require.Equal(testInstance, []string{"rev-parse", "--abbrev-ref", "HEAD"}, executor.recordedDetails[0].Arguments)
	})

	testInstance.Run("resolve_commit", func(testInstance *testing.T) {
		executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
			return execshell.ExecutionResult{StandardOutput: "0123abcd\n"}, nil
		}}
		manager, _ := gitrepo.NewRepositoryManager(executor)

		commitHash, resolveError := manager.ResolveCommit(context.Background(), testRepositoryPathConstant, testMasterBranchConstant)
		require.NoError(testInstance, resolveError)
		require.Equal(testInstance, "0123abcd", commitHash)
		require.Equal(testInstance, []string{"rev-parse", testMasterBranchConstant}, executor.recordedDetails[0].Arguments)
	})

	testInstance.Run("nearest_tag", func(testInstance *testing.T) {
		executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
			return execshell.ExecutionResult{StandardOutput: "2.3.1\n"}, nil
		}}
		manager, _ := gitrepo.NewRepositoryManager(executor)

		tagName, found, tagError := manager.NearestTag(context.Background(), testRepositoryPathConstant, testMasterBranchConstant)
		require.NoError(testInstance, tagError)
		require.True(testInstance, found)
		require.Equal(testInstance, "2.3.1", tagName)
		require.Equal(testInstance, []string{"describe", "--tags", "--abbrev=0", testMasterBranchConstant}, executor.recordedDetails[0].Arguments)
	})

	testInstance.Run("nearest_tag_missing", func(testInstance *testing.T) {
		manager, _ := gitrepo.NewRepositoryManager(failingExecutor())

		tagName, found, tagError := manager.NearestTag(context.Background(), testRepositoryPathConstant, testMasterBranchConstant)
		require.NoError(testInstance, tagError)
		require.False(testInstance, found)
		require.Empty(testInstance, tagName)
	})

	testInstance.Run("remote_url", func(testInstance *testing.T) {
		executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
			return execshell.ExecutionResult{StandardOutput: testRemoteURLConstant + "\n"}, nil
		}}
		manager, _ := gitrepo.NewRepositoryManager(executor)

		remoteURL, remoteError := manager.GetRemoteURL(context.Background(), testRepositoryPathConstant, testRemoteNameConstant)
		require.NoError(testInstance, remoteError)
		require.Equal(testInstance, testRemoteURLConstant, remoteURL)
	})
}

func TestHasTrackedChangesIgnoresUntrackedFiles(testInstance *testing.T) {
	testCases := []struct {
		name     string
		output   string
		expected bool
	}{
		{name: "modified", output: " M CHANGELOG.md\n", expected: true},
		{name: "staged", output: "A  notes.md\n", expected: true},
		{name: "nothing_tracked", output: "", expected: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: testCase.output}, nil
			}}
			manager, _ := gitrepo.NewRepositoryManager(executor)

			changed, checkError := manager.HasTrackedChanges(context.Background(), testRepositoryPathConstant)
			require.NoError(testInstance, checkError)
			require.Equal(testInstance, testCase.expected, changed)
			require.Equal(testInstance, []string{"status", "--porcelain", "--untracked-files=no"}, executor.recordedDetails[0].Arguments)
		})
	}
}

func TestBranchExists(testInstance *testing.T) {
	testInstance.Run("present", func(testInstance *testing.T) {
		executor := &stubGitExecutor{}
		manager, _ := gitrepo.NewRepositoryManager(executor)

		exists, existsError := manager.BranchExists(context.Background(), testRepositoryPathConstant, testMasterBranchConstant)
		require.NoError(testInstance, existsError)
		require.True(testInstance, exists)
		require.Equal(testInstance, []string{"rev-parse", "--verify", "--quiet", "refs/heads/" + testMasterBranchConstant}, executor.recordedDetails[0].Arguments)
	})

	testInstance.Run("absent", func(testInstance *testing.T) {
		manager, _ := gitrepo.NewRepositoryManager(failingExecutor())

		exists, existsError := manager.BranchExists(context.Background(), testRepositoryPathConstant, testMasterBranchConstant)
		require.NoError(testInstance, existsError)
		require.False(testInstance, exists)
	})

	testInstance.Run("runner_failure", func(testInstance *testing.T) {
		executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
			return execshell.ExecutionResult{}, execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: execshell.CommandGit}, Cause: errors.New("not found")}
		}}
		manager, _ := gitrepo.NewRepositoryManager(executor)

		_, existsError := manager.BranchExists(context.Background(), testRepositoryPathConstant, testMasterBranchConstant)
		require.IsType(testInstance, gitrepo.RepositoryOperationError{}, existsError)
	})

	testInstance.Run("validation", func(testInstance *testing.T) {
		executor := &stubGitExecutor{}
		manager, _ := gitrepo.NewRepositoryManager(executor)

		_, existsError := manager.BranchExists(context.Background(), testRepositoryPathConstant, " ")
		require.IsType(testInstance, gitrepo.InvalidRepositoryInputError{}, existsError)
		require.Empty(testInstance, executor.recordedDetails)
	})
}
