package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tyemirov/gitflow/internal/execshell"
)

const (
	gitStatusSubcommandConstant               = "status"
	gitStatusPorcelainFlagConstant            = "--porcelain"
	gitUntrackedFilesNoFlagConstant           = "--untracked-files=no"
	gitVerifyFlagConstant                     = "--verify"
	gitQuietFlagConstant                      = "--quiet"
	gitLocalBranchReferencePrefixConstant     = "refs/heads/"
	gitRevParseSubcommandConstant             = "rev-parse"
	gitAbbrevRefFlagConstant                  = "--abbrev-ref"
	gitHeadReferenceConstant                  = "HEAD"
	gitDescribeSubcommandConstant             = "describe"
	gitTagsFlagConstant                       = "--tags"
	gitAbbrevZeroFlagConstant                 = "--abbrev=0"
	gitCheckoutSubcommandConstant             = "checkout"
	gitNewBranchFlagConstant                  = "-b"
	gitStashSubcommandConstant                = "stash"
	gitStashApplySubcommandConstant           = "apply"
	gitAddSubcommandConstant                  = "add"
	gitCommitSubcommandConstant               = "commit"
	gitMessageFlagConstant                    = "-m"
	gitMergeSubcommandConstant                = "merge"
	gitNoFastForwardFlagConstant              = "--no-ff"
	gitNoEditFlagConstant                     = "--no-edit"
	gitTagSubcommandConstant                  = "tag"
	gitBranchSubcommandConstant               = "branch"
	gitForceDeleteFlagConstant                = "-D"
	gitPushSubcommandConstant                 = "push"
	gitRemoteSubcommandConstant               = "remote"
	gitRemoteGetURLSubcommandConstant         = "get-url"
	gitTerminalPromptVariableConstant         = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant         = "0"
	repositoryPathFieldNameConstant           = "repository_path"
	branchNameFieldNameConstant               = "branch_name"
	startPointFieldNameConstant               = "start_point"
	referenceFieldNameConstant                = "reference"
	filePathFieldNameConstant                 = "file_path"
	commitMessageFieldNameConstant            = "commit_message"
	tagNameFieldNameConstant                  = "tag_name"
	remoteNameFieldNameConstant               = "remote_name"
	pushReferencesFieldNameConstant           = "references"
	requiredValueMessageConstant              = "value required"
	executorNotConfiguredMessageConstant      = "git executor not configured"
	repositoryOperationErrorTemplateConstant  = "%s operation failed"
	repositoryOperationErrorWithCauseConstant = "%s operation failed: %s"
	invalidRepositoryInputTemplateConstant    = "%s: %s"
	cleanWorktreeOperationNameConstant        = RepositoryOperationName("CheckCleanWorktree")
	trackedChangesOperationNameConstant       = RepositoryOperationName("HasTrackedChanges")
	branchExistsOperationNameConstant         = RepositoryOperationName("BranchExists")
	currentBranchOperationNameConstant        = RepositoryOperationName("GetCurrentBranch")
	resolveCommitOperationNameConstant        = RepositoryOperationName("ResolveCommit")
	nearestTagOperationNameConstant           = RepositoryOperationName("NearestTag")
	getRemoteURLOperationNameConstant         = RepositoryOperationName("GetRemoteURL")
	checkoutBranchOperationNameConstant       = RepositoryOperationName("CheckoutBranch")
	checkoutNewBranchOperationNameConstant    = RepositoryOperationName("CheckoutNewBranch")
	stashOperationNameConstant                = RepositoryOperationName("Stash")
	applyStashOperationNameConstant           = RepositoryOperationName("ApplyStash")
	stageFileOperationNameConstant            = RepositoryOperationName("StageFile")
	commitOperationNameConstant               = RepositoryOperationName("Commit")
	mergeOperationNameConstant                = RepositoryOperationName("MergeNoFastForward")
	createTagOperationNameConstant            = RepositoryOperationName("CreateTag")
	forceDeleteBranchOperationNameConstant    = RepositoryOperationName("ForceDeleteBranch")
	pushOperationNameConstant                 = RepositoryOperationName("Push")
)

// GitCommandExecutor exposes the subset of execshell functionality required by RepositoryManager.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager coordinates Git operations through execshell. It is the only
// component that mutates repository state.
type RepositoryManager struct {
	executor GitCommandExecutor
}

var (
	// ErrGitExecutorNotConfigured indicates the RepositoryManager was constructed without a git executor.
	ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidRepositoryInputError indicates validation failures for repository operations.
type InvalidRepositoryInputError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (inputError InvalidRepositoryInputError) Error() string {
	return fmt.Sprintf(invalidRepositoryInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryOperationName captures descriptive names for repository operations.
type RepositoryOperationName string

// RepositoryOperationError wraps execution failures for git operations.
type RepositoryOperationError struct {
	Operation RepositoryOperationName
	Cause     error
}

// Error describes the repository operation failure.
func (operationError RepositoryOperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(repositoryOperationErrorTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(repositoryOperationErrorWithCauseConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError RepositoryOperationError) Unwrap() error {
	return operationError.Cause
}

// NewRepositoryManager constructs a RepositoryManager for the provided executor.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// CheckoutNewBranchArguments renders `checkout -b <branch> <start>`.
func CheckoutNewBranchArguments(branchName string, startPoint string) []string {
	return []string{gitCheckoutSubcommandConstant, gitNewBranchFlagConstant, branchName, startPoint}
}

// CheckoutArguments renders `checkout <branch>`.
func CheckoutArguments(branchName string) []string {
	return []string{gitCheckoutSubcommandConstant, branchName}
}

// StashArguments renders `stash`.
func StashArguments() []string {
	return []string{gitStashSubcommandConstant}
}

// ApplyStashArguments renders `stash apply`.
func ApplyStashArguments() []string {
	return []string{gitStashSubcommandConstant, gitStashApplySubcommandConstant}
}

// StageFileArguments renders `add <file>`.
func StageFileArguments(filePath string) []string {
	return []string{gitAddSubcommandConstant, filePath}
}

// CommitArguments renders `commit -m <message>`. The message is a single argument.
func CommitArguments(message string) []string {
	return []string{gitCommitSubcommandConstant, gitMessageFlagConstant, message}
}

// MergeNoFastForwardArguments renders `merge --no-ff --no-edit <branch>`.
func MergeNoFastForwardArguments(branchName string) []string {
	return []string{gitMergeSubcommandConstant, gitNoFastForwardFlagConstant, gitNoEditFlagConstant, branchName}
}

// CreateTagArguments renders `tag <name>`.
func CreateTagArguments(tagName string) []string {
	return []string{gitTagSubcommandConstant, tagName}
}

// ForceDeleteBranchArguments renders `branch -D <branch>`.
func ForceDeleteBranchArguments(branchName string) []string {
	return []string{gitBranchSubcommandConstant, gitForceDeleteFlagConstant, branchName}
}

// PushArguments renders `push <remote> <references...>`.
func PushArguments(remoteName string, references ...string) []string {
	arguments := []string{gitPushSubcommandConstant, remoteName}
	return append(arguments, references...)
}

// CheckCleanWorktree returns true when the repository has no staged, unstaged or untracked changes.
func (manager *RepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error) {
	status, statusError := manager.WorktreeStatus(executionContext, repositoryPath)
	if statusError != nil {
		return false, statusError
	}
	return len(status) == 0, nil
}

// WorktreeStatus returns the porcelain status entries for the repository.
func (manager *RepositoryManager) WorktreeStatus(executionContext context.Context, repositoryPath string) ([]string, error) {
	executionResult, executionError := manager.run(executionContext, cleanWorktreeOperationNameConstant, repositoryPath, nil,
		[]string{gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant})
	if executionError != nil {
		return nil, executionError
	}

	trimmedOutput := strings.TrimSpace(executionResult.StandardOutput)
	if len(trimmedOutput) == 0 {
		return nil, nil
	}

	lines := strings.Split(trimmedOutput, "\n")
	entries := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); len(trimmed) > 0 {
			entries = append(entries, trimmed)
		}
	}
	return entries, nil
}

// HasTrackedChanges reports staged or unstaged modifications of tracked files. Untracked
// files are ignored because `git stash` leaves them in place.
func (manager *RepositoryManager) HasTrackedChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	executionResult, executionError := manager.run(executionContext, trackedChangesOperationNameConstant, repositoryPath, nil,
		[]string{gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant, gitUntrackedFilesNoFlagConstant})
	if executionError != nil {
		return false, executionError
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// BranchExists reports whether a local branch with the name exists.
func (manager *RepositoryManager) BranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error) {
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return false, InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	_, executionError := manager.run(executionContext, branchExistsOperationNameConstant, repositoryPath, nil,
		[]string{gitRevParseSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, gitLocalBranchReferencePrefixConstant + trimmedBranch})
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) {
			return false, nil
		}
		return false, executionError
	}
	return true, nil
}

// GetCurrentBranch resolves the current branch name.
func (manager *RepositoryManager) GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.run(executionContext, currentBranchOperationNameConstant, repositoryPath, nil,
		[]string{gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// ResolveCommit returns the full commit hash the reference points at.
func (manager *RepositoryManager) ResolveCommit(executionContext context.Context, repositoryPath string, reference string) (string, error) {
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return "", InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	executionResult, executionError := manager.run(executionContext, resolveCommitOperationNameConstant, repositoryPath, nil,
		[]string{gitRevParseSubcommandConstant, trimmedReference})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// NearestTag returns the closest tag reachable from the reference. The boolean is false
// when git reports that no tag describes the reference.
func (manager *RepositoryManager) NearestTag(executionContext context.Context, repositoryPath string, reference string) (string, bool, error) {
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return "", false, InvalidRepositoryInputError{FieldName: referenceFieldNameConstant, Message: requiredValueMessageConstant}
	}

	executionResult, executionError := manager.run(executionContext, nearestTagOperationNameConstant, repositoryPath, nil,
		[]string{gitDescribeSubcommandConstant, gitTagsFlagConstant, gitAbbrevZeroFlagConstant, trimmedReference})
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) {
			return "", false, nil
		}
		return "", false, executionError
	}

	tagName := strings.TrimSpace(executionResult.StandardOutput)
	return tagName, len(tagName) > 0, nil
}

// GetRemoteURL returns the configured remote URL for the given remote name.
func (manager *RepositoryManager) GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return "", InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	executionResult, executionError := manager.run(executionContext, getRemoteURLOperationNameConstant, repositoryPath, nil,
		[]string{gitRemoteSubcommandConstant, gitRemoteGetURLSubcommandConstant, trimmedRemote})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// CheckoutBranch checks out an existing branch.
func (manager *RepositoryManager) CheckoutBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	_, executionError := manager.run(executionContext, checkoutBranchOperationNameConstant, repositoryPath, nil, CheckoutArguments(trimmedBranch))
	return executionError
}

// CheckoutNewBranch creates a branch at the start point and checks it out.
func (manager *RepositoryManager) CheckoutNewBranch(executionContext context.Context, repositoryPath string, branchName string, startPoint string) error {
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	trimmedStartPoint := strings.TrimSpace(startPoint)
	if len(trimmedStartPoint) == 0 {
		return InvalidRepositoryInputError{FieldName: startPointFieldNameConstant, Message: requiredValueMessageConstant}
	}
	_, executionError := manager.run(executionContext, checkoutNewBranchOperationNameConstant, repositoryPath, nil,
		CheckoutNewBranchArguments(trimmedBranch, trimmedStartPoint))
	return executionError
}

// Stash saves uncommitted changes onto the stash.
func (manager *RepositoryManager) Stash(executionContext context.Context, repositoryPath string) error {
	_, executionError := manager.run(executionContext, stashOperationNameConstant, repositoryPath, nil, StashArguments())
	return executionError
}

// ApplyStash re-applies the most recent stash entry without dropping it.
func (manager *RepositoryManager) ApplyStash(executionContext context.Context, repositoryPath string) error {
	_, executionError := manager.run(executionContext, applyStashOperationNameConstant, repositoryPath, nil, ApplyStashArguments())
	return executionError
}

// StageFile adds a single file to the index.
func (manager *RepositoryManager) StageFile(executionContext context.Context, repositoryPath string, filePath string) error {
	trimmedFilePath := strings.TrimSpace(filePath)
	if len(trimmedFilePath) == 0 {
		return InvalidRepositoryInputError{FieldName: filePathFieldNameConstant, Message: requiredValueMessageConstant}
	}
	_, executionError := manager.run(executionContext, stageFileOperationNameConstant, repositoryPath, nil, StageFileArguments(trimmedFilePath))
	return executionError
}

// Commit records the index with the provided message.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, message string) error {
	if len(strings.TrimSpace(message)) == 0 {
		return InvalidRepositoryInputError{FieldName: commitMessageFieldNameConstant, Message: requiredValueMessageConstant}
	}
	_, executionError := manager.run(executionContext, commitOperationNameConstant, repositoryPath, nil, CommitArguments(message))
	return executionError
}

// MergeNoFastForward merges the branch into the current branch, always creating a merge commit.
func (manager *RepositoryManager) MergeNoFastForward(executionContext context.Context, repositoryPath string, branchName string) error {
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	_, executionError := manager.run(executionContext, mergeOperationNameConstant, repositoryPath, nil, MergeNoFastForwardArguments(trimmedBranch))
	return executionError
}

// CreateTag creates a lightweight tag at HEAD.
func (manager *RepositoryManager) CreateTag(executionContext context.Context, repositoryPath string, tagName string) error {
	trimmedTag := strings.TrimSpace(tagName)
	if len(trimmedTag) == 0 {
		return InvalidRepositoryInputError{FieldName: tagNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	_, executionError := manager.run(executionContext, createTagOperationNameConstant, repositoryPath, nil, CreateTagArguments(trimmedTag))
	return executionError
}

// ForceDeleteBranch removes a local branch regardless of its merge status.
func (manager *RepositoryManager) ForceDeleteBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	_, executionError := manager.run(executionContext, forceDeleteBranchOperationNameConstant, repositoryPath, nil, ForceDeleteBranchArguments(trimmedBranch))
	return executionError
}

// Push publishes the references to the remote in a single invocation.
func (manager *RepositoryManager) Push(executionContext context.Context, repositoryPath string, remoteName string, references ...string) error {
	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(references) == 0 {
		return InvalidRepositoryInputError{FieldName: pushReferencesFieldNameConstant, Message: requiredValueMessageConstant}
	}
	environment := map[string]string{gitTerminalPromptVariableConstant: gitTerminalPromptDisabledConstant}
	_, executionError := manager.run(executionContext, pushOperationNameConstant, repositoryPath, environment, PushArguments(trimmedRemote, references...))
	return executionError
}

func (manager *RepositoryManager) run(
	executionContext context.Context,
	operation RepositoryOperationName,
	repositoryPath string,
	environment map[string]string,
	arguments []string,
) (execshell.ExecutionResult, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return execshell.ExecutionResult{}, InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     trimmedPath,
		EnvironmentVariables: environment,
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return execshell.ExecutionResult{}, RepositoryOperationError{Operation: operation, Cause: executionError}
	}
	return executionResult, nil
}
