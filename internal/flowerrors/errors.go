package flowerrors

import (
	stdErrors "errors"
	"fmt"

	"github.com/tyemirov/gitflow/internal/execshell"
)

// Operation identifies the logical operation producing a contextual error.
type Operation string

const (
	// OperationRelease denotes the release branch workflow.
	OperationRelease Operation = "workflow.release"
	// OperationHotfix denotes the hotfix branch workflow.
	OperationHotfix Operation = "workflow.hotfix"
	// OperationPublishRelease denotes hosted release publishing.
	OperationPublishRelease Operation = "publish.release"
	// OperationPushPackages denotes package uploads to a package source.
	OperationPushPackages Operation = "publish.packages"
)

const (
	preconditionErrorTemplateConstant          = "precondition failed: %s"
	externalToolErrorTemplateConstant          = "%s step failed: %s exited with code %d"
	externalToolExecutionErrorTemplateConstant = "%s step failed: %v"
	configurationErrorTemplateConstant         = "configuration error: %s: %s"
	unknownCommandPlaceholderConstant          = "git"
)

// Sentinel describes a stable error code shared across workflows.
type Sentinel string

// Error returns the sentinel code string.
func (sentinel Sentinel) Error() string {
	return string(sentinel)
}

// Code exposes the sentinel code string.
func (sentinel Sentinel) Code() string {
	return string(sentinel)
}

var (
	// ErrDirtyWorktree indicates a dirty working copy prevented the finish path.
	ErrDirtyWorktree Sentinel = "dirty_worktree"
	// ErrWorkflowConflict indicates the opposite workflow's branch is checked out.
	ErrWorkflowConflict Sentinel = "workflow_conflict"
	// ErrReviewDeclined indicates the operator rejected the finalized changelog.
	ErrReviewDeclined Sentinel = "review_declined"
	// ErrUserConfirmationFailed indicates the confirmation prompt could not be read.
	ErrUserConfirmationFailed Sentinel = "user_confirmation_failed"
	// ErrChangelogFinalizeFailed indicates the changelog could not be finalized.
	ErrChangelogFinalizeFailed Sentinel = "changelog_finalize_failed"
	// ErrVersionResolutionFailed indicates the version provider failed.
	ErrVersionResolutionFailed Sentinel = "version_resolution_failed"
	// ErrTokenMissing indicates an access token was required but unavailable.
	ErrTokenMissing Sentinel = "token_missing"
	// ErrPublishNotAllowed indicates publishing was requested from a branch role that may not publish.
	ErrPublishNotAllowed Sentinel = "publish_not_allowed"
	// ErrRemoteUnsupported indicates the remote URL could not be mapped to a hosting provider.
	ErrRemoteUnsupported Sentinel = "remote_unsupported"
	// ErrReleaseCreateFailed indicates the hosting provider rejected the release.
	ErrReleaseCreateFailed Sentinel = "release_create_failed"
	// ErrAssetUploadFailed indicates an artifact upload failed.
	ErrAssetUploadFailed Sentinel = "asset_upload_failed"
	// ErrPackagePushFailed indicates a package upload to the package source failed.
	ErrPackagePushFailed Sentinel = "package_push_failed"
	// ErrUnknownEnvironment indicates the configured environment is not recognized.
	ErrUnknownEnvironment Sentinel = "unknown_environment"
)

// OperationError annotates an error with the workflow operation and its subject.
type OperationError struct {
	operation Operation
	subject   string
	err       error
	message   string
}

// Error implements the error interface.
func (operationError OperationError) Error() string {
	if len(operationError.message) > 0 {
		if len(operationError.subject) == 0 {
			return fmt.Sprintf("%s: %s", operationError.operation, operationError.message)
		}
		return fmt.Sprintf("%s[%s]: %s", operationError.operation, operationError.subject, operationError.message)
	}
	if len(operationError.subject) == 0 {
		return fmt.Sprintf("%s: %v", operationError.operation, operationError.err)
	}
	return fmt.Sprintf("%s[%s]: %v", operationError.operation, operationError.subject, operationError.err)
}

// Unwrap exposes the underlying error chain.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the originating operation identifier.
func (operationError OperationError) Operation() Operation {
	return operationError.operation
}

// Subject returns the domain subject (branch, tag or artifact) related to the error.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code surfaces the sentinel code of the wrapped error when present.
func (operationError OperationError) Code() string {
	if sentinel, found := findSentinel(operationError.err); found {
		return sentinel.Code()
	}
	return ""
}

// Wrap constructs an OperationError combining the provided metadata with the base sentinel.
func Wrap(operation Operation, subject string, sentinel Sentinel, detail error) error {
	if len(sentinel) == 0 {
		return OperationError{operation: operation, subject: subject, err: detail}
	}
	baseError := error(sentinel)
	if detail != nil {
		baseError = fmt.Errorf("%w: %w", sentinel, detail)
	}
	return OperationError{operation: operation, subject: subject, err: baseError}
}

// WrapMessage constructs an OperationError combining the provided metadata with a formatted message.
func WrapMessage(operation Operation, subject string, sentinel Sentinel, message string) error {
	if len(message) == 0 {
		return Wrap(operation, subject, sentinel, nil)
	}
	return OperationError{operation: operation, subject: subject, err: fmt.Errorf("%w: %s", sentinel, message), message: message}
}

// PreconditionError reports a violated workflow precondition. Nothing was executed.
type PreconditionError struct {
	Sentinel Sentinel
	Reason   string
}

// Error implements the error interface.
func (preconditionError PreconditionError) Error() string {
	return fmt.Sprintf(preconditionErrorTemplateConstant, preconditionError.Reason)
}

// Unwrap exposes the sentinel code.
func (preconditionError PreconditionError) Unwrap() error {
	if len(preconditionError.Sentinel) == 0 {
		return nil
	}
	return preconditionError.Sentinel
}

// ExternalToolError reports a subprocess that failed while running a workflow step.
// The remaining steps were not attempted.
type ExternalToolError struct {
	Step     string
	Command  string
	ExitCode int
	Cause    error
}

// NewExternalToolError captures the command line and exit status carried by the cause.
func NewExternalToolError(step string, cause error) ExternalToolError {
	toolError := ExternalToolError{Step: step, Command: unknownCommandPlaceholderConstant, ExitCode: -1, Cause: cause}

	var commandFailure execshell.CommandFailedError
	if stdErrors.As(cause, &commandFailure) {
		toolError.Command = commandFailure.CommandLine()
		toolError.ExitCode = commandFailure.Result.ExitCode
		return toolError
	}

	var executionFailure execshell.CommandExecutionError
	if stdErrors.As(cause, &executionFailure) {
		toolError.Command = string(executionFailure.Command.Name)
	}
	return toolError
}

// Error implements the error interface.
func (toolError ExternalToolError) Error() string {
	if toolError.ExitCode < 0 {
		return fmt.Sprintf(externalToolExecutionErrorTemplateConstant, toolError.Step, toolError.Cause)
	}
	return fmt.Sprintf(externalToolErrorTemplateConstant, toolError.Step, toolError.Command, toolError.ExitCode)
}

// Unwrap exposes the underlying command failure.
func (toolError ExternalToolError) Unwrap() error {
	return toolError.Cause
}

// ConfigurationError reports a missing or invalid setting detected before any step ran.
type ConfigurationError struct {
	Setting  string
	Reason   string
	Sentinel Sentinel
}

// Error implements the error interface.
func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Setting, configurationError.Reason)
}

// Unwrap exposes the sentinel code when present.
func (configurationError ConfigurationError) Unwrap() error {
	if len(configurationError.Sentinel) == 0 {
		return nil
	}
	return configurationError.Sentinel
}

func findSentinel(err error) (Sentinel, bool) {
	if err == nil {
		return "", false
	}
	var sentinel Sentinel
	if stdErrors.As(err, &sentinel) {
		return sentinel, true
	}
	return "", false
}
