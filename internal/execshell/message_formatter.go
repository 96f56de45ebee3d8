package execshell

import (
	"fmt"
	"strings"
)

const (
	startedMessageTemplateConstant              = "Running %s"
	completedMessageTemplateConstant            = "Completed %s"
	failedWithExitCodeTemplateConstant          = "%s failed with exit code %d"
	failedWithExitCodeAndDetailTemplateConstant = "%s failed with exit code %d: %s"
	executionFailureTemplateConstant            = "%s failed: %v"
	workingDirectorySuffixTemplateConstant      = "%s (in %s)"
)

// CommandMessageFormatter renders human-readable command lifecycle messages.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return fmt.Sprintf(startedMessageTemplateConstant, formatter.describe(command))
}

// BuildSuccessMessage describes a command that exited with status zero.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return fmt.Sprintf(completedMessageTemplateConstant, formatter.describe(command))
}

// BuildFailureMessage describes a command that exited with a non-zero status.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	detail := summarizeFailureDetail(result)
	if len(detail) == 0 {
		return fmt.Sprintf(failedWithExitCodeTemplateConstant, formatter.describe(command), result.ExitCode)
	}
	return fmt.Sprintf(failedWithExitCodeAndDetailTemplateConstant, formatter.describe(command), result.ExitCode, detail)
}

// BuildExecutionFailureMessage describes a command the runner could not start or finish.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, cause error) string {
	return fmt.Sprintf(executionFailureTemplateConstant, formatter.describe(command), cause)
}

func (formatter CommandMessageFormatter) describe(command ShellCommand) string {
	commandLine := renderCommandLine(command)
	workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(workingDirectory) == 0 {
		return commandLine
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, commandLine, workingDirectory)
}
