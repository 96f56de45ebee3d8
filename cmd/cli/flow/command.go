package flow

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/internal/changelog"
	"github.com/tyemirov/gitflow/internal/gitflow"
	"github.com/tyemirov/gitflow/internal/gitrepo"
	"github.com/tyemirov/gitflow/internal/publish"
	"github.com/tyemirov/gitflow/internal/utils"
	flagutils "github.com/tyemirov/gitflow/internal/utils/flags"
)

const (
	releaseCommandUseNameConstant          = "release"
	releaseCommandShortDescriptionConstant = "Advance the release workflow by one step"
	releaseCommandLongDescriptionConstant  = "release inspects the checked-out branch and performs the next release step: it creates release/<version> from develop, finalizes the changelog on the release branch, or merges, tags and pushes a release whose changelog is finalized. Run it again to continue."
	releaseCommandExampleConstant          = "gitflow release --dry-run\ngitflow release --publish"
	hotfixCommandUseNameConstant           = "hotfix"
	hotfixCommandShortDescriptionConstant  = "Advance the hotfix workflow by one step"
	hotfixCommandLongDescriptionConstant   = "hotfix inspects the checked-out branch and performs the next hotfix step: it creates hotfix/<version> from master with the patch version bumped, finalizes the changelog on the hotfix branch, or merges, tags and pushes a hotfix whose changelog is finalized. Run it again to continue."
	hotfixCommandExampleConstant           = "gitflow hotfix\ngitflow hotfix --auto-stash=false"
	statusCommandUseNameConstant           = "status"
	statusCommandShortDescriptionConstant  = "Show the state of the release and hotfix workflows"
	statusCommandLongDescriptionConstant   = "status derives the position of both workflows from the checked-out branch, the working copy and the changelog without changing anything."
	publishFlagUsageConstant               = "Publish the hosted release and push packages once the workflow finishes"
	transitionTemplateConstant             = "%s: %s -> %s (%s)\n"
	plannedStepTemplateConstant            = "  %d. %s\n"
	completedStepTemplateConstant          = "  done: %s\n"
	environmentLogFieldConstant            = "environment"
	workflowLogFieldConstant               = "workflow"
	publishRequestedMessageConstant        = "Publishing requested"
)

// PublishFlagName names the toggle that publishes a finished workflow.
const PublishFlagName = "publish"

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the release, hotfix and status commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	EnvironmentProvider          func() string
	PublishConfigurationProvider func() publish.Configuration
	GitExecutor                  gitrepo.GitCommandExecutor
	FileSystem                   changelog.FileSystem
	Clock                        func() time.Time
	Publish                      PublishDependencies
}

// BuildRelease constructs the release command.
func (builder *CommandBuilder) BuildRelease() (*cobra.Command, error) {
	return builder.buildWorkflowCommand(
		gitflow.WorkflowRelease,
		releaseCommandUseNameConstant,
		releaseCommandShortDescriptionConstant,
		releaseCommandLongDescriptionConstant,
		releaseCommandExampleConstant,
	), nil
}

// BuildHotfix constructs the hotfix command.
func (builder *CommandBuilder) BuildHotfix() (*cobra.Command, error) {
	return builder.buildWorkflowCommand(
		gitflow.WorkflowHotfix,
		hotfixCommandUseNameConstant,
		hotfixCommandShortDescriptionConstant,
		hotfixCommandLongDescriptionConstant,
		hotfixCommandExampleConstant,
	), nil
}

// BuildStatus constructs the status command.
func (builder *CommandBuilder) BuildStatus() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   statusCommandUseNameConstant,
		Short: statusCommandShortDescriptionConstant,
		Long:  statusCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runStatus,
	}
	BindRepositoryFlags(command, builder.resolveConfiguration())
	return command, nil
}

func (builder *CommandBuilder) buildWorkflowCommand(workflow gitflow.Workflow, use string, shortDescription string, longDescription string, example string) *cobra.Command {
	configuration := builder.resolveConfiguration()
	command := &cobra.Command{
		Use:     use,
		Short:   shortDescription,
		Long:    longDescription,
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.runWorkflow(command, workflow)
		},
	}

	flagutils.BindExecutionFlags(
		command,
		flagutils.ExecutionDefaults{AutoStash: configuration.AutoStash},
		flagutils.ExecutionFlagDefinitions{
			DryRun:    flagutils.ExecutionFlagDefinition{Name: flagutils.DryRunFlagName, Usage: flagutils.DryRunFlagUsage, Enabled: true},
			AutoStash: flagutils.ExecutionFlagDefinition{Name: flagutils.AutoStashFlagName, Usage: flagutils.AutoStashFlagUsage, Enabled: true},
		},
	)
	flagutils.AddToggleFlag(command.Flags(), nil, PublishFlagName, "", false, publishFlagUsageConstant)
	BindRepositoryFlags(command, configuration)
	return command
}

// BindRepositoryFlags attaches the repository path and remote flags used by every workflow command.
func BindRepositoryFlags(command *cobra.Command, configuration CommandConfiguration) {
	flagutils.BindRepositoryFlag(
		command,
		flagutils.RepositoryFlagValues{RepositoryPath: configuration.RepositoryPath},
		flagutils.RepositoryFlagDefinition{Enabled: true},
	)
	flagutils.EnsureRemoteFlag(command, configuration.RemoteName, flagutils.RemoteFlagUsage)
}

func (builder *CommandBuilder) runWorkflow(command *cobra.Command, workflow gitflow.Workflow) error {
	configuration := ResolveCommandConfiguration(command, builder.resolveConfiguration())
	executionFlags, _ := flagutils.ResolveExecutionFlags(command)
	dryRun := executionFlags.DryRun

	logger := builder.resolveLogger()
	humanReadableLogging := builder.humanReadableLogging()
	environment := builder.resolveEnvironment(command)

	runtime, runtimeError := NewRuntime(builder.runtimeDependencies(command, logger, humanReadableLogging), configuration.EngineConfiguration(environment))
	if runtimeError != nil {
		return runtimeError
	}

	var session *publishSession
	publishRequested, _, publishFlagError := flagutils.BoolFlag(command, PublishFlagName)
	if publishFlagError == nil && publishRequested && !dryRun {
		preparedSession, sessionError := builder.preparePublishSession(command, runtime, configuration, logger, humanReadableLogging)
		if sessionError != nil {
			return sessionError
		}
		session = preparedSession
		logger.Debug(publishRequestedMessageConstant,
			zap.String(workflowLogFieldConstant, workflow.String()),
			zap.String(environmentLogFieldConstant, environment),
		)
	}

	result, runError := runtime.Engine.Run(command.Context(), workflow, gitflow.RunOptions{DryRun: dryRun})
	output := command.OutOrStdout()
	if runError != nil {
		writeCompletedSteps(output, result)
		return runError
	}
	writeResult(output, result)

	if session != nil && result.Handoff != nil {
		return session.publish(command.Context(), *result.Handoff)
	}
	return nil
}

func (builder *CommandBuilder) runStatus(command *cobra.Command, arguments []string) error {
	configuration := ResolveCommandConfiguration(command, builder.resolveConfiguration())
	logger := builder.resolveLogger()
	humanReadableLogging := builder.humanReadableLogging()

	runtime, runtimeError := NewRuntime(builder.runtimeDependencies(command, logger, humanReadableLogging), configuration.EngineConfiguration(builder.resolveEnvironment(command)))
	if runtimeError != nil {
		return runtimeError
	}

	reports, statusError := runtime.Engine.Status(command.Context())
	if statusError != nil {
		return statusError
	}
	_, writeError := io.WriteString(command.OutOrStdout(), RenderStatusTable(reports))
	return writeError
}

func (builder *CommandBuilder) preparePublishSession(command *cobra.Command, runtime Runtime, configuration CommandConfiguration, logger *zap.Logger, humanReadableLogging bool) (*publishSession, error) {
	service, serviceError := NewPublishService(runtime, builder.Publish, command.OutOrStdout(), logger, humanReadableLogging)
	if serviceError != nil {
		return nil, serviceError
	}

	publishConfiguration := builder.resolvePublishConfiguration()
	token, tokenError := service.ResolveToken(command.Context(), publishConfiguration)
	if tokenError != nil {
		return nil, tokenError
	}

	return &publishSession{
		service:        service,
		configuration:  publishConfiguration,
		repositoryPath: configuration.RepositoryPath,
		remoteName:     configuration.RemoteName,
		token:          token,
		output:         command.OutOrStdout(),
	}, nil
}

func (builder *CommandBuilder) runtimeDependencies(command *cobra.Command, logger *zap.Logger, humanReadableLogging bool) RuntimeDependencies {
	return RuntimeDependencies{
		GitExecutor:          builder.GitExecutor,
		FileSystem:           builder.FileSystem,
		Clock:                builder.Clock,
		Input:                command.InOrStdin(),
		Output:               command.OutOrStdout(),
		Logger:               logger,
		HumanReadableLogging: humanReadableLogging,
	}
}

// ResolveCommandConfiguration applies the repository, remote and auto-stash flags to the configured values.
func ResolveCommandConfiguration(command *cobra.Command, configuration CommandConfiguration) CommandConfiguration {
	resolved := configuration.Sanitize()

	executionFlags, executionFlagsAvailable := flagutils.ResolveExecutionFlags(command)
	if executionFlagsAvailable && executionFlags.AutoStashSet {
		resolved.AutoStash = executionFlags.AutoStash
	}
	if executionFlagsAvailable && executionFlags.RemoteSet && len(executionFlags.Remote) > 0 {
		resolved.RemoteName = executionFlags.Remote
	}

	if repositoryPath, repositoryChanged, repositoryError := flagutils.StringFlag(command, flagutils.RepositoryFlagName); repositoryError == nil && repositoryChanged {
		if trimmedPath := strings.TrimSpace(repositoryPath); len(trimmedPath) > 0 {
			resolved.RepositoryPath = trimmedPath
		}
	} else if command != nil {
		if contextPath, available := utils.NewCommandContextAccessor().RepositoryPath(command.Context()); available {
			resolved.RepositoryPath = contextPath
		}
	}
	return resolved
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolvePublishConfiguration() publish.Configuration {
	if builder.PublishConfigurationProvider == nil {
		return publish.Configuration{}.Sanitize()
	}
	return builder.PublishConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveEnvironment(command *cobra.Command) string {
	if builder.EnvironmentProvider != nil {
		return builder.EnvironmentProvider()
	}
	if command != nil {
		if environment, available := utils.NewCommandContextAccessor().Environment(command.Context()); available {
			return environment
		}
	}
	return ""
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func writeResult(output io.Writer, result gitflow.Result) {
	plan := result.Plan
	fmt.Fprintf(output, transitionTemplateConstant, plan.Workflow, plan.State, plan.TargetState, plan.TargetBranch)
	if !result.DryRun {
		return
	}
	for stepIndex, step := range plan.Steps {
		fmt.Fprintf(output, plannedStepTemplateConstant, stepIndex+1, step)
	}
}

func writeCompletedSteps(output io.Writer, result gitflow.Result) {
	for _, stepName := range result.CompletedSteps {
		fmt.Fprintf(output, completedStepTemplateConstant, stepName)
	}
}
