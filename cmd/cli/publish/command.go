package publish

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/cmd/cli/flow"
	"github.com/tyemirov/gitflow/internal/changelog"
	"github.com/tyemirov/gitflow/internal/gitrepo"
	publishing "github.com/tyemirov/gitflow/internal/publish"
	"github.com/tyemirov/gitflow/internal/utils"
	flagutils "github.com/tyemirov/gitflow/internal/utils/flags"
)

const (
	publishCommandUseNameConstant          = "publish"
	publishCommandShortDescriptionConstant = "Publish a hosted release for the checked-out branch"
	publishCommandLongDescriptionConstant  = "publish creates a GitHub or GitLab release for the version of the checked-out release, hotfix or master branch, using the matching changelog section as release notes and uploading the configured artifacts. With --dry-run the release notes are rendered instead."
	publishCommandExampleConstant          = "gitflow publish --dry-run\ngitflow publish --remote upstream"
	pushCommandUseNameConstant             = "push"
	pushCommandShortDescriptionConstant    = "Push built packages to the configured package source"
	pushCommandLongDescriptionConstant     = "push uploads the *.nupkg artifacts matched by the publish artifact patterns to the configured package source. Symbol packages are skipped. Without a package source nothing is pushed."
	notesWordWrapConstant                  = 100
	publishedReleaseTemplate               = "Published %s: %s\n"
	plannedReleaseTemplate                 = "Would publish %s to %s (%s)\n"
	plannedArtifactTemplate                = "  artifact: %s\n"
	pushedPackagesTemplate                 = "Pushed %d package(s) to %s\n"
	plannedPackagesTemplate                = "Would push %d package(s) to %s\n"
	skippedPackagesMessage                 = "No package source configured; nothing to push\n"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the publish and push commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() flow.CommandConfiguration
	EnvironmentProvider          func() string
	PublishConfigurationProvider func() publishing.Configuration
	GitExecutor                  gitrepo.GitCommandExecutor
	FileSystem                   changelog.FileSystem
	Clock                        func() time.Time
	Publish                      flow.PublishDependencies
}

// BuildPublish constructs the publish command.
func (builder *CommandBuilder) BuildPublish() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     publishCommandUseNameConstant,
		Short:   publishCommandShortDescriptionConstant,
		Long:    publishCommandLongDescriptionConstant,
		Example: publishCommandExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.runPublish,
	}
	builder.bindFlags(command)
	return command, nil
}

// BuildPush constructs the push command.
func (builder *CommandBuilder) BuildPush() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   pushCommandUseNameConstant,
		Short: pushCommandShortDescriptionConstant,
		Long:  pushCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runPush,
	}
	builder.bindFlags(command)
	return command, nil
}

func (builder *CommandBuilder) bindFlags(command *cobra.Command) {
	flagutils.BindExecutionFlags(
		command,
		flagutils.ExecutionDefaults{},
		flagutils.ExecutionFlagDefinitions{
			DryRun: flagutils.ExecutionFlagDefinition{Name: flagutils.DryRunFlagName, Usage: flagutils.DryRunFlagUsage, Enabled: true},
		},
	)
	flow.BindRepositoryFlags(command, builder.resolveConfiguration())
}

func (builder *CommandBuilder) runPublish(command *cobra.Command, arguments []string) error {
	configuration := flow.ResolveCommandConfiguration(command, builder.resolveConfiguration())
	executionFlags, _ := flagutils.ResolveExecutionFlags(command)
	dryRun := executionFlags.DryRun

	publishDependencies := builder.Publish
	if dryRun && publishDependencies.NotesRenderer == nil {
		notesRenderer, rendererError := publishing.NewMarkdownNotesRenderer(notesWordWrapConstant)
		if rendererError != nil {
			return rendererError
		}
		publishDependencies.NotesRenderer = notesRenderer
	}

	runtime, service, setupError := builder.prepare(command, configuration, publishDependencies)
	if setupError != nil {
		return setupError
	}
	publishConfiguration := builder.resolvePublishConfiguration()

	token := ""
	if !dryRun {
		resolvedToken, tokenError := service.ResolveToken(command.Context(), publishConfiguration)
		if tokenError != nil {
			return tokenError
		}
		token = resolvedToken
	}

	handoff, handoffError := runtime.Engine.CurrentHandoff(command.Context())
	if handoffError != nil {
		return handoffError
	}

	outcome, releaseError := service.PublishRelease(command.Context(), publishConfiguration, publishing.ReleaseOptions{
		RepositoryPath: configuration.RepositoryPath,
		RemoteName:     configuration.RemoteName,
		Handoff:        handoff,
		Token:          token,
		DryRun:         dryRun,
	})
	if releaseError != nil {
		return releaseError
	}

	output := command.OutOrStdout()
	if dryRun {
		fmt.Fprintf(output, plannedReleaseTemplate, outcome.Tag, outcome.Repository.FullName(), outcome.Provider)
		for _, artifact := range outcome.Artifacts {
			fmt.Fprintf(output, plannedArtifactTemplate, artifact)
		}
		return nil
	}
	fmt.Fprintf(output, publishedReleaseTemplate, outcome.Tag, outcome.URL)
	return nil
}

func (builder *CommandBuilder) runPush(command *cobra.Command, arguments []string) error {
	configuration := flow.ResolveCommandConfiguration(command, builder.resolveConfiguration())
	executionFlags, _ := flagutils.ResolveExecutionFlags(command)
	dryRun := executionFlags.DryRun
	output := command.OutOrStdout()

	publishConfiguration := builder.resolvePublishConfiguration()
	if len(publishConfiguration.PackageSource) == 0 {
		_, writeError := fmt.Fprint(output, skippedPackagesMessage)
		return writeError
	}

	_, service, setupError := builder.prepare(command, configuration, builder.Publish)
	if setupError != nil {
		return setupError
	}

	token := ""
	if !dryRun {
		resolvedToken, tokenError := service.ResolveToken(command.Context(), publishConfiguration)
		if tokenError != nil {
			return tokenError
		}
		token = resolvedToken
	}

	result, pushError := service.PushPackages(command.Context(), publishConfiguration, publishing.PackageOptions{
		RepositoryPath: configuration.RepositoryPath,
		Token:          token,
		DryRun:         dryRun,
	})
	if pushError != nil {
		return pushError
	}

	if dryRun {
		fmt.Fprintf(output, plannedPackagesTemplate, len(plannedPackages(configuration.RepositoryPath, publishConfiguration.Artifacts)), publishConfiguration.PackageSource)
		return nil
	}
	fmt.Fprintf(output, pushedPackagesTemplate, len(result.Pushed), publishConfiguration.PackageSource)
	return nil
}

func (builder *CommandBuilder) prepare(command *cobra.Command, configuration flow.CommandConfiguration, publishDependencies flow.PublishDependencies) (flow.Runtime, *publishing.Service, error) {
	logger := builder.resolveLogger()
	humanReadableLogging := builder.humanReadableLogging()

	runtime, runtimeError := flow.NewRuntime(flow.RuntimeDependencies{
		GitExecutor:          builder.GitExecutor,
		FileSystem:           builder.FileSystem,
		Clock:                builder.Clock,
		Input:                command.InOrStdin(),
		Output:               command.OutOrStdout(),
		Logger:               logger,
		HumanReadableLogging: humanReadableLogging,
	}, configuration.EngineConfiguration(builder.resolveEnvironment(command)))
	if runtimeError != nil {
		return flow.Runtime{}, nil, runtimeError
	}

	service, serviceError := flow.NewPublishService(runtime, publishDependencies, command.OutOrStdout(), logger, humanReadableLogging)
	if serviceError != nil {
		return flow.Runtime{}, nil, serviceError
	}
	return runtime, service, nil
}

// plannedPackages lists the packages a push would upload. Resolution errors were already reported by the service.
func plannedPackages(repositoryPath string, patterns []string) []string {
	artifacts, resolveError := publishing.ResolveArtifacts(repositoryPath, patterns)
	if resolveError != nil {
		return nil
	}
	return publishing.SelectPackages(artifacts)
}

func (builder *CommandBuilder) resolveConfiguration() flow.CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return flow.DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolvePublishConfiguration() publishing.Configuration {
	if builder.PublishConfigurationProvider == nil {
		return publishing.Configuration{}.Sanitize()
	}
	return builder.PublishConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveEnvironment(command *cobra.Command) string {
	if builder.EnvironmentProvider != nil {
		return builder.EnvironmentProvider()
	}
	if environment, available := utils.NewCommandContextAccessor().Environment(command.Context()); available {
		return environment
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
