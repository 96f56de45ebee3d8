package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/cmd/cli/flow"
	publishcmd "github.com/tyemirov/gitflow/cmd/cli/publish"
	"github.com/tyemirov/gitflow/internal/publish"
)

const (
	flowOperationNameConstant           = "flow"
	publishOperationNameConstant        = "publish"
	statusCommandAliasConstant          = "st"
	operationDecodeErrorMessageConstant = "unable to decode operation configuration"
	operationNameLogFieldConstant       = "operation"
	commandBuildErrorMessageConstant    = "unable to build command"
)

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	loggerProvider := func() *zap.Logger {
		return application.logger
	}
	environmentProvider := func() string {
		return application.environment
	}

	flowBuilder := flow.CommandBuilder{
		LoggerProvider:               loggerProvider,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        application.flowConfiguration,
		EnvironmentProvider:          environmentProvider,
		PublishConfigurationProvider: application.publishConfiguration,
	}
	publishBuilder := publishcmd.CommandBuilder{
		LoggerProvider:               loggerProvider,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        application.flowConfiguration,
		EnvironmentProvider:          environmentProvider,
		PublishConfigurationProvider: application.publishConfiguration,
	}

	builders := []func() (*cobra.Command, error){
		flowBuilder.BuildRelease,
		flowBuilder.BuildHotfix,
		flowBuilder.BuildStatus,
		publishBuilder.BuildPublish,
		publishBuilder.BuildPush,
	}
	for _, build := range builders {
		command, buildError := build()
		if buildError != nil {
			application.logger.Warn(commandBuildErrorMessageConstant, zap.Error(buildError))
			continue
		}
		if command.Name() == "status" {
			command.Aliases = appendUnique(command.Aliases, statusCommandAliasConstant)
		}
		cobraCommand.AddCommand(command)
	}
}

func (application *Application) flowConfiguration() flow.CommandConfiguration {
	configuration := flow.DefaultCommandConfiguration()
	application.decodeOperationConfiguration(flowOperationNameConstant, &configuration)
	return configuration.Sanitize()
}

func (application *Application) publishConfiguration() publish.Configuration {
	configuration := publish.Configuration{}
	application.decodeOperationConfiguration(publishOperationNameConstant, &configuration)
	return configuration.Sanitize()
}

func (application *Application) decodeOperationConfiguration(operationName string, target any) {
	if decodeError := application.operationConfigurations.decode(operationName, target); decodeError != nil {
		if application.logger == nil {
			return
		}
		application.logger.Warn(
			operationDecodeErrorMessageConstant,
			zap.String(operationNameLogFieldConstant, operationName),
			zap.Error(decodeError),
		)
	}
}

func appendUnique(values []string, candidates ...string) []string {
	result := values
	for _, candidate := range candidates {
		trimmedCandidate := strings.TrimSpace(candidate)
		if len(trimmedCandidate) == 0 {
			continue
		}
		duplicate := false
		for _, existing := range result {
			if existing == trimmedCandidate {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, trimmedCandidate)
		}
	}
	return result
}
