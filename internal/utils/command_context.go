package utils

import (
	"context"
	"strings"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	repositoryPathContextKeyConstant        = commandContextKey("repositoryPath")
	environmentContextKeyConstant           = commandContextKey("environment")
	executionFlagsContextKeyConstant        = commandContextKey("executionFlags")
	logLevelContextKeyConstant              = commandContextKey("logLevel")
)

type commandContextKey string

// ExecutionFlags captures standardized execution modifiers derived from CLI flags.
type ExecutionFlags struct {
	DryRun       bool
	DryRunSet    bool
	AutoStash    bool
	AutoStashSet bool
	Remote       string
	RemoteSet    bool
}

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// WithRepositoryPath attaches the repository the command operates on when one is given.
func (accessor CommandContextAccessor) WithRepositoryPath(parentContext context.Context, repositoryPath string) context.Context {
	return withTrimmedValue(parentContext, repositoryPathContextKeyConstant, repositoryPath)
}

// WithEnvironment attaches the configured deployment environment.
func (accessor CommandContextAccessor) WithEnvironment(parentContext context.Context, environment string) context.Context {
	return withTrimmedValue(parentContext, environmentContextKeyConstant, strings.ToLower(environment))
}

// WithExecutionFlags attaches execution flag values to the provided context.
func (accessor CommandContextAccessor) WithExecutionFlags(parentContext context.Context, flags ExecutionFlags) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, executionFlagsContextKeyConstant, flags)
}

// WithLogLevel attaches the effective log level to the provided context.
func (accessor CommandContextAccessor) WithLogLevel(parentContext context.Context, logLevel string) context.Context {
	return withTrimmedValue(parentContext, logLevelContextKeyConstant, logLevel)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, configurationFilePathContextKeyConstant)
}

// RepositoryPath extracts the repository path from the provided context.
func (accessor CommandContextAccessor) RepositoryPath(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, repositoryPathContextKeyConstant)
}

// Environment extracts the deployment environment from the provided context.
func (accessor CommandContextAccessor) Environment(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, environmentContextKeyConstant)
}

// ExecutionFlags extracts execution flag values from the provided context.
func (accessor CommandContextAccessor) ExecutionFlags(executionContext context.Context) (ExecutionFlags, bool) {
	if executionContext == nil {
		return ExecutionFlags{}, false
	}
	value, valueAvailable := executionContext.Value(executionFlagsContextKeyConstant).(ExecutionFlags)
	if !valueAvailable {
		return ExecutionFlags{}, false
	}
	return value, true
}

// LogLevel extracts the effective log level from the provided context.
func (accessor CommandContextAccessor) LogLevel(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, logLevelContextKeyConstant)
}

func withTrimmedValue(parentContext context.Context, key commandContextKey, value string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return parentContext
	}
	return context.WithValue(parentContext, key, trimmedValue)
}

func stringValue(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, valueAvailable := executionContext.Value(key).(string)
	if !valueAvailable {
		return "", false
	}
	return value, true
}
