package flow

import (
	"strings"

	"github.com/tyemirov/gitflow/internal/branches"
	"github.com/tyemirov/gitflow/internal/gitflow"
)

const (
	defaultRepositoryPathConstant = "."
	defaultRemoteNameConstant     = "origin"
	defaultChangelogPathConstant  = "CHANGELOG.md"
)

// CommandConfiguration captures the configuration values shared by the release, hotfix and status commands.
type CommandConfiguration struct {
	RepositoryPath string               `mapstructure:"repository"`
	RemoteName     string               `mapstructure:"remote"`
	ChangelogPath  string               `mapstructure:"changelog_path"`
	AutoStash      bool                 `mapstructure:"auto_stash"`
	Branches       branches.BranchNames `mapstructure:"branches"`
}

// DefaultCommandConfiguration returns the baseline configuration for the workflow commands.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		RepositoryPath: defaultRepositoryPathConstant,
		RemoteName:     defaultRemoteNameConstant,
		ChangelogPath:  defaultChangelogPathConstant,
		AutoStash:      true,
		Branches:       branches.DefaultBranchNames(),
	}
}

// Sanitize trims textual values and substitutes defaults for empty ones.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.RepositoryPath = strings.TrimSpace(configuration.RepositoryPath)
	if len(sanitized.RepositoryPath) == 0 {
		sanitized.RepositoryPath = defaultRepositoryPathConstant
	}
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = defaultRemoteNameConstant
	}
	sanitized.ChangelogPath = strings.TrimSpace(configuration.ChangelogPath)
	if len(sanitized.ChangelogPath) == 0 {
		sanitized.ChangelogPath = defaultChangelogPathConstant
	}
	sanitized.Branches = configuration.Branches.Sanitize()
	return sanitized
}

// EngineConfiguration converts the command configuration into engine settings for the environment.
func (configuration CommandConfiguration) EngineConfiguration(environment string) gitflow.Configuration {
	sanitized := configuration.Sanitize()
	return gitflow.Configuration{
		RepositoryPath: sanitized.RepositoryPath,
		Branches:       sanitized.Branches,
		ChangelogPath:  sanitized.ChangelogPath,
		RemoteName:     sanitized.RemoteName,
		AutoStash:      sanitized.AutoStash,
		Environment:    gitflow.Environment(environment),
	}
}
