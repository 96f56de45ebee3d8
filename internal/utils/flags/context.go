package flags

import "github.com/spf13/cobra"

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Print the planned steps without changing the repository"
	// AutoStashFlagName exposes the shared auto-stash flag name.
	AutoStashFlagName = "auto-stash"
	// AutoStashFlagUsage describes the shared auto-stash flag purpose.
	AutoStashFlagUsage = "Stash uncommitted changes while creating a workflow branch"
	// RemoteFlagName exposes the shared remote flag name.
	RemoteFlagName = "remote"
	// RemoteFlagUsage describes the shared remote flag purpose.
	RemoteFlagUsage = "Remote name to target"
	// RepositoryFlagName exposes the shared repository path flag name.
	RepositoryFlagName = "repository"
	// RepositoryFlagUsage describes the shared repository path flag purpose.
	RepositoryFlagUsage = "Path to the git repository"
	// DefaultRepositoryPath is used when no repository path is given.
	DefaultRepositoryPath = "."
)

// RepositoryFlagDefinition captures configuration for the repository path flag.
type RepositoryFlagDefinition struct {
	Name       string
	Usage      string
	Enabled    bool
	Persistent bool
}

// RepositoryFlagValues stores the repository path flag value.
type RepositoryFlagValues struct {
	RepositoryPath string
}

// BindRepositoryFlag attaches the repository path flag to the provided command.
func BindRepositoryFlag(command *cobra.Command, defaults RepositoryFlagValues, definition RepositoryFlagDefinition) *RepositoryFlagValues {
	values := defaults
	if len(values.RepositoryPath) == 0 {
		values.RepositoryPath = DefaultRepositoryPath
	}
	if command == nil || !definition.Enabled {
		return &values
	}

	flagName := definition.Name
	if len(flagName) == 0 {
		flagName = RepositoryFlagName
	}
	flagUsage := definition.Usage
	if len(flagUsage) == 0 {
		flagUsage = RepositoryFlagUsage
	}

	targetSet := command.PersistentFlags()
	if !definition.Persistent {
		targetSet = command.Flags()
	}
	if targetSet.Lookup(flagName) == nil {
		targetSet.StringVar(&values.RepositoryPath, flagName, values.RepositoryPath, flagUsage)
	}
	return &values
}

// EnsureRemoteFlag guarantees the shared remote flag is available on the command.
func EnsureRemoteFlag(command *cobra.Command, defaultValue string, usage string) {
	if command == nil {
		return
	}

	persistentSet := command.PersistentFlags()
	if persistentSet.Lookup(RemoteFlagName) == nil {
		persistentSet.String(RemoteFlagName, defaultValue, usage)
	}

	if command.Flags().Lookup(RemoteFlagName) == nil {
		if remoteFlag := persistentSet.Lookup(RemoteFlagName); remoteFlag != nil {
			command.Flags().AddFlag(remoteFlag)
		}
	}
}
