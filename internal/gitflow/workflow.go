package gitflow

import (
	"fmt"
	"strings"

	"github.com/tyemirov/gitflow/internal/branches"
	"github.com/tyemirov/gitflow/internal/flowerrors"
)

// Workflow selects the release or hotfix transition set.
type Workflow int

const (
	// WorkflowRelease cuts a release branch from develop.
	WorkflowRelease Workflow = iota
	// WorkflowHotfix cuts a hotfix branch from master.
	WorkflowHotfix
)

// String returns the command name of the workflow.
func (workflow Workflow) String() string {
	if workflow == WorkflowHotfix {
		return "hotfix"
	}
	return "release"
}

func (workflow Workflow) ownRole() branches.RoleKind {
	if workflow == WorkflowHotfix {
		return branches.RoleHotfix
	}
	return branches.RoleRelease
}

func (workflow Workflow) conflictingRole() branches.RoleKind {
	if workflow == WorkflowHotfix {
		return branches.RoleRelease
	}
	return branches.RoleHotfix
}

func (workflow Workflow) operation() flowerrors.Operation {
	if workflow == WorkflowHotfix {
		return flowerrors.OperationHotfix
	}
	return flowerrors.OperationRelease
}

// State is the position of a workflow, derived from the repository on every invocation.
type State int

const (
	// StateNotStarted means the workflow branch does not exist or is not checked out.
	StateNotStarted State = iota
	// StateBranchCreated means the workflow branch is checked out and its changelog is not finalized.
	StateBranchCreated
	// StateChangelogFinalized means the changelog carries a header for the branch version.
	StateChangelogFinalized
	// StateFinished means the branch was merged, tagged, deleted and pushed.
	StateFinished
)

var stateNames = map[State]string{
	StateNotStarted:         "not_started",
	StateBranchCreated:      "branch_created",
	StateChangelogFinalized: "changelog_finalized",
	StateFinished:           "finished",
}

// String returns the snake_case state name.
func (state State) String() string {
	if name, known := stateNames[state]; known {
		return name
	}
	return fmt.Sprintf("state(%d)", int(state))
}

// Environment names the deployment environment a run is configured for.
type Environment string

const (
	// EnvironmentDevelopment is used on developer machines.
	EnvironmentDevelopment Environment = "development"
	// EnvironmentTest is used by automated test runs.
	EnvironmentTest Environment = "test"
	// EnvironmentProduction is used by release pipelines.
	EnvironmentProduction Environment = "production"
)

const environmentSettingConstant = "common.environment"

// ParseEnvironment maps a configured value onto an Environment. Empty selects development.
func ParseEnvironment(rawValue string) (Environment, error) {
	normalized := Environment(strings.ToLower(strings.TrimSpace(rawValue)))
	switch normalized {
	case "":
		return EnvironmentDevelopment, nil
	case EnvironmentDevelopment, EnvironmentTest, EnvironmentProduction:
		return normalized, nil
	default:
		return "", flowerrors.ConfigurationError{
			Setting: environmentSettingConstant,
			Reason:  fmt.Sprintf("unknown environment %q (expected development, test or production)", rawValue),
		}
	}
}
