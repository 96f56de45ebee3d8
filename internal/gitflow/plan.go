package gitflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tyemirov/gitflow/internal/branches"
	"github.com/tyemirov/gitflow/internal/flowerrors"
	"github.com/tyemirov/gitflow/internal/version"
)

const (
	inspectBranchStepConstant      = "inspect-branch"
	inspectWorktreeStepConstant    = "inspect-worktree"
	inspectMasterStepConstant      = "inspect-master"
	conflictReasonTemplateConstant = "%s cannot run while %s branch %s is checked out"
	dirtyReasonTemplateConstant    = "working copy of %s has uncommitted changes"
	gitCommandPrefixConstant       = "git "
)

// PlannedStep is one entry of an execution plan. Arguments holds the git arguments of
// repository steps and is nil for in-process steps such as the changelog review.
type PlannedStep struct {
	Name        string
	Arguments   []string
	Description string
	execute     func(executionContext context.Context, execution *planExecution) error
}

// String renders the git command line or the description of an in-process step.
func (step PlannedStep) String() string {
	if len(step.Arguments) == 0 {
		return step.Description
	}
	return gitCommandPrefixConstant + strings.Join(step.Arguments, " ")
}

// Plan is the derived state of a workflow and the ordered steps leading to its next state.
type Plan struct {
	Workflow     Workflow
	Environment  Environment
	Branch       string
	Role         branches.BranchRole
	Clean        bool
	State        State
	TargetState  State
	TargetBranch string
	// MasterBranch is the local master branch among the configured name and its aliases.
	MasterBranch string
	Version      version.SemanticVersion
	Steps        []PlannedStep
}

// StepNames lists the planned step names in order.
func (plan Plan) StepNames() []string {
	names := make([]string, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		names = append(names, step.Name)
	}
	return names
}

// Plan derives the current state of the workflow and the steps of its next transition.
// Nothing is modified. On a violated precondition the partially derived plan is returned with the error.
func (engine *Engine) Plan(executionContext context.Context, workflow Workflow) (Plan, error) {
	repositoryPath := engine.configuration.RepositoryPath

	currentBranch, branchError := engine.repository.GetCurrentBranch(executionContext, repositoryPath)
	if branchError != nil {
		return Plan{}, flowerrors.NewExternalToolError(inspectBranchStepConstant, branchError)
	}
	role := engine.classifier.Classify(currentBranch)
	plan := Plan{
		Workflow:    workflow,
		Environment: engine.configuration.Environment,
		Branch:      currentBranch,
		Role:        role,
	}

	if role.Kind == workflow.conflictingRole() {
		return plan, flowerrors.PreconditionError{
			Sentinel: flowerrors.ErrWorkflowConflict,
			Reason:   fmt.Sprintf(conflictReasonTemplateConstant, workflow, role.Kind, currentBranch),
		}
	}

	clean, cleanError := engine.repository.CheckCleanWorktree(executionContext, repositoryPath)
	if cleanError != nil {
		return Plan{}, flowerrors.NewExternalToolError(inspectWorktreeStepConstant, cleanError)
	}
	plan.Clean = clean

	if role.Kind != workflow.ownRole() {
		return engine.planBranchCreation(executionContext, plan)
	}

	if !clean {
		return plan, flowerrors.PreconditionError{
			Sentinel: flowerrors.ErrDirtyWorktree,
			Reason:   fmt.Sprintf(dirtyReasonTemplateConstant, currentBranch),
		}
	}

	branchVersion, versionError := engine.versions.ResolveVersion(executionContext, repositoryPath, currentBranch)
	if versionError != nil {
		return Plan{}, flowerrors.Wrap(workflow.operation(), currentBranch, flowerrors.ErrVersionResolutionFailed, versionError)
	}
	plan.Version = branchVersion
	plan.TargetBranch = currentBranch

	finalized, finalizedError := engine.changelog.IsFinalized(engine.changelogFilePath(), branchVersion.MajorMinorPatch())
	if finalizedError != nil {
		return Plan{}, flowerrors.Wrap(workflow.operation(), currentBranch, flowerrors.ErrChangelogFinalizeFailed, finalizedError)
	}

	if !finalized {
		plan.State = StateBranchCreated
		plan.TargetState = StateChangelogFinalized
		plan.Steps = engine.changelogSteps(plan)
		return plan, nil
	}

	masterBranch, masterError := engine.resolveMasterBranch(executionContext)
	if masterError != nil {
		return Plan{}, masterError
	}
	plan.MasterBranch = masterBranch

	plan.State = StateChangelogFinalized
	plan.TargetState = StateFinished
	plan.Steps = engine.finishSteps(masterBranch, plan.TargetBranch, branchVersion.MajorMinorPatch())
	return plan, nil
}

// resolveMasterBranch returns the first of the master name and its aliases that exists
// locally. The configured name is used when none exists so the failure names it.
func (engine *Engine) resolveMasterBranch(executionContext context.Context) (string, error) {
	names := engine.classifier.Names()
	candidates := append([]string{names.Master}, names.MasterAliases...)
	for _, candidate := range candidates {
		exists, existsError := engine.repository.BranchExists(executionContext, engine.configuration.RepositoryPath, candidate)
		if existsError != nil {
			return "", flowerrors.NewExternalToolError(inspectMasterStepConstant, existsError)
		}
		if exists {
			return candidate, nil
		}
	}
	return names.Master, nil
}

func (engine *Engine) planBranchCreation(executionContext context.Context, plan Plan) (Plan, error) {
	versionSource := plan.Branch
	startPoint := engine.classifier.Names().Develop
	if plan.Workflow == WorkflowHotfix {
		masterBranch, masterError := engine.resolveMasterBranch(executionContext)
		if masterError != nil {
			return Plan{}, masterError
		}
		plan.MasterBranch = masterBranch
		versionSource = masterBranch
		startPoint = masterBranch
	}

	resolvedVersion, versionError := engine.versions.ResolveVersion(executionContext, engine.configuration.RepositoryPath, versionSource)
	if versionError != nil {
		return Plan{}, flowerrors.Wrap(plan.Workflow.operation(), versionSource, flowerrors.ErrVersionResolutionFailed, versionError)
	}

	if plan.Workflow == WorkflowHotfix {
		plan.Version = resolvedVersion.NextPatch()
		plan.TargetBranch = engine.classifier.HotfixBranchName(plan.Version.MajorMinorPatch())
	} else {
		plan.Version = resolvedVersion
		plan.TargetBranch = engine.classifier.ReleaseBranchName(plan.Version.MajorMinorPatch())
	}

	plan.State = StateNotStarted
	plan.TargetState = StateBranchCreated

	stashChanges := false
	if !plan.Clean && engine.configuration.AutoStash {
		trackedChanges, trackedError := engine.repository.HasTrackedChanges(executionContext, engine.configuration.RepositoryPath)
		if trackedError != nil {
			return Plan{}, flowerrors.NewExternalToolError(inspectWorktreeStepConstant, trackedError)
		}
		stashChanges = trackedChanges
	}
	if stashChanges {
		plan.Steps = append(plan.Steps, stashStep())
	}
	plan.Steps = append(plan.Steps, createBranchStep(plan.TargetBranch, startPoint))
	if stashChanges {
		plan.Steps = append(plan.Steps, applyStashStep())
	}
	return plan, nil
}

// StatusReport describes one workflow without modifying anything.
type StatusReport struct {
	Plan Plan
	// Blocked holds the precondition preventing the workflow from advancing.
	Blocked error
}

// Status derives the state of both workflows.
func (engine *Engine) Status(executionContext context.Context) ([]StatusReport, error) {
	reports := make([]StatusReport, 0, 2)
	for _, workflow := range []Workflow{WorkflowRelease, WorkflowHotfix} {
		plan, planError := engine.Plan(executionContext, workflow)
		if planError != nil {
			var preconditionError flowerrors.PreconditionError
			if !errors.As(planError, &preconditionError) {
				return nil, planError
			}
			reports = append(reports, StatusReport{Plan: plan, Blocked: planError})
			continue
		}
		reports = append(reports, StatusReport{Plan: plan})
	}
	return reports, nil
}
