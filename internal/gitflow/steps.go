package gitflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyemirov/gitflow/internal/changelog"
	"github.com/tyemirov/gitflow/internal/flowerrors"
	"github.com/tyemirov/gitflow/internal/gitrepo"
)

// Step names as reported in plans and results.
const (
	StepStash             = "stash"
	StepCreateBranch      = "create-branch"
	StepApplyStash        = "apply-stash"
	StepFinalizeChangelog = "finalize-changelog"
	StepReviewChangelog   = "review-changelog"
	StepStageChangelog    = "stage-changelog"
	StepCommitChangelog   = "commit-changelog"
	StepCheckoutMaster    = "checkout-master"
	StepMergeIntoMaster   = "merge-into-master"
	StepTag               = "tag"
	StepCheckoutDevelop   = "checkout-develop"
	StepMergeIntoDevelop  = "merge-into-develop"
	StepDeleteBranch      = "delete-branch"
	StepPush              = "push"
)

const (
	finalizeDescriptionTemplateConstant = "finalize %s for %s"
	reviewDescriptionTemplateConstant   = "review %s"
	commitMessageTemplateConstant       = "Finalize %s for %s"
)

// planExecution carries state between the steps of one plan.
type planExecution struct {
	engine       *Engine
	plan         Plan
	finalization changelog.Finalization
}

type repositoryAction func(executionContext context.Context, repository Repository, repositoryPath string) error

// gitStep builds a repository step. Any failure is reported as an ExternalToolError for the step.
func gitStep(name string, arguments []string, action repositoryAction) PlannedStep {
	return PlannedStep{
		Name:      name,
		Arguments: arguments,
		execute: func(executionContext context.Context, execution *planExecution) error {
			actionError := action(executionContext, execution.engine.repository, execution.engine.configuration.RepositoryPath)
			if actionError != nil {
				return flowerrors.NewExternalToolError(name, actionError)
			}
			return nil
		},
	}
}

func stashStep() PlannedStep {
	return gitStep(StepStash, gitrepo.StashArguments(), func(executionContext context.Context, repository Repository, repositoryPath string) error {
		return repository.Stash(executionContext, repositoryPath)
	})
}

func applyStashStep() PlannedStep {
	return gitStep(StepApplyStash, gitrepo.ApplyStashArguments(), func(executionContext context.Context, repository Repository, repositoryPath string) error {
		return repository.ApplyStash(executionContext, repositoryPath)
	})
}

func createBranchStep(branchName string, startPoint string) PlannedStep {
	return gitStep(StepCreateBranch, gitrepo.CheckoutNewBranchArguments(branchName, startPoint), func(executionContext context.Context, repository Repository, repositoryPath string) error {
		return repository.CheckoutNewBranch(executionContext, repositoryPath, branchName, startPoint)
	})
}

// changelogSteps finalizes the changelog, asks for review and commits it.
func (engine *Engine) changelogSteps(plan Plan) []PlannedStep {
	changelogPath := engine.configuration.ChangelogPath
	versionLabel := plan.Version.MajorMinorPatch()
	operation := plan.Workflow.operation()

	finalize := PlannedStep{
		Name:        StepFinalizeChangelog,
		Description: fmt.Sprintf(finalizeDescriptionTemplateConstant, changelogPath, versionLabel),
		execute: func(executionContext context.Context, execution *planExecution) error {
			finalization, finalizeError := engine.changelog.Finalize(engine.changelogFilePath(), versionLabel)
			if finalizeError != nil {
				return flowerrors.Wrap(operation, plan.TargetBranch, flowerrors.ErrChangelogFinalizeFailed, finalizeError)
			}
			execution.finalization = finalization
			return nil
		},
	}

	review := PlannedStep{
		Name:        StepReviewChangelog,
		Description: fmt.Sprintf(reviewDescriptionTemplateConstant, changelogPath),
		execute: func(executionContext context.Context, execution *planExecution) error {
			accepted, reviewError := engine.reviewer.Review(executionContext, execution.finalization)
			if reviewError == nil && accepted {
				return nil
			}

			var outcome error
			if reviewError != nil {
				outcome = flowerrors.Wrap(operation, plan.TargetBranch, flowerrors.ErrUserConfirmationFailed, reviewError)
			} else {
				outcome = flowerrors.Wrap(operation, plan.TargetBranch, flowerrors.ErrReviewDeclined, nil)
			}
			if restoreError := engine.changelog.Restore(execution.finalization); restoreError != nil {
				return errors.Join(outcome, restoreError)
			}
			return outcome
		},
	}

	commitMessage := fmt.Sprintf(commitMessageTemplateConstant, changelog.Finalization{Path: changelogPath}.Basename(), versionLabel)

	return []PlannedStep{
		finalize,
		review,
		gitStep(StepStageChangelog, gitrepo.StageFileArguments(changelogPath), func(executionContext context.Context, repository Repository, repositoryPath string) error {
			return repository.StageFile(executionContext, repositoryPath, changelogPath)
		}),
		gitStep(StepCommitChangelog, gitrepo.CommitArguments(commitMessage), func(executionContext context.Context, repository Repository, repositoryPath string) error {
			return repository.Commit(executionContext, repositoryPath, commitMessage)
		}),
	}
}
