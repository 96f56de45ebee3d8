package gitflow

import (
	"context"

	"github.com/tyemirov/gitflow/internal/gitrepo"
)

// finishSteps merges the workflow branch into master and develop, tags master, deletes the
// branch and pushes. The order is fixed; the push only runs when every prior step succeeded.
func (engine *Engine) finishSteps(masterBranch string, sourceBranch string, tagName string) []PlannedStep {
	developBranch := engine.classifier.Names().Develop
	remoteName := engine.configuration.RemoteName

	return []PlannedStep{
		gitStep(StepCheckoutMaster, gitrepo.CheckoutArguments(masterBranch), func(executionContext context.Context, repository Repository, repositoryPath string) error {
			return repository.CheckoutBranch(executionContext, repositoryPath, masterBranch)
		}),
		gitStep(StepMergeIntoMaster, gitrepo.MergeNoFastForwardArguments(sourceBranch), func(executionContext context.Context, repository Repository, repositoryPath string) error {
			return repository.MergeNoFastForward(executionContext, repositoryPath, sourceBranch)
		}),
		gitStep(StepTag, gitrepo.CreateTagArguments(tagName), func(executionContext context.Context, repository Repository, repositoryPath string) error {
			return repository.CreateTag(executionContext, repositoryPath, tagName)
		}),
		gitStep(StepCheckoutDevelop, gitrepo.CheckoutArguments(developBranch), func(executionContext context.Context, repository Repository, repositoryPath string) error {
			return repository.CheckoutBranch(executionContext, repositoryPath, developBranch)
		}),
		gitStep(StepMergeIntoDevelop, gitrepo.MergeNoFastForwardArguments(sourceBranch), func(executionContext context.Context, repository Repository, repositoryPath string) error {
			return repository.MergeNoFastForward(executionContext, repositoryPath, sourceBranch)
		}),
		gitStep(StepDeleteBranch, gitrepo.ForceDeleteBranchArguments(sourceBranch), func(executionContext context.Context, repository Repository, repositoryPath string) error {
			return repository.ForceDeleteBranch(executionContext, repositoryPath, sourceBranch)
		}),
		gitStep(StepPush, gitrepo.PushArguments(remoteName, masterBranch, developBranch, tagName), func(executionContext context.Context, repository Repository, repositoryPath string) error {
			return repository.Push(executionContext, repositoryPath, remoteName, masterBranch, developBranch, tagName)
		}),
	}
}
