package flow

import (
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/internal/branches"
	"github.com/tyemirov/gitflow/internal/changelog"
	"github.com/tyemirov/gitflow/internal/dependencies"
	"github.com/tyemirov/gitflow/internal/gitflow"
	"github.com/tyemirov/gitflow/internal/gitrepo"
	"github.com/tyemirov/gitflow/internal/prompt"
	"github.com/tyemirov/gitflow/internal/version"
)

// RuntimeDependencies lists the collaborators used to assemble a workflow engine.
type RuntimeDependencies struct {
	GitExecutor          gitrepo.GitCommandExecutor
	FileSystem           changelog.FileSystem
	Clock                func() time.Time
	Input                io.Reader
	Output               io.Writer
	Logger               *zap.Logger
	HumanReadableLogging bool
}

// Runtime couples the engine with the repository manager it drives.
type Runtime struct {
	Engine     *gitflow.Engine
	Repository *gitrepo.RepositoryManager
}

// NewRuntime wires the git repository manager, version provider, changelog gate and reviewer into an engine.
func NewRuntime(runtimeDependencies RuntimeDependencies, configuration gitflow.Configuration) (Runtime, error) {
	logger := runtimeDependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gitExecutor, executorError := dependencies.ResolveGitExecutor(runtimeDependencies.GitExecutor, logger, runtimeDependencies.HumanReadableLogging)
	if executorError != nil {
		return Runtime{}, executorError
	}

	repositoryManager, managerError := dependencies.ResolveGitRepositoryManager(nil, gitExecutor)
	if managerError != nil {
		return Runtime{}, managerError
	}

	classifier := branches.NewClassifier(configuration.Branches.Sanitize())
	versionProvider, providerError := version.NewTagVersionProvider(repositoryManager, classifier, logger)
	if providerError != nil {
		return Runtime{}, providerError
	}

	output := runtimeDependencies.Output
	if output == nil {
		output = io.Discard
	}
	reviewer, reviewerError := prompt.NewReviewPresenter(prompt.NewIOConfirmationPrompter(runtimeDependencies.Input, output), output)
	if reviewerError != nil {
		return Runtime{}, reviewerError
	}

	engine, engineError := gitflow.NewEngine(gitflow.Dependencies{
		Repository:           repositoryManager,
		Versions:             versionProvider,
		Changelog:            changelog.NewGate(dependencies.ResolveFileSystem(runtimeDependencies.FileSystem), runtimeDependencies.Clock, logger),
		Reviewer:             reviewer,
		Logger:               logger,
		HumanReadableLogging: runtimeDependencies.HumanReadableLogging,
	}, configuration)
	if engineError != nil {
		return Runtime{}, engineError
	}

	return Runtime{Engine: engine, Repository: repositoryManager}, nil
}
