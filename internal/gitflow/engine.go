package gitflow

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/internal/branches"
	"github.com/tyemirov/gitflow/internal/changelog"
	"github.com/tyemirov/gitflow/internal/flowerrors"
	"github.com/tyemirov/gitflow/internal/version"
)

const (
	defaultRemoteNameConstant    = "origin"
	defaultChangelogPathConstant = "CHANGELOG.md"
	defaultRepositoryPath        = "."
)

var (
	// ErrRepositoryNotConfigured indicates the engine was constructed without a repository manager.
	ErrRepositoryNotConfigured = errors.New("gitflow repository manager not configured")
	// ErrVersionProviderNotConfigured indicates the engine was constructed without a version provider.
	ErrVersionProviderNotConfigured = errors.New("gitflow version provider not configured")
	// ErrChangelogGateNotConfigured indicates the engine was constructed without a changelog gate.
	ErrChangelogGateNotConfigured = errors.New("gitflow changelog gate not configured")
	// ErrReviewerNotConfigured indicates the engine was constructed without a changelog reviewer.
	ErrReviewerNotConfigured = errors.New("gitflow changelog reviewer not configured")
)

// Repository is the sole writer of repository state. Every mutating method maps to one git command.
type Repository interface {
	GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error)
	HasTrackedChanges(executionContext context.Context, repositoryPath string) (bool, error)
	BranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error)
	CheckoutBranch(executionContext context.Context, repositoryPath string, branchName string) error
	CheckoutNewBranch(executionContext context.Context, repositoryPath string, branchName string, startPoint string) error
	Stash(executionContext context.Context, repositoryPath string) error
	ApplyStash(executionContext context.Context, repositoryPath string) error
	StageFile(executionContext context.Context, repositoryPath string, filePath string) error
	Commit(executionContext context.Context, repositoryPath string, message string) error
	MergeNoFastForward(executionContext context.Context, repositoryPath string, branchName string) error
	CreateTag(executionContext context.Context, repositoryPath string, tagName string) error
	ForceDeleteBranch(executionContext context.Context, repositoryPath string, branchName string) error
	Push(executionContext context.Context, repositoryPath string, remoteName string, references ...string) error
}

// VersionProvider resolves the semantic version of a branch.
type VersionProvider interface {
	ResolveVersion(executionContext context.Context, repositoryPath string, branchName string) (version.SemanticVersion, error)
}

// ChangelogGate finalizes and inspects the changelog.
type ChangelogGate interface {
	IsFinalized(path string, version string) (bool, error)
	Finalize(path string, version string) (changelog.Finalization, error)
	Restore(finalization changelog.Finalization) error
	ExtractNotes(path string, version string) (string, error)
}

// ChangelogReviewer asks the operator to accept a finalized changelog.
type ChangelogReviewer interface {
	Review(executionContext context.Context, finalization changelog.Finalization) (bool, error)
}

// Dependencies enumerates the collaborators required by the engine.
type Dependencies struct {
	Repository           Repository
	Versions             VersionProvider
	Changelog            ChangelogGate
	Reviewer             ChangelogReviewer
	Logger               *zap.Logger
	HumanReadableLogging bool
}

// Configuration holds the per-run options of the engine.
type Configuration struct {
	RepositoryPath string
	Branches       branches.BranchNames
	ChangelogPath  string
	RemoteName     string
	AutoStash      bool
	Environment    Environment
}

// Sanitize trims values and substitutes defaults.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.RepositoryPath = strings.TrimSpace(configuration.RepositoryPath)
	if len(sanitized.RepositoryPath) == 0 {
		sanitized.RepositoryPath = defaultRepositoryPath
	}
	sanitized.ChangelogPath = strings.TrimSpace(configuration.ChangelogPath)
	if len(sanitized.ChangelogPath) == 0 {
		sanitized.ChangelogPath = defaultChangelogPathConstant
	}
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = defaultRemoteNameConstant
	}
	sanitized.Branches = configuration.Branches.Sanitize()
	return sanitized
}

// Engine drives the release and hotfix state machines.
type Engine struct {
	repository    Repository
	versions      VersionProvider
	changelog     ChangelogGate
	reviewer      ChangelogReviewer
	classifier    branches.Classifier
	configuration Configuration
	reporter      stepReporter
}

// NewEngine validates dependencies and configuration and constructs an Engine.
func NewEngine(dependencies Dependencies, configuration Configuration) (*Engine, error) {
	if dependencies.Repository == nil {
		return nil, ErrRepositoryNotConfigured
	}
	if dependencies.Versions == nil {
		return nil, ErrVersionProviderNotConfigured
	}
	if dependencies.Changelog == nil {
		return nil, ErrChangelogGateNotConfigured
	}
	if dependencies.Reviewer == nil {
		return nil, ErrReviewerNotConfigured
	}

	sanitized := configuration.Sanitize()
	environment, environmentError := ParseEnvironment(string(sanitized.Environment))
	if environmentError != nil {
		return nil, environmentError
	}
	sanitized.Environment = environment

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		repository:    dependencies.Repository,
		versions:      dependencies.Versions,
		changelog:     dependencies.Changelog,
		reviewer:      dependencies.Reviewer,
		classifier:    branches.NewClassifier(sanitized.Branches),
		configuration: sanitized,
		reporter:      stepReporter{logger: logger, humanReadable: dependencies.HumanReadableLogging, environment: environment},
	}, nil
}

// Configuration exposes the sanitized configuration of the engine.
func (engine *Engine) Configuration() Configuration {
	return engine.configuration
}

// Release advances the release workflow by one invocation.
func (engine *Engine) Release(executionContext context.Context, options RunOptions) (Result, error) {
	return engine.Run(executionContext, WorkflowRelease, options)
}

// Hotfix advances the hotfix workflow by one invocation.
func (engine *Engine) Hotfix(executionContext context.Context, options RunOptions) (Result, error) {
	return engine.Run(executionContext, WorkflowHotfix, options)
}

// RunOptions tune a single invocation.
type RunOptions struct {
	DryRun bool
}

// Handoff carries what publishing needs after a finished workflow.
type Handoff struct {
	Version    version.SemanticVersion
	Tag        string
	SourceRole branches.BranchRole
	Notes      string
}

// Result reports the outcome of one invocation, including partial progress on failure.
type Result struct {
	Plan           Plan
	FinalState     State
	CompletedSteps []string
	DryRun         bool
	Handoff        *Handoff
}

// Run derives the workflow state, plans the transition and executes it unless DryRun is set.
func (engine *Engine) Run(executionContext context.Context, workflow Workflow, options RunOptions) (Result, error) {
	plan, planError := engine.Plan(executionContext, workflow)
	if planError != nil {
		return Result{}, planError
	}

	result := Result{Plan: plan, FinalState: plan.State, DryRun: options.DryRun}
	if options.DryRun {
		engine.reporter.planned(plan)
		return result, nil
	}

	execution := &planExecution{engine: engine, plan: plan}
	for _, step := range plan.Steps {
		if stepError := step.execute(executionContext, execution); stepError != nil {
			engine.reporter.stepFailed(plan, step, stepError)
			return result, stepError
		}
		result.CompletedSteps = append(result.CompletedSteps, step.Name)
		engine.reporter.stepCompleted(plan, step)
	}

	result.FinalState = plan.TargetState
	if plan.TargetState == StateFinished {
		result.Handoff = engine.handoff(plan)
	}
	engine.reporter.transitioned(plan)
	return result, nil
}

func (engine *Engine) handoff(plan Plan) *Handoff {
	tag := plan.Version.MajorMinorPatch()
	return &Handoff{Version: plan.Version, Tag: tag, SourceRole: plan.Role, Notes: engine.releaseNotes(plan.TargetBranch, tag)}
}

// CurrentHandoff describes the checked-out branch for publishing outside a finish run.
func (engine *Engine) CurrentHandoff(executionContext context.Context) (Handoff, error) {
	repositoryPath := engine.configuration.RepositoryPath
	currentBranch, branchError := engine.repository.GetCurrentBranch(executionContext, repositoryPath)
	if branchError != nil {
		return Handoff{}, flowerrors.NewExternalToolError(inspectBranchStepConstant, branchError)
	}

	branchVersion, versionError := engine.versions.ResolveVersion(executionContext, repositoryPath, currentBranch)
	if versionError != nil {
		return Handoff{}, flowerrors.Wrap(flowerrors.OperationPublishRelease, currentBranch, flowerrors.ErrVersionResolutionFailed, versionError)
	}

	tag := branchVersion.MajorMinorPatch()
	return Handoff{
		Version:    branchVersion,
		Tag:        tag,
		SourceRole: engine.classifier.Classify(currentBranch),
		Notes:      engine.releaseNotes(currentBranch, tag),
	}, nil
}

// releaseNotes returns the changelog notes for the version, or nothing when they cannot be read.
func (engine *Engine) releaseNotes(branch string, versionLabel string) string {
	notes, notesError := engine.changelog.ExtractNotes(engine.changelogFilePath(), versionLabel)
	if notesError != nil {
		engine.reporter.notesUnavailable(branch, versionLabel, notesError)
		return ""
	}
	return notes
}

func (engine *Engine) changelogFilePath() string {
	if filepath.IsAbs(engine.configuration.ChangelogPath) {
		return engine.configuration.ChangelogPath
	}
	return filepath.Join(engine.configuration.RepositoryPath, engine.configuration.ChangelogPath)
}
