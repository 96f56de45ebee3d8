package version

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/internal/branches"
)

const (
	workflowPrereleaseLabelConstant = "beta"
	developPrereleaseLabelConstant  = "alpha"
	prereleaseReplacementConstant   = "-"
	defaultPrereleaseLabelConstant  = "branch"
	versionResolvedMessageConstant  = "Resolved version"
	tagNotFoundMessageConstant      = "No tag reachable, starting from 0.0.0"
	logFieldBranchConstant          = "branch"
	logFieldRoleConstant            = "role"
	logFieldVersionConstant         = "version"
	logFieldTagConstant             = "tag"
	resolveCommitErrorTemplate      = "resolve commit of %s: %w"
	nearestTagErrorTemplate         = "find nearest tag of %s: %w"
	unparsableTagErrorTemplate      = "nearest tag of %s: %w"
)

// ErrRepositoryInspectorNotConfigured indicates the provider was constructed without git queries.
var ErrRepositoryInspectorNotConfigured = errors.New("repository inspector not configured")

// RepositoryInspector exposes the read-only git queries the provider relies on.
type RepositoryInspector interface {
	ResolveCommit(executionContext context.Context, repositoryPath string, reference string) (string, error)
	NearestTag(executionContext context.Context, repositoryPath string, reference string) (string, bool, error)
}

// BranchClassifier maps branch names to Gitflow roles.
type BranchClassifier interface {
	Classify(branchName string) branches.BranchRole
}

// TagVersionProvider resolves branch versions from the nearest reachable tag.
type TagVersionProvider struct {
	repository RepositoryInspector
	classifier BranchClassifier
	logger     *zap.Logger
}

// NewTagVersionProvider validates dependencies and constructs a provider.
func NewTagVersionProvider(repository RepositoryInspector, classifier BranchClassifier, logger *zap.Logger) (*TagVersionProvider, error) {
	if repository == nil {
		return nil, ErrRepositoryInspectorNotConfigured
	}
	if classifier == nil {
		classifier = branches.NewClassifier(branches.DefaultBranchNames())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagVersionProvider{repository: repository, classifier: classifier, logger: logger}, nil
}

// ResolveVersion computes the version of the named branch.
func (provider *TagVersionProvider) ResolveVersion(executionContext context.Context, repositoryPath string, branchName string) (SemanticVersion, error) {
	role := provider.classifier.Classify(branchName)

	sha, resolveError := provider.repository.ResolveCommit(executionContext, repositoryPath, branchName)
	if resolveError != nil {
		return SemanticVersion{}, fmt.Errorf(resolveCommitErrorTemplate, branchName, resolveError)
	}

	if role.IsWorkflowBranch() {
		if branchVersion, parseError := ParseSemanticVersion(role.Identifier); parseError == nil {
			branchVersion.Prerelease = workflowPrereleaseLabelConstant
			branchVersion.Sha = sha
			provider.logResolution(branchName, role, branchVersion)
			return branchVersion, nil
		}
	}

	tagName, tagFound, tagError := provider.repository.NearestTag(executionContext, repositoryPath, branchName)
	if tagError != nil {
		return SemanticVersion{}, fmt.Errorf(nearestTagErrorTemplate, branchName, tagError)
	}

	baseVersion := SemanticVersion{}
	if tagFound {
		parsedTag, parseError := ParseSemanticVersion(tagName)
		if parseError != nil {
			return SemanticVersion{}, fmt.Errorf(unparsableTagErrorTemplate, branchName, parseError)
		}
		baseVersion = parsedTag
		baseVersion.Prerelease = ""
	} else {
		provider.logger.Debug(tagNotFoundMessageConstant, zap.String(logFieldBranchConstant, branchName))
	}
	baseVersion.Sha = sha

	var resolvedVersion SemanticVersion
	switch role.Kind {
	case branches.RoleMaster:
		resolvedVersion = baseVersion
	case branches.RoleDevelop:
		resolvedVersion = baseVersion.NextMinor()
		resolvedVersion.Prerelease = developPrereleaseLabelConstant
	default:
		resolvedVersion = baseVersion.NextPatch()
		resolvedVersion.Prerelease = sanitizePrereleaseLabel(branchName)
	}

	provider.logger.Debug(versionResolvedMessageConstant,
		zap.String(logFieldBranchConstant, branchName),
		zap.String(logFieldRoleConstant, role.Kind.String()),
		zap.String(logFieldTagConstant, tagName),
		zap.String(logFieldVersionConstant, resolvedVersion.String()),
	)
	return resolvedVersion, nil
}

func (provider *TagVersionProvider) logResolution(branchName string, role branches.BranchRole, resolved SemanticVersion) {
	provider.logger.Debug(versionResolvedMessageConstant,
		zap.String(logFieldBranchConstant, branchName),
		zap.String(logFieldRoleConstant, role.Kind.String()),
		zap.String(logFieldVersionConstant, resolved.String()),
	)
}

// sanitizePrereleaseLabel keeps the characters semver permits in a prerelease identifier.
func sanitizePrereleaseLabel(branchName string) string {
	var builder strings.Builder
	previousReplaced := false
	for _, character := range branchName {
		isAllowed := (character >= 'a' && character <= 'z') ||
			(character >= 'A' && character <= 'Z') ||
			(character >= '0' && character <= '9') ||
			character == '-'
		if isAllowed {
			builder.WriteRune(character)
			previousReplaced = false
			continue
		}
		if !previousReplaced {
			builder.WriteString(prereleaseReplacementConstant)
			previousReplaced = true
		}
	}

	label := strings.Trim(builder.String(), prereleaseReplacementConstant)
	if len(label) == 0 {
		return defaultPrereleaseLabelConstant
	}
	return label
}
