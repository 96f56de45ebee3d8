package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/internal/branches"
	"github.com/tyemirov/gitflow/internal/flowerrors"
	"github.com/tyemirov/gitflow/internal/gitflow"
)

const (
	defaultTagPrefixConstant         = "v"
	defaultRemoteNameConstant        = "origin"
	tokenSourceSettingConstant       = "publish.token_source"
	releaseBodyHeaderTemplate        = "## %s\n%s"
	publishNotAllowedTemplate        = "publishing requires a release, hotfix or master branch; %s is a %s branch"
	remoteLookupErrorTemplate        = "read URL of remote %s: %w"
	releasePlannedMessageConstant    = "Release publish planned"
	releasePublishedMessageConstant  = "Published release"
	packagesPlannedMessageConstant   = "Package push planned"
	packagesPushedMessageConstant    = "Pushed packages"
	humanReleasePlannedTemplate      = "Would publish %s to %s (%s) with %d artifact(s)"
	humanReleasePublishedTemplate    = "Published %s to %s: %s"
	humanPackagesPlannedTemplate     = "Would push %d package(s) to %s"
	humanPackagesPushedTemplate      = "Pushed %d package(s) to %s"
	logFieldTagConstant              = "tag"
	logFieldProviderConstant         = "provider"
	logFieldRepositoryConstant       = "repository"
	logFieldArtifactsConstant        = "artifacts"
	logFieldURLConstant              = "url"
	logFieldPackagesConstant         = "packages"
	remoteInspectorMissingMessage    = "publish remote inspector not configured"
	publishDryRunNotesHeaderConstant = "Release notes:"
	publishDryRunNotesErrorTemplate  = "render release notes: %w"
	publishDryRunOutputErrorTemplate = "write release notes: %w"
	publishArtifactsErrorTemplate    = "resolve artifacts: %w"
	publishUnsupportedRemoteTemplate = "%s: %w"
	publishPublisherCreationTemplate = "create %s publisher: %w"
)

// ErrRemoteInspectorNotConfigured indicates the service was constructed without a remote inspector.
var ErrRemoteInspectorNotConfigured = errors.New(remoteInspectorMissingMessage)

// Configuration captures the publish settings of a repository.
type Configuration struct {
	Provider      Provider `mapstructure:"provider"`
	TokenSource   string   `mapstructure:"token_source"`
	TagPrefix     string   `mapstructure:"tag_prefix"`
	Artifacts     []string `mapstructure:"artifacts"`
	PackageSource string   `mapstructure:"package_source"`
	APIBaseURL    string   `mapstructure:"api_base_url"`
	UploadBaseURL string   `mapstructure:"upload_base_url"`
}

// Sanitize trims values and applies the default tag prefix.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Provider = Provider(strings.ToLower(strings.TrimSpace(string(configuration.Provider))))
	sanitized.TokenSource = strings.TrimSpace(configuration.TokenSource)
	sanitized.TagPrefix = strings.TrimSpace(configuration.TagPrefix)
	if len(sanitized.TagPrefix) == 0 {
		sanitized.TagPrefix = defaultTagPrefixConstant
	}
	sanitized.PackageSource = strings.TrimSpace(configuration.PackageSource)
	sanitized.APIBaseURL = strings.TrimSpace(configuration.APIBaseURL)
	sanitized.UploadBaseURL = strings.TrimSpace(configuration.UploadBaseURL)
	sanitized.Artifacts = nil
	for _, pattern := range configuration.Artifacts {
		if trimmedPattern := strings.TrimSpace(pattern); len(trimmedPattern) > 0 {
			sanitized.Artifacts = append(sanitized.Artifacts, trimmedPattern)
		}
	}
	return sanitized
}

// RemoteInspector reads remote URLs of a repository.
type RemoteInspector interface {
	GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error)
}

// PublisherFactory builds the release publisher for a provider.
type PublisherFactory func(executionContext context.Context, provider Provider, token string, repository RemoteRepository, configuration Configuration) (ReleasePublisher, error)

// PackagePushExecutor uploads packages to a package source.
type PackagePushExecutor interface {
	Push(executionContext context.Context, request PackagePushRequest) (PackagePushResult, error)
}

// NotesRenderer formats release notes for the terminal.
type NotesRenderer interface {
	Render(markdown string) (string, error)
}

// Dependencies enumerates the collaborators of the publish service.
type Dependencies struct {
	Remotes              RemoteInspector
	TokenResolver        TokenResolver
	PublisherFactory     PublisherFactory
	Packages             PackagePushExecutor
	NotesRenderer        NotesRenderer
	Output               io.Writer
	Logger               *zap.Logger
	HumanReadableLogging bool
}

// Service publishes hosted releases and pushes packages for a finished workflow.
type Service struct {
	remotes          RemoteInspector
	tokenResolver    TokenResolver
	publisherFactory PublisherFactory
	packages         PackagePushExecutor
	notesRenderer    NotesRenderer
	output           io.Writer
	logger           *zap.Logger
	humanReadable    bool
}

// NewService validates dependencies and fills in the default collaborators.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Remotes == nil {
		return nil, ErrRemoteInspectorNotConfigured
	}

	service := &Service{
		remotes:          dependencies.Remotes,
		tokenResolver:    dependencies.TokenResolver,
		publisherFactory: dependencies.PublisherFactory,
		packages:         dependencies.Packages,
		notesRenderer:    dependencies.NotesRenderer,
		output:           dependencies.Output,
		logger:           dependencies.Logger,
		humanReadable:    dependencies.HumanReadableLogging,
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	if service.tokenResolver == nil {
		service.tokenResolver = NewTokenResolver(nil, nil)
	}
	if service.publisherFactory == nil {
		service.publisherFactory = DefaultPublisherFactory
	}
	if service.packages == nil {
		service.packages = NewPackagePusher(nil, service.logger)
	}
	if service.output == nil {
		service.output = io.Discard
	}
	return service, nil
}

// DefaultPublisherFactory builds the go-github or go-gitlab publisher.
func DefaultPublisherFactory(executionContext context.Context, provider Provider, token string, repository RemoteRepository, configuration Configuration) (ReleasePublisher, error) {
	switch provider {
	case ProviderGitLab:
		return NewGitLabPublisher(token, repository, GitLabConfiguration{BaseURL: configuration.APIBaseURL})
	default:
		return NewGitHubPublisher(executionContext, token, GitHubConfiguration{
			APIBaseURL:    configuration.APIBaseURL,
			UploadBaseURL: configuration.UploadBaseURL,
		})
	}
}

// ResolveToken resolves the configured access token. Callers resolve it before any workflow
// step runs so that a missing token never interrupts a finish sequence.
func (service *Service) ResolveToken(executionContext context.Context, configuration Configuration) (string, error) {
	source, parseError := ParseTokenSource(configuration.TokenSource)
	if parseError != nil {
		return "", flowerrors.ConfigurationError{Setting: tokenSourceSettingConstant, Reason: parseError.Error(), Sentinel: flowerrors.ErrTokenMissing}
	}
	token, resolveError := service.tokenResolver.ResolveToken(executionContext, source)
	if resolveError != nil {
		return "", flowerrors.ConfigurationError{Setting: tokenSourceSettingConstant, Reason: resolveError.Error(), Sentinel: flowerrors.ErrTokenMissing}
	}
	return token, nil
}

// ReleaseOptions describe one publish invocation.
type ReleaseOptions struct {
	RepositoryPath string
	RemoteName     string
	Handoff        gitflow.Handoff
	Token          string
	DryRun         bool
}

// ReleaseOutcome reports the release that was created or, on a dry run, would be created.
type ReleaseOutcome struct {
	Provider   Provider
	Repository RemoteRepository
	Tag        string
	Body       string
	Artifacts  []string
	URL        string
	DryRun     bool
}

// CanPublish reports whether releases may be published from the role.
func CanPublish(role branches.BranchRole) bool {
	switch role.Kind {
	case branches.RoleRelease, branches.RoleHotfix, branches.RoleMaster:
		return true
	default:
		return false
	}
}

// ReleaseTag renders the hosted release tag for a handoff.
func ReleaseTag(configuration Configuration, handoff gitflow.Handoff) string {
	return configuration.Sanitize().TagPrefix + handoff.Version.MajorMinorPatch()
}

// ReleaseBody renders "## <tag>" followed by the release notes.
func ReleaseBody(tag string, notes string) string {
	return fmt.Sprintf(releaseBodyHeaderTemplate, tag, notes)
}

// PublishRelease creates a hosted release for the handoff on the commit it was resolved from.
func (service *Service) PublishRelease(executionContext context.Context, configuration Configuration, options ReleaseOptions) (ReleaseOutcome, error) {
	sanitized := configuration.Sanitize()
	role := options.Handoff.SourceRole
	if !CanPublish(role) {
		return ReleaseOutcome{}, flowerrors.PreconditionError{
			Sentinel: flowerrors.ErrPublishNotAllowed,
			Reason:   fmt.Sprintf(publishNotAllowedTemplate, role.Name, role.Kind),
		}
	}

	remoteName := strings.TrimSpace(options.RemoteName)
	if len(remoteName) == 0 {
		remoteName = defaultRemoteNameConstant
	}
	remoteURL, remoteError := service.remotes.GetRemoteURL(executionContext, options.RepositoryPath, remoteName)
	if remoteError != nil {
		return ReleaseOutcome{}, flowerrors.Wrap(flowerrors.OperationPublishRelease, remoteName, flowerrors.ErrRemoteUnsupported,
			fmt.Errorf(remoteLookupErrorTemplate, remoteName, remoteError))
	}
	repository, parseError := ParseRemoteURL(remoteURL)
	if parseError != nil {
		return ReleaseOutcome{}, flowerrors.Wrap(flowerrors.OperationPublishRelease, remoteName, flowerrors.ErrRemoteUnsupported, parseError)
	}
	provider, providerError := ResolveProvider(sanitized.Provider, repository)
	if providerError != nil {
		return ReleaseOutcome{}, flowerrors.Wrap(flowerrors.OperationPublishRelease, remoteName, flowerrors.ErrRemoteUnsupported,
			fmt.Errorf(publishUnsupportedRemoteTemplate, remoteURL, providerError))
	}

	artifacts, artifactsError := ResolveArtifacts(options.RepositoryPath, sanitized.Artifacts)
	if artifactsError != nil {
		return ReleaseOutcome{}, flowerrors.Wrap(flowerrors.OperationPublishRelease, "", flowerrors.ErrAssetUploadFailed,
			fmt.Errorf(publishArtifactsErrorTemplate, artifactsError))
	}

	tag := sanitized.TagPrefix + options.Handoff.Version.MajorMinorPatch()
	outcome := ReleaseOutcome{
		Provider:   provider,
		Repository: repository,
		Tag:        tag,
		Body:       ReleaseBody(tag, options.Handoff.Notes),
		Artifacts:  artifacts,
		DryRun:     options.DryRun,
	}

	if options.DryRun {
		service.reportReleasePlanned(outcome)
		return outcome, service.renderNotes(outcome.Body)
	}

	publisher, publisherError := service.publisherFactory(executionContext, provider, options.Token, repository, sanitized)
	if publisherError != nil {
		return outcome, flowerrors.Wrap(flowerrors.OperationPublishRelease, tag, flowerrors.ErrReleaseCreateFailed,
			fmt.Errorf(publishPublisherCreationTemplate, provider, publisherError))
	}

	published, publishError := publisher.PublishRelease(executionContext, ReleaseRequest{
		Repository: repository,
		Tag:        tag,
		Name:       tag,
		CommitSha:  options.Handoff.Version.Sha,
		Body:       outcome.Body,
		Prerelease: false,
		Assets:     artifacts,
	})
	outcome.URL = published.URL
	if publishError != nil {
		return outcome, publishError
	}

	service.reportReleasePublished(outcome)
	return outcome, nil
}

// PackageOptions describe one package push invocation.
type PackageOptions struct {
	RepositoryPath string
	Token          string
	DryRun         bool
}

// PushPackages uploads the configured *.nupkg artifacts. Without a package source nothing happens.
func (service *Service) PushPackages(executionContext context.Context, configuration Configuration, options PackageOptions) (PackagePushResult, error) {
	sanitized := configuration.Sanitize()
	if len(sanitized.PackageSource) == 0 {
		return service.packages.Push(executionContext, PackagePushRequest{})
	}

	artifacts, artifactsError := ResolveArtifacts(options.RepositoryPath, sanitized.Artifacts)
	if artifactsError != nil {
		return PackagePushResult{}, flowerrors.Wrap(flowerrors.OperationPushPackages, "", flowerrors.ErrPackagePushFailed, artifactsError)
	}
	packages := SelectPackages(artifacts)

	if options.DryRun {
		service.reportPackages(packagesPlannedMessageConstant, humanPackagesPlannedTemplate, sanitized.PackageSource, packages)
		return PackagePushResult{}, nil
	}

	result, pushError := service.packages.Push(executionContext, PackagePushRequest{
		Source:    sanitized.PackageSource,
		APIKey:    options.Token,
		Artifacts: packages,
	})
	if pushError != nil {
		return result, flowerrors.Wrap(flowerrors.OperationPushPackages, sanitized.PackageSource, flowerrors.ErrPackagePushFailed, pushError)
	}
	service.reportPackages(packagesPushedMessageConstant, humanPackagesPushedTemplate, sanitized.PackageSource, result.Pushed)
	return result, nil
}

func (service *Service) renderNotes(body string) error {
	rendered := body
	if service.notesRenderer != nil {
		formatted, renderError := service.notesRenderer.Render(body)
		if renderError != nil {
			return fmt.Errorf(publishDryRunNotesErrorTemplate, renderError)
		}
		rendered = formatted
	}
	if _, writeError := fmt.Fprintf(service.output, "%s\n%s\n", publishDryRunNotesHeaderConstant, rendered); writeError != nil {
		return fmt.Errorf(publishDryRunOutputErrorTemplate, writeError)
	}
	return nil
}

func (service *Service) reportReleasePlanned(outcome ReleaseOutcome) {
	if service.humanReadable {
		service.logger.Info(fmt.Sprintf(humanReleasePlannedTemplate, outcome.Tag, outcome.Repository.FullName(), outcome.Provider, len(outcome.Artifacts)))
		return
	}
	service.logger.Info(releasePlannedMessageConstant,
		zap.String(logFieldTagConstant, outcome.Tag),
		zap.String(logFieldProviderConstant, string(outcome.Provider)),
		zap.String(logFieldRepositoryConstant, outcome.Repository.FullName()),
		zap.Strings(logFieldArtifactsConstant, outcome.Artifacts),
	)
}

func (service *Service) reportReleasePublished(outcome ReleaseOutcome) {
	if service.humanReadable {
		service.logger.Info(fmt.Sprintf(humanReleasePublishedTemplate, outcome.Tag, outcome.Repository.FullName(), outcome.URL))
		return
	}
	service.logger.Info(releasePublishedMessageConstant,
		zap.String(logFieldTagConstant, outcome.Tag),
		zap.String(logFieldProviderConstant, string(outcome.Provider)),
		zap.String(logFieldRepositoryConstant, outcome.Repository.FullName()),
		zap.String(logFieldURLConstant, outcome.URL),
	)
}

func (service *Service) reportPackages(message string, humanTemplate string, source string, packages []string) {
	if service.humanReadable {
		service.logger.Info(fmt.Sprintf(humanTemplate, len(packages), source))
		return
	}
	service.logger.Info(message, zap.String(logFieldSourceConstant, source), zap.Strings(logFieldPackagesConstant, packages))
}
