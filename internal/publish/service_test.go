package publish_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tyemirov/gitflow/internal/branches"
	"github.com/tyemirov/gitflow/internal/flowerrors"
	"github.com/tyemirov/gitflow/internal/gitflow"
	"github.com/tyemirov/gitflow/internal/publish"
	"github.com/tyemirov/gitflow/internal/version"
)

type stubRemoteInspector struct {
	remoteURL string
	err       error
	queried   []string
}

func (inspector *stubRemoteInspector) GetRemoteURL(_ context.Context, _ string, remoteName string) (string, error) {
	inspector.queried = append(inspector.queried, remoteName)
	return inspector.remoteURL, inspector.err
}

type stubReleasePublisher struct {
	requests []publish.ReleaseRequest
	err      error
}

func (publisher *stubReleasePublisher) PublishRelease(_ context.Context, request publish.ReleaseRequest) (publish.PublishedRelease, error) {
	publisher.requests = append(publisher.requests, request)
	if publisher.err != nil {
		return publish.PublishedRelease{}, publisher.err
	}
	return publish.PublishedRelease{URL: "https://github.com/acme/widgets/releases/tag/" + request.Tag}, nil
}

type stubPackagePusher struct {
	requests []publish.PackagePushRequest
	err      error
}

func (pusher *stubPackagePusher) Push(_ context.Context, request publish.PackagePushRequest) (publish.PackagePushResult, error) {
	pusher.requests = append(pusher.requests, request)
	if pusher.err != nil {
		return publish.PackagePushResult{}, pusher.err
	}
	if len(request.Source) == 0 {
		return publish.PackagePushResult{Skipped: true}, nil
	}
	return publish.PackagePushResult{Pushed: request.Artifacts}, nil
}

type serviceFixture struct {
	service        *publish.Service
	remotes        *stubRemoteInspector
	publisher      *stubReleasePublisher
	pusher         *stubPackagePusher
	output         *bytes.Buffer
	providers      []publish.Provider
	repositoryPath string
}

func newServiceFixture(testInstance *testing.T, remoteURL string, logger *zap.Logger) *serviceFixture {
	testInstance.Helper()
	fixture := &serviceFixture{
		remotes:        &stubRemoteInspector{remoteURL: remoteURL},
		publisher:      &stubReleasePublisher{},
		pusher:         &stubPackagePusher{},
		output:         &bytes.Buffer{},
		repositoryPath: testInstance.TempDir(),
	}
	environment := map[string]string{"RELEASE_TOKEN": "release-token"}

	service, serviceError := publish.NewService(publish.Dependencies{
		Remotes: fixture.remotes,
		TokenResolver: publish.NewTokenResolver(func(key string) (string, bool) {
			value, found := environment[key]
			return value, found
		}, nil),
		PublisherFactory: func(_ context.Context, provider publish.Provider, token string, _ publish.RemoteRepository, _ publish.Configuration) (publish.ReleasePublisher, error) {
			fixture.providers = append(fixture.providers, provider)
			if token != "release-token" {
				return nil, errors.New("unexpected token")
			}
			return fixture.publisher, nil
		},
		Packages: fixture.pusher,
		Output:   fixture.output,
		Logger:   logger,
	})
	require.NoError(testInstance, serviceError)
	fixture.service = service
	return fixture
}

func releaseHandoff(kind branches.RoleKind, branchName string) gitflow.Handoff {
	return gitflow.Handoff{
		Version:    version.SemanticVersion{Major: 1, Minor: 4, Prerelease: "beta", Sha: testReleaseShaConstant},
		Tag:        "1.4.0",
		SourceRole: branches.BranchRole{Kind: kind, Name: branchName},
		Notes:      "### Added\n- Release automation",
	}
}

func TestServicePublishesReleaseFromWorkflowRoles(testInstance *testing.T) {
	testCases := []struct {
		name       string
		kind       branches.RoleKind
		branchName string
	}{
		{name: "release", kind: branches.RoleRelease, branchName: "release/1.4.0"},
		{name: "hotfix", kind: branches.RoleHotfix, branchName: "hotfix/1.4.0"},
		{name: "master", kind: branches.RoleMaster, branchName: "master"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newServiceFixture(testInstance, "git@github.com:acme/widgets.git", nil)
			packagePath := writeArtifact(testInstance, fixture.repositoryPath, "artifacts/Widgets.1.4.0.nupkg", "package")

			outcome, publishError := fixture.service.PublishRelease(context.Background(),
				publish.Configuration{Artifacts: []string{"artifacts/*.nupkg"}},
				publish.ReleaseOptions{
					RepositoryPath: fixture.repositoryPath,
					Handoff:        releaseHandoff(testCase.kind, testCase.branchName),
					Token:          "release-token",
				})
			require.NoError(testInstance, publishError)
			require.Equal(testInstance, "v1.4.0", outcome.Tag)
			require.Equal(testInstance, publish.ProviderGitHub, outcome.Provider)
			require.Equal(testInstance, "https://github.com/acme/widgets/releases/tag/v1.4.0", outcome.URL)

			require.Equal(testInstance, []string{"origin"}, fixture.remotes.queried)
			require.Equal(testInstance, []publish.ReleaseRequest{{
				Repository: publish.RemoteRepository{Host: "github.com", Owner: "acme", Name: "widgets"},
				Tag:        "v1.4.0",
				Name:       "v1.4.0",
				CommitSha:  testReleaseShaConstant,
				Body:       testReleaseBodyConstant,
				Prerelease: false,
				Assets:     []string{packagePath},
			}}, fixture.publisher.requests)
		})
	}
}

func TestServiceRefusesToPublishFromOtherRoles(testInstance *testing.T) {
	for _, kind := range []branches.RoleKind{branches.RoleDevelop, branches.RoleOther} {
		testInstance.Run(kind.String(), func(testInstance *testing.T) {
			fixture := newServiceFixture(testInstance, "git@github.com:acme/widgets.git", nil)

			_, publishError := fixture.service.PublishRelease(context.Background(), publish.Configuration{}, publish.ReleaseOptions{
				Handoff: releaseHandoff(kind, "develop"),
				Token:   "release-token",
			})
			var preconditionError flowerrors.PreconditionError
			require.ErrorAs(testInstance, publishError, &preconditionError)
			require.ErrorIs(testInstance, publishError, flowerrors.ErrPublishNotAllowed)
			require.Empty(testInstance, fixture.remotes.queried)
			require.Empty(testInstance, fixture.publisher.requests)
		})
	}
}

func TestServicePublishDryRunRendersNotes(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zap.InfoLevel)
	fixture := newServiceFixture(testInstance, "https://gitlab.example.com/platform/widgets.git", zap.New(observerCore))

	outcome, publishError := fixture.service.PublishRelease(context.Background(),
		publish.Configuration{TagPrefix: "release-"},
		publish.ReleaseOptions{
			RepositoryPath: fixture.repositoryPath,
			RemoteName:     "upstream",
			Handoff:        releaseHandoff(branches.RoleRelease, "release/1.4.0"),
			DryRun:         true,
		})
	require.NoError(testInstance, publishError)
	require.True(testInstance, outcome.DryRun)
	require.Equal(testInstance, "release-1.4.0", outcome.Tag)
	require.Equal(testInstance, publish.ProviderGitLab, outcome.Provider)
	require.Empty(testInstance, fixture.providers)
	require.Equal(testInstance, []string{"upstream"}, fixture.remotes.queried)
	require.Equal(testInstance, "Release notes:\n## release-1.4.0\n### Added\n- Release automation\n", fixture.output.String())

	plannedEntries := observedLogs.FilterMessage("Release publish planned").All()
	require.Len(testInstance, plannedEntries, 1)
	require.Equal(testInstance, "platform/widgets", plannedEntries[0].ContextMap()["repository"])
}

func TestServicePublishFailures(testInstance *testing.T) {
	testCases := []struct {
		name             string
		remoteURL        string
		remoteError      error
		publisherError   error
		expectedSentinel flowerrors.Sentinel
	}{
		{name: "remote_lookup", remoteError: errors.New("no such remote"), expectedSentinel: flowerrors.ErrRemoteUnsupported},
		{name: "unparsable_remote", remoteURL: "/srv/git/widgets.git", expectedSentinel: flowerrors.ErrRemoteUnsupported},
		{name: "unknown_host", remoteURL: "git@bitbucket.org:acme/widgets.git", expectedSentinel: flowerrors.ErrRemoteUnsupported},
		{
			name:             "publisher_rejects",
			remoteURL:        "git@github.com:acme/widgets.git",
			publisherError:   flowerrors.Wrap(flowerrors.OperationPublishRelease, "v1.4.0", flowerrors.ErrReleaseCreateFailed, errors.New("422")),
			expectedSentinel: flowerrors.ErrReleaseCreateFailed,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newServiceFixture(testInstance, testCase.remoteURL, nil)
			fixture.remotes.err = testCase.remoteError
			fixture.publisher.err = testCase.publisherError

			_, publishError := fixture.service.PublishRelease(context.Background(), publish.Configuration{}, publish.ReleaseOptions{
				RepositoryPath: fixture.repositoryPath,
				Handoff:        releaseHandoff(branches.RoleRelease, "release/1.4.0"),
				Token:          "release-token",
			})
			require.ErrorIs(testInstance, publishError, testCase.expectedSentinel)
		})
	}
}

func TestServiceResolveToken(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, "", nil)

	token, tokenError := fixture.service.ResolveToken(context.Background(), publish.Configuration{TokenSource: "env:RELEASE_TOKEN"})
	require.NoError(testInstance, tokenError)
	require.Equal(testInstance, "release-token", token)

	for _, tokenSource := range []string{"", "env:MISSING_TOKEN", "vault:secret"} {
		_, missingError := fixture.service.ResolveToken(context.Background(), publish.Configuration{TokenSource: tokenSource})
		var configurationError flowerrors.ConfigurationError
		require.ErrorAs(testInstance, missingError, &configurationError, tokenSource)
		require.Equal(testInstance, "publish.token_source", configurationError.Setting)
		require.ErrorIs(testInstance, missingError, flowerrors.ErrTokenMissing)
	}
}

func TestServicePushPackages(testInstance *testing.T) {
	testInstance.Run("skipped_without_source", func(testInstance *testing.T) {
		fixture := newServiceFixture(testInstance, "", nil)
		result, pushError := fixture.service.PushPackages(context.Background(), publish.Configuration{}, publish.PackageOptions{RepositoryPath: fixture.repositoryPath})
		require.NoError(testInstance, pushError)
		require.True(testInstance, result.Skipped)
	})

	testInstance.Run("pushes_selected_packages", func(testInstance *testing.T) {
		fixture := newServiceFixture(testInstance, "", nil)
		packagePath := writeArtifact(testInstance, fixture.repositoryPath, "artifacts/Widgets.1.4.0.nupkg", "package")
		writeArtifact(testInstance, fixture.repositoryPath, "artifacts/Widgets.1.4.0.symbols.nupkg", "symbols")

		result, pushError := fixture.service.PushPackages(context.Background(),
			publish.Configuration{Artifacts: []string{"artifacts/*"}, PackageSource: " https://nuget.pkg.github.com/acme/index.json "},
			publish.PackageOptions{RepositoryPath: fixture.repositoryPath, Token: "release-token"})
		require.NoError(testInstance, pushError)
		require.Equal(testInstance, []string{packagePath}, result.Pushed)
		require.Equal(testInstance, []publish.PackagePushRequest{{
			Source:    "https://nuget.pkg.github.com/acme/index.json",
			APIKey:    "release-token",
			Artifacts: []string{packagePath},
		}}, fixture.pusher.requests)
	})

	testInstance.Run("dry_run", func(testInstance *testing.T) {
		fixture := newServiceFixture(testInstance, "", nil)
		writeArtifact(testInstance, fixture.repositoryPath, "artifacts/Widgets.1.4.0.nupkg", "package")
		_, pushError := fixture.service.PushPackages(context.Background(),
			publish.Configuration{Artifacts: []string{"artifacts/*"}, PackageSource: "https://nuget.example.com"},
			publish.PackageOptions{RepositoryPath: fixture.repositoryPath, DryRun: true})
		require.NoError(testInstance, pushError)
		require.Empty(testInstance, fixture.pusher.requests)
	})

	testInstance.Run("failure", func(testInstance *testing.T) {
		fixture := newServiceFixture(testInstance, "", nil)
		fixture.pusher.err = errors.New("unexpected status 409")
		_, pushError := fixture.service.PushPackages(context.Background(),
			publish.Configuration{PackageSource: "https://nuget.example.com"},
			publish.PackageOptions{RepositoryPath: fixture.repositoryPath})
		require.ErrorIs(testInstance, pushError, flowerrors.ErrPackagePushFailed)
	})
}

func TestNewServiceRequiresRemoteInspector(testInstance *testing.T) {
	service, serviceError := publish.NewService(publish.Dependencies{})
	require.Nil(testInstance, service)
	require.ErrorIs(testInstance, serviceError, publish.ErrRemoteInspectorNotConfigured)
}

func TestMarkdownNotesRendererKeepsContent(testInstance *testing.T) {
	renderer, rendererError := publish.NewMarkdownNotesRenderer(0)
	require.NoError(testInstance, rendererError)

	rendered, renderError := renderer.Render(testReleaseBodyConstant)
	require.NoError(testInstance, renderError)
	require.Contains(testInstance, rendered, "v1.4.0")
	require.Contains(testInstance, rendered, "Release automation")
}
