package publish_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/gitflow/internal/publish"
)

func TestParseRemoteURL(testInstance *testing.T) {
	testCases := []struct {
		name               string
		remoteURL          string
		expectedRepository publish.RemoteRepository
		expectError        bool
	}{
		{
			name:               "scp_ssh",
			remoteURL:          "git@github.com:acme/widgets.git",
			expectedRepository: publish.RemoteRepository{Host: "github.com", Owner: "acme", Name: "widgets"},
		},
		{
			name:               "https_with_suffix",
			remoteURL:          "https://github.com/acme/widgets.git",
			expectedRepository: publish.RemoteRepository{Host: "github.com", Owner: "acme", Name: "widgets"},
		},
		{
			name:               "https_without_suffix",
			remoteURL:          "https://GitHub.com/acme/widgets/",
			expectedRepository: publish.RemoteRepository{Host: "github.com", Owner: "acme", Name: "widgets"},
		},
		{
			name:               "ssh_url_with_port",
			remoteURL:          "ssh://git@gitlab.example.com:2222/platform/tools/widgets.git",
			expectedRepository: publish.RemoteRepository{Host: "gitlab.example.com", Owner: "platform/tools", Name: "widgets"},
		},
		{
			name:               "gitlab_subgroup",
			remoteURL:          "git@gitlab.com:platform/tools/widgets.git",
			expectedRepository: publish.RemoteRepository{Host: "gitlab.com", Owner: "platform/tools", Name: "widgets"},
		},
		{name: "missing_owner", remoteURL: "https://github.com/widgets", expectError: true},
		{name: "local_path", remoteURL: "/srv/git/widgets.git", expectError: true},
		{name: "empty", remoteURL: "", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repository, parseError := publish.ParseRemoteURL(testCase.remoteURL)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedRepository, repository)
		})
	}
}

func TestRemoteRepositoryRendering(testInstance *testing.T) {
	repository := publish.RemoteRepository{Host: "gitlab.com", Owner: "platform/tools", Name: "widgets"}
	require.Equal(testInstance, "platform/tools/widgets", repository.FullName())
	require.Equal(testInstance, "https://gitlab.com/platform/tools/widgets", repository.WebURL())
}

func TestResolveProvider(testInstance *testing.T) {
	testCases := []struct {
		name             string
		configured       publish.Provider
		host             string
		expectedProvider publish.Provider
		expectError      bool
	}{
		{name: "infer_github", host: "github.com", expectedProvider: publish.ProviderGitHub},
		{name: "infer_gitlab", host: "gitlab.example.com", expectedProvider: publish.ProviderGitLab},
		{name: "configured_overrides_host", configured: "GitLab", host: "git.example.com", expectedProvider: publish.ProviderGitLab},
		{name: "unknown_host", host: "bitbucket.org", expectError: true},
		{name: "unknown_provider", configured: "gitea", host: "github.com", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			provider, resolveError := publish.ResolveProvider(testCase.configured, publish.RemoteRepository{Host: testCase.host, Owner: "acme", Name: "widgets"})
			if testCase.expectError {
				require.Error(testInstance, resolveError)
				return
			}
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedProvider, provider)
		})
	}
}
