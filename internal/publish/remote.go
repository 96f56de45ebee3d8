package publish

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider names a release hosting service.
type Provider string

const (
	// ProviderAuto infers the provider from the remote host.
	ProviderAuto Provider = ""
	// ProviderGitHub publishes releases through the GitHub REST API.
	ProviderGitHub Provider = "github"
	// ProviderGitLab publishes releases through the GitLab REST API.
	ProviderGitLab Provider = "gitlab"
)

const (
	scpRemoteUserSeparatorConstant = "@"
	scpRemotePathSeparatorConstant = ":"
	gitSuffixConstant              = ".git"
	pathSeparatorConstant          = "/"
	httpsSchemeConstant            = "https"
	remoteParseErrorTemplate       = "cannot parse remote URL %q: %s"
	remotePathTooShortMessage      = "expected <owner>/<repository> path"
	remoteHostMissingMessage       = "host missing"
	unsupportedProviderTemplate    = "unsupported provider %q"
	undetectedProviderTemplate     = "cannot infer provider from host %q"
)

// RemoteRepository identifies a hosted repository parsed from a git remote URL.
// Owner keeps every namespace segment, so GitLab subgroups stay intact.
type RemoteRepository struct {
	Host  string
	Owner string
	Name  string
}

// FullName returns "<owner>/<name>".
func (repository RemoteRepository) FullName() string {
	return repository.Owner + pathSeparatorConstant + repository.Name
}

// WebURL returns the https address of the repository.
func (repository RemoteRepository) WebURL() string {
	return httpsSchemeConstant + "://" + repository.Host + pathSeparatorConstant + repository.FullName()
}

// ParseRemoteURL understands scp-like ssh remotes (git@host:owner/repo.git) and URL remotes
// (https://host/owner/repo.git, ssh://git@host/owner/repo).
func ParseRemoteURL(remoteURL string) (RemoteRepository, error) {
	trimmedURL := strings.TrimSpace(remoteURL)

	var host, repositoryPath string
	if strings.Contains(trimmedURL, "://") {
		parsedURL, parseError := url.Parse(trimmedURL)
		if parseError != nil {
			return RemoteRepository{}, fmt.Errorf(remoteParseErrorTemplate, remoteURL, parseError.Error())
		}
		host = parsedURL.Hostname()
		repositoryPath = parsedURL.Path
	} else {
		_, withoutUser, hasUser := strings.Cut(trimmedURL, scpRemoteUserSeparatorConstant)
		if !hasUser {
			withoutUser = trimmedURL
		}
		scpHost, scpPath, hasPath := strings.Cut(withoutUser, scpRemotePathSeparatorConstant)
		if !hasPath {
			return RemoteRepository{}, fmt.Errorf(remoteParseErrorTemplate, remoteURL, remotePathTooShortMessage)
		}
		host = scpHost
		repositoryPath = scpPath
	}

	if len(host) == 0 {
		return RemoteRepository{}, fmt.Errorf(remoteParseErrorTemplate, remoteURL, remoteHostMissingMessage)
	}

	repositoryPath = strings.TrimSuffix(strings.Trim(repositoryPath, pathSeparatorConstant), gitSuffixConstant)
	separatorIndex := strings.LastIndex(repositoryPath, pathSeparatorConstant)
	if separatorIndex <= 0 || separatorIndex == len(repositoryPath)-1 {
		return RemoteRepository{}, fmt.Errorf(remoteParseErrorTemplate, remoteURL, remotePathTooShortMessage)
	}

	return RemoteRepository{
		Host:  strings.ToLower(host),
		Owner: repositoryPath[:separatorIndex],
		Name:  repositoryPath[separatorIndex+1:],
	}, nil
}

// ResolveProvider validates a configured provider or infers it from the remote host.
func ResolveProvider(configured Provider, repository RemoteRepository) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(string(configured)))) {
	case ProviderGitHub:
		return ProviderGitHub, nil
	case ProviderGitLab:
		return ProviderGitLab, nil
	case ProviderAuto:
	default:
		return "", fmt.Errorf(unsupportedProviderTemplate, configured)
	}

	switch {
	case strings.Contains(repository.Host, string(ProviderGitHub)):
		return ProviderGitHub, nil
	case strings.Contains(repository.Host, string(ProviderGitLab)):
		return ProviderGitLab, nil
	default:
		return "", fmt.Errorf(undetectedProviderTemplate, repository.Host)
	}
}
