package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/tyemirov/gitflow/internal/flowerrors"
)

const (
	apiBaseURLParseTemplate       = "parse GitHub API base URL %q: %w"
	uploadBaseURLParseTemplate    = "parse GitHub upload base URL %q: %w"
	createReleaseErrorTemplate    = "create release %s on %s: %w"
	uploadAssetErrorTemplate      = "upload %s to release %s: %w"
	openAssetErrorTemplate        = "open artifact %s: %w"
	githubTokenMissingMessage     = "GitHub token is required"
	repositoryOwnerMissingMessage = "repository owner and name are required"
)

// ReleaseRequest describes a hosted release to create.
type ReleaseRequest struct {
	Repository RemoteRepository
	Tag        string
	Name       string
	CommitSha  string
	Body       string
	Prerelease bool
	Assets     []string
}

// PublishedRelease reports what the hosting service accepted.
type PublishedRelease struct {
	URL            string
	UploadedAssets []string
}

// ReleasePublisher creates hosted releases.
type ReleasePublisher interface {
	PublishRelease(executionContext context.Context, request ReleaseRequest) (PublishedRelease, error)
}

// GitHubConfiguration overrides the endpoints used by the GitHub publisher, e.g. for GitHub Enterprise.
type GitHubConfiguration struct {
	APIBaseURL    string
	UploadBaseURL string
	HTTPClient    *http.Client
}

// GitHubPublisher publishes releases with go-github.
type GitHubPublisher struct {
	client *github.Client
}

// NewGitHubPublisher builds a publisher authenticated with a static OAuth2 token.
func NewGitHubPublisher(executionContext context.Context, token string, configuration GitHubConfiguration) (*GitHubPublisher, error) {
	if len(strings.TrimSpace(token)) == 0 {
		return nil, errors.New(githubTokenMissingMessage)
	}

	if configuration.HTTPClient != nil {
		executionContext = context.WithValue(executionContext, oauth2.HTTPClient, configuration.HTTPClient)
	}
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(token)})
	client := github.NewClient(oauth2.NewClient(executionContext, tokenSource))

	if baseURL := strings.TrimSpace(configuration.APIBaseURL); len(baseURL) > 0 {
		parsedURL, parseError := client.BaseURL.Parse(withTrailingSlash(baseURL))
		if parseError != nil {
			return nil, fmt.Errorf(apiBaseURLParseTemplate, baseURL, parseError)
		}
		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}
	if uploadURL := strings.TrimSpace(configuration.UploadBaseURL); len(uploadURL) > 0 {
		parsedURL, parseError := client.UploadURL.Parse(withTrailingSlash(uploadURL))
		if parseError != nil {
			return nil, fmt.Errorf(uploadBaseURLParseTemplate, uploadURL, parseError)
		}
		client.UploadURL = parsedURL
	}

	return &GitHubPublisher{client: client}, nil
}

// PublishRelease creates the release on the requested commit and uploads every asset.
// Assets uploaded before a failure stay attached to the release.
func (publisher *GitHubPublisher) PublishRelease(executionContext context.Context, request ReleaseRequest) (PublishedRelease, error) {
	if len(request.Repository.Owner) == 0 || len(request.Repository.Name) == 0 {
		return PublishedRelease{}, errors.New(repositoryOwnerMissingMessage)
	}
	owner, name := request.Repository.Owner, request.Repository.Name

	release, _, createError := publisher.client.Repositories.CreateRelease(executionContext, owner, name, &github.RepositoryRelease{
		TagName:         github.String(request.Tag),
		TargetCommitish: github.String(request.CommitSha),
		Name:            github.String(request.Name),
		Body:            github.String(request.Body),
		Draft:           github.Bool(false),
		Prerelease:      github.Bool(request.Prerelease),
	})
	if createError != nil {
		return PublishedRelease{}, flowerrors.Wrap(flowerrors.OperationPublishRelease, request.Tag, flowerrors.ErrReleaseCreateFailed,
			fmt.Errorf(createReleaseErrorTemplate, request.Tag, request.Repository.FullName(), createError))
	}

	published := PublishedRelease{URL: release.GetHTMLURL()}
	for _, assetPath := range request.Assets {
		if uploadError := publisher.uploadAsset(executionContext, owner, name, release.GetID(), assetPath); uploadError != nil {
			return published, flowerrors.Wrap(flowerrors.OperationPublishRelease, filepath.Base(assetPath), flowerrors.ErrAssetUploadFailed,
				fmt.Errorf(uploadAssetErrorTemplate, filepath.Base(assetPath), request.Tag, uploadError))
		}
		published.UploadedAssets = append(published.UploadedAssets, filepath.Base(assetPath))
	}
	return published, nil
}

func (publisher *GitHubPublisher) uploadAsset(executionContext context.Context, owner string, name string, releaseID int64, assetPath string) error {
	assetFile, openError := os.Open(assetPath)
	if openError != nil {
		return fmt.Errorf(openAssetErrorTemplate, assetPath, openError)
	}
	defer assetFile.Close()

	_, _, uploadError := publisher.client.Repositories.UploadReleaseAsset(executionContext, owner, name, releaseID,
		&github.UploadOptions{Name: filepath.Base(assetPath)}, assetFile)
	return uploadError
}

func withTrailingSlash(rawURL string) string {
	if strings.HasSuffix(rawURL, pathSeparatorConstant) {
		return rawURL
	}
	return rawURL + pathSeparatorConstant
}
