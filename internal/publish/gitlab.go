package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/xanzy/go-gitlab"

	"github.com/tyemirov/gitflow/internal/flowerrors"
)

const (
	gitlabTokenMissingMessage      = "GitLab token is required"
	gitlabClientErrorTemplate      = "create GitLab client: %w"
	gitlabUploadErrorTemplate      = "upload %s to project %s: %w"
	gitlabCreateReleaseTemplate    = "create release %s on %s: %w"
	gitlabDefaultHostConstant      = "gitlab.com"
	gitlabReleasePathTemplate      = "%s/-/releases/%s"
	gitlabUploadLinkTemplate       = "%s%s"
	gitlabProjectMissingMessage    = "project path is required"
	gitlabAssetReadErrorTemplate   = "read artifact %s: %w"
	gitlabAssetUploadLinkSeparator = pathSeparatorConstant
)

// GitLabConfiguration overrides the endpoint used by the GitLab publisher.
// An empty BaseURL targets the host of the remote repository.
type GitLabConfiguration struct {
	BaseURL    string
	HTTPClient *http.Client
}

// GitLabPublisher publishes releases with go-gitlab. Assets are uploaded as project
// uploads and linked from the release.
type GitLabPublisher struct {
	client *gitlab.Client
}

// NewGitLabPublisher builds a publisher for the host of the repository.
func NewGitLabPublisher(token string, repository RemoteRepository, configuration GitLabConfiguration) (*GitLabPublisher, error) {
	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return nil, errors.New(gitlabTokenMissingMessage)
	}

	var options []gitlab.ClientOptionFunc
	baseURL := strings.TrimSpace(configuration.BaseURL)
	if len(baseURL) == 0 && len(repository.Host) > 0 && repository.Host != gitlabDefaultHostConstant {
		baseURL = httpsSchemeConstant + "://" + repository.Host
	}
	if len(baseURL) > 0 {
		options = append(options, gitlab.WithBaseURL(baseURL))
	}
	if configuration.HTTPClient != nil {
		options = append(options, gitlab.WithHTTPClient(configuration.HTTPClient))
	}

	client, clientError := gitlab.NewClient(trimmedToken, options...)
	if clientError != nil {
		return nil, fmt.Errorf(gitlabClientErrorTemplate, clientError)
	}
	return &GitLabPublisher{client: client}, nil
}

// PublishRelease uploads the assets and creates a release on the requested commit linking them.
func (publisher *GitLabPublisher) PublishRelease(executionContext context.Context, request ReleaseRequest) (PublishedRelease, error) {
	if len(request.Repository.Owner) == 0 || len(request.Repository.Name) == 0 {
		return PublishedRelease{}, errors.New(gitlabProjectMissingMessage)
	}
	projectPath := request.Repository.FullName()

	published := PublishedRelease{}
	links := make([]*gitlab.ReleaseAssetLinkOptions, 0, len(request.Assets))
	for _, assetPath := range request.Assets {
		assetName := filepath.Base(assetPath)
		uploadedURL, uploadError := publisher.uploadAsset(executionContext, projectPath, assetPath)
		if uploadError != nil {
			return published, flowerrors.Wrap(flowerrors.OperationPublishRelease, assetName, flowerrors.ErrAssetUploadFailed,
				fmt.Errorf(gitlabUploadErrorTemplate, assetName, projectPath, uploadError))
		}
		links = append(links, &gitlab.ReleaseAssetLinkOptions{
			Name: gitlab.Ptr(assetName),
			URL:  gitlab.Ptr(fmt.Sprintf(gitlabUploadLinkTemplate, request.Repository.WebURL(), uploadedURL)),
		})
		published.UploadedAssets = append(published.UploadedAssets, assetName)
	}

	releaseOptions := &gitlab.CreateReleaseOptions{
		Name:        gitlab.Ptr(request.Name),
		TagName:     gitlab.Ptr(request.Tag),
		Description: gitlab.Ptr(request.Body),
		Ref:         gitlab.Ptr(request.CommitSha),
	}
	if len(links) > 0 {
		releaseOptions.Assets = &gitlab.ReleaseAssetsOptions{Links: links}
	}

	_, _, createError := publisher.client.Releases.CreateRelease(projectPath, releaseOptions, gitlab.WithContext(executionContext))
	if createError != nil {
		return published, flowerrors.Wrap(flowerrors.OperationPublishRelease, request.Tag, flowerrors.ErrReleaseCreateFailed,
			fmt.Errorf(gitlabCreateReleaseTemplate, request.Tag, projectPath, createError))
	}
	published.URL = fmt.Sprintf(gitlabReleasePathTemplate, request.Repository.WebURL(), request.Tag)
	return published, nil
}

func (publisher *GitLabPublisher) uploadAsset(executionContext context.Context, projectPath string, assetPath string) (string, error) {
	assetFile, openError := os.Open(assetPath)
	if openError != nil {
		return "", fmt.Errorf(gitlabAssetReadErrorTemplate, assetPath, openError)
	}
	defer assetFile.Close()

	projectFile, _, uploadError := publisher.client.Projects.UploadFile(projectPath, assetFile, filepath.Base(assetPath), gitlab.WithContext(executionContext))
	if uploadError != nil {
		return "", uploadError
	}
	if strings.HasPrefix(projectFile.URL, gitlabAssetUploadLinkSeparator) {
		return projectFile.URL, nil
	}
	return gitlabAssetUploadLinkSeparator + projectFile.URL, nil
}
