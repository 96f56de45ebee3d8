package flow

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/internal/gitflow"
	"github.com/tyemirov/gitflow/internal/publish"
)

const (
	publishedReleaseTemplate = "Published %s: %s\n"
	pushedPackagesTemplate   = "Pushed %d package(s)\n"
)

// PublishDependencies lists the injectable collaborators of the publish service.
type PublishDependencies struct {
	TokenResolver    publish.TokenResolver
	PublisherFactory publish.PublisherFactory
	Packages         publish.PackagePushExecutor
	NotesRenderer    publish.NotesRenderer
}

// NewPublishService builds a publish service that reads remotes through the runtime repository manager.
func NewPublishService(runtime Runtime, publishDependencies PublishDependencies, output io.Writer, logger *zap.Logger, humanReadableLogging bool) (*publish.Service, error) {
	return publish.NewService(publish.Dependencies{
		Remotes:              runtime.Repository,
		TokenResolver:        publishDependencies.TokenResolver,
		PublisherFactory:     publishDependencies.PublisherFactory,
		Packages:             publishDependencies.Packages,
		NotesRenderer:        publishDependencies.NotesRenderer,
		Output:               output,
		Logger:               logger,
		HumanReadableLogging: humanReadableLogging,
	})
}

// publishSession holds a resolved token so that publishing after a finish sequence cannot fail on configuration.
type publishSession struct {
	service        *publish.Service
	configuration  publish.Configuration
	repositoryPath string
	remoteName     string
	token          string
	output         io.Writer
}

func (session publishSession) publish(executionContext context.Context, handoff gitflow.Handoff) error {
	outcome, releaseError := session.service.PublishRelease(executionContext, session.configuration, publish.ReleaseOptions{
		RepositoryPath: session.repositoryPath,
		RemoteName:     session.remoteName,
		Handoff:        handoff,
		Token:          session.token,
	})
	if releaseError != nil {
		return releaseError
	}
	fmt.Fprintf(session.output, publishedReleaseTemplate, outcome.Tag, outcome.URL)

	pushResult, pushError := session.service.PushPackages(executionContext, session.configuration, publish.PackageOptions{
		RepositoryPath: session.repositoryPath,
		Token:          session.token,
	})
	if pushError != nil {
		return pushError
	}
	if !pushResult.Skipped {
		fmt.Fprintf(session.output, pushedPackagesTemplate, len(pushResult.Pushed))
	}
	return nil
}
