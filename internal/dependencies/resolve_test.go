package dependencies_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/internal/changelog"
	"github.com/tyemirov/gitflow/internal/dependencies"
	"github.com/tyemirov/gitflow/internal/execshell"
	"github.com/tyemirov/gitflow/internal/gitrepo"
)

func TestResolveFileSystem(t *testing.T) {
	t.Parallel()

	existing := changelog.OSFileSystem{}
	require.Equal(t, existing, dependencies.ResolveFileSystem(existing))

	resolved := dependencies.ResolveFileSystem(nil)
	require.IsType(t, changelog.OSFileSystem{}, resolved)
}

func TestResolveGitExecutor(t *testing.T) {
	t.Parallel()

	existing := stubGitExecutor{}
	reused, reuseError := dependencies.ResolveGitExecutor(existing, nil, false)
	require.NoError(t, reuseError)
	require.Equal(t, existing, reused)

	defaultExecutor, defaultError := dependencies.ResolveGitExecutor(nil, zap.NewNop(), false)
	require.NoError(t, defaultError)
	require.IsType(t, &execshell.ShellExecutor{}, defaultExecutor)

	_, loggerError := dependencies.ResolveGitExecutor(nil, nil, false)
	require.ErrorIs(t, loggerError, execshell.ErrLoggerNotConfigured)
}

func TestResolveGitRepositoryManager(t *testing.T) {
	t.Parallel()

	existing, existingError := gitrepo.NewRepositoryManager(stubGitExecutor{})
	require.NoError(t, existingError)
	reused, reuseError := dependencies.ResolveGitRepositoryManager(existing, nil)
	require.NoError(t, reuseError)
	require.Same(t, existing, reused)

	manager, managerError := dependencies.ResolveGitRepositoryManager(nil, stubGitExecutor{})
	require.NoError(t, managerError)
	require.IsType(t, &gitrepo.RepositoryManager{}, manager)

	_, missingExecutorError := dependencies.ResolveGitRepositoryManager(nil, nil)
	require.ErrorIs(t, missingExecutorError, gitrepo.ErrGitExecutorNotConfigured)
}

type stubGitExecutor struct{}

func (stubGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}
