package dependencies

import (
	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/internal/changelog"
	"github.com/tyemirov/gitflow/internal/execshell"
	"github.com/tyemirov/gitflow/internal/gitrepo"
)

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing changelog.FileSystem) changelog.FileSystem {
	if existing != nil {
		return existing
	}
	return changelog.OSFileSystem{}
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
func ResolveGitExecutor(existing gitrepo.GitCommandExecutor, logger *zap.Logger, humanReadableLogging bool) (gitrepo.GitCommandExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner, humanReadableLogging)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveGitRepositoryManager returns the provided repository manager or constructs one from the executor.
func ResolveGitRepositoryManager(existing *gitrepo.RepositoryManager, executor gitrepo.GitCommandExecutor) (*gitrepo.RepositoryManager, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewRepositoryManager(executor)
}
