package version

import (
	"context"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/gitflow/internal/execshell"
)

const (
	unknownVersionFallbackConstant            = "unknown"
	buildInfoDevelVersionValue                = "devel"
	gitTerminalPromptEnvironmentNameConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentValueConstant = "0"
)

// describeStrategies are tried in order until one yields output.
var describeStrategies = [][]string{
	{"describe", "--tags", "--exact-match"},
	{"describe", "--tags", "--long", "--dirty"},
}

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// GitExecutor runs git commands for the detector.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Dependencies describes the collaborators required to report the gitflow binary version.
type Dependencies struct {
	BuildInfoProvider BuildInfoProvider
	GitExecutor       GitExecutor
	WorkingDirectory  string
}

// Detector reports the version of the running gitflow binary.
type Detector struct {
	buildInfoProvider BuildInfoProvider
	gitExecutor       GitExecutor
	workingDirectory  string
}

// NewDetector constructs a Detector, substituting runtime defaults for missing collaborators.
func NewDetector(dependencies Dependencies) (*Detector, error) {
	buildInfoProvider := dependencies.BuildInfoProvider
	if buildInfoProvider == nil {
		buildInfoProvider = runtimeBuildInfoProvider{}
	}

	gitExecutor := dependencies.GitExecutor
	if gitExecutor == nil {
		shellExecutor, creationError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner(), false)
		if creationError != nil {
			return nil, creationError
		}
		gitExecutor = shellExecutor
	}

	workingDirectory := strings.TrimSpace(dependencies.WorkingDirectory)
	if len(workingDirectory) == 0 {
		if currentDirectory, workingDirectoryError := os.Getwd(); workingDirectoryError == nil {
			workingDirectory = currentDirectory
		}
	}

	return &Detector{buildInfoProvider: buildInfoProvider, gitExecutor: gitExecutor, workingDirectory: workingDirectory}, nil
}

// Detect is a convenience wrapper returning "unknown" when detection cannot start.
func Detect(executionContext context.Context, dependencies Dependencies) string {
	detector, detectorError := NewDetector(dependencies)
	if detectorError != nil {
		return unknownVersionFallbackConstant
	}
	return detector.Version(executionContext)
}

// Version prefers module build information and falls back to describing the source checkout.
func (detector *Detector) Version(executionContext context.Context) string {
	if detector == nil {
		return unknownVersionFallbackConstant
	}

	if buildVersion := detector.buildVersion(); len(buildVersion) > 0 {
		return buildVersion
	}

	for _, arguments := range describeStrategies {
		if described := detector.gitOutput(executionContext, arguments); len(described) > 0 {
			return described
		}
	}
	return unknownVersionFallbackConstant
}

func (detector *Detector) buildVersion() string {
	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return ""
	}
	moduleVersion := strings.TrimSpace(buildInfo.Main.Version)
	if strings.EqualFold(moduleVersion, buildInfoDevelVersionValue) || strings.EqualFold(moduleVersion, "("+buildInfoDevelVersionValue+")") {
		return ""
	}
	return moduleVersion
}

func (detector *Detector) gitOutput(executionContext context.Context, arguments []string) string {
	if detector.gitExecutor == nil {
		return ""
	}
	executionResult, executionError := detector.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     detector.workingDirectory,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptEnvironmentValueConstant},
	})
	if executionError != nil {
		return ""
	}
	return strings.TrimSpace(executionResult.StandardOutput)
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
