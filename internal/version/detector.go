// Package version resolves the application version from build metadata with a
// git describe fallback for source builds.
package version

import (
	"context"
	"errors"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/execshell"
)

const (
	unknownVersionFallbackConstant            = "unknown"
	buildInfoDevelVersionValueConstant        = "devel"
	gitTerminalPromptEnvironmentNameConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptEnvironmentValueConstant = "0"
	gitExecutorMissingMessageConstant         = "git executor not configured"
)

// GitExecutor runs git commands for version discovery.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// Dependencies describes the collaborators required for version detection.
type Dependencies struct {
	BuildInfoProvider BuildInfoProvider
	GitExecutor       GitExecutor
	WorkingDirectory  string
}

// Detector resolves application version strings.
type Detector struct {
	buildInfoProvider BuildInfoProvider
	gitExecutor       GitExecutor
	workingDirectory  string
}

// NewDetector constructs a Detector with the supplied dependencies or OS-backed defaults.
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

	return &Detector{
		buildInfoProvider: buildInfoProvider,
		gitExecutor:       gitExecutor,
		workingDirectory:  workingDirectory,
	}, nil
}

// Detect resolves the application version using the supplied dependencies.
func Detect(executionContext context.Context, dependencies Dependencies) string {
	detector, detectorError := NewDetector(dependencies)
	if detectorError != nil {
		return unknownVersionFallbackConstant
	}
	return detector.Version(executionContext)
}

// Version returns the detected application version string.
func (detector *Detector) Version(executionContext context.Context) string {
	if detector == nil {
		return unknownVersionFallbackConstant
	}

	if buildVersion := detector.versionFromBuildInfo(); len(buildVersion) > 0 {
		return buildVersion
	}

	repositoryRoot := detector.resolveRepositoryRoot(executionContext)

	if exactVersion := detector.describeVersion(executionContext, repositoryRoot, []string{"describe", "--tags", "--exact-match"}); len(exactVersion) > 0 {
		return exactVersion
	}

	if longVersion := detector.describeVersion(executionContext, repositoryRoot, []string{"describe", "--tags", "--long", "--dirty"}); len(longVersion) > 0 {
		return longVersion
	}

	return unknownVersionFallbackConstant
}

func (detector *Detector) versionFromBuildInfo() string {
	if detector.buildInfoProvider == nil {
		return ""
	}

	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return ""
	}

	trimmedVersion := strings.TrimSpace(buildInfo.Main.Version)
	if len(trimmedVersion) == 0 || strings.EqualFold(trimmedVersion, buildInfoDevelVersionValueConstant) {
		return ""
	}
	return trimmedVersion
}

func (detector *Detector) resolveRepositoryRoot(executionContext context.Context) string {
	if len(detector.workingDirectory) == 0 {
		return ""
	}

	executionResult, executionError := detector.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{"rev-parse", "--show-toplevel"},
		WorkingDirectory: detector.workingDirectory,
	})
	if executionError != nil {
		return detector.workingDirectory
	}

	trimmedPath := strings.TrimSpace(executionResult.StandardOutput)
	if len(trimmedPath) == 0 {
		return detector.workingDirectory
	}
	return trimmedPath
}

func (detector *Detector) describeVersion(executionContext context.Context, repositoryRoot string, arguments []string) string {
	executionResult, executionError := detector.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryRoot,
	})
	if executionError != nil {
		return ""
	}
	return strings.TrimSpace(executionResult.StandardOutput)
}

func (detector *Detector) executeGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	if detector.gitExecutor == nil {
		return execshell.ExecutionResult{}, errors.New(gitExecutorMissingMessageConstant)
	}

	environment := details.EnvironmentVariables
	if environment == nil {
		environment = map[string]string{}
	}
	environment[gitTerminalPromptEnvironmentNameConstant] = gitTerminalPromptEnvironmentValueConstant
	details.EnvironmentVariables = environment

	return detector.gitExecutor.ExecuteGit(executionContext, details)
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
