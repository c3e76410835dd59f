package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/modfile"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/tools/imports"

	"github.com/tyemirov/dsk/internal/execshell"
	"github.com/tyemirov/dsk/internal/shared"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	executorNotConfiguredMessageConstant   = "git executor not configured"
	fileSystemNotConfiguredMessageConstant = "file system not configured"
	projectNameInvalidMessageConstant      = "project name invalid"

	projectDirectoryTargetNameConstant = "project directory"
	readmeTargetNameConstant           = "readme"
	gitignoreTargetNameConstant        = "gitignore"
	goModuleTargetNameConstant         = "go module"
	gitRepositoryTargetNameConstant    = "git repository"

	directoryOccupiedReasonConstant      = "directory exists and is not empty"
	directoryMissingReasonConstant       = "project directory not created"
	modulePrefixMissingReasonConstant    = "module prefix not configured"
	fileInspectReasonTemplateConstant    = "unable to inspect %s: %v"
	projectDirectoryPermissionsConstant  = 0o755
	scaffoldedFilePermissionsConstant    = 0o644
	readmeFileNameConstant               = "README.md"
	gitignoreFileNameConstant            = ".gitignore"
	goModFileNameConstant                = "go.mod"
	mainGoFileNameConstant               = "main.go"
	gitDirectoryNameConstant             = ".git"
	initialCommitMessageConstant         = "Initial commit"

	readmeContentTemplateConstant = "# %s\n"
	gitignoreContentConstant      = "*.log\n*.tmp\n.DS_Store\nbin/\ndist/\n"
	mainSourceTemplateConstant    = "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"%s\")\n}\n"

	logMessageScaffoldingProjectConstant = "Scaffolding project"
	logFieldProjectNameConstant          = "project"
	logFieldProjectKindConstant          = "kind"
)

var projectNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

var (
	errScaffoldExecutorNotConfigured   = errors.New(executorNotConfiguredMessageConstant)
	errScaffoldFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
	errProjectNameInvalid              = errors.New(projectNameInvalidMessageConstant)
)

// GitExecutor runs git commands for repository initialization.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Service scaffolds new project directories.
type Service struct {
	logger      *zap.Logger
	gitExecutor GitExecutor
	fileSystem  shared.FileSystem
	titleCaser  cases.Caser
}

// NewService constructs a Service instance.
func NewService(logger *zap.Logger, gitExecutor GitExecutor, fileSystem shared.FileSystem) (*Service, error) {
	if gitExecutor == nil {
		return nil, errScaffoldExecutorNotConfigured
	}
	if fileSystem == nil {
		return nil, errScaffoldFileSystemNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:      logger,
		gitExecutor: gitExecutor,
		fileSystem:  fileSystem,
		titleCaser:  cases.Title(language.English),
	}, nil
}

// ProjectName captures a validated project directory name.
type ProjectName struct {
	value string
}

// NewProjectName validates project names against a conservative slug pattern.
func NewProjectName(rawValue string) (ProjectName, error) {
	trimmed := strings.ToLower(strings.TrimSpace(rawValue))
	if len(trimmed) == 0 {
		return ProjectName{}, fmt.Errorf("%w: empty", errProjectNameInvalid)
	}
	if !projectNamePattern.MatchString(trimmed) {
		return ProjectName{}, fmt.Errorf("%w: %s", errProjectNameInvalid, trimmed)
	}
	return ProjectName{value: trimmed}, nil
}

// String exposes the project name value.
func (projectName ProjectName) String() string {
	if len(projectName.value) == 0 {
		panic("scaffold.ProjectName: zero value")
	}
	return projectName.value
}

// Title renders the project name as an English document title.
func (service *Service) projectTitle(projectName ProjectName) string {
	spaced := strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(projectName.String())
	return service.titleCaser.String(spaced)
}

// Initialize scaffolds the named project under parentDirectory.
func (service *Service) Initialize(executionContext context.Context, parentDirectory string, projectName ProjectName, configuration CommandConfiguration, policy batchrunner.Configuration) (batchrunner.RunResult, error) {
	sanitized := configuration.Sanitize()
	projectPath := filepath.Join(parentDirectory, projectName.String())

	service.logger.Info(logMessageScaffoldingProjectConstant,
		zap.String(logFieldProjectNameConstant, projectName.String()),
		zap.String(logFieldProjectKindConstant, sanitized.Kind),
	)

	targets := []batchrunner.Target{
		service.projectDirectoryTarget(projectPath),
		service.fileTarget(readmeTargetNameConstant, projectPath, readmeFileNameConstant, func() ([]byte, error) {
			return []byte(fmt.Sprintf(readmeContentTemplateConstant, service.projectTitle(projectName))), nil
		}),
		service.fileTarget(gitignoreTargetNameConstant, projectPath, gitignoreFileNameConstant, func() ([]byte, error) {
			return []byte(gitignoreContentConstant), nil
		}),
	}
	if sanitized.Kind == ProjectKindGo {
		targets = append(targets, service.goModuleTarget(projectPath, projectName, sanitized))
	}
	targets = append(targets, service.gitRepositoryTarget(projectPath))

	return batchrunner.NewRunner(policy).Run(executionContext, targets), nil
}

func (service *Service) projectDirectoryTarget(projectPath string) batchrunner.Target {
	return batchrunner.Target{
		Name: projectDirectoryTargetNameConstant,
		Precondition: func(executionContext context.Context) batchrunner.Precondition {
			directoryInfo, statError := service.fileSystem.Stat(projectPath)
			if statError != nil {
				return batchrunner.Ready()
			}
			if !directoryInfo.IsDir() {
				return batchrunner.Blocked(directoryOccupiedReasonConstant)
			}
			entries, readError := service.fileSystem.ReadDir(projectPath)
			if readError == nil && len(entries) > 0 && !containsScaffoldMarker(entries) {
				return batchrunner.Blocked(directoryOccupiedReasonConstant)
			}
			return batchrunner.AlreadyDone()
		},
		Action: func(executionContext context.Context) error {
			return service.fileSystem.MkdirAll(projectPath, projectDirectoryPermissionsConstant)
		},
	}
}

// containsScaffoldMarker reports whether the directory already looks like a
// previously scaffolded project, which keeps repeated runs convergent.
func containsScaffoldMarker(entries []fs.DirEntry) bool {
	for _, entry := range entries {
		switch entry.Name() {
		case readmeFileNameConstant, gitDirectoryNameConstant:
			return true
		}
	}
	return false
}

func (service *Service) fileTarget(targetName string, projectPath string, fileName string, renderContent func() ([]byte, error)) batchrunner.Target {
	filePath := filepath.Join(projectPath, fileName)
	return batchrunner.Target{
		Name:         targetName,
		Precondition: service.missingFilePrecondition(projectPath, filePath, fileName),
		Action: func(executionContext context.Context) error {
			fileContent, renderError := renderContent()
			if renderError != nil {
				return renderError
			}
			return service.fileSystem.WriteFile(filePath, fileContent, scaffoldedFilePermissionsConstant)
		},
	}
}

func (service *Service) missingFilePrecondition(projectPath string, filePath string, fileName string) func(context.Context) batchrunner.Precondition {
	return func(executionContext context.Context) batchrunner.Precondition {
		if directoryInfo, statError := service.fileSystem.Stat(projectPath); statError != nil || !directoryInfo.IsDir() {
			return batchrunner.Blocked(directoryMissingReasonConstant)
		}
		if _, statError := service.fileSystem.Stat(filePath); statError == nil {
			return batchrunner.AlreadyDone()
		} else if !errors.Is(statError, fs.ErrNotExist) {
			return batchrunner.Blocked(fmt.Sprintf(fileInspectReasonTemplateConstant, fileName, statError))
		}
		return batchrunner.Ready()
	}
}

func (service *Service) goModuleTarget(projectPath string, projectName ProjectName, configuration CommandConfiguration) batchrunner.Target {
	goModPath := filepath.Join(projectPath, goModFileNameConstant)
	return batchrunner.Target{
		Name: goModuleTargetNameConstant,
		Precondition: func(executionContext context.Context) batchrunner.Precondition {
			if len(configuration.ModulePrefix) == 0 {
				return batchrunner.Blocked(modulePrefixMissingReasonConstant)
			}
			return service.missingFilePrecondition(projectPath, goModPath, goModFileNameConstant)(executionContext)
		},
		Action: func(executionContext context.Context) error {
			modulePath := configuration.ModulePrefix + "/" + projectName.String()

			goModContent, goModError := renderGoModFile(modulePath, configuration.GoVersion)
			if goModError != nil {
				return goModError
			}
			if writeError := service.fileSystem.WriteFile(goModPath, goModContent, scaffoldedFilePermissionsConstant); writeError != nil {
				return writeError
			}

			mainSource := fmt.Sprintf(mainSourceTemplateConstant, service.projectTitle(projectName))
			formattedSource, formatError := imports.Process(mainGoFileNameConstant, []byte(mainSource), nil)
			if formatError != nil {
				return formatError
			}
			return service.fileSystem.WriteFile(filepath.Join(projectPath, mainGoFileNameConstant), formattedSource, scaffoldedFilePermissionsConstant)
		},
	}
}

func renderGoModFile(modulePath string, goVersion string) ([]byte, error) {
	goModFile := &modfile.File{}
	if moduleError := goModFile.AddModuleStmt(modulePath); moduleError != nil {
		return nil, moduleError
	}
	if goError := goModFile.AddGoStmt(goVersion); goError != nil {
		return nil, goError
	}
	goModFile.Cleanup()
	return goModFile.Format()
}

func (service *Service) gitRepositoryTarget(projectPath string) batchrunner.Target {
	return batchrunner.Target{
		Name: gitRepositoryTargetNameConstant,
		Precondition: func(executionContext context.Context) batchrunner.Precondition {
			if directoryInfo, statError := service.fileSystem.Stat(projectPath); statError != nil || !directoryInfo.IsDir() {
				return batchrunner.Blocked(directoryMissingReasonConstant)
			}
			gitLocation := filepath.Join(projectPath, gitDirectoryNameConstant)
			if gitInfo, statError := service.fileSystem.Stat(gitLocation); statError == nil && gitInfo.IsDir() {
				return batchrunner.AlreadyDone()
			}
			return batchrunner.Ready()
		},
		Action: func(executionContext context.Context) error {
			gitCommands := [][]string{
				{"init"},
				{"add", "."},
				{"commit", "-m", initialCommitMessageConstant},
			}
			for _, gitArguments := range gitCommands {
				commandDetails := execshell.CommandDetails{Arguments: gitArguments, WorkingDirectory: projectPath}
				if _, executionError := service.gitExecutor.ExecuteGit(executionContext, commandDetails); executionError != nil {
					return executionError
				}
			}
			return nil
		},
	}
}
