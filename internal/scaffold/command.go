package scaffold

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/dependencies"
	"github.com/tyemirov/dsk/internal/shared"
	flagutils "github.com/tyemirov/dsk/internal/utils/flags"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	projectCommandUseConstant              = "project"
	projectCommandShortDescriptionConstant = "Manage project scaffolding"
	initCommandUseConstant                 = "init <name>"
	initCommandShortDescriptionConstant    = "Scaffold a new project directory"
	initCommandLongDescriptionConstant     = "init creates a project directory with a README, gitignore, optional Go module, and an initialized git repository."
	missingProjectNameErrorMessageConstant = "project name required"
	tooManyArgumentsErrorMessageConstant   = "init accepts exactly one project name"
	kindFlagNameConstant                   = "kind"
	kindFlagDescriptionConstant            = "Project kind"
	modulePrefixFlagNameConstant           = "module-prefix"
	modulePrefixFlagDescriptionConstant    = "Module path prefix used for Go projects (for example github.com/acme)"
	directoryFlagNameConstant              = "directory"
	directoryFlagDescriptionConstant       = "Parent directory for the new project (defaults to the working directory)"
	initFailuresErrorTemplateConstant      = "%d of %d scaffolding steps failed"
	outputLineTemplateConstant             = "%s\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current scaffolding configuration.
type ConfigurationProvider func() CommandConfiguration

// WorkingDirectoryResolver resolves the directory new projects are created in.
type WorkingDirectoryResolver func() (string, error)

// CommandBuilder assembles the project command tree.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	GitExecutor                  GitExecutor
	FileSystem                   shared.FileSystem
	WorkingDirectoryResolver     WorkingDirectoryResolver
	HumanReadableLoggingProvider func() bool
}

// Build constructs the project command with its init subcommand.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	projectCommand := &cobra.Command{
		Use:   projectCommandUseConstant,
		Short: projectCommandShortDescriptionConstant,
	}

	initCommand := &cobra.Command{
		Use:   initCommandUseConstant,
		Short: initCommandShortDescriptionConstant,
		Long:  initCommandLongDescriptionConstant,
		RunE:  builder.runInit,
	}

	initCommand.Flags().String(kindFlagNameConstant, "", flagutils.FormatChoiceUsage(defaultProjectKindConstant, []string{ProjectKindPlain, ProjectKindGo}, kindFlagDescriptionConstant))
	initCommand.Flags().String(modulePrefixFlagNameConstant, "", modulePrefixFlagDescriptionConstant)
	initCommand.Flags().String(directoryFlagNameConstant, "", directoryFlagDescriptionConstant)

	projectCommand.AddCommand(initCommand)
	return projectCommand, nil
}

func (builder *CommandBuilder) runInit(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		return errors.New(missingProjectNameErrorMessageConstant)
	}
	if len(arguments) > 1 {
		return errors.New(tooManyArgumentsErrorMessageConstant)
	}

	projectName, nameError := NewProjectName(arguments[0])
	if nameError != nil {
		return nameError
	}

	logger := builder.resolveLogger()

	configuration, parentDirectory, optionsError := builder.parseCommandOptions(command)
	if optionsError != nil {
		return optionsError
	}

	scaffoldService, serviceError := builder.resolveService(logger)
	if serviceError != nil {
		return serviceError
	}

	executionFlags, _ := flagutils.ResolveExecutionFlags(command)
	policy := batchrunner.Configuration{
		AssumeYes: executionFlags.AssumeYes,
		DryRun:    executionFlags.DryRun,
		Logger:    logger,
	}

	runResult, runError := scaffoldService.Initialize(command.Context(), parentDirectory, projectName, configuration, policy)
	if runError != nil {
		return runError
	}

	for _, outcome := range runResult.Outcomes {
		fmt.Fprintf(command.OutOrStdout(), outputLineTemplateConstant, batchrunner.RenderOutcomeLine(outcome))
	}
	if summaryLine := batchrunner.RenderSummaryLine(runResult); len(summaryLine) > 0 {
		fmt.Fprintf(command.OutOrStdout(), outputLineTemplateConstant, summaryLine)
	}

	if runResult.Failed > 0 {
		return fmt.Errorf(initFailuresErrorTemplateConstant, runResult.Failed, runResult.TotalTargets())
	}
	return nil
}

func (builder *CommandBuilder) parseCommandOptions(command *cobra.Command) (CommandConfiguration, string, error) {
	configuration := builder.resolveConfiguration()

	kindValue, kindChanged, kindError := flagutils.StringFlag(command, kindFlagNameConstant)
	if kindError != nil {
		return CommandConfiguration{}, "", kindError
	}
	if kindChanged {
		configuration.Kind = kindValue
	}

	modulePrefixValue, modulePrefixChanged, modulePrefixError := flagutils.StringFlag(command, modulePrefixFlagNameConstant)
	if modulePrefixError != nil {
		return CommandConfiguration{}, "", modulePrefixError
	}
	if modulePrefixChanged {
		configuration.ModulePrefix = modulePrefixValue
	}

	directoryValue, _, directoryError := flagutils.StringFlag(command, directoryFlagNameConstant)
	if directoryError != nil {
		return CommandConfiguration{}, "", directoryError
	}

	parentDirectory := directoryValue
	if len(parentDirectory) == 0 {
		resolvedDirectory, workingDirectoryError := builder.resolveWorkingDirectory()
		if workingDirectoryError != nil {
			return CommandConfiguration{}, "", workingDirectoryError
		}
		parentDirectory = resolvedDirectory
	}

	return configuration.Sanitize(), parentDirectory, nil
}

func (builder *CommandBuilder) resolveWorkingDirectory() (string, error) {
	if builder.WorkingDirectoryResolver != nil {
		return builder.WorkingDirectoryResolver()
	}
	return os.Getwd()
}

func (builder *CommandBuilder) resolveService(logger *zap.Logger) (*Service, error) {
	gitExecutor := builder.GitExecutor
	if gitExecutor == nil {
		shellExecutor, executorError := dependencies.ResolveShellExecutor(nil, logger, builder.humanReadableLoggingEnabled())
		if executorError != nil {
			return nil, executorError
		}
		gitExecutor = shellExecutor
	}
	return NewService(logger, gitExecutor, dependencies.ResolveFileSystem(builder.FileSystem))
}

func (builder *CommandBuilder) humanReadableLoggingEnabled() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	return configuration.Sanitize()
}
