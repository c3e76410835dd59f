package cleanup

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/dependencies"
	"github.com/tyemirov/dsk/internal/shared"
	flagutils "github.com/tyemirov/dsk/internal/utils/flags"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	cleanCommandUseConstant                 = "clean"
	cleanCommandShortDescriptionConstant    = "Free disk space by clearing caches, orphans, journals, and trash"
	cleanCommandLongDescriptionConstant     = "clean removes package caches, vacuumed journal logs, the user cache, and trash contents, reporting the space each step freed."
	unexpectedArgumentsErrorMessageConstant = "clean does not accept positional arguments"
	aggressiveFlagNameConstant              = "aggressive"
	aggressiveFlagDescriptionConstant       = "Also remove orphaned packages and the full package cache"
	reportFormatFlagNameConstant            = "report-format"
	reportFormatFlagDescriptionConstant     = "Report output format"
	cleanFailuresErrorTemplateConstant      = "%d of %d cleanup targets failed"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current cleanup configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the clean command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	Executor                     CommandExecutor
	FileSystem                   shared.FileSystem
	BinaryLocator                shared.BinaryLocator
	Prompter                     shared.ConfirmationPrompter
	Clock                        shared.Clock
	HumanReadableLoggingProvider func() bool
}

// Build constructs the clean command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	cleanCommand := &cobra.Command{
		Use:   cleanCommandUseConstant,
		Short: cleanCommandShortDescriptionConstant,
		Long:  cleanCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	cleanCommand.Flags().Bool(aggressiveFlagNameConstant, false, aggressiveFlagDescriptionConstant)
	cleanCommand.Flags().String(reportFormatFlagNameConstant, "", flagutils.FormatChoiceUsage(defaultReportFormatConstant, []string{ReportFormatText, ReportFormatYAML}, reportFormatFlagDescriptionConstant))

	return cleanCommand, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	logger := builder.resolveLogger()

	configuration, configurationError := builder.parseCommandOptions(command)
	if configurationError != nil {
		return configurationError
	}

	cleanupService, serviceError := builder.resolveService(logger)
	if serviceError != nil {
		return serviceError
	}

	executionFlags, _ := flagutils.ResolveExecutionFlags(command)
	policy := batchrunner.Configuration{
		Prompter:  dependencies.ResolveConfirmationPrompter(builder.Prompter, command, executionFlags.AssumeYes),
		AssumeYes: executionFlags.AssumeYes,
		DryRun:    executionFlags.DryRun,
		Logger:    logger,
	}

	runResult, runError := cleanupService.Clean(command.Context(), configuration, policy)
	if runError != nil {
		return runError
	}

	report := BuildReport(builder.Clock, configuration, runResult)
	if renderError := RenderReport(command.OutOrStdout(), configuration.ReportFormat, report, runResult); renderError != nil {
		return renderError
	}

	if runResult.Failed > 0 {
		return fmt.Errorf(cleanFailuresErrorTemplateConstant, runResult.Failed, runResult.TotalTargets())
	}
	return nil
}

func (builder *CommandBuilder) parseCommandOptions(command *cobra.Command) (CommandConfiguration, error) {
	configuration := builder.resolveConfiguration()

	aggressiveValue, aggressiveChanged, aggressiveError := flagutils.BoolFlag(command, aggressiveFlagNameConstant)
	if aggressiveError != nil {
		return CommandConfiguration{}, aggressiveError
	}
	if aggressiveChanged {
		configuration.Aggressive = aggressiveValue
	}

	reportFormatValue, reportFormatChanged, reportFormatError := flagutils.StringFlag(command, reportFormatFlagNameConstant)
	if reportFormatError != nil {
		return CommandConfiguration{}, reportFormatError
	}
	if reportFormatChanged {
		configuration.ReportFormat = reportFormatValue
	}

	return configuration.Sanitize(), nil
}

func (builder *CommandBuilder) resolveService(logger *zap.Logger) (*Service, error) {
	executor := builder.Executor
	if executor == nil {
		shellExecutor, executorError := dependencies.ResolveShellExecutor(nil, logger, builder.humanReadableLoggingEnabled())
		if executorError != nil {
			return nil, executorError
		}
		executor = shellExecutor
	}

	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	binaryLocator := dependencies.ResolveBinaryLocator(builder.BinaryLocator)
	return NewService(logger, executor, fileSystem, binaryLocator)
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
