package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/dependencies"
	"github.com/tyemirov/dsk/internal/shared"
	flagutils "github.com/tyemirov/dsk/internal/utils/flags"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	extractCommandUseConstant               = "extract <archive> [archive...]"
	extractCommandShortDescriptionConstant  = "Extract archives using the tool matching each extension"
	extractCommandLongDescriptionConstant   = "extract unpacks each archive into a directory named after it, dispatching to tar, unzip, 7z, or unrar based on the file extension."
	missingArchivesErrorMessageConstant     = "at least one archive required"
	destinationFlagNameConstant             = "destination"
	destinationFlagDescriptionConstant      = "Extract all archives into this directory instead of per-archive directories"
	extractFailuresErrorTemplateConstant    = "%d of %d archives failed"
	outputLineTemplateConstant              = "%s\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the extract command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	Executor                     CommandExecutor
	FileSystem                   shared.FileSystem
	BinaryLocator                shared.BinaryLocator
	HumanReadableLoggingProvider func() bool
}

// Build constructs the extract command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	extractCommand := &cobra.Command{
		Use:   extractCommandUseConstant,
		Short: extractCommandShortDescriptionConstant,
		Long:  extractCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	extractCommand.Flags().String(destinationFlagNameConstant, "", destinationFlagDescriptionConstant)

	return extractCommand, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		return errors.New(missingArchivesErrorMessageConstant)
	}

	logger := builder.resolveLogger()

	destinationValue, _, destinationError := flagutils.StringFlag(command, destinationFlagNameConstant)
	if destinationError != nil {
		return destinationError
	}

	extractService, serviceError := builder.resolveService(logger)
	if serviceError != nil {
		return serviceError
	}

	executionFlags, _ := flagutils.ResolveExecutionFlags(command)
	policy := batchrunner.Configuration{
		AssumeYes: executionFlags.AssumeYes,
		DryRun:    executionFlags.DryRun,
		Logger:    logger,
	}

	runResult, runError := extractService.Extract(command.Context(), arguments, strings.TrimSpace(destinationValue), policy)
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
		return fmt.Errorf(extractFailuresErrorTemplateConstant, runResult.Failed, runResult.TotalTargets())
	}
	return nil
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
