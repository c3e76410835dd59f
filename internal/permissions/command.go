package permissions

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/dependencies"
	"github.com/tyemirov/dsk/internal/shared"
	flagutils "github.com/tyemirov/dsk/internal/utils/flags"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	permsCommandUseConstant                = "perms"
	permsCommandShortDescriptionConstant   = "Manage filesystem permissions"
	resetCommandUseConstant                = "reset <path> [path...]"
	resetCommandShortDescriptionConstant   = "Reset directories to 0755 and files to 0644"
	resetCommandLongDescriptionConstant    = "reset walks each provided tree and normalizes directory permissions to 0755 and regular file permissions to 0644. Symbolic links are left untouched."
	keepExecutableFlagNameConstant         = "keep-executable"
	keepExecutableFlagDescriptionConstant  = "Preserve the executable bit on files that already have one"
	currentDirectoryPathConstant           = "."
	resetFailuresErrorTemplateConstant     = "%d of %d paths failed"
	outputLineTemplateConstant             = "%s\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the perms command tree.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	FileSystem     shared.FileSystem
	Prompter       shared.ConfirmationPrompter
}

// Build constructs the perms command with its reset subcommand.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	permsCommand := &cobra.Command{
		Use:   permsCommandUseConstant,
		Short: permsCommandShortDescriptionConstant,
	}

	resetCommand := &cobra.Command{
		Use:   resetCommandUseConstant,
		Short: resetCommandShortDescriptionConstant,
		Long:  resetCommandLongDescriptionConstant,
		RunE:  builder.runReset,
	}

	resetCommand.Flags().Bool(keepExecutableFlagNameConstant, false, keepExecutableFlagDescriptionConstant)

	permsCommand.AddCommand(resetCommand)
	return permsCommand, nil
}

func (builder *CommandBuilder) runReset(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()

	rootPaths := arguments
	if len(rootPaths) == 0 {
		rootPaths = []string{currentDirectoryPathConstant}
	}

	keepExecutableValue, _, keepExecutableError := flagutils.BoolFlag(command, keepExecutableFlagNameConstant)
	if keepExecutableError != nil {
		return keepExecutableError
	}

	service, serviceError := NewService(logger, dependencies.ResolveFileSystem(builder.FileSystem))
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

	runResult, runError := service.Reset(command.Context(), rootPaths, Options{KeepExecutable: keepExecutableValue}, policy)
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
		return fmt.Errorf(resetFailuresErrorTemplateConstant, runResult.Failed, runResult.TotalTargets())
	}
	return nil
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
