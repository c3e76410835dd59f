package mount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/dependencies"
	"github.com/tyemirov/dsk/internal/execshell"
	"github.com/tyemirov/dsk/internal/shared"
	flagutils "github.com/tyemirov/dsk/internal/utils/flags"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	mountCommandUseConstant                 = "mount"
	mountCommandShortDescriptionConstant    = "Mount configured rclone remotes"
	mountCommandLongDescriptionConstant     = "mount mounts every configured rclone remote onto its mount point, skipping remotes that are already mounted."
	unexpectedArgumentsErrorMessageConstant = "mount does not accept positional arguments"
	unmountFlagNameConstant                 = "unmount"
	unmountFlagDescriptionConstant          = "Unmount the configured remotes instead of mounting them"
	remotesFileFlagNameConstant             = "remotes-file"
	remotesFileFlagDescriptionConstant      = "Path to a YAML file declaring the remotes to operate on"
	remotesFileLoadErrorTemplateConstant    = "unable to load remotes file: %w"
	mountFailuresErrorTemplateConstant      = "%d of %d remotes failed"
	outputLineTemplateConstant              = "%s\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current mount configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the mount command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	Executor                     CommandExecutor
	FileSystem                   shared.FileSystem
	Prompter                     shared.ConfirmationPrompter
	HumanReadableLoggingProvider func() bool
}

type commandExecutionOptions struct {
	remotes        []RemoteConfiguration
	unmount        bool
	executionFlags batchrunner.Configuration
}

// Build constructs the mount command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	mountCommand := &cobra.Command{
		Use:   mountCommandUseConstant,
		Short: mountCommandShortDescriptionConstant,
		Long:  mountCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	mountCommand.Flags().Bool(unmountFlagNameConstant, false, unmountFlagDescriptionConstant)
	mountCommand.Flags().String(remotesFileFlagNameConstant, "", remotesFileFlagDescriptionConstant)

	return mountCommand, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	logger := builder.resolveLogger()
	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)

	executionOptions, optionsError := builder.parseCommandOptions(command, logger, fileSystem)
	if optionsError != nil {
		return optionsError
	}

	mountService, serviceError := builder.resolveService(command, logger, fileSystem)
	if serviceError != nil {
		return serviceError
	}

	runResult, runError := builder.execute(command, mountService, executionOptions)
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
		return fmt.Errorf(mountFailuresErrorTemplateConstant, runResult.Failed, runResult.TotalTargets())
	}
	return nil
}

func (builder *CommandBuilder) execute(command *cobra.Command, mountService *Service, executionOptions commandExecutionOptions) (batchrunner.RunResult, error) {
	if executionOptions.unmount {
		return mountService.Unmount(command.Context(), executionOptions.remotes, executionOptions.executionFlags)
	}
	return mountService.Mount(command.Context(), executionOptions.remotes, executionOptions.executionFlags)
}

func (builder *CommandBuilder) parseCommandOptions(command *cobra.Command, logger *zap.Logger, fileSystem shared.FileSystem) (commandExecutionOptions, error) {
	configuration := builder.resolveConfiguration()

	unmountValue, _, unmountError := flagutils.BoolFlag(command, unmountFlagNameConstant)
	if unmountError != nil {
		return commandExecutionOptions{}, unmountError
	}

	remotesFileValue, _, remotesFileError := flagutils.StringFlag(command, remotesFileFlagNameConstant)
	if remotesFileError != nil {
		return commandExecutionOptions{}, remotesFileError
	}

	remotesFilePath := strings.TrimSpace(remotesFileValue)
	if len(remotesFilePath) == 0 {
		remotesFilePath = configuration.RemotesFile
	}

	remotes := configuration.Remotes
	if len(remotesFilePath) > 0 {
		fileRemotes, loadError := LoadRemotesFile(fileSystem, remotesFilePath)
		if loadError != nil {
			return commandExecutionOptions{}, fmt.Errorf(remotesFileLoadErrorTemplateConstant, loadError)
		}
		remotes = fileRemotes
	}

	executionFlags, _ := flagutils.ResolveExecutionFlags(command)

	return commandExecutionOptions{
		remotes: remotes,
		unmount: unmountValue,
		executionFlags: batchrunner.Configuration{
			Prompter:  dependencies.ResolvePrompter(builder.Prompter, command),
			AssumeYes: executionFlags.AssumeYes,
			DryRun:    executionFlags.DryRun,
			Logger:    logger,
		},
	}, nil
}

func (builder *CommandBuilder) resolveService(command *cobra.Command, logger *zap.Logger, fileSystem shared.FileSystem) (*Service, error) {
	executor := builder.Executor
	if executor == nil {
		shellExecutor, executorError := dependencies.ResolveShellExecutor(nil, logger, builder.humanReadableLoggingEnabled())
		if executorError != nil {
			return nil, executorError
		}
		executor = shellExecutor
	}
	return NewService(logger, executor, fileSystem)
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

var _ CommandExecutor = (*execshell.ShellExecutor)(nil)
