package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/execshell"
	"github.com/tyemirov/dsk/internal/shared"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	executorNotConfiguredMessageConstant   = "command executor not configured"
	fileSystemNotConfiguredMessageConstant = "file system not configured"
	locatorNotConfiguredMessageConstant    = "binary locator not configured"
	noArchivesProvidedMessageConstant      = "no archives provided"

	archiveMissingReasonTemplateConstant     = "archive not accessible: %v"
	archiveNotRegularReasonConstant          = "archive is not a regular file"
	unsupportedFormatReasonTemplateConstant  = "unsupported archive format: %s"
	toolUnavailableReasonTemplateConstant    = "%s not available"
	destinationCreateErrorTemplateConstant   = "unable to create destination %s: %w"
	extractedDetailTemplateConstant          = "extracted to %s"
	destinationDirectoryPermissionsConstant  = 0o755

	logMessageExtractingArchiveConstant = "Extracting archive"
	logFieldArchivePathConstant         = "archive"
	logFieldDestinationConstant         = "destination"
)

var (
	errExtractExecutorNotConfigured   = errors.New(executorNotConfiguredMessageConstant)
	errExtractFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
	errExtractLocatorNotConfigured    = errors.New(locatorNotConfiguredMessageConstant)
	errNoArchivesProvided             = errors.New(noArchivesProvidedMessageConstant)
)

// CommandExecutor runs the archive tool invocations required for extraction.
type CommandExecutor interface {
	ExecuteArchiveTool(executionContext context.Context, toolName execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// archiveFormat binds a file extension to its extraction tool invocation.
type archiveFormat struct {
	extension string
	toolName  execshell.CommandName
	arguments func(archivePath string, destination string) []string
}

// Longer extensions come first so ".tar.gz" wins over ".gz".
var supportedArchiveFormats = []archiveFormat{
	{extension: ".tar.gz", toolName: execshell.CommandTar, arguments: tarArguments("-xzf")},
	{extension: ".tar.bz2", toolName: execshell.CommandTar, arguments: tarArguments("-xjf")},
	{extension: ".tar.xz", toolName: execshell.CommandTar, arguments: tarArguments("-xJf")},
	{extension: ".tar.zst", toolName: execshell.CommandTar, arguments: tarZstdArguments},
	{extension: ".tgz", toolName: execshell.CommandTar, arguments: tarArguments("-xzf")},
	{extension: ".tbz2", toolName: execshell.CommandTar, arguments: tarArguments("-xjf")},
	{extension: ".txz", toolName: execshell.CommandTar, arguments: tarArguments("-xJf")},
	{extension: ".tar", toolName: execshell.CommandTar, arguments: tarArguments("-xf")},
	{extension: ".zip", toolName: execshell.CommandUnzip, arguments: unzipArguments},
	{extension: ".7z", toolName: execshell.CommandSevenZip, arguments: sevenZipArguments},
	{extension: ".gz", toolName: execshell.CommandSevenZip, arguments: sevenZipArguments},
	{extension: ".bz2", toolName: execshell.CommandSevenZip, arguments: sevenZipArguments},
	{extension: ".xz", toolName: execshell.CommandSevenZip, arguments: sevenZipArguments},
	{extension: ".zst", toolName: execshell.CommandSevenZip, arguments: sevenZipArguments},
	{extension: ".rar", toolName: execshell.CommandUnrar, arguments: unrarArguments},
}

func tarArguments(extractFlag string) func(string, string) []string {
	return func(archivePath string, destination string) []string {
		return []string{extractFlag, archivePath, "-C", destination}
	}
}

func tarZstdArguments(archivePath string, destination string) []string {
	return []string{"--zstd", "-xf", archivePath, "-C", destination}
}

func unzipArguments(archivePath string, destination string) []string {
	return []string{archivePath, "-d", destination}
}

func sevenZipArguments(archivePath string, destination string) []string {
	return []string{"x", archivePath, "-o" + destination, "-y"}
}

func unrarArguments(archivePath string, destination string) []string {
	return []string{"x", "-y", archivePath, destination}
}

// Service extracts archives into per-archive destination directories.
type Service struct {
	logger        *zap.Logger
	executor      CommandExecutor
	fileSystem    shared.FileSystem
	binaryLocator shared.BinaryLocator
}

// NewService constructs a Service instance.
func NewService(logger *zap.Logger, executor CommandExecutor, fileSystem shared.FileSystem, binaryLocator shared.BinaryLocator) (*Service, error) {
	if executor == nil {
		return nil, errExtractExecutorNotConfigured
	}
	if fileSystem == nil {
		return nil, errExtractFileSystemNotConfigured
	}
	if binaryLocator == nil {
		return nil, errExtractLocatorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, executor: executor, fileSystem: fileSystem, binaryLocator: binaryLocator}, nil
}

// formatForArchive resolves the archive format from the file name, or nil for
// unsupported extensions.
func formatForArchive(archivePath string) *archiveFormat {
	loweredName := strings.ToLower(filepath.Base(archivePath))
	for formatIndex := range supportedArchiveFormats {
		format := supportedArchiveFormats[formatIndex]
		if strings.HasSuffix(loweredName, format.extension) && len(loweredName) > len(format.extension) {
			return &format
		}
	}
	return nil
}

// DestinationFor derives the extraction directory for an archive: a sibling
// directory named after the archive without its extension.
func DestinationFor(archivePath string) string {
	baseName := filepath.Base(archivePath)
	if format := formatForArchive(archivePath); format != nil {
		baseName = baseName[:len(baseName)-len(format.extension)]
	} else {
		baseName = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	}
	return filepath.Join(filepath.Dir(archivePath), baseName)
}

// Extract unpacks every archive in input order.
func (service *Service) Extract(executionContext context.Context, archivePaths []string, explicitDestination string, policy batchrunner.Configuration) (batchrunner.RunResult, error) {
	normalizedPaths := make([]string, 0, len(archivePaths))
	for _, archivePath := range archivePaths {
		trimmedPath := strings.TrimSpace(archivePath)
		if len(trimmedPath) > 0 {
			normalizedPaths = append(normalizedPaths, trimmedPath)
		}
	}
	if len(normalizedPaths) == 0 {
		return batchrunner.RunResult{}, errNoArchivesProvided
	}

	targets := make([]batchrunner.Target, 0, len(normalizedPaths))
	for _, archivePath := range normalizedPaths {
		destination := explicitDestination
		if len(destination) == 0 {
			destination = DestinationFor(archivePath)
		}
		targets = append(targets, service.extractTarget(archivePath, destination))
	}
	return batchrunner.NewRunner(policy).Run(executionContext, targets), nil
}

func (service *Service) extractTarget(archivePath string, destination string) batchrunner.Target {
	return batchrunner.Target{
		Name: filepath.Base(archivePath),
		Precondition: func(executionContext context.Context) batchrunner.Precondition {
			archiveInfo, statError := service.fileSystem.Stat(archivePath)
			if statError != nil {
				return batchrunner.Blocked(fmt.Sprintf(archiveMissingReasonTemplateConstant, statError))
			}
			if !archiveInfo.Mode().IsRegular() {
				return batchrunner.Blocked(archiveNotRegularReasonConstant)
			}

			format := formatForArchive(archivePath)
			if format == nil {
				return batchrunner.Blocked(fmt.Sprintf(unsupportedFormatReasonTemplateConstant, filepath.Ext(archivePath)))
			}
			if _, locateError := service.binaryLocator(string(format.toolName)); locateError != nil {
				return batchrunner.Blocked(fmt.Sprintf(toolUnavailableReasonTemplateConstant, format.toolName))
			}

			entries, readError := service.fileSystem.ReadDir(destination)
			if readError == nil && len(entries) > 0 {
				return batchrunner.AlreadyDone()
			}
			return batchrunner.Ready()
		},
		Action: func(executionContext context.Context) error {
			format := formatForArchive(archivePath)

			service.logger.Info(logMessageExtractingArchiveConstant,
				zap.String(logFieldArchivePathConstant, archivePath),
				zap.String(logFieldDestinationConstant, destination),
			)

			if mkdirError := service.fileSystem.MkdirAll(destination, destinationDirectoryPermissionsConstant); mkdirError != nil {
				return fmt.Errorf(destinationCreateErrorTemplateConstant, destination, mkdirError)
			}

			commandDetails := execshell.CommandDetails{Arguments: format.arguments(archivePath, destination)}
			_, executionError := service.executor.ExecuteArchiveTool(executionContext, format.toolName, commandDetails)
			return executionError
		},
		SuccessDetail: func() string {
			return fmt.Sprintf(extractedDetailTemplateConstant, destination)
		},
	}
}
