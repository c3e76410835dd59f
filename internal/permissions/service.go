package permissions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/shared"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	fileSystemNotConfiguredMessageConstant = "file system not configured"
	noPathsProvidedMessageConstant         = "no paths provided"

	pathMissingReasonTemplateConstant = "path not accessible: %v"
	pathNotDirectoryReasonConstant    = "path is not a directory"
	resetPromptTemplateConstant       = "Reset permissions under %s? [y/N/a] "
	updatedEntriesDetailTemplate      = "updated %d entries"

	directoryPermissionsConstant      fs.FileMode = 0o755
	regularFilePermissionsConstant    fs.FileMode = 0o644
	executableFilePermissionsConstant fs.FileMode = 0o755
	anyExecuteBitMaskConstant         fs.FileMode = 0o111

	logMessageResettingPermissionsConstant = "Resetting permissions"
	logFieldRootPathConstant               = "root_path"
)

var (
	errPermissionsFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
	errNoPathsProvided                    = errors.New(noPathsProvidedMessageConstant)
)

// Options adjusts how permissions are normalized.
type Options struct {
	KeepExecutable bool
}

// Service normalizes directory and file permissions under provided roots.
type Service struct {
	logger     *zap.Logger
	fileSystem shared.FileSystem
}

// NewService constructs a Service instance.
func NewService(logger *zap.Logger, fileSystem shared.FileSystem) (*Service, error) {
	if fileSystem == nil {
		return nil, errPermissionsFileSystemNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, fileSystem: fileSystem}, nil
}

// Reset normalizes permissions under every root path in input order.
func (service *Service) Reset(executionContext context.Context, rootPaths []string, options Options, policy batchrunner.Configuration) (batchrunner.RunResult, error) {
	normalizedPaths := make([]string, 0, len(rootPaths))
	for _, rootPath := range rootPaths {
		trimmedPath := strings.TrimSpace(rootPath)
		if len(trimmedPath) > 0 {
			normalizedPaths = append(normalizedPaths, trimmedPath)
		}
	}
	if len(normalizedPaths) == 0 {
		return batchrunner.RunResult{}, errNoPathsProvided
	}

	targets := make([]batchrunner.Target, 0, len(normalizedPaths))
	for _, rootPath := range normalizedPaths {
		targets = append(targets, service.resetTarget(rootPath, options))
	}
	return batchrunner.NewRunner(policy).Run(executionContext, targets), nil
}

func (service *Service) resetTarget(rootPath string, options Options) batchrunner.Target {
	updatedEntries := 0
	return batchrunner.Target{
		Name:               rootPath,
		Confirmable:        true,
		ConfirmationPrompt: fmt.Sprintf(resetPromptTemplateConstant, rootPath),
		Precondition: func(executionContext context.Context) batchrunner.Precondition {
			rootInfo, statError := service.fileSystem.Stat(rootPath)
			if statError != nil {
				return batchrunner.Blocked(fmt.Sprintf(pathMissingReasonTemplateConstant, statError))
			}
			if !rootInfo.IsDir() {
				return batchrunner.Blocked(pathNotDirectoryReasonConstant)
			}
			nonconforming, countError := service.countNonconforming(rootPath, options)
			if countError != nil {
				return batchrunner.Blocked(countError.Error())
			}
			if nonconforming == 0 {
				return batchrunner.AlreadyDone()
			}
			return batchrunner.Ready()
		},
		Action: func(executionContext context.Context) error {
			service.logger.Info(logMessageResettingPermissionsConstant, zap.String(logFieldRootPathConstant, rootPath))
			updated, resetError := service.applyPermissions(rootPath, options)
			updatedEntries = updated
			return resetError
		},
		SuccessDetail: func() string {
			if updatedEntries == 0 {
				return ""
			}
			return fmt.Sprintf(updatedEntriesDetailTemplate, updatedEntries)
		},
	}
}

// desiredPermissions reports the canonical mode for an entry, or false for
// entries left untouched (symlinks and other irregular files).
func desiredPermissions(entryInfo fs.FileInfo, options Options) (fs.FileMode, bool) {
	entryMode := entryInfo.Mode()
	if entryInfo.IsDir() {
		return directoryPermissionsConstant, true
	}
	if !entryMode.IsRegular() {
		return 0, false
	}
	if options.KeepExecutable && entryMode.Perm()&anyExecuteBitMaskConstant != 0 {
		return executableFilePermissionsConstant, true
	}
	return regularFilePermissionsConstant, true
}

func (service *Service) countNonconforming(rootPath string, options Options) (int, error) {
	nonconforming := 0
	walkError := service.fileSystem.WalkDir(rootPath, func(entryPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		entryInfo, infoError := service.fileSystem.Lstat(entryPath)
		if infoError != nil {
			return infoError
		}
		desiredMode, shouldNormalize := desiredPermissions(entryInfo, options)
		if shouldNormalize && entryInfo.Mode().Perm() != desiredMode {
			nonconforming++
		}
		return nil
	})
	if walkError != nil {
		return 0, walkError
	}
	return nonconforming, nil
}

func (service *Service) applyPermissions(rootPath string, options Options) (int, error) {
	updatedEntries := 0
	walkError := service.fileSystem.WalkDir(rootPath, func(entryPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		entryInfo, infoError := service.fileSystem.Lstat(entryPath)
		if infoError != nil {
			return infoError
		}
		desiredMode, shouldNormalize := desiredPermissions(entryInfo, options)
		if !shouldNormalize || entryInfo.Mode().Perm() == desiredMode {
			return nil
		}
		if chmodError := service.fileSystem.Chmod(entryPath, desiredMode); chmodError != nil {
			return chmodError
		}
		updatedEntries++
		return nil
	})
	if walkError != nil {
		return updatedEntries, walkError
	}
	return updatedEntries, nil
}
