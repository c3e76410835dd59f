package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
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

	packageCacheTargetNameConstant     = "package cache"
	orphanedPackagesTargetNameConstant = "orphaned packages"
	journalTargetNameConstant          = "journal logs"
	userCacheTargetNameConstant        = "user cache"
	trashTargetNameConstant            = "trash"

	packageCachePromptConstant     = "Remove all cached package archives? [y/N/a] "
	orphanedPackagesPromptConstant = "Remove orphaned packages? [y/N/a] "
	userCachePromptConstant        = "Clear the user cache directory? [y/N/a] "
	trashPromptConstant            = "Empty the trash? [y/N/a] "

	noPackageManagerReasonConstant       = "no supported package manager detected"
	journalctlUnavailableReasonConstant  = "journalctl not available"
	homeDirectoryReasonTemplateConstant  = "unable to resolve home directory: %v"
	userCacheDirectoryRelativeConstant   = ".cache"
	trashFilesDirectoryRelativeConstant  = ".local/share/Trash/files"
	trashInfoDirectoryRelativeConstant   = ".local/share/Trash/info"
	journalDiskUsageFlagConstant         = "--disk-usage"
	journalVacuumSizeFlagTemplateConstant = "--vacuum-size=%s"

	logMessageManagerDetectedConstant = "Package manager detected"
	logFieldManagerNameConstant       = "package_manager"

	binaryScalingFactorConstant = 1024
)

var journalDiskUsagePattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*([KMGTP]?)(?:i?B)?`)

var (
	errCleanupExecutorNotConfigured   = errors.New(executorNotConfiguredMessageConstant)
	errCleanupFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
	errCleanupLocatorNotConfigured    = errors.New(locatorNotConfiguredMessageConstant)
)

// CommandExecutor coordinates the external tool invocations required for cleanup.
type CommandExecutor interface {
	ExecutePackageManager(executionContext context.Context, managerName execshell.CommandName, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteJournalctl(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Service builds and runs disk cleanup targets.
type Service struct {
	logger        *zap.Logger
	executor      CommandExecutor
	fileSystem    shared.FileSystem
	binaryLocator shared.BinaryLocator
}

// NewService constructs a Service instance.
func NewService(logger *zap.Logger, executor CommandExecutor, fileSystem shared.FileSystem, binaryLocator shared.BinaryLocator) (*Service, error) {
	if executor == nil {
		return nil, errCleanupExecutorNotConfigured
	}
	if fileSystem == nil {
		return nil, errCleanupFileSystemNotConfigured
	}
	if binaryLocator == nil {
		return nil, errCleanupLocatorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, executor: executor, fileSystem: fileSystem, binaryLocator: binaryLocator}, nil
}

type packageManagerDefinition struct {
	commandName              execshell.CommandName
	cacheDirectory           string
	cleanArguments           []string
	aggressiveCleanArguments []string
	orphanQueryArguments     []string
	orphanRemovalArguments   []string
	autoremoveArguments      []string
}

var supportedPackageManagers = []packageManagerDefinition{
	{
		commandName:              execshell.CommandPacman,
		cacheDirectory:           "/var/cache/pacman/pkg",
		cleanArguments:           []string{"-Sc", "--noconfirm"},
		aggressiveCleanArguments: []string{"-Scc", "--noconfirm"},
		orphanQueryArguments:     []string{"-Qtdq"},
		orphanRemovalArguments:   []string{"-Rns", "--noconfirm"},
	},
	{
		commandName:              execshell.CommandAptGet,
		cacheDirectory:           "/var/cache/apt/archives",
		cleanArguments:           []string{"clean"},
		aggressiveCleanArguments: []string{"clean"},
		autoremoveArguments:      []string{"autoremove", "-y"},
	},
	{
		commandName:              execshell.CommandDnf,
		cacheDirectory:           "/var/cache/dnf",
		cleanArguments:           []string{"clean", "packages"},
		aggressiveCleanArguments: []string{"clean", "all"},
		autoremoveArguments:      []string{"autoremove", "-y"},
	},
}

// Clean runs every cleanup target in a fixed order and returns the accumulated result.
func (service *Service) Clean(executionContext context.Context, configuration CommandConfiguration, policy batchrunner.Configuration) (batchrunner.RunResult, error) {
	targets := service.buildTargets(configuration)
	return batchrunner.NewRunner(policy).Run(executionContext, targets), nil
}

func (service *Service) buildTargets(configuration CommandConfiguration) []batchrunner.Target {
	detectedManager := service.detectPackageManager()

	targets := []batchrunner.Target{
		service.packageCacheTarget(detectedManager, configuration.Aggressive),
	}
	if configuration.Aggressive {
		targets = append(targets, service.orphanedPackagesTarget(detectedManager))
	}
	targets = append(targets,
		service.journalTarget(configuration.JournalVacuumSize),
		service.homeDirectoryTarget(userCacheTargetNameConstant, userCachePromptConstant, []string{userCacheDirectoryRelativeConstant}),
		service.homeDirectoryTarget(trashTargetNameConstant, trashPromptConstant, []string{trashFilesDirectoryRelativeConstant, trashInfoDirectoryRelativeConstant}),
	)
	return targets
}

func (service *Service) detectPackageManager() *packageManagerDefinition {
	for managerIndex := range supportedPackageManagers {
		manager := supportedPackageManagers[managerIndex]
		if _, locateError := service.binaryLocator(string(manager.commandName)); locateError == nil {
			service.logger.Debug(logMessageManagerDetectedConstant, zap.String(logFieldManagerNameConstant, string(manager.commandName)))
			return &manager
		}
	}
	return nil
}

func (service *Service) packageCacheTarget(manager *packageManagerDefinition, aggressive bool) batchrunner.Target {
	return batchrunner.Target{
		Name:               packageCacheTargetNameConstant,
		Confirmable:        aggressive,
		ConfirmationPrompt: packageCachePromptConstant,
		Precondition: func(executionContext context.Context) batchrunner.Precondition {
			if manager == nil {
				return batchrunner.Blocked(noPackageManagerReasonConstant)
			}
			return batchrunner.Ready()
		},
		Measurement: func(executionContext context.Context) (int64, error) {
			return service.directorySize(manager.cacheDirectory)
		},
		Action: func(executionContext context.Context) error {
			cleanArguments := manager.cleanArguments
			if aggressive {
				cleanArguments = manager.aggressiveCleanArguments
			}
			_, executionError := service.executor.ExecutePackageManager(executionContext, manager.commandName, execshell.CommandDetails{Arguments: cleanArguments})
			return executionError
		},
	}
}

func (service *Service) orphanedPackagesTarget(manager *packageManagerDefinition) batchrunner.Target {
	return batchrunner.Target{
		Name:               orphanedPackagesTargetNameConstant,
		Confirmable:        true,
		ConfirmationPrompt: orphanedPackagesPromptConstant,
		Precondition: func(executionContext context.Context) batchrunner.Precondition {
			if manager == nil {
				return batchrunner.Blocked(noPackageManagerReasonConstant)
			}
			if len(manager.orphanQueryArguments) == 0 {
				return batchrunner.Ready()
			}
			orphanedPackages, queryError := service.listOrphanedPackages(executionContext, manager)
			if queryError != nil {
				return batchrunner.Blocked(queryError.Error())
			}
			if len(orphanedPackages) == 0 {
				return batchrunner.AlreadyDone()
			}
			return batchrunner.Ready()
		},
		Action: func(executionContext context.Context) error {
			if len(manager.orphanQueryArguments) == 0 {
				_, executionError := service.executor.ExecutePackageManager(executionContext, manager.commandName, execshell.CommandDetails{Arguments: manager.autoremoveArguments})
				return executionError
			}
			orphanedPackages, queryError := service.listOrphanedPackages(executionContext, manager)
			if queryError != nil {
				return queryError
			}
			if len(orphanedPackages) == 0 {
				return nil
			}
			removalArguments := append(append([]string{}, manager.orphanRemovalArguments...), orphanedPackages...)
			_, executionError := service.executor.ExecutePackageManager(executionContext, manager.commandName, execshell.CommandDetails{Arguments: removalArguments})
			return executionError
		},
	}
}

// listOrphanedPackages queries the manager for packages nothing depends on.
// pacman -Qtdq exits non-zero when the orphan list is empty.
func (service *Service) listOrphanedPackages(executionContext context.Context, manager *packageManagerDefinition) ([]string, error) {
	queryResult, queryError := service.executor.ExecutePackageManager(executionContext, manager.commandName, execshell.CommandDetails{Arguments: manager.orphanQueryArguments})
	if queryError != nil {
		var commandFailedError execshell.CommandFailedError
		if errors.As(queryError, &commandFailedError) {
			return nil, nil
		}
		return nil, queryError
	}

	orphanedPackages := []string{}
	for _, outputLine := range strings.Split(queryResult.StandardOutput, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if len(trimmedLine) > 0 {
			orphanedPackages = append(orphanedPackages, trimmedLine)
		}
	}
	return orphanedPackages, nil
}

func (service *Service) journalTarget(vacuumSize string) batchrunner.Target {
	return batchrunner.Target{
		Name: journalTargetNameConstant,
		Precondition: func(executionContext context.Context) batchrunner.Precondition {
			if _, locateError := service.binaryLocator(string(execshell.CommandJournalctl)); locateError != nil {
				return batchrunner.Blocked(journalctlUnavailableReasonConstant)
			}
			return batchrunner.Ready()
		},
		Measurement: func(executionContext context.Context) (int64, error) {
			usageResult, usageError := service.executor.ExecuteJournalctl(executionContext, execshell.CommandDetails{Arguments: []string{journalDiskUsageFlagConstant}})
			if usageError != nil {
				return 0, usageError
			}
			return ParseJournalDiskUsage(usageResult.StandardOutput), nil
		},
		Action: func(executionContext context.Context) error {
			vacuumArgument := fmt.Sprintf(journalVacuumSizeFlagTemplateConstant, vacuumSize)
			_, executionError := service.executor.ExecuteJournalctl(executionContext, execshell.CommandDetails{Arguments: []string{vacuumArgument}})
			return executionError
		},
	}
}

func (service *Service) homeDirectoryTarget(targetName string, confirmationPrompt string, relativePaths []string) batchrunner.Target {
	return batchrunner.Target{
		Name:               targetName,
		Confirmable:        true,
		ConfirmationPrompt: confirmationPrompt,
		Precondition: func(executionContext context.Context) batchrunner.Precondition {
			homeDirectory, homeError := service.fileSystem.UserHomeDirectory()
			if homeError != nil {
				return batchrunner.Blocked(fmt.Sprintf(homeDirectoryReasonTemplateConstant, homeError))
			}
			for _, relativePath := range relativePaths {
				entries, readError := service.fileSystem.ReadDir(filepath.Join(homeDirectory, relativePath))
				if readError == nil && len(entries) > 0 {
					return batchrunner.Ready()
				}
			}
			return batchrunner.AlreadyDone()
		},
		Measurement: func(executionContext context.Context) (int64, error) {
			homeDirectory, homeError := service.fileSystem.UserHomeDirectory()
			if homeError != nil {
				return 0, homeError
			}
			totalSize := int64(0)
			for _, relativePath := range relativePaths {
				directorySize, sizeError := service.directorySize(filepath.Join(homeDirectory, relativePath))
				if sizeError != nil {
					return 0, sizeError
				}
				totalSize += directorySize
			}
			return totalSize, nil
		},
		Action: func(executionContext context.Context) error {
			homeDirectory, homeError := service.fileSystem.UserHomeDirectory()
			if homeError != nil {
				return homeError
			}
			for _, relativePath := range relativePaths {
				if removeError := service.removeDirectoryContents(filepath.Join(homeDirectory, relativePath)); removeError != nil {
					return removeError
				}
			}
			return nil
		},
	}
}

// directorySize walks the tree summing regular file sizes. A missing directory
// contributes zero.
func (service *Service) directorySize(directoryPath string) (int64, error) {
	if _, statError := service.fileSystem.Stat(directoryPath); statError != nil {
		return 0, nil
	}

	totalSize := int64(0)
	walkError := service.fileSystem.WalkDir(directoryPath, func(entryPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		entryInfo, infoError := entry.Info()
		if infoError != nil {
			return nil
		}
		if entryInfo.Mode().IsRegular() {
			totalSize += entryInfo.Size()
		}
		return nil
	})
	if walkError != nil {
		return 0, walkError
	}
	return totalSize, nil
}

func (service *Service) removeDirectoryContents(directoryPath string) error {
	entries, readError := service.fileSystem.ReadDir(directoryPath)
	if readError != nil {
		return nil
	}
	for _, entry := range entries {
		if removeError := service.fileSystem.RemoveAll(filepath.Join(directoryPath, entry.Name())); removeError != nil {
			return removeError
		}
	}
	return nil
}

// ParseJournalDiskUsage extracts the byte count from `journalctl --disk-usage`
// output such as "Archived and active journals take up 1.2G in the file system."
// Unparseable output yields zero.
func ParseJournalDiskUsage(usageOutput string) int64 {
	matches := journalDiskUsagePattern.FindStringSubmatch(usageOutput)
	if matches == nil {
		return 0
	}

	numericValue, parseError := strconv.ParseFloat(matches[1], 64)
	if parseError != nil {
		return 0
	}

	multiplier := float64(1)
	for _, unitLetter := range "KMGTP" {
		multiplier *= binaryScalingFactorConstant
		if matches[2] == string(unitLetter) {
			return int64(numericValue * multiplier)
		}
	}
	return int64(numericValue)
}
