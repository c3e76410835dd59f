package mount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tyemirov/dsk/internal/execshell"
	"github.com/tyemirov/dsk/internal/shared"
	"github.com/tyemirov/dsk/pkg/batchrunner"
)

const (
	mountSubcommandConstant                  = "mount"
	daemonFlagConstant                       = "--daemon"
	logFileFlagConstant                      = "--log-file"
	listRemotesSubcommandConstant            = "listremotes"
	quietFlagConstant                        = "-q"
	lazyUnmountFlagConstant                  = "-uz"
	executorNotConfiguredMessageConstant     = "command executor not configured"
	fileSystemNotConfiguredMessageConstant   = "file system not configured"
	noRemotesConfiguredMessageConstant       = "no remotes configured; provide remotes in the configuration or a remotes file"
	remoteInvalidErrorTemplateConstant       = "remote %d invalid: %w"
	listRemotesBlockedReasonTemplateConstant = "unable to list rclone remotes: %v"
	unknownRemoteBlockedReasonConstant       = "remote not configured in rclone"
	mountStateBlockedReasonTemplateConstant  = "unable to determine mount state: %v"
	notADirectoryBlockedReasonConstant       = "mount point is not a directory"
	occupiedBlockedReasonConstant            = "mount point occupied by existing content"
	mountPointCreateErrorTemplateConstant    = "unable to create mount point %s: %w"
	mountVerificationErrorTemplateConstant   = "mount verification failed: %s is not a mount point"
	logMessageMountingRemoteConstant         = "Mounting remote"
	logMessageUnmountingRemoteConstant       = "Unmounting remote"
	logFieldRemoteNameConstant               = "remote"
	logFieldMountPointConstant               = "mount_point"
	mountPointDirectoryPermissionsConstant   = 0o755
)

// CommandExecutor coordinates the external tool invocations required for mounting.
type CommandExecutor interface {
	ExecuteRclone(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteMountpoint(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteFusermount(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Service orchestrates mounting and unmounting of configured rclone remotes.
type Service struct {
	logger     *zap.Logger
	executor   CommandExecutor
	fileSystem shared.FileSystem
}

var (
	errExecutorNotConfigured   = errors.New(executorNotConfiguredMessageConstant)
	errFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
	errNoRemotesConfigured     = errors.New(noRemotesConfiguredMessageConstant)
)

// NewService constructs a Service instance.
func NewService(logger *zap.Logger, executor CommandExecutor, fileSystem shared.FileSystem) (*Service, error) {
	if executor == nil {
		return nil, errExecutorNotConfigured
	}
	if fileSystem == nil {
		return nil, errFileSystemNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, executor: executor, fileSystem: fileSystem}, nil
}

type resolvedRemote struct {
	name           shared.RemoteName
	mountPoint     shared.MountPoint
	logFile        string
	extraArguments []string
}

// Mount mounts every configured remote in declaration order.
func (service *Service) Mount(executionContext context.Context, remotes []RemoteConfiguration, policy batchrunner.Configuration) (batchrunner.RunResult, error) {
	resolvedRemotes, validationError := service.resolveRemotes(remotes)
	if validationError != nil {
		return batchrunner.RunResult{}, validationError
	}

	catalog := &remoteCatalog{executor: service.executor}
	targets := make([]batchrunner.Target, 0, len(resolvedRemotes))
	for _, remote := range resolvedRemotes {
		targets = append(targets, batchrunner.Target{
			Name:         remote.name.String(),
			Precondition: service.mountPrecondition(catalog, remote),
			Action:       service.mountAction(remote),
		})
	}

	return batchrunner.NewRunner(policy).Run(executionContext, targets), nil
}

// Unmount lazily unmounts every configured remote in declaration order.
func (service *Service) Unmount(executionContext context.Context, remotes []RemoteConfiguration, policy batchrunner.Configuration) (batchrunner.RunResult, error) {
	resolvedRemotes, validationError := service.resolveRemotes(remotes)
	if validationError != nil {
		return batchrunner.RunResult{}, validationError
	}

	targets := make([]batchrunner.Target, 0, len(resolvedRemotes))
	for _, remote := range resolvedRemotes {
		targets = append(targets, batchrunner.Target{
			Name:         remote.name.String(),
			Precondition: service.unmountPrecondition(remote),
			Action:       service.unmountAction(remote),
		})
	}

	return batchrunner.NewRunner(policy).Run(executionContext, targets), nil
}

func (service *Service) resolveRemotes(remotes []RemoteConfiguration) ([]resolvedRemote, error) {
	if len(remotes) == 0 {
		return nil, errNoRemotesConfigured
	}

	resolvedRemotes := make([]resolvedRemote, 0, len(remotes))
	for remoteIndex, remote := range remotes {
		remoteName, nameError := shared.NewRemoteName(remote.Name)
		if nameError != nil {
			return nil, fmt.Errorf(remoteInvalidErrorTemplateConstant, remoteIndex, nameError)
		}
		mountPoint, mountPointError := shared.NewMountPoint(remote.MountPoint)
		if mountPointError != nil {
			return nil, fmt.Errorf(remoteInvalidErrorTemplateConstant, remoteIndex, mountPointError)
		}
		resolvedRemotes = append(resolvedRemotes, resolvedRemote{
			name:           remoteName,
			mountPoint:     mountPoint,
			logFile:        remote.LogFile,
			extraArguments: remote.ExtraArguments,
		})
	}
	return resolvedRemotes, nil
}

func (service *Service) mountPrecondition(catalog *remoteCatalog, remote resolvedRemote) func(context.Context) batchrunner.Precondition {
	return func(executionContext context.Context) batchrunner.Precondition {
		remoteKnown, catalogError := catalog.contains(executionContext, remote.name.String())
		if catalogError != nil {
			return batchrunner.Blocked(fmt.Sprintf(listRemotesBlockedReasonTemplateConstant, catalogError))
		}
		if !remoteKnown {
			return batchrunner.Blocked(unknownRemoteBlockedReasonConstant)
		}

		mounted, mountStateError := service.isMountPoint(executionContext, remote.mountPoint.String())
		if mountStateError != nil {
			return batchrunner.Blocked(fmt.Sprintf(mountStateBlockedReasonTemplateConstant, mountStateError))
		}
		if mounted {
			return batchrunner.AlreadyDone()
		}

		mountPointInfo, statError := service.fileSystem.Stat(remote.mountPoint.String())
		if statError == nil {
			if !mountPointInfo.IsDir() {
				return batchrunner.Blocked(notADirectoryBlockedReasonConstant)
			}
			entries, readError := service.fileSystem.ReadDir(remote.mountPoint.String())
			if readError == nil && len(entries) > 0 {
				return batchrunner.Blocked(occupiedBlockedReasonConstant)
			}
		}

		return batchrunner.Ready()
	}
}

func (service *Service) mountAction(remote resolvedRemote) func(context.Context) error {
	return func(executionContext context.Context) error {
		service.logger.Info(logMessageMountingRemoteConstant,
			zap.String(logFieldRemoteNameConstant, remote.name.String()),
			zap.String(logFieldMountPointConstant, remote.mountPoint.String()),
		)

		if mkdirError := service.fileSystem.MkdirAll(remote.mountPoint.String(), mountPointDirectoryPermissionsConstant); mkdirError != nil {
			return fmt.Errorf(mountPointCreateErrorTemplateConstant, remote.mountPoint.String(), mkdirError)
		}

		mountArguments := []string{mountSubcommandConstant, remote.name.Specifier(), remote.mountPoint.String(), daemonFlagConstant}
		if len(remote.logFile) > 0 {
			mountArguments = append(mountArguments, logFileFlagConstant, remote.logFile)
		}
		mountArguments = append(mountArguments, remote.extraArguments...)

		if _, mountError := service.executor.ExecuteRclone(executionContext, execshell.CommandDetails{Arguments: mountArguments}); mountError != nil {
			return mountError
		}

		mounted, verificationError := service.isMountPoint(executionContext, remote.mountPoint.String())
		if verificationError != nil {
			return verificationError
		}
		if !mounted {
			return fmt.Errorf(mountVerificationErrorTemplateConstant, remote.mountPoint.String())
		}
		return nil
	}
}

func (service *Service) unmountPrecondition(remote resolvedRemote) func(context.Context) batchrunner.Precondition {
	return func(executionContext context.Context) batchrunner.Precondition {
		mounted, mountStateError := service.isMountPoint(executionContext, remote.mountPoint.String())
		if mountStateError != nil {
			return batchrunner.Blocked(fmt.Sprintf(mountStateBlockedReasonTemplateConstant, mountStateError))
		}
		if !mounted {
			return batchrunner.AlreadyDone()
		}
		return batchrunner.Ready()
	}
}

func (service *Service) unmountAction(remote resolvedRemote) func(context.Context) error {
	return func(executionContext context.Context) error {
		service.logger.Info(logMessageUnmountingRemoteConstant,
			zap.String(logFieldRemoteNameConstant, remote.name.String()),
			zap.String(logFieldMountPointConstant, remote.mountPoint.String()),
		)

		_, unmountError := service.executor.ExecuteFusermount(executionContext, execshell.CommandDetails{
			Arguments: []string{lazyUnmountFlagConstant, remote.mountPoint.String()},
		})
		return unmountError
	}
}

// isMountPoint reports whether path is an active mount point. mountpoint -q
// signals "not mounted" through its exit code, which the executor surfaces as
// a CommandFailedError.
func (service *Service) isMountPoint(executionContext context.Context, path string) (bool, error) {
	_, executionError := service.executor.ExecuteMountpoint(executionContext, execshell.CommandDetails{
		Arguments: []string{quietFlagConstant, path},
	})
	if executionError == nil {
		return true, nil
	}

	var commandFailedError execshell.CommandFailedError
	if errors.As(executionError, &commandFailedError) {
		return false, nil
	}
	return false, executionError
}

// remoteCatalog lazily fetches and caches the set of remotes rclone knows about.
type remoteCatalog struct {
	executor  CommandExecutor
	once      sync.Once
	names     map[string]struct{}
	loadError error
}

func (catalog *remoteCatalog) contains(executionContext context.Context, remoteName string) (bool, error) {
	catalog.once.Do(func() {
		listResult, listError := catalog.executor.ExecuteRclone(executionContext, execshell.CommandDetails{
			Arguments: []string{listRemotesSubcommandConstant},
		})
		if listError != nil {
			catalog.loadError = listError
			return
		}
		catalog.names = parseRemoteListing(listResult.StandardOutput)
	})

	if catalog.loadError != nil {
		return false, catalog.loadError
	}
	_, present := catalog.names[remoteName]
	return present, nil
}

// parseRemoteListing parses `rclone listremotes` output, one remote per line
// with a trailing colon.
func parseRemoteListing(listingOutput string) map[string]struct{} {
	names := map[string]struct{}{}
	for _, listingLine := range strings.Split(listingOutput, "\n") {
		trimmedLine := strings.TrimSuffix(strings.TrimSpace(listingLine), ":")
		if len(trimmedLine) == 0 {
			continue
		}
		names[trimmedLine] = struct{}{}
	}
	return names
}
