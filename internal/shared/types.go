package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	ErrRemoteNameInvalid = errors.New("remote name invalid")
	ErrMountPointInvalid = errors.New("mount point invalid")
	remoteNamePattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._ -]*$`)
)

// RemoteName models a named rclone remote (for example "gdrive" or "dropbox").
type RemoteName struct {
	value string
}

// NewRemoteName validates remote names against rclone naming rules.
func NewRemoteName(rawValue string) (RemoteName, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rawValue), ":"))
	if len(trimmed) == 0 {
		return RemoteName{}, fmt.Errorf("%w: empty", ErrRemoteNameInvalid)
	}
	if !remoteNamePattern.MatchString(trimmed) {
		return RemoteName{}, fmt.Errorf("%w: %s", ErrRemoteNameInvalid, trimmed)
	}
	return RemoteName{value: trimmed}, nil
}

// String exposes the remote name value.
func (remoteName RemoteName) String() string {
	if len(remoteName.value) == 0 {
		panic("shared.RemoteName: zero value")
	}
	return remoteName.value
}

// Specifier returns the remote in rclone "name:" form.
func (remoteName RemoteName) Specifier() string {
	return remoteName.String() + ":"
}

// MountPoint represents an absolute filesystem location used as a mount target.
type MountPoint struct {
	value string
}

// NewMountPoint validates and normalizes mount point paths.
func NewMountPoint(rawValue string) (MountPoint, error) {
	if strings.ContainsAny(rawValue, "\r\n") {
		return MountPoint{}, fmt.Errorf("%w: contains newline", ErrMountPointInvalid)
	}
	trimmed := strings.TrimSpace(rawValue)
	if len(trimmed) == 0 {
		return MountPoint{}, fmt.Errorf("%w: empty", ErrMountPointInvalid)
	}
	cleaned := filepath.Clean(trimmed)
	return MountPoint{value: cleaned}, nil
}

// String exposes the normalized mount point path.
func (mountPoint MountPoint) String() string {
	if len(mountPoint.value) == 0 {
		panic("shared.MountPoint: zero value")
	}
	return mountPoint.value
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FileSystem exposes filesystem operations required by the command services.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	MkdirAll(path string, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	Chmod(path string, permissions fs.FileMode) error
	RemoveAll(path string) error
	WalkDir(root string, walkFunction fs.WalkDirFunc) error
	UserHomeDirectory() (string, error)
}

// BinaryLocator reports the filesystem path of an executable, typically backed by exec.LookPath.
type BinaryLocator func(binaryName string) (string, error)

// ConfirmationResult captures the outcome of a user confirmation prompt.
type ConfirmationResult struct {
	Confirmed  bool
	ApplyToAll bool
}

// ConfirmationPrompter collects user confirmations prior to destructive actions.
type ConfirmationPrompter interface {
	Confirm(prompt string) (ConfirmationResult, error)
}
