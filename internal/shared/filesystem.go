package shared

import (
	"io/fs"
	"os"
	"path/filepath"
)

// OSFileSystem implements FileSystem using the operating system.
type OSFileSystem struct{}

// Stat reports file metadata following symbolic links.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Lstat reports file metadata without following symbolic links.
func (OSFileSystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// ReadDir lists directory entries.
func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// MkdirAll creates the directory path along with missing parents.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// ReadFile loads the file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile persists the file contents.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}

// Chmod updates file permissions.
func (OSFileSystem) Chmod(path string, permissions fs.FileMode) error {
	return os.Chmod(path, permissions)
}

// RemoveAll deletes the path and any children.
func (OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// WalkDir traverses the tree rooted at root.
func (OSFileSystem) WalkDir(root string, walkFunction fs.WalkDirFunc) error {
	return filepath.WalkDir(root, walkFunction)
}

// UserHomeDirectory resolves the current user's home directory.
func (OSFileSystem) UserHomeDirectory() (string, error) {
	return os.UserHomeDir()
}
