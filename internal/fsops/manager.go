package fsops

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	directoryPermissionsConstant os.FileMode = 0o755
	filePermissionsConstant      os.FileMode = 0o644

	fileSystemMissingMessageConstant = "file system not configured"

	ensureDirectoryFailureTemplateConstant = "ensuring directory %s: %w"
	removePathFailureTemplateConstant      = "removing %s: %w"
	copyFileFailureTemplateConstant        = "copying %s to %s: %w"
	copyTreeFailureTemplateConstant        = "copying tree %s to %s: %w"
	hashFileFailureTemplateConstant        = "hashing %s: %w"
	globFailureTemplateConstant            = "globbing %s: %w"
	tempPathFailureTemplateConstant        = "creating temporary path under %s: %w"

	temporaryNameTemplateConstant = "%s-%s"
)

// ErrFileSystemNotConfigured indicates a manager was constructed without a filesystem.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// Manager bundles filesystem helpers over an abstract afero filesystem.
type Manager struct {
	fileSystem afero.Fs
}

// NewManager builds a Manager over the supplied filesystem.
func NewManager(fileSystem afero.Fs) (*Manager, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Manager{fileSystem: fileSystem}, nil
}

// NewOSManager builds a Manager over the host filesystem.
func NewOSManager() *Manager {
	return &Manager{fileSystem: afero.NewOsFs()}
}

// FileSystem exposes the underlying filesystem for collaborators that need it.
func (manager *Manager) FileSystem() afero.Fs {
	return manager.fileSystem
}

// EnsureDirectory creates directoryPath and any missing parents.
func (manager *Manager) EnsureDirectory(directoryPath string) error {
	if creationError := manager.fileSystem.MkdirAll(directoryPath, directoryPermissionsConstant); creationError != nil {
		return fmt.Errorf(ensureDirectoryFailureTemplateConstant, directoryPath, creationError)
	}
	return nil
}

// RemovePath deletes targetPath recursively. Missing paths are not an error.
func (manager *Manager) RemovePath(targetPath string) error {
	if removalError := manager.fileSystem.RemoveAll(targetPath); removalError != nil {
		return fmt.Errorf(removePathFailureTemplateConstant, targetPath, removalError)
	}
	return nil
}

// CopyFile duplicates sourcePath into destinationPath, creating parent
// directories as needed.
func (manager *Manager) CopyFile(sourcePath string, destinationPath string) error {
	sourceFile, openError := manager.fileSystem.Open(sourcePath)
	if openError != nil {
		return fmt.Errorf(copyFileFailureTemplateConstant, sourcePath, destinationPath, openError)
	}
	defer sourceFile.Close()

	if directoryError := manager.fileSystem.MkdirAll(filepath.Dir(destinationPath), directoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(copyFileFailureTemplateConstant, sourcePath, destinationPath, directoryError)
	}

	destinationFile, createError := manager.fileSystem.OpenFile(destinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissionsConstant)
	if createError != nil {
		return fmt.Errorf(copyFileFailureTemplateConstant, sourcePath, destinationPath, createError)
	}
	defer destinationFile.Close()

	if _, copyError := io.Copy(destinationFile, sourceFile); copyError != nil {
		return fmt.Errorf(copyFileFailureTemplateConstant, sourcePath, destinationPath, copyError)
	}
	return nil
}

// CopyTree duplicates the directory rooted at sourceRoot into destinationRoot,
// preserving relative layout.
func (manager *Manager) CopyTree(sourceRoot string, destinationRoot string) error {
	walkError := afero.Walk(manager.fileSystem, sourceRoot, func(walkedPath string, fileInfo os.FileInfo, visitError error) error {
		if visitError != nil {
			return visitError
		}

		relativePath, relativeError := filepath.Rel(sourceRoot, walkedPath)
		if relativeError != nil {
			return relativeError
		}
		destinationPath := filepath.Join(destinationRoot, relativePath)

		if fileInfo.IsDir() {
			return manager.fileSystem.MkdirAll(destinationPath, directoryPermissionsConstant)
		}
		return manager.CopyFile(walkedPath, destinationPath)
	})
	if walkError != nil {
		return fmt.Errorf(copyTreeFailureTemplateConstant, sourceRoot, destinationRoot, walkError)
	}
	return nil
}

// HashFile returns the hex-encoded SHA-256 digest of filePath's contents.
func (manager *Manager) HashFile(filePath string) (string, error) {
	sourceFile, openError := manager.fileSystem.Open(filePath)
	if openError != nil {
		return "", fmt.Errorf(hashFileFailureTemplateConstant, filePath, openError)
	}
	defer sourceFile.Close()

	digest := sha256.New()
	if _, copyError := io.Copy(digest, sourceFile); copyError != nil {
		return "", fmt.Errorf(hashFileFailureTemplateConstant, filePath, copyError)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// Glob lists paths matching pattern.
func (manager *Manager) Glob(pattern string) ([]string, error) {
	matchedPaths, globError := afero.Glob(manager.fileSystem, pattern)
	if globError != nil {
		return nil, fmt.Errorf(globFailureTemplateConstant, pattern, globError)
	}
	return matchedPaths, nil
}

// CreateTemporaryDirectory creates a uniquely named directory under
// parentDirectory using namePrefix and returns its path.
func (manager *Manager) CreateTemporaryDirectory(parentDirectory string, namePrefix string) (string, error) {
	temporaryPath := filepath.Join(parentDirectory, formatTemporaryName(namePrefix))
	if creationError := manager.fileSystem.MkdirAll(temporaryPath, directoryPermissionsConstant); creationError != nil {
		return "", fmt.Errorf(tempPathFailureTemplateConstant, parentDirectory, creationError)
	}
	return temporaryPath, nil
}

// CreateTemporaryFile creates a uniquely named empty file under
// parentDirectory using namePrefix and returns its path.
func (manager *Manager) CreateTemporaryFile(parentDirectory string, namePrefix string) (string, error) {
	if directoryError := manager.fileSystem.MkdirAll(parentDirectory, directoryPermissionsConstant); directoryError != nil {
		return "", fmt.Errorf(tempPathFailureTemplateConstant, parentDirectory, directoryError)
	}

	temporaryPath := filepath.Join(parentDirectory, formatTemporaryName(namePrefix))
	createdFile, createError := manager.fileSystem.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissionsConstant)
	if createError != nil {
		return "", fmt.Errorf(tempPathFailureTemplateConstant, parentDirectory, createError)
	}
	if closeError := createdFile.Close(); closeError != nil {
		return "", fmt.Errorf(tempPathFailureTemplateConstant, parentDirectory, closeError)
	}
	return temporaryPath, nil
}

func formatTemporaryName(namePrefix string) string {
	trimmedPrefix := strings.TrimSpace(namePrefix)
	if len(trimmedPrefix) == 0 {
		return uuid.NewString()
	}
	return fmt.Sprintf(temporaryNameTemplateConstant, trimmedPrefix, uuid.NewString())
}
