package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	directoryPermissionsConstant os.FileMode = 0o755
	filePermissionsConstant      os.FileMode = 0o644

	fileSystemMissingMessageConstant  = "file system not configured"
	entryEscapesMessageTemplateLabel  = "archive entry %s escapes extraction root"
	createArchiveFailureTemplateLabel = "creating archive %s: %w"
	appendEntryFailureTemplateLabel   = "adding %s to archive: %w"
	openArchiveFailureTemplateLabel   = "opening archive %s: %w"
	extractEntryFailureTemplateLabel  = "extracting %s: %w"
)

var (
	// ErrFileSystemNotConfigured indicates the archiver was constructed without a filesystem.
	ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)
	// ErrEntryEscapesRoot indicates an archive entry resolved outside the extraction root.
	ErrEntryEscapesRoot = errors.New("archive entry escapes extraction root")
)

// Archiver creates and extracts zip archives over an abstract filesystem.
type Archiver struct {
	fileSystem afero.Fs
}

// NewArchiver builds an Archiver over the supplied filesystem.
func NewArchiver(fileSystem afero.Fs) (*Archiver, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Archiver{fileSystem: fileSystem}, nil
}

// CreateFromDirectory zips the tree rooted at sourceRoot into archivePath.
// Entry names are slash-separated paths relative to sourceRoot.
func (archiver *Archiver) CreateFromDirectory(sourceRoot string, archivePath string) error {
	if directoryError := archiver.fileSystem.MkdirAll(filepath.Dir(archivePath), directoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(createArchiveFailureTemplateLabel, archivePath, directoryError)
	}

	archiveFile, createError := archiver.fileSystem.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissionsConstant)
	if createError != nil {
		return fmt.Errorf(createArchiveFailureTemplateLabel, archivePath, createError)
	}
	defer archiveFile.Close()

	archiveWriter := zip.NewWriter(archiveFile)

	walkError := afero.Walk(archiver.fileSystem, sourceRoot, func(walkedPath string, fileInfo os.FileInfo, visitError error) error {
		if visitError != nil {
			return visitError
		}
		if fileInfo.IsDir() {
			return nil
		}

		relativePath, relativeError := filepath.Rel(sourceRoot, walkedPath)
		if relativeError != nil {
			return relativeError
		}
		return archiver.appendEntry(archiveWriter, walkedPath, filepath.ToSlash(relativePath))
	})
	if walkError != nil {
		archiveWriter.Close()
		return fmt.Errorf(createArchiveFailureTemplateLabel, archivePath, walkError)
	}

	if closeError := archiveWriter.Close(); closeError != nil {
		return fmt.Errorf(createArchiveFailureTemplateLabel, archivePath, closeError)
	}
	return nil
}

func (archiver *Archiver) appendEntry(archiveWriter *zip.Writer, sourcePath string, entryName string) error {
	sourceFile, openError := archiver.fileSystem.Open(sourcePath)
	if openError != nil {
		return fmt.Errorf(appendEntryFailureTemplateLabel, entryName, openError)
	}
	defer sourceFile.Close()

	entryWriter, entryError := archiveWriter.Create(entryName)
	if entryError != nil {
		return fmt.Errorf(appendEntryFailureTemplateLabel, entryName, entryError)
	}
	if _, copyError := io.Copy(entryWriter, sourceFile); copyError != nil {
		return fmt.Errorf(appendEntryFailureTemplateLabel, entryName, copyError)
	}
	return nil
}

// ExtractToDirectory unpacks archivePath under destinationRoot. Entries whose
// cleaned path would land outside destinationRoot are rejected.
func (archiver *Archiver) ExtractToDirectory(archivePath string, destinationRoot string) error {
	archiveFile, openError := archiver.fileSystem.Open(archivePath)
	if openError != nil {
		return fmt.Errorf(openArchiveFailureTemplateLabel, archivePath, openError)
	}
	defer archiveFile.Close()

	archiveInfo, statError := archiveFile.Stat()
	if statError != nil {
		return fmt.Errorf(openArchiveFailureTemplateLabel, archivePath, statError)
	}

	archiveReader, readerError := zip.NewReader(archiveFile, archiveInfo.Size())
	if readerError != nil {
		return fmt.Errorf(openArchiveFailureTemplateLabel, archivePath, readerError)
	}

	for _, archiveEntry := range archiveReader.File {
		destinationPath, resolveError := resolveEntryPath(destinationRoot, archiveEntry.Name)
		if resolveError != nil {
			return resolveError
		}

		if archiveEntry.FileInfo().IsDir() {
			if directoryError := archiver.fileSystem.MkdirAll(destinationPath, directoryPermissionsConstant); directoryError != nil {
				return fmt.Errorf(extractEntryFailureTemplateLabel, archiveEntry.Name, directoryError)
			}
			continue
		}

		if extractionError := archiver.extractEntry(archiveEntry, destinationPath); extractionError != nil {
			return extractionError
		}
	}
	return nil
}

func (archiver *Archiver) extractEntry(archiveEntry *zip.File, destinationPath string) error {
	entryReader, openError := archiveEntry.Open()
	if openError != nil {
		return fmt.Errorf(extractEntryFailureTemplateLabel, archiveEntry.Name, openError)
	}
	defer entryReader.Close()

	if directoryError := archiver.fileSystem.MkdirAll(filepath.Dir(destinationPath), directoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(extractEntryFailureTemplateLabel, archiveEntry.Name, directoryError)
	}

	destinationFile, createError := archiver.fileSystem.OpenFile(destinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissionsConstant)
	if createError != nil {
		return fmt.Errorf(extractEntryFailureTemplateLabel, archiveEntry.Name, createError)
	}
	defer destinationFile.Close()

	if _, copyError := io.Copy(destinationFile, entryReader); copyError != nil {
		return fmt.Errorf(extractEntryFailureTemplateLabel, archiveEntry.Name, copyError)
	}
	return nil
}

// resolveEntryPath joins entryName under destinationRoot and fails when the
// cleaned result escapes the root (zip-slip).
func resolveEntryPath(destinationRoot string, entryName string) (string, error) {
	destinationPath := filepath.Join(destinationRoot, filepath.FromSlash(entryName))
	cleanedRoot := filepath.Clean(destinationRoot)
	if destinationPath != cleanedRoot && !strings.HasPrefix(destinationPath, cleanedRoot+string(filepath.Separator)) {
		return "", fmt.Errorf(entryEscapesMessageTemplateLabel+": %w", entryName, ErrEntryEscapesRoot)
	}
	return destinationPath, nil
}
