package archive_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/deskware/win_scripts/internal/archive"
)

func newArchiverForTest(testInstance *testing.T) (*archive.Archiver, afero.Fs) {
	testInstance.Helper()
	memoryFileSystem := afero.NewMemMapFs()
	archiver, creationError := archive.NewArchiver(memoryFileSystem)
	require.NoError(testInstance, creationError)
	return archiver, memoryFileSystem
}

func TestNewArchiverRequiresFileSystem(testInstance *testing.T) {
	archiver, creationError := archive.NewArchiver(nil)
	require.ErrorIs(testInstance, creationError, archive.ErrFileSystemNotConfigured)
	require.Nil(testInstance, archiver)
}

func TestCreateAndExtractRoundTrip(testInstance *testing.T) {
	archiver, memoryFileSystem := newArchiverForTest(testInstance)
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "project/readme.txt", []byte("hello"), 0o644))
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "project/nested/data.bin", []byte{0x01, 0x02, 0x03}, 0o644))

	require.NoError(testInstance, archiver.CreateFromDirectory("project", "out/project.zip"))
	require.NoError(testInstance, archiver.ExtractToDirectory("out/project.zip", "restored"))

	readmeContent, readmeError := afero.ReadFile(memoryFileSystem, "restored/readme.txt")
	require.NoError(testInstance, readmeError)
	require.Equal(testInstance, "hello", string(readmeContent))

	dataContent, dataError := afero.ReadFile(memoryFileSystem, "restored/nested/data.bin")
	require.NoError(testInstance, dataError)
	require.Equal(testInstance, []byte{0x01, 0x02, 0x03}, dataContent)
}

func TestExtractRejectsEscapingEntry(testInstance *testing.T) {
	archiver, memoryFileSystem := newArchiverForTest(testInstance)

	archiveBuffer := &bytes.Buffer{}
	archiveWriter := zip.NewWriter(archiveBuffer)
	entryWriter, entryError := archiveWriter.Create("../escape.txt")
	require.NoError(testInstance, entryError)
	_, writeError := entryWriter.Write([]byte("outside"))
	require.NoError(testInstance, writeError)
	require.NoError(testInstance, archiveWriter.Close())
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "hostile.zip", archiveBuffer.Bytes(), 0o644))

	extractionError := archiver.ExtractToDirectory("hostile.zip", "safe")
	require.ErrorIs(testInstance, extractionError, archive.ErrEntryEscapesRoot)

	escapedExists, _ := afero.Exists(memoryFileSystem, "escape.txt")
	require.False(testInstance, escapedExists)
}
