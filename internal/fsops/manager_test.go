package fsops_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/deskware/win_scripts/internal/fsops"
)

func newManagerForTest(testInstance *testing.T) (*fsops.Manager, afero.Fs) {
	testInstance.Helper()
	memoryFileSystem := afero.NewMemMapFs()
	manager, creationError := fsops.NewManager(memoryFileSystem)
	require.NoError(testInstance, creationError)
	return manager, memoryFileSystem
}

func TestNewManagerRequiresFileSystem(testInstance *testing.T) {
	manager, creationError := fsops.NewManager(nil)
	require.ErrorIs(testInstance, creationError, fsops.ErrFileSystemNotConfigured)
	require.Nil(testInstance, manager)
}

func TestCopyFileCreatesParentDirectories(testInstance *testing.T) {
	manager, memoryFileSystem := newManagerForTest(testInstance)
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "source/input.txt", []byte("payload"), 0o644))

	require.NoError(testInstance, manager.CopyFile("source/input.txt", "nested/target/output.txt"))

	copiedContent, readError := afero.ReadFile(memoryFileSystem, "nested/target/output.txt")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "payload", string(copiedContent))
}

func TestCopyTreePreservesRelativeLayout(testInstance *testing.T) {
	manager, memoryFileSystem := newManagerForTest(testInstance)
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "tree/alpha.txt", []byte("alpha"), 0o644))
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "tree/inner/beta.txt", []byte("beta"), 0o644))

	require.NoError(testInstance, manager.CopyTree("tree", "mirror"))

	alphaContent, alphaError := afero.ReadFile(memoryFileSystem, filepath.Join("mirror", "alpha.txt"))
	require.NoError(testInstance, alphaError)
	require.Equal(testInstance, "alpha", string(alphaContent))

	betaContent, betaError := afero.ReadFile(memoryFileSystem, filepath.Join("mirror", "inner", "beta.txt"))
	require.NoError(testInstance, betaError)
	require.Equal(testInstance, "beta", string(betaContent))
}

func TestHashFileMatchesKnownDigest(testInstance *testing.T) {
	manager, memoryFileSystem := newManagerForTest(testInstance)
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "hashed.txt", []byte("abc"), 0o644))

	computedDigest, hashError := manager.HashFile("hashed.txt")
	require.NoError(testInstance, hashError)
	require.Equal(testInstance, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", computedDigest)
}

func TestCreateTemporaryPathsAreUnique(testInstance *testing.T) {
	manager, _ := newManagerForTest(testInstance)

	firstDirectory, firstError := manager.CreateTemporaryDirectory("scratch", "build")
	require.NoError(testInstance, firstError)
	secondDirectory, secondError := manager.CreateTemporaryDirectory("scratch", "build")
	require.NoError(testInstance, secondError)
	require.NotEqual(testInstance, firstDirectory, secondDirectory)
	require.True(testInstance, strings.HasPrefix(filepath.Base(firstDirectory), "build-"))

	temporaryFile, fileError := manager.CreateTemporaryFile("scratch", "")
	require.NoError(testInstance, fileError)
	require.NotEmpty(testInstance, filepath.Base(temporaryFile))
}

func TestScanDirectoryCountsFilesAndBytes(testInstance *testing.T) {
	manager, memoryFileSystem := newManagerForTest(testInstance)
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "scan/one.bin", []byte("12345"), 0o644))
	require.NoError(testInstance, afero.WriteFile(memoryFileSystem, "scan/sub/two.bin", []byte("123"), 0o644))

	scanResult, scanError := manager.ScanDirectory(context.Background(), "scan")
	require.NoError(testInstance, scanError)
	require.Equal(testInstance, int64(2), scanResult.FileCount)
	require.Equal(testInstance, int64(8), scanResult.TotalSize)
}

func TestDownloadFileWritesBody(testInstance *testing.T) {
	manager, memoryFileSystem := newManagerForTest(testInstance)
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		_, _ = responseWriter.Write([]byte("remote payload"))
	}))
	defer testServer.Close()

	downloader, creationError := fsops.NewDownloader(manager, testServer.Client())
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, downloader.DownloadFile(context.Background(), testServer.URL, "downloads/remote.bin"))

	downloadedContent, readError := afero.ReadFile(memoryFileSystem, "downloads/remote.bin")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "remote payload", string(downloadedContent))
}

func TestDownloadFileRejectsErrorStatus(testInstance *testing.T) {
	manager, _ := newManagerForTest(testInstance)
	testServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.WriteHeader(http.StatusNotFound)
	}))
	defer testServer.Close()

	downloader, creationError := fsops.NewDownloader(manager, testServer.Client())
	require.NoError(testInstance, creationError)

	downloadError := downloader.DownloadFile(context.Background(), testServer.URL, "downloads/missing.bin")
	require.Error(testInstance, downloadError)
	require.Contains(testInstance, downloadError.Error(), "unexpected status")
}
