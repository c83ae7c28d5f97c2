package fsops

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const (
	downloadFailureTemplateConstant    = "downloading %s: %w"
	downloadBadStatusTemplateConstant  = "downloading %s: unexpected status %s"
	downloadWriteFailureTemplateLabel  = "writing download %s to %s: %w"
	downloadCreateFailureTemplateLabel = "creating download target %s: %w"
)

// Downloader fetches remote files onto a managed filesystem.
type Downloader struct {
	manager    *Manager
	httpClient *http.Client
}

// NewDownloader builds a Downloader; a nil httpClient falls back to
// http.DefaultClient.
func NewDownloader(manager *Manager, httpClient *http.Client) (*Downloader, error) {
	if manager == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{manager: manager, httpClient: httpClient}, nil
}

// DownloadFile streams the body of sourceURL into destinationPath. The
// request honors context cancellation; any non-2xx status is an error.
func (downloader *Downloader) DownloadFile(executionContext context.Context, sourceURL string, destinationPath string) error {
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, sourceURL, nil)
	if requestError != nil {
		return fmt.Errorf(downloadFailureTemplateConstant, sourceURL, requestError)
	}

	response, responseError := downloader.httpClient.Do(request)
	if responseError != nil {
		return fmt.Errorf(downloadFailureTemplateConstant, sourceURL, responseError)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf(downloadBadStatusTemplateConstant, sourceURL, response.Status)
	}

	if directoryError := downloader.manager.fileSystem.MkdirAll(filepath.Dir(destinationPath), directoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(downloadCreateFailureTemplateLabel, destinationPath, directoryError)
	}

	destinationFile, createError := downloader.manager.fileSystem.OpenFile(destinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissionsConstant)
	if createError != nil {
		return fmt.Errorf(downloadCreateFailureTemplateLabel, destinationPath, createError)
	}
	defer destinationFile.Close()

	if _, copyError := io.Copy(destinationFile, response.Body); copyError != nil {
		return fmt.Errorf(downloadWriteFailureTemplateLabel, sourceURL, destinationPath, copyError)
	}
	return nil
}
