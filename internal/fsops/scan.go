package fsops

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	defaultScanConcurrencyConstant = 4

	scanFailureTemplateConstant = "scanning %s: %w"
)

// DirectoryScan summarizes a directory tree.
type DirectoryScan struct {
	FileCount int64
	TotalSize int64
}

// ScanDirectory walks the tree under rootPath and returns the file count and
// accumulated byte size. File stat work is fanned out over a bounded worker
// group; a context cancellation aborts the scan.
func (manager *Manager) ScanDirectory(executionContext context.Context, rootPath string) (DirectoryScan, error) {
	var fileCount atomic.Int64
	var totalSize atomic.Int64

	workerGroup, groupContext := errgroup.WithContext(executionContext)
	workerGroup.SetLimit(defaultScanConcurrencyConstant)

	walkError := afero.Walk(manager.fileSystem, rootPath, func(walkedPath string, fileInfo os.FileInfo, visitError error) error {
		if visitError != nil {
			return visitError
		}
		if contextError := groupContext.Err(); contextError != nil {
			return contextError
		}
		if fileInfo.IsDir() {
			return nil
		}

		workerGroup.Go(func() error {
			statInfo, statError := manager.fileSystem.Stat(walkedPath)
			if statError != nil {
				return statError
			}
			fileCount.Add(1)
			totalSize.Add(statInfo.Size())
			return nil
		})
		return nil
	})

	groupError := workerGroup.Wait()
	if walkError != nil {
		return DirectoryScan{}, fmt.Errorf(scanFailureTemplateConstant, rootPath, walkError)
	}
	if groupError != nil {
		return DirectoryScan{}, fmt.Errorf(scanFailureTemplateConstant, rootPath, groupError)
	}

	return DirectoryScan{FileCount: fileCount.Load(), TotalSize: totalSize.Load()}, nil
}
