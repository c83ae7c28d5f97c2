package procs

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/deskware/win_scripts/internal/execshell"
)

const (
	executorMissingMessageConstant = "process executor not configured"

	whereLookupFailureTemplateConstant = "locating executable %s: %w"
	listProcessesFailureTemplateLabel  = "listing processes: %w"
	killProcessFailureTemplateConstant = "terminating %s: %w"

	tasklistFormatFlagConstant   = "/FO"
	tasklistCSVFormatConstant    = "CSV"
	tasklistNoHeaderFlagConstant = "/NH"
	taskkillImageFlagConstant    = "/IM"
	taskkillForceFlagConstant    = "/F"
	tasklistColumnCountConstant  = 2
	noTasksRunningMarkerConstant = "INFO: No tasks are running"
)

var (
	// ErrExecutorNotConfigured indicates the inspector was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrExecutableNotFound indicates the lookup tool produced no match.
	ErrExecutableNotFound = errors.New("executable not found")
)

// ProcessExecutor is the subset of shell execution the inspector drives.
type ProcessExecutor interface {
	ExecuteWhere(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteTasklist(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteTaskkill(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ProcessInfo describes a running process.
type ProcessInfo struct {
	ImageName string
	ProcessID int
}

// Inspector looks up executables and lists or terminates processes through
// the platform tools.
type Inspector struct {
	executor ProcessExecutor
}

// NewInspector builds an Inspector over the supplied executor.
func NewInspector(executor ProcessExecutor) (*Inspector, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Inspector{executor: executor}, nil
}

// LocateExecutable resolves executableName to its first match on the search
// path. ErrExecutableNotFound is reported when the lookup tool exits nonzero.
func (inspector *Inspector) LocateExecutable(executionContext context.Context, executableName string) (string, error) {
	lookupResult, lookupError := inspector.executor.ExecuteWhere(executionContext, execshell.CommandDetails{Arguments: []string{executableName}})
	if lookupError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(lookupError, &commandFailure) {
			return "", fmt.Errorf(whereLookupFailureTemplateConstant, executableName, ErrExecutableNotFound)
		}
		return "", fmt.Errorf(whereLookupFailureTemplateConstant, executableName, lookupError)
	}

	for _, outputLine := range strings.Split(lookupResult.StandardOutput, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if len(trimmedLine) > 0 {
			return trimmedLine, nil
		}
	}
	return "", fmt.Errorf(whereLookupFailureTemplateConstant, executableName, ErrExecutableNotFound)
}

// ListProcesses returns the running processes reported by the process
// listing tool, optionally filtered to a single image name.
func (inspector *Inspector) ListProcesses(executionContext context.Context, imageNameFilter string) ([]ProcessInfo, error) {
	listingArguments := []string{tasklistFormatFlagConstant, tasklistCSVFormatConstant, tasklistNoHeaderFlagConstant}
	listingResult, listingError := inspector.executor.ExecuteTasklist(executionContext, execshell.CommandDetails{Arguments: listingArguments})
	if listingError != nil {
		return nil, fmt.Errorf(listProcessesFailureTemplateLabel, listingError)
	}

	listedProcesses, parseError := parseTasklistOutput(listingResult.StandardOutput)
	if parseError != nil {
		return nil, fmt.Errorf(listProcessesFailureTemplateLabel, parseError)
	}

	if len(strings.TrimSpace(imageNameFilter)) == 0 {
		return listedProcesses, nil
	}

	filteredProcesses := []ProcessInfo{}
	for _, listedProcess := range listedProcesses {
		if strings.EqualFold(listedProcess.ImageName, imageNameFilter) {
			filteredProcesses = append(filteredProcesses, listedProcess)
		}
	}
	return filteredProcesses, nil
}

// IsProcessRunning reports whether any process with imageName is running.
func (inspector *Inspector) IsProcessRunning(executionContext context.Context, imageName string) (bool, error) {
	matchingProcesses, listError := inspector.ListProcesses(executionContext, imageName)
	if listError != nil {
		return false, listError
	}
	return len(matchingProcesses) > 0, nil
}

// KillByImageName force-terminates every process with imageName.
func (inspector *Inspector) KillByImageName(executionContext context.Context, imageName string) error {
	killArguments := []string{taskkillImageFlagConstant, imageName, taskkillForceFlagConstant}
	if _, killError := inspector.executor.ExecuteTaskkill(executionContext, execshell.CommandDetails{Arguments: killArguments}); killError != nil {
		return fmt.Errorf(killProcessFailureTemplateConstant, imageName, killError)
	}
	return nil
}

// parseTasklistOutput parses tasklist /FO CSV /NH rows. Each row's first two
// columns are the image name and numeric process identifier.
func parseTasklistOutput(listingOutput string) ([]ProcessInfo, error) {
	trimmedOutput := strings.TrimSpace(listingOutput)
	if len(trimmedOutput) == 0 || strings.HasPrefix(trimmedOutput, noTasksRunningMarkerConstant) {
		return []ProcessInfo{}, nil
	}

	csvReader := csv.NewReader(strings.NewReader(trimmedOutput))
	csvReader.FieldsPerRecord = -1
	listingRows, readError := csvReader.ReadAll()
	if readError != nil {
		return nil, readError
	}

	listedProcesses := make([]ProcessInfo, 0, len(listingRows))
	for _, listingRow := range listingRows {
		if len(listingRow) < tasklistColumnCountConstant {
			continue
		}
		processID, conversionError := strconv.Atoi(strings.TrimSpace(listingRow[1]))
		if conversionError != nil {
			continue
		}
		listedProcesses = append(listedProcesses, ProcessInfo{ImageName: listingRow[0], ProcessID: processID})
	}
	return listedProcesses, nil
}
