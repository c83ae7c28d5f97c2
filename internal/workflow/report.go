package workflow

import (
	"errors"

	"github.com/spf13/afero"

	"github.com/deskware/win_scripts/internal/tabular"
)

const (
	reportPathMissingMessageConstant = "report path must not be empty"

	reportStepColumnConstant      = "step"
	reportOperationColumnConstant = "operation"
	reportStatusColumnConstant    = "status"
)

// ErrReportPathRequired indicates a reporter was requested without a path.
var ErrReportPathRequired = errors.New(reportPathMissingMessageConstant)

// CSVRunReporter appends one row per executed step to a CSV report file,
// creating the file with a header row on first use.
type CSVRunReporter struct {
	store      *tabular.Store
	reportPath string
}

// NewCSVRunReporter builds a reporter writing to reportPath on the supplied
// filesystem. An existing report is appended to, so repeated runs accumulate.
func NewCSVRunReporter(fileSystem afero.Fs, reportPath string) (*CSVRunReporter, error) {
	if len(reportPath) == 0 {
		return nil, ErrReportPathRequired
	}

	store, storeError := tabular.NewStore(fileSystem)
	if storeError != nil {
		return nil, storeError
	}

	reportExists, existsError := afero.Exists(fileSystem, reportPath)
	if existsError != nil {
		return nil, existsError
	}
	if !reportExists {
		headerRow := [][]string{{reportStepColumnConstant, reportOperationColumnConstant, reportStatusColumnConstant}}
		if writeError := store.WriteRows(reportPath, headerRow); writeError != nil {
			return nil, writeError
		}
	}

	return &CSVRunReporter{store: store, reportPath: reportPath}, nil
}

// RecordStep appends the step outcome as a report row.
func (reporter *CSVRunReporter) RecordStep(stepName string, operation Operation, stepStatus string) error {
	return reporter.store.AppendRows(reporter.reportPath, [][]string{{stepName, string(operation), stepStatus}})
}
