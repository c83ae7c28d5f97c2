package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	directoryPermissionsConstant os.FileMode = 0o755
	filePermissionsConstant      os.FileMode = 0o644

	fileSystemMissingMessageConstant = "file system not configured"
	emptyTableMessageConstant        = "table has no header row"

	readTableFailureTemplateConstant  = "reading table %s: %w"
	writeTableFailureTemplateConstant = "writing table %s: %w"
	appendRowsFailureTemplateConstant = "appending rows to %s: %w"
)

var (
	// ErrFileSystemNotConfigured indicates the store was constructed without a filesystem.
	ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)
	// ErrMissingHeader indicates a record read was attempted on a table without a header row.
	ErrMissingHeader = errors.New(emptyTableMessageConstant)
)

// Record is a header-keyed CSV row.
type Record map[string]string

// Store reads and writes CSV tables over an abstract filesystem.
type Store struct {
	fileSystem afero.Fs
}

// NewStore builds a Store over the supplied filesystem.
func NewStore(fileSystem afero.Fs) (*Store, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Store{fileSystem: fileSystem}, nil
}

// ReadRows returns every row of the table, header included.
func (store *Store) ReadRows(tablePath string) ([][]string, error) {
	tableFile, openError := store.fileSystem.Open(tablePath)
	if openError != nil {
		return nil, fmt.Errorf(readTableFailureTemplateConstant, tablePath, openError)
	}
	defer tableFile.Close()

	tableRows, readError := csv.NewReader(tableFile).ReadAll()
	if readError != nil {
		return nil, fmt.Errorf(readTableFailureTemplateConstant, tablePath, readError)
	}
	return tableRows, nil
}

// ReadRecords returns the table's data rows keyed by the header row.
func (store *Store) ReadRecords(tablePath string) ([]Record, error) {
	tableRows, readError := store.ReadRows(tablePath)
	if readError != nil {
		return nil, readError
	}
	if len(tableRows) == 0 {
		return nil, fmt.Errorf(readTableFailureTemplateConstant, tablePath, ErrMissingHeader)
	}

	headerRow := tableRows[0]
	records := make([]Record, 0, len(tableRows)-1)
	for _, dataRow := range tableRows[1:] {
		record := make(Record, len(headerRow))
		for columnIndex, columnName := range headerRow {
			if columnIndex < len(dataRow) {
				record[columnName] = dataRow[columnIndex]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// WriteRows replaces the table with the supplied rows.
func (store *Store) WriteRows(tablePath string, tableRows [][]string) error {
	if directoryError := store.fileSystem.MkdirAll(filepath.Dir(tablePath), directoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(writeTableFailureTemplateConstant, tablePath, directoryError)
	}

	tableFile, createError := store.fileSystem.OpenFile(tablePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermissionsConstant)
	if createError != nil {
		return fmt.Errorf(writeTableFailureTemplateConstant, tablePath, createError)
	}
	defer tableFile.Close()

	tableWriter := csv.NewWriter(tableFile)
	if writeError := tableWriter.WriteAll(tableRows); writeError != nil {
		return fmt.Errorf(writeTableFailureTemplateConstant, tablePath, writeError)
	}
	tableWriter.Flush()
	if flushError := tableWriter.Error(); flushError != nil {
		return fmt.Errorf(writeTableFailureTemplateConstant, tablePath, flushError)
	}
	return nil
}

// WriteRecords replaces the table with a header row built from columnOrder
// followed by one row per record.
func (store *Store) WriteRecords(tablePath string, columnOrder []string, records []Record) error {
	tableRows := make([][]string, 0, len(records)+1)
	tableRows = append(tableRows, columnOrder)
	for _, record := range records {
		dataRow := make([]string, len(columnOrder))
		for columnIndex, columnName := range columnOrder {
			dataRow[columnIndex] = record[columnName]
		}
		tableRows = append(tableRows, dataRow)
	}
	return store.WriteRows(tablePath, tableRows)
}

// AppendRows adds rows to the end of an existing table, creating it when
// missing.
func (store *Store) AppendRows(tablePath string, additionalRows [][]string) error {
	existingRows := [][]string{}
	if tableExists, _ := afero.Exists(store.fileSystem, tablePath); tableExists {
		readRows, readError := store.ReadRows(tablePath)
		if readError != nil {
			return fmt.Errorf(appendRowsFailureTemplateConstant, tablePath, readError)
		}
		existingRows = readRows
	}
	return store.WriteRows(tablePath, append(existingRows, additionalRows...))
}
