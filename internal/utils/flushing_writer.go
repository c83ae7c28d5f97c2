package utils

import (
	"io"
	"sync"
)

// FlushingWriter ensures data written to buffered writers becomes visible immediately by invoking Flush when available.
type FlushingWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

type flushableWriter interface {
	Flush() error
}

// NewFlushingWriter wraps the provided writer and flushes it after each write when the writer supports flushing.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if _, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return writer
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the underlying writer and flushes it when possible.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return 0, nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	writtenBytes, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return writtenBytes, writeError
	}

	if flushable, supportsFlush := flushingWriter.writer.(flushableWriter); supportsFlush {
		if flushError := flushable.Flush(); flushError != nil {
			return writtenBytes, flushError
		}
	}

	return writtenBytes, nil
}
