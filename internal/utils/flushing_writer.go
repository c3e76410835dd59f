package utils

import "io"

type flushableWriter interface {
	Flush() error
}

type flushingWriter struct {
	destination io.Writer
}

// NewFlushingWriter wraps the destination so every write is flushed immediately when supported.
func NewFlushingWriter(destination io.Writer) io.Writer {
	return flushingWriter{destination: destination}
}

// Write forwards the payload and flushes the destination when it supports flushing.
func (writer flushingWriter) Write(data []byte) (int, error) {
	writtenBytes, writeError := writer.destination.Write(data)
	if writeError != nil {
		return writtenBytes, writeError
	}

	if flushable, isFlushable := writer.destination.(flushableWriter); isFlushable {
		if flushError := flushable.Flush(); flushError != nil {
			return writtenBytes, flushError
		}
	}

	return writtenBytes, nil
}
