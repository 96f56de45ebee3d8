package utils

import "io"

type flusher interface {
	Flush() error
}

type flushingWriter struct {
	target io.Writer
}

// NewFlushingWriter returns a writer that flushes buffered targets after every write.
func NewFlushingWriter(target io.Writer) io.Writer {
	return flushingWriter{target: target}
}

func (writer flushingWriter) Write(data []byte) (int, error) {
	bytesWritten, writeError := writer.target.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	if bufferedTarget, isBuffered := writer.target.(flusher); isBuffered {
		if flushError := bufferedTarget.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}
	return bytesWritten, nil
}
