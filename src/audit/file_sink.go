package audit

import (
	"bufio"
	"io"
	"os"
	"sync"
)

// streamWriter appends newline-terminated records and flushes after each batch.
type streamWriter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

func (s *streamWriter) WriteLines(lines []line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range lines {
		if _, err := s.w.WriteString(l.text); err != nil {
			return err
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

func (s *streamWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NewFileSink appends audit lines to path, creating it if needed.
func NewFileSink(path string, f Formatter) (*LineSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &LineSink{
		Formatter: f,
		out:       &streamWriter{w: bufio.NewWriter(file), closer: file},
	}, nil
}

// NewWriterSink writes audit lines to w. Close does not close w.
func NewWriterSink(w io.Writer, f Formatter) *LineSink {
	return &LineSink{
		Formatter: f,
		out:       &streamWriter{w: bufio.NewWriter(w)},
	}
}
