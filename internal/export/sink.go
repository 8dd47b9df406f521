package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"

	"logexport/internal/accesslog"
)

// RecordSink receives parsed records. Write errors may be deferred until
// Flush; Close flushes and releases the destination.
type RecordSink interface {
	WriteRecord(rec accesslog.Record) error
	Flush() error
	Close() error
}

// CSVSink writes records as comma-separated rows with standard quoting.
type CSVSink struct {
	w *csv.Writer
	c io.Closer
}

// NewCSVSink writes rows to w. No header is written.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

// CreateCSVSink creates or truncates path and writes the header row.
func CreateCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	s := &CSVSink{w: csv.NewWriter(f), c: f}
	if err := s.WriteHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) WriteHeader() error {
	if err := s.w.Write(accesslog.Header); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func (s *CSVSink) WriteRecord(rec accesslog.Record) error {
	if err := s.w.Write(rec.Fields()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func (s *CSVSink) Flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func (s *CSVSink) Close() error {
	err := s.Flush()
	if s.c != nil {
		err = multierr.Append(err, s.c.Close())
		s.c = nil
	}
	return err
}

// ErrorSink writes rejected lines verbatim, one per line.
type ErrorSink struct {
	w *bufio.Writer
	c io.Closer
}

func NewErrorSink(w io.Writer) *ErrorSink {
	return &ErrorSink{w: bufio.NewWriter(w)}
}

// CreateErrorSink creates or truncates path.
func CreateErrorSink(path string) (*ErrorSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &ErrorSink{w: bufio.NewWriter(f), c: f}, nil
}

func (s *ErrorSink) WriteLine(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return fmt.Errorf("write errors: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write errors: %w", err)
	}
	return nil
}

func (s *ErrorSink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush errors: %w", err)
	}
	return nil
}

func (s *ErrorSink) Close() error {
	err := s.Flush()
	if s.c != nil {
		err = multierr.Append(err, s.c.Close())
		s.c = nil
	}
	return err
}
