package stream

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
)

// Reader yields the lines of one log file, decompressing on the fly.
// It is forward only; open a new Reader to start over.
type Reader struct {
	f    *os.File
	dec  io.ReadCloser
	r    *bufio.Reader
	done bool
}

// Open opens path and prepares line reading with the given codec.
func Open(path string, codec Codec) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := codec.decoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s stream %s: %w", codec, path, err)
	}
	return &Reader{f: f, dec: dec, r: bufio.NewReaderSize(dec, 64*1024)}, nil
}

// ReadLine returns the next line without its terminator. A last line with
// no trailing newline is still returned. At end of input it returns io.EOF.
func (r *Reader) ReadLine() (string, error) {
	if r.done {
		return "", io.EOF
	}
	s, err := r.r.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", err
		}
		r.done = true
		if len(s) == 0 {
			return "", io.EOF
		}
	}
	return trimEOL(s), nil
}

func trimEOL(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}

// Close releases the decompressor and the file.
func (r *Reader) Close() error {
	return multierr.Append(r.dec.Close(), r.f.Close())
}
