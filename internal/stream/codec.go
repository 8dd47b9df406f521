package stream

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies how a log file is encoded on disk.
type Codec int

const (
	Plain Codec = iota
	Gzip
	Zstd
	LZ4
)

var suffixes = []struct {
	ext   string
	codec Codec
}{
	{".gz", Gzip},
	{".zst", Zstd},
	{".lz4", LZ4},
}

func (c Codec) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "plain"
	}
}

// CodecFor picks the codec from a file name suffix.
func CodecFor(name string) Codec {
	_, c := TrimSuffix(name)
	return c
}

// TrimSuffix strips one recognised compression suffix from name and
// reports which codec it denotes. Names without one come back unchanged
// with Plain.
func TrimSuffix(name string) (string, Codec) {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.ext) {
			return name[:len(name)-len(s.ext)], s.codec
		}
	}
	return name, Plain
}

// decoder wraps r according to the codec. Gzip and zstd validate their
// headers here; lz4 reports a bad frame on first read.
func (c Codec) decoder(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return io.NopCloser(r), nil
	}
}
