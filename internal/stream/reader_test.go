package stream

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var lines []string
	for {
		s, err := r.ReadLine()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, s)
	}
	return lines
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func gzipBytes(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func lz4Bytes(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const content = "first line\nsecond line\r\n\nlast without newline"

var want = []string{"first line", "second line", "", "last without newline"}

func TestReadLineCodecs(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"access.log.1":     []byte(content),
		"access.log.2.gz":  gzipBytes(t, content),
		"access.log.3.zst": zstdBytes(t, content),
		"access.log.4.lz4": lz4Bytes(t, content),
	}
	for name, data := range files {
		t.Run(name, func(t *testing.T) {
			p := writeFile(t, dir, name, data)
			r, err := Open(p, CodecFor(name))
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, want, readAll(t, r))
			// exhausted readers stay exhausted
			_, err = r.ReadLine()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestReadLineEmptyFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "access.log", nil)
	r, err := Open(p, Plain)
	require.NoError(t, err)
	defer r.Close()
	assert.Empty(t, readAll(t, r))
}

func TestReadLineTrailingNewline(t *testing.T) {
	p := writeFile(t, t.TempDir(), "access.log", []byte("a\nb\n"))
	r, err := Open(p, Plain)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"a", "b"}, readAll(t, r))
}

func TestReadLineConcatenatedGzip(t *testing.T) {
	data := append(gzipBytes(t, "one\n"), gzipBytes(t, "two\n")...)
	p := writeFile(t, t.TempDir(), "access.log.1.gz", data)
	r, err := Open(p, Gzip)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"one", "two"}, readAll(t, r))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.log"), Plain)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenCorruptGzip(t *testing.T) {
	p := writeFile(t, t.TempDir(), "access.log.1.gz", []byte("plain text, not gzip"))
	_, err := Open(p, Gzip)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip stream")
}

func TestTrimSuffix(t *testing.T) {
	cases := []struct {
		in    string
		base  string
		codec Codec
	}{
		{"access.log.1.gz", "access.log.1", Gzip},
		{"access.log.1.GZ", "access.log.1", Gzip},
		{"access.log.7.zst", "access.log.7", Zstd},
		{"access.log.3.lz4", "access.log.3", LZ4},
		{"access.log.2", "access.log.2", Plain},
		{"access.log", "access.log", Plain},
	}
	for _, c := range cases {
		base, codec := TrimSuffix(c.in)
		assert.Equal(t, c.base, base, c.in)
		assert.Equal(t, c.codec, codec, c.in)
	}
	assert.Equal(t, "zstd", Zstd.String())
	assert.Equal(t, "plain", CodecFor("access.log").String())
}
