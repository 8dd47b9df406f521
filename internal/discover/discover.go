// Package discover finds the access-log files to export and orders them
// oldest rotation first, with the live access.log last.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"logexport/internal/stream"
)

// LogName is the name of the live access log; rotations carry it as prefix.
const LogName = "access.log"

// Candidate is one file selected for export.
type Candidate struct {
	Path  string
	Name  string
	Seq   uint64 // rotation number, 0 for the live file
	Codec stream.Codec
}

// Candidates returns the files to export for path. A regular file is
// returned as the only candidate, unfiltered. A directory is scanned for
// rotated access logs, which come back in export order.
func Candidates(path string) ([]Candidate, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		name := filepath.Base(path)
		seq, _ := SequenceNumber(name)
		return []Candidate{{Path: path, Name: name, Seq: seq, Codec: stream.CodecFor(name)}}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	out := Select(names)
	for i := range out {
		out[i].Path = filepath.Join(path, out[i].Name)
	}
	return out, nil
}

// Matches reports whether a directory scan would pick up name.
func Matches(name string) bool {
	if !strings.HasPrefix(name, LogName) {
		return false
	}
	_, ok := SequenceNumber(name)
	return ok
}

// Select keeps the rotated access logs among names and sorts them.
// Paths are left empty.
func Select(names []string) []Candidate {
	var out []Candidate
	for _, name := range names {
		if !Matches(name) {
			continue
		}
		seq, _ := SequenceNumber(name)
		out = append(out, Candidate{Name: name, Seq: seq, Codec: stream.CodecFor(name)})
	}
	Sort(out)
	return out
}

// SequenceNumber extracts the rotation number from a log file name:
// 0 for access.log, N for access.log.N with an optional compression
// suffix. ok is false when the name carries no numeric rotation.
func SequenceNumber(name string) (seq uint64, ok bool) {
	if name == LogName {
		return 0, true
	}
	base, _ := stream.TrimSuffix(name)
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(base[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Sort orders candidates by rotation number, highest first, which leaves
// the live file (Seq 0) last. Equal numbers put the live file after any
// other name, then fall back to the name.
func Sort(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Seq != b.Seq {
			return a.Seq > b.Seq
		}
		if (a.Name == LogName) != (b.Name == LogName) {
			return b.Name == LogName
		}
		return a.Name < b.Name
	})
}
