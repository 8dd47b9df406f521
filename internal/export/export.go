// Package export drives an access-log export: it discovers the log files,
// parses every line and routes it to the CSV sink or the error sink.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"logexport/internal/accesslog"
	"logexport/internal/config"
	"logexport/internal/discover"
	"logexport/internal/stream"
	"logexport/internal/util"
)

// Observer is told about progress, e.g. to feed metrics.
type Observer interface {
	ObserveFile(path string)
	ObserveLine(parsed bool)
}

type nopObserver struct{}

func (nopObserver) ObserveFile(string) {}
func (nopObserver) ObserveLine(bool)   {}

// Options configures one run. Only Input is required.
type Options struct {
	Input     string
	CSVName   string
	ErrorName string
	Policy    accesslog.IPPolicy
	Hasher    accesslog.Hasher
	DBPath    string // optional SQLite mirror
	Observer  Observer
	Log       *zap.SugaredLogger
	Now       func() time.Time
}

func (o *Options) setDefaults() {
	if o.CSVName == "" {
		o.CSVName = config.DefaultCSVName
	}
	if o.ErrorName == "" {
		o.ErrorName = config.DefaultErrorName
	}
	if o.Policy == "" {
		o.Policy = accesslog.IPStore
	}
	if o.Policy == accesslog.IPHash && o.Hasher == nil {
		o.Hasher = util.NewHasher("")
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Log == nil {
		o.Log = zap.NewNop().Sugar()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// FileStats counts the lines of one exported file.
type FileStats struct {
	Path     string
	Lines    int64
	Parsed   int64
	Rejected int64
}

// Stats summarises a run.
type Stats struct {
	RunID     string
	CSVPath   string
	ErrorPath string
	Files     []FileStats
	Lines     int64
	Parsed    int64
	Rejected  int64
}

func (s *Stats) add(fs FileStats) {
	s.Files = append(s.Files, fs)
	s.Lines += fs.Lines
	s.Parsed += fs.Parsed
	s.Rejected += fs.Rejected
}

// OutputPaths returns where the CSV and error files go: next to input when
// it is a file, inside it when it is a directory. An output that would
// overwrite the input, or be exported back by a directory scan, is an error.
func OutputPaths(input, csvName, errorName string) (csvPath, errorPath string, err error) {
	fi, err := os.Stat(input)
	if err != nil {
		return "", "", fmt.Errorf("stat input: %w", err)
	}
	dir := input
	if !fi.IsDir() {
		dir = filepath.Dir(input)
	}
	csvPath, errorPath = filepath.Join(dir, csvName), filepath.Join(dir, errorName)
	for _, out := range []string{csvPath, errorPath} {
		if !fi.IsDir() && out == filepath.Clean(input) {
			return "", "", fmt.Errorf("output %s is the input file", out)
		}
		if fi.IsDir() && discover.Matches(filepath.Base(out)) {
			return "", "", fmt.Errorf("output %s would be exported as a rotated access log", out)
		}
	}
	return csvPath, errorPath, nil
}

type exporter struct {
	opts   Options
	log    *zap.SugaredLogger
	csv    RecordSink
	errs   *ErrorSink
	mirror *DBSink
}

// Run exports every candidate under opts.Input. Both output files are
// created (or truncated) even when there is nothing to export. Any I/O
// failure stops the run; sinks are closed on every path.
func Run(opts Options) (st Stats, err error) {
	opts.setDefaults()
	started := opts.Now()
	st.RunID = uuid.NewString()

	st.CSVPath, st.ErrorPath, err = OutputPaths(opts.Input, opts.CSVName, opts.ErrorName)
	if err != nil {
		return st, err
	}
	e := &exporter{opts: opts, log: opts.Log}

	csvSink, err := CreateCSVSink(st.CSVPath)
	if err != nil {
		return st, err
	}
	e.csv = csvSink
	defer func() { err = multierr.Append(err, csvSink.Close()) }()

	e.errs, err = CreateErrorSink(st.ErrorPath)
	if err != nil {
		return st, err
	}
	defer func() { err = multierr.Append(err, e.errs.Close()) }()

	if opts.DBPath != "" {
		e.mirror, err = OpenDBSink(opts.DBPath, st.RunID, opts.Input, started)
		if err != nil {
			return st, err
		}
		defer func() { err = multierr.Append(err, e.mirror.Close()) }()
	}

	e.log.Infof("export: run=%s input=%s csv=%s errors=%s", st.RunID, opts.Input, st.CSVPath, st.ErrorPath)

	cands, err := discover.Candidates(opts.Input)
	if err != nil {
		return st, err
	}
	e.log.Infof("export: files=%d", len(cands))
	for _, c := range cands {
		fs, err := e.exportFile(c)
		st.add(fs)
		if err != nil {
			return st, err
		}
	}

	if err := e.csv.Flush(); err != nil {
		return st, err
	}
	if err := e.errs.Flush(); err != nil {
		return st, err
	}
	if e.mirror != nil {
		if err := e.mirror.Commit(st, opts.Now()); err != nil {
			return st, err
		}
		total, inserted := e.mirror.Counts()
		e.log.Infof("export: db=%s inserted=%d ignored=%d", opts.DBPath, inserted, total-inserted)
	}
	e.log.Infof("export: run=%s files=%d total_lines=%d parsed=%d rejected=%d elapsed=%s",
		st.RunID, len(st.Files), st.Lines, st.Parsed, st.Rejected, opts.Now().Sub(started))
	return st, nil
}

func (e *exporter) exportFile(c discover.Candidate) (fs FileStats, err error) {
	fs.Path = c.Path
	r, err := stream.Open(c.Path, c.Codec)
	if err != nil {
		return fs, fmt.Errorf("open %s: %w", c.Path, err)
	}
	defer func() { err = multierr.Append(err, r.Close()) }()
	e.opts.Observer.ObserveFile(c.Path)
	e.log.Debugf("export: open file=%s codec=%s", c.Path, c.Codec)

	for {
		line, rerr := r.ReadLine()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fs, fmt.Errorf("read %s: %w", c.Path, rerr)
		}
		fs.Lines++
		parsed, err := e.route(c.Path, line)
		if err != nil {
			return fs, err
		}
		if parsed {
			fs.Parsed++
		} else {
			fs.Rejected++
		}
	}
	e.log.Infof("export: file=%s lines=%d parsed=%d rejected=%d", c.Path, fs.Lines, fs.Parsed, fs.Rejected)
	return fs, nil
}

// route sends one line to exactly one of the CSV sink or the error sink.
func (e *exporter) route(source, line string) (bool, error) {
	rec, ok := accesslog.Parse(line)
	e.opts.Observer.ObserveLine(ok)
	if !ok {
		e.log.Debugf("not parsed: %s", line)
		if err := e.errs.WriteLine(line); err != nil {
			return false, err
		}
		if e.mirror != nil {
			return false, e.mirror.WriteRejected(source, line)
		}
		return false, nil
	}
	out := accesslog.Normalize(rec, e.opts.Policy, e.opts.Hasher)
	if err := e.csv.WriteRecord(out); err != nil {
		return true, err
	}
	if e.mirror != nil {
		return true, e.mirror.WriteRecord(source, redactRaw(line, rec, out), out)
	}
	return true, nil
}

// redactRaw swaps the leading client address of a parsed line for its
// normalized form. Rejected lines have no known address and reach the
// mirror verbatim, as they reach the error file.
func redactRaw(line string, orig, out accesslog.Record) string {
	if orig.RemoteAddr == out.RemoteAddr {
		return line
	}
	return out.RemoteAddr + line[len(orig.RemoteAddr):]
}
