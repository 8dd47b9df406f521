// Package metrics counts what an export run did and writes the result in
// the Prometheus text format, for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Recorder struct {
	reg      *prometheus.Registry
	lines    *prometheus.CounterVec
	files    prometheus.Counter
	lastRun  prometheus.Gauge
	duration prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		lines: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logexport_lines_total",
				Help: "Access log lines exported, by outcome",
			},
			[]string{"outcome"},
		),
		files: f.NewCounter(prometheus.CounterOpts{
			Name: "logexport_files_total",
			Help: "Log files read during the run",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "logexport_last_run_timestamp_seconds",
			Help: "Unix time the last export finished",
		}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Name: "logexport_last_run_duration_seconds",
			Help: "Wall time of the last export",
		}),
	}
}

func (r *Recorder) ObserveFile(string) { r.files.Inc() }

func (r *Recorder) ObserveLine(parsed bool) {
	if parsed {
		r.lines.WithLabelValues("parsed").Inc()
		return
	}
	r.lines.WithLabelValues("rejected").Inc()
}

// Finish stamps the run end time and duration.
func (r *Recorder) Finish(start, end time.Time) {
	r.lastRun.Set(float64(end.Unix()))
	r.duration.Set(end.Sub(start).Seconds())
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
