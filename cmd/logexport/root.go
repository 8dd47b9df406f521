package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"logexport/internal/accesslog"
	"logexport/internal/config"
	"logexport/internal/export"
	"logexport/internal/logging"
	"logexport/internal/metrics"
	"logexport/internal/util"
)

type rootFlags struct {
	configPath  string
	csvName     string
	errorName   string
	ipPolicy    string
	ipSalt      string
	dbPath      string
	metricsFile string
	logLevel    string
	logFile     string
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:   "logexport [flags] <path>",
		Short: "Export nginx access logs to a csv file",
		Long: `logexport reads an nginx access log, or a directory holding access.log and
its numbered rotations (plain, .gz, .zst or .lz4), and writes every parsed
line to result.csv and every unparsed line to error.txt. Both files are
created next to the input file, or inside the input directory.

Examples:
  logexport /var/log/nginx
  logexport /var/log/nginx/access.log.3.gz
  logexport --ip-policy mask --db /var/lib/logexport/export.db /var/log/nginx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, &f, args[0])
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	fl.StringVar(&f.csvName, "csv-name", config.DefaultCSVName, "file name of the csv output")
	fl.StringVar(&f.errorName, "error-name", config.DefaultErrorName, "file name of the unparsed-lines output")
	fl.StringVar(&f.ipPolicy, "ip-policy", string(accesslog.IPStore), "client address policy: store|mask|hash|drop")
	fl.StringVar(&f.ipSalt, "ip-salt", "", "salt for the hash policy (fallback to env IP_SALT)")
	fl.StringVar(&f.dbPath, "db", "", "also mirror the export into this SQLite database")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here")
	fl.StringVar(&f.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	fl.StringVar(&f.logFile, "log-file", "", "write logs to this file (rotated) instead of stderr")

	cmd.AddCommand(newCheckCmd())
	return cmd
}

// loadConfig reads the config file and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command, f *rootFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	fl := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fl.Changed(name) {
			*dst = v
		}
	}
	set("csv-name", &cfg.CSVName, f.csvName)
	set("error-name", &cfg.ErrorName, f.errorName)
	set("ip-policy", &cfg.IPPolicy, f.ipPolicy)
	set("ip-salt", &cfg.IPSalt, f.ipSalt)
	set("db", &cfg.DBPath, f.dbPath)
	set("metrics-file", &cfg.MetricsFile, f.metricsFile)
	set("log-level", &cfg.Logging.Level, f.logLevel)
	set("log-file", &cfg.Logging.Path, f.logFile)
	if cfg.IPSalt == "" {
		cfg.IPSalt = os.Getenv("IP_SALT")
	}
	return cfg, cfg.Validate()
}

func runExport(cmd *cobra.Command, f *rootFlags, input string) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	policy, err := accesslog.ParseIPPolicy(cfg.IPPolicy)
	if err != nil {
		return err
	}
	var h accesslog.Hasher
	if policy == accesslog.IPHash {
		if cfg.IPSalt == "" {
			log.Warnf("ip policy hash without a salt; hashes are only as strong as the address space")
		}
		h = util.NewHasher(cfg.IPSalt)
	}

	var rec *metrics.Recorder
	opts := export.Options{
		Input:     input,
		CSVName:   cfg.CSVName,
		ErrorName: cfg.ErrorName,
		Policy:    policy,
		Hasher:    h,
		DBPath:    cfg.DBPath,
		Log:       log,
	}
	if cfg.MetricsFile != "" {
		rec = metrics.New()
		opts.Observer = rec
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checking: %s\n", input)
	start := time.Now()
	st, err := export.Run(opts)
	if err != nil {
		return err
	}
	if rec != nil {
		rec.Finish(start, time.Now())
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	fmt.Fprintf(out, "File with logs as csv: %s\n", st.CSVPath)
	fmt.Fprintf(out, "File with not parsed logs: %s\n", st.ErrorPath)
	fmt.Fprintf(out, "Lines: %d parsed, %d not parsed, %d files\n", st.Parsed, st.Rejected, len(st.Files))
	fmt.Fprintf(out, "Time elapsed: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
