package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"logexport/internal/accesslog"
	"logexport/internal/discover"
	"logexport/internal/logging"
)

const (
	DefaultCSVName   = "result.csv"
	DefaultErrorName = "error.txt"
)

// Config holds everything an export run can be tuned with. Zero values
// are filled in by Default and Load.
type Config struct {
	CSVName     string         `yaml:"csv_name"`
	ErrorName   string         `yaml:"error_name"`
	IPPolicy    string         `yaml:"ip_policy"`
	IPSalt      string         `yaml:"ip_salt"`
	DBPath      string         `yaml:"db_path"`
	MetricsFile string         `yaml:"metrics_file"`
	Logging     logging.Config `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		CSVName:   DefaultCSVName,
		ErrorName: DefaultErrorName,
		IPPolicy:  string(accesslog.IPStore),
		Logging:   logging.Config{Level: "info"},
	}
}

// Load reads a YAML file on top of Default. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the exporter cannot act on.
func (c Config) Validate() error {
	if _, err := accesslog.ParseIPPolicy(c.IPPolicy); err != nil {
		return err
	}
	for _, name := range []string{c.CSVName, c.ErrorName} {
		if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
			return fmt.Errorf("output name %q must be a plain file name", name)
		}
		if discover.Matches(name) {
			return fmt.Errorf("output name %q would be read back as a rotated access log", name)
		}
	}
	if c.CSVName == c.ErrorName {
		return errors.New("csv_name and error_name must differ")
	}
	return nil
}
