package main

import (
	"flag"
	"io"
	"strings"

	"evocar/internal/config"
	"evocar/internal/logging"
	"evocar/pkg/evocar"
)

// commonFlags are accepted by every command that touches stored runs.
type commonFlags struct {
	configPath    string
	storeKind     string
	dbPath        string
	benchmarksDir string
	exportsDir    string
	logLevel      string
	logFormat     string
}

func bindCommonFlags(fs *flag.FlagSet) *commonFlags {
	defaults := config.Default()
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "", "config file (json, yaml or toml)")
	fs.StringVar(&c.storeKind, "store", defaults.Storage.Kind, "store backend: memory|sqlite (memory keeps nothing between invocations; queries then read run artifacts)")
	fs.StringVar(&c.dbPath, "db-path", defaults.Storage.DBPath, "sqlite database path")
	fs.StringVar(&c.benchmarksDir, "benchmarks-dir", defaults.Storage.BenchmarksDir, "run artifacts directory")
	fs.StringVar(&c.exportsDir, "exports-dir", defaults.Storage.ExportsDir, "export output directory")
	fs.StringVar(&c.logLevel, "log-level", defaults.Log.Level, "log level: trace|debug|info|warn|error")
	fs.StringVar(&c.logFormat, "log-format", defaults.Log.Format, "log format: console|json")
	return c
}

// loadConfig reads the config file and environment, then applies only the
// flags that were set explicitly on the command line.
func loadConfig(fs *flag.FlagSet, c *commonFlags) (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store":
			cfg.Storage.Kind = strings.TrimSpace(c.storeKind)
		case "db-path":
			cfg.Storage.DBPath = c.dbPath
		case "benchmarks-dir":
			cfg.Storage.BenchmarksDir = c.benchmarksDir
		case "exports-dir":
			cfg.Storage.ExportsDir = c.exportsDir
		case "log-level":
			cfg.Log.Level = c.logLevel
		case "log-format":
			cfg.Log.Format = c.logFormat
		}
	})
	return cfg, cfg.Validate()
}

func newClient(fs *flag.FlagSet, c *commonFlags, stderr io.Writer) (*evocar.Client, error) {
	cfg, err := loadConfig(fs, c)
	if err != nil {
		return nil, err
	}
	return evocar.New(evocar.Options{
		Config: cfg,
		Logger: logging.New(stderr, cfg.Log.Level, cfg.Log.Format),
	})
}
