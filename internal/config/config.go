package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint       = "http://157.230.95.209:30003/get_ppg_data"
	DefaultRequestTimeout = 10 * time.Second
	DefaultWindow         = 60 * time.Second
	DefaultInterval       = 5 * time.Second
	DefaultUTCOffset      = 3 * time.Hour
	DefaultPoolSize       = 6
	DefaultRosterFile     = "bracelets.json"
	DefaultHistoryFile    = "measurements.json"
	DefaultSnapshotFile   = "td_data.json"
	DefaultBackupDir      = "backup"
	DefaultLogLevel       = "info"
	DefaultArchiveDB      = "measurements.db"
	DefaultArchiveBatch   = 50
	DefaultArchiveFlush   = 30 * time.Second

	defaultEnvPrefix  = "PPGCOLLECT"
	defaultConfigName = "ppgcollect"
)

// Config is the immutable process configuration. It is built once at
// startup and handed to every component explicitly.
type Config struct {
	Session        string        `mapstructure:"session"`
	Endpoint       string        `mapstructure:"endpoint"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Window         time.Duration `mapstructure:"window"`
	Interval       time.Duration `mapstructure:"interval"`
	FixedStart     string        `mapstructure:"fixed_start"`
	UTCOffset      time.Duration `mapstructure:"utc_offset"`
	PoolSize       int           `mapstructure:"pool_size"`

	RosterFile   string `mapstructure:"roster_file"`
	HistoryFile  string `mapstructure:"history_file"`
	SnapshotFile string `mapstructure:"snapshot_file"`
	BackupDir    string `mapstructure:"backup_dir"`

	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	Archive              bool          `mapstructure:"archive"`
	ArchiveDB            string        `mapstructure:"archive_db"`
	ArchiveBatchSize     int           `mapstructure:"archive_batch_size"`
	ArchiveFlushInterval time.Duration `mapstructure:"archive_flush_interval"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"session":                "session",
	"endpoint":               "endpoint",
	"request-timeout":        "request_timeout",
	"window":                 "window",
	"interval":               "interval",
	"fixed-start":            "fixed_start",
	"utc-offset":             "utc_offset",
	"pool-size":              "pool_size",
	"roster":                 "roster_file",
	"history":                "history_file",
	"snapshot":               "snapshot_file",
	"backup-dir":             "backup_dir",
	"log-level":              "log_level",
	"metrics-addr":           "metrics_addr",
	"archive":                "archive",
	"archive-db":             "archive_db",
	"archive-batch-size":     "archive_batch_size",
	"archive-flush-interval": "archive_flush_interval",
}

// Load builds the configuration from defaults, an optional TOML file,
// environment variables and the given command line arguments, in that
// order of increasing precedence.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := newFlagSet()
	configFlag := fs.String("config", "", "Path to a TOML configuration file")
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	configPath := o.configPath
	if *configFlag != "" {
		configPath = *configFlag
	}
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("ppgcollect", pflag.ContinueOnError)

	fs.String("session", "", "Session name prefixed to every device identity")
	fs.String("endpoint", DefaultEndpoint, "Sensor endpoint URL")
	fs.Duration("request-timeout", DefaultRequestTimeout, "Timeout of a single device request")
	fs.Duration("window", DefaultWindow, "Length of the requested time window")
	fs.Duration("interval", DefaultInterval, "Delay between cycles")
	fs.String("fixed-start", "", "Fixed start time (YYYY-MM-DD-HH-MM-SS); enables fixed-start mode")
	fs.Duration("utc-offset", DefaultUTCOffset, "UTC offset of window timestamps")
	fs.Int("pool-size", DefaultPoolSize, "Maximum number of concurrent device requests")
	fs.String("roster", DefaultRosterFile, "Device roster file")
	fs.String("history", DefaultHistoryFile, "Measurement history file")
	fs.String("snapshot", DefaultSnapshotFile, "Latest-value snapshot file")
	fs.String("backup-dir", DefaultBackupDir, "Backup directory")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("metrics-addr", "", "Listen address for Prometheus metrics; empty disables")
	fs.Bool("archive", false, "Mirror measurements into a SQLite archive")
	fs.String("archive-db", DefaultArchiveDB, "SQLite archive path")
	fs.Int("archive-batch-size", DefaultArchiveBatch, "Archive insert batch size")
	fs.Duration("archive-flush-interval", DefaultArchiveFlush, "Archive periodic flush interval")

	return fs
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(defaultConfigName)
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/ppgcollect")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// Validate checks the configuration for values the acquisition loop
// cannot run with
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Session == "" {
		return errFactory.New(errors.ErrMissingSession)
	}
	if c.Endpoint == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "endpoint must not be empty")
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.Window <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, fmt.Sprintf("window must be positive, got %s", c.Window))
	}
	if c.RequestTimeout <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, fmt.Sprintf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.PoolSize < 1 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, fmt.Sprintf("pool size must be at least 1, got %d", c.PoolSize))
	}
	if c.RosterFile == "" || c.HistoryFile == "" || c.SnapshotFile == "" || c.BackupDir == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "file paths must not be empty")
	}
	if err := distinctFiles(c.RosterFile, c.HistoryFile, c.SnapshotFile); err != nil {
		return err
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Archive && c.ArchiveDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "archive enabled without archive_db")
	}

	return nil
}

// distinctFiles rejects durable files that resolve to the same path.
func distinctFiles(paths ...string) error {
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(p)
		if prev, ok := seen[clean]; ok {
			return errors.New().WithMessage(errors.ErrInvalidConfig,
				fmt.Sprintf("durable files %q and %q are the same file", prev, p))
		}
		seen[clean] = p
	}
	return nil
}

// FixedStartMode reports whether windows advance from a fixed start time
func (c *Config) FixedStartMode() bool {
	return c.FixedStart != ""
}

// Location returns the time zone window bounds are expressed in
func (c *Config) Location() *time.Location {
	offset := int(c.UTCOffset / time.Second)
	sign := "+"
	abs := c.UTCOffset
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, int(abs.Hours()), int(abs.Minutes())%60)
	return time.FixedZone(name, offset)
}
