package archive

import (
	"time"

	"codeberg.org/mutker/ppgcollect/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm       = 0o755
	defaultDBPath        = "measurements.db"
	defaultBackupDir     = "backup"
	defaultBatchSize     = 50
	defaultFlushInterval = 30 * time.Second
)

type Config struct {
	DBPath string
	// BackupDir receives a copy of the database before a schema rebuild.
	BackupDir     string
	BatchSize     int
	FlushInterval time.Duration
	Enabled       bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:        defaultDBPath,
		BackupDir:     defaultBackupDir,
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		Enabled:       false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the rest if the archive is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 {
		return errFactory.WithData(ErrInvalidConfig, c.BatchSize)
	}
	if c.FlushInterval < 0 {
		return errFactory.WithData(ErrInvalidConfig, c.FlushInterval)
	}
	return nil
}
