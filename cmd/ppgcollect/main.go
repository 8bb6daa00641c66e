package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"codeberg.org/mutker/ppgcollect/internal/acquire"
	"codeberg.org/mutker/ppgcollect/internal/archive"
	"codeberg.org/mutker/ppgcollect/internal/backup"
	"codeberg.org/mutker/ppgcollect/internal/config"
	"codeberg.org/mutker/ppgcollect/internal/cycle"
	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/fetch"
	"codeberg.org/mutker/ppgcollect/internal/logger"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
	"codeberg.org/mutker/ppgcollect/internal/store"
	"codeberg.org/mutker/ppgcollect/internal/telemetry"
	"codeberg.org/mutker/ppgcollect/internal/window"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := afero.NewOsFs()

	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		if err := initLogger(config.DefaultLogLevel, os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		}
		backupDefaults(fs)
		return 1
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	logger.Debug().Msg("Config loaded")

	files, err := acquire.DurableFiles(cfg)
	if err != nil {
		return fatal(err, nil)
	}
	backups := backup.New(fs, cfg.BackupDir, files, nil)

	if err := backups.Bootstrap(); err != nil {
		return fatal(err, backups)
	}

	runner, metrics, closeArchive, err := setup(fs, cfg, backups)
	if err != nil {
		return fatal(err, backups)
	}
	defer closeArchive()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if cfg.MetricsAddr != "" {
		metrics.Serve(ctx, cfg.MetricsAddr)
	}

	if err := runner.Run(ctx); err != nil {
		logError(err, "Error in main loop")
		return 1
	}

	logger.Info().Msg("Exiting...")
	return 0
}

func setup(fs afero.Fs, cfg *config.Config, backups *backup.Manager) (*acquire.Runner, *telemetry.Metrics, func(), error) {
	noop := func() {}

	devices, err := sensor.LoadRoster(fs, cfg.RosterFile)
	if err != nil {
		return nil, nil, noop, err
	}

	scheduler, err := window.New(cfg.FixedStart, cfg.Window, cfg.Location(), nil)
	if err != nil {
		return nil, nil, noop, err
	}

	fetcher, err := fetch.New(fetch.Options{
		Endpoint: cfg.Endpoint,
		Session:  cfg.Session,
		Timeout:  cfg.RequestTimeout,
		Location: cfg.Location(),
	})
	if err != nil {
		return nil, nil, noop, err
	}

	coordinator, err := cycle.New(fetcher, devices, cfg.PoolSize)
	if err != nil {
		return nil, nil, noop, err
	}

	st, err := store.Open(fs, cfg.HistoryFile, cfg.SnapshotFile)
	if err != nil {
		return nil, nil, noop, err
	}

	archiveCfg := archive.DefaultConfig()
	archiveCfg.Enabled = cfg.Archive
	archiveCfg.BackupDir = cfg.BackupDir
	if cfg.ArchiveDB != "" {
		archiveCfg.DBPath = cfg.ArchiveDB
	}
	if cfg.ArchiveBatchSize > 0 {
		archiveCfg.BatchSize = cfg.ArchiveBatchSize
	}
	if cfg.ArchiveFlushInterval > 0 {
		archiveCfg.FlushInterval = cfg.ArchiveFlushInterval
	}

	recorder, err := archive.NewService(archiveCfg)
	if err != nil {
		return nil, nil, noop, err
	}
	closeArchive := func() {
		if err := recorder.Close(); err != nil {
			logError(err, "Failed to close archive")
		}
	}

	metrics := telemetry.New()
	metrics.SetHistorySize(st.Len())

	runner, err := acquire.New(acquire.Deps{
		Scheduler:   scheduler,
		Coordinator: coordinator,
		Store:       st,
		Backup:      backups,
		Archive:     recorder,
		Observer:    metrics,
		Interval:    cfg.Interval,
	})
	if err != nil {
		closeArchive()
		return nil, nil, noop, err
	}

	ev := logger.Info().
		Str("session", cfg.Session).
		Bool("fixed_start", scheduler.Fixed()).
		Dur("window", cfg.Window).
		Dur("interval", cfg.Interval).
		Int("workers", coordinator.Size())
	if cfg.FixedStartMode() {
		ev = ev.Str("fixed_start_time", cfg.FixedStart)
	}
	ev.Msg("Acquisition configured")

	return runner, metrics, closeArchive, nil
}

// initLogger falls back to plain logging on w when level is unusable, so
// the messages of a failing startup are never dropped.
func initLogger(level string, w io.Writer) error {
	err := logger.Init(level, logger.IsService())
	if err == nil {
		return nil
	}
	fmt.Fprintf(w, "failed to initialize logger: %v\n", err)
	return logger.InitWithWriter(w, config.DefaultLogLevel)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// fatal logs a startup failure and backs up whatever exists.
func fatal(err error, backups *backup.Manager) int {
	logError(err, "Startup failed")
	if backups != nil {
		if _, err := backups.Backup(); err != nil {
			logError(err, "Backup incomplete")
		}
	}
	return 1
}

// backupDefaults backs up the files at their default locations when no
// configuration could be loaded.
func backupDefaults(fs afero.Fs) {
	files := []backup.File{
		{Path: config.DefaultRosterFile},
		{Path: config.DefaultHistoryFile},
		{Path: config.DefaultSnapshotFile},
	}
	if _, err := backup.New(fs, config.DefaultBackupDir, files, nil).Backup(); err != nil {
		logError(err, "Backup incomplete")
	}
}

func logError(err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.ErrorWithCode(appErr).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}
