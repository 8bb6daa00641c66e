// Package archive mirrors the measurement history into a SQLite database.
package archive

import (
	"context"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/logger"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

type service struct {
	repo Repository
	cfg  Config
}

type noopRecorder struct{}

func NewService(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Archive disabled, using no-op recorder")
		return noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, logger.Default())
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to create archive repository")
		return nil, err
	}

	logger.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Archive service initialized")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, measurements []sensor.Measurement) error {
	errFactory := errors.New()

	if len(measurements) == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationCancelled, ctx.Err())
	default:
		if err := s.repo.Record(measurements); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (noopRecorder) Record(context.Context, []sensor.Measurement) error {
	return nil
}

func (noopRecorder) Close() error {
	return nil
}
