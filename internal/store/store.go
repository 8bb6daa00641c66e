// Package store owns the measurement history and the latest-value snapshot
// and persists both after every cycle.
package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/logger"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
	jsonIndent      = "  "
)

// Store is the single writer of the history and snapshot files.
type Store struct {
	fs           afero.Fs
	historyPath  string
	snapshotPath string

	mu      sync.RWMutex
	history []sensor.Measurement
}

// Open loads the existing history. A missing or unreadable history file
// starts an empty history.
func Open(fs afero.Fs, historyPath, snapshotPath string) (*Store, error) {
	errFactory := errors.New()

	if historyPath == "" || snapshotPath == "" {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "history and snapshot paths are required")
	}

	s := &Store{
		fs:           fs,
		historyPath:  historyPath,
		snapshotPath: snapshotPath,
		history:      make([]sensor.Measurement, 0),
	}

	history, err := loadHistory(fs, historyPath)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("path", historyPath).
			Msg("History not loaded, starting empty")
	} else {
		s.history = history
	}

	logger.Info().
		Str("path", historyPath).
		Int("measurements", len(s.history)).
		Msg("History loaded")

	return s, nil
}

func loadHistory(fs afero.Fs, path string) ([]sensor.Measurement, error) {
	errFactory := errors.New()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageRead, err)
	}

	var history []sensor.Measurement
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errFactory.Wrap(ErrStorageRead, err)
	}
	if history == nil {
		history = make([]sensor.Measurement, 0)
	}

	return history, nil
}

// Commit appends the cycle's measurements to the history and replaces the
// snapshot with delta. The history file is only rewritten when there is
// something new; the snapshot file is rewritten every cycle.
func (s *Store) Commit(measurements []sensor.Measurement, delta sensor.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(measurements) > 0 {
		next := append(s.history, measurements...)
		if err := s.write(s.historyPath, next); err != nil {
			return err
		}
		s.history = next
		logger.Debug().
			Int("added", len(measurements)).
			Int("total", len(s.history)).
			Msg("History saved")
	}

	if delta == nil {
		delta = make(sensor.Snapshot)
	}
	if err := s.write(s.snapshotPath, delta); err != nil {
		return err
	}

	logger.Debug().Int("devices", len(delta)).Msg("Snapshot saved")

	return nil
}

// write replaces path atomically through a temporary file in the same
// directory.
func (s *Store) write(path string, v any) error {
	errFactory := errors.New()

	data, err := json.MarshalIndent(v, "", jsonIndent)
	if err != nil {
		return errFactory.Wrap(ErrEncode, err)
	}

	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, defaultDirPerm); err != nil {
		return errFactory.WithData(ErrStorageWrite, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  dir,
			Error: err.Error(),
		})
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			if err := s.fs.Remove(tmpName); err != nil && !os.IsNotExist(err) {
				logger.Debug().Err(err).Str("path", tmpName).Msg("Failed to remove temporary file")
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	if err := s.fs.Chmod(tmpName, defaultFilePerm); err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		return errFactory.WithData(ErrStorageWrite, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "rename",
			Path:  path,
			Error: err.Error(),
		})
	}
	committed = true

	return nil
}

// History returns a copy of the in-memory history.
func (s *Store) History() []sensor.Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]sensor.Measurement, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of measurements in the history.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.history)
}
