package acquire

import (
	"github.com/goccy/go-json"

	"codeberg.org/mutker/ppgcollect/internal/backup"
	"codeberg.org/mutker/ppgcollect/internal/config"
	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

// DurableFiles lists the roster, history and snapshot files together
// with the content they start with.
func DurableFiles(cfg *config.Config) ([]backup.File, error) {
	roster, err := json.MarshalIndent(sensor.DefaultRoster, "", "  ")
	if err != nil {
		return nil, errors.New().Wrap(ErrDefaultFiles, err)
	}

	return []backup.File{
		{Path: cfg.RosterFile, Default: roster},
		{Path: cfg.HistoryFile, Default: []byte("[]")},
		{Path: cfg.SnapshotFile, Default: []byte("{}")},
	}, nil
}
