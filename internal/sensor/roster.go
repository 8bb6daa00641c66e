package sensor

import (
	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/logger"
)

// DefaultRoster is written when no roster file exists yet.
var DefaultRoster = []Device{
	{MACAddress: "CE:D6:AD:45:ED:75", Name: "swaid 1330"},
}

// LoadRoster reads the device roster. Entries with process=false are
// dropped; entries without a MAC address are kept and skipped per cycle.
func LoadRoster(fs afero.Fs, path string) ([]Device, error) {
	errFactory := errors.New()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrLoadRoster, err)
	}

	var entries []Device
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errFactory.Wrap(errors.ErrLoadRoster, err)
	}

	devices := make([]Device, 0, len(entries))
	pollable := 0
	for _, d := range entries {
		if !d.Enabled() {
			logger.Debug().Str("device", d.Label()).Msg("Device disabled in roster")
			continue
		}
		if d.Pollable() {
			pollable++
		}
		devices = append(devices, d)
	}

	if pollable == 0 {
		return nil, errFactory.WithData(errors.ErrEmptyRoster, path)
	}

	logger.Info().
		Str("path", path).
		Int("devices", len(devices)).
		Int("pollable", pollable).
		Msg("Roster loaded")
	for _, d := range devices {
		logger.Info().Str("device", d.Name).Str("mac", d.MACAddress).Msg("Roster entry")
	}

	return devices, nil
}

// Pollable returns the devices a request can be issued for.
func Pollable(devices []Device) []Device {
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.Pollable() {
			out = append(out, d)
		}
	}
	return out
}
