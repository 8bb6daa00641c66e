package store

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

const (
	historyPath  = "data/measurements.json"
	snapshotPath = "data/td_data.json"
)

func ptr(v float64) *float64 { return &v }

func sample(mac, ts string, hr float64) sensor.Measurement {
	return sensor.Measurement{
		Session:    "s",
		DeviceID:   "s_" + mac,
		DeviceMAC:  mac,
		DeviceName: "bracelet " + mac,
		Timestamp:  ts,
		HR:         ptr(hr),
	}
}

func readHistory(t *testing.T, fs afero.Fs) []sensor.Measurement {
	t.Helper()
	data, err := afero.ReadFile(fs, historyPath)
	require.NoError(t, err)
	var out []sensor.Measurement
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func readSnapshot(t *testing.T, fs afero.Fs) sensor.Snapshot {
	t.Helper()
	data, err := afero.ReadFile(fs, snapshotPath)
	require.NoError(t, err)
	var out sensor.Snapshot
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestOpenMissingHistoryStartsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()

	s, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestOpenInvalidHistoryStartsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, historyPath, []byte("{not json"), 0o644))

	s, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestOpenLoadsExistingHistory(t *testing.T) {
	fs := afero.NewMemMapFs()
	existing := []sensor.Measurement{sample("AA", "t1", 70), sample("BB", "t1", 71)}
	data, err := json.Marshal(existing)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, historyPath, data, 0o644))

	s, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)
	assert.Equal(t, existing, s.History())
}

func TestOpenRequiresPaths(t *testing.T) {
	_, err := Open(afero.NewMemMapFs(), "", snapshotPath)
	assert.Error(t, err)
}

func TestCommitAppendsInOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)

	first := []sensor.Measurement{sample("AA", "t1", 70), sample("AA", "t2", 72)}
	second := []sensor.Measurement{sample("BB", "t3", 65)}

	require.NoError(t, s.Commit(first, sensor.Snapshot{"s_AA": first[1]}))
	require.NoError(t, s.Commit(second, sensor.Snapshot{"s_BB": second[0]}))

	want := append(append([]sensor.Measurement{}, first...), second...)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, want, s.History())
	assert.Equal(t, want, readHistory(t, fs))
}

func TestCommitReplacesSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)

	a := sample("AA", "t1", 70)
	b := sample("BB", "t2", 80)

	require.NoError(t, s.Commit([]sensor.Measurement{a}, sensor.Snapshot{"s_AA": a}))
	require.NoError(t, s.Commit([]sensor.Measurement{b}, sensor.Snapshot{"s_BB": b}))

	snap := readSnapshot(t, fs)
	assert.Equal(t, sensor.Snapshot{"s_BB": b}, snap, "previous devices are not carried over")
}

func TestCommitWithoutMeasurements(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)

	a := sample("AA", "t1", 70)
	require.NoError(t, s.Commit([]sensor.Measurement{a}, sensor.Snapshot{"s_AA": a}))

	require.NoError(t, s.Commit(nil, nil))

	assert.Equal(t, 1, s.Len())
	assert.Len(t, readHistory(t, fs), 1)

	data, err := afero.ReadFile(fs, snapshotPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestCommitKeepsNullFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)

	m := sensor.Measurement{Session: "s", DeviceID: "s_AA", DeviceMAC: "AA", Timestamp: "t1", RMSSD: ptr(41.5)}
	require.NoError(t, s.Commit([]sensor.Measurement{m}, sensor.Snapshot{"s_AA": m}))

	data, err := afero.ReadFile(fs, historyPath)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"session": "s",
		"device_id": "s_AA",
		"device_mac": "AA",
		"device_name": "",
		"timestamp": "t1",
		"hr": null,
		"lf_hf_ratio": null,
		"rmssd": 41.5,
		"sdrr": null,
		"si": null
	}]`, string(data))
}

func TestCommitLeavesNoTemporaryFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)

	a := sample("AA", "t1", 70)
	require.NoError(t, s.Commit([]sensor.Measurement{a}, sensor.Snapshot{"s_AA": a}))

	entries, err := afero.ReadDir(fs, "data")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"measurements.json", "td_data.json"}, names)
}

func TestCommitFailureKeepsHistory(t *testing.T) {
	base := afero.NewMemMapFs()
	s, err := Open(afero.NewReadOnlyFs(base), historyPath, snapshotPath)
	require.NoError(t, err)

	a := sample("AA", "t1", 70)
	require.Error(t, s.Commit([]sensor.Measurement{a}, nil))
	assert.Equal(t, 0, s.Len())
}

func TestCommitWritesNumericSessionAsNumber(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)

	m := sensor.Measurement{Session: "1330", DeviceID: "1330_AA", DeviceMAC: "AA", Timestamp: "t1"}
	require.NoError(t, s.Commit([]sensor.Measurement{m}, sensor.Snapshot{"1330_AA": m}))

	data, err := afero.ReadFile(fs, snapshotPath)
	require.NoError(t, err)
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.InDelta(t, 1330, raw["1330_AA"]["session"], 0)

	reopened, err := Open(fs, historyPath, snapshotPath)
	require.NoError(t, err)
	assert.Equal(t, []sensor.Measurement{m}, reopened.History())
}
