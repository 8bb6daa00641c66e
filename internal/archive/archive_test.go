package archive

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/logger"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

func ptr(v float64) *float64 { return &v }

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		DBPath:    filepath.Join(dir, "measurements.db"),
		BackupDir: filepath.Join(dir, "backup"),
		BatchSize: 1,
		Enabled:   true,
	}
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM measurements").Scan(&n))
	return n
}

func measurements() []sensor.Measurement {
	return []sensor.Measurement{
		{Session: "s", DeviceID: "s_AA", DeviceMAC: "AA", DeviceName: "a", Timestamp: "t1", HR: ptr(71), SI: ptr(120.5)},
		{Session: "s", DeviceID: "s_AA", DeviceMAC: "AA", DeviceName: "a", Timestamp: "t2"},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled without path", Config{}, false},
		{"default", DefaultConfig(), false},
		{"enabled without path", Config{Enabled: true}, true},
		{"negative batch", Config{Enabled: true, DBPath: "x.db", BatchSize: -1}, true},
		{"negative interval", Config{Enabled: true, DBPath: "x.db", FlushInterval: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewServiceDisabled(t *testing.T) {
	rec, err := NewService(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, noopRecorder{}, rec)
	assert.NoError(t, rec.Record(context.Background(), measurements()))
	assert.NoError(t, rec.Close())
}

func TestNewServiceInvalid(t *testing.T) {
	_, err := NewService(Config{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))
}

func TestRecordWritesRows(t *testing.T) {
	cfg := testConfig(t)

	rec, err := NewService(cfg)
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), measurements()))
	require.NoError(t, rec.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT timestamp, hr, si FROM measurements ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	var hrs, sis []sql.NullFloat64
	for rows.Next() {
		var ts string
		var hr, si sql.NullFloat64
		require.NoError(t, rows.Scan(&ts, &hr, &si))
		got = append(got, ts)
		hrs = append(hrs, hr)
		sis = append(sis, si)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []string{"t1", "t2"}, got)
	assert.Equal(t, sql.NullFloat64{Float64: 71, Valid: true}, hrs[0])
	assert.Equal(t, sql.NullFloat64{Float64: 120.5, Valid: true}, sis[0])
	assert.False(t, hrs[1].Valid)
	assert.False(t, sis[1].Valid)
}

func TestRecordBuffersUntilBatchSize(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 3

	repo, err := NewRepository(cfg, logger.Default())
	require.NoError(t, err)

	require.NoError(t, repo.Record(measurements()))
	assert.Equal(t, 0, countRows(t, cfg.DBPath))

	require.NoError(t, repo.Record(measurements()[:1]))
	assert.Equal(t, 3, countRows(t, cfg.DBPath))

	require.NoError(t, repo.Record(measurements()[:1]))
	require.NoError(t, repo.Close())
	assert.Equal(t, 4, countRows(t, cfg.DBPath), "close flushes the remaining buffer")
}

func TestPeriodicFlush(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 100
	cfg.FlushInterval = 20 * time.Millisecond

	repo, err := NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Record(measurements()))

	assert.Eventually(t, func() bool {
		return countRows(t, cfg.DBPath) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	repo, err := NewRepository(testConfig(t), logger.Default())
	require.NoError(t, err)

	require.NoError(t, repo.Close())
	assert.NoError(t, repo.Close())
}

func TestRecordCancelled(t *testing.T) {
	rec, err := NewService(testConfig(t))
	require.NoError(t, err)
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = rec.Record(ctx, measurements())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrOperationCancelled))
}

func TestSchemaVersionMismatchCreatesBackup(t *testing.T) {
	cfg := testConfig(t)

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'));
		CREATE TABLE measurements (legacy TEXT);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	require.NoError(t, repo.Record(measurements()))
	require.NoError(t, repo.Close())

	entries, err := os.ReadDir(cfg.BackupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "archive_v99_")

	db, err = sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
	assert.Equal(t, 2, countRows(t, cfg.DBPath))
}

func TestFreshDatabaseHasNoBackup(t *testing.T) {
	cfg := testConfig(t)

	repo, err := NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = os.Stat(cfg.BackupDir)
	assert.True(t, os.IsNotExist(err))
}
