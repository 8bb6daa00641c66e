package acquire

import (
	"context"
	"time"

	"codeberg.org/mutker/ppgcollect/internal/cycle"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

// Scheduler yields the window of the next cycle and renders window
// bounds in its location.
type Scheduler interface {
	Next() sensor.Window
	Format(t time.Time) string
}

// Coordinator runs one cycle over all devices.
type Coordinator interface {
	Run(ctx context.Context, w sensor.Window) (cycle.Result, error)
}

// Store persists the committed result of a cycle.
type Store interface {
	Commit(measurements []sensor.Measurement, delta sensor.Snapshot) error
	Len() int
}

// Backupper copies the durable files aside.
type Backupper interface {
	Backup() ([]string, error)
}

// Observer receives per-cycle telemetry.
type Observer interface {
	ObserveCycle(outcomes []sensor.Outcome, added int, lastReceived time.Time, took time.Duration)
	SetHistorySize(n int)
	ObserveBackup(err error)
}
