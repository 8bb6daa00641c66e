package archive

import (
	"context"

	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

// Recorder mirrors committed measurements into the archive.
type Recorder interface {
	Record(ctx context.Context, measurements []sensor.Measurement) error
	Close() error
}

// Repository defines the interface for archive storage
type Repository interface {
	Record(measurements []sensor.Measurement) error
	Flush() error
	Close() error
}
