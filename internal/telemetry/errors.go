package telemetry

import "codeberg.org/mutker/ppgcollect/internal/errors"

const (
	ErrServe           = errors.ErrorCode("telemetry_serve_failed")
	ErrServiceShutdown = errors.ErrShutdownFailed
)
