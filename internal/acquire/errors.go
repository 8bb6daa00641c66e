package acquire

import "codeberg.org/mutker/ppgcollect/internal/errors"

const (
	ErrMainLoop     = errors.ErrMainLoop
	ErrCancelled    = errors.ErrCancelled
	ErrInvalidDeps  = errors.ErrorCode("acquire_invalid_dependencies")
	ErrDefaultFiles = errors.ErrBootstrap
)
