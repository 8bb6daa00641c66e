package cycle

import "codeberg.org/mutker/ppgcollect/internal/errors"

const (
	ErrTaskFailed    = errors.ErrTaskFailed
	ErrCancelled     = errors.ErrCancelled
	ErrNoDevices     = errors.ErrEmptyRoster
	ErrInvalidLimits = errors.ErrorCode("cycle_invalid_pool_size")
)
