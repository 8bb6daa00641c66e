package backup

import "codeberg.org/mutker/ppgcollect/internal/errors"

const (
	ErrBackup    = errors.ErrBackup
	ErrBootstrap = errors.ErrBootstrap
)
