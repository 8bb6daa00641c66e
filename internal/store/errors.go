package store

import "codeberg.org/mutker/ppgcollect/internal/errors"

const (
	ErrStorageRead  = errors.ErrStorageRead
	ErrStorageWrite = errors.ErrStorageWrite
	ErrEncode       = errors.ErrorCode("store_encode_failed")
)
