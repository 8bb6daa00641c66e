package fetch

import "codeberg.org/mutker/ppgcollect/internal/errors"

const (
	ErrTransport        = errors.ErrTransport
	ErrDecode           = errors.ErrDecode
	ErrUnexpectedStatus = errors.ErrUnexpectedStatus
	ErrInvalidEndpoint  = errors.ErrorCode("fetch_invalid_endpoint")
)
