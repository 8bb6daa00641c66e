package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrTimeout         ErrorCode = "operation_timeout"
	ErrCancelled       ErrorCode = "operation_cancelled"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"
	ErrMissingSession  ErrorCode = "missing_session"
	ErrLoadRoster      ErrorCode = "roster_load_failed"
	ErrEmptyRoster     ErrorCode = "roster_empty"
	ErrInvalidStart    ErrorCode = "invalid_fixed_start"

	// Acquisition errors
	ErrTransport        ErrorCode = "transport_failed"
	ErrDecode           ErrorCode = "decode_failed"
	ErrUnexpectedStatus ErrorCode = "unexpected_status"
	ErrTaskFailed       ErrorCode = "task_failed"
	ErrMainLoop         ErrorCode = "main_loop_failed"

	// Storage errors
	ErrStorageRead  ErrorCode = "storage_read_failed"
	ErrStorageWrite ErrorCode = "storage_write_failed"
	ErrBackup       ErrorCode = "backup_failed"
	ErrBootstrap    ErrorCode = "bootstrap_failed"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrTimeout:          "Operation timed out",
	ErrCancelled:        "Operation cancelled",
	ErrInvalidConfig:    "Invalid configuration",
	ErrReadConfig:       "Failed to read config file",
	ErrBindFlags:        "Failed to bind flags",
	ErrInvalidInterval:  "Invalid interval value",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrMissingSession:   "Session name is not set",
	ErrLoadRoster:       "Failed to load device roster",
	ErrEmptyRoster:      "Device roster has no pollable devices",
	ErrInvalidStart:     "Invalid fixed start time",
	ErrTransport:        "Request to sensor endpoint failed",
	ErrDecode:           "Failed to decode sensor response",
	ErrUnexpectedStatus: "Unexpected response status",
	ErrTaskFailed:       "Fetch task failed",
	ErrMainLoop:         "Error in main loop",
	ErrStorageRead:      "Failed to read storage file",
	ErrStorageWrite:     "Failed to write storage file",
	ErrBackup:           "Failed to back up file",
	ErrBootstrap:        "Failed to create default file",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
