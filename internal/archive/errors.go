package archive

import "codeberg.org/mutker/ppgcollect/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("archive_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("archive_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("archive_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("archive_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("archive_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed

	// Service Errors
	ErrServiceShutdown = errors.ErrShutdownFailed
	ErrRecordFailed    = errors.ErrorCode("archive_record_failed")

	// Operation Errors
	ErrOperationCancelled = errors.ErrCancelled
)
