package errors

// Error codes are stable identifiers: log processors and callers match on
// them, so existing codes must never be renumbered.
//
// Ranges:
//
//	1xx - configuration
//	2xx - storage / index files
//	4xx - request validation (never retryable: retrying an invalid
//	      request cannot succeed)
//	5xx - internal
const (
	// Configuration errors (1xx)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (2xx)
	ErrCodeIndexCorrupt = "ERR_201_INDEX_CORRUPT"
	ErrCodeIndexClosed  = "ERR_202_INDEX_CLOSED"
	ErrCodeStorageIO    = "ERR_203_STORAGE_IO"

	// Validation errors (4xx)
	ErrCodeInvalidWeights    = "ERR_401_INVALID_WEIGHTS"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidMode       = "ERR_403_INVALID_MODE"
	ErrCodeEmptyQuery        = "ERR_404_EMPTY_QUERY"
	ErrCodeInvalidDocument   = "ERR_405_INVALID_DOCUMENT"

	// Internal errors (5xx)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
	ErrCodeIngestFailed = "ERR_503_INGEST_FAILED"
)

// Category groups error codes for logging and presentation.
type Category string

const (
	CategoryConfig     Category = "Config"
	CategoryStorage    Category = "Storage"
	CategoryValidation Category = "Validation"
	CategoryInternal   Category = "Internal"
)

// categoryFromCode derives the category from the code's range.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}
