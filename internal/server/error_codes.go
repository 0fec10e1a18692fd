package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument     = 1000
	ErrCodeInvalidJSON         = 1001
	ErrCodeRequestTooLarge     = 1002
	ErrCodeInvalidQuery        = 1003
	ErrCodeInvalidID           = 1004
	ErrCodeInvalidTitle        = 1005
	ErrCodeInvalidContent      = 1006
	ErrCodeInvalidCategory     = 1007
	ErrCodeInvalidImage        = 1008
	ErrCodeMissingRequired     = 1009
	ErrCodeInvalidImportRecord = 1010

	// Domain state (2xxx)
	ErrCodePostNotFound  = 2001
	ErrCodeImageNotFound = 2002

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal         = 4001
	ErrCodeStoreUnavailable = 4002
	ErrCodeExportFailed     = 4003
	ErrCodeImportFailed     = 4004
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 404:
		return ErrCodePostNotFound
	case 413:
		return ErrCodeRequestTooLarge
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 503:
		return ErrCodeStoreUnavailable
	default:
		return 0
	}
}
