package handlers

// Stable, machine-readable error codes carried by ErrorResponse.Code.
// Clients branch on these rather than on messages.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Lookup admission.
	ErrCodeUnknownKind         = "unknown_kind"
	ErrCodeKindDisabled        = "kind_disabled"
	ErrCodeInsufficientCredits = "insufficient_credits"
	ErrCodeInvalidParams       = "invalid_params"

	ErrCodeStartFailed  = "start_failed"
	ErrCodeListFailed   = "list_failed"
	ErrCodeUpdateFailed = "update_failed"
)
