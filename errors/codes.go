// api/errors/codes.go
package errors

import "errors"

// Stable machine-readable codes surfaced in API responses. Callers switch on
// these rather than on error strings.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeTransport    = "TRANSPORT_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

// Code maps a domain error to its taxonomy code. Unrecognized errors are
// reported as internal.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateRoleName),
		errors.Is(err, ErrEmptyPermissionSet),
		errors.Is(err, ErrUnknownPermission),
		errors.Is(err, ErrInvalidRoleData),
		errors.Is(err, ErrInvalidNotificationData),
		errors.Is(err, ErrInvalidPagination):
		return CodeValidation
	case errors.Is(err, ErrSystemRoleImmutable),
		errors.Is(err, ErrPermissionDenied):
		return CodeForbidden
	case errors.Is(err, ErrRoleNotFound),
		errors.Is(err, ErrMembershipNotFound),
		errors.Is(err, ErrNotificationNotFound):
		return CodeNotFound
	case errors.Is(err, ErrRoleInUse):
		return CodeConflict
	case errors.Is(err, ErrHandshakeRejected):
		return CodeTransport
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}
