package service

import "net/http"

// Error is a business error carrying the stable code and HTTP status the API
// layer maps it to.
type Error struct {
	Code     string
	Message  string
	HTTPCode int
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrEmailExists = &Error{
		Code:     "EMAIL_EXISTS",
		Message:  "user with this email already exists",
		HTTPCode: http.StatusConflict,
	}
	ErrInvalidCredentials = &Error{
		Code:     "INVALID_CREDENTIALS",
		Message:  "invalid email or password",
		HTTPCode: http.StatusUnauthorized,
	}
	ErrProfileNotFound = &Error{
		Code:     "NOT_FOUND",
		Message:  "profile not found",
		HTTPCode: http.StatusNotFound,
	}
	ErrFormalityNotFound = &Error{
		Code:     "NOT_FOUND",
		Message:  "formality not found",
		HTTPCode: http.StatusNotFound,
	}
	ErrAccessDenied = &Error{
		Code:     "ACCESS_DENIED",
		Message:  "you don't have access to this formality",
		HTTPCode: http.StatusForbidden,
	}
	ErrInvalidFormalityType = &Error{
		Code:     "INVALID_TYPE",
		Message:  "unknown formality type",
		HTTPCode: http.StatusBadRequest,
	}
	ErrInvalidStatus = &Error{
		Code:     "INVALID_STATUS",
		Message:  "unknown formality status",
		HTTPCode: http.StatusBadRequest,
	}
	// ErrPaymentLinkRequired rejects direct transitions to pending_payment;
	// that state is only reached through the payment-link flow.
	ErrPaymentLinkRequired = &Error{
		Code:     "PAYMENT_LINK_REQUIRED",
		Message:  "status pending_payment requires a sent payment link",
		HTTPCode: http.StatusBadRequest,
	}
	ErrLastClient = &Error{
		Code:     "LAST_CLIENT",
		Message:  "cannot remove the last client of a formality",
		HTTPCode: http.StatusBadRequest,
	}
	ErrSelfRemoval = &Error{
		Code:     "SELF_REMOVAL",
		Message:  "cannot remove yourself from a formality",
		HTTPCode: http.StatusBadRequest,
	}
	// ErrNotAFormalist rejects assigning a profile without the formalist
	// role as a formality's formalist.
	ErrNotAFormalist = &Error{
		Code:     "NOT_A_FORMALIST",
		Message:  "assigned formalist must have the formalist role",
		HTTPCode: http.StatusBadRequest,
	}
	ErrNoFormalist = &Error{
		Code:     "NO_FORMALIST",
		Message:  "no formalist available for assignment",
		HTTPCode: http.StatusBadRequest,
	}
	ErrClientNotLinked = &Error{
		Code:     "NOT_FOUND",
		Message:  "client is not linked to this formality",
		HTTPCode: http.StatusNotFound,
	}
	ErrInvalidPrice = &Error{
		Code:     "INVALID_PRICE",
		Message:  "no billable component for this formality",
		HTTPCode: http.StatusBadRequest,
	}
	ErrPaymentNotFound = &Error{
		Code:     "NOT_FOUND",
		Message:  "payment session not found",
		HTTPCode: http.StatusNotFound,
	}
	ErrMissingFormalityID = &Error{
		Code:     "MISSING_FORMALITY_ID",
		Message:  "formalityId is required",
		HTTPCode: http.StatusBadRequest,
	}
)
