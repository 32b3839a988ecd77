package common

import "fmt"

// ErrorKind classifies failures so callers can decide between rejecting the
// request, retrying later, or treating the record as corrupted.
type ErrorKind int

const (
	ValidationError ErrorKind = iota
	AuthorizationError
	StateConflictError
	ExternalServiceError
	DataCorruptionError
)

// Stable error codes surfaced to API callers.
const (
	CodeInvalidAddress         = "INVALID_ADDRESS"
	CodeAlreadyCertified       = "ALREADY_CERTIFIED"
	CodePaymentMissing         = "PAYMENT_MISSING"
	CodeInvalidName            = "INVALID_NAME"
	CodeMissingSignature       = "MISSING_SIGNATURE"
	CodeMissingMessage         = "MISSING_MESSAGE"
	CodeBadSignature           = "BAD_SIGNATURE"
	CodeSignerPaymentMismatch  = "SIGNER_PAYMENT_MISMATCH"
	CodeQuotaExceeded          = "QUOTA_EXCEEDED"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
)

type Error struct {
	Kind ErrorKind
	Code string
	msg  string
}

func (self *Error) Error() string {
	if self.Code == "" {
		return self.msg
	}
	return fmt.Sprintf("%s: %s", self.Code, self.msg)
}

func NewValidationError(code, format string, args ...interface{}) *Error {
	return &Error{Kind: ValidationError, Code: code, msg: fmt.Sprintf(format, args...)}
}

func NewAuthorizationError(code, format string, args ...interface{}) *Error {
	return &Error{Kind: AuthorizationError, Code: code, msg: fmt.Sprintf(format, args...)}
}

func NewStateConflictError(format string, args ...interface{}) *Error {
	return &Error{Kind: StateConflictError, Code: CodeInvalidStateTransition, msg: fmt.Sprintf(format, args...)}
}

func NewExternalServiceError(format string, args ...interface{}) *Error {
	return &Error{Kind: ExternalServiceError, msg: fmt.Sprintf(format, args...)}
}

func NewDataCorruptionError(format string, args ...interface{}) *Error {
	return &Error{Kind: DataCorruptionError, msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err when it carries one. Unclassified errors
// are reported as external service failures.
func KindOf(err error) ErrorKind {
	if cerr, ok := err.(*Error); ok {
		return cerr.Kind
	}
	return ExternalServiceError
}

// CodeOf returns the stable code of err, or empty for unclassified errors.
func CodeOf(err error) string {
	if cerr, ok := err.(*Error); ok {
		return cerr.Code
	}
	return ""
}
