package apperr

import (
	"errors"
	"fmt"
)

// Code is the machine readable error code returned to API consumers.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeInvalidDate        Code = "INVALID_DATE"
	CodePastAppointment    Code = "PAST_APPOINTMENT"
	CodeInvalidSlot        Code = "INVALID_SLOT"
	CodeSlotTaken          Code = "SLOT_TAKEN"
	CodePatientConflict    Code = "PATIENT_CONFLICT"
	CodeSlotOverlap        Code = "SLOT_OVERLAP"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAccessDenied       Code = "ACCESS_DENIED"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodePrescriptionExists Code = "PRESCRIPTION_EXISTS"
	CodeBillExists         Code = "BILL_EXISTS"
	CodeAlreadyPaid        Code = "ALREADY_PAID"
	CodePaymentFailed      Code = "PAYMENT_FAILED"
	CodeEmailExists        Code = "EMAIL_EXISTS"
	CodeServer             Code = "SERVER_ERROR"
)

// Error is a domain rule violation that is reported to the caller as is.
//
// Sentinels are declared once per package with New and specialised per call
// with Withf or WithDetails; errors.Is keeps matching the sentinel.
type Error struct {
	Code    Code
	Message string
	Details any

	kind *Error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || e.root() == t
}

// Withf returns a copy of e with a formatted message.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
		Details: e.Details,
		kind:    e.root(),
	}
}

// WithDetails returns a copy of e carrying details for the response body.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		kind:    e.root(),
	}
}

func (e *Error) root() *Error {
	if e.kind != nil {
		return e.kind
	}
	return e
}

// As extracts the domain error from err, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// CodeOf returns the code of the domain error in err's chain, or CodeServer.
func CodeOf(err error) Code {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return CodeServer
}

// FieldError describes one failed field rule of a VALIDATION_ERROR.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validation builds a VALIDATION_ERROR carrying field errors.
func Validation(fields ...FieldError) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: "validation failed",
		Details: fields,
		kind:    ErrValidation,
	}
}

// ErrValidation is the sentinel every Validation error matches.
var ErrValidation = New(CodeValidation, "validation failed")
