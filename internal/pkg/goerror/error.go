package goerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates that the requested resource could not be found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates that the request could not be completed due to a conflict.
	ErrConflict = errors.New("resource conflict")
)

// Type classifies errors into high-level buckets used by the application.
type Type int

const (
	// TypeServer represents server-side failures.
	TypeServer Type = iota
	// TypeBusiness represents business rule violations.
	TypeBusiness
	// TypeValidation represents input validation failures.
	TypeValidation
)

var typeNames = map[Type]string{
	TypeServer:     "ERROR_TYPE_SERVER",
	TypeBusiness:   "ERROR_TYPE_BUSINESS",
	TypeValidation: "ERROR_TYPE_VALIDATION",
}

// String returns the string representation of the error type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "ERROR_TYPE_UNKNOWN"
}

// Code is a stable identifier used for mapping errors to HTTP status codes.
type Code int

const (
	// CodeInternal represents an internal or unspecified error.
	CodeInternal Code = iota
	// CodeInvalidFormat indicates an undecodable request body.
	CodeInvalidFormat
	// CodeInvalidInput indicates a request that failed validation rules.
	CodeInvalidInput
	// CodeBadRequest indicates a well-formed request the server refuses to act on.
	CodeBadRequest
	// CodeNotFound indicates a missing resource.
	CodeNotFound
	// CodeConflict indicates a conflict (e.g., duplicate).
	CodeConflict
	// CodeForbidden indicates a rejected second factor or a disabled feature.
	CodeForbidden
	// CodeTimeout indicates an upstream dependency did not answer in time.
	CodeTimeout
	// CodeUnavailable indicates an upstream dependency is down.
	CodeUnavailable
)

var codeTable = map[Code]struct {
	name   string
	status int
}{
	CodeInternal:      {"ERROR_CODE_INTERNAL", http.StatusInternalServerError},
	CodeInvalidFormat: {"ERROR_CODE_INVALID_FORMAT", http.StatusBadRequest},
	CodeInvalidInput:  {"ERROR_CODE_INVALID_INPUT", http.StatusUnprocessableEntity},
	CodeBadRequest:    {"ERROR_CODE_BAD_REQUEST", http.StatusBadRequest},
	CodeNotFound:      {"ERROR_CODE_NOT_FOUND", http.StatusNotFound},
	CodeConflict:      {"ERROR_CODE_CONFLICT", http.StatusConflict},
	CodeForbidden:     {"ERROR_CODE_FORBIDDEN", http.StatusForbidden},
	CodeTimeout:       {"ERROR_CODE_TIMEOUT", http.StatusGatewayTimeout},
	CodeUnavailable:   {"ERROR_CODE_UNAVAILABLE", http.StatusServiceUnavailable},
}

// String returns the string representation of the error code.
func (c Code) String() string {
	if row, ok := codeTable[c]; ok {
		return row.name
	}
	return "ERROR_CODE_INTERNAL"
}

// Error is a structured error used across the application.
//
// It can wrap an underlying error while also carrying a user-facing message,
// a high-level type, and a stable error code. The underlying error is never
// written to clients; it exists for errors.Is checks and server-side logs.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.err != nil && e.msg != "":
		return e.msg + ": " + e.err.Error()
	case e.err != nil:
		return e.err.Error()
	case e.msg != "":
		return e.msg
	}

	switch e.errType {
	case TypeValidation:
		return "Validation violation"
	case TypeBusiness:
		return "Logical business not meet with requirement"
	default:
		return "Internal error"
	}
}

// String returns a verbose representation of the error for debugging/logging.
func (e *Error) String() string {
	return fmt.Sprintf(
		"Error Type: %s, Code: %s, Message: %s, Underlying Error: %v",
		e.errType, e.code, e.msg, e.err,
	)
}

// Msg returns the user-facing error message, if set.
func (e *Error) Msg() string { return e.msg }

// Type returns the high-level error type.
func (e *Error) Type() Type { return e.errType }

// Code returns the stable error code.
func (e *Error) Code() Code { return e.code }

// Fields returns validation errors (field to message map), if any.
func (e *Error) Fields() map[string]string { return e.fields }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.err }

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	if row, ok := codeTable[e.code]; ok {
		return row.status
	}
	return http.StatusInternalServerError
}

func newError(err error, msg string, et Type, code Code) error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

// NewServer creates a server-type error with the provided error.
func NewServer(err error) error {
	return newError(err, "Internal server error", TypeServer, CodeInternal)
}

// NewServerCode creates a server-type error with a specific code, such as a
// timeout or an unavailable dependency.
func NewServerCode(err error, msg string, code Code) error {
	return newError(err, msg, TypeServer, code)
}

// NewBusiness creates a business-type error with the specified message and code.
func NewBusiness(msg string, code Code) error {
	return newError(nil, msg, TypeBusiness, code)
}

// NewBusinessWrap is NewBusiness that keeps err reachable through errors.Is.
func NewBusinessWrap(err error, msg string, code Code) error {
	return newError(err, msg, TypeBusiness, code)
}

// NewInvalidInput creates a validation error for invalid input with a message and underlying error.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return newError(err, "Validation error", TypeValidation, CodeInvalidInput)
	}

	if len(kv)%2 != 0 {
		return newError(nil, "Invalid request body", TypeValidation, CodeInvalidFormat)
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}

	return &Error{msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput, fields: fields}
}

// NewInvalidFormat creates a validation error for an invalid request body format.
func NewInvalidFormat(msgs ...string) error {
	if len(msgs) == 0 {
		return newError(nil, "Invalid request body", TypeValidation, CodeInvalidFormat)
	}
	return newError(nil, msgs[0], TypeValidation, CodeInvalidFormat)
}
