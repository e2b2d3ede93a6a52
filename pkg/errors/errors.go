package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound        = NewNotFoundError("resource", "resource not found")
	ErrInvalidArgument = NewValidationError("", "invalid argument")
)

// coded is implemented by every application error in this package.
type coded interface {
	error
	Code() codes.Code
}

// transport mapping per gRPC code; anything unknown is internal
var httpKinds = map[codes.Code]struct {
	status int
	kind   string
}{
	codes.InvalidArgument: {http.StatusBadRequest, "invalid_input"},
	codes.NotFound:        {http.StatusNotFound, "not_found"},
	codes.Internal:        {http.StatusInternalServerError, "internal_error"},
}

// ValidationError is returned when caller input is rejected
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid argument: %s - %s", e.Field, e.Message)
	}
	return "invalid argument: " + e.Message
}

func (e *ValidationError) Code() codes.Code { return codes.InvalidArgument }

func (e *ValidationError) GRPCStatus() *status.Status {
	return status.New(e.Code(), e.Error())
}

// NotFoundError is returned when a stored user or an optional query result is absent
type NotFoundError struct {
	Resource string
	Message  string
}

func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " not found"
}

func (e *NotFoundError) Code() codes.Code { return codes.NotFound }

func (e *NotFoundError) GRPCStatus() *status.Status {
	return status.New(e.Code(), e.Error())
}

// InternalError wraps a storage or infrastructure failure.
// Only Message is exposed to clients; Err stays in logs.
type InternalError struct {
	Message string
	Err     error
}

func NewInternalError(message string, err error) *InternalError {
	return &InternalError{Message: message, Err: err}
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) Code() codes.Code { return codes.Internal }

func (e *InternalError) GRPCStatus() *status.Status {
	return status.New(e.Code(), e.Message)
}

// HTTPStatus maps err to an HTTP status code and a short error kind.
func HTTPStatus(err error) (int, string) {
	code := codes.Internal
	var c coded
	if errors.As(err, &c) {
		code = c.Code()
	}
	k, ok := httpKinds[code]
	if !ok {
		k = httpKinds[codes.Internal]
	}
	return k.status, k.kind
}

// ToGRPC converts err into a gRPC status error, defaulting to codes.Internal.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	var st interface{ GRPCStatus() *status.Status }
	if errors.As(err, &st) {
		return st.GRPCStatus().Err()
	}
	return status.Error(codes.Internal, "internal server error")
}
