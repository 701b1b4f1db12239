package api

import (
	"errors"
	"net/http"

	repository "github.com/okian/postboard/internal/adapters/repository"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("internal error")
)

// Response codes carried in error bodies.
const (
	CodeBadRequest          = "bad_request"
	CodeNotFound            = "not_found"
	CodeConstraintViolation = "constraint_violation"
	CodeStoreUnavailable    = "store_unavailable"
	CodeInternal            = "internal_error"
)

// Error is an API error carrying the handler operation and a kind sentinel.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Wrap annotates err with op, keeping whatever kind it already carries.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// NewKind returns an error of kind attributed to op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind wraps err as kind attributed to op.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// statusFor maps an error to its HTTP status and response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, repository.ErrConstraint):
		return http.StatusConflict, CodeConstraintViolation
	case errors.Is(err, repository.ErrConnection):
		return http.StatusServiceUnavailable, CodeStoreUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// publicMessage returns the message sent to clients for err. Bad request
// details are passed through, every other kind gets a fixed text.
func publicMessage(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		var apiErr *Error
		if errors.As(err, &apiErr) && errors.Is(apiErr.Kind, ErrBadRequest) && apiErr.Err != nil {
			return apiErr.Err.Error()
		}
		return ErrBadRequest.Error()
	case http.StatusNotFound:
		return "record not found"
	case http.StatusConflict:
		return "constraint violation"
	case http.StatusServiceUnavailable:
		return "store unavailable"
	default:
		return http.StatusText(status)
	}
}
