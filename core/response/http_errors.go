package response

import (
	"net/http"
	"strings"
)

// HTTPError is an error with an HTTP status and a machine-readable code.
type HTTPError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewHTTPError creates a 500 error with a custom message.
func NewHTTPError(message string) HTTPError {
	return ErrInternalServerError.WithMessage(message)
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Message
}

// StatusCode lets the router map the error to its status.
func (e HTTPError) StatusCode() int {
	return e.Status
}

// WithMessage returns a copy of the error with a custom message.
func (e HTTPError) WithMessage(message string) HTTPError {
	e.Message = message
	return e
}

// WithDetails returns a copy of the error with additional details.
func (e HTTPError) WithDetails(details map[string]any) HTTPError {
	e.Details = details
	return e
}

// WithError returns a copy of the error recording err as its cause.
func (e HTTPError) WithError(err error) HTTPError {
	if err == nil {
		return e
	}
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details["cause"] = err.Error()
	e.Details = details
	return e
}

var (
	ErrBadRequest            = httpErrorFor(http.StatusBadRequest)
	ErrForbidden             = httpErrorFor(http.StatusForbidden)
	ErrNotFound              = httpErrorFor(http.StatusNotFound)
	ErrMethodNotAllowed      = httpErrorFor(http.StatusMethodNotAllowed)
	ErrRequestEntityTooLarge = httpErrorFor(http.StatusRequestEntityTooLarge)
	ErrUnsupportedMediaType  = httpErrorFor(http.StatusUnsupportedMediaType)
	ErrTooManyRequests       = httpErrorFor(http.StatusTooManyRequests)
	ErrInternalServerError   = httpErrorFor(http.StatusInternalServerError)
	ErrServiceUnavailable    = httpErrorFor(http.StatusServiceUnavailable)
)

// httpErrorFor builds the error for a status, e.g. 404 becomes
// {Code: "not_found", Message: "Not Found"}. Unknown statuses map to 500.
func httpErrorFor(status int) HTTPError {
	text := http.StatusText(status)
	if text == "" {
		status = http.StatusInternalServerError
		text = http.StatusText(status)
	}

	code := strings.ToLower(text)
	code = strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(code)

	return HTTPError{Status: status, Code: code, Message: text}
}
