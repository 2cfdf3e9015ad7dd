package response

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

type statusCode interface {
	StatusCode() int
}

// writtenReporter is implemented by the router's writer.
type writtenReporter interface {
	Written() bool
}

func convertToHTTPError(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	return httpErrorFor(status).WithError(err)
}

func alreadyWritten(w http.ResponseWriter) bool {
	wr, ok := w.(writtenReporter)
	return ok && wr.Written()
}

// ErrorHandler renders errors as plain text.
// HTTPError values keep their message; other errors render the status text.
func ErrorHandler[C handler.Context](ctx C, err error) {
	if alreadyWritten(ctx.ResponseWriter()) {
		return
	}
	httpErr := convertToHTTPError(err)
	Render(ctx, TextWithStatus(httpErr.Error(), httpErr.Status))
}

// JSONErrorHandler renders errors as {"code": ..., "message": ...}.
func JSONErrorHandler[C handler.Context](ctx C, err error) {
	if alreadyWritten(ctx.ResponseWriter()) {
		return
	}
	httpErr := convertToHTTPError(err)
	Render(ctx, JSONWithStatus(httpErr, httpErr.Status))
}
