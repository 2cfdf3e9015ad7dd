package response

import (
	"net/http"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

// Render runs resp against the context's writer. A render error becomes a
// plain 500 response.
func Render(ctx handler.Context, resp handler.Response) {
	if err := resp(ctx.ResponseWriter(), ctx.Request()); err != nil {
		http.Error(ctx.ResponseWriter(), err.Error(), http.StatusInternalServerError)
	}
}

// Text creates a text/plain response with 200 OK status.
func Text(content string) handler.Response {
	return TextWithStatus(content, http.StatusOK)
}

// TextWithStatus creates a text/plain response with a custom status code.
func TextWithStatus(content string, status int) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if content != "" {
			_, err := w.Write([]byte(content))
			return err
		}
		return nil
	}
}

// NoContent creates a 204 No Content response.
func NoContent() handler.Response {
	return Status(http.StatusNoContent)
}

// Status creates an empty response with the specified status code.
func Status(code int) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		return nil
	}
}

// Handler adapts a plain http.Handler, such as a metrics exporter, to a Response.
func Handler(h http.Handler) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	}
}
