package response

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

// JSON creates an application/json response with 200 OK status.
func JSON(v any) handler.Response {
	return JSONWithStatus(v, http.StatusOK)
}

// JSONWithStatus creates an application/json response with a custom status code.
// A zero status means 200, or 204 when v is nil.
func JSONWithStatus(v any, status int) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if status == 0 {
			if v == nil {
				status = http.StatusNoContent
			} else {
				status = http.StatusOK
			}
		}

		w.WriteHeader(status)

		switch status {
		case http.StatusNoContent, http.StatusNotModified:
			return nil
		}

		return json.NewEncoder(w).Encode(v)
	}
}
