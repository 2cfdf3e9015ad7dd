package health

import (
	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/response"
)

// Liveness reports that the process is serving. It always returns "ALIVE".
func Liveness[C handler.Context](C) handler.Response {
	return response.Text("ALIVE")
}

// NoContent returns 204 without a body.
func NoContent[C handler.Context](C) handler.Response {
	return response.NoContent()
}
