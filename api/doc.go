// Package api exposes the key-value service over HTTP.
//
// Writes arrive as "key:value" text on POST /trigger-event. Readers follow a
// key either as Server-Sent Events on GET /events/{key} or as websocket text
// frames on GET /ws/{key}. Both streams open with the "Start" value, then
// carry every value written to the key while the client stays connected.
//
//	r := router.New[*router.Context](router.WithErrorHandler(response.ErrorHandler[*router.Context]))
//	api.Register(r, svc, api.WithLogger(log), api.WithKeepAlive(15*time.Second))
package api
