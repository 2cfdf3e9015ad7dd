// Package response builds handler.Response values: plain text, JSON, errors,
// Server-Sent Events and WebSocket streams.
//
//	r.Get("/values/{key}", func(ctx *router.Context) handler.Response {
//		v, ok := svc.GetValue(ctx.Param("key"))
//		if !ok {
//			return response.Error(response.ErrNotFound)
//		}
//		return response.JSON(map[string]string{"value": v})
//	})
//
// # Errors
//
// HTTPError carries a status and a machine-readable code. ErrorHandler and
// JSONErrorHandler are router error handlers that render any error, using
// HTTPError data when present and the StatusCode() of other errors otherwise.
//
// # Streams
//
// SSE and WebSocketStream both take a StreamFunc, which pushes messages
// through an emit callback until its context ends:
//
//	response.SSE(func(ctx context.Context, emit func(string) error) error {
//		return svc.Stream(ctx, key, emit)
//	}, response.WithKeepAlive(15*time.Second))
//
// SSE writes a ": connected" comment, then one event per message and
// ": keepalive" comments while idle. WebSocketStream sends one text frame per
// message and ends the stream when the client goes away.
package response
