// Package handler defines the handler, response and middleware types shared by
// the router, response and middleware packages.
//
// A handler does not write to the connection itself. It returns a Response,
// and the router runs it against the writer:
//
//	func value(svc *keyvalue.Service) handler.HandlerFunc[*router.Context] {
//		return func(ctx *router.Context) handler.Response {
//			v, ok := svc.GetValue(ctx.Param("key"))
//			if !ok {
//				return response.Error(response.ErrNotFound)
//			}
//			return response.JSON(map[string]string{"value": v})
//		}
//	}
//
// Middleware composes in declaration order; the first one listed runs first:
//
//	h := handler.Chain(endpoint, middleware.RequestID[*router.Context](), logging)
package handler
