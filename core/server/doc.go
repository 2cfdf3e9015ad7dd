// Package server runs an http.Handler with graceful shutdown.
//
//	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, router))
//	return g.Wait()
//
// Stop cancels every request context, websocket connections included, so
// streaming handlers return and the shutdown completes within its timeout.
// Streaming responses clear the connection deadlines set from the read and
// write timeouts.
package server
