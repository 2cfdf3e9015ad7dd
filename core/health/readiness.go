package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/logger"
	"github.com/dmitrymomot/keyfeed/core/response"
)

// DefaultCheckTimeout bounds all readiness checks of one request.
const DefaultCheckTimeout = 5 * time.Second

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Readiness runs all checks concurrently. It returns "READY" when every
// check passes and 503 when any fails or the checks exceed DefaultCheckTimeout.
func Readiness[C handler.Context](log *slog.Logger, checks ...Check) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		cctx, cancel := context.WithTimeout(ctx, DefaultCheckTimeout)
		defer cancel()

		g, gctx := errgroup.WithContext(cctx)
		for i, check := range checks {
			g.Go(func() error {
				if err := check(gctx); err != nil {
					return fmt.Errorf("check %d: %w", i, err)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			log.ErrorContext(ctx, "readiness check failed",
				logger.Component("health"),
				logger.Error(err),
			)
			return response.Error(response.ErrServiceUnavailable)
		}

		return response.Text("READY")
	}
}
