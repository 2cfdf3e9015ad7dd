// Package logger provides structured logging utilities built on Go's standard slog package.
//
// It offers environment presets, context-aware attribute extraction and a set of
// attribute helpers so every component logs the same keys.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/keyfeed/core/logger"
//
//	// Development: text format, debug level, stdout
//	log := logger.New(logger.WithDevelopment("keyfeed"))
//
//	// Production: JSON format, info level, stdout
//	log := logger.New(logger.WithProduction("keyfeed"))
//
//	// Custom configuration
//	log := logger.New(
//		logger.WithLevel(slog.LevelWarn),
//		logger.WithJSONFormatter(),
//		logger.WithAttr(slog.String("service", "api")),
//		logger.WithOutput(os.Stderr),
//	)
//
// # Context-Aware Logging
//
// Extractors run on every *Context call and append attributes taken from the
// context:
//
//	log := logger.New(
//		logger.WithProduction("keyfeed"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "stream opened")
//
// # Attribute Helpers
//
// Helpers return an empty slog.Attr for nil or empty input, which slog drops:
//
//	log.Error("stream failed",
//		logger.Error(err),
//		logger.Component("api"),
//		logger.StreamKey(key),
//		logger.SubscriptionID(sub.ID()),
//		logger.Elapsed(start),
//	)
package logger
