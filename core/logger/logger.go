package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format int

const (
	// FormatText writes key=value lines.
	FormatText Format = iota
	// FormatJSON writes one JSON object per line.
	FormatJSON
)

// ContextExtractor pulls an attribute from a context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

type config struct {
	level      slog.Leveler
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
	addSource  bool
}

// Option configures New.
type Option func(*config)

// WithLevel sets the minimum log level.
func WithLevel(level slog.Leveler) Option {
	return func(c *config) {
		if level != nil {
			c.level = level
		}
	}
}

// WithJSONFormatter switches output to JSON.
func WithJSONFormatter() Option {
	return func(c *config) {
		c.format = FormatJSON
	}
}

// WithTextFormatter switches output to text.
func WithTextFormatter() Option {
	return func(c *config) {
		c.format = FormatText
	}
}

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithContextExtractors adds extractors evaluated for every *Context log call.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) {
		c.extractors = append(c.extractors, extractors...)
	}
}

// WithContextValue logs ctx.Value(ctxKey) under attrKey when present.
func WithContextValue(attrKey string, ctxKey any) Option {
	return WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		v := ctx.Value(ctxKey)
		if v == nil {
			return slog.Attr{}, false
		}
		return slog.Any(attrKey, v), true
	})
}

// WithSource adds the caller's file and line to each record.
func WithSource() Option {
	return func(c *config) {
		c.addSource = true
	}
}

// WithDevelopment configures text output at debug level with source locations.
func WithDevelopment(service string) Option {
	return func(c *config) {
		c.level = slog.LevelDebug
		c.format = FormatText
		c.addSource = true
		c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", "development"))
	}
}

// WithStaging configures JSON output at debug level.
func WithStaging(service string) Option {
	return func(c *config) {
		c.level = slog.LevelDebug
		c.format = FormatJSON
		c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", "staging"))
	}
}

// WithProduction configures JSON output at info level.
func WithProduction(service string) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		c.format = FormatJSON
		c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", "production"))
	}
}

// New builds a *slog.Logger. Defaults: text format, info level, stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatText,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	hopts := &slog.HandlerOptions{
		Level:     cfg.level,
		AddSource: cfg.addSource,
	}

	var h slog.Handler
	switch cfg.format {
	case FormatJSON:
		h = slog.NewJSONHandler(cfg.output, hopts)
	default:
		h = slog.NewTextHandler(cfg.output, hopts)
	}

	if len(cfg.extractors) > 0 {
		h = &contextHandler{Handler: h, extractors: cfg.extractors}
	}
	if len(cfg.attrs) > 0 {
		h = h.WithAttrs(cfg.attrs)
	}

	return slog.New(h)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts "debug", "info", "warn" or "error" into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", s, err)
	}
	return l, nil
}

// contextHandler injects attributes extracted from the record context.
type contextHandler struct {
	slog.Handler
	extractors []ContextExtractor
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		for _, extract := range h.extractors {
			if attr, ok := extract(ctx); ok {
				r.AddAttrs(attr)
			}
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}
