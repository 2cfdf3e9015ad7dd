package response

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

// DefaultSSEKeepAlive is the default keep-alive interval for SSE connections.
const DefaultSSEKeepAlive = 30 * time.Second

// ErrStreamingUnsupported is returned when the writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// StreamFunc produces a stream of messages by calling emit for each one until
// ctx is done. Returning ends the stream.
type StreamFunc func(ctx context.Context, emit func(data string) error) error

type sseConfig struct {
	eventName   string
	idGen       func(data string) string
	reconnect   time.Duration
	keepAlive   time.Duration
	noKeepAlive bool
	onError     func(context.Context, error)
}

// EventOption configures Server-Sent Events behavior.
type EventOption func(*sseConfig)

// WithEventName sets the event field of every event.
func WithEventName(name string) EventOption {
	return func(s *sseConfig) {
		s.eventName = name
	}
}

// WithEventIDGenerator sets a function producing the id field of each event.
func WithEventIDGenerator(fn func(data string) string) EventOption {
	return func(s *sseConfig) {
		s.idGen = fn
	}
}

// WithReconnectTime sends a retry field telling clients how long to wait
// before reconnecting.
func WithReconnectTime(d time.Duration) EventOption {
	return func(s *sseConfig) {
		s.reconnect = d
	}
}

// WithKeepAlive sets the keep-alive comment interval.
func WithKeepAlive(interval time.Duration) EventOption {
	return func(s *sseConfig) {
		s.keepAlive = interval
	}
}

// WithoutKeepAlive disables keep-alive comments.
func WithoutKeepAlive() EventOption {
	return func(s *sseConfig) {
		s.noKeepAlive = true
	}
}

// WithSSEErrorHandler receives write and stream errors for logging.
func WithSSEErrorHandler(fn func(context.Context, error)) EventOption {
	return func(s *sseConfig) {
		s.onError = fn
	}
}

// sseWriter serializes event and keep-alive writes.
type sseWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
}

func (s *sseWriter) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	if _, err := io.WriteString(s.w, frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// SSE streams the messages produced by stream as Server-Sent Events.
// Every message becomes one event; a message containing line breaks is sent
// as several data lines of the same event. A ": connected" comment is written
// first and ": keepalive" comments while the stream is idle.
func SSE(stream StreamFunc, opts ...EventOption) handler.Response {
	cfg := &sseConfig{keepAlive: DefaultSSEKeepAlive}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, req *http.Request) error {
		flusher, ok := w.(http.Flusher)
		if !ok {
			return ErrStreamingUnsupported
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(time.Time{})
		_ = rc.SetWriteDeadline(time.Time{})

		w.WriteHeader(http.StatusOK)

		ctx, cancel := context.WithCancel(req.Context())
		defer cancel()

		sw := &sseWriter{w: w, flusher: flusher}
		defer sw.close()

		report := func(err error) {
			if cfg.onError != nil {
				cfg.onError(req.Context(), err)
			}
		}

		preamble := ": connected\n\n"
		if cfg.reconnect > 0 {
			preamble = fmt.Sprintf("retry: %d\n", cfg.reconnect.Milliseconds()) + preamble
		}
		if err := sw.write(preamble); err != nil {
			report(fmt.Errorf("write connection message: %w", err))
			return nil
		}

		activity := make(chan struct{}, 1)
		var wg sync.WaitGroup
		if !cfg.noKeepAlive && cfg.keepAlive > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				keepAlive(ctx, cancel, sw, cfg.keepAlive, activity, report)
			}()
		}

		emit := func(data string) error {
			if err := sw.write(formatSSEEvent(data, cfg.eventName, cfg.idGen)); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
			select {
			case activity <- struct{}{}:
			default:
			}
			return nil
		}

		err := stream(ctx, emit)
		cancel()
		wg.Wait()

		if err != nil && !errors.Is(err, context.Canceled) {
			report(err)
		}
		return nil
	}
}

func keepAlive(ctx context.Context, cancel context.CancelFunc, sw *sseWriter, interval time.Duration, activity <-chan struct{}, report func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-activity:
			ticker.Reset(interval)
		case <-ticker.C:
			if err := sw.write(": keepalive\n\n"); err != nil {
				report(fmt.Errorf("send keepalive: %w", err))
				cancel()
				return
			}
		}
	}
}

// formatSSEEvent renders one event frame.
func formatSSEEvent(data, eventName string, idGen func(string) string) string {
	var b strings.Builder
	if eventName != "" {
		b.WriteString("event: ")
		b.WriteString(eventName)
		b.WriteByte('\n')
	}
	if idGen != nil {
		if id := idGen(data); id != "" {
			b.WriteString("id: ")
			b.WriteString(id)
			b.WriteByte('\n')
		}
	}

	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	for line := range strings.SplitSeq(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}
