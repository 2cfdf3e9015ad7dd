package response

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/keyfeed/core/handler"
)

// DefaultWSWriteTimeout bounds a single frame write.
const DefaultWSWriteTimeout = 10 * time.Second

type wsConfig struct {
	upgrader       *websocket.Upgrader
	responseHeader http.Header
	writeTimeout   time.Duration
	pingInterval   time.Duration
	onConnect      func(context.Context, *websocket.Conn) error
	onDisconnect   func(context.Context, *websocket.Conn)
	onError        func(context.Context, error)
}

// WebSocketOption configures a WebSocket response.
type WebSocketOption func(*wsConfig)

// WithWSReadBuffer sets the upgrader read buffer size.
func WithWSReadBuffer(size int) WebSocketOption {
	return func(c *wsConfig) {
		c.upgrader.ReadBufferSize = size
	}
}

// WithWSWriteBuffer sets the upgrader write buffer size.
func WithWSWriteBuffer(size int) WebSocketOption {
	return func(c *wsConfig) {
		c.upgrader.WriteBufferSize = size
	}
}

// WithWSHandshakeTimeout limits the upgrade handshake.
func WithWSHandshakeTimeout(timeout time.Duration) WebSocketOption {
	return func(c *wsConfig) {
		c.upgrader.HandshakeTimeout = timeout
	}
}

// WithWSOriginCheck sets the origin policy.
func WithWSOriginCheck(fn func(r *http.Request) bool) WebSocketOption {
	return func(c *wsConfig) {
		c.upgrader.CheckOrigin = fn
	}
}

// WithWSAllowAnyOrigin accepts cross-origin upgrades.
func WithWSAllowAnyOrigin() WebSocketOption {
	return WithWSOriginCheck(func(r *http.Request) bool { return true })
}

// WithWSUpgradeHeaders adds headers to the upgrade response.
func WithWSUpgradeHeaders(header http.Header) WebSocketOption {
	return func(c *wsConfig) {
		c.responseHeader = header
	}
}

// WithWSWriteTimeout bounds each frame write.
func WithWSWriteTimeout(d time.Duration) WebSocketOption {
	return func(c *wsConfig) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithWSPingInterval sends ping frames while the stream is open. Zero disables pings.
func WithWSPingInterval(d time.Duration) WebSocketOption {
	return func(c *wsConfig) {
		c.pingInterval = d
	}
}

// WithWSOnConnect runs after the upgrade. An error closes the connection.
func WithWSOnConnect(fn func(context.Context, *websocket.Conn) error) WebSocketOption {
	return func(c *wsConfig) {
		c.onConnect = fn
	}
}

// WithWSOnDisconnect runs after the connection is closed.
func WithWSOnDisconnect(fn func(context.Context, *websocket.Conn)) WebSocketOption {
	return func(c *wsConfig) {
		c.onDisconnect = fn
	}
}

// WithWSErrorHandler receives upgrade and stream errors.
func WithWSErrorHandler(fn func(context.Context, error)) WebSocketOption {
	return func(c *wsConfig) {
		c.onError = fn
	}
}

func newWSConfig(opts []WebSocketOption) *wsConfig {
	cfg := &wsConfig{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		writeTimeout: DefaultWSWriteTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WebSocket upgrades the connection and hands it to messageHandler.
// Errors after the upgrade go to the WithWSErrorHandler callback because the
// HTTP response is gone by then.
func WebSocket(messageHandler func(context.Context, *websocket.Conn) error, opts ...WebSocketOption) handler.Response {
	cfg := newWSConfig(opts)

	return func(w http.ResponseWriter, r *http.Request) error {
		conn, err := cfg.upgrader.Upgrade(w, r, cfg.responseHeader)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			cfg.reportError(r.Context(), err)
			return nil
		}
		defer func() {
			_ = conn.Close()
			if cfg.onDisconnect != nil {
				cfg.onDisconnect(r.Context(), conn)
			}
		}()

		if cfg.onConnect != nil {
			if err := cfg.onConnect(r.Context(), conn); err != nil {
				cfg.reportError(r.Context(), err)
				return nil
			}
		}

		if err := messageHandler(r.Context(), conn); err != nil {
			cfg.reportError(r.Context(), err)
		}
		return nil
	}
}

func (c *wsConfig) reportError(ctx context.Context, err error) {
	if c.onError != nil && err != nil {
		c.onError(ctx, err)
	}
}

// WebSocketStream sends each message produced by stream as a text frame.
// Incoming frames are discarded; a read error or close frame from the client
// cancels the stream context.
func WebSocketStream(stream StreamFunc, opts ...WebSocketOption) handler.Response {
	cfg := newWSConfig(opts)

	return WebSocket(func(parent context.Context, conn *websocket.Conn) error {
		ctx, cancel := context.WithCancel(parent)
		defer cancel()

		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			defer cancel()
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		pingDone := make(chan struct{})
		go func() {
			defer close(pingDone)
			if cfg.pingInterval <= 0 {
				return
			}
			ticker := time.NewTicker(cfg.pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					deadline := time.Now().Add(cfg.writeTimeout)
					if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		emit := func(data string) error {
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.writeTimeout))
			return conn.WriteMessage(websocket.TextMessage, []byte(data))
		}

		err := stream(ctx, emit)
		cancel()
		<-pingDone

		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
		<-readDone

		if err != nil && !errors.Is(err, context.Canceled) && !isClosedConn(err) {
			return err
		}
		return nil
	}, opts...)
}

func isClosedConn(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || errors.Is(err, websocket.ErrCloseSent)
}
