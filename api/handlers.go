package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/keyfeed/core/handler"
	"github.com/dmitrymomot/keyfeed/core/keyvalue"
	"github.com/dmitrymomot/keyfeed/core/logger"
	"github.com/dmitrymomot/keyfeed/core/response"
)

// Service is the part of keyvalue.Service the handlers use.
type Service interface {
	UpdatePayload(ctx context.Context, body string) (string, error)
	GetValue(key string) (string, bool)
	Keys() []keyvalue.KeyInfo
	Stream(ctx context.Context, key string, emit func(string) error) error
}

// Value is the body of GET /values/{key}.
type Value struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TriggerEvent applies a "key:value" text body.
func TriggerEvent[C handler.Context](svc Service) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		body, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return response.Error(response.ErrRequestEntityTooLarge.
					WithMessage(fmt.Sprintf("Request body too large. Maximum allowed: %d bytes", tooLarge.Limit)))
			}
			return response.Error(response.ErrBadRequest.WithMessage("Could not read event data.").WithError(err))
		}

		key, err := svc.UpdatePayload(ctx, string(body))
		switch {
		case errors.Is(err, keyvalue.ErrEmptyPayload):
			return response.Error(response.ErrBadRequest.WithMessage("Event data is empty."))
		case errors.Is(err, keyvalue.ErrMalformedPayload):
			return response.Error(response.ErrBadRequest.WithMessage(
				"Invalid event data format. Expected format: 'key:value'. Received: " + string(body)))
		case errors.Is(err, keyvalue.ErrEmptyKey):
			return response.Error(response.ErrBadRequest.WithMessage("Event key must not be empty."))
		case err != nil:
			return response.Error(err)
		}

		return response.Text("Event triggered for " + key)
	}
}

// Events streams the values of {key} as Server-Sent Events.
func Events[C handler.Context](svc Service, log *slog.Logger, opts ...response.EventOption) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		key := ctx.Param("key")
		if key == "" {
			return response.Error(response.ErrBadRequest.WithMessage("Key must not be empty."))
		}

		onError := response.WithSSEErrorHandler(func(c context.Context, err error) {
			log.WarnContext(c, "event stream failed",
				logger.Component("api"),
				logger.Transport("sse"),
				logger.StreamKey(key),
				logger.Error(err),
			)
		})

		return response.SSE(func(c context.Context, emit func(string) error) error {
			return svc.Stream(c, key, emit)
		}, slices.Concat(opts, []response.EventOption{onError})...)
	}
}

// WebSocket streams the values of {key} as websocket text frames.
func WebSocket[C handler.Context](svc Service, log *slog.Logger, opts ...response.WebSocketOption) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		key := ctx.Param("key")
		if key == "" {
			return response.Error(response.ErrBadRequest.WithMessage("Key must not be empty."))
		}

		hooks := []response.WebSocketOption{
			response.WithWSOnConnect(func(c context.Context, conn *websocket.Conn) error {
				log.DebugContext(c, "websocket connected",
					logger.Component("api"),
					logger.Transport("websocket"),
					logger.StreamKey(key),
					logger.RemoteAddr(conn.RemoteAddr().String()),
				)
				return nil
			}),
			response.WithWSErrorHandler(func(c context.Context, err error) {
				log.WarnContext(c, "websocket stream failed",
					logger.Component("api"),
					logger.Transport("websocket"),
					logger.StreamKey(key),
					logger.Error(err),
				)
			}),
		}

		return response.WebSocketStream(func(c context.Context, emit func(string) error) error {
			return svc.Stream(c, key, emit)
		}, slices.Concat(opts, hooks)...)
	}
}

// GetValue returns the current value of {key}, or 404.
func GetValue[C handler.Context](svc Service) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		key := ctx.Param("key")
		v, ok := svc.GetValue(key)
		if !ok {
			return response.Error(response.ErrNotFound.WithMessage(fmt.Sprintf("Key %q has no value.", key)))
		}
		return response.JSON(Value{Key: key, Value: v})
	}
}

// ListKeys returns every stored key with its value and subscriber count.
func ListKeys[C handler.Context](svc Service) handler.HandlerFunc[C] {
	return func(C) handler.Response {
		return response.JSON(svc.Keys())
	}
}
