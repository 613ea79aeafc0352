// Package router binds telebot endpoints to the conversation core.
package router

import (
	"time"

	tg "github.com/campusgate/campusbot/core/telegram"
	"github.com/campusgate/campusbot/core/telegram/callbacks"
	"github.com/campusgate/campusbot/core/telegram/middleware"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// TextDispatcher consumes free-text input for users with an open session.
type TextDispatcher interface {
	InProgress(userID int64) bool
	HandleText(c tele.Context) error
}

// ButtonDispatcher consumes every callback button press.
type ButtonDispatcher interface {
	HandleButton(c tele.Context, key, payload string) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoute builds the handler for free-text routing: an active session wins,
// then command lookup, then the registry fallback.
func TextRoute(disp TextDispatcher, reg *tg.Registry, opts TextOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if disp != nil && disp.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "flow", start, func() error {
				return disp.HandleText(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, nil)
		return nil
	}

	return tg.Route{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}

// CallbackRoute returns a handler that forwards every callback press to the dispatcher.
func CallbackRoute(disp ButtonDispatcher) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, payload := callbacks.ParseCallbackData(c.Callback())
		name := "callback." + normalizeHandlerName(key)

		_ = c.Respond()

		return handleWithSummary(c, name, start, func() error {
			return disp.HandleButton(c, key, payload)
		}, slog.String("cb_key", key))
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := def.Handler
		h = middleware.RecoverMiddleware(h)
		h = middleware.LoggerMiddleware(h)
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
	}

	return routes
}
