// Package gateway is the HTTP boundary between the USSD gateway and the
// conversation engine.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/murende/soko/core/logger"
	"github.com/murende/soko/core/session"
	"github.com/murende/soko/core/ussd"
)

// Handler processes one gateway callback: tokenize, lock the session, load,
// advance, save, render.
type Handler struct {
	engine    *ussd.Engine
	store     session.Store
	locks     *session.Locks
	formatter ussd.Formatter
	timeout   time.Duration
}

// NewHandler wires the callback handler. timeout bounds the store and
// repository work of a single callback.
func NewHandler(engine *ussd.Engine, store session.Store, formatter ussd.Formatter, timeout time.Duration) *Handler {
	return &Handler{
		engine:    engine,
		store:     store,
		locks:     session.NewLocks(),
		formatter: formatter,
		timeout:   timeout,
	}
}

// Callback handles POST /ussd. Gateways treat any non-200 as an outage, so
// every failure past basic request validation still answers 200 with a valid
// envelope.
func (h *Handler) Callback(c *fiber.Ctx) error {
	sessionID := c.FormValue("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing sessionId")
	}
	caller := c.FormValue("phoneNumber")
	input := ussd.Tokenize(c.FormValue("text"))

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	// callbacks for the same session are serialized; different sessions
	// proceed in parallel
	release := h.locks.Acquire(sessionID)
	defer release()

	sess, err := h.store.LoadOrCreate(ctx, sessionID, caller)
	if err != nil {
		logger.Error(ctx, "gw", "session load failed", slog.Any("error", err))
		return h.tryAgain(c)
	}

	reply, cont, err := h.engine.Advance(ctx, sess, input)
	if err != nil {
		var uerr *ussd.Error
		if errors.As(err, &uerr) && uerr.Code == ussd.CodeDependency {
			logger.Warn(ctx, "gw", "dependency failure", slog.Any("error", err))
		} else {
			logger.Error(ctx, "gw", "advance failed", slog.Any("error", err))
		}
		// the session was left consistent by the engine; persist the
		// refreshed idle clock but never fail the reply over it
		if saveErr := h.store.Save(ctx, sess); saveErr != nil {
			logger.Error(ctx, "gw", "session save failed", slog.Any("error", saveErr))
		}
		return h.tryAgain(c)
	}

	if saveErr := h.store.Save(ctx, sess); saveErr != nil {
		logger.Error(ctx, "gw", "session save failed", slog.Any("error", saveErr))
		if sess.Status != session.StatusCompleted {
			return h.tryAgain(c)
		}
		// the side effect is already durable; the caller still gets the
		// success reply even though replay state was lost
	}

	return c.Status(fiber.StatusOK).SendString(h.formatter.Render(reply, cont))
}

// Health answers the liveness probe.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("ok")
}

func (h *Handler) tryAgain(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString(h.formatter.Render(ussd.TextTryAgain, false))
}
