// Package middleware carries the gateway's cross-cutting request handling:
// panic recovery, receipt/outcome logging and per-caller rate limiting.
package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/murende/soko/core/logger"
)

// Recover catches handler panics and answers with the provided envelope so
// the gateway never sees a broken response mid-dialog.
func Recover(reply string) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.UserContext(), "gw", "panic recovered",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = c.Status(fiber.StatusOK).SendString(reply)
			}
		}()
		return c.Next()
	}
}
