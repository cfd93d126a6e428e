package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/murende/soko/core/logger"
)

// Logging stamps each callback with session/caller metadata for downstream
// log correlation, emits a sampled receipt line and always an outcome line
// with the duration.
func Logging() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		sessionID := c.FormValue("sessionId")
		caller := c.FormValue("phoneNumber")

		ctx := logger.WithCallbackMeta(c.UserContext(), sessionID, caller)
		c.SetUserContext(ctx)

		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "gw", "callback received",
				slog.String("path", c.Path()),
				slog.Int("text_len", len(c.FormValue("text"))),
			)
		}

		err := c.Next()

		logger.Info(ctx, "gw", "callback handled",
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.String("result", logger.Status(err)),
			slog.Duration("took", logger.Took(start)),
		)
		return err
	}
}
