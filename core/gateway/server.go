package gateway

import (
	"time"

	"github.com/gofiber/fiber/v2"

	coreconfig "github.com/murende/soko/core/config"
	"github.com/murende/soko/core/gateway/middleware"
	"github.com/murende/soko/core/ussd"
)

// NewServer assembles the fiber app: middleware chain, the callback routes
// and the health probe. Callers own Listen/Shutdown.
func NewServer(cfg *coreconfig.Config, h *Handler) *fiber.App {
	formatter := ussd.Formatter{MaxPayloadRunes: cfg.Gateway.MaxPayloadRunes}

	app := fiber.New(fiber.Config{
		AppName:               "soko-gateway",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).SendString(err.Error())
		},
	})

	app.Use(middleware.Recover(formatter.Render(ussd.TextTryAgain, false)))
	app.Use(middleware.Logging())
	app.Use(middleware.RateLimit(middleware.RateLimitOptions{
		Interval: time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:  map[string]struct{}{"/healthz": {}},
		Reply:    formatter.Render("Please wait a moment, then try again.", false),
	}))

	// some gateways can only post to the root path
	app.Post("/ussd", h.Callback)
	app.Post("/", h.Callback)
	app.Get("/healthz", h.Health)

	return app
}
