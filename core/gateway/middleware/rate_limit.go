package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/murende/soko/core/logger"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between callbacks from the same caller.
	// Zero disables limiting.
	Interval time.Duration
	// Exclude lists paths the limiter ignores.
	Exclude map[string]struct{}
	// Reply is the envelope sent to a limited caller.
	Reply string
}

// RateLimit enforces a minimum interval between callbacks from the same
// caller. Gateways retry aggressively; a limited callback still gets a valid
// envelope so the dialog degrades gracefully.
func RateLimit(opts RateLimitOptions) fiber.Handler {
	var (
		lastSeen   = make(map[string]time.Time)
		lastSeenMu sync.Mutex
	)
	const gcAfter = 10 * time.Minute

	return func(c *fiber.Ctx) error {
		// FormValue strings alias fasthttp's reusable request buffer;
		// copy before using one as a map key that outlives the request.
		caller := strings.Clone(c.FormValue("phoneNumber"))
		if caller == "" || opts.Interval <= 0 {
			return c.Next()
		}
		if _, skip := opts.Exclude[c.Path()]; skip {
			return c.Next()
		}

		now := time.Now()

		lastSeenMu.Lock()
		for k, ts := range lastSeen {
			if now.Sub(ts) > gcAfter {
				delete(lastSeen, k)
			}
		}
		if last, ok := lastSeen[caller]; ok && now.Sub(last) < opts.Interval {
			lastSeenMu.Unlock()
			logger.Warn(c.UserContext(), "gw", "rate limit",
				slog.String("caller", caller),
			)
			return c.Status(fiber.StatusOK).SendString(opts.Reply)
		}
		lastSeen[caller] = now
		lastSeenMu.Unlock()
		return c.Next()
	}
}
