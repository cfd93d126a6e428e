package database

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/lib/pq"
)

// ShouldRetry reports whether a dependency error is worth retrying.
// It focuses on transient dial/timeout failures produced while contacting
// Postgres or Redis, plus context deadline expiry from bounded callback
// budgets.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
		if nested, ok := opErr.Err.(net.Error); ok {
			if nested.Timeout() {
				return true
			}
		}
	}

	// 57P03 is "cannot_connect_now" (server still starting up); class 08
	// covers connection exceptions.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if code == "57P03" || strings.HasPrefix(code, "08") {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return ShouldRetry(urlErr.Err)
		}
	}

	return false
}
