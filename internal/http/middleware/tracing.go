package middleware

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
)

// Tracing starts a server span per request using the global tracer provider.
// Probe and scrape endpoints are not traced.
func Tracing(serverName string) fiber.Handler {
	return otelfiber.Middleware(
		otelfiber.WithServerName(serverName),
		otelfiber.WithNext(untraced),
	)
}

func untraced(c *fiber.Ctx) bool {
	switch c.Path() {
	case "/metrics", "/health", "/healthz":
		return true
	}
	return false
}
