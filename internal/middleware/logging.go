package middleware

import (
	"strings"
	"time"

	"github.com/bankportal/backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.Info("http_request", map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.IP(),
		})
		return err
	}
}

// SecurityLogger records rejected requests on the authentication surface so
// failed login attempts show up in the logs even without an audit row.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		path := c.Path()
		if !strings.HasPrefix(path, "/api/auth") && !strings.HasPrefix(path, "/api/agent") {
			return err
		}

		status := c.Response().StatusCode()
		if status == fiber.StatusUnauthorized || status == fiber.StatusForbidden {
			logger.Warn("security_request_rejected", map[string]interface{}{
				"method": c.Method(),
				"path":   path,
				"status": status,
				"ip":     c.IP(),
			})
		}
		return err
	}
}
