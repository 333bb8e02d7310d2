package middleware

import (
	"strings"
	"time"

	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/internal/services"
	"github.com/bankportal/backend/pkg/logger"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
)

const (
	callerSIDKey       = "callerSID"
	currentEmployeeKey = "currentEmployee"
	currentTokenKey    = "currentToken"
)

func CORS(frontendURL string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     frontendURL,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
	})
}

// CallerSession binds every request to a browser-side caller session. The
// SID travels in a signed cookie and keys all pending-auth state; a missing
// or invalid cookie gets a fresh SID on first contact.
func CallerSession(cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := c.Cookies(cookieName); raw != "" {
			if claims, err := utils.ValidateCallerToken(raw); err == nil {
				c.Locals(callerSIDKey, claims.SID)
				return c.Next()
			}
		}

		sid := uuid.New().String()
		signed, err := utils.GenerateCallerToken(sid)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed to establish session")
		}

		c.Cookie(&fiber.Cookie{
			Name:     cookieName,
			Value:    signed,
			HTTPOnly: true,
			SameSite: "Lax",
			Expires:  time.Now().Add(12 * time.Hour),
		})

		c.Locals(callerSIDKey, sid)
		return c.Next()
	}
}

func GetCallerSID(c *fiber.Ctx) string {
	sid, _ := c.Locals(callerSIDKey).(string)
	return sid
}

type AuthMiddleware struct {
	Sessions *services.SessionService
}

func NewAuthMiddleware(sessions *services.SessionService) *AuthMiddleware {
	return &AuthMiddleware{Sessions: sessions}
}

// RequireAuth resolves the bearer token against the session store. Lazy
// expiry inside the store means an expired token looks exactly like an
// unknown one.
func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		logger.Warn("auth_missing_header", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if tokenString == authHeader || tokenString == "" {
		logger.Warn("auth_invalid_format", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}

	session, err := a.Sessions.Get(tokenString)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to resolve session")
	}
	if session == nil {
		logger.Warn("auth_session_not_found", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired session")
	}

	c.Locals(currentEmployeeKey, &session.Employee)
	c.Locals(currentTokenKey, tokenString)
	return c.Next()
}

// OptionalAuth resolves the bearer token when present but never rejects.
func (a *AuthMiddleware) OptionalAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Next()
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if tokenString == authHeader || tokenString == "" {
		return c.Next()
	}

	session, err := a.Sessions.Get(tokenString)
	if err != nil || session == nil {
		return c.Next()
	}

	c.Locals(currentEmployeeKey, &session.Employee)
	c.Locals(currentTokenKey, tokenString)
	return c.Next()
}

func GetCurrentEmployee(c *fiber.Ctx) *models.Employee {
	value := c.Locals(currentEmployeeKey)
	if value == nil {
		return nil
	}
	employee, ok := value.(*models.Employee)
	if !ok {
		return nil
	}
	return employee
}

func GetCurrentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(currentTokenKey).(string)
	return token
}
