package handlers

import (
	"errors"
	"strings"

	"github.com/bankportal/backend/internal/engine"
	"github.com/bankportal/backend/internal/services"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// authError maps service-layer auth errors onto HTTP responses. Unknown
// errors become a 500 without leaking detail.
func authError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return utils.Error(c, fiber.StatusUnauthorized, "invalid employee id or password")
	case errors.Is(err, services.ErrInactiveAccount):
		return utils.Error(c, fiber.StatusUnauthorized, "account is deactivated")
	case errors.Is(err, services.ErrInvalidCode):
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired verification code")
	case errors.Is(err, services.ErrInvalidState):
		return utils.Error(c, fiber.StatusBadRequest, "authentication step out of order")
	case errors.Is(err, services.ErrVerificationTimeout):
		return utils.Error(c, fiber.StatusUnauthorized, "verification attempt exceeded the turn limit")
	case errors.Is(err, services.ErrEngineUnavailable):
		return utils.Error(c, fiber.StatusServiceUnavailable, "verification service temporarily unavailable")
	default:
		return utils.Error(c, fiber.StatusInternalServerError, "authentication failed")
	}
}

// clientMetadata is the self-reported context sent with a verification turn.
// It is advisory signal for the engine, never trusted for identity.
type clientMetadata struct {
	IP            string `json:"ip"`
	Location      string `json:"location"`
	Device        string `json:"device"`
	Browser       string `json:"browser"`
	OS            string `json:"os"`
	NetworkHealth string `json:"networkHealth"`
}

func (m clientMetadata) toEngine(c *fiber.Ctx) engine.Metadata {
	md := engine.Metadata{
		IP:            m.IP,
		Location:      m.Location,
		Device:        m.Device,
		Browser:       m.Browser,
		OS:            m.OS,
		NetworkHealth: m.NetworkHealth,
	}
	if md.IP == "" {
		md.IP = c.IP()
	}
	if md.Device == "" {
		md.Device = c.Get("User-Agent")
	}
	return md
}
