package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/buspenedes/internal/handlers"
	"github.com/yourorg/buspenedes/internal/incidents"
	"github.com/yourorg/buspenedes/internal/models"
)

// SessionKey es la clave de c.Locals donde queda la sesión del usuario.
const SessionKey = "session"

// AuthRequired rechaza la petición si no trae un JWT válido. La identidad
// validada queda en c.Locals como incidents.Session, que es lo que los
// handlers pasan explícitamente a cada operación de escritura.
func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFromHeader(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "authentication required"})
		}
		c.Locals(SessionKey, sess)
		return c.Next()
	}
}

// AuthOptional adjunta la sesión si el token viene y es válido; si no,
// deja pasar con sesión vacía (lecturas que solo personalizan el resultado).
func AuthOptional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sess, ok := sessionFromHeader(c); ok {
			c.Locals(SessionKey, sess)
		}
		return c.Next()
	}
}

func sessionFromHeader(c *fiber.Ctx) (incidents.Session, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return incidents.Session{}, false
	}
	userID, email, err := handlers.ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return incidents.Session{}, false
	}
	return incidents.Session{UserID: userID, Email: email}, true
}
