package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/buspenedes/internal/debug"
)

// DashboardLogger middleware para enviar logs al dashboard en tiempo real
func DashboardLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Procesar request
		err := c.Next()

		// Calcular duración
		duration := time.Since(start)

		// Determinar nivel de log basado en el status code
		level := "info"
		status := c.Response().StatusCode()

		if status >= 500 {
			level = "error"
		} else if status >= 400 {
			level = "warn"
		}

		// Crear mensaje de log
		message := fmt.Sprintf("%s %s", c.Method(), c.Path())

		// Agregar metadata
		metadata := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"ip":          c.IP(),
		}

		// Enviar al dashboard (siempre, el hub decidirá si hay clientes)
		debug.SendLog("backend", level, message, metadata)

		return err
	}
}
