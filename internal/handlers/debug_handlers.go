package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/buspenedes/internal/debug"
)

// DebugLogRequest representa un log enviado desde la app móvil
type DebugLogRequest struct {
	Source   string                 `json:"source"` // "frontend" siempre para la app
	Level    string                 `json:"level"`  // debug, info, warn, error
	Message  string                 `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	UserID   *string                `json:"userId,omitempty"`
}

// DebugErrorRequest representa un error capturado en la app móvil.
// Las pantallas reportan aquí los fallos de escritura (reporte, voto,
// comentario) que no muestran al usuario.
type DebugErrorRequest struct {
	ErrorType  string                 `json:"errorType"` // runtime_error, network_error, etc.
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	UserID     *string                `json:"userId,omitempty"`
}

// ReceiveAppLog recibe logs desde la app móvil y los reenvía al dashboard
func ReceiveAppLog(c *fiber.Ctx) error {
	if !debug.IsEnabled() {
		return c.JSON(fiber.Map{"status": "disabled"})
	}

	var req DebugLogRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Validar nivel de log
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[req.Level] {
		req.Level = "info"
	}

	if req.Metadata == nil {
		req.Metadata = make(map[string]interface{})
	}
	if req.UserID != nil {
		req.Metadata["userId"] = *req.UserID
	}
	req.Metadata["platform"] = "mobile"

	debug.SendLog("frontend", req.Level, req.Message, req.Metadata)

	return c.JSON(fiber.Map{"status": "ok"})
}

// ReceiveAppError recibe errores capturados en la app móvil
func ReceiveAppError(c *fiber.Ctx) error {
	if !debug.IsEnabled() {
		return c.JSON(fiber.Map{"status": "disabled"})
	}

	var req DebugErrorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Metadata == nil {
		req.Metadata = make(map[string]interface{})
	}
	if req.UserID != nil {
		req.Metadata["userId"] = *req.UserID
	}
	req.Metadata["platform"] = "mobile"
	req.Metadata["errorType"] = req.ErrorType
	if req.StackTrace != "" {
		req.Metadata["stackTrace"] = req.StackTrace
	}

	debug.SendLog("frontend", "error", req.Message, req.Metadata)

	return c.JSON(fiber.Map{"status": "ok"})
}
