package handlers

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/buspenedes/internal/debug"
)

// HealthResponse representa el estado de salud del sistema
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version,omitempty"`
}

// Health proporciona un health check completo del sistema
func Health(c *fiber.Ctx) error {
	services := make(map[string]string)
	overall := "healthy"

	// ============================================================================
	// CHECK: Base de Datos
	// ============================================================================
	db := getDBConn()
	if db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			services["database"] = "unhealthy: " + err.Error()
			overall = "degraded"
		} else {
			services["database"] = "healthy"
		}
	} else {
		services["database"] = "not_initialized"
		overall = "degraded"
	}

	// ============================================================================
	// CHECK: Datos de referencia (locations)
	// ============================================================================
	if db != nil {
		var count int
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM locations").Scan(&count)
		if err != nil {
			services["reference_data"] = "unhealthy: " + err.Error()
			overall = "degraded"
		} else if count == 0 {
			services["reference_data"] = "empty"
			overall = "degraded"
		} else {
			services["reference_data"] = "healthy"
		}
	} else {
		services["reference_data"] = "unavailable"
	}

	// ============================================================================
	// CHECK: Dashboard de diagnóstico
	// ============================================================================
	if debug.IsEnabled() {
		services["debug_dashboard"] = "enabled"
	} else {
		services["debug_dashboard"] = "disabled"
	}

	// ============================================================================
	// Determinar código de estado HTTP
	// ============================================================================
	statusCode := fiber.StatusOK
	if overall == "degraded" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  services,
		Version:   os.Getenv("APP_VERSION"),
	})
}
