package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/buspenedes/internal/debug"
	"github.com/yourorg/buspenedes/internal/models"
	"github.com/yourorg/buspenedes/internal/transit"
)

type TransitHandler struct {
	svc *transit.Service
}

func NewTransitHandler(svc *transit.Service) *TransitHandler {
	return &TransitHandler{svc: svc}
}

// GetLocations devuelve todas las poblaciones/paradas.
// Las lecturas degradan a lista vacía si el almacén falla: la app muestra
// "sin datos" en lugar de un error.
func (h *TransitHandler) GetLocations(c *fiber.Ctx) error {
	locations, err := h.svc.Locations(c.Context())
	if err != nil {
		log.Printf("❌ Error obteniendo locations: %v", err)
		debug.LogError("locations query failed", map[string]interface{}{"error": err.Error()})
		locations = nil
	}
	if locations == nil {
		locations = []models.Location{}
	}
	return c.JSON(fiber.Map{
		"locations": locations,
		"count":     len(locations),
	})
}

// GetDestinationsByOrigin devuelve los destinos alcanzables desde un origen
func (h *TransitHandler) GetDestinationsByOrigin(c *fiber.Ctx) error {
	originID := c.Params("id")

	destinations, err := h.svc.DestinationsByOrigin(c.Context(), originID)
	if err != nil {
		log.Printf("❌ Error obteniendo destinos para %s: %v", originID, err)
		debug.LogError("destinations query failed", map[string]interface{}{
			"origin_id": originID,
			"error":     err.Error(),
		})
		destinations = []models.Location{}
	}
	return c.JSON(fiber.Map{
		"destinations": destinations,
		"count":        len(destinations),
	})
}

// GetNextTrips devuelve los próximos buses entre dos poblaciones
func (h *TransitHandler) GetNextTrips(c *fiber.Ctx) error {
	origin := c.Query("origin")
	destination := c.Query("destination")
	if origin == "" || destination == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "origin and destination are required",
		})
	}

	trips, err := h.svc.NextTrips(c.Context(), origin, destination)
	if err != nil {
		log.Printf("❌ Error obteniendo próximos buses: %v", err)
		debug.LogError("next trips query failed", map[string]interface{}{
			"origin":      origin,
			"destination": destination,
			"error":       err.Error(),
		})
		trips = []models.Trip{}
	}
	return c.JSON(fiber.Map{
		"trips": trips,
		"count": len(trips),
	})
}

// GetTripsByDay devuelve todos los buses de un día entre dos poblaciones
func (h *TransitHandler) GetTripsByDay(c *fiber.Ctx) error {
	day := c.Query("day")
	origin := c.Query("origin")
	destination := c.Query("destination")
	if origin == "" || destination == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "origin and destination are required",
		})
	}

	trips, err := h.svc.TripsByDay(c.Context(), day, origin, destination)
	if err != nil {
		log.Printf("❌ Error obteniendo buses del día %q: %v", day, err)
		debug.LogError("trips by day query failed", map[string]interface{}{
			"day":         day,
			"origin":      origin,
			"destination": destination,
			"error":       err.Error(),
		})
		trips = []models.Trip{}
	}
	return c.JSON(fiber.Map{
		"trips": trips,
		"count": len(trips),
	})
}
