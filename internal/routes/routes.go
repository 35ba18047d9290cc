package routes

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/yourorg/buspenedes/internal/cache"
	"github.com/yourorg/buspenedes/internal/debug"
	"github.com/yourorg/buspenedes/internal/handlers"
	"github.com/yourorg/buspenedes/internal/incidents"
	"github.com/yourorg/buspenedes/internal/middleware"
	"github.com/yourorg/buspenedes/internal/transit"
)

func Register(app *fiber.App, db *sql.DB) {
	// ============================================================================
	// API PÚBLICA (Endpoints para la app móvil)
	// ============================================================================
	api := app.Group("/api")

	// Health check (sin rate limiting)
	api.Get("/health", handlers.Health)

	// ============================================================================
	// AUTENTICACIÓN (con rate limiting estricto)
	// ============================================================================
	api.Post("/login", middleware.StrictRateLimiter(), handlers.Login)
	api.Post("/register", middleware.StrictRateLimiter(), handlers.Register)

	// Initialize services and handlers.
	// El caché guarda solo datos de referencia inmutables (locations).
	referenceCache := cache.NewCache(10*time.Minute, 30*time.Minute)
	transitSvc := transit.NewService(db, referenceCache, transit.PolicyFromEnv())
	incidentSvc := incidents.NewService(db)

	transitHandler := handlers.NewTransitHandler(transitSvc)
	incidentHandler := handlers.NewIncidentHandler(incidentSvc)

	// ============================================================================
	// LOCATIONS (Poblaciones/paradas de referencia)
	// ============================================================================
	api.Get("/locations", middleware.RateLimiter(), transitHandler.GetLocations)
	api.Get("/locations/:id/destinations", middleware.RateLimiter(), transitHandler.GetDestinationsByOrigin)

	// ============================================================================
	// TRIPS (Horarios)
	// ============================================================================
	trips := api.Group("/trips")
	trips.Use(middleware.RateLimiter())

	trips.Get("/next", transitHandler.GetNextTrips)
	// GET /api/trips/next?origin=Vilafranca&destination=Barcelona
	// Próximos buses de hoy, incluyendo la ventana de gracia (has_passed)

	trips.Get("/day", transitHandler.GetTripsByDay)
	// GET /api/trips/day?day=dissabte&origin=X&destination=Y
	// Todos los buses del día seleccionado (nombres de día en ca/es)

	// ============================================================================
	// INCIDENTS (Reportes colaborativos, votos y comentarios)
	// ============================================================================
	incidentsGroup := api.Group("/incidents")

	incidentsGroup.Get("/", incidentHandler.GetActiveIncidents)
	incidentsGroup.Get("/summary", incidentHandler.GetIncidentsSummary)
	// GET /api/incidents/summary?origin=X&destination=Y
	// GET /api/incidents/summary?trip_ids=a,b,c

	incidentsGroup.Get("/trip/:tripId", incidentHandler.GetTripIncidents)

	incidentsGroup.Post("/", middleware.WriteRateLimiter(), middleware.AuthRequired(), incidentHandler.CreateIncident)
	incidentsGroup.Get("/:id", middleware.AuthOptional(), incidentHandler.GetIncidentByID)
	incidentsGroup.Put("/:id/vote", middleware.WriteRateLimiter(), middleware.AuthRequired(), incidentHandler.VoteIncident)
	incidentsGroup.Get("/:id/comments", incidentHandler.GetIncidentComments)
	incidentsGroup.Post("/:id/comments", middleware.WriteRateLimiter(), middleware.AuthRequired(), incidentHandler.AddIncidentComment)

	// ============================================================================
	// DEBUG DASHBOARD WEBSOCKET
	// ============================================================================
	// Endpoints para recibir logs y errores desde la app móvil
	debugAPI := api.Group("/debug")
	debugAPI.Post("/log", handlers.ReceiveAppLog)
	debugAPI.Post("/error", handlers.ReceiveAppError)

	// WebSocket para el dashboard web (siempre disponible)
	app.Use("/ws/debug", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/debug", websocket.New(func(c *websocket.Conn) {
		debug.HandleWebSocketFiber(c)
	}))
}
