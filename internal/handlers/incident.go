package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/buspenedes/internal/debug"
	"github.com/yourorg/buspenedes/internal/incidents"
	"github.com/yourorg/buspenedes/internal/models"
)

var validate = validator.New()

type IncidentHandler struct {
	svc *incidents.Service
}

func NewIncidentHandler(svc *incidents.Service) *IncidentHandler {
	return &IncidentHandler{svc: svc}
}

// sessionFromCtx recupera la sesión dejada por el middleware de auth.
// Sesión vacía significa petición anónima.
func sessionFromCtx(c *fiber.Ctx) incidents.Session {
	if sess, ok := c.Locals("session").(incidents.Session); ok {
		return sess
	}
	return incidents.Session{}
}

// CreateIncident reporta una nueva incidencia sobre un viaje
func (h *IncidentHandler) CreateIncident(c *fiber.Ctx) error {
	var req models.IncidentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: err.Error()})
	}

	incident, err := h.svc.Report(c.Context(), sessionFromCtx(c), req)
	if err != nil {
		return h.writeError(c, "report incident", err)
	}

	return c.Status(fiber.StatusCreated).JSON(incident)
}

// GetActiveIncidents lista todas las incidencias activas con su ruta
func (h *IncidentHandler) GetActiveIncidents(c *fiber.Ctx) error {
	list, err := h.svc.ActiveIncidents(c.Context())
	if err != nil {
		log.Printf("❌ Error listando incidencias activas: %v", err)
		debug.LogError("active incidents query failed", map[string]interface{}{"error": err.Error()})
		list = []models.IncidentWithRoute{}
	}
	return c.JSON(fiber.Map{
		"incidents": list,
		"count":     len(list),
	})
}

// GetTripIncidents lista las incidencias activas de un viaje concreto
func (h *IncidentHandler) GetTripIncidents(c *fiber.Ctx) error {
	tripID := c.Params("tripId")

	list, err := h.svc.TripIncidents(c.Context(), tripID)
	if err != nil {
		log.Printf("❌ Error listando incidencias del viaje %s: %v", tripID, err)
		debug.LogError("trip incidents query failed", map[string]interface{}{
			"trip_id": tripID,
			"error":   err.Error(),
		})
		list = []models.Incident{}
	}
	return c.JSON(fiber.Map{
		"incidents": list,
		"count":     len(list),
	})
}

// GetIncidentsSummary agrega incidencias activas por viaje. Acepta dos
// variantes: ?trip_ids=a,b,c (filtro directo) o ?origin=X&destination=Y
// (mismo matching por nombre que las consultas de horario).
func (h *IncidentHandler) GetIncidentsSummary(c *fiber.Ctx) error {
	var (
		summary map[string]models.TripIncidentSummary
		err     error
	)

	if tripIDs := c.Query("trip_ids"); tripIDs != "" {
		ids := []string{}
		for _, id := range strings.Split(tripIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		summary, err = h.svc.Summary(c.Context(), ids)
	} else {
		origin := c.Query("origin")
		destination := c.Query("destination")
		if origin == "" || destination == "" {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: "trip_ids or origin/destination are required",
			})
		}
		summary, err = h.svc.SummaryByRoute(c.Context(), origin, destination)
	}

	if err != nil {
		log.Printf("❌ Error agregando incidencias: %v", err)
		debug.LogError("incidents summary query failed", map[string]interface{}{"error": err.Error()})
		summary = map[string]models.TripIncidentSummary{}
	}
	return c.JSON(summary)
}

// GetIncidentByID devuelve el detalle de una incidencia. Si la petición
// trae sesión, incluye si ese usuario ya la confirmó.
func (h *IncidentHandler) GetIncidentByID(c *fiber.Ctx) error {
	id := c.Params("id")

	detail, err := h.svc.Details(c.Context(), sessionFromCtx(c), id)
	if err != nil {
		if errors.Is(err, incidents.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: "incident not found"})
		}
		return h.writeError(c, "get incident", err)
	}
	return c.JSON(detail)
}

// VoteIncident confirma una incidencia. Votar dos veces responde igual que
// votar una: la restricción única del almacén hace la llamada idempotente.
func (h *IncidentHandler) VoteIncident(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.svc.Vote(c.Context(), sessionFromCtx(c), id); err != nil {
		return h.writeError(c, "vote incident", err)
	}
	return c.JSON(fiber.Map{"message": "Vote registered successfully"})
}

// GetIncidentComments devuelve el hilo de comentarios en orden cronológico
func (h *IncidentHandler) GetIncidentComments(c *fiber.Ctx) error {
	id := c.Params("id")

	comments, err := h.svc.Comments(c.Context(), id)
	if err != nil {
		log.Printf("❌ Error listando comentarios de %s: %v", id, err)
		debug.LogError("comments query failed", map[string]interface{}{
			"incident_id": id,
			"error":       err.Error(),
		})
		comments = []models.IncidentComment{}
	}
	return c.JSON(fiber.Map{
		"comments": comments,
		"count":    len(comments),
	})
}

// AddIncidentComment añade un comentario al hilo de una incidencia
func (h *IncidentHandler) AddIncidentComment(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.CommentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid request body"})
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: err.Error()})
	}

	comment, err := h.svc.AddComment(c.Context(), sessionFromCtx(c), id, req.Content)
	if err != nil {
		return h.writeError(c, "add comment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// writeError mapea los errores de servicio de las escrituras a HTTP. A
// diferencia de las lecturas, aquí el fallo sí llega al usuario.
func (h *IncidentHandler) writeError(c *fiber.Ctx, op string, err error) error {
	if errors.Is(err, incidents.ErrAuthRequired) {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "authentication required"})
	}
	log.Printf("❌ Error en %s: %v", op, err)
	debug.LogError(op+" failed", map[string]interface{}{"error": err.Error()})
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to " + op})
}
