package models

import "time"

// IncidentType representa el tipo de incidencia reportada
type IncidentType string

const (
	IncidentDelay   IncidentType = "delay"
	IncidentFullBus IncidentType = "full_bus"
	IncidentGeneric IncidentType = "incident"
	IncidentOther   IncidentType = "other"
)

// IncidentStatus es el estado de moderación de una incidencia.
// El cliente solo crea incidencias en estado active; la transición a
// resolved/rejected la hace un proceso de moderación externo.
type IncidentStatus string

const (
	IncidentActive   IncidentStatus = "active"
	IncidentResolved IncidentStatus = "resolved"
	IncidentRejected IncidentStatus = "rejected"
)

// Incident representa una incidencia reportada por un usuario sobre un viaje
type Incident struct {
	ID         string         `json:"id"`
	TripID     string         `json:"trip_id"`
	UserID     string         `json:"user_id"`
	Type       IncidentType   `json:"type"`
	Comment    string         `json:"comment,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Status     IncidentStatus `json:"status"`
	Votes      int            `json:"votes"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}

// IncidentWithRoute es una incidencia enriquecida con los nombres de la
// ruta afectada y el número de comentarios (listado general)
type IncidentWithRoute struct {
	Incident
	RouteName       string `json:"route_name"`
	OriginName      string `json:"origin_name"`
	DestinationName string `json:"destination_name"`
	CommentCount    int    `json:"comment_count"`
}

// IncidentDetail es la vista de detalle, incluyendo si el usuario que
// consulta ya confirmó la incidencia
type IncidentDetail struct {
	Incident
	RouteName       string `json:"route_name"`
	OriginName      string `json:"origin_name"`
	DestinationName string `json:"destination_name"`
	UserHasVoted    bool   `json:"user_has_voted"`
}

// IncidentCreateRequest representa la solicitud para reportar una incidencia
type IncidentCreateRequest struct {
	TripID  string       `json:"trip_id" validate:"required"`
	Type    IncidentType `json:"type" validate:"required,oneof=delay full_bus incident other"`
	Comment string       `json:"comment,omitempty" validate:"omitempty,max=500"`
}

// IncidentComment es un comentario del hilo de una incidencia
type IncidentComment struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incident_id"`
	UserID     string    `json:"user_id"`
	UserEmail  string    `json:"user_email,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommentCreateRequest representa la solicitud para añadir un comentario
type CommentCreateRequest struct {
	Content string `json:"content" validate:"required,max=500"`
}

// TripIncidentSummary agrega las incidencias activas de un viaje:
// total de reportes y lista de tipos distintos en orden de aparición
type TripIncidentSummary struct {
	Count int            `json:"count"`
	Types []IncidentType `json:"types"`
}
