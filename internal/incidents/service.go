package incidents

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	appdb "github.com/yourorg/buspenedes/internal/db"
	"github.com/yourorg/buspenedes/internal/models"
	"github.com/yourorg/buspenedes/internal/transit"
)

var (
	// ErrAuthRequired se devuelve cuando una escritura llega sin sesión.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotFound se devuelve cuando la incidencia consultada no existe.
	ErrNotFound = errors.New("incident not found")
)

// Session identifica al usuario que ejecuta la operación. Se pasa
// explícitamente a cada llamada de escritura en lugar de leerse de un
// estado ambiente, para que el requisito de autenticación quede en la firma.
type Session struct {
	UserID string
	Email  string
}

// Valid reports whether the session carries an authenticated user.
func (s Session) Valid() bool {
	return s.UserID != ""
}

// Service implementa el reporte colaborativo de incidencias: alta, listados,
// confirmación por voto (uno por usuario) e hilo de comentarios.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Report crea una incidencia activa sobre un viaje. El reporte del creador
// cuenta como primera confirmación, por eso votes arranca en 1.
func (s *Service) Report(ctx context.Context, sess Session, req models.IncidentCreateRequest) (*models.Incident, error) {
	if !sess.Valid() {
		return nil, ErrAuthRequired
	}

	incident := models.Incident{
		ID:        uuid.NewString(),
		TripID:    req.TripID,
		UserID:    sess.UserID,
		Type:      req.Type,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: s.now(),
		Status:    models.IncidentActive,
		Votes:     1,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents (id, trip_id, user_id, type, comment, created_at, status, votes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, incident.ID, incident.TripID, incident.UserID, string(incident.Type),
		nullIfEmpty(incident.Comment), incident.CreatedAt, string(incident.Status), incident.Votes)
	if err != nil {
		return nil, appdb.NewQueryError("report incident", err)
	}
	return &incident, nil
}

// TripIncidents devuelve las incidencias activas de un viaje, la más
// reciente primero.
func (s *Service) TripIncidents(ctx context.Context, tripID string) ([]models.Incident, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trip_id, user_id, type, comment, created_at, status, votes, resolved_at
		FROM incidents
		WHERE trip_id = ? AND status = 'active'
		ORDER BY created_at DESC
	`, tripID)
	if err != nil {
		return nil, appdb.NewQueryError("list trip incidents", err)
	}
	defer rows.Close()

	incidents := []models.Incident{}
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, appdb.NewQueryError("list trip incidents", err)
	}
	return incidents, nil
}

// ActiveIncidents devuelve todas las incidencias activas con los nombres de
// la ruta afectada y el número de comentarios de cada hilo.
func (s *Service) ActiveIncidents(ctx context.Context) ([]models.IncidentWithRoute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.trip_id, i.user_id, i.type, i.comment, i.created_at,
		       i.status, i.votes, i.resolved_at,
		       r.name, o.name, d.name,
		       (SELECT COUNT(*) FROM incident_comments c WHERE c.incident_id = i.id)
		FROM incidents i
		LEFT JOIN trips t ON t.id = i.trip_id
		LEFT JOIN routes r ON r.id = t.route_id
		LEFT JOIN locations o ON o.id = r.origin_id
		LEFT JOIN locations d ON d.id = r.destination_id
		WHERE i.status = 'active'
		ORDER BY i.created_at DESC
	`)
	if err != nil {
		return nil, appdb.NewQueryError("list active incidents", err)
	}
	defer rows.Close()

	incidents := []models.IncidentWithRoute{}
	for rows.Next() {
		var (
			item                 models.IncidentWithRoute
			comment              sql.NullString
			resolvedAt           sql.NullTime
			routeName            sql.NullString
			originName, destName sql.NullString
		)
		if err := rows.Scan(
			&item.ID, &item.TripID, &item.UserID, &item.Type, &comment,
			&item.CreatedAt, &item.Status, &item.Votes, &resolvedAt,
			&routeName, &originName, &destName, &item.CommentCount,
		); err != nil {
			return nil, appdb.NewQueryError("scan active incident", err)
		}
		item.Comment = comment.String
		if resolvedAt.Valid {
			item.ResolvedAt = &resolvedAt.Time
		}
		item.RouteName = valueOr(routeName.String, models.UnknownRouteName)
		item.OriginName = valueOr(originName.String, models.UnknownOriginName)
		item.DestinationName = valueOr(destName.String, models.UnknownDestinationName)
		incidents = append(incidents, item)
	}
	if err := rows.Err(); err != nil {
		return nil, appdb.NewQueryError("list active incidents", err)
	}
	return incidents, nil
}

// SummaryByRoute agrega las incidencias activas de los viajes entre dos
// poblaciones: para cada trip, total de reportes y tipos distintos en orden
// de aparición. El matching por nombre usa el mismo criterio que las
// consultas de horario.
func (s *Service) SummaryByRoute(ctx context.Context, origin, destination string) (map[string]models.TripIncidentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.type, t.id, o.name, d.name
		FROM incidents i
		JOIN trips t ON t.id = i.trip_id
		LEFT JOIN routes r ON r.id = t.route_id
		LEFT JOIN locations o ON o.id = r.origin_id
		LEFT JOIN locations d ON d.id = r.destination_id
		WHERE i.status = 'active'
		ORDER BY i.created_at
	`)
	if err != nil {
		return nil, appdb.NewQueryError("summarize incidents by route", err)
	}
	defer rows.Close()

	summary := map[string]models.TripIncidentSummary{}
	for rows.Next() {
		var (
			incType              string
			tripID               string
			originName, destName sql.NullString
		)
		if err := rows.Scan(&incType, &tripID, &originName, &destName); err != nil {
			return nil, appdb.NewQueryError("scan incident summary", err)
		}
		if !transit.MatchesRoute(origin, destination, originName.String, destName.String) {
			continue
		}
		addToSummary(summary, tripID, models.IncidentType(incType))
	}
	if err := rows.Err(); err != nil {
		return nil, appdb.NewQueryError("summarize incidents by route", err)
	}
	return summary, nil
}

// Summary agrega las incidencias activas de una lista concreta de viajes.
func (s *Service) Summary(ctx context.Context, tripIDs []string) (map[string]models.TripIncidentSummary, error) {
	summary := map[string]models.TripIncidentSummary{}
	if len(tripIDs) == 0 {
		return summary, nil
	}

	placeholders := strings.Repeat("?,", len(tripIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(tripIDs))
	for i, id := range tripIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT trip_id, type
		FROM incidents
		WHERE status = 'active' AND trip_id IN (`+placeholders+`)
		ORDER BY created_at
	`, args...)
	if err != nil {
		return nil, appdb.NewQueryError("summarize incidents", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tripID, incType string
		if err := rows.Scan(&tripID, &incType); err != nil {
			return nil, appdb.NewQueryError("scan incident summary", err)
		}
		addToSummary(summary, tripID, models.IncidentType(incType))
	}
	if err := rows.Err(); err != nil {
		return nil, appdb.NewQueryError("summarize incidents", err)
	}
	return summary, nil
}

// Vote registra la confirmación del usuario sobre una incidencia. Votar dos
// veces tiene el mismo efecto observable que votar una: si la clave única
// rechaza el insert, la llamada termina en éxito silencioso sin tocar el
// contador. El insert del voto y el incremento del contador son dos pasos
// que fallan por separado; si el incremento falla, la fila de voto queda y
// el contador queda por debajo hasta una reconciliación externa.
func (s *Service) Vote(ctx context.Context, sess Session, incidentID string) error {
	if !sess.Valid() {
		return ErrAuthRequired
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incident_votes (id, incident_id, user_id) VALUES (?, ?, ?)
	`, uuid.NewString(), incidentID, sess.UserID)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil
		}
		return appdb.NewQueryError("register vote", err)
	}

	if _, err := s.db.ExecContext(ctx, `CALL increment_incident_votes(?)`, incidentID); err != nil {
		return appdb.NewQueryError("increment votes", err)
	}
	return nil
}

// Details devuelve la vista de detalle de una incidencia. Si la sesión trae
// usuario, marca además si ese usuario ya votó; la consulta del voto es
// best-effort, un fallo ahí solo deja user_has_voted en false.
func (s *Service) Details(ctx context.Context, sess Session, incidentID string) (*models.IncidentDetail, error) {
	var (
		detail               models.IncidentDetail
		comment              sql.NullString
		resolvedAt           sql.NullTime
		routeName            sql.NullString
		originName, destName sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.trip_id, i.user_id, i.type, i.comment, i.created_at,
		       i.status, i.votes, i.resolved_at,
		       r.name, o.name, d.name
		FROM incidents i
		LEFT JOIN trips t ON t.id = i.trip_id
		LEFT JOIN routes r ON r.id = t.route_id
		LEFT JOIN locations o ON o.id = r.origin_id
		LEFT JOIN locations d ON d.id = r.destination_id
		WHERE i.id = ?
	`, incidentID).Scan(
		&detail.ID, &detail.TripID, &detail.UserID, &detail.Type, &comment,
		&detail.CreatedAt, &detail.Status, &detail.Votes, &resolvedAt,
		&routeName, &originName, &destName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, appdb.NewQueryError("get incident", err)
	}

	detail.Comment = comment.String
	if resolvedAt.Valid {
		detail.ResolvedAt = &resolvedAt.Time
	}
	detail.RouteName = valueOr(routeName.String, models.UnknownRouteName)
	detail.OriginName = valueOr(originName.String, models.UnknownOriginName)
	detail.DestinationName = valueOr(destName.String, models.UnknownDestinationName)

	if sess.Valid() {
		var voteID string
		err := s.db.QueryRowContext(ctx, `
			SELECT id FROM incident_votes WHERE incident_id = ? AND user_id = ?
		`, incidentID, sess.UserID).Scan(&voteID)
		if err == nil {
			detail.UserHasVoted = true
		}
	}
	return &detail, nil
}

// Comments devuelve el hilo de una incidencia en orden cronológico, con el
// email del autor resuelto para mostrarlo en la app.
func (s *Service) Comments(ctx context.Context, incidentID string) ([]models.IncidentComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.incident_id, c.user_id, u.email, c.content, c.created_at
		FROM incident_comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.incident_id = ?
		ORDER BY c.created_at ASC
	`, incidentID)
	if err != nil {
		return nil, appdb.NewQueryError("list comments", err)
	}
	defer rows.Close()

	comments := []models.IncidentComment{}
	for rows.Next() {
		var (
			comment models.IncidentComment
			email   sql.NullString
		)
		if err := rows.Scan(&comment.ID, &comment.IncidentID, &comment.UserID,
			&email, &comment.Content, &comment.CreatedAt); err != nil {
			return nil, appdb.NewQueryError("scan comment", err)
		}
		comment.UserEmail = email.String
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, appdb.NewQueryError("list comments", err)
	}
	return comments, nil
}

// AddComment añade un comentario al hilo y lo devuelve ya enriquecido con
// el email de la sesión, para que la app lo pinte sin otra consulta.
func (s *Service) AddComment(ctx context.Context, sess Session, incidentID, content string) (*models.IncidentComment, error) {
	if !sess.Valid() {
		return nil, ErrAuthRequired
	}

	comment := models.IncidentComment{
		ID:         uuid.NewString(),
		IncidentID: incidentID,
		UserID:     sess.UserID,
		UserEmail:  sess.Email,
		Content:    content,
		CreatedAt:  s.now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incident_comments (id, incident_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, comment.ID, comment.IncidentID, comment.UserID, comment.Content, comment.CreatedAt)
	if err != nil {
		return nil, appdb.NewQueryError("add comment", err)
	}
	return &comment, nil
}

func addToSummary(summary map[string]models.TripIncidentSummary, tripID string, incType models.IncidentType) {
	entry := summary[tripID]
	entry.Count++
	found := false
	for _, t := range entry.Types {
		if t == incType {
			found = true
			break
		}
	}
	if !found {
		entry.Types = append(entry.Types, incType)
	}
	summary[tripID] = entry
}

func scanIncident(rows *sql.Rows) (models.Incident, error) {
	var (
		incident   models.Incident
		comment    sql.NullString
		resolvedAt sql.NullTime
	)
	if err := rows.Scan(&incident.ID, &incident.TripID, &incident.UserID,
		&incident.Type, &comment, &incident.CreatedAt, &incident.Status,
		&incident.Votes, &resolvedAt); err != nil {
		return models.Incident{}, appdb.NewQueryError("scan incident", err)
	}
	incident.Comment = comment.String
	if resolvedAt.Valid {
		incident.ResolvedAt = &resolvedAt.Time
	}
	return incident, nil
}

// isDuplicateEntry detecta el rechazo por la clave única de incident_votes
// (MySQL/MariaDB error 1062), que significa "este usuario ya votó".
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
