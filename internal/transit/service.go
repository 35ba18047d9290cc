package transit

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"time"

	"github.com/yourorg/buspenedes/internal/cache"
	appdb "github.com/yourorg/buspenedes/internal/db"
	"github.com/yourorg/buspenedes/internal/models"
)

// maxTripRows acota la consulta de trips antes del filtrado por nombre.
const maxTripRows = 300

// Policy parametriza la consulta de próximos buses. Existen dos variantes
// históricas del comportamiento (3 resultados sin ventana de gracia vs. 6
// con 15 minutos); en lugar de fijar una, ambas se exponen por configuración.
type Policy struct {
	ResultCap int
	Lookback  time.Duration
}

// PolicyFromEnv lee NEXT_TRIPS_LIMIT y NEXT_TRIPS_LOOKBACK_MIN,
// con la variante enriquecida como valor por defecto.
func PolicyFromEnv() Policy {
	p := Policy{ResultCap: 6, Lookback: 15 * time.Minute}
	if v := os.Getenv("NEXT_TRIPS_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.ResultCap = n
		}
	}
	if v := os.Getenv("NEXT_TRIPS_LOOKBACK_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Lookback = time.Duration(n) * time.Minute
		}
	}
	return p
}

// Service expone los datos de referencia (locations, destinos por origen)
// y las consultas de horarios. Es la única puerta hacia las tablas
// locations/routes/trips.
type Service struct {
	db     *sql.DB
	cache  *cache.Cache
	policy Policy
	now    func() time.Time
}

func NewService(db *sql.DB, c *cache.Cache, p Policy) *Service {
	return &Service{db: db, cache: c, policy: p, now: time.Now}
}

// Locations devuelve todas las poblaciones/paradas ordenadas por nombre.
func (s *Service) Locations(ctx context.Context) ([]models.Location, error) {
	const cacheKey = "locations:all"
	if s.cache != nil {
		if v, ok := s.cache.Get(cacheKey); ok {
			return v.([]models.Location), nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM locations ORDER BY name`)
	if err != nil {
		return nil, appdb.NewQueryError("list locations", err)
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, appdb.NewQueryError("scan location", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, appdb.NewQueryError("list locations", err)
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, locations)
	}
	return locations, nil
}

// DestinationsByOrigin devuelve los destinos alcanzables desde un origen.
// Varias rutas pueden compartir destino, así que se de-duplica por id de
// destino conservando el orden de primera aparición.
func (s *Service) DestinationsByOrigin(ctx context.Context, originID string) ([]models.Location, error) {
	cacheKey := "destinations:" + originID
	if s.cache != nil {
		if v, ok := s.cache.Get(cacheKey); ok {
			return v.([]models.Location), nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.name
		FROM routes r
		JOIN locations l ON l.id = r.destination_id
		WHERE r.origin_id = ?
	`, originID)
	if err != nil {
		return nil, appdb.NewQueryError("list destinations", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	destinations := []models.Location{}
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, appdb.NewQueryError("scan destination", err)
		}
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		destinations = append(destinations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, appdb.NewQueryError("list destinations", err)
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, destinations)
	}
	return destinations, nil
}

// NextTrips devuelve los próximos buses entre dos poblaciones para el tipo
// de día de hoy, incluyendo los que salieron dentro de la ventana de gracia
// (marcados con has_passed). El filtrado por nombre se hace en cliente
// porque el almacén no sabe hacer matching difuso.
func (s *Service) NextTrips(ctx context.Context, origin, destination string) ([]models.Trip, error) {
	now := s.now()
	dayType := CurrentDayType(now)
	localTime := now.Format("15:04")
	floor := now.Add(-s.policy.Lookback).Format("15:04:05")

	rows, err := s.db.QueryContext(ctx, tripSelect+`
		WHERE t.day_type = ? AND t.departure_time >= ?
		ORDER BY t.departure_time
		LIMIT ?
	`, string(dayType), floor, maxTripRows)
	if err != nil {
		return nil, appdb.NewQueryError("query next trips", err)
	}
	defer rows.Close()

	trips, err := scanTrips(rows, localTime)
	if err != nil {
		return nil, err
	}

	matching := filterTrips(trips, origin, destination)
	if len(matching) > s.policy.ResultCap {
		matching = matching[:s.policy.ResultCap]
	}
	return matching, nil
}

// TripsByDay devuelve todos los buses del día seleccionado entre dos
// poblaciones, sin filtro horario ni tope de resultados. selectedDay acepta
// los nombres de día en catalán o castellano.
func (s *Service) TripsByDay(ctx context.Context, selectedDay, origin, destination string) ([]models.Trip, error) {
	dayType := ResolveDayType(selectedDay, s.now())

	rows, err := s.db.QueryContext(ctx, tripSelect+`
		WHERE t.day_type = ?
		ORDER BY t.departure_time
	`, string(dayType))
	if err != nil {
		return nil, appdb.NewQueryError("query trips by day", err)
	}
	defer rows.Close()

	trips, err := scanTrips(rows, "")
	if err != nil {
		return nil, err
	}
	return filterTrips(trips, origin, destination), nil
}

const tripSelect = `
	SELECT t.id, t.departure_time, t.expected_arrival_time, t.status,
	       t.delay_minutes, t.occupancy_level,
	       r.name, r.num_ruta, o.name, d.name
	FROM trips t
	LEFT JOIN routes r ON r.id = t.route_id
	LEFT JOIN locations o ON o.id = r.origin_id
	LEFT JOIN locations d ON d.id = r.destination_id
`

// scanTrips materializa las filas normalizando los campos relacionales que
// pueden venir NULL a los textos por defecto de la app. localTime ("HH:MM")
// activa el cálculo de has_passed; vacío lo omite.
func scanTrips(rows *sql.Rows, localTime string) ([]models.Trip, error) {
	trips := []models.Trip{}
	for rows.Next() {
		var (
			trip                 models.Trip
			departure, arrival   sql.NullString
			status, occupancy    sql.NullString
			routeName, routeNum  sql.NullString
			originName, destName sql.NullString
		)
		if err := rows.Scan(
			&trip.ID,
			&departure,
			&arrival,
			&status,
			&trip.DelayMinutes,
			&occupancy,
			&routeName,
			&routeNum,
			&originName,
			&destName,
		); err != nil {
			return nil, appdb.NewQueryError("scan trip", err)
		}

		trip.DepartureTime = clipTime(departure.String)
		trip.ExpectedArrivalTime = clipTime(arrival.String)
		trip.Status = models.TripStatus(valueOr(status.String, string(models.TripScheduled)))
		trip.OccupancyLevel = models.OccupancyLevel(valueOr(occupancy.String, string(models.OccupancyUnknown)))
		trip.RouteName = valueOr(routeName.String, models.UnknownRouteName)
		trip.RouteNum = routeNum.String
		trip.OriginName = valueOr(originName.String, models.UnknownOriginName)
		trip.DestinationName = valueOr(destName.String, models.UnknownDestinationName)
		if localTime != "" {
			trip.HasPassed = trip.DepartureTime < localTime
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, appdb.NewQueryError("scan trips", err)
	}
	return trips, nil
}

func filterTrips(trips []models.Trip, origin, destination string) []models.Trip {
	matching := []models.Trip{}
	for _, trip := range trips {
		if MatchesRoute(origin, destination, trip.OriginName, trip.DestinationName) {
			matching = append(matching, trip)
		}
	}
	return matching
}

// clipTime trunca "HH:MM:SS" a "HH:MM" para presentación.
func clipTime(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
