package transit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/buspenedes/internal/cache"
	"github.com/yourorg/buspenedes/internal/models"
)

func newTestService(t *testing.T, policy Policy, now time.Time) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, nil, policy)
	svc.now = func() time.Time { return now }
	return svc, mock
}

var tripColumns = []string{
	"id", "departure_time", "expected_arrival_time", "status",
	"delay_minutes", "occupancy_level", "name", "num_ruta", "o_name", "d_name",
}

func TestNextTrips(t *testing.T) {
	// Martes 10:00: tipo de día weekday, ventana de gracia desde 09:45
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	svc, mock := newTestService(t, Policy{ResultCap: 6, Lookback: 15 * time.Minute}, now)

	rows := sqlmock.NewRows(tripColumns).
		AddRow("trip-1", "09:50:00", "10:45:00", "scheduled", 0, "low",
			"Vilafranca - Barcelona", "e16", "Vilafranca del Penedès Estació", "Barcelona Nord").
		AddRow("trip-2", "10:30:00", "11:25:00", "scheduled", 5, "medium",
			"Vilafranca - Barcelona", "e16", "Vilafranca del Penedès Estació", "Barcelona Nord").
		AddRow("trip-3", "10:45:00", "11:40:00", "scheduled", 0, "unknown",
			"Igualada - Barcelona", "e15", "Igualada", "Barcelona Nord")

	mock.ExpectQuery("SELECT t.id, t.departure_time").
		WithArgs("weekday", "09:45:00", 300).
		WillReturnRows(rows)

	trips, err := svc.NextTrips(context.Background(), "Vilafranca", "Barcelona")
	require.NoError(t, err)
	require.Len(t, trips, 2, "la ruta de Igualada no debe colarse")

	// El bus de las 09:50 ya pasó pero sigue dentro de la ventana de gracia
	assert.Equal(t, "trip-1", trips[0].ID)
	assert.True(t, trips[0].HasPassed)
	assert.Equal(t, "09:50", trips[0].DepartureTime)

	assert.Equal(t, "trip-2", trips[1].ID)
	assert.False(t, trips[1].HasPassed)
	assert.Equal(t, 5, trips[1].DelayMinutes)
	assert.Equal(t, models.OccupancyMedium, trips[1].OccupancyLevel)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextTripsResultCap(t *testing.T) {
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	svc, mock := newTestService(t, Policy{ResultCap: 2, Lookback: 15 * time.Minute}, now)

	rows := sqlmock.NewRows(tripColumns)
	for _, tr := range []struct{ id, dep string }{
		{"trip-1", "10:10:00"}, {"trip-2", "10:20:00"}, {"trip-3", "10:40:00"}, {"trip-4", "11:00:00"},
	} {
		rows.AddRow(tr.id, tr.dep, "", "scheduled", 0, "unknown",
			"Vilafranca - Barcelona", "e16", "Vilafranca", "Barcelona")
	}
	mock.ExpectQuery("SELECT t.id, t.departure_time").
		WithArgs("weekday", "09:45:00", 300).
		WillReturnRows(rows)

	trips, err := svc.NextTrips(context.Background(), "Vilafranca", "Barcelona")
	require.NoError(t, err)
	require.Len(t, trips, 2)
	// El tope respeta el orden ascendente de salida
	assert.Equal(t, "trip-1", trips[0].ID)
	assert.Equal(t, "trip-2", trips[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextTripsNormalizesMissingRoute(t *testing.T) {
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	svc, mock := newTestService(t, Policy{ResultCap: 6, Lookback: 15 * time.Minute}, now)

	// Trip huérfano: los joins de ruta vienen NULL
	rows := sqlmock.NewRows(tripColumns).
		AddRow("trip-1", "10:10:00", nil, nil, 0, nil, nil, nil, nil, nil)
	mock.ExpectQuery("SELECT t.id, t.departure_time").
		WithArgs("weekday", "09:45:00", 300).
		WillReturnRows(rows)

	// Con nombres por defecto, solo una consulta vacía los encuentra
	trips, err := svc.NextTrips(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, models.UnknownRouteName, trips[0].RouteName)
	assert.Equal(t, models.UnknownOriginName, trips[0].OriginName)
	assert.Equal(t, models.UnknownDestinationName, trips[0].DestinationName)
	assert.Equal(t, models.TripScheduled, trips[0].Status)
	assert.Equal(t, models.OccupancyUnknown, trips[0].OccupancyLevel)
}

func TestTripsByDayResolvesCatalanName(t *testing.T) {
	// "diumenge" debe consultar el horario de domingo aunque hoy sea martes
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	svc, mock := newTestService(t, Policy{ResultCap: 6, Lookback: 15 * time.Minute}, now)

	rows := sqlmock.NewRows(tripColumns).
		AddRow("trip-1", "08:00:00", "08:55:00", "scheduled", 0, "empty",
			"Vilafranca - Barcelona", "e16", "Vilafranca", "Barcelona")
	mock.ExpectQuery("SELECT t.id, t.departure_time").
		WithArgs("domingo").
		WillReturnRows(rows)

	trips, err := svc.TripsByDay(context.Background(), "diumenge", "Vilafranca", "Barcelona")
	require.NoError(t, err)
	require.Len(t, trips, 1)
	// Sin ventana horaria no se calcula has_passed
	assert.False(t, trips[0].HasPassed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDestinationsByOriginDeduplicates(t *testing.T) {
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	svc, mock := newTestService(t, Policy{}, now)

	// Dos rutas comparten el mismo destino: debe salir una sola vez,
	// conservando el orden de primera aparición
	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow("loc-bcn", "Barcelona Nord").
		AddRow("loc-igualada", "Igualada").
		AddRow("loc-bcn", "Barcelona Nord")
	mock.ExpectQuery("SELECT l.id, l.name").
		WithArgs("loc-vilafranca").
		WillReturnRows(rows)

	destinations, err := svc.DestinationsByOrigin(context.Background(), "loc-vilafranca")
	require.NoError(t, err)
	require.Len(t, destinations, 2)
	assert.Equal(t, "loc-bcn", destinations[0].ID)
	assert.Equal(t, "loc-igualada", destinations[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationsUsesCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	refCache := cache.NewCache(time.Minute, time.Minute)
	defer refCache.Stop()

	svc := NewService(db, refCache, Policy{})

	mock.ExpectQuery("SELECT id, name FROM locations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("loc-1", "Vilafranca"))

	first, err := svc.Locations(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Segunda llamada: sin expectativa de query, debe salir del caché
	second, err := svc.Locations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocationsQueryErrorPropagates(t *testing.T) {
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	svc, mock := newTestService(t, Policy{}, now)

	mock.ExpectQuery("SELECT id, name FROM locations").
		WillReturnError(assert.AnError)

	_, err := svc.Locations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list locations")
}
