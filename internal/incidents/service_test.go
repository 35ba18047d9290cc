package incidents

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdb "github.com/yourorg/buspenedes/internal/db"
	"github.com/yourorg/buspenedes/internal/models"
)

func newTestService(t *testing.T, now time.Time) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db)
	svc.now = func() time.Time { return now }
	return svc, mock
}

var testSession = Session{UserID: "user-1", Email: "usuario@example.com"}

func TestReport(t *testing.T) {
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	svc, mock := newTestService(t, now)

	mock.ExpectExec("INSERT INTO incidents").
		WithArgs(sqlmock.AnyArg(), "trip-1", "user-1", "delay", "Llevamos 20 minutos parados",
			now, "active", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	incident, err := svc.Report(context.Background(), testSession, models.IncidentCreateRequest{
		TripID:  "trip-1",
		Type:    models.IncidentDelay,
		Comment: "  Llevamos 20 minutos parados  ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, incident.ID)
	assert.Equal(t, "user-1", incident.UserID)
	assert.Equal(t, models.IncidentActive, incident.Status)
	// El reporte del creador cuenta como primera confirmación
	assert.Equal(t, 1, incident.Votes)
	assert.Equal(t, "Llevamos 20 minutos parados", incident.Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRequiresSession(t *testing.T) {
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	svc, mock := newTestService(t, now)

	_, err := svc.Report(context.Background(), Session{}, models.IncidentCreateRequest{
		TripID: "trip-1",
		Type:   models.IncidentDelay,
	})
	require.ErrorIs(t, err, ErrAuthRequired)
	// Sin sesión no se llega a tocar el almacén
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteFirstTime(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	mock.ExpectExec("INSERT INTO incident_votes").
		WithArgs(sqlmock.AnyArg(), "inc-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("CALL increment_incident_votes").
		WithArgs("inc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Vote(context.Background(), testSession, "inc-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteDuplicateIsSilentSuccess(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	// La clave única rechaza el segundo voto: éxito silencioso,
	// sin llamada al incremento del contador
	mock.ExpectExec("INSERT INTO incident_votes").
		WithArgs(sqlmock.AnyArg(), "inc-1", "user-1").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := svc.Vote(context.Background(), testSession, "inc-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteIncrementFailureSurfaces(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	mock.ExpectExec("INSERT INTO incident_votes").
		WithArgs(sqlmock.AnyArg(), "inc-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("CALL increment_incident_votes").
		WithArgs("inc-1").
		WillReturnError(assert.AnError)

	err := svc.Vote(context.Background(), testSession, "inc-1")
	require.Error(t, err)
	var qerr *appdb.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "increment votes", qerr.Op)
}

func TestVoteRequiresSession(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	err := svc.Vote(context.Background(), Session{}, "inc-1")
	require.ErrorIs(t, err, ErrAuthRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryByRoute(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	rows := sqlmock.NewRows([]string{"type", "id", "o_name", "d_name"}).
		AddRow("delay", "trip-1", "Vilafranca del Penedès Estació", "Barcelona Nord").
		AddRow("delay", "trip-1", "Vilafranca del Penedès Estació", "Barcelona Nord").
		AddRow("full_bus", "trip-1", "Vilafranca del Penedès Estació", "Barcelona Nord").
		AddRow("incident", "trip-9", "Igualada", "Barcelona Nord")
	mock.ExpectQuery("SELECT i.type, t.id").WillReturnRows(rows)

	summary, err := svc.SummaryByRoute(context.Background(), "Vilafranca", "Barcelona")
	require.NoError(t, err)
	require.Len(t, summary, 1, "el trip de Igualada no debe aparecer")

	entry := summary["trip-1"]
	assert.Equal(t, 3, entry.Count)
	// Tipos distintos en orden de aparición
	assert.Equal(t, []models.IncidentType{models.IncidentDelay, models.IncidentFullBus}, entry.Types)
}

func TestSummaryByTripIDs(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	rows := sqlmock.NewRows([]string{"trip_id", "type"}).
		AddRow("trip-1", "delay").
		AddRow("trip-2", "incident").
		AddRow("trip-1", "delay")
	mock.ExpectQuery("SELECT trip_id, type").
		WithArgs("trip-1", "trip-2").
		WillReturnRows(rows)

	summary, err := svc.Summary(context.Background(), []string{"trip-1", "trip-2"})
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, 2, summary["trip-1"].Count)
	assert.Equal(t, []models.IncidentType{models.IncidentDelay}, summary["trip-1"].Types)
	assert.Equal(t, 1, summary["trip-2"].Count)
}

func TestSummaryEmptyTripList(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	summary, err := svc.Summary(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var detailColumns = []string{
	"id", "trip_id", "user_id", "type", "comment", "created_at",
	"status", "votes", "resolved_at", "r_name", "o_name", "d_name",
}

func TestDetails(t *testing.T) {
	svc, mock := newTestService(t, time.Now())
	createdAt := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT i.id, i.trip_id").
		WithArgs("inc-1").
		WillReturnRows(sqlmock.NewRows(detailColumns).
			AddRow("inc-1", "trip-1", "user-2", "delay", "Retraso en origen", createdAt,
				"active", 4, nil, "Vilafranca - Barcelona", "Vilafranca", "Barcelona"))
	mock.ExpectQuery("SELECT id FROM incident_votes").
		WithArgs("inc-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("vote-1"))

	detail, err := svc.Details(context.Background(), testSession, "inc-1")
	require.NoError(t, err)
	assert.Equal(t, "inc-1", detail.ID)
	assert.Equal(t, 4, detail.Votes)
	assert.Equal(t, "Vilafranca - Barcelona", detail.RouteName)
	assert.True(t, detail.UserHasVoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailsWithoutSessionSkipsVoteLookup(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	mock.ExpectQuery("SELECT i.id, i.trip_id").
		WithArgs("inc-1").
		WillReturnRows(sqlmock.NewRows(detailColumns).
			AddRow("inc-1", "trip-1", "user-2", "delay", nil, time.Now(),
				"active", 1, nil, nil, nil, nil))

	detail, err := svc.Details(context.Background(), Session{}, "inc-1")
	require.NoError(t, err)
	assert.False(t, detail.UserHasVoted)
	// Sin ruta asociada se rellenan los textos por defecto
	assert.Equal(t, models.UnknownRouteName, detail.RouteName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailsNotFound(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	mock.ExpectQuery("SELECT i.id, i.trip_id").
		WithArgs("inc-desconocida").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Details(context.Background(), testSession, "inc-desconocida")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestComments(t *testing.T) {
	svc, mock := newTestService(t, time.Now())
	createdAt := time.Date(2025, 6, 3, 9, 45, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "incident_id", "user_id", "email", "content", "created_at"}).
		AddRow("com-1", "inc-1", "user-2", "otra@example.com", "Confirmo, sigue parado", createdAt).
		AddRow("com-2", "inc-1", "user-3", nil, "Ya se mueve", createdAt.Add(5*time.Minute))
	mock.ExpectQuery("SELECT c.id, c.incident_id").
		WithArgs("inc-1").
		WillReturnRows(rows)

	comments, err := svc.Comments(context.Background(), "inc-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "otra@example.com", comments[0].UserEmail)
	// Usuario borrado: el email del join viene NULL
	assert.Empty(t, comments[1].UserEmail)
}

func TestAddComment(t *testing.T) {
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	svc, mock := newTestService(t, now)

	mock.ExpectExec("INSERT INTO incident_comments").
		WithArgs(sqlmock.AnyArg(), "inc-1", "user-1", "Confirmo el retraso", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	comment, err := svc.AddComment(context.Background(), testSession, "inc-1", "Confirmo el retraso")
	require.NoError(t, err)
	// La respuesta sale ya enriquecida con el email de la sesión
	assert.Equal(t, "usuario@example.com", comment.UserEmail)
	assert.Equal(t, now, comment.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCommentRequiresSession(t *testing.T) {
	svc, mock := newTestService(t, time.Now())

	_, err := svc.AddComment(context.Background(), Session{}, "inc-1", "hola")
	require.ErrorIs(t, err, ErrAuthRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}
