package transit

import (
	"strings"
	"time"

	"github.com/yourorg/buspenedes/internal/models"
)

// dayNames mapea los nombres de día que usa la app (catalán y castellano)
// al tipo de día del horario.
var dayNames = map[string]models.DayType{
	"domingo":   models.DayDomingo,
	"diumenge":  models.DayDomingo,
	"sábado":    models.DaySabado,
	"dissabte":  models.DaySabado,
	"lunes":     models.DayWeekday,
	"dilluns":   models.DayWeekday,
	"martes":    models.DayWeekday,
	"dimarts":   models.DayWeekday,
	"miércoles": models.DayWeekday,
	"dimecres":  models.DayWeekday,
	"jueves":    models.DayWeekday,
	"dijous":    models.DayWeekday,
	"viernes":   models.DayWeekday,
	"divendres": models.DayWeekday,
}

// CurrentDayType resuelve el tipo de día a partir del calendario.
func CurrentDayType(t time.Time) models.DayType {
	switch t.Weekday() {
	case time.Sunday:
		return models.DayDomingo
	case time.Saturday:
		return models.DaySabado
	default:
		return models.DayWeekday
	}
}

// ResolveDayType mapea un nombre de día localizado a su tipo de día.
// Si el nombre no se reconoce, cae al tipo de día del calendario actual.
func ResolveDayType(name string, now time.Time) models.DayType {
	if dt, ok := dayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return dt
	}
	return CurrentDayType(now)
}
