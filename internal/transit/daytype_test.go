package transit

import (
	"testing"
	"time"

	"github.com/yourorg/buspenedes/internal/models"
)

func TestCurrentDayType(t *testing.T) {
	cases := []struct {
		date time.Time
		want models.DayType
	}{
		{time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), models.DayDomingo}, // domingo
		{time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC), models.DaySabado},  // sábado
		{time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC), models.DayWeekday}, // lunes
		{time.Date(2025, 6, 6, 12, 0, 0, 0, time.UTC), models.DayWeekday}, // viernes
	}
	for _, tc := range cases {
		if got := CurrentDayType(tc.date); got != tc.want {
			t.Errorf("CurrentDayType(%s) = %s, want %s", tc.date.Weekday(), got, tc.want)
		}
	}
}

func TestResolveDayTypeLocalizedNames(t *testing.T) {
	// Un lunes cualquiera como "hoy" para el fallback
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		want models.DayType
	}{
		{"domingo", models.DayDomingo},
		{"diumenge", models.DayDomingo},
		{"sábado", models.DaySabado},
		{"dissabte", models.DaySabado},
		{"lunes", models.DayWeekday},
		{"dilluns", models.DayWeekday},
		{"dimecres", models.DayWeekday},
		{"divendres", models.DayWeekday},
		{"DIUMENGE", models.DayDomingo}, // insensible a mayúsculas
		{" dissabte ", models.DaySabado},
	}
	for _, tc := range cases {
		if got := ResolveDayType(tc.name, now); got != tc.want {
			t.Errorf("ResolveDayType(%q) = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestResolveDayTypeFallback(t *testing.T) {
	// Nombre no reconocido: cae al tipo de día del calendario actual
	sunday := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := ResolveDayType("festivo", sunday); got != models.DayDomingo {
		t.Errorf("ResolveDayType fallback on Sunday = %s, want domingo", got)
	}

	monday := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	if got := ResolveDayType("", monday); got != models.DayWeekday {
		t.Errorf("ResolveDayType fallback on Monday = %s, want weekday", got)
	}
}
