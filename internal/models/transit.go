package models

// DayType es la partición de horario a la que pertenece un viaje
type DayType string

const (
	DayWeekday DayType = "weekday"
	DaySabado  DayType = "sabado"
	DayDomingo DayType = "domingo"
)

// TripStatus representa el estado operativo de un viaje
type TripStatus string

const (
	TripScheduled  TripStatus = "scheduled"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
	TripDelayed    TripStatus = "delayed"
)

// OccupancyLevel es el indicador aproximado de ocupación del bus
type OccupancyLevel string

const (
	OccupancyEmpty   OccupancyLevel = "empty"
	OccupancyLow     OccupancyLevel = "low"
	OccupancyMedium  OccupancyLevel = "medium"
	OccupancyHigh    OccupancyLevel = "high"
	OccupancyFull    OccupancyLevel = "full"
	OccupancyUnknown OccupancyLevel = "unknown"
)

// Textos por defecto cuando la fila de ruta/parada no existe o viene NULL.
// Se mantienen en catalán porque es lo que muestra la app.
const (
	UnknownRouteName       = "Ruta desconeguda"
	UnknownOriginName      = "Origen desconegut"
	UnknownDestinationName = "Destí desconegut"
)

// Location es una parada/población de referencia (datos inmutables)
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Route une dos Locations; una ruta tiene muchos trips
type Route struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	NumRuta     string   `json:"num_ruta,omitempty"`
	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`
	Description string   `json:"description,omitempty"`
}

// Trip es una salida programada de una ruta, ya aplanada para la app:
// nombres de ruta/origen/destino resueltos y horas truncadas a HH:MM.
type Trip struct {
	ID                  string         `json:"id"`
	RouteName           string         `json:"route_name"`
	RouteNum            string         `json:"route_num,omitempty"`
	OriginName          string         `json:"origin_name"`
	DestinationName     string         `json:"destination_name"`
	DepartureTime       string         `json:"departure_time"`
	ExpectedArrivalTime string         `json:"expected_arrival_time"`
	Status              TripStatus     `json:"status"`
	DelayMinutes        int            `json:"delay_minutes"`
	OccupancyLevel      OccupancyLevel `json:"occupancy_level"`
	// HasPassed indica si el bus ya salió (solo para la ventana de gracia)
	HasPassed bool `json:"has_passed"`
}
