package debug

import (
	"log"
	"os"
)

var (
	enabled = false
)

func init() {
	// Leer la variable de entorno DEBUG_DASHBOARD
	enabled = os.Getenv("DEBUG_DASHBOARD") == "true"
	if enabled {
		log.Println("🐛 Debug Dashboard habilitado")
	}
}

// IsEnabled retorna si el dashboard de debugging está habilitado
func IsEnabled() bool {
	return enabled
}

// LogDebug envía un log de nivel debug al dashboard
func LogDebug(message string, metadata map[string]interface{}) {
	if !enabled {
		return
	}
	SendLog("backend", "debug", message, metadata)
}

// LogInfo envía un log de nivel info al dashboard
func LogInfo(message string, metadata map[string]interface{}) {
	if !enabled {
		return
	}
	SendLog("backend", "info", message, metadata)
}

// LogWarn envía un log de nivel warn al dashboard
func LogWarn(message string, metadata map[string]interface{}) {
	if !enabled {
		return
	}
	SendLog("backend", "warn", message, metadata)
}

// LogError envía un log de nivel error al dashboard
func LogError(message string, metadata map[string]interface{}) {
	if !enabled {
		return
	}
	SendLog("backend", "error", message, metadata)
}

// UpdateMetrics envía métricas actualizadas al dashboard
func UpdateMetrics(goroutines int, memoryMB float64, apiRequests int) {
	if !enabled {
		return
	}

	metrics := []Metric{
		{Name: "Goroutines", Value: goroutines, Trend: "stable"},
		{Name: "Memory", Value: memoryMB, Unit: "MB", Trend: getTrend(memoryMB, 512)},
		{Name: "API Requests/min", Value: apiRequests, Trend: "stable"},
	}

	SendMetrics(metrics)
}

func getTrend(value, threshold float64) string {
	if value > threshold {
		return "up"
	} else if value < threshold*0.5 {
		return "down"
	}
	return "stable"
}
