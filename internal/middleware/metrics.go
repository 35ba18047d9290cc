package middleware

import (
	"runtime"
	"time"

	"github.com/yourorg/buspenedes/internal/debug"
)

// PeriodicMetricsCollector envía métricas periódicamente al dashboard
func PeriodicMetricsCollector(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if !debug.IsEnabled() {
			continue
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		debug.UpdateMetrics(runtime.NumGoroutine(), float64(mem.Alloc)/1024.0/1024.0, 0)
	}
}
