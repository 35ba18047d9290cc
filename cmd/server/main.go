package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	appdb "github.com/yourorg/buspenedes/internal/db"
	"github.com/yourorg/buspenedes/internal/handlers"
	"github.com/yourorg/buspenedes/internal/middleware"
	"github.com/yourorg/buspenedes/internal/routes"
)

func main() {
	_ = godotenv.Load()

	app := fiber.New()
	app.Use(logger.New())
	app.Use(middleware.DashboardLogger())

	// ============================================================================
	// DB CONNECTION
	// ============================================================================
	var dbReady bool

	go func() {
		for {
			db, err := appdb.Connect()
			if err != nil {
				log.Printf("db connect error: %v (retrying in 5s)", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if err := appdb.EnsureSchema(db); err != nil {
				log.Printf("ensure schema error: %v (retrying in 5s)", err)
				time.Sleep(5 * time.Second)
				continue
			}
			handlers.Setup(db)
			routes.Register(app, db)
			dbReady = true
			log.Printf("✅ Database ready and routes registered")
			return
		}
	}()

	// Wait briefly for DB to be ready
	for i := 0; i < 10 && !dbReady; i++ {
		time.Sleep(500 * time.Millisecond)
	}

	// Métricas periódicas para el dashboard de diagnóstico
	go middleware.PeriodicMetricsCollector(30 * time.Second)

	// ============================================================================
	// GRACEFUL SHUTDOWN
	// ============================================================================
	// Capturar señales de terminación (Ctrl+C, kill, etc.)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\n🛑 Señal de terminación recibida, cerrando servidor...")

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error cerrando servidor: %v", err)
		}

		log.Println("✅ Servidor cerrado correctamente")
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Servidor escuchando en :%s", port)
	log.Println("📍 Endpoints disponibles:")
	log.Println("   GET  /api/locations                  - Poblaciones/paradas")
	log.Println("   GET  /api/locations/:id/destinations - Destinos desde un origen")
	log.Println("   GET  /api/trips/next                 - Próximos buses")
	log.Println("   GET  /api/trips/day                  - Buses de un día concreto")
	log.Println("   GET  /api/incidents                  - Incidencias activas")
	log.Println("   POST /api/incidents                  - Reportar incidencia (auth)")
	log.Println("   PUT  /api/incidents/:id/vote         - Confirmar incidencia (auth)")
	log.Println("   GET  /api/incidents/:id/comments     - Hilo de comentarios")
	log.Println("💡 Presiona Ctrl+C para detener")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}
