package main

import (
	"bufio"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	appdb "github.com/yourorg/buspenedes/internal/db"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Println("==== BusPenedès CLI ====")
		fmt.Println("1) Health check API")
		fmt.Println("2) Seed database (sample user + reference data)")
		fmt.Println("3) Exit")
		fmt.Print("Select option: ")
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)
		switch choice {
		case "1":
			doHealthCheck()
		case "2":
			doSeed()
		case "3":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Invalid option")
		}
		fmt.Println()
	}
}

func doHealthCheck() {
	base := os.Getenv("BASE_URL")
	if base == "" {
		base = "http://127.0.0.1:8080"
	}
	url := strings.TrimRight(base, "/") + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		fmt.Println("Health: ERROR:", err)
		return
	}
	defer resp.Body.Close()
	fmt.Println("Health:", resp.Status)
}

func doSeed() {
	db, err := appdb.Connect()
	if err != nil {
		fmt.Println("db connect error:", err)
		return
	}
	defer db.Close()
	if err := appdb.EnsureSchema(db); err != nil {
		fmt.Println("ensure schema error:", err)
		return
	}

	seedUser(db)
	seedReferenceData(db)
}

func seedUser(db *sql.DB) {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		fmt.Println("bcrypt error:", err)
		return
	}
	userID := uuid.NewString()
	_, err = db.Exec(`
		INSERT INTO users (id, username, email, name, password_hash)
		VALUES (?, ?, ?, ?, ?)
	`, userID, "demo", "demo@example.com", "Demo User", string(hash))
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			fmt.Println("Sample user already exists")
			return
		}
		fmt.Println("insert user error:", err)
		return
	}
	fmt.Println("Sample user created: demo / demo1234")
}

// seedReferenceData crea un par de poblaciones, una ruta y sus primeros
// viajes para poder probar la app sin importar datos reales.
func seedReferenceData(db *sql.DB) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM locations`).Scan(&count); err != nil {
		fmt.Println("count locations error:", err)
		return
	}
	if count > 0 {
		fmt.Println("Reference data already present, skipping")
		return
	}

	vilafranca := uuid.NewString()
	barcelona := uuid.NewString()
	for _, loc := range []struct{ id, name string }{
		{vilafranca, "Vilafranca del Penedès Estació"},
		{barcelona, "Barcelona Estació del Nord"},
	} {
		if _, err := db.Exec(`INSERT INTO locations (id, name) VALUES (?, ?)`, loc.id, loc.name); err != nil {
			fmt.Println("insert location error:", err)
			return
		}
	}

	routeID := uuid.NewString()
	if _, err := db.Exec(`
		INSERT INTO routes (id, name, num_ruta, origin_id, destination_id, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`, routeID, "Vilafranca - Barcelona", "e16", vilafranca, barcelona, "Servei directe per l'AP-7"); err != nil {
		fmt.Println("insert route error:", err)
		return
	}

	for _, trip := range []struct {
		departure, arrival, dayType string
	}{
		{"07:00:00", "07:55:00", "weekday"},
		{"08:30:00", "09:25:00", "weekday"},
		{"18:15:00", "19:10:00", "weekday"},
		{"09:00:00", "09:55:00", "sabado"},
		{"10:30:00", "11:25:00", "domingo"},
	} {
		if _, err := db.Exec(`
			INSERT INTO trips (id, route_id, departure_time, expected_arrival_time, day_type)
			VALUES (?, ?, ?, ?, ?)
		`, uuid.NewString(), routeID, trip.departure, trip.arrival, trip.dayType); err != nil {
			fmt.Println("insert trip error:", err)
			return
		}
	}

	fmt.Println("Reference data seeded: 2 locations, 1 route, 5 trips")
}
