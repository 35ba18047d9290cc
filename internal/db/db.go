package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// Connect returns a MariaDB connection using env vars.
func Connect() (*sql.DB, error) {
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASS")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3306"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4,utf8", user, pass, host, port, name)
	return sql.Open("mysql", dsn)
}

// EnsureSchema creates required tables if not exist.
func EnsureSchema(db *sql.DB) error {
	if skip := strings.TrimSpace(os.Getenv("DB_SKIP_SCHEMA")); strings.EqualFold(skip, "true") || skip == "1" {
		log.Printf("EnsureSchema: skipped (DB_SKIP_SCHEMA=%q)", skip)
		return nil
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id CHAR(36) PRIMARY KEY,
			username VARCHAR(50) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			name VARCHAR(100) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`); err != nil {
		return err
	}

	// Datos de referencia: poblaciones/paradas y rutas que las unen.
	// Se cargan fuera de banda (CLI de seed o import manual).
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS locations (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`); err != nil {
		return err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS routes (
			id CHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			num_ruta VARCHAR(32) NULL,
			origin_id CHAR(36) NOT NULL,
			destination_id CHAR(36) NOT NULL,
			description VARCHAR(500) NULL,
			FOREIGN KEY (origin_id) REFERENCES locations(id),
			FOREIGN KEY (destination_id) REFERENCES locations(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`); err != nil {
		return err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trips (
			id CHAR(36) PRIMARY KEY,
			route_id CHAR(36) NOT NULL,
			departure_time TIME NOT NULL,
			expected_arrival_time TIME NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			delay_minutes INT NOT NULL DEFAULT 0,
			occupancy_level VARCHAR(10) NOT NULL DEFAULT 'unknown',
			day_type VARCHAR(10) NOT NULL,
			FOREIGN KEY (route_id) REFERENCES routes(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`); err != nil {
		return err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS incidents (
			id CHAR(36) PRIMARY KEY,
			trip_id CHAR(36) NOT NULL,
			user_id CHAR(36) NOT NULL,
			type VARCHAR(20) NOT NULL,
			comment TEXT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			status VARCHAR(10) NOT NULL DEFAULT 'active',
			votes INT NOT NULL DEFAULT 1,
			resolved_at TIMESTAMP NULL,
			FOREIGN KEY (trip_id) REFERENCES trips(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`); err != nil {
		return err
	}

	// Un voto por usuario y por incidencia: la clave única es la que
	// garantiza la idempotencia de la confirmación.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS incident_votes (
			id CHAR(36) PRIMARY KEY,
			incident_id CHAR(36) NOT NULL,
			user_id CHAR(36) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_incident_user (incident_id, user_id),
			FOREIGN KEY (incident_id) REFERENCES incidents(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`); err != nil {
		return err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS incident_comments (
			id CHAR(36) PRIMARY KEY,
			incident_id CHAR(36) NOT NULL,
			user_id CHAR(36) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (incident_id) REFERENCES incidents(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`); err != nil {
		return err
	}

	for _, stmt := range []string{
		`CREATE INDEX idx_trips_day_departure ON trips(day_type, departure_time);`,
		`CREATE INDEX idx_incidents_trip_status ON incidents(trip_id, status);`,
		`CREATE INDEX idx_incident_comments_incident ON incident_comments(incident_id);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			errMsg := strings.ToLower(err.Error())
			if strings.Contains(errMsg, "duplicate") {
				// index already exists, nothing to do
			} else if strings.Contains(errMsg, "permission denied") {
				log.Printf("EnsureSchema: unable to create index (permission denied): %v", err)
			} else {
				return err
			}
		}
	}

	// Único punto de entrada no-CRUD del esquema: incremento atómico del
	// contador de votos, invocado tras registrar el primer voto del usuario.
	if _, err := db.Exec(`
		CREATE PROCEDURE IF NOT EXISTS increment_incident_votes(IN p_incident_id CHAR(36))
		BEGIN
			UPDATE incidents SET votes = votes + 1 WHERE id = p_incident_id;
		END
	`); err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "already exists") {
			// MariaDB < 10.1 no soporta IF NOT EXISTS para procedures
		} else {
			return err
		}
	}

	return nil
}
