package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yourorg/buspenedes/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// package-level dependencies
var (
	setupOnce sync.Once    // Garantiza inicialización única
	setupMu   sync.RWMutex // Protege acceso a variables globales
	dbConn    *sql.DB
	jwtSecret []byte
	tokenTTL  = 24 * time.Hour
)

// Setup wires shared dependencies for handlers. Call this during app bootstrap.
func Setup(db *sql.DB) {
	setupOnce.Do(func() {
		setupMu.Lock()
		defer setupMu.Unlock()

		dbConn = db
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			// Verificar si estamos en producción
			if os.Getenv("ENV") == "production" || os.Getenv("ENVIRONMENT") == "production" {
				log.Fatal("❌ CRITICAL: JWT_SECRET must be set in production environment")
			}
			log.Println("⚠️ WARNING: Using default JWT secret (development only)")
			secret = "dev-secret-change-me-32-characters!"
		}

		// Validar longitud mínima del secret
		if len(secret) < 32 {
			log.Fatalf("❌ CRITICAL: JWT_SECRET must be at least 32 characters long (current: %d)", len(secret))
		}

		jwtSecret = []byte(secret)

		if ttl := os.Getenv("JWT_TTL"); ttl != "" {
			dur, err := time.ParseDuration(ttl)
			if err != nil || dur <= 0 {
				log.Printf("invalid JWT_TTL=%q, using default %s", ttl, tokenTTL)
			} else {
				tokenTTL = dur
			}
		}
	})
}

// getDBConn retorna la conexión de base de datos de forma segura
func getDBConn() *sql.DB {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return dbConn
}

// getJWTSecret retorna el secret JWT de forma segura
func getJWTSecret() []byte {
	setupMu.RLock()
	defer setupMu.RUnlock()
	return jwtSecret
}

type userClaims struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func issueToken(userID, username, email string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(tokenTTL)
	claims := userClaims{
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(getJWTSecret())
	return signed, expires, err
}

// ParseToken valida un JWT emitido por este backend y devuelve la identidad
// del usuario (id y email) para construir la sesión explícita.
func ParseToken(tokenString string) (userID, email string, err error) {
	claims := &userClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return getJWTSecret(), nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", "", errors.New("invalid token")
	}
	return claims.Subject, claims.Email, nil
}

// Register handles POST /api/register.
func Register(c *fiber.Ctx) error {
	db := getDBConn()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "server not ready"})
	}
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	// Validar que tenga username, email y password
	if req.Username == "" || req.Email == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "username and email required"})
	}
	if !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "invalid email"})
	}
	if req.Password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "password required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to secure password"})
	}

	userID := uuid.NewString()
	_, err = db.Exec(`
		INSERT INTO users (id, username, email, name, password_hash)
		VALUES (?, ?, ?, ?, ?)
	`, userID, req.Username, req.Email, req.Name, string(hash))
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: "username or email already exists"})
		}
		log.Printf("❌ Error insertando usuario: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	log.Printf("✅ Usuario registrado: id=%s, username=%s", userID, req.Username)

	token, expiresAt, err := issueToken(userID, req.Username, req.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to sign token"})
	}
	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusCreated).JSON(models.LoginResponse{
		Token:     token,
		User:      models.UserDTO{ID: userID, Username: req.Username, Name: req.Name, Email: req.Email},
		ExpiresAt: expiresAt,
	})
}

// Login handles POST /api/login.
func Login(c *fiber.Ctx) error {
	db := getDBConn()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "server not ready"})
	}
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid json"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || strings.TrimSpace(req.Password) == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Error: "username and password required"})
	}

	var (
		id, username, email, name, passwordHash string
	)
	err := db.QueryRow(`SELECT id, username, email, name, password_hash FROM users WHERE username = ?`, req.Username).
		Scan(&id, &username, &email, &name, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "invalid credentials"})
		}
		log.Printf("❌ Error consultando usuario: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "db error"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "invalid credentials"})
	}
	token, expiresAt, err := issueToken(id, username, email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "failed to sign token"})
	}
	c.Set("Cache-Control", "no-store")
	return c.Status(fiber.StatusOK).JSON(models.LoginResponse{
		Token:     token,
		User:      models.UserDTO{ID: id, Username: username, Name: name, Email: email},
		ExpiresAt: expiresAt,
	})
}
