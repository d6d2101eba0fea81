package config

import (
	"fmt"     // DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // Durations

	"github.com/joho/godotenv" // For loading .env files
)

// Supported values of DB_DRIVER
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBDriver   string // mysql, postgres or memory
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	DBSSLMode  string // Postgres sslmode
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address, empty disables caching and PIN lockout
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	CacheTTL         time.Duration // Lifetime of cached reads
	PINMaxAttempts   int           // Failed PIN entries before lockout, 0 disables lockout
	PINLockoutWindow time.Duration // Window the failures are counted in
	AuditQueueSize   int           // Buffered audit records
	AuditMaxAttempts int           // Writes tried per audit record
	ImpersonationTTL time.Duration // Lifetime of a login-as-user token
	AdminEmail       string        // Bootstrap super admin created by the seed step
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),       // Application port
		DBDriver:   getEnv("DB_DRIVER", DriverMySQL), // Database driver
		DBUser:     os.Getenv("DB_USER"),             // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),         // Database password
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),   // Database host
		DBPort:     os.Getenv("DB_PORT"),             // Database port
		DBName:     os.Getenv("DB_NAME"),             // Database name
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),  // Postgres sslmode
		JWTSecret:  os.Getenv("JWT_SECRET"),          // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),          // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),          // Redis password
		RedisDB:    getEnvAsInt("REDIS_DB", 0),       // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true",   // Is production environment

		CacheTTL:         getEnvAsDuration("CACHE_TTL", 60*time.Second),
		PINMaxAttempts:   getEnvAsInt("PIN_MAX_ATTEMPTS", 5),
		PINLockoutWindow: getEnvAsDuration("PIN_LOCKOUT_WINDOW", 15*time.Minute),
		AuditQueueSize:   getEnvAsInt("AUDIT_QUEUE_SIZE", 256),
		AuditMaxAttempts: getEnvAsInt("AUDIT_MAX_ATTEMPTS", 5),
		ImpersonationTTL: getEnvAsDuration("IMPERSONATION_TTL", 2*time.Hour),
		AdminEmail:       os.Getenv("ADMIN_EMAIL"),
	}
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres:
		if c.DBName == "" {
			return fmt.Errorf("DB_NAME is required for driver %s", c.DBDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == DriverPostgres {
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, port, c.DBSSLMode)
	}
	port := c.DBPort
	if port == "" {
		port = "3306"
	}
	// parseTime for DATETIME columns, utf8mb4 for names and reasons
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?charset=utf8mb4&parseTime=true&loc=UTC"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
