package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-change"

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	JWTSecret []byte
	JWTTTL    time.Duration

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CarQueryURL string

	AllowAdminSignup bool
	RateLimitEnabled bool

	// AdminUsername and AdminPassword seed an administrator at startup.
	AdminUsername string
	AdminPassword string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return Load(), nil
}

// Load reads the configuration from the process environment only.
func Load() *Config {
	cfg := &Config{
		ServiceName: EnvDefault("SERVICE_NAME", "car_dealership"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 4008),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(EnvDefault("DB_DRIVER", "postgres")),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: []byte(EnvDefault("JWT_SECRET", devJWTSecret)),
		JWTTTL:    EnvDurationDefault("JWT_TTL", 2*time.Hour),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "cars"),

		CarQueryURL: EnvDefault("CARQUERY_URL", "https://www.carqueryapi.com/api/0.3/"),

		AllowAdminSignup: EnvBoolDefault("ALLOW_ADMIN_SIGNUP", false),
		RateLimitEnabled: EnvBoolDefault("RATE_LIMIT_ENABLED", true),

		AdminUsername: strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	if cfg.DBDriver == "sqlite" && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "file:dealership.db?cache=shared&mode=rwc"
	}
	if (cfg.AdminUsername == "") != (cfg.AdminPassword == "") {
		log.Println("WARNING: ADMIN_USERNAME and ADMIN_PASSWORD must be set together; admin bootstrap skipped")
		cfg.AdminUsername, cfg.AdminPassword = "", ""
	}
	if string(cfg.JWTSecret) == devJWTSecret {
		log.Println("WARNING: using development JWT secret; set JWT_SECRET")
	}
	return cfg
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
