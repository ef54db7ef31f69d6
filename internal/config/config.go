package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"glucolog/internal/db"
)

type Config struct {
	Port string

	DatabaseURL string
	// DatabaseFile is the sqlite backing file uploaded by the backup job. Empty for postgres.
	DatabaseFile string
	AutoMigrate  bool

	JWTSecret      string
	AccessTokenTTL time.Duration

	CORSAllowedOrigins []string

	Backup struct {
		Bucket   string
		Interval time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

const DefaultDatabaseURL = "sqlite:///./glucoapp.db"

// Load reads the server configuration from the environment. Callers load any .env file first.
func Load() (*Config, error) {
	return load(true)
}

// LoadTool is Load without the JWT_SECRET requirement, for operator commands that never
// issue or verify tokens.
func LoadTool() (*Config, error) {
	return load(false)
}

func load(requireSecret bool) (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseURL = getEnv("DATABASE_URL", DefaultDatabaseURL)
	cfg.DatabaseFile = os.Getenv("DATABASE_FILE_PATH")
	if cfg.DatabaseFile == "" {
		if dialect, _ := db.ParseURL(cfg.DatabaseURL); dialect == db.SQLite {
			cfg.DatabaseFile = db.SQLitePath(cfg.DatabaseURL)
		}
	}
	if cfg.AutoMigrate, err = getBool("AUTO_MIGRATE", true); err != nil {
		return nil, err
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" && requireSecret {
		return nil, errors.New("JWT_SECRET is required")
	}
	minutes, err := getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 1440)
	if err != nil {
		return nil, err
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", minutes)
	}
	cfg.AccessTokenTTL = time.Duration(minutes) * time.Minute

	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	cfg.Backup.Bucket = os.Getenv("S3_BUCKET_NAME")
	if cfg.Backup.Interval, err = getDuration("BACKUP_INTERVAL", 4*time.Hour); err != nil {
		return nil, err
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
