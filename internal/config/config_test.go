package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "DATABASE_URL", "DATABASE_FILE_PATH", "AUTO_MIGRATE", "JWT_SECRET",
	"ACCESS_TOKEN_EXPIRE_MINUTES", "CORS_ALLOWED_ORIGINS", "S3_BUCKET_NAME",
	"BACKUP_INTERVAL", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultDatabaseURL, cfg.DatabaseURL)
	assert.Equal(t, "./glucoapp.db", cfg.DatabaseFile)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Backup.Bucket)
	assert.Equal(t, 4*time.Hour, cfg.Backup.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/gluco")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("S3_BUCKET_NAME", "gluco-backups")
	t.Setenv("BACKUP_INTERVAL", "30m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Empty(t, cfg.DatabaseFile)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "gluco-backups", cfg.Backup.Bucket)
	assert.Equal(t, 30*time.Minute, cfg.Backup.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestExplicitDatabaseFileWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "sqlite:////var/lib/gluco/app.db")
	t.Setenv("DATABASE_FILE_PATH", "/backups/src.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/backups/src.db", cfg.DatabaseFile)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"bad minutes":      {"JWT_SECRET": "s", "ACCESS_TOKEN_EXPIRE_MINUTES": "soon"},
		"negative minutes": {"JWT_SECRET": "s", "ACCESS_TOKEN_EXPIRE_MINUTES": "-5"},
		"bad interval":     {"JWT_SECRET": "s", "BACKUP_INTERVAL": "every day"},
		"bad bool":         {"JWT_SECRET": "s", "AUTO_MIGRATE": "maybe"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadToolSkipsSecret(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadTool()
	require.NoError(t, err)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, DefaultDatabaseURL, cfg.DatabaseURL)
}
