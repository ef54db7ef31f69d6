package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glucolog/internal/config"
	"glucolog/internal/db"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("S3_BUCKET_NAME", "")
	t.Setenv("DATABASE_FILE_PATH", "")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMigrateLifecycle(t *testing.T) {
	url := "sqlite:///" + filepath.Join(t.TempDir(), "ctl.db")

	out, err := run(t, "migrate", "status", "--database-url", url)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "pending"))

	out, err = run(t, "migrate", "up", db.RevisionReadingColumns, "--database-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "current revision: "+db.RevisionReadingColumns)

	out, err = run(t, "migrate", "up", "--database-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "current revision: "+db.RevisionReadingsIndex)

	out, err = run(t, "migrate", "status", "--database-url", url)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "applied"))
	assert.Contains(t, out, "* "+db.RevisionReadingsIndex)

	out, err = run(t, "migrate", "down", "--database-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "current revision: "+db.RevisionHealthMetrics)

	out, err = run(t, "migrate", "down", "base", "--database-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "current revision: "+db.Base)

	out, err = run(t, "migrate", "down", "--database-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to downgrade")
}

func TestMigrateRejectsUnknownRevision(t *testing.T) {
	url := "sqlite:///" + filepath.Join(t.TempDir(), "ctl.db")
	_, err := run(t, "migrate", "up", "9999_missing", "--database-url", url)
	assert.Error(t, err)
}

func TestBackupWithoutBucketFails(t *testing.T) {
	_, err := run(t, "backup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup did not complete")
}

func TestDatabaseURLFlagMovesBackupFile(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "")
	cfg := &config.Config{DatabaseURL: "sqlite:///env.db", DatabaseFile: "env.db"}

	overrideDatabaseURL(cfg, "sqlite:///other.db")
	assert.Equal(t, "sqlite:///other.db", cfg.DatabaseURL)
	assert.Equal(t, db.SQLitePath("sqlite:///other.db"), cfg.DatabaseFile)
	assert.NotEqual(t, "env.db", cfg.DatabaseFile)

	overrideDatabaseURL(cfg, "")
	assert.Equal(t, "sqlite:///other.db", cfg.DatabaseURL)
}

func TestDatabaseURLFlagKeepsExplicitBackupFile(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/var/backups/readings.db")
	cfg := &config.Config{DatabaseURL: "sqlite:///env.db", DatabaseFile: "/var/backups/readings.db"}

	overrideDatabaseURL(cfg, "sqlite:///other.db")
	assert.Equal(t, "/var/backups/readings.db", cfg.DatabaseFile)
}
