package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBTimeScan(t *testing.T) {
	want := time.Date(2025, 6, 1, 8, 30, 15, 0, time.UTC)

	for _, src := range []any{
		"2025-06-01 08:30:15+00:00",
		"2025-06-01 10:30:15+02:00",
		[]byte("2025-06-01T08:30:15Z"),
		"2025-06-01 08:30:15",
		want.In(time.FixedZone("EST", -5*3600)),
	} {
		var got dbTime
		require.NoError(t, got.Scan(src), "%v", src)
		assert.True(t, got.Valid)
		assert.True(t, want.Equal(got.Time), "%v", src)
		assert.Equal(t, time.UTC, got.Time.Location())
	}

	var null dbTime
	require.NoError(t, null.Scan(nil))
	assert.False(t, null.Valid)
	assert.Nil(t, null.ptr())

	var bad dbTime
	assert.Error(t, bad.Scan("yesterday"))
	assert.Error(t, bad.Scan(42))
}

func TestIsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, isUniqueViolation(dup))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}
