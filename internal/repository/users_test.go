package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glucolog/internal/models"
)

func TestUserCreateAndLookup(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewUserRepository(conn)
	ctx := context.Background()

	u := &models.User{
		Email:          "jane@example.com",
		FullName:       ptr("Jane Doe"),
		HashedPassword: "bcrypt-hash",
		Role:           models.RoleRegular,
		CreatedAt:      base,
	}
	require.NoError(t, repo.Create(ctx, u))
	require.NotZero(t, u.ID)

	byEmail, err := repo.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "Jane Doe", *byEmail.FullName)
	assert.Equal(t, "bcrypt-hash", byEmail.HashedPassword)
	assert.True(t, base.Equal(byEmail.CreatedAt))

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", byID.Email)
	assert.Equal(t, models.RoleRegular, byID.Role)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByID(ctx, u.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewUserRepository(conn)
	ctx := context.Background()

	first := &models.User{Email: "dup@example.com", HashedPassword: "x", Role: models.RoleRegular, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.User{Email: "dup@example.com", HashedPassword: "y", Role: models.RoleRegular, CreatedAt: time.Now()}
	assert.ErrorIs(t, repo.Create(ctx, second), ErrDuplicate)
}

func TestAdminOverview(t *testing.T) {
	conn := setupTestDB(t)
	readings := NewReadingRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	alice := createUser(t, conn, "alice@example.com")
	bob := createUser(t, conn, "bob@example.com")
	createUser(t, conn, "carol@example.com")

	for _, r := range []*models.Reading{
		newReading(alice.ID, 90, models.ReadingFasting, now.Add(-time.Hour)),
		newReading(alice.ID, 95, models.ReadingFasting, now.Add(-2*time.Hour)),
		newReading(bob.ID, 120, models.ReadingRandom, now.Add(-10*24*time.Hour)),
	} {
		require.NoError(t, readings.Create(ctx, r))
	}

	out, err := NewAdminRepository(conn).Overview(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Overview{
		TotalUsers:          3,
		TotalReadings:       3,
		ActiveUsersThisWeek: 1,
		ReadingsThisWeek:    2,
	}, out)
}
