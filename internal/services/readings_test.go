package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"glucolog/internal/db"
	"glucolog/internal/models"
	"glucolog/internal/repository"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	conn, dialect, err := db.Open(ctx, filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(ctx, conn, dialect, zap.NewNop()))
	return conn
}

func ptr[T any](v T) *T { return &v }

type readingFixture struct {
	conn    *sqlx.DB
	command *ReadingCommandService
	query   *ReadingQueryService
	alice   int
	bob     int
}

func newReadingFixture(t *testing.T) *readingFixture {
	t.Helper()
	conn := setupTestDB(t)
	repo := repository.NewReadingRepository(conn)
	users := repository.NewUserRepository(conn)
	ids := []int{}
	for _, email := range []string{"alice@example.com", "bob@example.com"} {
		u := &models.User{Email: email, HashedPassword: "x", Role: models.RoleRegular, CreatedAt: time.Now()}
		require.NoError(t, users.Create(context.Background(), u))
		ids = append(ids, u.ID)
	}
	return &readingFixture{
		conn:    conn,
		command: NewReadingCommandService(repo, repo, zap.NewNop()),
		query:   NewReadingQueryService(repo, zap.NewNop()),
		alice:   ids[0],
		bob:     ids[1],
	}
}

// untouchableStore fails the test on any store access.
type untouchableStore struct {
	t *testing.T
}

func (s untouchableStore) fail() { s.t.Fatalf("store must not be accessed") }

func (s untouchableStore) Create(context.Context, *models.Reading) error { s.fail(); return nil }
func (s untouchableStore) FindByID(context.Context, int, int) (*models.Reading, error) {
	s.fail()
	return nil, nil
}
func (s untouchableStore) ListFiltered(context.Context, int, repository.ReadingFilter, int, int) ([]models.Reading, int, error) {
	s.fail()
	return nil, 0, nil
}
func (s untouchableStore) Update(context.Context, int, int, models.ReadingPatch) (*models.Reading, error) {
	s.fail()
	return nil, nil
}
func (s untouchableStore) Delete(context.Context, int, int) error { s.fail(); return nil }
func (s untouchableStore) CreateBatch(context.Context, int, []models.Reading) (int, error) {
	s.fail()
	return 0, nil
}
func (s untouchableStore) Summary(context.Context, int, *time.Time, *time.Time) (map[models.ReadingType]models.ReadingStats, error) {
	s.fail()
	return nil, nil
}

func TestCreateDefaultsAndOwnership(t *testing.T) {
	fx := newReadingFixture(t)
	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)

	r, err := fx.command.Create(ctx, fx.alice, ReadingInput{ValueNgMl: ptr(95), ReadingType: ptr("fasting")})
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, fx.alice, r.UserID)
	assert.True(t, r.CreatedAt.After(before))
	assert.Equal(t, time.UTC, r.CreatedAt.Location())
	assert.Nil(t, r.StepCount)
	assert.Nil(t, r.SleepHours)
	assert.Nil(t, r.Notes)

	got, err := fx.command.Get(ctx, fx.alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ValueNgMl, got.ValueNgMl)
	assert.Equal(t, r.ReadingType, got.ReadingType)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

	list, err := fx.query.List(ctx, fx.alice, ListReadingsRequest{StepCount: repository.Bound[int]{Min: ptr(1)}, Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, list.Total)
	assert.Empty(t, list.Readings)
}

func TestCreateKeepsSuppliedTimestampInUTC(t *testing.T) {
	fx := newReadingFixture(t)
	local := time.Date(2025, 1, 2, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

	r, err := fx.command.Create(context.Background(), fx.alice, ReadingInput{
		ValueNgMl:   ptr(110),
		ReadingType: ptr("pp"),
		CreatedAt:   &local,
		Notes:       ptr("after lunch"),
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 2, 4, 0, 0, 0, time.UTC), r.CreatedAt)
}

func TestCreateValidation(t *testing.T) {
	svc := NewReadingCommandService(untouchableStore{t}, untouchableStore{t}, nil)

	cases := []struct {
		name  string
		in    ReadingInput
		field string
	}{
		{"missing value", ReadingInput{ReadingType: ptr("fasting")}, "value_ng_ml"},
		{"negative value", ReadingInput{ValueNgMl: ptr(-1), ReadingType: ptr("fasting")}, "value_ng_ml"},
		{"missing type", ReadingInput{ValueNgMl: ptr(90)}, "reading_type"},
		{"unknown type", ReadingInput{ValueNgMl: ptr(90), ReadingType: ptr("bedtime")}, "reading_type"},
		{"negative steps", ReadingInput{ValueNgMl: ptr(90), ReadingType: ptr("pp"), StepCount: ptr(-5)}, "step_count"},
		{"too much sleep", ReadingInput{ValueNgMl: ptr(90), ReadingType: ptr("pp"), SleepHours: ptr(24.5)}, "sleep_hours"},
		{"negative carbs", ReadingInput{ValueNgMl: ptr(90), ReadingType: ptr("pp"), CarbIntakeG: ptr(-0.1)}, "carb_intake_g"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, tc.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCrossOwnerAccessLooksLikeMissing(t *testing.T) {
	fx := newReadingFixture(t)
	ctx := context.Background()

	r, err := fx.command.Create(ctx, fx.alice, ReadingInput{ValueNgMl: ptr(100), ReadingType: ptr("random")})
	require.NoError(t, err)

	_, errForeign := fx.command.Get(ctx, fx.bob, r.ID)
	_, errMissing := fx.command.Get(ctx, fx.bob, r.ID+1000)
	assert.ErrorIs(t, errForeign, ErrNotFound)
	assert.Equal(t, errMissing, errForeign)

	_, err = fx.command.Update(ctx, fx.bob, r.ID, ReadingInput{ValueNgMl: ptr(1)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fx.command.Delete(ctx, fx.bob, r.ID), ErrNotFound)

	still, err := fx.command.Get(ctx, fx.alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, still.ValueNgMl)
}

func TestUpdatePartialAndDelete(t *testing.T) {
	fx := newReadingFixture(t)
	ctx := context.Background()

	r, err := fx.command.Create(ctx, fx.alice, ReadingInput{
		ValueNgMl:   ptr(130),
		ReadingType: ptr("random"),
		Notes:       ptr("snack"),
		StepCount:   ptr(2500),
	})
	require.NoError(t, err)

	updated, err := fx.command.Update(ctx, fx.alice, r.ID, ReadingInput{ReadingType: ptr("pp"), ExerciseMinutes: ptr(30)})
	require.NoError(t, err)
	assert.Equal(t, 130, updated.ValueNgMl)
	assert.Equal(t, models.ReadingPP, updated.ReadingType)
	assert.Equal(t, "snack", *updated.Notes)
	assert.Equal(t, 2500, *updated.StepCount)
	assert.Equal(t, 30, *updated.ExerciseMinutes)

	_, err = fx.command.Update(ctx, fx.alice, r.ID, ReadingInput{ReadingType: ptr("dinner")})
	assert.True(t, IsValidation(err))

	require.NoError(t, fx.command.Delete(ctx, fx.alice, r.ID))
	_, err = fx.command.Get(ctx, fx.alice, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImport(t *testing.T) {
	fx := newReadingFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 2, 1, 7, 0, 0, 0, time.UTC)

	n, err := fx.command.Import(ctx, fx.alice, []ReadingInput{
		{ValueNgMl: ptr(90), ReadingType: ptr("fasting"), CreatedAt: &at},
		{ValueNgMl: ptr(150), ReadingType: ptr("pp")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := fx.query.List(ctx, fx.alice, ListReadingsRequest{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 90, list.Readings[1].ValueNgMl)
}

func TestImportRejectsBeforeWriting(t *testing.T) {
	svc := NewReadingCommandService(untouchableStore{t}, untouchableStore{t}, nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, 1, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "readings", verr.Field)

	_, err = svc.Import(ctx, 1, []ReadingInput{
		{ValueNgMl: ptr(90), ReadingType: ptr("fasting")},
		{ValueNgMl: ptr(90), ReadingType: ptr("lunch")},
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "readings[1].reading_type", verr.Field)
}

type failingStore struct {
	untouchableStore
}

func (failingStore) Create(context.Context, *models.Reading) error {
	return errors.New("disk full")
}

func TestCreateSurfacesStoreFailure(t *testing.T) {
	store := failingStore{untouchableStore{t}}
	svc := NewReadingCommandService(store, store, nil)

	_, err := svc.Create(context.Background(), 1, ReadingInput{ValueNgMl: ptr(90), ReadingType: ptr("fasting")})
	require.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCreateStoresMicrosecondTimestamps(t *testing.T) {
	fx := newReadingFixture(t)
	ctx := context.Background()
	fx.command.now = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 5, 123456789, time.UTC) }

	r, err := fx.command.Create(ctx, fx.alice, ReadingInput{ValueNgMl: ptr(90), ReadingType: ptr("random")})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 0, 5, 123456000, time.UTC), r.CreatedAt)

	got, err := fx.command.Get(ctx, fx.alice, r.ID)
	require.NoError(t, err)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

	supplied := time.Date(2025, 3, 1, 7, 0, 0, 999, time.UTC)
	r, err = fx.command.Create(ctx, fx.alice, ReadingInput{ValueNgMl: ptr(90), ReadingType: ptr("random"), CreatedAt: &supplied})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC), r.CreatedAt)

	later := time.Date(2025, 3, 2, 7, 0, 0, 1500, time.UTC)
	updated, err := fx.command.Update(ctx, fx.alice, r.ID, ReadingInput{CreatedAt: &later})
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 2, 7, 0, 0, 1000, time.UTC).Equal(updated.CreatedAt))
}
