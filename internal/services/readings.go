package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"glucolog/internal/models"
	"glucolog/internal/repository"
)

// ReadingInput carries client-supplied reading fields. Nil means not supplied.
type ReadingInput struct {
	ValueNgMl       *int
	ReadingType     *string
	Notes           *string
	CreatedAt       *time.Time
	StepCount       *int
	SleepHours      *float64
	CalorieCount    *int
	ProteinIntakeG  *float64
	CarbIntakeG     *float64
	ExerciseMinutes *int
}

func field(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func checkNonNegative[T int | float64](prefix, name string, v *T) error {
	if v != nil && *v < 0 {
		return invalid(field(prefix, name), "must be greater than or equal to 0")
	}
	return nil
}

func checkSleepHours(prefix, name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 24) {
		return invalid(field(prefix, name), "must be between 0 and 24")
	}
	return nil
}

// validate checks ranges and the reading type enumeration. With required set, value_ng_ml
// and reading_type must be present.
func (in ReadingInput) validate(prefix string, required bool) error {
	if required && in.ValueNgMl == nil {
		return invalid(field(prefix, "value_ng_ml"), "field required")
	}
	if err := checkNonNegative(prefix, "value_ng_ml", in.ValueNgMl); err != nil {
		return err
	}
	if required && in.ReadingType == nil {
		return invalid(field(prefix, "reading_type"), "field required")
	}
	if in.ReadingType != nil {
		if _, err := models.ParseReadingType(*in.ReadingType); err != nil {
			return invalid(field(prefix, "reading_type"), "must be one of fasting, random, pp")
		}
	}
	checks := []error{
		checkNonNegative(prefix, "step_count", in.StepCount),
		checkSleepHours(prefix, "sleep_hours", in.SleepHours),
		checkNonNegative(prefix, "calorie_count", in.CalorieCount),
		checkNonNegative(prefix, "protein_intake_g", in.ProteinIntakeG),
		checkNonNegative(prefix, "carb_intake_g", in.CarbIntakeG),
		checkNonNegative(prefix, "exercise_minutes", in.ExerciseMinutes),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

func (in ReadingInput) reading(userID int, now time.Time) models.Reading {
	r := models.Reading{
		UserID:          userID,
		ValueNgMl:       *in.ValueNgMl,
		ReadingType:     models.ReadingType(*in.ReadingType),
		Notes:           in.Notes,
		CreatedAt:       storedTime(now),
		StepCount:       in.StepCount,
		SleepHours:      in.SleepHours,
		CalorieCount:    in.CalorieCount,
		ProteinIntakeG:  in.ProteinIntakeG,
		CarbIntakeG:     in.CarbIntakeG,
		ExerciseMinutes: in.ExerciseMinutes,
	}
	if in.CreatedAt != nil {
		r.CreatedAt = storedTime(*in.CreatedAt)
	}
	return r
}

// storedTime matches the microsecond precision of a postgres timestamptz, so
// a created record equals what a later read returns.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (in ReadingInput) patch() models.ReadingPatch {
	p := models.ReadingPatch{
		ValueNgMl:       in.ValueNgMl,
		Notes:           in.Notes,
		StepCount:       in.StepCount,
		SleepHours:      in.SleepHours,
		CalorieCount:    in.CalorieCount,
		ProteinIntakeG:  in.ProteinIntakeG,
		CarbIntakeG:     in.CarbIntakeG,
		ExerciseMinutes: in.ExerciseMinutes,
	}
	if in.ReadingType != nil {
		t := models.ReadingType(*in.ReadingType)
		p.ReadingType = &t
	}
	if in.CreatedAt != nil {
		t := storedTime(*in.CreatedAt)
		p.CreatedAt = &t
	}
	return p
}

// ReadingCommandService creates, reads, updates and deletes single readings for their owner.
type ReadingCommandService struct {
	repo     repository.ReadingRepository
	importer repository.ReadingImporter
	logger   *zap.Logger
	now      func() time.Time
}

func NewReadingCommandService(repo repository.ReadingRepository, importer repository.ReadingImporter, logger *zap.Logger) *ReadingCommandService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadingCommandService{repo: repo, importer: importer, logger: logger, now: time.Now}
}

// storeError maps repository errors onto the service taxonomy, logging anything unexpected.
func (s *ReadingCommandService) storeError(err error, msg string, fields ...zap.Field) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return err
}

// Create stores a new reading owned by userID. created_at defaults to now.
func (s *ReadingCommandService) Create(ctx context.Context, userID int, in ReadingInput) (*models.Reading, error) {
	if err := in.validate("", true); err != nil {
		return nil, err
	}
	r := in.reading(userID, s.now())
	if err := s.repo.Create(ctx, &r); err != nil {
		return nil, s.storeError(err, "create reading failed", zap.Int("user_id", userID))
	}
	return &r, nil
}

func (s *ReadingCommandService) Get(ctx context.Context, userID, id int) (*models.Reading, error) {
	r, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, s.storeError(err, "get reading failed", zap.Int("user_id", userID), zap.Int("reading_id", id))
	}
	return r, nil
}

// Update overwrites only the supplied fields of the caller's reading.
func (s *ReadingCommandService) Update(ctx context.Context, userID, id int, in ReadingInput) (*models.Reading, error) {
	if err := in.validate("", false); err != nil {
		return nil, err
	}
	r, err := s.repo.Update(ctx, userID, id, in.patch())
	if err != nil {
		return nil, s.storeError(err, "update reading failed", zap.Int("user_id", userID), zap.Int("reading_id", id))
	}
	return r, nil
}

func (s *ReadingCommandService) Delete(ctx context.Context, userID, id int) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return s.storeError(err, "delete reading failed", zap.Int("user_id", userID), zap.Int("reading_id", id))
	}
	return nil
}

// MaxImportReadings bounds a single import request.
const MaxImportReadings = 1000

// Import validates every entry and then stores them all in one transaction.
func (s *ReadingCommandService) Import(ctx context.Context, userID int, inputs []ReadingInput) (int, error) {
	if len(inputs) == 0 {
		return 0, invalid("readings", "must contain at least one reading")
	}
	if len(inputs) > MaxImportReadings {
		return 0, invalid("readings", "must contain at most %d readings", MaxImportReadings)
	}
	now := s.now()
	batch := make([]models.Reading, 0, len(inputs))
	for i, in := range inputs {
		if err := in.validate(indexed("readings", i), true); err != nil {
			return 0, err
		}
		batch = append(batch, in.reading(userID, now))
	}
	n, err := s.importer.CreateBatch(ctx, userID, batch)
	if err != nil {
		return 0, s.storeError(err, "import readings failed", zap.Int("user_id", userID), zap.Int("count", len(batch)))
	}
	s.logger.Info("readings imported", zap.Int("user_id", userID), zap.Int("count", n))
	return n, nil
}
