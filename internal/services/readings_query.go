package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"glucolog/internal/models"
	"glucolog/internal/repository"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type ListReadingsRequest struct {
	Start       *time.Time
	End         *time.Time
	ReadingType *string

	StepCount       repository.Bound[int]
	SleepHours      repository.Bound[float64]
	CalorieCount    repository.Bound[int]
	ProteinIntakeG  repository.Bound[float64]
	CarbIntakeG     repository.Bound[float64]
	ExerciseMinutes repository.Bound[int]

	Page int
	Size int
}

type ListReadingsResponse struct {
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
	Readings []models.Reading `json:"readings"`
}

type ReadingSummary struct {
	Start   *time.Time                                 `json:"start,omitempty"`
	End     *time.Time                                 `json:"end,omitempty"`
	Overall models.ReadingStats                        `json:"overall"`
	ByType  map[models.ReadingType]models.ReadingStats `json:"by_type"`
}

type ReadingQueryStore interface {
	repository.ReadingRepository
	repository.ReadingSummarizer
}

// ReadingQueryService answers filtered, paginated and aggregated reads over one owner's readings.
type ReadingQueryService struct {
	store  ReadingQueryStore
	logger *zap.Logger
}

func NewReadingQueryService(store ReadingQueryStore, logger *zap.Logger) *ReadingQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadingQueryService{store: store, logger: logger}
}

func checkBound[T int | float64](name string, b repository.Bound[T], limit *T) error {
	for _, end := range []struct {
		prefix string
		v      *T
	}{{"min_", b.Min}, {"max_", b.Max}} {
		if end.v == nil {
			continue
		}
		if *end.v < 0 {
			return invalid(end.prefix+name, "must be greater than or equal to 0")
		}
		if limit != nil && *end.v > *limit {
			return invalid(end.prefix+name, "must be less than or equal to %v", *limit)
		}
	}
	return nil
}

func checkOrdered[T int | float64](name string, b repository.Bound[T]) error {
	if b.Inverted() {
		return invalid("min_"+name, "must be less than or equal to max_%s", name)
	}
	return nil
}

// validate runs every check that does not need the store. Range pairs are checked in a
// fixed order so the first inverted pair is the one reported.
func (req ListReadingsRequest) validate() (repository.ReadingFilter, error) {
	f := repository.ReadingFilter{
		Start:           req.Start,
		End:             req.End,
		StepCount:       req.StepCount,
		SleepHours:      req.SleepHours,
		CalorieCount:    req.CalorieCount,
		ProteinIntakeG:  req.ProteinIntakeG,
		CarbIntakeG:     req.CarbIntakeG,
		ExerciseMinutes: req.ExerciseMinutes,
	}

	if req.Page < 1 {
		return f, invalid("page", "must be greater than or equal to 1")
	}
	if req.Size < 1 || req.Size > MaxPageSize {
		return f, invalid("size", "must be between 1 and %d", MaxPageSize)
	}

	if req.ReadingType != nil {
		t, err := models.ParseReadingType(*req.ReadingType)
		if err != nil {
			return f, invalid("reading_type", "must be one of fasting, random, pp")
		}
		f.ReadingType = &t
	}

	maxSleep := 24.0
	checks := []error{
		checkOrdered("step_count", req.StepCount),
		checkOrdered("sleep_hours", req.SleepHours),
		checkOrdered("calorie_count", req.CalorieCount),
		checkOrdered("protein_intake_g", req.ProteinIntakeG),
		checkOrdered("carb_intake_g", req.CarbIntakeG),
		checkOrdered("exercise_minutes", req.ExerciseMinutes),
		checkBound("step_count", req.StepCount, nil),
		checkBound("sleep_hours", req.SleepHours, &maxSleep),
		checkBound("calorie_count", req.CalorieCount, nil),
		checkBound("protein_intake_g", req.ProteinIntakeG, nil),
		checkBound("carb_intake_g", req.CarbIntakeG, nil),
		checkBound("exercise_minutes", req.ExerciseMinutes, nil),
	}
	for _, err := range checks {
		if err != nil {
			return f, err
		}
	}
	return f, nil
}

// List returns one page of the caller's readings, newest first, and the total match count.
func (s *ReadingQueryService) List(ctx context.Context, userID int, req ListReadingsRequest) (*ListReadingsResponse, error) {
	filter, err := req.validate()
	if err != nil {
		return nil, err
	}
	readings, total, err := s.store.ListFiltered(ctx, userID, filter, req.Page, req.Size)
	if err != nil {
		s.logger.Error("list readings failed", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	if readings == nil {
		readings = []models.Reading{}
	}
	return &ListReadingsResponse{Total: total, Page: req.Page, Size: req.Size, Readings: readings}, nil
}

// Summary aggregates the caller's readings overall and per reading type.
func (s *ReadingQueryService) Summary(ctx context.Context, userID int, start, end *time.Time) (*ReadingSummary, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, invalid("start", "must be before or equal to end")
	}
	byType, err := s.store.Summary(ctx, userID, start, end)
	if err != nil {
		s.logger.Error("summarize readings failed", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}

	out := &ReadingSummary{Start: start, End: end, ByType: make(map[models.ReadingType]models.ReadingStats, len(models.ReadingTypes))}
	var weighted float64
	for _, t := range models.ReadingTypes {
		st := byType[t]
		out.ByType[t] = st
		if st.Count == 0 {
			continue
		}
		out.Overall = mergeStats(out.Overall, st)
		if st.Average != nil {
			weighted += *st.Average * float64(st.Count)
		}
	}
	if out.Overall.Count > 0 {
		avg := weighted / float64(out.Overall.Count)
		out.Overall.Average = &avg
	}
	return out, nil
}

// mergeStats folds b into a. Average is left to the caller.
func mergeStats(a, b models.ReadingStats) models.ReadingStats {
	a.Count += b.Count
	if b.Min != nil && (a.Min == nil || *b.Min < *a.Min) {
		a.Min = b.Min
	}
	if b.Max != nil && (a.Max == nil || *b.Max > *a.Max) {
		a.Max = b.Max
	}
	if b.Latest != nil && (a.Latest == nil || b.Latest.After(*a.Latest)) {
		a.Latest = b.Latest
	}
	return a
}
