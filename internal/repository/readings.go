package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"glucolog/internal/models"
)

// Bound is an optional inclusive [Min, Max] range on one metric column.
type Bound[T int | float64] struct {
	Min *T
	Max *T
}

// Inverted reports whether both ends are set and Min exceeds Max.
func (b Bound[T]) Inverted() bool {
	return b.Min != nil && b.Max != nil && *b.Min > *b.Max
}

// ReadingFilter holds the conjunctive filters of a readings listing. Nil fields do not filter.
type ReadingFilter struct {
	Start       *time.Time
	End         *time.Time
	ReadingType *models.ReadingType

	StepCount       Bound[int]
	SleepHours      Bound[float64]
	CalorieCount    Bound[int]
	ProteinIntakeG  Bound[float64]
	CarbIntakeG     Bound[float64]
	ExerciseMinutes Bound[int]
}

type columnBound struct {
	column   string
	min, max any
}

func boundOf[T int | float64](column string, b Bound[T]) columnBound {
	return columnBound{column: column, min: nullable(b.Min), max: nullable(b.Max)}
}

func (f ReadingFilter) metricBounds() []columnBound {
	return []columnBound{
		boundOf("step_count", f.StepCount),
		boundOf("sleep_hours", f.SleepHours),
		boundOf("calorie_count", f.CalorieCount),
		boundOf("protein_intake_g", f.ProteinIntakeG),
		boundOf("carb_intake_g", f.CarbIntakeG),
		boundOf("exercise_minutes", f.ExerciseMinutes),
	}
}

// where renders the owner-scoped WHERE clause. A NULL metric never satisfies a bound
// because SQL comparisons against NULL are not true.
func (f ReadingFilter) where(userID int) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if f.Start != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.End.UTC())
	}
	if f.ReadingType != nil {
		clauses = append(clauses, "reading_type = ?")
		args = append(args, string(*f.ReadingType))
	}
	for _, b := range f.metricBounds() {
		if b.min != nil {
			clauses = append(clauses, b.column+" >= ?")
			args = append(args, b.min)
		}
		if b.max != nil {
			clauses = append(clauses, b.column+" <= ?")
			args = append(args, b.max)
		}
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// ReadingRepository hides the store behind the operations the reading services need.
type ReadingRepository interface {
	Create(ctx context.Context, r *models.Reading) error
	FindByID(ctx context.Context, userID, id int) (*models.Reading, error)
	ListFiltered(ctx context.Context, userID int, f ReadingFilter, page, size int) ([]models.Reading, int, error)
	Update(ctx context.Context, userID, id int, patch models.ReadingPatch) (*models.Reading, error)
	Delete(ctx context.Context, userID, id int) error
}

// ReadingImporter inserts many readings at once.
type ReadingImporter interface {
	CreateBatch(ctx context.Context, userID int, readings []models.Reading) (int, error)
}

// ReadingSummarizer aggregates an owner's readings.
type ReadingSummarizer interface {
	Summary(ctx context.Context, userID int, start, end *time.Time) (map[models.ReadingType]models.ReadingStats, error)
}

type SQLReadingRepository struct {
	db *sqlx.DB
}

func NewReadingRepository(db *sqlx.DB) *SQLReadingRepository {
	return &SQLReadingRepository{db: db}
}

const readingColumns = `id, user_id, value_ng_ml, reading_type, notes, created_at,
	step_count, sleep_hours, calorie_count, protein_intake_g, carb_intake_g, exercise_minutes`

type readingRow struct {
	ID              int      `db:"id"`
	UserID          int      `db:"user_id"`
	ValueNgMl       int      `db:"value_ng_ml"`
	ReadingType     string   `db:"reading_type"`
	Notes           *string  `db:"notes"`
	CreatedAt       dbTime   `db:"created_at"`
	StepCount       *int     `db:"step_count"`
	SleepHours      *float64 `db:"sleep_hours"`
	CalorieCount    *int     `db:"calorie_count"`
	ProteinIntakeG  *float64 `db:"protein_intake_g"`
	CarbIntakeG     *float64 `db:"carb_intake_g"`
	ExerciseMinutes *int     `db:"exercise_minutes"`
}

func (r readingRow) model() models.Reading {
	return models.Reading{
		ID:              r.ID,
		UserID:          r.UserID,
		ValueNgMl:       r.ValueNgMl,
		ReadingType:     models.ReadingType(r.ReadingType),
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt.Time,
		StepCount:       r.StepCount,
		SleepHours:      r.SleepHours,
		CalorieCount:    r.CalorieCount,
		ProteinIntakeG:  r.ProteinIntakeG,
		CarbIntakeG:     r.CarbIntakeG,
		ExerciseMinutes: r.ExerciseMinutes,
	}
}

const insertReading = `INSERT INTO readings (user_id, value_ng_ml, reading_type, notes, created_at,
	step_count, sleep_hours, calorie_count, protein_intake_g, carb_intake_g, exercise_minutes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

func insertArgs(r *models.Reading) []any {
	return []any{
		r.UserID, r.ValueNgMl, string(r.ReadingType), nullable(r.Notes), r.CreatedAt.UTC(),
		nullable(r.StepCount), nullable(r.SleepHours), nullable(r.CalorieCount),
		nullable(r.ProteinIntakeG), nullable(r.CarbIntakeG), nullable(r.ExerciseMinutes),
	}
}

// Create inserts r and assigns its ID.
func (s *SQLReadingRepository) Create(ctx context.Context, r *models.Reading) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(ctx, tx.Rebind(insertReading), insertArgs(r)...).Scan(&r.ID); err != nil {
			return fmt.Errorf("insert reading: %w", err)
		}
		return nil
	})
}

// CreateBatch inserts every reading for userID in one transaction.
func (s *SQLReadingRepository) CreateBatch(ctx context.Context, userID int, readings []models.Reading) (int, error) {
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(insertReading))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range readings {
			readings[i].UserID = userID
			if err := stmt.QueryRowxContext(ctx, insertArgs(&readings[i])...).Scan(&readings[i].ID); err != nil {
				return fmt.Errorf("insert reading %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(readings), nil
}

func findOwned(ctx context.Context, q sqlx.ExtContext, userID, id int) (*models.Reading, error) {
	var row readingRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT `+readingColumns+` FROM readings WHERE id = ? AND user_id = ?`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select reading %d: %w", id, err)
	}
	m := row.model()
	return &m, nil
}

// FindByID returns the reading only when it belongs to userID.
func (s *SQLReadingRepository) FindByID(ctx context.Context, userID, id int) (*models.Reading, error) {
	var out *models.Reading
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		out, err = findOwned(ctx, tx, userID, id)
		return err
	})
	return out, err
}

// ListFiltered returns one page of userID's readings, newest first, and the total match count.
func (s *SQLReadingRepository) ListFiltered(ctx context.Context, userID int, f ReadingFilter, page, size int) ([]models.Reading, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	where, args := f.where(userID)

	var (
		total int
		rows  []readingRow
	)
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &total, tx.Rebind(`SELECT COUNT(*) FROM readings `+where), args...); err != nil {
			return fmt.Errorf("count readings: %w", err)
		}
		q := `SELECT ` + readingColumns + ` FROM readings ` + where + ` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`
		pageArgs := append(append([]any{}, args...), size, (page-1)*size)
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(q), pageArgs...); err != nil {
			return fmt.Errorf("list readings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]models.Reading, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, total, nil
}

// Update applies the non-nil fields of patch to userID's reading and returns the stored result.
func (s *SQLReadingRepository) Update(ctx context.Context, userID, id int, patch models.ReadingPatch) (*models.Reading, error) {
	var out *models.Reading
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := findOwned(ctx, tx, userID, id); err != nil {
			return err
		}

		sets := []string{}
		args := []any{}
		set := func(column string, v any) {
			sets = append(sets, column+" = ?")
			args = append(args, v)
		}
		if patch.ValueNgMl != nil {
			set("value_ng_ml", *patch.ValueNgMl)
		}
		if patch.ReadingType != nil {
			set("reading_type", string(*patch.ReadingType))
		}
		if patch.Notes != nil {
			set("notes", *patch.Notes)
		}
		if patch.CreatedAt != nil {
			set("created_at", patch.CreatedAt.UTC())
		}
		if patch.StepCount != nil {
			set("step_count", *patch.StepCount)
		}
		if patch.SleepHours != nil {
			set("sleep_hours", *patch.SleepHours)
		}
		if patch.CalorieCount != nil {
			set("calorie_count", *patch.CalorieCount)
		}
		if patch.ProteinIntakeG != nil {
			set("protein_intake_g", *patch.ProteinIntakeG)
		}
		if patch.CarbIntakeG != nil {
			set("carb_intake_g", *patch.CarbIntakeG)
		}
		if patch.ExerciseMinutes != nil {
			set("exercise_minutes", *patch.ExerciseMinutes)
		}

		if len(sets) > 0 {
			q := "UPDATE readings SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
			args = append(args, id, userID)
			if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
				return fmt.Errorf("update reading %d: %w", id, err)
			}
		}

		var err error
		out, err = findOwned(ctx, tx, userID, id)
		return err
	})
	return out, err
}

// Delete permanently removes userID's reading.
func (s *SQLReadingRepository) Delete(ctx context.Context, userID, id int) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM readings WHERE id = ? AND user_id = ?`), id, userID)
		if err != nil {
			return fmt.Errorf("delete reading %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete reading %d: %w", id, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type statsRow struct {
	ReadingType string   `db:"reading_type"`
	Count       int      `db:"reading_count"`
	Average     *float64 `db:"avg_value"`
	Min         *int     `db:"min_value"`
	Max         *int     `db:"max_value"`
	Latest      dbTime   `db:"latest_at"`
}

// Summary aggregates value_ng_ml per reading type within the optional created_at window.
func (s *SQLReadingRepository) Summary(ctx context.Context, userID int, start, end *time.Time) (map[models.ReadingType]models.ReadingStats, error) {
	where, args := ReadingFilter{Start: start, End: end}.where(userID)
	q := `SELECT reading_type,
		COUNT(*) AS reading_count,
		CAST(AVG(value_ng_ml) AS DOUBLE PRECISION) AS avg_value,
		MIN(value_ng_ml) AS min_value,
		MAX(value_ng_ml) AS max_value,
		MAX(created_at) AS latest_at
	FROM readings ` + where + ` GROUP BY reading_type`

	var rows []statsRow
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &rows, tx.Rebind(q), args...)
	})
	if err != nil {
		return nil, fmt.Errorf("summarize readings: %w", err)
	}

	out := make(map[models.ReadingType]models.ReadingStats, len(rows))
	for _, r := range rows {
		out[models.ReadingType(r.ReadingType)] = models.ReadingStats{
			Count:   r.Count,
			Average: r.Average,
			Min:     r.Min,
			Max:     r.Max,
			Latest:  r.Latest.ptr(),
		}
	}
	return out, nil
}
