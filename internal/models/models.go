package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleSupport Role = "support"
	RoleRegular Role = "regular"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupport, RoleRegular:
		return true
	}
	return false
}

type User struct {
	ID             int       `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	FullName       *string   `db:"full_name" json:"full_name,omitempty"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	Role           Role      `db:"role" json:"role"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ReadingType is the closed set of glucose reading kinds.
type ReadingType string

const (
	ReadingFasting ReadingType = "fasting"
	ReadingRandom  ReadingType = "random"
	ReadingPP      ReadingType = "pp"
)

// ReadingTypes lists every valid ReadingType in display order.
var ReadingTypes = []ReadingType{ReadingFasting, ReadingRandom, ReadingPP}

func (t ReadingType) Valid() bool {
	switch t {
	case ReadingFasting, ReadingRandom, ReadingPP:
		return true
	}
	return false
}

func ParseReadingType(s string) (ReadingType, error) {
	t := ReadingType(s)
	if !t.Valid() {
		return "", fmt.Errorf("reading_type must be one of fasting, random, pp")
	}
	return t, nil
}

type Reading struct {
	ID          int         `db:"id" json:"id"`
	UserID      int         `db:"user_id" json:"-"`
	ValueNgMl   int         `db:"value_ng_ml" json:"value_ng_ml"`
	ReadingType ReadingType `db:"reading_type" json:"reading_type"`
	Notes       *string     `db:"notes" json:"notes"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`

	// Optional lifestyle metrics, NULL when not recorded.
	StepCount       *int     `db:"step_count" json:"step_count,omitempty"`
	SleepHours      *float64 `db:"sleep_hours" json:"sleep_hours,omitempty"`
	CalorieCount    *int     `db:"calorie_count" json:"calorie_count,omitempty"`
	ProteinIntakeG  *float64 `db:"protein_intake_g" json:"protein_intake_g,omitempty"`
	CarbIntakeG     *float64 `db:"carb_intake_g" json:"carb_intake_g,omitempty"`
	ExerciseMinutes *int     `db:"exercise_minutes" json:"exercise_minutes,omitempty"`
}

// ReadingPatch carries a partial update. Nil fields leave the stored value untouched.
type ReadingPatch struct {
	ValueNgMl       *int
	ReadingType     *ReadingType
	Notes           *string
	CreatedAt       *time.Time
	StepCount       *int
	SleepHours      *float64
	CalorieCount    *int
	ProteinIntakeG  *float64
	CarbIntakeG     *float64
	ExerciseMinutes *int
}

func (p ReadingPatch) Empty() bool {
	return p.ValueNgMl == nil && p.ReadingType == nil && p.Notes == nil && p.CreatedAt == nil &&
		p.StepCount == nil && p.SleepHours == nil && p.CalorieCount == nil &&
		p.ProteinIntakeG == nil && p.CarbIntakeG == nil && p.ExerciseMinutes == nil
}

// Apply copies every non-nil patch field onto r.
func (p ReadingPatch) Apply(r *Reading) {
	if p.ValueNgMl != nil {
		r.ValueNgMl = *p.ValueNgMl
	}
	if p.ReadingType != nil {
		r.ReadingType = *p.ReadingType
	}
	if p.Notes != nil {
		r.Notes = p.Notes
	}
	if p.CreatedAt != nil {
		r.CreatedAt = p.CreatedAt.UTC()
	}
	if p.StepCount != nil {
		r.StepCount = p.StepCount
	}
	if p.SleepHours != nil {
		r.SleepHours = p.SleepHours
	}
	if p.CalorieCount != nil {
		r.CalorieCount = p.CalorieCount
	}
	if p.ProteinIntakeG != nil {
		r.ProteinIntakeG = p.ProteinIntakeG
	}
	if p.CarbIntakeG != nil {
		r.CarbIntakeG = p.CarbIntakeG
	}
	if p.ExerciseMinutes != nil {
		r.ExerciseMinutes = p.ExerciseMinutes
	}
}

// ReadingStats aggregates value_ng_ml over a set of readings.
type ReadingStats struct {
	Count   int        `json:"count"`
	Average *float64   `json:"average_value_ng_ml"`
	Min     *int       `json:"min_value_ng_ml"`
	Max     *int       `json:"max_value_ng_ml"`
	Latest  *time.Time `json:"latest_at"`
}
