package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"glucolog/internal/models"
	"glucolog/internal/services"
)

// Layouts accepted for client timestamps. Values without an offset are taken as UTC,
// which matches what the web client sends from a datetime-local input.
var clientTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseClientTime(s string) (time.Time, error) {
	for _, layout := range clientTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// flexTime decodes an ISO-8601 timestamp with or without a zone offset.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("created_at must be a string")
	}
	parsed, err := parseClientTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// readingRequest is the body of create, update and each import entry.
type readingRequest struct {
	ValueNgMl       *int      `json:"value_ng_ml"`
	ReadingType     *string   `json:"reading_type"`
	CreatedAt       *flexTime `json:"created_at"`
	Notes           *string   `json:"notes"`
	StepCount       *int      `json:"step_count"`
	SleepHours      *float64  `json:"sleep_hours"`
	CalorieCount    *int      `json:"calorie_count"`
	ProteinIntakeG  *float64  `json:"protein_intake_g"`
	CarbIntakeG     *float64  `json:"carb_intake_g"`
	ExerciseMinutes *int      `json:"exercise_minutes"`
}

func (r readingRequest) input() services.ReadingInput {
	in := services.ReadingInput{
		ValueNgMl:       r.ValueNgMl,
		ReadingType:     r.ReadingType,
		Notes:           r.Notes,
		StepCount:       r.StepCount,
		SleepHours:      r.SleepHours,
		CalorieCount:    r.CalorieCount,
		ProteinIntakeG:  r.ProteinIntakeG,
		CarbIntakeG:     r.CarbIntakeG,
		ExerciseMinutes: r.ExerciseMinutes,
	}
	if r.CreatedAt != nil && !r.CreatedAt.IsZero() {
		t := r.CreatedAt.Time
		in.CreatedAt = &t
	}
	return in
}

type importRequest struct {
	Readings []readingRequest `json:"readings"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

// UserDTO is the public view of an account.
type UserDTO struct {
	ID        int     `json:"id"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name"`
	Role      string  `json:"role"`
	CreatedAt string  `json:"created_at"`
}

func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
