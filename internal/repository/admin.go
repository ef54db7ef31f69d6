package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Overview holds platform-wide counters for administrators.
type Overview struct {
	TotalUsers          int `json:"total_users"`
	TotalReadings       int `json:"total_readings"`
	ActiveUsersThisWeek int `json:"active_users_this_week"`
	ReadingsThisWeek    int `json:"readings_this_week"`
}

type AdminRepository interface {
	Overview(ctx context.Context, since time.Time) (Overview, error)
}

type SQLAdminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) *SQLAdminRepository {
	return &SQLAdminRepository{db: db}
}

// Overview counts users and readings, with the weekly figures restricted to created_at >= since.
func (s *SQLAdminRepository) Overview(ctx context.Context, since time.Time) (Overview, error) {
	var out Overview
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		counts := []struct {
			dest  *int
			query string
			args  []any
		}{
			{&out.TotalUsers, `SELECT COUNT(*) FROM users`, nil},
			{&out.TotalReadings, `SELECT COUNT(*) FROM readings`, nil},
			{&out.ActiveUsersThisWeek, `SELECT COUNT(DISTINCT user_id) FROM readings WHERE created_at >= ?`, []any{since.UTC()}},
			{&out.ReadingsThisWeek, `SELECT COUNT(*) FROM readings WHERE created_at >= ?`, []any{since.UTC()}},
		}
		for _, c := range counts {
			if err := tx.GetContext(ctx, c.dest, tx.Rebind(c.query), c.args...); err != nil {
				return fmt.Errorf("admin overview: %w", err)
			}
		}
		return nil
	})
	return out, err
}
