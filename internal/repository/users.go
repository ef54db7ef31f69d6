package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"glucolog/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int) (*models.User, error)
}

type SQLUserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

type userRow struct {
	ID             int     `db:"id"`
	Email          string  `db:"email"`
	FullName       *string `db:"full_name"`
	HashedPassword string  `db:"hashed_password"`
	Role           string  `db:"role"`
	CreatedAt      dbTime  `db:"created_at"`
}

func (r userRow) model() *models.User {
	return &models.User{
		ID:             r.ID,
		Email:          r.Email,
		FullName:       r.FullName,
		HashedPassword: r.HashedPassword,
		Role:           models.Role(r.Role),
		CreatedAt:      r.CreatedAt.Time,
	}
}

// Create inserts u and assigns its ID. A taken email yields ErrDuplicate.
func (s *SQLUserRepository) Create(ctx context.Context, u *models.User) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		q := tx.Rebind(`INSERT INTO users (email, full_name, hashed_password, role, created_at)
			VALUES (?, ?, ?, ?, ?) RETURNING id`)
		err := tx.QueryRowxContext(ctx, q, u.Email, nullable(u.FullName), u.HashedPassword, string(u.Role), u.CreatedAt.UTC()).Scan(&u.ID)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
}

func (s *SQLUserRepository) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	var row userRow
	q := s.db.Rebind(`SELECT id, email, full_name, hashed_password, role, created_at FROM users WHERE ` + where)
	err := s.db.GetContext(ctx, &row, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return row.model(), nil
}

func (s *SQLUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email = ?", email)
}

func (s *SQLUserRepository) FindByID(ctx context.Context, id int) (*models.User, error) {
	return s.findOne(ctx, "id = ?", id)
}
