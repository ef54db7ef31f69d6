package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"glucolog/internal/models"
	"glucolog/internal/repository"
)

const overviewWindow = 7 * 24 * time.Hour

type AdminService struct {
	users  repository.UserRepository
	stats  repository.AdminRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewAdminService(users repository.UserRepository, stats repository.AdminRepository, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: users, stats: stats, logger: logger, now: time.Now}
}

// Overview returns platform counters over the trailing week. Only admins may call it.
func (s *AdminService) Overview(ctx context.Context, userID int) (*repository.Overview, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForbidden
		}
		s.logger.Error("load user failed", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	if u.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	out, err := s.stats.Overview(ctx, s.now().Add(-overviewWindow))
	if err != nil {
		s.logger.Error("admin overview failed", zap.Error(err))
		return nil, err
	}
	return &out, nil
}
