package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"glucolog/internal/models"
	"glucolog/internal/repository"
)

type RegisterRequest struct {
	Email    string
	Password string
	FullName *string
	Role     *string
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type AuthService struct {
	users     repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(users repository.UserRepository, jwtSecret []byte, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Register creates a regular account. Self-registration never grants a privileged role.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, invalid("email", "field required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email", "value is not a valid email address")
	}
	if req.Password == "" {
		return nil, invalid("password", "field required")
	}
	if req.Role != nil && !models.Role(*req.Role).Valid() {
		return nil, invalid("role", "must be one of admin, support, regular")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, invalid("password", "must be at most 72 bytes")
		}
		s.logger.Error("hash password failed", zap.Error(err))
		return nil, err
	}

	u := &models.User{
		Email:          email,
		FullName:       req.FullName,
		HashedPassword: string(hashed),
		Role:           models.RoleRegular,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("create user failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	s.logger.Info("user registered", zap.Int("user_id", u.ID))
	return u, nil
}

// Login checks the password and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error("lookup user failed", zap.Error(err))
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.issueJWT(u.ID)
	if err != nil {
		s.logger.Error("sign token failed", zap.Int("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

func (s *AuthService) issueJWT(userID int) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
		"jti": uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// Me returns the account behind an authenticated request.
func (s *AuthService) Me(ctx context.Context, userID int) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("load user failed", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	return u, nil
}
