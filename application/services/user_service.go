package services

import (
	"context"
	"strings"

	"dome-backend/application/ports"
	"dome-backend/domain/core/entities"
	"dome-backend/pkg/auth"
	pkgerrors "dome-backend/pkg/errors"

	"go.uber.org/zap"
)

// UserService provides account management and credential checks
type UserService struct {
	users  ports.UserRepository
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(users ports.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// Register creates a new account with a bcrypt-hashed password
func (s *UserService) Register(ctx context.Context, name, email, password, photoURL string) (*entities.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil && !pkgerrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.NewConflictError("email already registered")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, pkgerrors.NewValidationError("password must be at least 8 characters")
	}

	user, err := entities.NewUser(email, hash, name, photoURL)
	if err != nil {
		return nil, err
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("userID", user.ID()))
	return user, nil
}

// Authenticate verifies credentials and returns the user on success.
// A missing account and a wrong password are indistinguishable to callers.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*entities.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewUnauthorizedError("incorrect email or password")
		}
		return nil, err
	}

	if !auth.VerifyPassword(password, user.PasswordHash()) {
		return nil, pkgerrors.NewUnauthorizedError("incorrect email or password")
	}

	return user, nil
}

// GetByID returns a user by ID
func (s *UserService) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile changes the user's display name and photo
func (s *UserService) UpdateProfile(ctx context.Context, id, name, photoURL string) (*entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.UpdateProfile(name, photoURL)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
