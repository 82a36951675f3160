package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/workforce-api/internal/identity"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/metrics"
	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	identity identity.Provider
	logger   *logger.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, idp identity.Provider, log *logger.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		identity: idp,
		logger:   log,
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Login    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
// Inactive users cannot sign in.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindActiveByLogin(ctx, strings.TrimSpace(input.Login))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// FaceLogin identifies the user on the photo. It succeeds only when the
// recognition service returns exactly one subject and that subject belongs to an
// active user.
func (s *AuthService) FaceLogin(ctx context.Context, dataURL string) (*models.User, float64, error) {
	photo, err := parsePhoto(dataURL)
	if err != nil {
		return nil, 0, err
	}
	if photo == nil {
		return nil, 0, invalid("facePhoto", "is required")
	}

	matches, err := s.identity.Recognize(ctx, photo.data)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("identity").Inc()
		s.logger.Warn("face recognition failed", zap.Error(err))
		return nil, 0, &CollaboratorError{Name: "identity", Cause: err}
	}
	if len(matches) != 1 {
		return nil, 0, ErrFaceNotRecognized
	}

	user, err := s.userRepo.FindActiveByFaceSubject(ctx, matches[0].SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrFaceNotRecognized
		}
		return nil, 0, fmt.Errorf("failed to find user: %w", err)
	}

	return user, matches[0].Probability, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, KindUser, id)
	}

	return user, nil
}
