package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/suggestion-box/internal/auth"
	"github.com/spec-kit/suggestion-box/internal/domain"
	apperrors "github.com/spec-kit/suggestion-box/pkg/util/errorutil"
)

// AuthService exchanges a Google ID token for the caller's role.
type AuthService struct {
	verifier  auth.EmailVerifier
	directory *domain.Directory
	logger    *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(verifier auth.EmailVerifier, directory *domain.Directory, logger *zap.Logger) *AuthService {
	return &AuthService{verifier: verifier, directory: directory, logger: logger}
}

// Authenticate verifies token and resolves the role of its email.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, apperrors.NewValidationError("No token provided.", nil)
	}

	email, err := s.verifier.VerifyEmail(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrEmailMissing) {
			return domain.Identity{}, apperrors.NewUnauthorized("Email not found.")
		}
		s.logger.Debug("token rejected", zap.Error(err))
		return domain.Identity{}, apperrors.NewUnauthorized("Invalid token.")
	}

	return s.directory.Resolve(email), nil
}
