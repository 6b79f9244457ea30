package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/logger"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/straye-as/status-api/internal/notification"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Messages returned by the password reset flow
const (
	ResetRequestedMessage = "If the email exists, a reset link will be sent."
	ResetCompletedMessage = "Password reset successful."
)

// selfServiceRoles are the roles open to public registration
var selfServiceRoles = []domain.Role{domain.RoleResponsible, domain.RoleDeputy}

// AuthConfig holds the settings the auth service needs
type AuthConfig struct {
	BcryptCost  int
	ResetTTL    time.Duration
	FrontendURL string
}

// AuthService handles registration, token issuance and password reset
type AuthService struct {
	userRepo  *repository.UserRepository
	resetRepo *repository.PasswordResetRepository
	tokens    *auth.TokenManager
	notifier  Notifier
	cfg       AuthConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo *repository.UserRepository,
	resetRepo *repository.PasswordResetRepository,
	tokens *auth.TokenManager,
	notifier Notifier,
	cfg AuthConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		resetRepo: resetRepo,
		tokens:    tokens,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// Register creates a self-service account. Only the Responsible and
// Deputy roles can be chosen here; other roles are granted by an admin.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.UserDTO, error) {
	if req.Role != "" && !isSelfServiceRole(req.Role) {
		return nil, domain.FieldErrors{"role": "Only RESP or DEP can be chosen at registration"}
	}

	user, err := createAccount(ctx, s.userRepo, req, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.logger).Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// Token exchanges credentials for an access and refresh token
func (s *AuthService) Token(ctx context.Context, req *domain.TokenRequest) (*domain.TokenPairDTO, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		logger.WithContext(ctx, s.logger).Warn("login failed", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Refresh issues a new pair for a valid refresh token of an active user
func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.TokenPairDTO, error) {
	claims, err := s.tokens.ValidateRefreshToken(req.Refresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// RequestPasswordReset stores a fresh token for the account and mails the
// link. The answer is the same whether or not the email is known.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req *domain.PasswordResetRequest) (*domain.MessageDTO, error) {
	response := &domain.MessageDTO{Message: ResetRequestedMessage}
	log := logger.WithContext(ctx, s.logger)

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response, nil
		}
		return nil, err
	}

	value, err := auth.NewResetToken()
	if err != nil {
		return nil, err
	}
	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     value,
		ExpiresAt: s.now().UTC().Add(s.cfg.ResetTTL),
	}
	if err := s.resetRepo.Replace(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.FrontendURL, "/"), value)
	s.notifier.Submit(ctx, notification.Message{
		To:      []string{user.Email},
		Subject: "Password Reset Request",
		Body:    "Click the link to reset your password:\n" + link,
	})

	log.Info("password reset requested", zap.String("user_id", user.ID.String()))
	return response, nil
}

// ConfirmPasswordReset sets a new password for the owner of a valid token.
// Expired tokens are removed when presented.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req *domain.PasswordResetConfirmRequest) (*domain.MessageDTO, error) {
	token, err := s.resetRepo.GetByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}

	if token.IsExpired(s.now().UTC()) {
		if err := s.resetRepo.Delete(ctx, token.ID); err != nil {
			logger.WithContext(ctx, s.logger).Warn("failed to delete expired reset token", zap.Error(err))
		}
		return nil, ErrResetTokenExpired
	}

	hash, err := auth.HashPassword(req.NewPassword, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdatePassword(ctx, token.UserID, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.resetRepo.Delete(ctx, token.ID); err != nil {
		return nil, fmt.Errorf("failed to delete reset token: %w", err)
	}

	return &domain.MessageDTO{Message: ResetCompletedMessage}, nil
}

// PurgeExpiredTokens deletes every reset token past its expiry
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.resetRepo.DeleteExpired(ctx, s.now().UTC())
}

func (s *AuthService) issue(user *domain.User) (*domain.TokenPairDTO, error) {
	access, refresh, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPairDTO{
		Access:    access,
		Refresh:   refresh,
		ExpiresIn: int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func isSelfServiceRole(role domain.Role) bool {
	for _, r := range selfServiceRoles {
		if r == role {
			return true
		}
	}
	return false
}
