package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/status-api/internal/auth"
	"github.com/straye-as/status-api/internal/domain"
	"github.com/straye-as/status-api/internal/logger"
	"github.com/straye-as/status-api/internal/mapper"
	"github.com/straye-as/status-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService handles account administration and self-service
type UserService struct {
	db         *gorm.DB
	userRepo   *repository.UserRepository
	audit      *AuditLogService
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, userRepo *repository.UserRepository, audit *AuditLogService, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{
		db:         db,
		userRepo:   userRepo,
		audit:      audit,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// List returns users ordered by username
func (s *UserService) List(ctx context.Context, search string, role domain.Role, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	page, pageSize = normalizePagination(page, pageSize)

	users, total, err := s.userRepo.List(ctx, search, role, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToUserDTO(&users[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// GetByID returns one user
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// Me returns the caller's own account
func (s *UserService) Me(ctx context.Context) (*domain.UserDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userCtx.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// Create adds an account with any role. Administrators only.
func (s *UserService) Create(ctx context.Context, req *domain.RegisterRequest) (*domain.UserDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionUserManage, auth.RelationNone); err != nil {
		return nil, err
	}

	user, err := createAccount(ctx, s.userRepo, req, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditActionCreate, EntityUser, user.ID, map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	})
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// Update changes profile, role and activity of an account. Administrators only.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateUserRequest) (*domain.UserDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionUserManage, auth.RelationNone); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}

	previousRole := user.Role
	user.Email = strings.TrimSpace(req.Email)
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Phone = req.Phone
	user.Department = req.Department
	user.Role = req.Role
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	changes := map[string]interface{}{"email": user.Email, "isActive": user.IsActive}
	if previousRole != user.Role {
		changes["role"] = map[string]interface{}{"before": previousRole, "after": user.Role}
	}
	s.audit.Record(ctx, domain.AuditActionUpdate, EntityUser, id, changes)

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// Delete removes an account. References to it are nulled or cascaded
// following the deletion policy. Administrators only.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, err := caller(ctx)
	if err != nil {
		return err
	}
	if err := authorize(userCtx, auth.ActionUserManage, auth.RelationNone); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrUserNotFound)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.userRepo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.audit.Record(ctx, domain.AuditActionDelete, EntityUser, id, map[string]interface{}{"username": user.Username})
	logger.WithContext(ctx, s.logger).Info("user deleted",
		zap.String("user_id", id.String()),
		zap.String("deleted_by", userCtx.UserID.String()),
	)
	return nil
}

// UpdatePassword changes the caller's own password after checking the
// current one.
func (s *UserService) UpdatePassword(ctx context.Context, req *domain.UpdatePasswordRequest) (*domain.MessageDTO, error) {
	userCtx, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(userCtx, auth.ActionUserUpdateSelf, auth.RelationSelf); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userCtx.UserID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return nil, ErrIncorrectPassword
	}

	hash, err := auth.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	return &domain.MessageDTO{Message: "Password updated successfully."}, nil
}

// createAccount hashes the password and inserts the user, translating a
// taken username into a conflict.
func createAccount(ctx context.Context, users *repository.UserRepository, req *domain.RegisterRequest, cost int) (*domain.User, error) {
	role := req.Role
	if role == "" {
		role = domain.RoleResponsible
	}
	if !role.IsValid() {
		return nil, domain.FieldErrors{"role": domain.GetValidationMessage("oneof")}
	}

	exists, err := users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, ErrDuplicateUsername
	}

	hash, err := auth.HashPassword(req.Password, cost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Department:   req.Department,
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
