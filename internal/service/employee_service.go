package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/plumbdesk/plumbdesk-api/internal/access"
	"github.com/plumbdesk/plumbdesk-api/internal/models"
	appErrors "github.com/plumbdesk/plumbdesk-api/pkg/errors"
)

type employeeRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateEmployeeRequest is the admin payload for creating an account.
type CreateEmployeeRequest struct {
	FirstName string          `json:"firstName" validate:"required"`
	LastName  string          `json:"lastName"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=6"`
	Role      models.UserRole `json:"role" validate:"required,oneof=admin receptionist contractor"`
	Location  string          `json:"location"`
	Phone     string          `json:"phone"`
}

// UpdateEmployeeRequest is the admin payload for updating an account.
// Nil fields are left unchanged.
type UpdateEmployeeRequest struct {
	FirstName *string          `json:"firstName"`
	LastName  *string          `json:"lastName"`
	Email     *string          `json:"email" validate:"omitempty,email"`
	Password  *string          `json:"password" validate:"omitempty,min=6"`
	Role      *models.UserRole `json:"role" validate:"omitempty,oneof=admin receptionist contractor"`
	Location  *string          `json:"location"`
	Phone     *string          `json:"phone"`
}

// EmployeeService provides employee account management for admins plus the
// messaging directory for all roles.
type EmployeeService struct {
	repo      employeeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmployeeService constructs an EmployeeService instance.
func NewEmployeeService(repo employeeRepository, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EmployeeService{repo: repo, validator: validate, logger: logger}
}

// List returns all employee accounts. Admin only.
func (s *EmployeeService) List(ctx context.Context, actor *models.AuthUser, filter models.UserFilter) ([]models.User, int, error) {
	if !access.Can(actor.Role, access.ActionManageEmployees) {
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "only admins may manage employees")
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	return users, total, nil
}

// Get returns one employee account. Admin only.
func (s *EmployeeService) Get(ctx context.Context, actor *models.AuthUser, id string) (*models.User, error) {
	if !access.Can(actor.Role, access.ActionManageEmployees) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may manage employees")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return user, nil
}

// Create adds a new employee account. Admin only.
func (s *EmployeeService) Create(ctx context.Context, actor *models.AuthUser, req CreateEmployeeRequest) (*models.User, error) {
	if !access.Can(actor.Role, access.ActionManageEmployees) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may manage employees")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Location:     req.Location,
		Phone:        req.Phone,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionEmployeeCreate,
		Resource:   "users",
		ResourceID: &user.ID,
	}); err != nil {
		s.logger.Warn("failed to record employee create audit log", zap.Error(err))
	}

	return user, nil
}

// Update modifies an employee account. Admin only.
func (s *EmployeeService) Update(ctx context.Context, actor *models.AuthUser, id string, req UpdateEmployeeRequest) (*models.User, error) {
	if !access.Can(actor.Role, access.ActionManageEmployees) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may manage employees")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			if _, err := s.repo.FindByEmail(ctx, email); err == nil {
				return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
			} else if !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing email")
			}
			user.Email = email
		}
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Location != nil {
		user.Location = *req.Location
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}

	if req.Password != nil || req.Role != nil {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke refresh tokens after employee update", zap.Error(err))
		}
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionEmployeeUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
	}); err != nil {
		s.logger.Warn("failed to record employee update audit log", zap.Error(err))
	}

	return user, nil
}

// Delete removes an employee account. Admin only; admins cannot delete their
// own account. The account is removed immediately, existing jobs and messages
// keep their now dangling references.
func (s *EmployeeService) Delete(ctx context.Context, actor *models.AuthUser, id string) error {
	if !access.Can(actor.Role, access.ActionManageEmployees) {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins may manage employees")
	}
	if actor.ID == id {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens before delete", zap.Error(err))
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete employee")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionEmployeeDelete,
		Resource:   "users",
		ResourceID: &user.ID,
	}); err != nil {
		s.logger.Warn("failed to record employee delete audit log", zap.Error(err))
	}

	return nil
}

// MessagingDirectory returns the employees the caller is allowed to message,
// per the role pairing rules. The caller is excluded from the result.
func (s *EmployeeService) MessagingDirectory(ctx context.Context, actor *models.AuthUser) ([]models.UserInfo, error) {
	roles := access.MessageableRoles(actor.Role)
	if len(roles) == 0 {
		return []models.UserInfo{}, nil
	}

	users, _, err := s.repo.List(ctx, models.UserFilter{Roles: roles, ExcludeID: actor.ID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messaging directory")
	}

	infos := make([]models.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, users[i].Info())
	}
	return infos, nil
}

// Contractors returns contractor accounts for the assignment picker, visible
// to staff who can create or edit jobs.
func (s *EmployeeService) Contractors(ctx context.Context, actor *models.AuthUser) ([]models.UserInfo, error) {
	if !access.Can(actor.Role, access.ActionCreateJobs) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to list contractors")
	}

	users, _, err := s.repo.List(ctx, models.UserFilter{Roles: []models.UserRole{models.RoleContractor}, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contractors")
	}

	infos := make([]models.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, users[i].Info())
	}
	return infos, nil
}
