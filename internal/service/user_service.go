package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/database"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type roleLookup interface {
	FindByName(ctx context.Context, name models.UserRole) (*models.Role, error)
}

// UserService is the admin-side account management. Students register
// through AuthService; everyone else is created here or by studyctl.
type UserService struct {
	repo      userRepository
	roles     roleLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService. roles may be nil, in
// which case any role name is accepted.
func NewUserService(repo userRepository, roles roleLookup, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, roles: roles, validator: validate, logger: logger}
}

func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.load(ctx, id)
}

// Create adds an account with an initial password. actorID is empty when
// the call comes from the command line.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actorID string, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}
	if err := s.ensureRole(ctx, req.Role); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	switch _, err := s.repo.FindByEmail(ctx, email); {
	case err == nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	case !errors.Is(err, sql.ErrNoRows):
		return nil, internalError(err, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        req.Phone,
		Role:         req.Role,
		Active:       req.Active,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent create of the same email.
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, internalError(err, "failed to create user")
	}

	s.record(ctx, models.AuditActionUserCreate, actorID, user.ID, nil, accountSnapshot(user), meta)
	return user, nil
}

// Update changes profile fields, role and the active flag. The last active
// super admin can be neither demoted nor deactivated.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, actorID string, meta models.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update payload")
	}
	if err := s.ensureRole(ctx, req.Role); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	before := accountSnapshot(user)
	active := user.Active
	if req.Active != nil {
		active = *req.Active
	}
	if user.Role == models.RoleSuperAdmin && user.Active && (req.Role != models.RoleSuperAdmin || !active) {
		if err := s.ensureAnotherSuperAdmin(ctx); err != nil {
			return nil, err
		}
	}

	user.FullName = strings.TrimSpace(req.FullName)
	user.Phone = req.Phone
	user.Role = req.Role
	user.Active = active
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, internalError(err, "failed to update user")
	}

	s.record(ctx, models.AuditActionUserUpdate, actorID, user.ID, before, accountSnapshot(user), meta)
	return user, nil
}

// Delete deactivates an account and ends its sessions. Rows are kept since
// applications and documents reference them.
func (s *UserService) Delete(ctx context.Context, id string, actorID string, meta models.RequestMeta) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete your own account")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleSuperAdmin && user.Active {
		if err := s.ensureAnotherSuperAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return internalError(err, "failed to delete user")
	}

	before := accountSnapshot(user)
	user.Active = false
	s.record(ctx, models.AuditActionUserDelete, actorID, user.ID, before, accountSnapshot(user), meta)
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	return user, nil
}

func (s *UserService) ensureRole(ctx context.Context, role models.UserRole) error {
	if s.roles == nil {
		return nil
	}
	if _, err := s.roles.FindByName(ctx, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "unknown role").WithFields(map[string]string{"role": "unknown role"})
		}
		return internalError(err, "failed to load role")
	}
	return nil
}

func (s *UserService) ensureAnotherSuperAdmin(ctx context.Context) error {
	count, err := s.repo.CountByRole(ctx, models.RoleSuperAdmin)
	if err != nil {
		return internalError(err, "failed to count super admins")
	}
	if count <= 1 {
		return appErrors.Clone(appErrors.ErrConflict, "at least one active super admin is required")
	}
	return nil
}

func (s *UserService) record(ctx context.Context, action string, actorID, userID string, before, after map[string]interface{}, meta models.RequestMeta) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "users",
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.String("user_id", userID), zap.Error(err))
	}
}

func accountSnapshot(u *models.User) map[string]interface{} {
	return map[string]interface{}{"email": u.Email, "role": u.Role, "active": u.Active}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
