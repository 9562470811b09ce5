package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/cache"
	"github.com/noah-isme/studyabroad-api/pkg/database"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

type roleRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	FindByID(ctx context.Context, id string) (*models.Role, error)
	FindByName(ctx context.Context, name models.UserRole) (*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id string) error
	CountUsers(ctx context.Context, name models.UserRole) (int, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	PermissionsForRole(ctx context.Context, name models.UserRole) ([]models.Permission, error)
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RoleService manages roles and resolves the permission set of a role.
type RoleService struct {
	repo      roleRepository
	audit     auditWriter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoleService constructs a RoleService.
func NewRoleService(repo roleRepository, audit auditWriter, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &RoleService{repo: repo, audit: audit, cache: cacheSvc, validator: validate, logger: logger}
}

// List returns every role with its permissions.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	for i := range roles {
		perms, err := s.repo.PermissionsForRole(ctx, roles[i].Name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role permissions")
		}
		roles[i].Permissions = perms
	}
	return roles, nil
}

// ListPermissions returns the permission catalog.
func (s *RoleService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list permissions")
	}
	return perms, nil
}

// FindByName returns a role by name.
func (s *RoleService) FindByName(ctx context.Context, name models.UserRole) (*models.Role, error) {
	return s.repo.FindByName(ctx, name)
}

// Create adds a custom role.
func (s *RoleService) Create(ctx context.Context, req dto.RoleRequest, actorID string, meta models.RequestMeta) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid role payload")
	}
	role := &models.Role{Name: normalizeRoleName(req.Name), Description: req.Description}
	if models.IsSystemRole(role.Name) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "role already exists")
	}
	if err := s.repo.Create(ctx, role); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "role already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create role")
	}
	s.record(ctx, models.AuditActionRoleCreate, role.ID, actorID, meta, nil, map[string]interface{}{"name": role.Name})
	return role, nil
}

// Update renames a custom role or changes a role's description. A rename
// revokes the refresh tokens of the role's holders so their next sign-in
// carries the new name.
func (s *RoleService) Update(ctx context.Context, id string, req dto.RoleRequest, actorID string, meta models.RequestMeta) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid role payload")
	}
	role, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := role.Name
	newName := normalizeRoleName(req.Name)
	if role.IsSystem && newName != role.Name {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "system roles cannot be renamed")
	}
	role.Name = newName
	role.Description = req.Description
	if err := s.repo.Update(ctx, role); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "role already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	s.invalidate(ctx, oldName)
	s.record(ctx, models.AuditActionRoleUpdate, role.ID, actorID, meta, map[string]interface{}{"name": oldName}, map[string]interface{}{"name": role.Name})
	return role, nil
}

// Delete removes a custom role that no user holds.
func (s *RoleService) Delete(ctx context.Context, id string, actorID string, meta models.RequestMeta) error {
	role, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem || models.IsSystemRole(role.Name) {
		return appErrors.Clone(appErrors.ErrForbidden, "system roles cannot be deleted")
	}
	holders, err := s.repo.CountUsers(ctx, role.Name)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count role users")
	}
	if holders > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "role is assigned to users")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete role")
	}
	s.invalidate(ctx, role.Name)
	s.record(ctx, models.AuditActionRoleDelete, role.ID, actorID, meta, map[string]interface{}{"name": role.Name}, nil)
	return nil
}

// SetPermissions replaces the permissions granted to a role.
func (s *RoleService) SetPermissions(ctx context.Context, id string, req dto.SetRolePermissionsRequest, actorID string, meta models.RequestMeta) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid permissions payload")
	}
	role, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.Name == models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "super_admin permissions are implicit")
	}

	catalog, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permission catalog")
	}
	byKey := make(map[string]models.Permission, len(catalog))
	for _, p := range catalog {
		byKey[p.Key()] = p
	}

	seen := make(map[string]bool, len(req.Permissions))
	ids := make([]string, 0, len(req.Permissions))
	granted := make([]models.Permission, 0, len(req.Permissions))
	for _, ref := range req.Permissions {
		key := models.PermissionKey(ref.Module, ref.Action)
		p, ok := byKey[key]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown permission "+key)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		ids = append(ids, p.ID)
		granted = append(granted, p)
	}

	if err := s.repo.ReplacePermissions(ctx, role.ID, ids); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace permissions")
	}
	s.invalidate(ctx, role.Name)
	s.record(ctx, models.AuditActionPermissionsSet, role.ID, actorID, meta, nil, map[string]interface{}{"permissions": models.NewPermissionSet(granted).Keys()})
	role.Permissions = granted
	return role, nil
}

// PermissionsFor resolves the permission set of a role, reading through the cache.
// super_admin implicitly holds every permission.
func (s *RoleService) PermissionsFor(ctx context.Context, role models.UserRole) (models.PermissionSet, error) {
	if role == models.RoleSuperAdmin {
		set := make(models.PermissionSet, len(models.AllModules)*len(models.AllActions))
		for _, module := range models.AllModules {
			for _, action := range models.AllActions {
				set[models.PermissionKey(module, action)] = struct{}{}
			}
		}
		return set, nil
	}

	keys, _, err := readThrough(ctx, s.cache, cache.Key(cache.NamespacePermissions, string(role)), 0, func(ctx context.Context) ([]string, error) {
		perms, err := s.repo.PermissionsForRole(ctx, role)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve permissions")
		}
		return models.NewPermissionSet(perms).Keys(), nil
	})
	if err != nil {
		return nil, err
	}
	set := make(models.PermissionSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set, nil
}

func (s *RoleService) load(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	return role, nil
}

func (s *RoleService) invalidate(ctx context.Context, role models.UserRole) {
	_ = s.cache.Invalidate(ctx, cache.Key(cache.NamespacePermissions, string(role)))
}

func (s *RoleService) record(ctx context.Context, action, roleID, actorID string, meta models.RequestMeta, oldValues, newValues map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "roles",
		ResourceID: &roleID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record role audit log", zap.String("action", action), zap.Error(err))
	}
}

func normalizeRoleName(name models.UserRole) models.UserRole {
	return models.UserRole(strings.ToLower(strings.TrimSpace(string(name))))
}
