package dto

import "github.com/noah-isme/studyabroad-api/internal/models"

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required,max=120"`
	Phone    *string         `json:"phone" validate:"omitempty,max=32"`
	Role     models.UserRole `json:"role" validate:"required"`
	Active   bool            `json:"active"`
	Password string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	FullName string          `json:"full_name" validate:"required,max=120"`
	Phone    *string         `json:"phone" validate:"omitempty,max=32"`
	Role     models.UserRole `json:"role" validate:"required"`
	Active   *bool           `json:"active"`
}

// RoleRequest creates or renames a role.
type RoleRequest struct {
	Name        models.UserRole `json:"name" validate:"required,max=60"`
	Description *string         `json:"description"`
}

// PermissionRef names a permission by module and action.
type PermissionRef struct {
	Module models.PermissionModule `json:"module" validate:"required"`
	Action models.PermissionAction `json:"action" validate:"required,oneof=view create update delete"`
}

// SetRolePermissionsRequest replaces a role's permission set.
type SetRolePermissionsRequest struct {
	Permissions []PermissionRef `json:"permissions" validate:"dive"`
}
