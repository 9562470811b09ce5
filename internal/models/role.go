package models

import (
	"fmt"
	"time"
)

// PermissionModule names a protected area of the API.
type PermissionModule string

// PermissionAction names an operation within a module.
type PermissionAction string

const (
	ModuleUniversities PermissionModule = "universities"
	ModulePrograms     PermissionModule = "programs"
	ModuleScholarships PermissionModule = "scholarships"
	ModuleRequirements PermissionModule = "requirements"
	ModuleApplications PermissionModule = "applications"
	ModuleUsers        PermissionModule = "users"
	ModuleRoles        PermissionModule = "roles"
	ModuleTranslations PermissionModule = "translations"
	ModuleDashboard    PermissionModule = "dashboard"
)

const (
	ActionView   PermissionAction = "view"
	ActionCreate PermissionAction = "create"
	ActionUpdate PermissionAction = "update"
	ActionDelete PermissionAction = "delete"
)

// AllModules lists every permission module.
var AllModules = []PermissionModule{
	ModuleUniversities, ModulePrograms, ModuleScholarships, ModuleRequirements,
	ModuleApplications, ModuleUsers, ModuleRoles, ModuleTranslations, ModuleDashboard,
}

// AllActions lists every permission action.
var AllActions = []PermissionAction{ActionView, ActionCreate, ActionUpdate, ActionDelete}

// PermissionKey renders the canonical "module:action" form.
func PermissionKey(module PermissionModule, action PermissionAction) string {
	return fmt.Sprintf("%s:%s", module, action)
}

// IsSystemRole reports whether the role name is built in and cannot be removed.
func IsSystemRole(name UserRole) bool {
	switch name {
	case RoleSuperAdmin, RoleAdmin, RoleStudent:
		return true
	}
	return false
}

// Role groups permissions and is referenced by users.role.
type Role struct {
	ID          string       `db:"id" json:"id"`
	Name        UserRole     `db:"name" json:"name"`
	Description *string      `db:"description" json:"description,omitempty"`
	IsSystem    bool         `db:"is_system" json:"is_system"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	Permissions []Permission `db:"-" json:"permissions,omitempty"`
}

// Permission is a (module, action) pair.
type Permission struct {
	ID     string           `db:"id" json:"id"`
	Module PermissionModule `db:"module" json:"module"`
	Action PermissionAction `db:"action" json:"action"`
}

// Key returns the canonical "module:action" form.
func (p Permission) Key() string {
	return PermissionKey(p.Module, p.Action)
}

// PermissionSet is a lookup of granted permission keys.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from permissions.
func NewPermissionSet(perms []Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p.Key()] = struct{}{}
	}
	return set
}

// Has reports whether module:action is granted.
func (s PermissionSet) Has(module PermissionModule, action PermissionAction) bool {
	_, ok := s[PermissionKey(module, action)]
	return ok
}

// Keys returns the granted keys.
func (s PermissionSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}
