package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/response"
)

type roleService interface {
	List(ctx context.Context) ([]models.Role, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	Create(ctx context.Context, req dto.RoleRequest, actorID string, meta models.RequestMeta) (*models.Role, error)
	Update(ctx context.Context, id string, req dto.RoleRequest, actorID string, meta models.RequestMeta) (*models.Role, error)
	Delete(ctx context.Context, id string, actorID string, meta models.RequestMeta) error
	SetPermissions(ctx context.Context, id string, req dto.SetRolePermissionsRequest, actorID string, meta models.RequestMeta) (*models.Role, error)
}

// RoleHandler manages roles and their permission sets.
type RoleHandler struct {
	service roleService
}

// NewRoleHandler constructs the handler.
func NewRoleHandler(svc roleService) *RoleHandler {
	return &RoleHandler{service: svc}
}

// List godoc
// @Summary List roles with their permissions
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// Permissions godoc
// @Summary List the permission catalog
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/permissions [get]
func (h *RoleHandler) Permissions(c *gin.Context) {
	perms, err := h.service.ListPermissions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perms, nil)
}

// Create godoc
// @Summary Create role
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body dto.RoleRequest true "Role"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RoleRequest
	if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	role, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, role)
}

// Update godoc
// @Summary Rename role
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param payload body dto.RoleRequest true "Role"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/roles/{id} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RoleRequest
	if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	role, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// Delete godoc
// @Summary Delete role
// @Description System roles cannot be deleted
// @Tags Roles
// @Param id path string true "Role ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/roles/{id} [delete]
func (h *RoleHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetPermissions godoc
// @Summary Replace the permission set of a role
// @Tags Roles
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param payload body dto.SetRolePermissionsRequest true "Permissions"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/roles/{id}/permissions [put]
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.SetRolePermissionsRequest
	if !bindJSON(c, &req, "invalid permissions payload") {
		return
	}
	role, err := h.service.SetPermissions(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}
