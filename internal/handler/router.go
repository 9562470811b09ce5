package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyabroad-api/internal/middleware"
	"github.com/noah-isme/studyabroad-api/internal/models"
)

// Handlers bundles every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth        *AuthHandler
	User        *UserHandler
	Role        *RoleHandler
	University  *UniversityHandler
	Program     *ProgramHandler
	Scholarship *ScholarshipHandler
	Favorite    *FavoriteHandler
	Document    *DocumentHandler
	Application *ApplicationHandler
	AI          *AIHandler
	Translation *TranslationHandler
	Dashboard   *DashboardHandler
	File        *FileHandler
	Metrics     *MetricsHandler
}

// RouterDeps carries the collaborators used by route-level middleware.
type RouterDeps struct {
	Tokens      middleware.TokenValidator
	Permissions middleware.PermissionResolver
	Audit       middleware.AuditWriter
}

// RegisterRoutes mounts the API under prefix and the infrastructure routes at the root.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, deps RouterDeps) {
	if h.Metrics != nil {
		r.GET("/metrics", h.Metrics.Prometheus)
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
	}
	if h.File != nil {
		r.GET("/files/public/:bucket/*key", h.File.Public)
		r.GET("/files/signed/:token", h.File.Signed)
	}

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	auth := middleware.JWT(deps.Tokens)
	perm := func(module models.PermissionModule, action models.PermissionAction) gin.HandlerFunc {
		return middleware.RequirePermission(deps.Permissions, module, action)
	}
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, action, resource)
	}

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", auth, h.Auth.Logout)
	authGroup.GET("/me", auth, h.Auth.Me)
	authGroup.POST("/change-password", auth, h.Auth.ChangePassword)

	api.GET("/universities", h.University.List)
	api.GET("/universities/:id", h.University.Get)
	api.GET("/programs", h.Program.List)
	api.GET("/programs/:id", h.Program.Get)
	api.GET("/programs/:id/requirements", h.Program.Requirements)
	api.GET("/scholarships", h.Scholarship.List)
	api.GET("/scholarships/:id", h.Scholarship.Get)

	student := api.Group("", auth)
	student.POST("/favorites/toggle", h.Favorite.Toggle)
	student.GET("/favorites", h.Favorite.List)
	student.GET("/favorites/check", h.Favorite.Check)

	student.POST("/documents", h.Document.Upload)
	student.GET("/documents", h.Document.List)
	student.GET("/documents/reusable", h.Document.Reusable)
	student.GET("/documents/:id/download", h.Document.Download)
	student.DELETE("/documents/:id", h.Document.Delete)

	student.POST("/applications/validate", h.Application.Validate)
	student.POST("/applications", h.Application.Submit)
	student.GET("/applications", h.Application.ListOwn)
	student.GET("/applications/:id", h.Application.Get)

	student.POST("/ai/chat", h.AI.Chat)
	student.POST("/ai/generate", h.AI.Generate)

	admin := api.Group("/admin", auth)

	admin.GET("/users", perm(models.ModuleUsers, models.ActionView), h.User.List)
	admin.GET("/users/:id", perm(models.ModuleUsers, models.ActionView), h.User.Get)
	admin.POST("/users", perm(models.ModuleUsers, models.ActionCreate), h.User.Create)
	admin.PUT("/users/:id", perm(models.ModuleUsers, models.ActionUpdate), h.User.Update)
	admin.DELETE("/users/:id", perm(models.ModuleUsers, models.ActionDelete), h.User.Delete)

	admin.GET("/roles", perm(models.ModuleRoles, models.ActionView), h.Role.List)
	admin.POST("/roles", perm(models.ModuleRoles, models.ActionCreate), h.Role.Create)
	admin.PUT("/roles/:id", perm(models.ModuleRoles, models.ActionUpdate), h.Role.Update)
	admin.DELETE("/roles/:id", perm(models.ModuleRoles, models.ActionDelete), h.Role.Delete)
	admin.PUT("/roles/:id/permissions", perm(models.ModuleRoles, models.ActionUpdate), h.Role.SetPermissions)
	admin.GET("/permissions", perm(models.ModuleRoles, models.ActionView), h.Role.Permissions)

	admin.POST("/universities", perm(models.ModuleUniversities, models.ActionCreate), audit("UNIVERSITY_CREATE", "university"), h.University.Create)
	admin.PUT("/universities/:id", perm(models.ModuleUniversities, models.ActionUpdate), audit("UNIVERSITY_UPDATE", "university"), h.University.Update)
	admin.DELETE("/universities/:id", perm(models.ModuleUniversities, models.ActionDelete), audit("UNIVERSITY_DELETE", "university"), h.University.Delete)
	admin.POST("/universities/:id/media", perm(models.ModuleUniversities, models.ActionUpdate), audit("UNIVERSITY_MEDIA", "university"), h.University.UploadMedia)
	admin.GET("/universities/:id/translations", perm(models.ModuleUniversities, models.ActionView), h.University.ListTranslations)
	admin.PUT("/universities/:id/translations/:locale", perm(models.ModuleUniversities, models.ActionUpdate), h.University.UpsertTranslation)

	admin.POST("/programs", perm(models.ModulePrograms, models.ActionCreate), audit("PROGRAM_CREATE", "program"), h.Program.Create)
	admin.PUT("/programs/:id", perm(models.ModulePrograms, models.ActionUpdate), audit("PROGRAM_UPDATE", "program"), h.Program.Update)
	admin.DELETE("/programs/:id", perm(models.ModulePrograms, models.ActionDelete), audit("PROGRAM_DELETE", "program"), h.Program.Delete)
	admin.GET("/programs/:id/translations", perm(models.ModulePrograms, models.ActionView), h.Program.ListTranslations)
	admin.PUT("/programs/:id/translations/:locale", perm(models.ModulePrograms, models.ActionUpdate), h.Program.UpsertTranslation)
	admin.PUT("/programs/:id/requirements", perm(models.ModuleRequirements, models.ActionUpdate), audit("PROGRAM_REQUIREMENTS_SET", "program"), h.Program.SetRequirements)
	admin.GET("/catalog/programs", perm(models.ModulePrograms, models.ActionView), h.Program.ListCatalog)
	admin.POST("/catalog/programs", perm(models.ModulePrograms, models.ActionCreate), h.Program.CreateCatalog)

	admin.GET("/requirements", perm(models.ModuleRequirements, models.ActionView), h.Program.ListRequirementCatalog)
	admin.POST("/requirements", perm(models.ModuleRequirements, models.ActionCreate), audit("REQUIREMENT_CREATE", "requirement"), h.Program.CreateRequirement)
	admin.PUT("/requirements/:id", perm(models.ModuleRequirements, models.ActionUpdate), audit("REQUIREMENT_UPDATE", "requirement"), h.Program.UpdateRequirement)
	admin.DELETE("/requirements/:id", perm(models.ModuleRequirements, models.ActionDelete), audit("REQUIREMENT_DELETE", "requirement"), h.Program.DeleteRequirement)

	admin.POST("/scholarships", perm(models.ModuleScholarships, models.ActionCreate), audit("SCHOLARSHIP_CREATE", "scholarship"), h.Scholarship.Create)
	admin.PUT("/scholarships/:id", perm(models.ModuleScholarships, models.ActionUpdate), audit("SCHOLARSHIP_UPDATE", "scholarship"), h.Scholarship.Update)
	admin.DELETE("/scholarships/:id", perm(models.ModuleScholarships, models.ActionDelete), audit("SCHOLARSHIP_DELETE", "scholarship"), h.Scholarship.Delete)

	admin.GET("/applications", perm(models.ModuleApplications, models.ActionView), h.Application.ListAll)
	admin.GET("/applications/export", perm(models.ModuleApplications, models.ActionView), h.Application.Export)
	admin.PATCH("/applications/:id/status", perm(models.ModuleApplications, models.ActionUpdate), h.Application.UpdateStatus)

	admin.GET("/translations/runs", perm(models.ModuleTranslations, models.ActionView), h.Translation.List)
	admin.POST("/translations/runs", perm(models.ModuleTranslations, models.ActionCreate), audit(models.AuditActionTranslationRun, "translation_run"), h.Translation.Start)
	admin.GET("/translations/runs/:id", perm(models.ModuleTranslations, models.ActionView), h.Translation.Get)
	admin.POST("/translations/runs/:id/cancel", perm(models.ModuleTranslations, models.ActionUpdate), h.Translation.Cancel)
	admin.POST("/translations/runs/:id/retry", perm(models.ModuleTranslations, models.ActionUpdate), h.Translation.Retry)

	admin.GET("/dashboard", perm(models.ModuleDashboard, models.ActionView), h.Dashboard.Stats)
}
