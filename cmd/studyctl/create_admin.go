package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/internal/repository"
	"github.com/noah-isme/studyabroad-api/internal/service"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
	adminRole     string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE:  runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "login email")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "display name")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "initial password (min 8 characters)")
	createAdminCmd.Flags().StringVar(&adminRole, "role", string(models.RoleSuperAdmin), "super_admin or admin")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func runCreateAdmin(cmd *cobra.Command, _ []string) error {
	role := models.UserRole(adminRole)
	if role != models.RoleSuperAdmin && role != models.RoleAdmin {
		return fmt.Errorf("role must be %s or %s", models.RoleSuperAdmin, models.RoleAdmin)
	}

	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	validate := service.NewValidator()
	roles := service.NewRoleService(repository.NewRoleRepository(env.db), nil, nil, validate, env.logger)
	users := service.NewUserService(repository.NewUserRepository(env.db), roles, validate, env.logger)

	user, err := users.Create(cmd.Context(), dto.CreateUserRequest{
		Email:    adminEmail,
		FullName: adminName,
		Role:     role,
		Active:   true,
		Password: adminPassword,
	}, "", models.RequestMeta{UserAgent: "studyctl"})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
