package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studyabroad-api/internal/dto"
	"github.com/noah-isme/studyabroad-api/internal/models"
	appErrors "github.com/noah-isme/studyabroad-api/pkg/errors"
)

type mockUserRepo struct {
	users          map[string]*models.User
	listUsers      []models.User
	listCount      int
	listErr        error
	findByIDErr    error
	findByEmailErr error
	auditLogs      []*models.AuditLog
}

func (m *mockUserRepo) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	count := 0
	for _, u := range m.users {
		if u.Role == role && u.Active {
			count++
		}
	}
	return count, nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	if m.listUsers != nil {
		return m.listUsers, m.listCount, nil
	}
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if user, ok := m.users[id]; ok {
		user.Active = false
		m.users[id] = user
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func TestUserServiceList(t *testing.T) {
	repo := &mockUserRepo{listUsers: []models.User{{ID: "1", Email: "a@example.com"}}, listCount: 1}
	svc := NewUserService(repo, nil, validator.New(), zap.NewNop())
	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	repo.findByEmailErr = sql.ErrNoRows
	svc := NewUserService(repo, nil, validator.New(), zap.NewNop())
	user, err := svc.Create(context.Background(), dto.CreateUserRequest{Email: "USER@EXAMPLE.COM", FullName: "User", Password: "secret12", Role: models.RoleAdmin, Active: true}, "actor", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.NotEmpty(t, repo.auditLogs)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Email: "a@example.com", FullName: "Old", Role: models.RoleStudent, Active: true}}}
	svc := NewUserService(repo, nil, validator.New(), zap.NewNop())
	active := false
	user, err := svc.Update(context.Background(), "1", dto.UpdateUserRequest{FullName: "New", Role: models.RoleAdmin, Active: &active}, "actor", models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.False(t, user.Active)
	assert.NotEmpty(t, repo.auditLogs)
}

func TestUserServiceDelete(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Email: "a@example.com", FullName: "Old", Role: models.RoleStudent, Active: true}}}
	svc := NewUserService(repo, nil, validator.New(), zap.NewNop())
	err := svc.Delete(context.Background(), "1", "actor", models.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, repo.users["1"].Active)
	assert.NotEmpty(t, repo.auditLogs)
}

type mockRoleLookup map[models.UserRole]bool

func (m mockRoleLookup) FindByName(ctx context.Context, name models.UserRole) (*models.Role, error) {
	if !m[name] {
		return nil, sql.ErrNoRows
	}
	return &models.Role{Name: name}, nil
}

func TestUserServiceCreateUnknownRole(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	svc := NewUserService(repo, mockRoleLookup{models.RoleAdmin: true}, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{Email: "x@example.com", FullName: "X", Password: "password1", Role: "ghost"}, "actor", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.users)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Email: "dup@example.com"}}}
	svc := NewUserService(repo, mockRoleLookup{models.RoleAdmin: true}, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{Email: "DUP@example.com", FullName: "Dup", Password: "password1", Role: models.RoleAdmin}, "actor", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestUserServiceDeleteRejectsSelf(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Role: models.RoleAdmin, Active: true}}}
	svc := NewUserService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "1", "1", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.True(t, repo.users["1"].Active)
}

func TestUserServiceKeepsLastSuperAdmin(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"root":  {ID: "root", Role: models.RoleSuperAdmin, Active: true},
		"admin": {ID: "admin", Role: models.RoleAdmin, Active: true},
	}}
	svc := NewUserService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "root", "admin", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), "root", dto.UpdateUserRequest{FullName: "Root", Role: models.RoleAdmin}, "admin", models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, models.RoleSuperAdmin, repo.users["root"].Role)

	repo.users["second"] = &models.User{ID: "second", Role: models.RoleSuperAdmin, Active: true}
	require.NoError(t, svc.Delete(context.Background(), "root", "admin", models.RequestMeta{}))
	assert.False(t, repo.users["root"].Active)
}

func TestUserServiceCLICreateHasNoActor(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	svc := NewUserService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{Email: "Root@Example.com", FullName: "Root", Password: "password1", Role: models.RoleSuperAdmin, Active: true}, "", models.RequestMeta{UserAgent: "studyctl"})
	require.NoError(t, err)
	require.Len(t, repo.auditLogs, 1)
	assert.Nil(t, repo.auditLogs[0].UserID)
	assert.Contains(t, string(repo.auditLogs[0].NewValues), `"email":"root@example.com"`)
}
