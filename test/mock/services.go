// test/mock/services.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/casaflow/api/model"
	"github.com/casaflow/api/service"
)

// MockRoleService is a mock implementation of service.IRoleService
type MockRoleService struct {
	mock.Mock
}

func (m *MockRoleService) CreateRole(ctx context.Context, role model.Role, creatorID string) (*model.Role, error) {
	args := m.Called(ctx, role, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleService) UpdateRole(ctx context.Context, roleID string, update service.RoleUpdate, updaterID string) (*model.Role, error) {
	args := m.Called(ctx, roleID, update, updaterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleService) SetPermissions(ctx context.Context, roleID string, permissions []string, updaterID string) (*model.Role, error) {
	args := m.Called(ctx, roleID, permissions, updaterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleService) DeleteRole(ctx context.Context, roleID string, deleterID string) error {
	args := m.Called(ctx, roleID, deleterID)
	return args.Error(0)
}

func (m *MockRoleService) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleService) ListRoles(ctx context.Context, workspaceID string) ([]*model.Role, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Role), args.Error(1)
}

func (m *MockRoleService) AssignRole(ctx context.Context, workspaceID, userID, roleID string, actorID string) error {
	args := m.Called(ctx, workspaceID, userID, roleID, actorID)
	return args.Error(0)
}

func (m *MockRoleService) SetMembershipStatus(ctx context.Context, workspaceID, userID string, status model.MembershipStatus, actorID string) error {
	args := m.Called(ctx, workspaceID, userID, status, actorID)
	return args.Error(0)
}

// MockNotificationService is a mock implementation of service.INotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Create(ctx context.Context, notification model.Notification) (*model.Notification, error) {
	args := m.Called(ctx, notification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationService) Get(ctx context.Context, id string) (*model.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, id string) (*model.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationService) MarkManyRead(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, workspaceID, recipientUserID string) (int64, error) {
	args := m.Called(ctx, workspaceID, recipientUserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) Archive(ctx context.Context, id string) (*model.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationService) List(ctx context.Context, workspaceID, recipientUserID string, filter model.NotificationFilter) ([]model.Notification, error) {
	args := m.Called(ctx, workspaceID, recipientUserID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *MockNotificationService) Stats(ctx context.Context, workspaceID, recipientUserID string) (*model.NotificationStats, error) {
	args := m.Called(ctx, workspaceID, recipientUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationStats), args.Error(1)
}
