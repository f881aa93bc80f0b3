// test/mock/stores.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/casaflow/api/model"
)

// MockRoleStore is a mock implementation of service.RoleStore
type MockRoleStore struct {
	mock.Mock
}

func (m *MockRoleStore) EnsureSystemRoles(ctx context.Context, workspaceID string) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

func (m *MockRoleStore) CreateRole(ctx context.Context, role model.Role, actorID string) (string, error) {
	args := m.Called(ctx, role, actorID)
	return args.String(0), args.Error(1)
}

func (m *MockRoleStore) UpdateRole(ctx context.Context, role model.Role, actorID string) (*model.Role, error) {
	args := m.Called(ctx, role, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleStore) DeleteRole(ctx context.Context, roleID string, actorID string) error {
	args := m.Called(ctx, roleID, actorID)
	return args.Error(0)
}

func (m *MockRoleStore) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleStore) ListRoles(ctx context.Context, workspaceID string) ([]*model.Role, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Role), args.Error(1)
}

// MockMembershipStore is a mock implementation of service.MembershipStore
type MockMembershipStore struct {
	mock.Mock
}

func (m *MockMembershipStore) GetMembership(ctx context.Context, userID, workspaceID string) (*model.Membership, error) {
	args := m.Called(ctx, userID, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *MockMembershipStore) AssignRole(ctx context.Context, workspaceID, userID, roleID string, actorID string) error {
	args := m.Called(ctx, workspaceID, userID, roleID, actorID)
	return args.Error(0)
}

func (m *MockMembershipStore) SetStatus(ctx context.Context, workspaceID, userID string, status model.MembershipStatus) error {
	args := m.Called(ctx, workspaceID, userID, status)
	return args.Error(0)
}

func (m *MockMembershipStore) ListMembersByRole(ctx context.Context, roleID string) ([]string, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockInvalidator records authorization cache invalidations.
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) ApplyInvalidation(event model.AuthzEvent) {
	m.Called(event)
}
