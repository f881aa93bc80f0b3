// api/authz/evaluator_test.go
package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaflow/api/authz"
	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/registry"
)

type fakeStore struct {
	memberships map[string]*model.Membership // key userID:workspaceID
	roles       map[string]*model.Role
	lookups     int
}

func (f *fakeStore) GetMembership(ctx context.Context, userID, workspaceID string) (*model.Membership, error) {
	f.lookups++
	m, ok := f.memberships[userID+":"+workspaceID]
	if !ok {
		return nil, casaflow_errors.ErrMembershipNotFound
	}
	return m, nil
}

func (f *fakeStore) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	r, ok := f.roles[roleID]
	if !ok {
		return nil, casaflow_errors.ErrRoleNotFound
	}
	return r, nil
}

func newFixture() (*authz.Evaluator, *fakeStore) {
	store := &fakeStore{
		memberships: map[string]*model.Membership{
			"owner-user:ws-1": {UserID: "owner-user", WorkspaceID: "ws-1", RoleID: "role-owner", Status: model.MembershipActive},
			"agent-user:ws-1": {UserID: "agent-user", WorkspaceID: "ws-1", RoleID: "role-agent", Status: model.MembershipActive},
			"gone-user:ws-1":  {UserID: "gone-user", WorkspaceID: "ws-1", RoleID: "role-agent", Status: model.MembershipInactive},
		},
		roles: map[string]*model.Role{
			// Owner carries no explicit grants; the short-circuit must cover it.
			"role-owner": {ID: "role-owner", WorkspaceID: "ws-1", Name: model.OwnerRoleName, IsSystem: true},
			"role-agent": {ID: "role-agent", WorkspaceID: "ws-1", Name: "Agent", Permissions: []string{registry.ViewLeads, registry.CreateLeads}},
		},
	}
	return authz.NewEvaluator(store, store), store
}

func TestMain(m *testing.M) {
	logger.InitLogger("../logging")
	m.Run()
}

func TestOwnerShortCircuitCoversEntireCatalog(t *testing.T) {
	evaluator, _ := newFixture()
	identity := model.Identity{UserID: "owner-user", WorkspaceID: "ws-1"}

	for _, atom := range registry.All() {
		assert.True(t, evaluator.Can(context.Background(), identity, "ws-1", atom), atom)
	}
}

func TestGrantSetMembership(t *testing.T) {
	evaluator, _ := newFixture()
	identity := model.Identity{UserID: "agent-user", WorkspaceID: "ws-1"}

	assert.True(t, evaluator.Can(context.Background(), identity, "ws-1", registry.ViewLeads))
	assert.True(t, evaluator.Can(context.Background(), identity, "ws-1", registry.CreateLeads))
	assert.False(t, evaluator.Can(context.Background(), identity, "ws-1", registry.DeleteLeads))
}

func TestUnknownAtomIsDeniedNotAnError(t *testing.T) {
	evaluator, _ := newFixture()
	identity := model.Identity{UserID: "owner-user", WorkspaceID: "ws-1"}

	assert.False(t, evaluator.Can(context.Background(), identity, "ws-1", "NOT_A_PERMISSION"))
	assert.False(t, evaluator.Can(context.Background(), identity, "ws-1", ""))
}

func TestInactiveMembershipIsDenied(t *testing.T) {
	evaluator, _ := newFixture()
	identity := model.Identity{UserID: "gone-user", WorkspaceID: "ws-1"}

	assert.False(t, evaluator.Can(context.Background(), identity, "ws-1", registry.ViewLeads))
}

func TestMissingMembershipIsDenied(t *testing.T) {
	evaluator, _ := newFixture()
	identity := model.Identity{UserID: "stranger", WorkspaceID: "ws-1"}

	assert.False(t, evaluator.Can(context.Background(), identity, "ws-1", registry.ViewLeads))
}

func TestPermissionsNeverLeakAcrossWorkspaces(t *testing.T) {
	evaluator, _ := newFixture()
	identity := model.Identity{UserID: "agent-user", WorkspaceID: "ws-1"}

	assert.True(t, evaluator.Can(context.Background(), identity, "ws-1", registry.ViewLeads))
	assert.False(t, evaluator.Can(context.Background(), identity, "ws-2", registry.ViewLeads))
}

func TestDecisionIsCachedUntilInvalidated(t *testing.T) {
	evaluator, store := newFixture()
	identity := model.Identity{UserID: "agent-user", WorkspaceID: "ws-1"}

	evaluator.Can(context.Background(), identity, "ws-1", registry.ViewLeads)
	evaluator.Can(context.Background(), identity, "ws-1", registry.CreateLeads)
	assert.Equal(t, 1, store.lookups, "second check must be served from cache")

	evaluator.Invalidate("agent-user", "ws-1")
	evaluator.Can(context.Background(), identity, "ws-1", registry.ViewLeads)
	assert.Equal(t, 2, store.lookups)
}

func TestRevocationTakesEffectAfterInvalidation(t *testing.T) {
	evaluator, store := newFixture()
	identity := model.Identity{UserID: "agent-user", WorkspaceID: "ws-1"}

	require.True(t, evaluator.Can(context.Background(), identity, "ws-1", registry.CreateLeads))

	store.roles["role-agent"].Permissions = []string{registry.ViewLeads}
	evaluator.ApplyInvalidation(model.AuthzEvent{WorkspaceID: "ws-1", RoleID: "role-agent"})

	assert.False(t, evaluator.Can(context.Background(), identity, "ws-1", registry.CreateLeads))
	assert.True(t, evaluator.Can(context.Background(), identity, "ws-1", registry.ViewLeads))
}

func TestAssignmentTakesEffectAfterPairInvalidation(t *testing.T) {
	evaluator, store := newFixture()
	identity := model.Identity{UserID: "stranger", WorkspaceID: "ws-1"}

	// Denied and cached.
	require.False(t, evaluator.Can(context.Background(), identity, "ws-1", registry.ViewLeads))

	store.memberships["stranger:ws-1"] = &model.Membership{
		UserID: "stranger", WorkspaceID: "ws-1", RoleID: "role-agent", Status: model.MembershipActive,
	}
	evaluator.ApplyInvalidation(model.AuthzEvent{WorkspaceID: "ws-1", UserIDs: []string{"stranger"}})

	assert.True(t, evaluator.Can(context.Background(), identity, "ws-1", registry.ViewLeads))
}

func TestEffectivePermissions(t *testing.T) {
	evaluator, _ := newFixture()

	ownerPerms, err := evaluator.EffectivePermissions(context.Background(), model.Identity{UserID: "owner-user"}, "ws-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, registry.All(), ownerPerms)

	agentPerms, err := evaluator.EffectivePermissions(context.Background(), model.Identity{UserID: "agent-user"}, "ws-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{registry.ViewLeads, registry.CreateLeads}, agentPerms)
}

func TestResolveRole(t *testing.T) {
	evaluator, _ := newFixture()

	role, err := evaluator.ResolveRole(context.Background(), model.Identity{UserID: "agent-user"}, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, "Agent", role.Name)

	_, err = evaluator.ResolveRole(context.Background(), model.Identity{UserID: "stranger"}, "ws-1")
	assert.ErrorIs(t, err, casaflow_errors.ErrMembershipNotFound)
}
