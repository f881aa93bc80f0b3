// api/controller/role_controller_test.go
package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/casaflow/api/authz"
	"github.com/casaflow/api/controller"
	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/registry"
	"github.com/casaflow/api/service"
	"github.com/casaflow/api/test/mock"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitLogger("../logging")
	m.Run()
}

// stubAuthzStore backs an Evaluator with a single fixed membership and role.
type stubAuthzStore struct {
	membership *model.Membership
	role       *model.Role
}

func (s *stubAuthzStore) GetMembership(_ context.Context, _, _ string) (*model.Membership, error) {
	if s.membership == nil {
		return nil, casaflow_errors.ErrMembershipNotFound
	}
	return s.membership, nil
}

func (s *stubAuthzStore) GetRole(_ context.Context, _ string) (*model.Role, error) {
	if s.role == nil {
		return nil, casaflow_errors.ErrRoleNotFound
	}
	return s.role, nil
}

func evaluatorWithRole(role *model.Role) *authz.Evaluator {
	store := &stubAuthzStore{role: role}
	if role != nil {
		store.membership = &model.Membership{
			UserID:      "user-1",
			WorkspaceID: "ws-1",
			RoleID:      role.ID,
			Status:      model.MembershipActive,
		}
	}
	return authz.NewEvaluator(store, store)
}

func managerRole() *model.Role {
	return &model.Role{
		ID:          "role-manager",
		WorkspaceID: "ws-1",
		Name:        "Office Manager",
		Permissions: []string{registry.ViewTeam, registry.ManageSettings},
	}
}

func testIdentity() model.Identity {
	return model.Identity{UserID: "user-1", Email: "agent@example.com", WorkspaceID: "ws-1"}
}

func setupRouter(identity model.Identity, register func(*gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	api := r.Group("/")
	api.Use(func(c *gin.Context) {
		c.Set("identity", identity)
		c.Next()
	})
	register(api)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRoleController(t *testing.T) {
	mockRoleService := new(mock.MockRoleService)
	rc := controller.NewRoleController(mockRoleService, evaluatorWithRole(managerRole()))
	router := setupRouter(testIdentity(), rc.RegisterRoutes)

	t.Run("CreateRole_Success", func(t *testing.T) {
		mockRoleService.On("CreateRole", testify_mock.Anything, testify_mock.MatchedBy(func(r model.Role) bool {
			return r.WorkspaceID == "ws-1" && r.Name == "Listing Agent"
		}), "user-1").Return(&model.Role{ID: "role-1", Name: "Listing Agent"}, nil).Once()

		body := strings.NewReader(`{"name":"Listing Agent","permissions":["VIEW_PROPERTIES"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/roles", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("CreateRole_DuplicateName", func(t *testing.T) {
		mockRoleService.On("CreateRole", testify_mock.Anything, testify_mock.Anything, "user-1").
			Return(nil, casaflow_errors.ErrDuplicateRoleName).Once()

		body := strings.NewReader(`{"name":"Listing Agent","permissions":["VIEW_PROPERTIES"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/roles", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, casaflow_errors.CodeConflict, decodeError(t, w)["code"])
	})

	t.Run("UpdateRole_SystemRole", func(t *testing.T) {
		mockRoleService.On("UpdateRole", testify_mock.Anything, "role-owner", testify_mock.Anything, "user-1").
			Return(nil, casaflow_errors.ErrSystemRoleImmutable).Once()

		body := strings.NewReader(`{"name":"Renamed"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/roles/role-owner", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, casaflow_errors.CodeForbidden, decodeError(t, w)["code"])
	})

	t.Run("UpdateRole_UnknownPermission", func(t *testing.T) {
		mockRoleService.On("UpdateRole", testify_mock.Anything, "role-1", testify_mock.Anything, "user-1").
			Return(nil, casaflow_errors.ErrUnknownPermission).Once()

		body := strings.NewReader(`{"permissions":["LAUNCH_ROCKETS"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/roles/role-1", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, casaflow_errors.CodeValidation, decodeError(t, w)["code"])
	})

	t.Run("DeleteRole_InUse", func(t *testing.T) {
		mockRoleService.On("DeleteRole", testify_mock.Anything, "role-1", "user-1").
			Return(casaflow_errors.ErrRoleInUse).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/roles/role-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, casaflow_errors.CodeConflict, decodeError(t, w)["code"])
	})

	t.Run("DeleteRole_Success", func(t *testing.T) {
		mockRoleService.On("DeleteRole", testify_mock.Anything, "role-1", "user-1").
			Return(nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/roles/role-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("AssignRole_Success", func(t *testing.T) {
		mockRoleService.On("AssignRole", testify_mock.Anything, "ws-1", "user-9", "role-1", "user-1").
			Return(nil).Once()

		body := strings.NewReader(`{"userId":"user-9"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/roles/role-1/assign", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("GetRole_NotFound", func(t *testing.T) {
		mockRoleService.On("GetRole", testify_mock.Anything, "missing").
			Return(nil, casaflow_errors.ErrRoleNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/roles/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, casaflow_errors.CodeNotFound, decodeError(t, w)["code"])
	})

	t.Run("ListPermissions", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/permissions", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Groups []registry.Group `json:"groups"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Groups)
	})

	mockRoleService.AssertExpectations(t)
}

// A member whose role lacks MANAGE_SETTINGS can read but not mutate roles.
func TestRoleControllerPermissionGuard(t *testing.T) {
	viewer := &model.Role{
		ID:          "role-viewer",
		WorkspaceID: "ws-1",
		Name:        "Viewer",
		Permissions: []string{registry.ViewTeam},
	}
	mockRoleService := new(mock.MockRoleService)
	rc := controller.NewRoleController(mockRoleService, evaluatorWithRole(viewer))
	router := setupRouter(testIdentity(), rc.RegisterRoutes)

	mockRoleService.On("ListRoles", testify_mock.Anything, "ws-1").
		Return([]*model.Role{viewer}, nil).Once()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/roles", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	body := strings.NewReader(`{"name":"Sneaky","permissions":["VIEW_LEADS"]}`)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/roles", body)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, casaflow_errors.CodeForbidden, decodeError(t, w)["code"])

	mockRoleService.AssertNotCalled(t, "CreateRole")
}

// Owner passes every guard without the atoms being stored on the role.
func TestRoleControllerOwnerBypass(t *testing.T) {
	owner := &model.Role{
		ID:          "role-owner",
		WorkspaceID: "ws-1",
		Name:        model.OwnerRoleName,
		IsSystem:    true,
		Permissions: []string{},
	}
	mockRoleService := new(mock.MockRoleService)
	rc := controller.NewRoleController(mockRoleService, evaluatorWithRole(owner))
	router := setupRouter(testIdentity(), rc.RegisterRoutes)

	mockRoleService.On("CreateRole", testify_mock.Anything, testify_mock.Anything, "user-1").
		Return(&model.Role{ID: "role-1"}, nil).Once()

	body := strings.NewReader(`{"name":"Listing Agent","permissions":["VIEW_PROPERTIES"]}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/roles", body)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockRoleService.AssertExpectations(t)
}

func TestIdentityController(t *testing.T) {
	role := managerRole()
	ic := controller.NewIdentityController(evaluatorWithRole(role))
	router := setupRouter(testIdentity(), ic.RegisterRoutes)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		UserID      string     `json:"userId"`
		WorkspaceID string     `json:"workspaceId"`
		Role        model.Role `json:"role"`
		Permissions []string   `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body.UserID)
	assert.Equal(t, "Office Manager", body.Role.Name)
	assert.ElementsMatch(t, role.Permissions, body.Permissions)
}

func TestIdentityControllerNoMembership(t *testing.T) {
	ic := controller.NewIdentityController(evaluatorWithRole(nil))
	router := setupRouter(testIdentity(), ic.RegisterRoutes)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, casaflow_errors.CodeForbidden, decodeError(t, w)["code"])
}

// A caller whose owner role expands to the catalog sees every atom.
func TestIdentityControllerOwnerPermissions(t *testing.T) {
	owner := &model.Role{
		ID:       "role-owner",
		Name:     model.OwnerRoleName,
		IsSystem: true,
	}
	ic := controller.NewIdentityController(evaluatorWithRole(owner))
	router := setupRouter(testIdentity(), ic.RegisterRoutes)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.ElementsMatch(t, registry.All(), body.Permissions)
}

var _ service.IRoleService = &mock.MockRoleService{}
