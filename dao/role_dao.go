// api/dao/role_dao.go
package dao

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/casaflow/api/audit"
	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	casaflow_neo4j "github.com/casaflow/api/model/neo4j"
	helper_util "github.com/casaflow/api/util/helper"
)

type RoleDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewRoleDAO(driver neo4j.Driver, auditService audit.Service) *RoleDAO {
	dao := &RoleDAO{Driver: driver, AuditService: auditService}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Role", zap.Error(err))
	}
	return dao
}

func (dao *RoleDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Role ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_role_id IF NOT EXISTS
        FOR (r:` + casaflow_neo4j.LabelRole + `) REQUIRE r.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on Role ID", zap.Error(err))
		return err
	}

	return nil
}

// EnsureSystemRoles seeds the immutable Owner role for a workspace. Safe to
// call repeatedly; MERGE keys on the workspace and the reserved name.
func (dao *RoleDAO) EnsureSystemRoles(ctx context.Context, workspaceID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
			MERGE (w:` + casaflow_neo4j.LabelWorkspace + ` {id: $workspaceID})
			MERGE (r:` + casaflow_neo4j.LabelRole + ` {workspaceId: $workspaceID, name: $name})
			ON CREATE SET
				r.id = $id,
				r.isSystem = true,
				r.permissions = [],
				r.createdAt = $now,
				r.updatedAt = $now
			MERGE (r)-[:` + casaflow_neo4j.RelScopedTo + `]->(w)
		`
		params := map[string]interface{}{
			"workspaceID": workspaceID,
			"name":        model.OwnerRoleName,
			"id":          uuid.New().String(),
			"now":         time.Now().UTC().Format(time.RFC3339),
		}
		_, err := transaction.Run(query, params)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to seed system roles",
			zap.Error(err),
			zap.String("workspaceID", workspaceID))
		return casaflow_errors.ErrDatabaseOperation
	}
	return nil
}

// CreateRole persists a non-system role. Duplicate names within the workspace
// are rejected with a validation error (case-sensitive match).
func (dao *RoleDAO) CreateRole(ctx context.Context, role model.Role, actorID string) (string, error) {
	start := time.Now()
	logger.Info("Creating new role",
		zap.String("roleName", role.Name),
		zap.String("workspaceID", role.WorkspaceID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if role.ID == "" {
		role.ID = uuid.New().String()
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		dupQuery := `
			MATCH (r:` + casaflow_neo4j.LabelRole + ` {workspaceId: $workspaceID, name: $name})
			RETURN r.id LIMIT 1
		`
		dup, err := transaction.Run(dupQuery, map[string]interface{}{
			"workspaceID": role.WorkspaceID,
			"name":        role.Name,
		})
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		if dup.Next() {
			return nil, casaflow_errors.ErrDuplicateRoleName
		}

		query := `
			MERGE (w:` + casaflow_neo4j.LabelWorkspace + ` {id: $workspaceID})
			CREATE (r:` + casaflow_neo4j.LabelRole + ` {
				id: $id,
				workspaceId: $workspaceID,
				name: $name,
				description: $description,
				isSystem: false,
				permissions: $permissions,
				createdAt: $now,
				updatedAt: $now
			})
			MERGE (r)-[:` + casaflow_neo4j.RelScopedTo + `]->(w)
			RETURN r.id as id
		`
		params := map[string]interface{}{
			"id":          role.ID,
			"workspaceID": role.WorkspaceID,
			"name":        role.Name,
			"description": role.Description,
			"permissions": role.Permissions,
			"now":         time.Now().UTC().Format(time.RFC3339),
		}

		res, err := transaction.Run(query, params)
		if err != nil {
			logger.Error("Failed to execute create role query", zap.Error(err))
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		if res.Next() {
			return res.Record().Values[0], nil
		}
		return nil, casaflow_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create role",
			zap.Error(err),
			zap.String("roleName", role.Name),
			zap.Duration("duration", duration))
		return "", err
	}

	roleID, _ := result.(string)
	logger.Info("Role created successfully",
		zap.String("roleID", roleID),
		zap.Duration("duration", duration))

	dao.logAudit(ctx, audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        actorID,
		WorkspaceID:   role.WorkspaceID,
		Action:        audit.ActionRoleCreated,
		ResourceID:    roleID,
		AccessGranted: true,
		ChangeDetails: roleChangeDetails(nil, &role),
	})

	return roleID, nil
}

// UpdateRole rewrites the mutable fields of an existing role. System-role
// protection is enforced by the service before this is reached.
func (dao *RoleDAO) UpdateRole(ctx context.Context, role model.Role, actorID string) (*model.Role, error) {
	oldRole, err := dao.GetRole(ctx, role.ID)
	if err != nil {
		return nil, err
	}

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		if role.Name != oldRole.Name {
			dupQuery := `
				MATCH (r:` + casaflow_neo4j.LabelRole + ` {workspaceId: $workspaceID, name: $name})
				WHERE r.id <> $id
				RETURN r.id LIMIT 1
			`
			dup, err := transaction.Run(dupQuery, map[string]interface{}{
				"workspaceID": oldRole.WorkspaceID,
				"name":        role.Name,
				"id":          role.ID,
			})
			if err != nil {
				return nil, casaflow_errors.ErrDatabaseOperation
			}
			if dup.Next() {
				return nil, casaflow_errors.ErrDuplicateRoleName
			}
		}

		query := `
			MATCH (r:` + casaflow_neo4j.LabelRole + ` {id: $id})
			SET r.name = $name,
				r.description = $description,
				r.permissions = $permissions,
				r.updatedAt = $now
		`
		params := map[string]interface{}{
			"id":          role.ID,
			"name":        role.Name,
			"description": role.Description,
			"permissions": role.Permissions,
			"now":         time.Now().UTC().Format(time.RFC3339),
		}
		_, err := transaction.Run(query, params)
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to update role", zap.Error(err), zap.String("roleID", role.ID))
		return nil, err
	}

	updated, err := dao.GetRole(ctx, role.ID)
	if err != nil {
		return nil, err
	}

	dao.logAudit(ctx, audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        actorID,
		WorkspaceID:   updated.WorkspaceID,
		Action:        audit.ActionRoleUpdated,
		ResourceID:    updated.ID,
		AccessGranted: true,
		ChangeDetails: roleChangeDetails(oldRole, updated),
	})

	return updated, nil
}

// DeleteRole removes a role that no active membership references.
func (dao *RoleDAO) DeleteRole(ctx context.Context, roleID string, actorID string) error {
	role, err := dao.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		inUseQuery := `
			MATCH (:` + casaflow_neo4j.LabelUser + `)-[m:` + casaflow_neo4j.RelMemberOf + `]->(:` + casaflow_neo4j.LabelWorkspace + `)
			WHERE m.roleId = $roleID AND m.status = $active
			RETURN count(m) as active
		`
		res, err := transaction.Run(inUseQuery, map[string]interface{}{
			"roleID": roleID,
			"active": string(model.MembershipActive),
		})
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		if res.Next() {
			if count, ok := res.Record().Values[0].(int64); ok && count > 0 {
				return nil, casaflow_errors.ErrRoleInUse
			}
		}

		query := `
			MATCH (r:` + casaflow_neo4j.LabelRole + ` {id: $roleID})
			DETACH DELETE r
		`
		_, err = transaction.Run(query, map[string]interface{}{"roleID": roleID})
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to delete role", zap.Error(err), zap.String("roleID", roleID))
		return err
	}

	dao.logAudit(ctx, audit.AuditLog{
		Timestamp:     time.Now(),
		UserID:        actorID,
		WorkspaceID:   role.WorkspaceID,
		Action:        audit.ActionRoleDeleted,
		ResourceID:    roleID,
		AccessGranted: true,
		ChangeDetails: roleChangeDetails(role, nil),
	})

	return nil
}

// GetRole retrieves a role by its ID.
func (dao *RoleDAO) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
			MATCH (r:` + casaflow_neo4j.LabelRole + ` {id: $roleID})
			RETURN r.id, r.workspaceId, r.name, r.description, r.isSystem, r.permissions, r.createdAt, r.updatedAt
		`
		res, err := transaction.Run(query, map[string]interface{}{"roleID": roleID})
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		if res.Next() {
			return parseRoleRecord(res.Record().Values), nil
		}
		return nil, casaflow_errors.ErrRoleNotFound
	})

	if err != nil {
		return nil, err
	}
	return result.(*model.Role), nil
}

// ListRoles returns every role scoped to a workspace, system roles first.
func (dao *RoleDAO) ListRoles(ctx context.Context, workspaceID string) ([]*model.Role, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
			MATCH (r:` + casaflow_neo4j.LabelRole + ` {workspaceId: $workspaceID})
			RETURN r.id, r.workspaceId, r.name, r.description, r.isSystem, r.permissions, r.createdAt, r.updatedAt
			ORDER BY r.isSystem DESC, r.name
		`
		res, err := transaction.Run(query, map[string]interface{}{"workspaceID": workspaceID})
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}

		var roles []*model.Role
		for res.Next() {
			roles = append(roles, parseRoleRecord(res.Record().Values))
		}
		return roles, nil
	})

	if err != nil {
		logger.Error("Failed to list roles", zap.Error(err), zap.String("workspaceID", workspaceID))
		return nil, err
	}
	return result.([]*model.Role), nil
}

func (dao *RoleDAO) logAudit(ctx context.Context, entry audit.AuditLog) {
	if dao.AuditService == nil {
		return
	}
	if err := dao.AuditService.LogAccess(ctx, entry); err != nil {
		logger.Error("Failed to write audit log", zap.Error(err), zap.String("action", entry.Action))
	}
}

func parseRoleRecord(values []interface{}) *model.Role {
	role := &model.Role{}
	if v, ok := values[0].(string); ok {
		role.ID = v
	}
	if v, ok := values[1].(string); ok {
		role.WorkspaceID = v
	}
	if v, ok := values[2].(string); ok {
		role.Name = v
	}
	if v, ok := values[3].(string); ok {
		role.Description = v
	}
	if v, ok := values[4].(bool); ok {
		role.IsSystem = v
	}
	if perms, ok := values[5].([]interface{}); ok {
		for _, p := range perms {
			if atom, ok := p.(string); ok {
				role.Permissions = append(role.Permissions, atom)
			}
		}
	}
	if t, err := helper_util.ParseNullableTime(values[6]); err == nil && t != nil {
		role.CreatedAt = *t
	}
	if t, err := helper_util.ParseNullableTime(values[7]); err == nil && t != nil {
		role.UpdatedAt = *t
	}
	return role
}

func roleChangeDetails(oldRole, newRole *model.Role) json.RawMessage {
	details, err := json.Marshal(map[string]interface{}{
		"old": oldRole,
		"new": newRole,
	})
	if err != nil {
		return nil
	}
	return details
}
