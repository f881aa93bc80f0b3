// api/dao/membership_dao.go
package dao

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/casaflow/api/audit"
	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	casaflow_neo4j "github.com/casaflow/api/model/neo4j"
)

type MembershipDAO struct {
	Driver       neo4j.Driver
	AuditService audit.Service
}

func NewMembershipDAO(driver neo4j.Driver, auditService audit.Service) *MembershipDAO {
	return &MembershipDAO{Driver: driver, AuditService: auditService}
}

// GetMembership resolves the single membership for a (user, workspace) pair.
func (dao *MembershipDAO) GetMembership(ctx context.Context, userID, workspaceID string) (*model.Membership, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
			MATCH (u:` + casaflow_neo4j.LabelUser + ` {id: $userID})-[m:` + casaflow_neo4j.RelMemberOf + `]->(w:` + casaflow_neo4j.LabelWorkspace + ` {id: $workspaceID})
			RETURN m.roleId, m.status, m.createdAt, m.updatedAt
		`
		res, err := transaction.Run(query, map[string]interface{}{
			"userID":      userID,
			"workspaceID": workspaceID,
		})
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		if res.Next() {
			values := res.Record().Values
			membership := &model.Membership{
				UserID:      userID,
				WorkspaceID: workspaceID,
			}
			if v, ok := values[0].(string); ok {
				membership.RoleID = v
			}
			if v, ok := values[1].(string); ok {
				membership.Status = model.MembershipStatus(v)
			}
			if v, ok := values[2].(string); ok {
				membership.CreatedAt, _ = time.Parse(time.RFC3339, v)
			}
			if v, ok := values[3].(string); ok {
				membership.UpdatedAt, _ = time.Parse(time.RFC3339, v)
			}
			return membership, nil
		}
		return nil, casaflow_errors.ErrMembershipNotFound
	})

	if err != nil {
		return nil, err
	}
	return result.(*model.Membership), nil
}

// AssignRole upserts the membership's role pointer. Idempotent: assigning the
// same role twice leaves the record unchanged apart from updatedAt.
func (dao *MembershipDAO) AssignRole(ctx context.Context, workspaceID, userID, roleID string, actorID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		roleQuery := `
			MATCH (r:` + casaflow_neo4j.LabelRole + ` {id: $roleID, workspaceId: $workspaceID})
			RETURN r.id LIMIT 1
		`
		res, err := transaction.Run(roleQuery, map[string]interface{}{
			"roleID":      roleID,
			"workspaceID": workspaceID,
		})
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		if !res.Next() {
			return nil, casaflow_errors.ErrRoleNotFound
		}

		query := `
			MERGE (u:` + casaflow_neo4j.LabelUser + ` {id: $userID})
			MERGE (w:` + casaflow_neo4j.LabelWorkspace + ` {id: $workspaceID})
			MERGE (u)-[m:` + casaflow_neo4j.RelMemberOf + `]->(w)
			ON CREATE SET
				m.status = $active,
				m.createdAt = $now
			SET m.roleId = $roleID,
				m.updatedAt = $now
		`
		params := map[string]interface{}{
			"userID":      userID,
			"workspaceID": workspaceID,
			"roleID":      roleID,
			"active":      string(model.MembershipActive),
			"now":         time.Now().UTC().Format(time.RFC3339),
		}
		_, err = transaction.Run(query, params)
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to assign role",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("roleID", roleID))
		return err
	}

	if dao.AuditService != nil {
		entry := audit.AuditLog{
			Timestamp:     time.Now(),
			UserID:        actorID,
			WorkspaceID:   workspaceID,
			Action:        audit.ActionRoleAssigned,
			ResourceID:    roleID,
			AccessGranted: true,
		}
		if err := dao.AuditService.LogAccess(ctx, entry); err != nil {
			logger.Error("Failed to write audit log", zap.Error(err), zap.String("action", entry.Action))
		}
	}

	return nil
}

// ListMembersByRole returns the user ids whose membership points at a role.
// Used to fan cache invalidations out when the role's grants change.
func (dao *MembershipDAO) ListMembersByRole(ctx context.Context, roleID string) ([]string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
			MATCH (u:` + casaflow_neo4j.LabelUser + `)-[m:` + casaflow_neo4j.RelMemberOf + `]->(:` + casaflow_neo4j.LabelWorkspace + `)
			WHERE m.roleId = $roleID
			RETURN u.id
		`
		res, err := transaction.Run(query, map[string]interface{}{"roleID": roleID})
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}

		var userIDs []string
		for res.Next() {
			if id, ok := res.Record().Values[0].(string); ok {
				userIDs = append(userIDs, id)
			}
		}
		return userIDs, nil
	})

	if err != nil {
		logger.Error("Failed to list members by role", zap.Error(err), zap.String("roleID", roleID))
		return nil, err
	}
	return result.([]string), nil
}

// SetStatus updates the lifecycle state of an existing membership.
func (dao *MembershipDAO) SetStatus(ctx context.Context, workspaceID, userID string, status model.MembershipStatus) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
			MATCH (u:` + casaflow_neo4j.LabelUser + ` {id: $userID})-[m:` + casaflow_neo4j.RelMemberOf + `]->(w:` + casaflow_neo4j.LabelWorkspace + ` {id: $workspaceID})
			SET m.status = $status,
				m.updatedAt = $now
			RETURN m.roleId
		`
		res, err := transaction.Run(query, map[string]interface{}{
			"userID":      userID,
			"workspaceID": workspaceID,
			"status":      string(status),
			"now":         time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, casaflow_errors.ErrDatabaseOperation
		}
		if !res.Next() {
			return nil, casaflow_errors.ErrMembershipNotFound
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to update membership status",
			zap.Error(err),
			zap.String("userID", userID),
			zap.String("workspaceID", workspaceID))
		return err
	}
	return nil
}
