// api/audit/service.go
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/casaflow/api/logging"
)

// Service is the audit trail for workspace administration. Every role and
// membership mutation lands here with its actor and change details; the query
// side backs the /audit/logs surface for workspace managers.
type Service interface {
	LogAccess(ctx context.Context, entry AuditLog) error
	QueryLogs(ctx context.Context, from, to time.Time, userID, resourceID string) ([]AuditLog, error)
}

type auditService struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &auditService{repo: repo}
}

// LogAccess appends one entry to the trail.
func (s *auditService) LogAccess(ctx context.Context, entry AuditLog) error {
	if err := s.repo.LogAccess(ctx, entry); err != nil {
		logger.Error("Failed to append audit entry",
			zap.Error(err),
			zap.String("action", entry.Action),
			zap.String("workspaceID", entry.WorkspaceID),
			zap.String("userID", entry.UserID))
		return err
	}
	return nil
}

// QueryLogs returns the entries in [from, to], optionally narrowed to one
// actor and one resource.
func (s *auditService) QueryLogs(ctx context.Context, from, to time.Time, userID, resourceID string) ([]AuditLog, error) {
	return s.repo.QueryLogs(ctx, from, to, userID, resourceID)
}
