// api/realtime/presence.go
package realtime

import (
	"context"

	"github.com/casaflow/api/db"
)

// RedisPresence backs the hub's presence tracking with the shared Redis sets,
// so online indicators agree across instances.
type RedisPresence struct{}

func (RedisPresence) Add(ctx context.Context, workspaceID, userID string) (bool, error) {
	return db.AddPresence(ctx, workspaceID, userID)
}

func (RedisPresence) Remove(ctx context.Context, workspaceID, userID string) (bool, error) {
	return db.RemovePresence(ctx, workspaceID, userID)
}
