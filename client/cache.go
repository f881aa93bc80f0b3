// api/client/cache.go
package client

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/casaflow/api/model"
)

// Fetcher pulls the authoritative notification state from the server. The
// cache never trusts its own arithmetic across a gap in the event stream;
// whatever the fetch returns replaces local state wholesale.
type Fetcher interface {
	FetchNotifications(ctx context.Context) ([]model.Notification, error)
	FetchStats(ctx context.Context) (*model.NotificationStats, error)
}

// Cache mirrors a recipient's notification list and unread count on the
// client. Pushed events mutate it incrementally; a reconcile replaces it.
// Every mutation is idempotent, because the channel may replay events after a
// reconnect.
type Cache struct {
	mu      sync.RWMutex
	records map[string]*model.Notification
	unread  int64
}

func NewCache() *Cache {
	return &Cache{records: make(map[string]*model.Notification)}
}

// ApplyPush inserts a pushed notification. A duplicate push of an id already
// held is ignored so the unread count cannot be inflated by replays.
func (c *Cache) ApplyPush(notification model.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[notification.ID]; exists {
		return
	}
	stored := notification
	c.records[notification.ID] = &stored
	if !stored.IsRead {
		c.unread++
	}
}

// ApplyReadAck marks a record read as of the server's timestamp.
// Acknowledging an id that is unknown or already read changes nothing; in
// particular the unread count is decremented at most once per record no matter
// how many acks arrive.
func (c *Cache) ApplyReadAck(id string, readAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, exists := c.records[id]
	if !exists || record.IsRead {
		return
	}
	record.IsRead = true
	record.Status = model.NotificationRead
	if record.ReadAt == nil && !readAt.IsZero() {
		at := readAt
		record.ReadAt = &at
	}
	if c.unread > 0 {
		c.unread--
	}
}

// ApplyRemoval drops a record entirely, covering both archived and deleted
// notifications.
func (c *Cache) ApplyRemoval(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, exists := c.records[id]
	if !exists {
		return
	}
	if !record.IsRead && c.unread > 0 {
		c.unread--
	}
	delete(c.records, id)
}

// Reconcile replaces local state with the server's. Called on every reconnect
// and on the periodic reconcile tick; events missed while disconnected are
// absorbed here rather than replayed.
func (c *Cache) Reconcile(ctx context.Context, fetcher Fetcher) error {
	notifications, err := fetcher.FetchNotifications(ctx)
	if err != nil {
		return err
	}
	stats, err := fetcher.FetchStats(ctx)
	if err != nil {
		return err
	}

	records := make(map[string]*model.Notification, len(notifications))
	for i := range notifications {
		n := notifications[i]
		records[n.ID] = &n
	}

	c.mu.Lock()
	c.records = records
	c.unread = stats.Unread
	c.mu.Unlock()
	return nil
}

// UnreadCount returns the badge count.
func (c *Cache) UnreadCount() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unread
}

// Get returns a copy of one record.
func (c *Cache) Get(id string) (model.Notification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, exists := c.records[id]
	if !exists {
		return model.Notification{}, false
	}
	return *record, true
}

// List returns the cached records newest first.
func (c *Cache) List() []model.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Notification, 0, len(c.records))
	for _, record := range c.records {
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
