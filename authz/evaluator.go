// api/authz/evaluator.go
package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	casaflow_errors "github.com/casaflow/api/errors"
	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
	"github.com/casaflow/api/registry"
)

// MembershipResolver looks up the membership binding a user to a workspace.
type MembershipResolver interface {
	GetMembership(ctx context.Context, userID, workspaceID string) (*model.Membership, error)
}

// RoleResolver looks up a role by id.
type RoleResolver interface {
	GetRole(ctx context.Context, roleID string) (*model.Role, error)
}

// decision is the cached resolution of a (user, workspace) pair. denied
// entries cache missing or non-active memberships; assignRole invalidates the
// pair, so a stale negative never outlives one mutation round-trip.
type decision struct {
	denied  bool
	isOwner bool
	roleID  string
	role    *model.Role
	perms   map[string]struct{}
}

// Evaluator answers "does this identity hold this permission in this
// workspace". It is called on every guarded action, so resolutions are cached
// per (user, workspace) pair with explicit invalidation on role or membership
// change.
type Evaluator struct {
	memberships MembershipResolver
	roles       RoleResolver

	mu    sync.RWMutex
	cache map[string]*decision
}

func NewEvaluator(memberships MembershipResolver, roles RoleResolver) *Evaluator {
	return &Evaluator{
		memberships: memberships,
		roles:       roles,
		cache:       make(map[string]*decision),
	}
}

func cacheKey(userID, workspaceID string) string {
	return fmt.Sprintf("%s:%s", userID, workspaceID)
}

// Can resolves a single permission check. Closed by default: unknown atoms,
// missing memberships, non-active memberships, and resolution failures all
// evaluate to false rather than erroring.
func (e *Evaluator) Can(ctx context.Context, identity model.Identity, workspaceID string, atom string) bool {
	if !registry.Known(atom) {
		return false
	}

	d, err := e.resolve(ctx, identity.UserID, workspaceID)
	if err != nil {
		logger.Warn("Authorization resolution failed, denying",
			zap.Error(err),
			zap.String("userID", identity.UserID),
			zap.String("workspaceID", workspaceID))
		return false
	}
	if d.denied {
		return false
	}
	// Owner holds the full catalog implicitly; the stored grant set is not
	// consulted, so atoms added after the membership was created still pass.
	if d.isOwner {
		return true
	}
	_, ok := d.perms[atom]
	return ok
}

// ResolveRole returns the role backing an identity's membership, for the
// current-identity surface. Unlike Can it propagates failures.
func (e *Evaluator) ResolveRole(ctx context.Context, identity model.Identity, workspaceID string) (*model.Role, error) {
	d, err := e.resolve(ctx, identity.UserID, workspaceID)
	if err != nil {
		return nil, err
	}
	if d.denied || d.role == nil {
		return nil, casaflow_errors.ErrMembershipNotFound
	}
	return d.role, nil
}

// EffectivePermissions lists the atoms an identity currently holds. Owner
// expands to the whole catalog.
func (e *Evaluator) EffectivePermissions(ctx context.Context, identity model.Identity, workspaceID string) ([]string, error) {
	d, err := e.resolve(ctx, identity.UserID, workspaceID)
	if err != nil {
		return nil, err
	}
	if d.denied {
		return nil, casaflow_errors.ErrMembershipNotFound
	}
	if d.isOwner {
		return registry.All(), nil
	}
	atoms := make([]string, 0, len(d.perms))
	for _, p := range registry.All() {
		if _, ok := d.perms[p]; ok {
			atoms = append(atoms, p)
		}
	}
	return atoms, nil
}

// HasActiveMembership reports whether the pair resolves to an active
// membership at all. The realtime handshake uses this before upgrading.
func (e *Evaluator) HasActiveMembership(ctx context.Context, userID, workspaceID string) bool {
	d, err := e.resolve(ctx, userID, workspaceID)
	return err == nil && !d.denied
}

func (e *Evaluator) resolve(ctx context.Context, userID, workspaceID string) (*decision, error) {
	key := cacheKey(userID, workspaceID)

	e.mu.RLock()
	cached, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	membership, err := e.memberships.GetMembership(ctx, userID, workspaceID)
	if err != nil {
		if errors.Is(err, casaflow_errors.ErrMembershipNotFound) {
			return e.store(key, &decision{denied: true}), nil
		}
		return nil, err
	}
	if membership.Status != model.MembershipActive {
		return e.store(key, &decision{denied: true}), nil
	}

	role, err := e.roles.GetRole(ctx, membership.RoleID)
	if err != nil {
		if errors.Is(err, casaflow_errors.ErrRoleNotFound) {
			return e.store(key, &decision{denied: true}), nil
		}
		return nil, err
	}

	d := &decision{
		isOwner: role.IsOwner(),
		roleID:  role.ID,
		role:    role,
		perms:   make(map[string]struct{}, len(role.Permissions)),
	}
	for _, p := range role.Permissions {
		d.perms[p] = struct{}{}
	}
	return e.store(key, d), nil
}

func (e *Evaluator) store(key string, d *decision) *decision {
	e.mu.Lock()
	e.cache[key] = d
	e.mu.Unlock()
	return d
}

// Invalidate drops the cached decision for one (user, workspace) pair.
func (e *Evaluator) Invalidate(userID, workspaceID string) {
	e.mu.Lock()
	delete(e.cache, cacheKey(userID, workspaceID))
	e.mu.Unlock()
}

// ApplyInvalidation drops cached decisions per an invalidation event: the
// named users, or every entry whose cached role matches, or the entire cache
// when the event carries neither.
func (e *Evaluator) ApplyInvalidation(event model.AuthzEvent) {
	if len(event.UserIDs) > 0 {
		for _, userID := range event.UserIDs {
			e.Invalidate(userID, event.WorkspaceID)
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if event.RoleID == "" {
		e.cache = make(map[string]*decision)
		return
	}
	for key, d := range e.cache {
		if d.roleID == event.RoleID {
			delete(e.cache, key)
		}
	}
}
