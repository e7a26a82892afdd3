// Package access decides whether an actor may mutate a record.
//
// An actor is allowed when it created the record or holds the required
// capability. Capabilities are derived from the permission strings the chat
// platform reports for the actor, through glob grants compiled with ':' as
// the segment separator:
//   - "manage" matches only the permission "manage"
//   - "manage:*" matches "manage:npcs" but not "manage:npcs:delete"
//   - "manage:**" matches any permission under "manage:"
package access

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gobwas/glob"

	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// CapabilityManage lets an actor mutate records it does not own.
const CapabilityManage = "manage"

// DefaultGrants maps CapabilityManage to the platform permissions that confer it.
var DefaultGrants = map[string][]string{
	CapabilityManage: {"manage", "manage:*", "administrator"},
}

// Actor is the identity issuing a command and its platform permissions.
type Actor struct {
	ID          string
	Permissions []string
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

// Decision reasons.
const (
	ReasonOwner      = "owner"
	ReasonCapability = "capability"
	ReasonDenied     = "denied"
)

type compiledGrant struct {
	pattern string
	glob    glob.Glob
}

// Gate evaluates authorization. Gate is safe for concurrent use.
type Gate struct {
	mu     sync.RWMutex
	grants map[string][]compiledGrant // capability -> permission patterns
}

// NewGate compiles grants. A nil map uses DefaultGrants.
func NewGate(grants map[string][]string) (*Gate, error) {
	if grants == nil {
		grants = DefaultGrants
	}
	g := &Gate{grants: make(map[string][]compiledGrant, len(grants))}
	for capability, patterns := range grants {
		if err := g.SetGrants(capability, patterns); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// SetGrants replaces the permission patterns that confer capability. Nothing
// changes when any pattern fails to compile.
func (g *Gate) SetGrants(capability string, patterns []string) error {
	if capability == "" {
		return errors.New("capability name cannot be empty")
	}

	compiled := make([]compiledGrant, len(patterns))
	for i, pattern := range patterns {
		if pattern == "" {
			return fmt.Errorf("grant %d for %q: empty pattern", i, capability)
		}
		gl, err := glob.Compile(pattern, ':')
		if err != nil {
			return fmt.Errorf("grant %d for %q (%q): %w", i, capability, pattern, err)
		}
		compiled[i] = compiledGrant{pattern: pattern, glob: gl}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grants == nil {
		g.grants = make(map[string][]compiledGrant)
	}
	g.grants[capability] = compiled
	return nil
}

// Holds reports whether any of the actor's permissions confers capability.
func (g *Gate) Holds(actor Actor, capability string) bool {
	if capability == "" {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, grant := range g.grants[capability] {
		if slices.ContainsFunc(actor.Permissions, grant.glob.Match) {
			return true
		}
	}
	return false
}

// Authorize allows the record's owner, or any actor holding capability.
// Ownerless records are only open to capability holders.
func (g *Gate) Authorize(actor Actor, rec types.Record, capability string) Decision {
	if actor.ID != "" && rec != nil && rec.Owner() == actor.ID {
		return Decision{Allowed: true, Reason: ReasonOwner}
	}
	if g.Holds(actor, capability) {
		return Decision{Allowed: true, Reason: ReasonCapability}
	}
	return Decision{Allowed: false, Reason: ReasonDenied}
}
