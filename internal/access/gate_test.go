package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

func TestAuthorize(t *testing.T) {
	gate, err := NewGate(nil)
	require.NoError(t, err)

	owned := &types.NPC{ID: 1, Name: "Herrero", CreatorID: "B"}
	ownerless := &types.Item{ID: 2, Name: "Espada"}

	tests := []struct {
		name       string
		actor      Actor
		rec        types.Record
		wantAllow  bool
		wantReason string
	}{
		{name: "stranger without capability denied", actor: Actor{ID: "A"}, rec: owned, wantReason: ReasonDenied},
		{name: "unrelated permission denied", actor: Actor{ID: "A", Permissions: []string{"send_messages"}}, rec: owned, wantReason: ReasonDenied},
		{name: "creator allowed", actor: Actor{ID: "B"}, rec: owned, wantAllow: true, wantReason: ReasonOwner},
		{name: "manage allowed", actor: Actor{ID: "C", Permissions: []string{"manage"}}, rec: owned, wantAllow: true, wantReason: ReasonCapability},
		{name: "administrator allowed", actor: Actor{ID: "C", Permissions: []string{"administrator"}}, rec: owned, wantAllow: true, wantReason: ReasonCapability},
		{name: "manage subsegment allowed", actor: Actor{ID: "C", Permissions: []string{"manage:guild"}}, rec: owned, wantAllow: true, wantReason: ReasonCapability},
		{name: "deeper segment not matched by single star", actor: Actor{ID: "C", Permissions: []string{"manage:guild:roles"}}, rec: owned, wantReason: ReasonDenied},
		{name: "ownerless needs capability", actor: Actor{ID: ""}, rec: ownerless, wantReason: ReasonDenied},
		{name: "ownerless with capability", actor: Actor{ID: "C", Permissions: []string{"manage"}}, rec: ownerless, wantAllow: true, wantReason: ReasonCapability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.Authorize(tt.actor, tt.rec, CapabilityManage)
			assert.Equal(t, tt.wantAllow, d.Allowed)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestCustomGrants(t *testing.T) {
	gate, err := NewGate(map[string][]string{CapabilityManage: {"shopkeeper:**"}})
	require.NoError(t, err)

	assert.True(t, gate.Holds(Actor{Permissions: []string{"shopkeeper:npc:edit"}}, CapabilityManage))
	assert.False(t, gate.Holds(Actor{Permissions: []string{"manage"}}, CapabilityManage))
	assert.False(t, gate.Holds(Actor{Permissions: []string{"manage"}}, ""))
}

func TestSetGrantsRejectsBadPatterns(t *testing.T) {
	gate, err := NewGate(nil)
	require.NoError(t, err)

	assert.Error(t, gate.SetGrants("", []string{"x"}))
	assert.Error(t, gate.SetGrants(CapabilityManage, []string{""}))
	assert.Error(t, gate.SetGrants(CapabilityManage, []string{"[unclosed"}))

	assert.True(t, gate.Holds(Actor{Permissions: []string{"manage"}}, CapabilityManage),
		"failed SetGrants leaves previous grants in place")
}
