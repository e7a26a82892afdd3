package store

import (
	"encoding/json"
	"time"

	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// kind adapts one entity type to the generic table: decoding persisted
// records, accepting create input, and applying patches.
type kind interface {
	decode(raw json.RawMessage) (types.Record, error)
	accept(data any) (types.Record, error)
	stamp(rec types.Record, id int64, now time.Time)
	apply(rec types.Record, patch any, now time.Time) error
	name(rec types.Record) string
}

// kindFor returns the kind backing a standard table name.
func kindFor(table string) (kind, bool) {
	switch table {
	case types.NPCsTable:
		return npcKind{}, true
	case types.ItemsTable:
		return itemKind{}, true
	default:
		return nil, false
	}
}

type npcKind struct{}

func (npcKind) decode(raw json.RawMessage) (types.Record, error) {
	var n types.NPC
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (npcKind) accept(data any) (types.Record, error) {
	n, ok := data.(*types.NPC)
	if !ok || n == nil {
		return nil, types.ErrInvalidData
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func (npcKind) stamp(rec types.Record, id int64, now time.Time) {
	n := rec.(*types.NPC)
	n.ID = id
	n.CreatedAt = now
	n.UpdatedAt = nil
	if n.Inventory == nil {
		n.Inventory = []int64{}
	}
}

func (npcKind) apply(rec types.Record, patch any, now time.Time) error {
	var p *types.NPCPatch
	switch v := patch.(type) {
	case *types.NPCPatch:
		p = v
	case types.NPCPatch:
		p = &v
	default:
		return types.ErrInvalidData
	}
	n := rec.(*types.NPC)
	p.Apply(n)
	if err := n.Validate(); err != nil {
		return err
	}
	n.UpdatedAt = &now
	return nil
}

func (npcKind) name(rec types.Record) string { return rec.(*types.NPC).Name }

type itemKind struct{}

func (itemKind) decode(raw json.RawMessage) (types.Record, error) {
	var it types.Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (itemKind) accept(data any) (types.Record, error) {
	it, ok := data.(*types.Item)
	if !ok || it == nil {
		return nil, types.ErrInvalidData
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	return it, nil
}

func (itemKind) stamp(rec types.Record, id int64, now time.Time) {
	it := rec.(*types.Item)
	it.ID = id
	it.CreatedAt = now
	it.UpdatedAt = nil
}

func (itemKind) apply(rec types.Record, patch any, now time.Time) error {
	var p *types.ItemPatch
	switch v := patch.(type) {
	case *types.ItemPatch:
		p = v
	case types.ItemPatch:
		p = &v
	default:
		return types.ErrInvalidData
	}
	it := rec.(*types.Item)
	p.Apply(it)
	if err := it.Validate(); err != nil {
		return err
	}
	it.UpdatedAt = &now
	return nil
}

func (itemKind) name(rec types.Record) string { return rec.(*types.Item).Name }
