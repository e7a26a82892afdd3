package store

import (
	"fmt"

	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// Resolve returns the records of tbl referenced by ids, in the order of ids.
// Ids with no matching record are omitted without error.
func Resolve(tbl types.Table, ids []int64) ([]any, error) {
	if len(ids) == 0 {
		return []any{}, nil
	}
	all, err := tbl.Fetch(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving references: %w", err)
	}
	return ResolveIDs(ids, all), nil
}

// ResolveIDs is the pure form of Resolve over a table snapshot.
func ResolveIDs(ids []int64, records []any) []any {
	index := make(map[int64]any, len(records))
	for _, r := range records {
		if rec, ok := r.(types.Record); ok {
			index[rec.RecordID()] = r
		}
	}

	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if r, ok := index[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
