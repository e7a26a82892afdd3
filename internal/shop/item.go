package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// NewItem is the input of CreateItem.
type NewItem struct {
	Name        string
	Description string
	Image       string
	Category    string
	Properties  string
}

// CreateItem stores a new item.
func (s *Service) CreateItem(ctx context.Context, req Request, in NewItem) (c card.Card, err error) {
	err = s.run(ctx, "create_item", req, func(ctx context.Context) error {
		tbl, err := s.table(types.ItemsTable)
		if err != nil {
			return err
		}
		it := &types.Item{
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Image:       strings.TrimSpace(in.Image),
			Category:    strings.TrimSpace(in.Category),
			Properties:  in.Properties,
			CreatorID:   req.Actor.ID,
		}
		id, err := tbl.Create(it)
		if err != nil {
			return storeError("creating item", "item", it.Name, err)
		}
		c = card.Confirmation("Item created", fmt.Sprintf("%s was created with id %d.", it.Name, id))
		return nil
	})
	return c, err
}

// EditItem merges fields into the item. Unknown field names are ignored.
func (s *Service) EditItem(ctx context.Context, req Request, ref string, fields map[string]string) (c card.Card, err error) {
	err = s.run(ctx, "edit_item", req, func(ctx context.Context) error {
		tbl, item, err := s.lookupItem(ref)
		if err != nil {
			return err
		}
		if err := s.authorize(req, "item", item); err != nil {
			return err
		}
		updated, err := tbl.Update(item.ID, types.ItemPatchFromFields(fields))
		if err != nil {
			return storeError("updating item", "item", ref, err)
		}
		c = card.Item(updated.(*types.Item))
		return nil
	})
	return c, err
}

// ListItems returns a browser over the items matching filter.
func (s *Service) ListItems(ctx context.Context, req Request, filter types.Filter) (b Browser, err error) {
	err = s.run(ctx, "list_items", req, func(ctx context.Context) error {
		tbl, err := s.table(types.ItemsTable)
		if err != nil {
			return err
		}
		recs, err := tbl.Fetch(filter)
		if err != nil {
			return storeError("listing items", "item", "", err)
		}
		if len(recs) == 0 {
			return ErrEmpty("There are no items yet.")
		}
		fields := make([]card.Field, 0, len(recs))
		for _, r := range recs {
			fields = append(fields, card.ItemSummary(r.(*types.Item)))
		}
		b = s.newSummaryListing("Items", fields)
		return nil
	})
	return b, err
}

// ShowItem renders one item.
func (s *Service) ShowItem(ctx context.Context, req Request, ref string) (c card.Card, err error) {
	err = s.run(ctx, "show_item", req, func(ctx context.Context) error {
		_, item, err := s.lookupItem(ref)
		if err != nil {
			return err
		}
		c = card.Item(item)
		return nil
	})
	return c, err
}

// DeleteItem removes the item. NPC inventories that list it keep the id,
// which no longer renders.
func (s *Service) DeleteItem(ctx context.Context, req Request, ref string) (c card.Card, err error) {
	err = s.run(ctx, "delete_item", req, func(ctx context.Context) error {
		tbl, item, err := s.lookupItem(ref)
		if err != nil {
			return err
		}
		if err := s.authorize(req, "item", item); err != nil {
			return err
		}
		if err := tbl.Delete(item.ID); err != nil {
			return storeError("deleting item", "item", ref, err)
		}
		c = card.Confirmation("Item deleted", item.Name+" was deleted.")
		return nil
	})
	return c, err
}
