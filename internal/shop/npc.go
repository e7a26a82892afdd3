package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/delivery"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// NewNPC is the input of CreateNPC.
type NewNPC struct {
	Name      string
	Dialogue  string
	Image     string
	Role      string
	ChannelID string

	// Items is an item list in ParseItemList syntax. Each entry becomes an
	// Item record stocked by the new NPC.
	Items string
}

// CreateNPC creates the NPC and one Item per entry of in.Items. When the NPC
// cannot be stored the items created for it are removed again.
func (s *Service) CreateNPC(ctx context.Context, req Request, in NewNPC) (c card.Card, err error) {
	err = s.run(ctx, "create_npc", req, func(ctx context.Context) error {
		npc, err := s.createNPC(ctx, req, in)
		if err != nil {
			return err
		}
		c = card.Confirmation("NPC created",
			fmt.Sprintf("%s was created with id %d and %d item(s).", npc.Name, npc.ID, len(npc.Inventory)))
		return nil
	})
	return c, err
}

func (s *Service) createNPC(ctx context.Context, req Request, in NewNPC) (*types.NPC, error) {
	entries, err := ParseItemList(in.Items)
	if err != nil {
		return nil, err
	}
	npc := &types.NPC{
		Name:      strings.TrimSpace(in.Name),
		Dialogue:  in.Dialogue,
		Image:     strings.TrimSpace(in.Image),
		Role:      strings.TrimSpace(in.Role),
		ChannelID: strings.TrimPrefix(strings.TrimSpace(in.ChannelID), "#"),
		Inventory: []int64{},
		CreatorID: req.Actor.ID,
	}
	if err := npc.Validate(); err != nil {
		return nil, storeError("creating NPC", "NPC", npc.Name, err)
	}

	npcs, err := s.table(types.NPCsTable)
	if err != nil {
		return nil, err
	}
	items, err := s.table(types.ItemsTable)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		it := &types.Item{
			Name:       e.Name,
			Image:      e.Image,
			Category:   "shop",
			Properties: "price:" + e.Price,
			CreatorID:  req.Actor.ID,
		}
		id, err := items.Create(it)
		if err != nil {
			s.discardItems(ctx, items, npc.Inventory)
			return nil, storeError("creating item", "item", e.Name, err)
		}
		npc.Inventory = append(npc.Inventory, id)
	}

	if _, err := npcs.Create(npc); err != nil {
		s.discardItems(ctx, items, npc.Inventory)
		return nil, storeError("creating NPC", "NPC", npc.Name, err)
	}
	return npc, nil
}

// discardItems removes items created for an NPC that was never stored.
func (s *Service) discardItems(ctx context.Context, items types.Table, ids []int64) {
	for _, id := range ids {
		if err := items.Delete(id); err != nil {
			s.logger.WarnContext(ctx, "discarding item failed", "item_id", id, "error", err)
		}
	}
}

// EditNPC merges fields into the NPC. Unknown field names are ignored.
func (s *Service) EditNPC(ctx context.Context, req Request, ref string, fields map[string]string) (c card.Card, err error) {
	err = s.run(ctx, "edit_npc", req, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tbl, npc, err := s.lookupNPC(ref)
		if err != nil {
			return err
		}
		if err := s.authorize(req, "NPC", npc); err != nil {
			return err
		}
		updated, err := tbl.Update(npc.ID, types.NPCPatchFromFields(fields))
		if err != nil {
			return storeError("updating NPC", "NPC", ref, err)
		}
		c, err = s.npcCard(updated.(*types.NPC))
		return err
	})
	return c, err
}

// AssignChannel points the NPC at a channel. An empty channel unassigns it.
func (s *Service) AssignChannel(ctx context.Context, req Request, ref, channel string) (c card.Card, err error) {
	err = s.run(ctx, "assign_channel", req, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tbl, npc, err := s.lookupNPC(ref)
		if err != nil {
			return err
		}
		if err := s.authorize(req, "NPC", npc); err != nil {
			return err
		}
		channel = strings.TrimPrefix(strings.TrimSpace(channel), "#")
		if _, err := tbl.Update(npc.ID, &types.NPCPatch{ChannelID: &channel}); err != nil {
			return storeError("assigning channel", "NPC", ref, err)
		}
		if channel == "" {
			c = card.Confirmation("Channel cleared", npc.Name+" is no longer assigned to a channel.")
		} else {
			c = card.Confirmation("Channel assigned", fmt.Sprintf("%s now answers in #%s.", npc.Name, channel))
		}
		return nil
	})
	return c, err
}

// InvokeNPC answers in req.ChannelID. With a name, the NPC must be assigned
// to that channel or to none. Without one, every NPC assigned to the channel
// answers.
func (s *Service) InvokeNPC(ctx context.Context, req Request, name string) (cards []card.Card, err error) {
	err = s.run(ctx, "invoke_npc", req, func(ctx context.Context) error {
		if strings.TrimSpace(name) != "" {
			_, npc, err := s.lookupNPC(name)
			if err != nil {
				return err
			}
			if err := checkChannel(npc, req.ChannelID); err != nil {
				return err
			}
			c, err := s.npcCard(npc)
			if err != nil {
				return err
			}
			cards = []card.Card{c}
			return nil
		}

		tbl, err := s.table(types.NPCsTable)
		if err != nil {
			return err
		}
		recs, err := tbl.Fetch(types.Filter{"channel_id": req.ChannelID})
		if err != nil {
			return storeError("listing NPCs", "NPC", "", err)
		}
		if len(recs) == 0 || req.ChannelID == "" {
			return ErrEmpty("No NPC is assigned to this channel.")
		}
		cards = make([]card.Card, 0, len(recs))
		for _, r := range recs {
			c, err := s.npcCard(r.(*types.NPC))
			if err != nil {
				return err
			}
			cards = append(cards, c)
		}
		return nil
	})
	return cards, err
}

// checkChannel allows an NPC in its assigned channel only. NPCs without a
// channel answer anywhere; a request without a channel reaches only those.
func checkChannel(npc *types.NPC, channel string) error {
	if npc.ChannelID != "" && npc.ChannelID != channel {
		return ErrWrongChannel(npc.Name, channel)
	}
	return nil
}

// ListNPCs returns a browser over the NPCs matching filter.
func (s *Service) ListNPCs(ctx context.Context, req Request, filter types.Filter) (b Browser, err error) {
	err = s.run(ctx, "list_npcs", req, func(ctx context.Context) error {
		tbl, err := s.table(types.NPCsTable)
		if err != nil {
			return err
		}
		recs, err := tbl.Fetch(filter)
		if err != nil {
			return storeError("listing NPCs", "NPC", "", err)
		}
		if len(recs) == 0 {
			return ErrEmpty("There are no NPCs yet.")
		}
		fields := make([]card.Field, 0, len(recs))
		for _, r := range recs {
			fields = append(fields, card.NPCSummary(r.(*types.NPC)))
		}
		b = s.newSummaryListing("NPCs", fields)
		return nil
	})
	return b, err
}

// ShowNPC renders one NPC with its resolved inventory.
func (s *Service) ShowNPC(ctx context.Context, req Request, ref string) (c card.Card, err error) {
	err = s.run(ctx, "show_npc", req, func(ctx context.Context) error {
		_, npc, err := s.lookupNPC(ref)
		if err != nil {
			return err
		}
		c, err = s.npcCard(npc)
		return err
	})
	return c, err
}

// ShopItems opens a one-item-per-page browser over the NPC's inventory.
func (s *Service) ShopItems(ctx context.Context, req Request, ref string) (b Browser, err error) {
	err = s.run(ctx, "shop_items", req, func(ctx context.Context) error {
		_, npc, err := s.lookupNPC(ref)
		if err != nil {
			return err
		}
		if err := checkChannel(npc, req.ChannelID); err != nil {
			return err
		}
		items, err := s.inventory(npc)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmpty(npc.Name + " has nothing for sale.")
		}
		cards := make([]card.Card, 0, len(items))
		for _, it := range items {
			cards = append(cards, card.Item(it))
		}
		b = s.newShopListing(npc.Name, cards)
		return nil
	})
	return b, err
}

// PublishNPC posts the NPC's card to its assigned channel and remembers the
// posted message id.
func (s *Service) PublishNPC(ctx context.Context, req Request, ref string) (c card.Card, err error) {
	err = s.run(ctx, "publish_npc", req, func(ctx context.Context) error {
		tbl, npc, err := s.publishable(req, ref)
		if err != nil {
			return err
		}
		if err := s.publish(ctx, tbl, npc); err != nil {
			return err
		}
		c = card.Confirmation("NPC published", fmt.Sprintf("%s was posted to #%s.", npc.Name, npc.ChannelID))
		return nil
	})
	return c, err
}

// publishable looks up and authorizes the NPC to publish.
func (s *Service) publishable(req Request, ref string) (types.Table, *types.NPC, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl, npc, err := s.lookupNPC(ref)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorize(req, "NPC", npc); err != nil {
		return nil, nil, err
	}
	if npc.ChannelID == "" {
		return nil, nil, ErrValidation(npc.Name + " has no channel. Assign one first.")
	}
	return tbl, npc, nil
}

// publish sends the NPC card to its channel and stores the message id.
// Only the update runs under s.mu; the send does not.
func (s *Service) publish(ctx context.Context, npcs types.Table, npc *types.NPC) error {
	c, err := s.npcCard(npc)
	if err != nil {
		return err
	}
	msgID, err := s.channel.Send(ctx, delivery.Message{ChannelID: npc.ChannelID, Card: c})
	if err != nil {
		return ErrDelivery(npc.ChannelID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := npcs.Update(npc.ID, &types.NPCPatch{PostedMessageID: &msgID}); err != nil {
		return storeError("recording posted message", "NPC", npc.Name, err)
	}
	npc.PostedMessageID = msgID
	return nil
}

// DeleteNPC removes the NPC. Its items are kept.
func (s *Service) DeleteNPC(ctx context.Context, req Request, ref string) (c card.Card, err error) {
	err = s.run(ctx, "delete_npc", req, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tbl, npc, err := s.lookupNPC(ref)
		if err != nil {
			return err
		}
		if err := s.authorize(req, "NPC", npc); err != nil {
			return err
		}
		if err := tbl.Delete(npc.ID); err != nil {
			return storeError("deleting NPC", "NPC", ref, err)
		}
		c = card.Confirmation("NPC deleted", npc.Name+" was deleted.")
		return nil
	})
	return c, err
}

// AddItemToNPC appends an existing item to the NPC's inventory.
func (s *Service) AddItemToNPC(ctx context.Context, req Request, npcRef, itemRef string) (c card.Card, err error) {
	err = s.run(ctx, "add_item", req, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tbl, npc, err := s.lookupNPC(npcRef)
		if err != nil {
			return err
		}
		if err := s.authorize(req, "NPC", npc); err != nil {
			return err
		}
		_, item, err := s.lookupItem(itemRef)
		if err != nil {
			return err
		}
		if err := npc.AddItem(item.ID); err != nil {
			return ErrValidation(fmt.Sprintf("%s already sells %s.", npc.Name, item.Name))
		}
		if _, err := tbl.Update(npc.ID, &types.NPCPatch{Inventory: &npc.Inventory}); err != nil {
			return storeError("updating inventory", "NPC", npcRef, err)
		}
		c = card.Confirmation("Item added", fmt.Sprintf("%s now sells %s.", npc.Name, item.Name))
		return nil
	})
	return c, err
}

// RemoveItemFromNPC drops an item from the NPC's inventory. A numeric item
// reference is removed even when the item itself no longer exists.
func (s *Service) RemoveItemFromNPC(ctx context.Context, req Request, npcRef, itemRef string) (c card.Card, err error) {
	err = s.run(ctx, "remove_item", req, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tbl, npc, err := s.lookupNPC(npcRef)
		if err != nil {
			return err
		}
		if err := s.authorize(req, "NPC", npc); err != nil {
			return err
		}

		itemID, label := parseID(itemRef), strings.TrimSpace(itemRef)
		if itemID == 0 {
			_, item, err := s.lookupItem(itemRef)
			if err != nil {
				return err
			}
			itemID, label = item.ID, item.Name
		}
		if err := npc.RemoveItem(itemID); err != nil {
			return ErrNotFound("stocked item", label)
		}
		if _, err := tbl.Update(npc.ID, &types.NPCPatch{Inventory: &npc.Inventory}); err != nil {
			return storeError("updating inventory", "NPC", npcRef, err)
		}
		c = card.Confirmation("Item removed", fmt.Sprintf("%s no longer sells %s.", npc.Name, label))
		return nil
	})
	return c, err
}
