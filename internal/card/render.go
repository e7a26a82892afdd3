package card

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// FooterDateLayout formats the creation date in card footers.
const FooterDateLayout = "2006-01-02"

// NPC renders an NPC. items are the resolved inventory records in display
// order; dangling ids are expected to be dropped by the caller.
func NPC(n *types.NPC, items []*types.Item) Card {
	inventory := EmptyInventory
	if len(items) > 0 {
		lines := make([]string, 0, len(items))
		for _, it := range items {
			lines = append(lines, fmt.Sprintf("%s (%d)", it.Name, it.ID))
		}
		inventory = joinLines(lines)
	}

	channel := Unassigned
	if n.ChannelID != "" {
		channel = "#" + n.ChannelID
	}

	return Card{
		Kind:  KindRecord,
		Title: n.Name,
		Body:  Truncate(n.Dialogue, MaxFieldLength),
		Image: n.Image,
		Fields: []Field{
			field("Role", n.Role),
			field("Inventory", inventory),
			field("Channel", channel),
			field("Creator", n.CreatorID),
		},
		Footer: footer(n.CreatedAt),
	}
}

// Item renders an Item with its parsed property list.
func Item(it *types.Item) Card {
	props := NoProperties
	if parsed := types.ParseProperties(it.Properties); len(parsed) > 0 {
		lines := make([]string, 0, len(parsed))
		for _, p := range parsed {
			lines = append(lines, p.Key+": "+p.Value)
		}
		props = joinLines(lines)
	}

	return Card{
		Kind:  KindRecord,
		Title: it.Name,
		Body:  Truncate(it.Description, MaxFieldLength),
		Image: it.Image,
		Fields: []Field{
			field("Category", it.Category),
			field("Properties", props),
			field("Creator", it.CreatorID),
		},
		Footer: footer(it.CreatedAt),
	}
}

// NPCSummary renders one line of an NPC list page.
func NPCSummary(n *types.NPC) Field {
	channel := Unassigned
	if n.ChannelID != "" {
		channel = "#" + n.ChannelID
	}
	return field(fmt.Sprintf("%s (%d)", n.Name, n.ID), fmt.Sprintf("%s · %s", n.Role, channel))
}

// ItemSummary renders one line of an Item list page.
func ItemSummary(it *types.Item) Field {
	return field(fmt.Sprintf("%s (%d)", it.Name, it.ID), it.Category)
}

// List renders a page of summary fields under a title. page and pages are
// 1-based for display.
func List(title string, fields []Field, page, pages int) Card {
	return Card{
		Kind:   KindRecord,
		Title:  title,
		Fields: fields,
		Footer: fmt.Sprintf("Page %d/%d", page, pages),
	}
}

func footer(created time.Time) string {
	if created.IsZero() {
		return ""
	}
	return "Created " + created.Format(FooterDateLayout)
}
