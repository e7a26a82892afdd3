package types

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength bounds NPC and Item names, in runes.
const MaxNameLength = 100

// NPC is a shopkeeper character: a named record with dialogue, an image,
// a role tag, an optional assigned channel and an inventory of Item ids.
type NPC struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Dialogue string `json:"dialogue"`
	Image    string `json:"image,omitempty"`
	Role     string `json:"role"`

	// ChannelID is the delivery channel the NPC answers in; empty means
	// the NPC is unassigned.
	ChannelID string `json:"channel_id,omitempty"`

	// Inventory holds Item ids in display order. Ids may refer to items
	// that no longer exist.
	Inventory []int64 `json:"inventory"`

	CreatorID       string     `json:"creator_id"`
	PostedMessageID string     `json:"posted_message_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

var _ Record = (*NPC)(nil)

// RecordID returns the NPC id.
func (n *NPC) RecordID() int64 { return n.ID }

// Owner returns the creator identity.
func (n *NPC) Owner() string { return n.CreatorID }

// Field returns the string value of a filterable field.
func (n *NPC) Field(name string) (string, bool) {
	switch name {
	case "id":
		return strconv.FormatInt(n.ID, 10), true
	case "name":
		return n.Name, true
	case "dialogue":
		return n.Dialogue, true
	case "image":
		return n.Image, true
	case "role":
		return n.Role, true
	case "channel_id":
		return n.ChannelID, true
	case "creator_id":
		return n.CreatorID, true
	case "posted_message_id":
		return n.PostedMessageID, true
	default:
		return "", false
	}
}

// Validate checks the fields every stored NPC must satisfy.
func (n *NPC) Validate() error {
	return validateName(n.Name)
}

// HasItem reports whether itemID is in the inventory.
func (n *NPC) HasItem(itemID int64) bool {
	for _, id := range n.Inventory {
		if id == itemID {
			return true
		}
	}
	return false
}

// AddItem appends itemID to the inventory.
// Returns ErrAlreadyStocked if the id is already present.
func (n *NPC) AddItem(itemID int64) error {
	if n.HasItem(itemID) {
		return ErrAlreadyStocked
	}
	n.Inventory = append(n.Inventory, itemID)
	return nil
}

// RemoveItem drops itemID from the inventory, preserving the order of the
// remaining ids. Returns ErrNotStocked if the id is absent.
func (n *NPC) RemoveItem(itemID int64) error {
	for i, id := range n.Inventory {
		if id == itemID {
			n.Inventory = append(n.Inventory[:i:i], n.Inventory[i+1:]...)
			return nil
		}
	}
	return ErrNotStocked
}

// Clone returns a deep copy of the NPC.
func (n *NPC) Clone() *NPC {
	c := *n
	c.Inventory = append([]int64(nil), n.Inventory...)
	if n.UpdatedAt != nil {
		ts := *n.UpdatedAt
		c.UpdatedAt = &ts
	}
	return &c
}

// NPCPatch is a partial update for an NPC. Nil fields are left unchanged.
type NPCPatch struct {
	Name            *string
	Dialogue        *string
	Image           *string
	Role            *string
	ChannelID       *string
	PostedMessageID *string
	Inventory       *[]int64
}

// Apply merges the set fields of p into n.
func (p *NPCPatch) Apply(n *NPC) {
	if p == nil {
		return
	}
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Dialogue != nil {
		n.Dialogue = *p.Dialogue
	}
	if p.Image != nil {
		n.Image = *p.Image
	}
	if p.Role != nil {
		n.Role = *p.Role
	}
	if p.ChannelID != nil {
		n.ChannelID = *p.ChannelID
	}
	if p.PostedMessageID != nil {
		n.PostedMessageID = *p.PostedMessageID
	}
	if p.Inventory != nil {
		n.Inventory = append([]int64(nil), (*p.Inventory)...)
	}
}

// IsEmpty reports whether the patch sets no field.
func (p *NPCPatch) IsEmpty() bool {
	return p == nil || (p.Name == nil && p.Dialogue == nil && p.Image == nil &&
		p.Role == nil && p.ChannelID == nil && p.PostedMessageID == nil && p.Inventory == nil)
}

// NPCPatchFromFields builds a patch from field name/value pairs. Unknown
// field names are ignored. The inventory is not settable this way.
func NPCPatchFromFields(fields map[string]string) *NPCPatch {
	p := &NPCPatch{}
	for k, v := range fields {
		v := v
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "name":
			p.Name = &v
		case "dialogue":
			p.Dialogue = &v
		case "image":
			p.Image = &v
		case "role":
			p.Role = &v
		case "channel_id", "channel":
			p.ChannelID = &v
		}
	}
	return p
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return ErrInvalidName
	}
	return nil
}
